package api

import (
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/radiowar/internal/config"
	"github.com/talgya/radiowar/internal/diplomacy"
	"github.com/talgya/radiowar/internal/engine"
	"github.com/talgya/radiowar/internal/notify"
	"github.com/talgya/radiowar/internal/persistence"
	"github.com/talgya/radiowar/internal/social"
	"github.com/talgya/radiowar/internal/territory"
)

const testMap = `
factions:
  - {frequency: hansa_frequency, name: peace-hansa-frequency-named, roles: [HansaSoldier]}
  - {frequency: redline_frequency, name: peace-redline-frequency-named, roles: [RedlineSoldier]}
  - {frequency: sparta_frequency, name: peace-sparta-frequency-named, roles: [SpartaRanger]}
stations:
  - {id: hansa-yard, frequency: hansa_frequency}
  - {id: redline-depot, frequency: redline_frequency}
  - {id: sparta-gate, frequency: sparta_frequency}
  - {id: park, q: 1, r: 1}
documents:
  - {id: hansa-office, frequency: hansa_frequency, treaty_prototype: PeaceTreatyPaper}
  - {id: redline-office, frequency: redline_frequency, treaty_prototype: PeaceTreatyPaper, hostile: [hansa_frequency]}
  - {id: sparta-office, frequency: sparta_frequency, treaty_prototype: PeaceTreatyPaper}
items:
  PeaceTreatyPaper: true
`

const adminKey = "test-admin"

func newTestServer(t *testing.T) *Server {
	t.Helper()
	setup, err := config.ParseMapSetup([]byte(testMap))
	require.NoError(t, err)

	session := engine.NewSession(engine.Options{Notifier: &notify.Recorder{}})
	session.Start(setup)
	return &Server{
		Session:  session,
		Eng:      engine.NewEngine(),
		AdminKey: adminKey,
	}
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if method == http.MethodPost {
		req.Header.Set("Authorization", "Bearer "+adminKey)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestStatus(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s.Handler(), http.MethodGet, "/api/v1/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	type statusBody struct {
		Name    string        `json:"name"`
		Paused  bool          `json:"paused"`
		Session engine.Status `json:"session"`
	}
	body := decode[statusBody](t, rec)
	assert.Equal(t, "radiowar", body.Name)
	assert.False(t, body.Paused)
	assert.Equal(t, 4, body.Session.Stations)
	assert.Len(t, body.Session.Alive, 3)
	assert.Equal(t, s.Session.RoundID().String(), body.Session.Round)
}

func TestStationExamine(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	rec := do(t, h, http.MethodGet, "/api/v1/station/hansa-yard", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[struct {
		Station     territory.Station `json:"station"`
		Description string            `json:"description"`
	}](t, rec)
	assert.Equal(t, social.Frequency("hansa_frequency"), body.Station.Owner)
	assert.Contains(t, body.Description, "Hansa")

	rec = do(t, h, http.MethodGet, "/api/v1/station/nowhere", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminAuth(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reset", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/reset", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	s.AdminKey = ""
	rec = do(t, s.Handler(), http.MethodPost, "/api/v1/reset", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCapture(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	rec := do(t, h, http.MethodPost, "/api/v1/capture", `{"station":"park","frequency":"hansa_frequency"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	st, ok := s.Session.Station("park")
	require.True(t, ok)
	assert.Equal(t, social.Frequency("hansa_frequency"), st.Owner)

	rec = do(t, h, http.MethodPost, "/api/v1/capture", `{"station":"sparta-gate","roles":["RedlineSoldier"]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode[struct {
		Frequency social.Frequency `json:"frequency"`
	}](t, rec)
	assert.Equal(t, social.Frequency("redline_frequency"), body.Frequency)

	// Sparta lost its last station and is now in its grace period.
	factions := s.Session.Factions()
	for _, f := range factions {
		if f.Frequency == "sparta_frequency" {
			assert.Equal(t, 0, f.Stations)
		}
	}
}

func TestCaptureErrors(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	tests := []struct {
		name string
		body string
		want int
	}{
		{"missing station", `{"frequency":"hansa_frequency"}`, http.StatusBadRequest},
		{"bad json", `{`, http.StatusBadRequest},
		{"unknown station", `{"station":"nowhere","frequency":"hansa_frequency"}`, http.StatusNotFound},
		{"unknown faction", `{"station":"park","frequency":"ghost_frequency"}`, http.StatusBadRequest},
		{"no eligible role", `{"station":"park","roles":["Janitor"]}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/v1/capture", tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestTreatyFlow(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	rec := do(t, h, http.MethodPost, "/api/v1/treaty/issue", `{"document":"hansa-office"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	issued := decode[diplomacy.Outcome](t, rec)
	require.NotNil(t, issued.Item)
	assert.Equal(t, "issued", issued.Kind)

	rec = do(t, h, http.MethodPost, "/api/v1/treaty/apply",
		`{"treaty":"`+issued.Item.ID+`","document":"sparta-office"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	formed := decode[diplomacy.Outcome](t, rec)
	assert.Equal(t, "formed", formed.Kind)

	alliances := s.Session.Alliances()
	assert.Contains(t, alliances.Entries["sparta_frequency"], social.Frequency("hansa_frequency"))

	rec = do(t, h, http.MethodPost, "/api/v1/treaty/terminate",
		`{"initiator":"sparta_frequency","target":"hansa_frequency"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "terminated", decode[diplomacy.Outcome](t, rec).Kind)

	rec = do(t, h, http.MethodPost, "/api/v1/treaty/apply", `{"treaty":"missing","document":"sparta-office"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, decode[diplomacy.Outcome](t, rec).Handled)
}

func TestEventsLimitAndCategory(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	require.NoError(t, s.Session.ChangeOwnership("park", "hansa_frequency"))
	require.NoError(t, s.Session.ChangeOwnership("park", "sparta_frequency"))

	rec := do(t, h, http.MethodGet, "/api/v1/events?limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]engine.Event](t, rec), 1)

	rec = do(t, h, http.MethodGet, "/api/v1/events?category="+engine.CategoryCapture, "")
	events := decode[[]engine.Event](t, rec)
	require.Len(t, events, 2)
	assert.Equal(t, social.Frequency("sparta_frequency"), events[1].Faction)
}

func TestSummaryAndReset(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	rec := do(t, h, http.MethodGet, "/api/v1/summary", "")
	require.Equal(t, http.StatusOK, rec.Code)
	sum := decode[engine.Summary](t, rec)
	assert.Equal(t, 4, sum.Total)
	assert.Equal(t, 3, sum.Captured)
	assert.NotEmpty(t, sum.Lines)

	rec = do(t, h, http.MethodPost, "/api/v1/reset", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, s.Session.Stations())
}

func TestJoinLeave(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	rec := do(t, h, http.MethodPost, "/api/v1/join", `{"session_id":"p1","name":"Artyom","roles":["SpartaRanger"]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, s.Session.Directory().Len())

	rec = do(t, h, http.MethodPost, "/api/v1/join", `{"name":"nobody"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/v1/leave", `{"session_id":"p1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, s.Session.Directory().Len())
}

func TestPause(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	rec := do(t, h, http.MethodPost, "/api/v1/pause", `{"paused":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, s.Eng.Paused())

	s.Eng = nil
	rec = do(t, s.Handler(), http.MethodPost, "/api/v1/pause", `{"paused":false}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSessionEndedConflict(t *testing.T) {
	setup, err := config.ParseMapSetup([]byte(testMap))
	require.NoError(t, err)

	now := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	session := engine.NewSession(engine.Options{
		Notifier: &notify.Recorder{},
		Clock:    func() time.Time { return now },
	})
	session.Start(setup)
	s := &Server{Session: session, AdminKey: adminKey}
	h := s.Handler()

	// Redline and Sparta lose everything; Hansa alone holds the map.
	require.NoError(t, session.ChangeOwnership("redline-depot", "hansa_frequency"))
	require.NoError(t, session.ChangeOwnership("sparta-gate", "hansa_frequency"))
	now = now.Add(time.Hour)
	session.Tick()
	require.True(t, session.Ended())

	rec := do(t, h, http.MethodPost, "/api/v1/capture", `{"station":"park","frequency":"hansa_frequency"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRounds(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s.Handler(), http.MethodGet, "/api/v1/rounds", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	db, err := persistence.Open(filepath.Join(t.TempDir(), "rounds.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	s.DB = db
	h := s.Handler()

	id := s.Session.RoundID()
	require.NoError(t, db.BeginRound(id, time.Now()))
	require.NoError(t, db.FinishRound(id, time.Now(), s.Session.Summary(), s.Session.Events(0)))

	rec = do(t, h, http.MethodGet, "/api/v1/rounds", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rounds := decode[[]persistence.Round](t, rec)
	require.Len(t, rounds, 1)
	assert.Equal(t, id.String(), rounds[0].ID)

	rec = do(t, h, http.MethodGet, "/api/v1/rounds/"+id.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[struct {
		Round   persistence.Round `json:"round"`
		Journal []engine.Event    `json:"journal"`
	}](t, rec)
	assert.Equal(t, 4, body.Round.Summary.Total)
	assert.NotEmpty(t, body.Journal)

	rec = do(t, h, http.MethodGet, "/api/v1/rounds/does-not-exist", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCORS(t *testing.T) {
	s := newTestServer(t)
	s.CORSOrigins = []string{" https://radio.example.org "}
	h := s.Handler()

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/capture", nil)
	req.Header.Set("Origin", "https://radio.example.org")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://radio.example.org", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestStream(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s.Handler(), http.MethodGet, "/api/v1/stream", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	s.RelayKey = "relay"
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/stream")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/stream", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer relay")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	// Catch-up replays the round start.
	line, err := bufio.NewReader(resp.Body).ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: "+engine.CategoryRound+"\n", line)
}
