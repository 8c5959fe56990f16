package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/radiowar/internal/notify"
	"github.com/talgya/radiowar/internal/social"
)

func dialHub(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestHubGraceGoesToRecipientsOnly(t *testing.T) {
	dir := social.NewDirectory()
	hub := NewHub(dir, "", nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	sparta := dialHub(t, srv, "session=p1&roles=SpartaRanger&name=Artyom")
	hansa := dialHub(t, srv, "session=p2&roles=HansaSoldier")
	require.Eventually(t, func() bool { return hub.Connected() == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 2, dir.Len())
	assert.Equal(t, []string{"p1"}, dir.WithAnyRole([]string{"SpartaRanger"}))

	hub.GracePeriodStarted(notify.GraceNotice{
		Faction:    "sparta_frequency",
		Duration:   15 * time.Minute,
		Recipients: []string{"p1"},
		Text:       "last station lost",
	})
	hub.Announce("countdown", 10*time.Minute)

	msg := readMessage(t, sparta)
	assert.Equal(t, MsgGrace, msg.Type)
	assert.Equal(t, social.Frequency("sparta_frequency"), msg.Faction)
	assert.Equal(t, 900, msg.DurationSeconds)

	msg = readMessage(t, sparta)
	assert.Equal(t, MsgAnnouncement, msg.Type)

	// The hansa client skips the grace notice and sees the announcement first.
	msg = readMessage(t, hansa)
	assert.Equal(t, MsgAnnouncement, msg.Type)
	assert.Equal(t, 600, msg.DurationSeconds)
}

func TestHubEndSessionAndDisconnect(t *testing.T) {
	dir := social.NewDirectory()
	hub := NewHub(dir, "", nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dialHub(t, srv, "session=p1&roles=RedlineSoldier")
	require.Eventually(t, func() bool { return hub.Connected() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.EndSession()
	assert.Equal(t, MsgSessionEnd, readMessage(t, conn).Type)

	conn.Close()
	require.Eventually(t, func() bool { return hub.Connected() == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, dir.Len())
}

func TestHubRequiresSession(t *testing.T) {
	hub := NewHub(social.NewDirectory(), "", nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestHubRejectsForeignOrigin(t *testing.T) {
	dir := social.NewDirectory()
	hub := NewHub(dir, "", []string{"https://radio.example.org"})
	srv := httptest.NewServer(hub)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?session=p1&roles=HansaSoldier"
	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://evil.example.com"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, 0, dir.Len())

	for _, origin := range []string{"https://radio.example.org", "http://localhost:5173", srv.URL} {
		conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {origin}})
		require.NoError(t, err, origin)
		conn.Close()
	}
}

func TestHubRequiresRelayKey(t *testing.T) {
	hub := NewHub(social.NewDirectory(), "relay-secret", nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	base := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?session=p1&roles=HansaSoldier"
	_, resp, err := websocket.DefaultDialer.Dial(base, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(base+"&key=wrong", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(base+"&key=relay-secret", nil)
	require.NoError(t, err)
	conn.Close()

	conn, _, err = websocket.DefaultDialer.Dial(base, http.Header{"Authorization": {"Bearer relay-secret"}})
	require.NoError(t, err)
	conn.Close()
}
