// Package api provides the HTTP API for observing and driving a session.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (admin control plane).
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/talgya/radiowar/internal/diplomacy"
	"github.com/talgya/radiowar/internal/engine"
	"github.com/talgya/radiowar/internal/persistence"
	"github.com/talgya/radiowar/internal/social"
)

const maxSSEConns = 4

// Server serves the session over HTTP.
type Server struct {
	Session     *engine.Session
	Eng         *engine.Engine  // Optional; status reports tick and pause state
	DB          *persistence.DB // Optional; enables round history endpoints
	Hub         *Hub            // Optional; enables the websocket endpoint
	Port        int
	AdminKey    string   // Bearer token for POST endpoints. Empty = POST disabled.
	RelayKey    string   // Bearer token for the SSE stream and websocket. Empty = streaming disabled, websocket open.
	CORSOrigins []string // Extra allowed origins besides localhost dev servers

	// Active SSE connection count (atomic).
	sseConns int32
}

// Handler builds the routing table.
func (s *Server) Handler() http.Handler {
	adminLimiter := NewRateLimiter(5, 10)
	examineLimiter := NewRateLimiter(10, 20)

	mux := http.NewServeMux()

	// Public endpoints.
	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.HandleFunc("GET /api/v1/stations", s.handleStations)
	mux.HandleFunc("GET /api/v1/station/{id}", RateLimitMiddleware(examineLimiter, s.handleStation))
	mux.HandleFunc("GET /api/v1/factions", s.handleFactions)
	mux.HandleFunc("GET /api/v1/alliances", s.handleAlliances)
	mux.HandleFunc("GET /api/v1/documents", s.handleDocuments)
	mux.HandleFunc("GET /api/v1/items", s.handleItems)
	mux.HandleFunc("GET /api/v1/events", s.handleEvents)
	mux.HandleFunc("GET /api/v1/summary", s.handleSummary)
	mux.HandleFunc("GET /api/v1/rounds", s.handleRounds)
	mux.HandleFunc("GET /api/v1/rounds/{id}", s.handleRound)

	// SSE streaming endpoint (requires relay token).
	mux.HandleFunc("GET /api/v1/stream", s.handleStream)
	if s.Hub != nil {
		mux.Handle("GET /api/v1/ws", s.Hub)
	}

	// Admin endpoints (POST, require bearer token).
	admin := func(h http.HandlerFunc) http.HandlerFunc {
		return RateLimitMiddleware(adminLimiter, s.adminOnly(h))
	}
	mux.HandleFunc("POST /api/v1/capture", admin(s.handleCapture))
	mux.HandleFunc("POST /api/v1/treaty/issue", admin(s.handleTreatyIssue))
	mux.HandleFunc("POST /api/v1/treaty/apply", admin(s.handleTreatyApply))
	mux.HandleFunc("POST /api/v1/treaty/terminate", admin(s.handleTreatyTerminate))
	mux.HandleFunc("POST /api/v1/reset", admin(s.handleReset))
	mux.HandleFunc("POST /api/v1/join", admin(s.handleJoin))
	mux.HandleFunc("POST /api/v1/leave", admin(s.handleLeave))
	mux.HandleFunc("POST /api/v1/pause", admin(s.handlePause))

	return corsMiddleware(s.CORSOrigins, mux)
}

// Start begins serving the HTTP API in a goroutine. The returned server can
// be shut down by the caller.
func (s *Server) Start() *http.Server {
	addr := fmt.Sprintf(":%d", s.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "", "relay_auth", s.RelayKey != "")

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
	return srv
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Localhost dev servers are always allowed.
func corsMiddleware(origins []string, next http.Handler) http.Handler {
	allowed := allowedOrigins(origins)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowed[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// allowedOrigins is the local dev servers plus the configured origins.
func allowedOrigins(origins []string) map[string]bool {
	allowed := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:4173": true,
		"http://localhost:3000": true,
	}
	for _, origin := range origins {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			allowed[origin] = true
		}
	}
	return allowed
}

func bearerMatches(r *http.Request, key string) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == key
}

// adminOnly wraps a handler to require the admin bearer token.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.AdminKey == "" {
			http.Error(w, "admin endpoints disabled (no RADIOWAR_ADMIN_KEY set)", http.StatusForbidden)
			return
		}
		if !bearerMatches(r, s.AdminKey) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"name":    "radiowar",
		"session": s.Session.Status(),
	}
	if s.Eng != nil {
		status["tick"] = s.Eng.Tick()
		status["running"] = s.Eng.Running()
		status["paused"] = s.Eng.Paused()
	}
	if s.Hub != nil {
		status["connected"] = s.Hub.Connected()
	}
	writeJSON(w, status)
}

func (s *Server) handleStations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Session.Stations())
}

// handleStation is the examine view: station record plus display text.
func (s *Server) handleStation(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	st, ok := s.Session.Station(id)
	if !ok {
		http.Error(w, "station not found", http.StatusNotFound)
		return
	}
	text, _ := s.Session.StationDisplayText(id)
	writeJSON(w, map[string]any{
		"station":     st,
		"description": text,
	})
}

func (s *Server) handleFactions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Session.Factions())
}

func (s *Server) handleAlliances(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Session.Alliances())
}

func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Session.Documents())
}

func (s *Server) handleItems(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Session.Items())
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	events := s.Session.Events(0)

	// Optional category filter.
	if cat := r.URL.Query().Get("category"); cat != "" {
		var filtered []engine.Event
		for _, e := range events {
			if e.Category == cat {
				filtered = append(filtered, e)
			}
		}
		events = filtered
	}

	start := 0
	if len(events) > limit {
		start = len(events) - limit
	}
	writeJSON(w, events[start:])
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Session.Summary())
}

func (s *Server) handleRounds(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "round history disabled", http.StatusServiceUnavailable)
		return
	}
	rounds, err := s.DB.Rounds(20)
	if err != nil {
		slog.Error("list rounds", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, rounds)
}

func (s *Server) handleRound(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "round history disabled", http.StatusServiceUnavailable)
		return
	}
	id := r.PathValue("id")
	round, err := s.DB.GetRound(id)
	if errors.Is(err, persistence.ErrNotFound) {
		http.Error(w, "round not found", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("get round", "round", id, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	journal, err := s.DB.Journal(id)
	if err != nil {
		slog.Error("read journal", "round", id, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"round": round, "journal": journal})
}

// handleCapture is the StationOwnershipChanged signal. A body with roles
// instead of frequency reconfigures the station by role.
func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Station   string           `json:"station"`
		Frequency social.Frequency `json:"frequency,omitempty"`
		Roles     []string         `json:"roles,omitempty"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Station == "" {
		http.Error(w, "station required", http.StatusBadRequest)
		return
	}

	f := req.Frequency
	var err error
	if len(req.Roles) > 0 {
		f, err = s.Session.Reconfigure(req.Station, req.Roles)
	} else {
		err = s.Session.ChangeOwnership(req.Station, req.Frequency)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	st, _ := s.Session.Station(req.Station)
	writeJSON(w, map[string]any{"success": true, "station": st, "frequency": f})
}

func (s *Server) handleTreatyIssue(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Document string `json:"document"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	out, err := s.Session.IssueTreaty(req.Document)
	writeOutcome(w, out, err)
}

func (s *Server) handleTreatyApply(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Treaty   string `json:"treaty"`
		Document string `json:"document"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	out, err := s.Session.FormAlliance(req.Treaty, req.Document)
	writeOutcome(w, out, err)
}

func (s *Server) handleTreatyTerminate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Initiator social.Frequency `json:"initiator"`
		Target    social.Frequency `json:"target"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	out, err := s.Session.TerminateAlliance(req.Initiator, req.Target)
	writeOutcome(w, out, err)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.Session.Reset()
	writeJSON(w, map[string]any{"success": true})
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	var p social.Participant
	if !decodeJSON(w, r, &p) {
		return
	}
	if p.SessionID == "" {
		http.Error(w, "session_id required", http.StatusBadRequest)
		return
	}
	s.Session.Directory().Join(p)
	writeJSON(w, map[string]any{"success": true, "participants": s.Session.Directory().Len()})
}

func (s *Server) handleLeave(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	s.Session.Directory().Leave(req.SessionID)
	writeJSON(w, map[string]any{"success": true, "participants": s.Session.Directory().Len()})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	if s.Eng == nil {
		http.Error(w, "engine not attached", http.StatusServiceUnavailable)
		return
	}
	var req struct {
		Paused bool `json:"paused"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	s.Eng.SetPaused(req.Paused)
	slog.Info("engine pause changed", "paused", req.Paused)
	writeJSON(w, map[string]bool{"paused": s.Eng.Paused()})
}

// handleStream provides an SSE endpoint for real-time event streaming.
// Requires bearer token auth and limits concurrent connections.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	// Streaming uses the relay key, not the admin key.
	if s.RelayKey == "" {
		http.Error(w, "streaming disabled (no relay key)", http.StatusForbidden)
		return
	}
	if !bearerMatches(r, s.RelayKey) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	// Connection limit.
	current := atomic.AddInt32(&s.sseConns, 1)
	if current > maxSSEConns {
		atomic.AddInt32(&s.sseConns, -1)
		http.Error(w, "too many SSE connections", http.StatusServiceUnavailable)
		return
	}
	defer atomic.AddInt32(&s.sseConns, -1)

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	// SSE headers.
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// Subscribe before the catch-up read so nothing falls in between.
	subID, ch := s.Session.Subscribe()
	defer s.Session.Unsubscribe(subID)

	for _, e := range s.Session.Events(50) {
		writeSSEEvent(w, e)
	}
	flusher.Flush()

	slog.Info("SSE client connected", "sub_id", subID)

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case e, ok := <-ch:
			if !ok {
				return
			}
			writeSSEEvent(w, e)
			flusher.Flush()
		case <-heartbeat.C:
			fmt.Fprintf(w, ": heartbeat\n\n")
			flusher.Flush()
		case <-r.Context().Done():
			slog.Info("SSE client disconnected", "sub_id", subID)
			return
		}
	}
}

// writeSSEEvent writes a single event in SSE format.
func writeSSEEvent(w http.ResponseWriter, e engine.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Category, data)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 64*1024)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return false
	}
	return true
}

// writeError maps session errors to HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, engine.ErrUnknownStation):
		status = http.StatusNotFound
	case errors.Is(err, engine.ErrUnknownFaction), errors.Is(err, engine.ErrNoEligibleRole):
		status = http.StatusBadRequest
	case errors.Is(err, engine.ErrFactionLocked), errors.Is(err, engine.ErrSessionEnded):
		status = http.StatusConflict
	}
	http.Error(w, err.Error(), status)
}

// writeOutcome reports a diplomacy interaction. Unhandled interactions
// (missing document or item) are 404s.
func writeOutcome(w http.ResponseWriter, out diplomacy.Outcome, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	if !out.Handled {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(out)
		return
	}
	writeJSON(w, out)
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
