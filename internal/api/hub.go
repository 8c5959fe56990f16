package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/talgya/radiowar/internal/notify"
	"github.com/talgya/radiowar/internal/social"
)

// Message types pushed to websocket clients.
const (
	MsgGrace        = "grace_period"
	MsgAnnouncement = "announcement"
	MsgSessionEnd   = "session_end"
)

// Message is one push to a connected participant.
type Message struct {
	Type            string           `json:"type"`
	Text            string           `json:"text,omitempty"`
	Faction         social.Frequency `json:"faction,omitempty"`
	DurationSeconds int              `json:"duration_seconds,omitempty"`
}

// Hub delivers outbound session signals to connected participants. It
// implements notify.Notifier: grace notices go to their recipients only,
// announcements and session end go to everyone.
type Hub struct {
	directory *social.Directory
	upgrader  websocket.Upgrader
	key       string          // Relay key required to connect; empty allows anyone
	origins   map[string]bool // Browser origins allowed besides the serving host

	mu    sync.Mutex
	conns map[string]chan []byte // Participant session id → outbound queue
}

var _ notify.Notifier = (*Hub)(nil)

// NewHub creates a hub that registers connected participants in directory.
// A non-empty key must be presented as a bearer token or a key query
// parameter. Browser connections are accepted from the serving host, the
// local dev servers and origins.
func NewHub(directory *social.Directory, key string, origins []string) *Hub {
	h := &Hub{
		directory: directory,
		key:       key,
		origins:   allowedOrigins(origins),
		conns:     make(map[string]chan []byte),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4 * 1024,
		WriteBufferSize: 16 * 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// checkOrigin admits clients that send no Origin (relays, bots) and
// browsers on an allowed origin.
func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || h.origins[origin] {
		return true
	}
	u, err := url.Parse(origin)
	return err == nil && strings.EqualFold(u.Host, r.Host)
}

func (h *Hub) authorized(r *http.Request) bool {
	if h.key == "" {
		return true
	}
	return bearerMatches(r, h.key) || r.URL.Query().Get("key") == h.key
}

func (h *Hub) GracePeriodStarted(n notify.GraceNotice) {
	msg := Message{Type: MsgGrace, Text: n.Text, Faction: n.Faction, DurationSeconds: int(n.Duration / time.Second)}
	for _, id := range n.Recipients {
		h.send(id, msg)
	}
}

func (h *Hub) Announce(text string, duration time.Duration) {
	h.broadcast(Message{Type: MsgAnnouncement, Text: text, DurationSeconds: int(duration / time.Second)})
}

func (h *Hub) EndSession() {
	h.broadcast(Message{Type: MsgSessionEnd})
}

// Connected returns the number of open connections.
func (h *Hub) Connected() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

func (h *Hub) send(id string, msg Message) {
	b, err := json.Marshal(msg)
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if out, ok := h.conns[id]; ok {
		enqueue(out, b)
	}
}

func (h *Hub) broadcast(msg Message) {
	b, err := json.Marshal(msg)
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, out := range h.conns {
		enqueue(out, b)
	}
}

// enqueue drops the message when the client's queue is full.
func enqueue(out chan []byte, b []byte) {
	select {
	case out <- b:
	default:
	}
}

func (h *Hub) register(id string) chan []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	if old, ok := h.conns[id]; ok {
		close(old)
	}
	out := make(chan []byte, 16)
	h.conns[id] = out
	return out
}

func (h *Hub) unregister(id string, out chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cur, ok := h.conns[id]; ok && cur == out {
		close(cur)
		delete(h.conns, id)
		h.directory.Leave(id)
	}
}

// ServeHTTP upgrades GET /api/v1/ws?session=<id>&roles=a,b. The connection
// joins the participant directory with the given roles for its lifetime.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	id := strings.TrimSpace(r.URL.Query().Get("session"))
	if id == "" {
		http.Error(w, "session query parameter required", http.StatusBadRequest)
		return
	}
	var roles []string
	for _, role := range strings.Split(r.URL.Query().Get("roles"), ",") {
		if role = strings.TrimSpace(role); role != "" {
			roles = append(roles, role)
		}
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	if len(roles) > 0 {
		h.directory.Join(social.Participant{SessionID: id, Name: r.URL.Query().Get("name"), Roles: roles})
	}
	out := h.register(id)
	defer h.unregister(id, out)
	slog.Info("participant connected", "session", id, "roles", roles)

	done := make(chan struct{})

	// Writer goroutine.
	go func() {
		defer close(done)
		for b := range out {
			_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		}
	}()

	// Reader loop; clients only send keepalives.
	for {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
		select {
		case <-done:
			return
		default:
		}
	}
	slog.Info("participant disconnected", "session", id)
}
