package engine

import (
	"sync"
	"time"

	"github.com/talgya/radiowar/internal/social"
)

// Event categories.
const (
	CategoryRound     = "round"
	CategoryCapture   = "capture"
	CategoryGrace     = "grace"
	CategoryLocked    = "locked"
	CategoryAlliance  = "alliance"
	CategoryTreaty    = "treaty"
	CategoryCountdown = "countdown"
)

// maxEvents bounds the in-memory event history.
const maxEvents = 1000

// Event is a notable occurrence in the session.
type Event struct {
	Time        time.Time        `json:"time"`
	Round       string           `json:"round,omitempty"`
	Category    string           `json:"category"`
	Description string           `json:"description"`
	Faction     social.Frequency `json:"faction,omitempty"`
	Station     string           `json:"station,omitempty"`
}

// eventLog is the session's event ring plus live subscribers. It has its own
// lock so emitting from inside a session operation never re-enters the
// session mutex. The ring is bounded for display; journal keeps every event
// of the current round for the archive.
type eventLog struct {
	mu      sync.Mutex
	events  []Event
	journal []Event
	subs    map[int]chan Event
	nextSub int
}

// EmitEvent appends to the history and fans out to subscribers. Slow
// subscribers miss events rather than block the session.
func (l *eventLog) EmitEvent(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.journal = append(l.journal, e)
	l.events = append(l.events, e)
	if len(l.events) > maxEvents {
		l.events = l.events[len(l.events)-maxEvents:]
	}
	for _, ch := range l.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Subscribe registers a live listener. Callers must Unsubscribe.
func (l *eventLog) Subscribe() (int, <-chan Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.subs == nil {
		l.subs = make(map[int]chan Event)
	}
	l.nextSub++
	ch := make(chan Event, 64)
	l.subs[l.nextSub] = ch
	return l.nextSub, ch
}

// Unsubscribe closes and forgets a listener.
func (l *eventLog) Unsubscribe(id int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if ch, ok := l.subs[id]; ok {
		close(ch)
		delete(l.subs, id)
	}
}

// Events returns up to the last n events, oldest first. n <= 0 returns all.
func (l *eventLog) Events(n int) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	start := 0
	if n > 0 && len(l.events) > n {
		start = len(l.events) - n
	}
	return append([]Event(nil), l.events[start:]...)
}

// Journal returns every event of the current round, oldest first.
func (l *eventLog) Journal() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event(nil), l.journal...)
}

func (l *eventLog) clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = nil
	l.journal = nil
}
