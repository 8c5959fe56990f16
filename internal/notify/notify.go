// Package notify defines the signals a session sends to the outside world:
// grace-period notices to a faction's players, global announcements and
// the request to end the session.
package notify

import (
	"log/slog"
	"sync"
	"time"

	"github.com/talgya/radiowar/internal/social"
)

// GraceNotice is sent when a faction loses its last station.
type GraceNotice struct {
	Faction    social.Frequency `json:"faction"`
	Duration   time.Duration    `json:"duration"`
	Recipients []string         `json:"recipients"` // Participant session ids holding a faction role
	Text       string           `json:"text"`
}

// Notifier receives outbound signals. Implementations must not call back
// into the session synchronously.
type Notifier interface {
	GracePeriodStarted(n GraceNotice)
	Announce(text string, duration time.Duration)
	EndSession()
}

// Multi fans every signal out to each notifier in order.
type Multi []Notifier

func (m Multi) GracePeriodStarted(n GraceNotice) {
	for _, x := range m {
		x.GracePeriodStarted(n)
	}
}

func (m Multi) Announce(text string, duration time.Duration) {
	for _, x := range m {
		x.Announce(text, duration)
	}
}

func (m Multi) EndSession() {
	for _, x := range m {
		x.EndSession()
	}
}

// Log writes signals to slog.
type Log struct{}

func (Log) GracePeriodStarted(n GraceNotice) {
	slog.Info("grace notice", "faction", n.Faction, "duration", n.Duration, "recipients", len(n.Recipients))
}

func (Log) Announce(text string, duration time.Duration) {
	slog.Info("announcement", "text", text, "duration", duration)
}

func (Log) EndSession() {
	slog.Info("session end requested")
}

// Recorder keeps every signal in memory. Safe for concurrent use.
type Recorder struct {
	mu            sync.Mutex
	Notices       []GraceNotice
	Announcements []Announcement
	Ends          int
}

// Announcement is one recorded Announce call.
type Announcement struct {
	Text     string
	Duration time.Duration
}

func (r *Recorder) GracePeriodStarted(n GraceNotice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Notices = append(r.Notices, n)
}

func (r *Recorder) Announce(text string, duration time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Announcements = append(r.Announcements, Announcement{Text: text, Duration: duration})
}

func (r *Recorder) EndSession() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Ends++
}

// Snapshot returns copies of the recorded signals.
func (r *Recorder) Snapshot() ([]GraceNotice, []Announcement, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]GraceNotice(nil), r.Notices...), append([]Announcement(nil), r.Announcements...), r.Ends
}

// Func adapts plain functions to Notifier. Nil fields are skipped.
type Func struct {
	OnGrace    func(GraceNotice)
	OnAnnounce func(string, time.Duration)
	OnEnd      func()
}

func (f Func) GracePeriodStarted(n GraceNotice) {
	if f.OnGrace != nil {
		f.OnGrace(n)
	}
}

func (f Func) Announce(text string, duration time.Duration) {
	if f.OnAnnounce != nil {
		f.OnAnnounce(text, duration)
	}
}

func (f Func) EndSession() {
	if f.OnEnd != nil {
		f.OnEnd()
	}
}
