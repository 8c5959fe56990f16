// Package elimination decides when a faction that lost its last station is
// permanently out of the round.
//
// Each round-start faction moves through
//
//	Active → Grace(expiry) → Locked
//
// with Grace → Active when the faction retakes a station before expiry.
// Locked is final for the rest of the session.
package elimination

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/talgya/radiowar/internal/social"
)

// DefaultGracePeriod applies when the map does not configure one.
const DefaultGracePeriod = 900 * time.Second

// Phase is a faction's elimination state.
type Phase uint8

const (
	PhaseActive Phase = iota
	PhaseGrace
	PhaseLocked
)

func (p Phase) String() string {
	switch p {
	case PhaseGrace:
		return "grace"
	case PhaseLocked:
		return "locked"
	default:
		return "active"
	}
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText parses a phase name written by MarshalText.
func (p *Phase) UnmarshalText(b []byte) error {
	switch string(b) {
	case "active":
		*p = PhaseActive
	case "grace":
		*p = PhaseGrace
	case "locked":
		*p = PhaseLocked
	default:
		return fmt.Errorf("unknown elimination phase %q", b)
	}
	return nil
}

// State is a tagged variant: Expiry is only meaningful in PhaseGrace.
type State struct {
	Phase  Phase     `json:"phase"`
	Expiry time.Time `json:"expiry,omitempty"`
}

// Transition records one state change produced by Recompute or Sweep.
type Transition struct {
	Faction social.Frequency
	From    Phase
	To      Phase
	Expiry  time.Time // Set when entering PhaseGrace
}

// Tracker holds the grace map and the permanent lock list.
type Tracker struct {
	gracePeriod time.Duration
	grace       map[social.Frequency]time.Time
	locked      []social.Frequency // Lock order
	lockedSet   social.FrequencySet
}

// NewTracker creates a tracker. A non-positive gracePeriod uses DefaultGracePeriod.
func NewTracker(gracePeriod time.Duration) *Tracker {
	t := &Tracker{}
	t.Reset()
	t.SetGracePeriod(gracePeriod)
	return t
}

// SetGracePeriod changes the window granted to factions eliminated from now on.
func (t *Tracker) SetGracePeriod(d time.Duration) {
	if d <= 0 {
		d = DefaultGracePeriod
	}
	t.gracePeriod = d
}

// GracePeriod returns the configured window.
func (t *Tracker) GracePeriod() time.Duration {
	return t.gracePeriod
}

// Recompute compares the round-start factions against the alive set.
// Factions that reappeared leave the grace map; factions that vanished and
// are neither in grace nor locked enter grace with expiry now+GracePeriod.
// Transitions are returned in roster order.
func (t *Tracker) Recompute(roster []social.Frequency, alive social.FrequencySet, now time.Time) []Transition {
	var out []Transition

	for _, f := range roster {
		if !alive.Has(f) {
			continue
		}
		if _, inGrace := t.grace[f]; inGrace {
			delete(t.grace, f)
			out = append(out, Transition{Faction: f, From: PhaseGrace, To: PhaseActive})
			slog.Info("faction recovered", "faction", f)
		}
	}

	for _, f := range roster {
		if alive.Has(f) || t.lockedSet.Has(f) {
			continue
		}
		if _, inGrace := t.grace[f]; inGrace {
			continue
		}
		expiry := now.Add(t.gracePeriod)
		t.grace[f] = expiry
		out = append(out, Transition{Faction: f, From: PhaseActive, To: PhaseGrace, Expiry: expiry})
		slog.Info("faction lost its last station", "faction", f, "grace_period", t.gracePeriod, "expiry", expiry)
	}

	return out
}

// Sweep locks every faction whose grace period has expired (now >= expiry).
// Locked factions are returned sorted by frequency.
func (t *Tracker) Sweep(now time.Time) []social.Frequency {
	var expired []social.Frequency
	for f, expiry := range t.grace {
		if now.Before(expiry) {
			continue
		}
		expired = append(expired, f)
	}
	sort.Slice(expired, func(i, j int) bool { return expired[i] < expired[j] })

	for _, f := range expired {
		delete(t.grace, f)
		t.locked = append(t.locked, f)
		t.lockedSet.Add(f)
		slog.Info("faction locked", "faction", f)
	}
	return expired
}

// Locked reports whether f is permanently eliminated.
func (t *Tracker) Locked(f social.Frequency) bool {
	return t.lockedSet.Has(f)
}

// Grace returns f's expiry if it is in its grace period.
func (t *Tracker) Grace(f social.Frequency) (time.Time, bool) {
	expiry, ok := t.grace[f]
	return expiry, ok
}

// State returns f's current state.
func (t *Tracker) State(f social.Frequency) State {
	if t.lockedSet.Has(f) {
		return State{Phase: PhaseLocked}
	}
	if expiry, ok := t.grace[f]; ok {
		return State{Phase: PhaseGrace, Expiry: expiry}
	}
	return State{Phase: PhaseActive}
}

// LockedFactions returns the lock list in lock order.
func (t *Tracker) LockedFactions() []social.Frequency {
	return append([]social.Frequency(nil), t.locked...)
}

// Reset clears the grace map and lock list. The grace period is kept.
func (t *Tracker) Reset() {
	t.grace = make(map[social.Frequency]time.Time)
	t.locked = nil
	t.lockedSet = make(social.FrequencySet)
}
