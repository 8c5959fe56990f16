// Package victory evaluates the win condition and drives the decisive
// countdown that ends a session.
package victory

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/talgya/radiowar/internal/alliance"
	"github.com/talgya/radiowar/internal/social"
)

// Policy selects how alliance coverage is judged.
type Policy uint8

const (
	// PolicyStrict requires the whole ledger to form a single bloc.
	PolicyStrict Policy = iota
	// PolicyLenient accepts any one bloc that contains every survivor.
	PolicyLenient
)

func (p Policy) String() string {
	if p == PolicyLenient {
		return "lenient"
	}
	return "strict"
}

// ParsePolicy maps a config string to a Policy. Empty means strict.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "strict":
		return PolicyStrict, nil
	case "lenient":
		return PolicyLenient, nil
	default:
		return PolicyStrict, fmt.Errorf("unknown bloc policy %q", s)
	}
}

// Phase of the decisive countdown.
type Phase uint8

const (
	Off Phase = iota
	On
	Fired
)

func (p Phase) String() string {
	switch p {
	case On:
		return "on"
	case Fired:
		return "fired"
	default:
		return "off"
	}
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText parses a phase name written by MarshalText.
func (p *Phase) UnmarshalText(b []byte) error {
	switch string(b) {
	case "off":
		*p = Off
	case "on":
		*p = On
	case "fired":
		*p = Fired
	default:
		return fmt.Errorf("unknown countdown phase %q", b)
	}
	return nil
}

// Countdown is the tagged countdown state. EndTime is set while On and kept
// after Fired for reporting.
type Countdown struct {
	Phase   Phase     `json:"phase"`
	EndTime time.Time `json:"end_time,omitempty"`
}

// Change is the effect of one Evaluate call.
type Change uint8

const (
	Unchanged Change = iota
	Started
	Stopped
)

// Evaluator owns the countdown state machine.
type Evaluator struct {
	decisive time.Duration
	policy   Policy
	enabled  bool
	state    Countdown
}

// NewEvaluator creates an enabled evaluator in the Off phase.
func NewEvaluator(decisive time.Duration, policy Policy) *Evaluator {
	return &Evaluator{decisive: decisive, policy: policy, enabled: true}
}

// Configure replaces the per-session settings. The countdown state is kept.
func (e *Evaluator) Configure(decisive time.Duration, policy Policy, enabled bool) {
	e.decisive = decisive
	e.policy = policy
	e.enabled = enabled
}

// Decisive returns the countdown length.
func (e *Evaluator) Decisive() time.Duration { return e.decisive }

// Enabled reports whether the capture rule is active for this session.
func (e *Evaluator) Enabled() bool { return e.enabled }

// Policy returns the bloc policy.
func (e *Evaluator) Policy() Policy { return e.policy }

// Holds reports whether the surviving factions have won: a single survivor,
// or two or more survivors covered by one alliance bloc.
func (e *Evaluator) Holds(alive social.FrequencySet, ledger *alliance.Ledger) bool {
	switch n := alive.Len(); {
	case n == 1:
		return true
	case n >= 2:
		if e.policy == PolicyLenient {
			return ledger.AnyBlocCovers(alive)
		}
		return ledger.BlocCovers(alive)
	default:
		return false
	}
}

// Evaluate recomputes the win condition and moves Off → On or On → Off.
// A running countdown is not restarted while the condition keeps holding.
// Fired is terminal until Reset.
func (e *Evaluator) Evaluate(alive social.FrequencySet, ledger *alliance.Ledger, now time.Time) Change {
	if e.state.Phase == Fired {
		return Unchanged
	}

	holds := e.enabled && e.Holds(alive, ledger)
	switch {
	case holds && e.state.Phase == Off:
		e.state = Countdown{Phase: On, EndTime: now.Add(e.decisive)}
		slog.Info("decisive countdown started", "survivors", alive.Sorted(), "end_time", e.state.EndTime)
		return Started
	case !holds && e.state.Phase == On:
		e.state = Countdown{Phase: Off}
		slog.Info("decisive countdown stopped", "survivors", alive.Sorted())
		return Stopped
	}
	return Unchanged
}

// Sweep fires the countdown once when now reaches EndTime. It returns true
// exactly on the firing call.
func (e *Evaluator) Sweep(now time.Time) bool {
	if e.state.Phase != On || now.Before(e.state.EndTime) {
		return false
	}
	e.state.Phase = Fired
	slog.Info("decisive countdown fired", "end_time", e.state.EndTime)
	return true
}

// State returns the current countdown.
func (e *Evaluator) State() Countdown {
	return e.state
}

// Reset returns the countdown to Off. Settings are kept.
func (e *Evaluator) Reset() {
	e.state = Countdown{}
}
