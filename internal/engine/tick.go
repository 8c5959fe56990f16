// Package engine runs a radio-war session: the Session aggregate that owns
// every per-round component, and the Engine that drives its timed sweeps.
package engine

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// TicksPerMinute is how often OnMinute fires at the default interval.
const TicksPerMinute = 60

// Engine drives the session forward on a fixed interval.
type Engine struct {
	Interval time.Duration // Base tick interval (default 1 second)

	// Callbacks, populated during setup.
	OnTick   func(tick uint64) // Every tick
	OnMinute func(tick uint64) // Every TicksPerMinute ticks

	tick    atomic.Uint64 // Monotonic, never resets
	running atomic.Bool
	paused  atomic.Bool
}

// NewEngine creates an engine with a one-second interval.
func NewEngine() *Engine {
	return &Engine{Interval: time.Second}
}

// Tick returns the number of ticks run so far.
func (e *Engine) Tick() uint64 {
	return e.tick.Load()
}

// Running reports whether Run is active.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// SetPaused stops or resumes tick callbacks without leaving Run.
func (e *Engine) SetPaused(p bool) {
	e.paused.Store(p)
}

// Paused reports whether ticks are suspended.
func (e *Engine) Paused() bool {
	return e.paused.Load()
}

// Run ticks until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) {
	interval := e.Interval
	if interval <= 0 {
		interval = time.Second
	}
	e.running.Store(true)
	defer e.running.Store(false)
	slog.Info("engine started", "tick", e.Tick(), "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("engine stopped", "tick", e.Tick())
			return
		case <-ticker.C:
			if e.paused.Load() {
				continue
			}
			e.step()
		}
	}
}

// step advances the engine by one tick.
func (e *Engine) step() {
	tick := e.tick.Add(1)

	if e.OnTick != nil {
		e.OnTick(tick)
	}
	if tick%TicksPerMinute == 0 && e.OnMinute != nil {
		e.OnMinute(tick)
	}
}
