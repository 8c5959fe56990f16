package main

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/talgya/radiowar/internal/config"
	"github.com/talgya/radiowar/internal/engine"
	"github.com/talgya/radiowar/internal/notify"
	"github.com/talgya/radiowar/internal/persistence"
)

// roundKeeper persists rounds and starts the next one after a round ends.
type roundKeeper struct {
	session *engine.Session
	db      *persistence.DB
	setup   config.MapSetup
	delay   time.Duration // Pause between a round ending and the next starting

	ended chan struct{}
	reset chan struct{}

	mu        sync.Mutex
	pending   []engine.Event       // Archived on the next flush
	discarded []engine.RoundRecord // Rounds dropped by Session.Reset
}

func newRoundKeeper(db *persistence.DB, setup config.MapSetup, delay time.Duration) *roundKeeper {
	return &roundKeeper{
		db:    db,
		setup: setup,
		delay: delay,
		ended: make(chan struct{}, 1),
		reset: make(chan struct{}, 1),
	}
}

// onReset queues a round discarded by Session.Reset. Like notifier it runs
// under the session lock.
func (k *roundKeeper) onReset(rec engine.RoundRecord) {
	k.mu.Lock()
	k.discarded = append(k.discarded, rec)
	k.mu.Unlock()
	select {
	case k.reset <- struct{}{}:
	default:
	}
}

// notifier reacts to the session ending. It runs under the session lock, so
// it only signals the run loop.
func (k *roundKeeper) notifier() notify.Notifier {
	return notify.Func{OnEnd: func() {
		select {
		case k.ended <- struct{}{}:
		default:
		}
	}}
}

// start loads a fresh round and records it.
func (k *roundKeeper) start() {
	id := k.session.Start(k.setup)
	if err := k.db.BeginRound(id, time.Now()); err != nil {
		slog.Error("record round start failed", "round", id, "error", err)
	}
	if err := k.db.SaveMeta("current_round", id.String()); err != nil {
		slog.Error("save meta failed", "error", err)
	}
}

// finish stores the ending round's summary and full journal.
func (k *roundKeeper) finish() {
	k.flush()
	id := k.session.RoundID()
	if err := k.db.FinishRound(id, time.Now(), k.session.Summary(), k.session.Journal()); err != nil {
		slog.Error("record round end failed", "round", id, "error", err)
	}
}

// finishDiscarded stores the rounds a reset threw away.
func (k *roundKeeper) finishDiscarded() {
	k.flush()
	k.mu.Lock()
	recs := k.discarded
	k.discarded = nil
	k.mu.Unlock()

	for _, rec := range recs {
		if err := k.db.FinishRound(rec.ID, rec.EndedAt, rec.Summary, rec.Journal); err != nil {
			slog.Error("record reset round failed", "round", rec.ID, "error", err)
		}
	}
}

// archive collects live events until ctx is done.
func (k *roundKeeper) archive(ctx context.Context) {
	id, ch := k.session.Subscribe()
	defer k.session.Unsubscribe(id)

	for {
		select {
		case e, ok := <-ch:
			if !ok {
				return
			}
			k.mu.Lock()
			k.pending = append(k.pending, e)
			k.mu.Unlock()
		case <-ctx.Done():
			return
		}
	}
}

// flush writes archived events to the database.
func (k *roundKeeper) flush() {
	k.mu.Lock()
	batch := k.pending
	k.pending = nil
	k.mu.Unlock()

	if err := k.db.SaveEvents(batch); err != nil {
		slog.Error("save events failed", "events", len(batch), "error", err)
		k.mu.Lock()
		k.pending = append(batch, k.pending...)
		k.mu.Unlock()
	}
}

// run restarts the session after each round end or reset until ctx is
// done. A reset starts the next round at once, also during the pause after
// a victory.
func (k *roundKeeper) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-k.reset:
			k.restartAfterReset()
			continue
		case <-k.ended:
		}

		k.finish()
		slog.Info("next round scheduled", "delay", k.delay)

		timer := time.NewTimer(k.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-k.reset:
			timer.Stop()
			k.restartAfterReset()
			continue
		case <-timer.C:
		}
		k.start()
	}
}

// restartAfterReset archives the discarded rounds and loads a new one. An
// end signal still pending belongs to a discarded round, so it is dropped.
func (k *roundKeeper) restartAfterReset() {
	select {
	case <-k.ended:
	default:
	}
	k.finishDiscarded()
	k.start()
}
