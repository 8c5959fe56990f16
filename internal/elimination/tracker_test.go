package elimination

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/radiowar/internal/social"
)

var (
	t0     = time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	roster = []social.Frequency{"x", "y", "z"}
)

func TestDefaultGracePeriod(t *testing.T) {
	assert.Equal(t, 900*time.Second, NewTracker(0).GracePeriod())
	assert.Equal(t, time.Minute, NewTracker(time.Minute).GracePeriod())
}

func TestFactionWithoutStationsEntersGrace(t *testing.T) {
	tr := NewTracker(0)

	got := tr.Recompute(roster, social.NewFrequencySet("x", "z"), t0)
	require.Len(t, got, 1)
	assert.Equal(t, social.Frequency("y"), got[0].Faction)
	assert.Equal(t, PhaseGrace, got[0].To)
	assert.Equal(t, t0.Add(900*time.Second), got[0].Expiry)

	// A second pass does not restart the timer.
	again := tr.Recompute(roster, social.NewFrequencySet("x", "z"), t0.Add(time.Minute))
	assert.Empty(t, again)
	expiry, ok := tr.Grace("y")
	require.True(t, ok)
	assert.Equal(t, t0.Add(900*time.Second), expiry)
}

func TestRecaptureLeavesGrace(t *testing.T) {
	tr := NewTracker(0)
	tr.Recompute(roster, social.NewFrequencySet("x", "z"), t0)

	got := tr.Recompute(roster, social.NewFrequencySet("x", "y", "z"), t0.Add(time.Minute))
	require.Len(t, got, 1)
	assert.Equal(t, Transition{Faction: "y", From: PhaseGrace, To: PhaseActive}, got[0])
	assert.Equal(t, PhaseActive, tr.State("y").Phase)

	// Still eligible for a later elimination cycle.
	got = tr.Recompute(roster, social.NewFrequencySet("x", "z"), t0.Add(2*time.Minute))
	require.Len(t, got, 1)
	assert.Equal(t, t0.Add(2*time.Minute+900*time.Second), got[0].Expiry)
}

func TestSweepLocksOnExpiry(t *testing.T) {
	tr := NewTracker(10 * time.Second)
	tr.Recompute(roster, social.NewFrequencySet("x"), t0)

	assert.Empty(t, tr.Sweep(t0.Add(9*time.Second)))
	locked := tr.Sweep(t0.Add(10 * time.Second))
	assert.Equal(t, []social.Frequency{"y", "z"}, locked)

	assert.True(t, tr.Locked("y"))
	assert.Equal(t, PhaseLocked, tr.State("z").Phase)
	_, inGrace := tr.Grace("y")
	assert.False(t, inGrace)
	assert.Equal(t, []social.Frequency{"y", "z"}, tr.LockedFactions())
}

func TestLockedFactionNeverReentersGrace(t *testing.T) {
	tr := NewTracker(10 * time.Second)
	tr.Recompute(roster, social.NewFrequencySet("x", "z"), t0)
	tr.Sweep(t0.Add(time.Hour))
	require.True(t, tr.Locked("y"))

	// Even if y somehow shows up alive and vanishes again it stays locked.
	assert.Empty(t, tr.Recompute(roster, social.NewFrequencySet("x", "y", "z"), t0.Add(2*time.Hour)))
	assert.Empty(t, tr.Recompute(roster, social.NewFrequencySet("x", "z"), t0.Add(3*time.Hour)))
	assert.Equal(t, PhaseLocked, tr.State("y").Phase)
}

func TestReset(t *testing.T) {
	tr := NewTracker(10 * time.Second)
	tr.Recompute(roster, social.NewFrequencySet(), t0)
	tr.Sweep(t0.Add(time.Hour))

	tr.Reset()
	assert.Empty(t, tr.LockedFactions())
	assert.Equal(t, PhaseActive, tr.State("x").Phase)
	assert.Equal(t, 10*time.Second, tr.GracePeriod())
}

func TestStateJSON(t *testing.T) {
	b, err := json.Marshal(State{Phase: PhaseGrace, Expiry: t0})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"phase":"grace"`)

	var s State
	require.NoError(t, json.Unmarshal(b, &s))
	assert.Equal(t, PhaseGrace, s.Phase)
	assert.True(t, s.Expiry.Equal(t0))

	assert.Error(t, json.Unmarshal([]byte(`{"phase":"exiled"}`), &s))
}
