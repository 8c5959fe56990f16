package alliance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/radiowar/internal/social"
)

func ally(l *Ledger, a, b social.Frequency) {
	l.AddAlliance(a, b)
	l.AddAlliance(b, a)
}

func breakAlliance(l *Ledger, a, b social.Frequency) {
	l.RemoveAlliance(a, b)
	l.RemoveAlliance(b, a)
}

func noEmptyEntries(t *testing.T, l *Ledger) {
	t.Helper()
	for f, allies := range l.Entries() {
		assert.NotEmpty(t, allies, "entry %s has an empty allied set", f)
	}
}

func TestAddAllianceIsSymmetricWhenPaired(t *testing.T) {
	l := NewLedger()
	ally(l, "x", "z")

	assert.True(t, l.Allied("x", "z"))
	assert.True(t, l.Allied("z", "x"))
	assert.True(t, l.Symmetric())
}

func TestSingleDirectionIsDetectedAsAsymmetric(t *testing.T) {
	l := NewLedger()
	l.AddAlliance("x", "z")
	assert.False(t, l.Symmetric())
}

func TestAddAllianceIsIdempotent(t *testing.T) {
	once := NewLedger()
	ally(once, "x", "z")

	twice := NewLedger()
	ally(twice, "x", "z")
	ally(twice, "x", "z")

	assert.Equal(t, once.Entries(), twice.Entries())
}

func TestSelfAllianceIgnored(t *testing.T) {
	l := NewLedger()
	l.AddAlliance("x", "x")
	assert.Zero(t, l.Len())
}

func TestRemoveMissingEdgeIsNoop(t *testing.T) {
	l := NewLedger()
	ally(l, "x", "z")
	before := l.Entries()

	breakAlliance(l, "x", "y")
	breakAlliance(l, "q", "w")

	assert.Equal(t, before, l.Entries())
}

func TestRemovalPrunesEmptyEntries(t *testing.T) {
	l := NewLedger()
	ally(l, "x", "z")
	ally(l, "x", "y")

	breakAlliance(l, "x", "z")
	noEmptyEntries(t, l)
	assert.Equal(t, 2, l.Len(), "x and y remain, z pruned")
	assert.True(t, l.Symmetric())

	breakAlliance(l, "x", "y")
	assert.Zero(t, l.Len())
}

func TestRemoveFactionPurgesEveryReference(t *testing.T) {
	l := NewLedger()
	ally(l, "x", "y")
	ally(l, "y", "z")
	ally(l, "x", "z")

	l.RemoveFaction("y")

	_, ok := l.Entries()["y"]
	assert.False(t, ok)
	for f, allies := range l.Entries() {
		assert.NotContains(t, allies, social.Frequency("y"), "entry %s still lists y", f)
	}
	assert.True(t, l.Allied("x", "z"))
	noEmptyEntries(t, l)

	l.RemoveFaction("x")
	assert.Zero(t, l.Len(), "z lost its last ally and is pruned")
}

func TestAlliesReturnsCopy(t *testing.T) {
	l := NewLedger()
	ally(l, "x", "z")

	a := l.Allies("x")
	a.Add("intruder")
	assert.False(t, l.Allied("x", "intruder"))
	assert.Zero(t, l.Allies("nobody").Len())
}

func TestBlocCoversStrict(t *testing.T) {
	l := NewLedger()
	assert.False(t, l.BlocCovers(social.NewFrequencySet("x", "z")), "empty ledger covers nothing")

	ally(l, "x", "z")
	assert.True(t, l.BlocCovers(social.NewFrequencySet("x", "z")))
	assert.True(t, l.BlocCovers(social.NewFrequencySet("x")))
	assert.False(t, l.BlocCovers(social.NewFrequencySet("x", "y", "z")))

	// A second disjoint bloc fails the strict check even though x+z still
	// covers the alive set.
	ally(l, "a", "b")
	assert.False(t, l.BlocCovers(social.NewFrequencySet("x", "z")))
	assert.True(t, l.AnyBlocCovers(social.NewFrequencySet("x", "z")))
}

func TestBlocCoversRequiresMutualBloc(t *testing.T) {
	l := NewLedger()
	// Chain a-b, b-c: closures differ per entry, so no single mutual bloc.
	ally(l, "a", "b")
	ally(l, "b", "c")

	alive := social.NewFrequencySet("a", "b", "c")
	assert.False(t, l.BlocCovers(alive))
	assert.True(t, l.AnyBlocCovers(alive), "b's closure contains everyone")

	// Close the triangle: every closure becomes {a,b,c}.
	ally(l, "a", "c")
	assert.True(t, l.BlocCovers(alive))
}

func TestBlocs(t *testing.T) {
	l := NewLedger()
	ally(l, "a", "b")
	ally(l, "b", "c")
	ally(l, "x", "z")

	blocs := l.Blocs()
	require.Len(t, blocs, 2)
	assert.Equal(t, []social.Frequency{"a", "b", "c"}, blocs[0])
	assert.Equal(t, []social.Frequency{"x", "z"}, blocs[1])

	l.Reset()
	assert.Empty(t, l.Blocs())
}
