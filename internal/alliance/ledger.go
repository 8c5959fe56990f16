// Package alliance keeps the session-wide table of allied factions.
//
// The ledger stores edges one direction at a time. Symmetry is the caller's
// job: every AddAlliance/RemoveAlliance is issued as a matched pair by the
// diplomacy protocol, never fixed up here.
package alliance

import (
	"sort"

	"github.com/talgya/radiowar/internal/social"
)

// Ledger maps a faction to the set of factions it is allied with.
// Entries with no allies are pruned after every removal.
type Ledger struct {
	allies map[social.Frequency]social.FrequencySet
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{allies: make(map[social.Frequency]social.FrequencySet)}
}

// AddAlliance inserts b into a's allied set. Idempotent. Self-edges are ignored.
func (l *Ledger) AddAlliance(a, b social.Frequency) {
	if a == b || a == "" || b == "" {
		return
	}
	set, ok := l.allies[a]
	if !ok {
		set = make(social.FrequencySet)
		l.allies[a] = set
	}
	set.Add(b)
}

// RemoveAlliance removes b from a's allied set (one direction only).
// Removing a missing edge is a no-op.
func (l *Ledger) RemoveAlliance(a, b social.Frequency) {
	if set, ok := l.allies[a]; ok {
		set.Remove(b)
	}
	l.PruneEmpty()
}

// RemoveFaction deletes f's own entry and strips f from every other entry.
func (l *Ledger) RemoveFaction(f social.Frequency) {
	delete(l.allies, f)
	for _, set := range l.allies {
		set.Remove(f)
	}
	l.PruneEmpty()
}

// PruneEmpty deletes every entry whose allied set is empty.
func (l *Ledger) PruneEmpty() {
	for f, set := range l.allies {
		if set.Len() == 0 {
			delete(l.allies, f)
		}
	}
}

// Allied reports whether b is in a's allied set.
func (l *Ledger) Allied(a, b social.Frequency) bool {
	set, ok := l.allies[a]
	return ok && set.Has(b)
}

// Allies returns a copy of f's allied set. A faction without an entry has no allies.
func (l *Ledger) Allies(f social.Frequency) social.FrequencySet {
	set, ok := l.allies[f]
	if !ok {
		return make(social.FrequencySet)
	}
	return set.Clone()
}

// Closure returns f together with all its allies.
func (l *Ledger) Closure(f social.Frequency) social.FrequencySet {
	c := l.Allies(f)
	c.Add(f)
	return c
}

// Len returns the number of ledger entries.
func (l *Ledger) Len() int {
	return len(l.allies)
}

// Entries returns a sorted snapshot of the ledger for listings and JSON.
func (l *Ledger) Entries() map[social.Frequency][]social.Frequency {
	out := make(map[social.Frequency][]social.Frequency, len(l.allies))
	for f, set := range l.allies {
		out[f] = set.Sorted()
	}
	return out
}

// Symmetric reports whether every edge has its mirror.
func (l *Ledger) Symmetric() bool {
	for a, set := range l.allies {
		for b := range set {
			if !l.Allied(b, a) {
				return false
			}
		}
	}
	return true
}

// Reset clears every entry.
func (l *Ledger) Reset() {
	l.allies = make(map[social.Frequency]social.FrequencySet)
}

// BlocCovers reports whether the surviving factions form exactly one mutual
// bloc. The closures of all ledger entries are deduplicated; the check holds
// only when a single distinct closure exists and it contains every alive
// faction. A second, disjoint bloc anywhere in the ledger fails the check
// even if it is irrelevant to the alive set.
func (l *Ledger) BlocCovers(alive social.FrequencySet) bool {
	closures := l.distinctClosures()
	if len(closures) != 1 {
		return false
	}
	return closures[0].Contains(alive)
}

// AnyBlocCovers is the lenient variant: some entry's closure contains every
// alive faction, regardless of other blocs.
func (l *Ledger) AnyBlocCovers(alive social.FrequencySet) bool {
	for f := range l.allies {
		if l.Closure(f).Contains(alive) {
			return true
		}
	}
	return false
}

// distinctClosures returns each different closure once, in a stable order.
func (l *Ledger) distinctClosures() []social.FrequencySet {
	keys := make([]social.Frequency, 0, len(l.allies))
	for f := range l.allies {
		keys = append(keys, f)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	var out []social.FrequencySet
	for _, f := range keys {
		c := l.Closure(f)
		dup := false
		for _, seen := range out {
			if seen.Equal(c) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, c)
		}
	}
	return out
}
