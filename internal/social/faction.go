// Factions: the sides contesting the radio stations, keyed by frequency tag.
package social

import (
	"slices"
	"sort"
)

// Frequency is the tag a faction broadcasts on. It is the faction's identity
// everywhere in the session: station owners, treaties, alliance edges.
type Frequency string

// FrequencySet is an unordered set of frequencies.
type FrequencySet map[Frequency]struct{}

// NewFrequencySet builds a set from the given frequencies.
func NewFrequencySet(fs ...Frequency) FrequencySet {
	s := make(FrequencySet, len(fs))
	for _, f := range fs {
		s[f] = struct{}{}
	}
	return s
}

// Add inserts f. Adding an existing member is a no-op.
func (s FrequencySet) Add(f Frequency) {
	s[f] = struct{}{}
}

// Remove deletes f if present.
func (s FrequencySet) Remove(f Frequency) {
	delete(s, f)
}

// Has reports membership.
func (s FrequencySet) Has(f Frequency) bool {
	_, ok := s[f]
	return ok
}

// Len returns the number of members.
func (s FrequencySet) Len() int {
	return len(s)
}

// Contains reports whether every member of other is also in s.
func (s FrequencySet) Contains(other FrequencySet) bool {
	for f := range other {
		if !s.Has(f) {
			return false
		}
	}
	return true
}

// Equal reports whether both sets hold exactly the same members.
func (s FrequencySet) Equal(other FrequencySet) bool {
	return len(s) == len(other) && s.Contains(other)
}

// Clone returns an independent copy.
func (s FrequencySet) Clone() FrequencySet {
	out := make(FrequencySet, len(s))
	for f := range s {
		out[f] = struct{}{}
	}
	return out
}

// Sorted returns the members in lexical order (stable output for logs and JSON).
func (s FrequencySet) Sorted() []Frequency {
	out := make([]Frequency, 0, len(s))
	for f := range s {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Faction describes one side as configured at round start.
type Faction struct {
	Frequency Frequency `json:"frequency"`
	NameKey   string    `json:"name_key"` // Localization key for the display name
	Roles     []string  `json:"roles"`    // Role ids that belong to this faction at round start
}

// HasRole reports whether roleID belongs to the faction.
func (f *Faction) HasRole(roleID string) bool {
	return slices.Contains(f.Roles, roleID)
}

// Roster is the round-start faction table. Order is preserved from setup so
// role resolution is deterministic when a role appears under several factions.
type Roster struct {
	order    []Frequency
	factions map[Frequency]*Faction
}

// NewRoster creates a roster from the round-start faction list.
// Later duplicates of a frequency are ignored.
func NewRoster(factions []Faction) *Roster {
	r := &Roster{factions: make(map[Frequency]*Faction, len(factions))}
	for i := range factions {
		f := factions[i]
		if f.Frequency == "" {
			continue
		}
		if _, dup := r.factions[f.Frequency]; dup {
			continue
		}
		f.Roles = slices.Clone(f.Roles)
		r.order = append(r.order, f.Frequency)
		r.factions[f.Frequency] = &f
	}
	return r
}

// Empty reports whether no faction has been registered.
func (r *Roster) Empty() bool {
	return r == nil || len(r.order) == 0
}

// Get returns the faction for f.
func (r *Roster) Get(f Frequency) (*Faction, bool) {
	if r == nil {
		return nil, false
	}
	fa, ok := r.factions[f]
	return fa, ok
}

// Has reports whether f is a round-start faction.
func (r *Roster) Has(f Frequency) bool {
	_, ok := r.Get(f)
	return ok
}

// Frequencies returns round-start frequencies in setup order.
func (r *Roster) Frequencies() []Frequency {
	if r == nil {
		return nil
	}
	return slices.Clone(r.order)
}

// Roles returns the round-start role ids of f.
func (r *Roster) Roles(f Frequency) []string {
	fa, ok := r.Get(f)
	if !ok {
		return nil
	}
	return slices.Clone(fa.Roles)
}

// ResolveRoles finds the first faction (in setup order) that owns one of
// roleIDs and is not excluded. Used when a player reconfigures a station:
// the player's roles decide which frequency the station switches to.
func (r *Roster) ResolveRoles(roleIDs []string, excluded func(Frequency) bool) (Frequency, bool) {
	if r == nil {
		return "", false
	}
	for _, role := range roleIDs {
		for _, f := range r.order {
			fa := r.factions[f]
			if !fa.HasRole(role) {
				continue
			}
			if excluded != nil && excluded(f) {
				continue
			}
			return f, true
		}
	}
	return "", false
}
