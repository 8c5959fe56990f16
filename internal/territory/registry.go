// Package territory holds the per-station ownership record: which faction
// currently broadcasts from each radio station.
package territory

import (
	"sort"

	"github.com/talgya/radiowar/internal/social"
	"github.com/talgya/radiowar/internal/world"
)

// NeutralFrequency is the owner of an unclaimed station.
const NeutralFrequency social.Frequency = "neutral_frequency"

// Station is a capturable radio station.
type Station struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Position world.HexCoord   `json:"position"`
	Owner    social.Frequency `json:"owner"`
}

// Neutral reports whether nobody holds the station.
func (s *Station) Neutral() bool {
	return s.Owner == NeutralFrequency || s.Owner == ""
}

// Registry stores every station of the current session.
type Registry struct {
	stations map[string]*Station
	order    []string // Insertion order for stable listings
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{stations: make(map[string]*Station)}
}

// Add registers a station. An empty owner is stored as NeutralFrequency.
// Re-adding an id replaces its record.
func (r *Registry) Add(st Station) {
	if st.Owner == "" {
		st.Owner = NeutralFrequency
	}
	if _, exists := r.stations[st.ID]; !exists {
		r.order = append(r.order, st.ID)
	}
	r.stations[st.ID] = &st
}

// Get returns a copy of the station record.
func (r *Registry) Get(id string) (Station, bool) {
	st, ok := r.stations[id]
	if !ok {
		return Station{}, false
	}
	return *st, true
}

// OwnerOf returns the current owner of the station.
func (r *Registry) OwnerOf(id string) (social.Frequency, bool) {
	st, ok := r.stations[id]
	if !ok {
		return "", false
	}
	return st.Owner, true
}

// SetOwner changes the owner and returns the previous one.
// ok is false when the station does not exist.
func (r *Registry) SetOwner(id string, owner social.Frequency) (prev social.Frequency, ok bool) {
	st, ok := r.stations[id]
	if !ok {
		return "", false
	}
	if owner == "" {
		owner = NeutralFrequency
	}
	prev = st.Owner
	st.Owner = owner
	return prev, true
}

// Len returns the number of stations.
func (r *Registry) Len() int {
	return len(r.stations)
}

// Stations returns copies of all stations in registration order.
func (r *Registry) Stations() []Station {
	out := make([]Station, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.stations[id])
	}
	return out
}

// AllAliveFactionFrequencies scans every station and returns the distinct
// set of factions holding at least one. Recomputed from scratch on every call.
func (r *Registry) AllAliveFactionFrequencies() social.FrequencySet {
	alive := make(social.FrequencySet)
	for _, st := range r.stations {
		if st.Neutral() {
			continue
		}
		alive.Add(st.Owner)
	}
	return alive
}

// Reset drops every station.
func (r *Registry) Reset() {
	r.stations = make(map[string]*Station)
	r.order = nil
}

// Summary is the end-of-round territory tally.
type Summary struct {
	Total    int                      `json:"total"`
	Captured int                      `json:"captured"`
	Counts   map[social.Frequency]int `json:"counts"`
	Leader   social.Frequency         `json:"leader,omitempty"` // Most stations; empty if none captured
}

// Summarize counts stations per faction. Ties for the lead go to the
// lexically smaller frequency so the result does not depend on map order.
func (r *Registry) Summarize() Summary {
	sum := Summary{Counts: make(map[social.Frequency]int)}
	for _, st := range r.stations {
		sum.Total++
		if st.Neutral() {
			continue
		}
		sum.Captured++
		sum.Counts[st.Owner]++
	}

	leaders := make([]social.Frequency, 0, len(sum.Counts))
	for f := range sum.Counts {
		leaders = append(leaders, f)
	}
	sort.Slice(leaders, func(i, j int) bool {
		ci, cj := sum.Counts[leaders[i]], sum.Counts[leaders[j]]
		if ci != cj {
			return ci > cj
		}
		return leaders[i] < leaders[j]
	})
	if len(leaders) > 0 {
		sum.Leader = leaders[0]
	}
	return sum
}
