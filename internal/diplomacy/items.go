package diplomacy

import (
	"fmt"
	"sort"

	"github.com/talgya/radiowar/internal/social"
)

// Item is a physical artifact the protocol hands out or consumes: a peace
// treaty carrying a frequency, or the burned copy left behind when a treaty
// is torn up.
type Item struct {
	ID        string           `json:"id"`
	Prototype string           `json:"prototype"`
	Frequency social.Frequency `json:"frequency,omitempty"` // Empty on a malformed treaty
	At        string           `json:"at,omitempty"`        // Document the item was spawned at
}

// Items is the item world the protocol acts on.
type Items interface {
	Spawn(prototype string, frequency social.Frequency, at string) Item
	Get(id string) (Item, bool)
	Destroy(id string)
	// Ignite sets the item on fire. It returns false when the prototype is
	// not combustible; the item is left untouched in that case.
	Ignite(id string) bool
}

// Stash is an in-memory Items implementation.
type Stash struct {
	flammable map[string]bool // prototype → combustible
	items     map[string]Item
	nextID    uint64
	burned    []Item // Items consumed by fire, oldest first
}

// NewStash creates a stash. flammable lists the combustible prototypes.
func NewStash(flammable map[string]bool) *Stash {
	f := make(map[string]bool, len(flammable))
	for k, v := range flammable {
		f[k] = v
	}
	return &Stash{flammable: f, items: make(map[string]Item)}
}

// Spawn creates a new item.
func (s *Stash) Spawn(prototype string, frequency social.Frequency, at string) Item {
	s.nextID++
	it := Item{
		ID:        fmt.Sprintf("item-%d", s.nextID),
		Prototype: prototype,
		Frequency: frequency,
		At:        at,
	}
	s.items[it.ID] = it
	return it
}

// Put stores an externally minted item, replacing any item with the same id.
func (s *Stash) Put(it Item) {
	s.items[it.ID] = it
}

// Get returns the item with the given id.
func (s *Stash) Get(id string) (Item, bool) {
	it, ok := s.items[id]
	return it, ok
}

// Destroy deletes the item. Unknown ids are ignored.
func (s *Stash) Destroy(id string) {
	delete(s.items, id)
}

// Ignite burns a combustible item away.
func (s *Stash) Ignite(id string) bool {
	it, ok := s.items[id]
	if !ok || !s.flammable[it.Prototype] {
		return false
	}
	delete(s.items, id)
	s.burned = append(s.burned, it)
	return true
}

// Burned returns the items consumed by fire.
func (s *Stash) Burned() []Item {
	return append([]Item(nil), s.burned...)
}

// Items returns every live item sorted by id.
func (s *Stash) Items() []Item {
	out := make([]Item, 0, len(s.items))
	for _, it := range s.items {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Reset drops every item and restarts id allocation.
func (s *Stash) Reset() {
	s.items = make(map[string]Item)
	s.burned = nil
	s.nextID = 0
}
