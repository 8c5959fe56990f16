package social

import (
	"slices"
	"sort"
	"sync"
)

// Participant is one connected player session and the role ids its mind holds.
type Participant struct {
	SessionID string   `json:"session_id"`
	Name      string   `json:"name,omitempty"`
	Roles     []string `json:"roles"`
}

// Directory tracks connected participants. It is fed by the transport layer
// and read by the session when addressing faction-wide notices.
type Directory struct {
	mu   sync.RWMutex
	byID map[string]Participant
}

// NewDirectory creates an empty participant directory.
func NewDirectory() *Directory {
	return &Directory{byID: make(map[string]Participant)}
}

// Join registers or replaces a participant.
func (d *Directory) Join(p Participant) {
	if p.SessionID == "" {
		return
	}
	p.Roles = slices.Clone(p.Roles)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.byID[p.SessionID] = p
}

// Leave removes a participant. Unknown ids are ignored.
func (d *Directory) Leave(sessionID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.byID, sessionID)
}

// Get returns the participant with the given session id.
func (d *Directory) Get(sessionID string) (Participant, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.byID[sessionID]
	return p, ok
}

// Len returns the number of connected participants.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.byID)
}

// WithAnyRole returns the session ids (sorted, no duplicates) of every
// participant holding at least one of roleIDs.
func (d *Directory) WithAnyRole(roleIDs []string) []string {
	if len(roleIDs) == 0 {
		return nil
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []string
	for id, p := range d.byID {
		for _, role := range p.Roles {
			if slices.Contains(roleIDs, role) {
				out = append(out, id)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}
