// Package diplomacy forms and dissolves alliances through treaty items
// handed to faction documents.
//
// The alliance ledger is the only copy of who is allied with whom. A
// document's "local" ally list is a read-only view derived from the ledger
// by the document's frequency, so every document of a faction always agrees.
package diplomacy

import (
	"log/slog"

	"github.com/talgya/radiowar/internal/alliance"
	"github.com/talgya/radiowar/internal/social"
)

// Result classifies what an interaction did.
type Result uint8

const (
	ResultUnknownDocument Result = iota // Target document does not exist
	ResultUnknownItem                   // Treaty item does not exist
	ResultMalformed                     // Item without a frequency, or an unknown frequency
	ResultSelfTreaty                    // Treaty of the document's own faction
	ResultHostile                       // Document refuses the treaty's faction
	ResultFormed                        // Alliance recorded
	ResultTerminated                    // Alliance dissolved
	ResultNoAlliance                    // Nothing to dissolve
	ResultIssued                        // Treaty handed out
)

var resultNames = [...]string{
	"unknown_document", "unknown_item", "malformed", "self_treaty",
	"hostile", "formed", "terminated", "no_alliance", "issued",
}

func (r Result) String() string {
	if int(r) < len(resultNames) {
		return resultNames[r]
	}
	return "unknown"
}

// Outcome reports one interaction. Handled mirrors the interaction-handled
// flag: once true, nothing else should react to the same interaction.
type Outcome struct {
	Handled bool             `json:"handled"`
	Result  Result           `json:"-"`
	Kind    string           `json:"result"`
	Self    social.Frequency `json:"self,omitempty"`
	Other   social.Frequency `json:"other,omitempty"`
	Item    *Item            `json:"item,omitempty"`
}

func outcome(handled bool, r Result, self, other social.Frequency) Outcome {
	return Outcome{Handled: handled, Result: r, Kind: r.String(), Self: self, Other: other}
}

// Protocol applies treaties to documents and keeps the ledger consistent.
type Protocol struct {
	ledger *alliance.Ledger
	items  Items

	// Known reports whether a frequency may take part in diplomacy.
	// Nil accepts every non-empty frequency.
	Known func(social.Frequency) bool

	docs  map[string]*Document
	order []string
	names map[social.Frequency]string // Shared localization table, filled by the first document carrying one
}

// NewProtocol creates a protocol writing to ledger and acting on items.
func NewProtocol(ledger *alliance.Ledger, items Items) *Protocol {
	return &Protocol{
		ledger: ledger,
		items:  items,
		docs:   make(map[string]*Document),
		names:  make(map[social.Frequency]string),
	}
}

// AddDocument registers a document. The first document with a non-empty
// localization table seeds the shared table for the session. Round-start
// allies are written to the ledger as matched pairs.
func (p *Protocol) AddDocument(d Document) {
	d = d.clone()
	if _, exists := p.docs[d.ID]; !exists {
		p.order = append(p.order, d.ID)
	}
	p.docs[d.ID] = &d

	if len(p.names) == 0 && len(d.Names) != 0 {
		for f, key := range d.Names {
			p.names[f] = key
		}
	}

	if d.Frequency == "" {
		return
	}
	for _, a := range d.Allies {
		if a == d.Frequency || d.HostileTo(a) {
			continue
		}
		p.ledger.AddAlliance(d.Frequency, a)
		p.ledger.AddAlliance(a, d.Frequency)
	}
}

// Document returns a copy of the document with the given id.
func (p *Protocol) Document(id string) (Document, bool) {
	d, ok := p.docs[id]
	if !ok {
		return Document{}, false
	}
	return d.clone(), true
}

// Documents returns copies of all live documents in registration order.
func (p *Protocol) Documents() []Document {
	out := make([]Document, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, p.docs[id].clone())
	}
	return out
}

// LocalAllies is the document's ally list, derived from the ledger.
func (p *Protocol) LocalAllies(documentID string) (social.FrequencySet, bool) {
	d, ok := p.docs[documentID]
	if !ok {
		return nil, false
	}
	return p.ledger.Allies(d.Frequency), true
}

// Name returns the localization key for f from the shared table.
func (p *Protocol) Name(f social.Frequency) (string, bool) {
	key, ok := p.names[f]
	return key, ok
}

// IssueTreaty hands out a fresh treaty of the document's faction.
func (p *Protocol) IssueTreaty(documentID string) Outcome {
	d, ok := p.docs[documentID]
	if !ok {
		return outcome(false, ResultUnknownDocument, "", "")
	}
	if d.TreatyPrototype == "" || d.Frequency == "" {
		return outcome(true, ResultMalformed, d.Frequency, "")
	}

	it := p.items.Spawn(d.TreatyPrototype, d.Frequency, d.ID)
	out := outcome(true, ResultIssued, d.Frequency, "")
	out.Item = &it
	slog.Debug("treaty issued", "document", d.ID, "frequency", d.Frequency, "item", it.ID)
	return out
}

// FormAlliance applies the treaty item to the target document.
func (p *Protocol) FormAlliance(treatyID, documentID string) Outcome {
	d, ok := p.docs[documentID]
	if !ok {
		return outcome(false, ResultUnknownDocument, "", "")
	}
	it, ok := p.items.Get(treatyID)
	if !ok {
		return outcome(false, ResultUnknownItem, d.Frequency, "")
	}

	self, other := d.Frequency, it.Frequency
	if self == "" {
		return outcome(true, ResultMalformed, self, other)
	}
	if other == "" || !p.known(other) {
		p.items.Destroy(it.ID)
		slog.Info("treaty discarded", "document", d.ID, "reason", "malformed", "frequency", other)
		return outcome(true, ResultMalformed, self, other)
	}

	if self == other {
		p.items.Destroy(it.ID)
		return outcome(true, ResultSelfTreaty, self, other)
	}

	if d.HostileTo(other) {
		if !p.items.Ignite(it.ID) {
			p.items.Destroy(it.ID)
		}
		slog.Info("treaty burned by hostile faction", "document", d.ID, "self", self, "other", other)
		return outcome(true, ResultHostile, self, other)
	}

	p.ledger.AddAlliance(self, other)
	p.ledger.AddAlliance(other, self)
	p.items.Destroy(it.ID)

	slog.Info("alliance formed", "self", self, "other", other, "document", d.ID)
	return outcome(true, ResultFormed, self, other)
}

// TerminateAlliance dissolves the alliance between initiator and target and
// leaves a burning copy of the treaty at each of the initiator's documents.
// Dissolving an alliance that does not exist changes nothing.
func (p *Protocol) TerminateAlliance(initiator, target social.Frequency) Outcome {
	if initiator == "" || target == "" {
		return outcome(true, ResultMalformed, initiator, target)
	}
	if !p.ledger.Allied(initiator, target) && !p.ledger.Allied(target, initiator) {
		return outcome(true, ResultNoAlliance, initiator, target)
	}

	p.ledger.RemoveAlliance(initiator, target)
	p.ledger.RemoveAlliance(target, initiator)

	for _, id := range p.order {
		d := p.docs[id]
		if d.Frequency != initiator || d.TreatyPrototype == "" {
			continue
		}
		burned := p.items.Spawn(d.TreatyPrototype, initiator, d.ID)
		if !p.items.Ignite(burned.ID) {
			p.items.Destroy(burned.ID)
		}
	}

	slog.Info("alliance terminated", "initiator", initiator, "target", target)
	return outcome(true, ResultTerminated, initiator, target)
}

// RetireFaction removes an eliminated faction from diplomacy: its documents
// are deleted and every alliance referencing it is purged. It returns the
// ids of the deleted documents.
func (p *Protocol) RetireFaction(f social.Frequency) []string {
	var removed []string
	kept := p.order[:0]
	for _, id := range p.order {
		if p.docs[id].Frequency == f {
			delete(p.docs, id)
			removed = append(removed, id)
			continue
		}
		kept = append(kept, id)
	}
	p.order = kept

	p.ledger.RemoveFaction(f)
	return removed
}

// Reset drops all documents and the shared localization table. The ledger
// and items are owned by the caller and reset separately.
func (p *Protocol) Reset() {
	p.docs = make(map[string]*Document)
	p.order = nil
	p.names = make(map[social.Frequency]string)
}

func (p *Protocol) known(f social.Frequency) bool {
	if p.Known == nil {
		return true
	}
	return p.Known(f)
}
