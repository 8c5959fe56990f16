package diplomacy

import (
	"slices"

	"github.com/talgya/radiowar/internal/social"
)

// Document is one faction's diplomatic office. Several documents may share a
// frequency when a map places more than one per faction.
type Document struct {
	ID              string                      `json:"id"`
	Frequency       social.Frequency            `json:"frequency"`
	Hostile         []social.Frequency          `json:"hostile,omitempty"`          // Factions this one can never ally with
	TreatyPrototype string                      `json:"treaty_prototype,omitempty"` // Paper spawned for treaties and burned copies
	Allies          []social.Frequency          `json:"allies,omitempty"`           // Round-start alliances
	Names           map[social.Frequency]string `json:"-"`                          // Localization keys carried by the document
}

// HostileTo reports whether f is on the document's hostility list.
func (d *Document) HostileTo(f social.Frequency) bool {
	return slices.Contains(d.Hostile, f)
}

func (d Document) clone() Document {
	d.Hostile = slices.Clone(d.Hostile)
	d.Allies = slices.Clone(d.Allies)
	if d.Names != nil {
		names := make(map[social.Frequency]string, len(d.Names))
		for k, v := range d.Names {
			names[k] = v
		}
		d.Names = names
	}
	return d
}
