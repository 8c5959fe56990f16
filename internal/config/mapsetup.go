package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/talgya/radiowar/internal/elimination"
	"github.com/talgya/radiowar/internal/social"
	"github.com/talgya/radiowar/internal/territory"
	"github.com/talgya/radiowar/internal/victory"
	"github.com/talgya/radiowar/internal/world"
)

//go:embed maps/metro.yaml
var demoMap []byte

// MapSetup describes one session: its factions, stations, diplomatic
// documents and rule settings.
type MapSetup struct {
	GracePeriodSeconds int             `yaml:"grace_period_seconds"`
	DecisiveSeconds    int             `yaml:"decisive_seconds"`
	CaptureRule        *bool           `yaml:"capture_rule"`
	BlocPolicy         string          `yaml:"bloc_policy"`
	Factions           []FactionSetup  `yaml:"factions"`
	Stations           []StationSetup  `yaml:"stations"`
	Documents          []DocumentSetup `yaml:"documents"`
	Items              map[string]bool `yaml:"items"` // Item prototype → flammable
	Generate           *GenerateSetup  `yaml:"generate"`
}

type FactionSetup struct {
	Frequency social.Frequency `yaml:"frequency"`
	Name      string           `yaml:"name"` // Localization key
	Roles     []string         `yaml:"roles"`
}

type StationSetup struct {
	ID        string           `yaml:"id"`
	Name      string           `yaml:"name"`
	Q         int              `yaml:"q"`
	R         int              `yaml:"r"`
	Frequency social.Frequency `yaml:"frequency"` // Empty = neutral
}

type DocumentSetup struct {
	ID              string             `yaml:"id"`
	Frequency       social.Frequency   `yaml:"frequency"`
	Hostile         []social.Frequency `yaml:"hostile"`
	TreatyPrototype string             `yaml:"treaty_prototype"`
	Allies          []social.Frequency `yaml:"allies"`
}

// GenerateSetup asks for a procedural station layout in addition to any
// stations listed explicitly.
type GenerateSetup struct {
	Seed     int64 `yaml:"seed"`
	Radius   int   `yaml:"radius"`
	Stations int   `yaml:"stations"`
}

// LoadMapSetup reads and validates a map file.
func LoadMapSetup(path string) (MapSetup, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return MapSetup{}, fmt.Errorf("read map %s: %w", path, err)
	}
	return ParseMapSetup(raw)
}

// ParseMapSetup decodes YAML, expands any generate section and validates.
func ParseMapSetup(raw []byte) (MapSetup, error) {
	var m MapSetup
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return MapSetup{}, fmt.Errorf("map yaml: %w", err)
	}
	m.expand()
	if err := m.Validate(); err != nil {
		return MapSetup{}, err
	}
	return m, nil
}

// DemoMapSetup returns the embedded Metro map.
func DemoMapSetup() MapSetup {
	m, err := ParseMapSetup(demoMap)
	if err != nil {
		panic(err)
	}
	return m
}

// GracePeriod returns the configured grace window, falling back to 900s.
func (m MapSetup) GracePeriod() time.Duration {
	if m.GracePeriodSeconds <= 0 {
		return elimination.DefaultGracePeriod
	}
	return time.Duration(m.GracePeriodSeconds) * time.Second
}

// Decisive returns the countdown length. It defaults to the grace period.
func (m MapSetup) Decisive() time.Duration {
	if m.DecisiveSeconds <= 0 {
		return m.GracePeriod()
	}
	return time.Duration(m.DecisiveSeconds) * time.Second
}

// CaptureEnabled reports whether the decisive countdown may start.
func (m MapSetup) CaptureEnabled() bool {
	return m.CaptureRule == nil || *m.CaptureRule
}

// Policy returns the parsed bloc policy.
func (m MapSetup) Policy() victory.Policy {
	p, _ := victory.ParsePolicy(m.BlocPolicy)
	return p
}

// Roster builds the round-start faction roster.
func (m MapSetup) Roster() *social.Roster {
	factions := make([]social.Faction, 0, len(m.Factions))
	for _, f := range m.Factions {
		factions = append(factions, social.Faction{Frequency: f.Frequency, NameKey: f.Name, Roles: f.Roles})
	}
	return social.NewRoster(factions)
}

// Names returns frequency → localization key for every faction.
func (m MapSetup) Names() map[social.Frequency]string {
	names := make(map[social.Frequency]string, len(m.Factions))
	for _, f := range m.Factions {
		if f.Name != "" {
			names[f.Frequency] = f.Name
		}
	}
	return names
}

// expand appends generated stations. Generated ids never collide with the
// listed ones because they carry the "station-" prefix and a letter suffix;
// a listed id that happens to match is caught by Validate.
func (m *MapSetup) expand() {
	if m.Generate == nil || m.Generate.Stations <= 0 {
		return
	}
	cfg := world.DefaultGenConfig()
	cfg.Seed = m.Generate.Seed
	cfg.Stations = m.Generate.Stations
	if m.Generate.Radius > 0 {
		cfg.Radius = m.Generate.Radius
	}

	freqs := make([]social.Frequency, 0, len(m.Factions))
	for _, f := range m.Factions {
		freqs = append(freqs, f.Frequency)
	}
	for _, site := range world.GenerateLayout(cfg, freqs) {
		m.Stations = append(m.Stations, StationSetup{
			ID:        site.ID,
			Name:      site.Name,
			Q:         site.Coord.Q,
			R:         site.Coord.R,
			Frequency: site.Owner,
		})
	}
	m.Generate = nil
}

// Validate rejects setups the session cannot run.
func (m MapSetup) Validate() error {
	var errs []error

	if m.GracePeriodSeconds < 0 || m.DecisiveSeconds < 0 {
		errs = append(errs, errors.New("durations must not be negative"))
	}
	if _, err := victory.ParsePolicy(m.BlocPolicy); err != nil {
		errs = append(errs, err)
	}
	if len(m.Factions) == 0 {
		errs = append(errs, errors.New("at least one faction is required"))
	}

	known := social.NewFrequencySet()
	for i, f := range m.Factions {
		switch {
		case f.Frequency == "":
			errs = append(errs, fmt.Errorf("factions[%d]: frequency is required", i))
		case f.Frequency == territory.NeutralFrequency:
			errs = append(errs, fmt.Errorf("factions[%d]: %s is reserved", i, f.Frequency))
		case known.Has(f.Frequency):
			errs = append(errs, fmt.Errorf("factions[%d]: duplicate frequency %s", i, f.Frequency))
		}
		known.Add(f.Frequency)
	}

	if len(m.Stations) == 0 {
		errs = append(errs, errors.New("at least one station is required"))
	}
	ids := map[string]bool{}
	for i, s := range m.Stations {
		if s.ID == "" {
			errs = append(errs, fmt.Errorf("stations[%d]: id is required", i))
		} else if ids[s.ID] {
			errs = append(errs, fmt.Errorf("stations[%d]: duplicate id %s", i, s.ID))
		}
		ids[s.ID] = true
		if s.Frequency != "" && s.Frequency != territory.NeutralFrequency && !known.Has(s.Frequency) {
			errs = append(errs, fmt.Errorf("stations[%d]: unknown frequency %s", i, s.Frequency))
		}
	}

	docs := map[string]bool{}
	for i, d := range m.Documents {
		if d.ID == "" {
			errs = append(errs, fmt.Errorf("documents[%d]: id is required", i))
		} else if docs[d.ID] {
			errs = append(errs, fmt.Errorf("documents[%d]: duplicate id %s", i, d.ID))
		}
		docs[d.ID] = true
		if d.Frequency == "" {
			errs = append(errs, fmt.Errorf("documents[%d]: frequency is required", i))
		} else if !known.Has(d.Frequency) {
			errs = append(errs, fmt.Errorf("documents[%d]: unknown frequency %s", i, d.Frequency))
		}
		for _, f := range append(append([]social.Frequency(nil), d.Hostile...), d.Allies...) {
			if !known.Has(f) {
				errs = append(errs, fmt.Errorf("documents[%d]: unknown frequency %s", i, f))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid map setup: %w", errors.Join(errs...))
	}
	return nil
}
