package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/radiowar/internal/social"
)

func TestDistance(t *testing.T) {
	assert.Equal(t, 0, Distance(HexCoord{}, HexCoord{}))
	assert.Equal(t, 1, Distance(HexCoord{}, HexCoord{Q: 1, R: -1}))
	assert.Equal(t, 3, Distance(HexCoord{Q: -1, R: 2}, HexCoord{Q: 2, R: -1}))

	for _, n := range (HexCoord{Q: 4, R: -2}).Neighbors() {
		assert.Equal(t, 1, Distance(HexCoord{Q: 4, R: -2}, n))
	}
}

func TestGenerateLayoutIsDeterministic(t *testing.T) {
	cfg := GenConfig{Radius: 8, Seed: 42, Stations: 9, MinSpacing: 3}
	factions := []social.Frequency{"hansa_frequency", "redline_frequency", "hydra_frequency"}

	a := GenerateLayout(cfg, factions)
	b := GenerateLayout(cfg, factions)
	assert.Equal(t, a, b)
}

func TestGenerateLayoutSpacingAndSeats(t *testing.T) {
	cfg := GenConfig{Radius: 10, Seed: 7, Stations: 10, MinSpacing: 3}
	factions := []social.Frequency{"hansa_frequency", "redline_frequency", "hydra_frequency", "vdnh_frequency"}

	sites := GenerateLayout(cfg, factions)
	require.NotEmpty(t, sites)
	require.LessOrEqual(t, len(sites), cfg.Stations)

	ids := make(map[string]bool)
	owners := make(map[social.Frequency]int)
	for i, s := range sites {
		assert.True(t, InRadius(s.Coord, cfg.Radius), "site %s outside disc", s.ID)
		assert.False(t, ids[s.ID], "duplicate id %s", s.ID)
		ids[s.ID] = true
		if s.Owner != "" {
			owners[s.Owner]++
		}
		for j := i + 1; j < len(sites); j++ {
			assert.GreaterOrEqual(t, Distance(s.Coord, sites[j].Coord), cfg.MinSpacing)
		}
	}

	if len(sites) >= len(factions) {
		for _, f := range factions {
			assert.Equal(t, 1, owners[f], "faction %s should hold exactly one home station", f)
		}
	}
}
