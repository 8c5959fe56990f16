// Demo layout: scatters radio stations over a hex disc using layered simplex
// noise and hands each faction a home station near its seat.
package world

import (
	"math"
	"math/rand"
	"sort"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/radiowar/internal/social"
)

// GenConfig holds layout generation parameters.
type GenConfig struct {
	Radius     int   // Hex disc radius
	Seed       int64 // Random seed (0 = random)
	Stations   int   // Number of stations to place
	MinSpacing int   // Minimum hex distance between two stations
}

// DefaultGenConfig returns a layout sized for a handful of factions.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Radius:     12,
		Seed:       0,
		Stations:   12,
		MinSpacing: 3,
	}
}

// Site is one generated station position.
type Site struct {
	ID    string           `json:"id"`
	Name  string           `json:"name"`
	Coord HexCoord         `json:"coord"`
	Score float64          `json:"score"` // Strategic value sampled from noise
	Owner social.Frequency `json:"owner"` // Empty = unclaimed
}

// GenerateLayout places cfg.Stations sites on the disc. Sites are picked by
// descending noise score with cfg.MinSpacing enforced. Factions are seated
// evenly around the rim; each one receives the unclaimed site closest to its
// seat. Every other site starts unclaimed.
func GenerateLayout(cfg GenConfig, factions []social.Frequency) []Site {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}
	if cfg.Radius <= 0 {
		cfg.Radius = DefaultGenConfig().Radius
	}

	valueNoise := opensimplex.NewNormalized(seed)
	ridgeNoise := opensimplex.NewNormalized(seed + 1)

	type scored struct {
		coord HexCoord
		score float64
	}
	var candidates []scored

	for q := -cfg.Radius; q <= cfg.Radius; q++ {
		for r := -cfg.Radius; r <= cfg.Radius; r++ {
			coord := HexCoord{Q: q, R: r}
			if !InRadius(coord, cfg.Radius) {
				continue
			}

			// Hex axial → cartesian: x = q + r*0.5, y = r * sqrt(3)/2
			x := float64(q) + float64(r)*0.5
			y := float64(r) * math.Sqrt(3.0) / 2.0

			value := octaveNoise(valueNoise, x, y, 3, 0.09, 0.5)
			ridge := octaveNoise(ridgeNoise, x, y, 2, 0.05, 0.5)
			candidates = append(candidates, scored{coord, value*0.7 + ridge*0.3})
		}
	}

	// Sort by score descending; coordinate order breaks ties so a fixed seed
	// always yields the same layout.
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		if candidates[i].coord.Q != candidates[j].coord.Q {
			return candidates[i].coord.Q < candidates[j].coord.Q
		}
		return candidates[i].coord.R < candidates[j].coord.R
	})

	var sites []Site
	for _, c := range candidates {
		if len(sites) >= cfg.Stations {
			break
		}
		if tooClose(c.coord, sites, cfg.MinSpacing) {
			continue
		}
		sites = append(sites, Site{Coord: c.coord, Score: c.score})
	}

	rng := rand.New(rand.NewSource(seed + 200))
	names := generateNames(rng, len(sites))
	for i := range sites {
		sites[i].ID = stationID(i)
		sites[i].Name = names[i]
	}

	seatFactions(sites, factions, cfg.Radius)
	return sites
}

// seatFactions gives every faction the free site nearest to its rim seat.
func seatFactions(sites []Site, factions []social.Frequency, radius int) {
	n := len(factions)
	for i, f := range factions {
		angle := 2 * math.Pi * float64(i) / float64(n)
		seat := axialFromCartesian(math.Cos(angle)*float64(radius)*0.7, math.Sin(angle)*float64(radius)*0.7)

		best := -1
		for j := range sites {
			if sites[j].Owner != "" {
				continue
			}
			if best < 0 || Distance(seat, sites[j].Coord) < Distance(seat, sites[best].Coord) {
				best = j
			}
		}
		if best < 0 {
			return // More factions than stations.
		}
		sites[best].Owner = f
	}
}

// axialFromCartesian rounds a cartesian point to the nearest hex.
func axialFromCartesian(x, y float64) HexCoord {
	r := y * 2.0 / math.Sqrt(3.0)
	q := x - r*0.5
	return HexCoord{Q: int(math.Round(q)), R: int(math.Round(r))}
}

// octaveNoise sums several noise octaves into a value in [0, 1].
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}

func tooClose(coord HexCoord, existing []Site, minDist int) bool {
	for _, s := range existing {
		if Distance(coord, s.Coord) < minDist {
			return true
		}
	}
	return false
}

func stationID(i int) string {
	return "station-" + string(rune('a'+i/26)) + string(rune('a'+i%26))
}

// generateNames produces procedural station names by combining syllables.
func generateNames(rng *rand.Rand, count int) []string {
	prefixes := []string{
		"Iron", "Red", "Ash", "Stone", "Cross", "Black", "Silver", "White",
		"Dark", "High", "Low", "Old", "New", "Far", "Deep", "Long",
		"Broad", "Frost", "Storm", "Copper", "Rust", "Lead", "Hollow",
	}
	suffixes := []string{
		"gate", "line", "square", "yard", "bridge", "hall", "tunnel",
		"depot", "market", "park", "field", "prospect", "watch", "junction",
		"platform", "vault", "shaft", "reach", "crossing", "works",
	}

	used := make(map[string]bool)
	names := make([]string, 0, count)

	for len(names) < count {
		name := prefixes[rng.Intn(len(prefixes))] + suffixes[rng.Intn(len(suffixes))]
		if !used[name] {
			used[name] = true
			names = append(names, name)
			continue
		}
		if len(used) >= len(prefixes)*len(suffixes) {
			// Pool exhausted; number the overflow.
			names = append(names, name+" "+string(rune('A'+len(names)%26)))
		}
	}

	return names
}
