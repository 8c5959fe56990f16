// Package world provides hex-grid positions for radio stations and the
// procedural demo layout used when no map file is configured.
// Uses axial coordinates (q, r) for the hex grid.
package world

// HexCoord represents a position on the hex grid using axial coordinates.
// The third cube coordinate s is derived: s = -q - r.
type HexCoord struct {
	Q int `json:"q" yaml:"q"`
	R int `json:"r" yaml:"r"`
}

// S returns the implicit third cube coordinate.
func (h HexCoord) S() int {
	return -h.Q - h.R
}

// HexNeighborDirections defines the six neighbor offsets in axial coordinates.
var HexNeighborDirections = [6]HexCoord{
	{Q: 1, R: 0},
	{Q: 1, R: -1},
	{Q: 0, R: -1},
	{Q: -1, R: 0},
	{Q: -1, R: 1},
	{Q: 0, R: 1},
}

// Neighbors returns the six adjacent hex coordinates.
func (h HexCoord) Neighbors() [6]HexCoord {
	var result [6]HexCoord
	for i, dir := range HexNeighborDirections {
		result[i] = HexCoord{Q: h.Q + dir.Q, R: h.R + dir.R}
	}
	return result
}

// Distance returns the hex distance between two coordinates.
func Distance(a, b HexCoord) int {
	return maxAbs(a.Q-b.Q, a.R-b.R, a.S()-b.S())
}

// InRadius reports whether coord lies within radius hexes of the origin.
func InRadius(coord HexCoord, radius int) bool {
	return maxAbs(coord.Q, coord.R, coord.S()) <= radius
}

// maxAbs returns the largest absolute value of the three cube deltas.
func maxAbs(q, r, s int) int {
	m := abs(q)
	if v := abs(r); v > m {
		m = v
	}
	if v := abs(s); v > m {
		m = v
	}
	return m
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
