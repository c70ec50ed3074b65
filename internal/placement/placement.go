// Package placement locates the nearest free cell for a spawn point using a
// deterministic outward square-spiral scan, so identical board state always
// yields the same cell.
package placement

import (
	"errors"
	"math"

	"github.com/driftline/tidecall/internal/geometry"
)

// Epsilon absorbs floating-point error introduced by grid snapping when
// comparing distances against a range limit.
const Epsilon = 0.001

// ErrNoPlacement is returned when the scan exhausts every candidate ring
// without finding a valid cell.
var ErrNoPlacement = errors.New("placement: no valid cell in range")

// Request describes one placement search.
type Request struct {
	// Desired is the point the user picked; the scan starts at its cell.
	Desired geometry.Point
	// Source is the acting entity's position; distance and sight are
	// measured from here.
	Source geometry.Point
	// MaxDistance is the range limit in world units.
	MaxDistance float64
	// RequireSight rejects candidates not visible from Source.
	RequireSight bool

	Grid geometry.Grid

	// Occupied reports whether a candidate cell center is already taken.
	Occupied func(geometry.Point) bool
	// Sighted reports whether two points are mutually visible. May be nil
	// when RequireSight is false.
	Sighted func(from, to geometry.Point) bool
}

// Find returns the nearest unoccupied, in-range (and, when required,
// sighted) cell center to the desired point.
//
// Candidates are enumerated by Chebyshev ring around the desired cell, each
// ring walked in a fixed right/up/left/down square spiral, so the result is
// fully determined by the inputs. The scan is bounded by
// ceil(MaxDistance/UnitsPerCell)+1 rings.
func Find(req Request) (geometry.Point, error) {
	center := req.Grid.SnapToCellCenter(req.Desired)
	if ok := req.valid(center); ok {
		return center, nil
	}

	maxRings := int(math.Ceil(req.MaxDistance/req.Grid.UnitsPerCell)) + 1
	side := 2*maxRings + 1

	// Square-spiral walk: right, up, left, down with run lengths
	// 1,1,2,2,3,3,... visits each ring completely before the next.
	x, y := 0, 0
	dirs := [4][2]int{{1, 0}, {0, -1}, {-1, 0}, {0, 1}}
	run := 1
	for steps, dir := 0, 0; steps < side*side-1; {
		for leg := 0; leg < 2; leg++ {
			for i := 0; i < run; i++ {
				x += dirs[dir][0]
				y += dirs[dir][1]
				steps++
				cand := geometry.Point{
					X: center.X + float64(x)*req.Grid.CellPx,
					Y: center.Y + float64(y)*req.Grid.CellPx,
				}
				if req.valid(cand) {
					return cand, nil
				}
				if steps >= side*side-1 {
					return geometry.Point{}, ErrNoPlacement
				}
			}
			dir = (dir + 1) % 4
		}
		run++
	}
	return geometry.Point{}, ErrNoPlacement
}

func (req Request) valid(p geometry.Point) bool {
	if req.Grid.Distance(req.Source, p) > req.MaxDistance+Epsilon {
		return false
	}
	if req.RequireSight && req.Sighted != nil && !req.Sighted(req.Source, p) {
		return false
	}
	if req.Occupied != nil && req.Occupied(p) {
		return false
	}
	return true
}
