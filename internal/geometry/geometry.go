package geometry

import "math"

// Point is a position in board space, measured in pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an axis-aligned region in board space. X and Y are the top-left
// corner; entities larger than one cell occupy a rect spanning several cells.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Contains reports whether the point lies inside the rect. The top and left
// edges are inclusive, the bottom and right edges exclusive, so a point on
// the boundary between two cells belongs to exactly one of them.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X < r.X+r.Width && p.Y >= r.Y && p.Y < r.Y+r.Height
}

// Segment is a wall or other sight-blocking obstacle on the board.
type Segment struct {
	A Point `json:"a"`
	B Point `json:"b"`
}

// Grid describes the board's cell scale: how many pixels a cell spans and
// how many world distance units (e.g. feet) one cell represents.
type Grid struct {
	CellPx       float64
	UnitsPerCell float64
}

// Distance returns the world-unit distance between two points.
func (g Grid) Distance(a, b Point) float64 {
	dx := (b.X - a.X) / g.CellPx * g.UnitsPerCell
	dy := (b.Y - a.Y) / g.CellPx * g.UnitsPerCell
	return math.Hypot(dx, dy)
}

// SnapToCellCenter maps an arbitrary point to the center of its containing
// cell. Snapping an already-centered point returns it unchanged.
func (g Grid) SnapToCellCenter(p Point) Point {
	return Point{
		X: math.Floor(p.X/g.CellPx)*g.CellPx + g.CellPx/2,
		Y: math.Floor(p.Y/g.CellPx)*g.CellPx + g.CellPx/2,
	}
}

// CellTopLeft returns the top-left corner of the cell containing p.
func (g Grid) CellTopLeft(p Point) Point {
	return Point{
		X: math.Floor(p.X/g.CellPx) * g.CellPx,
		Y: math.Floor(p.Y/g.CellPx) * g.CellPx,
	}
}

// Occupied reports whether any of the given regions contains the point.
func Occupied(regions []Rect, p Point) bool {
	for _, r := range regions {
		if r.Contains(p) {
			return true
		}
	}
	return false
}

// LineOfSight reports whether the straight segment between from and to is
// free of blocking walls.
func LineOfSight(walls []Segment, from, to Point) bool {
	for _, w := range walls {
		if segmentsIntersect(from, to, w.A, w.B) {
			return false
		}
	}
	return true
}

// segmentsIntersect reports whether segment p1-p2 crosses segment p3-p4,
// using orientation tests. Collinear overlap counts as an intersection.
func segmentsIntersect(p1, p2, p3, p4 Point) bool {
	d1 := cross(p3, p4, p1)
	d2 := cross(p3, p4, p2)
	d3 := cross(p1, p2, p3)
	d4 := cross(p1, p2, p4)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	if d1 == 0 && onSegment(p3, p4, p1) {
		return true
	}
	if d2 == 0 && onSegment(p3, p4, p2) {
		return true
	}
	if d3 == 0 && onSegment(p1, p2, p3) {
		return true
	}
	if d4 == 0 && onSegment(p1, p2, p4) {
		return true
	}
	return false
}

func cross(a, b, c Point) float64 {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}

func onSegment(a, b, p Point) bool {
	return math.Min(a.X, b.X) <= p.X && p.X <= math.Max(a.X, b.X) &&
		math.Min(a.Y, b.Y) <= p.Y && p.Y <= math.Max(a.Y, b.Y)
}
