package placement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftline/tidecall/internal/geometry"
)

var grid = geometry.Grid{CellPx: 100, UnitsPerCell: 5}

func baseRequest() Request {
	return Request{
		Desired:     geometry.Point{X: 350, Y: 350},
		Source:      geometry.Point{X: 50, Y: 350},
		MaxDistance: 60,
		Grid:        grid,
	}
}

func TestFind_DesiredCellFree(t *testing.T) {
	req := baseRequest()
	req.Occupied = func(geometry.Point) bool { return false }

	p, err := Find(req)
	require.NoError(t, err)
	assert.Equal(t, geometry.Point{X: 350, Y: 350}, p)
}

func TestFind_SnapsDesiredToCellCenter(t *testing.T) {
	req := baseRequest()
	req.Desired = geometry.Point{X: 312, Y: 387}

	p, err := Find(req)
	require.NoError(t, err)
	assert.Equal(t, geometry.Point{X: 350, Y: 350}, p)
}

func TestFind_AdjacentCellWhenDesiredOccupied(t *testing.T) {
	// Desired cell occupied, nearest free cell one ring east.
	req := baseRequest()
	occupied := map[geometry.Point]bool{
		{X: 350, Y: 350}: true,
	}
	req.Occupied = func(p geometry.Point) bool { return occupied[p] }

	p, err := Find(req)
	require.NoError(t, err)
	assert.Equal(t, geometry.Point{X: 450, Y: 350}, p, "first spiral candidate is one cell east")
}

func TestFind_Deterministic(t *testing.T) {
	req := baseRequest()
	occupied := map[geometry.Point]bool{
		{X: 350, Y: 350}: true,
		{X: 450, Y: 350}: true,
	}
	req.Occupied = func(p geometry.Point) bool { return occupied[p] }

	first, err := Find(req)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		p, err := Find(req)
		require.NoError(t, err)
		assert.Equal(t, first, p)
	}
}

func TestFind_NeverExceedsRange(t *testing.T) {
	req := baseRequest()
	req.MaxDistance = 20
	// Occupy a block around the desired cell so the spiral has to walk.
	req.Occupied = func(p geometry.Point) bool {
		return p.X >= 250 && p.X <= 450 && p.Y >= 250 && p.Y <= 450
	}

	p, err := Find(req)
	require.NoError(t, err)
	assert.LessOrEqual(t, grid.Distance(req.Source, p), req.MaxDistance+Epsilon)
	assert.False(t, req.Occupied(p))
}

func TestFind_SightRequired(t *testing.T) {
	req := baseRequest()
	req.RequireSight = true
	// Everything east of x=300 is behind a wall.
	req.Sighted = func(_, to geometry.Point) bool { return to.X < 300 }

	p, err := Find(req)
	require.NoError(t, err)
	assert.Less(t, p.X, 300.0)
}

func TestFind_Exhausted(t *testing.T) {
	req := baseRequest()
	req.Occupied = func(geometry.Point) bool { return true }

	_, err := Find(req)
	assert.ErrorIs(t, err, ErrNoPlacement)
}

func TestFind_OutOfRangeDesiredStillSearches(t *testing.T) {
	// Desired point beyond range: the spiral may still find an in-range
	// cell between source and desired.
	req := baseRequest()
	req.MaxDistance = 10
	req.Occupied = func(geometry.Point) bool { return false }

	p, err := Find(req)
	require.NoError(t, err)
	assert.Equal(t, geometry.Point{X: 250, Y: 350}, p, "nearest in-range cell toward the source")
	assert.LessOrEqual(t, grid.Distance(req.Source, p), req.MaxDistance+Epsilon)
}
