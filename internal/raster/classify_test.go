package raster_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rainmap/rainmap/internal/raster"
)

func classifiedCell(value float64, inRegion bool) raster.Cell {
	return raster.Cell{Value: value, InRegion: inRegion, Category: raster.CategoryNone}
}

func TestClassify_AssignsCategories(t *testing.T) {
	scheme, err := raster.SchemeFromEdges([]float64{0, 50, 100}, nil)
	require.NoError(t, err)

	grid := &raster.Grid{Cells: []raster.Cell{
		classifiedCell(10, true),
		classifiedCell(50, true),
		classifiedCell(99, true),
	}}

	unclassifiable, err := raster.Classify(grid, scheme)
	require.NoError(t, err)
	assert.Zero(t, unclassifiable)

	assert.Equal(t, 0, grid.Cells[0].Category)
	assert.Equal(t, 1, grid.Cells[1].Category, "boundary value lands in the upper bin")
	assert.Equal(t, 1, grid.Cells[2].Category)
}

func TestClassify_CountsUnclassifiable(t *testing.T) {
	scheme, err := raster.SchemeFromEdges([]float64{0, 50}, nil)
	require.NoError(t, err)

	grid := &raster.Grid{Cells: []raster.Cell{
		classifiedCell(10, true),
		classifiedCell(500, true),
		classifiedCell(-3, true),
	}}

	unclassifiable, err := raster.Classify(grid, scheme)
	require.NoError(t, err)
	assert.Equal(t, 2, unclassifiable)
	assert.Equal(t, 0, grid.Cells[0].Category)
	assert.Equal(t, raster.CategoryNone, grid.Cells[1].Category)
	assert.Equal(t, raster.CategoryNone, grid.Cells[2].Category)
}

func TestClassify_SkipsOutsideAndEmptyCells(t *testing.T) {
	scheme, err := raster.SchemeFromEdges([]float64{0, 50}, nil)
	require.NoError(t, err)

	// A valued cell outside the region, an in-region cell that was never
	// interpolated, and a cell with neither.
	grid := &raster.Grid{Cells: []raster.Cell{
		classifiedCell(10, false),
		classifiedCell(math.NaN(), true),
		classifiedCell(math.NaN(), false),
	}}

	unclassifiable, err := raster.Classify(grid, scheme)
	require.NoError(t, err)
	assert.Zero(t, unclassifiable, "skipped cells are not failures")
	for i := range grid.Cells {
		assert.Equal(t, raster.CategoryNone, grid.Cells[i].Category, "cell %d", i)
	}
}

func TestClassify_RejectsInvalidScheme(t *testing.T) {
	grid := &raster.Grid{Cells: []raster.Cell{classifiedCell(10, true)}}

	_, err := raster.Classify(grid, raster.Scheme{
		{Lower: 0, Upper: 50, Category: 0},
		{Lower: 40, Upper: 100, Category: 1},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, raster.ErrInvalidScheme)
}
