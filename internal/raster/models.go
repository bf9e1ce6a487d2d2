// Package raster implements the interpolation and classification engine that
// turns a normalized point set into a masked, classified grid.
//
// The engine is pure: every operation is parameterized by its arguments and
// holds no state between invocations, so independent runs may execute in
// parallel as long as each owns its Grid.
package raster

import (
	"errors"
	"math"

	"github.com/paulmach/orb"
)

// Structural errors. Per-cell conditions (unclassifiable values, empty
// neighborhoods) are reported as counts instead.
var (
	ErrInvalidGeometry = errors.New("invalid region geometry for grid")
	ErrInvalidScheme   = errors.New("invalid classification scheme")
)

// CategoryNone marks a cell that has not been assigned a category.
const CategoryNone = -1

// DefaultResolution is the node spacing, in degrees, used when a grid
// request does not set one. It matches the cell size of the production map
// products (roughly 240 m at the equator).
const DefaultResolution = 0.0021648361216

// Cell is one grid node.
type Cell struct {
	Lon float64
	Lat float64

	// Value is the interpolated value. It is NaN until interpolation fills
	// it, and stays NaN when a radius cutoff leaves the neighborhood empty.
	Value float64

	// InRegion marks nodes inside the target geometry. Out-of-region nodes
	// keep their Value but are excluded from classification and statistics.
	InRegion bool

	// Category is the classification bin index, CategoryNone until assigned.
	// It is only ever assigned on in-region cells holding a value.
	Category int
}

// HasValue reports whether interpolation produced a value for the cell.
func (c Cell) HasValue() bool {
	return !math.IsNaN(c.Value)
}

// Point returns the cell location as an orb point.
func (c Cell) Point() orb.Point {
	return orb.Point{c.Lon, c.Lat}
}

// GridSpec describes the lattice: its bounding box and the node spacing in
// degrees.
type GridSpec struct {
	MinLon, MaxLon float64
	MinLat, MaxLat float64
	Resolution     float64
}

// Grid is a row-major lattice of cells: row 0 at MinLat, column 0 at MinLon.
type Grid struct {
	Spec  GridSpec
	NRows int
	NCols int
	Cells []Cell
}

// At returns the cell at (row, col).
func (g *Grid) At(row, col int) *Cell {
	return &g.Cells[row*g.NCols+col]
}

// Stats summarizes the classified cells of a grid.
type Stats struct {
	// Min and Max cover classified cells only. Both are NaN when no cell was
	// classified.
	Min float64
	Max float64

	// CategoryCounts has an entry for every category the scheme declares,
	// zero when no cell received it. Legends can therefore render every
	// defined category even when empty.
	CategoryCounts map[int]int
}

// Diagnostics carries the per-run degradation counters surfaced alongside
// the raster.
type Diagnostics struct {
	// Dropped and Merged come from point normalization.
	Dropped int
	Merged  int

	// Unclassifiable counts in-region cells whose value no bin contained.
	Unclassifiable int

	// Empty counts nodes left without a value by a radius cutoff.
	Empty int

	// CellsInRegion counts the nodes the mask admitted.
	CellsInRegion int
}

// Result is the finished raster: the grid, the scheme it was classified
// with, summary statistics and diagnostics. Ownership passes to the caller;
// the engine keeps no reference.
type Result struct {
	Grid        *Grid
	Scheme      Scheme
	Stats       Stats
	Diagnostics Diagnostics
}
