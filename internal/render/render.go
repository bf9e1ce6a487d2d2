// Package render paints a classified raster into a map image: one pixel per
// grid node, colored by category, with administrative outlines on top.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"

	"github.com/paulmach/orb"

	"github.com/rainmap/rainmap/internal/raster"
	"github.com/rainmap/rainmap/internal/region"
	"github.com/rainmap/rainmap/pkg/colorramp"
)

// Default outline colors.
var (
	defaultBoundaryColor = color.RGBA{R: 40, G: 40, B: 40, A: 255}
	defaultNeighborColor = color.RGBA{R: 150, G: 150, B: 150, A: 255}
)

// Options steer map composition. The zero value paints just the classified
// cells.
type Options struct {
	// Boundary is outlined on top of the raster when non-empty.
	Boundary region.Geometry

	// Neighbors are outlined under the boundary, giving the map its
	// geographic context.
	Neighbors []region.Geometry

	// BoundaryColor and NeighborColor override the default outline grays.
	BoundaryColor color.RGBA
	NeighborColor color.RGBA
}

// Image paints the grid with one pixel per node. North is up: the grid's
// southernmost row lands on the bottom pixel row. Cells without a category
// stay transparent, so the basemap shows through wherever the region mask
// or the scheme rejected a node.
func Image(result raster.Result, ramp colorramp.Ramp, opts Options) *image.RGBA {
	grid := result.Grid
	if grid == nil || grid.NCols == 0 || grid.NRows == 0 {
		return image.NewRGBA(image.Rect(0, 0, 0, 0))
	}

	// Ramp colors follow scheme order, not category numbering.
	position := make(map[int]int, len(result.Scheme))
	for i, bin := range result.Scheme {
		position[bin.Category] = i
	}

	img := image.NewRGBA(image.Rect(0, 0, grid.NCols, grid.NRows))
	for row := 0; row < grid.NRows; row++ {
		y := grid.NRows - 1 - row
		for col := 0; col < grid.NCols; col++ {
			cell := grid.At(row, col)
			if !cell.InRegion || cell.Category == raster.CategoryNone {
				continue
			}
			img.SetRGBA(col, y, ramp.At(position[cell.Category]))
		}
	}

	neighborColor := opts.NeighborColor
	if neighborColor.A == 0 {
		neighborColor = defaultNeighborColor
	}
	for _, n := range opts.Neighbors {
		outline(img, grid.Spec, n, neighborColor)
	}

	boundaryColor := opts.BoundaryColor
	if boundaryColor.A == 0 {
		boundaryColor = defaultBoundaryColor
	}
	outline(img, grid.Spec, opts.Boundary, boundaryColor)

	return img
}

// WritePNG encodes the image to path.
func WritePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create image file: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode png: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close image file: %w", err)
	}
	return nil
}

// outline traces every ring of the geometry in pixel space.
func outline(img *image.RGBA, spec raster.GridSpec, geom region.Geometry, c color.RGBA) {
	for _, polygon := range geom.Polygons {
		for _, ring := range polygon {
			for i := 1; i < len(ring); i++ {
				drawLine(img, project(spec, img.Rect.Dy(), ring[i-1]), project(spec, img.Rect.Dy(), ring[i]), c)
			}
		}
	}
}

// project maps a geographic point to pixel coordinates, north up.
func project(spec raster.GridSpec, height int, p orb.Point) image.Point {
	col := int(math.Round((p[0] - spec.MinLon) / spec.Resolution))
	row := int(math.Round((p[1] - spec.MinLat) / spec.Resolution))
	return image.Point{X: col, Y: height - 1 - row}
}

// drawLine rasterizes a segment with the integer Bresenham walk, skipping
// pixels outside the image.
func drawLine(img *image.RGBA, from, to image.Point, c color.RGBA) {
	dx := abs(to.X - from.X)
	dy := -abs(to.Y - from.Y)
	sx := 1
	if from.X > to.X {
		sx = -1
	}
	sy := 1
	if from.Y > to.Y {
		sy = -1
	}

	x, y := from.X, from.Y
	err := dx + dy
	for {
		if image.Pt(x, y).In(img.Rect) {
			img.SetRGBA(x, y, c)
		}
		if x == to.X && y == to.Y {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x += sx
		}
		if e2 <= dx {
			err += dx
			y += sy
		}
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
