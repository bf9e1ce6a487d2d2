package raster

import (
	"github.com/rainmap/rainmap/internal/region"
)

// ApplyMask marks every grid node inside the region geometry and returns the
// count of nodes marked. Boundary nodes count as inside. Values on nodes
// outside the region are kept; downstream stages simply skip them.
func ApplyMask(grid *Grid, geom region.Geometry) int {
	if grid == nil {
		return 0
	}
	inside := 0
	for i := range grid.Cells {
		cell := &grid.Cells[i]
		cell.InRegion = geom.Contains(cell.Lon, cell.Lat)
		if cell.InRegion {
			inside++
		}
	}
	return inside
}
