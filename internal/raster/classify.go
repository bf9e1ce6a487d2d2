package raster

// Classify assigns a category to every in-region node holding a value and
// returns the number of such nodes the scheme could not place. Nodes outside
// the region and nodes without a value keep CategoryNone and are not counted.
func Classify(grid *Grid, scheme Scheme) (int, error) {
	if err := scheme.Validate(); err != nil {
		return 0, err
	}
	if grid == nil {
		return 0, nil
	}
	unclassifiable := 0
	for i := range grid.Cells {
		cell := &grid.Cells[i]
		if !cell.InRegion || !cell.HasValue() {
			continue
		}
		cat, ok := scheme.Categorize(cell.Value)
		if !ok {
			unclassifiable++
			continue
		}
		cell.Category = cat
	}
	return unclassifiable, nil
}
