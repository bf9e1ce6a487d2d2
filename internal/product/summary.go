package product

import (
	"fmt"
	"math"

	"github.com/rainmap/rainmap/internal/raster"
)

// Summary binnings. The count tables and narrative text bucket observations
// coarser than the map legends do.
var (
	rainfallMonthlySummary = mustScheme(
		[]float64{0, 100, 300, 500, math.Inf(1)},
		[]string{"Rendah", "Menengah", "Tinggi", "Sangat Tinggi"})
	rainfallDasarianSummary = mustScheme(
		[]float64{0, 50, 150, 300, math.Inf(1)},
		[]string{"Rendah", "Menengah", "Tinggi", "Sangat Tinggi"})
	characterSummary = mustScheme(
		[]float64{0, 85, 115, math.Inf(1)},
		[]string{"Bawah Normal", "Normal", "Atas Normal"})
)

// SummaryFor returns the labeled binning the count tables use for a data
// type at a scale. Dry-spell summaries reuse the map scheme, which already
// carries labels.
func SummaryFor(data DataType, scale Scale) (raster.Scheme, error) {
	switch data {
	case DataRainfall:
		if scale == ScaleDasarian {
			return rainfallDasarianSummary, nil
		}
		return rainfallMonthlySummary, nil
	case DataCharacter:
		return characterSummary, nil
	case DataDrySpell:
		return drySpellScheme, nil
	default:
		return nil, fmt.Errorf("%w: no summary for data %q", ErrUnknownProduct, data)
	}
}
