package verify

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/rainmap/rainmap/internal/raster"
)

// RainfallIndex is the nine-way rainfall binning both sides of a comparison
// are reduced to before scoring. The top bin is open-ended so extreme
// measurements still score.
var RainfallIndex = func() raster.Scheme {
	s, err := raster.SchemeFromEdges(
		[]float64{0, 20, 50, 100, 150, 200, 300, 400, 500, math.Inf(1)}, nil)
	if err != nil {
		panic(err)
	}
	return s
}()

// CategoryPair holds the binned categories of one joined pair.
type CategoryPair struct {
	Forecast int
	Actual   int
}

// Categorize reduces joined pairs to category pairs under the scheme. Pairs
// with an unclassifiable side are dropped.
func Categorize(pairs []Pair, scheme raster.Scheme) []CategoryPair {
	cats := make([]CategoryPair, 0, len(pairs))
	for _, p := range pairs {
		fc, ok := scheme.Categorize(p.Forecast)
		if !ok {
			continue
		}
		ac, ok := scheme.Categorize(p.Actual)
		if !ok {
			continue
		}
		cats = append(cats, CategoryPair{Forecast: fc, Actual: ac})
	}
	return cats
}

// Contingency tabulates category pairs into an n-by-n matrix: rows index the
// forecast category, columns the observed one. Categories outside [0, n) are
// ignored.
func Contingency(cats []CategoryPair, n int) *mat.Dense {
	table := mat.NewDense(n, n, nil)
	for _, c := range cats {
		if c.Forecast < 0 || c.Forecast >= n || c.Actual < 0 || c.Actual >= n {
			continue
		}
		table.Set(c.Forecast, c.Actual, table.At(c.Forecast, c.Actual)+1)
	}
	return table
}

// Metrics are the categorical verification scores of one contingency table.
type Metrics struct {
	// Accuracy is the fraction of pairs on the diagonal.
	Accuracy float64

	// HSS is the Heidke skill score: accuracy relative to chance agreement.
	HSS float64

	// PSS is the Peirce skill score: accuracy relative to the observed
	// marginal distribution.
	PSS float64

	// N is the number of scored pairs.
	N int
}

// Score derives the verification metrics from a contingency table. Skill
// scores are NaN when their reference term leaves no room for skill (a
// degenerate table with every pair in a single category); everything is NaN
// for an empty table.
func Score(table *mat.Dense) Metrics {
	rows, cols := table.Dims()
	total := mat.Sum(table)
	if total == 0 || rows != cols {
		return Metrics{Accuracy: math.NaN(), HSS: math.NaN(), PSS: math.NaN()}
	}

	var diagonal float64
	rowSums := make([]float64, rows)
	colSums := make([]float64, cols)
	for i := 0; i < rows; i++ {
		diagonal += table.At(i, i)
		for j := 0; j < cols; j++ {
			rowSums[i] += table.At(i, j)
			colSums[j] += table.At(i, j)
		}
	}

	observed := diagonal / total

	var chance, observedSquares float64
	for i := 0; i < rows; i++ {
		chance += rowSums[i] * colSums[i]
		observedSquares += colSums[i] * colSums[i]
	}
	chance /= total * total
	observedSquares /= total * total

	m := Metrics{Accuracy: observed, N: int(total)}

	if denom := 1 - chance; denom != 0 {
		m.HSS = (observed - chance) / denom
	} else {
		m.HSS = math.NaN()
	}
	if denom := 1 - observedSquares; denom != 0 {
		m.PSS = (observed - chance) / denom
	} else {
		m.PSS = math.NaN()
	}
	return m
}
