package pipeline_test

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/paulmach/orb"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rainmap/rainmap/internal/pipeline"
	"github.com/rainmap/rainmap/internal/pointset"
	"github.com/rainmap/rainmap/internal/product"
	"github.com/rainmap/rainmap/internal/raster"
	"github.com/rainmap/rainmap/internal/region"
)

// squareRegion builds a size-degree square with its south-west corner at
// (minLon, minLat).
func squareRegion(name string, minLon, minLat, size float64) region.Geometry {
	ring := orb.Ring{
		{minLon, minLat},
		{minLon + size, minLat},
		{minLon + size, minLat + size},
		{minLon, minLat + size},
		{minLon, minLat},
	}
	return region.Geometry{Name: name, Polygons: orb.MultiPolygon{{ring}}}
}

// testConfig uses a coarse lattice so runs stay small.
func testConfig() pipeline.Config {
	cfg := pipeline.DefaultConfig()
	cfg.Grid.Resolution = 0.25
	return cfg
}

func newTestRunner(t *testing.T, cfg pipeline.Config) *pipeline.Runner {
	t.Helper()

	runner, err := pipeline.NewRunner(pipeline.RunnerConfig{
		Config: cfg,
		Logger: zerolog.Nop(),
		Clock:  clockwork.NewFakeClock(),
	})
	require.NoError(t, err)
	return runner
}

func mustProduct(t *testing.T, kind product.Kind, data product.DataType, scale product.Scale) product.Product {
	t.Helper()

	p, err := product.For(kind, data, scale)
	require.NoError(t, err)
	return p
}

// findCell returns the grid cell at (lon, lat), which must exist.
func findCell(t *testing.T, grid *raster.Grid, lon, lat float64) *raster.Cell {
	t.Helper()

	for i := range grid.Cells {
		c := &grid.Cells[i]
		if c.Lon > lon-1e-9 && c.Lon < lon+1e-9 && c.Lat > lat-1e-9 && c.Lat < lat+1e-9 {
			return c
		}
	}
	t.Fatalf("no cell at (%v, %v)", lon, lat)
	return nil
}

// forecastRecords places three stations on lattice nodes of the test grid.
func forecastRecords() []pointset.Record {
	return []pointset.Record{
		{Lon: 100.25, Lat: -1.75, Value: 120},
		{Lon: 100.5, Lat: -1.5, Value: 180},
		{Lon: 100.75, Lat: -1.25, Value: 350},
	}
}

func TestRunner_Run_ForecastProducesMap(t *testing.T) {
	runner := newTestRunner(t, testConfig())

	out, err := runner.Run(context.Background(), pipeline.Request{
		Product: mustProduct(t, product.KindForecast, product.DataRainfall, product.ScaleMonthly),
		Period:  product.Period{Year: 2026, Month: time.January},
		Region:  squareRegion("PADANG", 100, -2, 1),
		Points:  forecastRecords(),
	})
	require.NoError(t, err)

	assert.NotEmpty(t, out.RunID)
	assert.Equal(t, 3, out.PointsUsed)
	require.Len(t, out.Maps, 1)
	assert.Empty(t, out.Maps[0].Name)

	result := out.Maps[0].Result
	assert.Equal(t, 120.0, result.Stats.Min)
	assert.Equal(t, 350.0, result.Stats.Max)
	assert.Positive(t, result.Diagnostics.CellsInRegion)

	// Station nodes carry the observed values verbatim.
	cell := findCell(t, result.Grid, 100.5, -1.5)
	assert.Equal(t, 180.0, cell.Value)

	// Monthly reporting bins: two stations land in Menengah, one in Tinggi.
	require.Len(t, out.Shares, 2)
	assert.Equal(t, "Menengah", out.Shares[0].Label)
	assert.InDelta(t, 66.7, out.Shares[0].Percent, 1e-9)
	assert.Equal(t, "Tinggi", out.Shares[1].Label)
	assert.InDelta(t, 33.3, out.Shares[1].Percent, 1e-9)

	// No districts in the request, no per-district tables.
	assert.Empty(t, out.Counts)
	assert.Empty(t, out.Outliers)
}

func TestRunner_Run_DistrictTables(t *testing.T) {
	runner := newTestRunner(t, testConfig())

	districts := &region.Collection{Features: []region.Feature{
		{
			Province: "SUMATERA BARAT", District: "BARAT",
			Geometry: squareRegion("BARAT", 100, -2, 0.5),
		},
		{
			Province: "SUMATERA BARAT", District: "TIMUR",
			Geometry: squareRegion("TIMUR", 100.5, -2, 0.5),
		},
	}}

	out, err := runner.Run(context.Background(), pipeline.Request{
		Product:   mustProduct(t, product.KindForecast, product.DataRainfall, product.ScaleMonthly),
		Period:    product.Period{Year: 2026, Month: time.January},
		Region:    squareRegion("PADANG", 100, -2, 1),
		Points:    forecastRecords(),
		Districts: districts,
	})
	require.NoError(t, err)

	require.Len(t, out.Counts, 2)
	for _, ac := range out.Counts {
		assert.Equal(t, "SUMATERA BARAT", ac.Province)
		assert.Positive(t, ac.Total)
	}

	// TIMUR's dominant bin (Tinggi) differs from the regional one
	// (Menengah), BARAT shares it but at 100% versus 66.7% regionally;
	// both stand out, the outright disagreement first.
	require.Len(t, out.Outliers, 2)
	assert.Equal(t, "TIMUR", out.Outliers[0].District)
	assert.Equal(t, 100.0, out.Outliers[0].Deviation)
	assert.Equal(t, "BARAT", out.Outliers[1].District)
	assert.InDelta(t, 33.3, out.Outliers[1].Deviation, 1e-9)
}

func TestRunner_Run_DiscreteDataCopiesNearest(t *testing.T) {
	runner := newTestRunner(t, testConfig())

	// Two distinct values stay under the discrete limit, so nodes copy
	// their nearest station instead of blending.
	out, err := runner.Run(context.Background(), pipeline.Request{
		Product: mustProduct(t, product.KindForecast, product.DataRainfall, product.ScaleMonthly),
		Period:  product.Period{Year: 2026, Month: time.March},
		Region:  squareRegion("PADANG", 100, -2, 1),
		Points: []pointset.Record{
			{Lon: 100.2, Lat: -1.8, Value: 5},
			{Lon: 100.4, Lat: -1.6, Value: 10},
			{Lon: 100.8, Lat: -1.2, Value: 10},
		},
	})
	require.NoError(t, err)

	grid := out.Maps[0].Result.Grid
	for i := range grid.Cells {
		c := grid.Cells[i]
		if !c.HasValue() {
			continue
		}
		assert.Contains(t, []float64{5, 10}, c.Value,
			"cell (%v, %v) holds a blended value", c.Lon, c.Lat)
	}
}

func TestRunner_Run_DrySpell(t *testing.T) {
	runner := newTestRunner(t, testConfig())

	out, err := runner.Run(context.Background(), pipeline.Request{
		Product: mustProduct(t, product.KindDrySpell, product.DataRainfall, product.ScaleDasarian),
		Period:  product.Period{Year: 2026, Month: time.July, Dasarian: 2},
		Region:  squareRegion("PADANG", 100, -2, 1),
		Points: []pointset.Record{
			{Lon: 100.25, Lat: -1.75, Value: 0},
			{Lon: 100.5, Lat: -1.5, Value: 3},
			{Lon: 100.75, Lat: -1.25, Value: 45},
		},
	})
	require.NoError(t, err)

	result := out.Maps[0].Result
	assert.Equal(t, 0, findCell(t, result.Grid, 100.25, -1.75).Category)
	assert.Equal(t, 1, findCell(t, result.Grid, 100.5, -1.5).Category)
	assert.Equal(t, 5, findCell(t, result.Grid, 100.75, -1.25).Category)

	// Day counts are categorical: no cell may hold a blended value.
	for i := range result.Grid.Cells {
		c := result.Grid.Cells[i]
		if c.HasValue() {
			assert.Contains(t, []float64{0, 3, 45}, c.Value)
		}
	}

	// Dry-spell summaries reuse the bracket labels.
	assert.NotEmpty(t, out.Shares)
}

func TestRunner_Run_Bias(t *testing.T) {
	runner := newTestRunner(t, testConfig())

	out, err := runner.Run(context.Background(), pipeline.Request{
		Product: mustProduct(t, product.KindBias, product.DataRainfall, product.ScaleMonthly),
		Period:  product.Period{Year: 2026, Month: time.February},
		Region:  squareRegion("PADANG", 100, -2, 1),
		Points: []pointset.Record{
			{Lon: 100.25, Lat: -1.75, Value: 100},
			{Lon: 100.5, Lat: -1.5, Value: 200},
			{Lon: 100.75, Lat: -1.25, Value: 300},
		},
		Actual: []pointset.Record{
			{Lon: 100.25, Lat: -1.75, Value: 150},
			{Lon: 100.5, Lat: -1.5, Value: 150},
			{Lon: 100.75, Lat: -1.25, Value: 350},
		},
	})
	require.NoError(t, err)

	// The rasterized value is the forecast minus the verifying observation.
	result := out.Maps[0].Result
	assert.Equal(t, -50.0, findCell(t, result.Grid, 100.25, -1.75).Value)
	assert.Equal(t, 50.0, findCell(t, result.Grid, 100.5, -1.5).Value)
	assert.Equal(t, -50.0, result.Stats.Min)
	assert.Equal(t, 50.0, result.Stats.Max)
}

func TestRunner_Run_Probabilistic(t *testing.T) {
	runner := newTestRunner(t, testConfig())

	probs := func(a, b, c float64) []pointset.Record {
		return []pointset.Record{
			{Lon: 100.25, Lat: -1.75, Value: a},
			{Lon: 100.5, Lat: -1.5, Value: b},
			{Lon: 100.75, Lat: -1.25, Value: c},
		}
	}

	out, err := runner.Run(context.Background(), pipeline.Request{
		Product: mustProduct(t, product.KindProbabilistic, product.DataRainfall, product.ScaleMonthly),
		Period:  product.Period{Year: 2026, Month: time.April},
		Region:  squareRegion("PADANG", 100, -2, 1),
		ByThreshold: map[string][]pointset.Record{
			"a100": probs(10, 40, 70),
			"b50":  probs(90, 60, 30),
		},
	})
	require.NoError(t, err)

	// One map per threshold, in the fixed below-then-above order.
	require.Len(t, out.Maps, 2)
	assert.Equal(t, "b50", out.Maps[0].Name)
	assert.Equal(t, "< 50 mm", out.Maps[0].Label)
	assert.Equal(t, "a100", out.Maps[1].Name)
	assert.Equal(t, "> 100 mm", out.Maps[1].Label)
	assert.Equal(t, 6, out.PointsUsed)

	assert.Equal(t, 90.0, findCell(t, out.Maps[0].Result.Grid, 100.25, -1.75).Value)
	assert.Equal(t, 10.0, findCell(t, out.Maps[1].Result.Grid, 100.25, -1.75).Value)
}

func TestRunner_Run_Verification(t *testing.T) {
	runner := newTestRunner(t, testConfig())

	out, err := runner.Run(context.Background(), pipeline.Request{
		Product: mustProduct(t, product.KindVerification, product.DataRainfall, product.ScaleMonthly),
		Period:  product.Period{Year: 2026, Month: time.May},
		Region:  squareRegion("PADANG", 100, -2, 1),
		Points: []pointset.Record{
			{Lon: 100.25, Lat: -1.75, Value: 10},
			{Lon: 100.5, Lat: -1.5, Value: 30},
			{Lon: 100.75, Lat: -1.25, Value: 60},
			{Lon: 100.25, Lat: -1.25, Value: 120},
		},
		Actual: []pointset.Record{
			{Lon: 100.25, Lat: -1.75, Value: 15},
			{Lon: 100.5, Lat: -1.5, Value: 35},
			{Lon: 100.75, Lat: -1.25, Value: 55},
			{Lon: 100.25, Lat: -1.25, Value: 250},
		},
	})
	require.NoError(t, err)

	// Three of four stations verify in the same rainfall class.
	require.NotNil(t, out.Scores)
	assert.Equal(t, 4, out.Scores.N)
	assert.InDelta(t, 0.75, out.Scores.Accuracy, 1e-9)
	assert.InDelta(t, 0.75, out.Scores.PSS, 1e-9)
	assert.InDelta(t, 0.6923, out.Scores.HSS, 1e-4)

	// The map holds match flags copied from the nearest station.
	result := out.Maps[0].Result
	assert.Equal(t, 1.0, findCell(t, result.Grid, 100.5, -1.5).Value)
	assert.Equal(t, 0.0, findCell(t, result.Grid, 100.25, -1.25).Value)
	for i := range result.Grid.Cells {
		if c := result.Grid.Cells[i]; c.HasValue() {
			assert.Contains(t, []float64{0, 1}, c.Value)
		}
	}
}

func TestRunner_Run_InsufficientPoints(t *testing.T) {
	runner := newTestRunner(t, testConfig())

	out, err := runner.Run(context.Background(), pipeline.Request{
		Product: mustProduct(t, product.KindForecast, product.DataRainfall, product.ScaleMonthly),
		Region:  squareRegion("PADANG", 100, -2, 1),
		Points: []pointset.Record{
			{Lon: 100.25, Lat: -1.75, Value: 120},
			{Lon: 100.5, Lat: -1.5, Value: 180},
		},
	})
	require.ErrorIs(t, err, pointset.ErrInsufficientData)
	assert.Nil(t, out)
}

func TestRunner_Run_UnknownKind(t *testing.T) {
	runner := newTestRunner(t, testConfig())

	_, err := runner.Run(context.Background(), pipeline.Request{
		Product: product.Product{Kind: "sinoptik"},
		Region:  squareRegion("PADANG", 100, -2, 1),
		Points:  forecastRecords(),
	})
	require.ErrorIs(t, err, product.ErrUnknownProduct)
}

func TestRunner_Run_AppendsRunLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.csv")
	clock := clockwork.NewFakeClockAt(time.Date(2026, time.January, 15, 6, 0, 0, 0, time.UTC))

	runner, err := pipeline.NewRunner(pipeline.RunnerConfig{
		Config: testConfig(),
		Logger: zerolog.Nop(),
		Clock:  clock,
		RunLog: pipeline.NewRunLog(path),
	})
	require.NoError(t, err)

	req := pipeline.Request{
		Product: mustProduct(t, product.KindForecast, product.DataRainfall, product.ScaleMonthly),
		Period:  product.Period{Year: 2026, Month: time.January},
		Region:  squareRegion("PADANG", 100, -2, 1),
		Points:  forecastRecords(),
	}
	_, err = runner.Run(context.Background(), req)
	require.NoError(t, err)

	// A failed run is logged too.
	req.Points = req.Points[:1]
	_, err = runner.Run(context.Background(), req)
	require.Error(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "timestamp", rows[0][0])
	assert.Equal(t, "status", rows[0][14])

	ok := rows[1]
	assert.Equal(t, "2026-01-15T06:00:00Z", ok[0])
	assert.NotEmpty(t, ok[1])
	assert.Equal(t, "prakiraan", ok[2])
	assert.Equal(t, "PADANG", ok[5])
	assert.Equal(t, "Januari 2026", ok[6])
	assert.Equal(t, "3", ok[7])
	assert.Equal(t, "ok", ok[14])

	failed := rows[2]
	assert.Contains(t, failed[14], "insufficient")
}

func TestRunner_Run_InvalidGeometry(t *testing.T) {
	runner := newTestRunner(t, testConfig())

	_, err := runner.Run(context.Background(), pipeline.Request{
		Product: mustProduct(t, product.KindForecast, product.DataRainfall, product.ScaleMonthly),
		Region:  region.Geometry{Name: "EMPTY"},
		Points:  forecastRecords(),
	})
	require.ErrorIs(t, err, raster.ErrInvalidGeometry)
}

func TestNewRunner_Defaults(t *testing.T) {
	runner, err := pipeline.NewRunner(pipeline.RunnerConfig{Logger: zerolog.Nop()})
	require.NoError(t, err)
	require.NotNil(t, runner)

	// Zero config falls back to defaults; a small region keeps the default
	// resolution affordable.
	out, err := runner.Run(context.Background(), pipeline.Request{
		Product: mustProduct(t, product.KindForecast, product.DataRainfall, product.ScaleMonthly),
		Region:  squareRegion("KECIL", 100, -1, 0.05),
		Points: []pointset.Record{
			{Lon: 100.01, Lat: -0.99, Value: 120},
			{Lon: 100.02, Lat: -0.98, Value: 180},
			{Lon: 100.04, Lat: -0.96, Value: 350},
		},
	})
	require.NoError(t, err)
	assert.Positive(t, out.Maps[0].Result.Diagnostics.CellsInRegion)
}
