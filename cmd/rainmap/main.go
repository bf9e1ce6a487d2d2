// Package main provides the rainmap command. It reads a station export,
// interpolates it over a region boundary, classifies the field and writes
// the rendered map products.
package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/rainmap/rainmap/internal/ingest"
	"github.com/rainmap/rainmap/internal/pipeline"
	"github.com/rainmap/rainmap/internal/product"
	"github.com/rainmap/rainmap/internal/region"
	"github.com/rainmap/rainmap/internal/render"
	"github.com/rainmap/rainmap/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// Value-column aliases per data type, tried in order.
var valueAliases = map[product.DataType][]string{
	product.DataRainfall:  {"CH", "CURAH HUJAN", "RR", "NILAI", "VALUE"},
	product.DataCharacter: {"SH", "SIFAT HUJAN", "SIFAT", "NILAI", "VALUE"},
	product.DataDrySpell:  {"HTH", "INDEKS HTH", "HARI TANPA HUJAN", "NILAI", "VALUE"},
}

func main() {
	const serviceName = "rainmap"

	kind := flag.String("kind", string(product.KindForecast),
		"product kind: prakiraan, analisis, normal, verifikasi, bias, probabilistik, hth")
	data := flag.String("data", string(product.DataRainfall), "data type: ch, sh, hth")
	scale := flag.String("scale", string(product.ScaleMonthly), "reporting scale: bulanan, dasarian")
	regionName := flag.String("region", "", "region to map, as named in the boundary file")
	input := flag.String("input", "", "station export to map (CSV)")
	actualPath := flag.String("actual", "", "verifying observations (CSV), for bias and verifikasi runs")
	valueColumn := flag.String("value-column", "", "override for the value column name")
	year := flag.Int("year", time.Now().Year(), "period year")
	month := flag.Int("month", int(time.Now().Month()), "period month (1-12)")
	dasarian := flag.Int("dasarian", 0, "period dasarian (1-3), for dasarian-scale products")
	flag.Parse()

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting rainmap")

	cfg := loadConfig()

	if *input == "" {
		log.Fatal().Msg("missing -input points file")
	}
	if *regionName == "" {
		log.Fatal().Msg("missing -region name")
	}

	prod, err := product.For(product.Kind(*kind), product.DataType(*data), product.Scale(*scale))
	if err != nil {
		log.Fatal().Err(err).Msg("unknown product")
	}
	period := product.Period{Year: *year, Month: time.Month(*month), Dasarian: *dasarian}

	// Initialize OpenTelemetry
	ctx := context.Background()
	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.TelemetryEnabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if cfg.TelemetryEnabled {
		log.Info().
			Str("otlp_endpoint", cfg.OTLPEndpoint).
			Msg("OpenTelemetry initialized")
	}

	// Load boundaries and resolve the target region
	boundaries, err := region.LoadCollection(cfg.BoundaryFile)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.BoundaryFile).Msg("failed to load boundary file")
	}
	geom, err := boundaries.Find(*regionName)
	if err != nil {
		log.Fatal().Err(err).Str("region", *regionName).Msg("region not found in boundary file")
	}
	neighbors := boundaries.Neighbors(geom, region.DefaultNeighborBuffer)
	log.Info().
		Str("region", geom.Name).
		Int("neighbors", len(neighbors)).
		Msg("boundary loaded")

	// Read the station exports the product needs
	readOpts := ingest.Options{ValueColumn: *valueColumn, ValueAliases: valueAliases[prod.Data]}

	req := pipeline.Request{
		Product:   prod,
		Period:    period,
		Region:    geom,
		Districts: boundaries,
	}

	if prod.Kind == product.KindProbabilistic {
		byThreshold, skipped, err := ingest.ReadProbabilistic(*input, readOpts)
		if err != nil {
			log.Fatal().Err(err).Str("path", *input).Msg("failed to read probabilistic export")
		}
		logSkipped(log, *input, skipped)
		req.ByThreshold = byThreshold
	} else {
		points, skipped, err := ingest.ReadPoints(*input, readOpts)
		if err != nil {
			log.Fatal().Err(err).Str("path", *input).Msg("failed to read station export")
		}
		logSkipped(log, *input, skipped)
		req.Points = points
	}

	if prod.Kind == product.KindBias || prod.Kind == product.KindVerification {
		if *actualPath == "" {
			log.Fatal().Msg("missing -actual observations file")
		}
		actual, skipped, err := ingest.ReadPoints(*actualPath, readOpts)
		if err != nil {
			log.Fatal().Err(err).Str("path", *actualPath).Msg("failed to read verifying observations")
		}
		logSkipped(log, *actualPath, skipped)
		req.Actual = actual
	}

	// Run the pipeline
	var runLog *pipeline.RunLog
	if cfg.RunLogPath != "" {
		runLog = pipeline.NewRunLog(cfg.RunLogPath)
	}

	runner, err := pipeline.NewRunner(pipeline.RunnerConfig{
		Config: cfg.pipelineConfig(),
		Logger: log,
		RunLog: runLog,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create runner")
	}

	out, err := runner.Run(ctx, req)
	if err != nil {
		log.Fatal().Err(err).Msg("run failed")
	}

	// Render the maps
	if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
		log.Fatal().Err(err).Str("dir", cfg.OutDir).Msg("failed to create output directory")
	}

	for _, m := range out.Maps {
		img := render.Image(m.Result, prod.Ramp, render.Options{
			Boundary:  geom,
			Neighbors: neighbors,
		})

		path := filepath.Join(cfg.OutDir, outputName(prod, period, m.Name))
		if err := render.WritePNG(path, img); err != nil {
			log.Fatal().Err(err).Str("path", path).Msg("failed to write map")
		}

		log.Info().
			Str("path", path).
			Str("title", mapTitle(prod, period, m.Label)).
			Int("cells_in_region", m.Result.Diagnostics.CellsInRegion).
			Int("unclassifiable", m.Result.Diagnostics.Unclassifiable).
			Msg("map written")
	}

	// Report the summaries
	for _, s := range out.Shares {
		log.Info().
			Str("category", s.Label).
			Float64("percent", s.Percent).
			Msg("regional share")
	}
	for _, o := range out.Outliers {
		log.Info().
			Str("district", o.District).
			Str("dominant", o.Label).
			Float64("deviation", o.Deviation).
			Msg("district deviates from regional pattern")
	}
	if out.Scores != nil {
		log.Info().
			Int("stations", out.Scores.N).
			Float64("accuracy", out.Scores.Accuracy).
			Float64("hss", out.Scores.HSS).
			Float64("pss", out.Scores.PSS).
			Msg("verification scores")
	}

	log.Info().
		Str("run_id", out.RunID).
		Int("maps", len(out.Maps)).
		Dur("duration", out.Elapsed).
		Msg("rainmap finished")
}

func logSkipped(log zerolog.Logger, path string, skipped int) {
	if skipped > 0 {
		log.Warn().Str("path", path).Int("rows", skipped).Msg("skipped unparseable rows")
	}
}

// outputName returns the file name for one rendered map, inserting the
// threshold key for probabilistic products.
func outputName(p product.Product, period product.Period, mapName string) string {
	name := product.FileName(p, period)
	if mapName == "" {
		return name
	}
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + "_" + mapName + ext
}

// mapTitle annotates the product title with the threshold label when there
// is one.
func mapTitle(p product.Product, period product.Period, label string) string {
	title := p.Title(period.Label(p.Scale))
	if label == "" {
		return title
	}
	return title + " " + label
}
