package main

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/rainmap/rainmap/internal/pipeline"
	"github.com/rainmap/rainmap/internal/raster"
)

// appConfig holds the environment-driven settings: file locations, engine
// tuning and telemetry. The per-run parameters (product, period, inputs)
// come from flags instead.
type appConfig struct {
	// BoundaryFile is the GeoJSON file holding the region polygons.
	BoundaryFile string

	// OutDir receives the rendered maps.
	OutDir string

	// RunLogPath is the CSV run history; empty disables it.
	RunLogPath string

	// Engine tuning; zero values keep the defaults.
	Resolution     float64
	Power          float64
	Mode           string
	Neighbors      int
	Radius         float64
	Metric         string
	DiscreteLimit  int
	MatchTolerance int
	OutlierLimit   int

	OTLPEndpoint     string
	Environment      string
	TelemetryEnabled bool
}

// loadConfig reads configuration from the environment with defaults. A .env
// file is honored when present.
func loadConfig() appConfig {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("INFO: could not load .env file: %v", err)
	}

	return appConfig{
		BoundaryFile:     getenvDefault("RAINMAP_BOUNDARY_FILE", "data/boundaries.geojson"),
		OutDir:           getenvDefault("RAINMAP_OUT_DIR", "out"),
		RunLogPath:       os.Getenv("RAINMAP_RUN_LOG"),
		Resolution:       getenvFloat("RAINMAP_RESOLUTION", 0),
		Power:            getenvFloat("RAINMAP_POWER", 0),
		Mode:             os.Getenv("RAINMAP_MODE"),
		Neighbors:        getenvInt("RAINMAP_NEIGHBORS", 0),
		Radius:           getenvFloat("RAINMAP_RADIUS", 0),
		Metric:           os.Getenv("RAINMAP_METRIC"),
		DiscreteLimit:    getenvInt("RAINMAP_DISCRETE_LIMIT", 0),
		MatchTolerance:   getenvInt("RAINMAP_MATCH_TOLERANCE", 0),
		OutlierLimit:     getenvInt("RAINMAP_OUTLIER_LIMIT", 0),
		OTLPEndpoint:     getenvDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		Environment:      getenvDefault("APP_ENV", "development"),
		TelemetryEnabled: os.Getenv("OTEL_ENABLED") == "true",
	}
}

// pipelineConfig maps the tuning overrides onto the engine defaults.
func (c appConfig) pipelineConfig() pipeline.Config {
	cfg := pipeline.DefaultConfig()
	if c.Resolution > 0 {
		cfg.Grid.Resolution = c.Resolution
	}
	if c.Power > 0 {
		cfg.Interpolation.Power = c.Power
	}
	if c.Mode != "" {
		cfg.Interpolation.Mode = raster.NeighborMode(c.Mode)
	}
	if c.Neighbors > 0 {
		cfg.Interpolation.Neighbors = c.Neighbors
	}
	if c.Radius > 0 {
		cfg.Interpolation.Radius = c.Radius
	}
	if c.Metric != "" {
		cfg.Interpolation.Metric = raster.DistanceMetric(c.Metric)
	}
	if c.DiscreteLimit > 0 {
		cfg.DiscreteLimit = c.DiscreteLimit
	}
	if c.MatchTolerance > 0 {
		cfg.MatchTolerance = c.MatchTolerance
	}
	if c.OutlierLimit > 0 {
		cfg.OutlierLimit = c.OutlierLimit
	}
	return cfg
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return def
}
