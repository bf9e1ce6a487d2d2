package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/rainmap/rainmap/internal/ingest"
	"github.com/rainmap/rainmap/internal/pointset"
	"github.com/rainmap/rainmap/internal/product"
	"github.com/rainmap/rainmap/internal/raster"
	"github.com/rainmap/rainmap/internal/region"
	"github.com/rainmap/rainmap/internal/telemetry"
	"github.com/rainmap/rainmap/internal/verify"
)

// Request describes one product run.
type Request struct {
	// Product selects the classification scheme, color ramp and labeling;
	// Period dates the outputs.
	Product product.Product
	Period  product.Period

	// Region is the geometry the raster is built over and masked to.
	Region region.Geometry

	// Points holds the raw observation records. Bias and verification runs
	// read the forecast side from here.
	Points []pointset.Record

	// Actual holds the verifying observations of bias and verification
	// runs; ignored otherwise.
	Actual []pointset.Record

	// ByThreshold holds the per-threshold records of probabilistic runs,
	// keyed by threshold ("b50", "a100", ...).
	ByThreshold map[string][]pointset.Record

	// Districts enables the per-district count tables and outlier report
	// when set.
	Districts *region.Collection
}

// Map is one classified raster of a run. Most kinds produce exactly one;
// probabilistic runs produce one per threshold.
type Map struct {
	// Name is the threshold key; empty for single-map kinds.
	Name string

	// Label annotates the map title ("< 50 mm"); empty for single-map
	// kinds.
	Label string

	Result raster.Result
}

// Output bundles everything a run produced.
type Output struct {
	RunID string
	Maps  []Map

	// Scores carries the skill metrics of verification runs, nil for every
	// other kind.
	Scores *verify.Metrics

	// Counts, Shares and Outliers summarize the observations against the
	// product's reporting bins. Counts and Outliers need the request to
	// carry districts.
	Counts   []product.AreaCount
	Shares   []product.Share
	Outliers []product.Outlier

	// PointsUsed counts the normalized observations behind the run, summed
	// across thresholds for probabilistic runs.
	PointsUsed int

	Elapsed time.Duration
}

// Runner executes product runs.
type Runner struct {
	config  Config
	logger  zerolog.Logger
	clock   clockwork.Clock
	tracer  trace.Tracer
	metrics *runMetrics
	runLog  *RunLog
}

// RunnerConfig holds the dependencies for creating a Runner.
type RunnerConfig struct {
	Config Config

	Logger zerolog.Logger

	// Clock is the time source; nil uses the wall clock.
	Clock clockwork.Clock

	// RunLog records run history when set.
	RunLog *RunLog
}

// NewRunner creates a Runner, replacing zero configuration with defaults.
func NewRunner(cfg RunnerConfig) (*Runner, error) {
	config := cfg.Config
	defaults := DefaultConfig()
	if config.DiscreteLimit <= 0 {
		config.DiscreteLimit = defaults.DiscreteLimit
	}
	if config.OutlierLimit <= 0 {
		config.OutlierLimit = defaults.OutlierLimit
	}
	if config.MatchTolerance < 0 {
		config.MatchTolerance = 0
	}

	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	metrics, err := newRunMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to create run metrics: %w", err)
	}

	return &Runner{
		config:  config,
		logger:  cfg.Logger,
		clock:   clock,
		tracer:  telemetry.Tracer(meterName),
		metrics: metrics,
		runLog:  cfg.RunLog,
	}, nil
}

// Run executes one product run end to end and returns its maps, summaries
// and diagnostics. Structural failures (too few points, bad geometry, bad
// scheme) abort the run; per-cell conditions are reported in the output
// diagnostics instead.
func (r *Runner) Run(ctx context.Context, req Request) (*Output, error) {
	runID := uuid.New().String()
	start := r.clock.Now()

	ctx, span := r.tracer.Start(ctx, "pipeline.run",
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("run.kind", string(req.Product.Kind)),
			attribute.String("run.data", string(req.Product.Data)),
			attribute.String("run.scale", string(req.Product.Scale)),
			attribute.String("run.region", req.Region.Name),
		))
	defer span.End()

	logger := r.logger.With().
		Str("run_id", runID).
		Str("kind", string(req.Product.Kind)).
		Str("region", req.Region.Name).
		Logger()
	logger.Info().
		Int("points", len(req.Points)).
		Str("period", req.Period.Label(req.Product.Scale)).
		Msg("starting product run")

	out, err := r.dispatch(ctx, req)
	elapsed := r.clock.Since(start)
	r.metrics.record(ctx, req, out, elapsed, err)
	r.appendRunLog(req, out, runID, elapsed, err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error().Err(err).Dur("duration", elapsed).Msg("product run failed")
		return nil, err
	}

	out.RunID = runID
	out.Elapsed = elapsed
	logger.Info().
		Dur("duration", elapsed).
		Int("maps", len(out.Maps)).
		Int("points_used", out.PointsUsed).
		Msg("product run completed")
	return out, nil
}

func (r *Runner) dispatch(ctx context.Context, req Request) (*Output, error) {
	switch req.Product.Kind {
	case product.KindForecast, product.KindAnalysis, product.KindNormal, product.KindDrySpell:
		return r.runPointMap(ctx, req)
	case product.KindBias:
		return r.runBias(ctx, req)
	case product.KindProbabilistic:
		return r.runProbabilistic(ctx, req)
	case product.KindVerification:
		return r.runVerification(ctx, req)
	default:
		return nil, fmt.Errorf("%w: kind %q", product.ErrUnknownProduct, req.Product.Kind)
	}
}

// runPointMap is the plain single-map path: normalize, rasterize, summarize.
func (r *Runner) runPointMap(ctx context.Context, req Request) (*Output, error) {
	points, report, err := r.normalize(ctx, req.Points)
	if err != nil {
		return nil, err
	}

	result, err := r.rasterize(ctx, req, points, report, r.interpolationFor(req.Product, points))
	if err != nil {
		return nil, err
	}

	out := &Output{
		Maps:       []Map{{Result: result}},
		PointsUsed: len(points),
	}
	r.summarize(req, points, out)
	return out, nil
}

// runBias rasterizes the per-station difference between forecast and
// verifying observations.
func (r *Runner) runBias(ctx context.Context, req Request) (*Output, error) {
	forecast, _, err := r.normalize(ctx, req.Points)
	if err != nil {
		return nil, fmt.Errorf("forecast points: %w", err)
	}
	actual, _, err := r.normalize(ctx, req.Actual)
	if err != nil {
		return nil, fmt.Errorf("verifying points: %w", err)
	}

	pairs := verify.Join(forecast, actual)
	diff, report, err := pointset.Normalize(verify.DifferencePoints(pairs))
	if err != nil {
		return nil, fmt.Errorf("joined stations: %w", err)
	}

	result, err := r.rasterize(ctx, req, diff, report, r.config.Interpolation)
	if err != nil {
		return nil, err
	}

	return &Output{
		Maps:       []Map{{Result: result}},
		PointsUsed: len(diff),
	}, nil
}

// runProbabilistic produces one raster per exceedance threshold, in the
// fixed threshold order.
func (r *Runner) runProbabilistic(ctx context.Context, req Request) (*Output, error) {
	if len(req.ByThreshold) == 0 {
		return nil, fmt.Errorf("%w: no threshold point sets", pointset.ErrInsufficientData)
	}

	out := &Output{Maps: make([]Map, 0, len(req.ByThreshold))}
	for _, key := range thresholdOrder(req.ByThreshold) {
		points, report, err := r.normalize(ctx, req.ByThreshold[key])
		if err != nil {
			return nil, fmt.Errorf("threshold %s: %w", key, err)
		}

		result, err := r.rasterize(ctx, req, points, report, r.config.Interpolation)
		if err != nil {
			return nil, fmt.Errorf("threshold %s: %w", key, err)
		}

		out.Maps = append(out.Maps, Map{
			Name:   key,
			Label:  ingest.ThresholdLabel(key),
			Result: result,
		})
		out.PointsUsed += len(points)
	}
	return out, nil
}

// runVerification scores forecast categories against verifying observations
// and rasterizes the per-station match flags.
func (r *Runner) runVerification(ctx context.Context, req Request) (*Output, error) {
	forecast, _, err := r.normalize(ctx, req.Points)
	if err != nil {
		return nil, fmt.Errorf("forecast points: %w", err)
	}
	actual, _, err := r.normalize(ctx, req.Actual)
	if err != nil {
		return nil, fmt.Errorf("verifying points: %w", err)
	}

	pairs := verify.Join(forecast, actual)
	cats := verify.Categorize(pairs, verify.RainfallIndex)
	table := verify.Contingency(cats, len(verify.RainfallIndex))
	scores := verify.Score(table)

	matches, report, err := pointset.Normalize(
		verify.MatchPoints(pairs, verify.RainfallIndex, r.config.MatchTolerance))
	if err != nil {
		return nil, fmt.Errorf("matched stations: %w", err)
	}

	result, err := r.rasterize(ctx, req, matches, report, r.nearest())
	if err != nil {
		return nil, err
	}

	return &Output{
		Maps:       []Map{{Result: result}},
		Scores:     &scores,
		PointsUsed: len(matches),
	}, nil
}

// normalize validates and canonicalizes raw records under a span.
func (r *Runner) normalize(ctx context.Context, records []pointset.Record) (pointset.PointSet, pointset.Report, error) {
	_, span := r.tracer.Start(ctx, "pipeline.normalize")
	defer span.End()

	points, report, err := pointset.Normalize(records)
	if err != nil {
		span.RecordError(err)
		return nil, report, err
	}

	span.SetAttributes(
		attribute.Int("points.accepted", report.Accepted),
		attribute.Int("points.dropped", report.Dropped),
		attribute.Int("points.merged", report.Merged),
	)
	return points, report, nil
}

// rasterize runs the grid stages for one point set and assembles the result.
func (r *Runner) rasterize(ctx context.Context, req Request, points pointset.PointSet, report pointset.Report, icfg raster.InterpolationConfig) (raster.Result, error) {
	_, span := r.tracer.Start(ctx, "pipeline.rasterize",
		trace.WithAttributes(attribute.String("interpolation.mode", string(icfg.Mode))))
	defer span.End()

	grid, err := raster.BuildGrid(req.Region, r.config.Grid)
	if err != nil {
		span.RecordError(err)
		return raster.Result{}, fmt.Errorf("build grid: %w", err)
	}

	empty := raster.NewInterpolator(icfg).Interpolate(grid, points)
	inRegion := raster.ApplyMask(grid, req.Region)

	unclassifiable, err := raster.Classify(grid, req.Product.Scheme)
	if err != nil {
		span.RecordError(err)
		return raster.Result{}, fmt.Errorf("classify: %w", err)
	}

	diag := raster.Diagnostics{
		Dropped:        report.Dropped,
		Merged:         report.Merged,
		Unclassifiable: unclassifiable,
		Empty:          empty,
		CellsInRegion:  inRegion,
	}
	span.SetAttributes(
		attribute.Int("raster.cells", len(grid.Cells)),
		attribute.Int("raster.cells_in_region", inRegion),
		attribute.Int("raster.unclassifiable", unclassifiable),
	)
	return raster.Assemble(grid, req.Product.Scheme, diag), nil
}

// summarize fills the count tables and narrative summaries for products
// that have reporting bins.
func (r *Runner) summarize(req Request, points pointset.PointSet, out *Output) {
	scheme, err := product.SummaryFor(req.Product.Data, req.Product.Scale)
	if err != nil {
		return
	}

	total := product.CountPoints(points, scheme)
	out.Shares = product.Shares(total, scheme)
	if req.Districts != nil {
		out.Counts = product.CountByArea(points, req.Districts, scheme)
		out.Outliers = product.Outliers(total, out.Counts, scheme, r.config.OutlierLimit)
	}
}

// interpolationFor picks the estimator for a point set. Categorical data,
// dry-spell day counts and verification flags copy the nearest station so
// class values survive unblended; everything else uses the configured
// weighting.
func (r *Runner) interpolationFor(p product.Product, points pointset.PointSet) raster.InterpolationConfig {
	if p.Kind == product.KindDrySpell {
		return r.nearest()
	}
	if points.DistinctValues() <= r.config.DiscreteLimit {
		return r.nearest()
	}
	return r.config.Interpolation
}

// nearest returns the single-neighbor configuration categorical fills use.
func (r *Runner) nearest() raster.InterpolationConfig {
	cfg := r.config.Interpolation
	cfg.Mode = raster.ModeKNearest
	cfg.Neighbors = 1
	return cfg
}

func (r *Runner) appendRunLog(req Request, out *Output, runID string, elapsed time.Duration, runErr error) {
	if r.runLog == nil {
		return
	}

	entry := RunEntry{
		Time:     r.clock.Now(),
		RunID:    runID,
		Kind:     string(req.Product.Kind),
		Data:     string(req.Product.Data),
		Scale:    string(req.Product.Scale),
		Region:   req.Region.Name,
		Period:   req.Period.Label(req.Product.Scale),
		Duration: elapsed,
		Status:   "ok",
	}
	if runErr != nil {
		entry.Status = runErr.Error()
	}
	if out != nil {
		entry.Points = out.PointsUsed
		for _, m := range out.Maps {
			entry.Dropped += m.Result.Diagnostics.Dropped
			entry.Merged += m.Result.Diagnostics.Merged
			entry.CellsInRegion += m.Result.Diagnostics.CellsInRegion
			entry.Unclassifiable += m.Result.Diagnostics.Unclassifiable
			entry.Empty += m.Result.Diagnostics.Empty
		}
	}

	if err := r.runLog.Append(entry); err != nil {
		r.logger.Warn().Err(err).Msg("failed to append run log entry")
	}
}

// thresholdOrder returns the map's keys in the canonical threshold order,
// with unknown keys sorted after the known ones.
func thresholdOrder(byThreshold map[string][]pointset.Record) []string {
	keys := make([]string, 0, len(byThreshold))
	for _, key := range ingest.Thresholds {
		if _, ok := byThreshold[key]; ok {
			keys = append(keys, key)
		}
	}

	var extra []string
	known := make(map[string]struct{}, len(ingest.Thresholds))
	for _, key := range ingest.Thresholds {
		known[key] = struct{}{}
	}
	for key := range byThreshold {
		if _, ok := known[key]; !ok {
			extra = append(extra, key)
		}
	}
	sort.Strings(extra)
	return append(keys, extra...)
}
