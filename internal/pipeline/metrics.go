package pipeline

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/rainmap/rainmap/internal/pipeline"

// runMetrics holds the OpenTelemetry instruments for product runs.
type runMetrics struct {
	runDuration    metric.Float64Histogram
	runTotal       metric.Int64Counter
	cellsInRegion  metric.Int64Counter
	unclassifiable metric.Int64Counter
}

// newRunMetrics creates the run instruments on the global meter.
func newRunMetrics() (*runMetrics, error) {
	meter := otel.Meter(meterName)

	runDuration, err := meter.Float64Histogram(
		"rainmap.run.duration",
		metric.WithDescription("Duration of product runs in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	runTotal, err := meter.Int64Counter(
		"rainmap.run.total",
		metric.WithDescription("Total number of product runs"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, err
	}

	cellsInRegion, err := meter.Int64Counter(
		"rainmap.run.cells_in_region",
		metric.WithDescription("Grid nodes admitted by the region mask"),
		metric.WithUnit("{cell}"),
	)
	if err != nil {
		return nil, err
	}

	unclassifiable, err := meter.Int64Counter(
		"rainmap.run.unclassifiable_cells",
		metric.WithDescription("In-region cells no scheme bin contained"),
		metric.WithUnit("{cell}"),
	)
	if err != nil {
		return nil, err
	}

	return &runMetrics{
		runDuration:    runDuration,
		runTotal:       runTotal,
		cellsInRegion:  cellsInRegion,
		unclassifiable: unclassifiable,
	}, nil
}

// record captures the outcome of one run.
func (m *runMetrics) record(ctx context.Context, req Request, out *Output, elapsed time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("run.kind", string(req.Product.Kind)),
		attribute.String("run.scale", string(req.Product.Scale)),
	}
	if err != nil {
		attrs = append(attrs, attribute.Bool("error", true))
	}

	m.runDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attrs...))
	m.runTotal.Add(ctx, 1, metric.WithAttributes(attrs...))

	if out != nil {
		for _, mp := range out.Maps {
			m.cellsInRegion.Add(ctx, int64(mp.Result.Diagnostics.CellsInRegion), metric.WithAttributes(attrs...))
			m.unclassifiable.Add(ctx, int64(mp.Result.Diagnostics.Unclassifiable), metric.WithAttributes(attrs...))
		}
	}
}
