package otel

import (
	"context"
	"log/slog"
	"sync/atomic"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// LogExporter is an sdkmetric.Exporter that writes every collected int64 point as one
// structured log record. It lets a deployment without a collector still see the numbers.
type LogExporter struct {
	logger *slog.Logger
	closed atomic.Bool
}

var _ sdkmetric.Exporter = (*LogExporter)(nil)

// NewLogExporter returns an exporter writing to logger, or slog.Default when nil.
func NewLogExporter(logger *slog.Logger) *LogExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogExporter{logger: logger}
}

func (l *LogExporter) Temporality(kind sdkmetric.InstrumentKind) metricdata.Temporality {
	return sdkmetric.DefaultTemporalitySelector(kind)
}

func (l *LogExporter) Aggregation(kind sdkmetric.InstrumentKind) sdkmetric.Aggregation {
	return sdkmetric.DefaultAggregationSelector(kind)
}

func (l *LogExporter) Export(ctx context.Context, rm *metricdata.ResourceMetrics) error {
	if l.closed.Load() || rm == nil {
		return nil
	}
	var attrs []slog.Attr
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				attrs = appendPoints(attrs, m.Name, data.DataPoints)
			case metricdata.Gauge[int64]:
				attrs = appendPoints(attrs, m.Name, data.DataPoints)
			}
		}
	}
	if len(attrs) == 0 {
		return nil
	}
	l.logger.LogAttrs(ctx, slog.LevelInfo, "credAuth: metrics", attrs...)
	return nil
}

func appendPoints(attrs []slog.Attr, name string, points []metricdata.DataPoint[int64]) []slog.Attr {
	for _, dp := range points {
		key := name
		if le, ok := dp.Attributes.Value("le"); ok {
			key += "{le=" + le.AsString() + "}"
		}
		attrs = append(attrs, slog.Int64(key, dp.Value))
	}
	return attrs
}

func (l *LogExporter) ForceFlush(context.Context) error { return nil }

func (l *LogExporter) Shutdown(context.Context) error {
	l.closed.Store(true)
	return nil
}
