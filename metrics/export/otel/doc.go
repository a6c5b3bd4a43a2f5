// Package otel mirrors credAuth counters and histograms into OpenTelemetry instruments.
//
// [New] registers one observable counter per engine counter and, per histogram, a bucket
// gauge carrying an "le" attribute plus a count gauge. A single callback reads
// [credAuth.Engine.MetricsSnapshot] on each collection cycle. The caller owns the
// MeterProvider; [LogExporter] is a minimal sdkmetric.Exporter for deployments that only
// have structured logs.
package otel
