// Package prometheus provides Prometheus collectors for credAuth metrics.
//
// [NewPrometheusExporter] accepts an [credAuth.Engine] and exposes an [http.Handler]
// that renders all credAuth counters and histograms in Prometheus text exposition format.
// Counter names are prefixed credauth_*_total; the single histogram is
// credauth_hash_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry. Callers mount the Handler.
//   - Mutate engine state.
package prometheus
