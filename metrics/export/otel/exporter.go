package otel

import (
	"context"
	"errors"
	"fmt"

	credAuth "github.com/MrEthical07/credAuth"
	"github.com/MrEthical07/credAuth/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

// Source is what the exporter observes. *credAuth.Engine satisfies it.
type Source interface {
	MetricsSnapshot() credAuth.MetricsSnapshot
	AuditDropped() uint64
}

type observedHistogram struct {
	id      credAuth.MetricID
	buckets metric.Int64ObservableGauge
	bounds  []metric.ObserveOption
	count   metric.Int64ObservableGauge
}

// Exporter mirrors engine counters into an OpenTelemetry meter. Each histogram becomes
// one cumulative bucket gauge keyed by an "le" attribute plus a count gauge.
type Exporter struct {
	source       Source
	registration metric.Registration
	counters     map[credAuth.MetricID]metric.Int64ObservableCounter
	histograms   []observedHistogram
	auditDropped metric.Int64ObservableCounter
}

// New registers instruments for engine on meter.
func New(meter metric.Meter, engine *credAuth.Engine) (*Exporter, error) {
	if engine == nil {
		return nil, ErrNilSource
	}
	return NewFromSource(meter, engine)
}

// NewFromSource registers instruments for any snapshot source.
func NewFromSource(meter metric.Meter, source Source) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &Exporter{
		source:   source,
		counters: make(map[credAuth.MetricID]metric.Int64ObservableCounter, len(internaldefs.CounterDefs)),
	}
	var observables []metric.Observable

	for _, def := range internaldefs.CounterDefs {
		ins, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("counter %s: %w", def.Name, err)
		}
		e.counters[def.ID] = ins
		observables = append(observables, ins)
	}

	for _, def := range internaldefs.HistogramDefs {
		buckets, err := meter.Int64ObservableGauge(def.Name+"_bucket",
			metric.WithDescription(def.Help+" Cumulative count per upper bound."))
		if err != nil {
			return nil, fmt.Errorf("histogram %s: %w", def.Name, err)
		}
		count, err := meter.Int64ObservableGauge(def.Name+"_count",
			metric.WithDescription(def.Help+" Total samples."))
		if err != nil {
			return nil, fmt.Errorf("histogram %s: %w", def.Name, err)
		}
		h := observedHistogram{id: def.ID, buckets: buckets, count: count}
		for _, bound := range internaldefs.HistogramBounds {
			h.bounds = append(h.bounds, metric.WithAttributes(attribute.String("le", bound)))
		}
		e.histograms = append(e.histograms, h)
		observables = append(observables, buckets, count)
	}

	dropped, err := meter.Int64ObservableCounter("credauth_audit_dropped_total",
		metric.WithDescription("Audit events dropped because the dispatcher buffer was full."))
	if err != nil {
		return nil, fmt.Errorf("counter credauth_audit_dropped_total: %w", err)
	}
	e.auditDropped = dropped
	observables = append(observables, dropped)

	e.registration, err = meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	return e, nil
}

func (e *Exporter) observe(_ context.Context, o metric.Observer) error {
	snap := e.source.MetricsSnapshot()
	for id, ins := range e.counters {
		o.ObserveInt64(ins, int64(snap.Counters[id]))
	}
	for _, h := range e.histograms {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snap.Histograms[h.id]))
		for i, opt := range h.bounds {
			o.ObserveInt64(h.buckets, int64(cumulative[i]), opt)
		}
		o.ObserveInt64(h.count, int64(cumulative[len(cumulative)-1]))
	}
	o.ObserveInt64(e.auditDropped, int64(e.source.AuditDropped()))
	return nil
}

// Close unregisters the callback. The meter provider stays owned by the caller.
func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
