package credAuth

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one engine counter or histogram.
type MetricID uint16

const (
	// MetricLoginSuccess counts logins that issued a token.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts rejected credentials, unknown accounts included.
	MetricLoginFailure
	// MetricLoginRateLimited counts logins refused by the IP budget.
	MetricLoginRateLimited
	// MetricLoginUnknownAccount counts logins naming an email with no account.
	MetricLoginUnknownAccount
	// MetricRehashPerformed counts digests re-encoded during login.
	MetricRehashPerformed
	// MetricRehashFailed counts re-encodes that failed and were skipped.
	MetricRehashFailed
	// MetricPepperFallback counts matches found only after the hinted pepper missed.
	MetricPepperFallback
	// MetricSecurityAlertTriggered counts accounts that reached the failure threshold.
	MetricSecurityAlertTriggered
	// MetricSecurityAlertFailed counts alerts the notifier could not deliver.
	MetricSecurityAlertFailed
	// MetricWelcomeMailFailed counts welcome messages the notifier could not deliver.
	MetricWelcomeMailFailed
	// MetricRegisterSuccess counts created accounts.
	MetricRegisterSuccess
	// MetricRegisterDuplicate counts registrations refused for an existing email.
	MetricRegisterDuplicate
	// MetricRegisterRateLimited counts registrations refused by the IP budget.
	MetricRegisterRateLimited
	// MetricCredentialsUpdated counts accepted profile edits.
	MetricCredentialsUpdated
	// MetricPasswordChanged counts profile edits that replaced the password.
	MetricPasswordChanged
	// MetricCredentialsUpdateRejected counts refused profile edits.
	MetricCredentialsUpdateRejected
	// MetricTokenInvalid counts bearer tokens that failed verification.
	MetricTokenInvalid
	// MetricHashLatency is the Argon2 encode latency histogram.
	MetricHashLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds lock-free engine counters. The zero value and a nil pointer are both inert.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of all counters and histograms.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics returns a Metrics configured by cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether histograms are recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to counter id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the histogram for id. Only MetricHashLatency carries a histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricHashLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value returns the current value of counter id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter, and the latency histogram when enabled.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if id == MetricHashLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricHashLatency].buckets[i])
		}
		s.Histograms[MetricHashLatency] = buckets
	}

	return s
}

// Argon2 encodes land between tens of milliseconds and a few seconds.
func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 25:
		return 0
	case ms <= 50:
		return 1
	case ms <= 100:
		return 2
	case ms <= 250:
		return 3
	case ms <= 500:
		return 4
	case ms <= 1000:
		return 5
	case ms <= 2500:
		return 6
	default:
		return 7
	}
}
