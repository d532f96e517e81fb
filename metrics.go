package authsession

import (
	"sync/atomic"
	"time"
)

// MetricID identifies a single counter or histogram tracked by Metrics.
type MetricID uint16

const (
	// MetricLoginSuccess counts password sign-ins that produced a session.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts password sign-ins rejected by the provider.
	MetricLoginFailure
	// MetricGoogleSignInSuccess counts federated sign-ins that produced a session.
	MetricGoogleSignInSuccess
	// MetricGoogleSignInFailure counts federated sign-ins that failed.
	MetricGoogleSignInFailure
	// MetricRegisterSuccess counts completed registrations.
	MetricRegisterSuccess
	// MetricRegisterFailure counts registrations rejected at either service.
	MetricRegisterFailure
	// MetricRefreshSuccess counts forced refreshes that produced a new token.
	MetricRefreshSuccess
	// MetricRefreshShortCircuit counts token requests served from the fresh
	// cache with no provider call.
	MetricRefreshShortCircuit
	// MetricRefreshFallback counts failed refreshes served from the cached
	// token within the grace window.
	MetricRefreshFallback
	// MetricSessionExpired counts terminal refresh failures that forced logout.
	MetricSessionExpired
	// MetricLogout counts explicit logouts.
	MetricLogout
	// MetricInitializeHydrated counts startups that restored a persisted session.
	MetricInitializeHydrated
	// MetricInitializeCold counts startups with no usable persisted session.
	MetricInitializeCold
	// MetricStorageMigration counts records consolidated from the general to
	// the secure backend.
	MetricStorageMigration
	// MetricStorageError counts best-effort persistence failures.
	MetricStorageError
	// MetricProfileRefresh counts user records re-fetched from the profile service.
	MetricProfileRefresh
	// MetricRefreshLatency is the histogram of forced refresh round trips.
	MetricRefreshLatency
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

// Metrics holds the Manager's in-process counters. All methods are safe for
// concurrent use; a nil *Metrics is a valid no-op receiver.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of all counters and histograms,
// consumed by the exporters under metrics/export.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics creates a Metrics per cfg. With Enabled false every operation is
// a no-op and Snapshot returns empty maps.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are being recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether latency histograms are being recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc increments a counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records a latency sample.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricRefreshLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value reads a single counter.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies all counters and histograms.
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
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricRefreshLatency].buckets[i])
		}
		s.Histograms[MetricRefreshLatency] = buckets
	}

	return s
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}
