package authcore

import "sync/atomic"

// MetricID identifies one counter in the in-process metrics system.
type MetricID uint16

const (
	// MetricLoginSuccess counts successful logins.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts rejected logins (any reason except lockout).
	MetricLoginFailure
	// MetricLoginLocked counts logins rejected by the lockout policy.
	MetricLoginLocked
	// MetricRegisterSuccess counts created accounts.
	MetricRegisterSuccess
	// MetricRegisterFailure counts rejected registrations.
	MetricRegisterFailure
	// MetricRefreshSuccess counts token rotations.
	MetricRefreshSuccess
	// MetricRefreshFailure counts rejected refresh attempts.
	MetricRefreshFailure
	// MetricLogout counts logouts.
	MetricLogout
	// MetricSessionCreated counts opened sessions.
	MetricSessionCreated
	// MetricSessionDestroyed counts destroyed sessions.
	MetricSessionDestroyed
	// MetricPasswordChangeSuccess counts completed password changes.
	MetricPasswordChangeSuccess
	// MetricPasswordChangeFailure counts rejected password changes.
	MetricPasswordChangeFailure
	// MetricPasswordResetRequest counts issued reset tickets.
	MetricPasswordResetRequest
	// MetricPasswordResetSuccess counts completed resets.
	MetricPasswordResetSuccess
	// MetricPasswordResetFailure counts rejected reset confirmations.
	MetricPasswordResetFailure
	// MetricVerificationRequest counts issued verification tickets.
	MetricVerificationRequest
	// MetricVerificationSuccess counts verified emails.
	MetricVerificationSuccess
	// MetricVerificationFailure counts rejected verification codes.
	MetricVerificationFailure
	// MetricMailDispatchFailure counts failed Mailer.Send calls.
	MetricMailDispatchFailure

	metricIDCount
)

const cacheLineSize = 64

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds lock-free counters. When disabled all operations are no-ops.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]paddedCounter
}

// NewMetrics creates a [Metrics] instance configured by cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

// Inc atomically increments the counter for id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Snapshot returns a point-in-time copy of all counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	var snap MetricsSnapshot
	if m == nil || !m.enabled {
		return snap
	}
	for i := MetricID(0); i < metricIDCount; i++ {
		snap.counters[i] = atomic.LoadUint64(&m.counters[i].value)
	}
	return snap
}

// MetricsSnapshot is a point-in-time copy of all metric counters.
type MetricsSnapshot struct {
	counters [metricIDCount]uint64
}

// Get returns the counter value for id, or 0 for an unknown id.
func (s MetricsSnapshot) Get(id MetricID) uint64 {
	if id >= metricIDCount {
		return 0
	}
	return s.counters[id]
}
