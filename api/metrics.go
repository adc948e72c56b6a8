package api

import (
	"sync"
	"time"
)

// AlertType identifies the kind of anomaly detected.
type AlertType string

const (
	// AlertSignInFailureSpike fires when failed sign-ins exceed the
	// threshold within the window.
	AlertSignInFailureSpike AlertType = "signin_failure_spike"
	// AlertSessionRejectionSpike fires on a burst of rejected session
	// validations, which usually means token guessing.
	AlertSessionRejectionSpike AlertType = "session_rejection_spike"
)

// AlertEvent describes an anomaly that triggered an alert.
type AlertEvent struct {
	Type      AlertType `json:"type"`
	Message   string    `json:"message"`
	Count     int       `json:"count"`
	Threshold int       `json:"threshold"`
	Timestamp time.Time `json:"timestamp"`
}

// AlertFunc is the callback invoked when an anomaly is detected.
type AlertFunc func(AlertEvent)

// metricsCollector tracks sliding-window counters for anomaly detection.
type metricsCollector struct {
	mu sync.Mutex

	signinFailures  []time.Time
	signinWindow    time.Duration
	signinThreshold int

	rejections         []time.Time
	rejectionWindow    time.Duration
	rejectionThreshold int

	alertFn AlertFunc
}

const (
	defaultSignInFailureWindow    = 1 * time.Minute
	defaultSignInFailureThreshold = 50
	defaultRejectionWindow        = 1 * time.Minute
	defaultRejectionThreshold     = 100
)

func newMetricsCollector(alertFn AlertFunc) *metricsCollector {
	return &metricsCollector{
		signinWindow:       defaultSignInFailureWindow,
		signinThreshold:    defaultSignInFailureThreshold,
		rejectionWindow:    defaultRejectionWindow,
		rejectionThreshold: defaultRejectionThreshold,
		alertFn:            alertFn,
	}
}

// recordEvent inspects an audit event and updates the relevant counters.
func (m *metricsCollector) recordEvent(event AuditEvent) {
	if m == nil || m.alertFn == nil {
		return
	}
	switch event {
	case AuditSignInFailure:
		m.recordSignInFailure()
	case AuditSessionRejected:
		m.recordRejection()
	}
}

func (m *metricsCollector) recordSignInFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	m.signinFailures = append(m.signinFailures, now)
	m.signinFailures = trimWindow(m.signinFailures, now, m.signinWindow)

	if len(m.signinFailures) >= m.signinThreshold {
		m.alertFn(AlertEvent{
			Type:      AlertSignInFailureSpike,
			Message:   "sign-in failure rate exceeds threshold",
			Count:     len(m.signinFailures),
			Threshold: m.signinThreshold,
			Timestamp: now,
		})
		// Reset to avoid repeated alerts within the same spike.
		m.signinFailures = m.signinFailures[:0]
	}
}

func (m *metricsCollector) recordRejection() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	m.rejections = append(m.rejections, now)
	m.rejections = trimWindow(m.rejections, now, m.rejectionWindow)

	if len(m.rejections) >= m.rejectionThreshold {
		m.alertFn(AlertEvent{
			Type:      AlertSessionRejectionSpike,
			Message:   "session rejection rate exceeds threshold",
			Count:     len(m.rejections),
			Threshold: m.rejectionThreshold,
			Timestamp: now,
		})
		m.rejections = m.rejections[:0]
	}
}

// trimWindow removes entries older than (now - window) from the sorted slice.
func trimWindow(times []time.Time, now time.Time, window time.Duration) []time.Time {
	cutoff := now.Add(-window)
	start := 0
	for start < len(times) && times[start].Before(cutoff) {
		start++
	}
	return times[start:]
}
