package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsSignInFailureSpike(t *testing.T) {
	var alerts []AlertEvent
	m := newMetricsCollector(func(e AlertEvent) {
		alerts = append(alerts, e)
	})

	for i := 0; i < defaultSignInFailureThreshold-1; i++ {
		m.recordEvent(AuditSignInFailure)
	}
	assert.Empty(t, alerts)

	m.recordEvent(AuditSignInFailure)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertSignInFailureSpike, alerts[0].Type)
	assert.Equal(t, defaultSignInFailureThreshold, alerts[0].Count)

	// Counters reset after firing, so the next failure starts a new window.
	m.recordEvent(AuditSignInFailure)
	assert.Len(t, alerts, 1)
}

func TestMetricsRejectionSpike(t *testing.T) {
	var alerts []AlertEvent
	m := newMetricsCollector(func(e AlertEvent) {
		alerts = append(alerts, e)
	})

	for i := 0; i < defaultRejectionThreshold; i++ {
		m.recordEvent(AuditSessionRejected)
	}
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertSessionRejectionSpike, alerts[0].Type)
}

func TestMetricsIgnoresUnrelatedEvents(t *testing.T) {
	var alerts []AlertEvent
	m := newMetricsCollector(func(e AlertEvent) {
		alerts = append(alerts, e)
	})

	for i := 0; i < defaultRejectionThreshold*2; i++ {
		m.recordEvent(AuditSignIn)
		m.recordEvent(AuditSignOut)
	}
	assert.Empty(t, alerts)
}

func TestMetricsNilCollectorIsSafe(t *testing.T) {
	var m *metricsCollector
	m.recordEvent(AuditSignInFailure)

	m = newMetricsCollector(nil)
	m.recordEvent(AuditSignInFailure)
}

func TestTrimWindow(t *testing.T) {
	now := time.Now()
	times := []time.Time{
		now.Add(-3 * time.Minute),
		now.Add(-90 * time.Second),
		now.Add(-10 * time.Second),
		now,
	}

	kept := trimWindow(times, now, time.Minute)
	require.Len(t, kept, 2)
	assert.Equal(t, times[2], kept[0])
}
