package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuomaz/stationkeeper/internal/history"
)

func TestMetrics_TickCompleted(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.TickCompleted(time.Millisecond, 1.5, 0.5, []history.Event{
		{Kind: history.DriftDetected},
		{Kind: history.CorrectionApplied},
	})
	m.TickCompleted(time.Millisecond, 0.5, 0.25, []history.Event{
		{Kind: history.CorrectionApplied},
	})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ticksTotal))
	assert.Equal(t, 0.5, testutil.ToFloat64(m.errorMagnitude))
	assert.Equal(t, 0.25, testutil.ToFloat64(m.thrustMagnitude))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.eventsTotal.WithLabelValues("drift_detected")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.eventsTotal.WithLabelValues("correction_applied")))
}

func TestMetrics_Counters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.TickFailed()
	m.TickDropped()
	m.TickDropped()
	m.ClockRunning(true)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.tickFailures))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ticksDropped))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.running))

	m.ClockRunning(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.running))
}

func TestHandler_ServesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.TickFailed()

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "stationkeeper_tick_failures_total 1"))
}
