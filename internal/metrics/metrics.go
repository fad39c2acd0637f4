// Package metrics exposes simulation health as Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tuomaz/stationkeeper/internal/history"
)

// Metrics implements the simulation driver's observer hooks.
type Metrics struct {
	ticksTotal      prometheus.Counter
	tickFailures    prometheus.Counter
	ticksDropped    prometheus.Counter
	eventsTotal     *prometheus.CounterVec
	errorMagnitude  prometheus.Gauge
	thrustMagnitude prometheus.Gauge
	tickDuration    prometheus.Histogram
	running         prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ticksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stationkeeper_ticks_total",
			Help: "Total number of completed simulation ticks.",
		}),
		tickFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stationkeeper_tick_failures_total",
			Help: "Total number of rejected simulation ticks.",
		}),
		ticksDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stationkeeper_ticks_dropped_total",
			Help: "Timer ticks dropped because the previous tick was still queued.",
		}),
		eventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stationkeeper_events_total",
				Help: "Drift history events by kind.",
			},
			[]string{"kind"},
		),
		errorMagnitude: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stationkeeper_error_magnitude",
			Help: "Position error magnitude at the last tick.",
		}),
		thrustMagnitude: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stationkeeper_thrust_magnitude",
			Help: "Applied thrust magnitude at the last tick.",
		}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "stationkeeper_tick_duration_seconds",
			Help:    "Wall time spent computing one tick.",
			Buckets: prometheus.ExponentialBuckets(1e-6, 4, 10),
		}),
		running: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stationkeeper_clock_running",
			Help: "1 while the tick clock is running.",
		}),
	}

	reg.MustRegister(
		m.ticksTotal,
		m.tickFailures,
		m.ticksDropped,
		m.eventsTotal,
		m.errorMagnitude,
		m.thrustMagnitude,
		m.tickDuration,
		m.running,
	)
	return m
}

// Handler serves the collectors gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func (m *Metrics) TickCompleted(d time.Duration, errorMagnitude, thrustMagnitude float64, events []history.Event) {
	m.ticksTotal.Inc()
	m.tickDuration.Observe(d.Seconds())
	m.errorMagnitude.Set(errorMagnitude)
	m.thrustMagnitude.Set(thrustMagnitude)
	for _, e := range events {
		m.eventsTotal.WithLabelValues(e.Kind.String()).Inc()
	}
}

func (m *Metrics) TickFailed() { m.tickFailures.Inc() }

func (m *Metrics) TickDropped() { m.ticksDropped.Inc() }

func (m *Metrics) ClockRunning(running bool) {
	if running {
		m.running.Set(1)
	} else {
		m.running.Set(0)
	}
}
