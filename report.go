package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/tuomaz/stationkeeper/internal/history"
	"github.com/tuomaz/stationkeeper/internal/sim"
)

type snapshotSource interface {
	CurrentSnapshot() sim.Snapshot
}

// reportService logs a periodic summary of the retained telemetry.
type reportService struct {
	source    snapshotSource
	logger    *slog.Logger
	scheduler *gocron.Scheduler
	job       *gocron.Job
}

func newReportService(source snapshotSource, logger *slog.Logger) *reportService {
	return &reportService{
		source:    source,
		logger:    logger.With("service", "report"),
		scheduler: gocron.NewScheduler(time.UTC),
	}
}

func (rs *reportService) start(interval time.Duration) error {
	if interval <= 0 {
		return nil
	}
	job, err := rs.scheduler.Every(interval).WaitForSchedule().Do(rs.report)
	if err != nil {
		return fmt.Errorf("schedule report: %w", err)
	}
	rs.job = job
	rs.scheduler.StartAsync()
	return nil
}

func (rs *reportService) stop() {
	if rs.job != nil {
		rs.scheduler.Remove(rs.job)
		rs.job = nil
	}
	rs.scheduler.Stop()
}

func (rs *reportService) report() summary {
	sum := summarize(rs.source.CurrentSnapshot())
	rs.logger.Info("summary",
		"session", sum.session,
		"tick", sum.tick,
		"time", sum.time,
		"mode", sum.mode.String(),
		"samples", sum.samples,
		"last_error", sum.lastError,
		"mean_error", sum.meanError,
		"max_error", sum.maxError,
		"mean_thrust", sum.meanThrust,
		"corrections", sum.corrections,
		"drifts", sum.drifts,
		"restores", sum.restores,
	)
	return sum
}

// summarize reduces the retained telemetry and history of a snapshot. The
// statistics cover only what the buffers still hold.
func summarize(snap sim.Snapshot) summary {
	sum := summary{
		session:     snap.Session,
		tick:        snap.Tick,
		time:        snap.Time,
		mode:        snap.Mode,
		samples:     len(snap.Telemetry),
		corrections: snap.Corrections,
	}
	for _, e := range snap.History {
		switch e.Kind {
		case history.DriftDetected:
			sum.drifts++
		case history.OnCourseRestored:
			sum.restores++
		}
	}
	if len(snap.Telemetry) == 0 {
		return sum
	}

	errs := make([]float64, len(snap.Telemetry))
	thrust := make([]float64, len(snap.Telemetry))
	for i, s := range snap.Telemetry {
		errs[i] = s.ErrorMagnitude
		thrust[i] = s.ThrustMagnitude
	}
	sum.lastError = errs[len(errs)-1]
	sum.meanError = stat.Mean(errs, nil)
	sum.maxError = floats.Max(errs)
	sum.meanThrust = stat.Mean(thrust, nil)
	return sum
}
