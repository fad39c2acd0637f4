package main

import (
	"time"

	"github.com/google/uuid"

	"github.com/tuomaz/stationkeeper/internal/history"
)

type settings struct {
	configPath          string
	logLevel            string
	logFile             string
	metricsAddr         string
	dashboard           bool
	plotFile            string
	correctionsPlotFile string
	reportInterval      time.Duration
	duration            time.Duration
	autostart           bool
	alarmTicks          uint64
}

type alarmEvent struct {
	session        uuid.UUID
	tick           uint64
	driftingTicks  uint64
	errorMagnitude float64
	cleared        bool
}

type summary struct {
	session     uuid.UUID
	tick        uint64
	time        float64
	mode        history.Mode
	samples     int
	lastError   float64
	meanError   float64
	maxError    float64
	meanThrust  float64
	corrections uint64
	drifts      int
	restores    int
}

type event struct {
	alarmEvent *alarmEvent
}
