package main

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuomaz/stationkeeper/internal/history"
	"github.com/tuomaz/stationkeeper/internal/sim"
	"github.com/tuomaz/stationkeeper/internal/telemetry"
)

type countingSource struct {
	snap  sim.Snapshot
	reads atomic.Int32
}

func (c *countingSource) CurrentSnapshot() sim.Snapshot {
	c.reads.Add(1)
	return c.snap
}

func TestSummarize(t *testing.T) {
	session := uuid.New()
	snap := sim.Snapshot{
		Session:     session,
		Tick:        4,
		Time:        4,
		Mode:        history.OnCourse,
		Corrections: 3,
		Telemetry: []telemetry.Sample{
			{Tick: 1, ErrorMagnitude: 2, ThrustMagnitude: 1},
			{Tick: 2, ErrorMagnitude: 4, ThrustMagnitude: 1},
			{Tick: 3, ErrorMagnitude: 1, ThrustMagnitude: 1},
			{Tick: 4, ErrorMagnitude: 1, ThrustMagnitude: 0},
		},
		History: []history.Event{
			{Tick: 1, Kind: history.DriftDetected},
			{Tick: 1, Kind: history.CorrectionApplied},
			{Tick: 4, Kind: history.OnCourseRestored},
		},
	}

	sum := summarize(snap)

	assert.Equal(t, session, sum.session)
	assert.Equal(t, uint64(4), sum.tick)
	assert.Equal(t, 4, sum.samples)
	assert.Equal(t, 1.0, sum.lastError)
	assert.Equal(t, 2.0, sum.meanError)
	assert.Equal(t, 4.0, sum.maxError)
	assert.Equal(t, 0.75, sum.meanThrust)
	assert.Equal(t, uint64(3), sum.corrections)
	assert.Equal(t, 1, sum.drifts)
	assert.Equal(t, 1, sum.restores)
}

func TestSummarize_Empty(t *testing.T) {
	sum := summarize(sim.Snapshot{})

	assert.Equal(t, 0, sum.samples)
	assert.Equal(t, 0.0, sum.meanError)
	assert.Equal(t, 0.0, sum.maxError)
}

func TestReportService_Schedule(t *testing.T) {
	src := &countingSource{}
	rs := newReportService(src, testLogger)
	require.NoError(t, rs.start(20*time.Millisecond))

	assert.Eventually(t, func() bool {
		return src.reads.Load() >= 2
	}, 2*time.Second, 10*time.Millisecond)

	rs.stop()
	time.Sleep(50 * time.Millisecond)
	stopped := src.reads.Load()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, stopped, src.reads.Load())
}

func TestReportService_Disabled(t *testing.T) {
	src := &countingSource{}
	rs := newReportService(src, testLogger)
	require.NoError(t, rs.start(0))

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), src.reads.Load())
	rs.stop()
}
