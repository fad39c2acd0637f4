package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func kinds(events []Event) []Kind {
	out := make([]Kind, len(events))
	for i, e := range events {
		out[i] = e.Kind
	}
	return out
}

func TestLog_DriftCycle(t *testing.T) {
	l := NewLog(100, 0.1)

	errors := []float64{0.05, 0.5, 0.4, 0.2, 0.05, 0.01}
	for i, e := range errors {
		l.Observe(uint64(i+1), float64(i+1), e, 1.0)
	}

	assert.Equal(t, []Kind{
		DriftDetected,
		CorrectionApplied,
		CorrectionApplied,
		CorrectionApplied,
		OnCourseRestored,
	}, kinds(l.Snapshot()))
	assert.Equal(t, OnCourse, l.Mode())
}

func TestLog_FirstTickAboveThreshold(t *testing.T) {
	l := NewLog(10, 0.1)

	emitted := l.Observe(1, 1, 1.0, 1.0)

	assert.Equal(t, []Kind{DriftDetected, CorrectionApplied}, kinds(emitted))
	assert.Equal(t, Drifting, l.Mode())
	assert.Equal(t, 1.0, emitted[0].ErrorMagnitude)
}

func TestLog_NoThrustNoCorrection(t *testing.T) {
	l := NewLog(10, 0.1)

	l.Observe(1, 1, 1.0, 0)
	l.Observe(2, 2, 1.0, 0)

	assert.Equal(t, []Kind{DriftDetected}, kinds(l.Snapshot()))
}

func TestLog_ThresholdHoldsState(t *testing.T) {
	l := NewLog(10, 0.1)

	assert.Empty(t, l.Observe(1, 1, 0.1, 1))
	assert.Equal(t, OnCourse, l.Mode())

	l.Observe(2, 2, 0.2, 0)
	assert.Empty(t, l.Observe(3, 3, 0.1, 0))
	assert.Equal(t, Drifting, l.Mode())
}

func TestLog_BoundedMemory(t *testing.T) {
	l := NewLog(4, 0.1)
	for i := 0; i < 100; i++ {
		l.Observe(uint64(i), float64(i), 1.0, 1.0)
	}

	snap := l.Snapshot()
	assert.Len(t, snap, 4)
	assert.Equal(t, uint64(99), snap[3].Tick)
	assert.Equal(t, uint64(96), snap[0].Tick)
}

func TestLog_ClearAndReset(t *testing.T) {
	l := NewLog(10, 0.1)
	l.Observe(1, 1, 1.0, 1.0)

	l.Clear()
	assert.Equal(t, 0, l.Len())
	assert.Equal(t, Drifting, l.Mode())

	l.Reset()
	assert.Equal(t, OnCourse, l.Mode())
}

func TestLog_RecordingOff(t *testing.T) {
	l := NewLog(10, 0.1)
	l.SetRecording(false)
	assert.False(t, l.Recording())

	assert.Nil(t, l.Observe(1, 1, 1.0, 1.0))
	assert.Equal(t, Drifting, l.Mode(), "mode follows ticks while not recording")
	assert.Nil(t, l.Observe(2, 2, 0.5, 1.0))
	assert.Equal(t, 0, l.Len())

	// recording resumes mid-drift: no second DriftDetected
	l.SetRecording(true)
	assert.Equal(t, []Kind{CorrectionApplied}, kinds(l.Observe(3, 3, 0.5, 1.0)))
	assert.Equal(t, []Kind{OnCourseRestored}, kinds(l.Observe(4, 4, 0.01, 0)))

	l.SetRecording(false)
	l.Observe(5, 5, 1.0, 1.0)
	assert.Equal(t, Drifting, l.Mode())
	assert.Equal(t, []Kind{CorrectionApplied, OnCourseRestored}, kinds(l.Snapshot()))

	l.Reset()
	assert.False(t, l.Recording(), "reset keeps the recording setting")
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "drift_detected", DriftDetected.String())
	assert.Equal(t, "on_course_restored", OnCourseRestored.String())
	assert.Equal(t, "unknown", Kind(42).String())
	assert.Equal(t, "drifting", Drifting.String())
}
