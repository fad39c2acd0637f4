// Package telemetry keeps a rolling window of per-tick samples for live plots.
package telemetry

import (
	"github.com/tuomaz/stationkeeper/internal/ring"
	"github.com/tuomaz/stationkeeper/internal/vecmath"
)

// Sample is one telemetry record. Values are never modified after creation.
type Sample struct {
	Tick             uint64
	Time             float64 // simulated seconds since session start
	ErrorMagnitude   float64
	ThrustMagnitude  float64 // applied, after clamping
	CommandMagnitude float64
	Corrections      uint64 // cumulative ticks with non-zero applied thrust
	Observed         vecmath.Vector3
}

// Recorder appends samples to a fixed-capacity buffer, dropping the oldest
// when full.
type Recorder struct {
	buf *ring.Buffer[Sample]
}

func NewRecorder(capacity int) *Recorder {
	return &Recorder{buf: ring.New[Sample](capacity)}
}

func (r *Recorder) Record(s Sample) {
	r.buf.Push(s)
}

// Snapshot returns a copy of the retained samples, oldest first.
func (r *Recorder) Snapshot() []Sample {
	return r.buf.Slice()
}

// Tail returns a copy of the newest n samples, oldest first.
func (r *Recorder) Tail(n int) []Sample {
	return r.buf.Tail(n)
}

func (r *Recorder) Latest() (Sample, bool) {
	return r.buf.Last()
}

func (r *Recorder) Len() int { return r.buf.Len() }

func (r *Recorder) Reset() { r.buf.Reset() }
