// Package history records discrete drift and correction events.
//
// The log runs a two-state machine, OnCourse and Drifting, driven by comparing
// each tick's error magnitude to the on-course threshold:
//
//	OnCourse --(error > threshold)--> Drifting   emits DriftDetected
//	Drifting --(thrust applied)-----> Drifting   emits CorrectionApplied
//	Drifting --(error < threshold)--> OnCourse   emits OnCourseRestored
//
// An error exactly on the threshold never changes state.
package history

import "github.com/tuomaz/stationkeeper/internal/ring"

// Kind classifies an Event.
type Kind int

const (
	DriftDetected Kind = iota
	CorrectionApplied
	OnCourseRestored
)

var kindNames = [...]string{"drift_detected", "correction_applied", "on_course_restored"}

func (k Kind) String() string {
	if int(k) < len(kindNames) && k >= 0 {
		return kindNames[k]
	}
	return "unknown"
}

// Mode is the state of the drift state machine.
type Mode int

const (
	OnCourse Mode = iota
	Drifting
)

func (m Mode) String() string {
	if m == Drifting {
		return "drifting"
	}
	return "on_course"
}

// Event is one entry of the history. Values are never modified after creation.
type Event struct {
	Tick            uint64
	Time            float64
	Kind            Kind
	ErrorMagnitude  float64
	ThrustMagnitude float64
}

// Log holds the most recent events and the current drift mode. While
// recording is off the mode still follows every tick but no events are kept.
type Log struct {
	buf       *ring.Buffer[Event]
	threshold float64
	mode      Mode
	recording bool
}

// NewLog returns an empty log in OnCourse with recording on.
func NewLog(capacity int, threshold float64) *Log {
	return &Log{buf: ring.New[Event](capacity), threshold: threshold, recording: true}
}

func (l *Log) SetRecording(on bool) { l.recording = on }

func (l *Log) Recording() bool { return l.recording }

func (l *Log) Append(e Event) {
	l.buf.Push(e)
}

// Observe classifies one tick, appends the resulting events and returns them.
// With recording off the mode is updated and nil is returned.
func (l *Log) Observe(tick uint64, t, errorMagnitude, thrustMagnitude float64) []Event {
	var emitted []Event
	emit := func(k Kind) {
		if !l.recording {
			return
		}
		e := Event{
			Tick:            tick,
			Time:            t,
			Kind:            k,
			ErrorMagnitude:  errorMagnitude,
			ThrustMagnitude: thrustMagnitude,
		}
		l.Append(e)
		emitted = append(emitted, e)
	}

	switch l.mode {
	case OnCourse:
		if errorMagnitude > l.threshold {
			l.mode = Drifting
			emit(DriftDetected)
			if thrustMagnitude > 0 {
				emit(CorrectionApplied)
			}
		}
	case Drifting:
		if errorMagnitude < l.threshold {
			l.mode = OnCourse
			emit(OnCourseRestored)
		} else if thrustMagnitude > 0 {
			emit(CorrectionApplied)
		}
	}
	return emitted
}

func (l *Log) Mode() Mode { return l.mode }

// Snapshot returns a copy of the retained events, oldest first.
func (l *Log) Snapshot() []Event {
	return l.buf.Slice()
}

func (l *Log) Len() int { return l.buf.Len() }

// Clear drops the recorded events but keeps the current mode.
func (l *Log) Clear() {
	l.buf.Reset()
}

// Reset drops the recorded events and returns to OnCourse. The recording
// setting is kept.
func (l *Log) Reset() {
	l.buf.Reset()
	l.mode = OnCourse
}
