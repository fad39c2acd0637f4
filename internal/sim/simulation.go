// Package sim runs the station-keeping loop: sensor, controller, thruster,
// dynamics, telemetry and drift history, one tick at a time.
package sim

import (
	"math/rand/v2"
	"slices"

	"github.com/google/uuid"

	"github.com/tuomaz/stationkeeper/internal/config"
	"github.com/tuomaz/stationkeeper/internal/control"
	"github.com/tuomaz/stationkeeper/internal/history"
	"github.com/tuomaz/stationkeeper/internal/spacecraft"
	"github.com/tuomaz/stationkeeper/internal/telemetry"
	"github.com/tuomaz/stationkeeper/internal/vecmath"
)

// Snapshot is a read-only view of the session after a tick. The slices are
// private copies and are never modified once published.
type Snapshot struct {
	Session uuid.UUID // set by Driver, zero for a bare Simulation

	Tick        uint64
	Time        float64
	State       spacecraft.State
	Observed    vecmath.Vector3
	Output      control.Output
	Applied     vecmath.Vector3
	Mode        history.Mode
	Corrections uint64
	Recording   bool // drift events are being appended to History

	NewEvents []history.Event    // emitted by this tick
	Latest    telemetry.Sample   // zero when no sample is retained
	Recent    []telemetry.Sample // newest plot_window samples
	Telemetry []telemetry.Sample
	History   []history.Event
}

func (s Snapshot) clone() Snapshot {
	s.NewEvents = slices.Clone(s.NewEvents)
	s.Recent = slices.Clone(s.Recent)
	s.Telemetry = slices.Clone(s.Telemetry)
	s.History = slices.Clone(s.History)
	return s
}

// Simulation is the single-threaded core. It is not safe for concurrent use;
// Driver serializes access when ticks come from several sources.
type Simulation struct {
	cfg       config.Config
	newSource func() rand.Source

	satellite  *spacecraft.Satellite
	sensor     *spacecraft.Sensor
	thruster   *spacecraft.Thruster
	controller *control.PIDController
	telemetry  *telemetry.Recorder
	history    *history.Log

	tick        uint64
	elapsed     float64
	corrections uint64
	last        Snapshot
}

// New validates cfg and builds a session in its initial state.
func New(cfg config.Config, opts ...Option) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := buildOptions(cfg, opts)

	s := &Simulation{
		cfg:       cfg,
		newSource: o.newSource,
		satellite: spacecraft.NewSatellite(
			spacecraft.Params{Mass: cfg.SatelliteMass, DriftAcceleration: cfg.DriftAcceleration},
			spacecraft.State{
				Position: cfg.InitialPosition,
				Velocity: cfg.InitialVelocity,
				Target:   cfg.TargetPosition,
			},
		),
		thruster:   spacecraft.NewThruster(cfg.MaxThrustMagnitude),
		controller: control.NewPIDController(cfg.PIDGains, cfg.IntegralClampBound, cfg.DerivativeEpsilon),
		telemetry:  telemetry.NewRecorder(cfg.TelemetryBufferCapacity),
		history:    history.NewLog(cfg.EventBufferCapacity, cfg.OnCourseThreshold),
	}
	s.history.SetRecording(cfg.RecordHistory)
	s.sensor = s.buildSensor()
	s.last = s.initialSnapshot()
	return s, nil
}

func (s *Simulation) buildSensor() *spacecraft.Sensor {
	model, _ := spacecraft.ParseNoiseModel(s.cfg.SensorNoiseModel)
	return spacecraft.NewSensor(s.cfg.SensorNoiseMagnitude, model, s.newSource())
}

func (s *Simulation) initialSnapshot() Snapshot {
	st := s.satellite.State()
	snap := Snapshot{
		State:     st,
		Observed:  st.Position,
		Mode:      s.history.Mode(),
		Recording: s.history.Recording(),
		History:   s.history.Snapshot(),
	}
	s.fillTelemetry(&snap)
	return snap
}

func (s *Simulation) fillTelemetry(snap *Snapshot) {
	snap.Latest, _ = s.telemetry.Latest()
	snap.Recent = s.telemetry.Tail(s.cfg.PlotWindow)
	snap.Telemetry = s.telemetry.Snapshot()
}

func (s *Simulation) Config() config.Config { return s.cfg }

// Tick runs one pass of the loop with a step of dt seconds. A rejected tick
// leaves every part of the session untouched.
func (s *Simulation) Tick(dt float64) (Snapshot, error) {
	if err := spacecraft.ValidateDt(dt); err != nil {
		return Snapshot{}, err
	}

	truth := s.satellite.State()
	observed := s.sensor.Read(truth)

	saved := s.controller.State()
	out, err := s.controller.ComputeThrust(observed, truth.Target, dt)
	if err != nil {
		return Snapshot{}, err
	}
	applied := s.thruster.Clamp(out.Command)

	next, err := s.satellite.Advance(dt, applied)
	if err != nil {
		s.controller.Restore(saved)
		return Snapshot{}, err
	}

	s.tick++
	s.elapsed += dt
	thrust := applied.Norm()
	if thrust > 0 {
		s.corrections++
	}

	s.telemetry.Record(telemetry.Sample{
		Tick:             s.tick,
		Time:             s.elapsed,
		ErrorMagnitude:   out.ErrorMagnitude,
		ThrustMagnitude:  thrust,
		CommandMagnitude: out.Command.Norm(),
		Corrections:      s.corrections,
		Observed:         observed,
	})
	emitted := s.history.Observe(s.tick, s.elapsed, out.ErrorMagnitude, thrust)

	s.last = Snapshot{
		Tick:        s.tick,
		Time:        s.elapsed,
		State:       next,
		Observed:    observed,
		Output:      out,
		Applied:     applied,
		Mode:        s.history.Mode(),
		Corrections: s.corrections,
		Recording:   s.history.Recording(),
		NewEvents:   emitted,
		History:     s.history.Snapshot(),
	}
	s.fillTelemetry(&s.last)
	return s.last.clone(), nil
}

// Snapshot returns the state after the most recent tick or command.
func (s *Simulation) Snapshot() Snapshot {
	return s.last.clone()
}

// TelemetrySnapshot returns the retained telemetry, oldest first.
func (s *Simulation) TelemetrySnapshot() []telemetry.Sample {
	return s.telemetry.Snapshot()
}

// EventSnapshot returns the retained drift events, oldest first.
func (s *Simulation) EventSnapshot() []history.Event {
	return s.history.Snapshot()
}

// Reset returns satellite, controller, noise source, both buffers and the
// recording setting to their configured initial state.
func (s *Simulation) Reset() {
	s.satellite.Reset()
	s.controller.Reset()
	s.telemetry.Reset()
	s.history.Reset()
	s.history.SetRecording(s.cfg.RecordHistory)
	s.sensor = s.buildSensor()
	s.tick = 0
	s.elapsed = 0
	s.corrections = 0
	s.last = s.initialSnapshot()
}

// SetTarget moves the station the controller holds the satellite to.
func (s *Simulation) SetTarget(target vecmath.Vector3) {
	s.satellite.SetTarget(target)
	s.last.State = s.satellite.State()
}

// ClearEvents drops the recorded drift history but keeps the drift mode.
func (s *Simulation) ClearEvents() {
	s.history.Clear()
	s.last.NewEvents = nil
	s.last.History = s.history.Snapshot()
}

// SetRecording turns drift event recording on or off. The drift mode keeps
// following the error either way.
func (s *Simulation) SetRecording(on bool) {
	s.history.SetRecording(on)
	s.last.Recording = on
}
