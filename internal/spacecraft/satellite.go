// Package spacecraft models the satellite body, its thruster and its position sensor.
package spacecraft

import (
	"fmt"

	"github.com/tuomaz/stationkeeper/internal/vecmath"
)

// InvalidTickError is returned when a step is requested with a non-positive
// or non-finite duration.
type InvalidTickError struct {
	Dt float64
}

func (e *InvalidTickError) Error() string {
	return fmt.Sprintf("invalid tick duration %v: must be positive and finite", e.Dt)
}

// ValidateDt returns an *InvalidTickError unless dt is positive and finite.
func ValidateDt(dt float64) error {
	if !(dt > 0) || !vecmath.IsFinite(dt) {
		return &InvalidTickError{Dt: dt}
	}
	return nil
}

// State is the kinematic state of the satellite.
type State struct {
	Position vecmath.Vector3
	Velocity vecmath.Vector3
	Target   vecmath.Vector3
}

// Error returns the offset from the current position to the target.
func (s State) Error() vecmath.Vector3 {
	return s.Target.Sub(s.Position)
}

// Params are the physical constants of the drift model.
type Params struct {
	Mass              float64
	DriftAcceleration vecmath.Vector3
}

// Step integrates one explicit Euler step of drift plus thrust. It is a pure
// function: identical inputs always give identical output.
func Step(s State, p Params, dt float64, thrust vecmath.Vector3) (State, error) {
	if err := ValidateDt(dt); err != nil {
		return s, err
	}

	accel := p.DriftAcceleration.Add(thrust.Scale(1 / p.Mass))

	next := s
	next.Position = s.Position.Add(s.Velocity.Scale(dt))
	next.Velocity = s.Velocity.Add(accel.Scale(dt))
	return next, nil
}

// Satellite owns the simulated state and is the only thing that mutates it.
type Satellite struct {
	params  Params
	initial State
	state   State
}

func NewSatellite(p Params, initial State) *Satellite {
	return &Satellite{params: p, initial: initial, state: initial}
}

func (s *Satellite) State() State { return s.state }

// Advance moves the satellite forward by dt under the applied thrust. On
// error the held state is left unchanged.
func (s *Satellite) Advance(dt float64, thrust vecmath.Vector3) (State, error) {
	next, err := Step(s.state, s.params, dt, thrust)
	if err != nil {
		return s.state, err
	}
	s.state = next
	return next, nil
}

// SetTarget changes the station the satellite is asked to hold.
func (s *Satellite) SetTarget(target vecmath.Vector3) {
	s.state.Target = target
}

// Reset restores the state the satellite was created with.
func (s *Satellite) Reset() {
	s.state = s.initial
}
