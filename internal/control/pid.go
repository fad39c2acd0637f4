// Package control holds the station-keeping controller.
package control

import (
	"github.com/tuomaz/stationkeeper/internal/spacecraft"
	"github.com/tuomaz/stationkeeper/internal/vecmath"
)

// DefaultDerivativeEpsilon is the smallest dt for which the derivative term
// is computed.
const DefaultDerivativeEpsilon = 1e-9

// Gains are the PID tuning constants.
type Gains struct {
	Kp float64 `yaml:"kp"`
	Ki float64 `yaml:"ki"`
	Kd float64 `yaml:"kd"`
}

// State is the memory the controller carries between ticks.
type State struct {
	Integral  vecmath.Vector3
	LastError vecmath.Vector3
	Primed    bool // LastError holds a finite value
}

// Output is the result of one controller update.
type Output struct {
	Command        vecmath.Vector3
	Error          vecmath.Vector3
	ErrorMagnitude float64

	P vecmath.Vector3
	I vecmath.Vector3
	D vecmath.Vector3
}

// PIDController computes corrective thrust from position error. Calls must
// arrive in tick order from a single goroutine.
type PIDController struct {
	Gains
	IntegralLimit     float64
	DerivativeEpsilon float64

	state State
}

func NewPIDController(gains Gains, integralLimit, derivativeEpsilon float64) *PIDController {
	if derivativeEpsilon <= 0 {
		derivativeEpsilon = DefaultDerivativeEpsilon
	}
	return &PIDController{
		Gains:             gains,
		IntegralLimit:     integralLimit,
		DerivativeEpsilon: derivativeEpsilon,
	}
}

// ComputeThrust returns the thrust command that moves observed towards target.
func (p *PIDController) ComputeThrust(observed, target vecmath.Vector3, dt float64) (Output, error) {
	if err := spacecraft.ValidateDt(dt); err != nil {
		return Output{}, err
	}

	err := target.Sub(observed)

	// Proportional term
	P := err.Scale(p.Kp)

	// Integral term, magnitude clamped against windup
	// never store a non-finite integral
	if integral := p.state.Integral.Add(err.Scale(dt)).ClampNorm(p.IntegralLimit); integral.IsFinite() {
		p.state.Integral = integral
	}
	I := p.state.Integral.Scale(p.Ki)

	// Derivative term, undefined on the first tick and unstable for tiny dt
	D := vecmath.Zero
	if p.state.Primed && dt >= p.DerivativeEpsilon {
		D = err.Sub(p.state.LastError).Scale(p.Kd / dt)
	}

	p.state.LastError = err
	p.state.Primed = err.IsFinite()

	return Output{
		Command:        P.Add(I).Add(D),
		Error:          err,
		ErrorMagnitude: err.Norm(),
		P:              P,
		I:              I,
		D:              D,
	}, nil
}

func (p *PIDController) State() State { return p.state }

// Restore puts back a state previously returned by State.
func (p *PIDController) Restore(s State) { p.state = s }

// Reset clears the integral and derivative memory.
func (p *PIDController) Reset() { p.state = State{} }
