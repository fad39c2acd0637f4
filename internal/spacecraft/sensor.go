package spacecraft

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/tuomaz/stationkeeper/internal/vecmath"
)

// NoiseModel selects the distribution of position measurement noise.
type NoiseModel string

const (
	// NoiseUniform draws each axis from U[-m, m].
	NoiseUniform NoiseModel = "uniform"
	// NoiseGaussian draws each axis from N(0, (m/3)^2) truncated to [-m, m].
	NoiseGaussian NoiseModel = "gaussian"
)

// ParseNoiseModel maps a configuration string to a NoiseModel. The empty
// string selects NoiseUniform.
func ParseNoiseModel(s string) (NoiseModel, error) {
	switch NoiseModel(s) {
	case "", NoiseUniform:
		return NoiseUniform, nil
	case NoiseGaussian:
		return NoiseGaussian, nil
	}
	return "", fmt.Errorf("unknown noise model %q", s)
}

// NewSource returns a deterministic random source for seed.
func NewSource(seed uint64) rand.Source {
	return rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
}

// NewLiveSource returns a source seeded from the runtime generator.
func NewLiveSource() rand.Source {
	return rand.NewPCG(rand.Uint64(), rand.Uint64())
}

// Sensor reports the satellite position with bounded measurement noise.
type Sensor struct {
	magnitude float64
	model     NoiseModel
	sample    func() float64
}

// NewSensor builds a sensor whose per-axis noise never exceeds magnitude.
func NewSensor(magnitude float64, model NoiseModel, src rand.Source) *Sensor {
	s := &Sensor{magnitude: magnitude, model: model}

	switch model {
	case NoiseGaussian:
		dist := distuv.Normal{Mu: 0, Sigma: magnitude / 3, Src: src}
		s.sample = func() float64 {
			return vecmath.Clamp(dist.Rand(), -magnitude, magnitude)
		}
	default:
		s.model = NoiseUniform
		dist := distuv.Uniform{Min: -magnitude, Max: magnitude, Src: src}
		s.sample = dist.Rand
	}
	return s
}

func (s *Sensor) Model() NoiseModel { return s.model }

// Read returns the observed position for the true state.
func (s *Sensor) Read(truth State) vecmath.Vector3 {
	if s.magnitude <= 0 {
		return truth.Position
	}
	noise := vecmath.New(s.sample(), s.sample(), s.sample())
	return truth.Position.Add(noise)
}
