package spacecraft

import "github.com/tuomaz/stationkeeper/internal/vecmath"

// Thruster bounds the commanded thrust to what the hardware can deliver.
type Thruster struct {
	MaxThrust float64
}

func NewThruster(maxThrust float64) *Thruster {
	return &Thruster{MaxThrust: maxThrust}
}

// Clamp returns the thrust actually applied for a command. The direction is
// kept and the magnitude never exceeds MaxThrust. An infinite command fires
// at full thrust; a NaN command fires nothing.
func (t *Thruster) Clamp(commanded vecmath.Vector3) vecmath.Vector3 {
	return commanded.ClampNorm(t.MaxThrust)
}
