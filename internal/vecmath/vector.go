// Package vecmath holds the small 3D vector math shared by the simulation.
package vecmath

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Vector3 is an immutable 3D vector. All operations return new values.
type Vector3 struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	Z float64 `yaml:"z"`
}

// Zero is the zero vector.
var Zero = Vector3{}

func New(x, y, z float64) Vector3 {
	return Vector3{X: x, Y: y, Z: z}
}

func (v Vector3) r3() r3.Vec { return r3.Vec(v) }

func (v Vector3) Add(o Vector3) Vector3 { return Vector3(r3.Add(v.r3(), o.r3())) }

func (v Vector3) Sub(o Vector3) Vector3 { return Vector3(r3.Sub(v.r3(), o.r3())) }

func (v Vector3) Scale(k float64) Vector3 { return Vector3(r3.Scale(k, v.r3())) }

// Norm returns the Euclidean magnitude.
func (v Vector3) Norm() float64 { return r3.Norm(v.r3()) }

func (v Vector3) IsZero() bool { return v == Zero }

// IsFinite reports whether no component is NaN or infinite.
func (v Vector3) IsFinite() bool {
	return IsFinite(v.X) && IsFinite(v.Y) && IsFinite(v.Z)
}

// Unit returns v scaled to magnitude 1, or the zero vector when v is zero or
// has a NaN component.
func (v Vector3) Unit() Vector3 {
	if v.hasNaN() {
		return Zero
	}
	n := v.Norm()
	if n == 0 {
		return Zero
	}
	if math.IsInf(n, 1) {
		v = v.direction()
		n = v.Norm()
	}
	return v.Scale(1 / n)
}

// ClampNorm limits the magnitude of v to max while keeping its direction.
// A non-positive max or a NaN component yields the zero vector. Infinite or
// overflowing vectors come back with magnitude max.
func (v Vector3) ClampNorm(max float64) Vector3 {
	if max <= 0 || v.hasNaN() {
		return Zero
	}
	n := v.Norm()
	if n <= max {
		return v
	}
	if math.IsInf(n, 1) {
		v = v.direction()
		n = v.Norm()
	}
	out := v.Scale(max / n)
	// rounding can leave the result an ulp above max
	for out.Norm() > max {
		out = out.Scale(math.Nextafter(1, 0))
	}
	return out
}

func (v Vector3) hasNaN() bool {
	return math.IsNaN(v.X) || math.IsNaN(v.Y) || math.IsNaN(v.Z)
}

// direction returns a finite vector pointing the same way as v, for vectors
// whose norm does not fit in a float64. Infinite axes dominate finite ones.
func (v Vector3) direction() Vector3 {
	if !v.IsFinite() {
		axis := func(f float64) float64 {
			if math.IsInf(f, 0) {
				return math.Copysign(1, f)
			}
			return 0
		}
		return New(axis(v.X), axis(v.Y), axis(v.Z))
	}
	m := math.Max(math.Abs(v.X), math.Max(math.Abs(v.Y), math.Abs(v.Z)))
	return v.Scale(1 / m)
}

func (v Vector3) String() string {
	return fmt.Sprintf("(%.4f, %.4f, %.4f)", v.X, v.Y, v.Z)
}

// IsFinite reports whether f is neither NaN nor infinite.
func IsFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Clamp limits f to [lo, hi].
func Clamp(f, lo, hi float64) float64 {
	if f < lo {
		return lo
	}
	if f > hi {
		return hi
	}
	return f
}
