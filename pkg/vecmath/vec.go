// Package vecmath provides the small value-type vector and quaternion
// algebra shared by the samplers, growth engines and mesh builders.
// All types are float64; mesh buffers convert to float32 at the edge.
package vecmath

import (
	"math"

	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"golang.org/x/exp/constraints"
)

// Vec2 is a point or direction in the ground plane. It shares its layout
// with the sdfx vector so solids and samples convert without copying.
type Vec2 v2.Vec

// Vec3 is a point or direction in world space. +Y is up.
type Vec3 v3.Vec

var (
	Zero    = Vec3{}
	Up      = Vec3{0, 1, 0}
	Down    = Vec3{0, -1, 0}
	Right   = Vec3{1, 0, 0}
	Forward = Vec3{0, 0, 1}
)

func (v Vec2) sdf() v2.Vec { return v2.Vec(v) }

func (v Vec2) Add(o Vec2) Vec2                { return Vec2(v.sdf().Add(o.sdf())) }
func (v Vec2) Sub(o Vec2) Vec2                { return Vec2(v.sdf().Sub(o.sdf())) }
func (v Vec2) MulScalar(s float64) Vec2       { return Vec2(v.sdf().MulScalar(s)) }
func (v Vec2) Dot(o Vec2) float64             { return v.sdf().Dot(o.sdf()) }
func (v Vec2) LengthSquared() float64         { return v.sdf().Length2() }
func (v Vec2) Length() float64                { return v.sdf().Length() }
func (v Vec2) DistanceSquared(o Vec2) float64 { return v.Sub(o).LengthSquared() }
func (v Vec2) Distance(o Vec2) float64        { return v.Sub(o).Length() }

// SDF returns v as an sdfx vector.
func (v Vec3) SDF() v3.Vec { return v3.Vec(v) }

func (v Vec3) Add(o Vec3) Vec3          { return Vec3(v.SDF().Add(o.SDF())) }
func (v Vec3) Sub(o Vec3) Vec3          { return Vec3(v.SDF().Sub(o.SDF())) }
func (v Vec3) MulScalar(s float64) Vec3 { return Vec3(v.SDF().MulScalar(s)) }
func (v Vec3) Neg() Vec3                { return Vec3(v.SDF().Neg()) }
func (v Vec3) Dot(o Vec3) float64       { return v.SDF().Dot(o.SDF()) }
func (v Vec3) Cross(o Vec3) Vec3        { return Vec3(v.SDF().Cross(o.SDF())) }
func (v Vec3) LengthSquared() float64   { return v.SDF().Length2() }
func (v Vec3) Length() float64          { return v.SDF().Length() }

// DistanceSquared returns |v-o|².
func (v Vec3) DistanceSquared(o Vec3) float64 { return v.Sub(o).LengthSquared() }

// Distance returns |v-o|.
func (v Vec3) Distance(o Vec3) float64 { return v.Sub(o).Length() }

// Normalize returns v scaled to unit length. The zero vector stays zero,
// where sdfx would divide by zero.
func (v Vec3) Normalize() Vec3 {
	if v.Length() < 1e-12 {
		return Vec3{}
	}
	return Vec3(v.SDF().Normalize())
}

// IsZero reports whether every component is exactly zero.
func (v Vec3) IsZero() bool { return v.X == 0 && v.Y == 0 && v.Z == 0 }

// Lerp interpolates between a and b.
func Lerp(a, b Vec3, t float64) Vec3 {
	return a.Add(b.Sub(a).MulScalar(t))
}

// Angle returns the unsigned angle between a and b in degrees.
func Angle(a, b Vec3) float64 {
	d := a.Length() * b.Length()
	if d < 1e-15 {
		return 0
	}
	c := Clamp(a.Dot(b)/d, -1, 1)
	return RadToDeg(math.Acos(c))
}

// DegToRad converts degrees to radians.
func DegToRad(deg float64) float64 { return deg * math.Pi / 180 }

// RadToDeg converts radians to degrees.
func RadToDeg(rad float64) float64 { return rad * 180 / math.Pi }

// Clamp limits v to [lo, hi].
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ApproxEqual compares two vectors component-wise within eps.
func ApproxEqual(a, b Vec3, eps float64) bool {
	return a.SDF().Equals(b.SDF(), eps)
}
