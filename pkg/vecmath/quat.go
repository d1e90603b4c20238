package vecmath

import "math"

// Quat is a unit rotation quaternion.
type Quat struct {
	X, Y, Z, W float64
}

// Identity is the no-op rotation.
var Identity = Quat{W: 1}

// AngleAxis returns a rotation of deg degrees around axis.
// A zero axis yields the identity.
func AngleAxis(deg float64, axis Vec3) Quat {
	n := axis.Normalize()
	if n.IsZero() {
		return Identity
	}
	half := DegToRad(deg) / 2
	s := math.Sin(half)
	return Quat{n.X * s, n.Y * s, n.Z * s, math.Cos(half)}
}

// Mul composes q then r applied as q*r (r is applied first).
func (q Quat) Mul(r Quat) Quat {
	return Quat{
		X: q.W*r.X + q.X*r.W + q.Y*r.Z - q.Z*r.Y,
		Y: q.W*r.Y - q.X*r.Z + q.Y*r.W + q.Z*r.X,
		Z: q.W*r.Z + q.X*r.Y - q.Y*r.X + q.Z*r.W,
		W: q.W*r.W - q.X*r.X - q.Y*r.Y - q.Z*r.Z,
	}
}

// Rotate applies q to v.
func (q Quat) Rotate(v Vec3) Vec3 {
	u := Vec3{q.X, q.Y, q.Z}
	t := u.Cross(v).MulScalar(2)
	return v.Add(t.MulScalar(q.W)).Add(u.Cross(t))
}

// Forward is the rotated +Z axis.
func (q Quat) Forward() Vec3 { return q.Rotate(Forward) }

// Up is the rotated +Y axis.
func (q Quat) Up() Vec3 { return q.Rotate(Up) }

// RightAxis is the rotated +X axis.
func (q Quat) RightAxis() Vec3 { return q.Rotate(Right) }

// LookRotation returns the rotation whose forward axis points along
// forward, keeping its up axis as close to up as possible. When forward
// is parallel to up, +X is used as the reference instead. A zero forward
// yields the identity.
func LookRotation(forward, up Vec3) Quat {
	f := forward.Normalize()
	if f.IsZero() {
		return Identity
	}
	r := up.Cross(f)
	if r.LengthSquared() < 1e-12 {
		r = Right.Cross(f)
		if r.LengthSquared() < 1e-12 {
			r = Forward.Cross(f)
		}
	}
	r = r.Normalize()
	u := f.Cross(r)
	return fromBasis(r, u, f)
}

// fromBasis converts an orthonormal basis (columns right, up, forward)
// into a quaternion.
func fromBasis(r, u, f Vec3) Quat {
	m00, m01, m02 := r.X, u.X, f.X
	m10, m11, m12 := r.Y, u.Y, f.Y
	m20, m21, m22 := r.Z, u.Z, f.Z

	trace := m00 + m11 + m22
	var q Quat
	switch {
	case trace > 0:
		s := math.Sqrt(trace+1) * 2
		q = Quat{
			X: (m21 - m12) / s,
			Y: (m02 - m20) / s,
			Z: (m10 - m01) / s,
			W: s / 4,
		}
	case m00 > m11 && m00 > m22:
		s := math.Sqrt(1+m00-m11-m22) * 2
		q = Quat{
			X: s / 4,
			Y: (m01 + m10) / s,
			Z: (m02 + m20) / s,
			W: (m21 - m12) / s,
		}
	case m11 > m22:
		s := math.Sqrt(1+m11-m00-m22) * 2
		q = Quat{
			X: (m01 + m10) / s,
			Y: s / 4,
			Z: (m12 + m21) / s,
			W: (m02 - m20) / s,
		}
	default:
		s := math.Sqrt(1+m22-m00-m11) * 2
		q = Quat{
			X: (m02 + m20) / s,
			Y: (m12 + m21) / s,
			Z: s / 4,
			W: (m10 - m01) / s,
		}
	}
	return q.Normalize()
}

// Normalize rescales q to unit length.
func (q Quat) Normalize() Quat {
	l := math.Sqrt(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W)
	if l < 1e-15 {
		return Identity
	}
	return Quat{q.X / l, q.Y / l, q.Z / l, q.W / l}
}

// YawRotation returns a rotation of deg degrees about +Y.
func YawRotation(deg float64) Quat {
	return AngleAxis(deg, Up)
}
