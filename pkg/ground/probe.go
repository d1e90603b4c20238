package ground

import (
	"github.com/chazu/verdant/pkg/kernel"
	"github.com/chazu/verdant/pkg/vecmath"
)

// FlatProbe is an infinite horizontal plane at Height. Rays that start
// above it and point downward always hit.
type FlatProbe struct {
	Height float64
	Object string
	// Normal overrides the reported surface normal. Zero means up.
	Normal vecmath.Vec3
}

func (f FlatProbe) Probe(origin, dir vecmath.Vec3) (Hit, bool) {
	if dir.Y >= 0 || origin.Y < f.Height {
		return Hit{}, false
	}
	t := (origin.Y - f.Height) / -dir.Y
	n := f.Normal
	if n.IsZero() {
		n = vecmath.Up
	}
	return Hit{Point: origin.Add(dir.MulScalar(t)), Normal: n.Normalize(), Object: f.Object}, true
}

// Object is a named solid in a probe scene.
type Object struct {
	Name  string
	Solid kernel.Solid
}

// SolidProbe sphere-traces rays through a set of signed distance solids.
type SolidProbe struct {
	Objects     []Object
	MaxDistance float64
	Epsilon     float64
	MaxSteps    int
}

const (
	defaultMaxDistance = 1000
	defaultEpsilon     = 1e-4
	defaultMaxSteps    = 512
)

// NewSolidProbe returns a probe over objects with default march limits.
func NewSolidProbe(objects ...Object) *SolidProbe {
	return &SolidProbe{
		Objects:     objects,
		MaxDistance: defaultMaxDistance,
		Epsilon:     defaultEpsilon,
		MaxSteps:    defaultMaxSteps,
	}
}

// nearest returns the smallest distance from p to any object and that
// object's index.
func (sp *SolidProbe) nearest(p vecmath.Vec3) (float64, int) {
	best, idx := 0.0, -1
	for i, o := range sp.Objects {
		d := o.Solid.Distance([3]float64{p.X, p.Y, p.Z})
		if idx < 0 || d < best {
			best, idx = d, i
		}
	}
	return best, idx
}

func (sp *SolidProbe) Probe(origin, dir vecmath.Vec3) (Hit, bool) {
	if len(sp.Objects) == 0 || dir.IsZero() {
		return Hit{}, false
	}
	dir = dir.Normalize()
	eps := sp.Epsilon
	if eps <= 0 {
		eps = defaultEpsilon
	}
	maxDist := sp.MaxDistance
	if maxDist <= 0 {
		maxDist = defaultMaxDistance
	}
	steps := sp.MaxSteps
	if steps <= 0 {
		steps = defaultMaxSteps
	}

	t := 0.0
	for i := 0; i < steps && t <= maxDist; i++ {
		p := origin.Add(dir.MulScalar(t))
		d, idx := sp.nearest(p)
		if d < eps {
			obj := sp.Objects[idx]
			return Hit{Point: p, Normal: gradient(obj.Solid, p, eps), Object: obj.Name}, true
		}
		t += d
	}
	return Hit{}, false
}

// gradient estimates the surface normal of s at p by central differences.
func gradient(s kernel.Solid, p vecmath.Vec3, h float64) vecmath.Vec3 {
	at := func(x, y, z float64) float64 { return s.Distance([3]float64{x, y, z}) }
	n := vecmath.Vec3{
		X: at(p.X+h, p.Y, p.Z) - at(p.X-h, p.Y, p.Z),
		Y: at(p.X, p.Y+h, p.Z) - at(p.X, p.Y-h, p.Z),
		Z: at(p.X, p.Y, p.Z+h) - at(p.X, p.Y, p.Z-h),
	}
	if n.IsZero() {
		return vecmath.Up
	}
	return n.Normalize()
}
