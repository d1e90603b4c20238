// Package ground projects 2D placement samples onto world geometry through
// an abstract downward probe, rejecting positions on steep slopes or
// crowded by other scene objects.
package ground

import (
	"errors"

	"github.com/chazu/verdant/pkg/sampling"
	"github.com/chazu/verdant/pkg/vecmath"
)

const (
	// DefaultMaxIncline is the steepest accepted slope, in degrees.
	DefaultMaxIncline = 10.0
	// DefaultCheckHeightOffset is added to the top of the ground bounds to
	// get the height probes start from.
	DefaultCheckHeightOffset = 5.0
)

// ErrNoProbe is returned when a projector is built without a probe.
var ErrNoProbe = errors.New("ground: no probe configured")

// Hit is the result of a successful probe.
type Hit struct {
	Point  vecmath.Vec3
	Normal vecmath.Vec3
	Object string
}

// Probe casts a ray and reports the first surface it meets.
type Probe interface {
	Probe(origin, dir vecmath.Vec3) (Hit, bool)
}

// ProbeFunc adapts a function to the Probe interface.
type ProbeFunc func(origin, dir vecmath.Vec3) (Hit, bool)

func (f ProbeFunc) Probe(origin, dir vecmath.Vec3) (Hit, bool) { return f(origin, dir) }

// Projector validates samples against one target surface.
type Projector struct {
	Probe       Probe
	Target      string
	MaxIncline  float64
	CheckHeight float64
}

// NewProjector returns a projector that accepts hits on target whose slope
// is below maxIncline degrees. A non-positive maxIncline selects
// DefaultMaxIncline.
func NewProjector(probe Probe, target string, maxIncline, checkHeight float64) (*Projector, error) {
	if probe == nil {
		return nil, ErrNoProbe
	}
	if maxIncline <= 0 {
		maxIncline = DefaultMaxIncline
	}
	return &Projector{
		Probe:       probe,
		Target:      target,
		MaxIncline:  maxIncline,
		CheckHeight: checkHeight,
	}, nil
}

// CheckHeight returns the probe start height for ground bounds.
func CheckHeight(b sampling.Bounds, offset float64) float64 {
	return b.Max.Y + offset
}

func (p *Projector) origin(s sampling.Sample) vecmath.Vec3 {
	return vecmath.Vec3{X: s.Position.X, Y: p.CheckHeight, Z: s.Position.Y}
}

// Validate probes straight down from the sample. It returns the sample
// with World set to the hit point when the probe lands on the target and
// the surface normal is within MaxIncline of up.
func (p *Projector) Validate(s sampling.Sample) (sampling.Sample, bool) {
	hit, ok := p.Probe.Probe(p.origin(s), vecmath.Down)
	if !ok || hit.Object != p.Target {
		return s, false
	}
	if vecmath.Angle(vecmath.Up, hit.Normal) >= p.MaxIncline {
		return s, false
	}
	s.World = hit.Point
	return s, true
}

// CheckEncroachment probes at the four points one outer radius away from
// the sample along ±X and ±Z. It reports true when any of them lands on
// something other than the target.
func (p *Projector) CheckEncroachment(s sampling.Sample) bool {
	o := p.origin(s)
	r := s.Outer
	offsets := [4]vecmath.Vec3{{Z: r}, {Z: -r}, {X: r}, {X: -r}}
	for _, off := range offsets {
		hit, ok := p.Probe.Probe(o.Add(off), vecmath.Down)
		if ok && hit.Object != p.Target {
			return true
		}
	}
	return false
}
