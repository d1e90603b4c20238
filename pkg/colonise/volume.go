package colonise

import (
	"math"

	"github.com/chazu/verdant/pkg/rng"
	"github.com/chazu/verdant/pkg/vecmath"
)

// VolumeShape is a closed outline drawn in the tree's local XY plane. The
// first shape of a Volume is the trunk path; the rest are canopy lobes.
type VolumeShape struct {
	Points []vecmath.Vec3 `yaml:"points" json:"points"`
}

// Outline returns the shape projected onto the XY plane.
func (s VolumeShape) Outline() []vecmath.Vec2 {
	out := make([]vecmath.Vec2, len(s.Points))
	for i, p := range s.Points {
		out[i] = vecmath.Vec2{X: p.X, Y: p.Y}
	}
	return out
}

// depth is the mean Z of the shape's points, the plane the outline lies in.
func (s VolumeShape) depth() float64 {
	if len(s.Points) == 0 {
		return 0
	}
	z := 0.0
	for _, p := range s.Points {
		z += p.Z
	}
	return z / float64(len(s.Points))
}

// Contains reports whether p, projected onto the XY plane, lies inside
// the outline.
func (s VolumeShape) Contains(p vecmath.Vec3) bool {
	return vecmath.PointInPolygon(vecmath.Vec2{X: p.X, Y: p.Y}, s.Outline())
}

// Volume is the trunk path plus canopy lobes of one tree.
type Volume struct {
	Shapes []VolumeShape `yaml:"shapes" json:"shapes"`
}

// Trunk returns the trunk path shape.
func (v *Volume) Trunk() (VolumeShape, bool) {
	if v == nil || len(v.Shapes) == 0 || len(v.Shapes[0].Points) == 0 {
		return VolumeShape{}, false
	}
	return v.Shapes[0], true
}

// Canopy returns the canopy lobes.
func (v *Volume) Canopy() []VolumeShape {
	if v == nil || len(v.Shapes) < 2 {
		return nil
	}
	return v.Shapes[1:]
}

// CanopyWidths interpolates lateral spread along a lobe's height: Bottom
// at the lowest point, Middle halfway up and Top at the highest point.
type CanopyWidths struct {
	Bottom float64
	Middle float64
	Top    float64
}

// At returns the width at normalised height h in [0, 1].
func (w CanopyWidths) At(h float64) float64 {
	h = vecmath.Clamp(h, 0, 1)
	if h < 0.5 {
		return w.Bottom + (w.Middle-w.Bottom)*h*2
	}
	return w.Middle + (w.Top-w.Middle)*(h-0.5)*2
}

// maxSeedAttempts bounds rejection sampling per requested point.
const maxSeedAttempts = 64

// SeedLeaves scatters attraction points through every canopy lobe. Each
// lobe receives about density points per unit of outline area, drawn
// uniformly inside the outline and pushed out of its plane by a random
// offset of up to half the lobe's width scaled by widths at that height.
// Points closer than separation to an earlier point are dropped.
func (v *Volume) SeedLeaves(density float64, widths CanopyWidths, separation float64, src rng.Source) []vecmath.Vec3 {
	var points []vecmath.Vec3
	for _, shape := range v.Canopy() {
		points = append(points, seedShape(shape, density, widths, src)...)
	}
	return thin(points, separation)
}

func seedShape(shape VolumeShape, density float64, widths CanopyWidths, src rng.Source) []vecmath.Vec3 {
	outline := shape.Outline()
	area := vecmath.PolygonArea(outline)
	if area <= 0 || density <= 0 {
		return nil
	}
	want := int(math.Round(density * area))
	if want < 1 {
		want = 1
	}
	lo, hi := vecmath.BoundsOf(outline)
	halfWidth := (hi.X - lo.X) / 2
	height := hi.Y - lo.Y
	z := shape.depth()

	points := make([]vecmath.Vec3, 0, want)
	for attempts := 0; len(points) < want && attempts < want*maxSeedAttempts; attempts++ {
		p := vecmath.Vec2{
			X: rng.Range(src, lo.X, hi.X),
			Y: rng.Range(src, lo.Y, hi.Y),
		}
		if !vecmath.PointInPolygon(p, outline) {
			continue
		}
		h := 0.0
		if height > 0 {
			h = (p.Y - lo.Y) / height
		}
		jitter := rng.Range(src, -1, 1) * halfWidth * widths.At(h)
		points = append(points, vecmath.Vec3{X: p.X, Y: p.Y, Z: z + jitter})
	}
	return points
}

// thin keeps each point only if no earlier kept point lies within
// separation of it.
func thin(points []vecmath.Vec3, separation float64) []vecmath.Vec3 {
	if separation <= 0 {
		return points
	}
	sep2 := separation * separation
	kept := points[:0:0]
	for _, p := range points {
		clear := true
		for _, k := range kept {
			if p.DistanceSquared(k) < sep2 {
				clear = false
				break
			}
		}
		if clear {
			kept = append(kept, p)
		}
	}
	return kept
}

// SphereEnvelope is an alternative leaf source: Count points uniformly
// inside a sphere.
type SphereEnvelope struct {
	Center vecmath.Vec3 `yaml:"center" json:"center"`
	Radius float64      `yaml:"radius" json:"radius"`
	Count  int          `yaml:"count" json:"count"`
}

// Points draws the envelope's attraction points.
func (e SphereEnvelope) Points(src rng.Source) []vecmath.Vec3 {
	out := make([]vecmath.Vec3, 0, max(e.Count, 0))
	for i := 0; i < e.Count; i++ {
		out = append(out, rng.InsideUnitSphere(src).MulScalar(e.Radius).Add(e.Center))
	}
	return out
}

// Contains reports whether p lies inside the sphere.
func (e SphereEnvelope) Contains(p vecmath.Vec3) bool {
	return p.DistanceSquared(e.Center) <= e.Radius*e.Radius
}
