// Package meshbuilder accumulates vertex, normal, UV and index buffers and
// extrudes cylindrical skeleton segments as radial rings and end caps.
package meshbuilder

import (
	"github.com/chewxy/math32"

	"github.com/chazu/verdant/pkg/kernel"
	"github.com/chazu/verdant/pkg/vecmath"
)

// MinRingSegments is the smallest segment count a ring accepts.
const MinRingSegments = 2

// MeshBuilder grows flat mesh buffers. The zero value is ready to use.
type MeshBuilder struct {
	vertices []float32
	normals  []float32
	uvs      []float32
	indices  []uint32
}

// New returns an empty builder.
func New() *MeshBuilder {
	return &MeshBuilder{}
}

// VertexCount returns the number of vertices added so far.
func (b *MeshBuilder) VertexCount() int {
	return len(b.vertices) / 3
}

// AddVertex appends a vertex with its normal and UV and returns its index.
func (b *MeshBuilder) AddVertex(p, n vecmath.Vec3, u, v float32) uint32 {
	b.vertices = append(b.vertices, float32(p.X), float32(p.Y), float32(p.Z))
	b.normals = append(b.normals, float32(n.X), float32(n.Y), float32(n.Z))
	b.uvs = append(b.uvs, u, v)
	return uint32(b.VertexCount() - 1)
}

// AddTriangle appends one triangle by vertex index.
func (b *MeshBuilder) AddTriangle(i0, i1, i2 uint32) {
	b.indices = append(b.indices, i0, i1, i2)
}

// unitCircle returns (cos a, sin a) for the i-th of segments steps.
func unitCircle(i, segments int) (cos, sin float32) {
	angle := 2 * math32.Pi / float32(segments) * float32(i)
	sin, cos = math32.Sincos(angle)
	return cos, sin
}

// BuildRing appends segments+1 vertices on a circle of the given radius
// around center, in the plane perpendicular to orientation's forward
// axis. The first and last vertex coincide so U can run 0..1. When
// buildTriangles is set, each segment is stitched to the ring added
// immediately before this one with two triangles; callers must only set
// it once a previous ring with the same segment count exists.
func (b *MeshBuilder) BuildRing(center vecmath.Vec3, orientation vecmath.Quat, segments int, radius, v float64, buildTriangles bool) {
	if segments < MinRingSegments {
		segments = MinRingSegments
	}
	vertsPerRow := uint32(segments + 1)
	for i := 0; i <= segments; i++ {
		cos, sin := unitCircle(i, segments)
		unit := orientation.Rotate(vecmath.Vec3{X: float64(cos), Y: float64(-sin)})
		base := b.AddVertex(center.Add(unit.MulScalar(radius)), unit, float32(i)/float32(segments), float32(v))

		if i > 0 && buildTriangles && base >= vertsPerRow+1 {
			b.AddTriangle(base, base-vertsPerRow, base-1)
			b.AddTriangle(base-vertsPerRow, base-vertsPerRow-1, base-1)
		}
	}
}

// BuildCap appends a center vertex and segments+1 edge vertices and fans
// triangles from the center. Every cap vertex uses orientation's forward
// axis as its normal.
func (b *MeshBuilder) BuildCap(center vecmath.Vec3, orientation vecmath.Quat, segments int, radius float64) {
	if segments < MinRingSegments {
		segments = MinRingSegments
	}
	normal := orientation.Forward()
	centre := b.AddVertex(center, normal, 0.5, 0.5)

	for i := 0; i <= segments; i++ {
		cos, sin := unitCircle(i, segments)
		unit := orientation.Rotate(vecmath.Vec3{X: float64(cos), Y: float64(sin)})
		u := (float32(unit.X) + 1) * 0.5
		v := (float32(unit.Z) + 1) * 0.5
		base := b.AddVertex(center.Add(unit.MulScalar(radius)), normal, u, v)
		if i > 0 {
			b.AddTriangle(centre, base-1, base)
		}
	}
}

// Mesh returns the accumulated geometry. The builder keeps its buffers,
// so further calls extend the same geometry.
func (b *MeshBuilder) Mesh(name string) *kernel.Mesh {
	return &kernel.Mesh{
		Vertices: append([]float32(nil), b.vertices...),
		Normals:  append([]float32(nil), b.normals...),
		UVs:      append([]float32(nil), b.uvs...),
		Indices:  append([]uint32(nil), b.indices...),
		Name:     name,
	}
}

// Reset clears every buffer.
func (b *MeshBuilder) Reset() {
	b.vertices = b.vertices[:0]
	b.normals = b.normals[:0]
	b.uvs = b.uvs[:0]
	b.indices = b.indices[:0]
}
