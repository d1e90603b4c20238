package kernel

// Mesh is a triangle mesh suitable for rendering.
// All arrays are flat: vertices has 3 floats per vertex (x,y,z),
// normals has 3 floats per vertex, uvs has 2 floats per vertex and
// indices has 3 uint32s per triangle. UVs may be empty for meshes that
// carry no texture coordinates (kernel solids).
type Mesh struct {
	Vertices []float32 `json:"vertices" yaml:"-"` // [x0,y0,z0, x1,y1,z1, ...]
	Normals  []float32 `json:"normals" yaml:"-"`  // [nx0,ny0,nz0, ...]
	UVs      []float32 `json:"uvs" yaml:"-"`      // [u0,v0, u1,v1, ...]
	Indices  []uint32  `json:"indices" yaml:"-"`  // [i0,i1,i2, ...] triangles
	Name     string    `json:"name" yaml:"name"`  // which skeleton or solid this came from
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0
}

// Vertex returns vertex i as float64 components.
func (m *Mesh) Vertex(i int) [3]float64 {
	return [3]float64{
		float64(m.Vertices[i*3]),
		float64(m.Vertices[i*3+1]),
		float64(m.Vertices[i*3+2]),
	}
}

// Append copies other's geometry into m, offsetting its indices. UVs are
// kept only while both meshes carry them for every vertex.
func (m *Mesh) Append(other *Mesh) {
	if other == nil || other.IsEmpty() {
		return
	}
	base := uint32(m.VertexCount())
	keepUVs := len(m.UVs) == m.VertexCount()*2 && len(other.UVs) == other.VertexCount()*2

	m.Vertices = append(m.Vertices, other.Vertices...)
	m.Normals = append(m.Normals, other.Normals...)
	if keepUVs {
		m.UVs = append(m.UVs, other.UVs...)
	} else {
		m.UVs = nil
	}
	for _, idx := range other.Indices {
		m.Indices = append(m.Indices, base+idx)
	}
}

// Bounds returns the axis-aligned bounds of the vertices. ok is false for
// an empty mesh.
func (m *Mesh) Bounds() (min, max [3]float64, ok bool) {
	if m.IsEmpty() {
		return min, max, false
	}
	min = m.Vertex(0)
	max = min
	for i := 1; i < m.VertexCount(); i++ {
		v := m.Vertex(i)
		for a := 0; a < 3; a++ {
			if v[a] < min[a] {
				min[a] = v[a]
			}
			if v[a] > max[a] {
				max[a] = v[a]
			}
		}
	}
	return min, max, true
}
