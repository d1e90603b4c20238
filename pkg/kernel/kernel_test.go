package kernel

import "testing"

// --- Mesh helper method tests ---

func TestMeshVertexCount(t *testing.T) {
	tests := []struct {
		name     string
		vertices []float32
		want     int
	}{
		{"empty", nil, 0},
		{"one vertex", []float32{1, 2, 3}, 1},
		{"four vertices", []float32{0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Mesh{Vertices: tt.vertices}
			if got := m.VertexCount(); got != tt.want {
				t.Errorf("VertexCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMeshTriangleCount(t *testing.T) {
	tests := []struct {
		name    string
		indices []uint32
		want    int
	}{
		{"empty", nil, 0},
		{"one triangle", []uint32{0, 1, 2}, 1},
		{"two triangles", []uint32{0, 1, 2, 2, 3, 0}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Mesh{Indices: tt.indices}
			if got := m.TriangleCount(); got != tt.want {
				t.Errorf("TriangleCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMeshIsEmpty(t *testing.T) {
	t.Run("empty mesh", func(t *testing.T) {
		m := &Mesh{}
		if !m.IsEmpty() {
			t.Error("IsEmpty() = false for empty mesh, want true")
		}
	})
	t.Run("non-empty mesh", func(t *testing.T) {
		m := &Mesh{Vertices: []float32{1, 2, 3}}
		if m.IsEmpty() {
			t.Error("IsEmpty() = true for non-empty mesh, want false")
		}
	})
}

func triangle(z float32) *Mesh {
	return &Mesh{
		Vertices: []float32{0, 0, z, 1, 0, z, 0, 1, z},
		Normals:  []float32{0, 0, 1, 0, 0, 1, 0, 0, 1},
		UVs:      []float32{0, 0, 1, 0, 0, 1},
		Indices:  []uint32{0, 1, 2},
	}
}

func TestMeshAppendOffsetsIndices(t *testing.T) {
	m := triangle(0)
	m.Append(triangle(1))

	if m.VertexCount() != 6 || m.TriangleCount() != 2 {
		t.Fatalf("got %d vertices / %d triangles, want 6 / 2", m.VertexCount(), m.TriangleCount())
	}
	want := []uint32{0, 1, 2, 3, 4, 5}
	for i, idx := range want {
		if m.Indices[i] != idx {
			t.Errorf("Indices[%d] = %d, want %d", i, m.Indices[i], idx)
		}
	}
	if len(m.UVs) != 12 {
		t.Errorf("len(UVs) = %d, want 12", len(m.UVs))
	}
}

func TestMeshAppendDropsPartialUVs(t *testing.T) {
	m := triangle(0)
	other := triangle(1)
	other.UVs = nil
	m.Append(other)
	if m.UVs != nil {
		t.Errorf("UVs should be dropped when one side has none, got %d floats", len(m.UVs))
	}
}

func TestMeshAppendEmpty(t *testing.T) {
	m := triangle(0)
	m.Append(&Mesh{})
	m.Append(nil)
	if m.VertexCount() != 3 {
		t.Errorf("VertexCount() = %d after appending empty meshes, want 3", m.VertexCount())
	}
}

func TestMeshBounds(t *testing.T) {
	if _, _, ok := (&Mesh{}).Bounds(); ok {
		t.Error("Bounds() ok = true for empty mesh")
	}
	m := triangle(2)
	min, max, ok := m.Bounds()
	if !ok {
		t.Fatal("Bounds() ok = false")
	}
	if min != [3]float64{0, 0, 2} || max != [3]float64{1, 1, 2} {
		t.Errorf("Bounds() = %v..%v", min, max)
	}
}

// --- Compile-time interface check with a stub kernel ---

// stubSolid is an axis-aligned box solid with an exact distance field
// for points outside it.
type stubSolid struct {
	minBB, maxBB [3]float64
}

func (s *stubSolid) BoundingBox() (min, max [3]float64) {
	return s.minBB, s.maxBB
}

func (s *stubSolid) Distance(p [3]float64) float64 {
	var d float64
	for a := 0; a < 3; a++ {
		switch {
		case p[a] < s.minBB[a]:
			d = max(d, s.minBB[a]-p[a])
		case p[a] > s.maxBB[a]:
			d = max(d, p[a]-s.maxBB[a])
		}
	}
	return d
}

// stubKernel is a minimal Kernel implementation that proves the interface
// is satisfiable. All methods return trivial results.
type stubKernel struct{}

func (k *stubKernel) Box(x, y, z float64) Solid {
	return &stubSolid{
		minBB: [3]float64{0, 0, 0},
		maxBB: [3]float64{x, y, z},
	}
}

func (k *stubKernel) Cylinder(height, radius float64, _ int) Solid {
	return &stubSolid{
		minBB: [3]float64{-radius, -radius, 0},
		maxBB: [3]float64{radius, radius, height},
	}
}

func (k *stubKernel) Sphere(radius float64) Solid {
	return &stubSolid{
		minBB: [3]float64{-radius, -radius, -radius},
		maxBB: [3]float64{radius, radius, radius},
	}
}

func (k *stubKernel) Union(a, _ Solid) Solid      { return a }
func (k *stubKernel) Difference(a, _ Solid) Solid { return a }

func (k *stubKernel) Translate(s Solid, _, _, _ float64) Solid { return s }
func (k *stubKernel) Rotate(s Solid, _, _, _ float64) Solid    { return s }

func (k *stubKernel) ToMesh(_ Solid) (*Mesh, error) {
	return &Mesh{}, nil
}

// Compile-time checks that the stubs implement the interfaces.
var _ Solid = (*stubSolid)(nil)
var _ Kernel = (*stubKernel)(nil)

func TestStubKernelBoxBoundingBox(t *testing.T) {
	var k Kernel = &stubKernel{}
	s := k.Box(10, 20, 30)
	min, max := s.BoundingBox()
	if min != [3]float64{0, 0, 0} {
		t.Errorf("Box min = %v, want [0 0 0]", min)
	}
	if max != [3]float64{10, 20, 30} {
		t.Errorf("Box max = %v, want [10 20 30]", max)
	}
	if d := s.Distance([3]float64{5, 25, 5}); d != 5 {
		t.Errorf("Distance above box = %v, want 5", d)
	}
}
