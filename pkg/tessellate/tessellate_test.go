package tessellate_test

import (
	"math"
	"testing"

	"github.com/chazu/verdant/pkg/colonise"
	"github.com/chazu/verdant/pkg/kernel"
	"github.com/chazu/verdant/pkg/kernel/sdfx"
	"github.com/chazu/verdant/pkg/lsystem"
	"github.com/chazu/verdant/pkg/rng"
	"github.com/chazu/verdant/pkg/tessellate"
	"github.com/chazu/verdant/pkg/vecmath"
)

// newKernel returns a coarse sdfx kernel for testing.
func newKernel() kernel.Kernel {
	return sdfx.NewWithCells(40)
}

// makeBranch builds an L-system branch from an anchor at the first point
// followed by nodes with the given radii.
func makeBranch(points []vecmath.Vec3, radii ...float64) lsystem.Branch {
	br := lsystem.Branch{Nodes: []lsystem.Node{{Position: points[0], Radius: lsystem.AnchorRadius}}}
	for i, r := range radii {
		br.Nodes = append(br.Nodes, lsystem.Node{Position: points[i+1], Radius: r})
	}
	return br
}

func straight(n int) []vecmath.Vec3 {
	pts := make([]vecmath.Vec3, n)
	for i := range pts {
		pts[i] = vecmath.Vec3{Y: float64(i)}
	}
	return pts
}

// ringCenterDistance returns the largest deviation from radius of the
// vertices [from, from+count) measured from center.
func ringCenterDistance(m *kernel.Mesh, from, count int, center vecmath.Vec3, radius float64) float64 {
	worst := 0.0
	for i := from; i < from+count; i++ {
		v := m.Vertex(i)
		d := vecmath.Vec3{X: v[0], Y: v[1], Z: v[2]}.Distance(center)
		worst = math.Max(worst, math.Abs(d-radius))
	}
	return worst
}

func TestSegments(t *testing.T) {
	tests := []struct {
		lod  int
		want int
	}{
		{-1, 8},
		{0, 8},
		{1, 6},
		{2, 4},
		{3, 3},
		{7, 3},
	}
	for _, tt := range tests {
		if got := tessellate.Segments(tt.lod); got != tt.want {
			t.Errorf("Segments(%d) = %d, want %d", tt.lod, got, tt.want)
		}
	}
}

func TestBranchesCounts(t *testing.T) {
	br := makeBranch(straight(3), 0.1, 0.1)

	tests := []struct {
		name      string
		lod       int
		opts      tessellate.Options
		verts     int
		triangles int
	}{
		// 3 rings of 9 plus a cap of 1+9; 2 stitched rings of 16 plus 8 fan.
		{"lod 0 with cap", 0, tessellate.Options{}, 37, 40},
		{"lod 1", 1, tessellate.Options{}, 21, 24},
		{"lod 3 prism", 3, tessellate.Options{}, 12, 12},
		{"lod 9 prism", 9, tessellate.Options{}, 12, 12},
		{"override", 2, tessellate.Options{OverrideSegments: 5}, 18, 20},
		{"override below three ignored", 2, tessellate.Options{OverrideSegments: 2}, 15, 16},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := tessellate.Branches([]lsystem.Branch{br}, tt.lod, tt.opts)
			if m.VertexCount() != tt.verts {
				t.Errorf("vertices = %d, want %d", m.VertexCount(), tt.verts)
			}
			if m.TriangleCount() != tt.triangles {
				t.Errorf("triangles = %d, want %d", m.TriangleCount(), tt.triangles)
			}
		})
	}
}

func TestAnchorTakesNextRadius(t *testing.T) {
	m := tessellate.Branches([]lsystem.Branch{makeBranch(straight(2), 0.25)}, 1, tessellate.Options{})
	if m.VertexCount() != 14 {
		t.Fatalf("vertices = %d, want 14", m.VertexCount())
	}
	if d := ringCenterDistance(m, 0, 7, vecmath.Zero, 0.25); d > 1e-5 {
		t.Errorf("anchor ring off radius by %v", d)
	}
}

func TestThinRingsSkipped(t *testing.T) {
	br := makeBranch(straight(3), 0.1, 0.001)

	m := tessellate.Branches([]lsystem.Branch{br}, 0, tessellate.Options{})
	// Two rings of 9 plus the cap on the last drawn ring.
	if m.VertexCount() != 28 {
		t.Errorf("vertices = %d, want 28", m.VertexCount())
	}
	if m.TriangleCount() != 24 {
		t.Errorf("triangles = %d, want 24", m.TriangleCount())
	}
	// The cap centre sits on the second ring.
	if c := m.Vertex(18); c != [3]float64{0, 1, 0} {
		t.Errorf("cap centre = %v, want (0,1,0)", c)
	}

	// 0.001 passes a lowered threshold.
	m = tessellate.Branches([]lsystem.Branch{br}, 1, tessellate.Options{MinRadius: 0.0001})
	if m.VertexCount() != 21 {
		t.Errorf("vertices with low threshold = %d, want 21", m.VertexCount())
	}
}

func TestLODThresholdScales(t *testing.T) {
	br := makeBranch(straight(3), 0.005, 0.005)

	if m := tessellate.Branches([]lsystem.Branch{br}, 1, tessellate.Options{}); m.VertexCount() != 21 {
		t.Errorf("lod 1 vertices = %d, want 21", m.VertexCount())
	}
	// 0.005 < 0.002 * (1+3)
	if m := tessellate.Branches([]lsystem.Branch{br}, 3, tessellate.Options{}); !m.IsEmpty() {
		t.Errorf("lod 3 drew %d vertices, want none", m.VertexCount())
	}
}

func TestTextureV(t *testing.T) {
	br := makeBranch(straight(3), 0.1, 0.05)
	m := tessellate.Branches([]lsystem.Branch{br}, 1, tessellate.Options{})

	avg := (0.1 + 0.1 + 0.05) / 3
	want := 2 / (2 * math.Pi * avg)

	// Ring 3 starts at vertex 14.
	if got := float64(m.UVs[14*2+1]); math.Abs(got-want) > 1e-4 {
		t.Errorf("last ring V = %v, want %v", got, want)
	}
	if got := m.UVs[0*2+1]; got != 0 {
		t.Errorf("first ring V = %v, want 0", got)
	}
	if got := m.UVs[20*2]; got != 1 {
		t.Errorf("ring seam U = %v, want 1", got)
	}
}

func TestArenaFollowsPrimaryChild(t *testing.T) {
	tree := &colonise.Tree{}
	root := tree.Add(colonise.NoParent, vecmath.Vec3{}, vecmath.Up, 0.1, true)
	a := tree.Add(root, vecmath.Vec3{Y: 1}, vecmath.Up, 0.1, true)
	tree.Add(a, vecmath.Vec3{X: 1, Y: 1}, vecmath.Right, 0.08, true)
	tree.Add(a, vecmath.Vec3{Y: 2}, vecmath.Up, 0.1, true)

	m := tessellate.Arena(tree, 1, tessellate.Options{Name: "oak"})
	if m.Name != "oak" {
		t.Errorf("Name = %q, want oak", m.Name)
	}
	// Chain root-a-b then chain a-c.
	if m.VertexCount() != 35 {
		t.Fatalf("vertices = %d, want 35", m.VertexCount())
	}
	if m.TriangleCount() != 36 {
		t.Errorf("triangles = %d, want 36", m.TriangleCount())
	}

	checks := []struct {
		name   string
		from   int
		center vecmath.Vec3
		radius float64
	}{
		{"trunk base", 0, vecmath.Vec3{}, 0.1},
		{"trunk tip is straight child", 14, vecmath.Vec3{Y: 2}, 0.1},
		{"side branch starts at fork", 21, vecmath.Vec3{Y: 1}, 0.08},
		{"side branch tip", 28, vecmath.Vec3{X: 1, Y: 1}, 0.08},
	}
	for _, c := range checks {
		if d := ringCenterDistance(m, c.from, 7, c.center, c.radius); d > 1e-5 {
			t.Errorf("%s: ring off by %v", c.name, d)
		}
	}
}

func TestGrownTreeMeshes(t *testing.T) {
	spec := colonise.Spec{
		Volume: &colonise.Volume{Shapes: []colonise.VolumeShape{
			{Points: []vecmath.Vec3{{}, {Y: 1}}},
			{Points: []vecmath.Vec3{{X: -1, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 3}, {X: -1, Y: 3}}},
		}},
		Params: colonise.DefaultParams(),
	}
	tree, err := colonise.Grow(spec, rng.New(7), nil)
	if err != nil {
		t.Fatalf("Grow: %v", err)
	}

	lod0 := tessellate.Arena(tree, 0, tessellate.Options{})
	lod2 := tessellate.Arena(tree, 2, tessellate.Options{})
	if lod0.IsEmpty() {
		t.Fatal("lod 0 mesh is empty")
	}
	if lod2.VertexCount() >= lod0.VertexCount() {
		t.Errorf("lod 2 has %d vertices, lod 0 has %d", lod2.VertexCount(), lod0.VertexCount())
	}
	for _, idx := range lod0.Indices {
		if int(idx) >= lod0.VertexCount() {
			t.Fatalf("index %d out of range", idx)
		}
	}
}

func TestEmptySkeletons(t *testing.T) {
	if m := tessellate.Arena(nil, 0, tessellate.Options{}); !m.IsEmpty() {
		t.Error("nil tree should give an empty mesh")
	}
	if m := tessellate.Arena(&colonise.Tree{}, 0, tessellate.Options{}); !m.IsEmpty() {
		t.Error("empty tree should give an empty mesh")
	}
	lone := lsystem.Branch{Nodes: []lsystem.Node{{Radius: lsystem.AnchorRadius}}}
	if m := tessellate.Branches([]lsystem.Branch{lone}, 0, tessellate.Options{}); !m.IsEmpty() {
		t.Error("anchor-only branch should give an empty mesh")
	}
}

// ---------------------------------------------------------------------------
// Kernel parts
// ---------------------------------------------------------------------------

func TestPartsNamed(t *testing.T) {
	k := newKernel()
	meshes, err := tessellate.Parts(k,
		tessellate.Part{Name: "ground", Solid: k.Box(4, 1, 4)},
		tessellate.Part{Name: "rock", Solid: k.Sphere(1)},
	)
	if err != nil {
		t.Fatalf("Parts failed: %v", err)
	}
	if len(meshes) != 2 {
		t.Fatalf("expected 2 meshes, got %d", len(meshes))
	}
	for i, want := range []string{"ground", "rock"} {
		if meshes[i].Name != want {
			t.Errorf("mesh %d Name = %q, want %q", i, meshes[i].Name, want)
		}
		if meshes[i].TriangleCount() == 0 {
			t.Errorf("mesh %q has no triangles", want)
		}
	}
}

func TestPartWithTranslation(t *testing.T) {
	k := newKernel()
	rock := k.Translate(k.Box(2, 2, 2), 10, 0, 0)

	meshes, err := tessellate.Parts(k, tessellate.Part{Name: "rock", Solid: rock})
	if err != nil {
		t.Fatalf("Parts failed: %v", err)
	}
	m := meshes[0]

	// Box has its min corner at the origin, so the centroid is near (11, 1, 1).
	var cx, cy, cz float64
	n := m.VertexCount()
	for i := 0; i < n; i++ {
		v := m.Vertex(i)
		cx += v[0]
		cy += v[1]
		cz += v[2]
	}
	cx /= float64(n)
	cy /= float64(n)
	cz /= float64(n)

	const tol = 0.5
	if math.Abs(cx-11) > tol || math.Abs(cy-1) > tol || math.Abs(cz-1) > tol {
		t.Errorf("centroid = (%.2f, %.2f, %.2f), expected near (11, 1, 1)", cx, cy, cz)
	}
}

func TestPartWithoutSolid(t *testing.T) {
	if _, err := tessellate.Parts(newKernel(), tessellate.Part{Name: "ghost"}); err == nil {
		t.Error("expected error for part without a solid")
	}
}
