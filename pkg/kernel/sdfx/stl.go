package sdfx

import (
	"fmt"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/verdant/pkg/kernel"
)

// Triangles converts indexed meshes into the sdfx triangle soup used by
// its STL writer. Triangles whose indices fall outside the vertex buffer
// are skipped.
func Triangles(meshes ...*kernel.Mesh) []*sdf.Triangle3 {
	var out []*sdf.Triangle3
	for _, m := range meshes {
		if m == nil {
			continue
		}
		n := uint32(m.VertexCount())
		for t := 0; t+2 < len(m.Indices); t += 3 {
			a, b, c := m.Indices[t], m.Indices[t+1], m.Indices[t+2]
			if a >= n || b >= n || c >= n {
				continue
			}
			out = append(out, &sdf.Triangle3{vec(m, a), vec(m, b), vec(m, c)})
		}
	}
	return out
}

func vec(m *kernel.Mesh, i uint32) v3.Vec {
	p := m.Vertex(int(i))
	return v3.Vec{X: p[0], Y: p[1], Z: p[2]}
}

// WriteSTL writes the combined meshes to a binary STL file at path.
func WriteSTL(path string, meshes ...*kernel.Mesh) error {
	tris := Triangles(meshes...)
	if len(tris) == 0 {
		return fmt.Errorf("sdfx: write %s: no triangles", path)
	}
	if err := render.SaveSTL(path, tris); err != nil {
		return fmt.Errorf("sdfx: write %s: %w", path, err)
	}
	return nil
}
