// Package tessellate turns branch skeletons into ring-extruded triangle
// meshes at a chosen level of detail. Skeletons are flattened into chains
// that follow the straightest child at every fork, and each chain becomes
// one continuous tube so bark UVs run without seams along it.
package tessellate

import (
	"fmt"
	"math"

	"github.com/chazu/verdant/pkg/colonise"
	"github.com/chazu/verdant/pkg/kernel"
	"github.com/chazu/verdant/pkg/lsystem"
	"github.com/chazu/verdant/pkg/meshbuilder"
	"github.com/chazu/verdant/pkg/vecmath"
)

// DefaultMinRadius is the smallest ring radius drawn at LOD 0. Higher
// levels scale it by 1+lod.
const DefaultMinRadius = 0.002

var lodSegments = []int{8, 6, 4, 3}

// Options tune mesh generation.
type Options struct {
	// Name labels the produced mesh.
	Name string
	// MinRadius overrides DefaultMinRadius when positive.
	MinRadius float64
	// OverrideSegments, when >= 3, replaces the LOD segment table.
	OverrideSegments int
}

// Segments returns the ring segment count used at lod.
func Segments(lod int) int {
	if lod < 0 {
		lod = 0
	}
	if lod >= len(lodSegments) {
		return lodSegments[len(lodSegments)-1]
	}
	return lodSegments[lod]
}

func (o Options) segments(lod int) int {
	if o.OverrideSegments >= 3 {
		return o.OverrideSegments
	}
	return Segments(lod)
}

func (o Options) threshold(lod int) float64 {
	r := o.MinRadius
	if r <= 0 {
		r = DefaultMinRadius
	}
	return r * float64(1+max(lod, 0))
}

// ring is one cross-section of a chain.
type ring struct {
	pos    vecmath.Vec3
	radius float64
}

// Arena meshes a space-colonisation tree. Every chain after the first
// starts at its fork node so side branches stay attached.
func Arena(tree *colonise.Tree, lod int, opts Options) *kernel.Mesh {
	b := meshbuilder.New()
	if tree == nil || tree.Root() == colonise.NoParent {
		return b.Mesh(opts.Name)
	}

	starts := []colonise.NodeID{tree.Root()}
	for len(starts) > 0 {
		start := starts[len(starts)-1]
		starts = starts[:len(starts)-1]

		var rings []ring
		n := tree.Nodes[start]
		if n.Parent != colonise.NoParent {
			rings = append(rings, ring{tree.Nodes[n.Parent].Position, n.Thickness})
		}

		var side []colonise.NodeID
		cur := start
		for {
			node := tree.Nodes[cur]
			rings = append(rings, ring{node.Position, node.Thickness})
			if len(node.Children) == 0 {
				break
			}
			primary := primaryChild(tree, cur)
			for _, c := range node.Children {
				if c != primary {
					side = append(side, c)
				}
			}
			cur = primary
		}
		emitChain(b, rings, lod, opts)

		for i := len(side) - 1; i >= 0; i-- {
			starts = append(starts, side[i])
		}
	}
	return b.Mesh(opts.Name)
}

// primaryChild returns the child whose segment is most parallel to the
// node's growth direction. Ties keep the earlier child.
func primaryChild(tree *colonise.Tree, id colonise.NodeID) colonise.NodeID {
	n := tree.Nodes[id]
	best, bestDot := n.Children[0], math.Inf(-1)
	for _, c := range n.Children {
		seg := tree.Nodes[c].Position.Sub(n.Position).Normalize()
		if d := seg.Dot(n.Direction); d > bestDot {
			best, bestDot = c, d
		}
	}
	return best
}

// Branches meshes L-system branches. Each branch is already a chain. The
// anchor node takes the radius of the node after it.
func Branches(branches []lsystem.Branch, lod int, opts Options) *kernel.Mesh {
	b := meshbuilder.New()
	for _, br := range branches {
		if len(br.Nodes) < 2 {
			continue
		}
		rings := make([]ring, len(br.Nodes))
		for i, n := range br.Nodes {
			r := n.Radius
			if r == lsystem.AnchorRadius {
				r = br.Nodes[1].Radius
			}
			rings[i] = ring{n.Position, r}
		}
		emitChain(b, rings, lod, opts)
	}
	return b.Mesh(opts.Name)
}

func emitChain(b *meshbuilder.MeshBuilder, rings []ring, lod int, opts Options) {
	if len(rings) < 2 {
		return
	}
	segments := opts.segments(lod)
	minRadius := opts.threshold(lod)

	sum := 0.0
	for _, r := range rings {
		sum += r.radius
	}
	circumference := 2 * math.Pi * sum / float64(len(rings))

	var (
		length    float64
		built     bool
		lastPos   vecmath.Vec3
		lastOrien vecmath.Quat
		lastR     float64
	)
	for i, r := range rings {
		if i > 0 {
			length += r.pos.Distance(rings[i-1].pos)
		}
		if r.radius < minRadius {
			continue
		}

		var dir vecmath.Vec3
		if i+1 < len(rings) {
			dir = rings[i+1].pos.Sub(r.pos)
		} else {
			dir = r.pos.Sub(rings[i-1].pos)
		}
		orientation := vecmath.LookRotation(dir, vecmath.Up)

		v := length
		if circumference > 0 {
			v = length / circumference
		}
		b.BuildRing(r.pos, orientation, segments, r.radius, v, built)
		built = true
		lastPos, lastOrien, lastR = r.pos, orientation, r.radius
	}

	if built && lod == 0 {
		b.BuildCap(lastPos, lastOrien, segments, lastR)
	}
}

// Part is a named kernel solid.
type Part struct {
	Name  string
	Solid kernel.Solid
}

// Parts meshes kernel solids, one mesh per part.
func Parts(k kernel.Kernel, parts ...Part) ([]*kernel.Mesh, error) {
	meshes := make([]*kernel.Mesh, 0, len(parts))
	for _, p := range parts {
		if p.Solid == nil {
			return nil, fmt.Errorf("tessellate: part %q has no solid", p.Name)
		}
		mesh, err := k.ToMesh(p.Solid)
		if err != nil {
			return nil, fmt.Errorf("tessellate: ToMesh failed for part %q: %w", p.Name, err)
		}
		mesh.Name = p.Name
		meshes = append(meshes, mesh)
	}
	return meshes, nil
}
