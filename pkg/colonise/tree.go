package colonise

import (
	"errors"
	"math"

	"github.com/charmbracelet/log"

	"github.com/chazu/verdant/pkg/logging"
	"github.com/chazu/verdant/pkg/rng"
	"github.com/chazu/verdant/pkg/vecmath"
)

var (
	// ErrNoVolume is returned when a tree has no volume to grow in.
	ErrNoVolume = errors.New("colonise: no volume")
	// ErrNoTrunk is returned when the volume's first shape has no points.
	ErrNoTrunk = errors.New("colonise: volume has no trunk path")
)

const (
	// duplicateEpsilon is the distance under which a new child is taken
	// to coincide with an existing one.
	duplicateEpsilon = 0.01
	// closestLeafWeight biases growth toward the nearest attractor.
	closestLeafWeight = 0.1
	// maxTrunkSegments bounds the nodes inserted between two trunk points.
	maxTrunkSegments = 4096
)

// Params controls one growth run.
type Params struct {
	BranchLength        float64      `yaml:"branch_length" json:"branch_length"`
	EndThickness        float64      `yaml:"end_thickness" json:"end_thickness"`
	ConnectionPower     float64      `yaml:"connection_power" json:"connection_power"`
	MaxIterations       int          `yaml:"max_iterations" json:"max_iterations"`
	OptimiseCosine      float64      `yaml:"optimise_cosine" json:"optimise_cosine"`
	AddLeaves           bool         `yaml:"add_leaves" json:"add_leaves"`
	LeafDensity         float64      `yaml:"leaf_density" json:"leaf_density"`
	KillDistance        float64      `yaml:"kill_distance" json:"kill_distance"`
	InteractionDistance float64      `yaml:"interaction_distance" json:"interaction_distance"`
	Widths              CanopyWidths `yaml:"widths" json:"widths"`
	LeafSize            float64      `yaml:"leaf_size" json:"leaf_size"`
	LeafSeparation      float64      `yaml:"leaf_separation" json:"leaf_separation"`

	// OverrideSegments, when >= 3, meshes every ring with this many
	// segments at a single LOD.
	OverrideSegments int `yaml:"override_segments" json:"override_segments"`
}

// DefaultParams returns the stock growth settings.
func DefaultParams() Params {
	return Params{
		BranchLength:        0.3,
		EndThickness:        0.01,
		ConnectionPower:     2,
		MaxIterations:       80,
		OptimiseCosine:      0.98,
		AddLeaves:           true,
		LeafDensity:         20,
		KillDistance:        0.4,
		InteractionDistance: 0.8,
		Widths:              CanopyWidths{Bottom: 0.1, Middle: 1, Top: 0.1},
		LeafSize:            0.2,
		LeafSeparation:      0.05,
	}
}

// normalised replaces values that would stall or blow up growth with
// their defaults.
func (p Params) normalised() Params {
	d := DefaultParams()
	if p.BranchLength <= 0 {
		p.BranchLength = d.BranchLength
	}
	if p.ConnectionPower <= 0 {
		p.ConnectionPower = d.ConnectionPower
	}
	if p.KillDistance <= 0 {
		p.KillDistance = d.KillDistance
	}
	if p.InteractionDistance <= 0 {
		p.InteractionDistance = d.InteractionDistance
	}
	if p.MaxIterations < 0 {
		p.MaxIterations = 0
	}
	return p
}

// Spec is everything a growth run needs besides randomness.
type Spec struct {
	Volume *Volume
	// Envelope, when set, replaces the canopy lobes as the leaf source.
	Envelope *SphereEnvelope
	Params   Params
}

// Grow runs the full pipeline: seed attraction points, seed the trunk,
// grow, optimise and assign thicknesses.
func Grow(spec Spec, src rng.Source, logger *log.Logger) (*Tree, error) {
	logger = logging.OrDiscard(logger)
	if spec.Volume == nil {
		return nil, ErrNoVolume
	}
	trunk, ok := spec.Volume.Trunk()
	if !ok {
		return nil, ErrNoTrunk
	}
	p := spec.Params.normalised()

	var leaves []vecmath.Vec3
	if spec.Envelope != nil {
		leaves = spec.Envelope.Points(src)
	} else {
		leaves = spec.Volume.SeedLeaves(p.LeafDensity, p.Widths, p.LeafSeparation, src)
	}

	g := &grower{tree: &Tree{}, leaves: leaves, p: p}
	g.seedTrunk(trunk)
	iterations := g.grow()
	g.tree.Optimise(p.OptimiseCosine)
	g.tree.PropagateThickness(p.ConnectionPower)

	logger.Debug("grew tree",
		"iterations", iterations,
		"nodes", g.tree.Len(),
		"unreached", len(g.leaves),
		"foliage", len(g.tree.Foliage))
	return g.tree, nil
}

type grower struct {
	tree   *Tree
	leaves []vecmath.Vec3
	p      Params
}

// seedTrunk walks the trunk path inserting a node every branch length.
// Only the last node of each path segment may grow.
func (g *grower) seedTrunk(trunk VolumeShape) {
	pts := trunk.Points
	cur := g.tree.Add(NoParent, pts[0], vecmath.Up, g.p.EndThickness, true)
	bl := g.p.BranchLength

	for i := 1; i < len(pts); i++ {
		next := pts[i]
		pos := g.tree.Nodes[cur].Position
		count := int(math.Floor(pos.Distance(next) / bl))
		count = vecmath.Clamp(count, 1, maxTrunkSegments)

		for j := 0; j < count; j++ {
			pos = g.tree.Nodes[cur].Position
			dir := next.Sub(pos).Normalize()
			if i+1 < len(pts) {
				dir = pts[i+1].Sub(pos).Normalize().MulScalar(0.5).Add(dir).Normalize()
			}
			if dir.IsZero() {
				dir = vecmath.Up
			}
			cur = g.tree.Add(cur, pos.Add(dir.MulScalar(bl)), dir, g.p.EndThickness, j == count-1)
		}
	}
}

// grow runs at most MaxIterations growth steps, stopping early after a
// step that adds nothing. It returns the number of steps taken.
func (g *grower) grow() int {
	steps := 0
	for steps < g.p.MaxIterations {
		steps++
		if !g.step() {
			break
		}
	}
	return steps
}

// nearest returns the reachable node closest to p. Ties keep the earlier
// node.
func (g *grower) nearest(p vecmath.Vec3) (NodeID, float64) {
	best, bestD := NoParent, math.MaxFloat64
	for i := range g.tree.Nodes {
		n := &g.tree.Nodes[i]
		if n.removed {
			continue
		}
		if d := p.DistanceSquared(n.Position); d < bestD {
			best, bestD = NodeID(i), d
		}
	}
	return best, bestD
}

func (g *grower) step() bool {
	kill2 := g.p.KillDistance * g.p.KillDistance
	reach2 := g.p.InteractionDistance * g.p.InteractionDistance

	remaining := g.leaves[:0]
	for _, leaf := range g.leaves {
		id, d2 := g.nearest(leaf)
		if id == NoParent {
			remaining = append(remaining, leaf)
			continue
		}
		n := &g.tree.Nodes[id]
		if d2 < kill2 {
			if g.p.AddLeaves {
				up := leaf.Sub(n.Position)
				g.tree.Foliage = append(g.tree.Foliage, Foliage{
					Position:    n.Position.Add(up.Normalize().MulScalar(g.p.LeafSize / 2)),
					Orientation: up,
				})
			}
			continue
		}
		if d2 < reach2 {
			n.attractors = append(n.attractors, leaf)
		}
		remaining = append(remaining, leaf)
	}
	g.leaves = remaining

	grew := false
	for i := len(g.tree.Nodes) - 1; i >= 0; i-- {
		n := &g.tree.Nodes[i]
		if len(n.attractors) > 0 && n.CanGrow && !n.removed {
			if g.next(NodeID(i)) != NoParent {
				grew = true
			}
		}
	}
	for i := range g.tree.Nodes {
		g.tree.Nodes[i].attractors = nil
	}
	return grew
}

// next spawns a child of id one branch length along the node's direction
// bent toward its attractors. It returns NoParent when the child would
// coincide with an existing one.
func (g *grower) next(id NodeID) NodeID {
	n := g.tree.Nodes[id]
	dir := n.Direction
	closest, closestD := n.attractors[0], math.MaxFloat64
	for _, a := range n.attractors {
		to := a.Sub(n.Position)
		if d := to.LengthSquared(); d < closestD {
			closest, closestD = a, d
		}
		dir = dir.Add(to.Normalize())
	}
	dir = dir.Add(closest.Sub(n.Position).Normalize().MulScalar(closestLeafWeight))
	dir = dir.Normalize()
	if dir.IsZero() {
		dir = n.Direction.Normalize()
	}

	pos := n.Position.Add(dir.MulScalar(g.p.BranchLength))
	for _, c := range n.Children {
		if g.tree.Nodes[c].Position.DistanceSquared(pos) < duplicateEpsilon*duplicateEpsilon {
			return NoParent
		}
	}
	return g.tree.Add(id, pos, dir, n.Thickness, true)
}
