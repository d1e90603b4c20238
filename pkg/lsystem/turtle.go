package lsystem

import (
	"github.com/chazu/verdant/pkg/rng"
	"github.com/chazu/verdant/pkg/vecmath"
)

// AnchorRadius marks the first node of a branch. It carries a position but
// no thickness of its own.
const AnchorRadius = -1

// DefaultRandomLimit is the rotation limit of '~' without an argument.
const DefaultRandomLimit = 180.0

// Params are the turtle's default scalars.
type Params struct {
	Step           float64 `yaml:"step" json:"step"`
	StepScale      float64 `yaml:"step_scale" json:"step_scale"`
	Angle          float64 `yaml:"angle" json:"angle"`
	AngleScale     float64 `yaml:"angle_scale" json:"angle_scale"`
	Thickness      float64 `yaml:"thickness" json:"thickness"`
	ThicknessScale float64 `yaml:"thickness_scale" json:"thickness_scale"`
}

// Node is one point of a branch polyline.
type Node struct {
	Position vecmath.Vec3
	Radius   float64
}

// Branch is an ordered polyline. Nodes[0] is an anchor with AnchorRadius.
type Branch struct {
	Nodes []Node
	Depth int
}

// Leaf is a leaf marker emitted by the L command.
type Leaf struct {
	Position vecmath.Vec3
	Forward  vecmath.Vec3
	Right    vecmath.Vec3
	Style    int
	Depth    int
}

type turtleState struct {
	Params
	pos   vecmath.Vec3
	fwd   vecmath.Vec3
	right vecmath.Vec3

	branch *Branch
}

// Turtle walks a command stream and records the branches it draws. It
// starts at the origin facing +Y with +X to its right.
type Turtle struct {
	cur   turtleState
	stack []turtleState
	src   rng.Source

	root     *Branch
	branches []Branch
	leaves   []Leaf
}

// NewTurtle returns a turtle with the given defaults. src feeds '~'.
func NewTurtle(p Params, src rng.Source) *Turtle {
	root := &Branch{Nodes: []Node{{Position: vecmath.Zero, Radius: AnchorRadius}}}
	return &Turtle{
		cur: turtleState{
			Params: p,
			fwd:    vecmath.Up,
			right:  vecmath.Right,
			branch: root,
		},
		src:  src,
		root: root,
	}
}

func (t *Turtle) Position() vecmath.Vec3 { return t.cur.pos }
func (t *Turtle) Forward() vecmath.Vec3 { return t.cur.fwd }
func (t *Turtle) Right() vecmath.Vec3 { return t.cur.right }
func (t *Turtle) Depth() int { return len(t.stack) }
func (t *Turtle) State() Params { return t.cur.Params }

// or returns v unless it is negative, in which case it returns def.
func or(v, def float64) float64 {
	if v < 0 {
		return def
	}
	return v
}

// Move steps forward and records a node. Negative arguments select the
// current step and thickness.
func (t *Turtle) Move(distance, radius float64) vecmath.Vec3 {
	distance = or(distance, t.cur.Step)
	radius = or(radius, t.cur.Thickness)
	t.cur.pos = t.cur.pos.Add(t.cur.fwd.MulScalar(distance))
	t.cur.branch.Nodes = append(t.cur.branch.Nodes, Node{Position: t.cur.pos, Radius: radius})
	return t.cur.pos
}

func (t *Turtle) yaw(angle float64) {
	axis := t.cur.fwd.Cross(t.cur.right).Normalize()
	q := vecmath.AngleAxis(angle, axis)
	t.cur.fwd = q.Rotate(t.cur.fwd).Normalize()
	t.cur.right = q.Rotate(t.cur.right).Normalize()
}

func (t *Turtle) pitch(angle float64) {
	t.cur.fwd = vecmath.AngleAxis(angle, t.cur.right).Rotate(t.cur.fwd).Normalize()
}

func (t *Turtle) roll(angle float64) {
	t.cur.right = vecmath.AngleAxis(angle, t.cur.fwd).Rotate(t.cur.right).Normalize()
}

// Rotations take degrees. A negative angle selects the current angle.

func (t *Turtle) YawLeft(angle float64) { t.yaw(-or(angle, t.cur.Angle)) }
func (t *Turtle) YawRight(angle float64) { t.yaw(or(angle, t.cur.Angle)) }
func (t *Turtle) PitchUp(angle float64) { t.pitch(or(angle, t.cur.Angle)) }
func (t *Turtle) PitchDown(angle float64) { t.pitch(-or(angle, t.cur.Angle)) }
func (t *Turtle) RollLeft(angle float64) { t.roll(-or(angle, t.cur.Angle)) }
func (t *Turtle) RollRight(angle float64) { t.roll(or(angle, t.cur.Angle)) }
func (t *Turtle) TurnAround() { t.YawLeft(180) }
func (t *Turtle) Flip() { t.RollLeft(180) }

// RandomRotation pitches, rolls and yaws by independent random amounts no
// larger than limit degrees. Each axis draws its direction, then its
// magnitude.
func (t *Turtle) RandomRotation(limit float64) {
	limit = or(limit, DefaultRandomLimit)
	if rng.Value(t.src) < 0.5 {
		t.PitchUp(rng.Value(t.src) * limit)
	} else {
		t.PitchDown(rng.Value(t.src) * limit)
	}
	if rng.Value(t.src) < 0.5 {
		t.RollLeft(rng.Value(t.src) * limit)
	} else {
		t.RollRight(rng.Value(t.src) * limit)
	}
	if rng.Value(t.src) < 0.5 {
		t.YawLeft(rng.Value(t.src) * limit)
	} else {
		t.YawRight(rng.Value(t.src) * limit)
	}
}

// Scaling commands. A negative scale selects the matching default factor.

func (t *Turtle) MultiplyStep(scale float64) { t.cur.Step *= or(scale, t.cur.StepScale) }
func (t *Turtle) MultiplyThickness(scale float64) { t.cur.Thickness *= or(scale, t.cur.ThicknessScale) }
func (t *Turtle) MultiplyAngle(scale float64) { t.cur.Angle *= or(scale, t.cur.AngleScale) }

func (t *Turtle) DivideStep(scale float64) {
	if s := or(scale, t.cur.StepScale); s != 0 {
		t.cur.Step /= s
	}
}

func (t *Turtle) DivideThickness(scale float64) {
	if s := or(scale, t.cur.ThicknessScale); s != 0 {
		t.cur.Thickness /= s
	}
}

func (t *Turtle) DivideAngle(scale float64) {
	if s := or(scale, t.cur.AngleScale); s != 0 {
		t.cur.Angle /= s
	}
}

// Push saves the full turtle state, including the branch being drawn, and
// starts a new branch anchored at the current position.
func (t *Turtle) Push() {
	t.stack = append(t.stack, t.cur)
	t.cur.branch = &Branch{
		Nodes: []Node{{Position: t.cur.pos, Radius: AnchorRadius}},
		Depth: len(t.stack),
	}
}

// Pop finishes the current branch and restores the state saved by the
// matching Push. It reports false when nothing was pushed.
func (t *Turtle) Pop() bool {
	if len(t.stack) == 0 {
		return false
	}
	t.branches = append(t.branches, *t.cur.branch)
	t.cur = t.stack[len(t.stack)-1]
	t.stack = t.stack[:len(t.stack)-1]
	return true
}

// AddLeaf records a leaf marker at the current position and orientation.
func (t *Turtle) AddLeaf(style int) {
	t.leaves = append(t.leaves, Leaf{
		Position: t.cur.pos,
		Forward:  t.cur.fwd,
		Right:    t.cur.right,
		Style:    style,
		Depth:    len(t.stack),
	})
}

// Commit closes every open frame, innermost first, and returns all
// branches with the root branch first. The turtle is spent afterwards.
func (t *Turtle) Commit() []Branch {
	for t.Pop() {
	}
	out := make([]Branch, 0, len(t.branches)+1)
	out = append(out, *t.root)
	out = append(out, t.branches...)
	t.branches = out
	return out
}

// Leaves returns the markers emitted at the deepest level any leaf was
// emitted at.
func (t *Turtle) Leaves() []Leaf {
	deepest := -1
	for _, l := range t.leaves {
		deepest = max(deepest, l.Depth)
	}
	var out []Leaf
	for _, l := range t.leaves {
		if l.Depth == deepest {
			out = append(out, l)
		}
	}
	return out
}
