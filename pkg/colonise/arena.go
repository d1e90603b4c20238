// Package colonise grows tree skeletons by space colonisation: branch tips
// extend toward attraction points scattered through a canopy volume, and
// the finished skeleton is thinned and given pipe-model thicknesses.
package colonise

import (
	"math"

	"github.com/chazu/verdant/pkg/vecmath"
)

// NodeID addresses a node in a Tree's arena.
type NodeID int

// NoParent is the parent of the root.
const NoParent NodeID = -1

// Node is one skeleton point. Children are owned; Parent is a back
// reference for upward walks.
type Node struct {
	Position  vecmath.Vec3
	Direction vecmath.Vec3
	Thickness float64
	Parent    NodeID
	Children  []NodeID
	CanGrow   bool

	// Per-iteration growth state.
	attractors []vecmath.Vec3

	visited bool
	removed bool
}

// Foliage is a rendered leaf: a position next to the branch that consumed
// an attraction point, oriented toward where that point was.
type Foliage struct {
	Position    vecmath.Vec3
	Orientation vecmath.Vec3
}

// Tree is an arena of nodes. Nodes[0] is the root. Nodes spliced out by
// optimisation stay in the arena but are unreachable from the root.
type Tree struct {
	Nodes   []Node
	Foliage []Foliage
}

// Root returns the root node id, or NoParent for an empty tree.
func (t *Tree) Root() NodeID {
	if len(t.Nodes) == 0 {
		return NoParent
	}
	return 0
}

// Node returns a pointer into the arena. The pointer is invalidated by the
// next Add.
func (t *Tree) Node(id NodeID) *Node {
	return &t.Nodes[id]
}

// Add appends a node under parent and returns its id. Pass NoParent for
// the root.
func (t *Tree) Add(parent NodeID, pos, dir vecmath.Vec3, thickness float64, canGrow bool) NodeID {
	id := NodeID(len(t.Nodes))
	t.Nodes = append(t.Nodes, Node{
		Position:  pos,
		Direction: dir,
		Thickness: thickness,
		Parent:    parent,
		CanGrow:   canGrow,
	})
	if parent != NoParent {
		p := &t.Nodes[parent]
		p.Children = append(p.Children, id)
	}
	return id
}

// Len returns the number of nodes reachable from the root.
func (t *Tree) Len() int {
	n := 0
	t.Walk(func(NodeID) { n++ })
	return n
}

// Walk visits every reachable node depth-first, parents before children,
// children in order.
func (t *Tree) Walk(fn func(NodeID)) {
	root := t.Root()
	if root == NoParent {
		return
	}
	stack := []NodeID{root}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		fn(id)
		kids := t.Nodes[id].Children
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, kids[i])
		}
	}
}

// Ends returns the childless nodes in depth-first order.
func (t *Tree) Ends() []NodeID {
	var ends []NodeID
	t.Walk(func(id NodeID) {
		if len(t.Nodes[id].Children) == 0 {
			ends = append(ends, id)
		}
	})
	return ends
}

// splice removes id from the tree, handing its only child to its parent in
// the same child slot.
func (t *Tree) splice(id NodeID) {
	n := &t.Nodes[id]
	child := n.Children[0]
	parent := &t.Nodes[n.Parent]
	for i, c := range parent.Children {
		if c == id {
			parent.Children[i] = child
			break
		}
	}
	t.Nodes[child].Parent = n.Parent
	n.Children = nil
	n.Parent = NoParent
	n.removed = true
}

// Optimise removes nodes that continue their parent's single-child run
// almost straight. A node is dropped when its direction and its only
// child's direction have a dot product above threshold.
func (t *Tree) Optimise(threshold float64) {
	if root := t.Root(); root != NoParent {
		t.optimise(root, threshold)
	}
}

func (t *Tree) optimise(id NodeID, threshold float64) {
	cur := id
	for {
		n := &t.Nodes[cur]
		switch len(n.Children) {
		case 0:
			return
		case 1:
			child := n.Children[0]
			if n.Direction.Dot(t.Nodes[child].Direction) > threshold && n.Parent != NoParent {
				t.splice(cur)
			}
			cur = child
		default:
			for _, c := range n.Children[1:] {
				t.optimise(c, threshold)
			}
			cur = t.Nodes[cur].Children[0]
		}
	}
}

// PropagateThickness assigns pipe-model thicknesses from the branch ends
// toward the root. A node with one child takes that child's thickness.
// A node with several children waits until every child has been reached
// and then takes sqrt(Σ childThickness^power).
func (t *Tree) PropagateThickness(power float64) {
	for i := range t.Nodes {
		t.Nodes[i].visited = false
	}
	for _, end := range t.Ends() {
		t.propagate(end, power)
	}
}

// propagate walks up from one end until it reaches the root or a parent
// that is still waiting on another child.
func (t *Tree) propagate(end NodeID, power float64) {
	cur := end
	for {
		t.Nodes[cur].visited = true
		parent := t.Nodes[cur].Parent
		if parent == NoParent {
			return
		}
		p := &t.Nodes[parent]
		if len(p.Children) > 1 {
			if !t.allChildrenVisited(parent) {
				return
			}
			p.Thickness = t.pipeRadius(parent, power)
		} else {
			p.Thickness = t.Nodes[cur].Thickness
		}
		cur = parent
	}
}

func (t *Tree) allChildrenVisited(id NodeID) bool {
	for _, c := range t.Nodes[id].Children {
		if !t.Nodes[c].visited {
			return false
		}
	}
	return true
}

func (t *Tree) pipeRadius(id NodeID, power float64) float64 {
	sum := 0.0
	for _, c := range t.Nodes[id].Children {
		sum += math.Pow(t.Nodes[c].Thickness, power)
	}
	return math.Sqrt(sum)
}
