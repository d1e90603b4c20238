package lsystem

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/chazu/verdant/pkg/rng"
	"github.com/chazu/verdant/pkg/vecmath"
)

var unit = Params{Step: 1, StepScale: 0.5, Angle: 90, AngleScale: 0.5, Thickness: 0.2, ThicknessScale: 0.5}

func TestParseRules(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf)
	rules := ParseRules([]string{"F=FF", "broken", "=X", "Xab=F[+X]", "F=F[-F]"}, logger)

	if len(rules) != 2 {
		t.Fatalf("len(rules) = %d, want 2: %v", len(rules), rules)
	}
	if rules['F'] != "F[-F]" {
		t.Errorf("rules['F'] = %q, want last definition", rules['F'])
	}
	if rules['X'] != "F[+X]" {
		t.Errorf("rules['X'] = %q, want F[+X]", rules['X'])
	}
	if !strings.Contains(buf.String(), "broken") {
		t.Errorf("malformed rule not logged: %q", buf.String())
	}
}

func TestRewrite(t *testing.T) {
	tests := []struct {
		name       string
		axiom      string
		rules      Rules
		iterations int
		want       string
	}{
		{"no iterations", "F", Rules{'F': "FF"}, 0, "F"},
		{"branching", "F", Rules{'F': "F[+F]F"}, 2, "F[+F]F[+F[+F]F]F[+F]F"},
		{"passthrough", "A+B", Rules{'A': "AB"}, 1, "AB+B"},
		{"parallel", "AB", Rules{'A': "B", 'B': "A"}, 1, "BA"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Rewrite(tt.axiom, tt.rules, tt.iterations); got != tt.want {
				t.Errorf("Rewrite = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestInterpretBranchingExample(t *testing.T) {
	sentence := Rewrite("F", Rules{'F': "F[+F]F"}, 2)
	r := Interpret(sentence, unit, rng.New(1))

	brackets := strings.Count(sentence, "[")
	if got := len(r.Branches); got != brackets+1 {
		t.Fatalf("branches = %d, want %d", got, brackets+1)
	}

	// Unbracketed F count along the top-level path.
	topLevel, depth := 0, 0
	for _, c := range sentence {
		switch c {
		case '[':
			depth++
		case ']':
			depth--
		case 'F':
			if depth == 0 {
				topLevel++
			}
		}
	}
	trunk := r.Branches[0]
	if got := len(trunk.Nodes); got != topLevel+1 {
		t.Errorf("trunk nodes = %d, want anchor + %d", got, topLevel)
	}
	if trunk.Nodes[0].Radius != AnchorRadius {
		t.Errorf("trunk anchor radius = %v", trunk.Nodes[0].Radius)
	}
	last := trunk.Nodes[len(trunk.Nodes)-1].Position
	if !vecmath.ApproxEqual(last, vecmath.Vec3{Y: float64(topLevel)}, 1e-9) {
		t.Errorf("trunk tip = %v, want straight up %d units", last, topLevel)
	}
	for i, b := range r.Branches[1:] {
		if b.Depth < 1 {
			t.Errorf("bracket branch %d has depth %d", i, b.Depth)
		}
	}
}

func TestCommitClosesOpenFrames(t *testing.T) {
	r := Interpret("F[F[F", unit, rng.New(1))
	if len(r.Branches) != 3 {
		t.Fatalf("branches = %d, want 3", len(r.Branches))
	}
	// Innermost frame closes first.
	if r.Branches[1].Depth != 2 || r.Branches[2].Depth != 1 {
		t.Errorf("depths = %d, %d, want 2, 1", r.Branches[1].Depth, r.Branches[2].Depth)
	}
}

func TestUnbalancedPopIsIgnored(t *testing.T) {
	r := Interpret("F]]F", unit, rng.New(1))
	if len(r.Branches) != 1 || len(r.Branches[0].Nodes) != 3 {
		t.Fatalf("got %d branches, trunk %d nodes", len(r.Branches), len(r.Branches[0].Nodes))
	}
}

func TestPopRestoresState(t *testing.T) {
	tu := NewTurtle(unit, rng.New(1))
	tu.Move(-1, -1)
	tu.Push()
	tu.YawRight(-1)
	tu.MultiplyStep(-1)
	tu.Move(-1, -1)
	tu.Pop()

	if !vecmath.ApproxEqual(tu.Position(), vecmath.Vec3{Y: 1}, 1e-9) {
		t.Errorf("position = %v, want (0,1,0)", tu.Position())
	}
	if !vecmath.ApproxEqual(tu.Forward(), vecmath.Up, 1e-9) {
		t.Errorf("forward = %v, want up", tu.Forward())
	}
	if tu.State().Step != 1 {
		t.Errorf("step = %v, want 1", tu.State().Step)
	}
}

func TestRotations(t *testing.T) {
	tests := []struct {
		name      string
		do        func(*Turtle)
		wantFwd   vecmath.Vec3
		wantRight vecmath.Vec3
	}{
		{"yaw left", func(t *Turtle) { t.YawLeft(-1) }, vecmath.Vec3{X: -1}, vecmath.Vec3{Y: 1}},
		{"yaw right", func(t *Turtle) { t.YawRight(-1) }, vecmath.Vec3{X: 1}, vecmath.Vec3{Y: -1}},
		{"pitch up", func(t *Turtle) { t.PitchUp(-1) }, vecmath.Vec3{Z: 1}, vecmath.Right},
		{"pitch down", func(t *Turtle) { t.PitchDown(-1) }, vecmath.Vec3{Z: -1}, vecmath.Right},
		{"roll left", func(t *Turtle) { t.RollLeft(-1) }, vecmath.Up, vecmath.Vec3{Z: 1}},
		{"roll right", func(t *Turtle) { t.RollRight(-1) }, vecmath.Up, vecmath.Vec3{Z: -1}},
		{"turn around", func(t *Turtle) { t.TurnAround() }, vecmath.Down, vecmath.Vec3{X: -1}},
		{"flip", func(t *Turtle) { t.Flip() }, vecmath.Up, vecmath.Vec3{X: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tu := NewTurtle(unit, rng.New(1))
			tt.do(tu)
			if !vecmath.ApproxEqual(tu.Forward(), tt.wantFwd, 1e-9) {
				t.Errorf("forward = %v, want %v", tu.Forward(), tt.wantFwd)
			}
			if !vecmath.ApproxEqual(tu.Right(), tt.wantRight, 1e-9) {
				t.Errorf("right = %v, want %v", tu.Right(), tt.wantRight)
			}
			if d := tu.Forward().Dot(tu.Right()); math.Abs(d) > 1e-9 {
				t.Errorf("forward·right = %g, want 0", d)
			}
		})
	}
}

func TestParameters(t *testing.T) {
	tests := []struct {
		name       string
		sentence   string
		wantTip    vecmath.Vec3
		wantRadius float64
	}{
		{"defaults", "F", vecmath.Vec3{Y: 1}, 0.2},
		{"length only", "F(3)", vecmath.Vec3{Y: 3}, 0.2},
		{"length and width", "F(2,0.5)", vecmath.Vec3{Y: 2}, 0.5},
		{"bad length", "F(x,0.5)", vecmath.Vec3{Y: 1}, 0.2},
		{"bad width", "F(2, y)", vecmath.Vec3{Y: 2}, 0.2},
		{"missing length drops width", "F(,0.5)", vecmath.Vec3{Y: 1}, 0.2},
		{"explicit yaw", "+(45)F", vecmath.Vec3{X: math.Sqrt2 / 2, Y: math.Sqrt2 / 2}, 0.2},
		{"multiply step", "\"F", vecmath.Vec3{Y: 0.5}, 0.2},
		{"divide step default", "_F", vecmath.Vec3{Y: 2}, 0.2},
		{"divide step explicit", "_(4)F", vecmath.Vec3{Y: 0.25}, 0.2},
		{"multiply thickness", "!F", vecmath.Vec3{Y: 1}, 0.1},
		{"divide thickness", "?F", vecmath.Vec3{Y: 1}, 0.4},
		{"angle scaling", ";+F", vecmath.Vec3{X: math.Sqrt2 / 2, Y: math.Sqrt2 / 2}, 0.2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Interpret(tt.sentence, unit, rng.New(1))
			nodes := r.Branches[0].Nodes
			tip := nodes[len(nodes)-1]
			if !vecmath.ApproxEqual(tip.Position, tt.wantTip, 1e-9) {
				t.Errorf("tip = %v, want %v", tip.Position, tt.wantTip)
			}
			if math.Abs(tip.Radius-tt.wantRadius) > 1e-12 {
				t.Errorf("radius = %v, want %v", tip.Radius, tt.wantRadius)
			}
		})
	}
}

func TestRandomRotationBounded(t *testing.T) {
	src := rng.New(3)
	for i := 0; i < 50; i++ {
		tu := NewTurtle(unit, src)
		tu.RandomRotation(10)
		// Three rotations of at most 10° each cannot tilt forward past 30°.
		if a := vecmath.Angle(vecmath.Up, tu.Forward()); a > 30+1e-9 {
			t.Fatalf("forward tilted %.2f°, want <= 30", a)
		}
	}
}

func TestLeavesAtDeepestLevel(t *testing.T) {
	r := Interpret("FL(1)[FL(2)[FL(3)]][FL(4)[FL(5)]]", unit, rng.New(1))
	if len(r.Leaves) != 2 {
		t.Fatalf("leaves = %d, want 2", len(r.Leaves))
	}
	for _, l := range r.Leaves {
		if l.Depth != 2 {
			t.Errorf("leaf style %d at depth %d, want 2", l.Style, l.Depth)
		}
	}
	if r.Leaves[0].Style != 3 || r.Leaves[1].Style != 5 {
		t.Errorf("styles = %d, %d, want 3, 5", r.Leaves[0].Style, r.Leaves[1].Style)
	}
}

func TestSystemGenerateDeterministic(t *testing.T) {
	sys := NewSystem("X", []string{"X=F[~X]F[~X]", "F=FF"}, 3, unit, nil)
	a := sys.Generate(rng.New(11))
	b := sys.Generate(rng.New(11))
	if len(a.Branches) != len(b.Branches) {
		t.Fatalf("branch counts differ: %d vs %d", len(a.Branches), len(b.Branches))
	}
	for i := range a.Branches {
		for j := range a.Branches[i].Nodes {
			if a.Branches[i].Nodes[j] != b.Branches[i].Nodes[j] {
				t.Fatalf("branch %d node %d differs", i, j)
			}
		}
	}
}

func TestVariation(t *testing.T) {
	src := rng.New(1)
	for i := 0; i < 100; i++ {
		if v := Variation(src, 0.3); v < -0.3 || v >= 0.3 {
			t.Fatalf("Variation = %v, want [-0.3, 0.3)", v)
		}
	}

	// A non-positive variation leaves the source untouched.
	a, b := rng.New(5), rng.New(5)
	for _, v := range []float64{0, -0.2} {
		if got := Variation(a, v); got != 0 {
			t.Errorf("Variation(%v) = %v, want 0", v, got)
		}
	}
	if rng.Value(a) != rng.Value(b) {
		t.Error("Variation with no spread consumed a draw")
	}
}
