package lsystem

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/chazu/verdant/pkg/logging"
	"github.com/chazu/verdant/pkg/rng"
)

// Result is the output of interpreting one sentence.
type Result struct {
	// Branches holds the root branch first, then every bracketed branch
	// in the order it was closed.
	Branches []Branch
	// Leaves holds the leaf markers of the deepest leaf-bearing level.
	Leaves []Leaf
}

// System is a grammar plus the turtle defaults used to draw it.
type System struct {
	Axiom      string
	Rules      Rules
	Iterations int
	Params     Params
}

// NewSystem parses rule lines and returns a system ready to generate.
func NewSystem(axiom string, rules []string, iterations int, p Params, logger *log.Logger) *System {
	return &System{
		Axiom:      axiom,
		Rules:      ParseRules(rules, logger),
		Iterations: iterations,
		Params:     p,
	}
}

// Sentence returns the fully rewritten command string.
func (s *System) Sentence() string {
	return Rewrite(s.Axiom, s.Rules, s.Iterations)
}

// Generate rewrites the axiom and interprets the result.
func (s *System) Generate(src rng.Source) Result {
	return Interpret(s.Sentence(), s.Params, src)
}

// Interpret runs sentence through a fresh turtle. A command followed by
// '(' takes the comma separated values up to the next ')' as arguments;
// arguments that fail to parse fall back to the command's default.
// Unknown characters are ignored.
func Interpret(sentence string, p Params, src rng.Source) Result {
	t := NewTurtle(p, src)
	cmds := []rune(sentence)
	for i := 0; i < len(cmds); i++ {
		var args []string
		if i+1 < len(cmds) && cmds[i+1] == '(' {
			j := i + 2
			for j < len(cmds) && cmds[j] != ')' {
				j++
			}
			args = strings.Split(string(cmds[i+2 : j]), ",")
			exec(t, cmds[i], args)
			i = j
			continue
		}
		exec(t, cmds[i], nil)
	}
	branches := t.Commit()
	return Result{Branches: branches, Leaves: t.Leaves()}
}

// arg parses args[i] as a float. It returns -1, the turtle's "use the
// default" value, when the argument is missing or malformed.
func arg(args []string, i int) float64 {
	if i >= len(args) {
		return -1
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(args[i]), 64)
	if err != nil {
		return -1
	}
	return v
}

func exec(t *Turtle, cmd rune, args []string) {
	a := arg(args, 0)
	switch cmd {
	case 'F':
		// Without a usable length the width is ignored too.
		if a < 0 {
			t.Move(-1, -1)
		} else {
			t.Move(a, arg(args, 1))
		}
	case '-':
		t.YawLeft(a)
	case '+':
		t.YawRight(a)
	case '&':
		t.PitchDown(a)
	case '^':
		t.PitchUp(a)
	case '/':
		t.RollLeft(a)
	case '\\':
		t.RollRight(a)
	case '|':
		t.TurnAround()
	case '*':
		t.Flip()
	case '~':
		t.RandomRotation(a)
	case '[':
		t.Push()
	case ']':
		t.Pop()
	case '"':
		t.MultiplyStep(a)
	case '!':
		t.MultiplyThickness(a)
	case ';':
		t.MultiplyAngle(a)
	case '_':
		t.DivideStep(a)
	case '?':
		t.DivideThickness(a)
	case '@':
		t.DivideAngle(a)
	case 'L':
		style := 0
		if len(args) > 0 {
			if n, err := strconv.Atoi(strings.TrimSpace(args[0])); err == nil {
				style = n
			}
		}
		t.AddLeaf(style)
	}
}

// Describe logs a short summary of a result.
func Describe(logger *log.Logger, name string, r Result) {
	nodes := 0
	for _, b := range r.Branches {
		nodes += len(b.Nodes)
	}
	logging.OrDiscard(logger).Debug("interpreted l-system", "name", name, "branches", len(r.Branches), "nodes", nodes, "leaves", len(r.Leaves))
}
