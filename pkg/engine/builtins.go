package engine

import (
	"fmt"
	"strings"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/verdant/pkg/catalog"
	"github.com/chazu/verdant/pkg/colonise"
	"github.com/chazu/verdant/pkg/lsystem"
	"github.com/chazu/verdant/pkg/vecmath"
)

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpVec2 wraps a vecmath.Vec2, used for climate polygon points.
type sexpVec2 struct {
	vec vecmath.Vec2
}

func (v *sexpVec2) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec2 %g %g)", v.vec.X, v.vec.Y)
}
func (v *sexpVec2) Type() *zygo.RegisteredType { return nil }

// sexpVec3 wraps a vecmath.Vec3.
type sexpVec3 struct {
	vec vecmath.Vec3
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpShape wraps a colonise.VolumeShape so it can be returned from
// `shape` and consumed by `tree`.
type sexpShape struct {
	shape colonise.VolumeShape
}

func (s *sexpShape) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(shape %d points)", len(s.shape.Points))
}
func (s *sexpShape) Type() *zygo.RegisteredType { return nil }

// sexpEnvelope wraps a colonise.SphereEnvelope.
type sexpEnvelope struct {
	env colonise.SphereEnvelope
}

func (e *sexpEnvelope) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(sphere-envelope :radius %g :count %d)", e.env.Radius, e.env.Count)
}
func (e *sexpEnvelope) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				// Trailing keyword with no value.
				result.kw[name] = zygo.SexpNull
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
	}
	return result
}

// name returns the record name from :name or the first positional string.
func (pa kwArgs) name(builtin string) (string, error) {
	if v, ok := pa.kw["name"]; ok {
		s, err := toString(v)
		if err != nil {
			return "", fmt.Errorf("%s: name: %w", builtin, err)
		}
		return s, nil
	}
	if len(pa.positional) > 0 {
		s, err := toString(pa.positional[0])
		if err != nil {
			return "", fmt.Errorf("%s: name: %w", builtin, err)
		}
		return s, nil
	}
	return "", fmt.Errorf("%s requires a name", builtin)
}

// float sets *dst from keyword key when present.
func (pa kwArgs) float(builtin, key string, dst *float64) error {
	v, ok := pa.kw[key]
	if !ok {
		return nil
	}
	f, err := toFloat64(v)
	if err != nil {
		return fmt.Errorf("%s: %s: %w", builtin, key, err)
	}
	*dst = f
	return nil
}

// int sets *dst from keyword key when present.
func (pa kwArgs) int(builtin, key string, dst *int) error {
	v, ok := pa.kw[key]
	if !ok {
		return nil
	}
	f, err := toFloat64(v)
	if err != nil {
		return fmt.Errorf("%s: %s: %w", builtin, key, err)
	}
	*dst = int(f)
	return nil
}

// str sets *dst from keyword key when present.
func (pa kwArgs) str(builtin, key string, dst *string) error {
	v, ok := pa.kw[key]
	if !ok {
		return nil
	}
	s, err := toKeywordString(v)
	if err != nil {
		return fmt.Errorf("%s: %s: %w", builtin, key, err)
	}
	*dst = s
	return nil
}

// strings sets *dst from a list of strings under keyword key.
func (pa kwArgs) strings(builtin, key string, dst *[]string) error {
	v, ok := pa.kw[key]
	if !ok {
		return nil
	}
	items, err := sexpListToSlice(v)
	if err != nil {
		return fmt.Errorf("%s: %s: %w", builtin, key, err)
	}
	out := make([]string, 0, len(items))
	for i, item := range items {
		s, err := toString(item)
		if err != nil {
			return fmt.Errorf("%s: %s entry %d: %w", builtin, key, i, err)
		}
		out = append(out, s)
	}
	*dst = out
	return nil
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toBool extracts a bool from a Sexp.
func toBool(s zygo.Sexp) (bool, error) {
	if b, ok := s.(*zygo.SexpBool); ok {
		return b.Val, nil
	}
	return false, fmt.Errorf("expected true or false, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
// Handles both preprocessed keywords (__kw_lsystem) and plain strings.
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], nil
	}
	return str.S, nil
}

// toVec2 extracts a Vec2 from a sexpVec2.
func toVec2(s zygo.Sexp) (vecmath.Vec2, error) {
	if v, ok := s.(*sexpVec2); ok {
		return v.vec, nil
	}
	return vecmath.Vec2{}, fmt.Errorf("expected vec2, got %T (%s)", s, s.SexpString(nil))
}

// toVec3 extracts a Vec3 from a sexpVec3.
func toVec3(s zygo.Sexp) (vecmath.Vec3, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return vecmath.Vec3{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

func nameSexp(name string) zygo.Sexp {
	return &zygo.SexpStr{S: name}
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the catalog DSL builtins into a zygomys
// environment. Record builtins add to c and return the record name, so
// a record can be nested where its name is expected:
//
//	(vegetation "oak" :kind :colonisation :tree (tree "oak" ...))
//
// Source code must be preprocessed with preprocessSource() first.
func registerBuiltins(env *zygo.Zlisp, c *catalog.Catalog) {

	// -----------------------------------------------------------------------
	// (vec2 150 50)
	// -----------------------------------------------------------------------
	env.AddFunction("vec2", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("vec2 requires exactly 2 arguments, got %d", len(args))
		}
		x, err := toFloat64(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec2: x: %w", err)
		}
		y, err := toFloat64(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec2: y: %w", err)
		}
		return &sexpVec2{vec: vecmath.Vec2{X: x, Y: y}}, nil
	})

	// -----------------------------------------------------------------------
	// (vec3 1 2 3)
	// -----------------------------------------------------------------------
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}

		x, err := toFloat64(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: x: %w", err)
		}
		y, err := toFloat64(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: y: %w", err)
		}
		z, err := toFloat64(args[2])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: z: %w", err)
		}

		return &sexpVec3{vec: vecmath.Vec3{X: x, Y: y, Z: z}}, nil
	})

	// -----------------------------------------------------------------------
	// (shape (vec3 0 0 0) (vec3 0 2 0) ...)
	// -----------------------------------------------------------------------
	env.AddFunction("shape", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		s := colonise.VolumeShape{}
		for i, a := range args {
			p, err := toVec3(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("shape: point %d: %w", i, err)
			}
			s.Points = append(s.Points, p)
		}
		return &sexpShape{shape: s}, nil
	})

	// -----------------------------------------------------------------------
	// (sphere-envelope :center (vec3 0 3 0) :radius 2 :count 300)
	// -----------------------------------------------------------------------
	env.AddFunction("sphere_envelope", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		e := colonise.SphereEnvelope{Radius: 1, Count: 100}
		if v, ok := pa.kw["center"]; ok {
			c, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("sphere-envelope: center: %w", err)
			}
			e.Center = c
		}
		if err := pa.float("sphere-envelope", "radius", &e.Radius); err != nil {
			return zygo.SexpNull, err
		}
		if err := pa.int("sphere-envelope", "count", &e.Count); err != nil {
			return zygo.SexpNull, err
		}
		return &sexpEnvelope{env: e}, nil
	})

	// -----------------------------------------------------------------------
	// (rules "shrub" :axiom "F" :rules ["F=F[+F]F[-F]F"] :iterations 3
	//        :step 0.5 :step-scale 0.8 :angle 25 :angle-scale 0.9
	//        :thickness 0.05 :thickness-scale 0.7 :variation 0.1)
	// -----------------------------------------------------------------------
	env.AddFunction("rules", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		rs := &catalog.RuleSet{Iterations: 1, Params: defaultRuleParams}

		var err error
		if rs.Name, err = pa.name("rules"); err != nil {
			return zygo.SexpNull, err
		}
		for _, set := range []error{
			pa.str("rules", "axiom", &rs.Axiom),
			pa.strings("rules", "rules", &rs.Rules),
			pa.int("rules", "iterations", &rs.Iterations),
			pa.float("rules", "step", &rs.Params.Step),
			pa.float("rules", "step-scale", &rs.Params.StepScale),
			pa.float("rules", "angle", &rs.Params.Angle),
			pa.float("rules", "angle-scale", &rs.Params.AngleScale),
			pa.float("rules", "thickness", &rs.Params.Thickness),
			pa.float("rules", "thickness-scale", &rs.Params.ThicknessScale),
			pa.float("rules", "variation", &rs.Variation),
		} {
			if set != nil {
				return zygo.SexpNull, set
			}
		}

		if err := c.AddRuleSet(rs); err != nil {
			return zygo.SexpNull, fmt.Errorf("rules: %w", err)
		}
		return nameSexp(rs.Name), nil
	})

	// -----------------------------------------------------------------------
	// (tree "oak" :branch-length 0.3 :kill-distance 0.4 ...
	//       :widths (vec3 0.1 1 0.1)
	//       :shapes [(shape ...) (shape ...)]
	//       :envelope (sphere-envelope ...))
	// -----------------------------------------------------------------------
	env.AddFunction("tree", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		ts := &catalog.TreeSpec{Params: colonise.DefaultParams()}

		var err error
		if ts.Name, err = pa.name("tree"); err != nil {
			return zygo.SexpNull, err
		}
		p := &ts.Params
		for _, set := range []error{
			pa.float("tree", "branch-length", &p.BranchLength),
			pa.float("tree", "end-thickness", &p.EndThickness),
			pa.float("tree", "connection-power", &p.ConnectionPower),
			pa.int("tree", "max-iterations", &p.MaxIterations),
			pa.float("tree", "optimise-cosine", &p.OptimiseCosine),
			pa.float("tree", "leaf-density", &p.LeafDensity),
			pa.float("tree", "kill-distance", &p.KillDistance),
			pa.float("tree", "interaction-distance", &p.InteractionDistance),
			pa.float("tree", "leaf-size", &p.LeafSize),
			pa.float("tree", "leaf-separation", &p.LeafSeparation),
			pa.int("tree", "override-segments", &p.OverrideSegments),
		} {
			if set != nil {
				return zygo.SexpNull, set
			}
		}
		if v, ok := pa.kw["add-leaves"]; ok {
			b, err := toBool(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("tree: add-leaves: %w", err)
			}
			p.AddLeaves = b
		}
		if v, ok := pa.kw["widths"]; ok {
			w, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("tree: widths: %w", err)
			}
			p.Widths = colonise.CanopyWidths{Bottom: w.X, Middle: w.Y, Top: w.Z}
		}
		if v, ok := pa.kw["shapes"]; ok {
			items, err := sexpListToSlice(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("tree: shapes: %w", err)
			}
			for i, item := range items {
				s, ok := item.(*sexpShape)
				if !ok {
					return zygo.SexpNull, fmt.Errorf("tree: shape %d: expected shape, got %T (%s)",
						i, item, item.SexpString(nil))
				}
				ts.Volume.Shapes = append(ts.Volume.Shapes, s.shape)
			}
		}
		if v, ok := pa.kw["envelope"]; ok {
			e, ok := v.(*sexpEnvelope)
			if !ok {
				return zygo.SexpNull, fmt.Errorf("tree: envelope: expected sphere-envelope, got %T (%s)",
					v, v.SexpString(nil))
			}
			env := e.env
			ts.Envelope = &env
		}

		if err := c.AddTree(ts); err != nil {
			return zygo.SexpNull, fmt.Errorf("tree: %w", err)
		}
		return nameSexp(ts.Name), nil
	})

	// -----------------------------------------------------------------------
	// (vegetation "oak" :inner 1 :outer 4 :sparsity 1 :kind :colonisation
	//             :tree "oak" :variants 2 :material "bark" :leaf-material "leaf")
	// -----------------------------------------------------------------------
	env.AddFunction("vegetation", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		v := &catalog.Vegetation{Inner: 0.5, Outer: 5, Sparsity: 1, Kind: catalog.KindLSystem, Variants: 1}

		var err error
		if v.Name, err = pa.name("vegetation"); err != nil {
			return zygo.SexpNull, err
		}
		var kind string
		for _, set := range []error{
			pa.float("vegetation", "inner", &v.Inner),
			pa.float("vegetation", "outer", &v.Outer),
			pa.float("vegetation", "sparsity", &v.Sparsity),
			pa.str("vegetation", "kind", &kind),
			pa.str("vegetation", "rules", &v.RuleSet),
			pa.str("vegetation", "tree", &v.Tree),
			pa.int("vegetation", "variants", &v.Variants),
			pa.str("vegetation", "material", &v.Material),
			pa.str("vegetation", "leaf-material", &v.LeafMaterial),
		} {
			if set != nil {
				return zygo.SexpNull, set
			}
		}
		if kind != "" {
			v.Kind = catalog.Kind(kind)
		}

		if err := c.AddVegetation(v); err != nil {
			return zygo.SexpNull, fmt.Errorf("vegetation: %w", err)
		}
		return nameSexp(v.Name), nil
	})

	// -----------------------------------------------------------------------
	// (layer "canopy" :vegetation ["oak" "birch"])
	// -----------------------------------------------------------------------
	env.AddFunction("layer", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		l := &catalog.Layer{}

		var err error
		if l.Name, err = pa.name("layer"); err != nil {
			return zygo.SexpNull, err
		}
		if err := pa.strings("layer", "vegetation", &l.Vegetation); err != nil {
			return zygo.SexpNull, err
		}

		if err := c.AddLayer(l); err != nil {
			return zygo.SexpNull, fmt.Errorf("layer: %w", err)
		}
		return nameSexp(l.Name), nil
	})

	// -----------------------------------------------------------------------
	// (biome "temperate" :sparsity 1
	//        :climate [(vec2 150 50) (vec2 450 50) (vec2 450 300)]
	//        :layers ["canopy" "understory"])
	// -----------------------------------------------------------------------
	env.AddFunction("biome", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		b := &catalog.Biome{Sparsity: 1}

		var err error
		if b.Name, err = pa.name("biome"); err != nil {
			return zygo.SexpNull, err
		}
		if err := pa.float("biome", "sparsity", &b.Sparsity); err != nil {
			return zygo.SexpNull, err
		}
		if err := pa.strings("biome", "layers", &b.Layers); err != nil {
			return zygo.SexpNull, err
		}
		if v, ok := pa.kw["climate"]; ok {
			items, err := sexpListToSlice(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("biome: climate: %w", err)
			}
			for i, item := range items {
				p, err := toVec2(item)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("biome: climate point %d: %w", i, err)
				}
				b.Climate = append(b.Climate, p)
			}
		}

		if err := c.AddBiome(b); err != nil {
			return zygo.SexpNull, fmt.Errorf("biome: %w", err)
		}
		return nameSexp(b.Name), nil
	})
}

// defaultRuleParams are the turtle defaults a rule set starts from.
var defaultRuleParams = lsystem.Params{
	Step:           1,
	StepScale:      0.9,
	Angle:          25,
	AngleScale:     1,
	Thickness:      0.1,
	ThicknessScale: 0.7,
}
