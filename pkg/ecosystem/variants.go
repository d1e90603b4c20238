package ecosystem

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/jinzhu/copier"

	"github.com/chazu/verdant/pkg/catalog"
	"github.com/chazu/verdant/pkg/colonise"
	"github.com/chazu/verdant/pkg/kernel"
	"github.com/chazu/verdant/pkg/lsystem"
	"github.com/chazu/verdant/pkg/rng"
	"github.com/chazu/verdant/pkg/tessellate"
)

// buildVariants generates every variant of v and meshes it at each LOD.
func buildVariants(c *catalog.Catalog, v *catalog.Vegetation, req Request, src rng.Source, logger *log.Logger) ([]Variant, error) {
	lods := max(req.LODLevels, 1)
	out := make([]Variant, 0, v.VariantCount())

	switch v.Kind {
	case catalog.KindLSystem:
		rs := c.RuleSet(v.RuleSet)
		if rs == nil {
			return nil, fmt.Errorf("rule set %q does not exist", v.RuleSet)
		}
		sys := lsystem.NewSystem(rs.Axiom, rs.Rules, rs.Iterations, rs.Params, logger)
		for i := 0; i < v.VariantCount(); i++ {
			p := jitter(rs.Params, rs.Variation, src)
			r := lsystem.Interpret(sys.Sentence(), p, src)
			name := variantName(v.Name, i)
			lsystem.Describe(logger, name, r)

			variant := newVariant(v, i)
			for lod := 0; lod < lods; lod++ {
				variant.LODs = append(variant.LODs, tessellate.Branches(r.Branches, lod, tessellate.Options{
					Name:      lodName(name, lod),
					MinRadius: req.MinRadius,
				}))
			}
			for _, l := range r.Leaves {
				variant.Leaves = append(variant.Leaves, Leaf{Position: l.Position, Orientation: l.Forward})
			}
			out = append(out, variant)
		}

	case catalog.KindColonisation:
		ts := c.Tree(v.Tree)
		if ts == nil {
			return nil, fmt.Errorf("tree %q does not exist", v.Tree)
		}
		// Growth reads the volume through a pointer; work on a private copy
		// so the catalog stays untouched.
		var spec catalog.TreeSpec
		if err := copier.CopyWithOption(&spec, ts, copier.Option{DeepCopy: true}); err != nil {
			return nil, fmt.Errorf("copy tree %q: %w", ts.Name, err)
		}
		for i := 0; i < v.VariantCount(); i++ {
			tree, err := colonise.Grow(colonise.Spec{
				Volume:   &spec.Volume,
				Envelope: spec.Envelope,
				Params:   spec.Params,
			}, src, logger)
			if err != nil {
				return nil, fmt.Errorf("tree %q: %w", ts.Name, err)
			}
			name := variantName(v.Name, i)

			variant := newVariant(v, i)
			for lod := 0; lod < lods; lod++ {
				variant.LODs = append(variant.LODs, tessellate.Arena(tree, lod, tessellate.Options{
					Name:             lodName(name, lod),
					MinRadius:        req.MinRadius,
					OverrideSegments: spec.Params.OverrideSegments,
				}))
			}
			for _, f := range tree.Foliage {
				variant.Leaves = append(variant.Leaves, Leaf{Position: f.Position, Orientation: f.Orientation})
			}
			out = append(out, variant)
		}

	default:
		return nil, fmt.Errorf("unknown kind %q", v.Kind)
	}
	return out, nil
}

// jitter scales step and angle by independent draws in [1-v, 1+v). A
// non-positive variation consumes no draws.
func jitter(p lsystem.Params, variation float64, src rng.Source) lsystem.Params {
	if variation <= 0 {
		return p
	}
	p.Step *= 1 + lsystem.Variation(src, variation)
	p.Angle *= 1 + lsystem.Variation(src, variation)
	return p
}

func newVariant(v *catalog.Vegetation, i int) Variant {
	return Variant{
		Vegetation:   v.Name,
		Index:        i,
		Kind:         v.Kind,
		Material:     v.Material,
		LeafMaterial: v.LeafMaterial,
	}
}

func variantName(vegetation string, i int) string {
	return fmt.Sprintf("%s_v%d", vegetation, i)
}

func lodName(variant string, lod int) string {
	return fmt.Sprintf("%s_lod%d", variant, lod)
}

// Meshes returns every variant mesh at lod, in vegetation then variant
// order as given by names.
func (r *Result) Meshes(names []string, lod int) []*kernel.Mesh {
	var out []*kernel.Mesh
	for _, n := range names {
		for _, v := range r.Variants[n] {
			if lod < len(v.LODs) {
				out = append(out, v.LODs[lod])
			}
		}
	}
	return out
}
