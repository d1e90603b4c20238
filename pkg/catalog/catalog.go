// Package catalog holds the authored records that drive generation:
// biomes, vegetation layers, vegetation descriptions, L-system rule sets
// and space-colonisation tree specs. Records reference each other by name.
package catalog

import (
	"errors"
	"fmt"

	"github.com/chazu/verdant/pkg/colonise"
	"github.com/chazu/verdant/pkg/lsystem"
	"github.com/chazu/verdant/pkg/sampling"
	"github.com/chazu/verdant/pkg/vecmath"
)

// ErrUnknownBiome is returned when no biome matches a climate.
var ErrUnknownBiome = errors.New("catalog: no biome for climate")

// Kind selects the skeleton generator of a vegetation description.
type Kind string

const (
	KindLSystem      Kind = "lsystem"
	KindColonisation Kind = "colonisation"
)

// RuleSet is an L-system grammar with its turtle defaults.
type RuleSet struct {
	Name       string         `yaml:"name" json:"name"`
	Axiom      string         `yaml:"axiom" json:"axiom"`
	Rules      []string       `yaml:"rules" json:"rules"`
	Iterations int            `yaml:"iterations" json:"iterations"`
	Params     lsystem.Params `yaml:"params" json:"params"`
	// Variation jitters step and angle per variant.
	Variation float64 `yaml:"variation" json:"variation"`
}

// TreeSpec is a space-colonisation prefab: growth parameters plus the
// volume (or envelope) the tree grows in.
type TreeSpec struct {
	Name     string                   `yaml:"name" json:"name"`
	Params   colonise.Params          `yaml:"params" json:"params"`
	Volume   colonise.Volume          `yaml:"volume" json:"volume"`
	Envelope *colonise.SphereEnvelope `yaml:"envelope,omitempty" json:"envelope,omitempty"`
}

// Vegetation describes one plant: its footprint radii, sparsity and the
// generator that builds its skeleton.
type Vegetation struct {
	Name         string  `yaml:"name" json:"name"`
	Inner        float64 `yaml:"inner" json:"inner"`
	Outer        float64 `yaml:"outer" json:"outer"`
	Sparsity     float64 `yaml:"sparsity" json:"sparsity"`
	Kind         Kind    `yaml:"kind" json:"kind"`
	RuleSet      string  `yaml:"rules,omitempty" json:"rules,omitempty"`
	Tree         string  `yaml:"tree,omitempty" json:"tree,omitempty"`
	Variants     int     `yaml:"variants" json:"variants"`
	Material     string  `yaml:"material,omitempty" json:"material,omitempty"`
	LeafMaterial string  `yaml:"leaf_material,omitempty" json:"leaf_material,omitempty"`
}

// VariantCount returns Variants, at least 1.
func (v *Vegetation) VariantCount() int {
	return max(v.Variants, 1)
}

// Layer is a group of vegetation sampled together.
type Layer struct {
	Name       string   `yaml:"name" json:"name"`
	Vegetation []string `yaml:"vegetation" json:"vegetation"`
}

// Biome binds layers to a region of the temperature/rainfall graph.
type Biome struct {
	Name     string  `yaml:"name" json:"name"`
	Sparsity float64 `yaml:"sparsity" json:"sparsity"`
	// Climate is a polygon in graph units: x = (temperature+15)*10,
	// y = rainfall.
	Climate []vecmath.Vec2 `yaml:"climate" json:"climate"`
	Layers  []string       `yaml:"layers" json:"layers"`
}

// Catalog is a registry of records. Each kind keeps insertion order and a
// name index.
type Catalog struct {
	Biomes     []*Biome      `yaml:"biomes" json:"biomes"`
	Layers     []*Layer      `yaml:"layers" json:"layers"`
	Vegetation []*Vegetation `yaml:"vegetation" json:"vegetation"`
	RuleSets   []*RuleSet    `yaml:"rule_sets" json:"rule_sets"`
	Trees      []*TreeSpec   `yaml:"trees" json:"trees"`

	index map[string]map[string]int
}

const (
	kindBiome      = "biome"
	kindLayer      = "layer"
	kindVegetation = "vegetation"
	kindRuleSet    = "rules"
	kindTree       = "tree"
)

// New creates an empty catalog.
func New() *Catalog {
	return &Catalog{index: make(map[string]map[string]int)}
}

func (c *Catalog) register(kind, name string, pos int) error {
	if name == "" {
		return fmt.Errorf("catalog: %s must have a name", kind)
	}
	if c.index == nil {
		c.index = make(map[string]map[string]int)
	}
	names := c.index[kind]
	if names == nil {
		names = make(map[string]int)
		c.index[kind] = names
	}
	if _, exists := names[name]; exists {
		return fmt.Errorf("catalog: %s %q already defined", kind, name)
	}
	names[name] = pos
	return nil
}

func (c *Catalog) lookup(kind, name string) (int, bool) {
	if c.index == nil {
		c.reindex()
	}
	i, ok := c.index[kind][name]
	return i, ok
}

// reindex rebuilds the name index, for catalogs built as struct literals
// or decoded from a file. Later duplicates are left to Validate.
func (c *Catalog) reindex() {
	c.index = make(map[string]map[string]int)
	add := func(kind, name string, i int) {
		if c.index[kind] == nil {
			c.index[kind] = make(map[string]int)
		}
		if _, dup := c.index[kind][name]; !dup {
			c.index[kind][name] = i
		}
	}
	for i, b := range c.Biomes {
		add(kindBiome, b.Name, i)
	}
	for i, l := range c.Layers {
		add(kindLayer, l.Name, i)
	}
	for i, v := range c.Vegetation {
		add(kindVegetation, v.Name, i)
	}
	for i, r := range c.RuleSets {
		add(kindRuleSet, r.Name, i)
	}
	for i, t := range c.Trees {
		add(kindTree, t.Name, i)
	}
}

// AddBiome registers a biome. Names must be unique per record kind.
func (c *Catalog) AddBiome(b *Biome) error {
	if err := c.register(kindBiome, b.Name, len(c.Biomes)); err != nil {
		return err
	}
	c.Biomes = append(c.Biomes, b)
	return nil
}

// AddLayer registers a layer.
func (c *Catalog) AddLayer(l *Layer) error {
	if err := c.register(kindLayer, l.Name, len(c.Layers)); err != nil {
		return err
	}
	c.Layers = append(c.Layers, l)
	return nil
}

// AddVegetation registers a vegetation description.
func (c *Catalog) AddVegetation(v *Vegetation) error {
	if err := c.register(kindVegetation, v.Name, len(c.Vegetation)); err != nil {
		return err
	}
	c.Vegetation = append(c.Vegetation, v)
	return nil
}

// AddRuleSet registers an L-system rule set.
func (c *Catalog) AddRuleSet(r *RuleSet) error {
	if err := c.register(kindRuleSet, r.Name, len(c.RuleSets)); err != nil {
		return err
	}
	c.RuleSets = append(c.RuleSets, r)
	return nil
}

// AddTree registers a space-colonisation tree spec.
func (c *Catalog) AddTree(t *TreeSpec) error {
	if err := c.register(kindTree, t.Name, len(c.Trees)); err != nil {
		return err
	}
	c.Trees = append(c.Trees, t)
	return nil
}

// Biome returns the biome with the given name, or nil.
func (c *Catalog) Biome(name string) *Biome {
	if i, ok := c.lookup(kindBiome, name); ok {
		return c.Biomes[i]
	}
	return nil
}

// Layer returns the layer with the given name, or nil.
func (c *Catalog) Layer(name string) *Layer {
	if i, ok := c.lookup(kindLayer, name); ok {
		return c.Layers[i]
	}
	return nil
}

// VegetationNamed returns the vegetation description with the given name,
// or nil.
func (c *Catalog) VegetationNamed(name string) *Vegetation {
	if i, ok := c.lookup(kindVegetation, name); ok {
		return c.Vegetation[i]
	}
	return nil
}

// RuleSet returns the rule set with the given name, or nil.
func (c *Catalog) RuleSet(name string) *RuleSet {
	if i, ok := c.lookup(kindRuleSet, name); ok {
		return c.RuleSets[i]
	}
	return nil
}

// Tree returns the tree spec with the given name, or nil.
func (c *Catalog) Tree(name string) *TreeSpec {
	if i, ok := c.lookup(kindTree, name); ok {
		return c.Trees[i]
	}
	return nil
}

// climatePoint maps a climate onto the biome graph.
func climatePoint(temperature, rainfall float64) vecmath.Vec2 {
	return vecmath.Vec2{X: (temperature + 15) * 10, Y: rainfall}
}

// SelectBiome returns the first biome whose climate polygon contains the
// given temperature (°C) and rainfall (cm).
func (c *Catalog) SelectBiome(temperature, rainfall float64) (*Biome, error) {
	p := climatePoint(temperature, rainfall)
	for _, b := range c.Biomes {
		if vecmath.PointInPolygon(p, b.Climate) {
			return b, nil
		}
	}
	return nil, fmt.Errorf("%w: temperature %g, rainfall %g", ErrUnknownBiome, temperature, rainfall)
}

// LayerSpecs resolves a biome's layers into sampler input. Species keep
// the order of the layer's vegetation list.
func (c *Catalog) LayerSpecs(b *Biome) ([]sampling.LayerSpec, error) {
	specs := make([]sampling.LayerSpec, 0, len(b.Layers))
	for _, name := range b.Layers {
		l := c.Layer(name)
		if l == nil {
			return nil, fmt.Errorf("catalog: biome %q: unknown layer %q", b.Name, name)
		}
		spec := sampling.LayerSpec{Name: l.Name}
		for _, vname := range l.Vegetation {
			v := c.VegetationNamed(vname)
			if v == nil {
				return nil, fmt.Errorf("catalog: layer %q: unknown vegetation %q", l.Name, vname)
			}
			spec.Species = append(spec.Species, sampling.Species{
				Name:     v.Name,
				Inner:    v.Inner,
				Outer:    v.Outer,
				Sparsity: v.Sparsity,
			})
		}
		specs = append(specs, spec)
	}
	return specs, nil
}
