// Package ecosystem runs a full generation request: it picks a biome for a
// climate, samples the biome's layers, projects the samples onto the
// ground, places instances and builds the meshes of every vegetation
// variant those instances refer to.
package ecosystem

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/chazu/verdant/pkg/catalog"
	"github.com/chazu/verdant/pkg/ground"
	"github.com/chazu/verdant/pkg/kernel"
	"github.com/chazu/verdant/pkg/logging"
	"github.com/chazu/verdant/pkg/rng"
	"github.com/chazu/verdant/pkg/sampling"
	"github.com/chazu/verdant/pkg/vecmath"
)

var (
	// ErrNoBiome is returned when the request names no known biome and no
	// biome matches its climate.
	ErrNoBiome = errors.New("ecosystem: no biome")
	// ErrNoCatalog is returned when a request carries no catalog.
	ErrNoCatalog = errors.New("ecosystem: no catalog")
)

// instanceNamespace seeds the name-based instance IDs.
var instanceNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("verdant/instance"))

// Request is one generation run.
type Request struct {
	Catalog *catalog.Catalog
	// Biome selects a biome by name. When empty the biome is chosen from
	// Temperature and Rainfall.
	Biome       string
	Temperature float64
	Rainfall    float64

	Bounds sampling.Bounds
	Probe  ground.Probe
	Target string

	MaxIncline        float64
	CheckHeightOffset float64
	CheckEncroachment bool
	MaxRejections     int

	LODLevels int
	MinRadius float64
	Seed      uint64
}

// Instance is one placed plant.
type Instance struct {
	ID         uuid.UUID    `yaml:"id"`
	Layer      int          `yaml:"layer"`
	LayerName  string       `yaml:"layer_name"`
	Species    int          `yaml:"species"`
	Vegetation string       `yaml:"vegetation"`
	Variant    int          `yaml:"variant"`
	Yaw        float64      `yaml:"yaw"`
	Position   vecmath.Vec3 `yaml:"position"`
	Inner      float64      `yaml:"inner"`
	Outer      float64      `yaml:"outer"`
}

// Leaf is a leaf placement on a generated skeleton.
type Leaf struct {
	Position    vecmath.Vec3 `yaml:"position"`
	Orientation vecmath.Vec3 `yaml:"orientation"`
}

// Variant is one generated skeleton of a vegetation description, meshed
// at every requested LOD.
type Variant struct {
	Vegetation   string
	Index        int
	Kind         catalog.Kind
	Material     string
	LeafMaterial string
	// LODs holds one mesh per level, LOD 0 first.
	LODs   []*kernel.Mesh
	Leaves []Leaf
}

// Failure records a vegetation description whose variants could not be
// generated. Instances that refer to it are still placed.
type Failure struct {
	Vegetation string
	Err        error
}

func (f Failure) Error() string {
	return fmt.Sprintf("vegetation %q: %v", f.Vegetation, f.Err)
}

// Stats counts what happened to the samples of a request.
type Stats struct {
	Sampled              int
	RejectedProjection   int
	RejectedEncroachment int
}

// Result is the output of Generate.
type Result struct {
	Biome     string
	Instances []Instance
	// ByLayer groups instances by layer name.
	ByLayer  map[string][]Instance
	Variants map[string][]Variant
	Failures []Failure
	Stats    Stats
}

// Generate runs req. Draws are consumed in a fixed order (sampling,
// placement, then variants in layer order) so a seed reproduces the
// whole result.
func Generate(req Request, logger *log.Logger) (*Result, error) {
	logger = logging.OrDiscard(logger)
	if req.Catalog == nil {
		return nil, ErrNoCatalog
	}
	c := req.Catalog

	biome, err := selectBiome(req)
	if err != nil {
		return nil, err
	}
	specs, err := c.LayerSpecs(biome)
	if err != nil {
		return nil, fmt.Errorf("ecosystem: %w", err)
	}

	projector, err := ground.NewProjector(req.Probe, req.Target, req.MaxIncline,
		ground.CheckHeight(req.Bounds, req.CheckHeightOffset))
	if err != nil {
		return nil, fmt.Errorf("ecosystem: %w", err)
	}

	src := rng.New(req.Seed)
	sampler := sampling.NewSampler(req.Bounds, biome.Sparsity, src, sampling.Options{
		MaxRejections: req.MaxRejections,
		Logger:        logger,
	})
	for i, spec := range specs {
		if _, err := sampler.SampleLayer(spec, i); err != nil {
			return nil, fmt.Errorf("ecosystem: %w", err)
		}
	}

	res := &Result{Biome: biome.Name, Variants: make(map[string][]Variant)}
	res.Stats.Sampled = sampler.Len()
	res.Instances = place(req, c, specs, sampler.Samples(), projector, src, &res.Stats, logger)
	res.ByLayer = lo.GroupBy(res.Instances, func(in Instance) string { return in.LayerName })

	for _, name := range usedVegetation(specs) {
		v := c.VegetationNamed(name)
		variants, err := buildVariants(c, v, req, src, logger)
		if err != nil {
			logger.Error("vegetation failed", "vegetation", name, "err", err)
			res.Failures = append(res.Failures, Failure{Vegetation: name, Err: err})
			continue
		}
		res.Variants[name] = variants
	}

	logger.Info("generated ecosystem",
		"biome", biome.Name,
		"sampled", res.Stats.Sampled,
		"placed", len(res.Instances),
		"rejected_projection", res.Stats.RejectedProjection,
		"rejected_encroachment", res.Stats.RejectedEncroachment,
		"variants", lo.SumBy(lo.Values(res.Variants), func(vs []Variant) int { return len(vs) }),
		"failures", len(res.Failures))
	return res, nil
}

func selectBiome(req Request) (*catalog.Biome, error) {
	if req.Biome != "" {
		if b := req.Catalog.Biome(req.Biome); b != nil {
			return b, nil
		}
		return nil, fmt.Errorf("%w: %q is not defined", ErrNoBiome, req.Biome)
	}
	b, err := req.Catalog.SelectBiome(req.Temperature, req.Rainfall)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoBiome, err)
	}
	return b, nil
}

// place projects every sample and turns the survivors into instances.
// Each survivor draws its variant then its yaw.
func place(req Request, c *catalog.Catalog, specs []sampling.LayerSpec, samples []sampling.Sample,
	projector *ground.Projector, src rng.Source, stats *Stats, logger *log.Logger) []Instance {

	var out []Instance
	for i, s := range samples {
		projected, ok := projector.Validate(s)
		if !ok {
			stats.RejectedProjection++
			logger.Debug("sample rejected by projection", "sample", i, "x", s.Position.X, "z", s.Position.Y)
			continue
		}
		if req.CheckEncroachment && projector.CheckEncroachment(projected) {
			stats.RejectedEncroachment++
			logger.Debug("sample rejected by encroachment", "sample", i, "x", s.Position.X, "z", s.Position.Y)
			continue
		}

		layer := specs[projected.Layer]
		name := layer.Species[projected.Species].Name
		v := c.VegetationNamed(name)
		out = append(out, Instance{
			ID:         uuid.NewSHA1(instanceNamespace, []byte(fmt.Sprintf("%d/%d", req.Seed, i))),
			Layer:      projected.Layer,
			LayerName:  layer.Name,
			Species:    projected.Species,
			Vegetation: name,
			Variant:    rng.Index(src, v.VariantCount()),
			Yaw:        rng.Value(src) * 360,
			Position:   projected.World,
			Inner:      projected.Inner,
			Outer:      projected.Outer,
		})
	}
	return out
}

// usedVegetation lists each species name once, in layer order.
func usedVegetation(specs []sampling.LayerSpec) []string {
	names := lo.FlatMap(specs, func(l sampling.LayerSpec, _ int) []string {
		return lo.Map(l.Species, func(s sampling.Species, _ int) string { return s.Name })
	})
	return lo.Uniq(names)
}
