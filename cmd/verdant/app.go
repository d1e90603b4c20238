package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/chazu/verdant/pkg/catalog"
	"github.com/chazu/verdant/pkg/config"
	"github.com/chazu/verdant/pkg/ecosystem"
	"github.com/chazu/verdant/pkg/engine"
	"github.com/chazu/verdant/pkg/ground"
	"github.com/chazu/verdant/pkg/kernel"
	"github.com/chazu/verdant/pkg/kernel/sdfx"
	"github.com/chazu/verdant/pkg/rng"
	"github.com/chazu/verdant/pkg/sampling"
	"github.com/chazu/verdant/pkg/tessellate"
	"github.com/chazu/verdant/pkg/vecmath"
)

// rockSalt decorrelates rock placement from the ecosystem's own draws.
const rockSalt = 0x9e3779b97f4a7c15

// app evaluates a catalog, generates against a ground scene and writes the
// results to disk.
type app struct {
	engine *engine.Engine
	kernel kernel.Kernel
	logger *log.Logger
}

// options are the per-run inputs that do not come from the config file.
type options struct {
	catalogPath string
	size        float64
	rocks       int
}

// manifest is the YAML summary written next to the meshes.
type manifest struct {
	Biome     string               `yaml:"biome"`
	Seed      uint64               `yaml:"seed"`
	Ground    string               `yaml:"ground"`
	Instances []ecosystem.Instance `yaml:"instances"`
	Variants  []manifestVariant    `yaml:"variants"`
	Failures  []string             `yaml:"failures,omitempty"`
}

type manifestVariant struct {
	Vegetation   string   `yaml:"vegetation"`
	Index        int      `yaml:"index"`
	Kind         string   `yaml:"kind"`
	Material     string   `yaml:"material,omitempty"`
	LeafMaterial string   `yaml:"leaf_material,omitempty"`
	Files        []string `yaml:"files"`
	Leaves       int      `yaml:"leaves"`
}

// newApp creates an app with an engine and the sdfx kernel.
func newApp(logger *log.Logger) *app {
	return &app{
		engine: engine.NewEngine(logger),
		kernel: sdfx.New(),
		logger: logger,
	}
}

// run is one full generation pass. It returns the path of the manifest.
func (a *app) run(cfg *config.Config, opts options) (string, error) {
	// Step 1: evaluate the catalog source.
	c, err := a.loadCatalog(opts.catalogPath)
	if err != nil {
		return "", err
	}

	// Step 2: build the ground scene and probe it.
	objects, parts := a.scene(cfg, opts)
	probe := ground.NewSolidProbe(objects...)

	// Step 3: generate.
	res, err := ecosystem.Generate(ecosystem.Request{
		Catalog:           c,
		Temperature:       cfg.Climate.Temperature,
		Rainfall:          cfg.Climate.Rainfall,
		Bounds:            sampling.Bounds{Max: vecmath.Vec3{X: opts.size, Y: 1, Z: opts.size}},
		Probe:             probe,
		Target:            cfg.Projection.Target,
		MaxIncline:        cfg.Projection.MaxIncline,
		CheckHeightOffset: cfg.Projection.CheckHeightOffset,
		CheckEncroachment: cfg.Projection.CheckEncroachment,
		MaxRejections:     cfg.Projection.MaxRejections,
		LODLevels:         cfg.Mesh.LODLevels,
		MinRadius:         cfg.Mesh.MinRadius,
		Seed:              cfg.Seed,
	}, a.logger)
	if err != nil {
		return "", err
	}

	// Step 4: write meshes and the manifest.
	return a.write(cfg, res, parts)
}

// loadCatalog evaluates path and fails on evaluation errors or blocking
// validation findings.
func (a *app) loadCatalog(path string) (*catalog.Catalog, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	res, err := a.engine.EvaluateResult(string(src))
	if err != nil {
		return nil, fmt.Errorf("evaluate %s: %w", path, err)
	}
	if len(res.Errors) > 0 {
		return nil, fmt.Errorf("evaluate %s: %w", path,
			errors.Join(lo.Map(res.Errors, func(e engine.EvalError, _ int) error { return e })...))
	}
	if err := res.Findings.Err(); err != nil {
		return nil, fmt.Errorf("validate %s: %w", path, err)
	}
	return res.Catalog, nil
}

// scene returns the probe objects and the preview parts of a ground slab
// of size × 1 × size with rocks resting on top.
func (a *app) scene(cfg *config.Config, opts options) ([]ground.Object, []tessellate.Part) {
	k := a.kernel
	slab := k.Box(opts.size, 1, opts.size)
	objects := []ground.Object{{Name: cfg.Projection.Target, Solid: slab}}
	parts := []tessellate.Part{{Name: cfg.Projection.Target, Solid: slab}}

	src := rng.New(cfg.Seed ^ rockSalt)
	for i := 0; i < opts.rocks; i++ {
		r := rng.Range(src, 0.5, 1.5)
		x := rng.Range(src, r, opts.size-r)
		z := rng.Range(src, r, opts.size-r)
		rock := k.Translate(k.Sphere(r), x, 1, z)
		name := fmt.Sprintf("rock_%d", i)
		objects = append(objects, ground.Object{Name: name, Solid: rock})
		parts = append(parts, tessellate.Part{Name: name, Solid: rock})
	}
	return objects, parts
}

func (a *app) write(cfg *config.Config, res *ecosystem.Result, parts []tessellate.Part) (string, error) {
	dir := cfg.Output.Dir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	preview, err := tessellate.Parts(a.kernel, parts...)
	if err != nil {
		return "", err
	}
	groundFile := "ground.stl"
	if err := sdfx.WriteSTL(filepath.Join(dir, groundFile), preview...); err != nil {
		return "", err
	}

	m := manifest{
		Biome:     res.Biome,
		Seed:      cfg.Seed,
		Ground:    groundFile,
		Instances: res.Instances,
		Failures:  lo.Map(res.Failures, func(f ecosystem.Failure, _ int) string { return f.Error() }),
	}
	names := lo.Keys(res.Variants)
	slices.Sort(names)
	for _, name := range names {
		for _, v := range res.Variants[name] {
			mv := manifestVariant{
				Vegetation:   v.Vegetation,
				Index:        v.Index,
				Kind:         string(v.Kind),
				Material:     v.Material,
				LeafMaterial: v.LeafMaterial,
				Leaves:       len(v.Leaves),
			}
			for _, mesh := range v.LODs {
				if mesh.IsEmpty() {
					a.logger.Warn("skipping empty mesh", "mesh", mesh.Name)
					continue
				}
				file := mesh.Name + ".stl"
				if err := sdfx.WriteSTL(filepath.Join(dir, file), mesh); err != nil {
					return "", err
				}
				mv.Files = append(mv.Files, file)
			}
			m.Variants = append(m.Variants, mv)
		}
	}

	data, err := yaml.Marshal(&m)
	if err != nil {
		return "", fmt.Errorf("encode manifest: %w", err)
	}
	path := filepath.Join(dir, cfg.Output.Manifest)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write manifest: %w", err)
	}
	a.logger.Info("wrote output", "dir", dir, "instances", len(m.Instances), "variants", len(m.Variants))
	return path, nil
}
