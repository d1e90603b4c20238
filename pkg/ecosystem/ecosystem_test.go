package ecosystem_test

import (
	"errors"
	"math"
	"testing"

	"github.com/chazu/verdant/pkg/catalog"
	"github.com/chazu/verdant/pkg/colonise"
	"github.com/chazu/verdant/pkg/ecosystem"
	"github.com/chazu/verdant/pkg/ground"
	"github.com/chazu/verdant/pkg/lsystem"
	"github.com/chazu/verdant/pkg/sampling"
	"github.com/chazu/verdant/pkg/vecmath"
)

// meadow builds a catalog with one biome, one layer and one L-system
// species of inner 0.5 and outer 2.
func meadow(t *testing.T) *catalog.Catalog {
	t.Helper()
	c := catalog.New()
	for _, err := range []error{
		c.AddRuleSet(&catalog.RuleSet{
			Name:       "shrub",
			Axiom:      "F",
			Rules:      []string{"F=F[+F]F"},
			Iterations: 2,
			Params:     lsystem.Params{Step: 0.3, StepScale: 0.8, Angle: 25, AngleScale: 1, Thickness: 0.05, ThicknessScale: 0.7},
			Variation:  0.1,
		}),
		c.AddVegetation(&catalog.Vegetation{Name: "shrub", Inner: 0.5, Outer: 2, Sparsity: 1, Kind: catalog.KindLSystem, RuleSet: "shrub", Variants: 2}),
		c.AddLayer(&catalog.Layer{Name: "ground cover", Vegetation: []string{"shrub"}}),
		c.AddBiome(&catalog.Biome{
			Name:     "meadow",
			Sparsity: 1,
			Climate:  []vecmath.Vec2{{X: 0, Y: 0}, {X: 450, Y: 0}, {X: 450, Y: 450}, {X: 0, Y: 450}},
			Layers:   []string{"ground cover"},
		}),
	} {
		if err != nil {
			t.Fatal(err)
		}
	}
	return c
}

func request(c *catalog.Catalog, probe ground.Probe) ecosystem.Request {
	return ecosystem.Request{
		Catalog:     c,
		Temperature: 9,
		Rainfall:    125,
		Bounds:      sampling.Bounds{Max: vecmath.Vec3{X: 20, Y: 1, Z: 20}},
		Probe:       probe,
		Target:      "ground",
		MaxIncline:  10,
		LODLevels:   2,
		Seed:        3,
	}
}

func flat() ground.Probe {
	return ground.FlatProbe{Object: "ground"}
}

func TestGenerateFlatGround(t *testing.T) {
	res, err := ecosystem.Generate(request(meadow(t), flat()), nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Biome != "meadow" {
		t.Errorf("biome = %q", res.Biome)
	}
	if len(res.Instances) == 0 {
		t.Fatal("expected at least one instance")
	}
	if res.Stats.RejectedProjection != 0 {
		t.Errorf("rejected by projection = %d, want 0", res.Stats.RejectedProjection)
	}
	if res.Stats.Sampled != len(res.Instances) {
		t.Errorf("sampled %d, placed %d", res.Stats.Sampled, len(res.Instances))
	}

	for i, a := range res.Instances {
		if a.Position.Y != 0 {
			t.Errorf("instance %d not on the ground: %v", i, a.Position)
		}
		if a.Variant < 0 || a.Variant >= 2 {
			t.Errorf("instance %d variant %d", i, a.Variant)
		}
		if a.Yaw < 0 || a.Yaw >= 360 {
			t.Errorf("instance %d yaw %v", i, a.Yaw)
		}
		for j := i + 1; j < len(res.Instances); j++ {
			b := res.Instances[j]
			dx, dz := a.Position.X-b.Position.X, a.Position.Z-b.Position.Z
			if d := math.Hypot(dx, dz); d < a.Outer+b.Outer-1e-9 {
				t.Errorf("instances %d and %d overlap: distance %v", i, j, d)
			}
		}
	}

	if got := len(res.ByLayer["ground cover"]); got != len(res.Instances) {
		t.Errorf("ByLayer has %d instances, want %d", got, len(res.Instances))
	}

	variants := res.Variants["shrub"]
	if len(variants) != 2 {
		t.Fatalf("variants = %d, want 2", len(variants))
	}
	for _, v := range variants {
		if len(v.LODs) != 2 {
			t.Fatalf("variant %d has %d LODs", v.Index, len(v.LODs))
		}
		if v.LODs[0].IsEmpty() {
			t.Errorf("variant %d LOD 0 is empty", v.Index)
		}
		if v.LODs[1].VertexCount() >= v.LODs[0].VertexCount() {
			t.Errorf("variant %d LOD 1 not coarser than LOD 0", v.Index)
		}
	}
	if got := len(res.Meshes([]string{"shrub"}, 1)); got != 2 {
		t.Errorf("Meshes(lod 1) = %d, want 2", got)
	}
}

func TestGenerateDeterministic(t *testing.T) {
	c := meadow(t)
	a, err := ecosystem.Generate(request(c, flat()), nil)
	if err != nil {
		t.Fatal(err)
	}
	b, err := ecosystem.Generate(request(c, flat()), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(a.Instances) != len(b.Instances) {
		t.Fatalf("instance counts differ: %d vs %d", len(a.Instances), len(b.Instances))
	}
	for i := range a.Instances {
		if a.Instances[i] != b.Instances[i] {
			t.Fatalf("instance %d differs: %+v vs %+v", i, a.Instances[i], b.Instances[i])
		}
	}
	if a.Variants["shrub"][1].LODs[0].VertexCount() != b.Variants["shrub"][1].LODs[0].VertexCount() {
		t.Error("variant meshes differ between runs")
	}
}

func TestGenerateSteepGroundRejectsAll(t *testing.T) {
	steep := ground.FlatProbe{Object: "ground", Normal: vecmath.Vec3{X: 1, Y: 1}}
	res, err := ecosystem.Generate(request(meadow(t), steep), nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(res.Instances) != 0 {
		t.Errorf("placed %d instances on a 45° slope", len(res.Instances))
	}
	if res.Stats.RejectedProjection != res.Stats.Sampled {
		t.Errorf("rejected %d of %d", res.Stats.RejectedProjection, res.Stats.Sampled)
	}
}

func TestGenerateEncroachment(t *testing.T) {
	// A wall covers x >= 10.
	probe := ground.ProbeFunc(func(origin, dir vecmath.Vec3) (ground.Hit, bool) {
		obj := "ground"
		if origin.X >= 10 {
			obj = "wall"
		}
		return ground.Hit{Point: vecmath.Vec3{X: origin.X, Z: origin.Z}, Normal: vecmath.Up, Object: obj}, true
	})

	req := request(meadow(t), probe)
	req.CheckEncroachment = true
	res, err := ecosystem.Generate(req, nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Stats.RejectedEncroachment == 0 {
		t.Error("expected samples near the wall to be rejected")
	}
	for _, in := range res.Instances {
		if in.Position.X+in.Outer >= 10 {
			t.Errorf("instance at %v reaches the wall", in.Position)
		}
	}
}

func TestGenerateRecordsFailuresAndContinues(t *testing.T) {
	c := meadow(t)
	if err := c.AddTree(&catalog.TreeSpec{Name: "hollow", Params: colonise.DefaultParams()}); err != nil {
		t.Fatal(err)
	}
	if err := c.AddVegetation(&catalog.Vegetation{Name: "oak", Inner: 1, Outer: 3, Kind: catalog.KindColonisation, Tree: "hollow"}); err != nil {
		t.Fatal(err)
	}
	if err := c.AddLayer(&catalog.Layer{Name: "canopy", Vegetation: []string{"oak"}}); err != nil {
		t.Fatal(err)
	}
	c.Biomes[0].Layers = []string{"canopy", "ground cover"}

	res, err := ecosystem.Generate(request(c, flat()), nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(res.Failures) != 1 || res.Failures[0].Vegetation != "oak" {
		t.Fatalf("failures = %v", res.Failures)
	}
	if !errors.Is(res.Failures[0].Err, colonise.ErrNoTrunk) {
		t.Errorf("failure error = %v, want ErrNoTrunk", res.Failures[0].Err)
	}
	if len(res.Variants["shrub"]) != 2 {
		t.Errorf("shrub variants = %d, want 2", len(res.Variants["shrub"]))
	}
	if len(res.ByLayer["canopy"]) == 0 {
		t.Error("oak instances should still be placed")
	}
}

func TestGenerateColonisedTree(t *testing.T) {
	c := meadow(t)
	if err := c.AddTree(&catalog.TreeSpec{
		Name:   "oak",
		Params: colonise.DefaultParams(),
		Volume: colonise.Volume{Shapes: []colonise.VolumeShape{
			{Points: []vecmath.Vec3{{}, {Y: 1}}},
			{Points: []vecmath.Vec3{{X: -1, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 3}, {X: -1, Y: 3}}},
		}},
	}); err != nil {
		t.Fatal(err)
	}
	c.Vegetation[0].Kind = catalog.KindColonisation
	c.Vegetation[0].Tree = "oak"

	res, err := ecosystem.Generate(request(c, flat()), nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	variants := res.Variants["shrub"]
	if len(variants) != 2 {
		t.Fatalf("variants = %d, want 2", len(variants))
	}
	if variants[0].LODs[0].IsEmpty() || len(variants[0].Leaves) == 0 {
		t.Errorf("tree variant has no geometry or leaves")
	}
	// The catalog volume is copied, not consumed.
	if len(c.Trees[0].Volume.Shapes) != 2 {
		t.Errorf("catalog volume changed: %+v", c.Trees[0].Volume)
	}
}

func TestGenerateErrors(t *testing.T) {
	c := meadow(t)

	if _, err := ecosystem.Generate(ecosystem.Request{}, nil); !errors.Is(err, ecosystem.ErrNoCatalog) {
		t.Errorf("no catalog: %v", err)
	}

	req := request(c, nil)
	if _, err := ecosystem.Generate(req, nil); !errors.Is(err, ground.ErrNoProbe) {
		t.Errorf("no probe: %v", err)
	}

	req = request(c, flat())
	req.Biome = "desert"
	if _, err := ecosystem.Generate(req, nil); !errors.Is(err, ecosystem.ErrNoBiome) {
		t.Errorf("unknown biome name: %v", err)
	}

	req = request(c, flat())
	req.Rainfall = 500
	_, err := ecosystem.Generate(req, nil)
	if !errors.Is(err, ecosystem.ErrNoBiome) || !errors.Is(err, catalog.ErrUnknownBiome) {
		t.Errorf("climate outside every biome: %v", err)
	}

	req = request(c, flat())
	req.Biome = "meadow"
	if _, err := ecosystem.Generate(req, nil); err != nil {
		t.Errorf("explicit biome: %v", err)
	}
}
