// Package sampling implements a layered Poisson-disc sampler. Each layer
// call grows one shared sample set, keeping every footprint clear of the
// footprints already placed by earlier layers.
package sampling

import (
	"errors"
	"fmt"
	"math"

	"github.com/charmbracelet/log"
	"github.com/dhconnelly/rtreego"

	"github.com/chazu/verdant/pkg/logging"
	"github.com/chazu/verdant/pkg/rng"
	"github.com/chazu/verdant/pkg/vecmath"
)

// DefaultMaxRejections is the number of failed trials a spawn point may
// accumulate before it is dropped from the front.
const DefaultMaxRejections = 25

// ErrInvalidSpecies is returned when a species has a non-positive outer
// radius or a negative inner radius.
var ErrInvalidSpecies = errors.New("sampling: invalid species radii")

// Species is one placeable kind within a layer.
type Species struct {
	Name     string
	Inner    float64
	Outer    float64
	Sparsity float64
}

// LayerSpec is the ordered species list of one vegetation layer.
type LayerSpec struct {
	Name    string
	Species []Species
}

// Bounds is an axis-aligned world box. Sampling uses its X and Z extent;
// Y is used by ground projection.
type Bounds struct {
	Min, Max vecmath.Vec3
}

// Sample is one placed footprint. Position is in the ground plane, with
// Position.Y holding world Z. World is set by ground projection.
type Sample struct {
	Position vecmath.Vec2
	Inner    float64
	Outer    float64
	Layer    int
	Species  int
	World    vecmath.Vec3
}

// minDistance is the separation required between a sample of this
// footprint and other, given whether they share a layer.
func (s Sample) minDistance(other Sample) float64 {
	if s.Layer == other.Layer {
		return s.Outer + other.Outer
	}
	return s.Outer + other.Inner
}

// Overlaps reports whether s violates the spacing rule of the already
// placed sample other, measured with other's own radii.
func (s Sample) Overlaps(other Sample) bool {
	d := s.minDistance(other)
	return s.Position.DistanceSquared(other.Position) < d*d
}

// Options tunes a Sampler.
type Options struct {
	MaxRejections int
	Logger        *log.Logger
}

// indexed places a sample into the R-tree.
type indexed struct {
	idx  int
	rect rtreego.Rect
}

func (e *indexed) Bounds() rtreego.Rect { return e.rect }

// pointTolerance gives points a non-degenerate extent in the tree.
const pointTolerance = 1e-9

// Sampler owns the running sample set shared by all layers of one
// generation request. It is not safe for concurrent use.
type Sampler struct {
	bounds        Bounds
	sparsity      float64
	src           rng.Source
	maxRejections int
	log           *log.Logger

	samples  []Sample
	tree     *rtreego.Rtree
	maxReach float64
}

// NewSampler returns a sampler over bounds. sparsity scales every
// species' radii; values <= 0 are treated as 1.
func NewSampler(bounds Bounds, sparsity float64, src rng.Source, opts Options) *Sampler {
	if sparsity <= 0 {
		sparsity = 1
	}
	maxRej := opts.MaxRejections
	if maxRej <= 0 {
		maxRej = DefaultMaxRejections
	}
	return &Sampler{
		bounds:        bounds,
		sparsity:      sparsity,
		src:           src,
		maxRejections: maxRej,
		log:           logging.OrDiscard(opts.Logger),
		tree:          rtreego.NewTree(2, 25, 50),
	}
}

// Samples returns every accepted sample in acceptance order.
func (s *Sampler) Samples() []Sample {
	return s.samples
}

// Len returns the number of accepted samples.
func (s *Sampler) Len() int {
	return len(s.samples)
}

// SampleLayer adds samples for one layer and returns how many were
// accepted. Layers must be sampled in a fixed order for a seed to
// reproduce the same placement.
func (s *Sampler) SampleLayer(layer LayerSpec, index int) (int, error) {
	if len(layer.Species) == 0 {
		return 0, nil
	}
	for _, sp := range layer.Species {
		if sp.Outer <= 0 || sp.Inner < 0 {
			return 0, fmt.Errorf("sampling: layer %q species %q: %w", layer.Name, sp.Name, ErrInvalidSpecies)
		}
	}

	before := len(s.samples)
	var front []int
	if len(s.samples) == 0 {
		seed, ok := s.seed(layer, index)
		if !ok {
			s.log.Debug("bounds too small to seed", "layer", index, "name", layer.Name)
			return 0, nil
		}
		front = append(front, s.add(seed))
	} else {
		front = make([]int, len(s.samples))
		for i := range front {
			front[i] = i
		}
	}

	for len(front) > 0 {
		candidate := s.candidate(layer, index)
		slot := rng.Index(s.src, len(front))
		spawn := s.samples[front[slot]]

		accepted := false
		for rejections := 0; rejections <= s.maxRejections; rejections++ {
			candidate.Position = s.around(spawn, candidate)
			if s.contains(candidate) && !s.overlapsAny(candidate) {
				accepted = true
				break
			}
		}

		if accepted {
			front = append(front, s.add(candidate))
			continue
		}
		front = append(front[:slot], front[slot+1:]...)
	}

	added := len(s.samples) - before
	s.log.Debug("sampled layer", "layer", index, "name", layer.Name, "added", added, "total", len(s.samples))
	return added, nil
}

// candidate draws a species and returns a sample carrying its scaled radii.
func (s *Sampler) candidate(layer LayerSpec, index int) Sample {
	i := rng.Index(s.src, len(layer.Species))
	sp := layer.Species[i]
	scale := sp.Sparsity
	if scale <= 0 {
		scale = 1
	}
	scale *= s.sparsity
	return Sample{
		Inner:   sp.Inner * scale,
		Outer:   sp.Outer * scale,
		Layer:   index,
		Species: i,
	}
}

// seed places the very first sample uniformly inside the bounds shrunk by
// its outer radius.
func (s *Sampler) seed(layer LayerSpec, index int) (Sample, bool) {
	c := s.candidate(layer, index)
	minX, maxX := s.bounds.Min.X+c.Outer, s.bounds.Max.X-c.Outer
	minZ, maxZ := s.bounds.Min.Z+c.Outer, s.bounds.Max.Z-c.Outer
	if maxX < minX || maxZ < minZ {
		return Sample{}, false
	}
	c.Position = vecmath.Vec2{
		X: minX + rng.Value(s.src)*(maxX-minX),
		Y: minZ + rng.Value(s.src)*(maxZ-minZ),
	}
	return c, true
}

// around draws a position at a random angle and a distance in
// [minDist, 2·minDist) from spawn. The distance is not area-uniform,
// which packs samples more tightly.
func (s *Sampler) around(spawn, c Sample) vecmath.Vec2 {
	angle := rng.Angle(s.src)
	dir := vecmath.Vec2{X: math.Sin(angle), Y: math.Cos(angle)}
	minDist := c.minDistance(spawn)
	return spawn.Position.Add(dir.MulScalar(rng.Range(s.src, minDist, 2*minDist)))
}

func (s *Sampler) contains(c Sample) bool {
	p := c.Position
	return p.X-c.Outer >= s.bounds.Min.X && p.X+c.Outer <= s.bounds.Max.X &&
		p.Y-c.Outer >= s.bounds.Min.Z && p.Y+c.Outer <= s.bounds.Max.Z
}

// overlapsAny tests c against every sample the R-tree returns within the
// largest separation any placed sample could demand.
func (s *Sampler) overlapsAny(c Sample) bool {
	reach := c.Outer + s.maxReach + pointTolerance
	query := rtreego.Point{c.Position.X, c.Position.Y}.ToRect(reach)
	for _, hit := range s.tree.SearchIntersect(query) {
		if c.Overlaps(s.samples[hit.(*indexed).idx]) {
			return true
		}
	}
	return false
}

func (s *Sampler) add(c Sample) int {
	idx := len(s.samples)
	s.samples = append(s.samples, c)
	s.tree.Insert(&indexed{
		idx:  idx,
		rect: rtreego.Point{c.Position.X, c.Position.Y}.ToRect(pointTolerance),
	})
	s.maxReach = max(s.maxReach, c.Outer, c.Inner)
	return idx
}
