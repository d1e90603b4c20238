// Package rng provides the explicit, seedable random source threaded
// through every generation call. Algorithms never touch a global
// generator; they consume draws from a Source in a fixed order so that a
// seed fully determines the output.
package rng

import (
	"math"

	"golang.org/x/exp/rand"

	"github.com/chazu/verdant/pkg/vecmath"
)

// Source is the subset of *rand.Rand the generators consume.
type Source interface {
	Float64() float64
	Intn(n int) int
}

// New returns a PCG-backed generator seeded with seed.
func New(seed uint64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// Value returns a draw in [0, 1).
func Value(r Source) float64 {
	return r.Float64()
}

// Range returns a draw in [lo, hi). When hi <= lo it returns lo without
// consuming a draw.
func Range(r Source, lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + r.Float64()*(hi-lo)
}

// Index returns a uniform index in [0, n). n must be positive.
func Index(r Source, n int) int {
	if n <= 1 {
		return 0
	}
	return r.Intn(n)
}

// InsideUnitSphere returns a point uniformly distributed in the unit ball.
// It consumes three draws per attempt and retries until the point falls
// inside the ball.
func InsideUnitSphere(r Source) vecmath.Vec3 {
	for {
		p := vecmath.Vec3{
			X: r.Float64()*2 - 1,
			Y: r.Float64()*2 - 1,
			Z: r.Float64()*2 - 1,
		}
		if p.LengthSquared() <= 1 {
			return p
		}
	}
}

// Angle returns a uniformly random angle in [0, 2π).
func Angle(r Source) float64 {
	return r.Float64() * 2 * math.Pi
}
