package lsystem

import (
	"github.com/chazu/verdant/pkg/rng"
)

// Variation returns a draw in [-v, v). It is the per-variant jitter applied
// to a rule set's step and angle. A non-positive v returns 0 without
// consuming a draw.
func Variation(r rng.Source, v float64) float64 {
	if v <= 0 {
		return 0
	}
	return rng.Range(r, -v, v)
}
