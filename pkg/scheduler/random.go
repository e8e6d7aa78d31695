package scheduler

import "math/rand/v2"

// RandomSource provides random values for response delay calculation.
// Allows injection of deterministic sources for testing.
type RandomSource interface {
	// Float64 returns a random float64 in [0.0, 1.0).
	Float64() float64
}

// defaultRandomSource uses math/rand/v2 for production.
type defaultRandomSource struct{}

func (defaultRandomSource) Float64() float64 {
	return rand.Float64()
}

// DefaultRandomSource is the default random source using math/rand/v2.
var DefaultRandomSource RandomSource = defaultRandomSource{}

// FixedRandom is a RandomSource that always returns the same value.
type FixedRandom float64

// Float64 returns f.
func (f FixedRandom) Float64() float64 { return float64(f) }
