package analysis

import "math/rand/v2"

// FloatSource supplies the uniform random values in [0, 1) used for the
// naturalness noise injected into confidences, sub-scores, and waveforms.
// *rand.Rand from math/rand/v2 satisfies the interface, which is how tests
// pin the engine to a deterministic seed.
type FloatSource interface {
	Float64() float64
}

// sharedSource draws from the process-wide math/rand/v2 generator, which is
// safe for concurrent use. It is the default noise source.
type sharedSource struct{}

func (sharedSource) Float64() float64 { return rand.Float64() }
