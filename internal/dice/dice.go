// Package dice supplies the die values consumed by the pig rules
// engine. The engine itself never rolls; anything that can produce an
// integer in [1,6] satisfies Roller, which keeps game tests fully
// deterministic.
package dice

import rand "math/rand/v2"

const goldenRatio64 = 0x9e3779b97f4a7c15

// Roller produces a single die value in [1,6].
//
// Implementations must be safe for use from a single goroutine; wrap
// with a lock if shared.
type Roller interface {
	Roll() int
}

// New returns an unbiased Roller seeded deterministically from seed.
// The two 64-bit PCG seeds are derived with a splitmix-style finalizer
// so that all call sites get reproducible sequences.
func New(seed int64) Roller {
	return &pcgRoller{rng: newRand(seed)}
}

// NewLegacy returns a Roller that reproduces the original modulo-6
// mapping of a wide random draw (draw%6 + 1). The mapping carries a
// vanishingly small bias toward low faces; it exists for behavioral
// parity with sequences recorded against the original mapping, and New
// should be preferred otherwise.
func NewLegacy(seed int64) Roller {
	return &legacyRoller{rng: newRand(seed)}
}

func newRand(seed int64) *rand.Rand {
	u := uint64(seed)
	return rand.New(rand.NewPCG(mix(u), mix(u+goldenRatio64)))
}

type pcgRoller struct {
	rng *rand.Rand
}

func (r *pcgRoller) Roll() int {
	return r.rng.IntN(6) + 1
}

type legacyRoller struct {
	rng *rand.Rand
}

func (r *legacyRoller) Roll() int {
	return int(r.rng.Uint64()%6) + 1
}

func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
