// Package randutil centralises deterministic RNG construction. Solver and
// resolver code never touch process-global randomness; every worker gets an
// explicit stream derived from a run seed so results reproduce under
// parallelism.
package randutil

import rand "math/rand/v2"

const goldenRatio64 = 0x9e3779b97f4a7c15

// New returns a *rand.Rand seeded deterministically from the provided int64,
// deriving the two 64-bit PCG seeds through a splitmix-style finalizer.
func New(seed int64) *rand.Rand {
	u := uint64(seed)
	return rand.New(rand.NewPCG(mix(u), mix(u+goldenRatio64)))
}

// Stream returns an independent RNG for worker index n of a run seeded with
// seed. Distinct indices yield decorrelated sequences; the same (seed, n)
// pair always yields the same sequence.
func Stream(seed int64, n int) *rand.Rand {
	u := mix(uint64(seed)) + uint64(n+1)*goldenRatio64
	return rand.New(rand.NewPCG(mix(u), mix(u+goldenRatio64)))
}

func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
