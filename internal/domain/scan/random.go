package scan

import (
	"math/rand/v2"
)

// Random supplies every draw the classifier and generator make. Float64
// returns a value in [0,1).
type Random interface {
	Float64() float64
}

// RandomFactory creates the source for one analysis. Sources are never
// shared between analyses.
type RandomFactory func() Random

// SeededRandom returns a factory whose sources all replay the same sequence,
// so identical inputs give identical results.
func SeededRandom(seed int64) RandomFactory {
	return func() Random {
		return rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))
	}
}

// UniformRandom returns a factory backed by the runtime's random generator.
func UniformRandom() RandomFactory {
	return func() Random { return runtimeRandom{} }
}

// RandomFromSeed picks SeededRandom for a non-zero seed and UniformRandom
// otherwise.
func RandomFromSeed(seed int64) RandomFactory {
	if seed == 0 {
		return UniformRandom()
	}
	return SeededRandom(seed)
}

type runtimeRandom struct{}

func (runtimeRandom) Float64() float64 { return rand.Float64() }

// pick maps a draw onto an index of a list of length n.
func pick(rnd Random, n int) int {
	i := int(rnd.Float64() * float64(n))
	if i >= n {
		i = n - 1
	}
	return i
}
