package utils

import (
	"math/rand"
	"time"
)

// RandSource wraps a seeded generator. It is not safe for concurrent use;
// derive one source per goroutine with Derive.
type RandSource struct {
	seed int64
	rng  *rand.Rand
}

// NewRandSource creates a new random source with the given seed.
// A zero seed picks a time-based one.
func NewRandSource(seed int64) *RandSource {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandSource{
		seed: seed,
		rng:  rand.New(rand.NewSource(seed)),
	}
}

// Seed returns the seed the source was created with
func (r *RandSource) Seed() int64 {
	return r.seed
}

// Derive returns an independent source for stream index i.
// The derived seed depends only on the parent seed and i.
func (r *RandSource) Derive(i int) *RandSource {
	return NewRandSource(DeriveSeed(r.seed, i))
}

// DeriveSeed mixes a base seed and a stream index (splitmix64 finalizer).
func DeriveSeed(base int64, i int) int64 {
	z := uint64(base) + uint64(i+1)*0x9E3779B97F4A7C15
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	z ^= z >> 31
	s := int64(z & 0x7FFFFFFFFFFFFFFF)
	if s == 0 {
		s = 1
	}
	return s
}

// Float64 returns a random float64 in [0.0, 1.0)
func (r *RandSource) Float64() float64 {
	return r.rng.Float64()
}

// Intn returns a random int in [0, n)
func (r *RandSource) Intn(n int) int {
	return r.rng.Intn(n)
}

// NormFloat64 returns a normally distributed random number with mean and stddev
func (r *RandSource) NormFloat64(mean, stddev float64) float64 {
	return r.rng.NormFloat64()*stddev + mean
}

// BernoulliBool returns true with probability p, false otherwise
func (r *RandSource) BernoulliBool(p float64) bool {
	return r.rng.Float64() < p
}

// UniformFloat64 returns a uniformly distributed random number in [min, max)
func (r *RandSource) UniformFloat64(min, max float64) float64 {
	return min + r.rng.Float64()*(max-min)
}

// UniformVector draws one point uniformly inside the box [lower, upper].
func (r *RandSource) UniformVector(lower, upper []float64) []float64 {
	out := make([]float64, len(lower))
	for i := range lower {
		out[i] = r.UniformFloat64(lower[i], upper[i])
	}
	return out
}

// Choice returns k distinct indices from [0, n) excluding skip (pass -1 to exclude nothing).
func (r *RandSource) Choice(n, k, skip int) []int {
	perm := r.rng.Perm(n)
	out := make([]int, 0, k)
	for _, idx := range perm {
		if idx == skip {
			continue
		}
		out = append(out, idx)
		if len(out) == k {
			break
		}
	}
	return out
}
