// Package sampling holds the random primitives shared by every generation
// stage: an explicit seeded source, weighted row selection and the bracket
// grammar used throughout the distribution tables.
package sampling

import (
	"encoding/binary"
	"math"
	"math/rand"
)

// Source is a seeded random stream. It is not safe for concurrent use; each
// household owns one.
type Source struct {
	rng *rand.Rand
}

// NewSource returns a Source seeded with seed.
func NewSource(seed int64) *Source {
	return &Source{rng: rand.New(rand.NewSource(seed))}
}

// Float64 returns a value in [0, 1).
func (s *Source) Float64() float64 {
	return s.rng.Float64()
}

// Chance returns true with probability p.
func (s *Source) Chance(p float64) bool {
	return s.rng.Float64() < p
}

// Intn returns a value in [0, n). It returns 0 when n <= 0.
func (s *Source) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return s.rng.Intn(n)
}

// IntRange returns a value in [lo, hi], both ends inclusive.
func (s *Source) IntRange(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + s.rng.Intn(hi-lo+1)
}

// Uniform returns a value in [lo, hi).
func (s *Source) Uniform(lo, hi float64) float64 {
	return lo + s.rng.Float64()*(hi-lo)
}

// Normal draws from a normal distribution.
func (s *Source) Normal(mean, stddev float64) float64 {
	return mean + s.rng.NormFloat64()*stddev
}

// Exponential draws from an exponential distribution with the given mean.
func (s *Source) Exponential(mean float64) float64 {
	if mean <= 0 {
		return 0
	}
	return s.rng.ExpFloat64() * mean
}

// Shuffle permutes n elements through swap.
func (s *Source) Shuffle(n int, swap func(i, j int)) {
	s.rng.Shuffle(n, swap)
}

// Read fills p from the stream so identifiers can be derived from the seed.
func (s *Source) Read(p []byte) (int, error) {
	var buf [8]byte
	for i := 0; i < len(p); i += 8 {
		binary.LittleEndian.PutUint64(buf[:], s.rng.Uint64())
		copy(p[i:], buf[:])
	}
	return len(p), nil
}

// Round converts a float amount to the nearest whole number.
func Round(v float64) int {
	return int(math.Round(v))
}
