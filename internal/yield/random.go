package yield

import (
	"math/rand/v2"
	"sync"
)

// RandomSource yields uniformly distributed values in [0, 1).
// Implementations must be safe for concurrent use.
type RandomSource interface {
	Float64() float64
}

// FixedSource always returns the same value. Useful for deterministic scoring.
type FixedSource float64

// Float64 implements RandomSource.
func (f FixedSource) Float64() float64 {
	return float64(f)
}

// NeutralSource produces a variability factor of exactly 1.0.
const NeutralSource = FixedSource(0.5)

type globalSource struct{}

func (globalSource) Float64() float64 {
	return rand.Float64()
}

// DefaultRandomSource returns a source backed by the runtime's global generator.
func DefaultRandomSource() RandomSource {
	return globalSource{}
}

type seededSource struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewSeededSource returns a reproducible source for the given seed.
func NewSeededSource(seed uint64) RandomSource {
	return &seededSource{rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *seededSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.Float64()
}
