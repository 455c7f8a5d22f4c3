package dice

import (
	"math/rand"
	randv2 "math/rand/v2"
	"sync"
)

// SeededSource is a deterministic Source that tracks how many values it has
// produced, so a battle can be replayed or resumed from (seed, position).
type SeededSource struct {
	mu   sync.Mutex
	seed int64
	rng  *rand.Rand
	pos  int64
}

// NewSeededSource returns a SeededSource positioned at the start of seed's stream.
func NewSeededSource(seed int64) *SeededSource {
	return &SeededSource{
		seed: seed,
		rng:  rand.New(rand.NewSource(seed)),
	}
}

// RestoreSeededSource recreates the source for seed and advances it by position draws.
//
// Postcondition: the next value equals the value the original source would
// have produced after position draws.
func RestoreSeededSource(seed, position int64) *SeededSource {
	s := NewSeededSource(seed)
	for i := int64(0); i < position; i++ {
		s.rng.Int63()
	}
	s.pos = position
	return s
}

// Intn returns a deterministic int in [0, n).
//
// Precondition: n > 0.
func (s *SeededSource) Intn(n int) int {
	if n <= 0 {
		panic("dice: Intn called with n <= 0")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pos++
	// Int63 draws exactly one value per call, which keeps RestoreSeededSource exact.
	return int(s.rng.Int63() % int64(n))
}

// Seed returns the seed the source was created with.
func (s *SeededSource) Seed() int64 { return s.seed }

// Position returns the number of values drawn so far.
func (s *SeededSource) Position() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos
}

// entropySource draws from the runtime's randomly seeded generator. It picks
// fresh battle seeds and never drives a battle directly, so every battle
// stays replayable from its seed.
type entropySource struct{}

// NewEntropySource returns an unseeded Source for drawing battle seeds.
func NewEntropySource() Source { return entropySource{} }

// Intn returns a random int in [0, n).
//
// Precondition: n > 0.
func (entropySource) Intn(n int) int {
	if n <= 0 {
		panic("dice: Intn called with n <= 0")
	}
	return randv2.IntN(n)
}

// NewSeed draws a positive odd seed suitable for NewSeededSource.
func NewSeed(src Source) int64 {
	hi := int64(src.Intn(1 << 30))
	lo := int64(src.Intn(1 << 30))
	return hi<<30 | lo | 1
}
