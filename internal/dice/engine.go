package dice

import (
	"math/rand"
	"sort"
)

// Engine produces the authoritative random results for a cast.
type Engine interface {
	// GenerateResult fills every slot of the cast with a value in
	// [1, Sides] and orders the slots ascending.
	GenerateResult(c Cast)
}

// UniformEngine draws each slot uniformly from [1, Sides].
//
// UniformEngine is deterministic with respect to the seed: the same seed
// and the same sequence of GenerateResult calls always produce the same
// values. Hosts seed it from a clock; tests pin the seed.
type UniformEngine struct {
	rng *rand.Rand
}

// NewUniformEngine creates an engine seeded with seed.
func NewUniformEngine(seed int64) *UniformEngine {
	return &UniformEngine{rng: rand.New(rand.NewSource(seed))}
}

// GenerateResult implements Engine.
func (e *UniformEngine) GenerateResult(c Cast) {
	values := c.Values()
	sides := c.Kind().Sides()
	for i := range values {
		values[i] = uint32(e.rng.Intn(int(sides))) + 1
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })
}
