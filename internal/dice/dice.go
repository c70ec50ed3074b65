// Package dice implements the dice rolls used by the manual combat
// resolution fallback.
package dice

import (
	"errors"
	"math/rand"
	"sync"
)

// ErrInvalidSpec indicates a roll was requested with non-positive sides or
// count.
var ErrInvalidSpec = errors.New("dice: sides and count must be positive")

// Roll captures the results of rolling count dice with the same number of
// sides.
type Roll struct {
	Sides   int
	Results []int
	Total   int
}

// Roller produces dice rolls from a single random source. A seeded Roller
// is deterministic: the same seed and the same sequence of calls always
// produce the same results.
type Roller struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRoller returns a Roller seeded for reproducible rolls.
func NewRoller(seed int64) *Roller {
	return &Roller{rng: rand.New(rand.NewSource(seed))}
}

// NewRandomRoller returns a Roller with an unseeded source for live play.
func NewRandomRoller() *Roller {
	return &Roller{rng: rand.New(rand.NewSource(rand.Int63()))}
}

// Roll rolls count dice with the given number of sides and returns each
// individual result plus their sum.
func (r *Roller) Roll(count, sides int) (Roll, error) {
	if count <= 0 || sides <= 0 {
		return Roll{}, ErrInvalidSpec
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	roll := Roll{Sides: sides, Results: make([]int, 0, count)}
	for i := 0; i < count; i++ {
		v := r.rng.Intn(sides) + 1
		roll.Results = append(roll.Results, v)
		roll.Total += v
	}
	return roll, nil
}

// D20 rolls a single twenty-sided die.
func (r *Roller) D20() int {
	roll, _ := r.Roll(1, 20)
	return roll.Total
}
