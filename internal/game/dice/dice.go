// Package dice provides the randomness shared by the battle engine, the
// encounter generator, and the drop tables: a Source interface, a seeded
// replayable Source, weighted and percentage draws, and "3d10+40" style
// expressions for content stat ranges.
package dice

import "math"

// Source is the randomness provider for every random draw in a battle.
//
// Implementations MUST be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
}

// ChanceScale is the resolution of Chance: probabilities are rounded to
// basis points and decided with a single Intn(ChanceScale) draw.
const ChanceScale = 10000

// Chance reports whether an event of probability p happens. p is clamped to
// [0, 1]. Exactly one value is drawn from src.
func Chance(src Source, p float64) bool {
	threshold := int(math.Round(min(max(p, 0), 1) * ChanceScale))
	return src.Intn(ChanceScale) < threshold
}

// Weighted picks an index into weights with probability proportional to its
// weight. Exactly one value is drawn from src.
//
// Precondition: every weight is >= 0 and at least one is > 0.
func Weighted(src Source, weights []int) int {
	total := 0
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		panic("dice: Weighted called without a positive weight")
	}
	pick := src.Intn(total)
	for i, w := range weights {
		if pick < w {
			return i
		}
		pick -= w
	}
	return len(weights) - 1
}
