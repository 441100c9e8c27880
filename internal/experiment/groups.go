// Package experiment partitions activity types into control and test groups,
// enumerates partial-ablation combinations, and drives the full ablation
// cycle for every combination across crossover trials.
package experiment

import (
	"math/rand"

	"gonum.org/v1/gonum/stat/combin"

	"github.com/tracesearch/trace-ablate/internal/activity"
)

// GroupPair is one control/test partition of the activity types.
type GroupPair struct {
	Control []activity.Kind
	Test    []activity.Kind
}

// Crossover returns the swapped pairing of p.
func (p GroupPair) Crossover() GroupPair {
	return GroupPair{Control: p.Test, Test: p.Control}
}

// All returns the union of both groups, control first.
func (p GroupPair) All() []activity.Kind {
	out := make([]activity.Kind, 0, len(p.Control)+len(p.Test))
	out = append(out, p.Control...)
	out = append(out, p.Test...)
	return out
}

// GenerateGroups builds 2*iterations group pairs. Each iteration shuffles the
// activity types, takes the first controlSize as the control group and the
// rest as the test group, and appends the pair followed by its crossover.
func GenerateGroups(kinds []activity.Kind, iterations, controlSize int, rng *rand.Rand) []GroupPair {
	if controlSize < 1 {
		controlSize = 1
	}
	if controlSize >= len(kinds) {
		controlSize = len(kinds) - 1
	}

	pairs := make([]GroupPair, 0, 2*iterations)
	for i := 0; i < iterations; i++ {
		shuffled := make([]activity.Kind, len(kinds))
		copy(shuffled, kinds)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})

		pair := GroupPair{
			Control: append([]activity.Kind(nil), shuffled[:controlSize]...),
			Test:    append([]activity.Kind(nil), shuffled[controlSize:]...),
		}
		pairs = append(pairs, pair, pair.Crossover())
	}
	return pairs
}

// Combinations returns every non-empty proper subset of the group, sizes 1
// through len(group)-1, so the group is probed at every partial-removal
// granularity but never fully emptied. A group of size n yields 2^n - 2
// subsets.
func Combinations(group []activity.Kind) [][]activity.Kind {
	n := len(group)
	if n < 2 {
		return nil
	}

	var subsets [][]activity.Kind
	for size := 1; size < n; size++ {
		for _, idx := range combin.Combinations(n, size) {
			subset := make([]activity.Kind, size)
			for i, j := range idx {
				subset[i] = group[j]
			}
			subsets = append(subsets, subset)
		}
	}
	return subsets
}
