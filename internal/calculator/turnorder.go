package calculator

import (
	"fmt"
	"math/rand/v2"
	"sort"
)

// RandomSource produces permutations of [0, n). *rand.Rand satisfies it.
type RandomSource interface {
	Perm(n int) []int
}

type globalSource struct{}

func (globalSource) Perm(n int) []int { return rand.Perm(n) }

// DefaultRandomSource returns the process-wide random source.
func DefaultRandomSource() RandomSource { return globalSource{} }

// ShuffleTurnOrder assigns each member a distinct turn in 1..N using a uniformly random
// permutation from src. The result always covers 1..N with no gaps.
func ShuffleTurnOrder(memberIDs []string, src RandomSource) map[string]int {
	perm := src.Perm(len(memberIDs))
	order := make(map[string]int, len(memberIDs))
	for i, id := range memberIDs {
		order[id] = perm[i] + 1
	}
	return order
}

// SequenceTurnOrder assigns turns following the given sequence: ids[0] gets turn 1.
func SequenceTurnOrder(ids []string) map[string]int {
	order := make(map[string]int, len(ids))
	for i, id := range ids {
		order[id] = i + 1
	}
	return order
}

// ValidatePermutation checks that proposed lists every member of current exactly once.
func ValidatePermutation(current, proposed []string) error {
	if len(proposed) != len(current) {
		return fmt.Errorf("expected %d members, got %d", len(current), len(proposed))
	}
	members := make(map[string]bool, len(current))
	for _, id := range current {
		members[id] = true
	}
	seen := make(map[string]bool, len(proposed))
	for _, id := range proposed {
		if !members[id] {
			return fmt.Errorf("user %s is not a member", id)
		}
		if seen[id] {
			return fmt.Errorf("user %s listed more than once", id)
		}
		seen[id] = true
	}
	return nil
}

// ValidateTurnOrder checks that order is a bijection onto 1..len(order).
func ValidateTurnOrder(order map[string]int) error {
	turns := make([]int, 0, len(order))
	for _, turn := range order {
		turns = append(turns, turn)
	}
	sort.Ints(turns)
	for i, turn := range turns {
		if turn != i+1 {
			return fmt.Errorf("turn order must cover 1..%d without gaps, found %d at position %d", len(order), turn, i+1)
		}
	}
	return nil
}
