package experiment

import (
	"math/rand"
	"testing"

	"github.com/google/uuid"

	"github.com/tracesearch/trace-ablate/internal/activity"
)

func TestGenerateGroupsPartitionInvariants(t *testing.T) {
	kinds := activity.All()
	pairs := GenerateGroups(kinds, 3, 4, rand.New(rand.NewSource(42)))

	if len(pairs) != 6 {
		t.Fatalf("got %d pairs, want 6", len(pairs))
	}
	for i, pair := range pairs {
		if i%2 == 0 && len(pair.Control) != 4 {
			t.Errorf("pair %d control size = %d, want 4", i, len(pair.Control))
		}

		seen := make(map[activity.Kind]bool)
		for _, k := range pair.All() {
			if seen[k] {
				t.Errorf("pair %d: %s appears in both groups", i, k)
			}
			seen[k] = true
		}
		if len(seen) != len(kinds) {
			t.Errorf("pair %d covers %d kinds, want %d", i, len(seen), len(kinds))
		}
	}
}

func TestCrossoverLaw(t *testing.T) {
	pairs := GenerateGroups(activity.All(), 2, 4, rand.New(rand.NewSource(1)))

	for i := 0; i < len(pairs); i += 2 {
		orig, cross := pairs[i], pairs[i+1]
		if !sameKinds(orig.Control, cross.Test) || !sameKinds(orig.Test, cross.Control) {
			t.Errorf("pair %d crossover is not an exact swap", i)
		}
	}
}

func TestGenerateGroupsClampsControlSize(t *testing.T) {
	kinds := activity.All()
	pairs := GenerateGroups(kinds, 1, len(kinds)+3, rand.New(rand.NewSource(7)))

	if len(pairs[0].Test) == 0 {
		t.Error("oversized control left an empty test group")
	}
	pairs = GenerateGroups(kinds, 1, 0, rand.New(rand.NewSource(7)))
	if len(pairs[0].Control) != 1 {
		t.Errorf("control size 0 clamped to %d, want 1", len(pairs[0].Control))
	}
}

func TestCombinationsCount(t *testing.T) {
	tests := []struct {
		size int
		want int
	}{
		{2, 2},  // 2^2 - 2
		{3, 6},  // 2^3 - 2
		{4, 14}, // 2^4 - 2
	}
	kinds := activity.All()
	for _, tt := range tests {
		group := kinds[:tt.size]
		subsets := Combinations(group)
		if len(subsets) != tt.want {
			t.Errorf("Combinations(size %d) = %d subsets, want %d", tt.size, len(subsets), tt.want)
		}
		for _, subset := range subsets {
			if len(subset) == 0 || len(subset) >= tt.size {
				t.Errorf("subset %v is not a non-empty proper subset of size-%d group", subset, tt.size)
			}
		}
	}
}

func TestCombinationsDegenerateGroups(t *testing.T) {
	if got := Combinations(nil); got != nil {
		t.Errorf("Combinations(nil) = %v", got)
	}
	if got := Combinations([]activity.Kind{activity.Location}); got != nil {
		t.Errorf("Combinations of singleton = %v", got)
	}
}

func TestGenerateQueries(t *testing.T) {
	group := []activity.Kind{activity.Location, activity.Music}
	queries := GenerateQueries(group, 2)

	if len(queries) != 4 {
		t.Fatalf("got %d queries, want 4", len(queries))
	}
	for _, q := range queries {
		if _, err := uuid.Parse(q.ID); err != nil {
			t.Errorf("query id %q is not a UUID: %v", q.ID, err)
		}
		if q.Kind != activity.Location && q.Kind != activity.Music {
			t.Errorf("query scoped to %s, outside the group", q.Kind)
		}
	}

	again := GenerateQueries(group, 2)
	for i := range queries {
		if queries[i].ID != again[i].ID {
			t.Errorf("query %d id not stable across generations", i)
		}
	}
}

func sameKinds(a, b []activity.Kind) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
