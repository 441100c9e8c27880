package experiment

import (
	"context"
	"strings"
	"testing"

	"github.com/tracesearch/trace-ablate/internal/ablation"
	"github.com/tracesearch/trace-ablate/internal/activity"
	"github.com/tracesearch/trace-ablate/internal/bus"
	"github.com/tracesearch/trace-ablate/internal/collect"
	"github.com/tracesearch/trace-ablate/internal/collections"
	"github.com/tracesearch/trace-ablate/internal/pkg/logger"
	"github.com/tracesearch/trace-ablate/internal/registry"
	"github.com/tracesearch/trace-ablate/internal/truth"
)

func newTestRunner(t *testing.T, cfg RunnerConfig) (*Runner, *collections.MemoryStore) {
	t.Helper()
	store := collections.NewMemoryStore()
	truthStore := truth.NewStore(store, "", logger.Default())
	engine := ablation.NewEngine(store, truthStore, nil, ablation.EngineConfig{}, logger.Default())
	table := collect.NewTableWithMatchCount(registry.New(), cfg.Seed, cfg.MatchCount)
	return NewRunner(store, truthStore, engine, table, bus.NewMemoryBus(), cfg, "test-run", logger.Default()), store
}

func TestRunnerEndToEnd(t *testing.T) {
	cfg := RunnerConfig{
		RecordsPerType: 10,
		MatchCount:     3,
		NonMatchCount:  2,
		QueriesPerKind: 1,
		Iterations:     1,
		ControlSize:    4, // six kinds, so the test group has two
		QueryLimit:     100,
		Seed:           42,
	}
	runner, store := newTestRunner(t, cfg)
	ctx := context.Background()

	results, err := runner.Run(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	var baselines, impacts int
	for key, measurements := range results {
		if len(measurements) == 0 {
			t.Errorf("key %s has no measurements", key)
		}
		if strings.Contains(key, "_impact_on_") {
			impacts++
		} else {
			baselines++
		}
	}
	if baselines == 0 {
		t.Error("no baseline measurements recorded")
	}
	if impacts == 0 {
		t.Error("no collateral-impact measurements recorded")
	}

	// Baseline queries read back exactly the matching records they planted.
	for key, measurements := range results {
		if strings.Contains(key, "_impact_on_") {
			continue
		}
		for _, res := range measurements {
			if res.F1 != 1 {
				t.Errorf("baseline %s f1 = %f, want 1", key, res.F1)
			}
		}
	}

	// Independent collections mean ablating one must not degrade another.
	for key, measurements := range results {
		if !strings.Contains(key, "_impact_on_") {
			continue
		}
		for _, res := range measurements {
			if res.F1 != 1 {
				t.Errorf("collateral %s f1 = %f, want 1 for independent collections", key, res.F1)
			}
		}
	}

	// Nothing may be left ablated, and every collection keeps its data.
	for _, kind := range activity.All() {
		name := kind.Collection()
		exists, err := store.Exists(ctx, name)
		if err != nil || !exists {
			t.Fatalf("collection %s missing after run: %v", name, err)
		}
		n, err := collections.Count(ctx, store, name)
		if err != nil {
			t.Fatalf("count %s: %v", name, err)
		}
		if n == 0 {
			t.Errorf("collection %s left empty after run", name)
		}
	}
}

func TestRunnerResultInvariants(t *testing.T) {
	cfg := RunnerConfig{
		RecordsPerType: 5,
		MatchCount:     3,
		QueriesPerKind: 1,
		Iterations:     1,
		ControlSize:    4,
		QueryLimit:     50,
		Seed:           7,
	}
	runner, _ := newTestRunner(t, cfg)

	results, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	for key, measurements := range results {
		for _, res := range measurements {
			if res.TruePositives+res.FalsePositives != res.ResultCount {
				t.Errorf("%s: tp+fp != result count", key)
			}
			for _, v := range []float64{res.Precision, res.Recall, res.F1} {
				if v < 0 || v > 1 {
					t.Errorf("%s: metric %f outside [0,1]", key, v)
				}
			}
		}
	}
}

func TestComboLabel(t *testing.T) {
	got := comboLabel([]activity.Kind{activity.Location, activity.Music})
	if got != "AblationLocationActivity+AblationMusicActivity" {
		t.Errorf("comboLabel = %q", got)
	}
}
