package ablation

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/tracesearch/trace-ablate/internal/bus"
	"github.com/tracesearch/trace-ablate/internal/collections"
	"github.com/tracesearch/trace-ablate/internal/pkg/logger"
	"github.com/tracesearch/trace-ablate/internal/truth"
)

const (
	testLocations = "AblationLocationActivity"
	testMusic     = "AblationMusicActivity"
)

type fixture struct {
	store  *collections.MemoryStore
	truth  *truth.Store
	engine *Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := collections.NewMemoryStore()
	truthStore := truth.NewStore(store, "", logger.Default())
	if err := truthStore.Ensure(context.Background()); err != nil {
		t.Fatalf("ensure truth collection: %v", err)
	}
	engine := NewEngine(store, truthStore, bus.NewMemoryBus(), EngineConfig{BatchSize: 3}, logger.Default())
	return &fixture{store: store, truth: truthStore, engine: engine}
}

// seedCollection fills a collection with n documents keyed doc-0..doc-n-1 and
// returns the key set.
func (f *fixture) seedCollection(t *testing.T, collection string, n int) []string {
	t.Helper()
	ctx := context.Background()
	if err := f.store.EnsureCollection(ctx, collection); err != nil {
		t.Fatalf("ensure %s: %v", collection, err)
	}
	docs := make([]collections.Document, n)
	keys := make([]string, n)
	for i := range docs {
		key := fmt.Sprintf("%s-doc-%d", collection, i)
		docs[i] = collections.Document{collections.KeyField: key, "n": i}
		keys[i] = key
	}
	if err := f.store.BulkInsert(ctx, collection, docs); err != nil {
		t.Fatalf("seed %s: %v", collection, err)
	}
	return keys
}

func (f *fixture) count(t *testing.T, collection string) int {
	t.Helper()
	n, err := collections.Count(context.Background(), f.store, collection)
	if err != nil {
		t.Fatalf("count %s: %v", collection, err)
	}
	return n
}

func (f *fixture) keySet(t *testing.T, collection string) []string {
	t.Helper()
	docs, err := f.store.ReadAll(context.Background(), collection)
	if err != nil {
		t.Fatalf("read %s: %v", collection, err)
	}
	keys := collections.Keys(docs)
	sort.Strings(keys)
	return keys
}

func TestAblateRestoreRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	keys := f.seedCollection(t, testLocations, 10)
	sort.Strings(keys)

	if !f.engine.Ablate(ctx, testLocations) {
		t.Fatal("ablate failed")
	}
	if got := f.count(t, testLocations); got != 0 {
		t.Fatalf("ablated collection holds %d documents", got)
	}
	if !f.engine.IsAblated(testLocations) {
		t.Error("collection not marked ablated")
	}

	if err := f.engine.Restore(ctx, testLocations); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if got := f.count(t, testLocations); got != 10 {
		t.Errorf("restored count = %d, want 10", got)
	}
	restored := f.keySet(t, testLocations)
	for i := range keys {
		if restored[i] != keys[i] {
			t.Fatalf("restored key set differs at %d: %s != %s", i, restored[i], keys[i])
		}
	}
	if f.engine.IsAblated(testLocations) {
		t.Error("collection still marked ablated after restore")
	}
}

func TestAblateIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedCollection(t, testLocations, 4)

	if !f.engine.Ablate(ctx, testLocations) {
		t.Fatal("first ablate failed")
	}
	if !f.engine.Ablate(ctx, testLocations) {
		t.Error("second ablate should be a no-op success")
	}
	if err := f.engine.Restore(ctx, testLocations); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if got := f.count(t, testLocations); got != 4 {
		t.Errorf("count after double ablate and restore = %d, want 4", got)
	}
}

func TestRestoreWithoutAblateIsNoop(t *testing.T) {
	f := newFixture(t)
	f.seedCollection(t, testLocations, 2)

	if err := f.engine.Restore(context.Background(), testLocations); err != nil {
		t.Errorf("restore of non-ablated collection: %v", err)
	}
	if got := f.count(t, testLocations); got != 2 {
		t.Errorf("count = %d, want 2", got)
	}
}

func TestAblateMissingCollectionFails(t *testing.T) {
	f := newFixture(t)
	if f.engine.Ablate(context.Background(), "NoSuchCollection") {
		t.Error("ablate of missing collection should fail")
	}
}

func TestRestoreClearsStrayDocuments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedCollection(t, testLocations, 3)

	f.engine.Ablate(ctx, testLocations)
	stray := collections.Document{collections.KeyField: "stray", "n": -1}
	if err := f.store.Put(ctx, testLocations, stray); err != nil {
		t.Fatalf("insert stray: %v", err)
	}

	if err := f.engine.Restore(ctx, testLocations); err != nil {
		t.Fatalf("restore: %v", err)
	}
	for _, key := range f.keySet(t, testLocations) {
		if key == "stray" {
			t.Error("stray document survived restore")
		}
	}
	if got := f.count(t, testLocations); got != 3 {
		t.Errorf("count = %d, want 3", got)
	}
}

func TestExecuteQueryWithoutTruthIsEmpty(t *testing.T) {
	f := newFixture(t)
	f.seedCollection(t, testLocations, 5)

	docs, _ := f.engine.ExecuteQuery(context.Background(), "no-truth", testLocations, 100)
	if len(docs) != 0 {
		t.Errorf("got %d results without ground truth", len(docs))
	}
}

func TestExecuteQueryRestrictsToTruthKeys(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	keys := f.seedCollection(t, testLocations, 6)

	f.truth.Put(ctx, truth.Record{
		QueryID:     "q1",
		Collection:  "location_activity",
		ExpectedIDs: keys[:3],
	})

	docs, _ := f.engine.ExecuteQuery(ctx, "q1", testLocations, 100)
	if len(docs) != 3 {
		t.Fatalf("got %d results, want 3", len(docs))
	}
	for i, doc := range docs {
		if doc.Key() != keys[i] {
			t.Errorf("result %d key = %s, want %s", i, doc.Key(), keys[i])
		}
	}
}

func TestExecuteQueryHonorsLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	keys := f.seedCollection(t, testLocations, 6)

	f.truth.Put(ctx, truth.Record{QueryID: "q1", Collection: "location_activity", ExpectedIDs: keys})

	docs, _ := f.engine.ExecuteQuery(ctx, "q1", testLocations, 2)
	if len(docs) != 2 {
		t.Errorf("got %d results with limit 2", len(docs))
	}
}

func TestCalculateMetricsWithoutTruth(t *testing.T) {
	f := newFixture(t)
	results := []collections.Document{
		{collections.KeyField: "r1"},
		{collections.KeyField: "r2"},
	}

	res := f.engine.CalculateMetrics(context.Background(), "no-truth", results, testLocations)
	if res.Precision != 0 || res.Recall != 0 || res.F1 != 0 {
		t.Errorf("metrics = %f/%f/%f, want zeros", res.Precision, res.Recall, res.F1)
	}
	if res.FalsePositives != 2 || res.TruePositives != 0 {
		t.Errorf("fp = %d, tp = %d", res.FalsePositives, res.TruePositives)
	}
	if res.ResultCount != 2 {
		t.Errorf("result count = %d", res.ResultCount)
	}
}

func TestCalculateMetricsInvariants(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.truth.Put(ctx, truth.Record{
		QueryID:     "q1",
		Collection:  "location_activity",
		ExpectedIDs: []string{"a", "b", "c"},
	})
	results := []collections.Document{
		{collections.KeyField: "a"},
		{collections.KeyField: "b"},
		{collections.KeyField: "x"},
	}

	res := f.engine.CalculateMetrics(ctx, "q1", results, testLocations)
	if res.TruePositives+res.FalsePositives != res.ResultCount {
		t.Errorf("tp+fp = %d, result count = %d", res.TruePositives+res.FalsePositives, res.ResultCount)
	}
	if res.TruePositives+res.FalseNegatives != 3 {
		t.Errorf("tp+fn = %d, truth size = 3", res.TruePositives+res.FalseNegatives)
	}
	for _, v := range []float64{res.Precision, res.Recall, res.F1} {
		if v < 0 || v > 1 {
			t.Errorf("metric %f outside [0,1]", v)
		}
	}
}

func TestBaselineThenAblatedMeasurement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	keys := f.seedCollection(t, testLocations, 5)

	f.truth.Put(ctx, truth.Record{QueryID: "q1", Collection: "location_activity", ExpectedIDs: keys})

	baseline := f.engine.TestAblation(ctx, "q1", "where was I", testLocations, 100)
	if baseline.F1 != 1 {
		t.Fatalf("baseline f1 = %f, want 1", baseline.F1)
	}

	f.engine.Ablate(ctx, testLocations)
	ablated := f.engine.TestAblation(ctx, "q1", "where was I", testLocations, 100)
	if ablated.F1 != 0 || ablated.Recall != 0 {
		t.Errorf("ablated f1 = %f, recall = %f, want zeros", ablated.F1, ablated.Recall)
	}
	if ablated.FalseNegatives != 5 {
		t.Errorf("ablated fn = %d, want 5", ablated.FalseNegatives)
	}
	if ablated.Impact() != 1 {
		t.Errorf("ablated impact = %f, want 1", ablated.Impact())
	}

	if err := f.engine.Restore(ctx, testLocations); err != nil {
		t.Fatalf("restore: %v", err)
	}
	recovered := f.engine.TestAblation(ctx, "q1", "where was I", testLocations, 100)
	if recovered.F1 != 1 {
		t.Errorf("post-restore f1 = %f, want 1", recovered.F1)
	}
}

func TestRunAblationTest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	locKeys := f.seedCollection(t, testLocations, 5)
	musicKeys := f.seedCollection(t, testMusic, 5)

	f.truth.Put(ctx, truth.Record{QueryID: "q1", Collection: "location_activity", ExpectedIDs: locKeys})
	f.truth.Put(ctx, truth.Record{QueryID: "q1", Collection: "music_activity", ExpectedIDs: musicKeys})

	cols := []string{testLocations, testMusic}
	results := f.engine.RunAblationTest(ctx, cols, "q1", "everything recent", 100)

	wantKeys := []string{
		testLocations,
		testMusic,
		ImpactKey(testLocations, testMusic),
		ImpactKey(testMusic, testLocations),
	}
	if len(results) != len(wantKeys) {
		t.Fatalf("got %d results, want %d: %v", len(results), len(wantKeys), results)
	}
	for _, key := range wantKeys {
		if _, ok := results[key]; !ok {
			t.Errorf("missing result key %s", key)
		}
	}

	// Collections are independent here, so ablating one must not hurt the other.
	if res := results[ImpactKey(testLocations, testMusic)]; res.F1 != 1 {
		t.Errorf("music under location ablation f1 = %f, want 1", res.F1)
	}

	for _, collection := range cols {
		if f.engine.IsAblated(collection) {
			t.Errorf("%s left ablated after run", collection)
		}
		if got := f.count(t, collection); got != 5 {
			t.Errorf("%s count = %d, want 5", collection, got)
		}
	}
}

func TestCleanupForceRestores(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedCollection(t, testLocations, 4)
	f.seedCollection(t, testMusic, 4)

	f.engine.Ablate(ctx, testLocations)
	f.engine.Ablate(ctx, testMusic)

	if err := f.engine.Cleanup(ctx); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if len(f.engine.AblatedCollections()) != 0 {
		t.Errorf("collections still ablated: %v", f.engine.AblatedCollections())
	}
	if f.count(t, testLocations) != 4 || f.count(t, testMusic) != 4 {
		t.Error("cleanup did not restore all documents")
	}
}
