package experiment

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"github.com/tracesearch/trace-ablate/internal/ablation"
	"github.com/tracesearch/trace-ablate/internal/activity"
	"github.com/tracesearch/trace-ablate/internal/bus"
	"github.com/tracesearch/trace-ablate/internal/collect"
	"github.com/tracesearch/trace-ablate/internal/collections"
	"github.com/tracesearch/trace-ablate/internal/pkg/logger"
	"github.com/tracesearch/trace-ablate/internal/truth"
)

// RunnerConfig sizes one experiment run.
type RunnerConfig struct {
	RecordsPerType int   // background records per activity collection
	MatchCount     int   // matching records (and truth ids) per query per collection
	NonMatchCount  int   // non-matching records per query per collection
	QueriesPerKind int   // probes per test-group activity type
	Iterations     int   // shuffled partitions; each yields a pair and its crossover
	ControlSize    int   // activity types held out as the control group
	QueryLimit     int   // result cap per query execution
	Seed           int64 // shuffle seed
}

// Runner drives the full experimental design: generate data, establish
// baselines, ablate every partial combination of the test group, and leave
// every collection restored.
type Runner struct {
	store  collections.Store
	truth  *truth.Store
	engine *ablation.Engine
	table  collect.Table
	events bus.Bus
	cfg    RunnerConfig
	log    *logger.Logger
	rng    *rand.Rand
	runID  string
}

// NewRunner wires a runner over an engine and collector table.
func NewRunner(store collections.Store, truthStore *truth.Store, engine *ablation.Engine, table collect.Table, events bus.Bus, cfg RunnerConfig, runID string, log *logger.Logger) *Runner {
	if cfg.QueriesPerKind <= 0 {
		cfg.QueriesPerKind = 1
	}
	if log == nil {
		log = logger.Default()
	}
	return &Runner{
		store:  store,
		truth:  truthStore,
		engine: engine,
		table:  table,
		events: events,
		cfg:    cfg,
		log:    log,
		rng:    rand.New(rand.NewSource(cfg.Seed)),
		runID:  runID,
	}
}

// Run executes every group pair and returns measurements grouped by result
// key: bare collection names for baselines, "{ablated}_impact_on_{target}"
// composites for collateral measurements. Every collection in scope is
// restored before Run returns.
func (r *Runner) Run(ctx context.Context) (map[string][]ablation.Result, error) {
	defer r.engine.Cleanup(ctx)

	kinds := r.table.Kinds()
	pairs := GenerateGroups(kinds, r.cfg.Iterations, r.cfg.ControlSize, r.rng)
	results := make(map[string][]ablation.Result)

	r.publish(ctx, bus.TopicRunStarted, map[string]any{
		"pairs":      len(pairs),
		"activities": len(kinds),
	})

	for i, pair := range pairs {
		r.log.Info("running group pair",
			"pair", i+1,
			"of", len(pairs),
			"control", kindNames(pair.Control),
			"test", kindNames(pair.Test),
		)
		if err := r.runPair(ctx, pair, results); err != nil {
			return results, err
		}
	}

	r.publish(ctx, bus.TopicRunCompleted, map[string]any{
		"result_keys": len(results),
	})
	return results, nil
}

func (r *Runner) runPair(ctx context.Context, pair GroupPair, results map[string][]ablation.Result) error {
	queries, err := r.prepareData(ctx, pair)
	if err != nil {
		return err
	}

	// Restore everything from this pair before the next one reuses the
	// collections.
	defer r.engine.Cleanup(ctx)

	// Baseline: every test collection measured with nothing ablated.
	for _, q := range queries {
		for _, kind := range pair.Test {
			res := r.engine.TestAblation(ctx, q.ID, q.Text, kind.Collection(), r.cfg.QueryLimit)
			results[res.Collection] = append(results[res.Collection], res)
		}
	}

	for _, combo := range Combinations(pair.Test) {
		if err := r.runCombination(ctx, pair.Test, combo, queries, results); err != nil {
			return err
		}
	}
	return nil
}

// runCombination ablates one subset of the test group, measures the surviving
// test collections, and restores the subset.
func (r *Runner) runCombination(ctx context.Context, testGroup, combo []activity.Kind, queries []Query, results map[string][]ablation.Result) error {
	label := comboLabel(combo)
	ablated := make(map[activity.Kind]bool, len(combo))

	defer func() {
		for _, kind := range combo {
			if err := r.engine.Restore(ctx, kind.Collection()); err != nil {
				r.log.WithCollection(kind.Collection()).WithError(err).Error("restore failed after combination")
			}
		}
	}()

	for _, kind := range combo {
		if !r.engine.Ablate(ctx, kind.Collection()) {
			r.log.WithCollection(kind.Collection()).Warn("skipping combination, ablate failed", "combination", label)
			return nil
		}
		ablated[kind] = true
	}

	for _, q := range queries {
		for _, target := range testGroup {
			if ablated[target] {
				continue
			}
			res := r.engine.TestAblation(ctx, q.ID, q.Text, target.Collection(), r.cfg.QueryLimit)
			res.Collection = ablation.ImpactKey(label, target.Collection())
			results[res.Collection] = append(results[res.Collection], res)
		}
	}
	return nil
}

// prepareData regenerates every collection in the pair from scratch: a bed of
// background records, plus per-query matching and non-matching records with
// truth stored for every (query, test collection) pair.
func (r *Runner) prepareData(ctx context.Context, pair GroupPair) ([]Query, error) {
	return SeedData(ctx, r.store, r.truth, r.table, pair.All(), pair.Test, r.cfg)
}

// SeedData rebuilds the named collections from scratch: background records for
// every kind, plus per-query matching and non-matching records and truth
// stored for every (query, probed collection) pair. Returns the queries the
// truth records were built for.
func SeedData(ctx context.Context, store collections.Store, truthStore *truth.Store, table collect.Table, background, probed []activity.Kind, cfg RunnerConfig) ([]Query, error) {
	for _, kind := range background {
		collector, ok := table.For(kind)
		if !ok {
			continue
		}
		name := kind.Collection()
		if err := store.EnsureCollection(ctx, name); err != nil {
			return nil, fmt.Errorf("ensure %s: %w", name, err)
		}
		if err := store.RemoveAll(ctx, name); err != nil {
			return nil, fmt.Errorf("clear %s: %w", name, err)
		}
		if err := store.BulkInsert(ctx, name, collector.GenerateBatch(cfg.RecordsPerType)); err != nil {
			return nil, fmt.Errorf("seed %s: %w", name, err)
		}
	}
	if err := truthStore.Ensure(ctx); err != nil {
		return nil, fmt.Errorf("ensure truth collection: %w", err)
	}

	queries := GenerateQueries(probed, cfg.QueriesPerKind)
	for _, q := range queries {
		for _, kind := range probed {
			collector, ok := table.For(kind)
			if !ok {
				continue
			}
			name := kind.Collection()

			matching := collector.GenerateMatching(q.Text, cfg.MatchCount)
			if err := store.BulkInsert(ctx, name, matching); err != nil {
				return nil, fmt.Errorf("insert matching records into %s: %w", name, err)
			}
			if cfg.NonMatchCount > 0 {
				nonMatching := collector.GenerateNonMatching(q.Text, cfg.NonMatchCount)
				if err := store.BulkInsert(ctx, name, nonMatching); err != nil {
					return nil, fmt.Errorf("insert non-matching records into %s: %w", name, err)
				}
			}

			truthStore.Put(ctx, truth.Record{
				QueryID:     q.ID,
				QueryText:   q.Text,
				Collection:  kind.Token(),
				ExpectedIDs: collector.GenerateTruth(q.Text),
				EntityIDs:   entityIDs(matching),
			})
		}
	}
	return queries, nil
}

func (r *Runner) publish(ctx context.Context, topic string, payload any) {
	if r.events == nil {
		return
	}
	if err := r.events.Publish(ctx, topic, bus.NewEvent(topic, r.runID, payload)); err != nil {
		r.log.WithError(err).Warn("event publish failed", "topic", topic)
	}
}

// comboLabel names an ablated subset, e.g.
// "AblationLocationActivity+AblationMusicActivity".
func comboLabel(combo []activity.Kind) string {
	return strings.Join(activity.Collections(combo), "+")
}

func kindNames(kinds []activity.Kind) string {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ",")
}

func entityIDs(docs []collections.Document) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, doc := range docs {
		if id, ok := doc["entity_id"].(string); ok && id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}
