package ablation

import (
	"context"
	"sort"
	"time"

	"golang.org/x/time/rate"

	"github.com/tracesearch/trace-ablate/internal/bus"
	"github.com/tracesearch/trace-ablate/internal/collections"
	"github.com/tracesearch/trace-ablate/internal/pkg/errors"
	"github.com/tracesearch/trace-ablate/internal/pkg/logger"
	"github.com/tracesearch/trace-ablate/internal/truth"
)

// DefaultBatchSize bounds the size of each restore reinsert request.
const DefaultBatchSize = 100

// backupState is the session-scoped backup of one ablated collection.
type backupState struct {
	ablated bool
	docs    []collections.Document
}

// EngineConfig tunes the ablate/restore protocol.
type EngineConfig struct {
	// BatchSize is the number of documents per restore reinsert request.
	BatchSize int

	// RatePerSec throttles restore batches; zero disables throttling.
	RatePerSec float64

	// RunID tags published events with the run they belong to.
	RunID string
}

// Engine performs reversible ablation of named collections. Not safe for
// concurrent use: exactly one cycle may be in flight per collection, and the
// backup buffer is owned by this one instance.
type Engine struct {
	store   collections.Store
	truth   *truth.Store
	events  bus.Bus
	log     *logger.Logger
	limiter *rate.Limiter

	batchSize int
	runID     string
	backups   map[string]*backupState
}

// NewEngine creates an engine over a collection store and truth store.
func NewEngine(store collections.Store, truthStore *truth.Store, events bus.Bus, cfg EngineConfig, log *logger.Logger) *Engine {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	limit := rate.Inf
	if cfg.RatePerSec > 0 {
		limit = rate.Limit(cfg.RatePerSec)
	}
	if log == nil {
		log = logger.Default()
	}
	return &Engine{
		store:     store,
		truth:     truthStore,
		events:    events,
		log:       log,
		limiter:   rate.NewLimiter(limit, 1),
		batchSize: cfg.BatchSize,
		runID:     cfg.RunID,
		backups:   make(map[string]*backupState),
	}
}

// IsAblated reports whether a collection is currently ablated.
func (e *Engine) IsAblated(collection string) bool {
	state, ok := e.backups[collection]
	return ok && state.ablated
}

// AblatedCollections returns the collections currently ablated, sorted.
func (e *Engine) AblatedCollections() []string {
	var names []string
	for name, state := range e.backups {
		if state.ablated {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Ablate backs up and empties a collection. Already-ablated collections are a
// no-op success. The backup and the removal are treated as a unit: if removal
// fails, the collection is not marked ablated and the buffer is dropped.
func (e *Engine) Ablate(ctx context.Context, collection string) bool {
	log := e.log.WithCollection(collection)

	if e.IsAblated(collection) {
		log.Debug("collection already ablated")
		return true
	}

	exists, err := e.store.Exists(ctx, collection)
	if err != nil {
		log.WithError(err).Error("existence check failed")
		return false
	}
	if !exists {
		log.Warn("cannot ablate missing collection")
		return false
	}

	docs, err := e.store.ReadAll(ctx, collection)
	if err != nil {
		log.WithError(err).Error("backup read failed")
		return false
	}

	if err := e.store.RemoveAll(ctx, collection); err != nil {
		log.WithError(err).Error("removal failed, collection left as-is")
		return false
	}

	e.backups[collection] = &backupState{ablated: true, docs: docs}
	log.Info("collection ablated", "documents", len(docs))
	e.publish(ctx, bus.TopicCollectionAblated, map[string]any{
		"collection": collection,
		"documents":  len(docs),
	})
	return true
}

// Restore reinserts the backed-up documents of an ablated collection in
// batches. Not-ablated collections are a no-op success. A reinsert failure
// leaves the collection marked ablated with its buffer intact so the caller
// can retry.
func (e *Engine) Restore(ctx context.Context, collection string) error {
	log := e.log.WithCollection(collection)

	state, ok := e.backups[collection]
	if !ok || !state.ablated {
		log.Debug("collection not ablated, nothing to restore")
		return nil
	}

	// The collection should already be empty; clear strays so the restored
	// key set exactly matches the backup.
	if err := e.store.RemoveAll(ctx, collection); err != nil && !errors.IsNotFound(err) {
		return errors.RestoreError(collection, err)
	}

	docs := make([]collections.Document, len(state.docs))
	for i, doc := range state.docs {
		docs[i] = collections.StripSystemFields(doc)
	}

	for start := 0; start < len(docs); start += e.batchSize {
		end := start + e.batchSize
		if end > len(docs) {
			end = len(docs)
		}
		if err := e.limiter.Wait(ctx); err != nil {
			return errors.RestoreError(collection, err)
		}
		if err := e.store.BulkInsert(ctx, collection, docs[start:end]); err != nil {
			log.WithError(err).Error("restore batch failed", "offset", start)
			return errors.RestoreError(collection, err)
		}
	}

	delete(e.backups, collection)
	log.Info("collection restored", "documents", len(docs))
	e.publish(ctx, bus.TopicCollectionRestored, map[string]any{
		"collection": collection,
		"documents":  len(docs),
	})
	return nil
}

// ExecuteQuery reads the documents a query's ground truth points at, reporting
// wall-clock time for the restricted read only. Missing truth yields an empty
// result set immediately. Storage failures are logged and yield empty results.
func (e *Engine) ExecuteQuery(ctx context.Context, queryID, collection string, limit int) ([]collections.Document, int64) {
	log := e.log.WithQuery(queryID).WithCollection(collection)

	expected, err := e.truth.Fetch(ctx, queryID, collection)
	if err != nil {
		log.WithError(err).Error("truth fetch failed")
		return nil, 0
	}
	if len(expected) == 0 {
		log.Debug("no ground truth, skipping query")
		return nil, 0
	}

	start := time.Now()
	docs, err := e.store.ReadByKeys(ctx, collection, expected)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		if !errors.IsNotFound(err) {
			log.WithError(err).Error("restricted read failed")
		}
		return nil, elapsed
	}
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}
	return docs, elapsed
}

// CalculateMetrics scores retrieved documents against the query's ground
// truth for a collection. Missing truth is an expected state: every result
// counts as a false positive and all metrics are zero.
func (e *Engine) CalculateMetrics(ctx context.Context, queryID string, results []collections.Document, collection string) Result {
	expected, err := e.truth.Fetch(ctx, queryID, collection)
	if err != nil {
		e.log.WithQuery(queryID).WithError(err).Error("truth fetch failed during scoring")
		expected = nil
	}

	res := Result{
		QueryID:     queryID,
		Collection:  collection,
		ResultCount: len(results),
	}
	if len(expected) == 0 {
		res.FalsePositives = len(results)
		return res
	}

	tp, fp, fn := scoreResults(collections.Keys(results), expected)
	res.TruePositives = tp
	res.FalsePositives = fp
	res.FalseNegatives = fn
	res.Precision = precision(tp, fp)
	res.Recall = recall(tp, fn)
	res.F1 = f1(res.Precision, res.Recall)
	return res
}

// TestAblation is the one-measurement primitive: execute the query against a
// collection and score the results. It is independent of whether anything is
// currently ablated; callers compare calls made before and during ablation.
func (e *Engine) TestAblation(ctx context.Context, queryID, queryText, collection string, limit int) Result {
	results, elapsed := e.ExecuteQuery(ctx, queryID, collection, limit)
	res := e.CalculateMetrics(ctx, queryID, results, collection)
	res.ExecutionMS = elapsed

	e.log.WithQuery(queryID).WithCollection(collection).Debug("measured",
		"query", queryText,
		"precision", res.Precision,
		"recall", res.Recall,
		"f1", res.F1,
	)
	return res
}

// RunAblationTest measures the collateral impact of ablating each configured
// collection on every other one. It first records a baseline per collection
// under its bare name, then per collection: ablate, measure the others under
// "{ablated}_impact_on_{target}" keys, restore. Every configured collection is
// force-restored before returning, whatever happened mid-loop.
func (e *Engine) RunAblationTest(ctx context.Context, cols []string, queryID, queryText string, limit int) map[string]Result {
	results := make(map[string]Result)

	defer func() {
		for _, collection := range cols {
			if err := e.Restore(ctx, collection); err != nil {
				e.log.WithCollection(collection).WithError(err).Error("final restore failed")
			}
		}
	}()

	for _, collection := range cols {
		res := e.TestAblation(ctx, queryID, queryText, collection, limit)
		results[collection] = res
		e.recordResult(ctx, res)
	}

	for _, ablated := range cols {
		if !e.Ablate(ctx, ablated) {
			e.log.WithCollection(ablated).Warn("skipping ablation step")
			continue
		}

		for _, target := range cols {
			if target == ablated {
				continue
			}
			res := e.TestAblation(ctx, queryID, queryText, target, limit)
			res.Collection = ImpactKey(ablated, target)
			results[res.Collection] = res
			e.recordResult(ctx, res)
		}

		if err := e.Restore(ctx, ablated); err != nil {
			e.log.WithCollection(ablated).WithError(err).Error("restore failed mid-run")
		}
	}
	return results
}

// Cleanup force-restores every collection currently marked ablated. Idempotent;
// called at session teardown.
func (e *Engine) Cleanup(ctx context.Context) error {
	var firstErr error
	for _, collection := range e.AblatedCollections() {
		if err := e.Restore(ctx, collection); err != nil {
			e.log.WithCollection(collection).WithError(err).Error("cleanup restore failed")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (e *Engine) recordResult(ctx context.Context, res Result) {
	e.publish(ctx, bus.TopicResultRecorded, res)
}

func (e *Engine) publish(ctx context.Context, topic string, payload any) {
	if e.events == nil {
		return
	}
	if err := e.events.Publish(ctx, topic, bus.NewEvent(topic, e.runID, payload)); err != nil {
		e.log.WithError(err).Warn("event publish failed", "topic", topic)
	}
}
