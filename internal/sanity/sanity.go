// Package sanity validates stored data before any ablation cycle runs. A
// violation under fail-fast policy aborts the run with a fatal error, because
// measuring precision and recall against broken data silently produces
// misleading numbers.
package sanity

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/tracesearch/trace-ablate/internal/activity"
	"github.com/tracesearch/trace-ablate/internal/bus"
	"github.com/tracesearch/trace-ablate/internal/collections"
	"github.com/tracesearch/trace-ablate/internal/pkg/errors"
	"github.com/tracesearch/trace-ablate/internal/pkg/logger"
	"github.com/tracesearch/trace-ablate/internal/truth"
)

// Check names accepted by Run.
const (
	CheckCollections     = "collections"
	CheckTruth           = "truth"
	CheckEntities        = "entities"
	CheckQueryCounts     = "query-counts"
	CheckCrossCollection = "cross-collection"
	CheckUUIDKeys        = "uuid-keys"
)

// AllChecks lists every check in execution order.
var AllChecks = []string{
	CheckCollections,
	CheckTruth,
	CheckEntities,
	CheckQueryCounts,
	CheckCrossCollection,
	CheckUUIDKeys,
}

// Violation is one failed validation.
type Violation struct {
	Check   string `json:"check"`
	Message string `json:"message"`
}

// Checker runs the validation battery against a store and its truth records.
type Checker struct {
	store    collections.Store
	truth    *truth.Store
	cols     []string
	events   bus.Bus
	log      *logger.Logger
	failFast bool
	runID    string
}

// NewChecker builds a checker over the named activity collections.
func NewChecker(store collections.Store, truthStore *truth.Store, cols []string, events bus.Bus, failFast bool, runID string, log *logger.Logger) *Checker {
	if log == nil {
		log = logger.Default()
	}
	return &Checker{
		store:    store,
		truth:    truthStore,
		cols:     cols,
		events:   events,
		log:      log,
		failFast: failFast,
		runID:    runID,
	}
}

// Run executes the named checks (all of them when names is empty). Under
// fail-fast policy the first violation is returned immediately as a fatal
// error; otherwise every violation is collected and a summarizing error is
// returned when any check failed. Warn-only findings are logged, never fatal.
func (c *Checker) Run(ctx context.Context, names []string) ([]Violation, error) {
	if len(names) == 0 {
		names = AllChecks
	}

	var violations []Violation
	for _, name := range names {
		found, err := c.runCheck(ctx, name)
		if err != nil {
			return violations, err
		}
		for _, v := range found {
			c.log.Error("sanity violation", "check", v.Check, "message", v.Message)
			c.publish(ctx, v)
			if c.failFast {
				return append(violations, v), errors.SanityError(v.Check, v.Message).MarkFatal()
			}
			violations = append(violations, v)
		}
	}

	if len(violations) > 0 {
		return violations, errors.SanityError("battery",
			fmt.Sprintf("%d violations across %d checks", len(violations), len(names)))
	}
	return nil, nil
}

func (c *Checker) runCheck(ctx context.Context, name string) ([]Violation, error) {
	switch name {
	case CheckCollections:
		return c.checkCollectionsExist(ctx)
	case CheckTruth:
		return c.checkTruthIntegrity(ctx)
	case CheckEntities:
		return c.checkEntityReferences(ctx)
	case CheckQueryCounts:
		return c.checkQueryCounts(ctx)
	case CheckCrossCollection:
		c.warnCrossCollection(ctx)
		return nil, nil
	case CheckUUIDKeys:
		return c.checkUUIDKeys(ctx)
	default:
		return nil, errors.ValidationError("unknown sanity check: " + name)
	}
}

// checkCollectionsExist verifies every configured collection is present.
func (c *Checker) checkCollectionsExist(ctx context.Context) ([]Violation, error) {
	var violations []Violation
	for _, name := range c.cols {
		exists, err := c.store.Exists(ctx, name)
		if err != nil {
			return nil, errors.StorageError("existence check failed", err)
		}
		if !exists {
			violations = append(violations, Violation{
				Check:   CheckCollections,
				Message: "collection does not exist: " + name,
			})
		}
	}
	return violations, nil
}

// checkTruthIntegrity verifies every truth record carries the required fields
// and a usable expected-identifier list.
func (c *Checker) checkTruthIntegrity(ctx context.Context) ([]Violation, error) {
	recs, err := c.truth.All(ctx)
	if err != nil {
		return nil, errors.StorageError("truth scan failed", err)
	}

	var violations []Violation
	for _, rec := range recs {
		switch {
		case rec.QueryID == "":
			violations = append(violations, Violation{
				Check:   CheckTruth,
				Message: "truth record missing query_id",
			})
		case rec.Collection == "":
			violations = append(violations, Violation{
				Check:   CheckTruth,
				Message: fmt.Sprintf("truth record for query %s missing collection", rec.QueryID),
			})
		case len(rec.ExpectedIDs) == 0:
			violations = append(violations, Violation{
				Check:   CheckTruth,
				Message: fmt.Sprintf("truth record %s has no expected identifiers", rec.Key()),
			})
		}
	}
	return violations, nil
}

// checkEntityReferences verifies every expected identifier resolves to a
// document in its named collection.
func (c *Checker) checkEntityReferences(ctx context.Context) ([]Violation, error) {
	recs, err := c.truth.All(ctx)
	if err != nil {
		return nil, errors.StorageError("truth scan failed", err)
	}

	var violations []Violation
	for _, rec := range recs {
		kind, err := activity.Parse(rec.Collection)
		if err != nil {
			violations = append(violations, Violation{
				Check:   CheckEntities,
				Message: fmt.Sprintf("truth record %s names unknown collection %q", rec.Key(), rec.Collection),
			})
			continue
		}
		for _, id := range rec.ExpectedIDs {
			_, found, err := c.store.Get(ctx, kind.Collection(), id)
			if err != nil && !errors.IsNotFound(err) {
				return nil, errors.StorageError("entity lookup failed", err)
			}
			if !found {
				violations = append(violations, Violation{
					Check:   CheckEntities,
					Message: fmt.Sprintf("identifier %s from truth record %s not found in %s", id, rec.Key(), kind.Collection()),
				})
			}
		}
	}
	return violations, nil
}

// checkQueryCounts verifies a truth-restricted read returns exactly the
// expected number of documents.
func (c *Checker) checkQueryCounts(ctx context.Context) ([]Violation, error) {
	recs, err := c.truth.All(ctx)
	if err != nil {
		return nil, errors.StorageError("truth scan failed", err)
	}

	var violations []Violation
	for _, rec := range recs {
		kind, err := activity.Parse(rec.Collection)
		if err != nil || len(rec.ExpectedIDs) == 0 {
			continue
		}
		docs, err := c.store.ReadByKeys(ctx, kind.Collection(), rec.ExpectedIDs)
		if err != nil {
			if errors.IsNotFound(err) {
				continue
			}
			return nil, errors.StorageError("restricted read failed", err)
		}
		if len(docs) != len(rec.ExpectedIDs) {
			violations = append(violations, Violation{
				Check: CheckQueryCounts,
				Message: fmt.Sprintf("query %s against %s returned %d of %d expected documents",
					rec.QueryID, kind.Collection(), len(docs), len(rec.ExpectedIDs)),
			})
		}
	}
	return violations, nil
}

// warnCrossCollection flags expected identifiers shared between activity
// collections. Contamination signal only; logged, never fatal.
func (c *Checker) warnCrossCollection(ctx context.Context) {
	recs, err := c.truth.All(ctx)
	if err != nil {
		c.log.WithError(err).Warn("cross-collection check skipped, truth scan failed")
		return
	}

	owner := make(map[string]string)
	for _, rec := range recs {
		for _, id := range rec.ExpectedIDs {
			if prev, ok := owner[id]; ok && prev != rec.Collection {
				c.log.Warn("identifier shared across collections",
					"identifier", id,
					"collections", prev+","+rec.Collection,
				)
				continue
			}
			owner[id] = rec.Collection
		}
	}
}

// checkUUIDKeys verifies query identifiers are UUIDs and composite keys are
// unique per (query, collection) pair.
func (c *Checker) checkUUIDKeys(ctx context.Context) ([]Violation, error) {
	recs, err := c.truth.All(ctx)
	if err != nil {
		return nil, errors.StorageError("truth scan failed", err)
	}

	var violations []Violation
	seen := make(map[string]bool)
	for _, rec := range recs {
		if _, err := uuid.Parse(rec.QueryID); err != nil {
			violations = append(violations, Violation{
				Check:   CheckUUIDKeys,
				Message: fmt.Sprintf("query identifier %q is not a UUID", rec.QueryID),
			})
		}
		key := rec.Key()
		if seen[key] {
			violations = append(violations, Violation{
				Check:   CheckUUIDKeys,
				Message: "duplicate composite key: " + key,
			})
		}
		seen[key] = true
	}
	return violations, nil
}

func (c *Checker) publish(ctx context.Context, v Violation) {
	if c.events == nil {
		return
	}
	topic := bus.TopicSanityViolation
	if err := c.events.Publish(ctx, topic, bus.NewEvent(topic, c.runID, v)); err != nil {
		c.log.WithError(err).Warn("event publish failed", "topic", topic)
	}
}
