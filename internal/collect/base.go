package collect

import (
	"math/rand"
	"strings"
	"time"

	"github.com/tracesearch/trace-ablate/internal/activity"
	"github.com/tracesearch/trace-ablate/internal/pkg/identity"
	"github.com/tracesearch/trace-ablate/internal/registry"
)

// genericSeed is the vocabulary slot used when a query matches nothing.
const genericSeed = "generic"

// DefaultMatchCount is the number of matching records and truth identifiers
// generated per query unless configured otherwise.
const DefaultMatchCount = 5

// backdateMinDays is how far non-matching records are pushed into the past,
// well outside the recent window matching records live in.
const backdateMinDays = 90

// base carries the state shared by every collector.
type base struct {
	kind       activity.Kind
	reg        *registry.Registry
	rng        *rand.Rand
	matchCount int
}

func newBase(kind activity.Kind, reg *registry.Registry, seed int64) base {
	return base{
		kind:       kind,
		reg:        reg,
		rng:        rand.New(rand.NewSource(seed)),
		matchCount: DefaultMatchCount,
	}
}

type matchCountSetter interface {
	setMatchCount(n int)
}

// setMatchCount adjusts the truth-set size; GenerateTruth and
// GenerateMatching must agree on it for a session.
func (b *base) setMatchCount(n int) {
	if n > 0 {
		b.matchCount = n
	}
}

// Kind returns the collector's activity domain.
func (b *base) Kind() activity.Kind {
	return b.kind
}

// Seed reseeds the collector's random source.
func (b *base) Seed(v int64) {
	b.rng = rand.New(rand.NewSource(v))
}

// recordID derives the deterministic identifier for the i-th record keyed by
// a matched vocabulary value, e.g. "location_activity:Home:3".
func (b *base) recordID(value string, i int) string {
	return identity.DeriveIndexed(b.kind.Token()+":"+value, i)
}

// truthIDs derives the identifier set for a matched vocabulary value.
func (b *base) truthIDs(value string, n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = b.recordID(value, i)
	}
	return ids
}

// pick returns a uniformly random element.
func (b *base) pick(items []string) string {
	return items[b.rng.Intn(len(items))]
}

// pickWeighted returns an element according to integer weights.
func (b *base) pickWeighted(items []string, weights []int) string {
	total := 0
	for _, w := range weights {
		total += w
	}
	n := b.rng.Intn(total)
	for i, w := range weights {
		if n < w {
			return items[i]
		}
		n -= w
	}
	return items[len(items)-1]
}

// pickAvoiding returns a random element not in the avoid set. Falls back to a
// plain pick when everything is excluded.
func (b *base) pickAvoiding(items []string, avoid []string) string {
	candidates := make([]string, 0, len(items))
	for _, item := range items {
		if !containsFold(avoid, item) {
			candidates = append(candidates, item)
		}
	}
	if len(candidates) == 0 {
		return b.pick(items)
	}
	return candidates[b.rng.Intn(len(candidates))]
}

// recentTime returns a timestamp inside the last seven days.
func (b *base) recentTime() time.Time {
	offset := time.Duration(b.rng.Intn(7*24*60)) * time.Minute
	return time.Now().UTC().Add(-offset)
}

// backdatedTime returns a timestamp between 90 and 365 days ago.
func (b *base) backdatedTime() time.Time {
	days := backdateMinDays + b.rng.Intn(365-backdateMinDays)
	offset := time.Duration(days)*24*time.Hour + time.Duration(b.rng.Intn(24*60))*time.Minute
	return time.Now().UTC().Add(-offset)
}

// matchTerms returns the vocabulary terms present in the query, by
// case-insensitive substring matching. This is table lookup, not NLP.
func matchTerms(query string, terms []string) []string {
	q := strings.ToLower(query)
	var matched []string
	for _, term := range terms {
		if strings.Contains(q, strings.ToLower(term)) {
			matched = append(matched, term)
		}
	}
	return matched
}

// firstMatch returns the first vocabulary term found in the query.
func firstMatch(query string, terms []string) (string, bool) {
	matched := matchTerms(query, terms)
	if len(matched) == 0 {
		return "", false
	}
	return matched[0], true
}

func containsFold(items []string, s string) bool {
	for _, item := range items {
		if strings.EqualFold(item, s) {
			return true
		}
	}
	return false
}
