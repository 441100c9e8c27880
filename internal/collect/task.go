package collect

import (
	"fmt"
	"time"

	"github.com/tracesearch/trace-ablate/internal/activity"
	"github.com/tracesearch/trace-ablate/internal/collections"
	"github.com/tracesearch/trace-ablate/internal/registry"
)

// TaskCollector generates application-usage records.
type TaskCollector struct {
	base
	applications []string
	weights      []int
	actions      []string
	titles       map[string][]string
}

// NewTaskCollector creates a task collector seeded for reproducibility.
func NewTaskCollector(reg *registry.Registry, seed int64) *TaskCollector {
	c := &TaskCollector{
		base:         newBase(activity.Task, reg, seed),
		applications: []string{"VSCode", "Chrome", "Slack", "Terminal", "Figma", "Excel"},
		weights:      []int{30, 25, 15, 15, 10, 5},
		actions:      []string{"opened", "edited", "saved", "closed"},
		titles: map[string][]string{
			"VSCode":   {"main.go", "engine_test.go", "README.md"},
			"Chrome":   {"Search results", "Documentation", "Dashboard"},
			"Slack":    {"#general", "#eng", "Direct message"},
			"Terminal": {"~/work", "~/notes", "ssh session"},
			"Figma":    {"Design system", "Wireframes"},
			"Excel":    {"budget.xlsx", "metrics.xlsx"},
		},
	}

	for _, name := range c.applications {
		reg.Register(registry.KindApplication, name)
	}
	return c
}

// Collect produces one plausible application-usage record.
func (c *TaskCollector) Collect() collections.Document {
	app := c.pickWeighted(c.applications, c.weights)
	id := c.recordID(fmt.Sprintf("batch:%d", c.rng.Int63()), 0)
	return c.record(id, app, c.pick(c.actions), c.recentTime())
}

// GenerateBatch produces n plausible application-usage records.
func (c *TaskCollector) GenerateBatch(n int) []collections.Document {
	docs := make([]collections.Document, n)
	for i := range docs {
		docs[i] = c.Collect()
	}
	return docs
}

// GenerateMatching substitutes the matched application (and action verb, when
// the query uses one) into generated records.
func (c *TaskCollector) GenerateMatching(query string, n int) []collections.Document {
	app, appMatched := firstMatch(query, c.applications)
	action, actionMatched := firstMatch(query, c.actions)

	seed := genericSeed
	switch {
	case appMatched:
		seed = app
	case actionMatched:
		seed = action
	}

	docs := make([]collections.Document, n)
	for i := range docs {
		a := app
		if !appMatched {
			a = c.pickWeighted(c.applications, c.weights)
		}
		act := action
		if !actionMatched {
			act = c.pick(c.actions)
		}
		docs[i] = c.record(c.recordID(seed, i), a, act, c.recentTime())
	}
	return docs
}

// GenerateNonMatching produces backdated records avoiding every application
// and action verb named in the query.
func (c *TaskCollector) GenerateNonMatching(query string, n int) []collections.Document {
	avoidApps := matchTerms(query, c.applications)
	avoidActions := matchTerms(query, c.actions)

	docs := make([]collections.Document, n)
	for i := range docs {
		app := c.pickAvoiding(c.applications, avoidApps)
		action := c.pickAvoiding(c.actions, avoidActions)
		id := c.recordID(fmt.Sprintf("nonmatch:%d", c.rng.Int63()), i)
		docs[i] = c.record(id, app, action, c.backdatedTime())
	}
	return docs
}

// GenerateTruth returns the identifiers GenerateMatching assigns, most
// specific matched category first.
func (c *TaskCollector) GenerateTruth(query string) []string {
	if app, ok := firstMatch(query, c.applications); ok {
		return c.truthIDs(app, c.matchCount)
	}
	if action, ok := firstMatch(query, c.actions); ok {
		return c.truthIDs(action, c.matchCount)
	}
	return c.truthIDs(genericSeed, c.matchCount)
}

func (c *TaskCollector) record(id, app, action string, at time.Time) collections.Document {
	titles := c.titles[app]
	title := app
	if len(titles) > 0 {
		title = c.pick(titles)
	}
	return collections.Document{
		collections.KeyField: id,
		"type":               c.kind.Token(),
		"application":        app,
		"entity_id":          c.reg.Register(registry.KindApplication, app),
		"window_title":       title,
		"action":             action,
		"timestamp":          at.Format(time.RFC3339),
		"duration_minutes":   1 + c.rng.Intn(90),
	}
}
