// Package report accumulates ablation measurements per result key and renders
// summaries as JSON, CSV, and Markdown.
package report

import (
	"sort"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/tracesearch/trace-ablate/internal/ablation"
)

// Summary is the aggregate view of every measurement recorded under one
// result key.
type Summary struct {
	Key             string  `json:"key"`
	Measurements    int     `json:"measurements"`
	MeanPrecision   float64 `json:"mean_precision"`
	MeanRecall      float64 `json:"mean_recall"`
	MeanF1          float64 `json:"mean_f1"`
	StdDevF1        float64 `json:"stddev_f1"`
	MinF1           float64 `json:"min_f1"`
	MaxF1           float64 `json:"max_f1"`
	MeanImpact      float64 `json:"mean_impact"`
	MeanExecutionMS float64 `json:"mean_execution_ms"`
}

// Report is the complete rendered output of one run.
type Report struct {
	RunID       string                       `json:"run_id"`
	GeneratedAt time.Time                    `json:"generated_at"`
	Summaries   []Summary                    `json:"summaries"`
	Results     map[string][]ablation.Result `json:"results"`
}

// Aggregator accumulates measurements keyed by result key. Not safe for
// concurrent use.
type Aggregator struct {
	results map[string][]ablation.Result
}

// NewAggregator creates an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{results: make(map[string][]ablation.Result)}
}

// Add records one measurement under its result key.
func (a *Aggregator) Add(res ablation.Result) {
	a.results[res.Collection] = append(a.results[res.Collection], res)
}

// AddAll records a keyed batch of measurements, as produced by a run.
func (a *Aggregator) AddAll(results map[string][]ablation.Result) {
	for key, measurements := range results {
		for _, res := range measurements {
			res.Collection = key
			a.Add(res)
		}
	}
}

// Len returns the number of distinct result keys.
func (a *Aggregator) Len() int {
	return len(a.results)
}

// Build assembles the full report, with summaries sorted by key.
func (a *Aggregator) Build(runID string) Report {
	keys := make([]string, 0, len(a.results))
	for key := range a.results {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	summaries := make([]Summary, 0, len(keys))
	for _, key := range keys {
		summaries = append(summaries, summarize(key, a.results[key]))
	}
	return Report{
		RunID:       runID,
		GeneratedAt: time.Now().UTC(),
		Summaries:   summaries,
		Results:     a.results,
	}
}

func summarize(key string, measurements []ablation.Result) Summary {
	precisions := make(stats.Float64Data, len(measurements))
	recalls := make(stats.Float64Data, len(measurements))
	f1s := make(stats.Float64Data, len(measurements))
	impacts := make(stats.Float64Data, len(measurements))
	elapsed := make(stats.Float64Data, len(measurements))
	for i, res := range measurements {
		precisions[i] = res.Precision
		recalls[i] = res.Recall
		f1s[i] = res.F1
		impacts[i] = res.Impact()
		elapsed[i] = float64(res.ExecutionMS)
	}

	s := Summary{Key: key, Measurements: len(measurements)}
	s.MeanPrecision, _ = precisions.Mean()
	s.MeanRecall, _ = recalls.Mean()
	s.MeanF1, _ = f1s.Mean()
	s.StdDevF1, _ = f1s.StandardDeviation()
	s.MinF1, _ = f1s.Min()
	s.MaxF1, _ = f1s.Max()
	s.MeanImpact, _ = impacts.Mean()
	s.MeanExecutionMS, _ = elapsed.Mean()
	return s
}
