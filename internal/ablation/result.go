// Package ablation implements the reversible ablate/measure/restore cycle at
// the heart of the harness. An engine backs up and empties one collection at a
// time, measures search quality against ground truth while it is gone, and
// restores it, guaranteeing no collection is left ablated at session end.
package ablation

import "fmt"

// Result is one measurement of search quality under a particular ablation
// condition. Immutable once constructed.
type Result struct {
	QueryID        string  `json:"query_id"`
	Collection     string  `json:"collection"` // bare name or "{ablated}_impact_on_{target}"
	Precision      float64 `json:"precision"`
	Recall         float64 `json:"recall"`
	F1             float64 `json:"f1_score"`
	ExecutionMS    int64   `json:"execution_ms"`
	ResultCount    int     `json:"result_count"`
	TruePositives  int     `json:"true_positives"`
	FalsePositives int     `json:"false_positives"`
	FalseNegatives int     `json:"false_negatives"`
}

// Impact is how much this condition degraded search quality: 0 means no
// effect, 1 means all results destroyed.
func (r Result) Impact() float64 {
	return 1 - r.F1
}

// ImpactKey labels a collateral-impact measurement: the quality of target
// while ablated is missing.
func ImpactKey(ablated, target string) string {
	return fmt.Sprintf("%s_impact_on_%s", ablated, target)
}
