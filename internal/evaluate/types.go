// Package evaluate scores the classifier against the labeled corpus and
// produces the ScoreReport the analyzer mines for mutation proposals.
package evaluate

import "rulesmith/internal/rules"

// FailureKind classifies one per-sample mismatch.
type FailureKind string

const (
	// FalsePositive: no label expected for the dimension, one was detected.
	FalsePositive FailureKind = "false-positive"
	// FalseNegative: a label was expected, nothing fired.
	FalseNegative FailureKind = "false-negative"
	// Misclassified: a label was expected and a different one fired.
	Misclassified FailureKind = "misclassified"
)

// Case is one per-sample failure: which posting, which dimension, what was
// expected versus detected, and the text fragment behind the decision.
type Case struct {
	PostingID string          `json:"posting_id"`
	Dimension rules.Dimension `json:"dimension"`
	Kind      FailureKind     `json:"kind"`
	Expected  string          `json:"expected"`
	Detected  string          `json:"detected"`
	Fragment  string          `json:"fragment"`
}

// CategoryStats aggregates errors for one category key
// ("<dimension>/<label>").
type CategoryStats struct {
	ErrorCount int      `json:"error_count"`
	Examples   []string `json:"examples"` // posting IDs, capped
}

// ScoreReport is the outcome of one evaluation round. Failures preserves
// sample order, then task before industry within a sample.
type ScoreReport struct {
	SampleCount      int                      `json:"sample_count"`
	TaskAccuracy     float64                  `json:"task_accuracy"`
	IndustryAccuracy float64                  `json:"industry_accuracy"`
	OverallScore     float64                  `json:"overall_score"`
	PerCategory      map[string]CategoryStats `json:"per_category"`
	ClassTotals      map[string]int           `json:"class_totals"`
	Failures         []Case                   `json:"failures"`
}

// Overall weights: task detection drives the product's automation
// recommendations, so it outweighs industry detection.
const (
	taskWeight     = 0.6
	industryWeight = 0.4
)

// Overall combines the two accuracies into the overall score, clamped to
// [0,1]. Deterministic for a given pair of inputs.
func Overall(taskAccuracy, industryAccuracy float64) float64 {
	s := taskWeight*taskAccuracy + industryWeight*industryAccuracy
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}

// CategoryKey builds the PerCategory/ClassTotals map key. False positives
// are keyed by the over-firing detected label, everything else by the
// expected label, so each key names the label whose rules need attention.
func CategoryKey(dim rules.Dimension, label string) string {
	return string(dim) + "/" + label
}
