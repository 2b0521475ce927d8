// Package analyze turns a score report into ranked mutation proposals:
// concrete, minimal rule-table edits derived from clustered failure
// signatures.
package analyze

import (
	"rulesmith/internal/rules"
)

// Kind names the class of change a proposal makes.
type Kind string

const (
	RuleAddition    Kind = "rule-addition"
	RuleAdjustment  Kind = "rule-adjustment"
	ThresholdChange Kind = "threshold-change"
)

// Priority orders proposals; the numeric value is the priority weight used
// when ranking.
type Priority int

const (
	PriorityLow    Priority = 1
	PriorityMedium Priority = 2
	PriorityHigh   Priority = 3
)

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	default:
		return "low"
	}
}

// Proposal is one candidate mutation. EstimatedImprovement is a bounded
// heuristic for ranking only; the accept/rollback decision is always made
// on measured scores.
type Proposal struct {
	Kind                 Kind        `json:"kind"`
	Priority             Priority    `json:"priority"`
	EstimatedImprovement float64     `json:"estimated_improvement"`
	TargetArtifact       string      `json:"target_artifact"`
	Patch                rules.Patch `json:"patch"`
	Rationale            string      `json:"rationale"`
}

// Config tunes signature clustering and the improvement estimate.
type Config struct {
	// MinOccurrences: a signature must occur strictly more often than this
	// to produce a proposal, unless the class-fraction test passes.
	MinOccurrences int
	// ClassFraction: alternatively, the signature qualifies when it covers
	// more than this fraction of the samples carrying its class.
	ClassFraction float64
	// PerOccurrenceWeight and ImprovementCap bound the estimate:
	// min(cap, count*weight).
	PerOccurrenceWeight float64
	ImprovementCap      float64
	// MaxKeywordsPerProposal bounds keyword extraction per proposal.
	MaxKeywordsPerProposal int
}

// DefaultConfig mirrors the documented thresholds: more than 2 occurrences,
// or more than 10% of the class sample.
func DefaultConfig() Config {
	return Config{
		MinOccurrences:         2,
		ClassFraction:          0.10,
		PerOccurrenceWeight:    0.005,
		ImprovementCap:         0.05,
		MaxKeywordsPerProposal: 3,
	}
}
