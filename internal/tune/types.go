// Package tune drives the improvement loop: score, propose, apply, re-score,
// keep or roll back.
package tune

import (
	"fmt"

	"rulesmith/internal/mutate"
)

// State is the orchestrator lifecycle state. GoalReached, Exhausted, and
// Aborted are terminal.
type State string

const (
	StateRunning     State = "running"
	StateGoalReached State = "goal_reached"
	StateExhausted   State = "exhausted"
	StateAborted     State = "aborted"
)

// Config bounds one tuning run.
type Config struct {
	MaxIterations            int     `json:"max_iterations"`
	TargetScore              float64 `json:"target_score"`
	SampleSize               int     `json:"sample_size"`
	MaxMutationsPerIteration int     `json:"max_mutations_per_iteration"`
}

// DefaultConfig returns the stock run bounds.
func DefaultConfig() Config {
	return Config{
		MaxIterations:            5,
		TargetScore:              0.90,
		SampleSize:               20,
		MaxMutationsPerIteration: 3,
	}
}

// Validate rejects configs the loop cannot run with.
func (c Config) Validate() error {
	if c.MaxIterations < 1 {
		return fmt.Errorf("max iterations %d is not positive", c.MaxIterations)
	}
	if c.TargetScore < 0 || c.TargetScore > 1 {
		return fmt.Errorf("target score %.2f outside [0,1]", c.TargetScore)
	}
	if c.SampleSize < 1 {
		return fmt.Errorf("sample size %d is not positive", c.SampleSize)
	}
	if c.MaxMutationsPerIteration < 1 {
		return fmt.Errorf("max mutations per iteration %d is not positive", c.MaxMutationsPerIteration)
	}
	return nil
}

// IterationResult records one orchestrator round.
type IterationResult struct {
	Iteration             int              `json:"iteration"`
	ScoreBefore           float64          `json:"score_before"`
	ScoreAfter            float64          `json:"score_after"`
	ProposalCount         int              `json:"proposal_count"`
	AcceptedMutationCount int              `json:"accepted_mutation_count"`
	RolledBack            bool             `json:"rolled_back,omitempty"`
	Mutations             []mutate.Applied `json:"mutations,omitempty"`
	ElapsedMs             int64            `json:"elapsed_ms"`
}

// RunReport aggregates a whole run. Immutable once the run ends.
type RunReport struct {
	RunID      string            `json:"run_id"`
	Config     Config            `json:"config"`
	StartedAt  string            `json:"started_at"`
	FinishedAt string            `json:"finished_at"`
	Iterations []IterationResult `json:"iterations"`
	FinalState State             `json:"final_state"`
	FinalScore float64           `json:"final_score"`
	StopReason string            `json:"stop_reason"`
}

// GoalReached reports whether the run ended at or above the target score.
func (r *RunReport) GoalReached() bool { return r.FinalState == StateGoalReached }
