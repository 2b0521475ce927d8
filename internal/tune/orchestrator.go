package tune

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"rulesmith/internal/analyze"
	"rulesmith/internal/evaluate"
	"rulesmith/internal/logging"
	"rulesmith/internal/mutate"
)

// Proposer derives ranked proposals from a score report.
type Proposer interface {
	Propose(report *evaluate.ScoreReport) ([]analyze.Proposal, error)
}

// Applier applies and rolls back single proposals. Release frees the
// rollback snapshots of a finished batch.
type Applier interface {
	Apply(p analyze.Proposal) mutate.Applied
	Rollback(applied mutate.Applied) error
	Release(batch []mutate.Applied)
}

// Orchestrator runs the bounded improvement loop. Iterations are strictly
// sequential: the next one never starts before this one's accept/rollback
// decision is finalized.
type Orchestrator struct {
	Evaluator evaluate.Evaluator
	Proposer  Proposer
	Applier   Applier

	logger *slog.Logger
	now    func() time.Time
}

// New wires an orchestrator over the three collaborators.
func New(ev evaluate.Evaluator, pr Proposer, ap Applier) *Orchestrator {
	return &Orchestrator{
		Evaluator: ev,
		Proposer:  pr,
		Applier:   ap,
		logger:    logging.New("tune"),
		now:       time.Now,
	}
}

// Run executes up to cfg.MaxIterations rounds and returns the run report.
// Evaluator failures abort the run; the partial report built so far is
// returned alongside the error. Cancellation is honored only between
// iterations, never mid-iteration, so an artifact is never left half-applied.
func (o *Orchestrator) Run(ctx context.Context, cfg Config) (*RunReport, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("tune config: %w", err)
	}

	report := &RunReport{
		RunID:      uuid.NewString(),
		Config:     cfg,
		StartedAt:  o.now().UTC().Format(time.RFC3339),
		FinalState: StateRunning,
	}
	finish := func(state State, reason string) {
		report.FinalState = state
		report.StopReason = reason
		report.FinishedAt = o.now().UTC().Format(time.RFC3339)
	}

	o.logger.Info("tuning run started",
		"run_id", report.RunID,
		"max_iterations", cfg.MaxIterations,
		"target_score", cfg.TargetScore,
		"sample_size", cfg.SampleSize)

	for i := 1; i <= cfg.MaxIterations; i++ {
		if err := ctx.Err(); err != nil {
			finish(StateAborted, "canceled")
			return report, err
		}

		start := o.now()
		result, state, reason, err := o.iterate(ctx, cfg, i)
		result.ElapsedMs = o.now().Sub(start).Milliseconds()
		if err != nil {
			// Keep the aborted iteration in the partial report so its
			// applied-and-rolled-back mutations stay auditable.
			report.Iterations = append(report.Iterations, result)
			finish(StateAborted, reason)
			return report, err
		}
		report.Iterations = append(report.Iterations, result)
		report.FinalScore = result.ScoreAfter

		o.logger.Info("iteration finished",
			"iteration", i,
			"score_before", result.ScoreBefore,
			"score_after", result.ScoreAfter,
			"accepted", result.AcceptedMutationCount,
			"rolled_back", result.RolledBack)

		if state != StateRunning {
			finish(state, reason)
			return report, nil
		}
	}

	finish(StateExhausted, fmt.Sprintf("iteration budget of %d exhausted", cfg.MaxIterations))
	return report, nil
}

// iterate runs one round. It returns the next loop state: StateRunning to
// continue, or a terminal state with its stop reason. A non-nil error means
// the run aborted; the caller keeps the partial result.
func (o *Orchestrator) iterate(ctx context.Context, cfg Config, i int) (IterationResult, State, string, error) {
	result := IterationResult{Iteration: i}

	before, err := o.Evaluator.Score(ctx, cfg.SampleSize)
	if err != nil {
		return result, StateAborted, "evaluator unavailable",
			fmt.Errorf("iteration %d: score: %w", i, err)
	}
	result.ScoreBefore = before.OverallScore
	result.ScoreAfter = before.OverallScore

	if before.OverallScore >= cfg.TargetScore {
		return result, StateGoalReached,
			fmt.Sprintf("target score %.2f reached", cfg.TargetScore), nil
	}

	proposals, err := o.Proposer.Propose(before)
	if err != nil {
		return result, StateAborted, "proposal generation failed",
			fmt.Errorf("iteration %d: propose: %w", i, err)
	}
	result.ProposalCount = len(proposals)
	if len(proposals) == 0 {
		return result, StateExhausted, "no further improvement path", nil
	}

	if len(proposals) > cfg.MaxMutationsPerIteration {
		proposals = proposals[:cfg.MaxMutationsPerIteration]
	}

	// Proposals apply sequentially: a later one may target an artifact an
	// earlier one just changed.
	succeeded := 0
	for _, p := range proposals {
		applied := o.Applier.Apply(p)
		result.Mutations = append(result.Mutations, applied)
		if applied.Succeeded {
			succeeded++
		} else {
			o.logger.Warn("proposal failed",
				"iteration", i, "artifact", p.TargetArtifact, "error", applied.Error)
		}
	}
	// The batch's snapshots stay pinned until the accept/rollback decision
	// below is final; only then may retention reclaim them.
	defer o.Applier.Release(result.Mutations)
	if succeeded == 0 {
		return result, StateRunning, "", nil
	}

	// Re-score on a smaller independent sample: cheap enough to run every
	// iteration, large enough to catch a regression.
	after, err := o.Evaluator.Score(ctx, max(1, cfg.SampleSize/2))
	if err != nil {
		// The mutations were never measured, so they don't stay live.
		o.rollbackAll(result.Mutations)
		return result, StateAborted, "evaluator unavailable",
			fmt.Errorf("iteration %d: re-score: %w", i, err)
	}

	if after.OverallScore >= before.OverallScore {
		result.ScoreAfter = after.OverallScore
		result.AcceptedMutationCount = succeeded
		return result, StateRunning, "", nil
	}

	// Regression: restore every artifact touched this iteration. ScoreAfter
	// stays at ScoreBefore since the live state is back where it was.
	o.logger.Warn("regression detected, rolling back",
		"iteration", i, "score_before", before.OverallScore, "score_after", after.OverallScore)
	o.rollbackAll(result.Mutations)
	result.RolledBack = true
	return result, StateRunning, "", nil
}

// rollbackAll restores this iteration's mutations in reverse apply order, so
// an artifact hit twice lands on its oldest snapshot.
func (o *Orchestrator) rollbackAll(mutations []mutate.Applied) {
	for j := len(mutations) - 1; j >= 0; j-- {
		if !mutations[j].Succeeded {
			continue
		}
		if err := o.Applier.Rollback(mutations[j]); err != nil {
			o.logger.Error("rollback failed",
				"artifact", mutations[j].ArtifactID, "error", err)
		}
	}
}
