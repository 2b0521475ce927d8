package tune

import (
	"fmt"
	"strings"
)

// FormatReport produces the human-readable run summary.
func FormatReport(report *RunReport) string {
	var b strings.Builder

	b.WriteString("=== Rulesmith Tuning Report ===\n")
	b.WriteString(fmt.Sprintf("Run:        %s\n", report.RunID))
	b.WriteString(fmt.Sprintf("Target:     %.2f\n", report.Config.TargetScore))
	b.WriteString(fmt.Sprintf("Iterations: %d (max %d)\n\n", len(report.Iterations), report.Config.MaxIterations))

	for _, it := range report.Iterations {
		b.WriteString(fmt.Sprintf("--- Iteration %d ---\n", it.Iteration))
		b.WriteString(fmt.Sprintf("score %.4f -> %.4f  proposals=%d accepted=%d  %dms\n",
			it.ScoreBefore, it.ScoreAfter, it.ProposalCount, it.AcceptedMutationCount, it.ElapsedMs))
		for _, m := range it.Mutations {
			mark := "✓"
			detail := string(m.Proposal.Kind)
			switch {
			case !m.Succeeded:
				mark = "✗"
				detail = m.Error
			case it.RolledBack:
				mark = "↩"
				detail += " (rolled back)"
			}
			b.WriteString(fmt.Sprintf("  %s %-24s %s\n", mark, m.ArtifactID, detail))
		}
		b.WriteString("\n")
	}

	verdict := "TARGET NOT REACHED"
	if report.GoalReached() {
		verdict = "TARGET REACHED"
	}
	b.WriteString(fmt.Sprintf("RESULT: %s (final score %.4f, %s)\n", verdict, report.FinalScore, report.StopReason))
	return b.String()
}
