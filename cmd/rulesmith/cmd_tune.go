package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"rulesmith/internal/analyze"
	"rulesmith/internal/corpus"
	"rulesmith/internal/evaluate"
	"rulesmith/internal/mutate"
	"rulesmith/internal/tune"
)

var tuneFlags struct {
	maxIterations int
	targetScore   float64
	sampleSize    int
	maxMutations  int
	seed          int64
	saveReport    bool
}

var tuneCmd = &cobra.Command{
	Use:   "tune",
	Short: "Run the improvement loop until the target score or the iteration budget",
	Long: `Tune repeatedly scores the live rule set, applies the top-ranked mutations
derived from the failure patterns, re-scores on an independent sample, and
rolls the mutations back if the score regressed.

Exit codes: 0 if the target score was reached, 1 if not, 2 if the run
aborted before finishing.`,
	RunE: runTune,
}

func init() {
	f := tuneCmd.Flags()
	f.IntVar(&tuneFlags.maxIterations, "max-iterations", 5, "Iteration budget")
	f.Float64Var(&tuneFlags.targetScore, "target-score", 0.90, "Stop once the overall score reaches this value (0-1)")
	f.IntVar(&tuneFlags.sampleSize, "sample-size", 20, "Postings scored per iteration")
	f.IntVar(&tuneFlags.maxMutations, "max-mutations", 3, "Mutations applied per iteration")
	f.Int64Var(&tuneFlags.seed, "seed", 1, "Sampling seed")
	f.BoolVar(&tuneFlags.saveReport, "save-report", false, "Persist the run report to the snapshot DB")
}

func runTune(cmd *cobra.Command, _ []string) error {
	artifacts, err := seededArtifacts()
	if err != nil {
		return err
	}
	snaps, err := openSnapshots()
	if err != nil {
		return err
	}

	postings, err := corpus.Load()
	if err != nil {
		return err
	}

	orch := tune.New(
		evaluate.New(artifacts, postings, tuneFlags.seed),
		analyze.New(artifacts),
		mutate.New(artifacts, snaps),
	)
	cfg := tune.Config{
		MaxIterations:            tuneFlags.maxIterations,
		TargetScore:              tuneFlags.targetScore,
		SampleSize:               tuneFlags.sampleSize,
		MaxMutationsPerIteration: tuneFlags.maxMutations,
	}

	report, runErr := orch.Run(cmd.Context(), cfg)
	if report != nil {
		fmt.Print(tune.FormatReport(report))
		if tuneFlags.saveReport {
			if err := tune.SaveRun(snaps, report); err != nil {
				fmt.Fprintf(os.Stderr, "save run report: %v\n", err)
			}
		}
	}
	if runErr != nil {
		fmt.Fprintln(os.Stderr, runErr)
	}
	// Close before exiting: os.Exit would skip a deferred Close.
	if err := snaps.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "close snapshot store: %v\n", err)
	}
	if code := tuneExitCode(report, runErr); code != 0 {
		os.Exit(code)
	}
	return nil
}

// tuneExitCode maps a run outcome to the process exit code: 0 when the
// target score was reached, 1 when it was not, 2 when the run aborted.
func tuneExitCode(report *tune.RunReport, runErr error) int {
	if runErr != nil {
		return 2
	}
	if report == nil || !report.GoalReached() {
		return 1
	}
	return 0
}
