package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"rulesmith/internal/corpus"
	"rulesmith/internal/evaluate"
)

var scoreFlags struct {
	sampleSize int
	seed       int64
	asJSON     bool
}

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score the live rule set once and print the report",
	RunE:  runScore,
}

func init() {
	f := scoreCmd.Flags()
	f.IntVar(&scoreFlags.sampleSize, "sample-size", 20, "Postings to score")
	f.Int64Var(&scoreFlags.seed, "seed", 1, "Sampling seed")
	f.BoolVar(&scoreFlags.asJSON, "json", false, "Emit the raw report as JSON")
}

func runScore(cmd *cobra.Command, _ []string) error {
	artifacts, err := seededArtifacts()
	if err != nil {
		return err
	}
	postings, err := corpus.Load()
	if err != nil {
		return err
	}

	report, err := evaluate.New(artifacts, postings, scoreFlags.seed).
		Score(cmd.Context(), scoreFlags.sampleSize)
	if err != nil {
		return err
	}

	if scoreFlags.asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	fmt.Print(formatScore(report))
	return nil
}

func formatScore(report *evaluate.ScoreReport) string {
	var b strings.Builder
	b.WriteString("=== Rulesmith Score Report ===\n")
	b.WriteString(fmt.Sprintf("Sample:   %d postings\n", report.SampleCount))
	b.WriteString(fmt.Sprintf("Task:     %.4f\n", report.TaskAccuracy))
	b.WriteString(fmt.Sprintf("Industry: %.4f\n", report.IndustryAccuracy))
	b.WriteString(fmt.Sprintf("Overall:  %.4f\n\n", report.OverallScore))

	if len(report.PerCategory) > 0 {
		b.WriteString("--- Errors by category ---\n")
		keys := make([]string, 0, len(report.PerCategory))
		for k := range report.PerCategory {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			stats := report.PerCategory[k]
			b.WriteString(fmt.Sprintf("%-30s %3d  (e.g. %s)\n",
				k, stats.ErrorCount, strings.Join(stats.Examples, ", ")))
		}
		b.WriteString("\n")
	}

	for _, c := range report.Failures {
		b.WriteString(fmt.Sprintf("%-8s %-10s %-15s expected=%q detected=%q\n",
			c.PostingID, c.Dimension, c.Kind, c.Expected, c.Detected))
	}
	return b.String()
}
