package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"rulesmith/internal/logging"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	rulesDir  string
	dbPath    string
	logLevel  string
	logFormat string
}

var rootCmd = &cobra.Command{
	Use:   "rulesmith",
	Short: "Self-tuning rule sets for job-posting classification",
	Long: "Rulesmith scores a heuristic job-posting classifier against a corpus,\n" +
		"derives rule mutations from the failure patterns, and keeps only the\n" +
		"mutations that measurably improve the score.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		level, err := logging.ParseLevel(rootFlags.logLevel)
		if err != nil {
			return err
		}
		logging.Init(level, rootFlags.logFormat)
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootFlags.rulesDir, "rules-dir", ".rulesmith/rules", "Directory holding the rule artifacts")
	pf.StringVar(&rootFlags.dbPath, "db", "", "Snapshot/run DB path (default .rulesmith/rulesmith.db)")
	pf.StringVar(&rootFlags.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	pf.StringVar(&rootFlags.logFormat, "log-format", "text", "Log format (text, json)")

	rootCmd.AddCommand(tuneCmd)
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(snapshotsCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
