package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"rulesmith/internal/rules"
	"rulesmith/internal/snapshot"
)

var snapshotsFlags struct {
	artifact string
}

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "Inspect snapshots and historical runs",
}

var snapshotsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List retained snapshots, newest first",
	RunE: func(_ *cobra.Command, _ []string) error {
		snaps, err := openSnapshots()
		if err != nil {
			return err
		}
		defer snaps.Close()
		list, err := snaps.List(snapshotsFlags.artifact)
		if err != nil {
			return err
		}
		if len(list) == 0 {
			fmt.Println("no snapshots")
			return nil
		}
		for _, s := range list {
			fmt.Printf("%6d  %-24s %s\n", s.ID, s.ArtifactID, s.TakenAt)
		}
		return nil
	},
}

var snapshotsRestoreCmd = &cobra.Command{
	Use:   "restore <artifact>",
	Short: "Restore an artifact from its most recent snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		snaps, err := openSnapshots()
		if err != nil {
			return err
		}
		defer snaps.Close()
		latest, err := snaps.Latest(args[0])
		if err != nil {
			return err
		}
		if err := rules.ValidateContent(latest.Content); err != nil {
			return fmt.Errorf("snapshot %d is not a valid rule table: %w", latest.ID, err)
		}
		artifacts, err := openArtifacts()
		if err != nil {
			return err
		}
		if err := artifacts.Write(args[0], latest.Content); err != nil {
			return err
		}
		fmt.Printf("restored %s from snapshot %d (%s)\n", args[0], latest.ID, latest.TakenAt)
		return nil
	},
}

var snapshotsRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List retained run reports, newest first",
	RunE: func(_ *cobra.Command, _ []string) error {
		snaps, err := openSnapshots()
		if err != nil {
			return err
		}
		defer snaps.Close()
		runs, err := snaps.ListRuns()
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("no runs recorded")
			return nil
		}
		for _, r := range runs {
			fmt.Printf("%-36s  %s\n", r.ID, r.StartedAt)
		}
		return nil
	},
}

var snapshotsShowRunCmd = &cobra.Command{
	Use:   "show-run <run-id>",
	Short: "Print one run report as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		snaps, err := openSnapshots()
		if err != nil {
			return err
		}
		defer snaps.Close()
		runs, err := snaps.ListRuns()
		if err != nil {
			return err
		}
		for _, r := range runs {
			if r.ID == args[0] {
				_, err := os.Stdout.Write(append(r.Report, '\n'))
				return err
			}
		}
		return fmt.Errorf("%w: run %s", snapshot.ErrNotFound, args[0])
	},
}

func init() {
	snapshotsListCmd.Flags().StringVar(&snapshotsFlags.artifact, "artifact", "", "Restrict to one artifact")
	snapshotsCmd.AddCommand(snapshotsListCmd)
	snapshotsCmd.AddCommand(snapshotsRestoreCmd)
	snapshotsCmd.AddCommand(snapshotsRunsCmd)
	snapshotsCmd.AddCommand(snapshotsShowRunCmd)
}
