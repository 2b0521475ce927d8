package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"rulesmith/internal/rules"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect and manage the rule artifacts",
}

var rulesInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default rule tables for any missing artifact",
	RunE: func(_ *cobra.Command, _ []string) error {
		store, err := openArtifacts()
		if err != nil {
			return err
		}
		created, err := rules.Seed(store)
		if err != nil {
			return err
		}
		if len(created) == 0 {
			fmt.Println("all artifacts already present")
			return nil
		}
		for _, id := range created {
			fmt.Printf("created %s\n", id)
		}
		return nil
	},
}

var rulesValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Run the structural check over every artifact",
	RunE: func(_ *cobra.Command, _ []string) error {
		store, err := openArtifacts()
		if err != nil {
			return err
		}
		ids, err := store.List()
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return fmt.Errorf("no rule artifacts in %s (run `rulesmith rules init`)", rootFlags.rulesDir)
		}
		failed := 0
		for _, id := range ids {
			content, err := store.Read(id)
			if err == nil {
				err = rules.ValidateContent(content)
			}
			if err != nil {
				failed++
				fmt.Printf("✗ %-24s %v\n", id, err)
				continue
			}
			fmt.Printf("✓ %s\n", id)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d artifacts invalid", failed, len(ids))
		}
		return nil
	},
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print every rule in every artifact",
	RunE: func(_ *cobra.Command, _ []string) error {
		store, err := seededArtifacts()
		if err != nil {
			return err
		}
		ids, err := store.List()
		if err != nil {
			return err
		}
		for _, id := range ids {
			content, err := store.Read(id)
			if err != nil {
				return err
			}
			table, err := rules.Decode(content)
			if err != nil {
				return fmt.Errorf("decode %s: %w", id, err)
			}
			fmt.Printf("%s (version %d, %s)\n", id, table.Version, table.Dimension)
			for _, r := range table.Rules {
				state := ""
				if !r.Enabled {
					state = " [disabled]"
				}
				fmt.Printf("  %-24s %-20s w=%.2f%s\n", r.ID, r.Label, r.Weight, state)
				if len(r.Keywords) > 0 {
					fmt.Printf("    keywords: %v\n", r.Keywords)
				}
				if r.Pattern != "" {
					fmt.Printf("    pattern:  %s\n", r.Pattern)
				}
			}
		}
		return nil
	},
}

func init() {
	rulesCmd.AddCommand(rulesInitCmd)
	rulesCmd.AddCommand(rulesValidateCmd)
	rulesCmd.AddCommand(rulesListCmd)
}
