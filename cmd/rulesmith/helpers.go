package main

import (
	"fmt"

	"rulesmith/internal/rules"
	"rulesmith/internal/snapshot"
)

func openArtifacts() (*rules.FSStore, error) {
	store, err := rules.NewFSStore(rootFlags.rulesDir)
	if err != nil {
		return nil, fmt.Errorf("open rules dir %s: %w", rootFlags.rulesDir, err)
	}
	return store, nil
}

// seededArtifacts opens the artifact store and writes the default rule tables
// for any artifact that does not exist yet.
func seededArtifacts() (*rules.FSStore, error) {
	store, err := openArtifacts()
	if err != nil {
		return nil, err
	}
	if _, err := rules.Seed(store); err != nil {
		return nil, fmt.Errorf("seed rule artifacts: %w", err)
	}
	return store, nil
}

func openSnapshots() (*snapshot.SqlStore, error) {
	path := rootFlags.dbPath
	if path == "" {
		path = snapshot.DefaultDBPath
	}
	store, err := snapshot.Open(path, snapshot.DefaultRetention())
	if err != nil {
		return nil, fmt.Errorf("open snapshot store %s: %w", path, err)
	}
	return store, nil
}
