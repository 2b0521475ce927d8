package tune

import (
	"encoding/json"
	"fmt"

	"rulesmith/internal/snapshot"
)

// SaveRun writes the finished run into the run-record store as JSON. The
// store's retention policy bounds how many historical runs survive.
func SaveRun(store snapshot.Store, report *RunReport) error {
	if report == nil || report.RunID == "" {
		return fmt.Errorf("run report has no id")
	}
	cfg, err := json.Marshal(report.Config)
	if err != nil {
		return fmt.Errorf("marshal run config: %w", err)
	}
	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal run report: %w", err)
	}
	return store.SaveRun(&snapshot.RunRecord{
		ID:        report.RunID,
		StartedAt: report.StartedAt,
		Config:    cfg,
		Report:    body,
	})
}
