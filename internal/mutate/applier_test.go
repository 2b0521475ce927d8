package mutate

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"rulesmith/internal/analyze"
	"rulesmith/internal/rules"
	"rulesmith/internal/snapshot"
)

func newApplier(t *testing.T) (*Applier, *rules.MemStore, *snapshot.MemStore) {
	t.Helper()
	artifacts := rules.NewMemStore()
	if _, err := rules.Seed(artifacts); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	snaps := snapshot.NewMemStore(snapshot.DefaultRetention())
	return New(artifacts, snaps), artifacts, snaps
}

func extendProposal() analyze.Proposal {
	return analyze.Proposal{
		Kind:           analyze.RuleAdjustment,
		Priority:       analyze.PriorityHigh,
		TargetArtifact: rules.TaskArtifact,
		Patch:          rules.Patch{Op: rules.OpExtendRule, RuleID: "task-data-entry", Keywords: []string{"transcribe"}},
	}
}

func TestApplySnapshotBeforeWrite(t *testing.T) {
	applier, artifacts, snaps := newApplier(t)
	before, _ := artifacts.Read(rules.TaskArtifact)

	applied := applier.Apply(extendProposal())
	if !applied.Succeeded {
		t.Fatalf("Apply failed: %s", applied.Error)
	}
	if applied.SnapshotID == 0 {
		t.Fatal("no snapshot taken")
	}

	// The snapshot holds the pre-mutation content, byte for byte.
	snap, err := snaps.Get(applied.SnapshotID)
	if err != nil {
		t.Fatalf("Get snapshot: %v", err)
	}
	if !bytes.Equal(snap.Content, before) {
		t.Error("snapshot content differs from pre-mutation artifact")
	}

	// The live artifact changed, carries the keyword, and bumped version.
	after, _ := artifacts.Read(rules.TaskArtifact)
	if bytes.Equal(after, before) {
		t.Error("artifact unchanged after successful apply")
	}
	table, err := rules.Decode(after)
	if err != nil {
		t.Fatalf("Decode mutated artifact: %v", err)
	}
	if table.Version != 2 {
		t.Errorf("Version = %d, want 2", table.Version)
	}
	found := false
	for _, kw := range table.FindRule("task-data-entry").Keywords {
		if kw == "transcribe" {
			found = true
		}
	}
	if !found {
		t.Error("keyword not applied")
	}
}

func TestApplyPreconditionRefusesMalformedArtifact(t *testing.T) {
	applier, artifacts, snaps := newApplier(t)
	if err := artifacts.Write(rules.TaskArtifact, []byte("version: [broken")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	applied := applier.Apply(extendProposal())
	if applied.Succeeded {
		t.Fatal("Apply succeeded on malformed artifact")
	}
	if !strings.Contains(applied.Error, ErrInvalidArtifactState.Error()) {
		t.Errorf("Error = %q, want invalid artifact state", applied.Error)
	}
	// No snapshot taken, nothing written.
	if applied.SnapshotID != 0 {
		t.Error("snapshot taken despite precondition failure")
	}
	if list, _ := snaps.List(""); len(list) != 0 {
		t.Errorf("snapshot store has %d entries, want 0", len(list))
	}
}

func TestApplyPostconditionDiscardsInvalidResult(t *testing.T) {
	applier, artifacts, _ := newApplier(t)
	before, _ := artifacts.Read(rules.TaskArtifact)

	// Driving a weight to zero fails the structural check after patching.
	p := analyze.Proposal{
		Kind:           analyze.ThresholdChange,
		Priority:       analyze.PriorityLow,
		TargetArtifact: rules.TaskArtifact,
		Patch:          rules.Patch{Op: rules.OpAdjustWeight, RuleID: "task-reporting", WeightDelta: -1.0},
	}
	applied := applier.Apply(p)
	if applied.Succeeded {
		t.Fatal("Apply succeeded, want postcondition failure")
	}
	if !strings.Contains(applied.Error, ErrPostconditionFailed.Error()) {
		t.Errorf("Error = %q, want postcondition failed", applied.Error)
	}
	after, _ := artifacts.Read(rules.TaskArtifact)
	if !bytes.Equal(before, after) {
		t.Error("artifact changed despite postcondition failure")
	}
}

func TestApplyMissingPatchTarget(t *testing.T) {
	applier, artifacts, _ := newApplier(t)
	before, _ := artifacts.Read(rules.TaskArtifact)

	p := extendProposal()
	p.Patch.RuleID = "task-nonexistent"
	applied := applier.Apply(p)
	if applied.Succeeded {
		t.Fatal("Apply succeeded, want patch error")
	}
	after, _ := artifacts.Read(rules.TaskArtifact)
	if !bytes.Equal(before, after) {
		t.Error("artifact changed despite patch failure")
	}
}

func TestRollbackRestoresExactContent(t *testing.T) {
	applier, artifacts, _ := newApplier(t)
	before, _ := artifacts.Read(rules.TaskArtifact)

	applied := applier.Apply(extendProposal())
	if !applied.Succeeded {
		t.Fatalf("Apply failed: %s", applied.Error)
	}
	if err := applier.Rollback(applied); err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	after, _ := artifacts.Read(rules.TaskArtifact)
	if !bytes.Equal(before, after) {
		t.Error("rollback did not restore byte-identical content")
	}

	// Idempotent: a second rollback is a no-op that still succeeds.
	if err := applier.Rollback(applied); err != nil {
		t.Fatalf("second Rollback: %v", err)
	}
	again, _ := artifacts.Read(rules.TaskArtifact)
	if !bytes.Equal(before, again) {
		t.Error("second rollback changed content")
	}
}

func TestBatchOverSnapshotCapRollsBackToOriginal(t *testing.T) {
	artifacts := rules.NewMemStore()
	if _, err := rules.Seed(artifacts); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	before, _ := artifacts.Read(rules.TaskArtifact)
	snaps := snapshot.NewMemStore(snapshot.Retention{MaxSnapshotsPerArtifact: 3, MaxRunRecords: 10})
	applier := New(artifacts, snaps)

	// Four applies against one artifact: one more than the retention cap.
	// Every snapshot must stay available until the batch is released.
	var batch []Applied
	for n := 1; n <= 4; n++ {
		p := extendProposal()
		p.Patch.Keywords = []string{fmt.Sprintf("batchword%d", n)}
		applied := applier.Apply(p)
		if !applied.Succeeded {
			t.Fatalf("Apply %d failed: %s", n, applied.Error)
		}
		batch = append(batch, applied)
	}
	if list, _ := snaps.List(rules.TaskArtifact); len(list) != 4 {
		t.Fatalf("retained %d snapshots mid-batch, want all 4", len(list))
	}

	// Reverse order lands the artifact on the first apply's snapshot.
	for j := len(batch) - 1; j >= 0; j-- {
		if err := applier.Rollback(batch[j]); err != nil {
			t.Fatalf("Rollback %d: %v", j, err)
		}
	}
	after, _ := artifacts.Read(rules.TaskArtifact)
	if !bytes.Equal(before, after) {
		t.Error("batch rollback did not restore pre-batch content")
	}

	applier.Release(batch)
	if list, _ := snaps.List(rules.TaskArtifact); len(list) > 3 {
		t.Errorf("retained %d snapshots after release, want at most 3", len(list))
	}
}

func TestRollbackWithoutSnapshotIsNoOp(t *testing.T) {
	applier, artifacts, _ := newApplier(t)
	before, _ := artifacts.Read(rules.TaskArtifact)
	if err := applier.Rollback(Applied{ArtifactID: rules.TaskArtifact}); err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	after, _ := artifacts.Read(rules.TaskArtifact)
	if !bytes.Equal(before, after) {
		t.Error("no-op rollback changed content")
	}
}
