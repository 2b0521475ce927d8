// Package mutate applies analyzer proposals to the live rule artifacts under
// write-ahead snapshot discipline, and rolls them back from those snapshots.
package mutate

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"rulesmith/internal/analyze"
	"rulesmith/internal/logging"
	"rulesmith/internal/rules"
	"rulesmith/internal/snapshot"
)

// Error taxonomy for apply failures. All are per-proposal: the orchestrator
// records them and moves on to the next proposal.
var (
	// ErrInvalidArtifactState: the artifact was malformed before any
	// mutation; apply refuses to compound corruption.
	ErrInvalidArtifactState = errors.New("invalid artifact state")
	// ErrPostconditionFailed: the patch produced an invalid artifact; the
	// computed content was discarded before any write.
	ErrPostconditionFailed = errors.New("postcondition failed")
	// ErrSnapshotUnavailable: no snapshot could be taken, so the mutation
	// was not attempted at all.
	ErrSnapshotUnavailable = errors.New("snapshot unavailable")
)

// Applied is the result of one apply call, consumed immediately by the
// orchestrator for its accept/rollback decision.
type Applied struct {
	Proposal   analyze.Proposal `json:"proposal"`
	Succeeded  bool             `json:"succeeded"`
	Error      string           `json:"error,omitempty"`
	ArtifactID string           `json:"artifact_id"`
	SnapshotID int64            `json:"snapshot_id,omitempty"`
}

// Applier owns all writes to the rule artifacts. A single mutex serializes
// Apply and Rollback: the pipeline is single-writer by design, and running
// concurrent pipelines against one artifact store is unsupported.
type Applier struct {
	mu        sync.Mutex
	artifacts rules.Store
	snapshots snapshot.Store
	logger    *slog.Logger
}

// New returns an applier over the given stores.
func New(artifacts rules.Store, snapshots snapshot.Store) *Applier {
	return &Applier{
		artifacts: artifacts,
		snapshots: snapshots,
		logger:    logging.New("mutate"),
	}
}

// Apply runs the write-ahead sequence: validate current content, snapshot,
// patch, validate new content, atomic replace. Failures are reported on the
// returned Applied, never by writing a partial artifact.
func (a *Applier) Apply(p analyze.Proposal) Applied {
	a.mu.Lock()
	defer a.mu.Unlock()

	applied := Applied{Proposal: p, ArtifactID: p.TargetArtifact}

	content, err := a.artifacts.Read(p.TargetArtifact)
	if err != nil {
		applied.Error = fmt.Errorf("%w: %v", ErrInvalidArtifactState, err).Error()
		return applied
	}

	// Precondition: refuse to mutate an already-broken artifact.
	table, err := rules.Decode(content)
	if err == nil {
		err = rules.Validate(table)
	}
	if err != nil {
		applied.Error = fmt.Errorf("%w: %v", ErrInvalidArtifactState, err).Error()
		a.logger.Warn("apply refused: artifact malformed before mutation",
			"artifact", p.TargetArtifact, "error", err)
		return applied
	}

	// Snapshot-before-write: without a snapshot there is no rollback path,
	// so the mutation is not attempted.
	snapID, err := a.snapshots.Take(p.TargetArtifact, content)
	if err != nil {
		applied.Error = fmt.Errorf("%w: %v", ErrSnapshotUnavailable, err).Error()
		a.logger.Warn("apply skipped: snapshot failed",
			"artifact", p.TargetArtifact, "error", err)
		return applied
	}
	// Pin until Release: later applies in the same batch must not let
	// retention evict this rollback target.
	if err := a.snapshots.Pin(snapID); err != nil {
		applied.Error = fmt.Errorf("%w: %v", ErrSnapshotUnavailable, err).Error()
		return applied
	}
	applied.SnapshotID = snapID

	if err := p.Patch.Apply(table); err != nil {
		applied.Error = fmt.Errorf("apply patch: %w", err).Error()
		return applied
	}
	table.Version++

	next, err := rules.Encode(table)
	if err != nil {
		applied.Error = err.Error()
		return applied
	}

	// Postcondition: the mutated table must still pass the structural
	// check; otherwise discard the computed content unwritten.
	if err := rules.ValidateContent(next); err != nil {
		applied.Error = fmt.Errorf("%w: %v", ErrPostconditionFailed, err).Error()
		a.logger.Warn("apply discarded: mutation would corrupt artifact",
			"artifact", p.TargetArtifact, "patch", p.Patch.Describe(), "error", err)
		return applied
	}

	if err := a.artifacts.Write(p.TargetArtifact, next); err != nil {
		applied.Error = fmt.Errorf("write artifact: %w", err).Error()
		return applied
	}

	applied.Succeeded = true
	a.logger.Info("mutation applied",
		"artifact", p.TargetArtifact, "snapshot", snapID, "patch", p.Patch.Describe())
	return applied
}

// Rollback restores the artifact from the snapshot taken by the
// corresponding Apply. It is idempotent: restoring an already-restored
// artifact is a no-op that still succeeds. Rolling back an apply that never
// wrote (no snapshot or failed before the write) is likewise a no-op.
func (a *Applier) Rollback(applied Applied) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if applied.SnapshotID == 0 {
		return nil
	}
	snap, err := a.snapshots.Get(applied.SnapshotID)
	if err != nil {
		return fmt.Errorf("rollback %s: %w", applied.ArtifactID, err)
	}
	current, err := a.artifacts.Read(applied.ArtifactID)
	if err == nil && bytes.Equal(current, snap.Content) {
		return nil
	}
	if err := a.artifacts.Write(applied.ArtifactID, snap.Content); err != nil {
		return fmt.Errorf("rollback %s: %w", applied.ArtifactID, err)
	}
	a.logger.Info("mutation rolled back",
		"artifact", applied.ArtifactID, "snapshot", applied.SnapshotID)
	return nil
}

// Release unpins the snapshots taken for a batch of applies, letting
// retention reclaim them. Call it once the batch's accept/rollback decision
// is final; the Applied values stay usable for audit, not for rollback.
func (a *Applier) Release(batch []Applied) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, applied := range batch {
		if applied.SnapshotID == 0 {
			continue
		}
		if err := a.snapshots.Unpin(applied.SnapshotID); err != nil {
			a.logger.Warn("release snapshot failed",
				"artifact", applied.ArtifactID, "snapshot", applied.SnapshotID, "error", err)
		}
	}
}
