// Package snapshot persists point-in-time copies of rule artifacts for
// rollback, plus historical run records, with oldest-first retention caps on
// both.
package snapshot

import "errors"

// ErrNotFound is returned when a snapshot or run record does not exist.
var ErrNotFound = errors.New("snapshot not found")

// Snapshot is one immutable copy of an artifact's content. ID is assigned by
// the store and increases monotonically, so ordering by ID is ordering by
// creation time even when TakenAt timestamps collide within a second.
type Snapshot struct {
	ID         int64  `json:"id"`
	ArtifactID string `json:"artifact_id"`
	TakenAt    string `json:"taken_at"` // RFC3339 UTC
	Content    []byte `json:"-"`
}

// RunRecord is one persisted tuning run: its configuration and final report
// as JSON blobs. Written only when the caller opts in.
type RunRecord struct {
	ID        string `json:"id"` // uuid
	StartedAt string `json:"started_at"`
	Config    []byte `json:"config"`
	Report    []byte `json:"report"`
}

// Retention bounds what the store keeps. Pruning runs inside Take/SaveRun
// and removes oldest-first; the snapshot just written and any pinned
// snapshot are always retained.
type Retention struct {
	MaxSnapshotsPerArtifact int
	MaxRunRecords           int
}

// DefaultRetention keeps 3 snapshots per artifact and 10 run records.
func DefaultRetention() Retention {
	return Retention{MaxSnapshotsPerArtifact: 3, MaxRunRecords: 10}
}

// Store is the snapshot/run persistence facade. The mutation applier takes
// and reads snapshots; it never deletes them — retention is the store's
// exclusive concern.
type Store interface {
	// Take stores a snapshot of the artifact's content and returns its
	// handle. Retention pruning for that artifact runs after the write.
	Take(artifactID string, content []byte) (int64, error)
	// Get returns the snapshot with the given handle.
	Get(id int64) (*Snapshot, error)
	// Latest returns the most recent snapshot for the artifact, or
	// ErrNotFound.
	Latest(artifactID string) (*Snapshot, error)
	// List returns snapshot metadata (content omitted), newest first.
	// Empty artifactID lists all artifacts.
	List(artifactID string) ([]*Snapshot, error)
	// Pin exempts a snapshot from retention pruning until Unpin. The
	// mutation applier pins every snapshot of an in-flight batch so a
	// rollback target is never evicted before the accept/rollback
	// decision lands.
	Pin(id int64) error
	// Unpin releases a pinned snapshot and re-applies the retention cap
	// to its artifact. Unpinning an unpinned or unknown id is a no-op.
	Unpin(id int64) error
	// SaveRun persists a run record, pruning oldest records over the cap.
	SaveRun(rec *RunRecord) error
	// ListRuns returns run records, newest first.
	ListRuns() ([]*RunRecord, error)
	// Close releases the underlying storage.
	Close() error
}
