package snapshot

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// DefaultDBPath is the default relative path for the snapshot DB.
const DefaultDBPath = ".rulesmith/rulesmith.db"

// nowUTC returns the current UTC time as an ISO 8601 string.
func nowUTC() string { return time.Now().UTC().Format(time.RFC3339) }

// SqlStore implements Store with SQLite. Pins are process-local: they guard
// an in-flight mutation batch, not anything that must survive a restart.
type SqlStore struct {
	db     *sql.DB
	retain Retention

	mu     sync.Mutex
	pinned map[int64]bool
}

// Open opens or creates a SQLite DB at path and runs migrations. Creates the
// parent directory (e.g. .rulesmith) if it does not exist.
func Open(path string, retain Retention) (*SqlStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	s := &SqlStore{db: db, retain: retain, pinned: make(map[int64]bool)}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SqlStore) migrate() error {
	if _, err := s.db.Exec(schemaV1); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	var v int
	err := s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := s.db.Exec("INSERT INTO schema_version(version) VALUES(?)", currentSchemaVersion); err != nil {
			return fmt.Errorf("set schema version: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if v != currentSchemaVersion {
		return fmt.Errorf("unknown schema version %d", v)
	}
	return nil
}

func (s *SqlStore) Close() error { return s.db.Close() }

func (s *SqlStore) Take(artifactID string, content []byte) (int64, error) {
	if artifactID == "" {
		return 0, fmt.Errorf("empty artifact id")
	}
	res, err := s.db.Exec(
		"INSERT INTO snapshots(artifact_id, taken_at, content) VALUES(?,?,?)",
		artifactID, nowUTC(), content,
	)
	if err != nil {
		return 0, fmt.Errorf("take snapshot of %s: %w", artifactID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("take snapshot of %s: %w", artifactID, err)
	}
	if err := s.pruneSnapshots(artifactID); err != nil {
		return 0, err
	}
	return id, nil
}

// pruneSnapshots keeps the newest MaxSnapshotsPerArtifact rows for the
// artifact plus every pinned row. Newest-by-id ordering means the snapshot
// just taken is never removed.
func (s *SqlStore) pruneSnapshots(artifactID string) error {
	if s.retain.MaxSnapshotsPerArtifact <= 0 {
		return nil
	}
	rows, err := s.db.Query(
		"SELECT id FROM snapshots WHERE artifact_id = ? ORDER BY id DESC",
		artifactID,
	)
	if err != nil {
		return fmt.Errorf("prune snapshots of %s: %w", artifactID, err)
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return fmt.Errorf("prune snapshots of %s: %w", artifactID, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Close(); err != nil {
		return fmt.Errorf("prune snapshots of %s: %w", artifactID, err)
	}

	s.mu.Lock()
	var victims []int64
	for i, id := range ids {
		if i < s.retain.MaxSnapshotsPerArtifact || s.pinned[id] {
			continue
		}
		victims = append(victims, id)
	}
	s.mu.Unlock()

	for _, id := range victims {
		if _, err := s.db.Exec("DELETE FROM snapshots WHERE id = ?", id); err != nil {
			return fmt.Errorf("prune snapshots of %s: %w", artifactID, err)
		}
	}
	return nil
}

func (s *SqlStore) Pin(id int64) error {
	var exists int
	err := s.db.QueryRow("SELECT 1 FROM snapshots WHERE id = ?", id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("pin snapshot %d: %w", id, err)
	}
	s.mu.Lock()
	s.pinned[id] = true
	s.mu.Unlock()
	return nil
}

func (s *SqlStore) Unpin(id int64) error {
	s.mu.Lock()
	if !s.pinned[id] {
		s.mu.Unlock()
		return nil
	}
	delete(s.pinned, id)
	s.mu.Unlock()

	snap, err := s.Get(id)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.pruneSnapshots(snap.ArtifactID)
}

func (s *SqlStore) Get(id int64) (*Snapshot, error) {
	row := s.db.QueryRow("SELECT id, artifact_id, taken_at, content FROM snapshots WHERE id = ?", id)
	var snap Snapshot
	err := row.Scan(&snap.ID, &snap.ArtifactID, &snap.TakenAt, &snap.Content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot %d: %w", id, err)
	}
	return &snap, nil
}

func (s *SqlStore) Latest(artifactID string) (*Snapshot, error) {
	row := s.db.QueryRow(
		"SELECT id, artifact_id, taken_at, content FROM snapshots WHERE artifact_id = ? ORDER BY id DESC LIMIT 1",
		artifactID,
	)
	var snap Snapshot
	err := row.Scan(&snap.ID, &snap.ArtifactID, &snap.TakenAt, &snap.Content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: artifact %s", ErrNotFound, artifactID)
	}
	if err != nil {
		return nil, fmt.Errorf("latest snapshot of %s: %w", artifactID, err)
	}
	return &snap, nil
}

func (s *SqlStore) List(artifactID string) ([]*Snapshot, error) {
	query := "SELECT id, artifact_id, taken_at FROM snapshots ORDER BY id DESC"
	args := []any{}
	if artifactID != "" {
		query = "SELECT id, artifact_id, taken_at FROM snapshots WHERE artifact_id = ? ORDER BY id DESC"
		args = append(args, artifactID)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()
	var out []*Snapshot
	for rows.Next() {
		var snap Snapshot
		if err := rows.Scan(&snap.ID, &snap.ArtifactID, &snap.TakenAt); err != nil {
			return nil, fmt.Errorf("list snapshots: %w", err)
		}
		out = append(out, &snap)
	}
	return out, rows.Err()
}

func (s *SqlStore) SaveRun(rec *RunRecord) error {
	if rec == nil || rec.ID == "" {
		return fmt.Errorf("run record needs an id")
	}
	if rec.StartedAt == "" {
		rec.StartedAt = nowUTC()
	}
	if _, err := s.db.Exec(
		"INSERT INTO runs(id, started_at, config, report) VALUES(?,?,?,?)",
		rec.ID, rec.StartedAt, string(rec.Config), string(rec.Report),
	); err != nil {
		return fmt.Errorf("save run %s: %w", rec.ID, err)
	}
	return s.pruneRuns()
}

func (s *SqlStore) pruneRuns() error {
	if s.retain.MaxRunRecords <= 0 {
		return nil
	}
	_, err := s.db.Exec(`
		DELETE FROM runs WHERE id NOT IN (
			SELECT id FROM runs ORDER BY started_at DESC, id DESC LIMIT ?
		)`, s.retain.MaxRunRecords)
	if err != nil {
		return fmt.Errorf("prune runs: %w", err)
	}
	return nil
}

func (s *SqlStore) ListRuns() ([]*RunRecord, error) {
	rows, err := s.db.Query("SELECT id, started_at, config, report FROM runs ORDER BY started_at DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()
	var out []*RunRecord
	for rows.Next() {
		var rec RunRecord
		var cfg, rep string
		if err := rows.Scan(&rec.ID, &rec.StartedAt, &cfg, &rep); err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		rec.Config = []byte(cfg)
		rec.Report = []byte(rep)
		out = append(out, &rec)
	}
	return out, rows.Err()
}
