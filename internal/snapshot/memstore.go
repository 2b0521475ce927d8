package snapshot

import (
	"fmt"
	"sort"
	"sync"
)

// MemStore is the in-memory Store used by tests. Retention behavior matches
// SqlStore.
type MemStore struct {
	mu     sync.Mutex
	retain Retention
	snaps  map[int64]*Snapshot
	pinned map[int64]bool
	nextID int64
	runs   []*RunRecord // newest last
}

// NewMemStore returns an empty in-memory store with the given retention.
func NewMemStore(retain Retention) *MemStore {
	return &MemStore{
		retain: retain,
		snaps:  make(map[int64]*Snapshot),
		pinned: make(map[int64]bool),
	}
}

func (s *MemStore) Close() error { return nil }

func (s *MemStore) Take(artifactID string, content []byte) (int64, error) {
	if artifactID == "" {
		return 0, fmt.Errorf("empty artifact id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	cp := make([]byte, len(content))
	copy(cp, content)
	s.snaps[s.nextID] = &Snapshot{
		ID:         s.nextID,
		ArtifactID: artifactID,
		TakenAt:    nowUTC(),
		Content:    cp,
	}
	s.pruneSnapshotsLocked(artifactID)
	return s.nextID, nil
}

func (s *MemStore) pruneSnapshotsLocked(artifactID string) {
	if s.retain.MaxSnapshotsPerArtifact <= 0 {
		return
	}
	for i, id := range s.idsForLocked(artifactID) { // descending
		if i < s.retain.MaxSnapshotsPerArtifact || s.pinned[id] {
			continue
		}
		delete(s.snaps, id)
	}
}

func (s *MemStore) Pin(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.snaps[id]; !ok {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	s.pinned[id] = true
	return nil
}

func (s *MemStore) Unpin(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.pinned[id] {
		return nil
	}
	delete(s.pinned, id)
	if snap, ok := s.snaps[id]; ok {
		s.pruneSnapshotsLocked(snap.ArtifactID)
	}
	return nil
}

// idsForLocked returns snapshot IDs for the artifact, newest first.
func (s *MemStore) idsForLocked(artifactID string) []int64 {
	var ids []int64
	for id, snap := range s.snaps {
		if artifactID == "" || snap.ArtifactID == artifactID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
	return ids
}

func (s *MemStore) Get(id int64) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snaps[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	cp := *snap
	cp.Content = append([]byte(nil), snap.Content...)
	return &cp, nil
}

func (s *MemStore) Latest(artifactID string) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.idsForLocked(artifactID)
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: artifact %s", ErrNotFound, artifactID)
	}
	snap := s.snaps[ids[0]]
	cp := *snap
	cp.Content = append([]byte(nil), snap.Content...)
	return &cp, nil
}

func (s *MemStore) List(artifactID string) ([]*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Snapshot
	for _, id := range s.idsForLocked(artifactID) {
		snap := s.snaps[id]
		out = append(out, &Snapshot{ID: snap.ID, ArtifactID: snap.ArtifactID, TakenAt: snap.TakenAt})
	}
	return out, nil
}

func (s *MemStore) SaveRun(rec *RunRecord) error {
	if rec == nil || rec.ID == "" {
		return fmt.Errorf("run record needs an id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.StartedAt == "" {
		rec.StartedAt = nowUTC()
	}
	cp := *rec
	s.runs = append(s.runs, &cp)
	if s.retain.MaxRunRecords > 0 && len(s.runs) > s.retain.MaxRunRecords {
		s.runs = s.runs[len(s.runs)-s.retain.MaxRunRecords:]
	}
	return nil
}

func (s *MemStore) ListRuns() ([]*RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*RunRecord, 0, len(s.runs))
	for i := len(s.runs) - 1; i >= 0; i-- {
		cp := *s.runs[i]
		out = append(out, &cp)
	}
	return out, nil
}
