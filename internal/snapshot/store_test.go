package snapshot

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
)

// storesUnderTest exercises the Store contract against both implementations.
func storesUnderTest(t *testing.T, retain Retention) map[string]Store {
	t.Helper()
	sqls, err := Open(filepath.Join(t.TempDir(), "snap.db"), retain)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = sqls.Close() })
	return map[string]Store{"sql": sqls, "mem": NewMemStore(retain)}
}

func TestTakeGetLatest(t *testing.T) {
	for name, st := range storesUnderTest(t, DefaultRetention()) {
		t.Run(name, func(t *testing.T) {
			id1, err := st.Take("a.yaml", []byte("v1"))
			if err != nil {
				t.Fatalf("Take: %v", err)
			}
			id2, err := st.Take("a.yaml", []byte("v2"))
			if err != nil {
				t.Fatalf("Take: %v", err)
			}
			if id2 <= id1 {
				t.Errorf("ids not monotonic: %d then %d", id1, id2)
			}

			snap, err := st.Get(id1)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if !bytes.Equal(snap.Content, []byte("v1")) {
				t.Errorf("Get content = %q, want v1", snap.Content)
			}
			if snap.ArtifactID != "a.yaml" || snap.TakenAt == "" {
				t.Errorf("snapshot metadata = %+v", snap)
			}

			latest, err := st.Latest("a.yaml")
			if err != nil {
				t.Fatalf("Latest: %v", err)
			}
			if latest.ID != id2 || !bytes.Equal(latest.Content, []byte("v2")) {
				t.Errorf("Latest = %+v, want id %d content v2", latest, id2)
			}

			if _, err := st.Get(9999); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get missing = %v, want ErrNotFound", err)
			}
			if _, err := st.Latest("other.yaml"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Latest missing = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestSnapshotRetentionBound(t *testing.T) {
	retain := Retention{MaxSnapshotsPerArtifact: 3, MaxRunRecords: 10}
	for name, st := range storesUnderTest(t, retain) {
		t.Run(name, func(t *testing.T) {
			for i := 0; i < 10; i++ {
				if _, err := st.Take("a.yaml", fmt.Appendf(nil, "v%d", i)); err != nil {
					t.Fatalf("Take %d: %v", i, err)
				}
				// A second artifact must not count against a.yaml's cap.
				if _, err := st.Take("b.yaml", []byte("x")); err != nil {
					t.Fatalf("Take b %d: %v", i, err)
				}
			}
			snaps, err := st.List("a.yaml")
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(snaps) != 3 {
				t.Fatalf("retained %d snapshots, want 3", len(snaps))
			}
			// Newest first, and the newest survives pruning.
			latest, err := st.Latest("a.yaml")
			if err != nil {
				t.Fatalf("Latest: %v", err)
			}
			if !bytes.Equal(latest.Content, []byte("v9")) {
				t.Errorf("latest content = %q, want v9", latest.Content)
			}
			if snaps[0].ID != latest.ID {
				t.Errorf("List[0].ID = %d, want latest %d", snaps[0].ID, latest.ID)
			}
		})
	}
}

func TestPinnedSnapshotsSurvivePruning(t *testing.T) {
	retain := Retention{MaxSnapshotsPerArtifact: 1, MaxRunRecords: 10}
	for name, st := range storesUnderTest(t, retain) {
		t.Run(name, func(t *testing.T) {
			id1, err := st.Take("a.yaml", []byte("v1"))
			if err != nil {
				t.Fatalf("Take: %v", err)
			}
			if err := st.Pin(id1); err != nil {
				t.Fatalf("Pin: %v", err)
			}

			// Two more writes would normally evict v1 under a cap of 1.
			if _, err := st.Take("a.yaml", []byte("v2")); err != nil {
				t.Fatalf("Take: %v", err)
			}
			id3, err := st.Take("a.yaml", []byte("v3"))
			if err != nil {
				t.Fatalf("Take: %v", err)
			}

			snap, err := st.Get(id1)
			if err != nil {
				t.Fatalf("pinned snapshot pruned: %v", err)
			}
			if !bytes.Equal(snap.Content, []byte("v1")) {
				t.Errorf("pinned content = %q, want v1", snap.Content)
			}

			// Unpin re-applies the cap: only the newest survives.
			if err := st.Unpin(id1); err != nil {
				t.Fatalf("Unpin: %v", err)
			}
			if _, err := st.Get(id1); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get after unpin = %v, want ErrNotFound", err)
			}
			if _, err := st.Get(id3); err != nil {
				t.Errorf("newest snapshot gone after unpin: %v", err)
			}

			if err := st.Pin(9999); !errors.Is(err, ErrNotFound) {
				t.Errorf("Pin missing = %v, want ErrNotFound", err)
			}
			if err := st.Unpin(9999); err != nil {
				t.Errorf("Unpin missing = %v, want no-op", err)
			}
		})
	}
}

func TestRunRecordRetention(t *testing.T) {
	retain := Retention{MaxSnapshotsPerArtifact: 3, MaxRunRecords: 2}
	for name, st := range storesUnderTest(t, retain) {
		t.Run(name, func(t *testing.T) {
			for i := 0; i < 5; i++ {
				rec := &RunRecord{
					ID:        fmt.Sprintf("run-%d", i),
					StartedAt: fmt.Sprintf("2026-08-31T00:00:0%dZ", i),
					Config:    []byte(`{}`),
					Report:    []byte(`{}`),
				}
				if err := st.SaveRun(rec); err != nil {
					t.Fatalf("SaveRun %d: %v", i, err)
				}
			}
			runs, err := st.ListRuns()
			if err != nil {
				t.Fatalf("ListRuns: %v", err)
			}
			if len(runs) != 2 {
				t.Fatalf("retained %d runs, want 2", len(runs))
			}
			if runs[0].ID != "run-4" || runs[1].ID != "run-3" {
				t.Errorf("runs = [%s, %s], want newest first", runs[0].ID, runs[1].ID)
			}
		})
	}
}

func TestSqlStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap.db")
	st, err := Open(path, DefaultRetention())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	id, err := st.Take("a.yaml", []byte("persisted"))
	if err != nil {
		t.Fatalf("Take: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	st2, err := Open(path, DefaultRetention())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st2.Close()
	snap, err := st2.Get(id)
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if !bytes.Equal(snap.Content, []byte("persisted")) {
		t.Errorf("content = %q, want persisted", snap.Content)
	}
}
