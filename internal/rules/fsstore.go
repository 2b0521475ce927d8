package rules

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FSStore keeps each artifact as one file under a root directory. The
// artifact ID is the file name (e.g. "task_patterns.yaml"); IDs with path
// separators are rejected so the store cannot escape its root.
type FSStore struct {
	root string
}

// NewFSStore creates the root directory if needed and returns the store.
func NewFSStore(root string) (*FSStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	return &FSStore{root: root}, nil
}

// Root returns the store's directory.
func (s *FSStore) Root() string { return s.root }

func (s *FSStore) path(artifactID string) (string, error) {
	if artifactID == "" || strings.ContainsAny(artifactID, `/\`) {
		return "", fmt.Errorf("invalid artifact id %q", artifactID)
	}
	return filepath.Join(s.root, artifactID), nil
}

func (s *FSStore) Read(artifactID string) ([]byte, error) {
	p, err := s.path(artifactID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, artifactID)
	}
	if err != nil {
		return nil, fmt.Errorf("read artifact %s: %w", artifactID, err)
	}
	return data, nil
}

// Write stages the content in a temp file and renames it over the target,
// so readers see either the old or the new content, never a partial write.
func (s *FSStore) Write(artifactID string, content []byte) error {
	p, err := s.path(artifactID)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.root, "."+artifactID+".tmp-*")
	if err != nil {
		return fmt.Errorf("stage artifact %s: %w", artifactID, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("stage artifact %s: %w", artifactID, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("stage artifact %s: %w", artifactID, err)
	}
	if err := os.Rename(tmpName, p); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace artifact %s: %w", artifactID, err)
	}
	return nil
}

func (s *FSStore) Exists(artifactID string) bool {
	p, err := s.path(artifactID)
	if err != nil {
		return false
	}
	_, err = os.Stat(p)
	return err == nil
}

func (s *FSStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		ids = append(ids, e.Name())
	}
	sort.Strings(ids)
	return ids, nil
}
