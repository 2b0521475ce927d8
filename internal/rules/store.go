package rules

import "errors"

// ErrNotFound is returned when an artifact does not exist in the store.
var ErrNotFound = errors.New("artifact not found")

// Store is the artifact store facade: rule tables keyed by artifact ID.
// Write must replace atomically; partial writes must never be observable.
// CLI and pipeline code use only this interface; the implementation is the
// filesystem or an in-memory map for tests.
type Store interface {
	// Read returns the current content of the artifact.
	Read(artifactID string) ([]byte, error)
	// Write atomically replaces the artifact's content, creating it if absent.
	Write(artifactID string, content []byte) error
	// Exists reports whether the artifact is present.
	Exists(artifactID string) bool
	// List returns all artifact IDs, sorted.
	List() ([]string, error)
}
