// Package corpus ships the embedded labeled job-posting corpus the evaluator
// scores against, plus deterministic sampling over it.
package corpus

import (
	"embed"
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed data/*.yaml
var corpusFS embed.FS

// Posting is one labeled sample. Task and Industry are the expected labels;
// an empty string means no label of that dimension applies (the posting is a
// negative for that dimension).
type Posting struct {
	ID       string `yaml:"id" json:"id"`
	Title    string `yaml:"title" json:"title"`
	Text     string `yaml:"text" json:"text"`
	Task     string `yaml:"task" json:"task"`
	Industry string `yaml:"industry" json:"industry"`
}

type corpusFile struct {
	Postings []Posting `yaml:"postings"`
}

// Load reads all embedded corpus files and returns their postings merged,
// sorted by ID. IDs must be unique across files.
func Load() ([]Posting, error) {
	entries, err := corpusFS.ReadDir("data")
	if err != nil {
		return nil, fmt.Errorf("read corpus dir: %w", err)
	}
	var all []Posting
	seen := make(map[string]string)
	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		data, err := corpusFS.ReadFile("data/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("read corpus file %s: %w", e.Name(), err)
		}
		var f corpusFile
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parse corpus file %s: %w", e.Name(), err)
		}
		for _, p := range f.Postings {
			if p.ID == "" {
				return nil, fmt.Errorf("corpus file %s: posting with empty id", e.Name())
			}
			if prev, ok := seen[p.ID]; ok {
				return nil, fmt.Errorf("duplicate posting id %q (%s, %s)", p.ID, prev, e.Name())
			}
			seen[p.ID] = e.Name()
			all = append(all, p)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all, nil
}

// Sample draws n postings without replacement using the seeded source, so a
// given (corpus, n, seed) triple always yields the same draw. n <= 0 or
// n >= len(postings) returns a copy of the whole corpus.
func Sample(postings []Posting, n int, seed int64) []Posting {
	cp := make([]Posting, len(postings))
	copy(cp, postings)
	if n <= 0 || n >= len(cp) {
		return cp
	}
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(cp), func(i, j int) { cp[i], cp[j] = cp[j], cp[i] })
	return cp[:n]
}
