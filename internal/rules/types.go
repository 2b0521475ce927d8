// Package rules defines the mutable rule-set artifacts the tuning pipeline
// rewrites: typed pattern tables serialized as YAML, an artifact store with
// atomic replace semantics, and structured patches that edit tables as data.
package rules

import "strings"

// Dimension names the classification axis a table serves.
type Dimension string

const (
	DimensionTask     Dimension = "task"
	DimensionIndustry Dimension = "industry"
)

// Rule is one match pattern in a table. A rule fires on a posting when its
// regexp pattern matches or any keyword occurs in the normalized text; Weight
// scales the match score when labels compete.
type Rule struct {
	ID       string   `yaml:"id" json:"id"`
	Label    string   `yaml:"label" json:"label"`
	Pattern  string   `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	Keywords []string `yaml:"keywords,omitempty" json:"keywords,omitempty"`
	Weight   float64  `yaml:"weight" json:"weight"`
	Enabled  bool     `yaml:"enabled" json:"enabled"`
}

// Table is one rule-set artifact: an ordered list of rules for a dimension.
// Version increments on every accepted mutation.
type Table struct {
	Version   int       `yaml:"version" json:"version"`
	Dimension Dimension `yaml:"dimension" json:"dimension"`
	Rules     []Rule    `yaml:"rules" json:"rules"`
}

// FindRule returns the rule with the given ID, or nil.
func (t *Table) FindRule(id string) *Rule {
	for i := range t.Rules {
		if t.Rules[i].ID == id {
			return &t.Rules[i]
		}
	}
	return nil
}

// FindByLabel returns the first rule carrying the given label, or nil.
func (t *Table) FindByLabel(label string) *Rule {
	for i := range t.Rules {
		if t.Rules[i].Label == label {
			return &t.Rules[i]
		}
	}
	return nil
}

// AllKeywords returns the lowercased set of every keyword in the table,
// enabled or not.
func (t *Table) AllKeywords() map[string]bool {
	out := make(map[string]bool)
	for _, r := range t.Rules {
		for _, kw := range r.Keywords {
			out[strings.ToLower(kw)] = true
		}
	}
	return out
}

// Labels returns the distinct labels of all enabled rules, in table order.
func (t *Table) Labels() []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range t.Rules {
		if !r.Enabled || seen[r.Label] {
			continue
		}
		seen[r.Label] = true
		out = append(out, r.Label)
	}
	return out
}
