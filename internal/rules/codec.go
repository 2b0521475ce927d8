package rules

import (
	"errors"
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"
)

// ErrInvalid marks a table that fails structural validation. Callers can
// errors.Is against it regardless of which check tripped.
var ErrInvalid = errors.New("invalid rule table")

// Decode parses YAML content into a Table. Parse failures are reported as
// ErrInvalid: an artifact that does not deserialize is structurally broken.
func Decode(content []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(content, &t); err != nil {
		return nil, fmt.Errorf("%w: parse: %v", ErrInvalid, err)
	}
	return &t, nil
}

// Encode serializes a Table to YAML.
func Encode(t *Table) ([]byte, error) {
	data, err := yaml.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("encode rule table: %w", err)
	}
	return data, nil
}

// Validate runs the structural-validity check on a decoded table: known
// dimension, unique non-empty rule IDs, every rule labeled and matchable
// (compilable pattern or at least one keyword), positive weights, and at
// least one enabled rule. All violations wrap ErrInvalid.
func Validate(t *Table) error {
	if t == nil {
		return fmt.Errorf("%w: nil table", ErrInvalid)
	}
	if t.Dimension != DimensionTask && t.Dimension != DimensionIndustry {
		return fmt.Errorf("%w: unknown dimension %q", ErrInvalid, t.Dimension)
	}
	if len(t.Rules) == 0 {
		return fmt.Errorf("%w: no rules", ErrInvalid)
	}

	ids := make(map[string]bool, len(t.Rules))
	enabled := 0
	for i, r := range t.Rules {
		if r.ID == "" {
			return fmt.Errorf("%w: rule %d has empty id", ErrInvalid, i)
		}
		if ids[r.ID] {
			return fmt.Errorf("%w: duplicate rule id %q", ErrInvalid, r.ID)
		}
		ids[r.ID] = true
		if r.Label == "" {
			return fmt.Errorf("%w: rule %q has empty label", ErrInvalid, r.ID)
		}
		if r.Pattern == "" && len(r.Keywords) == 0 {
			return fmt.Errorf("%w: rule %q has neither pattern nor keywords", ErrInvalid, r.ID)
		}
		if r.Pattern != "" {
			if _, err := regexp.Compile(r.Pattern); err != nil {
				return fmt.Errorf("%w: rule %q pattern: %v", ErrInvalid, r.ID, err)
			}
		}
		for _, kw := range r.Keywords {
			if kw == "" {
				return fmt.Errorf("%w: rule %q has empty keyword", ErrInvalid, r.ID)
			}
		}
		if r.Weight <= 0 {
			return fmt.Errorf("%w: rule %q weight %.2f is not positive", ErrInvalid, r.ID, r.Weight)
		}
		if r.Enabled {
			enabled++
		}
	}
	if enabled == 0 {
		return fmt.Errorf("%w: no enabled rules", ErrInvalid)
	}
	return nil
}

// ValidateContent decodes and validates raw artifact content in one step.
// This is the pre/postcondition check the mutation applier runs.
func ValidateContent(content []byte) error {
	t, err := Decode(content)
	if err != nil {
		return err
	}
	return Validate(t)
}
