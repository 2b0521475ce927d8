package rules

import "fmt"

// PatchOp identifies the edit a Patch performs on a table.
type PatchOp string

const (
	// OpAddRule inserts a new rule at the end of the table.
	OpAddRule PatchOp = "add-rule"
	// OpExtendRule appends keywords to an existing rule.
	OpExtendRule PatchOp = "extend-rule"
	// OpAdjustWeight shifts an existing rule's weight by a delta.
	OpAdjustWeight PatchOp = "adjust-weight"
)

// Patch is a structured edit against one rule table. Mutations are always
// data edits; raw text diffs never reach the artifact store.
type Patch struct {
	Op          PatchOp  `json:"op"`
	Rule        *Rule    `json:"rule,omitempty"`         // OpAddRule
	RuleID      string   `json:"rule_id,omitempty"`      // OpExtendRule, OpAdjustWeight
	Keywords    []string `json:"keywords,omitempty"`     // OpExtendRule
	WeightDelta float64  `json:"weight_delta,omitempty"` // OpAdjustWeight
}

// Apply edits the table in place. It fails when the edit target is missing
// or the op is unknown; it does not re-validate the result, that is the
// applier's postcondition check.
func (p Patch) Apply(t *Table) error {
	switch p.Op {
	case OpAddRule:
		if p.Rule == nil {
			return fmt.Errorf("add-rule patch carries no rule")
		}
		if t.FindRule(p.Rule.ID) != nil {
			return fmt.Errorf("rule %q already exists", p.Rule.ID)
		}
		t.Rules = append(t.Rules, *p.Rule)
		return nil

	case OpExtendRule:
		r := t.FindRule(p.RuleID)
		if r == nil {
			return fmt.Errorf("rule %q not found", p.RuleID)
		}
		existing := make(map[string]bool, len(r.Keywords))
		for _, kw := range r.Keywords {
			existing[kw] = true
		}
		for _, kw := range p.Keywords {
			if !existing[kw] {
				r.Keywords = append(r.Keywords, kw)
				existing[kw] = true
			}
		}
		return nil

	case OpAdjustWeight:
		r := t.FindRule(p.RuleID)
		if r == nil {
			return fmt.Errorf("rule %q not found", p.RuleID)
		}
		r.Weight += p.WeightDelta
		return nil

	default:
		return fmt.Errorf("unknown patch op %q", p.Op)
	}
}

// Describe renders a short human-readable form for logs and reports.
func (p Patch) Describe() string {
	switch p.Op {
	case OpAddRule:
		if p.Rule != nil {
			return fmt.Sprintf("add rule %s (label=%s, %d keywords)", p.Rule.ID, p.Rule.Label, len(p.Rule.Keywords))
		}
		return "add rule (empty)"
	case OpExtendRule:
		return fmt.Sprintf("extend rule %s with %d keywords", p.RuleID, len(p.Keywords))
	case OpAdjustWeight:
		return fmt.Sprintf("adjust rule %s weight by %+.2f", p.RuleID, p.WeightDelta)
	default:
		return string(p.Op)
	}
}
