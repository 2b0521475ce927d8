// Package classify implements the heuristic job-posting classifier that the
// evaluator scores. It compiles the live rule tables into keyword and regexp
// matchers and picks the best-scoring label per dimension. The matching here
// is intentionally plain; the tuning pipeline, not this package, is where
// quality comes from.
package classify

import (
	"fmt"
	"regexp"
	"strings"

	"rulesmith/internal/rules"
)

// Match is the outcome for one dimension: the winning label, its score, the
// rule that produced it, and the text fragment that carried the decision.
type Match struct {
	Label    string
	Score    float64
	RuleID   string
	Evidence string
}

// Result is the full classification of one posting.
type Result struct {
	Task     Match
	Industry Match
}

type compiledRule struct {
	rule     rules.Rule
	re       *regexp.Regexp // nil when the rule is keyword-only
	keywords []string       // lowercased
}

// Classifier holds compiled matchers for both dimensions.
type Classifier struct {
	task     []compiledRule
	industry []compiledRule
}

// Compile builds a classifier from the two live tables. Tables must already
// have passed rules.Validate; Compile still refuses a broken pattern rather
// than panic at match time.
func Compile(task, industry *rules.Table) (*Classifier, error) {
	ct, err := compileTable(task)
	if err != nil {
		return nil, err
	}
	ci, err := compileTable(industry)
	if err != nil {
		return nil, err
	}
	return &Classifier{task: ct, industry: ci}, nil
}

func compileTable(t *rules.Table) ([]compiledRule, error) {
	var out []compiledRule
	for _, r := range t.Rules {
		if !r.Enabled {
			continue
		}
		cr := compiledRule{rule: r}
		if r.Pattern != "" {
			re, err := regexp.Compile(r.Pattern)
			if err != nil {
				return nil, fmt.Errorf("compile rule %s: %w", r.ID, err)
			}
			cr.re = re
		}
		for _, kw := range r.Keywords {
			cr.keywords = append(cr.keywords, strings.ToLower(kw))
		}
		out = append(out, cr)
	}
	return out, nil
}

// Classify scores the posting text against both dimensions. An empty Label
// means no rule fired for that dimension.
func (c *Classifier) Classify(text string) Result {
	norm := strings.ToLower(text)
	return Result{
		Task:     bestMatch(c.task, text, norm),
		Industry: bestMatch(c.industry, text, norm),
	}
}

// bestMatch accumulates scores per label; each keyword occurrence counts
// rule weight once, a pattern match counts double weight. Ties resolve to
// the label reached first in table order, keeping results deterministic.
func bestMatch(compiled []compiledRule, text, norm string) Match {
	best := Match{}
	scores := make(map[string]float64)
	for _, cr := range compiled {
		score := 0.0
		evidence := ""
		for _, kw := range cr.keywords {
			if strings.Contains(norm, kw) {
				score += cr.rule.Weight
				if evidence == "" {
					evidence = kw
				}
			}
		}
		if cr.re != nil {
			if loc := cr.re.FindStringIndex(text); loc != nil {
				score += 2 * cr.rule.Weight
				if evidence == "" {
					evidence = text[loc[0]:loc[1]]
				}
			}
		}
		if score == 0 {
			continue
		}
		scores[cr.rule.Label] += score
		if scores[cr.rule.Label] > best.Score {
			best = Match{
				Label:    cr.rule.Label,
				Score:    scores[cr.rule.Label],
				RuleID:   cr.rule.ID,
				Evidence: evidence,
			}
		}
	}
	return best
}
