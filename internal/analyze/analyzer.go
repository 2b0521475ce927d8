package analyze

import (
	"fmt"
	"sort"

	"rulesmith/internal/evaluate"
	"rulesmith/internal/rules"
)

// Analyzer derives proposals from a score report plus the current rule set.
// Propose has no side effects; it only reads the artifacts.
type Analyzer struct {
	Artifacts        rules.Store
	TaskArtifact     string
	IndustryArtifact string
	Config           Config
}

// New returns an analyzer over the default artifact IDs.
func New(artifacts rules.Store) *Analyzer {
	return &Analyzer{
		Artifacts:        artifacts,
		TaskArtifact:     rules.TaskArtifact,
		IndustryArtifact: rules.IndustryArtifact,
		Config:           DefaultConfig(),
	}
}

// cluster is one failure-signature group.
type cluster struct {
	dimension rules.Dimension
	kind      evaluate.FailureKind
	expected  string
	detected  string
	count     int
	fragments []string
	examples  []string
}

func signatureKey(c evaluate.Case) string {
	return string(c.Dimension) + "|" + string(c.Kind) + "|" + c.Expected + "|" + c.Detected
}

// Propose clusters the report's failures by signature, drops clusters below
// the frequency threshold, and emits one proposal per qualifying cluster,
// ranked by priority weight times estimated improvement.
func (a *Analyzer) Propose(report *evaluate.ScoreReport) ([]Proposal, error) {
	if report == nil {
		return nil, fmt.Errorf("nil score report")
	}

	clusters := make(map[string]*cluster)
	var order []string
	for _, c := range report.Failures {
		key := signatureKey(c)
		cl, ok := clusters[key]
		if !ok {
			cl = &cluster{
				dimension: c.Dimension,
				kind:      c.Kind,
				expected:  c.Expected,
				detected:  c.Detected,
			}
			clusters[key] = cl
			order = append(order, key)
		}
		cl.count++
		cl.fragments = append(cl.fragments, c.Fragment)
		cl.examples = append(cl.examples, c.PostingID)
	}

	taskTable, err := a.loadTable(a.TaskArtifact)
	if err != nil {
		return nil, err
	}
	industryTable, err := a.loadTable(a.IndustryArtifact)
	if err != nil {
		return nil, err
	}

	var proposals []Proposal
	for _, key := range order {
		cl := clusters[key]
		if !a.qualifies(cl, report) {
			continue
		}
		table := taskTable
		artifact := a.TaskArtifact
		if cl.dimension == rules.DimensionIndustry {
			table = industryTable
			artifact = a.IndustryArtifact
		}
		if p, ok := a.buildProposal(cl, table, artifact); ok {
			proposals = append(proposals, p)
		}
	}

	// Rank by priorityWeight * estimatedImprovement; ties fall back to
	// declared priority, then insertion order (stable sort).
	sort.SliceStable(proposals, func(i, j int) bool {
		wi := float64(proposals[i].Priority) * proposals[i].EstimatedImprovement
		wj := float64(proposals[j].Priority) * proposals[j].EstimatedImprovement
		if wi != wj {
			return wi > wj
		}
		return proposals[i].Priority > proposals[j].Priority
	})
	return proposals, nil
}

func (a *Analyzer) loadTable(artifactID string) (*rules.Table, error) {
	content, err := a.Artifacts.Read(artifactID)
	if err != nil {
		return nil, fmt.Errorf("analyze: load %s: %w", artifactID, err)
	}
	t, err := rules.Decode(content)
	if err != nil {
		return nil, fmt.Errorf("analyze: load %s: %w", artifactID, err)
	}
	return t, nil
}

// qualifies applies the frequency threshold: strictly more occurrences than
// MinOccurrences, or more than ClassFraction of the samples carrying the
// cluster's class.
func (a *Analyzer) qualifies(cl *cluster, report *evaluate.ScoreReport) bool {
	if cl.count > a.Config.MinOccurrences {
		return true
	}
	label := cl.expected
	if cl.kind == evaluate.FalsePositive {
		label = cl.detected
	}
	total := report.ClassTotals[evaluate.CategoryKey(cl.dimension, label)]
	return total > 0 && float64(cl.count) > a.Config.ClassFraction*float64(total)
}

func (a *Analyzer) estimate(count int) float64 {
	est := float64(count) * a.Config.PerOccurrenceWeight
	if est > a.Config.ImprovementCap {
		est = a.Config.ImprovementCap
	}
	return est
}

// buildProposal maps a cluster onto a single minimal table edit.
func (a *Analyzer) buildProposal(cl *cluster, table *rules.Table, artifact string) (Proposal, bool) {
	est := a.estimate(cl.count)

	switch cl.kind {
	case evaluate.FalseNegative:
		keywords := ExtractKeywords(cl.fragments, table, a.Config.MaxKeywordsPerProposal)
		if len(keywords) == 0 {
			return Proposal{}, false
		}
		if r := table.FindByLabel(cl.expected); r != nil {
			return Proposal{
				Kind:                 RuleAdjustment,
				Priority:             PriorityHigh,
				EstimatedImprovement: est,
				TargetArtifact:       artifact,
				Patch:                rules.Patch{Op: rules.OpExtendRule, RuleID: r.ID, Keywords: keywords},
				Rationale: fmt.Sprintf("%d %s postings missed label %q (e.g. %s); extend %s with %v",
					cl.count, cl.dimension, cl.expected, firstExamples(cl.examples), r.ID, keywords),
			}, true
		}
		id := newRuleID(table, cl.dimension, cl.expected)
		return Proposal{
			Kind:                 RuleAddition,
			Priority:             PriorityHigh,
			EstimatedImprovement: est,
			TargetArtifact:       artifact,
			Patch: rules.Patch{Op: rules.OpAddRule, Rule: &rules.Rule{
				ID:       id,
				Label:    cl.expected,
				Keywords: keywords,
				Weight:   1.0,
				Enabled:  true,
			}},
			Rationale: fmt.Sprintf("%d %s postings expected unknown label %q (e.g. %s); add rule %s with %v",
				cl.count, cl.dimension, cl.expected, firstExamples(cl.examples), id, keywords),
		}, true

	case evaluate.Misclassified:
		r := table.FindByLabel(cl.detected)
		if r == nil {
			return Proposal{}, false
		}
		return Proposal{
			Kind:                 ThresholdChange,
			Priority:             PriorityMedium,
			EstimatedImprovement: est,
			TargetArtifact:       artifact,
			Patch:                rules.Patch{Op: rules.OpAdjustWeight, RuleID: r.ID, WeightDelta: -0.1},
			Rationale: fmt.Sprintf("%d %s postings labeled %q but expected %q (e.g. %s); demote %s",
				cl.count, cl.dimension, cl.detected, cl.expected, firstExamples(cl.examples), r.ID),
		}, true

	case evaluate.FalsePositive:
		r := table.FindByLabel(cl.detected)
		if r == nil {
			return Proposal{}, false
		}
		return Proposal{
			Kind:                 ThresholdChange,
			Priority:             PriorityLow,
			EstimatedImprovement: est,
			TargetArtifact:       artifact,
			Patch:                rules.Patch{Op: rules.OpAdjustWeight, RuleID: r.ID, WeightDelta: -0.15},
			Rationale: fmt.Sprintf("%d unlabeled %s postings drew %q (e.g. %s); demote %s",
				cl.count, cl.dimension, cl.detected, firstExamples(cl.examples), r.ID),
		}, true
	}
	return Proposal{}, false
}

// newRuleID derives an unused rule ID from the dimension and label.
func newRuleID(table *rules.Table, dim rules.Dimension, label string) string {
	prefix := "task-"
	if dim == rules.DimensionIndustry {
		prefix = "ind-"
	}
	id := prefix + label
	for n := 2; table.FindRule(id) != nil; n++ {
		id = fmt.Sprintf("%s%s-%d", prefix, label, n)
	}
	return id
}

func firstExamples(ids []string) string {
	limit := 2
	if len(ids) < limit {
		limit = len(ids)
	}
	out := ""
	for i := 0; i < limit; i++ {
		if i > 0 {
			out += ", "
		}
		out += ids[i]
	}
	return out
}
