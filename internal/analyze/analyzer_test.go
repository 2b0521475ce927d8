package analyze

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"rulesmith/internal/evaluate"
	"rulesmith/internal/rules"
)

func seededStore(t *testing.T) *rules.MemStore {
	t.Helper()
	st := rules.NewMemStore()
	if _, err := rules.Seed(st); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	return st
}

func failureCases(n int, c evaluate.Case) []evaluate.Case {
	out := make([]evaluate.Case, n)
	for i := range out {
		out[i] = c
	}
	return out
}

func TestProposeFalseNegativeExtendsExistingRule(t *testing.T) {
	a := New(seededStore(t))
	report := &evaluate.ScoreReport{
		SampleCount: 10,
		ClassTotals: map[string]int{"task/data-entry": 4},
		Failures: failureCases(3, evaluate.Case{
			PostingID: "p1",
			Dimension: rules.DimensionTask,
			Kind:      evaluate.FalseNegative,
			Expected:  "data-entry",
			Fragment:  "Transcribe dictations into structured patient notes",
		}),
	}
	proposals, err := a.Propose(report)
	if err != nil {
		t.Fatalf("Propose: %v", err)
	}
	if len(proposals) != 1 {
		t.Fatalf("got %d proposals, want 1", len(proposals))
	}
	p := proposals[0]
	if p.Kind != RuleAdjustment {
		t.Errorf("Kind = %s, want rule-adjustment", p.Kind)
	}
	if p.Priority != PriorityHigh {
		t.Errorf("Priority = %s, want high", p.Priority)
	}
	if p.TargetArtifact != rules.TaskArtifact {
		t.Errorf("TargetArtifact = %s, want %s", p.TargetArtifact, rules.TaskArtifact)
	}
	if p.Patch.Op != rules.OpExtendRule || p.Patch.RuleID != "task-data-entry" {
		t.Errorf("Patch = %+v, want extend-rule on task-data-entry", p.Patch)
	}
	if len(p.Patch.Keywords) == 0 {
		t.Error("no keywords extracted")
	}
	if got, want := p.EstimatedImprovement, 0.015; math.Abs(got-want) > 1e-9 {
		t.Errorf("EstimatedImprovement = %f, want %f", got, want)
	}
}

func TestProposeFalseNegativeAddsRuleForUnknownLabel(t *testing.T) {
	a := New(seededStore(t))
	report := &evaluate.ScoreReport{
		SampleCount: 10,
		ClassTotals: map[string]int{"industry/agriculture": 3},
		Failures: failureCases(3, evaluate.Case{
			PostingID: "p9",
			Dimension: rules.DimensionIndustry,
			Kind:      evaluate.FalseNegative,
			Expected:  "agriculture",
			Fragment:  "Seasonal harvest coordination across farms and orchards",
		}),
	}
	proposals, err := a.Propose(report)
	if err != nil {
		t.Fatalf("Propose: %v", err)
	}
	if len(proposals) != 1 {
		t.Fatalf("got %d proposals, want 1", len(proposals))
	}
	p := proposals[0]
	if p.Kind != RuleAddition {
		t.Errorf("Kind = %s, want rule-addition", p.Kind)
	}
	if p.Patch.Op != rules.OpAddRule || p.Patch.Rule == nil {
		t.Fatalf("Patch = %+v, want add-rule", p.Patch)
	}
	if p.Patch.Rule.ID != "ind-agriculture" || p.Patch.Rule.Label != "agriculture" {
		t.Errorf("new rule = %+v", p.Patch.Rule)
	}
	if !p.Patch.Rule.Enabled {
		t.Error("new rule is disabled")
	}
}

func TestProposeDemotesFalsePositiveAndMisclassification(t *testing.T) {
	a := New(seededStore(t))
	fp := evaluate.Case{
		PostingID: "p2", Dimension: rules.DimensionIndustry,
		Kind: evaluate.FalsePositive, Detected: "retail", Fragment: "store",
	}
	mis := evaluate.Case{
		PostingID: "p3", Dimension: rules.DimensionTask,
		Kind: evaluate.Misclassified, Expected: "reporting", Detected: "data-entry", Fragment: "spreadsheet",
	}
	report := &evaluate.ScoreReport{
		SampleCount: 20,
		ClassTotals: map[string]int{"industry/retail": 5, "task/reporting": 5},
		Failures:    append(failureCases(3, fp), failureCases(3, mis)...),
	}
	proposals, err := a.Propose(report)
	if err != nil {
		t.Fatalf("Propose: %v", err)
	}
	if len(proposals) != 2 {
		t.Fatalf("got %d proposals, want 2", len(proposals))
	}
	// Equal estimates: medium-priority misclassification outranks low-priority FP.
	if proposals[0].Kind != ThresholdChange || proposals[0].Priority != PriorityMedium {
		t.Errorf("proposals[0] = %+v, want medium threshold-change", proposals[0])
	}
	if proposals[0].Patch.RuleID != "task-data-entry" {
		t.Errorf("proposals[0] targets %s, want task-data-entry", proposals[0].Patch.RuleID)
	}
	if proposals[1].Priority != PriorityLow || proposals[1].Patch.RuleID != "ind-retail" {
		t.Errorf("proposals[1] = %+v, want low demotion of ind-retail", proposals[1])
	}
	for _, p := range proposals {
		if p.Patch.WeightDelta >= 0 {
			t.Errorf("WeightDelta = %f, want negative", p.Patch.WeightDelta)
		}
	}
}

func TestProposeThresholds(t *testing.T) {
	a := New(seededStore(t))

	// Two occurrences, large class: below both thresholds — no proposal.
	report := &evaluate.ScoreReport{
		SampleCount: 50,
		ClassTotals: map[string]int{"task/reporting": 30},
		Failures: failureCases(2, evaluate.Case{
			PostingID: "p1", Dimension: rules.DimensionTask,
			Kind: evaluate.FalseNegative, Expected: "reporting",
			Fragment: "Quarterly figures compilation",
		}),
	}
	proposals, err := a.Propose(report)
	if err != nil {
		t.Fatalf("Propose: %v", err)
	}
	if len(proposals) != 0 {
		t.Fatalf("got %d proposals, want 0 (below threshold)", len(proposals))
	}

	// Same two occurrences, tiny class: fraction test passes.
	report.ClassTotals["task/reporting"] = 4
	proposals, err = a.Propose(report)
	if err != nil {
		t.Fatalf("Propose: %v", err)
	}
	if len(proposals) != 1 {
		t.Fatalf("got %d proposals, want 1 (fraction threshold)", len(proposals))
	}
}

func TestProposeRankingScenarioD(t *testing.T) {
	// Five clusters with distinct ranks; callers take the top N.
	a := New(seededStore(t))
	mk := func(n int, kind evaluate.FailureKind, expected, detected, frag string) []evaluate.Case {
		return failureCases(n, evaluate.Case{
			PostingID: "p", Dimension: rules.DimensionTask,
			Kind: kind, Expected: expected, Detected: detected, Fragment: frag,
		})
	}
	var failures []evaluate.Case
	failures = append(failures, mk(3, evaluate.FalseNegative, "scheduling", "", "Rebook dispatch slots and rosters")...)
	failures = append(failures, mk(5, evaluate.FalseNegative, "reporting", "", "Compile throughput figures nightly")...)
	failures = append(failures, mk(4, evaluate.Misclassified, "reporting", "data-entry", "spreadsheet")...)
	failures = append(failures, mk(6, evaluate.FalsePositive, "", "invoice-processing", "billing")...)
	failures = append(failures, mk(4, evaluate.FalseNegative, "customer-support", "", "Answer member questions and complaints")...)

	report := &evaluate.ScoreReport{
		SampleCount: 40,
		ClassTotals: map[string]int{},
		Failures:    failures,
	}
	proposals, err := a.Propose(report)
	if err != nil {
		t.Fatalf("Propose: %v", err)
	}
	if len(proposals) != 5 {
		t.Fatalf("got %d proposals, want 5", len(proposals))
	}
	// rank = priority * min(0.05, count*0.005):
	// reporting FN: 3*0.025=0.075; support FN: 3*0.020=0.060;
	// scheduling FN: 3*0.015=0.045; mis: 2*0.020=0.040; FP: 1*0.030=0.030.
	var got []Kind
	for _, p := range proposals[:3] {
		got = append(got, p.Kind)
	}
	want := []Kind{RuleAdjustment, RuleAdjustment, RuleAdjustment}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("top-3 kinds mismatch (-want +got):\n%s", diff)
	}
	if proposals[0].Patch.RuleID != "task-reporting" {
		t.Errorf("proposals[0] targets %s, want task-reporting", proposals[0].Patch.RuleID)
	}
	if proposals[3].Kind != ThresholdChange || proposals[3].Priority != PriorityMedium {
		t.Errorf("proposals[3] = %+v, want medium threshold-change", proposals[3])
	}
	if proposals[4].Priority != PriorityLow {
		t.Errorf("proposals[4].Priority = %s, want low", proposals[4].Priority)
	}
}

func TestTokenizeFiltersNoise(t *testing.T) {
	got := Tokenize("The team will keep typing;速 rapid-entry of 123 forms!")
	want := []string{"typing", "rapid", "entry", "forms"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Tokenize mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractKeywordsSkipsKnown(t *testing.T) {
	table := rules.DefaultTaskTable()
	frags := []string{
		"transcribe dictations into notes",
		"transcribe forms with spreadsheet tools",
	}
	got := ExtractKeywords(frags, table, 2)
	// "spreadsheet" is already a table keyword and must not reappear;
	// "transcribe" appears in both fragments and ranks first.
	if len(got) != 2 || got[0] != "transcribe" {
		t.Fatalf("ExtractKeywords = %v, want [transcribe ...]", got)
	}
	for _, kw := range got {
		if kw == "spreadsheet" {
			t.Error("known keyword re-extracted")
		}
	}
}
