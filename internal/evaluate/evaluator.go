package evaluate

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"rulesmith/internal/classify"
	"rulesmith/internal/corpus"
	"rulesmith/internal/rules"
)

// maxExamplesPerCategory caps PerCategory example lists.
const maxExamplesPerCategory = 3

// fragmentLimit caps the text carried per failure case.
const fragmentLimit = 160

// Evaluator is the scoring contract the orchestrator consumes.
type Evaluator interface {
	// Score compiles the live rule set, classifies a fresh sample of the
	// given size, and returns the resulting report.
	Score(ctx context.Context, sampleSize int) (*ScoreReport, error)
}

// CorpusEvaluator scores the live rule tables against the embedded corpus.
// Successive Score calls draw independent samples (the draw counter advances
// the seed), which is what lets the orchestrator re-score on a smaller
// independent sample.
type CorpusEvaluator struct {
	Artifacts        rules.Store
	TaskArtifact     string
	IndustryArtifact string
	Postings         []corpus.Posting
	Seed             int64
	Parallel         int

	draws int64
}

// New returns an evaluator over the default artifact IDs with bounded
// parallelism.
func New(artifacts rules.Store, postings []corpus.Posting, seed int64) *CorpusEvaluator {
	return &CorpusEvaluator{
		Artifacts:        artifacts,
		TaskArtifact:     rules.TaskArtifact,
		IndustryArtifact: rules.IndustryArtifact,
		Postings:         postings,
		Seed:             seed,
		Parallel:         4,
	}
}

func (e *CorpusEvaluator) loadTable(artifactID string) (*rules.Table, error) {
	content, err := e.Artifacts.Read(artifactID)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", artifactID, err)
	}
	t, err := rules.Decode(content)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", artifactID, err)
	}
	if err := rules.Validate(t); err != nil {
		return nil, fmt.Errorf("load %s: %w", artifactID, err)
	}
	return t, nil
}

// Score implements Evaluator.
func (e *CorpusEvaluator) Score(ctx context.Context, sampleSize int) (*ScoreReport, error) {
	if sampleSize <= 0 {
		return nil, fmt.Errorf("sample size %d is not positive", sampleSize)
	}
	if len(e.Postings) == 0 {
		return nil, fmt.Errorf("corpus is empty")
	}

	task, err := e.loadTable(e.TaskArtifact)
	if err != nil {
		return nil, err
	}
	industry, err := e.loadTable(e.IndustryArtifact)
	if err != nil {
		return nil, err
	}
	classifier, err := classify.Compile(task, industry)
	if err != nil {
		return nil, fmt.Errorf("compile rule set: %w", err)
	}

	e.draws++
	sample := corpus.Sample(e.Postings, sampleSize, e.Seed+e.draws)

	results := make([]classify.Result, len(sample))
	parallel := e.Parallel
	if parallel < 1 {
		parallel = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i := range sample {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = classifier.Classify(sample[i].Title + "\n" + sample[i].Text)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("score sample: %w", err)
	}

	return buildReport(sample, results), nil
}

func buildReport(sample []corpus.Posting, results []classify.Result) *ScoreReport {
	report := &ScoreReport{
		SampleCount: len(sample),
		PerCategory: make(map[string]CategoryStats),
		ClassTotals: make(map[string]int),
	}

	taskCorrect, industryCorrect := 0, 0
	for i, p := range sample {
		res := results[i]
		if p.Task != "" {
			report.ClassTotals[CategoryKey(rules.DimensionTask, p.Task)]++
		}
		if p.Industry != "" {
			report.ClassTotals[CategoryKey(rules.DimensionIndustry, p.Industry)]++
		}
		if c, ok := checkDimension(p, rules.DimensionTask, p.Task, res.Task); ok {
			taskCorrect++
		} else {
			report.recordFailure(c)
		}
		if c, ok := checkDimension(p, rules.DimensionIndustry, p.Industry, res.Industry); ok {
			industryCorrect++
		} else {
			report.recordFailure(c)
		}
	}

	n := float64(len(sample))
	report.TaskAccuracy = float64(taskCorrect) / n
	report.IndustryAccuracy = float64(industryCorrect) / n
	report.OverallScore = Overall(report.TaskAccuracy, report.IndustryAccuracy)
	return report
}

// checkDimension compares expected vs detected for one dimension. Returns
// the failure case and ok=false on mismatch.
func checkDimension(p corpus.Posting, dim rules.Dimension, expected string, m classify.Match) (Case, bool) {
	if expected == m.Label {
		return Case{}, true
	}
	c := Case{
		PostingID: p.ID,
		Dimension: dim,
		Expected:  expected,
		Detected:  m.Label,
		Fragment:  fragment(p, m),
	}
	switch {
	case expected == "":
		c.Kind = FalsePositive
	case m.Label == "":
		c.Kind = FalseNegative
	default:
		c.Kind = Misclassified
	}
	return c, false
}

// fragment picks the text to attach: the matched evidence when a rule fired,
// otherwise the posting's leading text, truncated.
func fragment(p corpus.Posting, m classify.Match) string {
	if m.Evidence != "" {
		return m.Evidence
	}
	text := p.Title + ". " + p.Text
	if len(text) > fragmentLimit {
		text = text[:fragmentLimit]
	}
	return text
}

func (r *ScoreReport) recordFailure(c Case) {
	r.Failures = append(r.Failures, c)
	label := c.Expected
	if c.Kind == FalsePositive {
		label = c.Detected
	}
	key := CategoryKey(c.Dimension, label)
	stats := r.PerCategory[key]
	stats.ErrorCount++
	if len(stats.Examples) < maxExamplesPerCategory {
		stats.Examples = append(stats.Examples, c.PostingID)
	}
	r.PerCategory[key] = stats
}
