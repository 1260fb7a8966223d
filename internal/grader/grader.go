// Package grader sequences the grading pipeline: syntax gate, normalization,
// static validation, AI evaluation, aggregation, and report synthesis. A
// GradingResult is always returned; there is no "grading failed" outcome
// distinct from a low-scoring, issue-annotated result.
package grader

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"

	"kubegrade/internal/manifest"
	"kubegrade/internal/schema"
	"kubegrade/internal/statictool"
)

// Hybrid weighting between the static mean and the AI score. Empirically
// chosen; tunable, not load-bearing.
const (
	staticWeight = 0.4
	aiWeight     = 0.6
)

// maxRecommendations caps the combined recommendation list.
const maxRecommendations = 5

// Per-source recommendation quotas.
const (
	staticIssuesPerTool = 2
	aiSuggestionLimit   = 3
)

// DefaultTools is the ordered tool set used when the caller supplies none.
var DefaultTools = []string{"kubeconform", "kube-score", "kube-linter"}

// ToolRunner executes static tools against a manifest, returning one result
// per requested tool in request order. *statictool.Runner implements it.
type ToolRunner interface {
	Run(ctx context.Context, manifestYAML string, toolNames []string) []schema.StaticValidationResult
}

// Evaluator obtains the semantic judgement. *aieval.Evaluator implements it.
type Evaluator interface {
	Evaluate(ctx context.Context, manifestYAML, question, goal string,
		staticResults []schema.StaticValidationResult) *schema.AIEvaluationResult
}

// Grader grades manifests under a fixed mode, tool runner, and optional
// evaluator. Each Grade call is independent; a Grader holds no per-call state.
type Grader struct {
	mode      schema.Mode
	runner    ToolRunner
	evaluator Evaluator // nil silently skips AI evaluation
	log       zerolog.Logger
}

// Option configures a Grader.
type Option func(*Grader)

// WithMode sets the grading mode. The default is hybrid.
func WithMode(mode schema.Mode) Option {
	return func(g *Grader) { g.mode = mode }
}

// WithRunner replaces the static tool runner.
func WithRunner(r ToolRunner) Option {
	return func(g *Grader) { g.runner = r }
}

// WithEvaluator attaches an AI evaluator. Without one, AI evaluation is
// skipped and the mode degrades to static-only scoring.
func WithEvaluator(e Evaluator) Option {
	return func(g *Grader) { g.evaluator = e }
}

// WithLogger attaches a logger for pipeline progress events.
func WithLogger(log zerolog.Logger) Option {
	return func(g *Grader) { g.log = log }
}

// New creates a Grader. Defaults: hybrid mode, a fresh statictool.Runner, no
// evaluator, no logging.
func New(opts ...Option) *Grader {
	g := &Grader{
		mode:   schema.ModeHybrid,
		runner: statictool.NewRunner(),
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Grade grades yamlContent against the question and goal, invoking the
// requested static tools in order. A nil staticTools selects DefaultTools.
// The returned result is freshly constructed and owned by the caller.
func (g *Grader) Grade(ctx context.Context, yamlContent, question, goal string, staticTools []string) *schema.GradingResult {
	if staticTools == nil {
		staticTools = DefaultTools
	}

	// Syntax gate: a parse failure short-circuits the whole pipeline.
	if ok, syntaxErr := manifest.ValidateSyntax(yamlContent); !ok {
		g.log.Debug().Str("error", syntaxErr).Msg("syntax gate failed")
		return &schema.GradingResult{
			OverallScore:    0,
			StaticResults:   []schema.StaticValidationResult{},
			AIResult:        nil,
			FinalGrade:      schema.GradeF,
			Summary:         fmt.Sprintf("YAML syntax error: %s", syntaxErr),
			Recommendations: []string{"Fix YAML syntax errors before proceeding"},
		}
	}

	normalized := manifest.Normalize(yamlContent)

	staticResults := []schema.StaticValidationResult{}
	if g.mode.IncludesStatic() {
		staticResults = g.runner.Run(ctx, normalized, staticTools)
	}

	var aiResult *schema.AIEvaluationResult
	if g.mode.IncludesAI() && g.evaluator != nil {
		aiResult = g.evaluator.Evaluate(ctx, normalized, question, goal, staticResults)
	}

	overall := g.overallScore(staticResults, aiResult)

	return &schema.GradingResult{
		OverallScore:    overall,
		StaticResults:   staticResults,
		AIResult:        aiResult,
		FinalGrade:      schema.GradeFor(overall),
		Summary:         buildSummary(staticResults, aiResult, overall),
		Recommendations: buildRecommendations(staticResults, aiResult),
	}
}

// overallScore aggregates the two signals under the grading mode. With no
// static results the static mean is zero; in hybrid mode a missing AI result
// falls back to the static mean.
func (g *Grader) overallScore(staticResults []schema.StaticValidationResult, aiResult *schema.AIEvaluationResult) int {
	switch g.mode {
	case schema.ModeStaticOnly:
		return staticMean(staticResults)
	case schema.ModeAIOnly:
		if aiResult == nil {
			return 0
		}
		return aiResult.Score
	default:
		mean := staticMean(staticResults)
		aiScore := mean
		if aiResult != nil {
			aiScore = aiResult.Score
		}
		return int(math.Round(staticWeight*float64(mean) + aiWeight*float64(aiScore)))
	}
}

// staticMean is the arithmetic mean of the static scores, zero when empty.
func staticMean(results []schema.StaticValidationResult) int {
	if len(results) == 0 {
		return 0
	}
	sum := 0
	for _, r := range results {
		sum += r.Score
	}
	return sum / len(results)
}

// buildSummary joins the score clause, the static pass/fail clauses, and the
// AI clause with period-space separators.
func buildSummary(staticResults []schema.StaticValidationResult, aiResult *schema.AIEvaluationResult, overall int) string {
	parts := []string{fmt.Sprintf("Overall Score: %d/100", overall)}

	if len(staticResults) > 0 {
		var passed, failed []string
		for _, r := range staticResults {
			if r.Passed {
				passed = append(passed, r.Tool)
			} else {
				failed = append(failed, r.Tool)
			}
		}
		if len(passed) > 0 {
			parts = append(parts, "Static validation passed: "+strings.Join(passed, ", "))
		}
		if len(failed) > 0 {
			parts = append(parts, "Static validation failed: "+strings.Join(failed, ", "))
		}
	}

	if aiResult != nil {
		parts = append(parts, fmt.Sprintf("AI evaluation: %d/100 (confidence: %s)",
			aiResult.Score, schema.ConfidenceLevel(aiResult.Confidence)))
	}

	return strings.Join(parts, ". ")
}

// buildRecommendations collects up to two issues per static tool followed by
// up to three AI suggestions, each tagged with its source, then truncates the
// combined list to five entries.
func buildRecommendations(staticResults []schema.StaticValidationResult, aiResult *schema.AIEvaluationResult) []string {
	var recs []string

	for _, r := range staticResults {
		issues := r.Issues
		if len(issues) > staticIssuesPerTool {
			issues = issues[:staticIssuesPerTool]
		}
		for _, issue := range issues {
			recs = append(recs, fmt.Sprintf("[%s] %s", r.Tool, issue))
		}
	}

	if aiResult != nil {
		suggestions := aiResult.Suggestions
		if len(suggestions) > aiSuggestionLimit {
			suggestions = suggestions[:aiSuggestionLimit]
		}
		for _, s := range suggestions {
			recs = append(recs, "[AI] "+s)
		}
	}

	if len(recs) > maxRecommendations {
		recs = recs[:maxRecommendations]
	}
	if recs == nil {
		recs = []string{}
	}
	return recs
}
