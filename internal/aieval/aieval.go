// Package aieval obtains a semantic, goal-aware judgement of a manifest from
// an LLM backend, informed by the static validation findings. Every failure
// path returns a well-formed AIEvaluationResult; no error crosses this
// package's boundary during evaluation.
package aieval

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"kubegrade/internal/schema"
)

const (
	// requestTimeout bounds the single backend call.
	requestTimeout = 60 * time.Second
	// temperature is kept low to favor deterministic judging.
	temperature = 0.3
	// maxTokens leaves room for a full rewritten manifest in the reply.
	maxTokens = 4096
	// excerptLen is how much of an unparseable reply is retained for debugging.
	excerptLen = 200
	// summaryIssueLimit caps the issues quoted per tool in the static summary.
	summaryIssueLimit = 3
)

// Provider is the interface for LLM backends.
type Provider interface {
	Complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error)
}

// NewProvider is the factory for creating LLM providers. It is a package-level
// variable so tests can replace it with a mock without modifying the call site.
// Tests must restore the original value; use t.Cleanup to do so safely.
var NewProvider func(providerName, model string) (Provider, error) = defaultNewProvider

// Evaluator issues one evaluation request per Evaluate call against a fixed
// backend and model.
type Evaluator struct {
	provider Provider
	model    string
	log      zerolog.Logger
}

// New creates an Evaluator for the named backend ("anthropic", "openai", or
// "google") and model. Construction fails if the backend is unknown or its
// API key is not configured; evaluation itself never fails.
func New(providerName, model string, log zerolog.Logger) (*Evaluator, error) {
	provider, err := NewProvider(providerName, model)
	if err != nil {
		return nil, fmt.Errorf("aieval: create provider: %w", err)
	}
	return &Evaluator{provider: provider, model: model, log: log}, nil
}

// Model returns the backend model identifier this evaluator reports in results.
func (e *Evaluator) Model() string { return e.model }

// Evaluate builds the evaluation prompt, issues exactly one request, and
// parses the reply. Transport failures degrade to a zero-score result; an
// unparseable reply degrades to a mid-score result carrying an excerpt of the
// raw text.
func (e *Evaluator) Evaluate(
	ctx context.Context,
	manifestYAML, question, goal string,
	staticResults []schema.StaticValidationResult,
) *schema.AIEvaluationResult {
	prompt := buildPrompt(manifestYAML, question, goal, SummarizeStatic(staticResults))

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	raw, err := e.provider.Complete(ctx, prompt, maxTokens, temperature)
	if err != nil {
		e.log.Warn().Err(err).Str("model", e.model).Msg("ai evaluation call failed")
		return &schema.AIEvaluationResult{
			Model:       e.model,
			Score:       0,
			Explanation: fmt.Sprintf("AI evaluation failed: %v", err),
			Issues:      []string{"AI evaluation unavailable"},
			Suggestions: []string{"Check AI service configuration"},
			Confidence:  0.0,
		}
	}

	return e.parseReply(raw)
}

// SummarizeStatic renders static results as a short text block for the
// prompt: one line per tool with pass/fail, score, and the first few issues.
func SummarizeStatic(results []schema.StaticValidationResult) string {
	var lines []string
	for _, r := range results {
		if r.Passed {
			lines = append(lines, fmt.Sprintf("%s: PASSED (score: %d)", r.Tool, r.Score))
			continue
		}
		issues := r.Issues
		if len(issues) > summaryIssueLimit {
			issues = issues[:summaryIssueLimit]
		}
		lines = append(lines, fmt.Sprintf("%s: FAILED (score: %d) - %s",
			r.Tool, r.Score, strings.Join(issues, ", ")))
	}
	return strings.Join(lines, "\n")
}

// buildPrompt assembles the single evaluation prompt.
func buildPrompt(manifestYAML, question, goal, staticSummary string) string {
	var sb strings.Builder

	sb.WriteString("Evaluate this Kubernetes manifest for the given question and goal.\n")
	sb.WriteString("Consider semantic correctness, best practices, and how well it achieves the objective.\n\n")

	fmt.Fprintf(&sb, "QUESTION: %s\n", question)
	fmt.Fprintf(&sb, "GOAL: %s\n\n", goal)

	sb.WriteString("MANIFEST:\n```yaml\n")
	sb.WriteString(manifestYAML)
	sb.WriteString("\n```\n\n")

	sb.WriteString("STATIC VALIDATION RESULTS:\n")
	sb.WriteString(staticSummary)
	sb.WriteString("\n\n")

	sb.WriteString(`Please provide a comprehensive evaluation considering:
1. Semantic correctness relative to the goal
2. Best practices adherence
3. Security considerations
4. Scalability and maintainability
5. Handling of variations/aliases
6. Overall effectiveness

Respond in JSON format:
{
    "score": 0-100,
    "explanation": "Detailed reasoning for the score",
    "issues": ["list", "of", "problems"],
    "suggestions": ["list", "of", "improvements"],
    "rewritten_manifest": "optional improved YAML or null",
    "confidence": 0.0-1.0
}
`)

	return sb.String()
}

// reply mirrors the JSON object the backend is instructed to produce.
// Score arrives as a float because models occasionally emit "87.5".
type reply struct {
	Score             float64  `json:"score"`
	Explanation       string   `json:"explanation"`
	Issues            []string `json:"issues"`
	Suggestions       []string `json:"suggestions"`
	RewrittenManifest string   `json:"rewritten_manifest"`
	Confidence        *float64 `json:"confidence"`
}

// parseReply converts the raw backend text into a result, clamping the score
// and confidence into range and defaulting missing fields. An unparseable
// reply yields the degraded mid-score result.
func (e *Evaluator) parseReply(raw string) *schema.AIEvaluationResult {
	stripped := stripMarkdownFences(raw)

	var rep reply
	if err := json.Unmarshal([]byte(stripped), &rep); err != nil {
		e.log.Warn().Err(err).Msg("ai reply did not parse as JSON")
		return &schema.AIEvaluationResult{
			Model: e.model,
			Score: 50,
			Explanation: fmt.Sprintf("Could not parse AI response: %v. Raw response: %s",
				err, excerpt(raw)),
			Issues:      []string{"AI response parsing failed"},
			Suggestions: []string{"Try with a different AI model or prompt"},
			Confidence:  0.2,
		}
	}

	confidence := 0.5
	if rep.Confidence != nil {
		confidence = *rep.Confidence
	}
	explanation := rep.Explanation
	if explanation == "" {
		explanation = "No explanation provided"
	}
	issues := rep.Issues
	if issues == nil {
		issues = []string{}
	}
	suggestions := rep.Suggestions
	if suggestions == nil {
		suggestions = []string{}
	}

	return &schema.AIEvaluationResult{
		Model:             e.model,
		Score:             schema.ClampScore(int(rep.Score)),
		Explanation:       explanation,
		Issues:            issues,
		Suggestions:       suggestions,
		RewrittenManifest: rep.RewrittenManifest,
		Confidence:        schema.ClampConfidence(confidence),
	}
}

// excerpt truncates s for inclusion in a degraded explanation.
func excerpt(s string) string {
	if len(s) <= excerptLen {
		return s
	}
	return s[:excerptLen]
}

// fenceRe matches a markdown code fence block (``` or ~~~) with an optional
// language tag and captures the content between the fences. The content group
// uses `.*?` (not `.+?`) to allow empty bodies inside fences.
var fenceRe = regexp.MustCompile("(?s)^(?:`{3}|~{3})[^\\n]*\\n(.*?)(?:`{3}|~{3})\\s*$")

// openFenceRe matches only an opening fence line (no closing fence required).
// Used to strip orphaned opening fences from truncated responses.
var openFenceRe = regexp.MustCompile("^(?:`{3}|~{3})[^\\n]*\\n")

// stripMarkdownFences removes leading/trailing markdown code fences that LLMs
// sometimes wrap around JSON output (e.g., "```json\n...\n```"). If only an
// opening fence is present (the response was truncated before the closing
// fence), the opening line is stripped so the content can still be parsed.
func stripMarkdownFences(s string) string {
	s = strings.TrimSpace(s)
	if m := fenceRe.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	if loc := openFenceRe.FindStringIndex(s); loc != nil {
		return strings.TrimSpace(s[loc[1]:])
	}
	return s
}
