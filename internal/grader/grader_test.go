package grader

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"kubegrade/internal/schema"
)

const podYAML = `apiVersion: v1
kind: Pod
metadata:
  name: nginx-pod
spec:
  containers:
  - name: nginx
    image: nginx:1.21
    ports:
    - containerPort: 80`

// stubRunner returns canned results matching the requested tool order.
type stubRunner struct {
	byTool map[string]schema.StaticValidationResult
	calls  int
}

func (s *stubRunner) Run(_ context.Context, _ string, toolNames []string) []schema.StaticValidationResult {
	s.calls++
	results := make([]schema.StaticValidationResult, len(toolNames))
	for i, name := range toolNames {
		if r, ok := s.byTool[name]; ok {
			results[i] = r
			continue
		}
		results[i] = schema.StaticValidationResult{
			Tool:     name,
			Passed:   true,
			Score:    100,
			Issues:   []string{},
			Warnings: []string{},
		}
	}
	return results
}

// stubEvaluator returns a fixed AI result.
type stubEvaluator struct {
	result *schema.AIEvaluationResult
	calls  int
}

func (s *stubEvaluator) Evaluate(_ context.Context, _, _, _ string, _ []schema.StaticValidationResult) *schema.AIEvaluationResult {
	s.calls++
	return s.result
}

func aiResult(score int, confidence float64, suggestions ...string) *schema.AIEvaluationResult {
	return &schema.AIEvaluationResult{
		Model:       "test-model",
		Score:       score,
		Explanation: "because",
		Issues:      []string{},
		Suggestions: suggestions,
		Confidence:  confidence,
	}
}

func TestGrade_SyntaxErrorShortCircuits(t *testing.T) {
	runner := &stubRunner{}
	eval := &stubEvaluator{result: aiResult(90, 0.9)}
	g := New(WithRunner(runner), WithEvaluator(eval))

	res := g.Grade(context.Background(), "key: [unclosed", "q", "g", nil)

	if res.OverallScore != 0 || res.FinalGrade != schema.GradeF {
		t.Errorf("score=%d grade=%s, want 0/F", res.OverallScore, res.FinalGrade)
	}
	if len(res.StaticResults) != 0 {
		t.Errorf("static results = %v, want empty", res.StaticResults)
	}
	if res.AIResult != nil {
		t.Error("AI result present after syntax failure")
	}
	if !strings.HasPrefix(res.Summary, "YAML syntax error:") {
		t.Errorf("summary = %q", res.Summary)
	}
	if !reflect.DeepEqual(res.Recommendations, []string{"Fix YAML syntax errors before proceeding"}) {
		t.Errorf("recommendations = %v", res.Recommendations)
	}
	if runner.calls != 0 || eval.calls != 0 {
		t.Errorf("pipeline ran after syntax failure: runner=%d eval=%d", runner.calls, eval.calls)
	}
}

func TestGrade_StaticOnlyAllPassing(t *testing.T) {
	g := New(WithMode(schema.ModeStaticOnly), WithRunner(&stubRunner{}))

	res := g.Grade(context.Background(), podYAML, "Create a simple nginx pod", "Deploy a basic web server pod", nil)

	if res.OverallScore != 100 || res.FinalGrade != schema.GradeA {
		t.Errorf("score=%d grade=%s, want 100/A", res.OverallScore, res.FinalGrade)
	}
	if len(res.StaticResults) != len(DefaultTools) {
		t.Errorf("got %d static results, want %d", len(res.StaticResults), len(DefaultTools))
	}
	if res.AIResult != nil {
		t.Error("AI result present in static-only mode")
	}
	if !strings.Contains(res.Summary, "Static validation passed: kubeconform, kube-score, kube-linter") {
		t.Errorf("summary = %q", res.Summary)
	}
}

func TestGrade_StaticOnlyMean(t *testing.T) {
	runner := &stubRunner{byTool: map[string]schema.StaticValidationResult{
		"kubeconform": {Tool: "kubeconform", Passed: true, Score: 100},
		"kube-score":  {Tool: "kube-score", Passed: false, Score: 55},
	}}
	g := New(WithMode(schema.ModeStaticOnly), WithRunner(runner))

	res := g.Grade(context.Background(), podYAML, "q", "g", []string{"kubeconform", "kube-score"})
	if want := (100 + 55) / 2; res.OverallScore != want {
		t.Errorf("score = %d, want %d", res.OverallScore, want)
	}
}

func TestGrade_HybridWeighting(t *testing.T) {
	runner := &stubRunner{byTool: map[string]schema.StaticValidationResult{
		"kubeconform": {Tool: "kubeconform", Passed: true, Score: 80},
	}}
	eval := &stubEvaluator{result: aiResult(60, 0.9)}
	g := New(WithRunner(runner), WithEvaluator(eval))

	res := g.Grade(context.Background(), podYAML, "q", "g", []string{"kubeconform"})

	// round(0.4*80 + 0.6*60) = 68
	if res.OverallScore != 68 {
		t.Errorf("score = %d, want 68", res.OverallScore)
	}
	if res.FinalGrade != schema.GradeD {
		t.Errorf("grade = %s, want D", res.FinalGrade)
	}
	if eval.calls != 1 {
		t.Errorf("evaluator called %d times", eval.calls)
	}
}

func TestGrade_HybridWithoutEvaluatorFallsBackToStatic(t *testing.T) {
	runner := &stubRunner{byTool: map[string]schema.StaticValidationResult{
		"kubeconform": {Tool: "kubeconform", Passed: true, Score: 80},
	}}
	g := New(WithRunner(runner))

	res := g.Grade(context.Background(), podYAML, "q", "g", []string{"kubeconform"})
	if res.OverallScore != 80 {
		t.Errorf("score = %d, want static mean 80", res.OverallScore)
	}
	if res.AIResult != nil {
		t.Error("AI result present without an evaluator")
	}
}

func TestGrade_AIOnly(t *testing.T) {
	runner := &stubRunner{}
	eval := &stubEvaluator{result: aiResult(72, 0.85)}
	g := New(WithMode(schema.ModeAIOnly), WithRunner(runner), WithEvaluator(eval))

	res := g.Grade(context.Background(), podYAML, "q", "g", nil)
	if res.OverallScore != 72 || res.FinalGrade != schema.GradeC {
		t.Errorf("score=%d grade=%s, want 72/C", res.OverallScore, res.FinalGrade)
	}
	if runner.calls != 0 {
		t.Error("static tools ran in AI-only mode")
	}
	if len(res.StaticResults) != 0 {
		t.Errorf("static results = %v, want empty", res.StaticResults)
	}
	if !strings.Contains(res.Summary, "AI evaluation: 72/100 (confidence: high)") {
		t.Errorf("summary = %q", res.Summary)
	}
}

func TestGrade_AIOnlyWithoutEvaluator(t *testing.T) {
	g := New(WithMode(schema.ModeAIOnly), WithRunner(&stubRunner{}))
	res := g.Grade(context.Background(), podYAML, "q", "g", nil)
	if res.OverallScore != 0 || res.FinalGrade != schema.GradeF {
		t.Errorf("score=%d grade=%s, want 0/F", res.OverallScore, res.FinalGrade)
	}
}

func TestGrade_EmptyToolListStaticOnly(t *testing.T) {
	g := New(WithMode(schema.ModeStaticOnly), WithRunner(&stubRunner{}))
	res := g.Grade(context.Background(), podYAML, "q", "g", []string{})
	if res.OverallScore != 0 {
		t.Errorf("score = %d, want 0 by the empty-mean rule", res.OverallScore)
	}
}

func TestGrade_RecommendationsCappedAtFive(t *testing.T) {
	many := func(tool string) schema.StaticValidationResult {
		return schema.StaticValidationResult{
			Tool:   tool,
			Score:  20,
			Issues: []string{tool + " i1", tool + " i2", tool + " i3", tool + " i4"},
		}
	}
	runner := &stubRunner{byTool: map[string]schema.StaticValidationResult{
		"kubeconform": many("kubeconform"),
		"kube-score":  many("kube-score"),
		"kube-linter": many("kube-linter"),
	}}
	eval := &stubEvaluator{result: aiResult(40, 0.7, "s1", "s2", "s3", "s4")}
	g := New(WithRunner(runner), WithEvaluator(eval))

	res := g.Grade(context.Background(), podYAML, "q", "g", nil)
	if len(res.Recommendations) != 5 {
		t.Fatalf("got %d recommendations, want 5", len(res.Recommendations))
	}
	want := []string{
		"[kubeconform] kubeconform i1",
		"[kubeconform] kubeconform i2",
		"[kube-score] kube-score i1",
		"[kube-score] kube-score i2",
		"[kube-linter] kube-linter i1",
	}
	if !reflect.DeepEqual(res.Recommendations, want) {
		t.Errorf("recommendations = %v\nwant %v", res.Recommendations, want)
	}
}

func TestGrade_RecommendationTagging(t *testing.T) {
	runner := &stubRunner{byTool: map[string]schema.StaticValidationResult{
		"kubeconform": {Tool: "kubeconform", Score: 50, Issues: []string{"bad schema"}},
	}}
	eval := &stubEvaluator{result: aiResult(70, 0.6, "add limits")}
	g := New(WithRunner(runner), WithEvaluator(eval))

	res := g.Grade(context.Background(), podYAML, "q", "g", []string{"kubeconform"})
	want := []string{"[kubeconform] bad schema", "[AI] add limits"}
	if !reflect.DeepEqual(res.Recommendations, want) {
		t.Errorf("recommendations = %v, want %v", res.Recommendations, want)
	}
}

func TestGrade_Idempotent(t *testing.T) {
	runner := &stubRunner{byTool: map[string]schema.StaticValidationResult{
		"kubeconform": {Tool: "kubeconform", Passed: true, Score: 90, Issues: []string{}, Warnings: []string{}},
	}}
	eval := &stubEvaluator{result: aiResult(80, 0.9, "s1")}
	g := New(WithRunner(runner), WithEvaluator(eval))

	first := g.Grade(context.Background(), podYAML, "q", "g", []string{"kubeconform"})
	second := g.Grade(context.Background(), podYAML, "q", "g", []string{"kubeconform"})
	if !reflect.DeepEqual(first, second) {
		t.Errorf("results differ across identical calls:\n first %+v\nsecond %+v", first, second)
	}
}

func TestBuildSummary_OnlyScoreClauseWhenNothingRan(t *testing.T) {
	got := buildSummary(nil, nil, 0)
	if got != "Overall Score: 0/100" {
		t.Errorf("summary = %q", got)
	}
}

func TestBuildSummary_ConfidenceLevels(t *testing.T) {
	cases := []struct {
		confidence float64
		want       string
	}{
		{0.9, "confidence: high"},
		{0.6, "confidence: medium"},
		{0.3, "confidence: low"},
	}
	for _, c := range cases {
		got := buildSummary(nil, aiResult(50, c.confidence), 50)
		if !strings.Contains(got, c.want) {
			t.Errorf("summary %q missing %q", got, c.want)
		}
	}
}
