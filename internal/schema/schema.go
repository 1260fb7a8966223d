// Package schema defines the canonical data types produced by a grading run.
package schema

// Mode selects which signal sources contribute to the overall score.
type Mode string

const (
	ModeStaticOnly Mode = "static_only"
	ModeAIOnly     Mode = "ai_only"
	ModeHybrid     Mode = "hybrid"
)

// Grade is the letter grade derived from an overall score.
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"
)

// GradeFor converts a numeric score to its letter grade.
// Thresholds: >=90 A, >=80 B, >=70 C, >=60 D, else F.
func GradeFor(score int) Grade {
	switch {
	case score >= 90:
		return GradeA
	case score >= 80:
		return GradeB
	case score >= 70:
		return GradeC
	case score >= 60:
		return GradeD
	default:
		return GradeF
	}
}

// ConfidenceLevel buckets an AI confidence value for display:
// high (>0.8), medium (>0.5), low otherwise.
func ConfidenceLevel(confidence float64) string {
	switch {
	case confidence > 0.8:
		return "high"
	case confidence > 0.5:
		return "medium"
	default:
		return "low"
	}
}

// ClampScore clamps a score into [0, 100].
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// ClampConfidence clamps a confidence value into [0.0, 1.0].
func ClampConfidence(c float64) float64 {
	if c < 0.0 {
		return 0.0
	}
	if c > 1.0 {
		return 1.0
	}
	return c
}

// StaticValidationResult holds the outcome of one external analysis tool.
type StaticValidationResult struct {
	Tool          string   `json:"tool"`
	Passed        bool     `json:"passed"`
	Score         int      `json:"score"`
	Issues        []string `json:"issues"`
	Warnings      []string `json:"warnings"`
	ExecutionTime float64  `json:"execution_time"` // seconds
}

// AIEvaluationResult holds the outcome of the single AI evaluation call.
// RewrittenManifest is a pass-through of whatever the model proposed; it is
// never itself re-validated. Empty means the model proposed no rewrite.
type AIEvaluationResult struct {
	Model             string   `json:"model"`
	Score             int      `json:"score"`
	Explanation       string   `json:"explanation"`
	Issues            []string `json:"issues"`
	Suggestions       []string `json:"suggestions"`
	RewrittenManifest string   `json:"rewritten_manifest,omitempty"`
	Confidence        float64  `json:"confidence"`
}

// GradingResult is the single output of a grading run. It is constructed once
// and never mutated afterwards.
type GradingResult struct {
	OverallScore    int                      `json:"overall_score"`
	StaticResults   []StaticValidationResult `json:"static_results"`
	AIResult        *AIEvaluationResult      `json:"ai_result,omitempty"`
	FinalGrade      Grade                    `json:"final_grade"`
	Summary         string                   `json:"summary"`
	Recommendations []string                 `json:"recommendations"`
}
