// Package render produces output from a fully assembled schema.GradingResult.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"kubegrade/internal/schema"
)

// RenderJSON produces a pretty-printed JSON representation of the result.
// The output round-trips through json.Unmarshal back to an equal GradingResult.
func RenderJSON(result *schema.GradingResult) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("render: nil result")
	}
	b, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("render: json marshal: %w", err)
	}
	return b, nil
}

// RenderMarkdown produces a Markdown report, suitable for saving alongside a
// study session or posting into a review thread.
func RenderMarkdown(result *schema.GradingResult) string {
	if result == nil {
		return ""
	}
	var sb strings.Builder

	sb.WriteString("## Grading Report\n\n")
	fmt.Fprintf(&sb, "**Overall Score:** %d/100  \n", result.OverallScore)
	fmt.Fprintf(&sb, "**Final Grade:** %s  \n", result.FinalGrade)
	fmt.Fprintf(&sb, "**Summary:** %s\n\n", mdEscape(result.Summary))

	if len(result.StaticResults) > 0 {
		sb.WriteString("## Static Validation\n\n")
		sb.WriteString("| Tool | Status | Score | Time |\n")
		sb.WriteString("|---|---|---|---|\n")
		for _, r := range result.StaticResults {
			fmt.Fprintf(&sb, "| %s | %s | %d | %.2fs |\n",
				r.Tool, passLabel(r.Passed), r.Score, r.ExecutionTime)
		}
		sb.WriteString("\n")

		for _, r := range result.StaticResults {
			if len(r.Issues) == 0 && len(r.Warnings) == 0 {
				continue
			}
			fmt.Fprintf(&sb, "### %s\n\n", r.Tool)
			for _, issue := range r.Issues {
				fmt.Fprintf(&sb, "- **Issue:** %s\n", mdEscape(issue))
			}
			for _, warning := range r.Warnings {
				fmt.Fprintf(&sb, "- Warning: %s\n", mdEscape(warning))
			}
			sb.WriteString("\n")
		}
	}

	if result.AIResult != nil {
		ai := result.AIResult
		sb.WriteString("## AI Evaluation\n\n")
		fmt.Fprintf(&sb, "**Model:** %s  \n", ai.Model)
		fmt.Fprintf(&sb, "**Score:** %d/100 (confidence: %s)  \n",
			ai.Score, schema.ConfidenceLevel(ai.Confidence))
		fmt.Fprintf(&sb, "**Explanation:** %s\n\n", mdEscape(ai.Explanation))
		for _, issue := range ai.Issues {
			fmt.Fprintf(&sb, "- **Issue:** %s\n", mdEscape(issue))
		}
		for _, s := range ai.Suggestions {
			fmt.Fprintf(&sb, "- Suggestion: %s\n", mdEscape(s))
		}
		if len(ai.Issues)+len(ai.Suggestions) > 0 {
			sb.WriteString("\n")
		}
		if ai.RewrittenManifest != "" {
			sb.WriteString("### Proposed Rewrite\n\n```yaml\n")
			sb.WriteString(ai.RewrittenManifest)
			if !strings.HasSuffix(ai.RewrittenManifest, "\n") {
				sb.WriteString("\n")
			}
			sb.WriteString("```\n\n")
		}
	}

	if len(result.Recommendations) > 0 {
		sb.WriteString("## Recommendations\n\n")
		for _, rec := range result.Recommendations {
			fmt.Fprintf(&sb, "- %s\n", mdEscape(rec))
		}
	}

	return sb.String()
}

// RenderText writes a colorized terminal report to w.
func RenderText(w io.Writer, result *schema.GradingResult) {
	if result == nil {
		return
	}

	fmt.Fprintln(w, "=== Grading Results ===")
	fmt.Fprintf(w, "Overall Score: %d/100\n", result.OverallScore)
	fmt.Fprintf(w, "Final Grade: %s\n", gradeColor(result.FinalGrade).Sprint(result.FinalGrade))
	fmt.Fprintf(w, "Summary: %s\n", result.Summary)

	if len(result.StaticResults) > 0 {
		fmt.Fprintln(w, "\nStatic Validation Results:")
		for _, r := range result.StaticResults {
			status := color.GreenString("PASS")
			if !r.Passed {
				status = color.RedString("FAIL")
			}
			fmt.Fprintf(w, "  %s: %s (Score: %d)\n", r.Tool, status, r.Score)
			for _, issue := range firstN(r.Issues, 2) {
				fmt.Fprintf(w, "    - %s\n", issue)
			}
		}
	}

	if result.AIResult != nil {
		ai := result.AIResult
		fmt.Fprintf(w, "\nAI Evaluation (%s): %d/100, confidence %s\n",
			ai.Model, ai.Score, schema.ConfidenceLevel(ai.Confidence))
		fmt.Fprintf(w, "  %s\n", ai.Explanation)
	}

	if len(result.Recommendations) > 0 {
		fmt.Fprintln(w, "\nRecommendations:")
		for _, rec := range result.Recommendations {
			fmt.Fprintf(w, "  - %s\n", rec)
		}
	}
}

// gradeColor maps a letter grade to its display color.
func gradeColor(grade schema.Grade) *color.Color {
	switch grade {
	case schema.GradeA, schema.GradeB:
		return color.New(color.FgGreen, color.Bold)
	case schema.GradeC:
		return color.New(color.FgYellow, color.Bold)
	default:
		return color.New(color.FgRed, color.Bold)
	}
}

func passLabel(passed bool) string {
	if passed {
		return "PASS"
	}
	return "FAIL"
}

func firstN(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}

// mdEscape replaces characters that would break Markdown table cells.
func mdEscape(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", "")
	return s
}
