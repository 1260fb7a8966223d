package statictool

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Per-finding score penalties. Empirically chosen; tunable, not load-bearing.
const (
	kubeScoreCriticalPenalty  = 20
	kubeScoreWarningPenalty   = 5
	kubeLinterErrorPenalty    = 15
	kubeLinterWarningPenalty  = 5
	checkovHighPenalty        = 25
	checkovMediumPenalty      = 10
	trivyHighPenalty          = 20
	trivyMediumPenalty        = 8
	unparseableOutputScore    = 50
)

// parseKubeconform handles kubeconform's plain-text output. A nonzero exit
// means schema validation failed outright; an "invalid" mention on a clean
// exit is a partial failure.
func parseKubeconform(stdout, stderr string, exitCode int) findings {
	out := findings{issues: []string{}, warnings: []string{}, score: 100}

	if exitCode != 0 {
		out.score = 0
		out.issues = append(out.issues, "Schema validation failed")
		for _, line := range strings.Split(stderr, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				out.issues = append(out.issues, line)
			}
		}
		return out
	}

	if strings.Contains(strings.ToLower(stdout), "invalid") {
		out.score = 50
		out.issues = append(out.issues, "Some validation issues found")
	}
	return out
}

// parseKubeScore handles kube-score's JSON output: an array of scored
// objects, each carrying a list of graded checks.
func parseKubeScore(stdout, _ string, _ int) findings {
	out := findings{issues: []string{}, warnings: []string{}, score: 100}
	if strings.TrimSpace(stdout) == "" {
		return out
	}

	var objects []struct {
		Checks []struct {
			Grade   string `json:"grade"`
			Comment string `json:"comment"`
		} `json:"checks"`
	}
	if err := json.Unmarshal([]byte(stdout), &objects); err != nil {
		return unparseable("kube-score analysis failed")
	}

	for _, obj := range objects {
		for _, check := range obj.Checks {
			switch check.Grade {
			case "CRITICAL":
				out.issues = append(out.issues, "Critical: "+orDefault(check.Comment, "Unknown issue"))
				out.score -= kubeScoreCriticalPenalty
			case "WARNING":
				out.warnings = append(out.warnings, "Warning: "+orDefault(check.Comment, "Unknown warning"))
				out.score -= kubeScoreWarningPenalty
			}
		}
	}
	return out.floored()
}

// parseKubeLinter handles kube-linter's JSON output: an object with a
// "Reports" collection of severity-tagged messages.
func parseKubeLinter(stdout, _ string, _ int) findings {
	out := findings{issues: []string{}, warnings: []string{}, score: 100}
	if strings.TrimSpace(stdout) == "" {
		return out
	}

	var doc struct {
		Reports []struct {
			Severity string `json:"Severity"`
			Message  string `json:"Message"`
		} `json:"Reports"`
	}
	if err := json.Unmarshal([]byte(stdout), &doc); err != nil {
		return unparseable("kube-linter analysis failed")
	}

	for _, report := range doc.Reports {
		switch report.Severity {
		case "error":
			out.issues = append(out.issues, "Error: "+orDefault(report.Message, "Unknown error"))
			out.score -= kubeLinterErrorPenalty
		case "warning":
			out.warnings = append(out.warnings, "Warning: "+orDefault(report.Message, "Unknown warning"))
			out.score -= kubeLinterWarningPenalty
		}
	}
	return out.floored()
}

// parseCheckov handles checkov's JSON output: failed checks nested under
// "results", each with a severity and check name.
func parseCheckov(stdout, _ string, _ int) findings {
	out := findings{issues: []string{}, warnings: []string{}, score: 100}
	if strings.TrimSpace(stdout) == "" {
		return out
	}

	var doc struct {
		Results struct {
			FailedChecks []struct {
				Severity  string `json:"severity"`
				CheckName string `json:"check_name"`
			} `json:"failed_checks"`
		} `json:"results"`
	}
	if err := json.Unmarshal([]byte(stdout), &doc); err != nil {
		return unparseable("checkov security scan failed")
	}

	for _, check := range doc.Results.FailedChecks {
		switch check.Severity {
		case "CRITICAL", "HIGH":
			out.issues = append(out.issues, "Security issue: "+orDefault(check.CheckName, "Unknown"))
			out.score -= checkovHighPenalty
		case "MEDIUM":
			out.warnings = append(out.warnings, "Medium security issue: "+orDefault(check.CheckName, "Unknown"))
			out.score -= checkovMediumPenalty
		}
	}
	return out.floored()
}

// parseTrivy handles trivy's JSON output: misconfigurations nested under
// per-target "Results".
func parseTrivy(stdout, _ string, _ int) findings {
	out := findings{issues: []string{}, warnings: []string{}, score: 100}
	if strings.TrimSpace(stdout) == "" {
		return out
	}

	var doc struct {
		Results []struct {
			Misconfigurations []struct {
				Severity string `json:"Severity"`
				Title    string `json:"Title"`
			} `json:"Misconfigurations"`
		} `json:"Results"`
	}
	if err := json.Unmarshal([]byte(stdout), &doc); err != nil {
		return unparseable("trivy scan failed")
	}

	for _, result := range doc.Results {
		for _, misconfig := range result.Misconfigurations {
			switch misconfig.Severity {
			case "CRITICAL", "HIGH":
				out.issues = append(out.issues, "Config issue: "+orDefault(misconfig.Title, "Unknown"))
				out.score -= trivyHighPenalty
			case "MEDIUM":
				out.warnings = append(out.warnings, "Config warning: "+orDefault(misconfig.Title, "Unknown"))
				out.score -= trivyMediumPenalty
			}
		}
	}
	return out.floored()
}

// unparseable is the uniform soft failure for output that did not match the
// tool's expected grammar.
func unparseable(issue string) findings {
	return findings{
		issues:      []string{issue},
		warnings:    []string{},
		score:       unparseableOutputScore,
		parseFailed: true,
	}
}

// floored clamps the running score at zero.
func (f findings) floored() findings {
	if f.score < 0 {
		f.score = 0
	}
	return f
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// describe returns a one-line description for a known tool, for CLI listings.
func describe(name string) string {
	switch name {
	case "kubeconform":
		return "Validates against Kubernetes OpenAPI schemas"
	case "kube-score":
		return "Checks best practices and security"
	case "kube-linter":
		return "Lints for reliability and security issues"
	case "checkov":
		return "Infrastructure as code security scanning"
	case "trivy":
		return "Security vulnerability scanner"
	default:
		return ""
	}
}

// Describe returns "name: description" lines for every known tool.
func Describe() []string {
	var lines []string
	for _, name := range Known() {
		lines = append(lines, fmt.Sprintf("%s: %s", name, describe(name)))
	}
	return lines
}
