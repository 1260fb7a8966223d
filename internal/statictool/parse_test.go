package statictool

import (
	"strings"
	"testing"
)

func TestParseKubeconform(t *testing.T) {
	t.Run("clean exit", func(t *testing.T) {
		out := parseKubeconform("Summary: 1 resource found, 1 valid", "", 0)
		if out.score != 100 || len(out.issues) != 0 {
			t.Errorf("clean exit: score %d, issues %v", out.score, out.issues)
		}
	})

	t.Run("nonzero exit", func(t *testing.T) {
		out := parseKubeconform("", "pod.yaml: missing apiVersion\n", 1)
		if out.score != 0 {
			t.Errorf("score = %d, want 0", out.score)
		}
		if len(out.issues) < 2 || out.issues[0] != "Schema validation failed" {
			t.Errorf("issues = %v", out.issues)
		}
		if out.issues[1] != "pod.yaml: missing apiVersion" {
			t.Errorf("stderr line not carried: %v", out.issues)
		}
	})

	t.Run("invalid mention on clean exit", func(t *testing.T) {
		out := parseKubeconform("1 resource invalid", "", 0)
		if out.score != 50 || len(out.issues) != 1 {
			t.Errorf("score %d, issues %v", out.score, out.issues)
		}
	})
}

func TestParseKubeScore(t *testing.T) {
	stdout := `[{"checks":[
		{"grade":"CRITICAL","comment":"container has no resource limits"},
		{"grade":"WARNING","comment":"no readiness probe"},
		{"grade":"OK","comment":"fine"}
	]}]`
	out := parseKubeScore(stdout, "", 1)
	if want := 100 - kubeScoreCriticalPenalty - kubeScoreWarningPenalty; out.score != want {
		t.Errorf("score = %d, want %d", out.score, want)
	}
	if len(out.issues) != 1 || !strings.Contains(out.issues[0], "resource limits") {
		t.Errorf("issues = %v", out.issues)
	}
	if len(out.warnings) != 1 || !strings.Contains(out.warnings[0], "readiness probe") {
		t.Errorf("warnings = %v", out.warnings)
	}
}

func TestParseKubeScore_MissingComment(t *testing.T) {
	out := parseKubeScore(`[{"checks":[{"grade":"CRITICAL"}]}]`, "", 1)
	if len(out.issues) != 1 || out.issues[0] != "Critical: Unknown issue" {
		t.Errorf("issues = %v", out.issues)
	}
}

func TestParseKubeScore_ScoreFloor(t *testing.T) {
	var checks []string
	for range 10 {
		checks = append(checks, `{"grade":"CRITICAL","comment":"x"}`)
	}
	stdout := `[{"checks":[` + strings.Join(checks, ",") + `]}]`
	out := parseKubeScore(stdout, "", 1)
	if out.score != 0 {
		t.Errorf("score = %d, want floor at 0", out.score)
	}
}

func TestParseKubeLinter(t *testing.T) {
	stdout := `{"Reports":[
		{"Severity":"error","Message":"no anti-affinity"},
		{"Severity":"warning","Message":"latest tag"}
	]}`
	out := parseKubeLinter(stdout, "", 1)
	if want := 100 - kubeLinterErrorPenalty - kubeLinterWarningPenalty; out.score != want {
		t.Errorf("score = %d, want %d", out.score, want)
	}
	if len(out.issues) != 1 || out.issues[0] != "Error: no anti-affinity" {
		t.Errorf("issues = %v", out.issues)
	}
	if len(out.warnings) != 1 || out.warnings[0] != "Warning: latest tag" {
		t.Errorf("warnings = %v", out.warnings)
	}
}

func TestParseCheckov(t *testing.T) {
	stdout := `{"results":{"failed_checks":[
		{"severity":"HIGH","check_name":"privileged container"},
		{"severity":"CRITICAL","check_name":"host network"},
		{"severity":"MEDIUM","check_name":"no seccomp profile"},
		{"severity":"LOW","check_name":"ignored"}
	]}}`
	out := parseCheckov(stdout, "", 1)
	if want := 100 - 2*checkovHighPenalty - checkovMediumPenalty; out.score != want {
		t.Errorf("score = %d, want %d", out.score, want)
	}
	if len(out.issues) != 2 || len(out.warnings) != 1 {
		t.Errorf("issues = %v, warnings = %v", out.issues, out.warnings)
	}
}

func TestParseTrivy(t *testing.T) {
	stdout := `{"Results":[{"Misconfigurations":[
		{"Severity":"HIGH","Title":"runs as root"},
		{"Severity":"MEDIUM","Title":"no read-only filesystem"}
	]}]}`
	out := parseTrivy(stdout, "", 1)
	if want := 100 - trivyHighPenalty - trivyMediumPenalty; out.score != want {
		t.Errorf("score = %d, want %d", out.score, want)
	}
	if len(out.issues) != 1 || out.issues[0] != "Config issue: runs as root" {
		t.Errorf("issues = %v", out.issues)
	}
	if len(out.warnings) != 1 || out.warnings[0] != "Config warning: no read-only filesystem" {
		t.Errorf("warnings = %v", out.warnings)
	}
}

func TestParse_UnparseableOutput(t *testing.T) {
	cases := []struct {
		name  string
		parse parseFunc
		issue string
	}{
		{"kube-score", parseKubeScore, "kube-score analysis failed"},
		{"kube-linter", parseKubeLinter, "kube-linter analysis failed"},
		{"checkov", parseCheckov, "checkov security scan failed"},
		{"trivy", parseTrivy, "trivy scan failed"},
	}
	for _, c := range cases {
		out := c.parse("this is not json", "", 1)
		if !out.parseFailed {
			t.Errorf("%s: parseFailed not set", c.name)
		}
		if out.score != unparseableOutputScore {
			t.Errorf("%s: score = %d, want %d", c.name, out.score, unparseableOutputScore)
		}
		if len(out.issues) != 1 || out.issues[0] != c.issue {
			t.Errorf("%s: issues = %v", c.name, out.issues)
		}
	}
}

func TestParse_EmptyOutput(t *testing.T) {
	for _, parse := range []parseFunc{parseKubeScore, parseKubeLinter, parseCheckov, parseTrivy} {
		out := parse("", "", 0)
		if out.parseFailed || out.score != 100 || len(out.issues) != 0 {
			t.Errorf("empty stdout: %+v", out)
		}
	}
}
