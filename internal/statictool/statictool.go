// Package statictool invokes external Kubernetes analysis tools against a
// manifest and translates each tool's output into a StaticValidationResult.
// A failure in one tool is always captured into that tool's own result and
// never disturbs the others.
package statictool

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"kubegrade/internal/schema"
)

// DefaultTimeout bounds each tool's wall-clock run time.
const DefaultTimeout = 30 * time.Second

// manifestArg marks the slot in an argument template where the staged
// manifest path is substituted. Templates without it get the path appended as
// a trailing positional argument.
const manifestArg = "{manifest}"

// parseFunc translates one tool's raw output into findings. parseFailed is
// set when the output did not match the tool's expected grammar.
type parseFunc func(stdout, stderr string, exitCode int) findings

type findings struct {
	issues      []string
	warnings    []string
	score       int
	parseFailed bool
}

// descriptor is the immutable description of one known tool.
type descriptor struct {
	binary string
	args   []string
	parse  parseFunc
}

// tools is the lookup table of every tool this engine knows how to invoke.
// Adding a tool means adding an entry here plus its parser in parse.go.
var tools = map[string]descriptor{
	"kubeconform": {
		binary: "kubeconform",
		args:   []string{"-strict", "-summary"},
		parse:  parseKubeconform,
	},
	"kube-score": {
		binary: "kube-score",
		args:   []string{"score", "--output-format", "json"},
		parse:  parseKubeScore,
	},
	"kube-linter": {
		binary: "kube-linter",
		args:   []string{"lint", "--format", "json"},
		parse:  parseKubeLinter,
	},
	"checkov": {
		binary: "checkov",
		args:   []string{"-f", manifestArg, "--framework", "kubernetes", "--output", "json"},
		parse:  parseCheckov,
	},
	"trivy": {
		binary: "trivy",
		args:   []string{"config", "--format", "json"},
		parse:  parseTrivy,
	},
}

// Known returns the sorted identifiers of every tool in the table.
func Known() []string {
	names := make([]string, 0, len(tools))
	for name := range tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Runner executes static tools. The zero value is not usable; call NewRunner.
type Runner struct {
	timeout  time.Duration
	log      zerolog.Logger
	lookPath func(string) (string, error) // test seam
}

// Option configures a Runner.
type Option func(*Runner)

// WithTimeout overrides the per-tool timeout.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) { r.timeout = d }
}

// WithLogger attaches a logger for per-tool progress events.
func WithLogger(log zerolog.Logger) Option {
	return func(r *Runner) { r.log = log }
}

// NewRunner returns a Runner with the default 30s per-tool timeout and a
// no-op logger.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		timeout:  DefaultTimeout,
		log:      zerolog.Nop(),
		lookPath: exec.LookPath,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes each requested tool against manifestYAML and returns one
// result per tool, in the requested order. Tools run concurrently, each with
// its own staged temp file and its own timeout; nothing a tool does can
// cancel or corrupt a sibling's result.
func (r *Runner) Run(ctx context.Context, manifestYAML string, toolNames []string) []schema.StaticValidationResult {
	results := make([]schema.StaticValidationResult, len(toolNames))
	var g errgroup.Group
	for i, name := range toolNames {
		g.Go(func() error {
			results[i] = r.runOne(ctx, name, manifestYAML)
			return nil
		})
	}
	_ = g.Wait() // workers never return errors
	return results
}

// runOne invokes a single tool and converts every possible outcome, including
// its own failures, into a StaticValidationResult.
func (r *Runner) runOne(ctx context.Context, name, manifestYAML string) schema.StaticValidationResult {
	desc, ok := tools[name]
	if !ok {
		return failed(name, fmt.Sprintf("Unknown tool: %s", name), 0)
	}

	if _, err := r.lookPath(desc.binary); err != nil {
		r.log.Warn().Str("tool", name).Msg("binary not found")
		return failed(name, fmt.Sprintf("Tool %s not found. Please install it.", name), 0)
	}

	start := time.Now()

	path, cleanup, err := stageManifest(manifestYAML)
	if err != nil {
		return failed(name, fmt.Sprintf("Error running %s: %v", name, err), time.Since(start).Seconds())
	}
	defer cleanup()

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, desc.binary, renderArgs(desc.args, path)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.log.Debug().Str("tool", name).Msg("running")
	runErr := cmd.Run()
	elapsed := time.Since(start)

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		r.log.Warn().Str("tool", name).Dur("timeout", r.timeout).Msg("timed out")
		return failed(name, fmt.Sprintf("Tool %s timed out", name), r.timeout.Seconds())
	}

	exitCode := 0
	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			// The process never ran (e.g. the binary vanished after LookPath).
			return failed(name, fmt.Sprintf("Error running %s: %v", name, runErr), elapsed.Seconds())
		}
		exitCode = exitErr.ExitCode()
	}

	out := desc.parse(stdout.String(), stderr.String(), exitCode)

	// Passed requires a clean exit with no blocking findings. When the output
	// itself was unparseable the exit code alone decides.
	passed := exitCode == 0
	if !out.parseFailed && len(out.issues) > 0 {
		passed = false
	}

	r.log.Debug().Str("tool", name).Int("score", out.score).Bool("passed", passed).
		Dur("elapsed", elapsed).Msg("finished")

	return schema.StaticValidationResult{
		Tool:          name,
		Passed:        passed,
		Score:         schema.ClampScore(out.score),
		Issues:        out.issues,
		Warnings:      out.warnings,
		ExecutionTime: elapsed.Seconds(),
	}
}

// stageManifest writes the manifest to a private temp file and returns its
// path plus a cleanup func. The file is removed on every exit path of the
// caller via the returned cleanup.
func stageManifest(manifestYAML string) (string, func(), error) {
	f, err := os.CreateTemp("", "kubegrade-*.yaml")
	if err != nil {
		return "", nil, fmt.Errorf("statictool: create temp file: %w", err)
	}
	path := f.Name()
	cleanup := func() { os.Remove(path) }

	if _, err := f.WriteString(manifestYAML); err != nil {
		f.Close()
		cleanup()
		return "", nil, fmt.Errorf("statictool: write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("statictool: close temp file: %w", err)
	}
	return path, cleanup, nil
}

// renderArgs substitutes the manifest path into the argument template.
func renderArgs(template []string, path string) []string {
	args := make([]string, 0, len(template)+1)
	substituted := false
	for _, a := range template {
		if a == manifestArg {
			args = append(args, path)
			substituted = true
			continue
		}
		args = append(args, a)
	}
	if !substituted {
		args = append(args, path)
	}
	return args
}

// failed builds the uniform result for a tool that produced no usable output.
func failed(tool, issue string, elapsed float64) schema.StaticValidationResult {
	return schema.StaticValidationResult{
		Tool:          tool,
		Passed:        false,
		Score:         0,
		Issues:        []string{issue},
		Warnings:      []string{},
		ExecutionTime: elapsed,
	}
}
