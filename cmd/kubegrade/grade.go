package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"kubegrade/internal/aieval"
	"kubegrade/internal/grader"
	"kubegrade/internal/render"
	"kubegrade/internal/schema"
	"kubegrade/internal/statictool"
)

func newGradeCmd() *cobra.Command {
	var (
		question  string
		goal      string
		failUnder int
		verbose   bool
	)

	cmd := &cobra.Command{
		Use:   "grade [manifest-file]",
		Short: "Grade a manifest (reads stdin when no file or \"-\" is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := bindFlags(cfg, cmd); err != nil {
				return err
			}

			path := "-"
			if len(args) == 1 {
				path = args[0]
			}
			yamlContent, err := readManifest(path, cmd.InOrStdin())
			if err != nil {
				return err
			}

			log := newLogger(verbose)

			mode, err := schema.ParseMode(cfg.GetString("mode"))
			if err != nil {
				return err
			}

			opts := []grader.Option{
				grader.WithMode(mode),
				grader.WithRunner(statictool.NewRunner(statictool.WithLogger(log))),
				grader.WithLogger(log),
			}

			if mode.IncludesAI() {
				evaluator, err := aieval.New(cfg.GetString("provider"), cfg.GetString("model"), log)
				switch {
				case err == nil:
					opts = append(opts, grader.WithEvaluator(evaluator))
				case mode == schema.ModeAIOnly:
					return err
				default:
					log.Warn().Err(err).Msg("AI evaluation disabled; grading static-only")
				}
			}

			result := grader.New(opts...).Grade(cmd.Context(), yamlContent, question, goal, cfg.GetStringSlice("tools"))

			if err := writeResult(cmd.OutOrStdout(), cfg.GetString("format"), result); err != nil {
				return err
			}

			if failUnder > 0 && result.OverallScore < failUnder {
				return fmt.Errorf("overall score %d is below the --fail-under threshold %d",
					result.OverallScore, failUnder)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&question, "question", "q", "", "quiz question the manifest answers")
	cmd.Flags().StringVarP(&goal, "goal", "g", "", "goal the manifest should achieve")
	cmd.Flags().String("mode", "", "grading mode: static_only, ai_only, or hybrid")
	cmd.Flags().StringSlice("tools", nil, "ordered static tools to run")
	cmd.Flags().String("provider", "", "LLM backend: openai, anthropic, or google")
	cmd.Flags().String("model", "", "LLM model name")
	cmd.Flags().String("format", "", "output format: text, json, or markdown")
	cmd.Flags().IntVar(&failUnder, "fail-under", 0, "exit nonzero when the overall score is below this value")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	return cmd
}

func newToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the static analysis tools this engine knows how to invoke",
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, line := range statictool.Describe() {
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}
}

// loadConfig builds the configuration with built-in defaults, an optional
// kubegrade.yaml (working directory or ~/.config/kubegrade), and KUBEGRADE_*
// environment variables. Flags bound afterwards take precedence over all.
func loadConfig() (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigName("kubegrade")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "kubegrade"))
	}
	v.SetEnvPrefix("KUBEGRADE")
	v.AutomaticEnv()

	v.SetDefault("mode", string(schema.ModeHybrid))
	v.SetDefault("tools", grader.DefaultTools)
	v.SetDefault("provider", "openai")
	v.SetDefault("model", "gpt-4")
	v.SetDefault("format", "text")

	var notFound viper.ConfigFileNotFoundError
	if err := v.ReadInConfig(); err != nil && !errors.As(err, &notFound) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// bindFlags overlays explicitly set flags onto the config.
func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	for _, name := range []string{"mode", "tools", "provider", "model", "format"} {
		if cmd.Flags().Changed(name) {
			if err := v.BindPFlag(name, cmd.Flags().Lookup(name)); err != nil {
				return fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}
	return nil
}

// readManifest reads the manifest from path, or from stdin when path is "-".
func readManifest(path string, stdin io.Reader) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read manifest from stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read manifest: %w", err)
	}
	return string(data), nil
}

// newLogger builds the console logger shared by all components.
func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}

// writeResult renders the result in the requested format.
func writeResult(w io.Writer, format string, result *schema.GradingResult) error {
	switch format {
	case "json":
		b, err := render.RenderJSON(result)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(b))
	case "markdown":
		fmt.Fprint(w, render.RenderMarkdown(result))
	case "text", "":
		render.RenderText(w, result)
	default:
		return fmt.Errorf("unknown output format %q (want text, json, or markdown)", format)
	}
	return nil
}
