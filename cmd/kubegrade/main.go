// Command kubegrade grades a Kubernetes manifest against a study question by
// combining external static-analysis tools with an optional LLM evaluation.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "kubegrade",
		Short:         "Grade Kubernetes manifests with static tools and AI evaluation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newGradeCmd())
	root.AddCommand(newToolsCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
