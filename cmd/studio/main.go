// Command studio is the CLI surface of Prompt Engineering Studio: it
// wires configuration, providers, the evaluation engine, the orchestrator,
// and the artifact store behind a handful of subcommands. The HTTP
// surface and web UI are out of scope (spec.md §1) — this binary is the
// sole first-party client of the library packages.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:   "studio",
		Short: "Prompt Engineering Studio: evaluate, orchestrate, and version LLM prompts",
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to a studio config YAML file")

	root.AddCommand(newEvalCmd(&cfgPath))
	root.AddCommand(newOrchestrateCmd(&cfgPath))
	root.AddCommand(newHistoryCmd(&cfgPath))
	root.AddCommand(newRollbackCmd(&cfgPath))
	return root
}
