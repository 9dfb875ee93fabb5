package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kazkozdev/promptstudio/eval"
	"github.com/kazkozdev/promptstudio/provider"
)

func newEvalCmd(cfgPath *string) *cobra.Command {
	var (
		datasetPath string
		promptText  string
		targetLM    string
		mode        string
	)

	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Evaluate a prompt over a dataset (reference-based by default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := buildEnv(*cfgPath)
			if err != nil {
				return err
			}
			defer e.shutdown(cmd.Context())

			dataset, err := loadDataset(datasetPath)
			if err != nil {
				return err
			}
			lm, err := e.resolveProvider(provider.TargetLM(targetLM))
			if err != nil {
				return err
			}

			engine := eval.New(lm, e.scorers, eval.DefaultConfig(), e.logger, e.telem)

			ctx := context.Background()
			var out []byte
			if mode == "full" {
				report, err := engine.EvaluateFull(ctx, "cli_prompt", promptText, dataset, eval.DepthStandard)
				if err != nil {
					return err
				}
				out, err = json.MarshalIndent(report, "", "  ")
				if err != nil {
					return err
				}
			} else {
				run, err := engine.EvaluateReferenceBased(ctx, "cli_prompt", promptText, dataset)
				if err != nil {
					return err
				}
				if _, saveErr := e.store.SaveEvaluation(run); saveErr != nil {
					e.logger.Warn("eval: failed to persist run", map[string]interface{}{"error": saveErr.Error()})
				}
				out, err = json.MarshalIndent(run, "", "  ")
				if err != nil {
					return err
				}
			}

			fmt.Println(string(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&datasetPath, "dataset", "", "path to a dataset file (.json or .csv)")
	cmd.Flags().StringVar(&promptText, "prompt", "", "prompt text template, using {field} placeholders")
	cmd.Flags().StringVar(&targetLM, "target-lm", "gpt-4o-mini", "target LM identifier")
	cmd.Flags().StringVar(&mode, "mode", "reference", "evaluation mode: reference | full")
	cmd.MarkFlagRequired("dataset")
	cmd.MarkFlagRequired("prompt")
	return cmd
}
