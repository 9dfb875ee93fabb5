package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kazkozdev/promptstudio/orchestrator"
	"github.com/kazkozdev/promptstudio/provider"
)

func newOrchestrateCmd(cfgPath *string) *cobra.Command {
	var (
		businessTask string
		datasetPath  string
		targetLM     string
		profile      string
		maxIterations int
	)

	cmd := &cobra.Command{
		Use:   "orchestrate",
		Short: "Plan, compile, and self-correct a multi-module LLM program against a dataset",
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

			orch := orchestrator.New(e.registry, e.cfg, e.scorers, e.store, e.respCache, e.logger, e.telem)

			req := orchestrator.Request{
				BusinessTask:   businessTask,
				TargetLM:       provider.TargetLM(targetLM),
				Dataset:        dataset,
				QualityProfile: orchestrator.QualityProfile(profile),
				MaxIterations:  maxIterations,
			}
			result := orch.Invoke(context.Background(), req, nil)

			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			if !result.Success && result.Status == "failure" {
				return fmt.Errorf("orchestration failed: %s", result.ErrorType)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&businessTask, "task", "", "informal business task description")
	cmd.Flags().StringVar(&datasetPath, "dataset", "", "path to a labeled dataset (.json or .csv)")
	cmd.Flags().StringVar(&targetLM, "target-lm", "gpt-4o-mini", "target LM identifier")
	cmd.Flags().StringVar(&profile, "profile", "BALANCED", "quality profile: FAST_CHEAP | BALANCED | HIGH_QUALITY")
	cmd.Flags().IntVar(&maxIterations, "max-iterations", 20, "self-correction iteration budget")
	cmd.MarkFlagRequired("task")
	cmd.MarkFlagRequired("dataset")
	return cmd
}
