package main

import (
	"github.com/spf13/cobra"
)

func newRollbackCmd(cfgPath *string) *cobra.Command {
	var (
		promptID   string
		artifactID string
	)

	cmd := &cobra.Command{
		Use:   "rollback",
		Short: "Roll a prompt back to a previously recorded artifact version",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := buildEnv(*cfgPath)
			if err != nil {
				return err
			}
			defer e.shutdown(cmd.Context())

			newID, err := e.store.Rollback(promptID, artifactID)
			if err != nil {
				return err
			}
			return printJSON(map[string]string{"prompt_id": promptID, "rolled_back_to": artifactID, "new_artifact_version_id": newID})
		},
	}

	cmd.Flags().StringVar(&promptID, "prompt-id", "", "prompt id to roll back")
	cmd.Flags().StringVar(&artifactID, "to-artifact", "", "artifact_version_id to roll back to")
	cmd.MarkFlagRequired("prompt-id")
	cmd.MarkFlagRequired("to-artifact")
	return cmd
}
