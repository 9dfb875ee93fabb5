package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newHistoryCmd(cfgPath *string) *cobra.Command {
	var (
		promptID   string
		metricName string
		limit      int
		window     int
		threshold  float64
		trend      bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect a prompt's evaluation history, regressions, and trend",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := buildEnv(*cfgPath)
			if err != nil {
				return err
			}
			defer e.shutdown(cmd.Context())

			if trend {
				report, err := e.store.GetTrend(promptID, metricName, limit)
				if err != nil {
					return err
				}
				return printJSON(report)
			}
			if metricName != "" && window > 0 {
				report, err := e.store.DetectRegression(promptID, metricName, threshold, window)
				if err != nil {
					return err
				}
				return printJSON(report)
			}

			runs, err := e.store.GetPromptHistory(promptID, limit)
			if err != nil {
				return err
			}
			return printJSON(runs)
		},
	}

	cmd.Flags().StringVar(&promptID, "prompt-id", "", "prompt id to query")
	cmd.Flags().StringVar(&metricName, "metric", "", "metric name for regression/trend queries")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to return")
	cmd.Flags().IntVar(&window, "window", 0, "recent-window size for regression detection; 0 disables it")
	cmd.Flags().Float64Var(&threshold, "threshold", 0.05, "drop_fraction threshold for regression_detected")
	cmd.Flags().BoolVar(&trend, "trend", false, "report the metric's time series and slope instead of raw history")
	cmd.MarkFlagRequired("prompt-id")
	return cmd
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
