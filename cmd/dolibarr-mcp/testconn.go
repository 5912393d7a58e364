package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/marioser/dolibarr-mcp/health"
)

func newTestConnectionCmd(root *rootOptions) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "test-connection",
		Short: "Check that Dolibarr and the cache are reachable",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load(cmd)
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close(context.WithoutCancel(cmd.Context())) }()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			results := a.health.CheckAll(ctx)
			report := make(map[string]health.CheckResponse, len(results))
			for name, r := range results {
				report[name] = health.NewCheckResponse(r)
			}
			out, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))

			if status := health.Overall(results); status == health.StatusUnhealthy {
				return fmt.Errorf("connection test failed: %s", status)
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "overall time limit")
	return cmd
}
