package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/promptvault/promptvault/internal/models"
	"github.com/promptvault/promptvault/internal/store"
)

func newUsageCmd() *cobra.Command {
	var startStr, endStr string

	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Show aggregated LLM usage and cost",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var start, end *time.Time
			if startStr != "" {
				t, err := time.Parse(time.RFC3339, startStr)
				if err != nil {
					return fmt.Errorf("invalid --start: %w", err)
				}
				start = &t
			}
			if endStr != "" {
				t, err := time.Parse(time.RFC3339, endStr)
				if err != nil {
					return fmt.Errorf("invalid --end: %w", err)
				}
				end = &t
			}

			backend, err := openBackend(cmd.Context())
			if err != nil {
				return err
			}
			defer backend.Close()

			var stats *models.UsageStats
			err = backend.UnitOfWork(cmd.Context(), func(uow store.UnitOfWork) error {
				var err error
				stats, err = uow.Executions().UsageStats(cmd.Context(), start, end)
				return err
			})
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "PROVIDER\tREQUESTS\tTOKENS\tCOST_USD")
			for _, p := range stats.ByProvider {
				fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n",
					p.Provider, p.TotalRequests, p.TotalTokens, p.TotalCostUSD.StringFixed(6))
			}
			fmt.Fprintf(tw, "TOTAL\t%d\t%d\t%s\n",
				stats.TotalRequests, stats.TotalTokens, stats.TotalCostUSD.StringFixed(6))
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&startStr, "start", "", "start of range (RFC3339)")
	cmd.Flags().StringVar(&endStr, "end", "", "end of range (RFC3339)")
	return cmd
}
