package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/odrlplan/odrlplan/internal/adapter/outbound/history"
	"github.com/odrlplan/odrlplan/internal/config"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent plan runs from the history store",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum number of runs to list")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("history: load config: %w", err)
	}
	if !cfg.History.Enabled {
		return fmt.Errorf("history: history.enabled is false in config")
	}

	store, err := history.Open(cfg.History.Path)
	if err != nil {
		return fmt.Errorf("history: open store: %w", err)
	}
	defer store.Close()

	records, err := store.Recent(context.Background(), historyLimit)
	if err != nil {
		return fmt.Errorf("history: query: %w", err)
	}

	out := cmd.OutOrStdout()
	for _, r := range records {
		fmt.Fprintf(out, "%s  scope=%s  started=%s  duration=%dms  cache_hit=%t  permissions=%d prohibitions=%d duties=%d filtered=%d\n",
			r.RunID, r.Scope, r.StartedAt.Format("2006-01-02T15:04:05Z07:00"), r.DurationMs, r.CacheHit,
			r.Permissions, r.Prohibitions, r.Duties, r.Filtered)
	}
	return nil
}
