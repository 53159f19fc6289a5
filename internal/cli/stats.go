package cli

import (
	"github.com/spf13/cobra"

	"github.com/openlens/glassbox/trace"
)

// StatsOptions holds flags for the stats command.
type StatsOptions struct {
	*RootOptions
	Database string
}

// StoreStats summarizes a trace database.
type StoreStats struct {
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"byStatus"`
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize a trace database",
		Long: `Print execution counts for a trace database, total and per status.

Example:
  glassbox stats --db ./traces.db`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runStats(opts *StatsOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	db, err := openDatabase(opts.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	total, err := db.Count()
	if err != nil {
		return WrapExitError(ExitCommandError, "count failed", err)
	}
	byStatus, err := db.CountByStatus()
	if err != nil {
		return WrapExitError(ExitCommandError, "count by status failed", err)
	}

	stats := StoreStats{Total: total, ByStatus: make(map[string]int, len(byStatus))}
	for status, n := range byStatus {
		stats.ByStatus[string(status)] = n
	}

	if opts.Format == "json" {
		return formatter.JSON(stats)
	}
	formatter.Textf("Executions: %d", stats.Total)
	for _, status := range trace.Statuses {
		formatter.Textf("  %-9s %d", status, stats.ByStatus[string(status)])
	}
	return nil
}
