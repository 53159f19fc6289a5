package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/openlens/glassbox/store"
	"github.com/openlens/glassbox/store/sqlite"
	"github.com/openlens/glassbox/trace"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Database  string
	Status    string
	Tags      []string
	Since     string
	Until     string
	OrderBy   string
	Ascending bool
	Limit     int
	Offset    int
}

// ExecutionRow is the list command's summary of one execution.
type ExecutionRow struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime,omitzero"`
	Steps     int       `json:"steps"`
	Tags      []string  `json:"tags,omitempty"`
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored executions",
		Long: `List executions from a trace database, filtered and ordered.

Filters combine with AND; multiple --tag values match executions carrying
any of them. --since and --until bound the execution start time (RFC 3339,
inclusive).

Examples:
  glassbox list --db ./traces.db
  glassbox list --db ./traces.db --status failed --tag rerank
  glassbox list --db ./traces.db --order name --asc --limit 20`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Status, "status", "", "filter by status (pending|running|completed|failed)")
	cmd.Flags().StringSliceVar(&opts.Tags, "tag", nil, "filter by tag (repeatable, any-of)")
	cmd.Flags().StringVar(&opts.Since, "since", "", "earliest start time, RFC 3339")
	cmd.Flags().StringVar(&opts.Until, "until", "", "latest start time, RFC 3339")
	cmd.Flags().StringVar(&opts.OrderBy, "order", "startTime", "sort key (startTime|endTime|name)")
	cmd.Flags().BoolVar(&opts.Ascending, "asc", false, "sort ascending instead of descending")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum results (0 = unlimited)")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "results to skip")

	return cmd
}

func runList(opts *ListOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	query, err := buildQuery(opts)
	if err != nil {
		return err
	}

	db, err := openDatabase(opts.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	execs, err := db.FindAll(query)
	if err != nil {
		return WrapExitError(ExitCommandError, "query failed", err)
	}

	rows := make([]ExecutionRow, len(execs))
	for i, exec := range execs {
		rows[i] = ExecutionRow{
			ID:        exec.ID,
			Name:      exec.Name,
			Status:    string(exec.Status),
			StartTime: exec.StartTime,
			EndTime:   exec.EndTime,
			Steps:     len(exec.Steps),
			Tags:      exec.Tags,
		}
	}

	if opts.Format == "json" {
		return formatter.JSON(rows)
	}
	if len(rows) == 0 {
		formatter.Textf("No executions found.")
		return nil
	}
	for _, row := range rows {
		end := "-"
		if !row.EndTime.IsZero() {
			end = row.EndTime.Format(time.RFC3339)
		}
		formatter.Textf("%s  %-9s  %s  %s  %d step(s)  %s",
			row.ID, row.Status, row.StartTime.Format(time.RFC3339), end, row.Steps, row.Name)
	}
	formatter.Textf("%d execution(s)", len(rows))
	return nil
}

// buildQuery translates list flags into query options, rejecting values the
// permissive query layer would otherwise silently coerce.
func buildQuery(opts *ListOptions) (store.QueryOptions, error) {
	query := store.QueryOptions{
		Tags:   opts.Tags,
		Limit:  opts.Limit,
		Offset: opts.Offset,
	}

	if opts.Status != "" {
		status := trace.Status(opts.Status)
		if !status.Valid() {
			return store.QueryOptions{}, NewExitError(ExitCommandError, fmt.Sprintf("invalid status %q", opts.Status))
		}
		query.Status = status
	}

	switch field := store.OrderField(opts.OrderBy); field {
	case store.OrderByStartTime, store.OrderByEndTime, store.OrderByName:
		query.OrderBy = field
	default:
		return store.QueryOptions{}, NewExitError(ExitCommandError, fmt.Sprintf("invalid order %q", opts.OrderBy))
	}
	if opts.Ascending {
		query.OrderDirection = store.Ascending
	} else {
		query.OrderDirection = store.Descending
	}

	var err error
	if query.FromTime, err = parseTimeFlag("since", opts.Since); err != nil {
		return store.QueryOptions{}, err
	}
	if query.ToTime, err = parseTimeFlag("until", opts.Until); err != nil {
		return store.QueryOptions{}, err
	}
	return query, nil
}

func parseTimeFlag(name, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, WrapExitError(ExitCommandError, fmt.Sprintf("invalid --%s", name), err)
	}
	return t, nil
}

// openDatabase opens an existing trace database for the query commands.
func openDatabase(path string) (*sqlite.Store, error) {
	db, err := sqlite.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return db, nil
}
