package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/openlens/glassbox/trace"
)

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	Database string
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show <execution-id>",
		Short: "Show one execution trace in full",
		Long: `Print the full captured trace for a single execution: header, context,
every step with its filters, evaluations and metrics, and the final output.

Examples:
  glassbox show --db ./traces.db exec-competitor-product-selection
  glassbox show --db ./traces.db exec_1719244800000_a1b2c3d4 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runShow(opts *ShowOptions, id string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	db, err := openDatabase(opts.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	exec, found, err := db.Get(id)
	if err != nil {
		return WrapExitError(ExitCommandError, "lookup failed", err)
	}
	if !found {
		return NewExitError(ExitCommandError, fmt.Sprintf("execution not found: %s", id))
	}

	if opts.Format == "json" {
		return formatter.JSON(exec)
	}
	printExecution(formatter, exec)
	return nil
}

func printExecution(f *OutputFormatter, exec trace.Execution) {
	f.Textf("Execution %s", exec.ID)
	f.Textf("  Name:    %s", exec.Name)
	if exec.Description != "" {
		f.Textf("  About:   %s", exec.Description)
	}
	f.Textf("  Status:  %s", exec.Status)
	f.Textf("  Started: %s", exec.StartTime.Format(time.RFC3339))
	if !exec.EndTime.IsZero() {
		f.Textf("  Ended:   %s (%s)", exec.EndTime.Format(time.RFC3339), exec.EndTime.Sub(exec.StartTime))
	}
	if len(exec.Tags) > 0 {
		f.Textf("  Tags:    %v", exec.Tags)
	}
	if len(exec.Context) > 0 {
		f.Textf("  Context: %s", compactJSON(exec.Context))
	}

	for i, step := range exec.Steps {
		f.Textf("")
		f.Textf("  Step %d: %s [%s] %s", i+1, step.Name, step.Type, step.Status)
		if step.Error != "" {
			f.Textf("    Error:     %s", step.Error)
		}
		if step.Input != nil {
			f.Textf("    Input:     %s", compactJSON(step.Input))
		}
		if len(step.FiltersApplied) > 0 {
			f.Textf("    Filters:   %s", compactJSON(step.FiltersApplied))
		}
		if len(step.Evaluations) > 0 {
			qualified := 0
			for _, ev := range step.Evaluations {
				if ev.Qualified {
					qualified++
				}
			}
			f.Textf("    Evaluated: %d candidate(s), %d qualified", len(step.Evaluations), qualified)
		}
		if step.Reasoning != "" {
			f.Textf("    Reasoning: %s", step.Reasoning)
		}
		if step.Output != nil {
			f.Textf("    Output:    %s", compactJSON(step.Output))
		}
		if step.Metrics.Duration > 0 {
			f.Textf("    Duration:  %s", step.Metrics.Duration)
		}
	}

	if exec.FinalOutput != nil {
		f.Textf("")
		f.Textf("  Final output: %s", compactJSON(exec.FinalOutput))
	}
}

// compactJSON renders a value as one-line JSON for text output.
func compactJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
