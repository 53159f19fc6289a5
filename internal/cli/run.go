package cli

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/openlens/glassbox/internal/harness"
	"github.com/openlens/glassbox/store"
	"github.com/openlens/glassbox/store/sqlite"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string // optional; empty runs against a throwaway in-memory store
	Filter   string // glob over scenario names
}

// ScenarioOutcome holds the result of one scenario replay.
type ScenarioOutcome struct {
	Name        string   `json:"name"`
	ExecutionID string   `json:"executionId"`
	Status      string   `json:"status"`
	Pass        bool     `json:"pass"`
	Failures    []string `json:"failures,omitempty"`
}

// RunSummary aggregates a run over multiple scenario files.
type RunSummary struct {
	Scenarios []ScenarioOutcome `json:"scenarios"`
	Passed    int               `json:"passed"`
	Failed    int               `json:"failed"`
	Total     int               `json:"total"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario-file-or-dir>...",
		Short: "Replay scenarios and evaluate their assertions",
		Long: `Replay scenario files through the capture pipeline and evaluate each
scenario's assertions.

Without --db each scenario runs against its own in-memory store. With --db
the captured traces are also persisted to a SQLite database, so list, show
and stats can inspect them afterwards.

Exit codes:
  0 - all scenarios passed
  1 - one or more scenarios failed their assertions
  2 - command error (invalid paths, malformed scenario, database error)

Examples:
  glassbox run ./scenarios
  glassbox run ./scenarios/competitor-product-selection.yaml --db ./traces.db
  glassbox run ./scenarios --filter "competitor-*" --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database to persist traces into")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by name glob")

	return cmd
}

func runScenarios(opts *RunOptions, paths []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	logLevel := slog.LevelWarn
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: logLevel}))

	files, err := collectScenarioFiles(paths)
	if err != nil {
		return err
	}

	var db *sqlite.Store
	if opts.Database != "" {
		db, err = sqlite.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		db.WithLogger(logger)
		defer func() {
			if closeErr := db.Close(); closeErr != nil {
				logger.Error("closing database", "error", closeErr)
			}
		}()
	}

	summary := RunSummary{}
	for _, file := range files {
		scenario, err := harness.LoadScenario(file)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to load %s", file), err)
		}
		if opts.Filter != "" {
			match, err := matchName(opts.Filter, scenario.Name)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid filter", err)
			}
			if !match {
				formatter.VerboseLog("skipping %s", scenario.Name)
				continue
			}
		}

		formatter.VerboseLog("running %s", scenario.Name)
		var target store.Store = store.NewMemory()
		if db != nil {
			target = db
		}
		result, err := harness.RunInto(scenario, target)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("scenario %s", scenario.Name), err)
		}

		outcome := ScenarioOutcome{
			Name:        scenario.Name,
			ExecutionID: result.Execution.ID,
			Status:      string(result.Execution.Status),
			Pass:        result.Passed(),
			Failures:    result.Failures,
		}
		summary.Scenarios = append(summary.Scenarios, outcome)
		summary.Total++
		if outcome.Pass {
			summary.Passed++
		} else {
			summary.Failed++
		}
	}

	if opts.Format == "json" {
		if err := formatter.JSON(summary); err != nil {
			return err
		}
	} else {
		for _, s := range summary.Scenarios {
			mark := "PASS"
			if !s.Pass {
				mark = "FAIL"
			}
			formatter.Textf("%s %s (%s, %s)", mark, s.Name, s.ExecutionID, s.Status)
			for _, failure := range s.Failures {
				formatter.Textf("     %s", failure)
			}
		}
		formatter.Textf("%d passed, %d failed, %d total", summary.Passed, summary.Failed, summary.Total)
	}

	if summary.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", summary.Failed))
	}
	return nil
}

// matchName matches a scenario name against a shell-style glob.
func matchName(pattern, name string) (bool, error) {
	ok, err := filepath.Match(pattern, name)
	if err != nil {
		return false, fmt.Errorf("pattern %q: %w", pattern, err)
	}
	return ok, nil
}
