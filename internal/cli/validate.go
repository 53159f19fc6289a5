package cli

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cueyaml "cuelang.org/go/encoding/yaml"
	"github.com/spf13/cobra"

	"github.com/openlens/glassbox/internal/harness"
)

//go:embed schema.cue
var schemaSource string

// FileValidation holds the validation outcome for one scenario file.
type FileValidation struct {
	File   string   `json:"file"`
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// ValidationSummary aggregates validation across files.
type ValidationSummary struct {
	Files   []FileValidation `json:"files"`
	Valid   int              `json:"valid"`
	Invalid int              `json:"invalid"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <scenario-file-or-dir>...",
		Short: "Validate scenario files against the schema",
		Long: `Validate scenario YAML files without running them.

Each file is checked against the scenario schema (field names, step types,
assertion shapes) and the harness parser's cross-field rules. Directories
are searched recursively for .yaml and .yml files.

Exit codes:
  0 - all files valid
  1 - one or more files invalid
  2 - command error (path not found, no scenario files)`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	files, err := collectScenarioFiles(paths)
	if err != nil {
		return err
	}

	ctx := cuecontext.New()
	schema, err := scenarioSchema(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "internal schema error", err)
	}

	summary := ValidationSummary{Files: make([]FileValidation, 0, len(files))}
	for _, file := range files {
		formatter.VerboseLog("validating %s", file)
		result := validateFile(ctx, schema, file)
		summary.Files = append(summary.Files, result)
		if result.Valid {
			summary.Valid++
		} else {
			summary.Invalid++
		}
	}

	if opts.Format == "json" {
		if err := formatter.JSON(summary); err != nil {
			return err
		}
	} else {
		for _, fr := range summary.Files {
			if fr.Valid {
				formatter.Textf("ok   %s", fr.File)
				continue
			}
			formatter.Textf("FAIL %s", fr.File)
			for _, msg := range fr.Errors {
				formatter.Textf("     %s", msg)
			}
		}
		formatter.Textf("%d valid, %d invalid", summary.Valid, summary.Invalid)
	}

	if summary.Invalid > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario file(s) invalid", summary.Invalid))
	}
	return nil
}

// validateFile checks one file against the CUE schema, then against the
// harness parser for constraints the schema cannot express.
func validateFile(ctx *cue.Context, schema cue.Value, path string) FileValidation {
	result := FileValidation{File: path}

	data, err := os.ReadFile(path)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	file, err := cueyaml.Extract(path, data)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		return result
	}
	doc := ctx.BuildFile(file)
	if err := doc.Err(); err != nil {
		result.Errors = append(result.Errors, cueErrorMessages(err)...)
		return result
	}

	if err := schema.Unify(doc).Validate(); err != nil {
		result.Errors = append(result.Errors, cueErrorMessages(err)...)
		return result
	}

	if _, err := harness.ParseScenario(data); err != nil {
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	result.Valid = true
	return result
}

// scenarioSchema compiles the embedded schema and resolves the scenario
// definition.
func scenarioSchema(ctx *cue.Context) (cue.Value, error) {
	v := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := v.Err(); err != nil {
		return cue.Value{}, err
	}
	def := v.LookupPath(cue.ParsePath("#Scenario"))
	if !def.Exists() {
		return cue.Value{}, fmt.Errorf("schema.cue: #Scenario not found")
	}
	return def, nil
}

// cueErrorMessages flattens a CUE error into one positioned message per
// underlying problem.
func cueErrorMessages(err error) []string {
	list := cueerrors.Errors(err)
	msgs := make([]string, 0, len(list))
	for _, e := range list {
		pos := e.Position()
		if pos.IsValid() {
			msgs = append(msgs, fmt.Sprintf("%s:%d:%d: %s", pos.Filename(), pos.Line(), pos.Column(), e.Error()))
		} else {
			msgs = append(msgs, e.Error())
		}
	}
	if len(msgs) == 0 {
		msgs = append(msgs, err.Error())
	}
	return msgs
}

// collectScenarioFiles expands files and directories into a list of YAML
// scenario files.
func collectScenarioFiles(paths []string) ([]string, error) {
	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, fmt.Sprintf("path not found: %s", path), err)
		}
		if !info.IsDir() {
			files = append(files, path)
			continue
		}
		err = filepath.Walk(path, func(p string, fi os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if fi.IsDir() {
				return nil
			}
			if ext := filepath.Ext(p); ext == ".yaml" || ext == ".yml" {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return nil, WrapExitError(ExitCommandError, fmt.Sprintf("failed to scan %s", path), err)
		}
	}
	if len(files) == 0 {
		return nil, NewExitError(ExitCommandError, "no scenario files found")
	}
	return files, nil
}
