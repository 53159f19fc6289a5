package capture

import (
	"log/slog"
	"time"

	"github.com/openlens/glassbox/trace"
)

// DefaultExecutionName labels executions created without an explicit name.
const DefaultExecutionName = "Unnamed Execution"

// Saver is the narrow store surface the builder needs for autosave.
// store.Memory and store/sqlite.Store both satisfy it.
type Saver interface {
	Save(trace.Execution) error
}

// Options configures a Builder. The zero value is usable: it produces an
// unnamed execution with a generated id, wall-clock time, the default
// logger, no store, and no lifecycle hooks.
type Options struct {
	// Name labels the execution. Defaults to DefaultExecutionName.
	Name string

	// Description is a free-form label.
	Description string

	// Context seeds the execution's context mapping. The builder takes a
	// deep copy; later mutations of the supplied map are not observed.
	Context trace.Object

	// Tags categorize the execution for querying. Immutable after creation.
	Tags []string

	// ExecutionID overrides the generated id. Callers supplying their own
	// ids are responsible for collision resistance (see package doc).
	ExecutionID string

	// Store receives the execution snapshot on every mutation when autosave
	// is enabled, and on Finalize regardless. Nil disables persistence.
	Store Saver

	// DisableAutoSave turns off the per-mutation push to Store. Finalize
	// still saves. Autosave is on by default whenever Store is set.
	DisableAutoSave bool

	// Clock supplies timestamps. Defaults to time.Now. Tests inject a
	// deterministic clock here.
	Clock func() time.Time

	// Logger receives isolated callback/autosave failures.
	// Defaults to slog.Default().
	Logger *slog.Logger

	// OnStepStart fires synchronously when a step is opened, with a
	// decoupled copy of the new step. Side-effect hook only; a panic is
	// logged and swallowed.
	OnStepStart func(trace.Step)

	// OnStepComplete fires synchronously when a step reaches a terminal
	// status, completed or failed.
	OnStepComplete func(trace.Step)

	// OnExecutionComplete fires synchronously on Finalize with the final
	// execution snapshot.
	OnExecutionComplete func(trace.Execution)
}
