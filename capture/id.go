package capture

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// newExecutionID generates a collision-resistant execution id: a millisecond
// time component plus a random suffix. Callers may override it via
// Options.ExecutionID when they already hold a stable run identifier.
func newExecutionID(t time.Time) string {
	return fmt.Sprintf("exec_%d_%s", t.UnixMilli(), uuid.NewString()[:8])
}

// stepID generates a step id unique within its execution. Steps are
// numbered in open order starting at 1.
func stepID(n int) string {
	return fmt.Sprintf("step_%d", n)
}
