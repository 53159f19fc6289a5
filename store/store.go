package store

import (
	"time"

	"github.com/openlens/glassbox/trace"
)

// Subscriber observes writes. It receives a decoupled copy of each saved
// execution; mutating it never affects the store's authoritative copy.
type Subscriber func(trace.Execution)

// Store is the execution collection contract. Memory implements it in
// process memory; sqlite.Store implements it durably. Error returns exist
// for backends that do I/O - Memory never fails except on an empty id.
//
// Save is a wholesale upsert by execution id: the caller passes the
// complete current snapshot, never a partial update. Absent ids are
// reported as (zero, false, nil) from Get, not as errors.
type Store interface {
	// Save upserts the execution by id and synchronously notifies every
	// active subscriber with the saved execution.
	Save(exec trace.Execution) error

	// Get returns the execution with the given id, or found=false.
	Get(id string) (exec trace.Execution, found bool, err error)

	// Delete removes the execution if present and reports whether a
	// removal occurred.
	Delete(id string) (bool, error)

	// Clear removes all entries. No subscriber notification fan-out.
	Clear() error

	// FindAll returns the filtered, sorted, paginated executions for the
	// given options. See QueryOptions for the exact semantics.
	FindAll(opts QueryOptions) ([]trace.Execution, error)

	// FindByStatus is shorthand for FindAll with a status filter.
	FindByStatus(status trace.Status) ([]trace.Execution, error)

	// FindByTags is shorthand for FindAll with a tags filter (ANY-of).
	FindByTags(tags []string) ([]trace.Execution, error)

	// FindByTimeRange is shorthand for FindAll with inclusive bounds on
	// the execution start time.
	FindByTimeRange(from, to time.Time) ([]trace.Execution, error)

	// Count returns the total number of stored executions.
	Count() (int, error)

	// CountByStatus returns a count per status. All four status keys are
	// always present, zero-valued when empty.
	CountByStatus() (map[trace.Status]int, error)

	// Subscribe registers an observer invoked on every Save. The returned
	// function unsubscribes; after it returns the subscriber receives no
	// further notifications. No ordering guarantee among subscribers.
	Subscribe(fn Subscriber) (unsubscribe func())
}
