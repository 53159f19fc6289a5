package store

import (
	"slices"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/openlens/glassbox/trace"
)

// OrderField selects the sort key for FindAll.
type OrderField string

const (
	OrderByStartTime OrderField = "startTime"
	OrderByEndTime   OrderField = "endTime"
	OrderByName      OrderField = "name"
)

// OrderDirection selects ascending or descending order.
type OrderDirection string

const (
	Ascending  OrderDirection = "asc"
	Descending OrderDirection = "desc"
)

// QueryOptions filters, sorts, and paginates FindAll results. The zero
// value means: no filters, order by start time descending, all results.
//
// Semantics:
//   - Filters are ANDed: status AND tags AND time range.
//   - Status matches exactly; empty means no status filter.
//   - Tags match when the execution has ANY tag in the supplied set
//     (logical OR within the set); nil/empty means no tag filter.
//   - FromTime/ToTime are inclusive bounds on the execution start time;
//     zero values mean unbounded.
//   - An unknown OrderBy falls back to startTime, an unknown direction to
//     descending (permissive query semantics - malformed options never fail).
//   - Name ordering is locale-aware (und-locale collation); time orderings
//     compare instants, with a missing end time sorting as the zero time.
//   - Limit <= 0 means unlimited; a negative Offset is treated as 0.
//     Pagination applies after filtering and sorting.
type QueryOptions struct {
	Status         trace.Status
	Tags           []string
	FromTime       time.Time
	ToTime         time.Time
	OrderBy        OrderField
	OrderDirection OrderDirection
	Limit          int
	Offset         int
}

// normalize applies the documented fallbacks and clamps.
func (o QueryOptions) normalize() QueryOptions {
	switch o.OrderBy {
	case OrderByStartTime, OrderByEndTime, OrderByName:
	default:
		o.OrderBy = OrderByStartTime
	}
	switch o.OrderDirection {
	case Ascending, Descending:
	default:
		o.OrderDirection = Descending
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	if o.Limit < 0 {
		o.Limit = 0
	}
	return o
}

// Matches reports whether the execution passes the query's filters.
// Sort and pagination options are ignored here.
func Matches(exec trace.Execution, opts QueryOptions) bool {
	if opts.Status != "" && exec.Status != opts.Status {
		return false
	}
	if len(opts.Tags) > 0 && !anyTag(exec.Tags, opts.Tags) {
		return false
	}
	if !opts.FromTime.IsZero() && exec.StartTime.Before(opts.FromTime) {
		return false
	}
	if !opts.ToTime.IsZero() && exec.StartTime.After(opts.ToTime) {
		return false
	}
	return true
}

func anyTag(have, want []string) bool {
	for _, w := range want {
		if slices.Contains(have, w) {
			return true
		}
	}
	return false
}

// ApplyQuery runs the full query pipeline over a snapshot slice: filter,
// sort, paginate. The input is not modified; the result aliases the input's
// elements (callers that need decoupled copies clone afterwards).
//
// Both store backends answer FindAll through this function so their results
// are identical for identical contents.
func ApplyQuery(execs []trace.Execution, opts QueryOptions) []trace.Execution {
	opts = opts.normalize()

	matched := make([]trace.Execution, 0, len(execs))
	for _, exec := range execs {
		if Matches(exec, opts) {
			matched = append(matched, exec)
		}
	}

	sortExecutions(matched, opts)

	if opts.Offset >= len(matched) {
		return []trace.Execution{}
	}
	matched = matched[opts.Offset:]
	if opts.Limit > 0 && opts.Limit < len(matched) {
		matched = matched[:opts.Limit]
	}
	return matched
}

// sortExecutions orders the slice in place per the normalized options.
// Equal keys tie-break on execution id ascending regardless of direction,
// so a fixed query always yields a stable, gap-free pagination sequence.
func sortExecutions(execs []trace.Execution, opts QueryOptions) {
	var key func(a, b trace.Execution) int
	switch opts.OrderBy {
	case OrderByEndTime:
		key = func(a, b trace.Execution) int { return a.EndTime.Compare(b.EndTime) }
	case OrderByName:
		coll := collate.New(language.Und)
		key = func(a, b trace.Execution) int { return coll.CompareString(a.Name, b.Name) }
	default:
		key = func(a, b trace.Execution) int { return a.StartTime.Compare(b.StartTime) }
	}

	desc := opts.OrderDirection == Descending
	slices.SortStableFunc(execs, func(a, b trace.Execution) int {
		c := key(a, b)
		if desc {
			c = -c
		}
		if c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}
