// Package store holds captured executions keyed by id and answers queries
// over them: point lookup, multi-predicate filtering, sorting, pagination,
// aggregation, and change notification.
//
// Store is the read/write boundary between the capture side (builders push
// complete snapshots via Save) and read-only consumers (dashboards, analytics)
// which use Get/FindAll/Subscribe and never mutate trace data.
//
// Memory is the volatile in-process implementation. The sqlite subpackage
// implements the same interface durably; both answer queries through the
// shared ApplyQuery engine so results are identical across backends.
//
// # Query determinism
//
// All orderings use a deterministic tie-break on execution id, so a fixed
// filter/sort produces a stable sequence and pagination windows concatenate
// with no duplicates and no gaps. An execution without an end time sorts
// under endTime ordering as the zero time, i.e. earliest. That convention is
// preserved from the reference behavior; see DESIGN.md for the discussion.
package store
