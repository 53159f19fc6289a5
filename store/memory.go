package store

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/openlens/glassbox/trace"
)

// Memory is the volatile in-process Store. Construct one per process (or
// per test - there is deliberately no package-level singleton) and inject
// it into builders and query consumers.
//
// All methods are safe for concurrent use. The executions map is guarded by
// a single RWMutex; FindAll snapshots the value collection under the read
// lock before filtering so a query never observes a half-applied write.
// Executions are cloned on the way in and on the way out - a caller can
// never corrupt the authoritative copy through a returned snapshot.
type Memory struct {
	mu         sync.RWMutex
	executions map[string]trace.Execution
	subs       map[int]Subscriber
	nextSubID  int

	logger *slog.Logger
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		executions: make(map[string]trace.Execution),
		subs:       make(map[int]Subscriber),
		logger:     slog.Default(),
	}
}

// WithLogger sets the logger used for isolated subscriber failures and
// returns the store for chaining during construction.
func (m *Memory) WithLogger(logger *slog.Logger) *Memory {
	if logger != nil {
		m.logger = logger
	}
	return m
}

// Save upserts the execution by id, wholesale, then synchronously notifies
// every active subscriber. Notification is inline with the write: a slow
// subscriber stalls the writer (documented trade-off; dispatch to a
// goroutine in the subscriber when that matters).
func (m *Memory) Save(exec trace.Execution) error {
	if exec.ID == "" {
		return fmt.Errorf("save execution: empty id")
	}

	m.mu.Lock()
	m.executions[exec.ID] = exec.Clone()
	subs := make([]Subscriber, 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	for _, fn := range subs {
		m.notify(fn, exec.Clone())
	}
	return nil
}

// Get returns the execution with the given id, or found=false.
func (m *Memory) Get(id string) (trace.Execution, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	exec, ok := m.executions[id]
	if !ok {
		return trace.Execution{}, false, nil
	}
	return exec.Clone(), true, nil
}

// Delete removes the execution if present.
func (m *Memory) Delete(id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.executions[id]
	if ok {
		delete(m.executions, id)
	}
	return ok, nil
}

// Clear removes all entries. Subscribers are not notified.
func (m *Memory) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.executions = make(map[string]trace.Execution)
	return nil
}

// FindAll returns the filtered, sorted, paginated executions.
func (m *Memory) FindAll(opts QueryOptions) ([]trace.Execution, error) {
	m.mu.RLock()
	snapshot := make([]trace.Execution, 0, len(m.executions))
	for _, exec := range m.executions {
		snapshot = append(snapshot, exec)
	}
	m.mu.RUnlock()

	page := ApplyQuery(snapshot, opts)
	out := make([]trace.Execution, len(page))
	for i, exec := range page {
		out[i] = exec.Clone()
	}
	return out, nil
}

// FindByStatus is shorthand for FindAll with a status filter.
func (m *Memory) FindByStatus(status trace.Status) ([]trace.Execution, error) {
	return m.FindAll(QueryOptions{Status: status})
}

// FindByTags is shorthand for FindAll with a tags filter (ANY-of).
func (m *Memory) FindByTags(tags []string) ([]trace.Execution, error) {
	return m.FindAll(QueryOptions{Tags: tags})
}

// FindByTimeRange is shorthand for FindAll with inclusive start-time bounds.
func (m *Memory) FindByTimeRange(from, to time.Time) ([]trace.Execution, error) {
	return m.FindAll(QueryOptions{FromTime: from, ToTime: to})
}

// Count returns the total number of stored executions.
func (m *Memory) Count() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.executions), nil
}

// CountByStatus returns a count per status, all four keys always present.
func (m *Memory) CountByStatus() (map[trace.Status]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := make(map[trace.Status]int, len(trace.Statuses))
	for _, s := range trace.Statuses {
		counts[s] = 0
	}
	for _, exec := range m.executions {
		counts[exec.Status]++
	}
	return counts, nil
}

// Subscribe registers an observer invoked on every Save.
func (m *Memory) Subscribe(fn Subscriber) func() {
	m.mu.Lock()
	m.nextSubID++
	id := m.nextSubID
	m.subs[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// notify invokes one subscriber, isolating panics so one failing callback
// cannot prevent the rest from running or corrupt the store.
func (m *Memory) notify(fn Subscriber, exec trace.Execution) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("subscriber panicked", "execution", exec.ID, "panic", r)
		}
	}()
	fn(exec)
}
