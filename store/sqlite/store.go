package sqlite

import (
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/openlens/glassbox/store"
	"github.com/openlens/glassbox/trace"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - Initial schema
const currentSchemaVersion = 1

// Store is the SQLite-backed execution store. Use Open to create one and
// Close when done. Safe for concurrent use; writes serialize on a single
// connection, reads run concurrently under WAL.
type Store struct {
	db     *sql.DB
	logger *slog.Logger

	mu        sync.Mutex
	subs      map[int]store.Subscriber
	nextSubID int
}

var _ store.Store = (*Store)(nil)

// Open creates or opens a SQLite database at the given path (":memory:"
// for an ephemeral database). Applies required pragmas and the schema.
// Idempotent - safe to call on an existing database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite supports one writer at a time; a single connection avoids
	// SQLITE_BUSY under concurrent saves.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{
		db:     db,
		logger: slog.Default(),
		subs:   make(map[int]store.Subscriber),
	}, nil
}

// WithLogger sets the logger used for isolated subscriber failures and
// returns the store for chaining during construction.
func (s *Store) WithLogger(logger *slog.Logger) *Store {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save upserts the execution by id, overwriting the row wholesale, then
// synchronously notifies every active subscriber.
func (s *Store) Save(exec trace.Execution) error {
	if exec.ID == "" {
		return fmt.Errorf("save execution: empty id")
	}

	payload, err := json.Marshal(exec)
	if err != nil {
		return fmt.Errorf("save execution: marshal: %w", err)
	}
	tags, err := json.Marshal(exec.Tags)
	if err != nil {
		return fmt.Errorf("save execution: marshal tags: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO executions (id, name, status, start_time, end_time, tags, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			status = excluded.status,
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			tags = excluded.tags,
			payload = excluded.payload
	`,
		exec.ID,
		exec.Name,
		string(exec.Status),
		timeColumn(exec.StartTime),
		timeColumn(exec.EndTime),
		string(tags),
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("save execution: %w", err)
	}

	s.mu.Lock()
	subs := make([]store.Subscriber, 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		s.notify(fn, exec.Clone())
	}
	return nil
}

// Get returns the execution with the given id, or found=false.
func (s *Store) Get(id string) (trace.Execution, bool, error) {
	var payload string
	err := s.db.QueryRow(`SELECT payload FROM executions WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return trace.Execution{}, false, nil
	}
	if err != nil {
		return trace.Execution{}, false, fmt.Errorf("get execution: %w", err)
	}

	var exec trace.Execution
	if err := json.Unmarshal([]byte(payload), &exec); err != nil {
		return trace.Execution{}, false, fmt.Errorf("get execution %s: unmarshal: %w", id, err)
	}
	return exec, true, nil
}

// Delete removes the execution if present.
func (s *Store) Delete(id string) (bool, error) {
	result, err := s.db.Exec(`DELETE FROM executions WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete execution: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete execution: rows affected: %w", err)
	}
	return n > 0, nil
}

// Clear removes all entries. Subscribers are not notified.
func (s *Store) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM executions`); err != nil {
		return fmt.Errorf("clear executions: %w", err)
	}
	return nil
}

// FindAll returns the filtered, sorted, paginated executions. Status and
// time-range filters prefilter in SQL; tags, ordering, and pagination run
// through the shared query engine for exact parity with the memory store.
func (s *Store) FindAll(opts store.QueryOptions) ([]trace.Execution, error) {
	query := `SELECT payload FROM executions`
	var conds []string
	var args []any
	if opts.Status != "" {
		conds = append(conds, `status = ?`)
		args = append(args, string(opts.Status))
	}
	if !opts.FromTime.IsZero() {
		conds = append(conds, `start_time >= ?`)
		args = append(args, timeColumn(opts.FromTime))
	}
	if !opts.ToTime.IsZero() {
		conds = append(conds, `start_time <= ?`)
		args = append(args, timeColumn(opts.ToTime))
	}
	for i, cond := range conds {
		if i == 0 {
			query += ` WHERE ` + cond
		} else {
			query += ` AND ` + cond
		}
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("find executions: %w", err)
	}
	defer rows.Close()

	var execs []trace.Execution
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("find executions: scan: %w", err)
		}
		var exec trace.Execution
		if err := json.Unmarshal([]byte(payload), &exec); err != nil {
			return nil, fmt.Errorf("find executions: unmarshal: %w", err)
		}
		execs = append(execs, exec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find executions: %w", err)
	}

	return store.ApplyQuery(execs, opts), nil
}

// FindByStatus is shorthand for FindAll with a status filter.
func (s *Store) FindByStatus(status trace.Status) ([]trace.Execution, error) {
	return s.FindAll(store.QueryOptions{Status: status})
}

// FindByTags is shorthand for FindAll with a tags filter (ANY-of).
func (s *Store) FindByTags(tags []string) ([]trace.Execution, error) {
	return s.FindAll(store.QueryOptions{Tags: tags})
}

// FindByTimeRange is shorthand for FindAll with inclusive start-time bounds.
func (s *Store) FindByTimeRange(from, to time.Time) ([]trace.Execution, error) {
	return s.FindAll(store.QueryOptions{FromTime: from, ToTime: to})
}

// Count returns the total number of stored executions.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM executions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count executions: %w", err)
	}
	return n, nil
}

// CountByStatus returns a count per status, all four keys always present.
func (s *Store) CountByStatus() (map[trace.Status]int, error) {
	counts := make(map[trace.Status]int, len(trace.Statuses))
	for _, st := range trace.Statuses {
		counts[st] = 0
	}

	rows, err := s.db.Query(`SELECT status, COUNT(*) FROM executions GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("count by status: scan: %w", err)
		}
		counts[trace.Status(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	return counts, nil
}

// Subscribe registers an observer invoked on every Save on this instance.
func (s *Store) Subscribe(fn store.Subscriber) func() {
	s.mu.Lock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Store) notify(fn store.Subscriber, exec trace.Execution) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("subscriber panicked", "execution", exec.ID, "panic", r)
		}
	}()
	fn(exec)
}

// timeColumn encodes a timestamp for the indexed columns. The zero time
// encodes as 0 so unfinished executions keep the documented
// sorts-as-earliest convention at the SQL layer too.
func timeColumn(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// applySchema creates tables if they don't exist. Idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}
