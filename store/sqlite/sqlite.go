/*
Package sqlite provides a SQLite-backed implementation of the workload store.

PURPOSE:
  Implements workload.Store using SQLite, plus workload.Reassigner so that
  the assignment rows and the case owner pointer of one destination group
  are written in a single database transaction.

INTERFACES IMPLEMENTED:
  workload.RosterStore:     Worker list and status
  workload.AssignmentStore: Assignment rows
  workload.FollowUpStore:   Review obligations (read-only)
  workload.CaseStore:       Case owner pointer
  workload.HistoryStore:    Append-only audit trail
  workload.Reassigner:      Batch write in one transaction

KEY TABLES:
  workers:     Provisioned externally; only status is written by the engine
  cases:       owner_id mirrors the active assignment
  assignments: One active row per case at most
  follow_ups:  Read by the daily-review selector
  history:     Append-only; details stored as JSON

TIMESTAMPS:
  Stored as fixed-width UTC text so that ORDER BY on the column matches
  chronological order.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety, WAL mode for readers.

USAGE:
  store, err := sqlite.New("./data/caseload.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine, err := workload.New(store)

SEE ALSO:
  - workload/store.go: Interface definitions
  - workload/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/caseload-engine/workload"
)

const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var ErrDuplicateAssignment = errors.New("assignment already exists")

// Store implements workload.Store and workload.Reassigner.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var (
	_ workload.Store      = (*Store)(nil)
	_ workload.Reassigner = (*Store)(nil)
)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// each connection would get its own empty database
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS workers (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_workers_status ON workers(status);

	CREATE TABLE IF NOT EXISTS cases (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		owner_id TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_cases_owner ON cases(owner_id);

	CREATE TABLE IF NOT EXISTS assignments (
		id TEXT PRIMARY KEY,
		case_id TEXT NOT NULL,
		worker_id TEXT NOT NULL,
		status TEXT NOT NULL,
		priority INTEGER NOT NULL DEFAULT 0,
		assigned_at TEXT NOT NULL,
		assignment_type TEXT NOT NULL,
		assigned_by TEXT NOT NULL
	);

	-- Load counting and candidate selection (hot path)
	CREATE INDEX IF NOT EXISTS idx_assignments_worker_status
		ON assignments(worker_id, status);
	CREATE INDEX IF NOT EXISTS idx_assignments_case
		ON assignments(case_id);
	CREATE INDEX IF NOT EXISTS idx_assignments_assigned_at
		ON assignments(assigned_at, id);

	CREATE TABLE IF NOT EXISTS follow_ups (
		id TEXT PRIMARY KEY,
		case_id TEXT NOT NULL,
		status TEXT NOT NULL,
		priority TEXT NOT NULL,
		last_reviewed_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_follow_ups_case ON follow_ups(case_id);

	CREATE TABLE IF NOT EXISTS history (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		actor_id TEXT,
		subject_id TEXT NOT NULL DEFAULT '',
		action TEXT NOT NULL,
		details_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_history_subject
		ON history(subject_id, created_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// =============================================================================
// SEEDING (workers, cases and follow-ups are provisioned outside the engine)
// =============================================================================

// SaveWorker creates or updates a worker.
func (s *Store) SaveWorker(ctx context.Context, w workload.Worker) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if w.Status == "" {
		w.Status = workload.WorkerActive
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO workers (id, email, status, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET email = excluded.email, status = excluded.status
	`, w.ID, w.Email, w.Status, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("failed to save worker: %w", err)
	}
	return nil
}

// SaveCase creates or updates a case.
func (s *Store) SaveCase(ctx context.Context, c workload.Case) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var owner sql.NullString
	if c.OwnerID != nil {
		owner = nullString(string(*c.OwnerID))
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cases (id, title, owner_id, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET title = excluded.title, owner_id = excluded.owner_id
	`, c.ID, c.Title, owner, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("failed to save case: %w", err)
	}
	return nil
}

// SaveAssignment inserts one row and, when it is active, points its case at
// the worker. Both writes share a transaction.
func (s *Store) SaveAssignment(ctx context.Context, a workload.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertAssignments(ctx, tx, []workload.Assignment{a}); err != nil {
		return err
	}
	if a.IsActive() {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO cases (id, title, owner_id, created_at) VALUES (?, '', ?, ?)
			ON CONFLICT(id) DO UPDATE SET owner_id = excluded.owner_id
		`, a.CaseID, a.WorkerID, formatTime(time.Now())); err != nil {
			return fmt.Errorf("failed to update case owner: %w", err)
		}
	}
	return tx.Commit()
}

// SaveFollowUp creates or updates a follow-up.
func (s *Store) SaveFollowUp(ctx context.Context, f workload.FollowUp) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var reviewed sql.NullString
	if f.LastReviewedAt != nil {
		reviewed = nullString(formatTime(*f.LastReviewedAt))
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO follow_ups (id, case_id, status, priority, last_reviewed_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET status = excluded.status,
			priority = excluded.priority, last_reviewed_at = excluded.last_reviewed_at
	`, f.ID, f.CaseID, f.Status, f.Priority, reviewed)
	if err != nil {
		return fmt.Errorf("failed to save follow-up: %w", err)
	}
	return nil
}

// SetAssignmentStatus closes or reopens an assignment. Case management
// outside the engine owns this transition.
func (s *Store) SetAssignmentStatus(ctx context.Context, id workload.AssignmentID, status workload.AssignmentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "UPDATE assignments SET status = ? WHERE id = ?", status, id)
	if err != nil {
		return fmt.Errorf("failed to set assignment status: %w", err)
	}
	return nil
}

// GetCase returns nil, nil when the case does not exist.
func (s *Store) GetCase(ctx context.Context, id workload.CaseID) (*workload.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		c     workload.Case
		owner sql.NullString
	)
	err := s.db.QueryRowContext(ctx, "SELECT id, title, owner_id FROM cases WHERE id = ?", id).
		Scan(&c.ID, &c.Title, &owner)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get case: %w", err)
	}
	if owner.Valid {
		w := workload.WorkerID(owner.String)
		c.OwnerID = &w
	}
	return &c, nil
}

// ListCases returns every case ordered by id.
func (s *Store) ListCases(ctx context.Context) ([]workload.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT id, title, owner_id FROM cases ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query cases: %w", err)
	}
	defer rows.Close()

	var cases []workload.Case
	for rows.Next() {
		var (
			c     workload.Case
			owner sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.Title, &owner); err != nil {
			return nil, fmt.Errorf("failed to scan case: %w", err)
		}
		if owner.Valid {
			w := workload.WorkerID(owner.String)
			c.OwnerID = &w
		}
		cases = append(cases, c)
	}
	return cases, rows.Err()
}

// =============================================================================
// ROSTER STORE
// =============================================================================

func (s *Store) ListWorkers(ctx context.Context, filter workload.WorkerFilter) ([]workload.Worker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT id, email, status FROM workers"
	var args []any
	if filter.Status != nil {
		query += " WHERE status = ?"
		args = append(args, *filter.Status)
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query workers: %w", err)
	}
	defer rows.Close()

	var workers []workload.Worker
	for rows.Next() {
		var w workload.Worker
		if err := rows.Scan(&w.ID, &w.Email, &w.Status); err != nil {
			return nil, fmt.Errorf("failed to scan worker: %w", err)
		}
		workers = append(workers, w)
	}
	return workers, rows.Err()
}

func (s *Store) GetWorker(ctx context.Context, id workload.WorkerID) (*workload.Worker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var w workload.Worker
	err := s.db.QueryRowContext(ctx, "SELECT id, email, status FROM workers WHERE id = ?", id).
		Scan(&w.ID, &w.Email, &w.Status)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get worker: %w", err)
	}
	return &w, nil
}

func (s *Store) UpdateWorkerStatus(ctx context.Context, id workload.WorkerID, status workload.WorkerStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "UPDATE workers SET status = ? WHERE id = ?", status, id)
	if err != nil {
		return fmt.Errorf("failed to update worker status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("worker %s not found", id)
	}
	return nil
}

// =============================================================================
// ASSIGNMENT STORE
// =============================================================================

func (s *Store) ListAssignments(ctx context.Context, filter workload.AssignmentFilter) ([]workload.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	where, args := assignmentWhere(filter)
	query := `
		SELECT id, case_id, worker_id, status, priority, assigned_at, assignment_type, assigned_by
		FROM assignments` + where + `
		ORDER BY assigned_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	defer rows.Close()

	var out []workload.Assignment
	for rows.Next() {
		var (
			a          workload.Assignment
			assignedAt string
		)
		if err := rows.Scan(&a.ID, &a.CaseID, &a.WorkerID, &a.Status, &a.Priority,
			&assignedAt, &a.Type, &a.AssignedBy); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		if a.AssignedAt, err = parseTime(assignedAt); err != nil {
			return nil, fmt.Errorf("assignment %s assigned_at: %w", a.ID, err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) CountAssignments(ctx context.Context, filter workload.AssignmentFilter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	where, args := assignmentWhere(filter)
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM assignments"+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count assignments: %w", err)
	}
	return n, nil
}

func (s *Store) UpdateAssignments(ctx context.Context, ids []workload.AssignmentID, fields workload.AssignmentUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateAssignments(ctx, s.db, ids, fields)
}

func (s *Store) InsertAssignments(ctx context.Context, rows []workload.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertAssignments(ctx, tx, rows); err != nil {
		return err
	}
	return tx.Commit()
}

func assignmentWhere(filter workload.AssignmentFilter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if filter.WorkerID != nil {
		clauses = append(clauses, "worker_id = ?")
		args = append(args, *filter.WorkerID)
	}
	if filter.Status != nil {
		clauses = append(clauses, "status = ?")
		args = append(args, *filter.Status)
	}
	if len(filter.CaseIDs) > 0 {
		clauses = append(clauses, "case_id IN ("+placeholders(len(filter.CaseIDs))+")")
		for _, id := range filter.CaseIDs {
			args = append(args, id)
		}
	}
	if len(filter.IDs) > 0 {
		clauses = append(clauses, "id IN ("+placeholders(len(filter.IDs))+")")
		for _, id := range filter.IDs {
			args = append(args, id)
		}
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func updateAssignments(ctx context.Context, db execer, ids []workload.AssignmentID, fields workload.AssignmentUpdate) error {
	if len(ids) == 0 {
		return nil
	}
	args := []any{fields.WorkerID, fields.Type, fields.AssignedBy, formatTime(fields.AssignedAt)}
	for _, id := range ids {
		args = append(args, id)
	}
	_, err := db.ExecContext(ctx, `
		UPDATE assignments
		SET worker_id = ?, assignment_type = ?, assigned_by = ?, assigned_at = ?
		WHERE id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return fmt.Errorf("failed to update assignments: %w", err)
	}
	return nil
}

func insertAssignments(ctx context.Context, db execer, rows []workload.Assignment) error {
	for _, a := range rows {
		_, err := db.ExecContext(ctx, `
			INSERT INTO assignments
			(id, case_id, worker_id, status, priority, assigned_at, assignment_type, assigned_by)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, a.ID, a.CaseID, a.WorkerID, a.Status, a.Priority, formatTime(a.AssignedAt), a.Type, a.AssignedBy)
		if err != nil {
			if isUniqueConstraintError(err) {
				return fmt.Errorf("%w: %s", ErrDuplicateAssignment, a.ID)
			}
			return fmt.Errorf("failed to insert assignment: %w", err)
		}
	}
	return nil
}

// =============================================================================
// FOLLOW-UP AND CASE STORE
// =============================================================================

func (s *Store) ListFollowUps(ctx context.Context, filter workload.FollowUpFilter) ([]workload.FollowUp, error) {
	if len(filter.CaseIDs) == 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT id, case_id, status, priority, last_reviewed_at FROM follow_ups WHERE case_id IN (" +
		placeholders(len(filter.CaseIDs)) + ")"
	var args []any
	for _, id := range filter.CaseIDs {
		args = append(args, id)
	}
	if len(filter.Statuses) > 0 {
		query += " AND status IN (" + placeholders(len(filter.Statuses)) + ")"
		for _, st := range filter.Statuses {
			args = append(args, st)
		}
	}
	if len(filter.Priorities) > 0 {
		query += " AND priority IN (" + placeholders(len(filter.Priorities)) + ")"
		for _, p := range filter.Priorities {
			args = append(args, p)
		}
	}
	if filter.ReviewedBefore != nil {
		query += " AND (last_reviewed_at IS NULL OR last_reviewed_at < ?)"
		args = append(args, formatTime(*filter.ReviewedBefore))
	}
	query += " ORDER BY rowid"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query follow-ups: %w", err)
	}
	defer rows.Close()

	var out []workload.FollowUp
	for rows.Next() {
		var (
			f        workload.FollowUp
			reviewed sql.NullString
		)
		if err := rows.Scan(&f.ID, &f.CaseID, &f.Status, &f.Priority, &reviewed); err != nil {
			return nil, fmt.Errorf("failed to scan follow-up: %w", err)
		}
		if reviewed.Valid {
			t, err := parseTime(reviewed.String)
			if err != nil {
				return nil, fmt.Errorf("follow-up %s last_reviewed_at: %w", f.ID, err)
			}
			f.LastReviewedAt = &t
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *Store) UpdateCaseOwner(ctx context.Context, ids []workload.CaseID, worker workload.WorkerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateCaseOwner(ctx, s.db, ids, worker)
}

func updateCaseOwner(ctx context.Context, db execer, ids []workload.CaseID, worker workload.WorkerID) error {
	if len(ids) == 0 {
		return nil
	}
	args := []any{worker}
	for _, id := range ids {
		args = append(args, id)
	}
	_, err := db.ExecContext(ctx,
		"UPDATE cases SET owner_id = ? WHERE id IN ("+placeholders(len(ids))+")", args...)
	if err != nil {
		return fmt.Errorf("failed to update case owner: %w", err)
	}
	return nil
}

// =============================================================================
// REASSIGNER (workload.Reassigner interface)
// =============================================================================

// Reassign writes every assignment update, insert and owner pointer of the
// batch in one transaction.
func (s *Store) Reassign(ctx context.Context, b workload.ReassignBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := updateAssignments(ctx, tx, b.Update, b.Fields); err != nil {
		return err
	}
	if err := insertAssignments(ctx, tx, b.Insert); err != nil {
		return err
	}
	if err := updateCaseOwner(ctx, tx, b.CaseIDs, b.To); err != nil {
		return err
	}
	return tx.Commit()
}

// =============================================================================
// HISTORY STORE
// =============================================================================

func (s *Store) AppendHistory(ctx context.Context, e workload.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	details, err := json.Marshal(e.Details)
	if err != nil {
		return fmt.Errorf("failed to encode history details: %w", err)
	}
	var actor sql.NullString
	if e.ActorID != nil {
		actor = nullString(string(*e.ActorID))
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO history (id, actor_id, subject_id, action, details_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.ID, actor, e.SubjectID, e.Action, string(details), formatTime(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}
	return nil
}

func (s *Store) QueryHistory(ctx context.Context, filter workload.HistoryFilter) ([]workload.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT id, actor_id, subject_id, action, details_json, created_at FROM history"
	var (
		clauses []string
		args    []any
	)
	if filter.SubjectID != nil {
		clauses = append(clauses, "subject_id = ?")
		args = append(args, *filter.SubjectID)
	}
	if len(filter.Actions) > 0 {
		clauses = append(clauses, "action IN ("+placeholders(len(filter.Actions))+")")
		for _, a := range filter.Actions {
			args = append(args, a)
		}
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC, seq DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var out []workload.HistoryEntry
	for rows.Next() {
		var (
			e         workload.HistoryEntry
			actor     sql.NullString
			details   string
			createdAt string
		)
		if err := rows.Scan(&e.ID, &actor, &e.SubjectID, &e.Action, &details, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		if actor.Valid {
			id := workload.WorkerID(actor.String)
			e.ActorID = &id
		}
		if err := json.Unmarshal([]byte(details), &e.Details); err != nil {
			return nil, fmt.Errorf("failed to decode history %s: %w", e.ID, err)
		}
		if e.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("history %s created_at: %w", e.ID, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"history", "follow_ups", "assignments", "cases", "workers"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime reads a column written by formatTime. A malformed value is an
// error; a zero time would sort first and skew trimming order.
func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed timestamp %q: %w", s, err)
	}
	return t, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
