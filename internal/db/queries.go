package db

import (
	"database/sql"
	"time"

	"github.com/hpungsan/coursesync/internal/errors"
)

// Run statuses.
const (
	StatusRunning = "running"
	StatusOK      = "ok"
	StatusPartial = "partial" // finished, some courses failed
	StatusFailed  = "failed"
)

// Event scopes.
const (
	ScopeCourse   = "course"
	ScopeMaterial = "material"
	ScopeDoc      = "doc"
	ScopePDF      = "pdf"
)

// Event outcomes.
const (
	OutcomeSynced        = "synced"
	OutcomeSkipped       = "skipped"
	OutcomeUnchanged     = "unchanged"
	OutcomeListingFailed = "listing_failed"
	OutcomeFetchFailed   = "fetch_failed"
	OutcomeParseFailed   = "parse_failed"
	OutcomeCached        = "cached"
)

// Run is one invocation of a batch operation.
type Run struct {
	ID         string `json:"id"`
	Kind       string `json:"kind"`
	Status     string `json:"status"`
	Courses    int    `json:"courses"`
	Failed     int    `json:"failed"`
	StartedAt  int64  `json:"started_at"`
	FinishedAt *int64 `json:"finished_at,omitempty"`
}

// Event is the outcome of one synchronized entry within a run.
type Event struct {
	ID        int64  `json:"id"`
	RunID     string `json:"run_id"`
	Course    string `json:"course"`
	Scope     string `json:"scope"`
	Key       string `json:"key,omitempty"`
	RemoteID  string `json:"remote_id,omitempty"`
	Outcome   string `json:"outcome"`
	Items     int    `json:"items"`
	Detail    string `json:"detail,omitempty"`
	CreatedAt int64  `json:"created_at"`
}

// InsertRun stores a new run in the running state.
func InsertRun(db *sql.DB, id, kind string, startedAt int64) error {
	query := `
		INSERT INTO runs (id, kind, status, started_at)
		VALUES (?, ?, ?, ?)
	`
	if _, err := db.Exec(query, id, kind, StatusRunning, startedAt); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// FinishRun records the totals and final status of a run.
func FinishRun(db *sql.DB, id, status string, courses, failed int) error {
	query := `
		UPDATE runs
		SET status = ?, courses = ?, failed = ?, finished_at = ?
		WHERE id = ?
	`
	result, err := db.Exec(query, status, courses, failed, time.Now().Unix(), id)
	if err != nil {
		return errors.NewInternal(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFound(id)
	}
	return nil
}

// InsertEvent appends an event to a run. CreatedAt defaults to now.
func InsertEvent(db *sql.DB, e *Event) error {
	if e.CreatedAt == 0 {
		e.CreatedAt = time.Now().Unix()
	}
	query := `
		INSERT INTO events (run_id, course, scope, key, remote_id, outcome, items, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := db.Exec(query,
		e.RunID, e.Course, e.Scope, toNullString(e.Key), toNullString(e.RemoteID),
		e.Outcome, e.Items, toNullString(e.Detail), e.CreatedAt,
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return errors.NewInternal(err)
	}
	e.ID = id
	return nil
}

// GetRun retrieves a run by id.
func GetRun(db *sql.DB, id string) (*Run, error) {
	query := `
		SELECT id, kind, status, courses, failed, started_at, finished_at
		FROM runs
		WHERE id = ?
	`
	r, err := scanRun(db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return r, nil
}

// ListRuns returns the most recent runs, newest first.
func ListRuns(db *sql.DB, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT id, kind, status, courses, failed, started_at, finished_at
		FROM runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`
	rows, err := db.Query(query, limit)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		runs = append(runs, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return runs, nil
}

// ListEvents returns a run's events in insertion order.
func ListEvents(db *sql.DB, runID string) ([]Event, error) {
	query := `
		SELECT id, run_id, course, scope, key, remote_id, outcome, items, detail, created_at
		FROM events
		WHERE run_id = ?
		ORDER BY id
	`
	rows, err := db.Query(query, runID)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		var (
			e        Event
			key      sql.NullString
			remoteID sql.NullString
			detail   sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.RunID, &e.Course, &e.Scope, &key, &remoteID,
			&e.Outcome, &e.Items, &detail, &e.CreatedAt); err != nil {
			return nil, errors.NewInternal(err)
		}
		e.Key = key.String
		e.RemoteID = remoteID.String
		e.Detail = detail.String
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return events, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanRun scans a single row into a Run struct.
func scanRun(row rowScanner) (*Run, error) {
	var (
		r          Run
		finishedAt sql.NullInt64
	)
	if err := row.Scan(&r.ID, &r.Kind, &r.Status, &r.Courses, &r.Failed, &r.StartedAt, &finishedAt); err != nil {
		return nil, err
	}
	if finishedAt.Valid {
		r.FinishedAt = &finishedAt.Int64
	}
	return &r, nil
}

// toNullString maps "" to NULL.
func toNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
