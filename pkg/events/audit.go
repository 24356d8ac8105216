package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// Audit appends events to a SQLite table for after-the-fact review.
// It satisfies the bus Handler contract through its Sink method.
type Audit struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *slog.Logger

	insertStmt *sql.Stmt
	closeOnce  sync.Once
}

// Query filters an audit listing. Zero values match everything.
type Query struct {
	// Type restricts results to one event kind.
	Type Type

	// Since restricts results to events at or after this time.
	Since time.Time

	// Until restricts results to events before this time.
	Until time.Time

	// Limit caps the number of returned events. 0 means no cap.
	Limit int
}

// NewAudit opens (or creates) the audit database at path.
func NewAudit(path string) (*Audit, error) {
	if path == "" {
		return nil, fmt.Errorf("audit db path cannot be empty")
	}

	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}
	db.SetMaxOpenConns(1)

	a := &Audit{
		db:     db,
		logger: slog.Default().With("component", "events.audit"),
	}

	if err := a.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize audit schema: %w", err)
	}

	a.insertStmt, err = db.Prepare(`
		INSERT INTO guard_events (id, type, occurred_at, scope, subject, operation, actor, reason, fields)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare insert statement: %w", err)
	}

	return a, nil
}

func (a *Audit) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS guard_events (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		occurred_at INTEGER NOT NULL,
		scope TEXT,
		subject TEXT,
		operation TEXT,
		actor TEXT,
		reason TEXT,
		fields TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_guard_events_type ON guard_events(type);
	CREATE INDEX IF NOT EXISTS idx_guard_events_time ON guard_events(occurred_at);
	`
	_, err := a.db.Exec(schema)
	return err
}

// Append writes one event to the audit table.
func (a *Audit) Append(ctx context.Context, e Event) error {
	var fieldsJSON []byte
	if len(e.Fields) > 0 {
		var err error
		fieldsJSON, err = json.Marshal(e.Fields)
		if err != nil {
			return fmt.Errorf("failed to marshal event fields: %w", err)
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	_, err := a.insertStmt.ExecContext(ctx,
		e.ID,
		string(e.Type),
		e.Time.UnixNano(),
		e.Scope,
		e.Subject,
		e.Operation,
		e.Actor,
		e.Reason,
		string(fieldsJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

// Sink returns a bus handler that appends events to the audit table.
// Append failures are logged, never propagated to the publisher.
func (a *Audit) Sink() Handler {
	return func(e Event) {
		if err := a.Append(context.Background(), e); err != nil {
			a.logger.Error("failed to record audit event",
				"event_id", e.ID,
				"event_type", string(e.Type),
				"error", err,
			)
		}
	}
}

// List returns events matching the query, newest first.
func (a *Audit) List(ctx context.Context, q Query) ([]Event, error) {
	sqlStr := `
		SELECT id, type, occurred_at, scope, subject, operation, actor, reason, fields
		FROM guard_events
		WHERE 1=1
	`
	var args []any
	if q.Type != "" {
		sqlStr += " AND type = ?"
		args = append(args, string(q.Type))
	}
	if !q.Since.IsZero() {
		sqlStr += " AND occurred_at >= ?"
		args = append(args, q.Since.UnixNano())
	}
	if !q.Until.IsZero() {
		sqlStr += " AND occurred_at < ?"
		args = append(args, q.Until.UnixNano())
	}
	sqlStr += " ORDER BY occurred_at DESC"
	if q.Limit > 0 {
		sqlStr += " LIMIT ?"
		args = append(args, q.Limit)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	rows, err := a.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			e          Event
			typ        string
			occurredAt int64
			fieldsJSON sql.NullString
		)
		if err := rows.Scan(&e.ID, &typ, &occurredAt, &e.Scope, &e.Subject, &e.Operation, &e.Actor, &e.Reason, &fieldsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Type = Type(typ)
		e.Time = time.Unix(0, occurredAt)
		if fieldsJSON.Valid && fieldsJSON.String != "" {
			if err := json.Unmarshal([]byte(fieldsJSON.String), &e.Fields); err != nil {
				return nil, fmt.Errorf("failed to unmarshal event fields: %w", err)
			}
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}

	return out, nil
}

// Close releases the audit database. Close is idempotent.
func (a *Audit) Close() error {
	var closeErr error
	a.closeOnce.Do(func() {
		if a.insertStmt != nil {
			a.insertStmt.Close()
		}
		if a.db != nil {
			closeErr = a.db.Close()
		}
	})
	return closeErr
}
