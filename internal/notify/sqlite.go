package notify

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteLog records escalation requests in SQLite so they survive restarts
// and can be worked through by helpers. Sessions themselves stay in memory;
// only escalations are durable.
type SQLiteLog struct {
	db *sql.DB
}

var _ Notifier = (*SQLiteLog)(nil)

// NewSQLiteLog opens (and if needed creates) the escalation database.
func NewSQLiteLog(dsn string) (*SQLiteLog, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open escalation database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection so the schema is visible across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	l := &SQLiteLog{db: db}
	if err := l.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate escalation database: %w", err)
	}
	return l, nil
}

func (l *SQLiteLog) migrate() error {
	_, err := l.db.Exec(`CREATE TABLE IF NOT EXISTS escalations (
		escalation_id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		phone TEXT,
		transcript TEXT NOT NULL,
		requested_at DATETIME NOT NULL
	)`)
	return err
}

// NotifyHumanHelp persists the escalation request.
func (l *SQLiteLog) NotifyHumanHelp(ctx context.Context, req *Request) error {
	transcript, err := json.Marshal(req.Transcript)
	if err != nil {
		return fmt.Errorf("failed to marshal transcript: %w", err)
	}

	_, err = l.db.ExecContext(ctx,
		`INSERT INTO escalations (escalation_id, session_id, phone, transcript, requested_at) VALUES (?, ?, ?, ?, ?)`,
		"esc_"+uuid.New().String()[:8], req.SessionID, req.Phone, string(transcript), time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to record escalation: %w", err)
	}
	return nil
}

// Pending returns how many escalations are recorded for a session.
func (l *SQLiteLog) Pending(ctx context.Context, sessionID string) (int, error) {
	var count int
	err := l.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM escalations WHERE session_id = ?`, sessionID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count escalations: %w", err)
	}
	return count, nil
}

// Close closes the underlying database.
func (l *SQLiteLog) Close() error {
	return l.db.Close()
}
