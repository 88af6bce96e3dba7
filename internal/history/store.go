// Package history persists one row per session backed by SQLite, so an
// operator can audit which texts ran, how many layer advances completed,
// and how each run ended.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema
// changes; operators clear the database after a bump.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the
// expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// ErrNotFound indicates no session row matches the requested ID.
var ErrNotFound = errors.New("session not found")

// Outcome values recorded when a session ends.
const (
	OutcomeStopped = "stopped"
	OutcomeFailed  = "failed"
)

// Session is one recorded run.
type Session struct {
	ID              string
	StartedAt       time.Time
	EndedAt         time.Time
	TriggerDevice   string
	Copies          int
	Lines           [3]string
	ArtifactCount   int
	LayersCompleted int
	Outcome         string
	Error           string
}

// Active reports whether the session has not ended yet.
func (s Session) Active() bool {
	return s.EndedAt.IsZero()
}

// Store manages session persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	err = s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to reset)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// Begin records a newly started session.
func (s *Store) Begin(ctx context.Context, sess Session) error {
	if strings.TrimSpace(sess.ID) == "" {
		return errors.New("history: session ID cannot be empty")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, started_at, trigger_device, copies, line1, line2, line3, artifact_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID,
		sess.StartedAt.UTC().Format(time.RFC3339Nano),
		sess.TriggerDevice,
		sess.Copies,
		sess.Lines[0], sess.Lines[1], sess.Lines[2],
		sess.ArtifactCount,
	)
	if err != nil {
		return fmt.Errorf("history: insert session: %w", err)
	}
	return nil
}

// Finish records how a session ended. errMsg is empty for a clean stop.
func (s *Store) Finish(ctx context.Context, id, outcome, errMsg string, layersCompleted int) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET ended_at = ?, outcome = ?, error = ?, layers_completed = ?
		WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano),
		outcome,
		errMsg,
		layersCompleted,
		id,
	)
	if err != nil {
		return fmt.Errorf("history: finish session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("history: finish session: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("history: finish session %s: %w", id, ErrNotFound)
	}
	return nil
}

// Get returns one session by ID.
func (s *Store) Get(ctx context.Context, id string) (Session, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+" WHERE id = ?", id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("history: session %s: %w", id, ErrNotFound)
	}
	return sess, err
}

// List returns the most recent sessions, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, selectColumns+" ORDER BY started_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("history: list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: list sessions: %w", err)
	}
	return sessions, nil
}

// Prune deletes ended sessions older than the cutoff and reports how many
// rows were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM sessions WHERE ended_at IS NOT NULL AND started_at < ?",
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("history: prune sessions: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("history: prune sessions: %w", err)
	}
	return affected, nil
}

const selectColumns = `
	SELECT id, started_at, ended_at, trigger_device, copies, line1, line2, line3,
	       artifact_count, layers_completed, outcome, error
	FROM sessions`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (Session, error) {
	var (
		sess    Session
		started string
		ended   sql.NullString
	)
	err := row.Scan(
		&sess.ID, &started, &ended, &sess.TriggerDevice, &sess.Copies,
		&sess.Lines[0], &sess.Lines[1], &sess.Lines[2],
		&sess.ArtifactCount, &sess.LayersCompleted, &sess.Outcome, &sess.Error,
	)
	if err != nil {
		return Session{}, err
	}
	sess.StartedAt, err = time.Parse(time.RFC3339Nano, started)
	if err != nil {
		return Session{}, fmt.Errorf("history: parse started_at: %w", err)
	}
	if ended.Valid && ended.String != "" {
		sess.EndedAt, err = time.Parse(time.RFC3339Nano, ended.String)
		if err != nil {
			return Session{}, fmt.Errorf("history: parse ended_at: %w", err)
		}
	}
	return sess, nil
}
