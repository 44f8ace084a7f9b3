// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Provides roster, embed state, and activity counter persistence with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// One connection: pragmas below are per-connection, and every pooled
	// connection to :memory: would otherwise see its own empty database.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
		now:    time.Now,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS members (
			actor_id   TEXT PRIMARY KEY,
			done       INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_members_created ON members(created_at, actor_id);

		CREATE TABLE IF NOT EXISTS embed_state (
			id         TEXT PRIMARY KEY,
			channel_id TEXT,
			message_id TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS activity_counters (
			scope_id   TEXT NOT NULL,
			actor_id   TEXT NOT NULL,
			period_key TEXT NOT NULL,
			count      INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,

			PRIMARY KEY (scope_id, actor_id, period_key),
			CHECK (count >= 0)
		);

		CREATE INDEX IF NOT EXISTS idx_activity_scope_period_count
			ON activity_counters(scope_id, period_key, count DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}

func (s *SQLiteStore) timestamp() string {
	return s.now().UTC().Format(timeLayout)
}

func parseTime(v string) (time.Time, error) {
	t, err := time.Parse(timeLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", v, err)
	}
	return t, nil
}

// UpsertMember creates the member or overwrites its completion flag.
func (s *SQLiteStore) UpsertMember(ctx context.Context, actorID string, done bool) error {
	ts := s.timestamp()
	query := `
		INSERT INTO members (actor_id, done, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(actor_id) DO UPDATE SET
			done = excluded.done,
			updated_at = excluded.updated_at
	`

	if _, err := s.db.ExecContext(ctx, query, actorID, boolToInt(done), ts, ts); err != nil {
		return fmt.Errorf("upserting member: %w", err)
	}

	s.logger.Debug("upserted member", "actor_id", actorID, "done", done)
	return nil
}

// SetMemberDone updates the completion flag of an existing member.
func (s *SQLiteStore) SetMemberDone(ctx context.Context, actorID string, done bool) (bool, error) {
	query := `UPDATE members SET done = ?, updated_at = ? WHERE actor_id = ?`

	result, err := s.db.ExecContext(ctx, query, boolToInt(done), s.timestamp(), actorID)
	if err != nil {
		return false, fmt.Errorf("updating member: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("getting rows affected: %w", err)
	}
	return rows > 0, nil
}

// SetAllDone sets the completion flag on every member.
func (s *SQLiteStore) SetAllDone(ctx context.Context, done bool) (int64, error) {
	query := `UPDATE members SET done = ?, updated_at = ? WHERE done != ?`

	result, err := s.db.ExecContext(ctx, query, boolToInt(done), s.timestamp(), boolToInt(done))
	if err != nil {
		return 0, fmt.Errorf("updating members: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("getting rows affected: %w", err)
	}

	s.logger.Debug("set all members", "done", done, "changed", rows)
	return rows, nil
}

// RemoveMember deletes a member.
func (s *SQLiteStore) RemoveMember(ctx context.Context, actorID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM members WHERE actor_id = ?`, actorID)
	if err != nil {
		return false, fmt.Errorf("deleting member: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("getting rows affected: %w", err)
	}
	return rows > 0, nil
}

// GetMember retrieves a member by actor id.
// Returns ErrNotFound if the member doesn't exist.
func (s *SQLiteStore) GetMember(ctx context.Context, actorID string) (*Member, error) {
	query := `
		SELECT actor_id, done, created_at, updated_at
		FROM members
		WHERE actor_id = ?
	`

	m, err := scanMember(s.db.QueryRowContext(ctx, query, actorID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// ListMembers returns every member in insertion order.
func (s *SQLiteStore) ListMembers(ctx context.Context) ([]*Member, error) {
	query := `
		SELECT actor_id, done, created_at, updated_at
		FROM members
		ORDER BY created_at ASC, rowid ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying members: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var members []*Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating member rows: %w", err)
	}
	return members, nil
}

// MemberExists reports whether the actor is on the roster.
func (s *SQLiteStore) MemberExists(ctx context.Context, actorID string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM members WHERE actor_id = ?`, actorID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking member: %w", err)
	}
	return true, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanMember(row rowScanner) (*Member, error) {
	var m Member
	var done int
	var createdAt, updatedAt string

	if err := row.Scan(&m.ActorID, &done, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning member: %w", err)
	}

	m.Done = done != 0

	var err error
	if m.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if m.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

// GetEmbedState returns the singleton embed state.
// Returns ErrNotFound if no sync has saved it yet.
func (s *SQLiteStore) GetEmbedState(ctx context.Context) (*EmbedState, error) {
	query := `
		SELECT id, channel_id, message_id, created_at, updated_at
		FROM embed_state
		WHERE id = ?
	`

	var st EmbedState
	var channelID, messageID sql.NullString
	var createdAt, updatedAt string

	err := s.db.QueryRowContext(ctx, query, EmbedStateID).Scan(
		&st.ID, &channelID, &messageID, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying embed state: %w", err)
	}

	st.ChannelID = channelID.String
	st.MessageID = messageID.String
	if st.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if st.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &st, nil
}

// SaveEmbedState writes the singleton embed state, creating it if needed.
// The ID on the passed state is ignored; the singleton key is always used.
func (s *SQLiteStore) SaveEmbedState(ctx context.Context, state *EmbedState) error {
	ts := s.timestamp()
	query := `
		INSERT INTO embed_state (id, channel_id, message_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			channel_id = excluded.channel_id,
			message_id = excluded.message_id,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		EmbedStateID,
		nullString(state.ChannelID),
		nullString(state.MessageID),
		ts, ts,
	)
	if err != nil {
		return fmt.Errorf("saving embed state: %w", err)
	}

	s.logger.Debug("saved embed state", "channel_id", state.ChannelID, "message_id", state.MessageID)
	return nil
}

// IncrementActivity adds one to the counter, creating it if needed.
func (s *SQLiteStore) IncrementActivity(ctx context.Context, key ActivityKey) (int64, error) {
	ts := s.timestamp()
	query := `
		INSERT INTO activity_counters (scope_id, actor_id, period_key, count, created_at, updated_at)
		VALUES (?, ?, ?, 1, ?, ?)
		ON CONFLICT(scope_id, actor_id, period_key) DO UPDATE SET
			count = count + 1,
			updated_at = excluded.updated_at
		RETURNING count
	`

	var count int64
	err := s.db.QueryRowContext(ctx, query, key.ScopeID, key.ActorID, key.PeriodKey, ts, ts).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("incrementing activity: %w", err)
	}
	return count, nil
}

// GetActivity returns the counter value, or zero when absent.
func (s *SQLiteStore) GetActivity(ctx context.Context, key ActivityKey) (int64, error) {
	query := `
		SELECT count FROM activity_counters
		WHERE scope_id = ? AND actor_id = ? AND period_key = ?
	`

	var count int64
	err := s.db.QueryRowContext(ctx, query, key.ScopeID, key.ActorID, key.PeriodKey).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("querying activity: %w", err)
	}
	return count, nil
}

// TopActivity lists the highest counters for a scope and period.
func (s *SQLiteStore) TopActivity(ctx context.Context, scopeID, periodKey string, limit int) ([]*ActivityCounter, error) {
	query := `
		SELECT scope_id, actor_id, period_key, count, updated_at
		FROM activity_counters
		WHERE scope_id = ? AND period_key = ?
		ORDER BY count DESC, actor_id ASC
		LIMIT ?
	`
	return s.queryCounters(ctx, query, scopeID, periodKey, limit)
}

// ListActivity lists every counter for a scope and period.
func (s *SQLiteStore) ListActivity(ctx context.Context, scopeID, periodKey string) ([]*ActivityCounter, error) {
	query := `
		SELECT scope_id, actor_id, period_key, count, updated_at
		FROM activity_counters
		WHERE scope_id = ? AND period_key = ?
		ORDER BY count DESC, actor_id ASC
	`
	return s.queryCounters(ctx, query, scopeID, periodKey)
}

func (s *SQLiteStore) queryCounters(ctx context.Context, query string, args ...any) ([]*ActivityCounter, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying activity: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var counters []*ActivityCounter
	for rows.Next() {
		var c ActivityCounter
		var updatedAt string
		if err := rows.Scan(&c.ScopeID, &c.ActorID, &c.PeriodKey, &c.Count, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning activity: %w", err)
		}
		if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		counters = append(counters, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating activity rows: %w", err)
	}
	return counters, nil
}

// ResetActivity deletes the counters for exactly one scope and period.
func (s *SQLiteStore) ResetActivity(ctx context.Context, scopeID, periodKey string) (int64, error) {
	query := `DELETE FROM activity_counters WHERE scope_id = ? AND period_key = ?`

	result, err := s.db.ExecContext(ctx, query, scopeID, periodKey)
	if err != nil {
		return 0, fmt.Errorf("resetting activity: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("getting rows affected: %w", err)
	}

	s.logger.Info("reset activity counters", "scope_id", scopeID, "period_key", periodKey, "deleted", rows)
	return rows, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
