package history

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Schema is the SQL DDL for the practice history tables. Execute it via
// [PostgresStore.Migrate] or apply it manually during deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS practice_sessions (
    id          BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    user_id     TEXT NOT NULL,
    brand_id    TEXT NOT NULL DEFAULT '',
    brand_name  TEXT NOT NULL DEFAULT '',
    transcript  TEXT NOT NULL DEFAULT '',
    accuracy    INT NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_practice_sessions_user ON practice_sessions(user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS user_progress (
    user_id          TEXT PRIMARY KEY,
    total_sessions   INT NOT NULL DEFAULT 0,
    average_accuracy DOUBLE PRECISION NOT NULL DEFAULT 0,
    best_accuracy    INT NOT NULL DEFAULT 0,
    streak           INT NOT NULL DEFAULT 0,
    updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// DB is the database interface used by [PostgresStore]. Both *pgxpool.Pool
// and *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
}

// PostgresStore is a [Store] backed by a PostgreSQL database.
type PostgresStore struct {
	db DB
}

// Compile-time interface check.
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a [PostgresStore] that uses the given connection
// or pool. Call [PostgresStore.Migrate] before issuing queries to ensure the
// schema exists.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate executes the [Schema] DDL against the database, creating the
// practice_sessions and user_progress tables if they do not already exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.Exec(ctx, Schema)
	if err != nil {
		return fmt.Errorf("history: migrate: %w", err)
	}
	return nil
}

// RecordSession inserts the session and updates the user's progress row in a
// single upsert. The progress update mirrors [applySession]: rolling average,
// best score, and streak reset below [StreakThreshold].
func (s *PostgresStore) RecordSession(ctx context.Context, sess *Session) error {
	const insertSession = `
		INSERT INTO practice_sessions (user_id, brand_id, brand_name, transcript, accuracy)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := s.db.QueryRow(ctx, insertSession,
		sess.UserID, sess.BrandID, sess.BrandName, sess.Transcript, sess.Accuracy,
	).Scan(&sess.ID, &sess.CreatedAt)
	if err != nil {
		return fmt.Errorf("history: record session: %w", err)
	}

	const upsertProgress = `
		INSERT INTO user_progress (user_id, total_sessions, average_accuracy, best_accuracy, streak, updated_at)
		VALUES ($1, 1, $2, $2, CASE WHEN $2 >= $3 THEN 1 ELSE 0 END, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			average_accuracy = (user_progress.average_accuracy * user_progress.total_sessions + $2)
				/ (user_progress.total_sessions + 1),
			total_sessions = user_progress.total_sessions + 1,
			best_accuracy = GREATEST(user_progress.best_accuracy, $2),
			streak = CASE WHEN $2 >= $3 THEN user_progress.streak + 1 ELSE 0 END,
			updated_at = $4`

	_, err = s.db.Exec(ctx, upsertProgress,
		sess.UserID, sess.Accuracy, StreakThreshold, sess.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("history: update progress: %w", err)
	}
	return nil
}

// Sessions returns the user's most recent sessions, newest first. A limit
// <= 0 returns all of them.
func (s *PostgresStore) Sessions(ctx context.Context, userID string, limit int) ([]Session, error) {
	const base = `
		SELECT id, user_id, brand_id, brand_name, transcript, accuracy, created_at
		FROM practice_sessions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC`

	var (
		rows pgx.Rows
		err  error
	)
	if limit > 0 {
		rows, err = s.db.Query(ctx, base+` LIMIT $2`, userID, limit)
	} else {
		rows, err = s.db.Query(ctx, base, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("history: sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var sess Session
		if err := rows.Scan(
			&sess.ID, &sess.UserID, &sess.BrandID, &sess.BrandName,
			&sess.Transcript, &sess.Accuracy, &sess.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("history: sessions scan: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: sessions: %w", err)
	}
	return sessions, nil
}

// Progress returns the user's aggregated progress. It returns (nil, nil)
// when no progress row exists for the user.
func (s *PostgresStore) Progress(ctx context.Context, userID string) (*Progress, error) {
	const query = `
		SELECT user_id, total_sessions, average_accuracy, best_accuracy, streak, updated_at
		FROM user_progress
		WHERE user_id = $1`

	var p Progress
	err := s.db.QueryRow(ctx, query, userID).Scan(
		&p.UserID, &p.TotalSessions, &p.AverageAccuracy,
		&p.BestAccuracy, &p.Streak, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("history: progress %q: %w", userID, err)
	}
	return &p, nil
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("history: ping: %w", err)
	}
	return nil
}
