// Package store persists sessions and shot history with sqlx. Queries are
// written with ? placeholders and rebound for the connected driver, so the
// same code runs on Postgres and SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/playmatatu/billiards/internal/models"
)

var ErrNotFound = errors.New("not found")

// Store is the session and shot repository.
type Store struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for health checks.
func (s *Store) DB() *sqlx.DB { return s.db }

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	token TEXT NOT NULL UNIQUE,
	table_variant TEXT NOT NULL,
	mode TEXT NOT NULL,
	pin_hash TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	closed_at DATETIME
);

CREATE TABLE IF NOT EXISTS shots (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_token TEXT NOT NULL REFERENCES sessions(token),
	shot_number INTEGER NOT NULL,
	player INTEGER NOT NULL,
	power REAL NOT NULL,
	angle REAL NOT NULL,
	table_variant TEXT NOT NULL,
	fired_at DATETIME NOT NULL,
	settled_at DATETIME,
	pocketed TEXT NOT NULL DEFAULT '',
	cue_scratched INTEGER NOT NULL DEFAULT 0,
	ticks INTEGER NOT NULL DEFAULT 0,
	UNIQUE (session_token, shot_number)
);
CREATE INDEX IF NOT EXISTS idx_shots_session ON shots(session_token);
`

// EnsureSchema creates the SQLite tables if they are missing. Postgres is
// migrated with golang-migrate instead; see internal/migrations.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if s.db.DriverName() != "sqlite" {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("store: create schema: %w", err)
	}
	return nil
}

func (s *Store) q(query string) string {
	return s.db.Rebind(query)
}

// CreateSession inserts a session row and sets its ID.
func (s *Store) CreateSession(ctx context.Context, sess *models.Session) error {
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now().UTC()
	}
	err := s.db.QueryRowxContext(ctx, s.q(
		`INSERT INTO sessions (token, table_variant, mode, pin_hash, created_at)
		 VALUES (?, ?, ?, ?, ?) RETURNING id`),
		sess.Token, sess.TableVariant, sess.Mode, sess.PinHash, sess.CreatedAt,
	).Scan(&sess.ID)
	if err != nil {
		return fmt.Errorf("store: create session: %w", err)
	}
	return nil
}

// GetSession loads a session by token.
func (s *Store) GetSession(ctx context.Context, token string) (*models.Session, error) {
	var sess models.Session
	err := s.db.GetContext(ctx, &sess, s.q(
		`SELECT id, token, table_variant, mode, pin_hash, created_at, closed_at
		 FROM sessions WHERE token = ?`), token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get session: %w", err)
	}
	return &sess, nil
}

// UpdateSessionTable records a table change.
func (s *Store) UpdateSessionTable(ctx context.Context, token, variant, mode string) error {
	_, err := s.db.ExecContext(ctx, s.q(
		`UPDATE sessions SET table_variant = ?, mode = ? WHERE token = ?`), variant, mode, token)
	if err != nil {
		return fmt.Errorf("store: update session: %w", err)
	}
	return nil
}

// CloseSession stamps closed_at once; later calls keep the first time.
func (s *Store) CloseSession(ctx context.Context, token string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, s.q(
		`UPDATE sessions SET closed_at = ? WHERE token = ? AND closed_at IS NULL`), at, token)
	if err != nil {
		return fmt.Errorf("store: close session: %w", err)
	}
	return nil
}

// RecordShot inserts a fired shot.
func (s *Store) RecordShot(ctx context.Context, shot *models.Shot) error {
	err := s.db.QueryRowxContext(ctx, s.q(
		`INSERT INTO shots (session_token, shot_number, player, power, angle, table_variant, fired_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`),
		shot.SessionToken, shot.ShotNumber, shot.Player, shot.Power, shot.Angle,
		shot.TableVariant, shot.FiredAt,
	).Scan(&shot.ID)
	if err != nil {
		return fmt.Errorf("store: record shot: %w", err)
	}
	return nil
}

// CompleteShot fills in the outcome of a shot once the table has settled.
func (s *Store) CompleteShot(ctx context.Context, token string, shotNumber int, settledAt time.Time,
	pocketed []int, cueScratched bool, ticks int) error {
	res, err := s.db.ExecContext(ctx, s.q(
		`UPDATE shots SET settled_at = ?, pocketed = ?, cue_scratched = ?, ticks = ?
		 WHERE session_token = ? AND shot_number = ?`),
		settledAt, JoinBallIDs(pocketed), cueScratched, ticks, token, shotNumber,
	)
	if err != nil {
		return fmt.Errorf("store: complete shot: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("store: complete shot %s#%d: %w", token, shotNumber, ErrNotFound)
	}
	return nil
}

// ListShots returns a session's shots in firing order.
func (s *Store) ListShots(ctx context.Context, token string) ([]models.Shot, error) {
	shots := []models.Shot{}
	err := s.db.SelectContext(ctx, &shots, s.q(
		`SELECT id, session_token, shot_number, player, power, angle, table_variant,
		        fired_at, settled_at, pocketed, cue_scratched, ticks
		 FROM shots WHERE session_token = ? ORDER BY shot_number`), token)
	if err != nil {
		return nil, fmt.Errorf("store: list shots: %w", err)
	}
	return shots, nil
}

// JoinBallIDs renders ball IDs as the comma-separated pocketed column.
func JoinBallIDs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}

// SplitBallIDs parses the pocketed column; malformed entries are skipped.
func SplitBallIDs(s string) []int {
	ids := []int{}
	for _, p := range strings.Split(s, ",") {
		if id, err := strconv.Atoi(strings.TrimSpace(p)); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}
