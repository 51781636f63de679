package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/weijianneo/find-house/internal/model"
)

// DefaultSQLitePath is the database file used when no DSN is configured.
const DefaultSQLitePath = "timings.sqlite"

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS addresses (
	location        TEXT PRIMARY KEY NOT NULL,
	mrt             TEXT NOT NULL,
	min_walk_to_mrt INTEGER NOT NULL CHECK (min_walk_to_mrt >= 0),
	min_to_work     INTEGER NOT NULL CHECK (min_to_work >= 0),
	created_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_addresses_mrt ON addresses(mrt);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Exists(ctx context.Context, address string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM addresses WHERE location = ?)`, address,
	).Scan(&exists)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: exists %s", address)
	}
	return exists, nil
}

func (s *SQLiteStore) Insert(ctx context.Context, rec model.Record) (bool, error) {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO addresses (location, mrt, min_walk_to_mrt, min_to_work, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (location) DO NOTHING`,
		rec.Address, rec.Station, rec.WalkMinutes, rec.WorkMinutes, createdAt,
	)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: insert %s", rec.Address)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "sqlite: rows affected")
	}
	return n > 0, nil
}

func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]model.Record, error) {
	query := `SELECT location, mrt, min_walk_to_mrt, min_to_work, created_at FROM addresses WHERE 1=1`
	var args []any

	if filter.Station != "" {
		query += ` AND mrt = ?`
		args = append(args, filter.Station)
	}
	query += ` ORDER BY location`

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list records")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Record
	for rows.Next() {
		var r model.Record
		if err := rows.Scan(&r.Address, &r.Station, &r.WalkMinutes, &r.WorkMinutes, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan record")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list records iterate")
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM addresses`).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "sqlite: count records")
	}
	return n, nil
}
