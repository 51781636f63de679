package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/weijianneo/find-house/internal/model"
)

// Pool is the subset of pgxpool.Pool used by PostgresStore, satisfied by
// pgxmock in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Workers hold a connection only for one short statement at a time.
	maxConns := int32(10)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool.
func NewPostgresFromPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS addresses (
	location        TEXT PRIMARY KEY,
	mrt             TEXT NOT NULL,
	min_walk_to_mrt INTEGER NOT NULL CHECK (min_walk_to_mrt >= 0),
	min_to_work     INTEGER NOT NULL CHECK (min_to_work >= 0),
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_addresses_mrt ON addresses(mrt);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Exists(ctx context.Context, address string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM addresses WHERE location = $1)`, address,
	).Scan(&exists)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: exists %s", address)
	}
	return exists, nil
}

func (s *PostgresStore) Insert(ctx context.Context, rec model.Record) (bool, error) {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO addresses (location, mrt, min_walk_to_mrt, min_to_work, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (location) DO NOTHING`,
		rec.Address, rec.Station, rec.WalkMinutes, rec.WorkMinutes, createdAt,
	)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: insert %s", rec.Address)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) List(ctx context.Context, filter ListFilter) ([]model.Record, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := s.pool.Query(ctx,
		`SELECT location, mrt, min_walk_to_mrt, min_to_work, created_at FROM addresses
		 WHERE ($1 = '' OR mrt = $1)
		 ORDER BY location
		 LIMIT $2 OFFSET $3`,
		filter.Station, limit, max(filter.Offset, 0),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list records")
	}
	defer rows.Close()

	var out []model.Record
	for rows.Next() {
		var r model.Record
		if err := rows.Scan(&r.Address, &r.Station, &r.WalkMinutes, &r.WorkMinutes, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan record")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list records iterate")
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM addresses`).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "postgres: count records")
	}
	return n, nil
}
