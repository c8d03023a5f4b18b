package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/lib/pq"

	"github.com/custodia-labs/sercha-kb/internal/core/domain"
)

//go:embed schema.sql
var schema string

// DB is the connection pool shared by every store in this package
type DB struct {
	*sql.DB
}

// Config sizes the pool. Zero values keep the database/sql defaults.
type Config struct {
	URL string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration

	// ConnectWait keeps retrying the first ping for this long, for
	// databases that start alongside the service. Zero pings once.
	ConnectWait time.Duration
}

// Connect opens the pool and waits for the database to answer
func Connect(ctx context.Context, cfg Config) (*DB, error) {
	pool, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %w", domain.ErrValidation, err)
	}
	pool.SetMaxOpenConns(cfg.MaxOpenConns)
	pool.SetMaxIdleConns(cfg.MaxIdleConns)
	pool.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	pool.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := waitForPing(ctx, pool, cfg.ConnectWait); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: ping database: %w", domain.ErrServiceUnavailable, err)
	}
	return &DB{DB: pool}, nil
}

func waitForPing(ctx context.Context, pool *sql.DB, wait time.Duration) error {
	if wait <= 0 {
		return pool.PingContext(ctx)
	}
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 200 * time.Millisecond
	policy.MaxInterval = 5 * time.Second
	policy.MaxElapsedTime = wait
	return backoff.Retry(func() error { return pool.PingContext(ctx) }, backoff.WithContext(policy, ctx))
}

// InitSchema applies schema.sql. Every statement is idempotent.
func (db *DB) InitSchema(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", mapError(err))
	}
	return nil
}

func (db *DB) Ping(ctx context.Context) error {
	return db.PingContext(ctx)
}

// WithTx runs fn in a transaction, committing when it returns nil.
// Returned errors carry a domain category where the driver error maps
// to one.
func (db *DB) WithTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", domain.ErrTransaction, err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(mapError(err), fmt.Errorf("rollback: %w", rbErr))
		}
		return mapError(err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", mapError(err))
	}
	return nil
}

// SQLSTATE codes with a domain meaning
const (
	sqlstateUniqueViolation     = "23505"
	sqlstateForeignKeyViolation = "23503"
	sqlstateSerialization       = "40001"
	sqlstateDeadlock            = "40P01"
	sqlstateLockNotAvailable    = "55P03"
)

// mapError tags pq errors with a domain category. Errors already in a
// category pass through.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	for _, category := range []error{domain.ErrValidation, domain.ErrConsistency, domain.ErrTransaction, domain.ErrCollaborator} {
		if errors.Is(err, category) {
			return err
		}
	}
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case sqlstateSerialization, sqlstateDeadlock, sqlstateLockNotAvailable:
		return fmt.Errorf("%w: %w", domain.ErrTransaction, err)
	case sqlstateForeignKeyViolation:
		return fmt.Errorf("%w: %w", domain.ErrDanglingEndpoint, err)
	case sqlstateUniqueViolation:
		return fmt.Errorf("%w: %w", domain.ErrAlreadyExists, err)
	}
	return err
}

// notFound turns sql.ErrNoRows into domain.ErrNotFound
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	return mapError(err)
}

// nullable stores the empty string as NULL
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}
