// Package postgres is the PostgreSQL persistence engine behind the
// domain repositories.
package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Options tunes repository behavior.
type Options struct {
	// CurrentGrace keeps an event listed as current for this long
	// after its end time has passed.
	CurrentGrace time.Duration
}

// EventsRepository stores events and their embedded venue projections.
type EventsRepository struct {
	pool  *pgxpool.Pool
	tx    pgx.Tx
	grace time.Duration
}

func NewEventsRepository(pool *pgxpool.Pool, opts Options) *EventsRepository {
	return &EventsRepository{pool: pool, grace: opts.CurrentGrace}
}

// WithTx returns a repository view bound to the given transaction.
func (r *EventsRepository) WithTx(tx pgx.Tx) *EventsRepository {
	return &EventsRepository{pool: r.pool, tx: tx, grace: r.grace}
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (r *EventsRepository) queryer() queryer {
	if r.tx != nil {
		return r.tx
	}
	return r.pool
}
