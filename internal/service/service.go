// Package service orchestrates repository calls inside one unit-of-work per
// request and translates failures into a fixed taxonomy: not-found for
// missing caller-supplied keys, an opaque internal error for everything else.
package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"taskflow/internal/db"
	"taskflow/internal/repo"
)

type Services struct {
	Customers  Customers
	Projects   Projects
	Activities Activities
}

type Options struct {
	Logger         zerolog.Logger
	AcquireTimeout time.Duration
	Now            func() time.Time
}

func New(conn *sql.DB, opts Options) Services {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	b := base{
		db:             conn,
		repo:           repo.Repo{},
		log:            opts.Logger,
		now:            opts.Now,
		acquireTimeout: opts.AcquireTimeout,
	}
	return Services{
		Customers:  Customers{b},
		Projects:   Projects{b},
		Activities: Activities{b},
	}
}

type base struct {
	db             *sql.DB
	repo           repo.Repo
	log            zerolog.Logger
	now            func() time.Time
	acquireTimeout time.Duration
}

func (b base) timestamp() string {
	return b.now().UTC().Format(time.RFC3339)
}

func (b base) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return db.WithTx(ctx, b.db, b.acquireTimeout, fn)
}

// classify keeps not-found conditions as they are and wraps anything else as
// the opaque internal error. The cause is logged here with full detail; it
// must never reach a client.
func (b base) classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var nf NotFoundError
	if errors.As(err, &nf) {
		b.log.Warn().Str("op", op).Str("entity", nf.Entity).Msg("entity not found")
		return nf
	}
	b.log.Error().Str("op", op).Err(err).Msg("operation failed")
	return InternalError{cause: err}
}
