package observability

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/campuserp/internal/domain/signup"
	"github.com/geocoder89/campuserp/internal/domain/user"
	"github.com/geocoder89/campuserp/internal/store"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ObserveDB times a logical store operation. A nil Prom just runs fn.
// Lookups that find nothing still count as ok: a missing signup request is
// an answer, not a database fault.
func (p *Prom) ObserveDB(op string, fn func() error) error {
	if p == nil {
		return fn()
	}

	start := time.Now()
	err := fn()

	status := "ok"
	if err != nil && !isMiss(err) {
		status = "error"
		p.DbErrorsTotal.WithLabelValues(op, classifyDBErr(err)).Inc()
	}

	p.DbQueryDuration.WithLabelValues(op, status).Observe(time.Since(start).Seconds())
	return err
}

func isMiss(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) ||
		errors.Is(err, signup.ErrNotFound) ||
		errors.Is(err, user.ErrNotFound)
}

func classifyDBErr(err error) string {
	switch {
	case errors.Is(err, store.ErrEmailAlreadyUsed):
		return "email_taken"
	case errors.Is(err, store.ErrDuplicateUser), errors.Is(err, store.ErrDuplicateSignupRequest):
		return "duplicate"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return "unique_violation"
		case "23514":
			return "check_violation"
		case "57014":
			return "query_canceled"
		default:
			return "pg_" + pgErr.Code
		}
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return "connection"
	}
	return "unknown"
}
