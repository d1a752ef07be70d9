package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when a row matching the filter does not exist
	ErrNotFound = errors.New("not found")
	// ErrEmailExists is returned when a user with the same email exists
	ErrEmailExists = errors.New("email already registered")
	// ErrSessionExists is returned when the session id is bound to another user
	ErrSessionExists = errors.New("session already bound")
)

const (
	// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation
	uniqueViolation = "23505"

	emailConstraint   = "users_email_key"
	sessionConstraint = "users_session_id_key"
)

// DB is the subset of *pgxpool.Pool used by repositories
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// uniqueConstraint returns the violated constraint if err is a unique violation
func uniqueConstraint(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return pgErr.ConstraintName, true
	}
	return "", false
}
