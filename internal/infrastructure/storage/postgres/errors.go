package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"pheezes/internal/core/apperror"
)

// PostgreSQL error codes the repositories translate.
const (
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
	pgCheckViolation      = "23514"
)

// MapError converts a driver error into an AppError.
// Errors that already are AppErrors pass through unchanged.
// pgx.ErrNoRows is not handled here: callers know which entity was missing.
func MapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if apperror.IsAppError(err) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return apperror.NewDatabase(op, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgForeignKeyViolation:
			return apperror.NewConflict("Record is referenced by other records").
				WithDetail("constraint", pgErr.ConstraintName).
				WithCause(err)
		case pgUniqueViolation:
			return apperror.NewConflict("Record already exists").
				WithDetail("constraint", pgErr.ConstraintName).
				WithCause(err)
		case pgCheckViolation:
			return apperror.NewConflict("Value violates a constraint").
				WithDetail("constraint", pgErr.ConstraintName).
				WithCause(err)
		}
	}

	return apperror.NewDatabase(op, err)
}
