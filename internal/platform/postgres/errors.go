package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"fitgap/pkg/platform/sentinel"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeSerialization       = "40001"
	codeLockNotAvailable    = "55P03"
)

// MapError converts pgx errors into sentinel errors, keeping entity context.
// Context cancellation passes through untouched.
func MapError(err error, entity string, key any) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s %v: %w", entity, key, err)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s %v: %w", entity, key, sentinel.ErrNotFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation, codeSerialization, codeLockNotAvailable:
			return fmt.Errorf("%s %v: %w", entity, key, sentinel.ErrConflict)
		case codeForeignKeyViolation:
			return fmt.Errorf("%s %v: %w", entity, key, sentinel.ErrNotFound)
		}
	}
	return fmt.Errorf("%s %v: %w", entity, key, err)
}
