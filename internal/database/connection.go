package database

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/relativitydevhub/authservice/internal/models"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
	notNullViolation    = "23502"
	checkViolation      = "23514"
	invalidTextRepr     = "22P02"
)

// MapPostgresError translates driver errors into model sentinels. Errors it
// does not recognize are returned unchanged.
func MapPostgresError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return fmt.Errorf("%w: %s", models.ErrConflict, pgErr.ConstraintName)
		case foreignKeyViolation, notNullViolation, checkViolation:
			return fmt.Errorf("%w: %s", models.ErrBadRequest, pgErr.ConstraintName)
		case invalidTextRepr:
			// malformed uuid in a lookup
			return models.ErrNotFound
		}
	}

	return err
}
