package user

import (
	"errors"

	usererrors "go-expense/internal/user/errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

func mapRepositoryError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return usererrors.ErrEmailTaken
	}
	return err
}
