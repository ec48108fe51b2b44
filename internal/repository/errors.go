package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrAccountNotFound  = errors.New("account not found")
	ErrActivityNotFound = errors.New("activity not found")
	ErrRoleNotFound     = errors.New("role not found")
	ErrDuplicateAccount = errors.New("account already exists")
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
