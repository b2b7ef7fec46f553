package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/cwrk-planet/chat-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// querier: общий интерфейс *pgxpool.Pool и pgx.Tx,
// чтобы одни и те же репозитории работали и в транзакции, и без неё.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// id комнат: UUID; строка не в том формате не может указывать на запись.
const pgInvalidTextRepresentation = "22P02"

// mapPgError переводит коды postgres в ошибки домена; op попадает в текст ошибки.
func mapPgError(op string, err error, notFound error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) && notFound != nil {
		return notFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%s: %w", op, domain.ErrAlreadyExists)
		case pgForeignKeyViolation, pgInvalidTextRepresentation:
			if notFound != nil {
				return fmt.Errorf("%s: %w", op, notFound)
			}
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// isMalformedID: значение не приводится к UUID, то есть такой записи нет.
func isMalformedID(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgInvalidTextRepresentation
}
