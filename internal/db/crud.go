package db

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Table holds the row-level operations every entity table shares. T must
// carry a db tag for each selected column.
type Table[T any] struct {
	Name    string
	Columns string
}

func (t Table[T]) selectSQL() string {
	return "SELECT " + t.Columns + " FROM " + t.Name
}

func (t Table[T]) Get(ctx context.Context, db DBTX, id any) (T, error) {
	rows, err := db.Query(ctx, t.selectSQL()+" WHERE id = $1", id)
	if err != nil {
		var zero T
		return zero, err
	}
	return pgx.CollectOneRow(rows, pgx.RowToStructByName[T])
}

func (t Table[T]) List(ctx context.Context, db DBTX, limit, offset int32) ([]T, error) {
	rows, err := db.Query(ctx, t.selectSQL()+" ORDER BY id LIMIT $1 OFFSET $2", limit, offset)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[T])
}

// ListBy returns every row whose column equals value. column is never user
// input.
func (t Table[T]) ListBy(ctx context.Context, db DBTX, column string, value any) ([]T, error) {
	rows, err := db.Query(ctx, t.selectSQL()+" WHERE "+column+" = $1 ORDER BY id", value)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[T])
}

func (t Table[T]) Count(ctx context.Context, db DBTX) (int64, error) {
	var total int64
	err := db.QueryRow(ctx, "SELECT count(*) FROM "+t.Name).Scan(&total)
	return total, err
}

func (t Table[T]) Exists(ctx context.Context, db DBTX, id any) (bool, error) {
	var exists bool
	err := db.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM "+t.Name+" WHERE id = $1)", id).Scan(&exists)
	return exists, err
}

func (t Table[T]) Delete(ctx context.Context, db DBTX, id any) (bool, error) {
	tag, err := db.Exec(ctx, "DELETE FROM "+t.Name+" WHERE id = $1", id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// queryOne runs a statement that returns a single row of T.
func queryOne[T any](ctx context.Context, db DBTX, sql string, args ...any) (T, error) {
	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		var zero T
		return zero, err
	}
	return pgx.CollectOneRow(rows, pgx.RowToStructByName[T])
}

func queryAll[T any](ctx context.Context, db DBTX, sql string, args ...any) ([]T, error) {
	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[T])
}
