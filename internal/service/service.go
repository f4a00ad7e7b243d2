package service

import (
	"context"
	"math"

	"schoolschedule/internal/apperr"
	"schoolschedule/internal/db"
)

// Page is the envelope for paginated list endpoints.
type Page[T any] struct {
	Items    []T   `json:"items"`
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
}

// PageRequest is 1-based. Callers clamp the values before passing them in.
type PageRequest struct {
	Page     int
	PageSize int
}

func (p PageRequest) limitOffset() (int32, int32) {
	page, size := p.Page, p.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 25
	}
	if size > math.MaxInt32 {
		size = math.MaxInt32
	}
	// Offsets past the int4 range clamp to the maximum and yield an empty page.
	offset := int64(page-1) * int64(size)
	if offset > math.MaxInt32 {
		offset = math.MaxInt32
	}
	return int32(size), int32(offset)
}

func newPage[T any](req PageRequest, items []T, total int64) Page[T] {
	if items == nil {
		items = []T{}
	}
	limit, _ := req.limitOffset()
	page := req.Page
	if page < 1 {
		page = 1
	}
	return Page[T]{Items: items, Total: total, Page: page, PageSize: int(limit)}
}

// listPage fetches one page and the table total.
func listPage[T any](ctx context.Context, req PageRequest, entity string, list func(context.Context, int32, int32) ([]T, error), count func(context.Context) (int64, error)) (Page[T], error) {
	limit, offset := req.limitOffset()
	items, err := list(ctx, limit, offset)
	if err != nil {
		return Page[T]{}, apperr.FromDB(err, entity)
	}
	total, err := count(ctx)
	if err != nil {
		return Page[T]{}, apperr.FromDB(err, entity)
	}
	return newPage(req, items, total), nil
}

type txRunner[Q any] func(ctx context.Context, fn func(Q) error) error

// txStore is implemented by *db.Store.
type txStore interface {
	WithTx(ctx context.Context, fn func(*db.Queries) error) error
}

// storeTx classifies begin and commit failures the same way as query errors;
// errors returned by fn keep their kind.
func storeTx[Q any](store txStore, wrap func(*db.Queries) Q) txRunner[Q] {
	return func(ctx context.Context, fn func(Q) error) error {
		err := store.WithTx(ctx, func(q *db.Queries) error {
			return fn(wrap(q))
		})
		return apperr.FromDB(err, "Transaction")
	}
}
