// Package apperr classifies failures into a small set of kinds. Each kind
// maps to an HTTP status and a generic client message; the detailed message
// and cause stay server side.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type Kind int

const (
	KindInternal Kind = iota
	KindBadRequest
	KindNotFound
	KindForbidden
	KindUnauthorized
	KindDatabase
	KindPool
	KindMultipart
	KindIO
)

func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindUnauthorized:
		return "unauthorized"
	case KindDatabase:
		return "database"
	case KindPool:
		return "pool"
	case KindMultipart:
		return "multipart"
	case KindIO:
		return "io"
	default:
		return "internal"
	}
}

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func BadRequest(msg string) *Error   { return New(KindBadRequest, msg) }
func NotFound(msg string) *Error     { return New(KindNotFound, msg) }
func Forbidden(msg string) *Error    { return New(KindForbidden, msg) }
func Unauthorized(msg string) *Error { return New(KindUnauthorized, msg) }
func Internal(msg string, err error) *Error {
	return Wrap(KindInternal, msg, err)
}

func Multipart(msg string, err error) *Error {
	return Wrap(KindMultipart, msg, err)
}
func IO(msg string, err error) *Error {
	return Wrap(KindIO, msg, err)
}

// KindOf reports the kind of the first *Error in err's chain. Unclassified
// errors are internal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

func StatusCode(err error) int {
	switch KindOf(err) {
	case KindBadRequest, KindMultipart:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Public returns the message safe to show to clients.
func Public(err error) string {
	switch KindOf(err) {
	case KindBadRequest, KindMultipart:
		return "Bad request"
	case KindNotFound:
		return "Resource not found"
	case KindForbidden:
		return "Forbidden access"
	case KindUnauthorized:
		return "Unauthorized access"
	case KindDatabase:
		return "Database error occurred"
	case KindPool:
		return "Connection pool error occurred"
	default:
		return "Internal server error"
	}
}

const (
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
	pgNotNullViolation    = "23502"
	pgCheckViolation      = "23514"
	pgInvalidText         = "22P02"
)

// FromDB classifies an error returned by the pgx layer. Errors that are
// already classified pass through unchanged.
func FromDB(err error, entity string) error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return Wrap(KindNotFound, entity+" not found", err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Wrap(KindPool, entity+": connection unavailable", err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgForeignKeyViolation:
			return Wrap(KindBadRequest, entity+": referenced row does not exist", err)
		case pgUniqueViolation:
			return Wrap(KindBadRequest, entity+": duplicate value", err)
		case pgNotNullViolation, pgCheckViolation, pgInvalidText:
			return Wrap(KindBadRequest, entity+": invalid value", err)
		}
		return Wrap(KindDatabase, entity+": query failed", err)
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) || pgconn.SafeToRetry(err) {
		return Wrap(KindPool, entity+": connection unavailable", err)
	}
	return Wrap(KindDatabase, entity+": query failed", err)
}
