// Package apperrors classifies business-rule failures so the HTTP layer can
// pick a status code without knowing which rule failed.
package apperrors

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindConflict
	KindBadRequest
	KindForbidden
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindBadRequest:
		return "bad_request"
	case KindForbidden:
		return "forbidden"
	default:
		return "unknown"
	}
}

// Error carries a kind and a human-readable detail meant for the caller.
type Error struct {
	Kind   Kind
	Detail string
}

func (e *Error) Error() string {
	return e.Detail
}

func New(kind Kind, detail string) error {
	return &Error{Kind: kind, Detail: detail}
}

func NotFound(format string, args ...any) error {
	return New(KindNotFound, fmt.Sprintf(format, args...))
}

func Conflict(format string, args ...any) error {
	return New(KindConflict, fmt.Sprintf(format, args...))
}

func BadRequest(format string, args ...any) error {
	return New(KindBadRequest, fmt.Sprintf(format, args...))
}

func Forbidden(format string, args ...any) error {
	return New(KindForbidden, fmt.Sprintf(format, args...))
}

// KindOf returns the kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnknown
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
