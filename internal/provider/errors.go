package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Kind classifies provider failures for the dialogue layer.
type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindUnauthorized Kind = "unauthorized"
	KindTransient    Kind = "transient"
	KindOther        Kind = "other"
)

// Error is the typed failure every provider returns.
type Error struct {
	Kind   Kind
	Op     string
	Status int
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (http %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf maps any error onto the provider taxonomy.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTransient
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindTransient
	}
	return KindOther
}

// KindForStatus maps an HTTP status onto the taxonomy.
func KindForStatus(status int) Kind {
	switch {
	case status == 401 || status == 403:
		return KindUnauthorized
	case status == 404:
		return KindNotFound
	case status == 408 || status == 429 || status >= 500:
		return KindTransient
	default:
		return KindOther
	}
}

func newError(op string, kind Kind, status int, err error) *Error {
	return &Error{Kind: kind, Op: op, Status: status, Err: err}
}
