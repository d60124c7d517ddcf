// Package errx provides the error kinds returned by the Bitly client.
// Every failure surfaced by the client or the bitlinks facade is an *Error
// carrying the operation that failed, its Kind and, when an upstream response
// was received, the HTTP status code.

package errx

import (
	"errors"
	"fmt"
)

type Kind uint8

const (
	Unknown Kind = iota
	// BadRequest: upstream 400, caller-supplied data was rejected.
	BadRequest
	// Authentication: upstream 403, token invalid or missing scope.
	Authentication
	// NotFound: upstream 404.
	NotFound
	// Request: any other error status, or no response at all.
	Request
	// InvalidResponse: a body was returned but it is not valid JSON.
	InvalidResponse
	// InvalidTimeUnit: metrics unit outside minute, hour, day, week, month.
	InvalidTimeUnit
	// Invalid: the client was misconfigured by the caller.
	Invalid
)

type Error struct {
	Op     string
	Kind   Kind
	Status int // 0 when no HTTP response was received
	Err    error
}

func E(op string, kind Kind, err error) error {
	return ES(op, kind, 0, err)
}

// ES is E with the upstream HTTP status attached.
func ES(op string, kind Kind, status int, err error) error {
	if err == nil {
		return nil
	}
	return &Error{
		Op:     op,
		Kind:   kind,
		Status: status,
		Err:    err,
	}
}

// String returns the string representation of the error kind.
func (k Kind) String() string {
	switch k {
	case Unknown:
		return "Unknown"
	case BadRequest:
		return "BadRequest"
	case Authentication:
		return "Authentication"
	case NotFound:
		return "NotFound"
	case Request:
		return "Request"
	case InvalidResponse:
		return "InvalidResponse"
	case InvalidTimeUnit:
		return "InvalidTimeUnit"
	case Invalid:
		return "Invalid"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op
	}
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

func OpOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Op
	}
	return ""
}

// StatusOf returns the first non-zero HTTP status found in the error chain.
func StatusOf(err error) int {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return 0
		}
		if e.Status != 0 {
			return e.Status
		}
		err = e.Err
	}
	return 0
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
