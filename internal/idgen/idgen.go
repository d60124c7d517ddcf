// Package idgen produces the identifiers attached to outgoing API requests
// as X-Request-ID. Generators are safe for concurrent use.
package idgen

import (
	"github.com/google/uuid"
)

// Generator produces request identifiers.
type Generator interface {
	RequestID() string
}

// Version selects a UUID variant.
type Version uint8

const (
	V4 Version = 4
	V7 Version = 7
)

type v4Gen struct{}

// NewV4 returns a Generator backed by random UUID v4 values.
func NewV4() Generator { return v4Gen{} }

func (v4Gen) RequestID() string {
	return uuid.NewString()
}

// v7Gen yields time-ordered IDs so requests sort chronologically in logs.
// uuid.NewV7 only fails when the entropy source does; after maxRetries the
// generator degrades to v4 rather than returning an empty ID.
type v7Gen struct {
	maxRetries int
}

type V7Option func(*v7Gen)

// WithRetries sets how many times uuid.NewV7 is retried after the first
// attempt. Defaults to 1. Negative values are ignored.
func WithRetries(n int) V7Option {
	return func(g *v7Gen) {
		if n >= 0 {
			g.maxRetries = n
		}
	}
}

// NewV7 returns a Generator backed by UUID v7 values.
func NewV7(opts ...V7Option) Generator {
	g := &v7Gen{maxRetries: 1}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *v7Gen) RequestID() string {
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if id, err := uuid.NewV7(); err == nil {
			return id.String()
		}
	}
	return uuid.NewString()
}

// New returns a Generator for the requested UUID version; anything but V7 is v4.
func New(v Version, v7opts ...V7Option) Generator {
	switch v {
	case V7:
		return NewV7(v7opts...)
	default:
		return NewV4()
	}
}
