// Package source implements the external tier config lookups consulted on a
// cache miss.
//
// Every source answers the same question: which endpoint URI is configured for
// a partner and service. A source returns the URI on success, ErrNotFound when
// the store affirmatively has no entry, and a *LookupError for everything else.
// Sources never panic on malformed input and never retry.
package source

import (
	"context"
	"errors"
)

// ErrNotFound is returned when the store holds no tier config for the key.
var ErrNotFound = errors.New("tier config not found")

// Source looks up the endpoint URI configured for a partner and service.
// Implementations own their timeouts; callers pass the request context so
// an aborted request abandons the lookup.
type Source interface {
	Lookup(ctx context.Context, partnerID, serviceName string) (string, error)
}

// Kind names a source implementation in configuration.
type Kind string

const (
	KindHTTP     Kind = "http"
	KindPostgres Kind = "postgres"
	KindRedis    Kind = "redis"
	KindMemory   Kind = "memory"
)

// Valid reports whether k names a known source.
func (k Kind) Valid() bool {
	switch k {
	case KindHTTP, KindPostgres, KindRedis, KindMemory:
		return true
	}
	return false
}
