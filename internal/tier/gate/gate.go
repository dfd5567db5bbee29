// Package gate clears the tier cache on operator request.
package gate

import (
	"log/slog"
	"net/http"
)

// StatusCleared is returned for a cache-clear request. It is distinct from
// both success and failure responses of proxied traffic.
const StatusCleared = http.StatusAccepted

// clearedBody follows the GraphQL error envelope so clients of the gateway
// can parse it like any other response.
const clearedBody = `{"errors":[{"message":"cleared cache","extensions":{"code":"CACHE"}}]}`

// Clearer empties a cache.
type Clearer interface {
	Clear()
}

// Option configures the gate.
type Option func(*gate)

// WithLogger sets the logger for the gate.
func WithLogger(logger *slog.Logger) Option {
	return func(g *gate) {
		g.logger = logger
	}
}

type gate struct {
	header string
	cache  Clearer
	logger *slog.Logger
}

// CacheControl returns middleware that clears cache and answers with
// StatusCleared when the inbound request carries header, whatever its value.
// Other requests pass through untouched.
func CacheControl(header string, cache Clearer, opts ...Option) func(http.Handler) http.Handler {
	g := &gate{
		header: http.CanonicalHeaderKey(header),
		cache:  cache,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = slog.New(slog.DiscardHandler)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, present := r.Header[g.header]; !present {
				next.ServeHTTP(w, r)
				return
			}

			g.cache.Clear()
			g.logger.InfoContext(r.Context(), "tier cache cleared",
				"header", g.header,
				"path", r.URL.Path,
			)

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(StatusCleared)
			_, _ = w.Write([]byte(clearedBody))
		})
	}
}
