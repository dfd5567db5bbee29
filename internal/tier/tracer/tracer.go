// Package tracer starts spans around tier resolution and lookups. The resolver
// depends on the small Tracer interface; OTel is the production adapter.
package tracer

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
)

// Span names.
const (
	SpanResolve = "tier.resolve"
	SpanLookup  = "tier.lookup"
)

// Attribute keys.
const (
	AttrPartnerID     = "tier.partner_id"
	AttrService       = "tier.service"
	AttrCacheHit      = "tier.cache_hit"
	AttrLookupOutcome = "tier.lookup_outcome"
)

// Span is an active span. End must be called exactly once; a non-nil err
// marks the span failed.
type Span interface {
	End(err error)
	SetAttributes(attrs ...Attribute)
}

// Tracer creates spans and is safe for concurrent use.
type Tracer interface {
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute is a key-value pair attached to a span.
type Attribute struct {
	kv attribute.KeyValue
}

// String creates a string attribute.
func String(key, value string) Attribute {
	return Attribute{kv: attribute.String(key, value)}
}

// Bool creates a boolean attribute.
func Bool(key string, value bool) Attribute {
	return Attribute{kv: attribute.Bool(key, value)}
}

// Key returns the attribute key.
func (a Attribute) Key() string { return string(a.kv.Key) }

// Value returns the attribute value as a string or bool.
func (a Attribute) Value() any { return a.kv.Value.AsInterface() }

func keyValues(attrs []Attribute) []attribute.KeyValue {
	if len(attrs) == 0 {
		return nil
	}
	kvs := make([]attribute.KeyValue, len(attrs))
	for i, a := range attrs {
		kvs[i] = a.kv
	}
	return kvs
}

// Noop discards every span.
var Noop Tracer = noopTracer{}

type noopTracer struct{}

func (noopTracer) Start(ctx context.Context, _ string, _ ...Attribute) (context.Context, Span) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End(error)                  {}
func (noopSpan) SetAttributes(...Attribute) {}
