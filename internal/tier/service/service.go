// Package service resolves tier configs through the cache and the external
// lookup source.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"tiergate/internal/tier/metrics"
	"tiergate/internal/tier/models"
	"tiergate/internal/tier/source"
	"tiergate/internal/tier/tracer"
)

// Cache is the subset of the tier cache used by the resolver.
type Cache interface {
	Get(key models.CacheKey) (models.ConfigRecord, bool)
	Put(key models.CacheKey, record models.ConfigRecord)
}

// Resolver returns the tier config for a partner and service.
//
// A cache hit never touches the source. A miss performs exactly one source
// lookup, made without holding any cache lock. Only found configs are cached:
// a not-found or failed lookup is retried against the source on the next
// call for the same key.
type Resolver struct {
	cache   Cache
	source  source.Source
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  tracer.Tracer
	group   *singleflight.Group
	now     func() time.Time
}

// Option configures the Resolver.
type Option func(*Resolver)

// WithLogger sets the logger for the resolver.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) {
		r.metrics = m
	}
}

// WithTracer sets the tracer.
func WithTracer(t tracer.Tracer) Option {
	return func(r *Resolver) {
		r.tracer = t
	}
}

// WithSingleFlight collapses concurrent misses for the same key into one
// source lookup. The shared lookup runs with the context of the caller that
// started it.
func WithSingleFlight() Option {
	return func(r *Resolver) {
		r.group = &singleflight.Group{}
	}
}

// WithClock overrides the clock used to stamp records.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		r.now = now
	}
}

// New creates a resolver over cache and src.
func New(cache Cache, src source.Source, opts ...Option) *Resolver {
	r := &Resolver{
		cache:  cache,
		source: src,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.New(slog.DiscardHandler)
	}
	if r.tracer == nil {
		r.tracer = tracer.Noop
	}
	return r
}

// Resolve returns the tier config for the pair.
//
// Errors: wraps source.ErrNotFound when the source has no entry; any other
// error means the lookup failed. Neither outcome is cached.
func (r *Resolver) Resolve(ctx context.Context, partnerID, serviceName string) (models.ConfigRecord, error) {
	key := models.NewCacheKey(partnerID, serviceName)
	ctx, span := r.tracer.Start(ctx, tracer.SpanResolve,
		tracer.String(tracer.AttrPartnerID, partnerID),
		tracer.String(tracer.AttrService, serviceName),
	)

	if record, ok := r.cache.Get(key); ok {
		r.metrics.RecordCacheHit(serviceName)
		span.SetAttributes(tracer.Bool(tracer.AttrCacheHit, true))
		span.End(nil)
		return record, nil
	}
	r.metrics.RecordCacheMiss(serviceName)
	span.SetAttributes(tracer.Bool(tracer.AttrCacheHit, false))

	record, err := r.fetch(ctx, key)
	if err != nil && !errors.Is(err, source.ErrNotFound) {
		span.End(err)
	} else {
		span.End(nil)
	}
	return record, err
}

func (r *Resolver) fetch(ctx context.Context, key models.CacheKey) (models.ConfigRecord, error) {
	if r.group == nil {
		return r.lookup(ctx, key)
	}
	v, err, shared := r.group.Do(flightKey(key), func() (any, error) {
		return r.lookup(ctx, key)
	})
	if shared {
		r.logger.DebugContext(ctx, "shared tier lookup",
			"partner_id", key.PartnerID,
			"service", key.ServiceName,
		)
	}
	if err != nil {
		return models.ConfigRecord{}, err
	}
	return v.(models.ConfigRecord), nil
}

// lookup performs the source call and caches found configs.
func (r *Resolver) lookup(ctx context.Context, key models.CacheKey) (models.ConfigRecord, error) {
	ctx, span := r.tracer.Start(ctx, tracer.SpanLookup,
		tracer.String(tracer.AttrPartnerID, key.PartnerID),
		tracer.String(tracer.AttrService, key.ServiceName),
	)
	start := time.Now()
	endpoint, err := r.source.Lookup(ctx, key.PartnerID, key.ServiceName)
	if err == nil && endpoint == "" {
		err = source.NewLookupError(source.CategoryBadData, "", "source returned an empty endpoint", nil)
	}
	elapsed := time.Since(start).Seconds()

	switch {
	case err == nil:
		record := models.ConfigRecord{
			PartnerID:   key.PartnerID,
			ServiceName: key.ServiceName,
			EndpointURI: endpoint,
			ResolvedAt:  r.now(),
		}
		r.cache.Put(key, record)
		r.metrics.ObserveLookup(key.ServiceName, metrics.OutcomeFound, elapsed)
		span.SetAttributes(tracer.String(tracer.AttrLookupOutcome, metrics.OutcomeFound))
		span.End(nil)
		return record, nil

	case errors.Is(err, source.ErrNotFound):
		r.metrics.ObserveLookup(key.ServiceName, metrics.OutcomeNotFound, elapsed)
		r.logger.DebugContext(ctx, "tier config not found",
			"partner_id", key.PartnerID,
			"service", key.ServiceName,
			"detail", err.Error(),
		)
		span.SetAttributes(tracer.String(tracer.AttrLookupOutcome, metrics.OutcomeNotFound))
		span.End(nil)
		return models.ConfigRecord{}, fmt.Errorf("resolve %s: %w", key, err)

	default:
		r.metrics.ObserveLookup(key.ServiceName, metrics.OutcomeError, elapsed)
		r.logger.WarnContext(ctx, "tier config lookup failed",
			"partner_id", key.PartnerID,
			"service", key.ServiceName,
			"category", string(source.GetCategory(err)),
			"error", err,
		)
		span.SetAttributes(tracer.String(tracer.AttrLookupOutcome, metrics.OutcomeError))
		span.End(err)
		return models.ConfigRecord{}, fmt.Errorf("resolve %s: %w", key, err)
	}
}

// flightKey renders key unambiguously for single-flight grouping.
func flightKey(key models.CacheKey) string {
	return fmt.Sprintf("%d:%s%s", len(key.PartnerID), key.PartnerID, key.ServiceName)
}
