// Package rewrite retargets outbound proxy requests to the endpoint resolved
// for the calling partner, falling back to the service's static default.
package rewrite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"unicode/utf8"

	"tiergate/internal/tier/metrics"
	"tiergate/internal/tier/models"
	"tiergate/internal/tier/source"
)

// DefaultPartnerHeader carries the partner identifier on inbound requests.
const DefaultPartnerHeader = "PARTNER-ID"

var (
	// ErrUnknownService is returned for a service with no registered default.
	ErrUnknownService = errors.New("no default endpoint registered for service")
	// ErrInvalidURI is returned for a default endpoint that is not an absolute URI.
	ErrInvalidURI = errors.New("invalid endpoint uri")
)

// Resolver resolves the tier config for a partner and service.
type Resolver interface {
	Resolve(ctx context.Context, partnerID, serviceName string) (models.ConfigRecord, error)
}

// Config holds the static inputs of the rewriter.
type Config struct {
	Services         []models.ServiceDefault
	DefaultPartnerID string
	PartnerHeader    string
}

// Rewriter picks the outbound target for each (partner, service) request.
// The defaults table and the default partner are read-only after New.
type Rewriter struct {
	resolver         Resolver
	defaults         map[string]*url.URL
	order            []string
	defaultPartnerID string
	partnerHeader    string
	logger           *slog.Logger
	metrics          *metrics.Metrics
}

// Option configures the Rewriter.
type Option func(*Rewriter)

// WithLogger sets the logger for the rewriter.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Rewriter) {
		r.logger = logger
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Rewriter) {
		r.metrics = m
	}
}

// New validates the defaults table and builds a Rewriter. Every default URI
// must parse with a scheme and host; a duplicate or empty service name is an
// error.
func New(resolver Resolver, cfg Config, opts ...Option) (*Rewriter, error) {
	if resolver == nil {
		return nil, errors.New("rewrite: resolver is required")
	}
	if cfg.DefaultPartnerID == "" {
		return nil, errors.New("rewrite: default partner id is required")
	}
	r := &Rewriter{
		resolver:         resolver,
		defaults:         make(map[string]*url.URL, len(cfg.Services)),
		defaultPartnerID: cfg.DefaultPartnerID,
		partnerHeader:    http.CanonicalHeaderKey(cfg.PartnerHeader),
	}
	if r.partnerHeader == "" {
		r.partnerHeader = http.CanonicalHeaderKey(DefaultPartnerHeader)
	}
	for _, svc := range cfg.Services {
		if svc.Name == "" {
			return nil, errors.New("rewrite: service name is required")
		}
		if _, dup := r.defaults[svc.Name]; dup {
			return nil, fmt.Errorf("rewrite: duplicate service %q", svc.Name)
		}
		u, err := ParseEndpoint(svc.DefaultURI)
		if err != nil {
			return nil, fmt.Errorf("rewrite: default for %q: %w", svc.Name, err)
		}
		r.defaults[svc.Name] = u
		r.order = append(r.order, svc.Name)
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.New(slog.DiscardHandler)
	}
	return r, nil
}

// ParseEndpoint parses raw as an absolute URI with a scheme and host.
func ParseEndpoint(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURI, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q has no scheme or host", ErrInvalidURI, raw)
	}
	return u, nil
}

// Services returns the registered service names in configuration order.
func (r *Rewriter) Services() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// PartnerID extracts the partner identifier from h. A missing, empty or
// non-UTF8 header yields the configured default partner.
func (r *Rewriter) PartnerID(ctx context.Context, h http.Header) string {
	values := h.Values(r.partnerHeader)
	if len(values) == 0 || values[0] == "" {
		return r.defaultPartnerID
	}
	if !utf8.ValidString(values[0]) {
		r.logger.WarnContext(ctx, "partner header is not valid text, using default partner",
			"header", r.partnerHeader,
		)
		return r.defaultPartnerID
	}
	return values[0]
}

// Target resolves the endpoint for serviceName as seen by a request carrying
// h. Resolution and parse failures degrade to the static default; only an
// unregistered service returns an error.
func (r *Rewriter) Target(ctx context.Context, serviceName string, h http.Header) (*url.URL, error) {
	fallback, ok := r.defaults[serviceName]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownService, serviceName)
	}
	partnerID := r.PartnerID(ctx, h)

	record, err := r.resolver.Resolve(ctx, partnerID, serviceName)
	if err != nil {
		if !errors.Is(err, source.ErrNotFound) {
			r.logger.DebugContext(ctx, "tier resolution failed, using default endpoint",
				"partner_id", partnerID,
				"service", serviceName,
				"error", err,
			)
		}
		r.metrics.RecordRewrite(serviceName, metrics.TargetDefault)
		return cloneURL(fallback), nil
	}

	target, err := ParseEndpoint(record.EndpointURI)
	if err != nil {
		r.logger.WarnContext(ctx, "tier endpoint unparseable, using default endpoint",
			"partner_id", partnerID,
			"service", serviceName,
			"endpoint_uri", record.EndpointURI,
			"error", err,
		)
		r.metrics.RecordRewrite(serviceName, metrics.TargetDefault)
		return cloneURL(fallback), nil
	}
	r.metrics.RecordRewrite(serviceName, metrics.TargetTier)
	return target, nil
}

// forwardingHeaders are stripped from the outbound request by ReverseProxy
// before a Rewrite hook runs.
var forwardingHeaders = []string{"Forwarded", "X-Forwarded-For", "X-Forwarded-Host", "X-Forwarded-Proto"}

// ForService returns a ReverseProxy Rewrite hook for serviceName. The hook
// reads the partner from the inbound request and points the outbound request
// at the resolved endpoint; the outbound path is joined onto the target's
// base path. Headers (forwarding headers included) and body pass through
// untouched.
func (r *Rewriter) ForService(serviceName string) (func(*httputil.ProxyRequest), error) {
	if _, ok := r.defaults[serviceName]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownService, serviceName)
	}
	return func(pr *httputil.ProxyRequest) {
		// Target only errors for unregistered services, checked above.
		target, _ := r.Target(pr.In.Context(), serviceName, pr.In.Header)
		pr.SetURL(target)
		for _, name := range forwardingHeaders {
			if values, ok := pr.In.Header[name]; ok {
				pr.Out.Header[name] = append([]string(nil), values...)
			}
		}
	}, nil
}

func cloneURL(u *url.URL) *url.URL {
	c := *u
	if u.User != nil {
		user := *u.User
		c.User = &user
	}
	return &c
}
