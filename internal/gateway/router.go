// Package gateway routes inbound traffic to downstream services through
// per-service reverse proxies whose targets are chosen by the tier rewriter.
package gateway

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"

	"github.com/go-chi/chi/v5"

	"tiergate/internal/platform/health"
	"tiergate/internal/platform/metrics"
	"tiergate/internal/platform/middleware"
	"tiergate/internal/tier/gate"
	"tiergate/internal/tier/rewrite"
)

// reserved paths are served by the gateway itself.
var reserved = map[string]bool{
	"health":  true,
	"metrics": true,
}

const badGatewayBody = `{"errors":[{"message":"downstream service unavailable","extensions":{"code":"BAD_GATEWAY"}}]}`

// Config holds the collaborators of the router.
type Config struct {
	Rewriter    *rewrite.Rewriter
	Cache       gate.Clearer
	CacheHeader string

	// Transport performs the outbound round trip. Nil means http.DefaultTransport.
	Transport http.RoundTripper

	Health         *health.Handler
	MetricsHandler http.Handler
	Metrics        *metrics.Metrics
	Logger         *slog.Logger
}

// NewRouter mounts one reverse proxy per registered service at /{service}
// behind Recovery, RequestID, Logger, Metrics and the cache-control gate.
// Every inbound request passes the gate, including health and metrics.
func NewRouter(cfg Config) (http.Handler, error) {
	if cfg.Rewriter == nil {
		return nil, errors.New("gateway: rewriter is required")
	}
	if cfg.Cache == nil {
		return nil, errors.New("gateway: cache is required")
	}
	if cfg.CacheHeader == "" {
		return nil, errors.New("gateway: cache header is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics(cfg.Metrics))
	r.Use(gate.CacheControl(cfg.CacheHeader, cfg.Cache, gate.WithLogger(logger)))

	if cfg.Health != nil {
		cfg.Health.Register(r)
	}
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	for _, name := range cfg.Rewriter.Services() {
		if reserved[name] {
			return nil, fmt.Errorf("gateway: service name %q collides with a gateway route", name)
		}
		proxy, err := newProxy(name, cfg, logger)
		if err != nil {
			return nil, err
		}
		prefix := "/" + name
		handler := http.StripPrefix(prefix, proxy)
		r.Handle(prefix, handler)
		r.Handle(prefix+"/*", handler)
	}
	return r, nil
}

func newProxy(service string, cfg Config, logger *slog.Logger) (*httputil.ReverseProxy, error) {
	hook, err := cfg.Rewriter.ForService(service)
	if err != nil {
		return nil, fmt.Errorf("gateway: %w", err)
	}
	return &httputil.ReverseProxy{
		Rewrite:   hook,
		Transport: cfg.Transport,
		ErrorLog:  slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
		ErrorHandler: func(w http.ResponseWriter, req *http.Request, err error) {
			cfg.Metrics.RecordProxyError(service)
			logger.WarnContext(req.Context(), "proxy round trip failed",
				"service", service,
				"error", err,
				"request_id", middleware.GetRequestID(req.Context()),
			)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(badGatewayBody))
		},
	}, nil
}
