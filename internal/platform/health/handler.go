// Package health serves the liveness, readiness and status endpoints of the
// gateway. Status reports the lookup source and the tier cache occupancy.
package health

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"tiergate/pkg/platform/httputil"
)

// Version is set at build time via ldflags.
var Version = "dev"

// CheckFunc checks a dependency and returns nil when it is reachable.
type CheckFunc func(ctx context.Context) error

// CacheStats reports tier cache occupancy.
type CacheStats interface {
	Len() int
	Capacity() int
}

const checkTimeout = 2 * time.Second

// Handler serves the health endpoints. Checks may be registered while serving.
type Handler struct {
	startTime   time.Time
	environment string
	source      string
	cache       CacheStats

	mu     sync.RWMutex
	checks map[string]CheckFunc
}

// Option configures the Handler.
type Option func(*Handler)

// WithSource names the lookup source kind reported by the status endpoint.
func WithSource(kind string) Option {
	return func(h *Handler) {
		h.source = kind
	}
}

// WithCache reports cache occupancy in the status endpoint.
func WithCache(c CacheStats) Option {
	return func(h *Handler) {
		h.cache = c
	}
}

func New(environment string, opts ...Option) *Handler {
	h := &Handler{
		startTime:   time.Now(),
		environment: environment,
		checks:      make(map[string]CheckFunc),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterCheck adds a named readiness check, replacing any with the same name.
func (h *Handler) RegisterCheck(name string, check CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

// Register mounts the health routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/health", h.HandleStatus)
	r.Get("/health/live", h.HandleLiveness)
	r.Get("/health/ready", h.HandleReadiness)
}

type LivenessResponse struct {
	Status string `json:"status"`
}

func (h *Handler) HandleLiveness(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, LivenessResponse{Status: "alive"})
}

type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// HandleReadiness runs every check concurrently, each bounded by
// checkTimeout, and answers 503 when any fails.
func (h *Handler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	results := h.runChecks(r.Context())

	resp := ReadinessResponse{Status: "ready", Checks: results}
	code := http.StatusOK
	for _, state := range results {
		if state != "up" {
			resp.Status = "not_ready"
			code = http.StatusServiceUnavailable
			break
		}
	}
	httputil.WriteJSON(w, code, resp)
}

func (h *Handler) runChecks(ctx context.Context) map[string]string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var (
		mu      sync.Mutex
		results = make(map[string]string, len(h.checks))
		g       errgroup.Group
	)
	for name, check := range h.checks {
		g.Go(func() error {
			checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
			defer cancel()
			state := "up"
			if err := check(checkCtx); err != nil {
				state = "down: " + err.Error()
			}
			mu.Lock()
			results[name] = state
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// CacheStatus is the tier cache occupancy.
type CacheStatus struct {
	Entries  int `json:"entries"`
	Capacity int `json:"capacity"`
}

type StatusResponse struct {
	Status        string       `json:"status"`
	Version       string       `json:"version"`
	Environment   string       `json:"environment"`
	LookupSource  string       `json:"lookup_source,omitempty"`
	Cache         *CacheStatus `json:"cache,omitempty"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	Timestamp     string       `json:"timestamp"`
}

func (h *Handler) HandleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := StatusResponse{
		Status:        "healthy",
		Version:       Version,
		Environment:   h.environment,
		LookupSource:  h.source,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
	}
	if h.cache != nil {
		resp.Cache = &CacheStatus{Entries: h.cache.Len(), Capacity: h.cache.Capacity()}
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}
