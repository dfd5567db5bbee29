package e2e

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"tiergate/internal/gateway"
	platformmetrics "tiergate/internal/platform/metrics"
	"tiergate/internal/tier/cache"
	tiermetrics "tiergate/internal/tier/metrics"
	"tiergate/internal/tier/models"
	"tiergate/internal/tier/rewrite"
	"tiergate/internal/tier/service"
	"tiergate/internal/tier/source"
)

const (
	partnerHeader = "PARTNER-ID"
	cacheHeader   = "X-Clear-Tier-Cache"
)

// TestContext holds the in-process gateway stack and state between steps.
type TestContext struct {
	HTTPClient       *http.Client
	LastResponse     *http.Response
	LastResponseBody []byte

	lookup   *lookupStub
	backends map[string]*backend
	gateway  *httptest.Server
}

// NewTestContext creates an empty context; the stack starts in the
// background step.
func NewTestContext() *TestContext {
	return &TestContext{
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		backends:   map[string]*backend{},
	}
}

// Start boots the lookup stub, both backends and the gateway for serviceName.
func (tc *TestContext) Start(serviceName string) error {
	tc.backends["tier"] = newBackend("tier")
	tc.backends["default"] = newBackend("default")
	tc.lookup = newLookupStub(tc.backends["tier"].server.URL)

	reg := prometheus.NewRegistry()
	tierMetrics := tiermetrics.New(reg)
	tierCache, err := cache.New(64, cache.WithMetrics(tierMetrics))
	if err != nil {
		return err
	}
	src := source.NewHTTPSource(source.HTTPSourceConfig{
		BaseURL: tc.lookup.server.URL,
		Timeout: 2 * time.Second,
	})
	resolver := service.New(tierCache, src, service.WithMetrics(tierMetrics))
	rw, err := rewrite.New(resolver, rewrite.Config{
		Services: []models.ServiceDefault{
			{Name: serviceName, DefaultURI: tc.backends["default"].server.URL},
		},
		DefaultPartnerID: "0",
		PartnerHeader:    partnerHeader,
	}, rewrite.WithMetrics(tierMetrics))
	if err != nil {
		return err
	}
	router, err := gateway.NewRouter(gateway.Config{
		Rewriter:    rw,
		Cache:       tierCache,
		CacheHeader: cacheHeader,
		Metrics:     platformmetrics.New(reg),
	})
	if err != nil {
		return err
	}
	tc.gateway = httptest.NewServer(router)
	return nil
}

// Close stops every server started by the scenario.
func (tc *TestContext) Close() {
	if tc.gateway != nil {
		tc.gateway.Close()
	}
	if tc.lookup != nil {
		tc.lookup.server.Close()
	}
	for _, b := range tc.backends {
		b.server.Close()
	}
}

// POSTWithHeaders posts a GraphQL body through the gateway and stores the response.
func (tc *TestContext) POSTWithHeaders(path string, headers map[string]string) error {
	if tc.gateway == nil {
		return fmt.Errorf("gateway is not running")
	}
	req, err := http.NewRequest(http.MethodPost, tc.gateway.URL+path, strings.NewReader(`{"query":"{ invoices { id } }"}`))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := tc.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	tc.LastResponse = resp
	tc.LastResponseBody, err = io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	return nil
}

// backend is a downstream service that answers with its own name.
type backend struct {
	name   string
	server *httptest.Server

	mu       sync.Mutex
	requests int
}

func newBackend(name string) *backend {
	b := &backend{name: name}
	b.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		b.mu.Lock()
		b.requests++
		b.mu.Unlock()
		_, _ = io.WriteString(w, b.name)
	}))
	return b
}

func (b *backend) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.requests
}

// lookupStub imitates the tier lookup service envelope.
type lookupStub struct {
	server  *httptest.Server
	tierURL string

	mu        sync.Mutex
	calls     int
	down      bool
	mapped    map[string]bool
	malformed map[string]bool
}

func newLookupStub(tierURL string) *lookupStub {
	l := &lookupStub{
		tierURL:   tierURL,
		mapped:    map[string]bool{},
		malformed: map[string]bool{},
	}
	prefix := "/" + source.DefaultFeaturePath + "/"
	l.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.calls++

		if l.down {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		parts := strings.Split(strings.TrimPrefix(r.URL.Path, prefix), "/")
		if len(parts) != 2 {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		partner, svc := parts[0], parts[1]

		w.Header().Set("Content-Type", "application/json")
		switch {
		case l.malformed[partner]:
			_, _ = io.WriteString(w, `{"type":`)
		case l.mapped[partner+"/"+svc]:
			_ = json.NewEncoder(w).Encode(map[string]any{
				"type":   "SUCCESS",
				"result": map[string]string{"url": l.tierURL},
			})
		default:
			_ = json.NewEncoder(w).Encode(map[string]any{
				"type":   "FAILED",
				"result": "no tier config for " + partner,
			})
		}
	}))
	return l
}

func (l *lookupStub) callCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func (l *lookupStub) update(fn func(l *lookupStub)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn(l)
}
