package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultFeaturePath is the lookup service path between the base URL and
// the partner/service segments.
const DefaultFeaturePath = "restricted/v1/care/feature/get-url-for-service"

// maxResponseBytes bounds how much of a lookup response is read.
const maxResponseBytes = 1 << 20

// Result type tags of the lookup service envelope.
const (
	resultSuccess = "SUCCESS"
	resultFailed  = "FAILED"
)

// HTTPDoer is the minimal interface needed from an HTTP client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPSourceConfig configures an HTTP lookup source.
type HTTPSourceConfig struct {
	BaseURL     string
	FeaturePath string
	Timeout     time.Duration
	HTTPClient  HTTPDoer
}

// HTTPSource resolves tier configs through a lookup service reached with
// POST <base>/<feature-path>/<partner>/<service>.
type HTTPSource struct {
	baseURL     string
	featurePath string
	client      HTTPDoer
}

// NewHTTPSource creates an HTTP lookup source.
func NewHTTPSource(cfg HTTPSourceConfig) *HTTPSource {
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.FeaturePath == "" {
		cfg.FeaturePath = DefaultFeaturePath
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &HTTPSource{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		featurePath: strings.Trim(cfg.FeaturePath, "/"),
		client:      client,
	}
}

// lookupResponse is the envelope returned by the lookup service. Result is
// an object carrying the URL on SUCCESS and a diagnostic string on FAILED.
type lookupResponse struct {
	Type       string          `json:"type"`
	Result     json.RawMessage `json:"result"`
	StackTrace *string         `json:"stackTrace,omitempty"`
}

type successResult struct {
	URL *string `json:"url"`
}

func (s *HTTPSource) endpoint(partnerID, serviceName string) string {
	return fmt.Sprintf("%s/%s/%s/%s",
		s.baseURL,
		s.featurePath,
		url.PathEscape(partnerID),
		url.PathEscape(serviceName),
	)
}

// Lookup asks the lookup service for the endpoint configured for the pair.
func (s *HTTPSource) Lookup(ctx context.Context, partnerID, serviceName string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint(partnerID, serviceName), http.NoBody)
	if err != nil {
		return "", NewLookupError(CategoryInternal, KindHTTP, "failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", transportError(ctx, KindHTTP, "failed to execute request", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", NewLookupError(CategoryBadData, KindHTTP, "failed to read response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", NewLookupError(CategoryRejected, KindHTTP,
			fmt.Sprintf("unexpected status: %d", resp.StatusCode), nil)
	}

	return parseLookupResponse(body)
}

// parseLookupResponse extracts the endpoint URI from a lookup envelope.
func parseLookupResponse(body []byte) (string, error) {
	var envelope lookupResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return "", NewLookupError(CategoryBadData, KindHTTP, "failed to decode response", err)
	}

	switch envelope.Type {
	case resultSuccess:
		var result successResult
		if err := json.Unmarshal(envelope.Result, &result); err != nil {
			return "", NewLookupError(CategoryBadData, KindHTTP, "success result is not an object", err)
		}
		if result.URL == nil || *result.URL == "" {
			return "", NewLookupError(CategoryBadData, KindHTTP, "success result carries no url", nil)
		}
		return *result.URL, nil
	case resultFailed:
		var diagnostic string
		if err := json.Unmarshal(envelope.Result, &diagnostic); err != nil {
			diagnostic = string(envelope.Result)
		}
		return "", fmt.Errorf("%w: %s", ErrNotFound, diagnostic)
	case "":
		return "", NewLookupError(CategoryBadData, KindHTTP, "response has no result type", nil)
	default:
		return "", NewLookupError(CategoryContractMismatch, KindHTTP,
			fmt.Sprintf("unknown result type %q", envelope.Type), nil)
	}
}
