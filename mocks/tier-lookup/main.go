package main

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultPort        = "8081"
	defaultLatencyMs   = "20"
	defaultFeaturePath = "/restricted/v1/care/feature/get-url-for-service/"
)

type lookupResponse struct {
	Type       string  `json:"type"`
	Result     any     `json:"result"`
	StackTrace *string `json:"stackTrace,omitempty"`
}

type urlResult struct {
	URL string `json:"url"`
}

var latencyMs = getEnvInt("LATENCY_MS", defaultLatencyMs)

// tierEndpoints maps partner/service to the tier endpoint returned on SUCCESS.
// Partners not listed get FAILED.
var tierEndpoints = map[string]string{
	"42/billing": "http://svc-a.internal",
	"42/users":   "http://users-42.internal/graphql",
	"77/billing": "http://billing-77.internal:9000",
}

func main() {
	port := getEnv("PORT", defaultPort)
	featurePath := getEnv("FEATURE_PATH", defaultFeaturePath)

	http.HandleFunc("/health", handleHealth)
	http.HandleFunc(featurePath, handleLookup(featurePath))

	log.Printf("Mock tier lookup service starting on port %s", port)
	log.Printf("Feature path: %s", featurePath)
	log.Printf("Simulated latency: %dms", latencyMs)

	if err := http.ListenAndServe(":"+port, nil); err != nil {
		log.Fatal(err)
	}
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "tier-lookup",
	})
}

// handleLookup serves POST <featurePath><partner>/<service>.
// Magic partners drive the failure modes:
//
//	SLOW    waits 10s before answering
//	BROKEN  answers with a body that is not JSON
//	DOWN    answers 503
//	BADURL  answers SUCCESS with an unparseable url
func handleLookup(featurePath string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeJSON(w, http.StatusMethodNotAllowed, failed("method not allowed"))
			return
		}
		time.Sleep(time.Duration(latencyMs) * time.Millisecond)

		parts := strings.Split(strings.TrimPrefix(r.URL.Path, featurePath), "/")
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			writeJSON(w, http.StatusBadRequest, failed("expected <partner>/<service>"))
			return
		}
		partner, service := parts[0], parts[1]

		switch partner {
		case "SLOW":
			time.Sleep(10 * time.Second)
		case "BROKEN":
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("<html>oops</html>"))
			return
		case "DOWN":
			writeJSON(w, http.StatusServiceUnavailable, failed("maintenance"))
			return
		case "BADURL":
			writeJSON(w, http.StatusOK, lookupResponse{Type: "SUCCESS", Result: urlResult{URL: "::not a url"}})
			return
		}

		endpoint, ok := tierEndpoints[partner+"/"+service]
		if !ok {
			writeJSON(w, http.StatusOK, failed("no tier config for partner "+partner+" and service "+service))
			return
		}
		log.Printf("resolved %s/%s -> %s", partner, service, endpoint)
		writeJSON(w, http.StatusOK, lookupResponse{Type: "SUCCESS", Result: urlResult{URL: endpoint}})
	}
}

func failed(message string) lookupResponse {
	return lookupResponse{Type: "FAILED", Result: message}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key, fallback string) int {
	n, err := strconv.Atoi(getEnv(key, fallback))
	if err != nil {
		return 0
	}
	return n
}
