// ABOUTME: Request logging round tripper with correlation IDs.
// ABOUTME: Logs request start/end with method, path, status, and latency.

package client

import (
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"time"
)

// loggingTransport logs every backend call at debug level.
type loggingTransport struct {
	next http.RoundTripper
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	requestID := generateRequestID()

	// RoundTrippers must not mutate the caller's request.
	req = req.Clone(req.Context())
	req.Header.Set("X-Request-ID", requestID)

	slog.Debug("Request started",
		"request_id", requestID,
		"method", req.Method,
		"path", req.URL.Path,
		"authorized", req.Header.Get("Authorization") != "",
	)

	resp, err := t.next.RoundTrip(req)
	if err != nil {
		slog.Debug("Request failed",
			"request_id", requestID,
			"method", req.Method,
			"path", req.URL.Path,
			"error", err,
			"latency_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	slog.Debug("Request completed",
		"request_id", requestID,
		"method", req.Method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return resp, nil
}

// generateRequestID creates a short random hex ID.
func generateRequestID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return hex.EncodeToString(b)
}
