package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrUnauthorized is wrapped by every error produced from a 401 response.
var ErrUnauthorized = errors.New("unauthorized")

// APIError represents a non-2xx response from the API.
type APIError struct {
	Status  int
	Message string
}

func (e APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api request failed with status %d", e.Status)
	}
	return fmt.Sprintf("api request failed (%d): %s", e.Status, e.Message)
}

// Unwrap lets errors.Is(err, ErrUnauthorized) match 401 responses.
func (e APIError) Unwrap() error {
	if e.Status == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}

// EnvelopeError is returned when an enveloped response reports success=false.
type EnvelopeError struct {
	Message string
}

func (e EnvelopeError) Error() string {
	if e.Message == "" {
		return "api reported failure"
	}
	return "api reported failure: " + e.Message
}

// do issues one JSON request. The bearer token is read from the credential
// store on every call so an evicted token is never sent again.
func (g *Gateway) do(ctx context.Context, method, path string, body, v any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	status := 0
	defer func() { recordRequest(routeLabel(path), status, time.Since(start)) }()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := strings.TrimSpace(g.creds.Token()); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()
	status = resp.StatusCode

	if resp.StatusCode == http.StatusUnauthorized {
		g.evictCredential()
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return APIError{Status: resp.StatusCode, Message: extractError(resp.Body)}
	}

	if v == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func extractError(body io.Reader) string {
	if body == nil {
		return ""
	}
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	data, err := io.ReadAll(io.LimitReader(body, 64<<10))
	if err != nil || len(data) == 0 {
		return ""
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return strings.TrimSpace(string(data))
	}
	if payload.Error != "" {
		return strings.TrimSpace(payload.Error)
	}
	return strings.TrimSpace(payload.Message)
}

// routeLabel strips path parameters and query strings so metric labels stay
// low-cardinality: "/analytics/p1?timeRange=7days" -> "/analytics".
func routeLabel(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	switch {
	case path == "/analytics/batch":
		return path
	case strings.HasPrefix(path, "/analytics/"):
		return "/analytics"
	case strings.HasPrefix(path, "/performance/"):
		return "/performance"
	case strings.HasPrefix(path, "/realtime/"):
		return "/realtime"
	}
	return path
}
