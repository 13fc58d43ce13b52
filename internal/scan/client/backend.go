// Package client holds the HTTP clients for the platform backends the scan
// workflow consumes: box directory, inventory ledger, transaction log and
// store directory.
package client

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

	"github.com/boxscan/scan-service/pkg/logger"
	"github.com/boxscan/scan-service/pkg/tenant"
)

// StatusError is returned when a backend answers with an unexpected status
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s returned status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// IsStatus reports whether err is a StatusError with the given code
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

// RejectedError is returned when a backend answers 2xx but the envelope
// reports success=false
type RejectedError struct {
	Method  string
	Path    string
	Code    string
	Message string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%s %s was rejected: %s %s", e.Method, e.Path, e.Code, e.Message)
}

// envelope is the platform response wrapper {"success": true, "data": ...}
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// backend is the shared HTTP plumbing of all clients
type backend struct {
	baseURL    string
	httpClient *http.Client
	logger     *logger.Logger
}

func newBackend(baseURL string, timeout time.Duration, log *logger.Logger) backend {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return backend{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     log,
	}
}

// do sends a request and decodes the enveloped data into out (if non-nil).
// Any status outside 2xx becomes a *StatusError, an envelope with
// success=false a *RejectedError. An empty 2xx body counts as success.
func (b *backend) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	// Backends scope every read and write by tenant
	tenant.ForwardHeaders(ctx, req.Header)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := b.httpClient.Do(req)
	if err != nil {
		b.logger.Error().Err(err).Str("method", method).Str("path", path).Msg("failed to call backend")
		return fmt.Errorf("failed to call %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	b.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("backend call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		b.logger.Error().
			Str("method", method).
			Str("path", path).
			Int("status", resp.StatusCode).
			Msg("backend call failed")
		return &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(raw)),
		}
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if !env.Success {
		rejected := &RejectedError{Method: method, Path: path}
		if env.Error != nil {
			rejected.Code, rejected.Message = env.Error.Code, env.Error.Message
		}
		b.logger.Error().
			Str("method", method).
			Str("path", path).
			Str("code", rejected.Code).
			Msg("backend rejected call")
		return rejected
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}
	return nil
}
