// Package backend is the HTTP client for the clock-in/clock-out REST API.
//
// The client keeps no authentication state of its own: every call that
// needs a user receives the models.Session explicitly.
package backend

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

	"github.com/google/uuid"
	"github.com/j-veylop/fichaje-tui/internal/logger"
	"github.com/j-veylop/fichaje-tui/internal/models"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is where the backend listens in development.
const DefaultBaseURL = "http://localhost:4000/api"

var (
	// ErrUnauthorized is matched by any 401 response.
	ErrUnauthorized = errors.New("unauthorized: session expired or invalid")
	// ErrNoSession is returned when a call needs a session and gets none.
	ErrNoSession = errors.New("not logged in")
	// ErrNotFound is matched by any 404 response.
	ErrNotFound = errors.New("not found")
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	Message   string
	RequestID string
	Status    int
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend request failed (status %d)", e.Status)
	}
	return fmt.Sprintf("backend request failed (status %d): %s", e.Status, e.Message)
}

// Is lets errors.Is match the status sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	}
	return false
}

// Config holds configuration for the backend client.
type Config struct {
	HTTPClient        *http.Client
	BaseURL           string
	Timeout           time.Duration
	RetryBackoff      time.Duration
	RequestsPerSecond float64
	Burst             int
	MaxRetries        int
	MaxConcurrent     int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:           DefaultBaseURL,
		Timeout:           30 * time.Second,
		RetryBackoff:      500 * time.Millisecond,
		RequestsPerSecond: 5,
		Burst:             5,
		MaxRetries:        3,
		MaxConcurrent:     4,
	}
}

// Client talks to the backend.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	config     Config
}

// New creates a client. Zero fields in config fall back to DefaultConfig.
func New(config Config) *Client {
	def := DefaultConfig()
	if config.BaseURL == "" {
		config.BaseURL = def.BaseURL
	}
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}
	if config.RetryBackoff <= 0 {
		config.RetryBackoff = def.RetryBackoff
	}
	if config.RequestsPerSecond <= 0 {
		config.RequestsPerSecond = def.RequestsPerSecond
	}
	if config.Burst <= 0 {
		config.Burst = def.Burst
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = def.MaxRetries
	}
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = def.MaxConcurrent
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}

	return &Client{
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(config.RequestsPerSecond), config.Burst),
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		config:     config,
	}
}

// BaseURL returns the API root the client targets.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// get issues an idempotent request and retries transient failures.
func (c *Client) get(ctx context.Context, path, token string, out any) error {
	var err error
	backoff := c.config.RetryBackoff
	for attempt := range c.config.MaxRetries {
		err = c.do(ctx, http.MethodGet, path, token, nil, out)
		if err == nil || !retryable(err) || attempt == c.config.MaxRetries-1 {
			break
		}

		logger.Debug("retrying backend request", "path", path, "attempt", attempt+1, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return err
}

// retryable reports whether err is a network failure or a 5xx.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= http.StatusInternalServerError
	}
	return true
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Error("failed to close response body", "error", err)
		}
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	logger.Debug("backend request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"request_id", requestID,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			Status:    resp.StatusCode,
			Message:   errorMessage(data),
			RequestID: requestID,
		}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// errorMessage pulls a human message out of an error body.
func errorMessage(data []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	msg := strings.TrimSpace(string(data))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}

func requireSession(s models.Session) error {
	if s.Token == "" {
		return ErrNoSession
	}
	return nil
}
