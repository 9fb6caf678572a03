// Package transport implements the wire protocol of the ActiveRabbit
// collector: a JSON-over-HTTP API client with retry/backoff and response
// classification, and a batching delivery queue in front of it.
package transport

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Collector endpoints.
const (
	PathTestConnection = "/api/v1/test/connection"
	PathEvents         = "/api/v1/events"
	PathErrors         = "/api/v1/events/errors"
	PathPerformance    = "/api/v1/events/performance"
	PathBatch          = "/api/v1/events/batch"
)

// gzipThreshold is the body size above which requests are compressed.
// Tiny payloads cost more to gzip than to send.
const gzipThreshold = 1024

// ClientConfig carries the subset of the SDK configuration the API client
// needs.
type ClientConfig struct {
	BaseURL   string
	APIKey    string
	ProjectID string
	// Version is the SDK version reported in the User-Agent header and
	// the connection test payload.
	Version string

	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	MaxRetries     int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
	Compress       bool
}

// APIClient speaks JSON over HTTP to the collector. It is safe for
// concurrent use.
type APIClient struct {
	cfg        ClientConfig
	httpClient *http.Client
	logger     *zap.Logger
	metrics    *Metrics
}

// APIResponse is a classified 2xx response. Body holds the parsed JSON
// object when the server sent one; Raw always holds the response text.
type APIResponse struct {
	StatusCode int
	Body       map[string]any
	Raw        string
}

// NewAPIClient builds a client. A nil httpClient gets a transport tuned
// with the configured timeouts; a nil logger or metrics disables that
// concern.
func NewAPIClient(cfg ClientConfig, httpClient *http.Client, logger *zap.Logger, metrics *Metrics) *APIClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if httpClient == nil {
		httpClient = newHTTPClient(cfg.ConnectTimeout, cfg.ReadTimeout)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &APIClient{
		cfg:        cfg,
		httpClient: httpClient,
		logger:     logger,
		metrics:    metrics,
	}
}

// newHTTPClient builds the default transport. The dialer bounds connection
// establishment; the client timeout bounds the whole request including the
// response read.
func newHTTPClient(connectTimeout, readTimeout time.Duration) *http.Client {
	dialer := &net.Dialer{Timeout: connectTimeout}

	return &http.Client{
		Timeout: readTimeout,
		Transport: &http.Transport{
			DialContext:         dialer.DialContext,
			MaxIdleConns:        100,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}
}

// Post sends payload to the given collector path, retrying transient
// failures with exponential backoff. Rate limits and client errors abort
// immediately; exhausting every attempt returns *RetryExhaustedError.
func (c *APIClient) Post(ctx context.Context, path string, payload any) (*APIResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &SerializationError{Err: err}
	}

	attempts := c.cfg.MaxRetries + 1
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		resp, err := c.post(ctx, path, body)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return nil, err
		}
		if attempt == attempts {
			break
		}

		delay := Backoff(c.cfg.RetryBaseDelay, c.cfg.RetryMaxDelay, attempt)
		c.logger.Warn("request failed, retrying",
			zap.String("path", path),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Error(err))
		c.metrics.IncRetries()

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, &RetryExhaustedError{Attempts: attempts, Err: lastErr}
}

// post performs a single attempt.
func (c *APIClient) post(ctx context.Context, path string, body []byte) (*APIResponse, error) {
	var reader io.Reader = bytes.NewReader(body)
	encoding := ""

	if c.cfg.Compress && len(body) > gzipThreshold {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(body); err != nil {
			return nil, &SerializationError{Err: err}
		}
		if err := zw.Close(); err != nil {
			return nil, &SerializationError{Err: err}
		}
		reader = &buf
		encoding = "gzip"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "activerabbit-go/"+c.cfg.Version)
	req.Header.Set("X-ActiveRabbit-Key", c.cfg.APIKey)
	if c.cfg.ProjectID != "" {
		req.Header.Set("X-ActiveRabbit-Project", c.cfg.ProjectID)
	}
	if encoding != "" {
		req.Header.Set("Content-Encoding", encoding)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Warn("failed to read response body",
			zap.String("path", path),
			zap.Error(err))
	}

	if err := classify(resp.StatusCode, resp.Header, respBody); err != nil {
		return nil, err
	}

	out := &APIResponse{StatusCode: resp.StatusCode, Raw: string(respBody)}
	if len(respBody) > 0 {
		var parsed map[string]any
		if json.Unmarshal(respBody, &parsed) == nil {
			out.Body = parsed
		}
	}
	return out, nil
}

// classify maps a response status to the error taxonomy. 2xx is success;
// everything else becomes a typed error so the retry loop can decide.
func classify(status int, header http.Header, body []byte) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusTooManyRequests:
		return &RateLimitError{RetryAfter: parseRetryAfter(header.Get("Retry-After"))}
	case status >= 400 && status < 500:
		return &ClientError{StatusCode: status, Message: errorMessage(body)}
	case status == http.StatusInternalServerError,
		status == http.StatusBadGateway,
		status == http.StatusServiceUnavailable,
		status == http.StatusGatewayTimeout:
		return &ServerError{StatusCode: status, Message: errorMessage(body), Retryable: true}
	case status >= 500:
		return &ServerError{StatusCode: status, Message: errorMessage(body)}
	default:
		return &ClientError{StatusCode: status, Message: "unexpected status"}
	}
}

// errorMessage pulls a human-readable message out of an error response:
// the JSON "error" or "message" field when present, the raw body otherwise.
func errorMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}

	var parsed struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &parsed) == nil {
		if parsed.Error != "" {
			return parsed.Error
		}
		if parsed.Message != "" {
			return parsed.Message
		}
	}
	return string(body)
}

// parseRetryAfter handles both forms of the header: delay seconds and an
// HTTP date. Unparseable values yield zero.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// SendBatch delivers one flushed batch as a single request to the batch
// endpoint. Items keep their enqueue order.
func (c *APIClient) SendBatch(ctx context.Context, items []QueuedRequest) error {
	if len(items) == 0 {
		return nil
	}

	env := batchEnvelope{Events: make([]batchItem, 0, len(items))}
	for _, item := range items {
		env.Events = append(env.Events, batchItem{Type: item.Kind, Data: item.Payload})
	}

	_, err := c.Post(ctx, PathBatch, env)
	return err
}

type batchEnvelope struct {
	Events []batchItem `json:"events"`
}

type batchItem struct {
	Type Kind `json:"type"`
	Data any  `json:"data"`
}

// connectionTest is the health-check payload. The key name is part of the
// collector contract.
type connectionTest struct {
	ClientVersion string `json:"gem_version"`
	Timestamp     int64  `json:"timestamp"`
}

// TestConnection verifies credentials and reachability with a direct call,
// bypassing the queue.
func (c *APIClient) TestConnection(ctx context.Context) (*APIResponse, error) {
	return c.Post(ctx, PathTestConnection, connectionTest{
		ClientVersion: c.cfg.Version,
		Timestamp:     time.Now().Unix(),
	})
}

// CloseIdleConnections releases pooled connections, for hosts that shut
// the SDK down mid-process.
func (c *APIClient) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
}
