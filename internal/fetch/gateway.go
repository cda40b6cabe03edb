// Package fetch is the gateway every outbound telemetry API call goes through.
//
// Each call is classified as unreachable, malformed, upstream or successful.
// Unreachable and malformed attempts are re-issued immediately up to a fixed
// budget; upstream errors are returned after the first attempt.
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"time"
)

const (
	// DefaultTimeout is the per-attempt HTTP timeout.
	DefaultTimeout = 10 * time.Second

	// DefaultMaxRetries is the number of attempts made after the first one.
	DefaultMaxRetries = 2

	// MaxResponseSize caps the body read per attempt (8MB).
	MaxResponseSize = 8 * 1024 * 1024

	// UserAgent is sent with every request.
	UserAgent = "auraxis-bot/1.0"
)

// Request describes one remote read.
type Request struct {
	// URL is the fully built endpoint, credentials included.
	URL string
	// Key names the top-level array field to extract. Empty means the whole
	// object is the payload.
	Key string
}

var serviceIDPattern = regexp.MustCompile(`/s:[^/]+/`)

// String returns the URL with any census service ID masked.
func (r Request) String() string {
	return serviceIDPattern.ReplaceAllString(r.URL, "/s:***/")
}

// Fetcher is the contract consumed by the API clients.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (json.RawMessage, error)
}

// Gateway implements Fetcher over net/http.
type Gateway struct {
	client     *http.Client
	maxRetries int
	userAgent  string
	logger     *slog.Logger
}

// Compile-time check that Gateway implements Fetcher.
var _ Fetcher = (*Gateway)(nil)

// Option configures a Gateway.
type Option func(*Gateway)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gateway) {
		if c != nil {
			g.client = c
		}
	}
}

// WithMaxRetries sets the number of re-issues after the first attempt.
func WithMaxRetries(n int) Option {
	return func(g *Gateway) {
		if n >= 0 {
			g.maxRetries = n
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(g *Gateway) {
		if ua != "" {
			g.userAgent = ua
		}
	}
}

// WithLogger sets the logger used for retry diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gateway) {
		if l != nil {
			g.logger = l
		}
	}
}

// NewGateway creates a gateway with DefaultTimeout and DefaultMaxRetries.
func NewGateway(opts ...Option) *Gateway {
	g := &Gateway{
		client:     &http.Client{Timeout: DefaultTimeout},
		maxRetries: DefaultMaxRetries,
		userAgent:  UserAgent,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Fetch issues req and returns the validated payload. It makes at most
// maxRetries+1 attempts; the loop stops early on success, on an upstream
// error, or when ctx is done.
func (g *Gateway) Fetch(ctx context.Context, req Request) (json.RawMessage, error) {
	var last error
	attempts := 0
	for attempts <= g.maxRetries {
		attempts++
		payload, err := g.attempt(ctx, req)
		if err == nil {
			return payload, nil
		}
		if !retryable(err) {
			return nil, err
		}
		last = err
		if ctxErr := ctx.Err(); ctxErr != nil {
			break
		}
		g.logger.Debug("fetch attempt failed", "url", req.String(), "attempt", attempts, "err", err)
	}
	return nil, &ExhaustedError{Attempts: attempts, Last: last}
}

func (g *Gateway) attempt(ctx context.Context, req Request) (json.RawMessage, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("User-Agent", g.userAgent)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{Code: "http_" + strconv.Itoa(resp.StatusCode), Message: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrUnreachable, err)
	}
	if len(body) > MaxResponseSize {
		return nil, fmt.Errorf("%w: body exceeds %d bytes", ErrMalformedEnvelope, MaxResponseSize)
	}

	return parseEnvelope(body, req.Key)
}

// parseEnvelope validates body and extracts the payload.
func parseEnvelope(body []byte, key string) (json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: null body", ErrMalformedEnvelope)
	}

	if raw, ok := fields["error"]; ok && !isNull(raw) {
		return nil, upstreamFromField(raw)
	}
	if raw, ok := fields["errorCode"]; ok && !isNull(raw) {
		ue := upstreamFromField(raw)
		if msg, ok := fields["errorMessage"]; ok {
			ue.Message = textOf(msg)
		}
		return nil, ue
	}

	if key == "" {
		return json.RawMessage(body), nil
	}
	raw, ok := fields[key]
	if !ok {
		return nil, fmt.Errorf("%w: missing field %q", ErrMalformedEnvelope, key)
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: field %q is not an array", ErrMalformedEnvelope, key)
	}
	return json.RawMessage(trimmed), nil
}

func upstreamFromField(raw json.RawMessage) *UpstreamError {
	return &UpstreamError{Code: textOf(raw)}
}

// textOf returns a JSON string's value, or the raw JSON for any other type.
func textOf(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(raw))
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}
