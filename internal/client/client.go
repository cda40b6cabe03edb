// Package client talks to the status API served by "auraxis serve".
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/alfredjeanlab/auraxis/internal/model"
	"github.com/alfredjeanlab/auraxis/internal/server"
)

// HTTPClient calls the status API.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewHTTPClient creates a client targeting baseURL (e.g.
// "http://localhost:8080"). When token is non-empty, an Authorization header
// is set on every request.
func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		// Manual ticks can take as long as a full reconcile pass.
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
}

// ListSinksResponse is the body of GET /v1/sinks.
type ListSinksResponse struct {
	Sinks []*model.Row `json:"sinks"`
	Total int          `json:"total"`
}

// Health reports whether the server answers its health check.
func (c *HTTPClient) Health(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodGet, "/v1/health", nil, nil)
}

// Status returns the latest tick per class.
func (c *HTTPClient) Status(ctx context.Context) ([]server.TickStatus, error) {
	var resp struct {
		Ticks []server.TickStatus `json:"ticks"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/status", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Ticks, nil
}

// ListSinks lists registry rows, optionally filtered.
func (c *HTTPClient) ListSinks(ctx context.Context, class model.Class, flagged bool) (*ListSinksResponse, error) {
	q := url.Values{}
	if class != "" {
		q.Set("class", string(class))
	}
	if flagged {
		q.Set("flagged", strconv.FormatBool(flagged))
	}
	path := "/v1/sinks"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var resp ListSinksResponse
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteSink removes one registry row.
func (c *HTTPClient) DeleteSink(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/v1/sinks/"+url.PathEscape(id), nil, nil)
}

// Reconcile runs a tick for class on the server and waits for it. A failed
// tick returns both the recorded status and an *APIError.
func (c *HTTPClient) Reconcile(ctx context.Context, class model.Class) (*server.TickStatus, error) {
	var st server.TickStatus
	err := c.doJSON(ctx, http.MethodPost, "/v1/reconcile/"+url.PathEscape(string(class)), nil, &st)
	if err != nil {
		return &st, err
	}
	return &st, nil
}

// APIError represents an error response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body any, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		// Failed ticks still carry a status body.
		if result != nil {
			_ = json.Unmarshal(respBody, result)
		}
		var errResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}
