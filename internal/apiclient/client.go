package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nerrad567/stockroom-core/internal/infrastructure/logging"
)

const (
	defaultTimeout = 15 * time.Second

	// maxErrorBody bounds how much of an error response is read for its detail.
	maxErrorBody = 64 * 1024
)

// Client sends requests to the inventory backend.
//
// Thread Safety: All methods are safe for concurrent use.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	onUnauthorized func()
	logger         *logging.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithUnauthorizedHandler registers fn to run on every 401 response of a
// request that did not set SkipAuthEvent. fn runs on the requesting goroutine.
func WithUnauthorizedHandler(fn func()) Option {
	return func(c *Client) {
		c.onUnauthorized = fn
	}
}

// WithLogger sets the logger used for request failures.
func WithLogger(logger *logging.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a client for the backend rooted at baseURL
// (e.g. "http://localhost:8000/api").
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logging.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithUnauthorized returns a copy of c that reports 401 responses to fn.
// It lets each view session share one transport while receiving its own
// auth-expired events.
func (c *Client) WithUnauthorized(fn func()) *Client {
	clone := *c
	clone.onUnauthorized = fn
	return &clone
}

// Request describes one backend call.
type Request struct {
	Method string
	Path   string

	// Token is sent as a bearer token when non-empty.
	Token string

	// JSON is encoded as the request body when non-nil.
	JSON any

	// Form is sent url-encoded when non-nil. It takes precedence over JSON.
	Form url.Values

	// SkipAuthEvent suppresses the unauthorized handler for this request.
	SkipAuthEvent bool

	// Fallback is the user-facing message used when the backend gives none.
	Fallback string
}

// Do sends req and decodes a successful JSON response into out (if non-nil).
//
// Parameters:
//   - ctx: Context for cancellation
//   - req: Request description
//   - out: Destination for the decoded response body, or nil
//
// Returns:
//   - error: *Error for transport failures and non-2xx responses
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	fallback := req.Fallback
	if fallback == "" {
		fallback = "Request failed"
	}

	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		return &Error{Message: fallback, Err: err}
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Debug("backend request failed", "method", req.Method, "path", req.Path, "error", err)
		return &Error{Message: fallback, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized && !req.SkipAuthEvent && c.onUnauthorized != nil {
		c.onUnauthorized()
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody)) //nolint:errcheck // Partial body still yields detail or fallback
		c.logger.Debug("backend request rejected", "method", req.Method, "path", req.Path, "status", resp.StatusCode)
		return &Error{Status: resp.StatusCode, Message: DetailMessage(body, fallback)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return &Error{Status: resp.StatusCode, Message: fallback, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, req Request) (*http.Request, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var (
		body        io.Reader
		contentType string
	)
	switch {
	case req.Form != nil:
		body = strings.NewReader(req.Form.Encode())
		contentType = "application/x-www-form-urlencoded"
	case req.JSON != nil:
		data, err := json.Marshal(req.JSON)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+req.Path, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.Token)
	}
	return httpReq, nil
}
