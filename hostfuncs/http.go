package hostfuncs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
)

// HTTPRequest is the JSON document a plugin passes to http_request.
type HTTPRequest struct {
	// Headers contains request headers.
	Headers map[string]string `json:"headers,omitempty"`

	// Method is the HTTP method. Empty means GET.
	Method string `json:"method,omitempty"`

	// URL is the target URL.
	URL string `json:"url"`

	// Body is filled from the body offset, not from JSON.
	Body []byte `json:"-"`
}

// HTTPResponse contains the result of an HTTP request.
type HTTPResponse struct {
	// Error contains error information if the request failed.
	Error *HTTPError `json:"error,omitempty"`

	// Headers contains response headers.
	Headers map[string][]string `json:"headers,omitempty"`

	// Body is the response body.
	Body []byte `json:"body,omitempty"`

	// StatusCode is the HTTP status code.
	StatusCode int `json:"status_code"`

	// LatencyMs is the request latency in milliseconds.
	LatencyMs int64 `json:"latency_ms,omitempty"`

	// BodyTruncated indicates if the body was truncated due to size limits.
	BodyTruncated bool `json:"body_truncated,omitempty"`
}

// HTTPError represents an HTTP request error.
type HTTPError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	return e.Code + ": " + e.Message
}

// HTTPOption is a functional option for configuring HTTP request behavior.
type HTTPOption func(*httpConfig)

type httpConfig struct {
	client       *http.Client
	transport    http.RoundTripper
	allowedHosts []string
	timeout      time.Duration
	maxRedirects int
	maxBodySize  int
}

func defaultHTTPConfig() httpConfig {
	return httpConfig{
		timeout:      30 * time.Second,
		maxRedirects: 10,
		maxBodySize:  DefaultMaxResponseSize,
	}
}

// WithHTTPRequestTimeout sets the HTTP request timeout.
func WithHTTPRequestTimeout(d time.Duration) HTTPOption {
	return func(c *httpConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHTTPMaxRedirects sets the maximum number of redirects to follow.
// Zero disables redirects.
func WithHTTPMaxRedirects(n int) HTTPOption {
	return func(c *httpConfig) {
		if n >= 0 {
			c.maxRedirects = n
		}
	}
}

// WithHTTPMaxBodySize sets the maximum response body size.
func WithHTTPMaxBodySize(size int) HTTPOption {
	return func(c *httpConfig) {
		if size > 0 {
			c.maxBodySize = size
		}
	}
}

// WithAllowedHosts sets the glob patterns (path.Match syntax) of hosts a
// plugin may reach. An empty list denies every request.
func WithAllowedHosts(patterns ...string) HTTPOption {
	return func(c *httpConfig) {
		c.allowedHosts = append([]string(nil), patterns...)
	}
}

// WithHTTPClient replaces the client used for outbound requests.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(c *httpConfig) {
		c.client = client
	}
}

// WithAddressFilter makes every connection, including redirects, pass f
// after DNS resolution. It replaces the transport of any client set with
// WithHTTPClient.
func WithAddressFilter(f *AddressFilter) HTTPOption {
	return func(c *httpConfig) {
		if f == nil {
			c.transport = nil
			return
		}
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.Proxy = nil
		t.DialContext = f.DialContext(&net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second})
		c.transport = t
	}
}

// HTTPRequest implements env.Host. Requests to hosts outside the allow list
// and transport failures trap; a response with any status is a success.
func (k *Kernel) HTTPRequest(requestOffset, bodyOffset uint64) uint64 {
	var req HTTPRequest
	if err := json.Unmarshal(k.mustBlock("http_request", requestOffset), &req); err != nil {
		trap("http_request", fmt.Errorf("decode request: %w", err))
	}
	if bodyOffset != 0 {
		req.Body = k.mustBlock("http_request", bodyOffset)
	}

	k.mu.Lock()
	ctx, cfg := k.ctx, k.http
	k.mu.Unlock()

	resp := performHTTPRequest(ctx, req, cfg)
	if resp.Error != nil {
		trap("http_request", resp.Error)
	}

	k.mu.Lock()
	k.status = int32(resp.StatusCode) //nolint:gosec // G115: HTTP status codes fit in int32
	k.mu.Unlock()

	if len(resp.Body) == 0 {
		return 0
	}
	return k.put("http_request", resp.Body)
}

// PerformHTTPRequest performs req. Failures are reported in
// HTTPResponse.Error rather than as a Go error.
func PerformHTTPRequest(ctx context.Context, req HTTPRequest, opts ...HTTPOption) HTTPResponse {
	cfg := defaultHTTPConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return performHTTPRequest(ctx, req, cfg)
}

func performHTTPRequest(ctx context.Context, req HTTPRequest, cfg httpConfig) HTTPResponse {
	if err := validateHTTPRequest(&req, cfg.allowedHosts); err != nil {
		return HTTPResponse{Error: err}
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	return executeHTTPRequest(ctx, req, cfg)
}

// validateHTTPRequest checks the URL and the allow list and defaults the
// method to GET.
func validateHTTPRequest(req *HTTPRequest, allowedHosts []string) *HTTPError {
	if req.URL == "" {
		return &HTTPError{Code: "INVALID_REQUEST", Message: "URL is required"}
	}
	u, err := url.Parse(req.URL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return &HTTPError{Code: "INVALID_REQUEST", Message: fmt.Sprintf("invalid URL %q", req.URL)}
	}
	if !hostAllowed(u.Hostname(), allowedHosts) {
		return &HTTPError{Code: "HOST_NOT_ALLOWED", Message: fmt.Sprintf("%v: %s", ErrHostNotAllowed, u.Hostname())}
	}
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	return nil
}

func hostAllowed(host string, patterns []string) bool {
	for _, p := range patterns {
		if ok, err := path.Match(p, host); err == nil && ok {
			return true
		}
	}
	return false
}

// executeHTTPRequest creates the HTTP client, performs the request, and reads the response.
func executeHTTPRequest(ctx context.Context, req HTTPRequest, cfg httpConfig) HTTPResponse {
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, strings.ToUpper(req.Method), req.URL, body)
	if err != nil {
		return HTTPResponse{Error: &HTTPError{Code: "INVALID_REQUEST", Message: err.Error()}}
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	client := createHTTPClient(cfg)

	start := time.Now()
	resp, err := client.Do(httpReq)
	latency := time.Since(start)
	if err != nil {
		return handleHTTPError(ctx, err, latency)
	}
	defer func() { _ = resp.Body.Close() }()

	return readHTTPResponse(resp, latency, cfg.maxBodySize)
}

// createHTTPClient applies the redirect policy and allow list to a client.
func createHTTPClient(cfg httpConfig) *http.Client {
	client := &http.Client{Timeout: cfg.timeout}
	if cfg.client != nil {
		c := *cfg.client
		client = &c
	}
	if cfg.transport != nil {
		client.Transport = cfg.transport
	}

	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) > cfg.maxRedirects {
			return fmt.Errorf("stopped after %d redirects", cfg.maxRedirects)
		}
		if !hostAllowed(req.URL.Hostname(), cfg.allowedHosts) {
			return fmt.Errorf("redirect to %s: %w", req.URL.Hostname(), ErrHostNotAllowed)
		}
		return nil
	}
	return client
}

// handleHTTPError classifies and returns an error response.
func handleHTTPError(ctx context.Context, err error, latency time.Duration) HTTPResponse {
	code := "REQUEST_FAILED"
	switch {
	case errors.Is(err, ErrAddressBlocked):
		code = "ADDRESS_BLOCKED"
	case errors.Is(err, ErrHostNotAllowed):
		code = "HOST_NOT_ALLOWED"
	case ctx.Err() == context.DeadlineExceeded, strings.Contains(err.Error(), "timeout"):
		code = "TIMEOUT"
	case strings.Contains(err.Error(), "redirect"):
		code = "TOO_MANY_REDIRECTS"
	case strings.Contains(err.Error(), "no such host"):
		code = "HOST_NOT_FOUND"
	case strings.Contains(err.Error(), "connection refused"):
		code = "CONNECTION_REFUSED"
	}
	return HTTPResponse{
		LatencyMs: latency.Milliseconds(),
		Error:     &HTTPError{Code: code, Message: err.Error()},
	}
}

// readHTTPResponse reads the body through a BoundedBuffer. A body larger
// than maxBodySize is an error: the plugin would otherwise see a silently
// shortened payload.
func readHTTPResponse(resp *http.Response, latency time.Duration, maxBodySize int) HTTPResponse {
	buf := NewBoundedBuffer(maxBodySize)
	if _, err := io.Copy(buf, resp.Body); err != nil {
		return HTTPResponse{
			StatusCode: resp.StatusCode,
			LatencyMs:  latency.Milliseconds(),
			Error:      &HTTPError{Code: "READ_BODY_FAILED", Message: err.Error()},
		}
	}
	if buf.Truncated {
		return HTTPResponse{
			StatusCode:    resp.StatusCode,
			LatencyMs:     latency.Milliseconds(),
			BodyTruncated: true,
			Error: &HTTPError{
				Code:    "BODY_TOO_LARGE",
				Message: fmt.Sprintf("response body exceeds %d bytes", maxBodySize),
			},
		}
	}
	return HTTPResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       buf.Bytes(),
		LatencyMs:  latency.Milliseconds(),
	}
}
