// Package pdknet lets plugins make outbound HTTP requests through the host.
//
// The host performs the request; the plugin sees only the response body and
// status code. Which hosts are reachable is decided by the host's allow list.
package pdknet

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/reglet-dev/pdk"
	"github.com/reglet-dev/pdk/env"
	"github.com/reglet-dev/pdk/internal/abi"
	"github.com/reglet-dev/pdk/memory"
)

// Request is an outbound HTTP request. It is sent to the host as JSON; the
// body travels in its own region.
type Request struct {
	Headers map[string]string `json:"headers,omitempty"`
	Method  string            `json:"method" validate:"required,oneof=GET HEAD POST PUT PATCH DELETE OPTIONS"`
	URL     string            `json:"url" validate:"required,url,startswith=http"`
	Body    []byte            `json:"-"`
}

// Response is what the host returns for a completed request. Any status
// code, including 4xx and 5xx, is a completed request.
type Response struct {
	Body       []byte
	StatusCode int
}

// String returns the body as a string.
func (r *Response) String() string {
	return string(r.Body)
}

// JSON decodes the body into v.
func (r *Response) JSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response body: %w", err)
	}
	return nil
}

// clientConfig holds the configuration for a Client.
type clientConfig struct {
	headers map[string]string
}

// ClientOption is a functional option for configuring a Client.
type ClientOption func(*clientConfig)

// WithHeader adds a header sent with every request unless the request sets
// it itself.
func WithHeader(key, value string) ClientOption {
	return func(c *clientConfig) {
		c.headers[key] = value
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return WithHeader("User-Agent", ua)
}

// Client sends requests through the host's http_request import.
type Client struct {
	host env.Host
	cfg  clientConfig
}

// NewClient creates a Client over h.
func NewClient(h env.Host, opts ...ClientOption) *Client {
	cfg := clientConfig{headers: map[string]string{}}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Client{host: h, cfg: cfg}
}

// DefaultClient returns a Client over the plugin's import table.
func DefaultClient(opts ...ClientOption) *Client {
	return NewClient(abi.Host(), opts...)
}

// Do sends req. A request the host refuses (disallowed host, transport
// failure, oversized body) aborts the plugin call; Do only returns errors
// found before the request leaves the plugin.
func (c *Client) Do(req Request) (*Response, error) {
	req.Method = strings.ToUpper(req.Method)
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	if err := pdk.Validate(req); err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	req.Headers = c.headers(req.Headers)

	encoded, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode http request: %w", err)
	}

	var resp *Response
	err = memory.WithBytes(c.host, encoded, func(r *memory.Region) error {
		var sendErr error
		if len(req.Body) == 0 {
			resp, sendErr = c.send(r.Offset(), 0)
			return sendErr
		}
		return memory.WithBytes(c.host, req.Body, func(body *memory.Region) error {
			resp, sendErr = c.send(r.Offset(), body.Offset())
			return sendErr
		})
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Get sends a GET request.
func (c *Client) Get(url string) (*Response, error) {
	return c.Do(Request{Method: http.MethodGet, URL: url})
}

// Post sends a POST request with body.
func (c *Client) Post(url, contentType string, body []byte) (*Response, error) {
	return c.Do(Request{
		Method:  http.MethodPost,
		URL:     url,
		Headers: map[string]string{"Content-Type": contentType},
		Body:    body,
	})
}

func (c *Client) send(requestOffset, bodyOffset uint64) (*Response, error) {
	offset := c.host.HTTPRequest(requestOffset, bodyOffset)
	resp := &Response{
		StatusCode: int(c.host.HTTPStatusCode()),
		Body:       []byte{},
	}
	if offset == 0 {
		return resp, nil
	}

	// The response region belongs to the host.
	r, err := memory.Lookup(c.host, offset)
	if err != nil {
		return nil, fmt.Errorf("http response: %w", err)
	}
	if resp.Body, err = r.Read(); err != nil {
		return nil, fmt.Errorf("http response: %w", err)
	}
	return resp, nil
}

func (c *Client) headers(req map[string]string) map[string]string {
	if len(c.cfg.headers) == 0 {
		return req
	}
	out := make(map[string]string, len(c.cfg.headers)+len(req))
	for k, v := range c.cfg.headers {
		out[k] = v
	}
	for k, v := range req {
		out[k] = v
	}
	return out
}
