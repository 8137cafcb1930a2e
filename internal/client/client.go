// Package client is a typed Go client for the exam-grader REST API.
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
)

// APIPrefix is the path every API endpoint lives under.
const APIPrefix = "/api/v1"

// DefaultTimeout bounds plain request/response calls. Streams use the caller's context only.
const DefaultTimeout = 2 * time.Minute

// ErrUnauthorized is matched by errors.Is for any 401 answer.
var ErrUnauthorized = errors.New("not authenticated")

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("API error (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Message)
}

// Unwrap lets errors.Is(err, ErrUnauthorized) match 401 answers.
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}

// Client talks to one exam-grader server.
type Client struct {
	baseURL    string
	httpClient *http.Client
	stream     *http.Client
	store      *TokenStore
	token      string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client used for regular calls.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.httpClient = h
		c.stream = h
	}
}

// WithTokenStore persists the session token across runs.
func WithTokenStore(s *TokenStore) Option {
	return func(c *Client) {
		c.store = s
	}
}

// WithToken sets a bearer token directly, overriding the store.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// New creates a client for the server at baseURL (scheme and host, without the API prefix).
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		stream:     &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the server URL the client was created with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Token returns the bearer token in use, loading it from the store when needed.
func (c *Client) Token() string {
	if c.token != "" || c.store == nil {
		return c.token
	}
	session, err := c.store.Load()
	if err != nil || session == nil {
		return ""
	}
	c.token = session.Token
	return c.token
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+APIPrefix+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// send executes req and turns every non-2xx answer into an *APIError.
// A 401 also drops the stored session.
func (c *Client) send(hc *http.Client, req *http.Request) (*http.Response, error) {
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach %s: %w", c.baseURL, err)
	}
	if resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	apiErr := &APIError{StatusCode: resp.StatusCode, Message: readErrorMessage(resp.Body)}
	if resp.StatusCode == http.StatusUnauthorized {
		c.dropSession()
	}
	return nil, apiErr
}

func (c *Client) dropSession() {
	c.token = ""
	if c.store != nil {
		_ = c.store.Clear()
	}
}

func readErrorMessage(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, 64<<10))
	if err != nil {
		return ""
	}
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		if payload.Message != "" {
			return payload.Error + ": " + payload.Message
		}
		return payload.Error
	}
	return strings.TrimSpace(string(body))
}

// doJSON sends in as a JSON body (when non-nil) and decodes the answer into out (when non-nil).
func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.send(c.httpClient, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decode(resp, out)
}

func decode(resp *http.Response, out any) error {
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
