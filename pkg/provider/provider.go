// Package provider implements a client for qlued-style cold-atom device
// APIs. The remote service owns the job queue and the simulators; this
// package only exercises it as a client:
//
//	client, _ := provider.NewClient(url, username, token)
//	backend, _ := client.Backend(ctx, "multiqudit")
//	job, _ := backend.Run(ctx, circ, 500)
//	result, _ := job.Wait(ctx, 2*time.Second)
//
// Every request carries the username/token credential pair as form fields,
// the way the provider API defines authentication. Calls are synchronous
// and blocking; cancellation happens through the context.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to one provider deployment on behalf of one user.
type Client struct {
	baseURL    string
	username   string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client, e.g. to add TLS settings.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger used for request-level debug logging.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a provider client. baseURL is the API root, e.g.
// https://qlued.example.org/api/v2. username and token are the account
// credentials issued by the provider.
func NewClient(baseURL, username, token string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("provider: base URL is required")
	}
	if username == "" || token == "" {
		return nil, errors.New("provider: username and token are required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("provider: invalid base URL: %w", err)
	}

	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		username: username,
		token:    token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Backend fetches the configuration of the named backend and returns a
// handle bound to it. The config fetch doubles as a credential check: the
// provider rejects unknown username/token pairs with 401.
func (c *Client) Backend(ctx context.Context, name string) (*Backend, error) {
	cfg, err := c.BackendConfig(ctx, name)
	if err != nil {
		return nil, err
	}
	return &Backend{client: c, config: cfg}, nil
}

// BackendConfig retrieves the configuration document for the named backend.
func (c *Client) BackendConfig(ctx context.Context, name string) (*BackendConfig, error) {
	if name == "" {
		return nil, errors.New("provider: backend name is required")
	}

	body, err := c.get(ctx, name, "get_config", nil)
	if err != nil {
		return nil, fmt.Errorf("get config for backend %q: %w", name, err)
	}

	var cfg BackendConfig
	if err := json.Unmarshal(body, &cfg); err != nil {
		return nil, fmt.Errorf("decode backend config: %w", err)
	}
	if cfg.Name == "" {
		cfg.Name = name
	}
	return &cfg, nil
}

// credentials returns the form fields attached to every request.
func (c *Client) credentials() url.Values {
	v := url.Values{}
	v.Set("username", c.username)
	v.Set("password", c.token)
	return v
}

// get issues a GET against {base}/{backend}/{endpoint}/ with credentials
// and extra parameters in the query string.
func (c *Client) get(ctx context.Context, backend, endpoint string, extra url.Values) ([]byte, error) {
	q := c.credentials()
	for k, vs := range extra {
		for _, v := range vs {
			q.Add(k, v)
		}
	}

	reqURL := fmt.Sprintf("%s/%s/%s/?%s", c.baseURL, backend, endpoint, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	return c.do(req, backend, endpoint)
}

// postForm issues a POST against {base}/{backend}/{endpoint}/ with
// credentials and extra fields form-encoded in the body.
func (c *Client) postForm(ctx context.Context, backend, endpoint string, extra url.Values) ([]byte, error) {
	form := c.credentials()
	for k, vs := range extra {
		for _, v := range vs {
			form.Add(k, v)
		}
	}

	reqURL := fmt.Sprintf("%s/%s/%s/", c.baseURL, backend, endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	return c.do(req, backend, endpoint)
}

func (c *Client) do(req *http.Request, backend, endpoint string) ([]byte, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("provider request",
		"backend", backend,
		"endpoint", endpoint,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%s: status %d: %s", endpoint, resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}

// ErrUnauthorized is returned when the provider rejects the credentials.
var ErrUnauthorized = errors.New("provider: invalid username or token")
