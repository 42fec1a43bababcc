package api

import (
	"log/slog"
	"net/http"
	"time"
)

// Client provides access to the Vortex REST API.
type Client struct {
	baseURL       string
	apiKey        string
	applicationID string
	accessToken   string
	httpClient    *http.Client
	logger        *slog.Logger

	maxRetries   int
	retryBackoff time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a new REST API client.
func NewClient(baseURL, apiKey, applicationID string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:       baseURL,
		apiKey:        apiKey,
		applicationID: applicationID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:       slog.Default(),
		maxRetries:   3,
		retryBackoff: time.Second,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// AccessToken returns the token obtained by Login, or the empty string
// before a successful login.
func (c *Client) AccessToken() string {
	return c.accessToken
}

// SetAccessToken installs an externally obtained token, skipping Login.
func (c *Client) SetAccessToken(token string) {
	c.accessToken = token
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRetries sets the retry configuration.
func WithRetries(max int, backoff time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetries = max
		c.retryBackoff = backoff
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}
