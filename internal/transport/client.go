// Package transport provides the HTTP client functionality shared by the
// CardDAV store, the roster download, and the photo gateway.
package transport

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/AkaBlas/akadressen-utils/pkg/errors"
)

// DefaultHTTPTimeout is the default timeout for HTTP requests.
const DefaultHTTPTimeout = 20 * time.Second

// userAgent identifies this tool to the remote servers.
const userAgent = "akadressen-utils"

// Client provides HTTP client functionality with authentication.
type Client struct {
	http *http.Client
	auth Authenticator
}

// New creates a new transport client with the specified authenticator.
func New(auth Authenticator) *Client {
	return NewWithTimeout(auth, DefaultHTTPTimeout)
}

// NewWithTimeout creates a new transport client with an explicit timeout.
func NewWithTimeout(auth Authenticator, timeout time.Duration) *Client {
	if auth == nil {
		auth = &NoAuth{}
	}
	return &Client{
		http: &http.Client{Timeout: timeout},
		auth: auth,
	}
}

// Do performs an HTTP request with authentication and common headers applied.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	c.auth.Apply(req)
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", userAgent)
	}
	return c.http.Do(req)
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.WrapAPI("transport", 0, err)
	}
	return c.Do(req)
}

// ReadBody reads and closes the response body, mapping non-2xx statuses to
// an APIError for the given service.
func ReadBody(resp *http.Response, service string) ([]byte, error) {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.WrapIO("read", "response body", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &errors.APIError{
			Service:    service,
			StatusCode: resp.StatusCode,
			Message:    string(body),
		}
	}

	return body, nil
}
