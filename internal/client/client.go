// Package client is a Go client for the AniVers API. It keeps the session
// alive on its own: the refresh cookie lives in a cookie jar, and a request
// rejected with 401 is retried once after a silent refresh.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"

	"github.com/dom/anivers/internal/logging"
	"github.com/goccy/go-json"
)

// ErrSessionExpired is returned when a 401 could not be cured by a refresh.
// The cached access token has been dropped by then.
var ErrSessionExpired = errors.New("session expired")

// APIError is a non-2xx answer decoded from the API error body.
type APIError struct {
	StatusCode int
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Fields     map[string]string `json:"fields"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api: %s (%d): %s", e.Code, e.StatusCode, e.Message)
}

type Client struct {
	baseURL    string
	httpClient *http.Client

	mu          sync.Mutex
	accessToken string

	// refreshMu lets only one refresh run at a time.
	refreshMu sync.Mutex
}

type Option func(*Client)

// WithHTTPClient replaces the transport. The client's cookie jar is kept
// unless c brings its own.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		jar := cl.httpClient.Jar
		cl.httpClient = c
		if c.Jar == nil {
			cl.httpClient.Jar = jar
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(cl *Client) { cl.httpClient.Timeout = d }
}

// New returns a client for the API served at baseURL (without the /api suffix).
func New(baseURL string, opts ...Option) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/") + "/api",
		httpClient: &http.Client{
			Jar:     jar,
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) AccessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken
}

func (c *Client) SetAccessToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = token
}

// Do sends a request and decodes a JSON answer into out (when non-nil).
// A 401 triggers one refresh and one replay of the original request.
func (c *Client) Do(ctx context.Context, method, path string, body, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}
	return c.DoRaw(ctx, method, path, "application/json", payload, out)
}

// DoRaw is Do for bodies that are already encoded, such as multipart uploads.
func (c *Client) DoRaw(ctx context.Context, method, path, contentType string, payload []byte, out interface{}) error {
	sentToken := c.AccessToken()
	resp, err := c.send(ctx, method, path, contentType, payload, sentToken)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		drain(resp)
		if err := c.renew(ctx, sentToken); err != nil {
			return err
		}
		// Replayed once. A second 401 is handed to the caller as is.
		resp, err = c.send(ctx, method, path, contentType, payload, c.AccessToken())
		if err != nil {
			return err
		}
	}

	return decode(resp, out)
}

// renew refreshes the session unless another request already did so after
// sentToken was used.
func (c *Client) renew(ctx context.Context, sentToken string) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	if current := c.AccessToken(); current != "" && current != sentToken {
		return nil
	}

	if _, err := c.Refresh(ctx); err != nil {
		c.SetAccessToken("")
		logging.Ctx(ctx).Debug().Err(err).Msg("session refresh failed")
		return fmt.Errorf("%w: %w", ErrSessionExpired, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path, contentType string, payload []byte, token string) (*http.Response, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return c.httpClient.Do(req)
}

func decode(resp *http.Response, out interface{}) error {
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		_ = json.Unmarshal(data, apiErr)
		return apiErr
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if raw, ok := out.(*json.RawMessage); ok {
		*raw = append((*raw)[:0], data...)
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}
