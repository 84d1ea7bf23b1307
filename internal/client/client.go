// Package client provides the authenticated HTTP client for the marketplace API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"marketplace-storefront/internal/logging"
	"marketplace-storefront/internal/metrics"
)

const (
	maxBodyBytes      = 8 << 20
	maxErrorBodyBytes = 64 << 10
	defaultTimeout    = 30 * time.Second
)

// ErrUnauthorized matches every error produced by an HTTP 401 response.
var ErrUnauthorized = errors.New("client: unauthorized")

// APIError is returned for non-2xx responses.
type APIError struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("client: %s %s failed with status %d: %s", e.Method, e.Path, e.Status, e.Message)
}

// UserMessage is the backend's message, suitable for a notice.
func (e *APIError) UserMessage() string { return e.Message }

// Is lets errors.Is(err, ErrUnauthorized) match 401 responses.
func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

// Session is the credential source the client is constructed with.
type Session interface {
	Token() string
	Clear(ctx context.Context) error
}

// UnauthorizedFunc is called after a 401 has cleared the session.
// loginPath is where the user should be sent to sign in again.
type UnauthorizedFunc func(ctx context.Context, loginPath string)

// Config configures the client.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	LoginPath string
}

// Client issues JSON requests against the marketplace API, attaching the
// session's bearer token and purging the session on 401.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	loginPath      string
	session        Session
	onUnauthorized UnauthorizedFunc
	log            logrus.FieldLogger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Client) { c.log = logging.Component(log, "api_client") }
}

// WithUnauthorizedHandler registers the hook run after a 401.
func WithUnauthorizedHandler(fn UnauthorizedFunc) Option {
	return func(c *Client) { c.onUnauthorized = fn }
}

// New creates a client bound to sess.
func New(cfg Config, sess Session, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	loginPath := cfg.LoginPath
	if loginPath == "" {
		loginPath = "/login"
	}
	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		loginPath:  loginPath,
		session:    sess,
		log:        logging.Component(nil, "api_client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LoginPath returns the route users are sent to after a 401.
func (c *Client) LoginPath() string { return c.loginPath }

// Do sends a JSON request and decodes the response body into out (which may
// be nil to discard it).
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("client: failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	return c.send(ctx, method, path, query, reader, "application/json", out)
}

// File is one file part of a multipart request.
type File struct {
	Field    string
	Filename string
	Content  io.Reader
}

// Multipart is a multipart/form-data payload.
type Multipart struct {
	Fields map[string]string
	Files  []File
}

// DoMultipart sends form as multipart/form-data.
func (c *Client) DoMultipart(ctx context.Context, method, path string, form Multipart, out interface{}) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range form.Fields {
		if err := w.WriteField(k, v); err != nil {
			return fmt.Errorf("client: failed to write form field %s: %w", k, err)
		}
	}
	for _, f := range form.Files {
		part, err := w.CreateFormFile(f.Field, f.Filename)
		if err != nil {
			return fmt.Errorf("client: failed to create form file %s: %w", f.Field, err)
		}
		if _, err := io.Copy(part, f.Content); err != nil {
			return fmt.Errorf("client: failed to copy form file %s: %w", f.Field, err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("client: failed to close multipart writer: %w", err)
	}
	return c.send(ctx, method, path, nil, &buf, w.FormDataContentType(), out)
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out interface{}) error {
	return c.Do(ctx, http.MethodGet, path, query, nil, out)
}

// Post performs a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out interface{}) error {
	return c.Do(ctx, http.MethodPost, path, nil, body, out)
}

// Patch performs a PATCH request with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body, out interface{}) error {
	return c.Do(ctx, http.MethodPatch, path, nil, body, out)
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string, out interface{}) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil, out)
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string, out interface{}) error {
	target := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("client: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}
	if c.session != nil {
		if token := c.session.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ObserveUpstream(method, 0, time.Since(start))
		return fmt.Errorf("client: %s %s request failed: %w", method, path, err)
	}
	defer resp.Body.Close()
	metrics.ObserveUpstream(method, resp.StatusCode, time.Since(start))

	c.log.WithFields(logrus.Fields{
		"method":      method,
		"path":        path,
		"status":      resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("upstream call")

	if resp.StatusCode >= 400 {
		apiErr := c.readError(resp, method, path)
		if resp.StatusCode == http.StatusUnauthorized {
			c.handleUnauthorized(ctx)
		}
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return fmt.Errorf("client: failed to read response body: %w", err)
	}
	if len(raw) > maxBodyBytes {
		return fmt.Errorf("client: response body exceeds %d bytes", maxBodyBytes)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("client: failed to decode response from %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) readError(resp *http.Response, method, path string) *APIError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	msg := ""
	if gjson.ValidBytes(raw) {
		for _, field := range []string{"message", "error", "msg"} {
			if v := gjson.GetBytes(raw, field); v.Exists() && v.Type == gjson.String && v.String() != "" {
				msg = v.String()
				break
			}
		}
	}
	if msg == "" {
		msg = strings.TrimSpace(string(raw))
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &APIError{Method: method, Path: path, Status: resp.StatusCode, Message: msg}
}

// handleUnauthorized purges the session and notifies the hook. The purge is
// not tied to the caller's cancellation.
func (c *Client) handleUnauthorized(ctx context.Context) {
	if c.session != nil {
		if err := c.session.Clear(context.WithoutCancel(ctx)); err != nil {
			c.log.WithError(err).Warn("failed to clear session after 401")
		}
	}
	if c.onUnauthorized != nil {
		c.onUnauthorized(ctx, c.loginPath)
	}
}
