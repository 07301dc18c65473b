// Package api is the HTTP client for the transcription backend. It injects
// the bearer credential and role identity header on every request and turns
// authentication failures into a global session teardown.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pcameron/medscribe/internal/logging"
	"github.com/pcameron/medscribe/internal/session"
)

// HTTPClient interface for HTTP requests (enables testing)
type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

// Verify http.Client implements HTTPClient
var _ HTTPClient = (*http.Client)(nil)

// Error is a backend rejection: the HTTP status plus the detail message the
// backend put in the response body, when it sent one.
type Error struct {
	Status int
	Detail string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("backend error %d: %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("backend error %d", e.Status)
}

// Client talks to the backend REST surface.
type Client struct {
	base  string
	http  HTTPClient
	store *session.Store
	log   *logging.Logger
}

// New creates a client against baseURL using a standard HTTP client.
func New(baseURL string, timeout time.Duration, store *session.Store) *Client {
	return NewWithHTTPClient(baseURL, &http.Client{Timeout: timeout}, store)
}

// NewWithHTTPClient creates a client with an injected transport.
func NewWithHTTPClient(baseURL string, hc HTTPClient, store *session.Store) *Client {
	return &Client{
		base:  strings.TrimRight(baseURL, "/"),
		http:  hc,
		store: store,
		log:   logging.New("api"),
	}
}

// do dispatches one request. A session, when present, contributes the bearer
// token and exactly one role identity header. A 401 response tears the
// session down before the error reaches the caller.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	if sess := c.store.Current(); sess != nil {
		req.Header.Set("Authorization", "Bearer "+sess.Token)
		switch sess.Role {
		case session.RoleAdmin:
			req.Header.Set("X-Admin-Username", sess.Identity.Username)
		default:
			req.Header.Set("X-User-Username", sess.Identity.Username)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Request(method+" "+path, requestID, start, err)
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		apiErr := &Error{Status: resp.StatusCode, Detail: detailFrom(data)}
		c.log.Request(method+" "+path, requestID, start, apiErr)
		c.store.Teardown()
		return nil, apiErr
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{Status: resp.StatusCode, Detail: detailFrom(data)}
		c.log.Request(method+" "+path, requestID, start, apiErr)
		return nil, apiErr
	}

	c.log.Request(method+" "+path, requestID, start, nil)
	return data, nil
}

// doJSON sends an optional JSON body and decodes a JSON reply into out.
func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}

	data, err := c.do(ctx, method, path, body, contentType)
	if err != nil {
		return err
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// detailFrom extracts the backend's {"detail": "..."} message, if any.
func detailFrom(body []byte) string {
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Detail
}
