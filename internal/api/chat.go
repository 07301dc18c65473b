package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
)

// ChatRequest is the POST /chat/ body. SessionID is the bearer token; the
// backend keys conversation memory on it.
type ChatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
	TaskName  string `json:"task_name,omitempty"`
}

// ChatResponse is the backend's reply to a chat message.
type ChatResponse struct {
	Response    string `json:"response"`
	LLMProvider string `json:"llm_provider"`
	Model       string `json:"model"`
	SessionID   string `json:"session_id"`
}

// Attachment is one file sent alongside a chat message. Content is read once
// at dispatch and not retained.
type Attachment struct {
	Name     string
	MIMEType string
	Size     int64
	Content  io.Reader
}

// SendChat posts one chat message. JSON when there are no attachments,
// multipart form data otherwise; field names are identical either way.
func (c *Client) SendChat(ctx context.Context, req ChatRequest, files []Attachment) (*ChatResponse, error) {
	var out ChatResponse
	if len(files) == 0 {
		if err := c.doJSON(ctx, http.MethodPost, "/chat/", req, &out); err != nil {
			return nil, err
		}
		return &out, nil
	}

	body, contentType, err := encodeMultipart(req, files)
	if err != nil {
		return nil, err
	}
	data, err := c.do(ctx, http.MethodPost, "/chat/", body, contentType)
	if err != nil {
		return nil, err
	}
	if err := decodeJSON(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ClearChatSession deletes the server-side conversation for a session token.
func (c *Client) ClearChatSession(ctx context.Context, sessionID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/chat/sessions/"+url.PathEscape(sessionID), nil, nil)
}

// MemoryStats fetches the admin conversation-memory diagnostic.
func (c *Client) MemoryStats(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	if err := c.doJSON(ctx, http.MethodGet, "/chat/memory/stats", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// HealthStatus is the unauthenticated liveness reply.
type HealthStatus struct {
	Status string `json:"status"`
}

// Health probes backend liveness.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	var out HealthStatus
	if err := c.doJSON(ctx, http.MethodGet, "/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ProviderInfo is the active LLM provider metadata.
type ProviderInfo struct {
	LLMProvider string `json:"llm_provider"`
	Model       string `json:"model"`
}

// Provider fetches which LLM provider and model the backend is using.
func (c *Client) Provider(ctx context.Context) (*ProviderInfo, error) {
	var out ProviderInfo
	if err := c.doJSON(ctx, http.MethodGet, "/llm/provider", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func encodeMultipart(req ChatRequest, files []Attachment) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("session_id", req.SessionID); err != nil {
		return nil, "", fmt.Errorf("encode form: %w", err)
	}
	if err := w.WriteField("message", req.Message); err != nil {
		return nil, "", fmt.Errorf("encode form: %w", err)
	}
	if req.TaskName != "" {
		if err := w.WriteField("task_name", req.TaskName); err != nil {
			return nil, "", fmt.Errorf("encode form: %w", err)
		}
	}

	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename=%q`, f.Name))
		if f.MIMEType != "" {
			h.Set("Content-Type", f.MIMEType)
		}
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("encode form: %w", err)
		}
		if _, err := io.Copy(part, f.Content); err != nil {
			return nil, "", fmt.Errorf("attach %s: %w", f.Name, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("encode form: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

func decodeJSON(data []byte, out any) error {
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
