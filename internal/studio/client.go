// Package studio talks to the app-generation backend over HTTP. The relay
// never drives generation itself; it only kicks jobs off and reads status.
package studio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client is an HTTP adapter for the studio backend. A zero base URL yields a
// disabled client: calls succeed with an "unavailable" payload so voice
// sessions keep working when the backend is down or not deployed.
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Enabled reports whether a backend URL was configured.
func (c *Client) Enabled() bool { return c.baseURL != "" }

// StartGeneration asks the backend to begin generating an app from a prompt.
// The backend streams progress to the browser on its own channel; the returned
// map is only the acknowledgment.
func (c *Client) StartGeneration(ctx context.Context, prompt string) (map[string]any, error) {
	if !c.Enabled() {
		return map[string]any{"backend": "unavailable"}, nil
	}
	return c.postJSON(ctx, "/api/studio/generate", map[string]any{"prompt": prompt})
}

// Status fetches the active project snapshot.
func (c *Client) Status(ctx context.Context) (map[string]any, error) {
	if !c.Enabled() {
		return map[string]any{"status": "no_project", "backend": "unavailable"}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/studio/status", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return c.do(req)
}

// WorkspaceSummary renders a one-line project description for the assistant's
// system instruction. Returns "" when no backend is configured or the status
// call fails; sessions must start regardless.
func (c *Client) WorkspaceSummary(ctx context.Context) string {
	if !c.Enabled() {
		return ""
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	status, err := c.Status(ctx)
	if err != nil {
		return ""
	}
	var parts []string
	if name, _ := status["project_name"].(string); name != "" {
		parts = append(parts, "project: "+name)
	}
	if state, _ := status["status"].(string); state != "" && state != "no_project" {
		parts = append(parts, "status: "+state)
	}
	if files, ok := status["files"].(float64); ok && files > 0 {
		parts = append(parts, fmt.Sprintf("files: %d", int(files)))
	}
	return strings.Join(parts, ", ")
}

func (c *Client) postJSON(ctx context.Context, path string, body map[string]any) (map[string]any, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) do(req *http.Request) (map[string]any, error) {
	res, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("studio request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return nil, fmt.Errorf("studio http status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}

	var obj map[string]any
	if err := json.NewDecoder(res.Body).Decode(&obj); err != nil {
		return nil, fmt.Errorf("decode studio response: %w", err)
	}
	return obj, nil
}
