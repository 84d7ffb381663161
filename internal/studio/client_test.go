package studio

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestStartGeneration(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/studio/generate" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body["prompt"] != "a todo app" {
			t.Errorf("prompt = %v, want a todo app", body["prompt"])
		}
		json.NewEncoder(w).Encode(map[string]any{"job_id": "j1"})
	}))
	defer srv.Close()

	ack, err := NewClient(srv.URL).StartGeneration(context.Background(), "a todo app")
	if err != nil {
		t.Fatalf("StartGeneration() error = %v", err)
	}
	if ack["job_id"] != "j1" {
		t.Fatalf("ack = %v, want job_id j1", ack)
	}
}

func TestStatusErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL).Status(context.Background()); err == nil {
		t.Fatalf("Status() succeeded, want error on 502")
	}
}

func TestWorkspaceSummary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"project_name": "todo-app",
			"status":       "ready",
			"files":        12,
		})
	}))
	defer srv.Close()

	got := NewClient(srv.URL).WorkspaceSummary(context.Background())
	want := "project: todo-app, status: ready, files: 12"
	if got != want {
		t.Fatalf("WorkspaceSummary() = %q, want %q", got, want)
	}

	if got := NewClient("").WorkspaceSummary(context.Background()); got != "" {
		t.Fatalf("WorkspaceSummary() = %q for disabled client, want empty", got)
	}
}

func TestDisabledClient(t *testing.T) {
	c := NewClient("")
	if c.Enabled() {
		t.Fatalf("Enabled() = true for empty base URL")
	}

	ack, err := c.StartGeneration(context.Background(), "anything")
	if err != nil {
		t.Fatalf("StartGeneration() error = %v", err)
	}
	if ack["backend"] != "unavailable" {
		t.Fatalf("ack = %v, want backend=unavailable", ack)
	}

	status, err := c.Status(context.Background())
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if status["status"] != "no_project" {
		t.Fatalf("status = %v, want status=no_project", status)
	}
}
