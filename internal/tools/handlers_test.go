package tools

import (
	"context"
	"testing"
	"time"
)

type fakeGenerator struct {
	prompts []string
	ack     map[string]any
}

func (g *fakeGenerator) StartGeneration(_ context.Context, prompt string) (map[string]any, error) {
	g.prompts = append(g.prompts, prompt)
	return g.ack, nil
}

type fakeProject struct{ status map[string]any }

func (p *fakeProject) Status(context.Context) (map[string]any, error) { return p.status, nil }

type fakeRecommender struct{ recs []Recommendation }

func (r *fakeRecommender) Recommend(context.Context, string) ([]Recommendation, error) {
	return r.recs, nil
}

func standardDispatcher(t *testing.T, deps Deps) *Dispatcher {
	t.Helper()
	if deps.Catalog == nil {
		c, err := LoadCatalog()
		if err != nil {
			t.Fatalf("LoadCatalog() error = %v", err)
		}
		deps.Catalog = c
	}
	reg, err := NewRegistry(StandardRegistrations(deps))
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	return NewDispatcher(reg, time.Second, nil, nil)
}

func TestGenerateAppFireAndForget(t *testing.T) {
	gen := &fakeGenerator{ack: map[string]any{"pipeline_id": "p-1"}}
	d := standardDispatcher(t, Deps{Generator: gen})

	res := d.Dispatch(context.Background(), "generate_app", map[string]any{"prompt": "a todo app"})
	if res.IsError {
		t.Fatalf("generate_app errored: %v", res.Data)
	}
	if res.Data["status"] != "generation_started" {
		t.Fatalf("status = %v, want generation_started", res.Data["status"])
	}
	if res.Data["pipeline_id"] != "p-1" {
		t.Fatalf("ack not merged into result: %v", res.Data)
	}
	if res.UI == nil || res.UI.Action != "generate" {
		t.Fatalf("UI = %#v, want generate action", res.UI)
	}
	if len(gen.prompts) != 1 || gen.prompts[0] != "a todo app" {
		t.Fatalf("generator prompts = %v", gen.prompts)
	}
}

func TestGenerateAppRequiresPrompt(t *testing.T) {
	d := standardDispatcher(t, Deps{Generator: &fakeGenerator{}})
	res := d.Dispatch(context.Background(), "generate_app", map[string]any{})
	if !res.IsError {
		t.Fatalf("generate_app without prompt: IsError = false, want true")
	}
}

func TestNavigateUIDefaultsToStudioAndSilent(t *testing.T) {
	d := standardDispatcher(t, Deps{})
	res := d.Dispatch(context.Background(), "navigate_ui", map[string]any{})
	if res.IsError {
		t.Fatalf("navigate_ui errored: %v", res.Data)
	}
	if res.Data["target"] != "studio" {
		t.Fatalf("target = %v, want studio", res.Data["target"])
	}
	if res.Policy != PolicySilent {
		t.Fatalf("Policy = %q, want SILENT", res.Policy)
	}
	if res.UI == nil || res.UI.Action != "navigate" {
		t.Fatalf("UI = %#v, want navigate action", res.UI)
	}
}

func TestAddToolUnknownID(t *testing.T) {
	d := standardDispatcher(t, Deps{})
	res := d.Dispatch(context.Background(), "add_tool", map[string]any{"tool_id": "not-real"})
	if !res.IsError {
		t.Fatalf("add_tool(not-real): IsError = false, want true")
	}
}

func TestAddToolKnownIDCarriesIntegrationPrompt(t *testing.T) {
	d := standardDispatcher(t, Deps{})
	res := d.Dispatch(context.Background(), "add_tool", map[string]any{"tool_id": "redis"})
	if res.IsError {
		t.Fatalf("add_tool(redis) errored: %v", res.Data)
	}
	if res.UI == nil || res.UI.Action != "add_tool" {
		t.Fatalf("UI = %#v, want add_tool action", res.UI)
	}
	if res.UI.Params["integration_prompt"] == "" {
		t.Fatalf("integration_prompt empty")
	}
}

func TestSearchToolsShape(t *testing.T) {
	d := standardDispatcher(t, Deps{})
	res := d.Dispatch(context.Background(), "search_tools", map[string]any{"query": "state"})
	if res.IsError {
		t.Fatalf("search_tools errored: %v", res.Data)
	}
	results, ok := res.Data["tools"].([]map[string]any)
	if !ok {
		t.Fatalf("tools = %T, want []map[string]any", res.Data["tools"])
	}
	if len(results) == 0 {
		t.Fatalf("search_tools(state) returned no results")
	}
}

func TestGetProjectStatusNoProject(t *testing.T) {
	d := standardDispatcher(t, Deps{})
	res := d.Dispatch(context.Background(), "get_project_status", nil)
	if res.IsError {
		t.Fatalf("get_project_status errored: %v", res.Data)
	}
	if res.Data["status"] != "no_project" {
		t.Fatalf("status = %v, want no_project", res.Data["status"])
	}
}

func TestRecommendToolsUsesCollaborator(t *testing.T) {
	rec := &fakeRecommender{recs: []Recommendation{{ToolID: "recharts", Reason: "dashboards"}}}
	d := standardDispatcher(t, Deps{Recommender: rec})
	res := d.Dispatch(context.Background(), "recommend_tools", map[string]any{"project_summary": "analytics app"})
	if res.IsError {
		t.Fatalf("recommend_tools errored: %v", res.Data)
	}
	recs, ok := res.Data["recommendations"].([]Recommendation)
	if !ok || len(recs) != 1 || recs[0].ToolID != "recharts" {
		t.Fatalf("recommendations = %#v", res.Data["recommendations"])
	}
}

func TestParseRecommendationsFenced(t *testing.T) {
	text := "```json\n[{\"toolId\":\"d3-js\",\"reason\":\"custom viz\"}]\n```"
	recs, err := parseRecommendations(text)
	if err != nil {
		t.Fatalf("parseRecommendations() error = %v", err)
	}
	if len(recs) != 1 || recs[0].ToolID != "d3-js" {
		t.Fatalf("recs = %#v", recs)
	}
}
