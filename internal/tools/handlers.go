package tools

import (
	"context"
	"fmt"
	"strings"
)

// Generator triggers app/code generation out-of-band. The call returns an
// acknowledgment; progress flows to the client over its own channel.
type Generator interface {
	StartGeneration(ctx context.Context, prompt string) (map[string]any, error)
}

// ProjectState exposes a snapshot of the active project.
type ProjectState interface {
	Status(ctx context.Context) (map[string]any, error)
}

// Deps are the external collaborators the standard tool set calls out to.
// All are treated as opaque, already-validated operations.
type Deps struct {
	Catalog     *Catalog
	Generator   Generator
	Project     ProjectState
	Recommender Recommender
}

// StandardRegistrations builds the eight tools the assistant can invoke.
func StandardRegistrations(deps Deps) []Registration {
	return []Registration{
		{
			Name:        "recommend_tools",
			Description: "Get AI-powered tool recommendations based on the current project context. Returns a list of tool IDs with reasons.",
			Policy:      PolicyWhenIdle,
			Parameters: objectParams(map[string]any{
				"project_summary": stringParam("Brief description of what the project does"),
			}, "project_summary"),
			Handler: func(ctx context.Context, args map[string]any) (Outcome, error) {
				summary := stringArg(args, "project_summary")
				if deps.Recommender == nil {
					return Outcome{Data: map[string]any{"recommendations": []any{}}}, nil
				}
				recs, err := deps.Recommender.Recommend(ctx, summary)
				if err != nil {
					return Outcome{}, err
				}
				return Outcome{Data: map[string]any{"recommendations": recs}}, nil
			},
		},
		{
			Name:        "generate_app",
			Description: "Start generating a full-stack web application from a natural language description.",
			Policy:      PolicyNonBlocking,
			Parameters: objectParams(map[string]any{
				"prompt": stringParam("Natural language description of the app to build"),
			}, "prompt"),
			Handler: func(ctx context.Context, args map[string]any) (Outcome, error) {
				prompt := stringArg(args, "prompt")
				if prompt == "" {
					return Outcome{}, fmt.Errorf("no prompt provided")
				}
				if deps.Generator == nil {
					return Outcome{}, fmt.Errorf("generation pipeline unavailable")
				}
				ack, err := deps.Generator.StartGeneration(ctx, prompt)
				if err != nil {
					return Outcome{}, err
				}
				data := map[string]any{"status": "generation_started", "prompt": prompt}
				for k, v := range ack {
					data[k] = v
				}
				return Outcome{
					Data: data,
					UI:   &UIAction{Action: "generate", Params: map[string]any{"prompt": prompt}},
				}, nil
			},
		},
		{
			Name:        "add_tool",
			Description: "Add a specific tool or library to the current project by its ID.",
			Policy:      PolicyWhenIdle,
			Parameters: objectParams(map[string]any{
				"tool_id": stringParam("The tool ID to add (e.g. 'langchain-js', 'd3-js', 'redis')"),
			}, "tool_id"),
			Handler: func(_ context.Context, args map[string]any) (Outcome, error) {
				toolID := stringArg(args, "tool_id")
				if toolID == "" {
					return Outcome{}, fmt.Errorf("no tool_id provided")
				}
				entry, ok := deps.Catalog.Lookup(toolID)
				if !ok {
					return Outcome{}, fmt.Errorf("tool %q not found in catalog", toolID)
				}
				return Outcome{
					Data: map[string]any{
						"status":    "tool_added",
						"tool_id":   entry.ID,
						"tool_name": entry.Name,
					},
					UI: &UIAction{Action: "add_tool", Params: map[string]any{
						"tool_id":            entry.ID,
						"tool_name":          entry.Name,
						"integration_prompt": entry.IntegrationPrompt,
					}},
				}, nil
			},
		},
		{
			Name:        "navigate_ui",
			Description: "Navigate the Studio UI to a specific page or panel.",
			Policy:      PolicySilent,
			Parameters: objectParams(map[string]any{
				"target": map[string]any{
					"type":        "string",
					"enum":        []string{"welcome", "studio", "settings", "files", "preview", "chat"},
					"description": "The UI target to navigate to",
				},
			}, "target"),
			Handler: func(_ context.Context, args map[string]any) (Outcome, error) {
				target := stringArg(args, "target")
				if target == "" {
					target = "studio"
				}
				return Outcome{
					Data: map[string]any{"status": "navigated", "target": target},
					UI:   &UIAction{Action: "navigate", Params: map[string]any{"target": target}},
				}, nil
			},
		},
		{
			Name:        "get_project_status",
			Description: "Get the current project state including file count, dependencies, and generation status.",
			Policy:      PolicyWhenIdle,
			Handler: func(ctx context.Context, _ map[string]any) (Outcome, error) {
				if deps.Project == nil {
					return Outcome{Data: map[string]any{"status": "no_project", "files": 0}}, nil
				}
				status, err := deps.Project.Status(ctx)
				if err != nil {
					return Outcome{}, err
				}
				return Outcome{Data: status}, nil
			},
		},
		{
			Name:        "search_tools",
			Description: "Search the tool registry by keyword or domain. Returns matching tool names and descriptions.",
			Policy:      PolicyWhenIdle,
			Parameters: objectParams(map[string]any{
				"query": stringParam("Search query (tool name, keyword, or technology)"),
				"domain": map[string]any{
					"type": "string",
					"enum": []string{
						"general", "saas", "ai-ml", "music", "gaming", "productivity",
						"social", "ecommerce", "data-viz", "web-dev", "documentation",
						"animations", "visuals",
					},
					"description": "Optional domain filter",
				},
			}, "query"),
			Handler: func(_ context.Context, args map[string]any) (Outcome, error) {
				matches, total := deps.Catalog.Search(stringArg(args, "query"), stringArg(args, "domain"))
				results := make([]map[string]any, 0, len(matches))
				for _, e := range matches {
					results = append(results, map[string]any{
						"id":          e.ID,
						"name":        e.Name,
						"description": truncate(e.Description, 100),
						"category":    e.Category,
						"domains":     e.Domains,
					})
				}
				return Outcome{Data: map[string]any{"tools": results, "total": total}}, nil
			},
		},
		{
			Name:        "load_template",
			Description: "Load a project template by ID. Shows a pre-built project the user can customize.",
			Policy:      PolicyWhenIdle,
			Parameters: objectParams(map[string]any{
				"template_id": stringParam("The template ID to load"),
			}, "template_id"),
			Handler: func(_ context.Context, args map[string]any) (Outcome, error) {
				templateID := stringArg(args, "template_id")
				if templateID == "" {
					return Outcome{}, fmt.Errorf("no template_id provided")
				}
				return Outcome{
					Data: map[string]any{"status": "template_loading", "template_id": templateID},
					UI:   &UIAction{Action: "load_template", Params: map[string]any{"template_id": templateID}},
				}, nil
			},
		},
		{
			Name:        "add_blueprint",
			Description: "Add a reusable component blueprint to the current project.",
			Policy:      PolicyWhenIdle,
			Parameters: objectParams(map[string]any{
				"blueprint_id": stringParam("The blueprint ID to add (e.g. 'zustand-store', 'recharts-dashboard')"),
			}, "blueprint_id"),
			Handler: func(_ context.Context, args map[string]any) (Outcome, error) {
				blueprintID := stringArg(args, "blueprint_id")
				if blueprintID == "" {
					return Outcome{}, fmt.Errorf("no blueprint_id provided")
				}
				return Outcome{
					Data: map[string]any{"status": "blueprint_added", "blueprint_id": blueprintID},
					UI:   &UIAction{Action: "add_blueprint", Params: map[string]any{"blueprint_id": blueprintID}},
				}, nil
			},
		},
	}
}

func objectParams(props map[string]any, required ...string) map[string]any {
	params := map[string]any{"type": "object", "properties": props}
	if len(required) > 0 {
		params["required"] = required
	}
	return params
}

func stringParam(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return strings.TrimSpace(s)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
