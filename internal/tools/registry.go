package tools

import (
	"context"
	"fmt"
	"sort"

	"github.com/voxstudio/voxrelay/internal/upstream"
)

// Policy hints how intrusively a tool's effect should surface in the ongoing
// conversation. The dispatcher threads it through opaquely; only the upstream
// model interprets it.
type Policy string

const (
	PolicySilent      Policy = "SILENT"
	PolicyWhenIdle    Policy = "WHEN_IDLE"
	PolicyNonBlocking Policy = "NON_BLOCKING"
)

// UIAction is a client-directed side effect a handler wants emitted alongside
// its result. The session forwards it on the control channel; no backend
// state changes.
type UIAction struct {
	Action string
	Params map[string]any
}

// Outcome is what a handler produces: a result mapping for the model, plus an
// optional UI action.
type Outcome struct {
	Data map[string]any
	UI   *UIAction
}

// Handler executes one tool call. Handlers must be non-blocking-cheap or
// delegate to fire-and-forget side effects; the session's receive loop is
// paused while a call batch is handled.
type Handler func(ctx context.Context, args map[string]any) (Outcome, error)

// Registration declares one tool: its contract, default policy, and handler.
type Registration struct {
	Name        string
	Description string
	Parameters  map[string]any
	Policy      Policy
	Handler     Handler
}

// Registry holds the tool set declared to the upstream model. Built once at
// startup, immutable afterward, safe to share across all sessions.
type Registry struct {
	byName map[string]Registration
	names  []string
}

func NewRegistry(regs []Registration) (*Registry, error) {
	byName := make(map[string]Registration, len(regs))
	names := make([]string, 0, len(regs))
	for _, r := range regs {
		if r.Name == "" {
			return nil, fmt.Errorf("tool registration with empty name")
		}
		if r.Handler == nil {
			return nil, fmt.Errorf("tool %q has no handler", r.Name)
		}
		if _, dup := byName[r.Name]; dup {
			return nil, fmt.Errorf("duplicate tool %q", r.Name)
		}
		if r.Policy == "" {
			r.Policy = PolicyWhenIdle
		}
		byName[r.Name] = r
		names = append(names, r.Name)
	}
	sort.Strings(names)
	return &Registry{byName: byName, names: names}, nil
}

func (r *Registry) lookup(name string) (Registration, bool) {
	reg, ok := r.byName[name]
	return reg, ok
}

// Names returns the registered tool names, sorted.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Declarations renders the registry as the function declarations sent in the
// upstream handshake. Every tool is declared NON_BLOCKING: the session answers
// calls asynchronously relative to the model's audio stream.
func (r *Registry) Declarations() []upstream.FunctionDeclaration {
	decls := make([]upstream.FunctionDeclaration, 0, len(r.names))
	for _, name := range r.names {
		reg := r.byName[name]
		params := reg.Parameters
		if params == nil {
			params = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		decls = append(decls, upstream.FunctionDeclaration{
			Name:        reg.Name,
			Description: reg.Description,
			Behavior:    "NON_BLOCKING",
			Parameters:  params,
		})
	}
	return decls
}
