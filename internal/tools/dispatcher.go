package tools

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Result is the dispatcher's answer to one tool call. There is always one,
// whatever the handler did: an unanswered call would stall the model's turn
// indefinitely.
type Result struct {
	Name    string
	Data    map[string]any
	UI      *UIAction
	Policy  Policy
	IsError bool
}

// Payload renders the FunctionResponse body: the result data plus the
// scheduling hint for the model.
func (r Result) Payload() map[string]any {
	out := make(map[string]any, len(r.Data)+1)
	for k, v := range r.Data {
		out[k] = v
	}
	out["scheduling"] = string(r.Policy)
	return out
}

// Dispatcher routes tool calls to registered handlers. A single tool failure
// never propagates: unknown names, handler errors, and handler panics all
// become error results.
type Dispatcher struct {
	registry *Registry
	timeout  time.Duration
	log      *zap.Logger
	observe  func(tool, outcome string)
}

// NewDispatcher wires a dispatcher over an immutable registry. observe, when
// non-nil, is called once per dispatch with the outcome ("ok", "error",
// "unknown", "panic") for metrics.
func NewDispatcher(registry *Registry, timeout time.Duration, log *zap.Logger, observe func(tool, outcome string)) *Dispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{registry: registry, timeout: timeout, log: log, observe: observe}
}

// Dispatch executes one call and always returns a result.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, args map[string]any) Result {
	reg, ok := d.registry.lookup(name)
	if !ok {
		d.log.Warn("unknown tool", zap.String("tool", name))
		d.count(name, "unknown")
		return Result{
			Name:    name,
			Data:    map[string]any{"error": fmt.Sprintf("unknown tool: %s", name)},
			Policy:  PolicyWhenIdle,
			IsError: true,
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	outcome, err := d.run(callCtx, reg, args)
	if err != nil {
		d.log.Error("tool failed", zap.String("tool", name), zap.Error(err))
		if errors.Is(err, errHandlerPanic) {
			d.count(name, "panic")
		} else {
			d.count(name, "error")
		}
		return Result{
			Name:    name,
			Data:    map[string]any{"error": fmt.Sprintf("tool %s failed: %v", name, err)},
			Policy:  reg.Policy,
			IsError: true,
		}
	}

	d.count(name, "ok")
	data := outcome.Data
	if data == nil {
		data = map[string]any{}
	}
	return Result{Name: name, Data: data, UI: outcome.UI, Policy: reg.Policy}
}

var errHandlerPanic = errors.New("handler panic")

// run isolates handler panics into errors.
func (d *Dispatcher) run(ctx context.Context, reg Registration, args map[string]any) (outcome Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errHandlerPanic, r)
		}
	}()
	if args == nil {
		args = map[string]any{}
	}
	return reg.Handler(ctx, args)
}

func (d *Dispatcher) count(tool, outcome string) {
	if d.observe != nil {
		d.observe(tool, outcome)
	}
}
