package agent

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"github.com/roverfleet/roverfleet/pkg/api"
	"github.com/roverfleet/roverfleet/pkg/observability"
)

// ErrUnknownCommand is returned by Lookup when no action is registered under
// the requested name. Dispatch treats it as a local execution failure, never
// as fatal.
var ErrUnknownCommand = errors.New("unknown command")

// Action executes one command with its optional argument and returns a
// normalized outcome. Implementations are provided by hardware drivers;
// the core owns only the dispatch table.
type Action interface {
	Execute(ctx context.Context, arg json.RawMessage) api.Result
}

// ActionFunc adapts a function to the Action interface.
type ActionFunc func(ctx context.Context, arg json.RawMessage) api.Result

// Execute implements Action.
func (f ActionFunc) Execute(ctx context.Context, arg json.RawMessage) api.Result {
	return f(ctx, arg)
}

// Registry maps command names to executable actions. The loop is
// single-threaded, so the table needs no locking after setup.
type Registry struct {
	actions map[string]Action
	logger  *zap.Logger
}

// NewRegistry creates an empty action registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		actions: make(map[string]Action),
		logger:  logger,
	}
}

// Register binds an action to a command name, replacing any previous binding.
func (r *Registry) Register(name string, action Action) {
	r.actions[name] = action
}

// RegisterFunc binds a function action to a command name.
func (r *Registry) RegisterFunc(name string, fn ActionFunc) {
	r.Register(name, fn)
}

// Lookup resolves a command name to its action.
func (r *Registry) Lookup(name string) (Action, error) {
	action, ok := r.actions[name]
	if !ok {
		return nil, ErrUnknownCommand
	}
	return action, nil
}

// Dispatch executes the named action. Unknown names are reported as failures
// so the loop continues; the coordinator sees the failure in the next report.
func (r *Registry) Dispatch(ctx context.Context, inv Invocation) api.Result {
	action, err := r.Lookup(inv.Name)
	if err != nil {
		r.logger.Warn("Unknown command",
			zap.String("command", inv.Name),
		)
		observability.AgentCommandsTotal.WithLabelValues(inv.Name, "failure").Inc()
		return api.Failure()
	}

	result := action.Execute(ctx, inv.Arg)
	outcome := "failure"
	if result.OK() {
		outcome = "success"
	}
	observability.AgentCommandsTotal.WithLabelValues(inv.Name, outcome).Inc()
	return result
}

// Repeat wraps a single-step action into an up-to-N-times composite: the
// argument is the step count, a failing step stops the run early, and the
// composite succeeds only if every step succeeded.
func Repeat(step Action) Action {
	return ActionFunc(func(ctx context.Context, arg json.RawMessage) api.Result {
		count := 1
		if arg != nil {
			if err := json.Unmarshal(arg, &count); err != nil {
				return api.Failure()
			}
		}
		if count < 0 {
			return api.Failure()
		}
		for i := 0; i < count; i++ {
			if res := step.Execute(ctx, nil); !res.OK() {
				return api.Failure()
			}
		}
		return api.Success()
	})
}
