package agent

import (
	"context"
	"encoding/json"
	"testing"

	"go.uber.org/zap"

	"github.com/roverfleet/roverfleet/pkg/api"
)

func TestRegistryDispatch(t *testing.T) {
	reg := NewRegistry(zap.NewNop())
	reg.RegisterFunc("Ping", func(context.Context, json.RawMessage) api.Result {
		return api.Success()
	})

	res := reg.Dispatch(context.Background(), Invocation{Name: "Ping"})
	if res.Kind != api.ResultSuccess {
		t.Errorf("Dispatch() = %v, want Success", res.Kind)
	}
}

func TestRegistryDispatchUnknownCommand(t *testing.T) {
	reg := NewRegistry(zap.NewNop())

	// Unknown names come back as failures; the loop must keep running.
	res := reg.Dispatch(context.Background(), Invocation{Name: "Teleport"})
	if res.Kind != api.ResultFailure {
		t.Errorf("Dispatch(unknown) = %v, want Failure", res.Kind)
	}
}

func TestRegistryLookup(t *testing.T) {
	reg := NewRegistry(zap.NewNop())
	reg.RegisterFunc("Ping", func(context.Context, json.RawMessage) api.Result {
		return api.Success()
	})

	if _, err := reg.Lookup("Ping"); err != nil {
		t.Errorf("Lookup(Ping) error = %v", err)
	}
	if _, err := reg.Lookup("Missing"); err != ErrUnknownCommand {
		t.Errorf("Lookup(Missing) error = %v, want ErrUnknownCommand", err)
	}
}

func TestRepeat(t *testing.T) {
	tests := []struct {
		name      string
		arg       string // JSON, "" for none
		failAt    int    // step index that fails, -1 for never
		wantKind  api.ResultKind
		wantSteps int
	}{
		{"no argument runs once", "", -1, api.ResultSuccess, 1},
		{"count runs count times", "3", -1, api.ResultSuccess, 3},
		{"zero count is vacuous success", "0", -1, api.ResultSuccess, 0},
		{"negative count fails", "-2", -1, api.ResultFailure, 0},
		{"non-integer argument fails", `"three"`, -1, api.ResultFailure, 0},
		{"failing step stops early", "5", 1, api.ResultFailure, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			steps := 0
			action := Repeat(ActionFunc(func(context.Context, json.RawMessage) api.Result {
				if steps == tt.failAt {
					steps++
					return api.Failure()
				}
				steps++
				return api.Success()
			}))

			var arg json.RawMessage
			if tt.arg != "" {
				arg = json.RawMessage(tt.arg)
			}
			res := action.Execute(context.Background(), arg)

			if res.Kind != tt.wantKind {
				t.Errorf("Execute() = %v, want %v", res.Kind, tt.wantKind)
			}
			if steps != tt.wantSteps {
				t.Errorf("steps executed = %d, want %d", steps, tt.wantSteps)
			}
		})
	}
}
