package api

import (
	"encoding/json"
	"fmt"
)

// ResultKind discriminates the normalized outcome of one action.
type ResultKind string

const (
	ResultNone      ResultKind = "None"
	ResultSuccess   ResultKind = "Success"
	ResultFailure   ResultKind = "Failure"
	ResultItem      ResultKind = "Item"
	ResultInventory ResultKind = "Inventory"
)

// Stack is one inventory slot's contents.
type Stack struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Result is the normalized outcome of a dispatched action. Every execution
// path collapses to exactly one of None, Success, Failure, a single item, or
// a full inventory listing before transmission.
type Result struct {
	Kind      ResultKind
	Item      *Stack
	Inventory []Stack
}

// None is the outcome of a cycle with no command to execute.
func None() Result { return Result{Kind: ResultNone} }

// Success is the outcome of an action that completed.
func Success() Result { return Result{Kind: ResultSuccess} }

// Failure is the outcome of an action that could not complete.
func Failure() Result { return Result{Kind: ResultFailure} }

// FromBool normalizes a driver's boolean outcome.
func FromBool(ok bool) Result {
	if ok {
		return Success()
	}
	return Failure()
}

// ItemResult wraps a single slot's contents as an outcome.
func ItemResult(s Stack) Result { return Result{Kind: ResultItem, Item: &s} }

// InventoryResult wraps a full inventory listing as an outcome.
func InventoryResult(slots []Stack) Result {
	return Result{Kind: ResultInventory, Inventory: slots}
}

// OK reports whether the result counts as a successful step, as the repeat
// composite sees it. Payload results are successes; None is not a step.
func (r Result) OK() bool {
	switch r.Kind {
	case ResultSuccess, ResultItem, ResultInventory:
		return true
	default:
		return false
	}
}

// MarshalJSON emits the bare kind string for payload-free results and a
// single-entry object keyed by kind otherwise.
func (r Result) MarshalJSON() ([]byte, error) {
	switch r.Kind {
	case ResultNone, ResultSuccess, ResultFailure:
		return json.Marshal(string(r.Kind))
	case ResultItem:
		return json.Marshal(map[string]*Stack{string(ResultItem): r.Item})
	case ResultInventory:
		return json.Marshal(map[string][]Stack{string(ResultInventory): r.Inventory})
	case "":
		// zero value reads as "no result"
		return json.Marshal(string(ResultNone))
	default:
		return nil, fmt.Errorf("unknown result kind %q", r.Kind)
	}
}

// UnmarshalJSON accepts both wire shapes.
func (r *Result) UnmarshalJSON(data []byte) error {
	var kind string
	if err := json.Unmarshal(data, &kind); err == nil {
		switch ResultKind(kind) {
		case ResultNone, ResultSuccess, ResultFailure:
			*r = Result{Kind: ResultKind(kind)}
			return nil
		default:
			return fmt.Errorf("unknown result kind %q", kind)
		}
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("result is neither a kind nor a payload: %w", err)
	}

	if raw, ok := payload[string(ResultItem)]; ok {
		var s Stack
		if err := json.Unmarshal(raw, &s); err != nil {
			return fmt.Errorf("decode item result: %w", err)
		}
		*r = ItemResult(s)
		return nil
	}
	if raw, ok := payload[string(ResultInventory)]; ok {
		var slots []Stack
		if err := json.Unmarshal(raw, &slots); err != nil {
			return fmt.Errorf("decode inventory result: %w", err)
		}
		*r = InventoryResult(slots)
		return nil
	}
	return fmt.Errorf("unknown result payload")
}
