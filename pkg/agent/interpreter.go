package agent

import (
	"encoding/json"

	"github.com/roverfleet/roverfleet/pkg/api"
)

// Invocation is the canonical (name, argument) form of a received command.
// Downstream code only ever sees this shape; the raw wire variants are
// resolved here and in api.Command's decoder.
type Invocation struct {
	Name string
	Arg  json.RawMessage // nil for bare commands
}

// Interpret normalizes a received command payload. A nil command means the
// coordinator had nothing queued: the cycle idles without executing, but the
// loop still performs its next round trip. Multi-entry payloads were already
// collapsed to the lexicographically smallest key at the decode boundary.
func Interpret(cmd *api.Command) (Invocation, bool) {
	if cmd == nil || cmd.Name == "" {
		return Invocation{}, false
	}
	return Invocation{Name: cmd.Name, Arg: cmd.Arg}, true
}
