package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Well-known command names understood by the agent's stock action set.
// The coordinator is free to send names outside this list; unknown names
// are reported back as failures, never treated as fatal.
const (
	CmdWait      = "Wait"
	CmdForward   = "Forward"
	CmdBackward  = "Backward"
	CmdUp        = "Up"
	CmdDown      = "Down"
	CmdLeft      = "Left"
	CmdRight     = "Right"
	CmdDig       = "Dig"
	CmdDigUp     = "DigUp"
	CmdDigDown   = "DigDown"
	CmdPlace     = "Place"
	CmdPlaceUp   = "PlaceUp"
	CmdPlaceDown = "PlaceDown"
	CmdDropFront = "DropFront"
	CmdDropUp    = "DropUp"
	CmdDropDown  = "DropDown"
	CmdTakeFront = "TakeFront"
	CmdTakeUp    = "TakeUp"
	CmdTakeDown  = "TakeDown"
	CmdSelect    = "Select"
	CmdItemInfo  = "ItemInfo"
	CmdRefuel    = "Refuel"
	CmdUpdate    = "Update"
	CmdPoweroff  = "Poweroff"
)

// Command is one unit of work dispatched by the coordinator to an agent.
//
// On the wire a command is either a bare string ("Left") or a single-entry
// object pairing the name with one argument ({"Forward":3}). The argument is
// kept raw: most commands take a count or slot index, but nothing in the
// protocol forbids a small structured value.
type Command struct {
	Name string
	Arg  json.RawMessage // nil when the command carries no argument
}

// Simple builds a command with no argument.
func Simple(name string) Command {
	return Command{Name: name}
}

// WithArg builds a command carrying one argument value.
// Panics if the argument cannot be marshalled; arguments are always
// plain counts or small structs under the caller's control.
func WithArg(name string, arg any) Command {
	raw, err := json.Marshal(arg)
	if err != nil {
		panic(fmt.Sprintf("api: unmarshallable command argument: %v", err))
	}
	return Command{Name: name, Arg: raw}
}

// Wait builds the idle command for the given number of seconds.
func Wait(seconds int) Command {
	return WithArg(CmdWait, seconds)
}

// IntArg decodes the argument as an integer count or index.
func (c Command) IntArg() (int, error) {
	if c.Arg == nil {
		return 0, fmt.Errorf("command %s has no argument", c.Name)
	}
	var n int
	if err := json.Unmarshal(c.Arg, &n); err != nil {
		return 0, fmt.Errorf("command %s argument is not an integer: %w", c.Name, err)
	}
	return n, nil
}

// MarshalJSON emits the bare-name form when there is no argument and the
// single-entry object form otherwise.
func (c Command) MarshalJSON() ([]byte, error) {
	if c.Arg == nil {
		return json.Marshal(c.Name)
	}
	return json.Marshal(map[string]json.RawMessage{c.Name: c.Arg})
}

// UnmarshalJSON accepts both wire shapes. A mapping with more than one entry
// is out of contract; it decodes deterministically to the lexicographically
// smallest key so a misbehaving coordinator yields stable behavior.
func (c *Command) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		c.Name = name
		c.Arg = nil
		return nil
	}

	var pairs map[string]json.RawMessage
	if err := json.Unmarshal(data, &pairs); err != nil {
		return fmt.Errorf("command is neither a name nor a name/argument pair: %w", err)
	}
	if len(pairs) == 0 {
		return fmt.Errorf("empty command object")
	}

	keys := make([]string, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	c.Name = keys[0]
	c.Arg = pairs[keys[0]]
	return nil
}

// String renders the command for logs.
func (c Command) String() string {
	if c.Arg == nil {
		return c.Name
	}
	return c.Name + "(" + string(c.Arg) + ")"
}

// DecodeCommand parses a response body holding the next command.
// A JSON null means the coordinator has nothing queued this cycle.
func DecodeCommand(data []byte) (*Command, error) {
	trimmed := string(bytes.TrimSpace(data))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return nil, err
	}
	return &cmd, nil
}
