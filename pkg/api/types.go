package api

import (
	"encoding/json"
	"fmt"
)

// Vec3 is an integer grid coordinate, serialized as [x, y, z].
type Vec3 struct {
	X, Y, Z int
}

// Add returns the component-wise sum.
func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

// Scale returns the vector multiplied by n.
func (v Vec3) Scale(n int) Vec3 { return Vec3{v.X * n, v.Y * n, v.Z * n} }

// Neg returns the opposite vector.
func (v Vec3) Neg() Vec3 { return Vec3{-v.X, -v.Y, -v.Z} }

// Up is the world up unit vector.
func Up() Vec3 { return Vec3{Y: 1} }

func (v Vec3) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]int{v.X, v.Y, v.Z})
}

func (v *Vec3) UnmarshalJSON(data []byte) error {
	var a [3]int
	if err := json.Unmarshal(data, &a); err != nil {
		return fmt.Errorf("position must be [x,y,z]: %w", err)
	}
	v.X, v.Y, v.Z = a[0], a[1], a[2]
	return nil
}

// Facing is a cardinal heading on the horizontal plane.
type Facing string

const (
	North Facing = "North"
	East  Facing = "East"
	South Facing = "South"
	West  Facing = "West"
)

// Unit returns the grid unit vector for the heading.
func (f Facing) Unit() Vec3 {
	switch f {
	case North:
		return Vec3{Z: -1}
	case East:
		return Vec3{X: 1}
	case South:
		return Vec3{Z: 1}
	case West:
		return Vec3{X: -1}
	}
	return Vec3{}
}

// Left returns the heading after a 90° counter-clockwise turn.
func (f Facing) Left() Facing {
	switch f {
	case North:
		return West
	case West:
		return South
	case South:
		return East
	case East:
		return North
	}
	return f
}

// Right returns the heading after a 90° clockwise turn.
func (f Facing) Right() Facing {
	switch f {
	case North:
		return East
	case East:
		return South
	case South:
		return West
	case West:
		return North
	}
	return f
}

// MovementUnit returns the per-step displacement a command will cause for an
// agent with the given heading, or the zero vector for non-movement commands.
// The coordinator uses this to dead-reckon positions from resource spend.
func MovementUnit(cmd Command, facing Facing) Vec3 {
	switch cmd.Name {
	case CmdForward:
		return facing.Unit()
	case CmdBackward:
		return facing.Unit().Neg()
	case CmdUp:
		return Up()
	case CmdDown:
		return Up().Neg()
	}
	return Vec3{}
}

// RegisterRequest is the agent's one-time identity bootstrap submission.
type RegisterRequest struct {
	ResourceLevel    int    `json:"resourceLevel"`
	ResourceCapacity int    `json:"resourceCapacity"`
	Position         Vec3   `json:"position"`
	Facing           Facing `json:"facing"`
}

// RegisterResponse carries the allocated identity and the first command.
type RegisterResponse struct {
	ID      string   `json:"id"`
	Label   string   `json:"label"`
	Command *Command `json:"command"`
}

// Report is the agent's per-cycle status submission. It is rebuilt from live
// sensor state every iteration and never persisted.
type Report struct {
	ResourceLevel int    `json:"resourceLevel"`
	Ahead         string `json:"ahead"`
	Above         string `json:"above"`
	Below         string `json:"below"`
	Result        Result `json:"result"`
}

// RoverInfo is the coordinator's admin view of one agent.
type RoverInfo struct {
	ID               string `json:"id"`
	Label            string `json:"label"`
	ResourceLevel    int    `json:"resourceLevel"`
	ResourceCapacity int    `json:"resourceCapacity"`
	Position         Vec3   `json:"position"`
	Facing           Facing `json:"facing"`
	PendingUpdate    bool   `json:"pendingUpdate"`
	LastSeen         int64  `json:"lastSeen"` // unix seconds, 0 if never
	Ahead            string `json:"ahead,omitempty"`
	Above            string `json:"above,omitempty"`
	Below            string `json:"below,omitempty"`
}
