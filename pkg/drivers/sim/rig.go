// Package sim provides a deterministic in-memory rig and driver set so the
// agent binary runs end-to-end without hardware and the control loop can be
// exercised in tests. Movement consumes one resource unit per step and fails
// when the tank is empty, mirroring how a real chassis driver behaves.
package sim

import (
	"sync"

	"github.com/roverfleet/roverfleet/pkg/agent"
	"github.com/roverfleet/roverfleet/pkg/api"
)

// InventorySize is the number of slots in the simulated cargo bay.
const InventorySize = 16

// Rig is a simulated rover chassis.
type Rig struct {
	mu sync.Mutex

	level    int
	capacity int
	label    string

	pos    api.Vec3
	facing api.Facing

	selected  int
	inventory [InventorySize]api.Stack

	// scan is the synthetic environment; by default everything reads empty.
	scan func(pos api.Vec3, facing api.Facing) agent.Surroundings
}

// New creates a rig with the given resource tank.
func New(level, capacity int) *Rig {
	return &Rig{
		level:    level,
		capacity: capacity,
		facing:   api.North,
		scan: func(api.Vec3, api.Facing) agent.Surroundings {
			return agent.Surroundings{Ahead: "air", Above: "air", Below: "bedrock"}
		},
	}
}

// SetScanner replaces the synthetic environment sampler.
func (r *Rig) SetScanner(scan func(pos api.Vec3, facing api.Facing) agent.Surroundings) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scan = scan
}

// ResourceLevel implements agent.Rig.
func (r *Rig) ResourceLevel() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.level
}

// ResourceCapacity implements agent.Rig.
func (r *Rig) ResourceCapacity() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.capacity
}

// Surroundings implements agent.Rig.
func (r *Rig) Surroundings() agent.Surroundings {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.scan(r.pos, r.facing)
}

// SetLabel implements agent.Rig.
func (r *Rig) SetLabel(label string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.label = label
}

// Label returns the applied display label.
func (r *Rig) Label() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.label
}

// Position returns the simulated position.
func (r *Rig) Position() api.Vec3 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pos
}

// Facing returns the simulated heading.
func (r *Rig) Facing() api.Facing {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.facing
}

// step moves one unit along delta, spending one resource unit.
func (r *Rig) step(delta api.Vec3) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.level <= 0 {
		return false
	}
	r.level--
	r.pos = r.pos.Add(delta)
	return true
}

func (r *Rig) turn(left bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if left {
		r.facing = r.facing.Left()
	} else {
		r.facing = r.facing.Right()
	}
}

func (r *Rig) refuel() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.level >= r.capacity {
		return false
	}
	r.level = r.capacity
	return true
}

func (r *Rig) selectSlot(slot int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if slot < 0 || slot >= InventorySize {
		return false
	}
	r.selected = slot
	return true
}

func (r *Rig) selectedStack() api.Stack {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inventory[r.selected]
}

func (r *Rig) stacks() []api.Stack {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]api.Stack, InventorySize)
	copy(out, r.inventory[:])
	return out
}

// addStack places items into the selected slot, for tests and the take
// actions.
func (r *Rig) addStack(s api.Stack) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inventory[r.selected] = s
}

func (r *Rig) dropSelected(count int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	stack := &r.inventory[r.selected]
	if stack.Count == 0 || count <= 0 {
		return false
	}
	if count >= stack.Count {
		*stack = api.Stack{}
	} else {
		stack.Count -= count
	}
	return true
}
