// Package agent implements the rover-side control loop: identity bootstrap,
// command interpretation, action dispatch, status reporting, reconnect
// backoff, and the self-update mechanism. The loop is single-threaded and
// purely synchronous; every network operation is a blocking round trip and
// the only state that survives a restart is the persisted identity.
package agent

// Surroundings is what the rover senses around itself: the scanned block
// names ahead of, above, and below the chassis.
type Surroundings struct {
	Ahead string
	Above string
	Below string
}

// Rig is the sensor side of the hardware the agent drives. Concrete movement
// and manipulation drivers register themselves as actions; the core loop only
// needs identity labeling and the readings that go into every report.
type Rig interface {
	// ResourceLevel returns the current energy/fuel units available.
	ResourceLevel() int
	// ResourceCapacity returns the maximum resource level.
	ResourceCapacity() int
	// Surroundings samples the rover's immediate environment.
	Surroundings() Surroundings
	// SetLabel applies the coordinator-assigned display label.
	SetLabel(label string)
}
