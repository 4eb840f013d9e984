package coordinator

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/roverfleet/roverfleet/pkg/api"
	"github.com/roverfleet/roverfleet/pkg/observability"
)

// RoverRecord is the durable subset of a rover session. Mailboxes and
// in-flight callbacks are runtime-only and rebuilt on boot.
type RoverRecord struct {
	ID               string     `json:"id"`
	Label            string     `json:"label"`
	ResourceLevel    int        `json:"resourceLevel"`
	ResourceCapacity int        `json:"resourceCapacity"`
	Position         api.Vec3   `json:"position"`
	Facing           api.Facing `json:"facing"`
	PendingUpdate    bool       `json:"pendingUpdate"`
}

// Snapshot is the coordinator's persisted fleet state.
type Snapshot struct {
	Seq    int           `json:"seq"`
	Rovers []RoverRecord `json:"rovers"`
}

// StateStore persists fleet snapshots as a JSON file.
type StateStore struct {
	path string
}

// NewStateStore creates a store writing to the given file path.
func NewStateStore(path string) *StateStore {
	return &StateStore{path: path}
}

// Load reads the last snapshot, or returns (nil, nil) when none exists.
func (s *StateStore) Load() (*Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	return &snap, nil
}

// Save writes the snapshot atomically (write temp, rename over).
func (s *StateStore) Save(snap *Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace state: %w", err)
	}
	return nil
}

// Snapshot captures the durable view of the fleet.
func (f *Fleet) Snapshot() *Snapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()

	snap := &Snapshot{Seq: f.seq, Rovers: make([]RoverRecord, 0, len(f.rovers))}
	for _, r := range f.rovers {
		r.mu.Lock()
		snap.Rovers = append(snap.Rovers, RoverRecord{
			ID:               r.id,
			Label:            r.label,
			ResourceLevel:    r.level,
			ResourceCapacity: r.capacity,
			Position:         r.position,
			Facing:           r.facing,
			PendingUpdate:    r.pendingUpdate,
		})
		r.mu.Unlock()
	}
	return snap
}

// Restore rebuilds fleet sessions from a snapshot. Restored rovers are
// flagged for update: after a coordinator outage the program may have moved
// on, and the agents' first reports should resync them.
func (f *Fleet) Restore(snap *Snapshot) {
	if snap == nil {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.seq = snap.Seq
	for _, rec := range snap.Rovers {
		rover := newRover(rec.ID, rec.Label, api.RegisterRequest{
			ResourceLevel:    rec.ResourceLevel,
			ResourceCapacity: rec.ResourceCapacity,
			Position:         rec.Position,
			Facing:           rec.Facing,
		})
		rover.pendingUpdate = true
		f.rovers[rec.ID] = rover
	}
	observability.CoordinatorRoversRegistered.Set(float64(len(f.rovers)))
}
