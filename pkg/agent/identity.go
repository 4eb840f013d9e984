package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Identity is the coordinator-assigned identity of this rover. It is written
// exactly once, reloaded verbatim on every subsequent boot, and immutable for
// the lifetime of the process.
type Identity struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// IdentityStore persists the rover identity under the agent data directory.
type IdentityStore struct {
	path string
}

// NewIdentityStore creates a store rooted at dataDir.
func NewIdentityStore(dataDir string) *IdentityStore {
	return &IdentityStore{path: filepath.Join(dataDir, "identity.json")}
}

// Path returns the backing file location.
func (s *IdentityStore) Path() string { return s.path }

// Load returns the persisted identity, or (nil, nil) if none exists yet.
func (s *IdentityStore) Load() (*Identity, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read identity: %w", err)
	}

	var id Identity
	if err := json.Unmarshal(data, &id); err != nil {
		return nil, fmt.Errorf("decode identity: %w", err)
	}
	if id.ID == "" {
		return nil, fmt.Errorf("identity file %s has empty id", s.path)
	}
	return &id, nil
}

// Save persists the identity. Registration happens once per rover lifetime,
// so an already-saved identity is never overwritten.
func (s *IdentityStore) Save(id *Identity) error {
	if existing, err := s.Load(); err != nil {
		return err
	} else if existing != nil {
		return fmt.Errorf("identity already persisted for %s", existing.ID)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	data, err := json.MarshalIndent(id, "", "  ")
	if err != nil {
		return fmt.Errorf("encode identity: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write identity: %w", err)
	}
	return nil
}
