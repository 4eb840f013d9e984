package agent

import (
	"os"
	"path/filepath"
	"testing"
)

func TestIdentityStoreLoadAbsent(t *testing.T) {
	store := NewIdentityStore(t.TempDir())

	id, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if id != nil {
		t.Errorf("Load() = %+v, want nil before first registration", id)
	}
}

func TestIdentityStoreSaveAndLoad(t *testing.T) {
	store := NewIdentityStore(t.TempDir())

	saved := &Identity{ID: "rover-123", Label: "Amber Auk"}
	if err := store.Save(saved); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded == nil || loaded.ID != saved.ID || loaded.Label != saved.Label {
		t.Errorf("Load() = %+v, want %+v", loaded, saved)
	}
}

func TestIdentityStoreSaveIsWriteOnce(t *testing.T) {
	store := NewIdentityStore(t.TempDir())

	if err := store.Save(&Identity{ID: "first", Label: "Amber Auk"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// A second registration result must never replace the first identity.
	if err := store.Save(&Identity{ID: "second", Label: "Basalt Bittern"}); err == nil {
		t.Fatal("Save() should refuse to overwrite a persisted identity")
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.ID != "first" {
		t.Errorf("Load() after refused overwrite = %q, want %q", loaded.ID, "first")
	}
}

func TestIdentityStoreRejectsEmptyID(t *testing.T) {
	dir := t.TempDir()
	store := NewIdentityStore(dir)

	if err := os.WriteFile(filepath.Join(dir, "identity.json"), []byte(`{"id":"","label":"x"}`), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	if _, err := store.Load(); err == nil {
		t.Error("Load() should reject an identity with an empty id")
	}
}
