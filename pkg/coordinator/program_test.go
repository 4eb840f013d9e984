package coordinator

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/roverfleet/roverfleet/pkg/observability"
)

func newTestProgramStore(t *testing.T) *ProgramStore {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "program")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create program dir: %v", err)
	}
	return NewProgramStore(
		filepath.Join(dir, "rover"),
		zap.NewNop(),
		observability.NewEventStream(16, zap.NewNop()),
	)
}

func TestProgramStoreRead(t *testing.T) {
	store := newTestProgramStore(t)

	if _, err := store.Read(); err == nil {
		t.Error("Read() should error before the first deploy")
	}

	if err := os.WriteFile(store.path, []byte("v1"), 0o644); err != nil {
		t.Fatalf("write program: %v", err)
	}
	data, err := store.Read()
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if string(data) != "v1" {
		t.Errorf("Read() = %q, want %q", data, "v1")
	}
}

func TestProgramStoreWatchNotifiesOnChange(t *testing.T) {
	store := newTestProgramStore(t)

	changed := make(chan struct{}, 1)
	store.OnChange(func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})

	if err := store.Watch(); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	defer store.Close()

	if err := os.WriteFile(store.path, []byte("v2"), 0o644); err != nil {
		t.Fatalf("write program: %v", err)
	}

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("OnChange never fired after a program write")
	}
}

func TestProgramStoreIgnoresOtherFiles(t *testing.T) {
	store := newTestProgramStore(t)

	changed := make(chan struct{}, 1)
	store.OnChange(func() { changed <- struct{}{} })

	if err := store.Watch(); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	defer store.Close()

	other := filepath.Join(filepath.Dir(store.path), "notes.txt")
	if err := os.WriteFile(other, []byte("irrelevant"), 0o644); err != nil {
		t.Fatalf("write other file: %v", err)
	}

	select {
	case <-changed:
		t.Fatal("OnChange fired for an unrelated file")
	case <-time.After(time.Second):
	}
}
