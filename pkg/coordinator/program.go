package coordinator

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/roverfleet/roverfleet/pkg/observability"
)

const programDebounce = 500 * time.Millisecond

// ProgramStore serves the rover program artifact and watches it for edits.
// When the file changes on disk every rover is flagged for a self-update, so
// a deploy is just writing the new build over the old path.
type ProgramStore struct {
	path   string
	logger *zap.Logger
	events *observability.EventStream

	mu       sync.Mutex
	onChange func()

	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewProgramStore creates a store around the program file at path.
func NewProgramStore(path string, logger *zap.Logger, events *observability.EventStream) *ProgramStore {
	return &ProgramStore{
		path:   path,
		logger: logger,
		events: events,
		done:   make(chan struct{}),
	}
}

// OnChange sets the callback invoked after the program file changes.
func (p *ProgramStore) OnChange(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onChange = fn
}

// Read returns the current program bytes.
func (p *ProgramStore) Read() ([]byte, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return nil, fmt.Errorf("read program: %w", err)
	}
	return data, nil
}

// Watch starts the filesystem watcher. The parent directory is watched
// rather than the file itself so atomic rename-over deploys are seen.
func (p *ProgramStore) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create program watcher: %w", err)
	}

	dir := filepath.Dir(p.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch program directory %s: %w", dir, err)
	}

	p.watcher = watcher
	p.wg.Add(1)
	go p.loop()

	p.logger.Info("Watching program file", zap.String("path", p.path))
	return nil
}

// Close stops the watcher.
func (p *ProgramStore) Close() error {
	if p.watcher == nil {
		return nil
	}
	close(p.done)
	err := p.watcher.Close()
	p.wg.Wait()
	return err
}

func (p *ProgramStore) loop() {
	defer p.wg.Done()

	// Editors and build tools emit bursts of writes for a single deploy;
	// the debounce timer collapses them into one change notification.
	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-p.done:
			return

		case event, ok := <-p.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(p.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(programDebounce, p.changed)

		case err, ok := <-p.watcher.Errors:
			if !ok {
				return
			}
			p.logger.Warn("Program watcher error", zap.Error(err))
		}
	}
}

func (p *ProgramStore) changed() {
	p.logger.Info("Program file changed", zap.String("path", p.path))
	p.events.Record(observability.Event{Type: observability.EventProgramChanged})

	p.mu.Lock()
	fn := p.onChange
	p.mu.Unlock()
	if fn != nil {
		fn()
	}
}
