// Package coordinator implements the fleet-side half of the rover protocol:
// identity allocation, report exchanges, program distribution, and the
// operator admin surface.
package coordinator

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/roverfleet/roverfleet/pkg/observability"
)

// Config holds coordinator configuration.
type Config struct {
	// ListenAddr is the API server bind address.
	ListenAddr string

	// DataDir holds the program artifact and the fleet state snapshot.
	DataDir string

	// CommandTimeout is the window a report exchange holds open for an
	// operator command before idling the rover.
	CommandTimeout time.Duration

	// IdleWaitSeconds is the pause issued to an idle rover.
	IdleWaitSeconds int

	// SnapshotInterval is how often fleet state is flushed to disk.
	SnapshotInterval time.Duration

	// EventHistory bounds the in-memory fleet event log.
	EventHistory int

	Logger *zap.Logger
}

// Validate checks the configuration and applies defaults.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		c.ListenAddr = ":8080"
	}
	if c.DataDir == "" {
		return fmt.Errorf("data directory is required")
	}
	if c.CommandTimeout <= 0 {
		c.CommandTimeout = DefaultCommandTimeout
	}
	if c.IdleWaitSeconds <= 0 {
		c.IdleWaitSeconds = DefaultIdleWaitSeconds
	}
	if c.SnapshotInterval <= 0 {
		c.SnapshotInterval = 30 * time.Second
	}
	if c.Logger == nil {
		return fmt.Errorf("logger is required")
	}
	return nil
}

// Coordinator is the fleet control plane.
type Coordinator struct {
	config   *Config
	logger   *zap.Logger
	events   *observability.EventStream
	fleet    *Fleet
	programs *ProgramStore
	state    *StateStore
	server   *Server

	cancel  context.CancelFunc
	done    chan struct{}
	serving atomic.Bool
}

// New creates a coordinator from the given configuration.
func New(config *Config) (*Coordinator, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger := config.Logger
	events := observability.NewEventStream(config.EventHistory, logger)

	fleet := NewFleet(logger, events)
	fleet.commandTimeout = config.CommandTimeout
	fleet.idleWait = config.IdleWaitSeconds

	programs := NewProgramStore(filepath.Join(config.DataDir, "program", "rover"), logger, events)
	state := NewStateStore(filepath.Join(config.DataDir, "state.json"))

	c := &Coordinator{
		config:   config,
		logger:   logger,
		events:   events,
		fleet:    fleet,
		programs: programs,
		state:    state,
		done:     make(chan struct{}),
	}
	c.server = NewServer(config.ListenAddr, c, logger)

	programs.OnChange(func() {
		count := fleet.MarkAllPending()
		logger.Info("Program changed, fleet flagged for update", zap.Int("rovers", count))
	})

	return c, nil
}

// Fleet returns the coordinator's fleet for direct use in tests and embedding.
func (c *Coordinator) Fleet() *Fleet { return c.fleet }

// Ready reports whether the API server is accepting rover traffic. Used as
// the readiness probe so rovers are not routed here mid-startup or during
// shutdown.
func (c *Coordinator) Ready() error {
	if !c.serving.Load() {
		return fmt.Errorf("coordinator API not serving")
	}
	return nil
}

// Start restores persisted state and brings up the watcher, snapshot loop,
// and API server.
func (c *Coordinator) Start() error {
	snap, err := c.state.Load()
	if err != nil {
		return fmt.Errorf("failed to load fleet state: %w", err)
	}
	if snap != nil {
		c.fleet.Restore(snap)
		c.logger.Info("Fleet state restored",
			zap.Int("rovers", len(snap.Rovers)),
		)
	}

	if err := c.programs.Watch(); err != nil {
		// The program directory may not exist until the first deploy;
		// serving continues without live change detection.
		c.logger.Warn("Program watcher unavailable", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	go c.snapshotLoop(ctx)

	if err := c.server.Start(); err != nil {
		return fmt.Errorf("failed to start API server: %w", err)
	}
	c.serving.Store(true)

	c.logger.Info("Coordinator started",
		zap.String("listen_addr", c.config.ListenAddr),
		zap.String("data_dir", c.config.DataDir),
	)
	return nil
}

// Stop shuts everything down and flushes a final snapshot.
func (c *Coordinator) Stop(ctx context.Context) error {
	c.logger.Info("Stopping coordinator")
	c.serving.Store(false)

	if c.cancel != nil {
		c.cancel()
		<-c.done
	}

	if err := c.server.Stop(ctx); err != nil {
		c.logger.Warn("API server shutdown failed", zap.Error(err))
	}
	if err := c.programs.Close(); err != nil {
		c.logger.Warn("Program watcher shutdown failed", zap.Error(err))
	}

	if err := c.flushState(); err != nil {
		return fmt.Errorf("failed to flush fleet state: %w", err)
	}
	return nil
}

func (c *Coordinator) snapshotLoop(ctx context.Context) {
	defer close(c.done)

	ticker := time.NewTicker(c.config.SnapshotInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.flushState(); err != nil {
				c.logger.Warn("Periodic state flush failed", zap.Error(err))
			}
		}
	}
}

func (c *Coordinator) flushState() error {
	return c.state.Save(c.fleet.Snapshot())
}
