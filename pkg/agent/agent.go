package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/roverfleet/roverfleet/pkg/api"
	"github.com/roverfleet/roverfleet/pkg/observability"
)

// loop states, in the order a healthy cycle visits them
type state int

const (
	stateRegistering state = iota
	stateReady
	stateExecuting
	stateReporting
	stateTerminated
)

// generationEnd records why the current generation must stop cycling.
type generationEnd int

const (
	endNone generationEnd = iota
	// endSuperseded: a new generation was installed and invoked. This one
	// exits silently; the successor reports in its own first cycle.
	endSuperseded
	// endGuarded: a nested update was refused. The refusal is reported as a
	// failure, then the loop unwinds so the pending generation can land.
	endGuarded
)

// Config represents the agent configuration
type Config struct {
	// DataDir holds the persisted identity and the installed program.
	DataDir string
	// CoordinatorAddr is the coordinator base URL.
	CoordinatorAddr string
	// RequestTimeout bounds each wire round trip.
	RequestTimeout time.Duration
	// RegisterRetryInterval is the fixed delay between registration attempts.
	// Registration predates identity, so no backoff bookkeeping exists yet.
	RegisterRetryInterval time.Duration
	// BackoffUnit is one step of the linear reconnect backoff.
	BackoffUnit time.Duration
	// BackoffCap optionally bounds the backoff delay; zero means uncapped,
	// which matches the source behavior.
	BackoffCap time.Duration
	// InitialPosition and InitialFacing seed the coordinator's dead
	// reckoning at registration time. Only sent once.
	InitialPosition api.Vec3
	InitialFacing   api.Facing

	Rig    Rig
	Logger *zap.Logger
}

// Validate validates the agent configuration and applies defaults.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data directory is required")
	}
	if c.CoordinatorAddr == "" {
		return fmt.Errorf("coordinator address is required")
	}
	if c.Rig == nil {
		return fmt.Errorf("rig is required")
	}
	if c.Logger == nil {
		return fmt.Errorf("logger is required")
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 30 * time.Second
	}
	if c.RegisterRetryInterval <= 0 {
		c.RegisterRetryInterval = 5 * time.Second
	}
	if c.BackoffUnit <= 0 {
		c.BackoffUnit = time.Second
	}
	if c.InitialFacing == "" {
		c.InitialFacing = api.North
	}
	return nil
}

// Agent runs the rover control loop against a coordinator.
type Agent struct {
	config   *Config
	logger   *zap.Logger
	rig      Rig
	client   *Client
	store    *IdentityStore
	registry *Registry
	updater  *Updater
	backoff  Backoff

	identity *Identity
	state    state
	genEnd   generationEnd

	// sleep is time.Sleep in production; tests record delays through it.
	sleep func(time.Duration)
}

// New creates a new agent instance. Drivers register their actions on
// Registry() before Run is called.
func New(config *Config) (*Agent, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	client, err := NewClient(config.CoordinatorAddr, config.RequestTimeout)
	if err != nil {
		return nil, err
	}

	a := &Agent{
		config:   config,
		logger:   config.Logger,
		rig:      config.Rig,
		client:   client,
		store:    NewIdentityStore(config.DataDir),
		registry: NewRegistry(config.Logger),
		backoff:  Backoff{Unit: config.BackoffUnit, Cap: config.BackoffCap},
		state:    stateRegistering,
		sleep:    time.Sleep,
	}
	a.updater = NewUpdater(client, config.DataDir, config.Logger)

	// Wait is the one action the core owns: an explicit cooperative pause.
	a.registry.RegisterFunc(api.CmdWait, func(ctx context.Context, arg json.RawMessage) api.Result {
		seconds := 1
		if arg != nil {
			if err := json.Unmarshal(arg, &seconds); err != nil || seconds < 0 {
				return api.Failure()
			}
		}
		a.sleep(time.Duration(seconds) * time.Second)
		return api.Success()
	})

	// Self-update dispatches like any other action; it signals generation
	// end through the agent because "stop cycling" is not a wire result.
	a.registry.RegisterFunc(api.CmdUpdate, func(ctx context.Context, _ json.RawMessage) api.Result {
		switch a.updater.Run(ctx) {
		case UpdateInvoked:
			a.genEnd = endSuperseded
			return api.None()
		case UpdateRefused:
			a.genEnd = endGuarded
			return api.Failure()
		default:
			return api.Failure()
		}
	})

	return a, nil
}

// Registry exposes the action dispatch table for driver registration.
func (a *Agent) Registry() *Registry { return a.registry }

// Identity returns the resolved identity; nil before registration completes.
func (a *Agent) Identity() *Identity { return a.identity }

// Updater exposes the self-update mechanism, mainly so callers can log the
// generation they are running in.
func (a *Agent) Updater() *Updater { return a.updater }

// Run drives the control loop until the shutdown command, the end of the
// generation by a self-update (invoked or refused), or context cancellation.
// It is purely synchronous: one command, one execution, one report per cycle.
func (a *Agent) Run(ctx context.Context) error {
	queued, err := a.bootstrap(ctx)
	if err != nil {
		return err
	}
	a.state = stateReady

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		inv, ok := Interpret(queued)
		var result api.Result
		switch {
		case ok && inv.Name == api.CmdPoweroff:
			a.state = stateTerminated
			a.logger.Info("Poweroff received, terminating")
			return nil

		case ok:
			a.state = stateExecuting
			a.logger.Debug("Executing command",
				zap.String("command", inv.Name),
			)
			result = a.registry.Dispatch(ctx, inv)

		default:
			result = api.None()
		}

		switch a.genEnd {
		case endSuperseded:
			a.state = stateTerminated
			a.logger.Info("Generation superseded by self-update")
			return nil
		case endGuarded:
			// The coordinator still learns of the refusal; after that the
			// loop ends instead of cycling as a second pending generation.
			a.state = stateReporting
			if _, err := a.report(ctx, result); err != nil {
				return err
			}
			a.state = stateTerminated
			a.logger.Info("Nested self-update refused, ending generation")
			return nil
		}

		a.state = stateReporting
		next, err := a.report(ctx, result)
		if err != nil {
			return err
		}
		queued = next
		a.state = stateReady
		observability.AgentLoopIterationsTotal.Inc()
	}
}

// bootstrap resolves identity: reload the persisted record if one exists
// (registration is never repeated), otherwise register with fixed-interval
// retries until the coordinator answers. Returns the first queued command.
func (a *Agent) bootstrap(ctx context.Context) (*api.Command, error) {
	existing, err := a.store.Load()
	if err != nil {
		return nil, err
	}
	if existing != nil {
		a.identity = existing
		a.rig.SetLabel(existing.Label)
		a.logger.Info("Identity loaded",
			zap.String("rover_id", existing.ID),
			zap.String("label", existing.Label),
		)
		return nil, nil
	}

	req := api.RegisterRequest{
		ResourceLevel:    a.rig.ResourceLevel(),
		ResourceCapacity: a.rig.ResourceCapacity(),
		Position:         a.config.InitialPosition,
		Facing:           a.config.InitialFacing,
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resp, err := a.client.Register(ctx, req)
		if err != nil {
			// No identity yet means no useful idle behavior: keep asking.
			a.logger.Warn("Registration failed, retrying",
				zap.Error(err),
				zap.Duration("retry_in", a.config.RegisterRetryInterval),
			)
			a.sleep(a.config.RegisterRetryInterval)
			continue
		}

		identity := &Identity{ID: resp.ID, Label: resp.Label}
		if err := a.store.Save(identity); err != nil {
			return nil, fmt.Errorf("persist identity: %w", err)
		}
		a.identity = identity
		a.rig.SetLabel(resp.Label)
		a.logger.Info("Registered with coordinator",
			zap.String("rover_id", resp.ID),
			zap.String("label", resp.Label),
		)
		return resp.Command, nil
	}
}

// report submits the cycle's report, retrying the same submission under the
// linear backoff policy until the coordinator answers with the next command.
func (a *Agent) report(ctx context.Context, result api.Result) (*api.Command, error) {
	surroundings := a.rig.Surroundings()
	rep := api.Report{
		ResourceLevel: a.rig.ResourceLevel(),
		Ahead:         surroundings.Ahead,
		Above:         surroundings.Above,
		Below:         surroundings.Below,
		Result:        result,
	}

	for {
		next, err := a.client.Report(ctx, a.identity.ID, rep)
		if err == nil {
			a.backoff.Reset()
			return next, nil
		}

		delay := a.backoff.Next()
		observability.AgentRoundTripFailuresTotal.Inc()
		observability.AgentBackoffSeconds.Add(delay.Seconds())
		a.logger.Warn("Report round trip failed",
			zap.Error(err),
			zap.Duration("backoff", delay),
			zap.Int("attempt", a.backoff.Attempt()),
		)
		a.sleep(delay)

		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
}
