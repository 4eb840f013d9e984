package coordinator

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/roverfleet/roverfleet/pkg/api"
	"github.com/roverfleet/roverfleet/pkg/observability"
)

const (
	// DefaultCommandTimeout is how long a report exchange waits for an
	// operator command before sending the rover back to idle.
	DefaultCommandTimeout = 250 * time.Millisecond
	// DefaultIdleWaitSeconds is the pause handed to an idle rover between
	// polls.
	DefaultIdleWaitSeconds = 3
)

// commandRequest pairs an operator command with the channel its resulting
// report is delivered on.
type commandRequest struct {
	cmd   api.Command
	reply chan api.Report
}

// Rover is the coordinator's session state for one agent.
type Rover struct {
	mu sync.Mutex

	id       string
	label    string
	level    int
	capacity int
	position api.Vec3
	facing   api.Facing

	// queuedMovement is the per-step displacement of the last issued
	// command; resource spend since then dead-reckons the position.
	queuedMovement api.Vec3

	pendingUpdate bool
	lastSeen      time.Time
	surroundings  [3]string // ahead, above, below

	mailbox  chan commandRequest
	callback chan api.Report // reply channel of the in-flight command, nil if none
}

func newRover(id, label string, req api.RegisterRequest) *Rover {
	return &Rover{
		id:       id,
		label:    label,
		level:    req.ResourceLevel,
		capacity: req.ResourceCapacity,
		position: req.Position,
		facing:   req.Facing,
		mailbox:  make(chan commandRequest, 1),
	}
}

// Info returns the admin view of the rover.
func (r *Rover) Info() api.RoverInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	var lastSeen int64
	if !r.lastSeen.IsZero() {
		lastSeen = r.lastSeen.Unix()
	}
	return api.RoverInfo{
		ID:               r.id,
		Label:            r.label,
		ResourceLevel:    r.level,
		ResourceCapacity: r.capacity,
		Position:         r.position,
		Facing:           r.facing,
		PendingUpdate:    r.pendingUpdate,
		LastSeen:         lastSeen,
		Ahead:            r.surroundings[0],
		Above:            r.surroundings[1],
		Below:            r.surroundings[2],
	}
}

// Fleet tracks every registered rover and brokers commands between the admin
// surface and the per-rover report exchanges.
type Fleet struct {
	mu     sync.RWMutex
	rovers map[string]*Rover
	seq    int // registration counter, drives label allocation

	commandTimeout time.Duration
	idleWait       int
	logger         *zap.Logger
	events         *observability.EventStream
}

// NewFleet creates an empty fleet.
func NewFleet(logger *zap.Logger, events *observability.EventStream) *Fleet {
	return &Fleet{
		rovers:         make(map[string]*Rover),
		commandTimeout: DefaultCommandTimeout,
		idleWait:       DefaultIdleWaitSeconds,
		logger:         logger,
		events:         events,
	}
}

// Register allocates an identity for a new rover. The first command is
// always a self-update so a fresh chassis starts on the current program.
func (f *Fleet) Register(req api.RegisterRequest) api.RegisterResponse {
	f.mu.Lock()
	id := uuid.NewString()
	label := LabelFor(f.seq)
	f.seq++
	rover := newRover(id, label, req)
	f.rovers[id] = rover
	count := len(f.rovers)
	f.mu.Unlock()

	observability.CoordinatorRoversRegistered.Set(float64(count))
	f.events.Record(observability.Event{
		Type:    observability.EventRoverRegistered,
		RoverID: id,
		Detail:  label,
	})
	f.logger.Info("New rover registered",
		zap.String("rover_id", id),
		zap.String("label", label),
		zap.Int("resource_level", req.ResourceLevel),
	)

	first := api.Simple(api.CmdUpdate)
	return api.RegisterResponse{ID: id, Label: label, Command: &first}
}

// Get returns the rover with the given id.
func (f *Fleet) Get(id string) (*Rover, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	r, ok := f.rovers[id]
	return r, ok
}

// List returns admin views of every rover, ordered by label.
func (f *Fleet) List() []api.RoverInfo {
	f.mu.RLock()
	rovers := make([]*Rover, 0, len(f.rovers))
	for _, r := range f.rovers {
		rovers = append(rovers, r)
	}
	f.mu.RUnlock()

	out := make([]api.RoverInfo, 0, len(rovers))
	for _, r := range rovers {
		out = append(out, r.Info())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

// MarkAllPending flags every rover for a self-update on its next report.
func (f *Fleet) MarkAllPending() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, r := range f.rovers {
		r.mu.Lock()
		r.pendingUpdate = true
		r.mu.Unlock()
	}
	return len(f.rovers)
}

// HandleReport processes one report exchange and picks the rover's next
// command: a pending self-update wins, then whatever an operator has queued
// within the command window, then an idle wait.
func (f *Fleet) HandleReport(id string, rep api.Report) api.Command {
	observability.CoordinatorReportsTotal.Inc()

	rover, ok := f.Get(id)
	if !ok {
		// A rover we do not know is running a stale identity; make it
		// refresh its program rather than dropping the session.
		f.logger.Warn("Report from unknown rover", zap.String("rover_id", id))
		return api.Simple(api.CmdUpdate)
	}

	rover.absorbReport(rep)

	cmd := rover.nextCommand(f.commandTimeout, f.idleWait)
	observability.CoordinatorCommandsIssuedTotal.WithLabelValues(cmd.Name).Inc()
	if cmd.Name == api.CmdUpdate {
		f.events.Record(observability.Event{
			Type:    observability.EventUpdateDispatched,
			RoverID: id,
		})
	}
	f.logger.Debug("Report processed",
		zap.String("rover_id", id),
		zap.String("next_command", cmd.String()),
	)
	return cmd
}

// absorbReport folds a report into the session: dead-reckoned position from
// resource spend, fresh surroundings, and delivery to any waiting operator.
func (r *Rover) absorbReport(rep api.Report) {
	r.mu.Lock()

	if r.level > rep.ResourceLevel {
		spent := r.level - rep.ResourceLevel
		r.position = r.position.Add(r.queuedMovement.Scale(spent))
		r.queuedMovement = api.Vec3{}
	}
	r.level = rep.ResourceLevel
	r.surroundings = [3]string{rep.Ahead, rep.Above, rep.Below}
	r.lastSeen = time.Now()

	callback := r.callback
	r.callback = nil
	r.mu.Unlock()

	if callback != nil {
		callback <- rep
	}
}

// nextCommand waits briefly for an operator command, falling back to idle.
func (r *Rover) nextCommand(window time.Duration, idleWait int) api.Command {
	r.mu.Lock()
	if r.pendingUpdate {
		r.pendingUpdate = false
		r.mu.Unlock()
		return api.Simple(api.CmdUpdate)
	}
	r.mu.Unlock()

	timer := time.NewTimer(window)
	defer timer.Stop()

	select {
	case req := <-r.mailbox:
		r.mu.Lock()
		r.callback = req.reply
		switch req.cmd.Name {
		case api.CmdLeft:
			r.facing = r.facing.Left()
		case api.CmdRight:
			r.facing = r.facing.Right()
		}
		r.queuedMovement = api.MovementUnit(req.cmd, r.facing)
		r.mu.Unlock()
		return req.cmd

	case <-timer.C:
		return api.Wait(idleWait)
	}
}

// Execute queues a command for the rover and blocks until the report that
// followed its execution arrives. This is the admin manual-command path.
func (f *Fleet) Execute(ctx context.Context, id string, cmd api.Command) (api.Report, error) {
	rover, ok := f.Get(id)
	if !ok {
		return api.Report{}, fmt.Errorf("unknown rover %q", id)
	}

	req := commandRequest{cmd: cmd, reply: make(chan api.Report, 1)}
	if cmd.Name == api.CmdPoweroff {
		// A powered-off rover never reports again, so there is no reply
		// to wait for.
		req.reply = nil
	}

	select {
	case rover.mailbox <- req:
	case <-ctx.Done():
		return api.Report{}, ctx.Err()
	}

	if req.reply == nil {
		f.events.Record(observability.Event{
			Type:    observability.EventRoverPoweroff,
			RoverID: id,
		})
		return api.Report{}, nil
	}

	select {
	case rep := <-req.reply:
		return rep, nil
	case <-ctx.Done():
		return api.Report{}, ctx.Err()
	}
}
