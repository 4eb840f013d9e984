package agent

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/roverfleet/roverfleet/pkg/observability"
)

// UpdateGuardEnv marks a process as the product of a self-update. The guard
// lives only in the environment of one re-invocation chain: it is never
// persisted, so a pending update is bounded to exactly one generation and a
// nested update attempt fails immediately without touching the network.
const UpdateGuardEnv = "ROVERFLEET_UPDATE_GUARD"

// ProgramFetcher retrieves the current program text from the coordinator.
type ProgramFetcher interface {
	FetchProgram(ctx context.Context) ([]byte, error)
}

// UpdateOutcome describes how a self-update attempt ended.
type UpdateOutcome int

const (
	// UpdateInvoked means a new generation was installed and launched. The
	// caller's loop must terminate without sending further reports.
	UpdateInvoked UpdateOutcome = iota
	// UpdateRefused means the recursion guard rejected a nested attempt
	// without touching the network. The refusal is reported as a failure and
	// the caller's loop must terminate so the pending generation can land.
	UpdateRefused
	// UpdateFailed means the attempt failed during fetch, install, or
	// invocation. The current generation keeps running (or has been
	// hard-restarted).
	UpdateFailed
)

// Updater installs a replacement for the agent's own persisted entry point.
// The previous version is kept as a single backup; each update overwrites it.
type Updater struct {
	fetcher    ProgramFetcher
	entryPath  string
	backupPath string
	guarded    bool
	logger     *zap.Logger

	// invoke launches the freshly installed entry point with the guard set.
	// restart hard-reboots the current generation; in production it replaces
	// the process image and does not return.
	invoke  func(entryPath string) error
	restart func() error
}

// NewUpdater creates the self-update mechanism. The entry point and its
// backup live under dataDir; the recursion guard is read from the process
// environment.
func NewUpdater(fetcher ProgramFetcher, dataDir string, logger *zap.Logger) *Updater {
	entry := filepath.Join(dataDir, "program", "rover")
	u := &Updater{
		fetcher:    fetcher,
		entryPath:  entry,
		backupPath: entry + ".bak",
		guarded:    os.Getenv(UpdateGuardEnv) != "",
		logger:     logger,
	}
	u.invoke = u.launchGuarded
	u.restart = restartProcess
	return u
}

// EntryPath returns where the installed program lives.
func (u *Updater) EntryPath() string { return u.entryPath }

// BackupPath returns where the immediately-prior version is kept.
func (u *Updater) BackupPath() string { return u.backupPath }

// Guarded reports whether this process was itself launched by a self-update.
func (u *Updater) Guarded() bool { return u.guarded }

// Run performs one self-update attempt.
func (u *Updater) Run(ctx context.Context) UpdateOutcome {
	if u.guarded {
		// One pending generation at a time. A second update request inside
		// an updated-but-not-yet-restarted process is refused outright.
		u.logger.Warn("Update requested by an updated generation, refusing")
		observability.AgentSelfUpdatesTotal.WithLabelValues("guarded").Inc()
		return UpdateRefused
	}

	program, err := u.fetcher.FetchProgram(ctx)
	if err != nil {
		// A missing update body must never read as "no update happened":
		// the coordinator asked for an update, so reboot and start clean.
		u.logger.Error("Program fetch failed, restarting", zap.Error(err))
		observability.AgentSelfUpdatesTotal.WithLabelValues("fetch_failed").Inc()
		if rerr := u.restart(); rerr != nil {
			u.logger.Error("Restart failed", zap.Error(rerr))
		}
		return UpdateFailed
	}

	if err := u.install(program); err != nil {
		u.logger.Error("Program install failed", zap.Error(err))
		observability.AgentSelfUpdatesTotal.WithLabelValues("fetch_failed").Inc()
		if rerr := u.restart(); rerr != nil {
			u.logger.Error("Restart failed", zap.Error(rerr))
		}
		return UpdateFailed
	}

	if err := u.invoke(u.entryPath); err != nil {
		u.logger.Error("Failed to invoke new generation", zap.Error(err))
		observability.AgentSelfUpdatesTotal.WithLabelValues("fetch_failed").Inc()
		return UpdateFailed
	}

	u.logger.Info("New generation installed and invoked",
		zap.String("entry", u.entryPath),
		zap.Int("bytes", len(program)),
	)
	observability.AgentSelfUpdatesTotal.WithLabelValues("installed").Inc()
	return UpdateInvoked
}

// install performs backup-then-replace of the persisted entry point. The
// backup retains exactly the immediately-prior version.
func (u *Updater) install(program []byte) error {
	if err := os.MkdirAll(filepath.Dir(u.entryPath), 0o755); err != nil {
		return fmt.Errorf("create program directory: %w", err)
	}

	if err := os.Remove(u.backupPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove old backup: %w", err)
	}

	if _, err := os.Stat(u.entryPath); err == nil {
		if err := os.Rename(u.entryPath, u.backupPath); err != nil {
			return fmt.Errorf("back up entry point: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat entry point: %w", err)
	}

	if err := os.WriteFile(u.entryPath, program, 0o755); err != nil {
		return fmt.Errorf("write entry point: %w", err)
	}
	return nil
}

// launchGuarded starts the new entry point as the next generation, with the
// recursion guard set in its environment.
func (u *Updater) launchGuarded(entryPath string) error {
	cmd := exec.Command(entryPath)
	cmd.Env = append(environWithout(UpdateGuardEnv), UpdateGuardEnv+"=1")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start new generation: %w", err)
	}
	// The child outlives this generation; the caller's loop terminates and
	// the process exits without waiting on it.
	return cmd.Process.Release()
}

// restartProcess re-executes the current binary with the same arguments and
// the guard cleared. On success it never returns.
func restartProcess() error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate executable: %w", err)
	}
	return syscall.Exec(exe, os.Args, environWithout(UpdateGuardEnv))
}

func environWithout(key string) []string {
	env := os.Environ()
	out := env[:0]
	for _, kv := range env {
		if !strings.HasPrefix(kv, key+"=") {
			out = append(out, kv)
		}
	}
	return out
}
