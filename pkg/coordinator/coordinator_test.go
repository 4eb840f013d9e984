package coordinator

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:    "minimal valid config",
			config:  Config{DataDir: "/tmp/fleet", Logger: zap.NewNop()},
			wantErr: false,
		},
		{
			name:    "missing data dir",
			config:  Config{Logger: zap.NewNop()},
			wantErr: true,
		},
		{
			name:    "missing logger",
			config:  Config{DataDir: "/tmp/fleet"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, ":8080", tt.config.ListenAddr)
			assert.Equal(t, DefaultCommandTimeout, tt.config.CommandTimeout)
			assert.Equal(t, DefaultIdleWaitSeconds, tt.config.IdleWaitSeconds)
		})
	}
}

func TestCoordinatorLifecycle(t *testing.T) {
	dataDir := t.TempDir()

	coord, err := New(&Config{
		ListenAddr:       "127.0.0.1:0",
		DataDir:          dataDir,
		SnapshotInterval: time.Hour,
		Logger:           zap.NewNop(),
	})
	require.NoError(t, err)
	assert.Error(t, coord.Ready(), "not ready before Start")

	require.NoError(t, coord.Start())
	assert.NoError(t, coord.Ready())

	coord.fleet.Register(testRegisterRequest())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, coord.Stop(ctx))
	assert.Error(t, coord.Ready(), "not ready after Stop")

	// Shutdown flushes a final snapshot.
	statePath := filepath.Join(dataDir, "state.json")
	_, err = os.Stat(statePath)
	require.NoError(t, err, "state snapshot missing after shutdown")

	restored, err := New(&Config{
		ListenAddr: "127.0.0.1:0",
		DataDir:    dataDir,
		Logger:     zap.NewNop(),
	})
	require.NoError(t, err)

	snap, err := restored.state.Load()
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Len(t, snap.Rovers, 1)

	restored.fleet.Restore(snap)
	assert.Len(t, restored.fleet.List(), 1)
}

func TestProgramChangeFlagsFleet(t *testing.T) {
	dataDir := t.TempDir()

	coord, err := New(&Config{
		ListenAddr: "127.0.0.1:0",
		DataDir:    dataDir,
		Logger:     zap.NewNop(),
	})
	require.NoError(t, err)

	reg := coord.fleet.Register(testRegisterRequest())

	// The watcher callback is what a program deploy triggers.
	coord.programs.changed()

	cmd := coord.fleet.HandleReport(reg.ID, testReport(20))
	assert.Equal(t, "Update", cmd.Name)
}
