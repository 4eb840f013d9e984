package commands

import (
	"testing"

	"github.com/spf13/cobra"
)

func TestNewVersionCommand(t *testing.T) {
	cmd := NewVersionCommand("v0.1.0", "2026-08-26T00:00:00Z", "abc123def456")

	if cmd == nil {
		t.Fatal("NewVersionCommand returned nil")
	}
	if cmd.Use != "version" {
		t.Errorf("Use = %q, want %q", cmd.Use, "version")
	}
	if cmd.Run == nil {
		t.Error("Run function should not be nil")
	}
}

func TestVersionCommand_Integration(t *testing.T) {
	rootCmd := &cobra.Command{Use: "roverctl"}
	rootCmd.AddCommand(NewVersionCommand("v1.0.0", "2026-08-26", "abc123"))

	rootCmd.SetArgs([]string{"version"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
}
