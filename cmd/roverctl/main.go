package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roverfleet/roverfleet/cmd/roverctl/commands"
)

var (
	// Version information (set by build flags)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "roverctl",
		Short: "Roverfleet operator CLI",
		Long: `roverctl is the command-line interface for operating a rover fleet.

It provides commands to list rovers, send them manual commands, trigger
fleet-wide self-updates, and review what the coordinator has been doing.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime),
	}

	// Global flags
	rootCmd.PersistentFlags().String("coordinator", "", "Coordinator base URL (default from config)")
	rootCmd.PersistentFlags().String("config", "", "Config file path (default: $HOME/.roverfleet/config.yaml)")
	rootCmd.PersistentFlags().String("output", "table", "Output format: table, json, yaml")

	rootCmd.AddCommand(commands.NewRoverCommand())
	rootCmd.AddCommand(commands.NewFleetCommand())
	rootCmd.AddCommand(commands.NewVersionCommand(Version, BuildTime, GitCommit))

	return rootCmd
}
