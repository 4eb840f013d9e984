package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roverfleet/roverfleet/cmd/roverctl/config"
)

// NewFleetCommand creates the fleet command
func NewFleetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fleet",
		Short: "Fleet-wide operations",
		Long:  "Trigger fleet-wide self-updates, flush coordinator state, and review fleet events",
	}

	cmd.AddCommand(newFleetUpdateCommand())
	cmd.AddCommand(newFleetFlushCommand())
	cmd.AddCommand(newFleetEventsCommand())

	return cmd
}

func newFleetUpdateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Flag every rover for a self-update",
		Long:  "Each rover installs the current program on its next report cycle",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			count, err := client.FleetUpdate(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Update pending for %d rover(s)\n", count)
			return nil
		},
	}
}

func newFleetFlushCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "flush",
		Short: "Flush fleet state to disk",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := client.FleetFlush(ctx); err != nil {
				return err
			}
			fmt.Println("Fleet state flushed")
			return nil
		},
	}
}

func newFleetEventsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show recent fleet events",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			return runFleetEvents(cmd, limit)
		},
	}
	cmd.Flags().Int("limit", 50, "Maximum number of events to show")
	return cmd
}

func runFleetEvents(cmd *cobra.Command, limit int) error {
	client, err := newClient(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	events, err := client.Events(ctx, limit)
	if err != nil {
		return err
	}

	output, _ := cmd.Flags().GetString("output")
	out := config.NewOutputter(output)

	if out.Tabular() {
		headers := []string{"TIME", "TYPE", "ROVER", "DETAIL"}
		rows := make([][]string, 0, len(events))
		for _, e := range events {
			rows = append(rows, []string{
				e.Timestamp.Format(time.RFC3339),
				e.Type,
				e.RoverID,
				e.Detail,
			})
		}
		out.PrintTable(headers, rows)
		return nil
	}
	return out.Print(events)
}
