package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/roverfleet/roverfleet/cmd/roverctl/config"
	"github.com/roverfleet/roverfleet/pkg/api"
)

// NewRoverCommand creates the rover command
func NewRoverCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rover",
		Short: "Manage fleet rovers",
		Long:  "List rovers, inspect their tracked state, and send them manual commands",
	}

	cmd.AddCommand(newRoverListCommand())
	cmd.AddCommand(newRoverInfoCommand())
	cmd.AddCommand(newRoverSendCommand())

	return cmd
}

func newRoverListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all rovers",
		Long:  "List every registered rover with its tracked position and status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoverList(cmd)
		},
	}
}

func runRoverList(cmd *cobra.Command) error {
	client, err := newClient(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rovers, err := client.ListRovers(ctx)
	if err != nil {
		return err
	}

	output, _ := cmd.Flags().GetString("output")
	out := config.NewOutputter(output)

	if out.Tabular() {
		printRoverTable(out, rovers)
		return nil
	}
	return out.Print(rovers)
}

func printRoverTable(out *config.Outputter, rovers []api.RoverInfo) {
	headers := []string{"LABEL", "ID", "RESOURCE", "POSITION", "FACING", "PENDING UPDATE", "LAST SEEN"}
	rows := make([][]string, 0, len(rovers))

	for _, r := range rovers {
		rows = append(rows, []string{
			r.Label,
			r.ID,
			fmt.Sprintf("%d/%d", r.ResourceLevel, r.ResourceCapacity),
			fmt.Sprintf("(%d,%d,%d)", r.Position.X, r.Position.Y, r.Position.Z),
			string(r.Facing),
			strconv.FormatBool(r.PendingUpdate),
			formatLastSeen(r.LastSeen),
		})
	}
	out.PrintTable(headers, rows)
}

func formatLastSeen(unix int64) string {
	if unix == 0 {
		return "never"
	}
	return time.Unix(unix, 0).Format(time.RFC3339)
}

func newRoverInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info <rover-id>",
		Short: "Show one rover's tracked state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoverInfo(cmd, args[0])
		},
	}
}

func runRoverInfo(cmd *cobra.Command, id string) error {
	client, err := newClient(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rover, err := client.GetRover(ctx, id)
	if err != nil {
		return err
	}

	output, _ := cmd.Flags().GetString("output")
	out := config.NewOutputter(output)

	if out.Tabular() {
		printRoverTable(out, []api.RoverInfo{rover})
		return nil
	}
	return out.Print(rover)
}

func newRoverSendCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send <rover-id> <command> [arg]",
		Short: "Send a manual command to a rover",
		Long: `Send a command into a rover's next polling cycle and wait for the report
that follows its execution. The optional argument is a JSON value, for
example: roverctl rover send <id> Forward 3`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoverSend(cmd, args)
		},
	}
	return cmd
}

func runRoverSend(cmd *cobra.Command, args []string) error {
	command := api.Command{Name: args[1]}
	if len(args) == 3 {
		arg := json.RawMessage(args[2])
		if !json.Valid(arg) {
			return fmt.Errorf("command argument must be valid JSON, got %q", args[2])
		}
		command.Arg = arg
	}

	client, err := newClient(cmd)
	if err != nil {
		return err
	}

	// The rover has to poll, execute, and report before an answer exists.
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	rep, err := client.SendCommand(ctx, args[0], command)
	if err != nil {
		return err
	}
	if rep == nil {
		fmt.Println("Poweroff queued")
		return nil
	}

	output, _ := cmd.Flags().GetString("output")
	out := config.NewOutputter(output)

	if out.Tabular() {
		headers := []string{"RESULT", "RESOURCE", "AHEAD", "ABOVE", "BELOW"}
		out.PrintTable(headers, [][]string{{
			string(rep.Result.Kind),
			strconv.Itoa(rep.ResourceLevel),
			rep.Ahead,
			rep.Above,
			rep.Below,
		}})
		return nil
	}
	return out.Print(rep)
}

func newClient(cmd *cobra.Command) (*config.Client, error) {
	cfg, err := config.LoadConfig(cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg.NewClient()
}
