// Package cmd implements CLI commands.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/hailstorm-dev/hailstorm/internal/command"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show agent or controller daemon status",
	Long: `Query a running hailstorm daemon for its current status.

For an agent: simulation state, the loaded simulation id, and its upstream
target. For a controller: connected agent count, loaded script path, and
configured metrics sink.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := requireSocketClient()
		if err != nil {
			return err
		}
		return runStatus(cmd.Context(), client, cmd.OutOrStdout())
	},
}

func runStatus(ctx context.Context, client ClientInterface, out io.Writer) error {
	resp, err := client.Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to query status: %w", err)
	}
	if resp.Error != nil {
		return fmt.Errorf("status failed: %s", resp.Error.Message)
	}

	resultJSON, err := json.MarshalIndent(resp.Result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to format result: %w", err)
	}
	fmt.Fprintln(out, string(resultJSON))
	return nil
}

func requireSocketClient() (*command.UDSClient, error) {
	if socketPath == "" {
		return nil, fmt.Errorf("missing --socket: point it at the daemon's operator socket (see its config's \"socket\" field)")
	}
	return command.NewUDSClient(socketPath, 10*time.Second), nil
}
