// Package cmd implements CLI commands.
package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop a launched simulation",
	Long: `Tell a running controller to stop its launched simulation and reset
to idle, broadcasting a stop to every connected agent. On an agent, resets
its own bot population.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := requireSocketClient()
		if err != nil {
			return err
		}
		return runStop(cmd.Context(), client, cmd.OutOrStdout())
	},
}

func runStop(ctx context.Context, client ClientInterface, out io.Writer) error {
	resp, err := client.StopSimulation(ctx)
	if err != nil {
		return fmt.Errorf("failed to stop: %w", err)
	}
	if resp.Error != nil {
		return fmt.Errorf("stop failed: %s", resp.Error.Message)
	}
	fmt.Fprintln(out, "stopped")
	return nil
}
