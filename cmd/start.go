package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Launch a loaded simulation",
	Long: `Tell a running controller to launch the simulation loaded from its
script_path. On an agent, only checks that an upstream parent is
configured: the agent already dials its parent from startup.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := requireSocketClient()
		if err != nil {
			return err
		}
		return runStart(cmd.Context(), client, cmd.OutOrStdout())
	},
}

func runStart(ctx context.Context, client ClientInterface, out io.Writer) error {
	resp, err := client.StartSimulation(ctx)
	if err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	if resp.Error != nil {
		return fmt.Errorf("start failed: %s", resp.Error.Message)
	}
	fmt.Fprintln(out, "started")
	return nil
}
