// Package cmd implements CLI commands.
package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

var reloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Reload a daemon's script from disk",
	Long: `Tell a running controller to re-read its script_path and client
distribution without restarting the process. The reloaded simulation is
loaded but not launched: a simulation that was running is stopped until the
next start.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := requireSocketClient()
		if err != nil {
			return err
		}
		return runReload(cmd.Context(), client, cmd.OutOrStdout())
	},
}

func runReload(ctx context.Context, client ClientInterface, out io.Writer) error {
	resp, err := client.Reload(ctx)
	if err != nil {
		return fmt.Errorf("failed to reload: %w", err)
	}
	if resp.Error != nil {
		return fmt.Errorf("reload failed: %s", resp.Error.Message)
	}
	fmt.Fprintln(out, "reloaded")
	return nil
}
