// Package cmd implements CLI commands.
package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

var validateScriptPath string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a behaviour script against a running daemon",
	Long: `Send a Lua behaviour script to a running agent or controller and
report whether it loads cleanly, along with the bot model names it
registers. With no --file, a controller re-validates its own configured
script_path; an agent has no script_path and reports an error.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := requireSocketClient()
		if err != nil {
			return err
		}
		return runValidate(cmd.Context(), client, validateScriptPath, cmd.OutOrStdout())
	},
}

func init() {
	validateCmd.Flags().StringVarP(&validateScriptPath, "file", "f", "", "behaviour script file to validate")
}

func runValidate(ctx context.Context, client ClientInterface, path string, out io.Writer) error {
	params := map[string]string{}
	if path != "" {
		params["path"] = path
	}

	resp, err := client.Validate(ctx, params)
	if err != nil {
		return fmt.Errorf("failed to validate: %w", err)
	}
	if resp.Error != nil {
		fmt.Fprintf(out, "INVALID: %s\n", resp.Error.Message)
		return fmt.Errorf("script invalid")
	}

	result, _ := resp.Result.(map[string]interface{})
	fmt.Fprintf(out, "VALID: models %v\n", result["models"])
	return nil
}
