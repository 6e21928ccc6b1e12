// Package cmd implements CLI commands using cobra framework.
package cmd

import (
	"github.com/spf13/cobra"
)

// socketPath is the shared --socket flag consumed by the operator
// subcommands (status/start/stop/reload/validate) and, when set, overrides
// an agent/controller daemon's own configured socket path.
var socketPath string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "hailstorm",
	Short: "Hailstorm - distributed load testing",
	Long: `Hailstorm is a distributed load testing framework: a tree of agent
processes, each driving a scripted population of simulated bots, reporting
up to a controller that holds the authoritative simulation definition.

Run "hailstorm agent" or "hailstorm controller" to start a daemon process.
Use "hailstorm status|start|stop|reload|validate" to control an already
running daemon over its local operator socket.`,
	Version: "0.1.0",
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&socketPath, "socket", "s", "",
		"operator socket path (required by status/start/stop/reload/validate; overrides the configured socket for agent/controller)")

	rootCmd.AddCommand(agentCmd)
	rootCmd.AddCommand(controllerCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(reloadCmd)
	rootCmd.AddCommand(validateCmd)
}
