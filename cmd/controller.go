package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hailstorm-dev/hailstorm/internal/command"
	"github.com/hailstorm-dev/hailstorm/internal/config"
	"github.com/hailstorm-dev/hailstorm/internal/daemon"
	"github.com/hailstorm-dev/hailstorm/internal/log"
)

var controllerConfigPath string

var controllerCmd = &cobra.Command{
	Use:   "controller",
	Short: "Run a controller daemon",
	Long: `Run a controller daemon in the foreground: it accepts agent
connections, holds the authoritative simulation definition, aggregates
reported metrics into its configured sink, and accepts operator commands
over its local control socket until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runController(cmd.Context(), controllerConfigPath)
	},
}

func init() {
	controllerCmd.Flags().StringVarP(&controllerConfigPath, "config", "c", "/etc/hailstorm/controller.yaml", "path to controller.yaml")
}

func runController(ctx context.Context, configPath string) error {
	cfg, err := config.LoadController(configPath)
	if err != nil {
		return fmt.Errorf("loading controller config: %w", err)
	}
	if err := log.Init(cfg.Log); err != nil {
		return fmt.Errorf("initializing logging: %w", err)
	}

	controller, err := daemon.NewController(cfg)
	if err != nil {
		return fmt.Errorf("constructing controller: %w", err)
	}
	if err := controller.Launch(); err != nil {
		return fmt.Errorf("launching controller: %w", err)
	}

	sock := cfg.Socket
	if socketPath != "" {
		sock = socketPath
	}
	handler := command.NewCommandHandler(controller)
	udsServer := command.NewUDSServer(sock, handler)

	serverCtx, cancel := context.WithCancel(ctx)
	serverDone := make(chan error, 1)
	go func() {
		serverDone <- udsServer.Start(serverCtx)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for {
		s := <-sig
		switch s {
		case syscall.SIGHUP:
			if err := controller.Reload(context.Background()); err != nil {
				log.GetLogger().WithError(err).Warn("controller: reload failed")
			}
		default:
			log.GetLogger().Infof("controller: received %s, shutting down", s)
			cancel()
			<-serverDone
			return controller.Shutdown()
		}
	}
}
