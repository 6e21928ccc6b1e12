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

var agentConfigPath string

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Run an agent daemon",
	Long: `Run an agent daemon in the foreground: it dials upstream.parent (if
configured), drives its scripted bot population on a fixed tick, and accepts
operator commands over its local control socket until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAgent(cmd.Context(), agentConfigPath)
	},
}

func init() {
	agentCmd.Flags().StringVarP(&agentConfigPath, "config", "c", "/etc/hailstorm/agent.yaml", "path to agent.yaml")
}

func runAgent(ctx context.Context, configPath string) error {
	cfg, err := config.LoadAgent(configPath)
	if err != nil {
		return fmt.Errorf("loading agent config: %w", err)
	}
	if err := log.Init(cfg.Log); err != nil {
		return fmt.Errorf("initializing logging: %w", err)
	}

	agent := daemon.NewAgent(cfg)
	if err := agent.Launch(); err != nil {
		return fmt.Errorf("launching agent: %w", err)
	}

	sock := cfg.Socket
	if socketPath != "" {
		sock = socketPath
	}
	handler := command.NewCommandHandler(agent)
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
			if err := agent.Reload(context.Background()); err != nil {
				log.GetLogger().WithError(err).Warn("agent: reload failed")
			}
		default:
			log.GetLogger().Infof("agent: received %s, shutting down", s)
			cancel()
			<-serverDone
			return agent.Shutdown()
		}
	}
}
