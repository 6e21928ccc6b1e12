package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"

	"github.com/hailstorm-dev/hailstorm/internal/config"
	"github.com/hailstorm-dev/hailstorm/internal/control"
	"github.com/hailstorm-dev/hailstorm/internal/controllercore"
	"github.com/hailstorm-dev/hailstorm/internal/hailstormpb"
	logpkg "github.com/hailstorm-dev/hailstorm/internal/log"
	"github.com/hailstorm-dev/hailstorm/internal/metricssink"
)

// Controller is the root of the agent tree: it has no upstream, accepts
// downstream agent connections, and owns the authoritative simulation
// state. Build one with NewController.
type Controller struct {
	cfg  *config.ControllerConfig
	core *controllercore.Core

	server     *control.Server
	grpcServer *grpc.Server
	sink       metricssink.Sink
}

// NewController builds a Controller from cfg without starting anything.
func NewController(cfg *config.ControllerConfig) (*Controller, error) {
	sink, err := newSink(cfg.MetricsSink.Type)
	if err != nil {
		return nil, err
	}

	c := &Controller{cfg: cfg, sink: sink}

	c.server = control.NewServer(func(updates []*hailstormpb.AgentUpdate) {
		c.core.HandleUpdates(updates)
	})
	c.core = controllercore.New(c.server.Dispatch, sink)

	return c, nil
}

func newSink(kind string) (metricssink.Sink, error) {
	switch kind {
	case "", "console":
		return metricssink.NewConsoleSink(), nil
	case "noop":
		return metricssink.NoopSink, nil
	default:
		return nil, fmt.Errorf("controller: unsupported metrics_sink.type %q", kind)
	}
}

// Launch starts the downstream listener and, if script_path is set,
// preloads the simulation definition. A simulation is not launched
// automatically; the operator drives that via the "start" command once the
// controller is up.
func (c *Controller) Launch() error {
	listener, err := net.Listen("tcp", c.cfg.Address)
	if err != nil {
		return fmt.Errorf("controller: listen on %s: %w", c.cfg.Address, err)
	}
	c.grpcServer = grpc.NewServer()
	hailstormpb.RegisterHailstormServiceServer(c.grpcServer, c.server)
	go func() {
		if err := c.grpcServer.Serve(listener); err != nil && err != grpc.ErrServerStopped {
			logrus.WithError(err).Error("controller: grpc server stopped")
		}
	}()
	logrus.WithField("address", c.cfg.Address).Info("controller: listening for agents")

	if c.cfg.ScriptPath != "" {
		if err := c.loadSimulation(); err != nil {
			logrus.WithError(err).Warn("controller: failed to preload script_path at startup")
		}
	}

	logrus.Info("controller started")
	return nil
}

// Shutdown tears down every component started by Launch.
func (c *Controller) Shutdown() error {
	if c.grpcServer != nil {
		c.grpcServer.GracefulStop()
	}
	if err := c.sink.Close(); err != nil {
		logrus.WithError(err).Warn("controller: error closing metrics sink")
	}
	logpkg.Flush()
	logrus.Info("controller stopped")
	return nil
}

func (c *Controller) loadSimulation() error {
	data, err := os.ReadFile(c.cfg.ScriptPath)
	if err != nil {
		return fmt.Errorf("reading script_path %s: %w", c.cfg.ScriptPath, err)
	}

	shapes := make([]*hailstormpb.ModelShape, 0, len(c.cfg.ClientsDistribution))
	for model, expr := range c.cfg.ClientsDistribution {
		shapes = append(shapes, &hailstormpb.ModelShape{Model: model, Expr: expr})
	}

	c.core.LoadSimulation(controllercore.SimulationDef{ModelShapes: shapes, Script: string(data)})
	return nil
}

// Status implements command.Target.
func (c *Controller) Status(ctx context.Context) (map[string]interface{}, error) {
	return map[string]interface{}{
		"role":         "controller",
		"agent_count":  c.core.AgentCount(),
		"script_path":  c.cfg.ScriptPath,
		"metrics_sink": c.cfg.MetricsSink.Type,
	}, nil
}

// Start implements command.Target: it (re)loads the configured script and
// client distribution and launches the simulation immediately.
func (c *Controller) Start(ctx context.Context) error {
	if c.cfg.ScriptPath == "" {
		return fmt.Errorf("controller: no script_path configured")
	}
	if err := c.loadSimulation(); err != nil {
		return err
	}
	c.core.StartSimulation(time.Now())
	return nil
}

// Stop implements command.Target: it resets every agent to idle.
func (c *Controller) Stop(ctx context.Context) error {
	c.core.StopSimulation()
	return nil
}

// Reload implements command.Target: it re-reads script_path and the client
// distribution from disk and pushes the resulting alignment sequence to
// every connected agent. The reloaded simulation is loaded but not launched:
// a simulation that was running is stopped until the next start.
func (c *Controller) Reload(ctx context.Context) error {
	return c.loadSimulation()
}

// Validate implements command.Target: it compiles the given (or configured)
// script without affecting the live simulation.
func (c *Controller) Validate(ctx context.Context, params json.RawMessage) (map[string]interface{}, error) {
	var req struct {
		Source string `json:"source"`
		Path   string `json:"path"`
	}
	if len(params) > 0 {
		if err := json.Unmarshal(params, &req); err != nil {
			return nil, fmt.Errorf("invalid validate params: %w", err)
		}
	}
	if req.Source == "" && req.Path == "" {
		req.Path = c.cfg.ScriptPath
	}
	encoded, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	return validateScript(encoded)
}
