// Package daemon wires the standalone pieces of an agent or controller
// process (simulation engine, control plane, notifier, metrics) into the two
// long-running daemons the hailstorm binary can run, and exposes each as a
// command.Target for the local operator socket.
package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"

	"github.com/hailstorm-dev/hailstorm/internal/agentcore"
	"github.com/hailstorm-dev/hailstorm/internal/botstorage"
	"github.com/hailstorm-dev/hailstorm/internal/config"
	"github.com/hailstorm-dev/hailstorm/internal/control"
	"github.com/hailstorm-dev/hailstorm/internal/hailstormpb"
	hid "github.com/hailstorm-dev/hailstorm/internal/id"
	logpkg "github.com/hailstorm-dev/hailstorm/internal/log"
	"github.com/hailstorm-dev/hailstorm/internal/metrics"
	"github.com/hailstorm-dev/hailstorm/internal/notifier"
	"github.com/hailstorm-dev/hailstorm/internal/script"
	"github.com/hailstorm-dev/hailstorm/internal/simulation"
)

// tickPeriod is the simulation engine's wall-clock-aligned reconciliation
// interval, shared by every agent.
const tickPeriod = 1500 * time.Millisecond

// Agent is one agent process: an engine driving local bots, an optional
// downstream listener for child agents, and an optional upstream client
// dialing a parent. Build one with NewAgent.
type Agent struct {
	cfg     *config.AgentConfig
	agentID hid.AgentId

	engine   *simulation.Engine
	manager  *metrics.Manager
	notif    *notifier.Notifier
	server   *control.Server
	upstream *control.Client
	core     *agentcore.Core

	grpcServer *grpc.Server

	tickStop chan struct{}
	tickWG   sync.WaitGroup
}

// NewAgent builds an Agent from cfg without starting anything.
func NewAgent(cfg *config.AgentConfig) *Agent {
	agentID := hid.AgentId(cfg.AgentID)
	if agentID == 0 {
		agentID = hid.AgentId(rand.Uint32())
	}

	storage := botstorage.NewStore()
	engine := simulation.NewEngine(agentID, cfg.Simulation.RunningMax, cfg.Simulation.RateMax, tickPeriod, storage)
	manager := metrics.NewManager()
	n := notifier.New(0)

	var server *control.Server
	a := &Agent{
		cfg:     cfg,
		agentID: agentID,
		engine:  engine,
		manager: manager,
		notif:   n,
	}

	server = control.NewServer(func(updates []*hailstormpb.AgentUpdate) {
		// Updates arriving from child agents are just re-submitted to this
		// agent's own notifier, so they ride the same outbound frame upstream.
		a.notif.Submit(updates)
	})
	a.server = server

	name := fmt.Sprintf("agent-%d", agentID)
	a.core = agentcore.New(agentID, name, engine, manager, n, server)

	if cfg.Upstream.Parent != "" {
		a.upstream = control.NewClient(cfg.Upstream.Parent, func(outbound chan<- *hailstormpb.AgentMessage) {
			n.RegisterClient(outbound)
		}, a.core.HandleControllerCommand)
	}

	return a
}

// Launch brings up the downstream listener (if configured), the notifier,
// the agent-core reporting loop, the upstream client (if configured) and
// the tick loop, in that order.
func (a *Agent) Launch() error {
	if a.cfg.Address != "" {
		listener, err := net.Listen("tcp", a.cfg.Address)
		if err != nil {
			return fmt.Errorf("agent: listen on %s: %w", a.cfg.Address, err)
		}
		a.grpcServer = grpc.NewServer()
		hailstormpb.RegisterHailstormServiceServer(a.grpcServer, a.server)
		go func() {
			if err := a.grpcServer.Serve(listener); err != nil && err != grpc.ErrServerStopped {
				logrus.WithError(err).Error("agent: grpc server stopped")
			}
		}()
		logrus.WithField("address", a.cfg.Address).Info("agent: listening for downstream agents")
	}

	a.notif.Start()
	a.core.Start()

	if a.upstream != nil {
		a.upstream.Start()
	}

	a.tickStop = make(chan struct{})
	a.tickWG.Add(1)
	go a.runTickLoop()

	logrus.WithField("agent_id", uint32(a.agentID)).Info("agent started")
	return nil
}

// Shutdown tears down every component started by Launch, in reverse order.
func (a *Agent) Shutdown() error {
	close(a.tickStop)
	a.tickWG.Wait()

	if a.upstream != nil {
		a.upstream.Stop()
	}
	a.core.Stop()
	a.notif.Stop()

	if a.grpcServer != nil {
		a.grpcServer.GracefulStop()
	}

	logpkg.Flush()
	logrus.Info("agent stopped")
	return nil
}

func (a *Agent) runTickLoop() {
	defer a.tickWG.Done()
	next := alignNext(time.Now(), tickPeriod)
	timer := time.NewTimer(time.Until(next))
	defer timer.Stop()

	for {
		select {
		case <-a.tickStop:
			return
		case <-timer.C:
			a.engine.Tick(time.Now())
			next = next.Add(tickPeriod)
			delay := time.Until(next)
			if delay < 0 {
				delay = 0
			}
			timer.Reset(delay)
		}
	}
}

func alignNext(now time.Time, period time.Duration) time.Time {
	rem := now.UnixNano() % period.Nanoseconds()
	if rem == 0 {
		return now
	}
	return now.Add(period - time.Duration(rem))
}

// Status implements command.Target.
func (a *Agent) Status(ctx context.Context) (map[string]interface{}, error) {
	stats := a.engine.FetchSimulationStats(time.Now())
	return map[string]interface{}{
		"role":          "agent",
		"agent_id":      uint32(a.agentID),
		"state":         stats.AgentState.String(),
		"simulation_id": stats.SimulationId,
		"models":        len(stats.Models),
		"upstream":      a.cfg.Upstream.Parent,
	}, nil
}

// Start implements command.Target's "start" method: the agent process and
// its upstream connection are already running by the time the operator
// socket accepts commands, so this just confirms an upstream is configured.
func (a *Agent) Start(ctx context.Context) error {
	if a.upstream == nil {
		return fmt.Errorf("agent: no upstream.parent configured, nothing to start")
	}
	return nil
}

// Stop implements command.Target's "stop" method: it halts bot reconciliation
// by driving the local engine to a reset state, without tearing down the
// process.
func (a *Agent) Stop(ctx context.Context) error {
	a.engine.ApplyCommands([]simulation.Command{{Stop: &simulation.StopSimulation{Reset: true}}})
	return nil
}

// Reload implements command.Target: an agent has no file-backed state beyond
// its own config, which is fixed for the process lifetime, so reload is a
// no-op that confirms liveness.
func (a *Agent) Reload(ctx context.Context) error {
	return nil
}

// Validate implements command.Target: it compiles the given Lua source
// against a throwaway script registry without touching the live engine.
func (a *Agent) Validate(ctx context.Context, params json.RawMessage) (map[string]interface{}, error) {
	return validateScript(params)
}

func validateScript(params json.RawMessage) (map[string]interface{}, error) {
	var req struct {
		Source string `json:"source"`
		Path   string `json:"path"`
	}
	if len(params) > 0 {
		if err := json.Unmarshal(params, &req); err != nil {
			return nil, fmt.Errorf("invalid validate params: %w", err)
		}
	}
	source := req.Source
	if source == "" && req.Path != "" {
		data, err := os.ReadFile(req.Path)
		if err != nil {
			return nil, fmt.Errorf("reading script %s: %w", req.Path, err)
		}
		source = string(data)
	}
	if source == "" {
		return nil, fmt.Errorf("validate requires either 'source' or 'path'")
	}

	reg := script.NewRegistry(nil)
	if err := reg.LoadScript(source); err != nil {
		return nil, fmt.Errorf("script invalid: %w", err)
	}
	return map[string]interface{}{"valid": true, "models": reg.ModelNames()}, nil
}
