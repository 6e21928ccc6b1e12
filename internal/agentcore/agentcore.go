// Package agentcore is the agent's glue actor (spec.md §4.10): it receives
// ControllerCommands from the agent's upstream client, dispatches the ones
// targeting this agent to the simulation engine, re-broadcasts every
// command downstream unchanged, and periodically assembles an AgentUpdate
// from the simulation engine and the metrics manager for the notifier to
// fan out.
package agentcore

import (
	"math/rand/v2"
	"sync"
	"time"

	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/hailstorm-dev/hailstorm/internal/botstate"
	"github.com/hailstorm-dev/hailstorm/internal/control"
	"github.com/hailstorm-dev/hailstorm/internal/hailstormpb"
	hid "github.com/hailstorm-dev/hailstorm/internal/id"
	"github.com/hailstorm-dev/hailstorm/internal/metrics"
	"github.com/hailstorm-dev/hailstorm/internal/notifier"
	"github.com/hailstorm-dev/hailstorm/internal/simulation"
)

const (
	reportInterval = 3 * time.Second
	staleResend    = 25 * time.Second
)

type stateMemo struct {
	count  uint64
	sentAt time.Time
}

// Core binds one agent's simulation engine, metrics manager, notifier and
// (optional) downstream server endpoint together.
type Core struct {
	agentID hid.AgentId
	name    string

	engine   *simulation.Engine
	metrics  *metrics.Manager
	notifier *notifier.Notifier
	server   *control.Server

	mu       sync.Mutex
	lastSent map[string]map[uint32]*stateMemo

	stop chan struct{}
	wg   sync.WaitGroup
}

// New returns a Core. server may be nil for a leaf agent with no downstream
// connections.
func New(agentID hid.AgentId, name string, engine *simulation.Engine, metricsManager *metrics.Manager, n *notifier.Notifier, server *control.Server) *Core {
	return &Core{
		agentID:  agentID,
		name:     name,
		engine:   engine,
		metrics:  metricsManager,
		notifier: n,
		server:   server,
		lastSent: make(map[string]map[uint32]*stateMemo),
		stop:     make(chan struct{}),
	}
}

// Start begins the 3s-aligned stats reporting loop in its own goroutine.
func (c *Core) Start() {
	c.wg.Add(1)
	go c.run()
}

// Stop ends the reporting loop and waits for it to exit.
func (c *Core) Stop() {
	close(c.stop)
	c.wg.Wait()
}

func (c *Core) run() {
	defer c.wg.Done()

	next := alignNext(time.Now(), reportInterval)
	timer := time.NewTimer(time.Until(next))
	defer timer.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-timer.C:
			c.report()
			next = next.Add(reportInterval)
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

// report concurrently fetches action metrics and simulation stats, packs
// them into one AgentUpdate with delta-filtered state counts, and hands it
// to the notifier.
func (c *Core) report() {
	now := time.Now()

	var actionMetrics map[metrics.Key][]metrics.Snapshot
	var stats simulation.Stats
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); actionMetrics = c.metrics.FetchActionMetrics() }()
	go func() { defer wg.Done(); stats = c.engine.FetchSimulationStats(now) }()
	wg.Wait()

	perfByModel := groupPerformanceByModel(actionMetrics)

	modelStats := make([]*hailstormpb.ModelStats, 0, len(stats.Models))
	for _, snap := range stats.Models {
		modelStats = append(modelStats, &hailstormpb.ModelStats{
			Model: snap.Model,
			States: []*hailstormpb.ModelStateSnapshot{{
				Timestamp: timestamppb.New(snap.Timestamp),
				States:    c.deltaFilter(snap.Model, snap.CountByState, now),
			}},
			Performance: perfByModel[snap.Model],
		})
	}

	update := &hailstormpb.AgentUpdate{
		AgentId:      uint32(c.agentID),
		UpdateId:     rand.Uint64(),
		Timestamp:    timestamppb.New(now),
		State:        toWireAgentState(stats.AgentState),
		Stats:        modelStats,
		Name:         c.name,
		SimulationId: stats.SimulationId,
	}

	c.notifier.Submit([]*hailstormpb.AgentUpdate{update})
}

// deltaFilter implements the compression contract from spec.md §4.10: a
// state is included only if its count changed since last sent, or its
// count is non-zero and hasn't been resent in staleResend; a state sent
// before with a non-zero count that is now absent is emitted once more
// with count 0.
func (c *Core) deltaFilter(model string, counts map[botstate.State]int, now time.Time) []*hailstormpb.StateCount {
	c.mu.Lock()
	defer c.mu.Unlock()

	memo, ok := c.lastSent[model]
	if !ok {
		memo = make(map[uint32]*stateMemo)
		c.lastSent[model] = memo
	}

	current := make(map[uint32]uint64, len(counts))
	for state, n := range counts {
		current[state.WireID()] = uint64(n)
	}

	var out []*hailstormpb.StateCount
	for wireID, count := range current {
		m, seen := memo[wireID]
		switch {
		case !seen:
			memo[wireID] = &stateMemo{count: count, sentAt: now}
			out = append(out, &hailstormpb.StateCount{StateId: wireID, Count: count})
		case m.count != count:
			m.count = count
			m.sentAt = now
			out = append(out, &hailstormpb.StateCount{StateId: wireID, Count: count})
		case count > 0 && now.Sub(m.sentAt) >= staleResend:
			m.sentAt = now
			out = append(out, &hailstormpb.StateCount{StateId: wireID, Count: count})
		}
	}

	for wireID, m := range memo {
		if _, present := current[wireID]; !present && m.count > 0 {
			m.count = 0
			m.sentAt = now
			out = append(out, &hailstormpb.StateCount{StateId: wireID, Count: 0})
		}
	}

	return out
}

func groupPerformanceByModel(actionMetrics map[metrics.Key][]metrics.Snapshot) map[string][]*hailstormpb.PerformanceSnapshot {
	out := make(map[string][]*hailstormpb.PerformanceSnapshot)
	for key, snapshots := range actionMetrics {
		for _, snap := range snapshots {
			histograms := make([]*hailstormpb.OutcomeHistogram, 0, len(snap.Metrics))
			for outcome, hist := range snap.Metrics {
				histograms = append(histograms, &hailstormpb.OutcomeHistogram{
					Status:  int64(outcome),
					Buckets: hist.Buckets,
					Sum:     hist.Sum,
				})
			}
			out[key.Model] = append(out[key.Model], &hailstormpb.PerformanceSnapshot{
				Timestamp:  timestamppb.New(snap.Timestamp),
				Action:     key.Action,
				Histograms: histograms,
			})
		}
	}
	return out
}

func toWireAgentState(s simulation.AgentState) hailstormpb.AgentSimulationState {
	switch s {
	case simulation.StateReady:
		return hailstormpb.AgentSimulationState_READY
	case simulation.StateWaiting:
		return hailstormpb.AgentSimulationState_WAITING
	case simulation.StateRunning:
		return hailstormpb.AgentSimulationState_RUNNING
	case simulation.StateStopping:
		return hailstormpb.AgentSimulationState_STOPPING
	default:
		return hailstormpb.AgentSimulationState_IDLE
	}
}

// HandleControllerCommand is the upstream client's onCommand callback: it
// applies the contained commands to the simulation engine if they target
// this agent, then unconditionally re-broadcasts the original command
// downstream, per spec.md §4.10.
func (c *Core) HandleControllerCommand(cmd *hailstormpb.ControllerCommand) {
	if c.targetsSelf(cmd.Target) {
		if batch := translateCommands(cmd.Commands); len(batch) > 0 {
			c.engine.ApplyCommands(batch)
		}
	}
	if c.server != nil {
		c.server.Dispatch(cmd)
	}
}

func (c *Core) targetsSelf(target *hailstormpb.Target) bool {
	if target == nil || target.Target == nil {
		return true
	}
	switch t := target.Target.(type) {
	case *hailstormpb.Target_Group:
		return t.Group == hailstormpb.AgentGroup_ALL
	case *hailstormpb.Target_AgentId:
		return t.AgentId == uint32(c.agentID)
	case *hailstormpb.Target_Agents:
		if t.Agents == nil {
			return false
		}
		for _, id := range t.Agents.AgentIds {
			if id == uint32(c.agentID) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func translateCommands(items []*hailstormpb.CommandItem) []simulation.Command {
	out := make([]simulation.Command, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		switch cmd := item.Command.(type) {
		case *hailstormpb.CommandItem_Load:
			shapes := make([]simulation.ModelShape, 0, len(cmd.Load.ModelShapes))
			for _, ms := range cmd.Load.ModelShapes {
				shapes = append(shapes, simulation.ModelShape{Model: ms.Model, Expr: ms.Expr})
			}
			out = append(out, simulation.Command{Load: &simulation.LoadSimulation{ModelShapes: shapes, Script: cmd.Load.Script, SimulationId: cmd.Load.SimulationId}})
		case *hailstormpb.CommandItem_Launch:
			startTs := time.Now()
			if cmd.Launch.StartTs != nil {
				startTs = cmd.Launch.StartTs.AsTime()
			}
			out = append(out, simulation.Command{Launch: &simulation.LaunchSimulation{StartTs: startTs}})
		case *hailstormpb.CommandItem_Stop:
			out = append(out, simulation.Command{Stop: &simulation.StopSimulation{Reset: cmd.Stop.Reset}})
		case *hailstormpb.CommandItem_UpdateAgentsCount:
			out = append(out, simulation.Command{UpdateAgentsCount: &simulation.UpdateAgentsCount{Count: int(cmd.UpdateAgentsCount.Count)}})
		}
	}
	return out
}
