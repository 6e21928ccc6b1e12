// Package controllercore holds the controller's authoritative simulation
// state and live-agent bookkeeping (spec.md §4.11): it reconciles incoming
// AgentUpdate batches against a 60-second TTL agent map, forwards every
// batch to a metrics sink, and pushes realigning commands to any agent
// whose reported state drifts from what the loaded simulation prescribes.
package controllercore

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/hailstorm-dev/hailstorm/internal/hailstormpb"
	"github.com/hailstorm-dev/hailstorm/internal/metricssink"
)

const agentTTL = 60 * time.Second

// SimulationDef is the controller's copy of a loaded simulation: the same
// shapes and script an agent's LoadSimulationCmd carries, retained so the
// controller can replay it to any agent that (re)connects or drifts out of
// alignment.
type SimulationDef struct {
	ModelShapes []*hailstormpb.ModelShape
	Script      string
}

type stateKind int

const (
	stateIdle stateKind = iota
	stateReady
	stateLaunched
)

type simState struct {
	kind         stateKind
	def          *SimulationDef
	startTs      time.Time
	simulationID string
}

type agentEntry struct {
	lastSeen time.Time
	state    hailstormpb.AgentSimulationState
}

// Core is the controller's glue actor. The zero value is not usable; build
// one with New.
type Core struct {
	mu     sync.Mutex
	state  simState
	agents map[uint32]*agentEntry

	sink     metricssink.Sink
	dispatch func(*hailstormpb.ControllerCommand)
}

// New returns an idle Core. dispatch pushes a command downstream (wired to
// a control.Server.Dispatch in practice); sink receives every processed
// update batch, defaulting to metricssink.NoopSink if nil.
func New(dispatch func(*hailstormpb.ControllerCommand), sink metricssink.Sink) *Core {
	if sink == nil {
		sink = metricssink.NoopSink
	}
	return &Core{
		agents:   make(map[uint32]*agentEntry),
		sink:     sink,
		dispatch: dispatch,
	}
}

// HandleUpdates processes one MultiAgentUpdateMessage batch (spec.md
// §4.11): refreshes the live agent set with latest-timestamp-wins,
// forwards the batch to the sink, broadcasts an updated agent count if the
// live set's size changed, and sends a targeted realignment sequence to
// every agent whose reported state no longer matches the controller's
// SimulationState.
func (c *Core) HandleUpdates(updates []*hailstormpb.AgentUpdate) {
	if len(updates) == 0 {
		return
	}
	c.sink.Record(updates)

	c.mu.Lock()
	now := time.Now()
	pre := len(c.agents)

	for _, u := range updates {
		ts := now
		if u.Timestamp != nil {
			ts = u.Timestamp.AsTime()
		}
		entry, ok := c.agents[u.AgentId]
		if !ok {
			c.agents[u.AgentId] = &agentEntry{lastSeen: ts, state: u.State}
			continue
		}
		if ts.After(entry.lastSeen) {
			entry.lastSeen = ts
			entry.state = u.State
		}
	}

	for id, entry := range c.agents {
		if now.Sub(entry.lastSeen) > agentTTL {
			delete(c.agents, id)
		}
	}
	post := len(c.agents)

	var misaligned []uint32
	for id, entry := range c.agents {
		if !isAligned(c.state, entry.state, now) {
			misaligned = append(misaligned, id)
		}
	}

	state := c.state
	dispatch := c.dispatch
	c.mu.Unlock()

	if dispatch == nil {
		return
	}

	if pre != post {
		dispatch(&hailstormpb.ControllerCommand{
			Commands: []*hailstormpb.CommandItem{{Command: &hailstormpb.CommandItem_UpdateAgentsCount{
				UpdateAgentsCount: &hailstormpb.UpdateAgentsCountCmd{Count: int32(post)},
			}}},
		})
	}

	seq := alignmentSequence(state)
	if len(seq) == 0 {
		return
	}
	for _, id := range misaligned {
		dispatch(&hailstormpb.ControllerCommand{
			Commands: seq,
			Target:   &hailstormpb.Target{Target: &hailstormpb.Target_AgentId{AgentId: id}},
		})
	}
}

// LoadSimulation sets the authoritative state to Ready{def}, mints a fresh
// simulation id, and broadcasts the resulting alignment sequence to every
// connected agent.
func (c *Core) LoadSimulation(def SimulationDef) {
	c.mu.Lock()
	c.state = simState{kind: stateReady, def: &def, simulationID: uuid.NewString()}
	state := c.state
	dispatch := c.dispatch
	c.mu.Unlock()

	if dispatch == nil {
		return
	}
	dispatch(&hailstormpb.ControllerCommand{Commands: alignmentSequence(state)})
}

// StartSimulation arms Launched{ts,def} and broadcasts the resulting
// alignment sequence. It is a no-op (logged) if no simulation is loaded,
// matching the original's "ignoring start simulation command" guard.
func (c *Core) StartSimulation(ts time.Time) {
	c.mu.Lock()
	if c.state.kind == stateIdle {
		c.mu.Unlock()
		logrus.Warn("controllercore: ignoring start simulation command, no simulation loaded")
		return
	}
	c.state = simState{kind: stateLaunched, def: c.state.def, startTs: ts, simulationID: c.state.simulationID}
	state := c.state
	dispatch := c.dispatch
	c.mu.Unlock()

	if dispatch == nil {
		return
	}
	dispatch(&hailstormpb.ControllerCommand{Commands: alignmentSequence(state)})
}

// StopSimulation resets the authoritative state to Idle and broadcasts a
// plain stop to every connected agent, discarding whatever simulation was
// loaded or launched.
func (c *Core) StopSimulation() {
	c.mu.Lock()
	c.state = simState{kind: stateIdle}
	dispatch := c.dispatch
	c.mu.Unlock()

	if dispatch == nil {
		return
	}
	dispatch(&hailstormpb.ControllerCommand{Commands: alignmentSequence(simState{kind: stateIdle})})
}

// AgentCount reports the current size of the live (non-TTL-expired) agent
// set, as last computed by HandleUpdates.
func (c *Core) AgentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.agents)
}

// isAligned implements spec.md §3's is_aligned predicate.
func isAligned(ctrl simState, agentState hailstormpb.AgentSimulationState, now time.Time) bool {
	switch ctrl.kind {
	case stateIdle:
		return agentState == hailstormpb.AgentSimulationState_IDLE || agentState == hailstormpb.AgentSimulationState_STOPPING
	case stateReady:
		return agentState == hailstormpb.AgentSimulationState_READY
	case stateLaunched:
		switch agentState {
		case hailstormpb.AgentSimulationState_RUNNING:
			return true
		case hailstormpb.AgentSimulationState_WAITING:
			return ctrl.startTs.After(now)
		default:
			return false
		}
	default:
		return false
	}
}

// alignmentSequence implements spec.md §4.11's command sequence table.
func alignmentSequence(state simState) []*hailstormpb.CommandItem {
	stop := &hailstormpb.CommandItem{Command: &hailstormpb.CommandItem_Stop{Stop: &hailstormpb.StopSimulationCmd{Reset: true}}}
	switch state.kind {
	case stateIdle:
		return []*hailstormpb.CommandItem{stop}
	case stateReady:
		return []*hailstormpb.CommandItem{stop, loadItem(state)}
	case stateLaunched:
		return []*hailstormpb.CommandItem{stop, loadItem(state), launchItem(state)}
	default:
		return nil
	}
}

func loadItem(state simState) *hailstormpb.CommandItem {
	var shapes []*hailstormpb.ModelShape
	var script string
	if state.def != nil {
		shapes = state.def.ModelShapes
		script = state.def.Script
	}
	return &hailstormpb.CommandItem{Command: &hailstormpb.CommandItem_Load{Load: &hailstormpb.LoadSimulationCmd{
		ModelShapes:  shapes,
		Script:       script,
		SimulationId: state.simulationID,
	}}}
}

func launchItem(state simState) *hailstormpb.CommandItem {
	return &hailstormpb.CommandItem{Command: &hailstormpb.CommandItem_Launch{Launch: &hailstormpb.LaunchSimulationCmd{
		StartTs: timestamppb.New(state.startTs),
	}}}
}
