// Package simulation is the per-agent tick-loop engine: it owns one
// population per bot model, evaluates each model's shape function against
// elapsed simulation time, and reconciles live bot counts toward the
// target by spawning or stopping bots.
package simulation

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hailstorm-dev/hailstorm/internal/botstate"
	"github.com/hailstorm-dev/hailstorm/internal/botstorage"
	hid "github.com/hailstorm-dev/hailstorm/internal/id"
	"github.com/hailstorm-dev/hailstorm/internal/population"
	"github.com/hailstorm-dev/hailstorm/internal/script"
	"github.com/hailstorm-dev/hailstorm/internal/shapeeval"
	"github.com/hailstorm-dev/hailstorm/internal/simerr"
)

// Engine is one agent's simulation actor: per-model populations and shape
// functions, and the clock-driven reconciliation loop that keeps the two in
// sync. All exported methods are safe for concurrent use.
type Engine struct {
	mu sync.Mutex

	agentID        hid.AgentId
	agentsCount    int
	maxRunning     int
	maxRatePerTick int
	tickPeriod     time.Duration

	registry    *script.Registry
	shapes      map[string]shapeeval.Shape
	modelIDs    map[string]hid.ModelId
	populations map[string]*population.Population

	startTs      *time.Time
	stopping     bool
	simulationID string
}

// NewEngine returns an idle engine for agentID. maxRunning caps each
// model's local target population (0 = unlimited); maxRatePerTick caps how
// many bots a single tick may spawn per model. storage may be nil, in which
// case bot scripts see no `storage` global.
func NewEngine(agentID hid.AgentId, maxRunning, maxRatePerTick int, tickPeriod time.Duration, storage *botstorage.Store) *Engine {
	return &Engine{
		agentID:        agentID,
		agentsCount:    1,
		maxRunning:     maxRunning,
		maxRatePerTick: maxRatePerTick,
		tickPeriod:     tickPeriod,
		registry:       script.NewRegistry(storage),
		shapes:         make(map[string]shapeeval.Shape),
		modelIDs:       make(map[string]hid.ModelId),
		populations:    make(map[string]*population.Population),
	}
}

// ApplyCommands applies a batch in order, matching spec.md's requirement
// that a controller can send Stop/UpdateAgentsCount/Load/Launch atomically.
func (e *Engine) ApplyCommands(items []Command) {
	for _, item := range items {
		switch {
		case item.Load != nil:
			e.applyLoad(item.Load)
		case item.Launch != nil:
			e.applyLaunch(item.Launch)
		case item.UpdateAgentsCount != nil:
			e.applyUpdateAgentsCount(item.UpdateAgentsCount)
		case item.Stop != nil:
			e.applyStop(item.Stop)
		}
	}
}

func (e *Engine) applyLoad(cmd *LoadSimulation) {
	shapes := make(map[string]shapeeval.Shape, len(cmd.ModelShapes))
	for _, ms := range cmd.ModelShapes {
		shape, err := shapeeval.Compile(ms.Expr)
		if err != nil {
			logrus.WithField("model", ms.Model).WithError(err).Warn("load simulation: skipping shape")
			continue
		}
		shapes[ms.Model] = shape
	}

	if err := e.registry.LoadScript(cmd.Script); err != nil {
		logrus.WithError(err).Warn("load simulation: script compile failed, keeping previous script")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for _, pop := range e.populations {
		pop.DrainAll()
	}

	names := e.registry.ModelNames()
	sort.Strings(names)
	populations := make(map[string]*population.Population, len(names))
	modelIDs := make(map[string]hid.ModelId, len(names))
	for i, name := range names {
		factory, ok := e.registry.Factory(name)
		if !ok {
			continue
		}
		modelID := hid.ModelId(i)
		modelIDs[name] = modelID
		populations[name] = population.New(e.agentID, modelID, factory, e.maxRatePerTick, e.tickPeriod)
	}

	e.shapes = shapes
	e.modelIDs = modelIDs
	e.populations = populations
	e.startTs = nil
	e.stopping = false
	e.simulationID = cmd.SimulationId
}

func (e *Engine) applyLaunch(cmd *LaunchSimulation) {
	e.mu.Lock()
	defer e.mu.Unlock()
	startTs := cmd.StartTs
	e.startTs = &startTs
}

func (e *Engine) applyUpdateAgentsCount(cmd *UpdateAgentsCount) {
	e.mu.Lock()
	defer e.mu.Unlock()
	count := cmd.Count
	if count <= 0 {
		logrus.WithField("requested", cmd.Count).Warn("update agents count: coercing non-positive count to 1")
		count = 1
	}
	e.agentsCount = count
}

func (e *Engine) applyStop(cmd *StopSimulation) {
	e.mu.Lock()
	e.startTs = nil
	if !cmd.Reset {
		e.stopping = true
		pops := collectPopulations(e.populations)
		e.mu.Unlock()
		for _, pop := range pops {
			pop.StopAll()
		}
		return
	}
	pops := collectPopulations(e.populations)
	e.shapes = make(map[string]shapeeval.Shape)
	e.modelIDs = make(map[string]hid.ModelId)
	e.populations = make(map[string]*population.Population)
	e.stopping = false
	e.simulationID = ""
	e.mu.Unlock()

	for _, pop := range pops {
		pop.DrainAll()
	}
	e.registry.ResetScript()
}

// Tick evaluates every model's shape at now and reconciles its population
// toward the resulting target, per spec.md §4.6.
func (e *Engine) Tick(now time.Time) {
	e.mu.Lock()
	startTs := e.startTs
	if startTs == nil || startTs.After(now) {
		pops := collectPopulations(e.populations)
		e.mu.Unlock()
		for _, pop := range pops {
			pop.StopAll()
		}
		return
	}

	type work struct {
		model string
		pop   *population.Population
		shape shapeeval.Shape
	}
	items := make([]work, 0, len(e.shapes))
	for model, shape := range e.shapes {
		pop, ok := e.populations[model]
		if !ok {
			continue
		}
		items = append(items, work{model: model, pop: pop, shape: shape})
	}
	agentsCount := e.agentsCount
	if agentsCount <= 0 {
		agentsCount = 1
	}
	agentID := uint32(e.agentID)
	maxRunning := e.maxRunning
	e.mu.Unlock()

	elapsed := now.Sub(*startTs).Seconds()
	shift := float64(agentID%uint32(agentsCount)) / float64(agentsCount)

	for _, it := range items {
		targetGlobal := it.shape(elapsed)
		targetLocal := int(math.Floor(targetGlobal/float64(agentsCount) + shift))
		if targetLocal < 0 {
			targetLocal = 0
		}
		if maxRunning > 0 && targetLocal > maxRunning {
			targetLocal = maxRunning
		}

		active := it.pop.CountActive()
		switch {
		case targetLocal < active:
			it.pop.StopSome(active - targetLocal)
		case targetLocal > active:
			spawned := it.pop.SpawnUpTo(targetLocal - active)
			for _, compound := range spawned {
				e.startBotActor(it.model, it.pop, compound)
			}
		}
	}
}

// FetchSimulationStats derives the agent's simulation state and snapshots
// every model's live bot counts by state.
func (e *Engine) FetchSimulationStats(now time.Time) Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	models := make([]ModelSnapshot, 0, len(e.populations))
	liveBots := 0
	for name, pop := range e.populations {
		byState := pop.ByState()
		for _, n := range byState {
			liveBots += n
		}
		models = append(models, ModelSnapshot{Model: name, Timestamp: now, CountByState: byState})
	}
	sort.Slice(models, func(i, j int) bool { return models[i].Model < models[j].Model })

	if e.stopping && liveBots == 0 {
		e.stopping = false
	}

	state := StateIdle
	switch {
	case e.stopping:
		state = StateStopping
	case len(e.populations) == 0:
		state = StateIdle
	case e.startTs == nil:
		state = StateReady
	case e.startTs.After(now):
		state = StateWaiting
	default:
		state = StateRunning
	}

	return Stats{AgentState: state, SimulationId: e.simulationID, Models: models}
}

// InvokeHandler routes a handler call to the unique bot with internalID,
// taking exclusive use of its VM for the duration of the call.
func (e *Engine) InvokeHandler(internalID uint64, method string) error {
	e.mu.Lock()
	pops := collectPopulations(e.populations)
	e.mu.Unlock()

	for _, pop := range pops {
		if !pop.ContainsInternalID(internalID) {
			continue
		}
		bot, ok := pop.GetBotMut(internalID)
		if !ok {
			return fmt.Errorf("%w: internal id %d", simerr.ErrNoSuchBot, internalID)
		}
		vm, err := bot.Take()
		if err != nil {
			return err
		}
		err = vm.InvokeMethod(method)
		bot.Return(vm)
		return err
	}
	return fmt.Errorf("%w: internal id %d", simerr.ErrNoSuchBot, internalID)
}

// ReportBotState applies a bot's self-reported state transition: Stopped
// removes it from its population, any other state triggers that state's
// hook (if registered) and updates the recorded state. Stale reports
// (older than the last applied one) are dropped.
func (e *Engine) ReportBotState(model string, internalID uint64, state botstate.State, ts time.Time) {
	e.mu.Lock()
	pop, ok := e.populations[model]
	e.mu.Unlock()
	if !ok {
		return
	}

	if state == botstate.Stopped {
		pop.RemoveBot(internalID)
		return
	}

	bot, ok := pop.GetBotMut(internalID)
	if !ok {
		return
	}
	vm, applied := bot.ReconcileState(state, ts)
	if !applied || vm == nil {
		return
	}
	if err := vm.TriggerHook(state); err != nil {
		logrus.WithFields(logrus.Fields{"model": model, "state": state.String()}).WithError(err).Warn("bot state hook failed")
	}
	bot.Return(vm)
}

func collectPopulations(m map[string]*population.Population) []*population.Population {
	out := make([]*population.Population, 0, len(m))
	for _, pop := range m {
		out = append(out, pop)
	}
	return out
}
