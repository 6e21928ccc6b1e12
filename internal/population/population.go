// Package population tracks one model's live bots on an agent: spawning and
// stopping them, recycling ids as they churn, and reporting per-state
// counts for the simulation engine's tick loop.
package population

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/hailstorm-dev/hailstorm/internal/botstate"
	hid "github.com/hailstorm-dev/hailstorm/internal/id"
	"github.com/hailstorm-dev/hailstorm/internal/script"
	"github.com/hailstorm-dev/hailstorm/internal/simerr"
)

// LiveBot is one spawned bot's tracked state and script VM. Its VM is
// exposed only via Take/Return, which implement the take-and-return pattern
// used for exclusive access during action execution: Take returns
// simerr.ErrOccupiedBot while another caller already holds it.
type LiveBot struct {
	mu      sync.Mutex
	State   botstate.State
	VM      *script.BotVM
	Updated time.Time
	stop    chan struct{}
}

func newLiveBot(vm *script.BotVM) *LiveBot {
	return &LiveBot{State: botstate.Running, VM: vm, Updated: time.Now(), stop: make(chan struct{})}
}

// Take removes the VM for exclusive use, returning simerr.ErrOccupiedBot if
// it is already taken.
func (b *LiveBot) Take() (*script.BotVM, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.VM == nil {
		return nil, simerr.ErrOccupiedBot
	}
	vm := b.VM
	b.VM = nil
	return vm, nil
}

// Return reinstalls a VM previously removed by Take.
func (b *LiveBot) Return(vm *script.BotVM) {
	b.mu.Lock()
	b.VM = vm
	b.mu.Unlock()
}

// ReconcileState applies a reported state transition if ts is not older
// than the last applied update, returning the detached VM to trigger a hook
// against (the caller must Return it when done) and whether it applied.
func (b *LiveBot) ReconcileState(state botstate.State, ts time.Time) (*script.BotVM, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ts.Before(b.Updated) {
		return nil, false
	}
	b.State = state
	b.Updated = ts
	if b.VM == nil {
		return nil, true
	}
	vm := b.VM
	b.VM = nil
	return vm, true
}

// StopChan signals when Stop has been called on this bot.
func (b *LiveBot) StopChan() <-chan struct{} {
	return b.stop
}

// Stop closes the bot's stop channel exactly once.
func (b *LiveBot) Stop() {
	select {
	case <-b.stop:
	default:
		close(b.stop)
	}
}

// MarkStopping transitions the bot to Stopping and signals its actor loop
// via StopChan, without waiting for the loop to actually exit.
func (b *LiveBot) MarkStopping() {
	b.mu.Lock()
	b.State = botstate.Stopping
	b.Updated = time.Now()
	b.mu.Unlock()
	b.Stop()
}

// StateSnapshot returns the bot's current state under its own lock.
func (b *LiveBot) StateSnapshot() botstate.State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.State
}

// closeVM closes whatever VM is currently installed, if any, and signals
// the actor loop to stop. Safe to call even if the VM is out on loan.
func (b *LiveBot) closeVM() {
	b.mu.Lock()
	vm := b.VM
	b.VM = nil
	b.mu.Unlock()
	if vm != nil {
		vm.Close()
	}
	b.Stop()
}

// Population is one (agent, model) pair's bot table.
type Population struct {
	mu sync.Mutex

	agentID hid.AgentId
	modelID hid.ModelId
	factory *script.Factory
	idGen   sequentialIDGenerator
	bots    map[uint64]*LiveBot
	limiter *rate.Limiter
}

// New returns an empty population for the given model, throttling spawn
// bursts so that a tick never spawns more than maxRatePerTick bots at once
// while still allowing sustained spawning across ticks. A maxRatePerTick of
// 0 (or less) leaves spawning unthrottled.
func New(agentID hid.AgentId, modelID hid.ModelId, factory *script.Factory, maxRatePerTick int, tickPeriod time.Duration) *Population {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if maxRatePerTick > 0 {
		refillPerSecond := float64(maxRatePerTick) / tickPeriod.Seconds()
		limiter = rate.NewLimiter(rate.Limit(refillPerSecond), maxRatePerTick)
	}
	return &Population{
		agentID: agentID,
		modelID: modelID,
		factory: factory,
		bots:    make(map[uint64]*LiveBot),
		limiter: limiter,
	}
}

// SpawnUpTo attempts to spawn n new bots, stopping early if the spawn-rate
// limiter runs dry. Returns the compound ids actually spawned.
func (p *Population) SpawnUpTo(n int) []hid.CompoundId {
	p.mu.Lock()
	defer p.mu.Unlock()

	spawned := make([]hid.CompoundId, 0, n)
	for i := 0; i < n; i++ {
		if !p.limiter.Allow() {
			break
		}
		botID := p.idGen.next()
		compound := hid.CompoundId{AgentId: p.agentID, ModelId: p.modelID, BotId: hid.BotId(botID)}
		vm, err := p.factory.Build(script.Params{
			BotID:      botID,
			InternalID: compound.InternalID(),
			GlobalID:   compound.GlobalID(),
		})
		if err != nil {
			p.idGen.release(botID)
			continue
		}
		p.bots[compound.InternalID()] = newLiveBot(vm)
		spawned = append(spawned, compound)
	}
	return spawned
}

// StopBot transitions a live bot to Stopping. It is not removed until
// RemoveBot (called by the engine when a Stopped report arrives) or Retain
// evicts it.
func (p *Population) StopBot(internalID uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	bot, ok := p.bots[internalID]
	if !ok {
		return simerr.ErrNoSuchBot
	}
	bot.MarkStopping()
	return nil
}

// CountActive returns the number of bots not in the Stopping state.
func (p *Population) CountActive() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	count := 0
	for _, bot := range p.bots {
		if bot.StateSnapshot() != botstate.Stopping {
			count++
		}
	}
	return count
}

// StopSome marks up to n non-Stopping bots as Stopping, returning the
// internal ids it stopped.
func (p *Population) StopSome(n int) []uint64 {
	if n <= 0 {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	stopped := make([]uint64, 0, n)
	for internalID, bot := range p.bots {
		if len(stopped) >= n {
			break
		}
		if bot.StateSnapshot() == botstate.Stopping {
			continue
		}
		bot.MarkStopping()
		stopped = append(stopped, internalID)
	}
	return stopped
}

// StopAll marks every non-Stopping bot as Stopping.
func (p *Population) StopAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, bot := range p.bots {
		if bot.StateSnapshot() != botstate.Stopping {
			bot.MarkStopping()
		}
	}
}

// DrainAll forcibly closes and removes every bot without releasing their
// ids, used when the population itself is about to be discarded (a fresh
// LoadSimulation rebuilds populations from scratch).
func (p *Population) DrainAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for internalID, bot := range p.bots {
		bot.closeVM()
		delete(p.bots, internalID)
	}
}

// ByState groups live bots by their current state.
func (p *Population) ByState() map[botstate.State]int {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make(map[botstate.State]int)
	for _, bot := range p.bots {
		out[bot.StateSnapshot()]++
	}
	return out
}

// ContainsInternalID reports whether id belongs to this population (by
// model) and is currently live.
func (p *Population) ContainsInternalID(internalID uint64) bool {
	modelID, _, err := hid.FromInternalID(internalID)
	if err != nil || modelID != p.modelID {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.bots[internalID]
	return ok
}

// GetBotMut returns the live bot for internalID for in-place mutation.
// Callers must hold no other reference across concurrent population calls.
func (p *Population) GetBotMut(internalID uint64) (*LiveBot, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	bot, ok := p.bots[internalID]
	return bot, ok
}

// RemoveBot deletes a bot and releases its id for reuse, closing its VM if
// still present.
func (p *Population) RemoveBot(internalID uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	bot, ok := p.bots[internalID]
	if !ok {
		return
	}
	bot.closeVM()
	delete(p.bots, internalID)
	_, botID, err := hid.FromInternalID(internalID)
	if err == nil {
		p.idGen.release(uint32(botID))
	}
}

// Retain keeps only the bots for which keep returns true, releasing the ids
// of everything evicted.
func (p *Population) Retain(keep func(internalID uint64, bot *LiveBot) bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for internalID, bot := range p.bots {
		if keep(internalID, bot) {
			continue
		}
		bot.closeVM()
		delete(p.bots, internalID)
		_, botID, err := hid.FromInternalID(internalID)
		if err == nil {
			p.idGen.release(uint32(botID))
		}
	}
}
