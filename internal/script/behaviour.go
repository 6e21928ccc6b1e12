package script

import (
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hailstorm-dev/hailstorm/internal/botstate"
)

const defaultIntervalMillis = 5000

type weightedAction struct {
	weight float64
	name   string
}

// Behaviour is a bot model's weighted action table and state hooks, built by
// running its script's register_bot function once at load time and reused
// by every bot instance of that model.
type Behaviour struct {
	totalWeight float64
	interval    time.Duration
	actions     []weightedAction
	hooks       map[uint32]string
}

func newBehaviour() *Behaviour {
	return &Behaviour{
		interval: defaultIntervalMillis * time.Millisecond,
		hooks:    make(map[uint32]string),
	}
}

// RegisterAction installs an action under the given trigger. An Alive
// trigger adds a weighted entry to the random-action table; an EnterState
// trigger installs (or overwrites, with a warning) a hook.
func (b *Behaviour) RegisterAction(trigger Trigger, fnName string) {
	if trigger.alive {
		b.totalWeight += trigger.weight
		b.actions = append(b.actions, weightedAction{weight: trigger.weight, name: fnName})
		return
	}
	wireID := trigger.state.WireID()
	if prev, ok := b.hooks[wireID]; ok {
		logrus.WithFields(logrus.Fields{"state": trigger.state.String(), "previous": prev, "new": fnName}).
			Warn("overriding existing state hook")
	}
	b.hooks[wireID] = fnName
}

// SetIntervalMillis overrides the default idle-action interval.
func (b *Behaviour) SetIntervalMillis(ms uint64) {
	b.interval = time.Duration(ms) * time.Millisecond
}

// Interval returns the configured idle-action interval.
func (b *Behaviour) Interval() time.Duration {
	return b.interval
}

// RandomAction picks a weighted action name. Returns false if no action was
// ever registered.
func (b *Behaviour) RandomAction(rng *rand.Rand) (string, bool) {
	if len(b.actions) == 0 || b.totalWeight <= 0 {
		return "", false
	}
	r := rng.Float64() * b.totalWeight
	for _, act := range b.actions {
		r -= act.weight
		if r <= 0 {
			return act.name, true
		}
	}
	return b.actions[len(b.actions)-1].name, true
}

// HookAction returns the function registered for state, if any.
func (b *Behaviour) HookAction(state botstate.State) (string, bool) {
	name, ok := b.hooks[state.WireID()]
	return name, ok
}
