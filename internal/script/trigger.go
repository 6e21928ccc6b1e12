package script

import "github.com/hailstorm-dev/hailstorm/internal/botstate"

// Trigger describes when a registered action fires: either as one of the
// weighted choices driving a bot's idle loop, or as a hook run once when the
// bot enters a given state.
type Trigger struct {
	alive bool
	weight float64
	state  botstate.State
}

// Alive builds a weighted-random action trigger. Negative weights clamp to
// zero, matching the source's treatment of a mistakenly negative weight as
// "never picked" rather than an error.
func Alive(weight float64) Trigger {
	if weight < 0 {
		weight = 0
	}
	return Trigger{alive: true, weight: weight}
}

// EnterState builds a hook trigger for a lifecycle state.
func EnterState(state botstate.State) Trigger {
	return Trigger{alive: false, state: state}
}
