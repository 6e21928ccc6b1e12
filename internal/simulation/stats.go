package simulation

import (
	"time"

	"github.com/hailstorm-dev/hailstorm/internal/botstate"
)

// AgentState is the agent-level simulation state derived from whether any
// models are loaded and where start_ts sits relative to now.
type AgentState int

const (
	StateIdle AgentState = iota
	StateReady
	StateWaiting
	StateRunning
	StateStopping
)

func (s AgentState) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateReady:
		return "Ready"
	case StateWaiting:
		return "Waiting"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	default:
		return "Unknown"
	}
}

// ModelSnapshot is one model's live bot counts at a point in time.
type ModelSnapshot struct {
	Model        string
	Timestamp    time.Time
	CountByState map[botstate.State]int
}

// Stats is the engine's answer to FetchSimulationStats.
type Stats struct {
	AgentState   AgentState
	SimulationId string
	Models       []ModelSnapshot
}
