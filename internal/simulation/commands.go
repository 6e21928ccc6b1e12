package simulation

import "time"

// ModelShape names one model's shape function source text.
type ModelShape struct {
	Model string
	Expr  string
}

// LoadSimulation registers shapes and a script, discarding whatever
// simulation (if any) was previously loaded. SimulationId is minted by the
// controller per spec.md §9 and echoed back on every AgentUpdate emitted
// while this simulation stays loaded.
type LoadSimulation struct {
	ModelShapes  []ModelShape
	Script       string
	SimulationId string
}

// LaunchSimulation arms the tick loop to start reconciling populations once
// wall-clock time reaches StartTs.
type LaunchSimulation struct {
	StartTs time.Time
}

// UpdateAgentsCount changes the divisor used to split a model's global
// target population across agents.
type UpdateAgentsCount struct {
	Count int
}

// StopSimulation halts reconciliation. Reset additionally drops every
// registered shape and the loaded script.
type StopSimulation struct {
	Reset bool
}

// Command is one item of an ordered command batch; exactly one field should
// be non-nil, mirroring the oneof the wire protocol carries.
type Command struct {
	Load              *LoadSimulation
	Launch            *LaunchSimulation
	UpdateAgentsCount *UpdateAgentsCount
	Stop              *StopSimulation
}
