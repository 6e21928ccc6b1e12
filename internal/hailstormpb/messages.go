// Package hailstormpb holds the wire types for the agent-to-controller
// control plane described by api/hailstorm.proto. It is written by hand in
// the shape protoc-gen-go/protoc-gen-go-grpc would produce, but serializes
// over the jsonCodec registered in codec.go rather than real protobuf binary
// (see that file's doc comment for why).
package hailstormpb

import (
	"fmt"

	"google.golang.org/protobuf/types/known/timestamppb"
)

// AgentSimulationState mirrors the AgentState a controller derives from an
// agent's reported simulation stats.
type AgentSimulationState int32

const (
	AgentSimulationState_IDLE AgentSimulationState = iota
	AgentSimulationState_READY
	AgentSimulationState_WAITING
	AgentSimulationState_RUNNING
	AgentSimulationState_STOPPING
)

func (s AgentSimulationState) String() string {
	switch s {
	case AgentSimulationState_IDLE:
		return "IDLE"
	case AgentSimulationState_READY:
		return "READY"
	case AgentSimulationState_WAITING:
		return "WAITING"
	case AgentSimulationState_RUNNING:
		return "RUNNING"
	case AgentSimulationState_STOPPING:
		return "STOPPING"
	default:
		return fmt.Sprintf("AgentSimulationState(%d)", int32(s))
	}
}

type AgentMessage struct {
	Updates []*AgentUpdate `json:"updates,omitempty"`
}

type AgentUpdate struct {
	AgentId      uint32                `json:"agent_id"`
	UpdateId     uint64                `json:"update_id"`
	Timestamp    *timestamppb.Timestamp `json:"timestamp,omitempty"`
	State        AgentSimulationState  `json:"state"`
	Stats        []*ModelStats         `json:"stats,omitempty"`
	Name         string                `json:"name,omitempty"`
	SimulationId string                `json:"simulation_id,omitempty"`
}

type ModelStats struct {
	Model       string                 `json:"model"`
	States      []*ModelStateSnapshot  `json:"states,omitempty"`
	Performance []*PerformanceSnapshot `json:"performance,omitempty"`
}

type ModelStateSnapshot struct {
	Timestamp *timestamppb.Timestamp `json:"timestamp,omitempty"`
	States    []*StateCount          `json:"states,omitempty"`
}

type StateCount struct {
	StateId uint32 `json:"state_id"`
	Count   uint64 `json:"count"`
}

type PerformanceSnapshot struct {
	Timestamp  *timestamppb.Timestamp `json:"timestamp,omitempty"`
	Action     string                 `json:"action"`
	Histograms []*OutcomeHistogram    `json:"histograms,omitempty"`
}

// OutcomeHistogram counts one status's action durations in 20 power-of-two
// buckets: bucket i holds durations in (2^(i-1), 2^i] centiseconds, and
// bucket 19 also takes everything longer. Sum is the total duration in
// centiseconds.
type OutcomeHistogram struct {
	Status  int64     `json:"status"`
	Buckets [20]uint64 `json:"buckets"`
	Sum     uint64    `json:"sum"`
}

type ControllerCommand struct {
	Commands []*CommandItem `json:"commands,omitempty"`
	Target   *Target        `json:"target,omitempty"`
}

type ModelShape struct {
	Model string `json:"model"`
	Expr  string `json:"expr"`
}

type LoadSimulationCmd struct {
	ModelShapes  []*ModelShape `json:"model_shapes,omitempty"`
	Script       string        `json:"script"`
	SimulationId string        `json:"simulation_id"`
}

type LaunchSimulationCmd struct {
	StartTs *timestamppb.Timestamp `json:"start_ts,omitempty"`
}

type StopSimulationCmd struct {
	Reset bool `json:"reset"`
}

type UpdateAgentsCountCmd struct {
	Count int32 `json:"count"`
}

// AgentGroup enumerates the built-in agent selector groups a controller
// command's Target can address. The distillation defines only ALL; future
// groups (by tag, by role) are an open question left to the controller's
// scheduling policy, not the wire format.
type AgentGroup int32

const AgentGroup_ALL AgentGroup = 0

type MultiAgent struct {
	AgentIds []uint32 `json:"agent_ids,omitempty"`
}
