package hailstormpb

import (
	"encoding/json"
	"fmt"
)

// isCommandItem_Command mirrors the oneof interface protoc-gen-go emits for
// CommandItem.command; exactly one of the four implementations is set.
type isCommandItem_Command interface {
	isCommandItem_Command()
}

type CommandItem_Load struct {
	Load *LoadSimulationCmd `json:"load"`
}

type CommandItem_Launch struct {
	Launch *LaunchSimulationCmd `json:"launch"`
}

type CommandItem_Stop struct {
	Stop *StopSimulationCmd `json:"stop"`
}

type CommandItem_UpdateAgentsCount struct {
	UpdateAgentsCount *UpdateAgentsCountCmd `json:"update_agents_count"`
}

func (*CommandItem_Load) isCommandItem_Command()              {}
func (*CommandItem_Launch) isCommandItem_Command()             {}
func (*CommandItem_Stop) isCommandItem_Command()               {}
func (*CommandItem_UpdateAgentsCount) isCommandItem_Command()  {}

type CommandItem struct {
	Command isCommandItem_Command
}

func (c *CommandItem) GetLoad() *LoadSimulationCmd {
	if v, ok := c.Command.(*CommandItem_Load); ok {
		return v.Load
	}
	return nil
}

func (c *CommandItem) GetLaunch() *LaunchSimulationCmd {
	if v, ok := c.Command.(*CommandItem_Launch); ok {
		return v.Launch
	}
	return nil
}

func (c *CommandItem) GetStop() *StopSimulationCmd {
	if v, ok := c.Command.(*CommandItem_Stop); ok {
		return v.Stop
	}
	return nil
}

func (c *CommandItem) GetUpdateAgentsCount() *UpdateAgentsCountCmd {
	if v, ok := c.Command.(*CommandItem_UpdateAgentsCount); ok {
		return v.UpdateAgentsCount
	}
	return nil
}

func (c *CommandItem) MarshalJSON() ([]byte, error) {
	if c == nil || c.Command == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(c.Command)
}

func (c *CommandItem) UnmarshalJSON(data []byte) error {
	var wire struct {
		Load              *LoadSimulationCmd    `json:"load"`
		Launch            *LaunchSimulationCmd  `json:"launch"`
		Stop              *StopSimulationCmd    `json:"stop"`
		UpdateAgentsCount *UpdateAgentsCountCmd `json:"update_agents_count"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	switch {
	case wire.Load != nil:
		c.Command = &CommandItem_Load{Load: wire.Load}
	case wire.Launch != nil:
		c.Command = &CommandItem_Launch{Launch: wire.Launch}
	case wire.Stop != nil:
		c.Command = &CommandItem_Stop{Stop: wire.Stop}
	case wire.UpdateAgentsCount != nil:
		c.Command = &CommandItem_UpdateAgentsCount{UpdateAgentsCount: wire.UpdateAgentsCount}
	default:
		return fmt.Errorf("hailstormpb: command_item has no recognized oneof field set")
	}
	return nil
}

// isTarget_Target mirrors the oneof interface for Target.target.
type isTarget_Target interface {
	isTarget_Target()
}

type Target_Group struct {
	Group AgentGroup `json:"group"`
}

type Target_AgentId struct {
	AgentId uint32 `json:"agent_id"`
}

type Target_Agents struct {
	Agents *MultiAgent `json:"agents"`
}

func (*Target_Group) isTarget_Target()   {}
func (*Target_AgentId) isTarget_Target() {}
func (*Target_Agents) isTarget_Target()  {}

type Target struct {
	Target isTarget_Target
}

func (t *Target) GetGroup() (AgentGroup, bool) {
	if v, ok := t.Target.(*Target_Group); ok {
		return v.Group, true
	}
	return 0, false
}

func (t *Target) GetAgentId() (uint32, bool) {
	if v, ok := t.Target.(*Target_AgentId); ok {
		return v.AgentId, true
	}
	return 0, false
}

func (t *Target) GetAgents() *MultiAgent {
	if v, ok := t.Target.(*Target_Agents); ok {
		return v.Agents
	}
	return nil
}

func (t *Target) MarshalJSON() ([]byte, error) {
	if t == nil || t.Target == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(t.Target)
}

func (t *Target) UnmarshalJSON(data []byte) error {
	var wire struct {
		Group   *AgentGroup `json:"group"`
		AgentId *uint32     `json:"agent_id"`
		Agents  *MultiAgent `json:"agents"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	switch {
	case wire.Agents != nil:
		t.Target = &Target_Agents{Agents: wire.Agents}
	case wire.AgentId != nil:
		t.Target = &Target_AgentId{AgentId: *wire.AgentId}
	case wire.Group != nil:
		t.Target = &Target_Group{Group: *wire.Group}
	default:
		return fmt.Errorf("hailstormpb: target has no recognized oneof field set")
	}
	return nil
}
