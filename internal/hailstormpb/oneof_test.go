package hailstormpb

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandItemRoundTripsThroughJSON(t *testing.T) {
	item := &CommandItem{Command: &CommandItem_Stop{Stop: &StopSimulationCmd{Reset: true}}}

	data, err := json.Marshal(item)
	require.NoError(t, err)

	var got CommandItem
	require.NoError(t, json.Unmarshal(data, &got))

	stop := got.GetStop()
	require.NotNil(t, stop)
	assert.True(t, stop.Reset)
	assert.Nil(t, got.GetLoad())
}

func TestTargetRoundTripsThroughJSON(t *testing.T) {
	target := &Target{Target: &Target_Agents{Agents: &MultiAgent{AgentIds: []uint32{1, 2, 3}}}}

	data, err := json.Marshal(target)
	require.NoError(t, err)

	var got Target
	require.NoError(t, json.Unmarshal(data, &got))

	agents := got.GetAgents()
	require.NotNil(t, agents)
	assert.Equal(t, []uint32{1, 2, 3}, agents.AgentIds)

	_, ok := got.GetAgentId()
	assert.False(t, ok)
}

func TestTargetUnmarshalRejectsEmptyOneof(t *testing.T) {
	var got Target
	err := json.Unmarshal([]byte(`{}`), &got)
	assert.Error(t, err)
}

func TestJSONCodecMarshalsAgentMessage(t *testing.T) {
	codec := jsonCodec{}
	msg := &AgentMessage{Updates: []*AgentUpdate{{AgentId: 7, UpdateId: 42, Name: "agent-7"}}}

	data, err := codec.Marshal(msg)
	require.NoError(t, err)

	var got AgentMessage
	require.NoError(t, codec.Unmarshal(data, &got))
	require.Len(t, got.Updates, 1)
	assert.EqualValues(t, 7, got.Updates[0].AgentId)
	assert.Equal(t, "agent-7", got.Updates[0].Name)
}
