package controllercore

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/hailstorm-dev/hailstorm/internal/hailstormpb"
)

type recordingDispatcher struct {
	mu   sync.Mutex
	cmds []*hailstormpb.ControllerCommand
}

func (r *recordingDispatcher) dispatch(cmd *hailstormpb.ControllerCommand) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cmds = append(r.cmds, cmd)
}

func (r *recordingDispatcher) commands() []*hailstormpb.ControllerCommand {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*hailstormpb.ControllerCommand, len(r.cmds))
	copy(out, r.cmds)
	return out
}

func TestLoadSimulationBroadcastsStopThenLoad(t *testing.T) {
	d := &recordingDispatcher{}
	c := New(d.dispatch, nil)

	c.LoadSimulation(SimulationDef{ModelShapes: []*hailstormpb.ModelShape{{Model: "walker", Expr: "1"}}})

	cmds := d.commands()
	require.Len(t, cmds, 1)
	require.Len(t, cmds[0].Commands, 2)
	assert.NotNil(t, cmds[0].Commands[0].GetStop())
	assert.True(t, cmds[0].Commands[0].GetStop().Reset)
	require.NotNil(t, cmds[0].Commands[1].GetLoad())
	assert.NotEmpty(t, cmds[0].Commands[1].GetLoad().SimulationId)
}

func TestStartSimulationIgnoredWhenIdle(t *testing.T) {
	d := &recordingDispatcher{}
	c := New(d.dispatch, nil)

	c.StartSimulation(time.Now())

	assert.Empty(t, d.commands())
}

func TestStartSimulationBroadcastsFullSequenceAfterLoad(t *testing.T) {
	d := &recordingDispatcher{}
	c := New(d.dispatch, nil)

	c.LoadSimulation(SimulationDef{Script: "function on_load() end"})
	ts := time.Now().Add(time.Minute)
	c.StartSimulation(ts)

	cmds := d.commands()
	require.Len(t, cmds, 2)
	require.Len(t, cmds[1].Commands, 3)
	assert.NotNil(t, cmds[1].Commands[0].GetStop())
	assert.NotNil(t, cmds[1].Commands[1].GetLoad())
	require.NotNil(t, cmds[1].Commands[2].GetLaunch())
	assert.WithinDuration(t, ts, cmds[1].Commands[2].GetLaunch().StartTs.AsTime(), time.Second)
}

func TestHandleUpdatesBroadcastsAgentCountOnSizeChange(t *testing.T) {
	d := &recordingDispatcher{}
	c := New(d.dispatch, nil)

	c.HandleUpdates([]*hailstormpb.AgentUpdate{
		{AgentId: 1, Timestamp: timestamppb.Now(), State: hailstormpb.AgentSimulationState_IDLE},
	})

	cmds := d.commands()
	require.Len(t, cmds, 1)
	require.Len(t, cmds[0].Commands, 1)
	require.NotNil(t, cmds[0].Commands[0].GetUpdateAgentsCount())
	assert.Equal(t, int32(1), cmds[0].Commands[0].GetUpdateAgentsCount().Count)
	assert.Equal(t, 1, c.AgentCount())
}

func TestHandleUpdatesRealignsMisalignedAgent(t *testing.T) {
	d := &recordingDispatcher{}
	c := New(d.dispatch, nil)
	c.LoadSimulation(SimulationDef{Script: "function on_load() end"})
	d.mu.Lock()
	d.cmds = nil
	d.mu.Unlock()

	c.HandleUpdates([]*hailstormpb.AgentUpdate{
		{AgentId: 7, Timestamp: timestamppb.Now(), State: hailstormpb.AgentSimulationState_IDLE},
	})

	cmds := d.commands()
	var sawTargeted bool
	for _, cmd := range cmds {
		if target := cmd.Target.GetAgentId(); target == 7 {
			sawTargeted = true
			require.Len(t, cmd.Commands, 2)
		}
	}
	assert.True(t, sawTargeted, "expected a realignment command targeted at agent 7")
}

func TestHandleUpdatesSkipsRealignmentWhenAligned(t *testing.T) {
	d := &recordingDispatcher{}
	c := New(d.dispatch, nil)

	c.HandleUpdates([]*hailstormpb.AgentUpdate{
		{AgentId: 3, Timestamp: timestamppb.Now(), State: hailstormpb.AgentSimulationState_IDLE},
	})
	d.mu.Lock()
	d.cmds = nil
	d.mu.Unlock()

	c.HandleUpdates([]*hailstormpb.AgentUpdate{
		{AgentId: 3, Timestamp: timestamppb.Now(), State: hailstormpb.AgentSimulationState_IDLE},
	})

	assert.Empty(t, d.commands())
}

func TestIsAlignedLaunchedAllowsWaitingOnlyBeforeStartTs(t *testing.T) {
	future := simState{kind: stateLaunched, startTs: time.Now().Add(time.Minute)}
	past := simState{kind: stateLaunched, startTs: time.Now().Add(-time.Minute)}
	now := time.Now()

	assert.True(t, isAligned(future, hailstormpb.AgentSimulationState_WAITING, now))
	assert.False(t, isAligned(past, hailstormpb.AgentSimulationState_WAITING, now))
	assert.True(t, isAligned(past, hailstormpb.AgentSimulationState_RUNNING, now))
}
