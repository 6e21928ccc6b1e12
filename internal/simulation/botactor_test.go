package simulation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	hid "github.com/hailstorm-dev/hailstorm/internal/id"
)

func TestBotActorRunsActionsThenStopsOnSignal(t *testing.T) {
	e := NewEngine(hid.AgentId(0), 0, 100, 100*time.Millisecond, nil)
	loadDemo(t, e, "step(t)*1")

	pop := e.populations["Browser"]
	spawned := pop.SpawnUpTo(1)
	require.Len(t, spawned, 1)
	internalID := spawned[0].InternalID()

	_, ok := pop.GetBotMut(internalID)
	require.True(t, ok)
	e.startBotActor("Browser", pop, spawned[0])

	require.NoError(t, pop.StopBot(internalID))

	require.Eventually(t, func() bool {
		return !pop.ContainsInternalID(internalID)
	}, time.Second, time.Millisecond, "bot should report Stopped and be removed after StopBot")
}

func TestBotActorTakeAndReturnSerializesAccess(t *testing.T) {
	e := NewEngine(hid.AgentId(0), 0, 100, 100*time.Millisecond, nil)
	loadDemo(t, e, "step(t)*1")

	pop := e.populations["Browser"]
	spawned := pop.SpawnUpTo(1)
	require.Len(t, spawned, 1)
	internalID := spawned[0].InternalID()

	bot, ok := pop.GetBotMut(internalID)
	require.True(t, ok)

	vm, err := bot.Take()
	require.NoError(t, err)

	_, err = bot.Take()
	assert.Error(t, err, "a second Take before Return must report the bot as occupied")

	bot.Return(vm)
	_, err = bot.Take()
	assert.NoError(t, err, "Take succeeds again once the VM has been returned")
}
