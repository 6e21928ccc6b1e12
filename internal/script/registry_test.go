package script

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hailstorm-dev/hailstorm/internal/botstate"
)

const demoScript = `
Demo = {}

function Demo.new(params)
  return { id = params.bot_id, ran = 0 }
end

function Demo.register_bot(bot)
  bot:register_action(alive(10), "do_something")
  bot:register_action(alive(0), "never_picked")
  bot:register_action(enter_state("running"), "on_running")
  bot:set_interval_millis(1500)
end

function Demo.do_something(self)
  self.ran = self.ran + 1
end

function Demo.never_picked(self)
  error("should never run")
end

function Demo.on_running(self)
  self.ran = self.ran + 100
end

NotABot = {}
function NotABot.new() return {} end
`

func TestLoadScriptDiscoversOnlyDeclaredBots(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.LoadScript(demoScript))

	assert.True(t, r.HasRegisteredModels())
	assert.ElementsMatch(t, []string{"Demo"}, r.ModelNames())
}

func TestBuildBotRunsRandomActionAndHook(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.LoadScript(demoScript))

	bot, err := r.BuildBot("Demo", Params{BotID: 1, InternalID: 1, GlobalID: 1})
	require.NoError(t, err)
	defer bot.Close()

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 5; i++ {
		require.NoError(t, bot.RunRandomAction(rng))
	}
	require.NoError(t, bot.TriggerHook(botstate.Running))
	assert.Equal(t, int64(1500), bot.Interval())
}

func TestTriggerHookIsNoopWithoutRegisteredHook(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.LoadScript(demoScript))

	bot, err := r.BuildBot("Demo", Params{BotID: 2})
	require.NoError(t, err)
	defer bot.Close()

	require.NoError(t, bot.TriggerHook(botstate.Stopping))
}

func TestBuildBotUnknownModelIsError(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.LoadScript(demoScript))

	_, err := r.BuildBot("Ghost", Params{})
	assert.Error(t, err)
}

func TestFactoryReusesBehaviourAcrossInstances(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.LoadScript(demoScript))

	factory, ok := r.Factory("Demo")
	require.True(t, ok)

	a, err := factory.Build(Params{BotID: 1})
	require.NoError(t, err)
	defer a.Close()
	b, err := factory.Build(Params{BotID: 2})
	require.NoError(t, err)
	defer b.Close()

	assert.Equal(t, a.Interval(), b.Interval())
}
