package simulation

import (
	"math/rand"
	"time"

	channerics "github.com/niceyeti/channerics/channels"
	"github.com/sirupsen/logrus"

	"github.com/hailstorm-dev/hailstorm/internal/botstate"
	hid "github.com/hailstorm-dev/hailstorm/internal/id"
	"github.com/hailstorm-dev/hailstorm/internal/population"
)

const defaultActionInterval = 5 * time.Second

// startBotActor launches the goroutine that drives one bot's action loop:
// a random initial delay within [0, interval) followed by a fixed-interval
// ticker, until StopBot closes the bot's stop channel.
func (e *Engine) startBotActor(model string, pop *population.Population, compound hid.CompoundId) {
	internalID := compound.InternalID()
	bot, ok := pop.GetBotMut(internalID)
	if !ok {
		return
	}
	go e.runBotActor(model, internalID, bot)
}

func (e *Engine) runBotActor(model string, internalID uint64, bot *population.LiveBot) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() ^ int64(internalID)))
	interval := e.botInterval(bot)
	initialDelay := time.Duration(rng.Int63n(int64(interval)))

	initial := time.NewTimer(initialDelay)
	select {
	case <-bot.StopChan():
		initial.Stop()
		e.finishBotActor(model, internalID, bot)
		return
	case <-initial.C:
	}

	ticks := channerics.NewTicker(bot.StopChan(), interval)
	for {
		_, ok := <-ticks
		if !ok {
			e.finishBotActor(model, internalID, bot)
			return
		}
		e.runBotAction(model, bot, rng)
	}
}

func (e *Engine) botInterval(bot *population.LiveBot) time.Duration {
	vm, err := bot.Take()
	if err != nil {
		return defaultActionInterval
	}
	interval := time.Duration(vm.Interval()) * time.Millisecond
	bot.Return(vm)
	if interval <= 0 {
		return defaultActionInterval
	}
	return interval
}

func (e *Engine) runBotAction(model string, bot *population.LiveBot, rng *rand.Rand) {
	vm, err := bot.Take()
	if err != nil {
		// Occupied: a hook or handler call is already running against this
		// bot's VM this tick. Skip the action rather than block.
		return
	}
	defer bot.Return(vm)
	if err := vm.RunRandomAction(rng); err != nil {
		logrus.WithField("model", model).WithError(err).Warn("bot action failed")
	}
}

func (e *Engine) finishBotActor(model string, internalID uint64, bot *population.LiveBot) {
	if vm, err := bot.Take(); err == nil {
		if err := vm.TriggerHook(botstate.Stopping); err != nil {
			logrus.WithField("model", model).WithError(err).Warn("bot stopping hook failed")
		}
		bot.Return(vm)
	}
	e.ReportBotState(model, internalID, botstate.Stopped, time.Now())
}
