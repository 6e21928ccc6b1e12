package script

import (
	"fmt"
	"math/rand"

	lua "github.com/yuin/gopher-lua"

	"github.com/hailstorm-dev/hailstorm/internal/botstate"
	"github.com/hailstorm-dev/hailstorm/internal/botstorage"
	"github.com/hailstorm-dev/hailstorm/internal/simerr"
)

// BotVM is one live bot's script instance: its own Lua state (running the
// same compiled script as every other bot of its model, but with
// independent globals), the model table and the constructed self value.
//
// BotVM is not safe for concurrent use; callers are expected to hold it
// exclusively while an action or hook runs and reinstall it on completion
// (the take-and-return pattern used throughout the simulation engine).
type BotVM struct {
	ls         *lua.LState
	model      string
	modelTable *lua.LTable
	self       lua.LValue
	behaviour  *Behaviour
}

func newBotVM(proto *lua.FunctionProto, model string, behaviour *Behaviour, storage *botstorage.Store, params Params) (*BotVM, error) {
	ls := lua.NewState()
	installBuiltins(ls)
	installStorage(ls, storage, params.BotID)
	if err := runProto(ls, proto); err != nil {
		ls.Close()
		return nil, fmt.Errorf("%w: running script for %q: %v", simerr.ErrScriptRuntime, model, err)
	}

	modelTable, ok := ls.GetGlobal(model).(*lua.LTable)
	if !ok {
		ls.Close()
		return nil, fmt.Errorf("%w: model %q has no table", simerr.ErrNoSuchModel, model)
	}
	newFn, ok := modelTable.RawGetString("new").(*lua.LFunction)
	if !ok {
		ls.Close()
		return nil, fmt.Errorf("%w: model %q has no new constructor", simerr.ErrScriptCompile, model)
	}

	paramsTbl := ls.NewTable()
	paramsTbl.RawSetString("bot_id", lua.LNumber(params.BotID))
	paramsTbl.RawSetString("internal_id", lua.LNumber(params.InternalID))
	paramsTbl.RawSetString("global_id", lua.LNumber(params.GlobalID))

	if err := ls.CallByParam(lua.P{Fn: newFn, NRet: 1, Protect: true}, paramsTbl); err != nil {
		ls.Close()
		return nil, fmt.Errorf("%w: instantiating %q: %v", simerr.ErrScriptRuntime, model, err)
	}
	self := ls.Get(-1)
	ls.Pop(1)

	return &BotVM{ls: ls, model: model, modelTable: modelTable, self: self, behaviour: behaviour}, nil
}

// Interval returns this model's configured idle-action interval.
func (b *BotVM) Interval() (ms int64) {
	return b.behaviour.Interval().Milliseconds()
}

// RunRandomAction picks a weighted action and invokes it with self as the
// sole argument.
func (b *BotVM) RunRandomAction(rng *rand.Rand) error {
	name, ok := b.behaviour.RandomAction(rng)
	if !ok {
		return nil
	}
	return b.call(name)
}

// TriggerHook invokes the hook registered for state, if any; no-op otherwise.
func (b *BotVM) TriggerHook(state botstate.State) error {
	name, ok := b.behaviour.HookAction(state)
	if !ok {
		return nil
	}
	return b.call(name)
}

// InvokeMethod calls an arbitrary declared method on the bot's model table
// with self as the sole argument, for handler dispatch outside the normal
// action/hook cycle.
func (b *BotVM) InvokeMethod(method string) error {
	return b.call(method)
}

func (b *BotVM) call(method string) error {
	fn, ok := b.modelTable.RawGetString(method).(*lua.LFunction)
	if !ok {
		return fmt.Errorf("%w: model %q has no method %q", simerr.ErrScriptRuntime, b.model, method)
	}
	if err := b.ls.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, b.self); err != nil {
		return fmt.Errorf("%w: %q.%s: %v", simerr.ErrScriptRuntime, b.model, method, err)
	}
	return nil
}

// Close releases the bot's Lua state. Once closed the VM must not be used.
func (b *BotVM) Close() {
	b.ls.Close()
}
