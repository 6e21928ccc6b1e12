package script

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/hailstorm-dev/hailstorm/internal/botstate"
)

const triggerTypeName = "hailstorm.trigger"

// installBuiltins exposes the trigger constructors (alive, enter_state) that
// bot scripts pass to register_action.
func installBuiltins(ls *lua.LState) {
	mt := ls.NewTypeMetatable(triggerTypeName)
	ls.SetGlobal("alive", ls.NewFunction(luaAlive))
	ls.SetGlobal("enter_state", ls.NewFunction(luaEnterState))
	ls.SetField(mt, "__tostring", ls.NewFunction(func(l *lua.LState) int {
		l.Push(lua.LString(triggerTypeName))
		return 1
	}))
}

func luaAlive(ls *lua.LState) int {
	weight := float64(ls.CheckNumber(1))
	ud := ls.NewUserData()
	ud.Value = Alive(weight)
	ls.SetMetatable(ud, ls.GetTypeMetatable(triggerTypeName))
	ls.Push(ud)
	return 1
}

func luaEnterState(ls *lua.LState) int {
	state, err := parseStateArg(ls, 1)
	if err != nil {
		ls.RaiseError("%v", err)
		return 0
	}
	ud := ls.NewUserData()
	ud.Value = EnterState(state)
	ls.SetMetatable(ud, ls.GetTypeMetatable(triggerTypeName))
	ls.Push(ud)
	return 1
}

func parseStateArg(ls *lua.LState, idx int) (botstate.State, error) {
	switch v := ls.Get(idx).(type) {
	case lua.LString:
		switch string(v) {
		case "idle":
			return botstate.Idle, nil
		case "initializing":
			return botstate.Initializing, nil
		case "running":
			return botstate.Running, nil
		case "stopping":
			return botstate.Stopping, nil
		case "stopped":
			return botstate.Stopped, nil
		default:
			return botstate.State{}, errUnknownStateName(string(v))
		}
	case lua.LNumber:
		custom := uint32(v)
		if botstate.Overflows(custom) {
			return botstate.State{}, errCustomStateOverflow(custom)
		}
		return botstate.Custom(custom), nil
	default:
		return botstate.State{}, errBadStateArg
	}
}

func newBotHandleTable(ls *lua.LState, behaviour *Behaviour) *lua.LTable {
	tbl := ls.NewTable()
	tbl.RawSetString("register_action", ls.NewFunction(func(l *lua.LState) int {
		ud, ok := l.Get(2).(*lua.LUserData)
		if !ok {
			l.RaiseError("register_action: expected a trigger built by alive()/enter_state()")
			return 0
		}
		trigger, ok := ud.Value.(Trigger)
		if !ok {
			l.RaiseError("register_action: invalid trigger value")
			return 0
		}
		name, ok := l.Get(3).(lua.LString)
		if !ok {
			l.RaiseError("register_action: expected the action's method name as a string")
			return 0
		}
		behaviour.RegisterAction(trigger, string(name))
		return 0
	}))
	tbl.RawSetString("set_interval_millis", ls.NewFunction(func(l *lua.LState) int {
		ms := uint64(l.CheckNumber(2))
		behaviour.SetIntervalMillis(ms)
		return 0
	}))
	return tbl
}
