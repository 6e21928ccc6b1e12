package script

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/hailstorm-dev/hailstorm/internal/botstorage"
)

// installStorage exposes storage.get_bot_storage(name), returning a handle
// scoped to this VM's own bot id with read(key)/write(key, value) methods
// over the shared process-wide store.
func installStorage(ls *lua.LState, store *botstorage.Store, botID uint32) {
	if store == nil {
		return
	}
	storageTbl := ls.NewTable()
	storageTbl.RawSetString("get_bot_storage", ls.NewFunction(func(l *lua.LState) int {
		name := l.CheckString(1)
		l.Push(newBotStorageHandle(l, store, name, botID))
		return 1
	}))
	ls.SetGlobal("storage", storageTbl)
}

func newBotStorageHandle(ls *lua.LState, store *botstorage.Store, name string, botID uint32) *lua.LTable {
	handle := ls.NewTable()
	handle.RawSetString("read", ls.NewFunction(func(l *lua.LState) int {
		key := l.CheckString(2)
		value, ok := store.Get(name, botID, key)
		if !ok {
			l.Push(lua.LNil)
			return 1
		}
		l.Push(lua.LString(value))
		return 1
	}))
	handle.RawSetString("write", ls.NewFunction(func(l *lua.LState) int {
		key := l.CheckString(2)
		value := l.CheckString(3)
		store.Set(name, botID, key, value)
		return 0
	}))
	return handle
}
