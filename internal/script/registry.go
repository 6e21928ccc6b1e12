// Package script hosts the embedded Lua scripting layer bot scripts run in:
// compiling a script once, discovering the bot models it declares, and
// building per-bot VM instances that drive the weighted action loop.
package script

import (
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"

	"github.com/hailstorm-dev/hailstorm/internal/botstorage"
	"github.com/hailstorm-dev/hailstorm/internal/simerr"
)

// Registry compiles a bot script once and caches the behaviour of every
// model it declares. A model is any global table exposing both a `new`
// constructor and a `register_bot` method.
type Registry struct {
	mu         sync.RWMutex
	proto      *lua.FunctionProto
	source     string
	behaviours map[string]*Behaviour
	storage    *botstorage.Store
}

// NewRegistry returns an empty registry with no script loaded. storage may
// be nil, in which case bot scripts see no `storage` global.
func NewRegistry(storage *botstorage.Store) *Registry {
	return &Registry{behaviours: make(map[string]*Behaviour), storage: storage}
}

// LoadScript compiles source and replaces the currently registered models.
// A compile failure leaves the previous script (if any) untouched.
func (r *Registry) LoadScript(source string) error {
	proto, err := compile(source)
	if err != nil {
		return fmt.Errorf("%w: %v", simerr.ErrScriptCompile, err)
	}

	ls := lua.NewState()
	defer ls.Close()
	installBuiltins(ls)

	if err := runProto(ls, proto); err != nil {
		return fmt.Errorf("%w: running script top level: %v", simerr.ErrScriptRuntime, err)
	}

	behaviours := make(map[string]*Behaviour)
	globals := ls.Get(lua.GlobalsIndex).(*lua.LTable)
	globals.ForEach(func(key, val lua.LValue) {
		name, ok := key.(lua.LString)
		if !ok {
			return
		}
		tbl, ok := val.(*lua.LTable)
		if !ok {
			return
		}
		_, hasNew := tbl.RawGetString("new").(*lua.LFunction)
		registerFn, hasRegister := tbl.RawGetString("register_bot").(*lua.LFunction)
		if !hasNew || !hasRegister {
			return
		}
		behaviour, err := buildBehaviour(ls, registerFn)
		if err != nil {
			logCompileWarning(string(name), err)
			return
		}
		behaviours[string(name)] = behaviour
	})

	r.mu.Lock()
	defer r.mu.Unlock()
	r.proto = proto
	r.source = source
	r.behaviours = behaviours
	return nil
}

// ResetScript clears the loaded script and every discovered model.
func (r *Registry) ResetScript() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.proto = nil
	r.source = ""
	r.behaviours = make(map[string]*Behaviour)
}

// HasRegisteredModels reports whether any model survived the last LoadScript.
func (r *Registry) HasRegisteredModels() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.behaviours) > 0
}

// ModelNames returns the names of every registered bot model.
func (r *Registry) ModelNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.behaviours))
	for name := range r.behaviours {
		out = append(out, name)
	}
	return out
}

// Factory returns a reusable handle for repeatedly building bots of model,
// or false if the model isn't registered.
func (r *Registry) Factory(model string) (*Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	behaviour, ok := r.behaviours[model]
	if !ok {
		return nil, false
	}
	return &Factory{model: model, behaviour: behaviour, proto: r.proto, source: r.source, storage: r.storage}, true
}

// BuildBot instantiates a new bot VM for model. Equivalent to resolving a
// Factory and calling Build once.
func (r *Registry) BuildBot(model string, params Params) (*BotVM, error) {
	factory, ok := r.Factory(model)
	if !ok {
		return nil, fmt.Errorf("%w: model %q", simerr.ErrNoSuchModel, model)
	}
	return factory.Build(params)
}

func compile(source string) (*lua.FunctionProto, error) {
	chunk, err := parse.Parse(strings.NewReader(source), "<script>")
	if err != nil {
		return nil, err
	}
	return lua.Compile(chunk, "<script>")
}

func runProto(ls *lua.LState, proto *lua.FunctionProto) error {
	fn := ls.NewFunctionFromProto(proto)
	ls.Push(fn)
	return ls.PCall(0, lua.MultRet, nil)
}

func buildBehaviour(ls *lua.LState, registerFn *lua.LFunction) (*Behaviour, error) {
	behaviour := newBehaviour()
	botHandle := newBotHandleTable(ls, behaviour)
	err := ls.CallByParam(lua.P{Fn: registerFn, NRet: 0, Protect: true}, botHandle)
	if err != nil {
		return nil, err
	}
	return behaviour, nil
}

func logCompileWarning(model string, err error) {
	// Errors registering one model don't abort the others; the original
	// registry logs and skips, so do we.
	logrus.WithField("model", model).WithError(err).Warn("skipping model: register_bot failed")
}
