package script

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/hailstorm-dev/hailstorm/internal/botstorage"
)

// Factory builds repeated bot instances of one model without re-resolving
// the registry lookup each time. Safe for concurrent use; each Build gets
// its own *lua.LState.
type Factory struct {
	model     string
	behaviour *Behaviour
	proto     *lua.FunctionProto
	source    string
	storage   *botstorage.Store
}

// Model returns the factory's model name.
func (f *Factory) Model() string {
	return f.model
}

// Build instantiates a fresh VM for this model.
func (f *Factory) Build(params Params) (*BotVM, error) {
	return newBotVM(f.proto, f.model, f.behaviour, f.storage, params)
}
