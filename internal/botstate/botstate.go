// Package botstate defines the bot lifecycle state machine shared by the
// scripting host, the per-model population table and the wire encoding of
// state counts.
package botstate

import "fmt"

// State is a bot's lifecycle state. The zero value is Idle.
type State struct {
	kind   kind
	custom uint32
}

type kind uint8

const (
	kindIdle kind = iota
	kindInitializing
	kindRunning
	kindStopping
	kindStopped
	kindCustom
)

var (
	Idle         = State{kind: kindIdle}
	Initializing = State{kind: kindInitializing}
	Running      = State{kind: kindRunning}
	Stopping     = State{kind: kindStopping}
	Stopped      = State{kind: kindStopped}
)

// Custom builds a script-defined substate. Values are wire-encoded as
// 100+id; callers should check Overflows(id) before registering a hook for
// it, since a sufficiently large id wraps the wire encoding past uint32.
func Custom(id uint32) State {
	return State{kind: kindCustom, custom: id}
}

// IsCustom reports whether s is a script-defined substate, returning its id.
func (s State) IsCustom() (uint32, bool) {
	if s.kind != kindCustom {
		return 0, false
	}
	return s.custom, true
}

// WireID encodes s per the reserved [0,99] range plus Custom(id) at 100+id.
func (s State) WireID() uint32 {
	switch s.kind {
	case kindIdle:
		return 0
	case kindInitializing:
		return 1
	case kindRunning:
		return 2
	case kindStopping:
		return 3
	case kindStopped:
		return 4
	case kindCustom:
		return 100 + s.custom
	default:
		return 0
	}
}

func (s State) String() string {
	switch s.kind {
	case kindIdle:
		return "Idle"
	case kindInitializing:
		return "Initializing"
	case kindRunning:
		return "Running"
	case kindStopping:
		return "Stopping"
	case kindStopped:
		return "Stopped"
	case kindCustom:
		return fmt.Sprintf("Custom(%d)", s.custom)
	default:
		return "Unknown"
	}
}

// ReservedMax is the highest wire id reserved for built-in states.
const ReservedMax = 99

// Overflows reports whether 100+customID would wrap past uint32, the one way
// a Custom state's wire id can collide with a value outside what the sender
// intended. The source left this unguarded; registration rejects it instead.
func Overflows(customID uint32) bool {
	return customID > ^uint32(0)-100
}
