package script

import (
	"fmt"

	"github.com/hailstorm-dev/hailstorm/internal/simerr"
)

var errBadStateArg = fmt.Errorf("%w: enter_state expects a state name or a custom numeric id", simerr.ErrScriptCompile)

func errUnknownStateName(name string) error {
	return fmt.Errorf("%w: unknown state name %q", simerr.ErrScriptCompile, name)
}

func errCustomStateOverflow(id uint32) error {
	return fmt.Errorf("%w: custom state id %d overflows the wire encoding", simerr.ErrScriptCompile, id)
}
