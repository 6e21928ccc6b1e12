// Package simerr collects the sentinel errors shared across the simulation
// engine and control plane, so callers can branch on error identity with
// errors.Is instead of string matching.
package simerr

import "errors"

var (
	// ErrOccupiedBot is returned when an operation targets a bot whose VM is
	// currently taken out for action execution.
	ErrOccupiedBot = errors.New("simerr: bot is occupied")

	// ErrNoSuchBot is returned when a (model, bot) id does not resolve to a
	// live bot in the population.
	ErrNoSuchBot = errors.New("simerr: no such bot")

	// ErrNoSuchModel is returned when a model name or id is not registered.
	ErrNoSuchModel = errors.New("simerr: no such model")

	// ErrBadShape is returned when a shape function fails to parse or
	// evaluate.
	ErrBadShape = errors.New("simerr: invalid shape function")

	// ErrScriptCompile is returned when a bot script fails to compile.
	ErrScriptCompile = errors.New("simerr: script compile failed")

	// ErrScriptRuntime is returned when a compiled script raises an error
	// while running a hook or action.
	ErrScriptRuntime = errors.New("simerr: script runtime error")

	// ErrStorageNotFound is returned when a shared storage key is absent.
	ErrStorageNotFound = errors.New("simerr: storage key not found")

	// ErrTimerNotFound is returned when a timer stop is requested for a
	// handle that was never started or was already stopped.
	ErrTimerNotFound = errors.New("simerr: timer not found")

	// ErrUnknownTarget is returned when a controller command names a target
	// group that isn't recognized; callers should drop rather than error.
	ErrUnknownTarget = errors.New("simerr: unknown command target")

	// ErrSimulationNotLoaded is returned when a Launch/Stop/UpdateAgentsCount
	// command arrives before any Load has installed a definition.
	ErrSimulationNotLoaded = errors.New("simerr: simulation not loaded")
)
