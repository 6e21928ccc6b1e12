package cmd

import (
	"context"

	"github.com/hailstorm-dev/hailstorm/internal/command"
)

// ClientInterface is the subset of *command.UDSClient the operator
// subcommands depend on, narrowed to an interface so tests can substitute a
// mock instead of dialing a real socket.
type ClientInterface interface {
	Status(ctx context.Context) (*command.Response, error)
	StartSimulation(ctx context.Context) (*command.Response, error)
	StopSimulation(ctx context.Context) (*command.Response, error)
	Reload(ctx context.Context) (*command.Response, error)
	Validate(ctx context.Context, params interface{}) (*command.Response, error)
	Ping(ctx context.Context) error
}

var _ ClientInterface = (*command.UDSClient)(nil)
