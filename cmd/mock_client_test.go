package cmd

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/hailstorm-dev/hailstorm/internal/command"
)

// mockClient implements ClientInterface for unit-testing the operator
// subcommands without dialing a real socket.
type mockClient struct {
	mock.Mock
}

func (m *mockClient) Status(ctx context.Context) (*command.Response, error) {
	args := m.Called(ctx)
	return responseOrNil(args.Get(0)), args.Error(1)
}

func (m *mockClient) StartSimulation(ctx context.Context) (*command.Response, error) {
	args := m.Called(ctx)
	return responseOrNil(args.Get(0)), args.Error(1)
}

func (m *mockClient) StopSimulation(ctx context.Context) (*command.Response, error) {
	args := m.Called(ctx)
	return responseOrNil(args.Get(0)), args.Error(1)
}

func (m *mockClient) Reload(ctx context.Context) (*command.Response, error) {
	args := m.Called(ctx)
	return responseOrNil(args.Get(0)), args.Error(1)
}

func (m *mockClient) Validate(ctx context.Context, params interface{}) (*command.Response, error) {
	args := m.Called(ctx, params)
	return responseOrNil(args.Get(0)), args.Error(1)
}

func (m *mockClient) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func responseOrNil(v interface{}) *command.Response {
	if v == nil {
		return nil
	}
	return v.(*command.Response)
}
