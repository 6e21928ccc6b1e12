package cmd

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/hailstorm-dev/hailstorm/internal/command"
)

func TestRunStop_Success(t *testing.T) {
	client := new(mockClient)
	client.On("StopSimulation", mock.Anything).Return(&command.Response{Result: "ok"}, nil)

	var buf bytes.Buffer
	err := runStop(context.Background(), client, &buf)

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "stopped")
	client.AssertExpectations(t)
}

func TestRunStop_TransportError(t *testing.T) {
	client := new(mockClient)
	client.On("StopSimulation", mock.Anything).Return(nil, errors.New("daemon not running"))

	var buf bytes.Buffer
	err := runStop(context.Background(), client, &buf)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "daemon not running")
	client.AssertExpectations(t)
}
