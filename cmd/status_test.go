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

func TestRunStatus_Success(t *testing.T) {
	client := new(mockClient)
	resp := &command.Response{Result: map[string]interface{}{"role": "agent", "state": "Idle"}}
	client.On("Status", mock.Anything).Return(resp, nil)

	var buf bytes.Buffer
	err := runStatus(context.Background(), client, &buf)

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "\"role\": \"agent\"")
	client.AssertExpectations(t)
}

func TestRunStatus_TransportError(t *testing.T) {
	client := new(mockClient)
	client.On("Status", mock.Anything).Return(nil, errors.New("dial unix: connection refused"))

	var buf bytes.Buffer
	err := runStatus(context.Background(), client, &buf)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	client.AssertExpectations(t)
}

func TestRequireSocketClient_MissingSocket(t *testing.T) {
	original := socketPath
	socketPath = ""
	defer func() { socketPath = original }()

	_, err := requireSocketClient()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "--socket")
}
