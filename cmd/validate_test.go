package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/hailstorm-dev/hailstorm/internal/command"
)

func TestRunValidate_Success(t *testing.T) {
	client := new(mockClient)
	resp := &command.Response{Result: map[string]interface{}{"valid": true, "models": []interface{}{"browser"}}}
	client.On("Validate", mock.Anything, mock.Anything).Return(resp, nil)

	var buf bytes.Buffer
	err := runValidate(context.Background(), client, "script.lua", &buf)

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "VALID")
	client.AssertExpectations(t)
}

func TestRunValidate_Invalid(t *testing.T) {
	client := new(mockClient)
	resp := &command.Response{Error: &command.ErrorInfo{Message: "script invalid: unexpected symbol"}}
	client.On("Validate", mock.Anything, mock.Anything).Return(resp, nil)

	var buf bytes.Buffer
	err := runValidate(context.Background(), client, "", &buf)

	assert.Error(t, err)
	assert.Contains(t, buf.String(), "INVALID")
	client.AssertExpectations(t)
}
