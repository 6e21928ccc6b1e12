package command

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

type fakeTarget struct {
	statusResult map[string]interface{}
	statusErr    error
	startErr     error
	stopErr      error
	reloadErr    error
	validateErr  error
	started      bool
	stopped      bool
	reloaded     bool
}

func (f *fakeTarget) Status(ctx context.Context) (map[string]interface{}, error) {
	return f.statusResult, f.statusErr
}
func (f *fakeTarget) Start(ctx context.Context) error  { f.started = true; return f.startErr }
func (f *fakeTarget) Stop(ctx context.Context) error   { f.stopped = true; return f.stopErr }
func (f *fakeTarget) Reload(ctx context.Context) error { f.reloaded = true; return f.reloadErr }
func (f *fakeTarget) Validate(ctx context.Context, params json.RawMessage) (map[string]interface{}, error) {
	return map[string]interface{}{"valid": true}, f.validateErr
}

func TestHandleStatusReturnsTargetResult(t *testing.T) {
	target := &fakeTarget{statusResult: map[string]interface{}{"role": "agent"}}
	h := NewCommandHandler(target)

	resp := h.Handle(context.Background(), Command{Method: "status", ID: "1"})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error)
	}
	result := resp.Result.(map[string]interface{})
	if result["role"] != "agent" {
		t.Errorf("result = %+v", result)
	}
}

func TestHandleStartStopReload(t *testing.T) {
	target := &fakeTarget{}
	h := NewCommandHandler(target)

	h.Handle(context.Background(), Command{Method: "start", ID: "1"})
	h.Handle(context.Background(), Command{Method: "stop", ID: "2"})
	h.Handle(context.Background(), Command{Method: "reload", ID: "3"})

	if !target.started || !target.stopped || !target.reloaded {
		t.Errorf("target = %+v, expected all three to fire", target)
	}
}

func TestHandleWrapsTargetErrors(t *testing.T) {
	target := &fakeTarget{startErr: errors.New("boom")}
	h := NewCommandHandler(target)

	resp := h.Handle(context.Background(), Command{Method: "start", ID: "1"})
	if resp.Error == nil {
		t.Fatal("expected error response")
	}
	if resp.Error.Code != ErrCodeInternalError {
		t.Errorf("code = %d, want %d", resp.Error.Code, ErrCodeInternalError)
	}
}

func TestHandleUnknownMethod(t *testing.T) {
	h := NewCommandHandler(&fakeTarget{})

	resp := h.Handle(context.Background(), Command{Method: "bogus", ID: "1"})
	if resp.Error == nil || resp.Error.Code != ErrCodeMethodNotFound {
		t.Fatalf("resp = %+v, want method-not-found error", resp)
	}
}

func TestHandleValidate(t *testing.T) {
	h := NewCommandHandler(&fakeTarget{})

	resp := h.Handle(context.Background(), Command{Method: "validate", ID: "1", Params: json.RawMessage(`{"path":"x.lua"}`)})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error)
	}
}
