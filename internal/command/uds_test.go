package command

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestServer(t *testing.T, target Target) string {
	t.Helper()
	socketPath := filepath.Join(t.TempDir(), "hailstorm.sock")
	handler := NewCommandHandler(target)
	server := NewUDSServer(socketPath, handler)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		server.Start(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		<-done
		os.Remove(socketPath)
	})

	waitForSocket(t, socketPath)
	return socketPath
}

func waitForSocket(t *testing.T, path string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(path); err == nil {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("socket %s never appeared", path)
}

func TestUDSServerClient_Integration(t *testing.T) {
	target := &fakeTarget{statusResult: map[string]interface{}{"role": "controller", "running": true}}
	socketPath := newTestServer(t, target)

	client := NewUDSClient(socketPath, time.Second)
	ctx := context.Background()

	resp, err := client.Status(ctx)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if resp.Error != nil {
		t.Fatalf("Status returned error: %+v", resp.Error)
	}

	resp, err = client.StartSimulation(ctx)
	if err != nil {
		t.Fatalf("StartSimulation failed: %v", err)
	}
	if resp.Error != nil {
		t.Fatalf("StartSimulation returned error: %+v", resp.Error)
	}
	if !target.started {
		t.Error("expected target.Start to be called")
	}

	resp, err = client.StopSimulation(ctx)
	if err != nil {
		t.Fatalf("StopSimulation failed: %v", err)
	}
	if resp.Error != nil {
		t.Fatalf("StopSimulation returned error: %+v", resp.Error)
	}
	if !target.stopped {
		t.Error("expected target.Stop to be called")
	}

	resp, err = client.Reload(ctx)
	if err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if resp.Error != nil {
		t.Fatalf("Reload returned error: %+v", resp.Error)
	}
	if !target.reloaded {
		t.Error("expected target.Reload to be called")
	}

	resp, err = client.Validate(ctx, map[string]string{"path": "./script.lua"})
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if resp.Error != nil {
		t.Fatalf("Validate returned error: %+v", resp.Error)
	}
}

func TestUDSClient_ConnectionError(t *testing.T) {
	client := NewUDSClient(filepath.Join(t.TempDir(), "does-not-exist.sock"), 500*time.Millisecond)
	if err := client.Ping(context.Background()); err == nil {
		t.Fatal("expected connection error for nonexistent socket")
	}
}

func TestUDSClient_Timeout(t *testing.T) {
	client := NewUDSClient(filepath.Join(t.TempDir(), "does-not-exist.sock"), time.Millisecond)
	start := time.Now()
	if err := client.Ping(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if time.Since(start) > 2*time.Second {
		t.Error("Call took too long to fail")
	}
}

func TestUDSServer_MultipleConnections(t *testing.T) {
	target := &fakeTarget{statusResult: map[string]interface{}{"role": "agent"}}
	socketPath := newTestServer(t, target)

	for i := 0; i < 5; i++ {
		client := NewUDSClient(socketPath, time.Second)
		if _, err := client.Status(context.Background()); err != nil {
			t.Fatalf("connection %d failed: %v", i, err)
		}
	}
}

func TestUDSClient_ConvenienceMethods(t *testing.T) {
	target := &fakeTarget{}
	socketPath := newTestServer(t, target)
	client := NewUDSClient(socketPath, time.Second)
	ctx := context.Background()

	if _, err := client.Status(ctx); err != nil {
		t.Errorf("Status: %v", err)
	}
	if _, err := client.StartSimulation(ctx); err != nil {
		t.Errorf("StartSimulation: %v", err)
	}
	if _, err := client.StopSimulation(ctx); err != nil {
		t.Errorf("StopSimulation: %v", err)
	}
	if _, err := client.Reload(ctx); err != nil {
		t.Errorf("Reload: %v", err)
	}
	if _, err := client.Validate(ctx, json.RawMessage(`{}`)); err != nil {
		t.Errorf("Validate: %v", err)
	}
	if err := client.Ping(ctx); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestNewUDSClient_DefaultTimeout(t *testing.T) {
	client := NewUDSClient("/tmp/whatever.sock", 0)
	if client.timeout != 10*time.Second {
		t.Errorf("timeout = %v, want 10s default", client.timeout)
	}
}
