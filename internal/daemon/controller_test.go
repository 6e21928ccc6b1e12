package daemon

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hailstorm-dev/hailstorm/internal/config"
)

const testScript = `
function register_bot(model, behaviour)
  behaviour:on_alive(1.0, "idle")
end

function idle(bot)
end
`

func writeTestScript(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "script.lua")
	if err := os.WriteFile(path, []byte(testScript), 0644); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func testControllerConfig(t *testing.T) *config.ControllerConfig {
	return &config.ControllerConfig{
		Address:     "127.0.0.1:0",
		ScriptPath:  writeTestScript(t),
		MetricsSink: config.MetricsSinkConfig{Type: "noop"},
		ClientsDistribution: map[string]string{
			"browser": "10",
		},
	}
}

func TestControllerLaunchAndShutdown(t *testing.T) {
	controller, err := NewController(testControllerConfig(t))
	if err != nil {
		t.Fatalf("NewController failed: %v", err)
	}
	if err := controller.Launch(); err != nil {
		t.Fatalf("Launch failed: %v", err)
	}

	status, err := controller.Status(context.Background())
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if status["role"] != "controller" {
		t.Errorf("status = %+v", status)
	}

	if err := controller.Shutdown(); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
}

func TestControllerRejectsUnknownSink(t *testing.T) {
	cfg := testControllerConfig(t)
	cfg.MetricsSink.Type = "kafka"
	if _, err := NewController(cfg); err == nil {
		t.Fatal("expected error for unsupported metrics_sink.type")
	}
}

func TestControllerStartRequiresScriptPath(t *testing.T) {
	cfg := testControllerConfig(t)
	cfg.ScriptPath = ""
	controller, err := NewController(cfg)
	if err != nil {
		t.Fatalf("NewController failed: %v", err)
	}
	if err := controller.Start(context.Background()); err == nil {
		t.Fatal("expected error starting without script_path")
	}
}

func TestControllerStartStop(t *testing.T) {
	controller, err := NewController(testControllerConfig(t))
	if err != nil {
		t.Fatalf("NewController failed: %v", err)
	}
	if err := controller.Launch(); err != nil {
		t.Fatalf("Launch failed: %v", err)
	}
	defer controller.Shutdown()

	if err := controller.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := controller.Stop(context.Background()); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
}

func TestControllerValidateUsesConfiguredScriptByDefault(t *testing.T) {
	controller, err := NewController(testControllerConfig(t))
	if err != nil {
		t.Fatalf("NewController failed: %v", err)
	}
	result, err := controller.Validate(context.Background(), nil)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if result["valid"] != true {
		t.Errorf("result = %+v", result)
	}
}
