package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTmpConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "config.yml")
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatalf("write tmp config: %v", err)
	}
	return p
}

func TestLoadAgentAppliesDefaults(t *testing.T) {
	cfg, err := LoadAgent(writeTmpConfig(t, `
agent_id: 7
`))
	if err != nil {
		t.Fatalf("LoadAgent failed: %v", err)
	}
	if cfg.AgentID != 7 {
		t.Errorf("AgentID = %d, want 7", cfg.AgentID)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
	if len(cfg.Log.Appenders) != 1 || cfg.Log.Appenders[0].Type != "console" {
		t.Errorf("Log.Appenders default = %+v, want one console appender", cfg.Log.Appenders)
	}
	if cfg.Address != "0.0.0.0:7100" {
		t.Errorf("Address = %q, want default", cfg.Address)
	}
}

func TestLoadAgentFullConfig(t *testing.T) {
	cfg, err := LoadAgent(writeTmpConfig(t, `
agent_id: 0
log:
  level: debug
  appenders:
    - type: console
    - type: file
      path: /var/log/hailstorm/agent.log
simulation:
  running_max: 1000
  rate_max: 50
address: "0.0.0.0:7200"
upstream:
  parent: "dns:///controller.internal:7100"
`))
	if err != nil {
		t.Fatalf("LoadAgent failed: %v", err)
	}
	if cfg.Simulation.RunningMax != 1000 || cfg.Simulation.RateMax != 50 {
		t.Errorf("Simulation = %+v, want {1000 50}", cfg.Simulation)
	}
	if cfg.Upstream.Parent != "dns:///controller.internal:7100" {
		t.Errorf("Upstream.Parent = %q", cfg.Upstream.Parent)
	}
	if len(cfg.Log.Appenders) != 2 || cfg.Log.Appenders[1].Path != "/var/log/hailstorm/agent.log" {
		t.Errorf("Log.Appenders = %+v", cfg.Log.Appenders)
	}
}

func TestLoadAgentRejectsInvalidLogLevel(t *testing.T) {
	_, err := LoadAgent(writeTmpConfig(t, `
log:
  level: verbose
`))
	if err == nil {
		t.Fatal("expected error for invalid log level")
	}
}

func TestLoadAgentRejectsNegativeLimits(t *testing.T) {
	_, err := LoadAgent(writeTmpConfig(t, `
simulation:
  running_max: -1
`))
	if err == nil {
		t.Fatal("expected error for negative running_max")
	}
}

func TestLoadControllerAppliesDefaults(t *testing.T) {
	cfg, err := LoadController(writeTmpConfig(t, `
script_path: "./scripts/browser.lua"
`))
	if err != nil {
		t.Fatalf("LoadController failed: %v", err)
	}
	if cfg.MetricsSink.Type != "console" {
		t.Errorf("MetricsSink.Type = %q, want console", cfg.MetricsSink.Type)
	}
	if cfg.ScriptPath != "./scripts/browser.lua" {
		t.Errorf("ScriptPath = %q", cfg.ScriptPath)
	}
}

func TestLoadControllerFullConfig(t *testing.T) {
	cfg, err := LoadController(writeTmpConfig(t, `
log: {level: info}
address: "0.0.0.0:7100"
clients_distribution:
  browser: "rect(t-5)*100"
script_path: "./scripts/browser.lua"
metrics_sink: {type: noop}
bot_storage:
  csv_dir: "./seed"
`))
	if err != nil {
		t.Fatalf("LoadController failed: %v", err)
	}
	if cfg.ClientsDistribution["browser"] != "rect(t-5)*100" {
		t.Errorf("ClientsDistribution = %+v", cfg.ClientsDistribution)
	}
	if cfg.MetricsSink.Type != "noop" {
		t.Errorf("MetricsSink.Type = %q, want noop", cfg.MetricsSink.Type)
	}
	if cfg.BotStorage.CSVDir != "./seed" {
		t.Errorf("BotStorage.CSVDir = %q", cfg.BotStorage.CSVDir)
	}
}

func TestLoadControllerRejectsUnknownSinkType(t *testing.T) {
	_, err := LoadController(writeTmpConfig(t, `
metrics_sink: {type: kafka}
`))
	if err == nil {
		t.Fatal("expected error for unknown metrics_sink.type")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := LoadAgent(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
