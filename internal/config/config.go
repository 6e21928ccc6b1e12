// Package config loads agent.yaml and controller.yaml using viper.
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/hailstorm-dev/hailstorm/internal/log"
)

// AgentConfig is the root of agent.yaml.
type AgentConfig struct {
	AgentID    uint32           `mapstructure:"agent_id"` // 0 = random
	Log        log.LoggerConfig `mapstructure:"log"`
	Simulation SimulationLimits `mapstructure:"simulation"`
	Address    string           `mapstructure:"address"`
	Upstream   UpstreamConfig   `mapstructure:"upstream"`
	Socket     string           `mapstructure:"socket"` // local control UDS path
}

// SimulationLimits caps per-agent bot population and spawn rate. 0 means
// unlimited, matching spec.md §4.2's LoadSimulation semantics.
type SimulationLimits struct {
	RunningMax int `mapstructure:"running_max"`
	RateMax    int `mapstructure:"rate_max"`
}

// UpstreamConfig names the parent this agent joins as a downstream client.
// Empty Parent means this agent has no parent and dials nothing upstream.
type UpstreamConfig struct {
	Parent string `mapstructure:"parent"`
}

// ControllerConfig is the root of controller.yaml.
type ControllerConfig struct {
	Log                 log.LoggerConfig  `mapstructure:"log"`
	Address             string            `mapstructure:"address"`
	ClientsDistribution map[string]string `mapstructure:"clients_distribution"`
	ScriptPath          string            `mapstructure:"script_path"`
	MetricsSink         MetricsSinkConfig `mapstructure:"metrics_sink"`
	Socket              string            `mapstructure:"socket"`
	BotStorage          BotStorageConfig  `mapstructure:"bot_storage"`
}

// MetricsSinkConfig selects the controller's metricssink.Sink implementation.
type MetricsSinkConfig struct {
	Type string `mapstructure:"type"` // "console" or "noop"
}

// BotStorageConfig names a directory of CSV bot-storage seed files
// (spec.md §6). It is loaded from controller.yaml, but neither daemon reads
// it: no bot storage is pre-seeded from this directory.
type BotStorageConfig struct {
	CSVDir string `mapstructure:"csv_dir"`
}

// LoadAgent reads and validates agent.yaml at path.
func LoadAgent(path string) (*AgentConfig, error) {
	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v.SetDefault("log.level", "info")
	v.SetDefault("log.appenders", []map[string]any{{"type": "console"}})
	v.SetDefault("address", "0.0.0.0:7100")
	v.SetDefault("socket", "/var/run/hailstorm-agent.sock")

	var cfg AgentConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadController reads and validates controller.yaml at path.
func LoadController(path string) (*ControllerConfig, error) {
	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v.SetDefault("log.level", "info")
	v.SetDefault("log.appenders", []map[string]any{{"type": "console"}})
	v.SetDefault("address", "0.0.0.0:7100")
	v.SetDefault("socket", "/var/run/hailstorm-controller.sock")
	v.SetDefault("metrics_sink.type", "console")

	var cfg ControllerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("HAILSTORM")
	v.AutomaticEnv()
	return v
}

func (cfg *AgentConfig) validate() error {
	if err := validateLevel(cfg.Log.Level); err != nil {
		return err
	}
	if cfg.Simulation.RunningMax < 0 {
		return fmt.Errorf("simulation.running_max must be >= 0")
	}
	if cfg.Simulation.RateMax < 0 {
		return fmt.Errorf("simulation.rate_max must be >= 0")
	}
	return nil
}

func (cfg *ControllerConfig) validate() error {
	if err := validateLevel(cfg.Log.Level); err != nil {
		return err
	}
	if cfg.MetricsSink.Type != "" && cfg.MetricsSink.Type != "console" && cfg.MetricsSink.Type != "noop" {
		return fmt.Errorf("metrics_sink.type must be 'console' or 'noop', got %q", cfg.MetricsSink.Type)
	}
	return nil
}

func validateLevel(level string) error {
	switch level {
	case "", "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("invalid log level: %s (must be debug/info/warn/error)", level)
	}
}
