package log

// LoggerConfig is the `log:` block of agent.yaml/controller.yaml.
type LoggerConfig struct {
	Level     string           `mapstructure:"level"`
	Pattern   string           `mapstructure:"pattern"`
	Time      string           `mapstructure:"time"`
	Appenders []AppenderConfig `mapstructure:"appenders"`
	Formatter *FormatterConfig `mapstructure:"formatter,omitempty"`
}

// AppenderConfig configures one log output. Type is "console" or "file";
// the file fields are ignored for a console appender.
type AppenderConfig struct {
	Type       string `mapstructure:"type"`
	Path       string `mapstructure:"path,omitempty"`
	MaxSizeMB  int    `mapstructure:"max_size_mb,omitempty"`
	MaxAgeDays int    `mapstructure:"max_age_days,omitempty"`
	MaxBackups int    `mapstructure:"max_backups,omitempty"`
	Compress   bool   `mapstructure:"compress,omitempty"`
}

type FormatterConfig struct {
	EnableColors   bool `mapstructure:"enable_colors,omitempty"`
	FullTimestamp  bool `mapstructure:"full_timestamp,omitempty"`
	DisableSorting bool `mapstructure:"disable_sorting,omitempty"`
}
