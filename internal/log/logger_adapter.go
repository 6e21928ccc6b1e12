package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

type logrusAdapter struct {
	entry *logrus.Entry
}

var (
	initMu      sync.Mutex
	fileClosers []io.Closer
)

// Init builds the process-wide logger from a LoggerConfig, fanning out to
// every configured appender. Call once at daemon startup; a second call
// replaces the logger and closes the previous file appenders.
func Init(cfg LoggerConfig) error {
	initMu.Lock()
	defer initMu.Unlock()

	adapter, err := newLogrusAdapter(cfg)
	if err != nil {
		return err
	}

	closePrev := fileClosers
	fileClosers = adapter.closers
	logger = adapter
	for _, c := range closePrev {
		c.Close()
	}
	return nil
}

// Flush closes any file appenders so buffered writes reach disk.
func Flush() {
	initMu.Lock()
	defer initMu.Unlock()
	for _, c := range fileClosers {
		c.Close()
	}
	fileClosers = nil
}

type namedAdapter struct {
	*logrusAdapter
	closers []io.Closer
}

func newLogrusAdapter(cfg LoggerConfig) (*namedAdapter, error) {
	level, err := logrus.ParseLevel(levelOrDefault(cfg.Level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	writer := NewMultiWriter()
	var closers []io.Closer

	appenders := cfg.Appenders
	if len(appenders) == 0 {
		appenders = []AppenderConfig{{Type: "console"}}
	}
	for i, a := range appenders {
		switch strings.ToLower(a.Type) {
		case "console", "stdout", "":
			writer.Add(os.Stdout)
		case "file":
			if a.Path == "" {
				return nil, fmt.Errorf("appenders[%d]: file appender requires 'path'", i)
			}
			f := writer.AddFileAppender(FileAppenderOpt{
				Filename:   a.Path,
				MaxSize:    a.MaxSizeMB,
				MaxAge:     a.MaxAgeDays,
				MaxBackups: a.MaxBackups,
				Compress:   a.Compress,
			})
			closers = append(closers, f)
		default:
			return nil, fmt.Errorf("appenders[%d]: unsupported type %q", i, a.Type)
		}
	}

	l := logrus.New()
	l.SetOutput(writer)
	l.SetLevel(level)
	if cfg.Pattern != "" {
		l.SetFormatter(&formatter{pattern: cfg.Pattern, time: timeOrDefault(cfg.Time)})
	} else {
		tf := &logrus.TextFormatter{}
		if cfg.Formatter != nil {
			tf.ForceColors = cfg.Formatter.EnableColors
			tf.FullTimestamp = cfg.Formatter.FullTimestamp
			tf.DisableSorting = cfg.Formatter.DisableSorting
		}
		l.SetFormatter(tf)
	}

	return &namedAdapter{
		logrusAdapter: &logrusAdapter{entry: logrus.NewEntry(l)},
		closers:       closers,
	}, nil
}

func levelOrDefault(level string) string {
	if level == "" {
		return "info"
	}
	return level
}

func timeOrDefault(t string) string {
	if t == "" {
		return "2006-01-02T15:04:05.000Z07:00"
	}
	return t
}

func (l *logrusAdapter) Print(args ...interface{})                 { l.entry.Print(args...) }
func (l *logrusAdapter) Printf(format string, args ...interface{}) { l.entry.Printf(format, args...) }

func (l *logrusAdapter) Trace(args ...interface{})                 { l.entry.Trace(args...) }
func (l *logrusAdapter) Tracef(format string, args ...interface{}) { l.entry.Tracef(format, args...) }

func (l *logrusAdapter) Debug(args ...interface{})                 { l.entry.Debug(args...) }
func (l *logrusAdapter) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }

func (l *logrusAdapter) Info(args ...interface{})                 { l.entry.Info(args...) }
func (l *logrusAdapter) Infof(format string, args ...interface{}) { l.entry.Infof(format, args...) }

func (l *logrusAdapter) Warn(args ...interface{})                 { l.entry.Warn(args...) }
func (l *logrusAdapter) Warnf(format string, args ...interface{}) { l.entry.Warnf(format, args...) }

func (l *logrusAdapter) Error(args ...interface{})                 { l.entry.Error(args...) }
func (l *logrusAdapter) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }

func (l *logrusAdapter) Fatal(args ...interface{})                 { l.entry.Fatal(args...) }
func (l *logrusAdapter) Fatalf(format string, args ...interface{}) { l.entry.Fatalf(format, args...) }

func (l *logrusAdapter) Panic(args ...interface{})                 { l.entry.Panic(args...) }
func (l *logrusAdapter) Panicf(format string, args ...interface{}) { l.entry.Panicf(format, args...) }

func (l *logrusAdapter) WithField(field string, value interface{}) Logger {
	return &logrusAdapter{entry: l.entry.WithField(field, value)}
}
func (l *logrusAdapter) WithFields(fields map[string]interface{}) Logger {
	return &logrusAdapter{entry: l.entry.WithFields(fields)}
}
func (l *logrusAdapter) WithError(err error) Logger {
	return &logrusAdapter{entry: l.entry.WithError(err)}
}

func (l *logrusAdapter) IsTraceEnabled() bool {
	return l.entry.Logger.IsLevelEnabled(logrus.TraceLevel)
}
func (l *logrusAdapter) IsDebugEnabled() bool {
	return l.entry.Logger.IsLevelEnabled(logrus.DebugLevel)
}
func (l *logrusAdapter) IsInfoEnabled() bool {
	return l.entry.Logger.IsLevelEnabled(logrus.InfoLevel)
}
