package logging

import (
	"os"
	"time"

	"github.com/ssgreg/journald"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Output names accepted by Config.Output.
const (
	CONSOLE = "console"
	JOURNAL = "journald"
)

// Logger is a named logger for a single component (e.g. "registry", "tunnel", "query").
//
// It embeds *zap.SugaredLogger so callers can use the usual Debug/Debugf/Warnw/Infow/... API,
// and additionally carries the periodic-summary interval configured for its name, for call
// sites that log recurring progress/heartbeat messages on a timer of their own.
type Logger struct {
	*zap.SugaredLogger

	interval time.Duration
}

// Interval returns the interval this Logger was configured with for periodic summaries.
func (l *Logger) Interval() time.Duration {
	return l.interval
}

// Logging creates Loggers sharing a common core and level configuration.
type Logging struct {
	core     zapcore.Core
	level    zapcore.Level
	options  Options
	interval time.Duration
}

// NewLogging builds a Logging from c. identifier is used as the journald SYSLOG_IDENTIFIER
// and as a prefix for journald field names; it is ignored for console output.
func NewLogging(identifier string, c Config) (*Logging, error) {
	if err := AssertOutput(c.Output); err != nil {
		return nil, err
	}

	var core zapcore.Core
	switch c.Output {
	case JOURNAL:
		core = NewJournaldCore(identifier, zap.NewAtomicLevelAt(c.Level))
	case CONSOLE:
		encoderCfg := zap.NewDevelopmentEncoderConfig()
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		core = zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderCfg),
			zapcore.Lock(zapcore.AddSync(os.Stderr)),
			zap.NewAtomicLevelAt(c.Level),
		)
	default:
		return nil, invalidOutput(c.Output)
	}

	return &Logging{
		core:     core,
		level:    c.Level,
		options:  c.Options,
		interval: c.Interval,
	}, nil
}

// GetChildLogger returns a named Logger. If Options names a dedicated level for name,
// that level is used instead of the Logging's default level.
func (l *Logging) GetChildLogger(name string) *Logger {
	core := l.core
	if lvl, ok := l.options[name]; ok {
		core = &levelOverrideCore{Core: core, level: lvl}
	}

	return &Logger{
		SugaredLogger: zap.New(core).Named(name).Sugar(),
		interval:      l.interval,
	}
}

// levelOverrideCore wraps a zapcore.Core, enforcing a different minimum level.
type levelOverrideCore struct {
	zapcore.Core
	level zapcore.Level
}

func (c *levelOverrideCore) Enabled(lvl zapcore.Level) bool {
	return lvl >= c.level
}

func (c *levelOverrideCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}

	return ce
}
