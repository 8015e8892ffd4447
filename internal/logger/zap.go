package logger

import (
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger writes structured log lines through zap. Every line carries the
// run id so output from one generation run can be correlated.
type ZapLogger struct {
	sugar *zap.SugaredLogger
	base  *zap.Logger
	runID string
}

// NewZapLogger builds a logger writing to stderr. Verbose selects the
// human-readable development encoder at debug level; otherwise JSON at info.
func NewZapLogger(verbose bool) (*ZapLogger, error) {
	var cfg zap.Config
	if verbose {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "time"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	base, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return newZapLogger(base), nil
}

// NewZapLoggerFromCore wraps an existing core. Tests use it with an observer core.
func NewZapLoggerFromCore(core zapcore.Core) *ZapLogger {
	return newZapLogger(zap.New(core))
}

func newZapLogger(base *zap.Logger) *ZapLogger {
	runID := uuid.NewString()
	base = base.With(zap.String("run_id", runID))
	return &ZapLogger{sugar: base.Sugar(), base: base, runID: runID}
}

// Named returns a child logger tagged with a component name.
func (l *ZapLogger) Named(component string) *ZapLogger {
	base := l.base.With(zap.String("component", component))
	return &ZapLogger{sugar: base.Sugar(), base: base, runID: l.runID}
}

// RunID returns the id attached to every line.
func (l *ZapLogger) RunID() string { return l.runID }

// Sync flushes buffered entries. Errors from syncing a terminal are ignored.
func (l *ZapLogger) Sync() {
	_ = l.base.Sync()
}

func (l *ZapLogger) Logf(format string, args ...interface{})   { l.sugar.Infof(format, args...) }
func (l *ZapLogger) Log(msg string)                            { l.sugar.Info(msg) }
func (l *ZapLogger) Warnf(format string, args ...interface{})  { l.sugar.Warnf(format, args...) }
func (l *ZapLogger) Errorf(format string, args ...interface{}) { l.sugar.Errorf(format, args...) }

// IsInteractive reports whether stdout is attached to a terminal. Used to
// decide when to render interactive UI elements like spinners.
func IsInteractive() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
