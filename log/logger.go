package log

import "go.uber.org/zap"

// Logger is the minimal logging capability the codec layers depend on.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

type ZapLogger struct {
	inner *zap.SugaredLogger
}

func NewZapLogger(log *zap.Logger) ZapLogger {
	return ZapLogger{inner: log.Sugar()}
}

func (l ZapLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.inner.Debugw(msg, keysAndValues...)
}

func (l ZapLogger) Info(msg string, keysAndValues ...interface{}) {
	l.inner.Infow(msg, keysAndValues...)
}

func (l ZapLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.inner.Warnw(msg, keysAndValues...)
}

func (l ZapLogger) Error(msg string, keysAndValues ...interface{}) {
	l.inner.Errorw(msg, keysAndValues...)
}

// NewNopLogger returns a logger that discards everything. Used as the
// default when no logger is configured and in tests.
func NewNopLogger() ZapLogger {
	return NewZapLogger(zap.NewNop())
}

// NewDevelopmentLogger returns a human readable console logger for the
// CLI and debug mode.
func NewDevelopmentLogger() (ZapLogger, error) {
	l, err := zap.NewDevelopment()
	if err != nil {
		return ZapLogger{}, err
	}
	return NewZapLogger(l), nil
}
