package logger

// Logger is the logging surface shared by every package. Logf and Log report
// progress; Warnf reports degraded but recoverable conditions; Errorf reports
// failures that end the run.
type Logger interface {
	Logf(format string, args ...interface{})
	Log(msg string)
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// NopLogger discards everything. Useful in tests.
type NopLogger struct{}

func (NopLogger) Logf(format string, args ...interface{})   {}
func (NopLogger) Log(msg string)                            {}
func (NopLogger) Warnf(format string, args ...interface{})  {}
func (NopLogger) Errorf(format string, args ...interface{}) {}
