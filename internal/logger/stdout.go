package logger

import (
	"fmt"
	"os"
)

type StdoutLogger struct{}

func (l *StdoutLogger) Logf(format string, args ...interface{}) { fmt.Printf(format+"\n", args...) }
func (l *StdoutLogger) Log(msg string)                          { fmt.Println(msg) }
func (l *StdoutLogger) Warnf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Warning: "+format+"\n", args...)
}
func (l *StdoutLogger) Errorf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
