package logger

import (
	"fmt"
	"io"
	"os"
	"time"
)

type level int

const (
	levelDebug level = iota
	levelInfo
	levelWarn
	levelError
)

func parseLevel(s string) level {
	switch s {
	case "debug":
		return levelDebug
	case "warn":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

func (l level) String() string {
	switch l {
	case levelDebug:
		return "DEBUG"
	case levelInfo:
		return "INFO"
	case levelWarn:
		return "WARN"
	default:
		return "ERROR"
	}
}

// ConsoleLogger writes structured lines to stdout/stderr.
type ConsoleLogger struct {
	min level
	out io.Writer
	err io.Writer
}

// NewConsoleLogger creates a console logger filtering below the given level
// ("debug", "info", "warn", "error"; empty means "info").
func NewConsoleLogger(minLevel string) Logger {
	return &ConsoleLogger{
		min: parseLevel(minLevel),
		out: os.Stdout,
		err: os.Stderr,
	}
}

func (cl *ConsoleLogger) Debug(msg string, fields ...interface{}) {
	cl.log(levelDebug, msg, fields...)
}

func (cl *ConsoleLogger) Info(msg string, fields ...interface{}) {
	cl.log(levelInfo, msg, fields...)
}

func (cl *ConsoleLogger) Warn(msg string, fields ...interface{}) {
	cl.log(levelWarn, msg, fields...)
}

func (cl *ConsoleLogger) Error(msg string, err error, fields ...interface{}) {
	// Errors always print regardless of the minimum level.
	cl.log(levelError, msg, append([]interface{}{"error", err}, fields...)...)
}

func (cl *ConsoleLogger) log(lv level, msg string, fields ...interface{}) {
	if lv < cl.min && lv != levelError {
		return
	}

	line := fmt.Sprintf("[%s] %s: %s",
		time.Now().Format("2006-01-02T15:04:05.000Z07:00"), lv, msg)
	for i := 0; i+1 < len(fields); i += 2 {
		line += fmt.Sprintf(" %v=%v", fields[i], fields[i+1])
	}
	line += "\n"

	w := cl.out
	if lv == levelError {
		w = cl.err
	}
	fmt.Fprint(w, line) // nolint:errcheck
}
