// Package logger defines the logging interface shared by every hydrus
// package, with console, rotating-file, and fan-out implementations.
package logger

// Logger is the structured logging interface. Fields are alternating
// key/value pairs.
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, err error, fields ...interface{})
}

// Closeable is implemented by loggers that buffer and need a flush on
// shutdown.
type Closeable interface {
	Close() error
}

// NoOpLogger discards all messages. It is the default when a component is
// handed a nil logger, and the usual choice in tests.
type NoOpLogger struct{}

func (NoOpLogger) Debug(string, ...interface{}) {}

func (NoOpLogger) Info(string, ...interface{}) {}

func (NoOpLogger) Warn(string, ...interface{}) {}

func (NoOpLogger) Error(string, error, ...interface{}) {}

var _ Logger = NoOpLogger{}
