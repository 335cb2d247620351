package logger

import (
	"fmt"
	"path/filepath"

	"github.com/julianstephens/go-utils/helpers"
	goulog "github.com/julianstephens/go-utils/logger"
)

// FileLogger writes to a rotating file via go-utils/logger.
type FileLogger struct {
	underlying *goulog.Logger
	path       string
}

// NewFileLogger creates a rotating file logger under logDir. Old logs are
// compressed and retained for 28 days.
func NewFileLogger(logDir, fileName string, maxSizeMB, maxBackups int) (Logger, error) {
	if err := helpers.Ensure(logDir, true); err != nil {
		return nil, wrapLoggerErr("create", ErrLogCreate, err, logDir)
	}

	path := filepath.Join(logDir, fileName)
	underlying := goulog.New()
	maxAge := 28
	if err := underlying.SetFileOutputWithConfig(goulog.FileRotationConfig{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: &maxBackups,
		MaxAge:     &maxAge,
		Compress:   true,
	}); err != nil {
		return nil, wrapLoggerErr("create", ErrLogCreate, err, logDir)
	}

	return &FileLogger{underlying: underlying, path: path}, nil
}

func (fl *FileLogger) Debug(msg string, fields ...interface{}) {
	fl.underlying.WithFields(fieldMap(fields)).Debug(msg)
}

func (fl *FileLogger) Info(msg string, fields ...interface{}) {
	fl.underlying.WithFields(fieldMap(fields)).Info(msg)
}

func (fl *FileLogger) Warn(msg string, fields ...interface{}) {
	fl.underlying.WithFields(fieldMap(fields)).Warn(msg)
}

func (fl *FileLogger) Error(msg string, err error, fields ...interface{}) {
	fl.underlying.WithFields(fieldMap(append([]interface{}{"error", err}, fields...))).Error(msg)
}

// Close satisfies Closeable; go-utils/logger flushes on write so there is
// nothing pending to drain.
func (fl *FileLogger) Close() error { return nil }

func fieldMap(fields []interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(fields)/2)
	for i := 0; i+1 < len(fields); i += 2 {
		m[fmt.Sprintf("%v", fields[i])] = fields[i+1]
	}
	return m
}
