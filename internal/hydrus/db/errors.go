package db

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidDir    = errors.New("db: invalid dir")
	ErrNoFiles       = errors.New("db: no files named")
	ErrDuplicateFile = errors.New("db: duplicate file name")
	ErrUnknownFile   = errors.New("db: unknown file")
	ErrInitFailed    = errors.New("db: init failed")
	ErrClosed        = errors.New("db: closed")
	ErrCloseFailed   = errors.New("db: close failed")
)

// DBError wraps facade-layer failures with stable sentinels for errors.Is,
// while preserving Cause for inspection/logging.
type DBError struct {
	Err error

	// Op describes the operation: "init", "open", "submit", "flush",
	// "query", "close".
	Op string

	// Path is the database directory or file identity involved.
	Path string

	Cause error
}

func (e *DBError) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Op, e.Err.Error(), e.Path)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err.Error())
}

func (e *DBError) Unwrap() error { return e.Err }

func (e *DBError) CauseErr() error { return e.Cause }

func wrapDBErr(op string, sentinel error, path string, cause error) error {
	return &DBError{
		Err:   sentinel,
		Op:    op,
		Path:  path,
		Cause: cause,
	}
}
