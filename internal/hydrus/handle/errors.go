package handle

import (
	"errors"
	"fmt"
)

var (
	ErrStorageUnavailable     = errors.New("handle: storage unavailable")
	ErrAlreadyOpenTransaction = errors.New("handle: transaction already open")
	ErrNoTransaction          = errors.New("handle: no open transaction")
	ErrCommitFailed           = errors.New("handle: commit failed")
	ErrClosed                 = errors.New("handle: closed")
)

// HandleError wraps per-file failures with stable sentinels for errors.Is,
// while preserving Cause for inspection/logging.
type HandleError struct {
	Err error

	// Op describes the operation: "open", "begin", "execute", "commit",
	// "rollback", "close".
	Op string

	// Name is the handle's file identity.
	Name string

	Cause error
}

func (e *HandleError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Op, e.Err.Error(), e.Name)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err.Error())
}

func (e *HandleError) Unwrap() error { return e.Err }

func (e *HandleError) CauseErr() error { return e.Cause }

// WrapErr builds a HandleError. Exported so handle implementations outside
// this package report failures in the same shape.
func WrapErr(op string, sentinel error, name string, cause error) error {
	return &HandleError{
		Err:   sentinel,
		Op:    op,
		Name:  name,
		Cause: cause,
	}
}
