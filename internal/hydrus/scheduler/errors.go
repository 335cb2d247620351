package scheduler

import (
	"errors"
	"fmt"
)

var (
	ErrStopped        = errors.New("scheduler: stopped")
	ErrFailed         = errors.New("scheduler: failed, no further mutations accepted")
	ErrUnknownFile    = errors.New("scheduler: unknown file")
	ErrDuplicateFile  = errors.New("scheduler: duplicate file name")
	ErrNoHandles      = errors.New("scheduler: no handles")
	ErrFlushCancelled = errors.New("scheduler: flush cancelled")
	ErrCommitCycle    = errors.New("scheduler: commit cycle failed")
)

// SchedulerError wraps scheduling failures with stable sentinels for
// errors.Is, while preserving Cause for inspection/logging.
type SchedulerError struct {
	Err error

	// Op describes the operation: "submit", "flush", "commit", "stop".
	Op string

	// File is the file identity involved, when one is.
	File string

	// Seq is the sequence number of the group involved, when one is.
	Seq uint64

	Cause error
}

func (e *SchedulerError) Error() string {
	msg := e.Err.Error()
	if e.Op != "" {
		msg = fmt.Sprintf("%s: %s", e.Op, msg)
	}
	if e.File != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.File)
	}
	if e.Seq != 0 {
		msg = fmt.Sprintf("%s [group %d]", msg, e.Seq)
	}
	return msg
}

func (e *SchedulerError) Unwrap() error { return e.Err }

func (e *SchedulerError) CauseErr() error { return e.Cause }

func wrapSchedErr(op string, sentinel error, file string, cause error) error {
	return &SchedulerError{
		Err:   sentinel,
		Op:    op,
		File:  file,
		Cause: cause,
	}
}
