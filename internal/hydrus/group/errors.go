package group

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidSeq    = errors.New("group: invalid sequence number")
	ErrSeqRegression = errors.New("group: sequence number regression")
)

// SeqError reports an invalid sequence number transition.
type SeqError struct {
	Err  error
	Have uint64
	Want uint64
}

func (e *SeqError) Error() string {
	return fmt.Sprintf("%s: have %d, want >= %d", e.Err.Error(), e.Have, e.Want)
}

func (e *SeqError) Unwrap() error { return e.Err }
