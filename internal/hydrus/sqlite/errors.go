package sqlite

import (
	"errors"

	"github.com/swiftcitrus/hydrus/internal/hydrus/handle"
)

var ErrInsufficientSpace = errors.New("sqlite: insufficient space for spill")

func handleSpaceErr(name string, cause error) error {
	return handle.WrapErr("spill", ErrInsufficientSpace, name, cause)
}
