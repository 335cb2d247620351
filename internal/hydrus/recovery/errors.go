package recovery

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrCorruptionSuspected = errors.New("recovery: corruption suspected")
	ErrNoHandles           = errors.New("recovery: no handles")
)

// SkewError reports a generation layout that is inconsistent with the
// deterministic commit order. It is fatal, requires external intervention,
// and is never auto-repaired.
type SkewError struct {
	Err error

	// Generations maps file identity to its persisted generation marker.
	Generations map[string]uint64

	// Detail explains which part of the prefix contract was violated.
	Detail string
}

func (e *SkewError) Error() string {
	names := make([]string, 0, len(e.Generations))
	for name := range e.Generations {
		names = append(names, name)
	}
	sort.Strings(names)

	layout := ""
	for i, name := range names {
		if i > 0 {
			layout += " "
		}
		layout += fmt.Sprintf("%s=%d", name, e.Generations[name])
	}
	return fmt.Sprintf("%s: %s (%s)", e.Err.Error(), e.Detail, layout)
}

func (e *SkewError) Unwrap() error { return e.Err }
