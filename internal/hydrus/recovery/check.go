// Package recovery reconciles per-file commit generation markers at startup,
// before any transaction group is opened. Because handles commit in a fixed
// lexicographic order, the only skew a crash can produce is a prefix of
// files exactly one generation ahead of the rest; anything else is treated
// as suspected corruption and aborts startup.
package recovery

import (
	"sort"

	"github.com/swiftcitrus/hydrus/internal/hydrus/handle"
	"github.com/swiftcitrus/hydrus/internal/logger"
)

// Result reports the reconciled startup state.
type Result struct {
	// Generation is the resume generation for the group-sequence counter:
	// the lowest marker across all handles.
	Generation uint64

	// Ahead lists the handles one generation ahead of Generation, in
	// commit order. Empty when all markers agree. Durable writes cannot
	// be undone, so these retain their extra generation; the discrepancy
	// is recorded and reported, never auto-repaired.
	Ahead []string

	// Skewed reports whether a tolerated prefix skew was observed.
	Skewed bool
}

// Check reads every handle's generation marker and reconciles them. All
// markers equal means a clean shutdown. A lexicographic prefix exactly one
// generation ahead is the mid-commit crash signature and is tolerated with a
// report. Any other layout fails with ErrCorruptionSuspected.
func Check(handles []handle.Handle, lg logger.Logger) (*Result, error) {
	if lg == nil {
		lg = logger.NoOpLogger{}
	}
	if len(handles) == 0 {
		return nil, ErrNoHandles
	}

	names := make([]string, 0, len(handles))
	gens := make(map[string]uint64, len(handles))
	for _, h := range handles {
		names = append(names, h.Name())
		gens[h.Name()] = h.Generation()
	}
	sort.Strings(names)

	low, high := gens[names[0]], gens[names[0]]
	for _, name := range names[1:] {
		g := gens[name]
		if g < low {
			low = g
		}
		if g > high {
			high = g
		}
	}

	if low == high {
		lg.Info("generation markers consistent", "generation", low, "files", len(names))
		return &Result{Generation: low}, nil
	}

	if high-low > 1 {
		lg.Error("generation skew wider than one", ErrCorruptionSuspected,
			"low", low, "high", high)
		return nil, &SkewError{
			Err:         ErrCorruptionSuspected,
			Generations: gens,
			Detail:      "skew wider than one generation",
		}
	}

	// Exactly one apart: the ahead set must be a non-empty strict prefix
	// of the commit order.
	boundary := -1
	for i, name := range names {
		if gens[name] == high {
			if i != boundary+1 {
				lg.Error("generation skew inconsistent with commit order", ErrCorruptionSuspected,
					"file", name, "position", i)
				return nil, &SkewError{
					Err:         ErrCorruptionSuspected,
					Generations: gens,
					Detail:      "ahead files do not form a commit-order prefix",
				}
			}
			boundary = i
		}
	}

	ahead := append([]string(nil), names[:boundary+1]...)
	lg.Warn("prefix generation skew detected, resuming at lowest common generation",
		"generation", low, "ahead", len(ahead), "files", len(names))

	return &Result{
		Generation: low,
		Ahead:      ahead,
		Skewed:     true,
	}, nil
}
