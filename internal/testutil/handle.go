package testutil

import (
	"sync"

	"github.com/swiftcitrus/hydrus/internal/hydrus/handle"
)

// MemHandle is an in-memory handle.Handle with fault injection, used to
// exercise the scheduler and recovery coordinator without real storage.
type MemHandle struct {
	mu        sync.Mutex
	name      string
	gen       uint64
	inTx      bool
	closed    bool
	pending   []handle.Mutation
	committed [][]handle.Mutation

	// CommitErr, when set, makes the next Commit fail with it (wrapped as
	// a commit failure) after rolling back pending work.
	CommitErr error

	// Commits and Rollbacks count successful calls.
	Commits   int
	Rollbacks int
}

var _ handle.Handle = (*MemHandle)(nil)

// NewMemHandle creates a handle with the given identity at generation 0.
func NewMemHandle(name string) *MemHandle {
	return &MemHandle{name: name}
}

func (h *MemHandle) Name() string { return h.name }

func (h *MemHandle) Generation() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.gen
}

// SetGeneration overrides the marker directly, for building skew layouts.
func (h *MemHandle) SetGeneration(gen uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.gen = gen
}

func (h *MemHandle) InTransaction() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.inTx
}

func (h *MemHandle) Begin() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return handle.WrapErr("begin", handle.ErrClosed, h.name, nil)
	}
	if h.inTx {
		return handle.WrapErr("begin", handle.ErrAlreadyOpenTransaction, h.name, nil)
	}
	h.inTx = true
	h.pending = nil
	return nil
}

func (h *MemHandle) Execute(m handle.Mutation) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.inTx {
		return handle.WrapErr("execute", handle.ErrNoTransaction, h.name, nil)
	}
	h.pending = append(h.pending, m)
	return nil
}

func (h *MemHandle) Commit() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.inTx {
		return handle.WrapErr("commit", handle.ErrNoTransaction, h.name, nil)
	}
	if h.CommitErr != nil {
		err := h.CommitErr
		h.CommitErr = nil
		h.inTx = false
		h.pending = nil
		return handle.WrapErr("commit", handle.ErrCommitFailed, h.name, err)
	}
	h.committed = append(h.committed, h.pending)
	h.pending = nil
	h.inTx = false
	h.gen++
	h.Commits++
	return nil
}

func (h *MemHandle) Rollback() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pending = nil
	h.inTx = false
	h.Rollbacks++
	return nil
}

func (h *MemHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return handle.WrapErr("close", handle.ErrClosed, h.name, nil)
	}
	h.closed = true
	h.pending = nil
	h.inTx = false
	return nil
}

// CommittedBatches returns the mutation batches made durable so far.
func (h *MemHandle) CommittedBatches() [][]handle.Mutation {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([][]handle.Mutation, len(h.committed))
	copy(out, h.committed)
	return out
}
