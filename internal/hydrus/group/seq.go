package group

import "sync"

// SeqAllocator hands out monotonically increasing group sequence numbers
// during a single process lifetime.
type SeqAllocator interface {
	// Next reserves and returns the next sequence number.
	// 0 is reserved as "unset".
	Next() uint64

	// Peek returns the next number that would be handed out without
	// reserving it.
	Peek() uint64

	// SetNext sets the next number to be allocated. Used after recovery
	// computes the resume generation.
	SetNext(next uint64) error
}

// CounterAllocator is the default in-memory implementation.
type CounterAllocator struct {
	mu   sync.Mutex
	next uint64
}

// NewCounterAllocator constructs an allocator starting at next. For a fresh
// database, pass next=1. After recovery, pass the resume generation + 1.
func NewCounterAllocator(next uint64) (*CounterAllocator, error) {
	if next < 1 {
		return nil, &SeqError{
			Err:  ErrInvalidSeq,
			Have: next,
			Want: 1,
		}
	}
	return &CounterAllocator{next: next}, nil
}

// Next reserves and returns the next sequence number.
func (a *CounterAllocator) Next() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.next++
	return a.next - 1
}

// Peek returns the next number without reserving it.
func (a *CounterAllocator) Peek() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.next
}

// SetNext sets the next number to be allocated. Regressions are rejected so
// a sequence number is never reused within a process lifetime.
func (a *CounterAllocator) SetNext(next uint64) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if next < 1 {
		return &SeqError{
			Err:  ErrInvalidSeq,
			Have: next,
			Want: 1,
		}
	}
	if next < a.next {
		return &SeqError{
			Err:  ErrSeqRegression,
			Have: next,
			Want: a.next,
		}
	}

	a.next = next
	return nil
}
