// Package scheduler owns the timer-driven commit cycle. It decides when the
// currently open transaction group becomes durable, enforces at-most-one
// commit cycle in flight, and commits touched handles in a fixed
// deterministic order so that a crash mid-commit always leaves a prefix of
// handles advanced and a suffix untouched.
package scheduler

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/swiftcitrus/hydrus/internal/hydrus"
	"github.com/swiftcitrus/hydrus/internal/hydrus/group"
	"github.com/swiftcitrus/hydrus/internal/hydrus/handle"
	"github.com/swiftcitrus/hydrus/internal/hydrus/policy"
	"github.com/swiftcitrus/hydrus/internal/logger"
)

// State is the scheduler's lifecycle state.
type State int

const (
	// StateIdle means no group is open; waiting for the first mutation.
	StateIdle State = iota
	// StateAccumulating means a group is open and mutations are being applied.
	StateAccumulating
	// StateCommitting means a flush is in progress.
	StateCommitting
	// StateFailed means an unrecoverable commit error was surfaced.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAccumulating:
		return "accumulating"
	case StateCommitting:
		return "committing"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Maintainer is implemented by handles that piggyback periodic maintenance
// (checkpointing, journal zeroing) on successful commit cycles.
type Maintainer interface {
	Maintain(now time.Time) error
}

type queuedMutation struct {
	fileID string
	m      handle.Mutation
}

// Scheduler serializes mutation submission against the commit cycle. The
// timer is the only source of unsolicited state transitions besides explicit
// flush requests.
type Scheduler struct {
	pol   *policy.Policy
	clock Clock
	lg    logger.Logger
	alloc group.SeqAllocator

	mu            sync.Mutex
	cond          *sync.Cond
	state         State
	handles       map[string]handle.Handle
	order         []string
	cur           *group.Group
	queued        []queuedMutation
	jobs          int
	deferredSince time.Time
	nextFire      time.Time
	failErr       error
	stopped       bool

	loopStop chan struct{}
	loopDone chan struct{}
}

// New builds a scheduler over the given handles. The allocator supplies
// group sequence numbers; pass one seeded past the recovered generation.
// A nil clock means wall time; a nil logger means no logging.
func New(
	handles []handle.Handle,
	pol *policy.Policy,
	clock Clock,
	alloc group.SeqAllocator,
	lg logger.Logger,
) (*Scheduler, error) {
	if len(handles) == 0 {
		return nil, wrapSchedErr("new", ErrNoHandles, "", nil)
	}
	if clock == nil {
		clock = SystemClock()
	}
	if lg == nil {
		lg = logger.NoOpLogger{}
	}
	if alloc == nil {
		a, err := group.NewCounterAllocator(1)
		if err != nil {
			return nil, err
		}
		alloc = a
	}

	byName := make(map[string]handle.Handle, len(handles))
	order := make([]string, 0, len(handles))
	for _, h := range handles {
		if _, dup := byName[h.Name()]; dup {
			return nil, wrapSchedErr("new", ErrDuplicateFile, h.Name(), nil)
		}
		byName[h.Name()] = h
		order = append(order, h.Name())
	}
	sort.Strings(order)

	s := &Scheduler{
		pol:      pol,
		clock:    clock,
		lg:       lg,
		alloc:    alloc,
		state:    StateIdle,
		handles:  byName,
		order:    order,
		nextFire: clock.Now().Add(pol.CommitPeriod()),
	}
	s.cond = sync.NewCond(&s.mu)
	return s, nil
}

const pollInterval = 500 * time.Millisecond

// Start launches the periodic commit loop. Idempotent.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loopStop != nil || s.stopped {
		return
	}
	s.loopStop = make(chan struct{})
	s.loopDone = make(chan struct{})
	go s.run(s.loopStop, s.loopDone)
}

func (s *Scheduler) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := s.Tick(s.clock.Now()); err != nil {
				s.lg.Error("commit cycle failed", err)
			}
		}
	}
}

// Stop halts the commit loop and rejects further submissions. It does not
// flush; callers wanting durability flush first.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	stop, done := s.loopStop, s.loopDone
	s.cond.Broadcast()
	s.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
}

// Submit applies a mutation to the named file inside the currently open
// group, opening one if none is. While a commit cycle is in flight the
// mutation queues for the next group rather than blocking.
func (s *Scheduler) Submit(fileID string, m handle.Mutation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return wrapSchedErr("submit", ErrStopped, fileID, nil)
	}
	if s.state == StateFailed {
		return wrapSchedErr("submit", ErrFailed, fileID, s.failErr)
	}
	h, ok := s.handles[fileID]
	if !ok {
		return wrapSchedErr("submit", ErrUnknownFile, fileID, nil)
	}

	if s.state == StateCommitting {
		s.queued = append(s.queued, queuedMutation{fileID: fileID, m: m})
		s.lg.Debug("mutation queued for next group", "file", fileID, "queued", len(s.queued))
		return nil
	}

	return s.applyLocked(h, fileID, m)
}

// applyLocked opens the group if needed, opens the handle's transaction if
// needed, and applies the mutation. Caller holds mu.
func (s *Scheduler) applyLocked(h handle.Handle, fileID string, m handle.Mutation) error {
	if s.cur == nil {
		s.cur = group.New(s.alloc.Next(), s.clock.Now())
		s.state = StateAccumulating
		s.lg.Debug("group opened", "seq", s.cur.Seq())
	}
	if !h.InTransaction() {
		if err := h.Begin(); err != nil {
			return err
		}
	}
	s.cur.Touch(fileID)
	return h.Execute(m)
}

// BeginJob marks the start of a long-running job. The timer never interrupts
// an in-flight job; commits are deferred until EndJob.
func (s *Scheduler) BeginJob() {
	s.mu.Lock()
	s.jobs++
	s.mu.Unlock()
}

// EndJob marks the end of a long-running job.
func (s *Scheduler) EndJob() {
	s.mu.Lock()
	if s.jobs > 0 {
		s.jobs--
	}
	if s.jobs == 0 {
		s.cond.Broadcast()
	}
	s.mu.Unlock()
}

// Tick evaluates the commit timer at the given instant. The background loop
// calls it with wall time; tests drive it directly with a fake clock.
func (s *Scheduler) Tick(now time.Time) error {
	s.mu.Lock()

	if s.stopped || s.state == StateFailed || s.state == StateCommitting {
		s.mu.Unlock()
		return nil
	}
	if now.Before(s.nextFire) {
		s.mu.Unlock()
		return nil
	}

	if s.cur == nil || s.cur.Empty() {
		// No writes since the last commit: zero handle I/O.
		s.nextFire = now.Add(s.pol.CommitPeriod())
		s.deferredSince = time.Time{}
		s.mu.Unlock()
		return nil
	}

	if s.jobs > 0 {
		if s.deferredSince.IsZero() {
			s.deferredSince = now
		}
		deferred := now.Sub(s.deferredSince)
		if deferred >= time.Duration(hydrus.DeferralWarnFactor)*s.pol.CommitPeriod() {
			s.lg.Warn("commit deferred by in-flight job",
				"deferred", deferred.String(),
				"period", s.pol.CommitPeriod().String(),
				"seq", s.cur.Seq())
		}
		// Re-arm relative to this fire, not to job completion.
		s.nextFire = now.Add(s.pol.CommitPeriod())
		s.mu.Unlock()
		return nil
	}

	return s.commitLocked(now)
}

// RequestFlush closes the current group on demand. It may be cancelled via
// ctx only while the scheduler is still accumulating; once committing begins
// the cycle always runs to completion or failure.
func (s *Scheduler) RequestFlush(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	stop := context.AfterFunc(ctx, func() {
		s.mu.Lock()
		s.cond.Broadcast()
		s.mu.Unlock()
	})
	defer stop()

	s.mu.Lock()
	for {
		if s.stopped {
			s.mu.Unlock()
			return wrapSchedErr("flush", ErrStopped, "", nil)
		}
		if s.state == StateFailed {
			s.mu.Unlock()
			return wrapSchedErr("flush", ErrFailed, "", s.failErr)
		}
		if err := ctx.Err(); err != nil {
			s.mu.Unlock()
			return wrapSchedErr("flush", ErrFlushCancelled, "", err)
		}
		if s.state == StateIdle && len(s.queued) == 0 {
			s.mu.Unlock()
			return nil
		}
		if s.state == StateAccumulating && s.jobs == 0 {
			return s.commitLocked(s.clock.Now())
		}
		// A cycle is in flight or a job is; wait for either to end.
		s.cond.Wait()
	}
}

// commitLocked runs one commit cycle. Caller holds mu; it is released during
// handle I/O and the method returns unlocked.
func (s *Scheduler) commitLocked(now time.Time) error {
	g := s.cur
	s.state = StateCommitting
	s.lg.Info("commit cycle starting", "seq", g.Seq(), "files", g.Len())
	s.mu.Unlock()

	err := s.commitGroup(g, now)

	s.mu.Lock()
	if err != nil {
		s.state = StateFailed
		s.failErr = err
		s.cur = nil
		s.cond.Broadcast()
		s.mu.Unlock()
		return err
	}

	s.cur = nil
	s.state = StateIdle
	s.deferredSince = time.Time{}
	s.nextFire = now.Add(s.pol.CommitPeriod())
	s.drainQueuedLocked()
	s.cond.Broadcast()
	s.mu.Unlock()
	return nil
}

// commitGroup commits every touched handle in deterministic order. On any
// failure the not-yet-committed remainder rolls back; the already-committed
// prefix is durable and left for recovery to reason about.
func (s *Scheduler) commitGroup(g *group.Group, now time.Time) error {
	pending := g.Pending()
	for i, id := range pending {
		h := s.handles[id]
		if err := h.Commit(); err != nil {
			s.lg.Error("handle commit failed, rolling back group remainder", err,
				"seq", g.Seq(), "file", id, "committed", i)
			for _, rid := range pending[i+1:] {
				if rbErr := s.handles[rid].Rollback(); rbErr != nil {
					s.lg.Error("rollback failed", rbErr, "file", rid)
				}
			}
			return &SchedulerError{
				Err:   ErrCommitCycle,
				Op:    "commit",
				File:  id,
				Seq:   g.Seq(),
				Cause: err,
			}
		}
	}

	for _, id := range pending {
		if m, ok := s.handles[id].(Maintainer); ok {
			if err := m.Maintain(now); err != nil {
				s.lg.Warn("post-commit maintenance failed", "file", id, "reason", err.Error())
			}
		}
	}

	s.lg.Info("commit cycle complete", "seq", g.Seq(), "files", len(pending))
	return nil
}

// drainQueuedLocked replays mutations that arrived during the cycle into a
// fresh group. Caller holds mu.
func (s *Scheduler) drainQueuedLocked() {
	if len(s.queued) == 0 {
		return
	}
	q := s.queued
	s.queued = nil
	for _, qm := range q {
		h := s.handles[qm.fileID]
		if err := s.applyLocked(h, qm.fileID, qm.m); err != nil {
			s.lg.Error("failed to apply queued mutation", err, "file", qm.fileID)
		}
	}
}

// State returns the scheduler's current lifecycle state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the error that moved the scheduler to StateFailed, if any.
func (s *Scheduler) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failErr
}

// PendingFiles returns the touched file identities of the open group in
// commit order, or nil when no group is open.
func (s *Scheduler) PendingFiles() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur == nil {
		return nil
	}
	return s.cur.Pending()
}

// GroupSeq returns the open group's sequence number, or 0 when none is open.
func (s *Scheduler) GroupSeq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur == nil {
		return 0
	}
	return s.cur.Seq()
}
