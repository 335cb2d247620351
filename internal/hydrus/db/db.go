// Package db wires the durability policy, file handles, recovery
// coordinator, and commit scheduler into the surface the host application
// consumes.
package db

import (
	"context"
	"sort"
	"sync"

	"github.com/swiftcitrus/hydrus/internal/hydrus"
	"github.com/swiftcitrus/hydrus/internal/hydrus/group"
	"github.com/swiftcitrus/hydrus/internal/hydrus/handle"
	"github.com/swiftcitrus/hydrus/internal/hydrus/manifest"
	"github.com/swiftcitrus/hydrus/internal/hydrus/policy"
	"github.com/swiftcitrus/hydrus/internal/hydrus/recovery"
	"github.com/swiftcitrus/hydrus/internal/hydrus/scheduler"
	"github.com/swiftcitrus/hydrus/internal/hydrus/sqlite"
	"github.com/swiftcitrus/hydrus/internal/logger"
)

// DB is one logical database backed by several physical files committed as a
// group.
type DB struct {
	dir     string
	pol     *policy.Policy
	engines map[string]*sqlite.Engine
	sched   *scheduler.Scheduler
	recov   *recovery.Result
	lg      logger.Logger

	mu     sync.Mutex
	closed bool
}

// Init resolves the supplied options and records the settings snapshot and
// file roster for dir. Unknown or invalid options fail here, before any file
// handle is opened.
func Init(dir string, files []string, opts hydrus.Options, lg logger.Logger) error {
	if lg == nil {
		lg = logger.NoOpLogger{}
	}
	if dir == "" {
		return wrapDBErr("init", ErrInvalidDir, dir, nil)
	}
	if len(files) == 0 {
		return wrapDBErr("init", ErrNoFiles, dir, nil)
	}
	seen := make(map[string]struct{}, len(files))
	for _, f := range files {
		if f == "" {
			return wrapDBErr("init", ErrNoFiles, dir, nil)
		}
		if _, dup := seen[f]; dup {
			return wrapDBErr("init", ErrDuplicateFile, dir, nil)
		}
		seen[f] = struct{}{}
	}

	pol, err := policy.Resolve(opts, lg)
	if err != nil {
		return err
	}

	sorted := append([]string(nil), files...)
	sort.Strings(sorted)

	if err := manifest.Init(dir, manifest.FromPolicy(pol, sorted)); err != nil {
		return err
	}
	lg.Info("database initialized", "dir", dir, "files", len(sorted))
	return nil
}

// Open opens an initialized database directory. The manifest is the
// authoritative settings snapshot; recovery runs before the scheduler
// accepts any mutation.
func Open(dir string, lg logger.Logger) (*DB, error) {
	return OpenWithClock(dir, lg, nil)
}

// OpenWithClock is Open with an injectable clock for deterministic tests.
func OpenWithClock(dir string, lg logger.Logger, clock scheduler.Clock) (*DB, error) {
	if lg == nil {
		lg = logger.NoOpLogger{}
	}
	if dir == "" {
		return nil, wrapDBErr("open", ErrInvalidDir, dir, nil)
	}

	m, err := manifest.Load(dir)
	if err != nil {
		lg.Error("unable to load manifest", err, "dir", dir)
		return nil, err
	}

	pol, err := policy.Resolve(m.Options(), lg)
	if err != nil {
		return nil, err
	}

	db := &DB{
		dir:     dir,
		pol:     pol,
		engines: make(map[string]*sqlite.Engine, len(m.Files)),
		lg:      lg,
	}

	for _, name := range m.Files {
		eng, err := sqlite.Open(dir, name, pol, lg)
		if err != nil {
			lg.Error("unable to open file handle", err, "dir", dir, "file", name)
			db.closeEngines()
			return nil, err
		}
		db.engines[name] = eng
	}

	if err := db.recover(); err != nil {
		db.closeEngines()
		return nil, err
	}

	alloc, err := group.NewCounterAllocator(db.recov.Generation + 1)
	if err != nil {
		db.closeEngines()
		return nil, wrapDBErr("open", ErrInitFailed, dir, err)
	}

	handles := make([]handle.Handle, 0, len(db.engines))
	for _, eng := range db.engines {
		handles = append(handles, eng)
	}
	sched, err := scheduler.New(handles, pol, clock, alloc, lg)
	if err != nil {
		db.closeEngines()
		return nil, wrapDBErr("open", ErrInitFailed, dir, err)
	}
	db.sched = sched
	sched.Start()

	lg.Info("database opened", "dir", dir, "files", len(m.Files), "generation", db.recov.Generation)
	return db, nil
}

// recover runs the startup marker reconciliation. CorruptionSuspected
// surfaces unwrapped so callers can test for it directly.
func (db *DB) recover() error {
	handles := make([]handle.Handle, 0, len(db.engines))
	for _, eng := range db.engines {
		handles = append(handles, eng)
	}

	res, err := recovery.Check(handles, db.lg)
	if err != nil {
		db.lg.Error("recovery failed", err, "dir", db.dir)
		return err
	}
	db.recov = res
	return nil
}

// Submit applies a mutation to the named file inside the open transaction
// group. Recovery has already completed by the time Submit is reachable.
func (db *DB) Submit(fileID string, m handle.Mutation) error {
	if err := db.checkOpen("submit"); err != nil {
		return err
	}
	return db.sched.Submit(fileID, m)
}

// Query runs a read statement against the named file.
func (db *DB) Query(fileID, query string, args ...any) ([][]string, error) {
	if err := db.checkOpen("query"); err != nil {
		return nil, err
	}
	eng, ok := db.engines[fileID]
	if !ok {
		return nil, wrapDBErr("query", ErrUnknownFile, fileID, nil)
	}
	return eng.Query(query, args...)
}

// RequestFlush closes the current group on demand. Cancellable via ctx only
// until the commit cycle begins.
func (db *DB) RequestFlush(ctx context.Context) error {
	if err := db.checkOpen("flush"); err != nil {
		return err
	}
	return db.sched.RequestFlush(ctx)
}

// BeginJob marks the start of a long-running job; the commit timer defers
// rather than interrupting it.
func (db *DB) BeginJob() { db.sched.BeginJob() }

// EndJob marks the end of a long-running job.
func (db *DB) EndJob() { db.sched.EndJob() }

// State returns the scheduler's current state.
func (db *DB) State() scheduler.State { return db.sched.State() }

// Generations returns each file's current commit generation marker.
func (db *DB) Generations() map[string]uint64 {
	out := make(map[string]uint64, len(db.engines))
	for name, eng := range db.engines {
		out[name] = eng.Generation()
	}
	return out
}

// RecoveryResult reports the startup reconciliation outcome.
func (db *DB) RecoveryResult() *recovery.Result { return db.recov }

// CheckSpillSpace verifies room for a disk-spooled intermediate of roughly
// the given size before a large job starts.
func (db *DB) CheckSpillSpace(fileID string, bytes int64) error {
	if err := db.checkOpen("spill"); err != nil {
		return err
	}
	eng, ok := db.engines[fileID]
	if !ok {
		return wrapDBErr("spill", ErrUnknownFile, fileID, nil)
	}
	return eng.CheckSpillSpace(bytes)
}

func (db *DB) Dir() string { return db.dir }

// Policy returns the immutable settings snapshot in effect.
func (db *DB) Policy() *policy.Policy { return db.pol }

// Files returns the file roster in commit order.
func (db *DB) Files() []string {
	names := make([]string, 0, len(db.engines))
	for name := range db.engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close flushes pending work, stops the scheduler, and closes every handle.
func (db *DB) Close() error {
	db.mu.Lock()
	if db.closed {
		db.mu.Unlock()
		return wrapDBErr("close", ErrClosed, db.dir, nil)
	}
	db.closed = true
	db.mu.Unlock()

	db.lg.Info("closing database", "dir", db.dir)

	if err := db.sched.RequestFlush(context.Background()); err != nil {
		db.lg.Error("flush on close failed", err, "dir", db.dir)
	}
	db.sched.Stop()

	if err := db.closeEngines(); err != nil {
		return wrapDBErr("close", ErrCloseFailed, db.dir, err)
	}
	return nil
}

func (db *DB) closeEngines() error {
	var lastErr error
	for _, name := range db.Files() {
		if err := db.engines[name].Close(); err != nil {
			db.lg.Error("unable to close file handle", err, "file", name)
			lastErr = err
		}
	}
	return lastErr
}

func (db *DB) checkOpen(op string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return wrapDBErr(op, ErrClosed, db.dir, nil)
	}
	return nil
}
