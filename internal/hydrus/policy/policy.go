// Package policy resolves the external configuration surface into an
// immutable durability settings snapshot applied identically to every
// database file. A Policy is constructed once at startup and passed by
// reference; changing it requires a restart.
package policy

import (
	"os"
	"time"

	"github.com/swiftcitrus/hydrus/internal/hydrus"
	"github.com/swiftcitrus/hydrus/internal/logger"
)

// JournalMode selects the write-durability strategy for a database file.
type JournalMode string

const (
	JournalWAL      JournalMode = "WAL"
	JournalTruncate JournalMode = "TRUNCATE"
	JournalPersist  JournalMode = "PERSIST"
	JournalMemory   JournalMode = "MEMORY"
)

// Valid reports whether the mode is one of the recognized journal modes.
func (m JournalMode) Valid() bool {
	switch m {
	case JournalWAL, JournalTruncate, JournalPersist, JournalMemory:
		return true
	}
	return false
}

// Effective returns the mode actually applied to the files. Because the
// database is several files presented as one, TRUNCATE degrades to PERSIST;
// this is a known performance limitation, not a correctness one.
func (m JournalMode) Effective() JournalMode {
	if m == JournalTruncate {
		return JournalPersist
	}
	return m
}

// SyncLevel controls how aggressively each commit forces physical disk sync.
type SyncLevel int

const (
	SyncOff    SyncLevel = 0
	SyncNormal SyncLevel = 1
	SyncFull   SyncLevel = 2
	SyncExtra  SyncLevel = 3
)

// Valid reports whether the level is within the recognized 0-3 domain.
func (s SyncLevel) Valid() bool { return s >= SyncOff && s <= SyncExtra }

// Policy is the resolved, immutable settings snapshot.
type Policy struct {
	journalMode  JournalMode
	commitPeriod time.Duration
	cacheBytes   int64
	synchronous  SyncLevel
	spillToDisk  bool
	tempDir      string
	serverRole   bool
	clamped      bool
}

func (p *Policy) JournalMode() JournalMode { return p.journalMode }

// EffectiveJournalMode is the mode the storage engine is actually put in.
func (p *Policy) EffectiveJournalMode() JournalMode { return p.journalMode.Effective() }

func (p *Policy) CommitPeriod() time.Duration { return p.commitPeriod }

func (p *Policy) CacheBytes() int64 { return p.cacheBytes }

func (p *Policy) Synchronous() SyncLevel { return p.synchronous }

func (p *Policy) SpillToDisk() bool { return p.spillToDisk }

// SpillDir is the location for disk-spooled intermediates. Empty when
// spilling is disabled.
func (p *Policy) SpillDir() string {
	if !p.spillToDisk {
		return ""
	}
	return p.tempDir
}

func (p *Policy) ServerRole() bool { return p.serverRole }

// Clamped reports whether any supplied value was adjusted into range.
func (p *Policy) Clamped() bool { return p.clamped }

// Resolve validates the supplied options and produces the settings snapshot.
// Out-of-domain values fail with ErrInvalidOption; the only local repair is
// clamping a too-short commit period, which is reported, never fatal.
func Resolve(opts hydrus.Options, lg logger.Logger) (*Policy, error) {
	if lg == nil {
		lg = logger.NoOpLogger{}
	}

	p := &Policy{
		journalMode: JournalWAL,
		spillToDisk: true,
		serverRole:  opts.ServerRole,
	}

	if opts.JournalMode != "" {
		mode := JournalMode(opts.JournalMode)
		if !mode.Valid() {
			return nil, wrapConfigErr(ErrInvalidOption, "journal_mode", opts.JournalMode, nil)
		}
		p.journalMode = mode
	}

	p.commitPeriod = hydrus.DefaultCommitPeriod
	if opts.ServerRole {
		p.commitPeriod = hydrus.DefaultServerCommitPeriod
	}
	if opts.CommitPeriodSeconds != nil {
		period := time.Duration(*opts.CommitPeriodSeconds) * time.Second
		if period < hydrus.MinCommitPeriod {
			lg.Warn("commit period below minimum, clamping",
				"requested_seconds", *opts.CommitPeriodSeconds,
				"clamped_seconds", int(hydrus.MinCommitPeriod/time.Second))
			period = hydrus.MinCommitPeriod
			p.clamped = true
		}
		p.commitPeriod = period
	}

	cacheMB := hydrus.DefaultCacheSizeMB
	if opts.CacheSizeMB != nil {
		if *opts.CacheSizeMB <= 0 {
			return nil, wrapConfigErr(ErrInvalidOption, "cache_size_mb", *opts.CacheSizeMB, nil)
		}
		cacheMB = *opts.CacheSizeMB
	}
	p.cacheBytes = int64(cacheMB) * 1024 * 1024

	if opts.SynchronousLevel != nil {
		level := SyncLevel(*opts.SynchronousLevel)
		if !level.Valid() {
			return nil, wrapConfigErr(ErrInvalidOption, "synchronous_level", *opts.SynchronousLevel, nil)
		}
		p.synchronous = level
	} else if p.journalMode == JournalWAL {
		p.synchronous = SyncNormal
	} else {
		p.synchronous = SyncFull
	}

	if opts.SpillToDisk != nil {
		p.spillToDisk = *opts.SpillToDisk
	}

	p.tempDir = opts.TempDirectory
	if p.tempDir == "" {
		p.tempDir = os.TempDir()
	}

	lg.Debug("policy resolved",
		"journal_mode", string(p.journalMode),
		"effective_journal_mode", string(p.EffectiveJournalMode()),
		"commit_period", p.commitPeriod.String(),
		"cache_bytes", p.cacheBytes,
		"synchronous", int(p.synchronous),
		"spill_to_disk", p.spillToDisk)

	return p, nil
}
