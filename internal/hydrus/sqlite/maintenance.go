package sqlite

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"github.com/swiftcitrus/hydrus/internal/hydrus"
	"github.com/swiftcitrus/hydrus/internal/hydrus/policy"
)

// Maintain piggybacks periodic upkeep on a successful commit cycle: WAL
// checkpoints under WAL mode, journal zeroing under PERSIST. The scheduler
// calls it after each successful cycle; failures are reported, not fatal.
func (e *Engine) Maintain(now time.Time) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || e.tx != nil {
		return nil
	}

	switch e.pol.EffectiveJournalMode() {
	case policy.JournalWAL:
		if now.Sub(e.lastPassiveCheckpoint) < hydrus.WALPassiveCheckpointPeriod {
			return nil
		}
		if now.Sub(e.lastTruncateCheckpoint) >= hydrus.WALTruncateCheckpointPeriod {
			if _, err := e.db.Exec(`PRAGMA wal_checkpoint(TRUNCATE);`); err != nil {
				return err
			}
			e.lastTruncateCheckpoint = now
			e.lg.Debug("wal truncate checkpoint", "file", e.name)
		} else {
			if _, err := e.db.Exec(`PRAGMA wal_checkpoint(PASSIVE);`); err != nil {
				return err
			}
			e.lg.Debug("wal passive checkpoint", "file", e.name)
		}
		e.lastPassiveCheckpoint = now

	case policy.JournalPersist:
		if now.Sub(e.lastJournalZero) < hydrus.JournalZeroPeriod {
			return nil
		}
		if err := e.zeroJournal(); err != nil {
			return err
		}
		e.lastJournalZero = now
		e.lg.Debug("journal zeroed", "file", e.name)
	}

	return nil
}

// zeroJournal shrinks the persistent journal back to nothing, then restores
// the steady-state size limit. Caller holds mu.
func (e *Engine) zeroJournal() error {
	if _, err := e.db.Exec(`PRAGMA journal_size_limit = 0;`); err != nil {
		return err
	}
	_, err := e.db.Exec(fmt.Sprintf("PRAGMA journal_size_limit = %d;", hydrus.JournalSizeLimit))
	return err
}

// CheckSpillSpace verifies there is room for a disk-spooled intermediate of
// roughly the given size, with ten percent headroom, at the spill location
// (the database directory when spilling is disabled).
func (e *Engine) CheckSpillSpace(bytes int64) error {
	dir := e.pol.SpillDir()
	if dir == "" {
		dir = e.dir
	}

	var st unix.Statfs_t
	if err := unix.Statfs(dir, &st); err != nil {
		return handleSpaceErr(e.name, err)
	}

	free := int64(st.Bavail) * st.Bsize
	needed := bytes + bytes/10
	if free < needed {
		e.lg.Warn("insufficient space for disk spill",
			"file", e.name, "dir", dir, "needed", needed, "free", free)
		return handleSpaceErr(e.name,
			fmt.Errorf("need about %d bytes at %s, have %d", needed, dir, free))
	}
	return nil
}
