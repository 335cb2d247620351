package sqlite_test

import (
	"errors"
	"testing"
	"time"

	tst "github.com/julianstephens/go-utils/tests"

	"github.com/swiftcitrus/hydrus/internal/hydrus"
	"github.com/swiftcitrus/hydrus/internal/hydrus/handle"
	"github.com/swiftcitrus/hydrus/internal/hydrus/policy"
	"github.com/swiftcitrus/hydrus/internal/hydrus/sqlite"
	"github.com/swiftcitrus/hydrus/internal/logger"
)

func boolPtr(b bool) *bool { return &b }

func openEngine(t *testing.T, dir, name string) *sqlite.Engine {
	t.Helper()
	pol, err := policy.Resolve(hydrus.Options{}, logger.NoOpLogger{})
	tst.RequireNoError(t, err)
	e, err := sqlite.Open(dir, name, pol, nil)
	tst.RequireNoError(t, err)
	return e
}

func TestOpenFreshFileStartsAtGenerationZero(t *testing.T) {
	e := openEngine(t, t.TempDir(), "client.db")
	defer func() { _ = e.Close() }()

	tst.AssertEqual(t, e.Name(), "client.db", "expected identity preserved")
	tst.AssertEqual(t, e.Generation(), uint64(0), "expected fresh file at generation 0")
	tst.AssertTrue(t, !e.InTransaction(), "expected no open transaction")
}

func TestCommitAdvancesGenerationDurably(t *testing.T) {
	dir := t.TempDir()

	e := openEngine(t, dir, "client.db")
	tst.RequireNoError(t, e.Begin())
	tst.RequireNoError(t, e.Execute(handle.Mutation{
		SQL: `CREATE TABLE files (hash TEXT PRIMARY KEY, size INTEGER);`,
	}))
	tst.RequireNoError(t, e.Execute(handle.Mutation{
		SQL:  `INSERT INTO files VALUES (?, ?);`,
		Args: []any{"abc123", 42},
	}))
	tst.RequireNoError(t, e.Commit())
	tst.AssertEqual(t, e.Generation(), uint64(1), "expected generation advanced with data")
	tst.RequireNoError(t, e.Close())

	// The marker and the data survive reopen together.
	e2 := openEngine(t, dir, "client.db")
	defer func() { _ = e2.Close() }()
	tst.AssertEqual(t, e2.Generation(), uint64(1), "expected durable generation marker")

	rows, err := e2.Query(`SELECT hash, size FROM files;`)
	tst.RequireNoError(t, err)
	tst.RequireDeepEqual(t, rows, [][]string{{"abc123", "42"}})
}

func TestRollbackDiscardsTransaction(t *testing.T) {
	e := openEngine(t, t.TempDir(), "client.db")
	defer func() { _ = e.Close() }()

	tst.RequireNoError(t, e.Begin())
	tst.RequireNoError(t, e.Execute(handle.Mutation{SQL: `CREATE TABLE t (n INTEGER);`}))
	tst.RequireNoError(t, e.Rollback())

	tst.AssertEqual(t, e.Generation(), uint64(0), "expected generation unchanged after rollback")
	_, err := e.Query(`SELECT n FROM t;`)
	tst.AssertNotNil(t, err, "expected rolled-back table absent")
}

func TestDoubleBeginRejected(t *testing.T) {
	e := openEngine(t, t.TempDir(), "client.db")
	defer func() { _ = e.Close() }()

	tst.RequireNoError(t, e.Begin())
	err := e.Begin()
	tst.AssertTrue(t, errors.Is(err, handle.ErrAlreadyOpenTransaction), "expected nested begin rejected")
}

func TestExecuteOutsideTransaction(t *testing.T) {
	e := openEngine(t, t.TempDir(), "client.db")
	defer func() { _ = e.Close() }()

	err := e.Execute(handle.Mutation{SQL: `SELECT 1;`})
	tst.AssertTrue(t, errors.Is(err, handle.ErrNoTransaction), "expected execute without begin rejected")
}

func TestSecondOpenBlockedByLock(t *testing.T) {
	dir := t.TempDir()
	pol, err := policy.Resolve(hydrus.Options{}, logger.NoOpLogger{})
	tst.RequireNoError(t, err)

	e := openEngine(t, dir, "client.db")
	defer func() { _ = e.Close() }()

	_, err = sqlite.Open(dir, "client.db", pol, nil)
	tst.AssertTrue(t, errors.Is(err, handle.ErrStorageUnavailable), "expected second open rejected")
}

func TestLockReleasedOnClose(t *testing.T) {
	dir := t.TempDir()

	e := openEngine(t, dir, "client.db")
	tst.RequireNoError(t, e.Close())

	e2 := openEngine(t, dir, "client.db")
	tst.RequireNoError(t, e2.Close())
}

func TestQuerySeesUncommittedWritesInTransaction(t *testing.T) {
	e := openEngine(t, t.TempDir(), "client.db")
	defer func() { _ = e.Close() }()

	tst.RequireNoError(t, e.Begin())
	tst.RequireNoError(t, e.Execute(handle.Mutation{SQL: `CREATE TABLE t (n INTEGER);`}))
	tst.RequireNoError(t, e.Execute(handle.Mutation{SQL: `INSERT INTO t VALUES (7);`}))

	rows, err := e.Query(`SELECT n FROM t;`)
	tst.RequireNoError(t, err)
	tst.RequireDeepEqual(t, rows, [][]string{{"7"}})

	tst.RequireNoError(t, e.Rollback())
}

func TestQueryAfterCommitReflectsNewData(t *testing.T) {
	e := openEngine(t, t.TempDir(), "client.db")
	defer func() { _ = e.Close() }()

	tst.RequireNoError(t, e.Begin())
	tst.RequireNoError(t, e.Execute(handle.Mutation{SQL: `CREATE TABLE t (n INTEGER);`}))
	tst.RequireNoError(t, e.Commit())

	// Warm any cached result for the read.
	rows, err := e.Query(`SELECT n FROM t;`)
	tst.RequireNoError(t, err)
	tst.AssertEqual(t, len(rows), 0, "expected empty table")

	tst.RequireNoError(t, e.Begin())
	tst.RequireNoError(t, e.Execute(handle.Mutation{SQL: `INSERT INTO t VALUES (1);`}))
	tst.RequireNoError(t, e.Commit())

	rows, err = e.Query(`SELECT n FROM t;`)
	tst.RequireNoError(t, err)
	tst.RequireDeepEqual(t, rows, [][]string{{"1"}})
}

func TestOperationsAfterClose(t *testing.T) {
	e := openEngine(t, t.TempDir(), "client.db")
	tst.RequireNoError(t, e.Close())

	tst.AssertTrue(t, errors.Is(e.Begin(), handle.ErrClosed), "expected begin rejected after close")
	_, err := e.Query(`SELECT 1;`)
	tst.AssertTrue(t, errors.Is(err, handle.ErrClosed), "expected query rejected after close")
	tst.AssertTrue(t, errors.Is(e.Close(), handle.ErrClosed), "expected double close rejected")
}

func TestMaintainBeforePeriodsIsNoOp(t *testing.T) {
	e := openEngine(t, t.TempDir(), "client.db")
	defer func() { _ = e.Close() }()

	tst.RequireNoError(t, e.Maintain(time.Now()))
}

func TestMaintainRunsCheckpointsAfterPeriods(t *testing.T) {
	e := openEngine(t, t.TempDir(), "client.db")
	defer func() { _ = e.Close() }()

	// Well past both the passive and truncate checkpoint periods.
	tst.RequireNoError(t, e.Maintain(time.Now().Add(time.Hour)))
}

func TestSpillDirectoryApplied(t *testing.T) {
	spillDir := t.TempDir()
	pol, err := policy.Resolve(hydrus.Options{TempDirectory: spillDir}, logger.NoOpLogger{})
	tst.RequireNoError(t, err)

	e, err := sqlite.Open(t.TempDir(), "client.db", pol, nil)
	tst.RequireNoError(t, err)
	defer func() { _ = e.Close() }()

	rows, err := e.Query(`PRAGMA temp_store_directory;`)
	tst.RequireNoError(t, err)
	tst.RequireDeepEqual(t, rows, [][]string{{spillDir}})
}

func TestSpillDisabledKeepsTempInMemory(t *testing.T) {
	pol, err := policy.Resolve(hydrus.Options{
		SpillToDisk: boolPtr(false),
	}, logger.NoOpLogger{})
	tst.RequireNoError(t, err)

	e, err := sqlite.Open(t.TempDir(), "client.db", pol, nil)
	tst.RequireNoError(t, err)
	defer func() { _ = e.Close() }()

	rows, err := e.Query(`PRAGMA temp_store;`)
	tst.RequireNoError(t, err)
	tst.RequireDeepEqual(t, rows, [][]string{{"2"}})
}

func TestCheckSpillSpace(t *testing.T) {
	e := openEngine(t, t.TempDir(), "client.db")
	defer func() { _ = e.Close() }()

	tst.RequireNoError(t, e.CheckSpillSpace(4096))

	err := e.CheckSpillSpace(1 << 60)
	tst.AssertTrue(t, errors.Is(err, sqlite.ErrInsufficientSpace), "expected oversized spill rejected")
}
