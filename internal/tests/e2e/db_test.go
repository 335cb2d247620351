package e2e_test

import (
	"context"
	"testing"

	tst "github.com/julianstephens/go-utils/tests"

	"github.com/swiftcitrus/hydrus/internal/hydrus"
	"github.com/swiftcitrus/hydrus/internal/hydrus/db"
	"github.com/swiftcitrus/hydrus/internal/hydrus/handle"
	"github.com/swiftcitrus/hydrus/internal/testutil"
)

// TestFullLifecycle walks the complete flow: init, open, mutate several files
// inside one group, flush, reopen, and verify both data and markers survived.
func TestFullLifecycle(t *testing.T) {
	dir := t.TempDir()
	testutil.SetupTestDB(t, dir, hydrus.Options{
		JournalMode:         "WAL",
		CommitPeriodSeconds: testutil.IntPtr(30),
	})

	d, err := db.Open(dir, nil)
	tst.RequireNoError(t, err)

	tst.RequireNoError(t, d.Submit("client.db", handle.Mutation{
		SQL: `CREATE TABLE files (hash TEXT PRIMARY KEY, size INTEGER);`,
	}))
	tst.RequireNoError(t, d.Submit("client.db", handle.Mutation{
		SQL:  `INSERT INTO files VALUES (?, ?);`,
		Args: []any{"abc123", 1024},
	}))
	tst.RequireNoError(t, d.Submit("client.mappings.db", handle.Mutation{
		SQL: `CREATE TABLE mappings (hash TEXT, tag TEXT);`,
	}))
	tst.RequireNoError(t, d.Submit("client.mappings.db", handle.Mutation{
		SQL:  `INSERT INTO mappings VALUES (?, ?);`,
		Args: []any{"abc123", "series:example"},
	}))

	tst.RequireNoError(t, d.RequestFlush(context.Background()))

	// Both touched files advanced together; the untouched one did not.
	gens := d.Generations()
	tst.AssertEqual(t, gens["client.db"], uint64(1), "expected touched file advanced")
	tst.AssertEqual(t, gens["client.mappings.db"], uint64(1), "expected touched file advanced")
	tst.AssertEqual(t, gens["client.caches.db"], uint64(0), "expected untouched file unchanged")

	tst.RequireNoError(t, d.Close())

	d2, err := db.Open(dir, nil)
	tst.RequireNoError(t, err)
	defer func() { _ = d2.Close() }()

	rows, err := d2.Query("client.db", `SELECT hash, size FROM files;`)
	tst.RequireNoError(t, err)
	tst.RequireDeepEqual(t, rows, [][]string{{"abc123", "1024"}})

	rows, err = d2.Query("client.mappings.db", `SELECT tag FROM mappings WHERE hash = ?;`, "abc123")
	tst.RequireNoError(t, err)
	tst.RequireDeepEqual(t, rows, [][]string{{"series:example"}})

	tst.RequireDeepEqual(t, d2.Generations(), map[string]uint64{
		"client.caches.db":   0,
		"client.db":          1,
		"client.mappings.db": 1,
	})
}

// TestMultipleCommitCycles verifies markers stay in lockstep across several
// flush cycles when every file is touched each cycle.
func TestMultipleCommitCycles(t *testing.T) {
	dir := t.TempDir()
	testutil.SetupTestDB(t, dir, hydrus.Options{})

	d, err := db.Open(dir, nil)
	tst.RequireNoError(t, err)
	defer func() { _ = d.Close() }()

	for _, name := range testutil.DefaultTestFiles {
		tst.RequireNoError(t, d.Submit(name, handle.Mutation{
			SQL: `CREATE TABLE t (n INTEGER);`,
		}))
	}
	tst.RequireNoError(t, d.RequestFlush(context.Background()))

	for cycle := 1; cycle <= 3; cycle++ {
		for _, name := range testutil.DefaultTestFiles {
			tst.RequireNoError(t, d.Submit(name, handle.Mutation{
				SQL:  `INSERT INTO t VALUES (?);`,
				Args: []any{cycle},
			}))
		}
		tst.RequireNoError(t, d.RequestFlush(context.Background()))
	}

	for _, name := range testutil.DefaultTestFiles {
		tst.AssertEqual(t, d.Generations()[name], uint64(4), "expected lockstep markers")

		rows, err := d.Query(name, `SELECT count(*) FROM t;`)
		tst.RequireNoError(t, err)
		tst.RequireDeepEqual(t, rows, [][]string{{"3"}})
	}
}

// TestReopenAfterSkewContinues simulates a crash that left the first file of
// a cycle durable and verifies the database reopens, reports the skew, and
// keeps committing normally afterward.
func TestReopenAfterSkewContinues(t *testing.T) {
	dir := t.TempDir()
	testutil.SetupTestDB(t, dir, hydrus.Options{})

	d, err := db.Open(dir, nil)
	tst.RequireNoError(t, err)
	tst.RequireNoError(t, d.Submit("client.caches.db", handle.Mutation{
		SQL: `CREATE TABLE c (n INTEGER);`,
	}))
	tst.RequireNoError(t, d.RequestFlush(context.Background()))
	tst.RequireNoError(t, d.Close())

	// client.caches.db is now one generation ahead of the rest, exactly the
	// durable state a crash between the first and second commit of a cycle
	// leaves behind.
	d2, err := db.Open(dir, nil)
	tst.RequireNoError(t, err)
	defer func() { _ = d2.Close() }()

	res := d2.RecoveryResult()
	tst.AssertTrue(t, res.Skewed, "expected prefix skew reported")
	tst.RequireDeepEqual(t, res.Ahead, []string{"client.caches.db"})
	tst.AssertEqual(t, res.Generation, uint64(0), "expected resume at lowest marker")

	// The database keeps working after a tolerated skew.
	tst.RequireNoError(t, d2.Submit("client.db", handle.Mutation{
		SQL: `CREATE TABLE f (n INTEGER);`,
	}))
	tst.RequireNoError(t, d2.RequestFlush(context.Background()))
	tst.AssertEqual(t, d2.Generations()["client.db"], uint64(1), "expected commits to continue")
}

// TestJobDeferralEndToEnd drives a long-running job through the public
// surface and verifies the flush waits for it.
func TestJobDeferralEndToEnd(t *testing.T) {
	dir := t.TempDir()
	testutil.SetupTestDB(t, dir, hydrus.Options{})

	d, err := db.Open(dir, nil)
	tst.RequireNoError(t, err)
	defer func() { _ = d.Close() }()

	tst.RequireNoError(t, d.Submit("client.db", handle.Mutation{
		SQL: `CREATE TABLE t (n INTEGER);`,
	}))

	d.BeginJob()
	flushed := make(chan error, 1)
	go func() { flushed <- d.RequestFlush(context.Background()) }()

	select {
	case <-flushed:
		t.Fatal("flush completed while a job was in flight")
	default:
	}

	d.EndJob()
	tst.RequireNoError(t, <-flushed)
	tst.AssertEqual(t, d.Generations()["client.db"], uint64(1), "expected commit after job ended")
}
