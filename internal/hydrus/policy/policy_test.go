package policy_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	tst "github.com/julianstephens/go-utils/tests"

	"github.com/swiftcitrus/hydrus/internal/hydrus"
	"github.com/swiftcitrus/hydrus/internal/hydrus/policy"
	"github.com/swiftcitrus/hydrus/internal/logger"
)

func intPtr(n int) *int    { return &n }
func boolPtr(b bool) *bool { return &b }

func TestResolveDefaults(t *testing.T) {
	pol, err := policy.Resolve(hydrus.Options{}, logger.NoOpLogger{})
	tst.RequireNoError(t, err)

	tst.AssertEqual(t, pol.JournalMode(), policy.JournalWAL, "expected WAL default")
	tst.AssertEqual(t, pol.CommitPeriod(), 30*time.Second, "expected 30s default period")
	tst.AssertEqual(t, pol.CacheBytes(), int64(256*1024*1024), "expected 256MB default cache")
	tst.AssertEqual(t, pol.Synchronous(), policy.SyncNormal, "expected synchronous 1 under WAL")
	tst.AssertTrue(t, pol.SpillToDisk(), "expected spill enabled by default")
	tst.AssertTrue(t, pol.SpillDir() != "", "expected a default spill dir")
	tst.AssertTrue(t, !pol.Clamped(), "expected no clamping with defaults")
}

func TestResolveServerRolePeriod(t *testing.T) {
	pol, err := policy.Resolve(hydrus.Options{ServerRole: true}, logger.NoOpLogger{})
	tst.RequireNoError(t, err)
	tst.AssertEqual(t, pol.CommitPeriod(), 120*time.Second, "expected server-role default period")
}

func TestResolveSynchronousDefaultNonWAL(t *testing.T) {
	for _, mode := range []string{"TRUNCATE", "PERSIST", "MEMORY"} {
		pol, err := policy.Resolve(hydrus.Options{JournalMode: mode}, logger.NoOpLogger{})
		tst.RequireNoError(t, err)
		tst.AssertEqual(t, pol.Synchronous(), policy.SyncFull, "expected synchronous 2 outside WAL")
	}
}

func TestResolveClampsShortPeriod(t *testing.T) {
	pol, err := policy.Resolve(hydrus.Options{CommitPeriodSeconds: intPtr(5)}, logger.NoOpLogger{})
	tst.RequireNoError(t, err)
	tst.AssertEqual(t, pol.CommitPeriod(), 10*time.Second, "expected clamp to 10s")
	tst.AssertTrue(t, pol.Clamped(), "expected clamp reported")
}

func TestResolveAcceptsMinimumPeriod(t *testing.T) {
	pol, err := policy.Resolve(hydrus.Options{CommitPeriodSeconds: intPtr(10)}, logger.NoOpLogger{})
	tst.RequireNoError(t, err)
	tst.AssertEqual(t, pol.CommitPeriod(), 10*time.Second, "expected 10s accepted")
	tst.AssertTrue(t, !pol.Clamped(), "expected no clamp at the boundary")
}

func TestResolveInvalidJournalMode(t *testing.T) {
	_, err := policy.Resolve(hydrus.Options{JournalMode: "DELETE"}, logger.NoOpLogger{})
	tst.AssertTrue(t, errors.Is(err, policy.ErrInvalidOption), "expected invalid option error")
}

func TestResolveInvalidCacheSize(t *testing.T) {
	_, err := policy.Resolve(hydrus.Options{CacheSizeMB: intPtr(0)}, logger.NoOpLogger{})
	tst.AssertTrue(t, errors.Is(err, policy.ErrInvalidOption), "expected invalid option error")
}

func TestResolveInvalidSynchronousLevel(t *testing.T) {
	_, err := policy.Resolve(hydrus.Options{SynchronousLevel: intPtr(4)}, logger.NoOpLogger{})
	tst.AssertTrue(t, errors.Is(err, policy.ErrInvalidOption), "expected invalid option error")
}

func TestTruncateDegradesToPersist(t *testing.T) {
	pol, err := policy.Resolve(hydrus.Options{JournalMode: "TRUNCATE"}, logger.NoOpLogger{})
	tst.RequireNoError(t, err)
	tst.AssertEqual(t, pol.JournalMode(), policy.JournalTruncate, "requested mode preserved")
	tst.AssertEqual(t, pol.EffectiveJournalMode(), policy.JournalPersist, "effective mode degraded")
}

func TestResolveSpillDisabled(t *testing.T) {
	pol, err := policy.Resolve(hydrus.Options{SpillToDisk: boolPtr(false)}, logger.NoOpLogger{})
	tst.RequireNoError(t, err)
	tst.AssertTrue(t, !pol.SpillToDisk(), "expected spill disabled")
	tst.AssertEqual(t, pol.SpillDir(), "", "expected no spill dir when disabled")
}

func TestLoadFileMissingFile(t *testing.T) {
	_, err := policy.LoadFile(filepath.Join(t.TempDir(), "nope.json"))
	tst.AssertTrue(t, errors.Is(err, policy.ErrLoadFailed), "expected load failure")
	tst.AssertTrue(t, !errors.Is(err, policy.ErrUnknownOption), "expected no unknown-option classification")
}

func TestLoadFileMalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "options.json")
	tst.RequireNoError(t, os.WriteFile(path, []byte(`{"journal_mode": `), 0o600))

	_, err := policy.LoadFile(path)
	tst.AssertTrue(t, errors.Is(err, policy.ErrLoadFailed), "expected load failure")
}

func TestLoadFileUnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "options.json")
	tst.RequireNoError(t, os.WriteFile(path, []byte(`{"journl_mode": "WAL"}`), 0o600))

	_, err := policy.LoadFile(path)
	tst.AssertTrue(t, errors.Is(err, policy.ErrUnknownOption), "expected unknown option error")
}

func TestLoadFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "options.json")
	tst.RequireNoError(t, os.WriteFile(path,
		[]byte(`{"journal_mode":"PERSIST","commit_period_seconds":45}`), 0o600))

	opts, err := policy.LoadFile(path)
	tst.RequireNoError(t, err)
	tst.AssertEqual(t, opts.JournalMode, "PERSIST", "expected mode loaded")
	tst.AssertEqual(t, *opts.CommitPeriodSeconds, 45, "expected period loaded")
}

func TestFromMapUnknownOption(t *testing.T) {
	_, err := policy.FromMap(map[string]any{"journal_mod": "WAL"})
	tst.AssertTrue(t, errors.Is(err, policy.ErrUnknownOption), "expected unknown option error")
}

func TestFromMapWrongType(t *testing.T) {
	_, err := policy.FromMap(map[string]any{"commit_period_seconds": "thirty"})
	tst.AssertTrue(t, errors.Is(err, policy.ErrInvalidOption), "expected invalid option error")
}

func TestFromMapRoundTrip(t *testing.T) {
	opts, err := policy.FromMap(map[string]any{
		"journal_mode":          "PERSIST",
		"commit_period_seconds": float64(45),
		"cache_size_mb":         128,
		"synchronous_level":     3,
		"spill_to_disk":         false,
		"temp_directory":        "/tmp/spool",
	})
	tst.RequireNoError(t, err)

	pol, err := policy.Resolve(opts, logger.NoOpLogger{})
	tst.RequireNoError(t, err)
	tst.AssertEqual(t, pol.JournalMode(), policy.JournalPersist, "expected PERSIST")
	tst.AssertEqual(t, pol.CommitPeriod(), 45*time.Second, "expected 45s period")
	tst.AssertEqual(t, pol.CacheBytes(), int64(128*1024*1024), "expected 128MB cache")
	tst.AssertEqual(t, pol.Synchronous(), policy.SyncExtra, "expected synchronous 3")
	tst.AssertTrue(t, !pol.SpillToDisk(), "expected spill disabled")
}

func TestFromMapFractionalPeriodRejected(t *testing.T) {
	_, err := policy.FromMap(map[string]any{"commit_period_seconds": 30.5})
	tst.AssertTrue(t, errors.Is(err, policy.ErrInvalidOption), "expected invalid option error")
}
