package testutil

import (
	"testing"

	tst "github.com/julianstephens/go-utils/tests"

	"github.com/swiftcitrus/hydrus/internal/hydrus"
	"github.com/swiftcitrus/hydrus/internal/hydrus/db"
	"github.com/swiftcitrus/hydrus/internal/logger"
)

// DefaultTestFiles is a small multi-file roster in commit order.
var DefaultTestFiles = []string{"client.caches.db", "client.db", "client.mappings.db"}

// SetupTestDB initializes a database directory with the given options.
func SetupTestDB(t *testing.T, dir string, opts hydrus.Options) {
	t.Helper()
	err := db.Init(dir, DefaultTestFiles, opts, logger.NoOpLogger{})
	tst.RequireNoError(t, err)
}

// IntPtr returns a pointer to n, for building Options literals.
func IntPtr(n int) *int { return &n }

// BoolPtr returns a pointer to b, for building Options literals.
func BoolPtr(b bool) *bool { return &b }
