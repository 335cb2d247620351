package hydrus

import "time"

const (
	ManifestFileName = "MANIFEST.json"
	ManifestVersion  = 1
	LockFileSuffix   = ".lock"
)

// Commit cycle defaults. The server role runs a longer cycle because its
// workload is dominated by background jobs rather than interactive writes.
const (
	DefaultCommitPeriod       = 30 * time.Second
	DefaultServerCommitPeriod = 120 * time.Second
	MinCommitPeriod           = 10 * time.Second
	DefaultCacheSizeMB        = 256

	// A commit deferred past this many periods is reported on every
	// subsequent timer fire until it lands.
	DeferralWarnFactor = 3
)

// Maintenance periods, measured against successful commits.
const (
	JournalSizeLimit            int64 = 128 * 1024 * 1024
	JournalZeroPeriod                 = 900 * time.Second
	WALPassiveCheckpointPeriod        = 300 * time.Second
	WALTruncateCheckpointPeriod       = 900 * time.Second
)

// Log file defaults
const (
	DefaultAppDir        = ".hydrus"
	DefaultLogDir        = "logs"
	DefaultLogFileName   = "hydrus.log"
	DefaultLogMaxSize    = 100
	DefaultLogMaxBackups = 3
	DefaultLogLevel      = "info"
)
