package hydrus

// Options is the raw configuration surface consumed from the external
// CLI/config loader. Pointer fields distinguish "not supplied" from an
// explicit zero so the policy layer can apply mode-dependent defaults.
//
// Options are consulted once, when the database directory is first
// initialized; afterwards the manifest snapshot is authoritative and
// changing any of these requires a re-init.
type Options struct {
	// JournalMode selects the per-file write-durability strategy.
	// One of WAL, TRUNCATE, PERSIST, MEMORY. Defaults to WAL.
	JournalMode string `json:"journal_mode,omitempty"`

	// CommitPeriodSeconds is the interval of the periodic commit timer.
	// Values below 10 are clamped to 10 with a reported warning.
	CommitPeriodSeconds *int `json:"commit_period_seconds,omitempty"`

	// CacheSizeMB is the per-file in-memory cache ceiling.
	CacheSizeMB *int `json:"cache_size_mb,omitempty"`

	// SynchronousLevel controls how aggressively each commit forces
	// physical disk sync (0-3). Defaults to 1 under WAL, else 2.
	SynchronousLevel *int `json:"synchronous_level,omitempty"`

	// SpillToDisk allows large intermediate results to use temp-file
	// storage instead of memory. Defaults to true.
	SpillToDisk *bool `json:"spill_to_disk,omitempty"`

	// TempDirectory is the location for disk-spooled intermediates.
	TempDirectory string `json:"temp_directory,omitempty"`

	// ServerRole selects the longer default commit period used by
	// server-role instances.
	ServerRole bool `json:"server_role,omitempty"`
}
