// Package manifest persists the resolved durability settings and the file
// roster for a database directory. The manifest is written once at init and
// is authoritative on every later open; changing any recorded option
// requires an explicit re-init.
package manifest

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/julianstephens/go-utils/helpers"
	"github.com/julianstephens/go-utils/jsonutil"

	"github.com/swiftcitrus/hydrus/internal/hydrus"
	"github.com/swiftcitrus/hydrus/internal/hydrus/policy"
)

// Manifest is the on-disk settings snapshot for one database directory.
type Manifest struct {
	Version             int      `json:"version"`
	JournalMode         string   `json:"journal_mode"`
	CommitPeriodSeconds int      `json:"commit_period_seconds"`
	CacheSizeMB         int      `json:"cache_size_mb"`
	SynchronousLevel    int      `json:"synchronous_level"`
	SpillToDisk         bool     `json:"spill_to_disk"`
	TempDirectory       string   `json:"temp_directory,omitempty"`
	ServerRole          bool     `json:"server_role,omitempty"`
	Files               []string `json:"files"`
}

// FromPolicy snapshots a resolved policy and file roster.
func FromPolicy(pol *policy.Policy, files []string) *Manifest {
	return &Manifest{
		Version:             hydrus.ManifestVersion,
		JournalMode:         string(pol.JournalMode()),
		CommitPeriodSeconds: int(pol.CommitPeriod() / time.Second),
		CacheSizeMB:         int(pol.CacheBytes() / (1024 * 1024)),
		SynchronousLevel:    int(pol.Synchronous()),
		SpillToDisk:         pol.SpillToDisk(),
		TempDirectory:       pol.SpillDir(),
		ServerRole:          pol.ServerRole(),
		Files:               append([]string(nil), files...),
	}
}

// Options rebuilds the raw option set recorded in the manifest, for
// re-resolving into a policy on open.
func (m *Manifest) Options() hydrus.Options {
	period := m.CommitPeriodSeconds
	cache := m.CacheSizeMB
	sync := m.SynchronousLevel
	spill := m.SpillToDisk
	return hydrus.Options{
		JournalMode:         m.JournalMode,
		CommitPeriodSeconds: &period,
		CacheSizeMB:         &cache,
		SynchronousLevel:    &sync,
		SpillToDisk:         &spill,
		TempDirectory:       m.TempDirectory,
		ServerRole:          m.ServerRole,
	}
}

// Init writes a fresh manifest into dir. Fails if one already exists.
func Init(dir string, m *Manifest) error {
	if err := helpers.Ensure(dir, true); err != nil {
		return &ManifestError{Kind: ManifestErrorKindWrite, Err: err}
	}

	path := filepath.Join(dir, hydrus.ManifestFileName)
	if helpers.Exists(path) {
		return &ManifestError{
			Kind: ManifestErrorKindAlreadyExists,
			Err:  fmt.Errorf("manifest already exists at %s", path),
		}
	}
	return write(path, m)
}

// Load reads the manifest from dir.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, hydrus.ManifestFileName)
	if !helpers.Exists(path) {
		return nil, &ManifestError{Kind: ManifestErrorKindNotFound, Err: fs.ErrNotExist}
	}

	m := &Manifest{}
	if err := jsonutil.ReadFileStrict(path, m); err != nil {
		return nil, &ManifestError{Kind: ManifestErrorKindDecode, Err: err}
	}

	if m.Version > hydrus.ManifestVersion {
		return nil, &ManifestError{
			Kind: ManifestErrorKindUnsupportedVersion,
			Err:  fmt.Errorf("manifest version %d is not supported", m.Version),
		}
	}
	if len(m.Files) == 0 {
		return nil, &ManifestError{
			Kind: ManifestErrorKindCorrupted,
			Err:  fmt.Errorf("manifest at %s lists no files", path),
		}
	}
	return m, nil
}

// Save rewrites an existing manifest in dir.
func (m *Manifest) Save(dir string) error {
	path := filepath.Join(dir, hydrus.ManifestFileName)
	if !helpers.Exists(path) {
		return &ManifestError{Kind: ManifestErrorKindNotFound, Err: fs.ErrNotExist}
	}
	return write(path, m)
}

func write(path string, m *Manifest) error {
	data, err := jsonutil.Marshal(m)
	if err != nil {
		return &ManifestError{Kind: ManifestErrorKindEncode, Err: err}
	}

	if err := helpers.AtomicFileWrite(path, data); err != nil {
		return &ManifestError{Kind: ManifestErrorKindWrite, Err: err}
	}
	f, err := os.Open(filepath.Dir(path)) //nolint:gosec
	if err != nil {
		return &ManifestError{Kind: ManifestErrorKindWrite, Err: err}
	}
	defer func() { _ = f.Close() }()

	if err := f.Sync(); err != nil {
		return &ManifestError{Kind: ManifestErrorKindWrite, Err: err}
	}
	return nil
}
