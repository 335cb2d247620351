// Package sqlite backs a file handle with a real SQLite database file. It
// applies the resolved durability policy as PRAGMAs, keeps the commit
// generation marker in a meta table advanced atomically with the data, and
// holds a per-file advisory lock so two instances never open the same files.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/julianstephens/go-utils/helpers"
	"github.com/julianstephens/go-utils/jsonutil"
	_ "modernc.org/sqlite"

	"github.com/swiftcitrus/hydrus/internal/hydrus"
	"github.com/swiftcitrus/hydrus/internal/hydrus/handle"
	"github.com/swiftcitrus/hydrus/internal/hydrus/policy"
	"github.com/swiftcitrus/hydrus/internal/logger"
)

// Engine implements handle.Handle over one SQLite file.
type Engine struct {
	name string
	dir  string
	path string
	pol  *policy.Policy
	lg   logger.Logger

	mu     sync.Mutex
	db     *sql.DB
	tx     *sql.Tx
	gen    uint64
	closed bool

	lock  *flock.Flock
	cache *ristretto.Cache[string, []byte]

	lastPassiveCheckpoint  time.Time
	lastTruncateCheckpoint time.Time
	lastJournalZero        time.Time
}

var _ handle.Handle = (*Engine)(nil)

// Open opens or creates the named database file under dir, applies the
// policy, acquires the advisory lock, and loads the generation marker.
// Fails with handle.ErrStorageUnavailable if the path cannot be created or
// the lock is held by another instance.
func Open(dir, name string, pol *policy.Policy, lg logger.Logger) (*Engine, error) {
	if lg == nil {
		lg = logger.NoOpLogger{}
	}
	if err := helpers.Ensure(dir, true); err != nil {
		return nil, handle.WrapErr("open", handle.ErrStorageUnavailable, name, err)
	}

	e := &Engine{
		name: name,
		dir:  dir,
		path: filepath.Join(dir, name),
		pol:  pol,
		lg:   lg,
	}

	lockPath := e.path + hydrus.LockFileSuffix
	e.lock = flock.New(lockPath)
	held, err := e.lock.TryLock()
	if err != nil {
		return nil, handle.WrapErr("open", handle.ErrStorageUnavailable, name, err)
	}
	if !held {
		return nil, handle.WrapErr("open", handle.ErrStorageUnavailable, name,
			fmt.Errorf("locked by another instance (%s)", lockPath))
	}

	// Stamp the lock file with this process's instance ID for diagnostics.
	instance := uuid.NewString()
	if err := os.WriteFile(lockPath, []byte(instance+"\n"), 0o600); err != nil {
		lg.Warn("unable to stamp lock file", "file", name, "reason", err.Error())
	}

	db, err := sql.Open("sqlite", e.path)
	if err != nil {
		_ = e.lock.Unlock()
		return nil, handle.WrapErr("open", handle.ErrStorageUnavailable, name, err)
	}
	db.SetMaxOpenConns(1)
	e.db = db

	if err := e.applyPolicy(); err != nil {
		_ = db.Close()
		_ = e.lock.Unlock()
		return nil, err
	}
	if err := e.loadGeneration(); err != nil {
		_ = db.Close()
		_ = e.lock.Unlock()
		return nil, err
	}

	cache, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: pol.CacheBytes() / 1024 * 10,
		MaxCost:     pol.CacheBytes(),
		BufferItems: 64,
	})
	if err != nil {
		_ = db.Close()
		_ = e.lock.Unlock()
		return nil, handle.WrapErr("open", handle.ErrStorageUnavailable, name, err)
	}
	e.cache = cache

	now := time.Now()
	e.lastPassiveCheckpoint = now
	e.lastTruncateCheckpoint = now
	e.lastJournalZero = now

	lg.Info("file handle opened",
		"file", name,
		"generation", e.gen,
		"journal_mode", string(pol.EffectiveJournalMode()),
		"instance", instance)
	return e, nil
}

func (e *Engine) applyPolicy() error {
	pragmas := []string{
		fmt.Sprintf("PRAGMA journal_mode = %s;", e.pol.EffectiveJournalMode()),
		fmt.Sprintf("PRAGMA synchronous = %d;", e.pol.Synchronous()),
		// Negative cache_size is a budget in KiB.
		fmt.Sprintf("PRAGMA cache_size = %d;", -(e.pol.CacheBytes() / 1024)),
		fmt.Sprintf("PRAGMA journal_size_limit = %d;", hydrus.JournalSizeLimit),
	}
	if e.pol.SpillToDisk() {
		pragmas = append(pragmas, "PRAGMA temp_store = 1;")
		if dir := e.pol.SpillDir(); dir != "" {
			pragmas = append(pragmas, fmt.Sprintf("PRAGMA temp_store_directory = '%s';",
				strings.ReplaceAll(dir, "'", "''")))
		}
	} else {
		pragmas = append(pragmas, "PRAGMA temp_store = 2;")
	}

	for _, p := range pragmas {
		if _, err := e.db.Exec(p); err != nil {
			return handle.WrapErr("open", handle.ErrStorageUnavailable, e.name, err)
		}
	}
	return nil
}

func (e *Engine) loadGeneration() error {
	_, err := e.db.Exec(
		`CREATE TABLE IF NOT EXISTS meta (id INTEGER PRIMARY KEY CHECK (id = 0), generation INTEGER NOT NULL);`)
	if err != nil {
		return handle.WrapErr("open", handle.ErrStorageUnavailable, e.name, err)
	}
	_, err = e.db.Exec(
		`INSERT INTO meta (id, generation) SELECT 0, 0 WHERE NOT EXISTS (SELECT 1 FROM meta WHERE id = 0);`)
	if err != nil {
		return handle.WrapErr("open", handle.ErrStorageUnavailable, e.name, err)
	}
	return e.refreshGeneration()
}

// refreshGeneration reloads the durable marker. Caller holds mu or is still
// single-threaded in Open.
func (e *Engine) refreshGeneration() error {
	row := e.db.QueryRow(`SELECT generation FROM meta WHERE id = 0;`)
	if err := row.Scan(&e.gen); err != nil {
		return handle.WrapErr("open", handle.ErrStorageUnavailable, e.name, err)
	}
	return nil
}

func (e *Engine) Name() string { return e.name }

func (e *Engine) Generation() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gen
}

func (e *Engine) InTransaction() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tx != nil
}

func (e *Engine) Begin() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return handle.WrapErr("begin", handle.ErrClosed, e.name, nil)
	}
	if e.tx != nil {
		return handle.WrapErr("begin", handle.ErrAlreadyOpenTransaction, e.name, nil)
	}
	tx, err := e.db.Begin()
	if err != nil {
		return handle.WrapErr("begin", handle.ErrStorageUnavailable, e.name, err)
	}
	e.tx = tx
	return nil
}

func (e *Engine) Execute(m handle.Mutation) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return handle.WrapErr("execute", handle.ErrClosed, e.name, nil)
	}
	if e.tx == nil {
		return handle.WrapErr("execute", handle.ErrNoTransaction, e.name, nil)
	}
	if _, err := e.tx.Exec(m.SQL, m.Args...); err != nil {
		return handle.WrapErr("execute", err, e.name, nil)
	}
	return nil
}

// Commit advances the generation marker inside the same SQLite transaction
// as the cycle's mutations, then makes both durable together. On failure the
// in-memory state rolls back to the last durable generation.
func (e *Engine) Commit() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return handle.WrapErr("commit", handle.ErrClosed, e.name, nil)
	}
	if e.tx == nil {
		return handle.WrapErr("commit", handle.ErrNoTransaction, e.name, nil)
	}

	if _, err := e.tx.Exec(`UPDATE meta SET generation = generation + 1 WHERE id = 0;`); err != nil {
		_ = e.tx.Rollback()
		e.tx = nil
		if rErr := e.refreshGeneration(); rErr != nil {
			e.lg.Error("unable to reload generation after failed commit", rErr, "file", e.name)
		}
		return handle.WrapErr("commit", handle.ErrCommitFailed, e.name, err)
	}
	if err := e.tx.Commit(); err != nil {
		e.tx = nil
		if rErr := e.refreshGeneration(); rErr != nil {
			e.lg.Error("unable to reload generation after failed commit", rErr, "file", e.name)
		}
		return handle.WrapErr("commit", handle.ErrCommitFailed, e.name, err)
	}

	e.tx = nil
	e.gen++
	e.cache.Clear()
	e.lg.Debug("handle committed", "file", e.name, "generation", e.gen)
	return nil
}

func (e *Engine) Rollback() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return handle.WrapErr("rollback", handle.ErrClosed, e.name, nil)
	}
	if e.tx == nil {
		return nil
	}
	err := e.tx.Rollback()
	e.tx = nil
	if err != nil {
		return handle.WrapErr("rollback", err, e.name, nil)
	}
	return nil
}

// Query runs a read statement. Outside a transaction, results are served
// through the per-handle cache, bounded by the policy's cache budget; inside
// one, reads go straight to the transaction so uncommitted writes are
// visible and never cached.
func (e *Engine) Query(query string, args ...any) ([][]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, handle.WrapErr("query", handle.ErrClosed, e.name, nil)
	}

	if e.tx != nil {
		rows, err := e.tx.Query(query, args...)
		if err != nil {
			return nil, handle.WrapErr("query", err, e.name, nil)
		}
		return scanAll(rows)
	}

	key := cacheKey(query, args)
	if data, ok := e.cache.Get(key); ok {
		var cached [][]string
		if err := json.Unmarshal(data, &cached); err == nil {
			return cached, nil
		}
	}

	rows, err := e.db.Query(query, args...)
	if err != nil {
		return nil, handle.WrapErr("query", err, e.name, nil)
	}
	result, err := scanAll(rows)
	if err != nil {
		return nil, err
	}

	if data, err := jsonutil.Marshal(result); err == nil {
		e.cache.Set(key, data, int64(len(data)))
	}
	return result, nil
}

func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return handle.WrapErr("close", handle.ErrClosed, e.name, nil)
	}
	e.closed = true

	if e.tx != nil {
		_ = e.tx.Rollback()
		e.tx = nil
	}
	e.cache.Close()
	err := e.db.Close()
	if uErr := e.lock.Unlock(); uErr != nil && err == nil {
		err = uErr
	}
	if err != nil {
		return handle.WrapErr("close", err, e.name, nil)
	}
	e.lg.Info("file handle closed", "file", e.name, "generation", e.gen)
	return nil
}

func cacheKey(query string, args []any) string {
	return query + "\x00" + fmt.Sprint(args...)
}

func scanAll(rows *sql.Rows) ([][]string, error) {
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out [][]string
	for rows.Next() {
		raw := make([]sql.NullString, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make([]string, len(cols))
		for i, v := range raw {
			if v.Valid {
				row[i] = v.String
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
