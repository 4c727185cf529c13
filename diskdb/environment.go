// Package diskdb is the disk backend adapter: it binds the abstract
// "ordered on-disk key-value engine" the spec assumes to a concrete one,
// go.etcd.io/bbolt, the same role LMDB played in the original — a
// memory-mapped, single-writer, ACID-transactional store with named tables.
package diskdb

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/prometheus/tsdb/fileutil"
	"go.etcd.io/bbolt"

	"github.com/freezerdb/nds/log"
)

// DefaultInitialMmapSize reserves generous virtual address space up front,
// mirroring the original's 1TiB LMDB map-size reservation: the backend is
// memory-mapped, so an oversized reservation only costs address space, not
// physical memory, and avoids a remap stall under write pressure.
const DefaultInitialMmapSize = 1 << 40 // 1 TiB

// DefaultMaxTxBytes bounds how much a single bbolt transaction is allowed
// to accumulate before DiskDB.Put proactively commits and begins a new one
// (see Put). bbolt has no hard per-transaction ceiling the way LMDB's
// map-full error does, so this is a policy knob, not a hardware limit.
const DefaultMaxTxBytes = 64 << 20 // 64 MiB

// Config configures an Environment.
type Config struct {
	// Dir is the directory holding the bbolt data file and any snapshot
	// siblings.
	Dir string
	// InitialMmapSize is passed to bbolt.Options.InitialMmapSize.
	InitialMmapSize int
	// MaxTxBytes bounds per-transaction accumulation; see DiskDB.Put.
	MaxTxBytes int
}

func (c Config) withDefaults() Config {
	if c.InitialMmapSize == 0 {
		c.InitialMmapSize = DefaultInitialMmapSize
	}
	if c.MaxTxBytes == 0 {
		c.MaxTxBytes = DefaultMaxTxBytes
	}
	return c
}

// dataFileName is the bbolt data file within Config.Dir.
const dataFileName = "nds.db"

// lockFileName is the advisory lock guarding against double-open from two
// processes, the same role core/rawdb's prunedfreezer gives
// fileutil.Flock.
const lockFileName = ".nds.flock"

// Environment is the process-wide handle to the on-disk engine. It is
// lazily created on first use, closed immediately before a flush hands off
// to its own goroutine, and reopened independently by whichever side
// touches it next.
type Environment struct {
	cfg Config

	mu   sync.Mutex
	db   *bbolt.DB
	lock fileutil.Releaser
}

// NewEnvironment constructs an Environment without opening anything yet.
func NewEnvironment(cfg Config) *Environment {
	return &Environment{cfg: cfg.withDefaults()}
}

// ensureOpen lazily opens the bbolt file and takes the directory lock, iff
// not already open. Safe to call repeatedly and concurrently.
func (e *Environment) ensureOpen() (*bbolt.DB, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.db != nil {
		return e.db, nil
	}
	if err := os.MkdirAll(e.cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("diskdb: create dir %s: %w", e.cfg.Dir, err)
	}
	lock, _, err := fileutil.Flock(filepath.Join(e.cfg.Dir, lockFileName))
	if err != nil {
		return nil, fmt.Errorf("diskdb: lock environment: %w", err)
	}
	db, err := bbolt.Open(filepath.Join(e.cfg.Dir, dataFileName), 0o600, &bbolt.Options{
		InitialMmapSize: e.cfg.InitialMmapSize,
	})
	if err != nil {
		lock.Release()
		return nil, fmt.Errorf("diskdb: open environment: %w", err)
	}
	log.Info("Opened NDS environment", "dir", e.cfg.Dir)
	e.db = db
	e.lock = lock
	return db, nil
}

// Close releases the environment. It is idempotent; the next ensureOpen
// (from any goroutine) reopens it. A flush calls it before handing off to
// its own goroutine, which then reopens this same Environment.
func (e *Environment) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.db == nil {
		return nil
	}
	err := e.db.Close()
	e.db = nil
	if e.lock != nil {
		if rerr := e.lock.Release(); rerr != nil && err == nil {
			err = rerr
		}
		e.lock = nil
	}
	log.Info("Closed NDS environment", "dir", e.cfg.Dir)
	return err
}

// Dir returns the environment's backing directory.
func (e *Environment) Dir() string {
	return e.cfg.Dir
}
