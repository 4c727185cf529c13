// Package nds implements the Naive Disk Store persistence core: dirty-key
// tracking, a goroutine-based background flush coordinator standing in for
// the original's fork, on-disk transaction coordination via diskdb, and the
// read-through/write-back API that reconciles memory, the dirty-set, and
// disk into one consistent view per key.
package nds

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/VictoriaMetrics/fastcache"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"

	"github.com/freezerdb/nds/diskdb"
	"github.com/freezerdb/nds/eventloop"
	"github.com/freezerdb/nds/memstore"
)

// Reply carries the deferred outcome of a background NDS subcommand back to
// whoever issued it.
type Reply struct {
	OK  bool
	Err error
}

// flushState collects the process-wide mutable state the design notes call
// out as C globals (child_pid, snapshot_*, bg_requestor) into one struct,
// guarded by NDSRuntime.mu instead of the single-threadedness a fork gave
// the original for free.
type flushState struct {
	running            bool
	snapshotInProgress bool
	snapshotPending    bool
	bgRequestor        chan<- Reply
	pendingRequestor   chan<- Reply
	dirtyBeforeFlush   int64
}

// NDSRuntime is the single context object threading every piece of that
// global state through the API instead of relying on package-level
// variables — the singleton, if wanted, becomes the caller's choice of how
// many NDSRuntime values exist, not a language feature.
type NDSRuntime struct {
	cfg   Config
	env   *diskdb.Environment
	mem   []memstore.Store
	sets  []*dirtySet
	cache *fastcache.Cache
	loop  *eventloop.Loop

	metrics *metricsSet
	sf      singleflight.Group

	mu        sync.Mutex
	flush     flushState
	lastFlush time.Time

	preloadInProgress bool
	preloadComplete   bool

	// globalDirty counts foreground mutations (Touch calls) since the
	// runtime started, independent of the per-DB dirty key *sets*: the
	// same key touched twice counts twice here even though dirtySet only
	// ever holds it once. A flush captures this value at start
	// (flushState.dirtyBeforeFlush) and subtracts it back out on success,
	// per spec.md §3/§4.4.
	globalDirty int64
}

// NewRuntime builds a runtime over cfg, one memstore.Store per logical
// database, and the cooperative loop that every foreground operation and
// flush reap runs on. reg may be nil to skip metrics registration (tests
// typically pass nil to avoid duplicate-registration panics across cases).
func NewRuntime(cfg Config, mem []memstore.Store, loop *eventloop.Loop, reg prometheus.Registerer) (*NDSRuntime, error) {
	cfg = cfg.withDefaults()
	if len(mem) != cfg.Databases {
		return nil, fmt.Errorf("nds: expected %d memstore.Store values for %d databases, got %d", cfg.Databases, cfg.Databases, len(mem))
	}
	sets := make([]*dirtySet, cfg.Databases)
	for i := range sets {
		sets[i] = newDirtySet()
	}
	return &NDSRuntime{
		cfg: cfg,
		env: diskdb.NewEnvironment(diskdb.Config{
			Dir:             cfg.Dir,
			MaxTxBytes:      cfg.MaxTxBytes,
			InitialMmapSize: cfg.InitialMmapSize,
		}),
		mem:     mem,
		sets:    sets,
		cache:   fastcache.New(cfg.CacheSizeBytes),
		loop:    loop,
		metrics: newMetrics(reg),
	}, nil
}

func (r *NDSRuntime) checkDB(db int) error {
	if db < 0 || db >= len(r.sets) {
		return ErrUnknownDB
	}
	return nil
}

// cacheKey namespaces the fastcache key space by logical database so two
// DBs sharing a byte-identical key never collide.
func cacheKey(db int, key []byte) []byte {
	out := make([]byte, 0, 4+len(key))
	out = append(out, byte(db>>24), byte(db>>16), byte(db>>8), byte(db))
	out = append(out, key...)
	return out
}

func (r *NDSRuntime) totalDirty() int {
	total := 0
	for _, s := range r.sets {
		total += s.dirtyCount()
	}
	return total
}

func (r *NDSRuntime) totalFlushing() int {
	total := 0
	for _, s := range r.sets {
		total += s.flushingCount()
	}
	return total
}

// Touch records that key's authoritative value in db now lives in memory
// (the caller's own Store mutation) and must be written back on the next
// flush. It also invalidates any cached disk copy, since that copy is now
// stale by construction.
func (r *NDSRuntime) Touch(db int, key []byte) error {
	if err := r.checkDB(db); err != nil {
		return err
	}
	r.sets[db].touch(key)
	r.cache.Del(cacheKey(db, key))
	atomic.AddInt64(&r.globalDirty, 1)
	r.metrics.dirtyGauge.Set(float64(r.totalDirty()))
	r.metrics.dirtyMutations.Set(float64(atomic.LoadInt64(&r.globalDirty)))
	return nil
}

// LastFlush reports when the most recent flush (successful or not) reaped.
func (r *NDSRuntime) LastFlush() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastFlush
}

// Close releases the runtime's disk environment. Call it only once the
// event loop has stopped and no flush is outstanding.
func (r *NDSRuntime) Close() error {
	return r.env.Close()
}
