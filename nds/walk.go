package nds

import (
	"github.com/freezerdb/nds/diskdb"
	"github.com/freezerdb/nds/eventloop"
)

// WalkCallback is invoked once per on-disk key found by WalkNDS. Returning
// cont=false stops the walk early without it being treated as an error.
type WalkCallback func(db int, key []byte) (cont bool, err error)

// WalkNDS performs a single forward pass over db's on-disk table, yielding
// to y every Config.YieldEvery keys so a long walk never starves whatever
// else is waiting on the cooperative event loop.
func (r *NDSRuntime) WalkNDS(db int, y eventloop.Yielder, cb WalkCallback) error {
	if err := r.checkDB(db); err != nil {
		return err
	}
	h, err := diskdb.Open(r.env, db, diskdb.Read)
	if err != nil {
		return err
	}
	defer h.Close()

	count := 0
	return h.Iterate(func(k, v []byte) (bool, error) {
		cont, cbErr := cb(db, k)
		count++
		if y != nil && r.cfg.YieldEvery > 0 && count%r.cfg.YieldEvery == 0 {
			y.Yield()
		}
		if cbErr != nil {
			return false, cbErr
		}
		return cont, nil
	})
}

// PreloadNDS bulk-populates every logical database's Store from disk. It is
// idempotent — guarded by preloadInProgress/preloadComplete exactly as the
// spec requires — so a second call after completion is a no-op, and a
// concurrent call while one is running is rejected rather than double
// walking the keyspace.
func (r *NDSRuntime) PreloadNDS(y eventloop.Yielder) error {
	r.mu.Lock()
	if r.preloadComplete {
		r.mu.Unlock()
		return nil
	}
	if r.preloadInProgress {
		r.mu.Unlock()
		return ErrBusy
	}
	r.preloadInProgress = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.preloadInProgress = false
		r.mu.Unlock()
	}()

	for db := range r.sets {
		err := r.WalkNDS(db, y, func(db int, key []byte) (bool, error) {
			if _, ok := r.mem[db].Get(key); ok {
				return true, nil
			}
			v, found, err := r.GetNDS(db, key)
			if err != nil {
				return false, err
			}
			if found {
				r.mem[db].Set(key, v)
			}
			return true, nil
		})
		if err != nil {
			return err
		}
	}

	r.mu.Lock()
	r.preloadComplete = true
	r.mu.Unlock()
	return nil
}
