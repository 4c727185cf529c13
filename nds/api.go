package nds

import (
	"github.com/freezerdb/nds/codec"
	"github.com/freezerdb/nds/diskdb"
	"github.com/freezerdb/nds/log"
)

// GetNDS reconciles memory, the dirty-set, and disk for one read. A dirty
// key's authoritative copy lives in mem; if the caller already missed there
// (or this key is mid-flush), NDS must not resurrect a possibly-stale disk
// copy, so it reports absence rather than consulting disk at all.
func (r *NDSRuntime) GetNDS(db int, key []byte) (codec.Value, bool, error) {
	if err := r.checkDB(db); err != nil {
		return codec.Value{}, false, err
	}
	if r.sets[db].isDirty(key) {
		return codec.Value{}, false, nil
	}

	ck := cacheKey(db, key)
	if cached, ok := r.cache.HasGet(nil, ck); ok {
		if v, err := codec.Decode(cached); err == nil {
			r.metrics.recordCacheHit()
			return v, true, nil
		}
		// A corrupted cache entry is as good as absent; don't trust it,
		// and don't let it keep shadowing a good read from disk.
		r.cache.Del(ck)
	}
	r.metrics.recordCacheMiss()

	h, err := diskdb.Open(r.env, db, diskdb.Read)
	if err != nil {
		return codec.Value{}, false, err
	}
	raw, getErr := h.Get(key)
	if closeErr := h.Close(); closeErr != nil {
		return codec.Value{}, false, closeErr
	}
	if getErr != nil {
		if getErr == diskdb.ErrNotFound {
			return codec.Value{}, false, nil
		}
		return codec.Value{}, false, getErr
	}

	v, err := codec.Decode(raw)
	if err != nil {
		log.Warn("NDS read a corrupt record, treating as absent", "db", db, "key", string(key), "err", err)
		return codec.Value{}, false, nil
	}
	r.cache.Set(ck, raw)
	return v, true, nil
}

// SetNDS persists val for key directly, bypassing the dirty-set. It is the
// path a cache layer uses when evicting or explicitly persisting a value
// produced outside the ordinary Touch/flush workflow, so it does not mark
// key dirty — there is no in-memory copy left to flush later.
func (r *NDSRuntime) SetNDS(db int, key []byte, val codec.Value, present bool) error {
	if err := r.checkDB(db); err != nil {
		return err
	}
	if !present {
		// The key was deleted between lookup and SetNDS; the delete path
		// already handles persistence for it.
		return nil
	}
	encoded := codec.Encode(val)
	h, err := diskdb.Open(r.env, db, diskdb.Write)
	if err != nil {
		return err
	}
	if err := h.Put(key, encoded); err != nil {
		h.Close()
		return err
	}
	if err := h.Close(); err != nil {
		return err
	}
	r.cache.Set(cacheKey(db, key), encoded)
	return nil
}

// DelNDS removes key from disk, reporting whether it was present.
func (r *NDSRuntime) DelNDS(db int, key []byte) (bool, error) {
	if err := r.checkDB(db); err != nil {
		return false, err
	}
	h, err := diskdb.Open(r.env, db, diskdb.Write)
	if err != nil {
		return false, err
	}
	deleted, delErr := h.Delete(key)
	if delErr != nil {
		h.Close()
		return false, delErr
	}
	if err := h.Close(); err != nil {
		return false, err
	}
	r.cache.Del(cacheKey(db, key))
	return deleted, nil
}

// ExistsNDS applies the same dirty-shadow rule as GetNDS without paying for
// a decode.
func (r *NDSRuntime) ExistsNDS(db int, key []byte) (bool, error) {
	if err := r.checkDB(db); err != nil {
		return false, err
	}
	if r.sets[db].isDirty(key) {
		return false, nil
	}
	h, err := diskdb.Open(r.env, db, diskdb.Read)
	if err != nil {
		return false, err
	}
	_, getErr := h.Get(key)
	closeErr := h.Close()
	if getErr != nil {
		if getErr == diskdb.ErrNotFound {
			return false, nil
		}
		return false, getErr
	}
	return true, closeErr
}
