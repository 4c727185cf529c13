package nds

import (
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/freezerdb/nds/codec"
	"github.com/freezerdb/nds/diskdb"
	"github.com/freezerdb/nds/log"
)

// preparedWrite is a (key, encoded-or-tombstone) pair computed on the
// foreground goroutine at rotation time — the Go rendering of "encode under
// the foreground turn, hand bytes to the background" that takes the place
// of fork's copy-on-write isolation. The flush goroutine never reads mem or
// a live dirtySet again once it has this slice.
type preparedWrite struct {
	key       []byte
	encoded   []byte
	tombstone bool
}

// startFlushLocked begins a flush (plain or snapshotting). Callers must
// hold r.mu and have already set r.flush.bgRequestor to the channel that
// should receive the eventual Reply.
func (r *NDSRuntime) startFlushLocked(snapshot bool) error {
	for db, s := range r.sets {
		if s.flushingCount() != 0 {
			log.Crit("NDS flush requested while a flushing set is non-empty", "db", db)
			return ErrFlushingNotEmpty
		}
	}

	batches := make(map[int][]preparedWrite, len(r.sets))
	for db, s := range r.sets {
		rotated, err := s.rotate()
		if err != nil {
			return err
		}
		if len(rotated) == 0 {
			continue
		}
		batch := make([]preparedWrite, 0, len(rotated))
		for k := range rotated {
			key := []byte(k)
			if val, ok := r.mem[db].Get(key); ok {
				batch = append(batch, preparedWrite{key: key, encoded: codec.Encode(val)})
			} else {
				batch = append(batch, preparedWrite{key: key, tombstone: true})
			}
		}
		batches[db] = batch
	}
	r.metrics.dirtyGauge.Set(float64(r.totalDirty()))
	r.metrics.flushingGauge.Set(float64(r.totalFlushing()))

	// Closing the shared environment here is the Go analogue of the
	// original's "close environment before fork". The flush goroutine
	// reopens the same shared Environment on its first diskdb.Open; any
	// foreground disk call made while the flush runs uses that reopened
	// *bbolt.DB too, with bbolt serializing the write transactions.
	if err := r.env.Close(); err != nil {
		log.Warn("NDS: error closing environment ahead of flush", "err", err)
	}

	r.flush.running = true
	r.flush.snapshotInProgress = snapshot
	// dirtyBeforeFlush captures the global mutation counter as it stood at
	// fork time, so reapFlush can subtract back out exactly the mutations
	// this flush accounts for, per spec.md §3/§4.4 — not the rotated
	// batch sizes above, which are distinct-key counts already reflected
	// in the per-DB dirty/flushing gauges.
	r.flush.dirtyBeforeFlush = atomic.LoadInt64(&r.globalDirty)
	r.metrics.flushesStarted.Inc()

	ch := r.sf.DoChan("flush", func() (interface{}, error) {
		return r.runFlushChild(batches, snapshot)
	})
	go func() {
		res := <-ch
		r.loop.Submit(func() { r.reapFlush(res) })
	}()
	return nil
}

// runFlushChild is the flush goroutine's body: the Go stand-in for the
// original's forked child. It touches only the batches it was handed and
// its own disk handles — never the live dirtySets or Store values.
func (r *NDSRuntime) runFlushChild(batches map[int][]preparedWrite, snapshot bool) (ok bool, err error) {
	defer func() {
		if p := recover(); p != nil {
			ok = false
			err = fmt.Errorf("nds: flush goroutine panicked: %v", p)
		}
	}()

	for db, batch := range batches {
		if len(batch) == 0 {
			continue
		}
		h, openErr := diskdb.Open(r.env, db, diskdb.Write)
		if openErr != nil {
			return false, fmt.Errorf("nds: flush: open db %d: %w", db, openErr)
		}
		for _, w := range batch {
			if w.tombstone {
				if _, delErr := h.Delete(w.key); delErr != nil {
					h.Close()
					return false, fmt.Errorf("nds: flush: delete in db %d: %w", db, delErr)
				}
				continue
			}
			if putErr := h.Put(w.key, w.encoded); putErr != nil {
				h.Close()
				return false, fmt.Errorf("nds: flush: put in db %d: %w", db, putErr)
			}
		}
		if closeErr := h.Close(); closeErr != nil {
			return false, fmt.Errorf("nds: flush: commit db %d: %w", db, closeErr)
		}
	}

	if snapshot {
		dest := filepath.Join(r.env.Dir(), fmt.Sprintf("snapshot-%s", uuid.NewString()))
		if err := r.env.SnapshotTo(dest); err != nil {
			return false, fmt.Errorf("nds: snapshot: %w", err)
		}
	}
	return true, nil
}

// reapFlush runs on the event-loop goroutine once a flush's result channel
// fires — the non-blocking-wait analogue, implemented as a push rather
// than a poll since a Go channel can signal completion directly.
func (r *NDSRuntime) reapFlush(res singleflight.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()

	success := res.Err == nil
	if success {
		if ok, _ := res.Val.(bool); !ok {
			success = false
		}
	}

	for _, s := range r.sets {
		if success {
			s.clearFlushing()
		} else {
			s.mergeBack()
		}
	}
	r.metrics.dirtyGauge.Set(float64(r.totalDirty()))
	r.metrics.flushingGauge.Set(float64(r.totalFlushing()))

	if success {
		atomic.AddInt64(&r.globalDirty, -r.flush.dirtyBeforeFlush)
		r.metrics.dirtyMutations.Set(float64(atomic.LoadInt64(&r.globalDirty)))
		r.metrics.flushSuccess.Inc()
	} else {
		r.metrics.flushFailure.Inc()
		log.Warn("NDS flush failed", "err", res.Err)
	}
	r.lastFlush = time.Now()

	requestor := r.flush.bgRequestor
	r.flush.bgRequestor = nil
	r.flush.running = false
	r.flush.snapshotInProgress = false
	sendReply(requestor, Reply{OK: success, Err: res.Err})

	if r.flush.snapshotPending {
		next := r.flush.pendingRequestor
		r.flush.pendingRequestor = nil
		r.flush.snapshotPending = false
		r.flush.bgRequestor = next
		if err := r.startFlushLocked(true); err != nil {
			r.flush.bgRequestor = nil
			sendReply(next, Reply{Err: err})
		}
	}
}
