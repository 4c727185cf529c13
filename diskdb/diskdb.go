package diskdb

import (
	"errors"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/freezerdb/nds/log"
)

// Mode selects whether an Open call wants a read-only or read-write
// transaction against the environment.
type Mode int

const (
	Read Mode = iota
	Write
)

// ErrNotFound is returned by Get when the key is absent. Delete reports
// absence through its bool result instead.
var ErrNotFound = errors.New("diskdb: key not found")

// tableName deterministically names the per-logical-DB bucket.
func tableName(db int) []byte {
	return []byte(fmt.Sprintf("freezer_%d", db))
}

// DiskDB is a handle bound to one logical DB and one open transaction. It
// is not safe for concurrent use — callers open, use, and close it within
// a single logical operation, exactly as the spec's nds_open/nds_close
// pair is used in the original.
type DiskDB struct {
	env      *Environment
	db       int
	mode     Mode
	tx       *bbolt.Tx
	bucket   *bbolt.Bucket
	txBytes  int
	maxBytes int
}

// Open lazily initializes env, begins a transaction, and opens (creating
// if writable and absent) the bucket for db.
func Open(env *Environment, db int, mode Mode) (*DiskDB, error) {
	bdb, err := env.ensureOpen()
	if err != nil {
		return nil, err
	}
	tx, err := bdb.Begin(mode == Write)
	if err != nil {
		return nil, fmt.Errorf("diskdb: begin transaction: %w", err)
	}
	d := &DiskDB{env: env, db: db, mode: mode, tx: tx, maxBytes: env.cfg.MaxTxBytes}
	if mode == Write {
		bucket, err := tx.CreateBucketIfNotExists(tableName(db))
		if err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("diskdb: open table %d: %w", db, err)
		}
		d.bucket = bucket
	} else {
		// A read-only transaction cannot create the bucket. If it
		// doesn't exist yet, every Get on this handle simply reports
		// not-found and Iterate visits nothing.
		d.bucket = tx.Bucket(tableName(db))
	}
	return d, nil
}

// Get retrieves the raw bytes stored under key, or ErrNotFound.
func (d *DiskDB) Get(key []byte) ([]byte, error) {
	if d.bucket == nil {
		return nil, ErrNotFound
	}
	v := d.bucket.Get(key)
	if v == nil {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

// Put writes val under key. bbolt has no LMDB-style map-full error, but a
// single transaction accumulates all its pending pages until commit; we
// bound that accumulation ourselves via maxBytes. Once a put would cross
// the threshold, the current transaction is committed, a new one is begun
// against the same bucket, and — critically — the put is issued against
// the new transaction before returning, so a successful Put is never
// dropped; it becomes durable at the next rotation or at Close.
func (d *DiskDB) Put(key, val []byte) error {
	if d.mode != Write {
		return fmt.Errorf("diskdb: put on read-only handle")
	}
	if d.txBytes > 0 && d.txBytes+len(key)+len(val) > d.maxBytes {
		if err := d.rotateTx(); err != nil {
			return err
		}
	}
	if err := d.bucket.Put(key, val); err != nil {
		return fmt.Errorf("diskdb: put: %w", err)
	}
	d.txBytes += len(key) + len(val)
	return nil
}

// rotateTx commits the current write transaction and begins a fresh one
// against the same bucket, resetting the byte accounting used by Put.
func (d *DiskDB) rotateTx() error {
	if err := d.tx.Commit(); err != nil {
		return fmt.Errorf("diskdb: commit on rotation: %w", err)
	}
	log.Debug("Rotated NDS transaction", "db", d.db, "bytes", d.txBytes)
	bdb := d.tx.DB()
	tx, err := bdb.Begin(true)
	if err != nil {
		return fmt.Errorf("diskdb: begin rotated transaction: %w", err)
	}
	bucket, err := tx.CreateBucketIfNotExists(tableName(d.db))
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("diskdb: reopen table %d after rotation: %w", d.db, err)
	}
	d.tx = tx
	d.bucket = bucket
	d.txBytes = 0
	return nil
}

// Delete removes key, reporting whether it was present.
func (d *DiskDB) Delete(key []byte) (bool, error) {
	if d.mode != Write {
		return false, fmt.Errorf("diskdb: delete on read-only handle")
	}
	if d.bucket == nil {
		return false, nil
	}
	if d.bucket.Get(key) == nil {
		return false, nil
	}
	if err := d.bucket.Delete(key); err != nil {
		return false, fmt.Errorf("diskdb: delete: %w", err)
	}
	return true, nil
}

// Iterate performs a single forward cursor pass over the table, invoking fn
// for every (key, value) pair. fn returns cont=false to stop early.
func (d *DiskDB) Iterate(fn func(k, v []byte) (cont bool, err error)) error {
	if d.bucket == nil {
		return nil
	}
	c := d.bucket.Cursor()
	for k, v := c.First(); k != nil; k, v = c.Next() {
		cont, err := fn(k, v)
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
	return nil
}

// Drop empties the table.
func (d *DiskDB) Drop() error {
	if d.mode != Write {
		return fmt.Errorf("diskdb: drop on read-only handle")
	}
	name := tableName(d.db)
	if d.bucket != nil {
		if err := d.tx.DeleteBucket(name); err != nil {
			return fmt.Errorf("diskdb: drop table %d: %w", d.db, err)
		}
	}
	bucket, err := d.tx.CreateBucketIfNotExists(name)
	if err != nil {
		return fmt.Errorf("diskdb: recreate table %d: %w", d.db, err)
	}
	d.bucket = bucket
	return nil
}

// Close commits (writable) or releases (read-only) the handle's
// transaction. Always call it exactly once per Open.
func (d *DiskDB) Close() error {
	if d.mode == Write {
		if err := d.tx.Commit(); err != nil {
			return fmt.Errorf("diskdb: commit: %w", err)
		}
		return nil
	}
	return d.tx.Rollback()
}
