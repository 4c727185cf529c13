package diskdb

import (
	"fmt"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"
)

// SnapshotTo copies the environment's data file to destDir, a sibling
// directory, under a read-only transaction. bbolt guarantees tx.CopyFile
// produces a consistent point-in-time copy even while the environment
// remains open for writers afterward — the concrete backend primitive the
// spec calls for in place of a filesystem-level snapshot.
func (e *Environment) SnapshotTo(destDir string) error {
	bdb, err := e.ensureOpen()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("diskdb: create snapshot dir: %w", err)
	}
	dest := filepath.Join(destDir, dataFileName)
	return bdb.View(func(tx *bbolt.Tx) error {
		return tx.CopyFile(dest, 0o600)
	})
}
