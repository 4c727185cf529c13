package diskdb

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEnv(t *testing.T) *Environment {
	t.Helper()
	return NewEnvironment(Config{Dir: t.TempDir()})
}

func TestPutGetDeleteRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	defer env.Close()

	w, err := Open(env, 0, Write)
	require.NoError(t, err)
	require.NoError(t, w.Put([]byte("a"), []byte("1")))
	require.NoError(t, w.Close())

	r, err := Open(env, 0, Read)
	require.NoError(t, err)
	v, err := r.Get([]byte("a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), v)
	require.NoError(t, r.Close())

	w2, err := Open(env, 0, Write)
	require.NoError(t, err)
	deleted, err := w2.Delete([]byte("a"))
	require.NoError(t, err)
	assert.True(t, deleted)
	require.NoError(t, w2.Close())

	r2, err := Open(env, 0, Read)
	require.NoError(t, err)
	_, err = r2.Get([]byte("a"))
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, r2.Close())
}

func TestDeleteNotFound(t *testing.T) {
	env := newTestEnv(t)
	defer env.Close()

	w, err := Open(env, 0, Write)
	require.NoError(t, err)
	deleted, err := w.Delete([]byte("missing"))
	require.NoError(t, err)
	assert.False(t, deleted)
	require.NoError(t, w.Close())
}

func TestGetOnNeverWrittenTableReturnsNotFound(t *testing.T) {
	env := newTestEnv(t)
	defer env.Close()

	r, err := Open(env, 5, Read)
	require.NoError(t, err)
	_, err = r.Get([]byte("a"))
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, r.Close())
}

func TestLogicalDatabasesAreIsolated(t *testing.T) {
	env := newTestEnv(t)
	defer env.Close()

	w0, err := Open(env, 0, Write)
	require.NoError(t, err)
	require.NoError(t, w0.Put([]byte("k"), []byte("db0")))
	require.NoError(t, w0.Close())

	r1, err := Open(env, 1, Read)
	require.NoError(t, err)
	_, err = r1.Get([]byte("k"))
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, r1.Close())
}

func TestPutRetriesAcrossTransactionRotation(t *testing.T) {
	env := NewEnvironment(Config{Dir: filepath.Join(t.TempDir()), MaxTxBytes: 32})
	defer env.Close()

	w, err := Open(env, 0, Write)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		key := []byte(fmt.Sprintf("key-%02d", i))
		require.NoError(t, w.Put(key, []byte("some-value-bytes")))
	}
	require.NoError(t, w.Close())

	r, err := Open(env, 0, Read)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		key := []byte(fmt.Sprintf("key-%02d", i))
		v, err := r.Get(key)
		require.NoError(t, err)
		assert.Equal(t, []byte("some-value-bytes"), v)
	}
	require.NoError(t, r.Close())
}

func TestDropEmptiesTable(t *testing.T) {
	env := newTestEnv(t)
	defer env.Close()

	w, err := Open(env, 0, Write)
	require.NoError(t, err)
	require.NoError(t, w.Put([]byte("a"), []byte("1")))
	require.NoError(t, w.Drop())
	require.NoError(t, w.Close())

	r, err := Open(env, 0, Read)
	require.NoError(t, err)
	_, err = r.Get([]byte("a"))
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, r.Close())
}

func TestIterateVisitsAllKeysInOrder(t *testing.T) {
	env := newTestEnv(t)
	defer env.Close()

	w, err := Open(env, 0, Write)
	require.NoError(t, err)
	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, w.Put([]byte(k), []byte(k+k)))
	}
	require.NoError(t, w.Close())

	r, err := Open(env, 0, Read)
	require.NoError(t, err)
	var seen []string
	require.NoError(t, r.Iterate(func(k, v []byte) (bool, error) {
		seen = append(seen, string(k))
		return true, nil
	}))
	require.NoError(t, r.Close())
	assert.Equal(t, []string{"a", "b", "c"}, seen)
}

func TestIterateStopsEarly(t *testing.T) {
	env := newTestEnv(t)
	defer env.Close()

	w, err := Open(env, 0, Write)
	require.NoError(t, err)
	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, w.Put([]byte(k), []byte(k)))
	}
	require.NoError(t, w.Close())

	r, err := Open(env, 0, Read)
	require.NoError(t, err)
	var seen int
	require.NoError(t, r.Iterate(func(k, v []byte) (bool, error) {
		seen++
		return seen < 2, nil
	}))
	require.NoError(t, r.Close())
	assert.Equal(t, 2, seen)
}

func TestSnapshotToCopiesConsistentData(t *testing.T) {
	env := newTestEnv(t)
	defer env.Close()

	w, err := Open(env, 0, Write)
	require.NoError(t, err)
	require.NoError(t, w.Put([]byte("a"), []byte("1")))
	require.NoError(t, w.Close())

	snapDir := filepath.Join(t.TempDir(), "snapshot")
	require.NoError(t, env.SnapshotTo(snapDir))

	snapEnv := NewEnvironment(Config{Dir: snapDir})
	defer snapEnv.Close()
	r, err := Open(snapEnv, 0, Read)
	require.NoError(t, err)
	v, err := r.Get([]byte("a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), v)
	require.NoError(t, r.Close())
}
