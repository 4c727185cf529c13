package nds

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freezerdb/nds/codec"
	"github.com/freezerdb/nds/diskdb"
)

func TestSnapshotCopiesCommittedData(t *testing.T) {
	rt, maps := newFlushTestRuntime(t, 1)
	maps[0].Set([]byte("a"), codec.Value{Type: 1, Data: []byte("1")})
	require.NoError(t, rt.Touch(0, []byte("a")))

	reply := make(chan Reply, 1)
	require.NoError(t, rt.RequestSnapshot(reply))

	select {
	case rep := <-reply:
		require.NoError(t, rep.Err)
		assert.True(t, rep.OK)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for snapshot reply")
	}

	matches, err := filepath.Glob(filepath.Join(rt.cfg.Dir, "snapshot-*"))
	require.NoError(t, err)
	require.Len(t, matches, 1, "expected exactly one snapshot directory")

	snapEnv := diskdb.NewEnvironment(diskdb.Config{Dir: matches[0]})
	defer snapEnv.Close()
	h, err := diskdb.Open(snapEnv, 0, diskdb.Read)
	require.NoError(t, err)
	defer h.Close()

	raw, err := h.Get([]byte("a"))
	require.NoError(t, err)
	v, err := codec.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), v.Data)
}

func TestPlainFlushDoesNotCreateSnapshot(t *testing.T) {
	rt, maps := newFlushTestRuntime(t, 1)
	maps[0].Set([]byte("a"), codec.Value{Type: 1, Data: []byte("1")})
	require.NoError(t, rt.Touch(0, []byte("a")))

	reply := make(chan Reply, 1)
	require.NoError(t, rt.RequestFlush(reply))
	select {
	case rep := <-reply:
		require.NoError(t, rep.Err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for flush reply")
	}

	matches, err := filepath.Glob(filepath.Join(rt.cfg.Dir, "snapshot-*"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}
