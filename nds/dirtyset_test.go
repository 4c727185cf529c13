package nds

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirtySetTouchAndIsDirty(t *testing.T) {
	s := newDirtySet()
	assert.False(t, s.isDirty([]byte("a")))
	s.touch([]byte("a"))
	assert.True(t, s.isDirty([]byte("a")))
	assert.Equal(t, 1, s.dirtyCount())
}

func TestDirtySetRotateRequiresEmptyFlushing(t *testing.T) {
	s := newDirtySet()
	s.touch([]byte("a"))

	flushing, err := s.rotate()
	require.NoError(t, err)
	assert.Len(t, flushing, 1)
	assert.Equal(t, 0, s.dirtyCount())
	assert.Equal(t, 1, s.flushingCount())
	assert.True(t, s.isDirty([]byte("a")), "a key mid-flush is still shadowed")

	_, err = s.rotate()
	assert.Error(t, err, "rotating with a non-empty flushing set must be rejected")
}

func TestDirtySetMergeBackOnFailure(t *testing.T) {
	s := newDirtySet()
	s.touch([]byte("a"))
	s.touch([]byte("b"))
	_, err := s.rotate()
	require.NoError(t, err)

	s.touch([]byte("c")) // accrues in the fresh dirty set during the flush

	s.mergeBack()
	assert.Equal(t, 0, s.flushingCount())
	assert.Equal(t, 3, s.dirtyCount())
}

func TestDirtySetClearFlushingOnSuccess(t *testing.T) {
	s := newDirtySet()
	s.touch([]byte("a"))
	_, err := s.rotate()
	require.NoError(t, err)

	s.clearFlushing()
	assert.Equal(t, 0, s.flushingCount())
	assert.False(t, s.isDirty([]byte("a")))
}
