package nds

import "fmt"

// dirtySet tracks, for one logical database, the keys mutated in memory
// since the last flush (dirty) and the keys a currently-running background
// flush is draining to disk (flushing). All mutation happens on the single
// cooperative foreground goroutine; the flush goroutine only ever sees the
// prepared batches built from the keys rotate returned, never this struct.
type dirtySet struct {
	dirty    map[string]struct{}
	flushing map[string]struct{}
}

func newDirtySet() *dirtySet {
	return &dirtySet{dirty: make(map[string]struct{})}
}

// touch marks key dirty. Idempotent.
func (s *dirtySet) touch(key []byte) {
	s.dirty[string(key)] = struct{}{}
}

// isDirty reports whether key is shadowed by either the dirty or the
// flushing set.
func (s *dirtySet) isDirty(key []byte) bool {
	k := string(key)
	if _, ok := s.dirty[k]; ok {
		return true
	}
	_, ok := s.flushing[k]
	return ok
}

// rotate asserts flushing is empty, promotes the current dirty set to
// flushing, installs a fresh empty dirty set, and returns the promoted set.
func (s *dirtySet) rotate() (map[string]struct{}, error) {
	if len(s.flushing) != 0 {
		return nil, fmt.Errorf("nds: rotate called with %d keys still outstanding in flushing", len(s.flushing))
	}
	promoted := s.dirty
	s.flushing = promoted
	s.dirty = make(map[string]struct{})
	return promoted, nil
}

// mergeBack unions flushing back into dirty after a failed flush; no
// progress is claimed for any key that was in flushing.
func (s *dirtySet) mergeBack() {
	for k := range s.flushing {
		s.dirty[k] = struct{}{}
	}
	s.flushing = make(map[string]struct{})
}

// clearFlushing empties flushing after a successful flush.
func (s *dirtySet) clearFlushing() {
	s.flushing = make(map[string]struct{})
}

func (s *dirtySet) dirtyCount() int    { return len(s.dirty) }
func (s *dirtySet) flushingCount() int { return len(s.flushing) }
