package nds

// RequestFlush is the deferred-reply entry point behind NDS FLUSH: start a
// plain flush if idle, otherwise reject — only a snapshot may queue behind
// an in-flight flush. See Dispatch for the full command-surface contract.
func (r *NDSRuntime) RequestFlush(reply chan<- Reply) error {
	return r.dispatchFlush(reply, false)
}

// RequestSnapshot is the deferred-reply entry point behind NDS SNAPSHOT: a
// snapshot piggy-backs on a flush, additionally copying the on-disk
// environment once every batch has committed (see runFlushChild). If a
// plain flush is already running, the snapshot is queued and fires as soon
// as that flush reaps; at most one snapshot may be queued at a time.
func (r *NDSRuntime) RequestSnapshot(reply chan<- Reply) error {
	return r.dispatchFlush(reply, true)
}
