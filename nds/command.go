package nds

import "github.com/freezerdb/nds/eventloop"

// CommandKind enumerates the four NDS subcommand verbs.
type CommandKind int

const (
	CmdFlush CommandKind = iota
	CmdSnapshot
	CmdPreload
	CmdClearStats
)

func (k CommandKind) String() string {
	switch k {
	case CmdFlush:
		return "FLUSH"
	case CmdSnapshot:
		return "SNAPSHOT"
	case CmdPreload:
		return "PRELOAD"
	case CmdClearStats:
		return "CLEARSTATS"
	default:
		return "UNKNOWN"
	}
}

// Command is a parsed NDS subcommand. None of the four verbs take
// arguments, so a non-empty Args is always an arity error — checked here
// rather than leaving it to whatever layer forwards the command.
type Command struct {
	Kind CommandKind
	Args []string
}

// Dispatch runs cmd against the runtime. PRELOAD and CLEARSTATS reply
// synchronously before Dispatch returns. FLUSH and SNAPSHOT defer their
// reply until the flush they start (or get queued behind) reaps; reply
// should be buffered by at least 1, or actively read by the caller, since
// Dispatch and the eventual reap never block trying to send to it.
func (r *NDSRuntime) Dispatch(cmd Command, reply chan<- Reply) error {
	if len(cmd.Args) != 0 {
		sendReply(reply, Reply{Err: ErrBadArity})
		return ErrBadArity
	}
	switch cmd.Kind {
	case CmdFlush:
		return r.dispatchFlush(reply, false)
	case CmdSnapshot:
		return r.dispatchFlush(reply, true)
	case CmdPreload:
		// r.loop is only nil in tests that build a runtime without a
		// cooperative loop; guard explicitly rather than pass a typed nil
		// *eventloop.Loop through the Yielder interface, which would panic
		// the first time Yield dereferences it.
		var y eventloop.Yielder
		if r.loop != nil {
			y = r.loop
		}
		err := r.PreloadNDS(y)
		sendReply(reply, Reply{OK: err == nil, Err: err})
		return err
	case CmdClearStats:
		r.metrics.clearStats()
		sendReply(reply, Reply{OK: true})
		return nil
	default:
		sendReply(reply, Reply{Err: ErrUnknownCommand})
		return ErrUnknownCommand
	}
}

func sendReply(reply chan<- Reply, rep Reply) {
	if reply == nil {
		return
	}
	select {
	case reply <- rep:
	default:
	}
}

// dispatchFlush implements the shared FLUSH/SNAPSHOT start-or-queue logic.
// A plain FLUSH while one is already running is rejected outright — only a
// SNAPSHOT may queue behind an in-flight flush, and only one such queued
// request is allowed at a time.
func (r *NDSRuntime) dispatchFlush(reply chan<- Reply, snapshot bool) error {
	if r.loop == nil {
		sendReply(reply, Reply{Err: ErrNoEventLoop})
		return ErrNoEventLoop
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.flush.running {
		r.flush.bgRequestor = reply
		if err := r.startFlushLocked(snapshot); err != nil {
			r.flush.bgRequestor = nil
			sendReply(reply, Reply{Err: err})
			return err
		}
		return nil
	}

	if !snapshot || r.flush.snapshotPending {
		sendReply(reply, Reply{Err: ErrBusy})
		return ErrBusy
	}

	r.flush.snapshotPending = true
	r.flush.pendingRequestor = reply
	return nil
}
