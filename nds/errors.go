package nds

import "errors"

var (
	// ErrUnknownDB is returned when a logical database index falls outside
	// [0, Config.Databases).
	ErrUnknownDB = errors.New("nds: unknown logical database")
	// ErrBusy is returned when a command requests a background operation
	// while one is already outstanding and no queue slot is available.
	ErrBusy = errors.New("nds: a background operation is already outstanding")
	// ErrFlushingNotEmpty guards the invariant that a new flush may never
	// start while a prior one's flushing set hasn't been reaped yet. Seeing
	// this means the reap handler and the start-flush path raced, which
	// isn't supposed to happen under the single-goroutine model.
	ErrFlushingNotEmpty = errors.New("nds: flush requested while a prior flush's flushing set is still non-empty")
	// ErrBadArity is returned for an NDS subcommand carrying arguments; none
	// of FLUSH, SNAPSHOT, PRELOAD, or CLEARSTATS take any.
	ErrBadArity = errors.New("nds: wrong number of arguments for NDS subcommand")
	// ErrUnknownCommand is returned for any subcommand other than the four
	// defined verbs.
	ErrUnknownCommand = errors.New("nds: unknown NDS subcommand")
	// ErrNoEventLoop is returned by FLUSH/SNAPSHOT when the runtime was
	// built without a *eventloop.Loop: the reap handler has nowhere to be
	// submitted to, so starting a flush would leave it unreaped forever.
	ErrNoEventLoop = errors.New("nds: background flush requires a runtime built with an event loop")
)
