// Package eventloop is the concrete stand-in for the host event loop the
// persistence core treats as an opaque external collaborator: it needs
// exactly one primitive, a non-blocking Yield that lets queued foreground
// work run before a long iteration continues.
package eventloop

// Yielder lets a long-running foreground operation (a full-keyspace walk,
// a preload) hand control back to pending work without giving up its own
// place in line.
type Yielder interface {
	// Yield processes any immediately-available work without blocking.
	// It returns promptly whether or not there was anything to do.
	Yield()
}

// Loop is a minimal single-goroutine cooperative scheduler: callers queue
// zero-argument tasks on Submit, and the goroutine running Run drains them
// one at a time. Yield drains whatever is queued right now without
// blocking for more, which is exactly the "process pending file events,
// don't wait for new ones" behavior a walker needs between batches.
type Loop struct {
	tasks chan func()
	quit  chan struct{}
}

// New creates a Loop with the given task queue depth.
func New(queueDepth int) *Loop {
	return &Loop{
		tasks: make(chan func(), queueDepth),
		quit:  make(chan struct{}),
	}
}

// Submit enqueues fn to run on the loop goroutine. It blocks if the queue
// is full, matching a bounded command backlog rather than unbounded growth.
func (l *Loop) Submit(fn func()) {
	select {
	case l.tasks <- fn:
	case <-l.quit:
	}
}

// Run drains tasks until Stop is called. Intended to be the entire body of
// the foreground goroutine.
func (l *Loop) Run() {
	for {
		select {
		case fn := <-l.tasks:
			fn()
		case <-l.quit:
			return
		}
	}
}

// Stop terminates Run once its current task (if any) returns.
func (l *Loop) Stop() {
	close(l.quit)
}

// Yield drains whatever is queued right now, without blocking for more.
func (l *Loop) Yield() {
	for {
		select {
		case fn := <-l.tasks:
			fn()
		default:
			return
		}
	}
}
