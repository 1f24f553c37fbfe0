package fetchedrecords

// Executor is a serial execution context: every job submitted to it
// runs after every job submitted earlier, on a single logical thread
// of control. The diff context and the consumer context are each
// modeled as an Executor — diffContext is always a *SerialExecutor
// owned by the controller; consumerContext is supplied by the caller
// and must itself be serial (a single goroutine draining a channel, an
// event-loop tick, a UI main-thread dispatcher, ...).
type Executor interface {
	// Submit schedules job to run on this context, preserving
	// submission order relative to every other Submit call made on the
	// same Executor. SerialExecutor.Submit blocks while its queue is
	// full; ImmediateExecutor.Submit runs job before returning.
	Submit(job func())
}

// SerialExecutor is an Executor backed by one dedicated goroutine
// draining a buffered job queue, in the shape of mvcc.Manager's
// background gcLoop goroutine: a single owning goroutine, a channel of
// work, and a stop channel for shutdown.
type SerialExecutor struct {
	jobs chan func()
	stop chan struct{}
}

// NewSerialExecutor starts a SerialExecutor with the given queue depth.
func NewSerialExecutor(queueDepth int) *SerialExecutor {
	e := &SerialExecutor{
		jobs: make(chan func(), queueDepth),
		stop: make(chan struct{}),
	}
	go e.run()
	return e
}

func (e *SerialExecutor) run() {
	for {
		select {
		case job := <-e.jobs:
			job()
		case <-e.stop:
			return
		}
	}
}

// Submit implements Executor. It blocks while queueDepth jobs are
// already pending.
func (e *SerialExecutor) Submit(job func()) {
	e.jobs <- job
}

// Close stops the executor's goroutine. Jobs already queued are
// dropped; Close does not wait for the queue to drain.
func (e *SerialExecutor) Close() {
	close(e.stop)
}

// ImmediateExecutor runs every job synchronously, inline with Submit.
// It is serial trivially (there is only ever one caller at a time by
// construction of the pipeline) and is useful for tests and for
// single-threaded callers that want performFetch's synchronous
// semantics to extend through the whole pipeline.
type ImmediateExecutor struct{}

// Submit implements Executor.
func (ImmediateExecutor) Submit(job func()) { job() }

// runSync submits job to ex and blocks until it has run. Used where the
// controller needs a cross-context write to complete before its own
// caller (itself running synchronously, e.g. inside performFetch's
// write-synchronous job) can proceed.
func runSync(ex Executor, job func()) {
	done := make(chan struct{})
	ex.Submit(func() {
		job()
		close(done)
	})
	<-done
}
