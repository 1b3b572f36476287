package tasklog

import (
	"errors"
	"sync/atomic"
)

/*
runner.go

A Runner executes one unit of work that owns a task log and guarantees the log is
flushed however the work ends:

	IDLE -> RUNNING -> SUCCEEDED | FAILED -> FLUSHED

A failure is either a returned error or a panic. On failure the entries logged so
far are flushed first, then (in verbose mode) one entry naming the goroutine and
the failure is logged and flushed, then the failure is handed back unchanged: the
error is returned as is, a panic is re-raised with its original value.
*/

// Work is a unit of work that logs into the task log it is given.
type Work[T any] func(log *TaskLog) (T, error)

// Returned by Run when the runner has been run before.
var ErrRunnerUsed = errors.New(_ERROR_MESSAGE_RUNNER_USED)

type Runner[T any] struct {
	work  Work[T]
	log   *TaskLog
	name  string
	state atomic.Uint32
}

// Creates a runner for work. The name identifies the task in failure
// announcements; when empty the executing goroutine id is used.
func NewRunner[T any](name string, work Work[T]) *Runner[T] {
	return &Runner[T]{work: work, log: New(), name: name}
}

// Runs work once in the calling goroutine with a fresh task log.
func Run[T any](name string, work Work[T]) (T, error) {
	return NewRunner(name, work).Run()
}

// Directs the runner's task log to the provided sink. Has no effect once the
// runner has started.
func (r *Runner[T]) WithOutput(output *Sink) *Runner[T] {
	if r.State() == STATE_IDLE {
		r.log = NewWithOutput(output)
	}
	return r
}

// Returns the task log owned by the runner.
func (r *Runner[T]) Log() *TaskLog {
	return r.log
}

func (r *Runner[T]) Name() string {
	return r.name
}

func (r *Runner[T]) State() RunState {
	return normState(RunState(r.state.Load()))
}

func (r *Runner[T]) setState(newstate RunState) {
	r.state.Store(uint32(normState(newstate)))
}

// Run executes the work function and returns its result. The task log is
// flushed before Run returns or panics.
func (r *Runner[T]) Run() (result T, err error) {
	if r.work == nil {
		return result, errors.New(_ERROR_MESSAGE_RUNNER_NO_WORK)
	}
	if !r.state.CompareAndSwap(uint32(STATE_IDLE), uint32(STATE_RUNNING)) {
		return result, ErrRunnerUsed
	}
	defer func() {
		r.log.Flush()
		r.setState(STATE_FLUSHED)
	}()

	panicked := true
	defer func() {
		if !panicked {
			return
		}
		rec := recover()
		if rec == nil {
			// runtime.Goexit, nothing to announce
			return
		}
		r.setState(STATE_FAILED)
		r.announce(newPanicError(rec))
		panic(rec)
	}()

	result, err = r.work(r.log)
	panicked = false
	if err != nil {
		r.setState(STATE_FAILED)
		r.announce(err)
		return result, err
	}
	r.setState(STATE_SUCCEEDED)
	r.log.Flush()
	return result, nil
}

// announce flushes what the work logged before failing and, in verbose mode,
// logs and flushes one entry naming the goroutine and the failure. Panic stacks
// are attached to the entry, returned errors are named only.
func (r *Runner[T]) announce(failure error) {
	r.log.Flush()
	if !IsVerbose() {
		return
	}
	var attached error
	if pe, ok := failure.(*PanicError); ok {
		attached = pe
	}
	r.log.Append(0, r.threadName()+" threw "+failure.Error(), NO_ELAPSED, attached)
	r.log.Flush()
}

// "goroutine 17" for unnamed runners, "task <name> (goroutine 17)" otherwise.
func (r *Runner[T]) threadName() string {
	if r.name == "" {
		return goroutineName()
	}
	return "task " + r.name + " (" + goroutineName() + ")"
}
