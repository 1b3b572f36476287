// Package tasklog is a deferred, per-task log buffer. Concurrent tasks each
// collect their own ordered entries and merge them into a shared output only when
// the task flushes, one contiguous block per flush, so lines of different tasks
// never interleave.
package tasklog

import "time"

// Creates a task log flushing to the process default sink (see SetOutput).
//
// Preferred usage example:
//
//	func work() {
//	    log := tasklog.New()
//	    defer log.Close()
//	    log.Log("started")
//	    ...
//	}
func New() *TaskLog {
	return NewWithOutput(nil)
}

// Creates a task log flushing to the provided sink (nil means the process default
// sink, resolved at every flush).
func NewWithOutput(output *Sink) *TaskLog {
	tl := &TaskLog{output: output, tag: Tag()}
	tl.queue.init()
	return tl
}

// Returns the sink the next flush writes to.
func (tl *TaskLog) Sink() *Sink {
	if tl.output != nil {
		return tl.output
	}
	return Output()
}

// Number of entries waiting for the next flush (approximate while other
// goroutines are appending).
func (tl *TaskLog) Len() int {
	return tl.queue.len()
}

/////////////////////////////////////////////////////////////////////////////////////////
/*
Append helpers. Every one of them is wait-free and safe to call from any number
of goroutines; entries from one goroutine keep their order, entries from different
goroutines are ordered by the queue but their interleaving is unspecified.

Append is the full form, the Log* methods fill in the defaults (indent 0,
NO_ELAPSED, no failure). All of them return the capture time of the entry.
*/

// Appends an entry with all fields given explicitly.
func (tl *TaskLog) Append(indent int, msg string, elapsed time.Duration, err error) time.Time {
	e := newEntry(tl.tag, indent, msg, elapsed, err)
	tl.queue.push(e)
	return e.time
}

// Appends an entry at indent level 0.
func (tl *TaskLog) Log(msg string) time.Time {
	return tl.Append(0, msg, NO_ELAPSED, nil)
}

// Appends an entry at the given indent level.
func (tl *TaskLog) LogIndent(indent int, msg string) time.Time {
	return tl.Append(indent, msg, NO_ELAPSED, nil)
}

// Appends an entry reporting an elapsed time (" in 1.500000 sec").
func (tl *TaskLog) LogElapsed(indent int, msg string, elapsed time.Duration) time.Time {
	return tl.Append(indent, msg, elapsed, nil)
}

// Appends an entry reporting the time elapsed since start.
func (tl *TaskLog) LogSince(indent int, msg string, start time.Time) time.Time {
	return tl.Append(indent, msg, time.Since(start), nil)
}

// Appends an entry followed by the failure text of err, one line per text line.
func (tl *TaskLog) LogErr(indent int, msg string, err error) time.Time {
	return tl.Append(indent, msg, NO_ELAPSED, err)
}

// Close flushes the task log. It implements io.Closer and always returns nil, so
// `defer log.Close()` guarantees buffered entries reach the output.
func (tl *TaskLog) Close() error {
	tl.Flush()
	return nil
}
