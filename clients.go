package tasklog

import "time"

/*
Scopes are handles for sub-activities of one task. They share the task log (and so
its ordering and its flushes) but log one indent level deeper than their parent,
which gives the nested "- / --- / -----" hierarchy of a scan without every caller
tracking indent numbers. Scopes are cheap and safe to use from other goroutines.
*/

type Scope struct {
	tl     *TaskLog
	indent int
}

// Returns a scope logging at indent level 1.
func (tl *TaskLog) Scope() *Scope {
	return &Scope{tl: tl, indent: 1}
}

// Returns a scope logging one level deeper than s.
func (s *Scope) Scope() *Scope {
	return &Scope{tl: s.tl, indent: s.indent + 1}
}

func (s *Scope) TaskLog() *TaskLog { return s.tl }
func (s *Scope) Indent() int       { return s.indent }

func (s *Scope) Log(msg string) time.Time {
	return s.tl.Append(s.indent, msg, NO_ELAPSED, nil)
}

func (s *Scope) LogElapsed(msg string, elapsed time.Duration) time.Time {
	return s.tl.Append(s.indent, msg, elapsed, nil)
}

func (s *Scope) LogErr(msg string, err error) time.Time {
	return s.tl.Append(s.indent, msg, NO_ELAPSED, err)
}

// Starts a timer; calling the returned func logs msg with the elapsed time at
// the scope's indent level and returns that time.
func (s *Scope) Timer(msg string) func() time.Duration {
	return s.tl.Timer(s.indent, msg)
}

// Starts a timer; calling the returned func logs msg with the elapsed time and
// returns that time.
//
//	defer log.Timer(0, "Scanned classpath")()
func (tl *TaskLog) Timer(indent int, msg string) func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		elapsed := time.Since(start)
		tl.Append(indent, msg, elapsed, nil)
		return elapsed
	}
}
