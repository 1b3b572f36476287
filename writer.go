package tasklog

import (
	"bytes"
	"sync"
)

/*********************************************************************************
io.Writer interface implementation

A LineWriter lets code that only knows io.Writer (fmt.Fprintf, log.Logger,
exec.Cmd output) log into a task log. Every complete line becomes one entry at the
writer's indent level; a trailing partial line is kept until its newline arrives
or Flush is called.

This allows patterns like:

	fmt.Fprintf(log.Writer(2), "found %d classes\n", n)
*/

type LineWriter struct {
	mtx     sync.Mutex
	tl      *TaskLog
	partial []byte
	indent  int
}

// Returns an io.Writer logging each written line at the given indent level.
func (tl *TaskLog) Writer(indent int) *LineWriter {
	return &LineWriter{tl: tl, indent: normIndent(indent)}
}

// Write implements io.Writer. It always consumes all of p.
// If the payload is nil it is treated as a zero-length write with no error.
func (w *LineWriter) Write(p []byte) (n int, err error) {
	if len(p) == 0 {
		return 0, nil
	}
	w.mtx.Lock()
	defer w.mtx.Unlock()
	data := p
	for {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			break
		}
		line := data[:i]
		if len(w.partial) > 0 {
			line = append(w.partial, line...)
			w.partial = w.partial[:0]
		}
		w.tl.LogIndent(w.indent, string(bytes.TrimSuffix(line, []byte{'\r'})))
		data = data[i+1:]
	}
	w.partial = append(w.partial, data...)
	return len(p), nil
}

// Flush logs a pending partial line (if any) and flushes the task log.
func (w *LineWriter) Flush() error {
	w.mtx.Lock()
	if len(w.partial) > 0 {
		w.tl.LogIndent(w.indent, string(w.partial))
		w.partial = w.partial[:0]
	}
	w.mtx.Unlock()
	w.tl.Flush()
	return nil
}
