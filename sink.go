package tasklog

import (
	"errors"
	"io"
	"os"
	"strconv"
)

/*
sink.go

The shared output. Many task logs flush concurrently; the sink makes each flush a
single Write on the destination while holding one mutex shared by every task log
writing to it, so no two blocks interleave at the byte level. Write failures are
reported to the fallback writer and returned; they never panic the caller.
*/

// Destinations with their own buffering (e.g. *bufio.Writer) implement Flush and
// are committed after every block.
type flusher interface {
	Flush() error
}

// Creates a sink writing to out with os.Stderr as fallback for write errors.
func NewSink(out OutType) *Sink {
	s := &Sink{out: out}
	s.SetFallback(os.Stderr)
	return s
}

// Sets the fallback output used to report write errors, io.Discard is used
// instead of nil to silently drop fallback messages.
//
// The operation is protected by mutex for thread safety.
func (s *Sink) SetFallback(f OutType) *Sink {
	s.sync.fbckMtx.Lock()
	defer s.sync.fbckMtx.Unlock()
	if f != nil {
		s.fallbck = f
	} else {
		s.fallbck = io.Discard
	}
	return s
}

// Number of blocks written without error.
func (s *Sink) Blocks() int64 {
	return s.blocks.Load()
}

// Number of bytes written by blocks written without error.
func (s *Sink) Bytes() int64 {
	return s.bytes.Load()
}

// WriteBlock writes p to the destination with one Write call and then commits
// the destination's own buffering. Blocks written through the same sink are
// totally ordered and never interleave. An empty block writes nothing.
func (s *Sink) WriteBlock(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	s.sync.writMtx.Lock()
	err := s.writeLocked(p)
	s.sync.writMtx.Unlock()
	if err != nil {
		s.handleWriteError(err.Error())
	} else {
		s.blocks.Add(1)
		s.bytes.Add(int64(len(p)))
	}
	return err
}

// Write implements io.Writer, every call is one block.
func (s *Sink) Write(p []byte) (int, error) {
	if err := s.WriteBlock(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// writeLocked does the actual write; a panicking destination is turned into an
// error. Must be called with writMtx held.
func (s *Sink) writeLocked(p []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New(_ERROR_MESSAGE_SINK_PANIC + panicDesc(r))
		}
	}()
	if s.out == nil {
		return errors.New(_ERROR_MESSAGE_SINK_NIL)
	}
	n, e := s.out.Write(p)
	if e == nil && n < len(p) {
		e = io.ErrShortWrite
	}
	if e != nil {
		return errors.New(_ERROR_MESSAGE_SINK_WRITE + " (" + strconv.Itoa(n) + " bytes written): " + e.Error())
	}
	if f, ok := s.out.(flusher); ok {
		if e = f.Flush(); e != nil {
			return errors.New(_ERROR_MESSAGE_SINK_FLUSH + ": " + e.Error())
		}
	}
	return nil
}

// handleWriteError writes a human-readable error message to the fallback
// writer. A read lock is used since we only need consistent access to fallbck.
func (s *Sink) handleWriteError(errormsg string) {
	s.sync.fbckMtx.RLock()
	defer s.sync.fbckMtx.RUnlock()
	defer func() { recover() }() // a broken fallback has nowhere left to report
	if s.fallbck != nil {
		s.fallbck.Write([]byte(errormsg + "\n"))
	}
}
