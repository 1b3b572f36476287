package tasklog

import "github.com/valyala/bytebufferpool"

/*
proceed.go

The flush path: drain the queue, prepend the one-time version header, render every
drained entry into one pooled buffer and hand the buffer to the sink as a single
block.
*/

var blockPool bytebufferpool.Pool

// Flush writes all currently queued entries to the sink as one block. An empty
// task log writes nothing and takes no lock. Concurrent flushes of the same task
// log are serialised; flushes of different task logs only meet at the sink.
//
// Entries appended while a flush is draining may land in this block or the next.
// Sink failures are reported to the sink's fallback and not returned.
func (tl *TaskLog) Flush() {
	if tl.queue.empty() {
		return
	}
	tl.sync.flshMtx.Lock()
	defer tl.sync.flshMtx.Unlock()

	buf := blockPool.Get()
	defer blockPool.Put(buf)
	tl.drainTo(buf)
	if buf.Len() > 0 {
		_ = tl.Sink().WriteBlock(buf.B)
	}
}

// drainTo renders the version header (if this flush wins it) and every drained
// entry, each followed by '\n'. Must be called with flshMtx held.
func (tl *TaskLog) drainTo(buf *bytebufferpool.ByteBuffer) {
	e := tl.queue.pop()
	if e == nil {
		// someone else drained between the emptiness check and the lock
		return
	}
	if IsVerbose() && claimVersionHeader() {
		buf.B = versionEntry(tl.tag).appendTo(buf.B)
		buf.B = append(buf.B, '\n')
	}
	for ; e != nil; e = tl.queue.pop() {
		buf.B = e.appendTo(buf.B)
		buf.B = append(buf.B, '\n')
	}
}

// The one-time informational entry announcing the product version.
func versionEntry(tag string) *Entry {
	return newEntry(tag, 0, tag+" version "+Version(), NO_ELAPSED, nil)
}
