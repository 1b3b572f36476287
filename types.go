package tasklog

/*
Defines the core data types used by the task log:
  - Entry: one immutable logged event (see entry.go)
  - TaskLog: per-task ordered buffer of entries, flushed as one block
  - Sink: shared output serialising blocks from many task logs
  - RunState: lifecycle of a guarded task runner

Also defines package-wide constants, enums and normalisation helpers.
*/

import (
	"io"
	"sync"
	"sync/atomic"
	"time"
)

type basetype byte // basetype is the underlying byte-sized representation used for enums

type RunState basetype // Guarded runner lifecycle state

type OutType io.Writer // Sink destinations and fallbacks (alias for io.Writer)

// Entry is an immutable record of one logged event. Rendering is a pure function
// of its fields.
type Entry struct {
	time    time.Time     // capture time
	tag     string        // product tag rendered after the timestamp
	msg     string        // message text
	stack   string        // failure text (possibly multi-line), empty if no failure
	elapsed time.Duration // NO_ELAPSED if not applicable
	indent  int           // nesting depth, never negative
}

// TaskLog accumulates the ordered entries of one task. Appends are wait-free and
// may come from any goroutine; flushes of the same TaskLog are serialised.
type TaskLog struct {
	sync struct {
		flshMtx sync.Mutex // guards draining (one flushing goroutine at a time)
	}
	queue  entryQueue
	output *Sink // nil means the process default Output()
	tag    string
}

// Sink is the shared destination of rendered blocks. Every block is written with
// a single Write call while holding the sink mutex, so blocks from different task
// logs never interleave.
type Sink struct {
	sync struct {
		writMtx sync.Mutex   // guards writes to out
		fbckMtx sync.RWMutex // guards access to fallback writer
	}
	out     OutType
	fallbck OutType
	blocks  atomic.Int64 // successfully written blocks
	bytes   atomic.Int64 // successfully written bytes
}

/////////////////////////////////////////////////////////////////////////////////////////

const (
	// Default values
	DEFAULT_TAG         = "TaskLog"
	DEFAULT_VERSION     = "dev"
	DEFAULT_TIME_FORMAT = "2006-01-02T15:04Z07" // yyyy-MM-dd'T'HH:mmX
	DEFAULT_OUT_BUFF    = 256                   // initial capacity of a rendered entry
	NO_ELAPSED          = time.Duration(-1)     // elapsed time is not applicable
)

const (
	// Guarded runner lifecycle states.
	STATE_IDLE RunState = iota
	STATE_RUNNING
	STATE_SUCCEEDED
	STATE_FAILED
	STATE_FLUSHED
	_STATE_MAX_for_checks_only
)

const (
	// Fixed fragments of a rendered line
	_FIELD_DELIMITER = '\t'
	_INDENT_CHAR     = '-'
	_ELAPSED_PREFIX  = " in "
	_ELAPSED_SUFFIX  = " sec"
	_ELAPSED_DIGITS  = 6
)

var RunStateNames = [_STATE_MAX_for_checks_only]string{
	"IDLE",      //STATE_IDLE
	"RUNNING",   //STATE_RUNNING
	"SUCCEEDED", //STATE_SUCCEEDED
	"FAILED",    //STATE_FAILED
	"FLUSHED",   //STATE_FLUSHED
}

// Generic byte normalization helper.
func norm_byte[T ~byte](val, overlimit, def T) T {
	if val < overlimit {
		return val
	} else {
		return def
	}
}

// Ensures a provided RunState is within the valid range
func normState(state RunState) RunState {
	return norm_byte(state, _STATE_MAX_for_checks_only, STATE_IDLE)
}

// Ensures an indent level is not negative
func normIndent(indent int) int {
	if indent < 0 {
		return 0
	}
	return indent
}

func (s RunState) String() string {
	return RunStateNames[normState(s)]
}
