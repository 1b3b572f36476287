package tasklog

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

const (
	// Error messages (used for testing).
	_ERROR_MESSAGE_SINK_WRITE     = "error writing log block"
	_ERROR_MESSAGE_SINK_FLUSH     = "error flushing log sink"
	_ERROR_MESSAGE_SINK_PANIC     = "panic writing log block"
	_ERROR_MESSAGE_SINK_NIL       = "log sink output is nil"
	_ERROR_MESSAGE_RUNNER_USED    = "task runner has already been run"
	_ERROR_MESSAGE_RUNNER_NO_WORK = "task runner has no work function"
	_ERROR_UNKNOWN_PANIC_TEXT     = "[no panic description]"
	_GOROUTINE_ID_BUFF            = 64
)

// PanicError carries a recovered panic value and the stack of the goroutine that
// panicked. "%+v" formatting renders the value followed by the stack.
type PanicError struct {
	Value any
	Stack []byte
}

func newPanicError(value any) *PanicError {
	return &PanicError{Value: value, Stack: debug.Stack()}
}

func (p *PanicError) Error() string {
	return "panic" + panicDesc(p.Value)
}

func (p *PanicError) Format(f fmt.State, verb rune) {
	switch {
	case verb == 'v' && f.Flag('+'):
		f.Write([]byte(p.Error()))
		if len(p.Stack) > 0 {
			f.Write([]byte{'\n'})
			f.Write(p.Stack)
		}
	default:
		f.Write([]byte(p.Error()))
	}
}

// Converts a panic value into a compact readable string (used when
// translating panics into errors or fallback messages)
func panicDesc(panic any) (errtext string) {
	switch v := panic.(type) {
	case string:
		errtext = ": `" + v + "`"
	case error:
		errtext = ": (error) `" + v.Error() + "`"
	case fmt.Stringer:
		errtext = ": `" + v.String() + "`"
	default:
		errtext = " " + _ERROR_UNKNOWN_PANIC_TEXT
	}
	return errtext
}

// Renders a failure the richest way it knows: "%+v" prints stacks of errors that
// carry them and falls back to Error() for plain ones.
func failureText(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("%+v", err)
}

// Splits failure text into lines, dropping trailing empty ones.
func failureLines(text string) []string {
	lines := strings.Split(text, "\n")
	for len(lines) > 0 && strings.TrimRight(lines[len(lines)-1], "\r") == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// Returns "goroutine <id>" for the calling goroutine, parsed from the header
// line of runtime.Stack ("goroutine 17 [running]:").
func goroutineName() string {
	var buf [_GOROUTINE_ID_BUFF]byte
	n := runtime.Stack(buf[:], false)
	id := strings.TrimPrefix(string(buf[:n]), "goroutine ")
	if i := strings.IndexByte(id, ' '); i > 0 {
		return "goroutine " + id[:i]
	}
	return "goroutine ?"
}
