package tasklog

import (
	"strconv"
	"time"
)

/*
Log entry construction and rendering. A rendered entry looks like

	2024-05-01T13:37+02	TaskLog	--- message in 1.500000 sec

with one extra line per failure text line, each carrying the same
timestamp/tag/indent prefix.
*/

// Creates an entry stamped with the current time and the process tag.
//   - indent: nesting depth (negative values are treated as 0)
//   - elapsed: duration to report, NO_ELAPSED (or any negative value) to omit it
//   - err: optional failure, its text is captured immediately
func NewEntry(indent int, msg string, elapsed time.Duration, err error) *Entry {
	return newEntry(Tag(), indent, msg, elapsed, err)
}

func newEntry(tag string, indent int, msg string, elapsed time.Duration, err error) *Entry {
	return &Entry{
		time:    time.Now(),
		tag:     tag,
		msg:     msg,
		stack:   failureText(err),
		elapsed: elapsed,
		indent:  normIndent(indent),
	}
}

func (e *Entry) Time() time.Time        { return e.time }
func (e *Entry) Message() string        { return e.msg }
func (e *Entry) Indent() int            { return e.indent }
func (e *Entry) Elapsed() time.Duration { return e.elapsed }
func (e *Entry) HasFailure() bool       { return len(e.stack) > 0 }
func (e *Entry) FailureText() string    { return e.stack }

// String renders the entry without a trailing line terminator.
func (e *Entry) String() string {
	return string(e.appendTo(make([]byte, 0, DEFAULT_OUT_BUFF)))
}

// appendTo renders the entry into dst and returns the extended slice.
func (e *Entry) appendTo(dst []byte) []byte {
	dst = e.appendLine(dst, e.msg)
	if e.elapsed >= 0 {
		dst = append(dst, _ELAPSED_PREFIX...)
		dst = strconv.AppendFloat(dst, float64(e.elapsed)*1e-9, 'f', _ELAPSED_DIGITS, 64)
		dst = append(dst, _ELAPSED_SUFFIX...)
	}
	if e.stack != "" {
		for _, line := range failureLines(e.stack) {
			dst = append(dst, '\n')
			dst = e.appendLine(dst, line)
		}
	}
	return dst
}

// appendLine writes "<time>\t<tag>\t[<dashes> ]<text>".
func (e *Entry) appendLine(dst []byte, text string) []byte {
	dst = e.time.AppendFormat(dst, DEFAULT_TIME_FORMAT)
	dst = append(dst, _FIELD_DELIMITER)
	dst = append(dst, e.tag...)
	dst = append(dst, _FIELD_DELIMITER)
	if e.indent > 0 {
		for range 2*e.indent - 1 {
			dst = append(dst, _INDENT_CHAR)
		}
		dst = append(dst, ' ')
	}
	return append(dst, text...)
}
