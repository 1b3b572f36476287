package tasklog

import (
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLog() (*TaskLog, *FakeWriter) {
	out := &FakeWriter{}
	return NewWithOutput(NewSink(out).SetFallback(nil)), out
}

func Test_TaskLog_New(t *testing.T) {
	tl := New()
	assert.Nil(t, tl.output)
	assert.Equal(t, Output(), tl.Sink(), "default sink not used")
	assert.Equal(t, Tag(), tl.tag)
	assert.Zero(t, tl.Len())

	s := NewSink(&FakeWriter{})
	assert.Equal(t, s, NewWithOutput(s).Sink())
}

func Test_TaskLog_Append(t *testing.T) {
	setupProcess(t, false, true)
	tl, out := newTestLog()
	err := errors.New("failure text")
	t0 := tl.Log("zero")
	tl.LogIndent(2, "indented")
	tl.LogElapsed(1, "elapsed", 1500*time.Millisecond)
	tl.LogErr(1, "with error", err)
	tl.Append(3, "full", 2*time.Second, err)
	tl.LogSince(0, "since", time.Now().Add(-time.Second))
	assert.False(t, t0.IsZero())
	assert.Equal(t, 6, tl.Len())
	tl.Flush()
	assert.Zero(t, tl.Len())

	lines := out.Lines()
	require.Len(t, lines, 8)
	var rests []string
	for _, line := range lines {
		ts, tag, rest := splitLine(t, line)
		assert.Equal(t, Tag(), tag)
		_, perr := time.Parse(DEFAULT_TIME_FORMAT, ts)
		assert.NoError(t, perr, "bad timestamp %q", ts)
		rests = append(rests, rest)
	}
	assert.Equal(t, "zero", rests[0])
	assert.Equal(t, "--- indented", rests[1])
	assert.Equal(t, "- elapsed in 1.500000 sec", rests[2])
	assert.Equal(t, "- with error", rests[3])
	assert.Equal(t, "- failure text", rests[4])
	assert.Equal(t, "----- full in 2.000000 sec", rests[5])
	assert.Equal(t, "----- failure text", rests[6])
	assert.Regexp(t, `^since in 1\.\d{6} sec$`, rests[7])
}

func Test_TaskLog_Flush_Empty(t *testing.T) {
	setupProcess(t, true, false)
	tl, out := newTestLog()
	tl.Flush()
	tl.Flush()
	assert.Empty(t, out.buffer, "empty flush wrote data")
	assert.Zero(t, out.writes)
	assert.Zero(t, tl.Sink().Blocks())
	assert.False(t, VersionLogged(), "empty flush claimed the version header")
}

func Test_TaskLog_Flush_Order(t *testing.T) {
	setupProcess(t, false, true)
	tl, out := newTestLog()
	for i := range 1000 {
		tl.Log(strconv.Itoa(i))
	}
	tl.Flush()
	assert.Equal(t, 1, out.writes, "entries not written as one block")
	lines := out.Lines()
	require.Len(t, lines, 1000)
	for i, line := range lines {
		_, _, rest := splitLine(t, line)
		assert.Equal(t, strconv.Itoa(i), rest)
	}
	assert.True(t, strings.HasSuffix(out.String(), "\n"), "block not terminated")

	// a second flush only writes what was appended after the first
	out.Clear()
	tl.Log("after")
	tl.Flush()
	assert.Equal(t, 2, out.writes)
	require.Len(t, out.Lines(), 1)
	_, _, rest := splitLine(t, out.Lines()[0])
	assert.Equal(t, "after", rest)
}

func Test_TaskLog_Close(t *testing.T) {
	setupProcess(t, false, true)
	tl, out := newTestLog()
	func() {
		defer tl.Close()
		tl.Log("closed")
		assert.Empty(t, out.buffer, "entry written before close")
	}()
	assert.Contains(t, out.String(), "\tclosed\n")
	assert.NoError(t, tl.Close())
	assert.Equal(t, 1, out.writes)
}

func Test_TaskLog_VersionHeader(t *testing.T) {
	t.Run("verbose_first_flush", func(t *testing.T) {
		setupProcess(t, true, false)
		SetVersion("v9.9.9")
		t.Cleanup(func() { settings.version.Store(nil) })
		tl, out := newTestLog()
		tl.Log("first")
		tl.Flush()
		lines := out.Lines()
		require.Len(t, lines, 2)
		_, _, header := splitLine(t, lines[0])
		assert.Equal(t, Tag()+" version v9.9.9", header)
		_, _, first := splitLine(t, lines[1])
		assert.Equal(t, "first", first)
		assert.True(t, VersionLogged())

		out.Clear()
		tl.Log("second")
		tl.Flush()
		assert.NotContains(t, out.String(), "version", "header emitted twice")
	})
	t.Run("not_verbose", func(t *testing.T) {
		setupProcess(t, false, false)
		tl, out := newTestLog()
		tl.Log("quiet")
		tl.Flush()
		assert.NotContains(t, out.String(), " version ")
		assert.False(t, VersionLogged(), "header claimed while not verbose")
	})
	t.Run("already_logged", func(t *testing.T) {
		setupProcess(t, true, true)
		tl, out := newTestLog()
		tl.Log("later")
		tl.Flush()
		assert.Len(t, out.Lines(), 1)
	})
}

func Test_TaskLog_VersionHeader_Once(t *testing.T) {
	const _GOROUTINES_ = 64
	setupProcess(t, true, false)
	out := &FakeWriter{}
	sink := NewSink(out)
	var wg sync.WaitGroup
	hold := make(chan struct{})
	for i := range _GOROUTINES_ {
		wg.Go(func() {
			tl := NewWithOutput(sink)
			tl.Log("task " + strconv.Itoa(i))
			<-hold
			tl.Flush()
		})
	}
	close(hold)
	wg.Wait()
	assert.Equal(t, 1, strings.Count(out.String(), Tag()+" version "), "version header count")
	assert.Len(t, out.Lines(), _GOROUTINES_+1)
	assert.EqualValues(t, _GOROUTINES_, sink.Blocks())
}

func Test_TaskLog_AtomicBlocks(t *testing.T) {
	const (
		_ROUNDS_  = 20
		_ENTRIES_ = 5
	)
	setupProcess(t, false, true)
	out := &SlowWriter{}
	sink := NewSink(out)
	a, b := NewWithOutput(sink), NewWithOutput(sink)
	var wg sync.WaitGroup
	for _, tl := range []struct {
		log  *TaskLog
		name string
	}{{a, "A"}, {b, "B"}} {
		wg.Go(func() {
			for round := range _ROUNDS_ {
				for i := range _ENTRIES_ {
					tl.log.Log(tl.name + strconv.Itoa(round) + "." + strconv.Itoa(i))
				}
				tl.log.Flush()
			}
		})
	}
	wg.Wait()

	lines := out.Lines()
	require.Len(t, lines, 2*_ROUNDS_*_ENTRIES_)
	// every block is _ENTRIES_ lines of one task in order
	for start := 0; start < len(lines); start += _ENTRIES_ {
		_, _, first := splitLine(t, lines[start])
		prefix, _, _ := strings.Cut(first, ".")
		for i := range _ENTRIES_ {
			_, _, rest := splitLine(t, lines[start+i])
			assert.Equal(t, prefix+"."+strconv.Itoa(i), rest, "blocks interleaved at line %d", start+i)
		}
	}
}

func Test_TaskLog_ConcurrentAppendAndFlush(t *testing.T) {
	const (
		_APPENDERS_ = 8
		_ENTRIES_   = 500
	)
	setupProcess(t, false, true)
	tl, out := newTestLog()
	var wg sync.WaitGroup
	for p := range _APPENDERS_ {
		wg.Go(func() {
			for i := range _ENTRIES_ {
				tl.LogIndent(p, strconv.Itoa(i))
				if i%50 == 0 {
					tl.Flush()
				}
			}
		})
	}
	wg.Wait()
	tl.Flush()

	lines := out.Lines()
	require.Len(t, lines, _APPENDERS_*_ENTRIES_, "entries lost or duplicated")
	next := make(map[string]int)
	for _, line := range lines {
		_, _, rest := splitLine(t, line)
		indent, msg, found := strings.Cut(rest, " ")
		if !found {
			msg, indent = rest, ""
		}
		assert.Equal(t, strconv.Itoa(next[indent]), msg, "appender %q out of order", indent)
		next[indent]++
	}
}

func Test_TaskLog_SinkFailure(t *testing.T) {
	setupProcess(t, false, true)
	ferr := &FakeWriter{}
	tl := NewWithOutput(NewSink(&PanicWriter{}).SetFallback(ferr))
	tl.Log("lost")
	assert.NotPanics(t, tl.Flush)
	assert.Contains(t, ferr.String(), panicStr)
	assert.Zero(t, tl.Len(), "failed block kept in the queue")
}

// Many task logs, each flushing several times, all sharing one sink. Every
// worker's entries must come out complete, in order and in unbroken blocks.
func Test_Parallel_Multithreading(t *testing.T) {
	const (
		_MAXDATALEN_ = 100 // Max len of message to be logged
		_DATACOUNT_  = 400 // Number of messages every goroutine/task has to log
		_FLUSHEVERY_ = 20  // Entries per flush (divides _DATACOUNT_)
		_GOROUTINES_ = 200 // Number of simultaneous goroutines/tasks logging
	)
	type jobType struct {
		log  *TaskLog
		task [_DATACOUNT_]int
		curr int
	}
	var strs [_DATACOUNT_]string
	var workers [_GOROUTINES_]jobType
	var wg sync.WaitGroup
	hold := make(chan int)

	Rand := rand.New(rand.NewSource(time.Now().UnixNano())) // stochastic

	namesize := len(strconv.Itoa(_GOROUTINES_))
	for i := range _DATACOUNT_ {
		data := make([]byte, Rand.Intn(_MAXDATALEN_)+1)
		for j := range data {
			const first, last = 33, 126 // printable, no tabs or newlines
			data[j] = byte(Rand.Intn(last+1-first)) + first
		}
		strs[i] = string(data)
	}

	setupProcess(t, false, true)
	out := &FakeWriter{}
	sink := NewSink(out).SetFallback(out)
	for i := range _GOROUTINES_ {
		workers[i].log = NewWithOutput(sink)
		for j, s := range Rand.Perm(_DATACOUNT_) {
			workers[i].task[j] = s
		}
	}

	for n := range _GOROUTINES_ {
		wg.Go(func() {
			for range hold { // wait until channel is closed (to start all together)
			}
			name := fmt.Sprintf("%0"+strconv.Itoa(namesize)+"d", n)
			for i := range _DATACOUNT_ {
				workers[n].log.Log(name + strs[workers[n].task[i]])
				if (i+1)%_FLUSHEVERY_ == 0 {
					workers[n].log.Flush()
				}
			}
		})
	}
	close(hold)
	wg.Wait()

	lines := out.Lines()
	require.Len(t, lines, _DATACOUNT_*_GOROUTINES_, "wrong number of lines")
	assert.EqualValues(t, _DATACOUNT_*_GOROUTINES_/_FLUSHEVERY_, sink.Blocks())

	run, runWorker := 0, -1
	for pos, line := range lines {
		_, _, rest := splitLine(t, line)
		require.GreaterOrEqual(t, len(rest), namesize, "line %d too short", pos)
		workerId, err := strconv.Atoi(rest[:namesize])
		require.NoError(t, err, "line %d: bad worker name", pos)
		worker := &workers[workerId]
		require.Equal(t, strs[worker.task[worker.curr]], rest[namesize:], "line %d: data not equal (worker %d, task %d)", pos, workerId, worker.curr)
		worker.curr++

		if workerId != runWorker {
			require.Zero(t, run%_FLUSHEVERY_, "line %d: block of worker %d broken after %d lines", pos, runWorker, run)
			run, runWorker = 0, workerId
		}
		run++
	}
	assert.Zero(t, run%_FLUSHEVERY_)
}
