package tasklog

import (
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestQueue() *entryQueue {
	q := &entryQueue{}
	q.init()
	return q
}

func Test_entryQueue_FIFO(t *testing.T) {
	q := newTestQueue()
	assert.True(t, q.empty())
	assert.Nil(t, q.pop())
	for i := range 100 {
		q.push(testEntry(0, strconv.Itoa(i), NO_ELAPSED, ""))
	}
	assert.False(t, q.empty())
	assert.Equal(t, 100, q.len())
	for i := range 100 {
		e := q.pop()
		if assert.NotNil(t, e) {
			assert.Equal(t, strconv.Itoa(i), e.msg)
		}
	}
	assert.Nil(t, q.pop())
	assert.True(t, q.empty())
	assert.Equal(t, 0, q.len())
}

func Test_entryQueue_Interleaved(t *testing.T) {
	q := newTestQueue()
	q.push(testEntry(0, "a", NO_ELAPSED, ""))
	assert.Equal(t, "a", q.pop().msg)
	assert.True(t, q.empty())
	q.push(testEntry(0, "b", NO_ELAPSED, ""))
	q.push(testEntry(0, "c", NO_ELAPSED, ""))
	assert.Equal(t, "b", q.pop().msg)
	q.push(testEntry(0, "d", NO_ELAPSED, ""))
	assert.Equal(t, "c", q.pop().msg)
	assert.Equal(t, "d", q.pop().msg)
	assert.Nil(t, q.pop())
}

func Test_entryQueue_ConcurrentProducers(t *testing.T) {
	const (
		_PRODUCERS_ = 16
		_ENTRIES_   = 2000
	)
	q := newTestQueue()
	var wg sync.WaitGroup
	hold := make(chan struct{})
	for p := range _PRODUCERS_ {
		wg.Go(func() {
			<-hold
			for i := range _ENTRIES_ {
				q.push(testEntry(p, strconv.Itoa(i), NO_ELAPSED, ""))
			}
		})
	}

	// single consumer drains while producers are still pushing
	next := make([]int, _PRODUCERS_)
	total := 0
	check := func(e *Entry) {
		assert.Equal(t, strconv.Itoa(next[e.indent]), e.msg, "producer %d out of order", e.indent)
		next[e.indent]++
		total++
	}
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	close(hold)
	for running := true; running; {
		select {
		case <-done:
			running = false
		default:
		}
		for e := q.pop(); e != nil; e = q.pop() {
			check(e)
		}
	}
	for e := q.pop(); e != nil; e = q.pop() {
		check(e)
	}
	assert.Equal(t, _PRODUCERS_*_ENTRIES_, total, "entries lost or duplicated")
	for p := range _PRODUCERS_ {
		assert.Equal(t, _ENTRIES_, next[p])
	}
	assert.True(t, q.empty())
}
