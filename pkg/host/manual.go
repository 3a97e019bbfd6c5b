package host

import (
	"sort"
	"sync"
	"time"
)

// Manual is a Scheduler driven by the caller: tasks run on Flush, frames on Frame and tickers
// on Advance. It is meant for tests and for hosts that own their own render loop.
type Manual struct {
	mu      sync.Mutex
	tasks   []func()
	frames  []func()
	now     time.Duration
	tickers []*manualTicker
}

func NewManual() *Manual {
	return &Manual{}
}

func (m *Manual) Post(fn func()) {
	m.mu.Lock()
	m.tasks = append(m.tasks, fn)
	m.mu.Unlock()
}

func (m *Manual) RequestFrame(fn func()) {
	m.mu.Lock()
	m.frames = append(m.frames, fn)
	m.mu.Unlock()
}

func (m *Manual) Every(interval time.Duration, fn func()) Ticker {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &manualTicker{interval: interval, next: m.now + interval, fn: fn}
	if interval <= 0 {
		t.stopped = true
		return t
	}
	m.tickers = append(m.tickers, t)
	return t
}

// Flush runs queued tasks, including ones posted while flushing, until the queue is empty.
func (m *Manual) Flush() {
	for {
		m.mu.Lock()
		if len(m.tasks) == 0 {
			m.mu.Unlock()
			return
		}
		fn := m.tasks[0]
		m.tasks = m.tasks[1:]
		m.mu.Unlock()
		fn()
	}
}

// Frame runs the callbacks requested before this call, then flushes tasks.
func (m *Manual) Frame() {
	m.Flush()
	m.mu.Lock()
	frames := m.frames
	m.frames = nil
	m.mu.Unlock()
	for _, fn := range frames {
		fn()
	}
	m.Flush()
}

// Frames runs n frames.
func (m *Manual) Frames(n int) {
	for i := 0; i < n; i++ {
		m.Frame()
	}
}

func (m *Manual) PendingFrames() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.frames)
}

func (m *Manual) ActiveTickers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.tickers {
		if !t.stopped {
			n++
		}
	}
	return n
}

// Advance moves the fake clock by d, firing due tickers in time order.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now + d
	m.mu.Unlock()

	for {
		m.mu.Lock()
		var due []*manualTicker
		for _, t := range m.tickers {
			if !t.stopped && t.next <= target {
				due = append(due, t)
			}
		}
		if len(due) == 0 {
			m.now = target
			m.mu.Unlock()
			m.Flush()
			return
		}
		sort.SliceStable(due, func(i, j int) bool { return due[i].next < due[j].next })
		t := due[0]
		m.now = t.next
		t.next += t.interval
		m.mu.Unlock()

		t.fn()
		m.Flush()
	}
}

type manualTicker struct {
	interval time.Duration
	next     time.Duration
	fn       func()
	stopped  bool
}

func (t *manualTicker) Stop() {
	t.stopped = true
}
