package concurrent

import (
	"errors"
	"time"
)

var ErrScheduleTimeout = errors.New("schedule error: timed out")

// Pool is a bounded goroutine pool: at most size goroutines run tasks, idle ones
// wait on a shared work channel.
type Pool struct {
	sem  chan struct{}
	work chan func()
}

func NewPool(size, queue, spawn int) *Pool {
	if spawn <= 0 && queue > 0 {
		panic("dead queue configuration detected")
	}
	if spawn > size {
		panic("spawn > workers")
	}
	p := &Pool{
		sem:  make(chan struct{}, size),
		work: make(chan func(), queue),
	}
	p.Spawn(spawn)
	return p
}

// Spawn starts up to n idle workers ahead of demand.
func (p *Pool) Spawn(n int) {
	for i := 0; i < n; i++ {
		select {
		case p.sem <- struct{}{}:
			go p.worker(func() {})
		default:
			return
		}
	}
}

func (p *Pool) Schedule(task func()) {
	p.schedule(task, nil)
}

// ScheduleTimeout is Schedule that gives up with ErrScheduleTimeout when no
// worker frees up within timeout.
func (p *Pool) ScheduleTimeout(timeout time.Duration, task func()) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	return p.schedule(task, timer.C)
}

func (p *Pool) schedule(task func(), timeout <-chan time.Time) error {
	select {
	case <-timeout:
		return ErrScheduleTimeout
	case p.work <- task:
		return nil
	case p.sem <- struct{}{}:
		go p.worker(task)
		return nil
	}
}

func (p *Pool) worker(task func()) {
	defer func() { <-p.sem }()

	task()

	for task := range p.work {
		task()
	}
}

// Close stops idle workers once the queue drains. Scheduling after Close panics.
func (p *Pool) Close() {
	close(p.work)
}
