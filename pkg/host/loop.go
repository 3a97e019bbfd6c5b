package host

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const defaultTaskQueueSize = 256

// Loop is the production Scheduler: a goroutine draining a task queue and, while frame
// callbacks are pending, a frame ticker.
type Loop struct {
	log           *zap.Logger
	tasks         chan func()
	frameInterval time.Duration

	frames []func() // loop goroutine only

	mu      sync.Mutex
	stopped bool
	done    chan struct{}
}

func NewLoop(log *zap.Logger, frameRate int) *Loop {
	if frameRate <= 0 {
		frameRate = 60
	}
	return &Loop{
		log:           log,
		tasks:         make(chan func(), defaultTaskQueueSize),
		frameInterval: time.Second / time.Duration(frameRate),
		done:          make(chan struct{}),
	}
}

// Run executes tasks until ctx is cancelled. Posts after Run returns are dropped.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.frameInterval)
	defer ticker.Stop()
	defer l.stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.tasks:
			l.run(fn)
		case <-ticker.C:
			if len(l.frames) == 0 {
				continue
			}
			frames := l.frames
			l.frames = nil
			for _, fn := range frames {
				l.run(fn)
			}
		}
	}
}

func (l *Loop) stop() {
	l.mu.Lock()
	l.stopped = true
	l.mu.Unlock()
	close(l.done)
}

func (l *Loop) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("loop task panicked", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()
	fn()
}

func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	stopped := l.stopped
	l.mu.Unlock()
	if stopped {
		return
	}
	select {
	case l.tasks <- fn:
	case <-l.done:
	}
}

func (l *Loop) RequestFrame(fn func()) {
	l.frames = append(l.frames, fn)
}

func (l *Loop) Every(interval time.Duration, fn func()) Ticker {
	t := &loopTicker{quit: make(chan struct{})}
	if interval <= 0 {
		t.Stop()
		return t
	}
	tk := time.NewTicker(interval)
	go func() {
		defer tk.Stop()
		for {
			select {
			case <-tk.C:
				l.Post(func() {
					if t.stopped() {
						return
					}
					fn()
				})
			case <-t.quit:
				return
			case <-l.done:
				return
			}
		}
	}()
	return t
}

type loopTicker struct {
	once sync.Once
	quit chan struct{}
}

func (t *loopTicker) Stop() {
	t.once.Do(func() { close(t.quit) })
}

func (t *loopTicker) stopped() bool {
	select {
	case <-t.quit:
		return true
	default:
		return false
	}
}
