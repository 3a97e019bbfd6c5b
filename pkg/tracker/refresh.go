package tracker

import (
	"context"
	"time"

	"github.com/lintang-b-s/fleetmap/pkg/entity"
	"github.com/lintang-b-s/fleetmap/pkg/host"
	"go.uber.org/zap"
)

const DefaultRefreshInterval = 10 * time.Second

// Source supplies fresh entity lists on every refresh tick. Fetch runs off the loop.
type Source interface {
	Fetch(ctx context.Context) (agents, customers []entity.Entity, err error)
}

// refresher pulls from the Source on a ticker and hands the result to deliver on the loop.
type refresher struct {
	sched    host.Scheduler
	log      *zap.Logger
	src      Source
	ctx      context.Context
	disposed func() bool
	deliver  func(agents, customers []entity.Entity)

	interval time.Duration
	ticker   host.Ticker
	inFlight bool
}

func newRefresher(ctx context.Context, sched host.Scheduler, log *zap.Logger, src Source,
	disposed func() bool, deliver func(agents, customers []entity.Entity)) *refresher {
	return &refresher{
		sched:    sched,
		log:      log,
		src:      src,
		ctx:      ctx,
		disposed: disposed,
		deliver:  deliver,
	}
}

// setInterval restarts the ticker. Intervals <= 0 disable refreshing.
func (rf *refresher) setInterval(d time.Duration) {
	rf.stop()
	rf.interval = d
	if d <= 0 || rf.src == nil {
		return
	}
	rf.ticker = rf.sched.Every(d, rf.tick)
}

func (rf *refresher) tick() {
	if rf.disposed() || rf.inFlight {
		return
	}
	rf.inFlight = true

	go func() {
		agents, customers, err := rf.src.Fetch(rf.ctx)
		rf.sched.Post(func() {
			rf.inFlight = false
			if rf.disposed() {
				return
			}
			if err != nil {
				rf.log.Warn("refresh entities", zap.Error(err))
				return
			}
			rf.deliver(agents, customers)
		})
	}()
}

func (rf *refresher) stop() {
	if rf.ticker != nil {
		rf.ticker.Stop()
		rf.ticker = nil
	}
}

func (rf *refresher) active() bool {
	return rf.ticker != nil
}
