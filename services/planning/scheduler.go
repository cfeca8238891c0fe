package planning

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/atomic"
	"golang.org/x/time/rate"

	"github.com/openav/naviplan/logging"
	"github.com/openav/naviplan/utils"
)

// SchedulerStats are counters exposed for diagnostics.
type SchedulerStats struct {
	Ticks    uint64 `json:"ticks"`
	Overruns uint64 `json:"overruns"`
	// AverageCycle is the mean duration of the recent runs.
	AverageCycle time.Duration `json:"average_cycle"`
}

const (
	// cycleWindow is how many runs AverageCycle covers.
	cycleWindow = 50
	// overrunWarnInterval spaces out overrun warnings; overruns are still all counted.
	overrunWarnInterval = 5 * time.Second
)

// A Scheduler invokes a function once per period from a single goroutine, so invocations never
// overlap. A run that takes longer than the period makes the scheduler skip the ticks it missed
// rather than queue them.
type Scheduler struct {
	clk    clock.Clock
	period time.Duration
	run    func(context.Context)
	logger logging.Logger

	mu       sync.Mutex
	workers  utils.StoppableWorkers
	ticks    atomic.Uint64
	overruns atomic.Uint64
	cycles   *utils.RollingAverage
	warns    *rate.Limiter
}

// NewScheduler returns a stopped scheduler.
func NewScheduler(clk clock.Clock, period time.Duration, run func(context.Context), logger logging.Logger) *Scheduler {
	return &Scheduler{
		clk:    clk,
		period: period,
		run:    run,
		logger: logger,
		cycles: utils.NewRollingAverage(cycleWindow),
		warns:  rate.NewLimiter(rate.Every(overrunWarnInterval), 1),
	}
}

// Start begins ticking. It returns ErrAlreadyRunning if the scheduler is already started.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.workers != nil {
		return ErrAlreadyRunning
	}
	s.workers = utils.NewStoppableWorkers(s.loop)
	return nil
}

// Stop prevents any further run from starting and waits for an in-flight run to return. It is
// safe to call on a stopped scheduler.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.workers == nil {
		return
	}
	s.workers.Stop()
	s.workers = nil
}

// Running reports whether the scheduler is started.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.workers != nil
}

// Stats returns the tick and overrun counters.
func (s *Scheduler) Stats() SchedulerStats {
	return SchedulerStats{
		Ticks:        s.ticks.Load(),
		Overruns:     s.overruns.Load(),
		AverageCycle: s.cycles.Average(),
	}
}

func (s *Scheduler) loop(ctx context.Context) {
	ticker := s.clk.Ticker(s.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		// Both channels may be ready at once; a stop always wins.
		if ctx.Err() != nil {
			return
		}

		start := s.clk.Now()
		// An in-flight run is allowed to finish even when Stop is called meanwhile.
		s.run(context.WithoutCancel(ctx))
		s.ticks.Inc()

		elapsed := s.clk.Since(start)
		s.cycles.Add(elapsed)
		if elapsed <= s.period {
			continue
		}
		skipped := uint64(elapsed / s.period)
		s.overruns.Add(skipped)
		if s.warns.AllowN(s.clk.Now(), 1) {
			s.logger.Warnw("planning cycle overran its tick period, skipping missed ticks",
				"elapsed", elapsed, "period", s.period, "skipped", skipped, "overruns", s.overruns.Load())
		}
		utils.FlushChan(ticker.C)
	}
}
