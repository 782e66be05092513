/*
scheduler.go - Periodic rebalance scheduler

PURPOSE:
  Runs the full rebalance on a fixed interval, as the system actor, so a
  backlog that drifted through imports and closures evens out without an
  admin pressing the button.

DESIGN:
  - Background goroutine driven by a time.Ticker
  - First run happens one interval after Start
  - A failed run is logged and counted; the next tick tries again
  - Disabled by default (config scheduler.enabled)

USAGE:
  scheduler := NewRebalanceScheduler(engine, logger)
  scheduler.Interval = cfg.Scheduler.Interval
  scheduler.Enabled = cfg.Scheduler.Enabled
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: Rebalance endpoint (manual trigger)
  - workload/engine.go: Engine.Rebalance
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/warp/caseload-engine/workload"
)

// RebalanceScheduler triggers Engine.Rebalance periodically.
type RebalanceScheduler struct {
	Engine   *workload.Engine
	Logger   workload.Logger
	Interval time.Duration
	Enabled  bool

	// RunTimeout bounds a single run. Zero means Interval.
	RunTimeout time.Duration

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex

	runs     int
	failures int
	lastRun  time.Time
}

// NewRebalanceScheduler creates a disabled scheduler with a daily interval.
func NewRebalanceScheduler(engine *workload.Engine, logger workload.Logger) *RebalanceScheduler {
	return &RebalanceScheduler{
		Engine:   engine,
		Logger:   logger,
		Interval: 24 * time.Hour,
	}
}

// Start begins the scheduler. It is a no-op when disabled or already running.
func (rs *RebalanceScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled {
		rs.Logger.Info("rebalance scheduler disabled")
		return
	}
	if rs.ticker != nil {
		return
	}

	rs.ticker = time.NewTicker(rs.Interval)
	rs.stop = make(chan struct{})
	rs.wg.Add(1)

	go rs.run(rs.ticker, rs.stop)

	rs.Logger.Info("rebalance scheduler started", "interval", rs.Interval.String())
}

// Stop stops the scheduler and waits for an in-flight run to finish.
func (rs *RebalanceScheduler) Stop() {
	rs.mu.Lock()
	ticker, stop := rs.ticker, rs.stop
	rs.ticker, rs.stop = nil, nil
	rs.mu.Unlock()

	if ticker == nil {
		return
	}
	ticker.Stop()
	close(stop)
	rs.wg.Wait()
	rs.Logger.Info("rebalance scheduler stopped")
}

// Stats reports completed runs, failed runs and the time of the last run.
func (rs *RebalanceScheduler) Stats() (runs, failures int, lastRun time.Time) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.runs, rs.failures, rs.lastRun
}

func (rs *RebalanceScheduler) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer rs.wg.Done()

	for {
		select {
		case <-ticker.C:
			rs.RunOnce(context.Background())
		case <-stop:
			return
		}
	}
}

// RunOnce performs a single rebalance.
func (rs *RebalanceScheduler) RunOnce(ctx context.Context) {
	timeout := rs.RunTimeout
	if timeout <= 0 {
		timeout = rs.Interval
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := rs.Engine.Rebalance(ctx, nil)

	rs.mu.Lock()
	rs.runs++
	rs.lastRun = start
	if err != nil {
		rs.failures++
	}
	rs.mu.Unlock()

	if err != nil {
		rs.Logger.Error("scheduled rebalance failed", "error", err, "moved", res.TasksMoved)
		return
	}
	rs.Logger.Info("scheduled rebalance complete",
		"moved", res.TasksMoved,
		"workers", len(res.Targets),
		"elapsed", time.Since(start).String(),
	)
}
