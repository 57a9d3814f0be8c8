package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"NewsDesk/internal/ports"
)

// CronScheduler fires a job once on Start and then on a fixed interval.
// Triggers that arrive while the previous run is still going are skipped.
type CronScheduler struct {
	interval time.Duration
	logger   cron.Logger

	mu        sync.Mutex
	cron      *cron.Cron
	immediate sync.WaitGroup
	done      chan struct{}
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler builds a scheduler; intervals below one second round up.
func NewCronScheduler(interval time.Duration, logger cron.Logger) *CronScheduler {
	if logger == nil {
		logger = cron.DiscardLogger
	}
	return &CronScheduler{interval: interval, logger: logger}
}

// Start runs job right away in the background and registers it on the interval.
// Cancelling ctx stops future triggers.
func (c *CronScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cron != nil {
		return nil
	}

	wrapped := cron.NewChain(
		cron.Recover(c.logger),
		cron.SkipIfStillRunning(c.logger),
	).Then(cron.FuncJob(func() { job(time.Now()) }))

	c.cron = cron.New(cron.WithLogger(c.logger))
	c.cron.Schedule(cron.Every(c.interval), wrapped)
	c.cron.Start()

	c.immediate.Add(1)
	go func() {
		defer c.immediate.Done()
		wrapped.Run()
	}()

	c.done = make(chan struct{})
	go func(done <-chan struct{}) {
		select {
		case <-ctx.Done():
			_ = c.Stop(context.Background())
		case <-done:
		}
	}(c.done)

	return nil
}

// Stop cancels future triggers and waits for in-flight runs until ctx expires.
// Running jobs are never interrupted.
func (c *CronScheduler) Stop(ctx context.Context) error {
	c.mu.Lock()
	if c.cron == nil {
		c.mu.Unlock()
		return nil
	}
	stopped := c.cron.Stop()
	close(c.done)
	c.cron = nil
	c.mu.Unlock()

	idle := make(chan struct{})
	go func() {
		<-stopped.Done()
		c.immediate.Wait()
		close(idle)
	}()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
