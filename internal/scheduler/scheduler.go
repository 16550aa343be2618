package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"EGXTicker/internal/model"
)

const (
	DefaultInterval = 30 * time.Second
	MinInterval     = time.Second
)

var (
	ErrAlreadyRunning = errors.New("polling already running")
	ErrNoCallback     = errors.New("no data callback")
)

// Source is the part of the collector the scheduler drives.
type Source interface {
	CollectWith(ctx context.Context, force bool, deliver func(model.Result)) model.Result
	MarketOpen() bool
}

// Scheduler polls a Source on a fixed interval and pushes results to the
// callback registered by Start.
type Scheduler struct {
	Source Source
	Ctx    context.Context

	mu       sync.Mutex
	cron     *cron.Cron
	interval time.Duration
	onData   func(model.Result)
	running  bool
	gen      uint64
}

// NewScheduler creates a stopped Scheduler with the default interval.
func NewScheduler(ctx context.Context, src Source) *Scheduler {
	return &Scheduler{
		Source:   src,
		Ctx:      ctx,
		interval: DefaultInterval,
	}
}

// Start registers onData, runs one cycle right away and arms the polling
// timer. Starting a running scheduler is rejected and leaves its timer alone.
func (s *Scheduler) Start(onData func(model.Result)) error {
	if onData == nil {
		return ErrNoCallback
	}
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		log.Println("[WARN] polling already running, start ignored")
		return ErrAlreadyRunning
	}
	s.gen++
	gen := s.gen
	s.running = true
	s.onData = onData

	c := cron.New(cron.WithChain(cron.Recover(cron.PrintfLogger(log.Default()))))
	c.Schedule(cron.Every(s.interval), cron.FuncJob(func() { s.tick(gen) }))
	c.Start()
	s.cron = c
	interval := s.interval
	s.mu.Unlock()

	log.Printf("[INFO] polling started, interval %s", interval)
	go s.tick(gen)
	return nil
}

// Stop disarms the timer. A fetch already in flight still completes but its
// result is dropped. Stopping a stopped scheduler does nothing.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	if s.cron != nil {
		s.cron.Stop()
		s.cron = nil
	}
	log.Println("[INFO] polling stopped")
}

// SetInterval changes the polling interval used by the next Start. A timer
// that is already armed keeps its old period. The timer has one-second
// resolution, so d must be a whole number of seconds.
func (s *Scheduler) SetInterval(d time.Duration) error {
	if d < MinInterval {
		return fmt.Errorf("polling interval %s below minimum %s", d, MinInterval)
	}
	if d%time.Second != 0 {
		return fmt.Errorf("polling interval %s is not a whole number of seconds", d)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interval = d
	if s.running {
		log.Printf("[INFO] polling interval set to %s, takes effect on next start", d)
	}
	return nil
}

// Interval returns the configured polling interval.
func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// Running reports whether the polling timer is armed.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Refresh runs a forced cycle outside the timer and always hands the result
// to onData, Skipped included. A nil onData falls back to the callback
// registered by the last Start.
func (s *Scheduler) Refresh(ctx context.Context, onData func(model.Result)) model.Result {
	if onData == nil {
		s.mu.Lock()
		onData = s.onData
		s.mu.Unlock()
	}
	return s.Source.CollectWith(ctx, true, func(res model.Result) {
		if onData != nil {
			onData(res)
		}
	})
}

func (s *Scheduler) tick(gen uint64) {
	s.Source.CollectWith(s.Ctx, false, func(res model.Result) {
		if res.Skipped() {
			return
		}
		if !res.Live() && !s.Source.MarketOpen() {
			log.Printf("[INFO] market closed, keeping previous data (%s)", res.Reason)
			return
		}
		onData := s.current(gen)
		if onData == nil {
			log.Println("[INFO] polling stopped during fetch, result dropped")
			return
		}
		onData(res)
	})
}

// current returns the callback if the run that scheduled gen is still active.
func (s *Scheduler) current(gen uint64) func(model.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running || s.gen != gen {
		return nil
	}
	return s.onData
}
