package collector

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"EGXTicker/internal/market"
	"EGXTicker/internal/model"
)

var ErrNoFetcher = errors.New("no fetcher configured")

// Collector runs fetch cycles against the exchange page. It owns the fetch
// gate and the current market schedule; nothing else mutates either.
type Collector struct {
	Fetcher Fetcher
	Timeout time.Duration
	Now     func() time.Time

	gate     Gate
	mu       sync.RWMutex
	schedule market.Schedule
}

// NewCollector creates a Collector with its own copy of the schedule.
func NewCollector(fetcher Fetcher, schedule market.Schedule) *Collector {
	return &Collector{
		Fetcher:  fetcher,
		Timeout:  DefaultTimeout,
		Now:      time.Now,
		schedule: schedule,
	}
}

// Collect runs one fetch cycle. See CollectWith.
func (c *Collector) Collect(ctx context.Context, force bool) model.Result {
	return c.CollectWith(ctx, force, nil)
}

// CollectWith runs one fetch cycle and passes the result to deliver while
// the gate is still held, so deliveries keep the order in which fetches
// started.
//
// If another cycle is running the result is Skipped immediately. Unless
// force is set, a closed market yields the fallback snapshot without any
// network call. Every failure after that also yields the fallback snapshot;
// errors never reach the caller.
func (c *Collector) CollectWith(ctx context.Context, force bool, deliver func(model.Result)) model.Result {
	if !c.gate.TryAcquire() {
		log.Println("[INFO] fetch skipped: another fetch is in flight")
		res := model.Result{
			ID:        uuid.NewString(),
			Outcome:   model.OutcomeSkipped,
			Reason:    "fetch in progress",
			FetchedAt: c.Now(),
		}
		if deliver != nil {
			deliver(res)
		}
		return res
	}
	defer c.gate.Release()

	res := c.cycle(ctx, force)
	if deliver != nil {
		deliver(res)
	}
	return res
}

// Busy reports whether a fetch cycle is in flight.
func (c *Collector) Busy() bool { return c.gate.Busy() }

func (c *Collector) cycle(ctx context.Context, force bool) model.Result {
	res := model.Result{ID: uuid.NewString(), FetchedAt: c.Now()}

	if !force && !c.MarketOpen() {
		return fallback(res, "market closed")
	}

	name := "none"
	if c.Fetcher != nil {
		name = c.Fetcher.Name()
	}
	page, err := c.fetchPage(ctx)
	if err != nil {
		log.Printf("[WARN] fetch from %s failed: %v, using fallback data", name, err)
		return fallback(res, err.Error())
	}

	recs := ExtractRecords(page)
	if len(recs) == 0 {
		log.Printf("[WARN] no stock rows found in %s page (%d bytes), using fallback data", name, len(page))
		return fallback(res, "no rows in page")
	}

	log.Printf("[INFO] scraped %d stocks from %s", len(recs), name)
	res.Outcome = model.OutcomeLive
	res.Snapshot = recs
	return res
}

// fetchPage bounds the request by Timeout and turns a panicking fetcher
// into an ordinary error.
func (c *Collector) fetchPage(ctx context.Context) (page string, err error) {
	if c.Fetcher == nil {
		return "", ErrNoFetcher
	}
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("fetcher panic: %v", r)
		}
	}()
	return c.Fetcher.FetchPage(ctx)
}

func fallback(res model.Result, reason string) model.Result {
	res.Outcome = model.OutcomeSynthetic
	res.Snapshot = FallbackSnapshot()
	res.Reason = reason
	return res
}

// Schedule returns a copy of the current market schedule.
func (c *Collector) Schedule() market.Schedule {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.schedule
}

// MarketOpen reports whether the market trades right now.
func (c *Collector) MarketOpen() bool {
	return market.IsOpen(c.Schedule(), c.Now())
}

// UpdateMarketSettings merges a partial settings update into the schedule.
// An invalid update leaves the schedule unchanged.
func (c *Collector) UpdateMarketSettings(u market.Settings) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	next, err := c.schedule.Apply(u)
	if err != nil {
		return fmt.Errorf("update market settings: %w", err)
	}
	c.schedule = next
	log.Printf("[INFO] market settings updated: open %s, close %s, days off %v",
		next.Open, next.Close, next.OffDayNames())
	return nil
}
