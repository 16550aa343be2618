package feed

import (
	"context"
	"log"
	"sync"
	"time"

	"EGXTicker/internal/model"
)

const DefaultPublishTimeout = 5 * time.Second

// Sink receives every snapshot the feed accepts.
type Sink interface {
	Name() string
	Publish(ctx context.Context, res model.Result) error
}

// Feed is the data callback handed to the scheduler. It keeps the latest
// snapshot for readers and fans each new one out to the sinks in order.
type Feed struct {
	Ctx            context.Context
	PublishTimeout time.Duration

	mu     sync.RWMutex
	latest model.Result
	has    bool
	sinks  []Sink
}

// New creates a Feed publishing to sinks.
func New(ctx context.Context, sinks ...Sink) *Feed {
	return &Feed{
		Ctx:            ctx,
		PublishTimeout: DefaultPublishTimeout,
		sinks:          sinks,
	}
}

// AddSink registers another sink for future deliveries.
func (f *Feed) AddSink(s Sink) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sinks = append(f.sinks, s)
}

// Deliver replaces the latest snapshot and publishes it. Skipped results
// carry nothing to show and are dropped. Sink failures are logged only.
func (f *Feed) Deliver(res model.Result) {
	if res.Skipped() {
		return
	}
	f.mu.Lock()
	f.latest = res
	f.has = true
	sinks := append([]Sink(nil), f.sinks...)
	f.mu.Unlock()

	for _, s := range sinks {
		if err := f.publish(s, res); err != nil {
			log.Printf("[ERROR] publish to %s: %v", s.Name(), err)
		}
	}
}

func (f *Feed) publish(s Sink, res model.Result) error {
	ctx := f.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if f.PublishTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.PublishTimeout)
		defer cancel()
	}
	return s.Publish(ctx, res)
}

// Latest returns the most recent delivered result, if any.
func (f *Feed) Latest() (model.Result, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.latest, f.has
}
