// Package app wires the fetch pipeline to its surfaces and exposes the
// manual control operations they share.
package app

import (
	"context"
	"errors"
	"io"
	"log"
	"time"

	"EGXTicker/internal/collector"
	"EGXTicker/internal/feed"
	"EGXTicker/internal/market"
	"EGXTicker/internal/model"
	"EGXTicker/internal/recorder"
	"EGXTicker/internal/scheduler"
)

// MarketStatus is the market and polling state shown to users.
type MarketStatus struct {
	Open     bool                `json:"open"`
	Now      time.Time           `json:"now"`
	Settings market.SettingsView `json:"settings"`
	Polling  bool                `json:"polling"`
	Interval string              `json:"interval"`
	Fetching bool                `json:"fetching"`
}

// App owns one collector, its scheduler and the feed they deliver into.
type App struct {
	Collector *collector.Collector
	Scheduler *scheduler.Scheduler
	Feed      *feed.Feed
	Recorder  recorder.Recorder

	closers []io.Closer
}

// New builds an App. The recorder is always a feed sink; extra sinks
// follow it in delivery order.
func New(ctx context.Context, col *collector.Collector, rec recorder.Recorder, sinks ...feed.Sink) *App {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	a := &App{
		Collector: col,
		Scheduler: scheduler.NewScheduler(ctx, col),
		Feed:      feed.New(ctx, rec),
		Recorder:  rec,
		closers:   []io.Closer{rec},
	}
	for _, s := range sinks {
		a.Feed.AddSink(s)
		if c, ok := s.(io.Closer); ok {
			a.closers = append(a.closers, c)
		}
	}
	return a
}

// Fetch runs one cycle and returns its result without delivering it.
func (a *App) Fetch(ctx context.Context, force bool) model.Result {
	return a.Collector.Collect(ctx, force)
}

// Start begins polling into the feed.
func (a *App) Start() error { return a.Scheduler.Start(a.Feed.Deliver) }

// Stop halts polling.
func (a *App) Stop() { a.Scheduler.Stop() }

// SetInterval changes the polling interval for the next Start.
func (a *App) SetInterval(d time.Duration) error { return a.Scheduler.SetInterval(d) }

// Refresh forces a fetch and delivers it; a Skipped result means no update.
// The fetch is bounded by the collector timeout only: cancelling ctx does
// not abort it, so a caller that goes away cannot turn live data into
// fallback data.
func (a *App) Refresh(ctx context.Context) model.Result {
	return a.Scheduler.Refresh(context.WithoutCancel(ctx), a.Feed.Deliver)
}

// Latest returns the last delivered snapshot.
func (a *App) Latest() (model.Result, bool) { return a.Feed.Latest() }

// UpdateMarketSettings applies a partial market settings update.
func (a *App) UpdateMarketSettings(s market.Settings) error {
	return a.Collector.UpdateMarketSettings(s)
}

// MarketStatus reports the current market and polling state.
func (a *App) MarketStatus() MarketStatus {
	sched := a.Collector.Schedule()
	now := a.Collector.Now()
	return MarketStatus{
		Open:     market.IsOpen(sched, now),
		Now:      now,
		Settings: sched.View(),
		Polling:  a.Scheduler.Running(),
		Interval: a.Scheduler.Interval().String(),
		Fetching: a.Collector.Busy(),
	}
}

// History returns up to n journaled cycles, newest first.
func (a *App) History(ctx context.Context, n int) ([]recorder.Entry, error) {
	return a.Recorder.Recent(ctx, n)
}

// Close stops polling and releases the recorder and sinks.
func (a *App) Close() error {
	a.Stop()
	var errs []error
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		log.Printf("[ERROR] close: %v", err)
		return err
	}
	return nil
}
