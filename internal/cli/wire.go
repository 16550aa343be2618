package cli

import (
	"context"
	"log"
	"os"
	"path/filepath"

	"EGXTicker/internal/app"
	"EGXTicker/internal/collector"
	"EGXTicker/internal/config"
	"EGXTicker/internal/feed"
	"EGXTicker/internal/notifier"
	"EGXTicker/internal/publisher"
	"EGXTicker/internal/recorder"
)

// newCollector builds the collector described by cfg.
func newCollector(cfg *config.Config, mock bool) (*collector.Collector, error) {
	sched, err := cfg.Schedule()
	if err != nil {
		return nil, err
	}
	var fetcher collector.Fetcher
	if mock || cfg.Source.Mock {
		fetcher = collector.NewMockFetcher(cfg.Source.MockDelay)
	} else {
		fetcher = collector.NewEGXFetcher(cfg.Source.URL, cfg.Source.Timeout, cfg.Source.UserAgent, cfg.Proxy)
	}
	log.Printf("[INFO] data source: %s", fetcher.Name())

	col := collector.NewCollector(fetcher, sched)
	col.Timeout = cfg.Source.Timeout
	return col, nil
}

// newRecorder opens the SQLite journal, or a no-op recorder when it is not
// configured or cannot be opened.
func newRecorder(cfg *config.Config) recorder.Recorder {
	path := cfg.Database.SQLitePath
	if path == "" {
		return recorder.NewNoopRecorder()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Printf("[WARN] create %s failed, using noop recorder: %v", dir, err)
			return recorder.NewNoopRecorder()
		}
	}
	sr, err := recorder.NewSQLiteRecorder(path)
	if err != nil {
		log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
		return recorder.NewNoopRecorder()
	}
	return sr
}

// buildApp wires the full service. The returned notifier is nil when
// Telegram is not configured.
func buildApp(ctx context.Context, cfg *config.Config, mock bool) (*app.App, *notifier.TelegramNotifier, error) {
	col, err := newCollector(cfg, mock)
	if err != nil {
		return nil, nil, err
	}

	var sinks []feed.Sink
	if cfg.Redis.Addr != "" {
		rdb, err := publisher.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Printf("[WARN] redis unavailable, widget publishing disabled: %v", err)
		} else {
			sinks = append(sinks, publisher.NewRedisPublisher(rdb, cfg.Redis.Key, cfg.Redis.Channel, cfg.Redis.TTL))
		}
	}

	var tn *notifier.TelegramNotifier
	if cfg.Telegram.BotToken != "" {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		sinks = append(sinks, tn)
	}

	a := app.New(ctx, col, newRecorder(cfg), sinks...)
	if err := a.SetInterval(cfg.Polling.Interval); err != nil {
		a.Close()
		return nil, nil, err
	}
	return a, tn, nil
}
