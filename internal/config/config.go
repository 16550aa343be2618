package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"EGXTicker/internal/collector"
	"EGXTicker/internal/market"
	"EGXTicker/internal/scheduler"
)

// Config holds all application configuration.
type Config struct {
	Source   Source   `yaml:"source"`
	Polling  Polling  `yaml:"polling"`
	Market   Market   `yaml:"market"`
	Server   Server   `yaml:"server"`
	Database Database `yaml:"database"`
	Redis    Redis    `yaml:"redis"`
	Telegram Telegram `yaml:"telegram"`
	Proxy    string   `yaml:"proxy" env:"HTTPS_PROXY"`
}

type Source struct {
	URL       string        `yaml:"url" env:"EGX_SOURCE_URL"`
	Timeout   time.Duration `yaml:"timeout" env:"EGX_SOURCE_TIMEOUT"`
	UserAgent string        `yaml:"user_agent" env:"EGX_USER_AGENT"`
	Mock      bool          `yaml:"mock" env:"EGX_MOCK"`
	MockDelay time.Duration `yaml:"mock_delay" env:"EGX_MOCK_DELAY"`
}

type Polling struct {
	Interval   time.Duration `yaml:"interval" env:"POLL_INTERVAL"`
	RunOnStart bool          `yaml:"run_on_start" env:"RUN_ON_START"`
}

// Market configures the trading session. Days not listed in DaysOff keep
// the exchange default (Friday and Saturday off).
type Market struct {
	Open     market.Clock    `yaml:"open" env:"MARKET_OPEN"`
	Close    market.Clock    `yaml:"close" env:"MARKET_CLOSE"`
	Timezone string          `yaml:"timezone" env:"MARKET_TIMEZONE"`
	DaysOff  map[string]bool `yaml:"days_off" env:"MARKET_DAYS_OFF"`
}

type Server struct {
	Addr         string        `yaml:"addr" env:"SERVER_ADDR"`
	RefreshEvery time.Duration `yaml:"refresh_every" env:"SERVER_REFRESH_EVERY"`
}

type Database struct {
	SQLitePath string `yaml:"sqlite_path" env:"SQLITE_PATH"`
}

// Redis is optional; an empty Addr disables publishing.
type Redis struct {
	Addr     string        `yaml:"addr" env:"REDIS_ADDR"`
	Password string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int           `yaml:"db" env:"REDIS_DB"`
	Key      string        `yaml:"key" env:"REDIS_KEY"`
	Channel  string        `yaml:"channel" env:"REDIS_CHANNEL"`
	TTL      time.Duration `yaml:"ttl" env:"REDIS_TTL"`
}

// Telegram is optional; an empty BotToken disables the bot.
type Telegram struct {
	BotToken string `yaml:"bot_token" env:"TELEGRAM_BOT_TOKEN"`
	ChatID   string `yaml:"chat_id" env:"TELEGRAM_CHAT_ID"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	sched := market.DefaultSchedule()
	return &Config{
		Source: Source{
			URL:       collector.DefaultSourceURL,
			Timeout:   collector.DefaultTimeout,
			UserAgent: collector.DefaultUserAgent,
			MockDelay: 500 * time.Millisecond,
		},
		Polling: Polling{Interval: scheduler.DefaultInterval, RunOnStart: true},
		Market:  Market{Open: sched.Open, Close: sched.Close},
		Server:  Server{Addr: ":8080", RefreshEvery: 5 * time.Second},
		Database: Database{
			SQLitePath: "data/egx_ticker.db",
		},
	}
}

// Load starts from Default, then applies the YAML file at path (if it
// exists), then any dotenv files, then environment variables.
func Load(path string, dotenv ...string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	for _, f := range dotenv {
		// Variables already in the environment win over the file.
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Validate checks that all fields are usable.
func (c *Config) Validate() error {
	if !c.Source.Mock {
		u, err := url.Parse(c.Source.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("source.url %q is not an absolute URL", c.Source.URL)
		}
	}
	if c.Source.Timeout <= 0 {
		return fmt.Errorf("source.timeout must be positive")
	}
	if c.Polling.Interval < scheduler.MinInterval {
		return fmt.Errorf("polling.interval must be at least %s", scheduler.MinInterval)
	}
	if c.Polling.Interval%time.Second != 0 {
		return fmt.Errorf("polling.interval must be a whole number of seconds")
	}
	if _, err := c.Schedule(); err != nil {
		return err
	}
	if c.Server.RefreshEvery < 0 {
		return fmt.Errorf("server.refresh_every must not be negative")
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("redis.db must not be negative")
	}
	if c.Telegram.BotToken != "" && c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required when telegram.bot_token is set")
	}
	return nil
}

// Schedule builds the market schedule from the market section.
func (c *Config) Schedule() (market.Schedule, error) {
	if err := c.Market.Open.Validate(); err != nil {
		return market.Schedule{}, fmt.Errorf("market.open: %w", err)
	}
	if err := c.Market.Close.Validate(); err != nil {
		return market.Schedule{}, fmt.Errorf("market.close: %w", err)
	}
	if c.Market.Close.Hour*60+c.Market.Close.Minute <= c.Market.Open.Hour*60+c.Market.Open.Minute {
		return market.Schedule{}, fmt.Errorf("market.close %s must be after market.open %s", c.Market.Close, c.Market.Open)
	}

	sched := market.DefaultSchedule()
	sched.Open = c.Market.Open
	sched.Close = c.Market.Close
	sched, err := sched.Apply(market.Settings{DaysOff: c.Market.DaysOff})
	if err != nil {
		return market.Schedule{}, fmt.Errorf("market.days_off: %w", err)
	}
	if c.Market.Timezone != "" {
		loc, err := time.LoadLocation(c.Market.Timezone)
		if err != nil {
			return market.Schedule{}, fmt.Errorf("market.timezone: %w", err)
		}
		sched.Location = loc
	}
	return sched, nil
}
