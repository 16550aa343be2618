package notifier

import (
	"context"
	"strings"

	"EGXTicker/internal/app"
	"EGXTicker/internal/model"
)

const topMovers = 5

// Service is what the chat commands need from the application.
type Service interface {
	Latest() (model.Result, bool)
	Refresh(ctx context.Context) model.Result
	MarketStatus() app.MarketStatus
}

// Commands turns chat commands into replies.
type Commands struct {
	svc Service
}

func NewCommands(svc Service) *Commands { return &Commands{svc: svc} }

// Handle processes a user command and returns a reply.
func (c *Commands) Handle(ctx context.Context, text string) string {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(text), " ")
	// Group chats append the bot name: /status@egx_bot.
	cmd, _, _ = strings.Cut(cmd, "@")

	switch cmd {
	case "/refresh":
		res := c.svc.Refresh(ctx)
		if res.Skipped() {
			return "⏳ A fetch is already in progress, no update."
		}
		return FormatSnapshot(res, topMovers)
	case "/status":
		res, ok := c.svc.Latest()
		if !ok {
			return "No data yet. Send /refresh to fetch now."
		}
		return FormatSnapshot(res, topMovers)
	case "/market":
		return FormatMarketStatus(c.svc.MarketStatus())
	case "/find":
		name := strings.TrimSpace(arg)
		if name == "" {
			return "Usage: /find &lt;name&gt;"
		}
		res, ok := c.svc.Latest()
		if !ok {
			return "No data yet. Send /refresh to fetch now."
		}
		rec, found := res.Snapshot.Find(name)
		if !found {
			return "No stock matches that name."
		}
		return FormatStock(rec)
	default:
		return "Commands:\n• /refresh\n• /status\n• /market\n• /find &lt;name&gt;"
	}
}
