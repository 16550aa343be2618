package notifier

import (
	"fmt"
	"html"
	"sort"
	"strings"

	"EGXTicker/internal/app"
	"EGXTicker/internal/model"
)

const timeLayout = "2006-01-02 15:04"

// FormatStock formats one record for display.
func FormatStock(r model.StockRecord) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📈 <b>%s</b>\n\n", html.EscapeString(r.ShortName)))
	b.WriteString(fmt.Sprintf("Last: %s | Change: %s (%s%%)\n", r.LastPrice, r.Change, r.ChangePercent))
	b.WriteString(fmt.Sprintf("Close: %s | Prev close: %s\n", r.Close, r.PreviousClose))
	b.WriteString(fmt.Sprintf("Day high/low: %s / %s\n", r.DayHigh, r.DayLow))
	b.WriteString(fmt.Sprintf("Bid/Ask: %s / %s\n", r.Bid, r.Ask))
	b.WriteString(fmt.Sprintf("Volume: %s\n", r.TradedVolume))
	return b.String()
}

// FormatSnapshot summarizes a result with the top movers by change percent.
func FormatSnapshot(res model.Result, top int) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 <b>EGX snapshot</b> | %s\n\n", res.FetchedAt.Format(timeLayout)))
	b.WriteString(fmt.Sprintf("Source: %s | Stocks: %d\n", res.Outcome, len(res.Snapshot)))
	if res.Reason != "" {
		b.WriteString(fmt.Sprintf("Note: %s\n", html.EscapeString(res.Reason)))
	}

	gainers, losers := movers(res.Snapshot, top)
	if len(gainers) > 0 {
		b.WriteString("\n🟢 <b>Top gainers:</b>\n")
		writeMovers(&b, gainers)
	}
	if len(losers) > 0 {
		b.WriteString("\n🔴 <b>Top losers:</b>\n")
		writeMovers(&b, losers)
	}
	return b.String()
}

type mover struct {
	name string
	pct  float64
	last model.Value
}

// movers splits records with a numeric change percent into the top
// gainers and losers, at most n of each.
func movers(snap model.Snapshot, n int) (gainers, losers []mover) {
	var all []mover
	for _, r := range snap {
		if pct, ok := r.ChangePercent.Float(); ok {
			all = append(all, mover{name: r.ShortName, pct: pct, last: r.LastPrice})
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].pct > all[j].pct })
	for _, m := range all {
		if m.pct <= 0 || len(gainers) == n {
			break
		}
		gainers = append(gainers, m)
	}
	for i := len(all) - 1; i >= 0 && len(losers) < n; i-- {
		if all[i].pct >= 0 {
			break
		}
		losers = append(losers, all[i])
	}
	return gainers, losers
}

func writeMovers(b *strings.Builder, ms []mover) {
	for _, m := range ms {
		b.WriteString(fmt.Sprintf("  %s: %s (%+.2f%%)\n", html.EscapeString(m.name), m.last, m.pct))
	}
}

// FormatMarketStatus formats the market and polling state.
func FormatMarketStatus(st app.MarketStatus) string {
	var b strings.Builder
	state := "🔴 closed"
	if st.Open {
		state = "🟢 open"
	}
	b.WriteString(fmt.Sprintf("🏛 <b>EGX market</b>: %s\n\n", state))
	b.WriteString(fmt.Sprintf("Session: %s - %s\n", st.Settings.MarketOpenTime, st.Settings.MarketCloseTime))

	var off []string
	for _, d := range []string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"} {
		if st.Settings.DaysOff[d] {
			off = append(off, d)
		}
	}
	if len(off) == 0 {
		off = []string{"none"}
	}
	b.WriteString(fmt.Sprintf("Days off: %s\n", strings.Join(off, ", ")))

	polling := "stopped"
	if st.Polling {
		polling = "every " + st.Interval
	}
	b.WriteString(fmt.Sprintf("Polling: %s\n", polling))
	b.WriteString(fmt.Sprintf("Checked at: %s\n", st.Now.Format(timeLayout)))
	return b.String()
}

// FormatOutcomeChange announces a switch between live and fallback data.
func FormatOutcomeChange(prev model.Outcome, res model.Result) string {
	if res.Live() {
		return fmt.Sprintf("✅ <b>EGX data restored</b>\n\nLive prices for %d stocks (was %s).", len(res.Snapshot), prev)
	}
	msg := "⚠️ <b>EGX data unavailable</b>\n\nShowing fallback prices."
	if res.Reason != "" {
		msg += "\nReason: " + html.EscapeString(res.Reason)
	}
	return msg
}
