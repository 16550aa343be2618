package collector

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"EGXTicker/internal/model"
)

// FallbackSnapshot is the fixed data substituted whenever live data cannot
// be obtained, so surfaces always have something to render.
func FallbackSnapshot() model.Snapshot {
	return model.Snapshot{
		{
			DayHigh:        model.Number(1251),
			DayLow:         model.Number(1187.5),
			Close:          model.Number(1250),
			PreviousClose:  model.Number(1250),
			Change:         model.Number(0),
			ChangePercent:  model.Number(0),
			BidSessionHigh: model.Number(1251),
			BidSessionLow:  model.Number(1250),
			Bid:            model.Number(1250),
			Ask:            model.Number(1460),
			LastPrice:      model.Number(1250),
			ShortName:      "العز الدخيلة للصلب",
			TradedVolume:   model.Number(76),
		},
		{
			DayHigh:        model.Number(300.42),
			DayLow:         model.Number(200.28),
			Close:          model.Number(0),
			PreviousClose:  model.Number(250.35),
			Change:         model.Number(1.65),
			ChangePercent:  model.Number(0.66),
			BidSessionHigh: model.Number(252),
			BidSessionLow:  model.Number(247),
			Bid:            model.Number(250.2),
			Ask:            model.Number(252.5),
			LastPrice:      model.Number(252),
			ShortName:      "مينا فارم للأدوية",
			TradedVolume:   model.Number(908),
		},
	}
}

// RenderPage renders records as a page in the exchange's table layout:
// one header row followed by one 13-cell row per record.
func RenderPage(snap model.Snapshot) string {
	var b strings.Builder
	b.WriteString("<html><head><meta charset=\"utf-8\"></head><body><table>\n<tr>")
	for _, col := range model.Columns {
		b.WriteString("<td>" + escapeText(col) + "</td>")
	}
	b.WriteString("</tr>\n")
	for _, r := range snap {
		cells := []model.Value{
			r.DayHigh, r.DayLow, r.Close, r.PreviousClose, r.Change, r.ChangePercent,
			r.BidSessionHigh, r.BidSessionLow, r.Bid, r.Ask, r.LastPrice,
		}
		b.WriteString("<tr>")
		for _, v := range cells {
			b.WriteString("<td>" + escapeText(v.String()) + "</td>")
		}
		b.WriteString("<td>" + escapeText(r.ShortName) + "</td>")
		b.WriteString("<td>" + escapeText(r.TradedVolume.String()) + "</td>")
		b.WriteString("</tr>\n")
	}
	b.WriteString("</table></body></html>")
	return b.String()
}

// cellEscaper escapes only what the extractor decodes back.
var cellEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escapeText(s string) string { return cellEscaper.Replace(s) }

// MockFetcher serves a fixed page for offline development and tests.
// Delay simulates a slow round trip; Err makes every fetch fail.
type MockFetcher struct {
	Page  string
	Err   error
	Delay time.Duration

	calls atomic.Int32
}

// NewMockFetcher serves the fallback records rendered as a page.
func NewMockFetcher(delay time.Duration) *MockFetcher {
	return &MockFetcher{Page: RenderPage(FallbackSnapshot()), Delay: delay}
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchPage(ctx context.Context) (string, error) {
	m.calls.Add(1)
	if m.Delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(m.Delay):
		}
	}
	if m.Err != nil {
		return "", m.Err
	}
	return m.Page, nil
}

// Calls returns how many fetches were attempted.
func (m *MockFetcher) Calls() int { return int(m.calls.Load()) }
