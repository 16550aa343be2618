package market

import (
	"fmt"
	"strings"
	"time"
)

// ClockUpdate is a partial time of day; nil fields keep the prior value.
type ClockUpdate struct {
	Hour   *int `json:"hour,omitempty"`
	Minute *int `json:"minute,omitempty"`
}

// Settings is the update pushed by the settings layer. Any field may be
// missing; missing fields leave the schedule unchanged.
type Settings struct {
	MarketOpenTime  *ClockUpdate    `json:"marketOpenTime,omitempty"`
	MarketCloseTime *ClockUpdate    `json:"marketCloseTime,omitempty"`
	DaysOff         map[string]bool `json:"daysOff,omitempty"`
}

func (u *ClockUpdate) apply(c Clock) (Clock, error) {
	if u == nil {
		return c, nil
	}
	if u.Hour != nil {
		c.Hour = *u.Hour
	}
	if u.Minute != nil {
		c.Minute = *u.Minute
	}
	return c, c.Validate()
}

// Apply returns a copy of s with the update merged in. s is left untouched
// when the update is invalid or would close the market before it opens.
func (s Schedule) Apply(u Settings) (Schedule, error) {
	next := s
	var err error
	if next.Open, err = u.MarketOpenTime.apply(s.Open); err != nil {
		return s, fmt.Errorf("marketOpenTime: %w", err)
	}
	if next.Close, err = u.MarketCloseTime.apply(s.Close); err != nil {
		return s, fmt.Errorf("marketCloseTime: %w", err)
	}
	if next.Close.minutes() <= next.Open.minutes() {
		return s, fmt.Errorf("marketCloseTime %s must be after marketOpenTime %s", next.Close, next.Open)
	}
	for name, off := range u.DaysOff {
		d, err := ParseWeekday(name)
		if err != nil {
			return s, fmt.Errorf("daysOff: %w", err)
		}
		next.DaysOff[d] = off
	}
	return next, nil
}

// SettingsView is the read-only shape of a schedule, mirroring Settings.
type SettingsView struct {
	MarketOpenTime  Clock           `json:"marketOpenTime"`
	MarketCloseTime Clock           `json:"marketCloseTime"`
	DaysOff         map[string]bool `json:"daysOff"`
}

// View renders s the way the settings layer expects it.
func (s Schedule) View() SettingsView {
	days := make(map[string]bool, 7)
	for d := time.Sunday; d <= time.Saturday; d++ {
		days[strings.ToLower(d.String())] = s.DaysOff[d]
	}
	return SettingsView{MarketOpenTime: s.Open, MarketCloseTime: s.Close, DaysOff: days}
}
