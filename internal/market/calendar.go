// Package market decides whether the exchange is trading at a given moment.
package market

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	ErrInvalidClock   = errors.New("invalid time of day")
	ErrUnknownWeekday = errors.New("unknown weekday")
)

// Clock is a time of day at minute granularity.
type Clock struct {
	Hour   int `json:"hour" yaml:"hour"`
	Minute int `json:"minute" yaml:"minute"`
}

// ParseClock parses "HH:MM".
func ParseClock(s string) (Clock, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return Clock{}, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	hour, err := strconv.Atoi(h)
	if err != nil {
		return Clock{}, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	minute, err := strconv.Atoi(m)
	if err != nil {
		return Clock{}, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	c := Clock{Hour: hour, Minute: minute}
	return c, c.Validate()
}

func (c Clock) Validate() error {
	if c.Hour < 0 || c.Hour > 23 || c.Minute < 0 || c.Minute > 59 {
		return fmt.Errorf("%w: %02d:%02d", ErrInvalidClock, c.Hour, c.Minute)
	}
	return nil
}

func (c Clock) String() string { return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute) }

func (c Clock) minutes() int { return c.Hour*60 + c.Minute }

// UnmarshalText accepts "HH:MM", used by env overrides.
func (c *Clock) UnmarshalText(b []byte) error {
	parsed, err := ParseClock(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// UnmarshalJSON accepts either "HH:MM" or a {hour, minute} object.
func (c *Clock) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		return c.UnmarshalText([]byte(s))
	}
	var raw struct {
		Hour   int `json:"hour"`
		Minute int `json:"minute"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	parsed := Clock{Hour: raw.Hour, Minute: raw.Minute}
	if err := parsed.Validate(); err != nil {
		return err
	}
	*c = parsed
	return nil
}

// UnmarshalYAML accepts either "HH:MM" or a {hour, minute} mapping.
func (c *Clock) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		return c.UnmarshalText([]byte(node.Value))
	}
	var raw struct {
		Hour   int `yaml:"hour"`
		Minute int `yaml:"minute"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed := Clock{Hour: raw.Hour, Minute: raw.Minute}
	if err := parsed.Validate(); err != nil {
		return err
	}
	*c = parsed
	return nil
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ParseWeekday maps an English weekday name (any case) to time.Weekday.
func ParseWeekday(name string) (time.Weekday, error) {
	d, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownWeekday, name)
	}
	return d, nil
}

// Schedule is the trading window and the weekly off-days.
type Schedule struct {
	Open    Clock
	Close   Clock
	DaysOff [7]bool // indexed by time.Weekday

	// Location used to read the wall clock; nil means host local time.
	Location *time.Location
}

// DefaultSchedule is the EGX session: 10:00 to 14:30, closed Friday and Saturday.
func DefaultSchedule() Schedule {
	s := Schedule{
		Open:  Clock{Hour: 10},
		Close: Clock{Hour: 14, Minute: 30},
	}
	s.DaysOff[time.Friday] = true
	s.DaysOff[time.Saturday] = true
	return s
}

// IsOffDay reports whether d is configured as a non-trading day.
func (s Schedule) IsOffDay(d time.Weekday) bool { return s.DaysOff[d] }

// IsOpen reports whether the market trades at now. Off-days are always
// closed; otherwise the window is [Open, Close).
func IsOpen(s Schedule, now time.Time) bool {
	if s.Location != nil {
		now = now.In(s.Location)
	} else {
		now = now.Local()
	}
	if s.DaysOff[now.Weekday()] {
		return false
	}
	cur := now.Hour()*60 + now.Minute()
	return s.Open.minutes() <= cur && cur < s.Close.minutes()
}

// OffDayNames lists the configured off-days by lowercase name, Sunday first.
func (s Schedule) OffDayNames() []string {
	var out []string
	for d := time.Sunday; d <= time.Saturday; d++ {
		if s.DaysOff[d] {
			out = append(out, strings.ToLower(d.String()))
		}
	}
	return out
}
