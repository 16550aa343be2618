package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2026-10-18 is a Sunday.
func at(day, hour, minute int) time.Time {
	return time.Date(2026, time.October, day, hour, minute, 0, 0, time.Local)
}

func TestIsOpen(t *testing.T) {
	s := DefaultSchedule()
	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"before open", at(18, 9, 59), false},
		{"at open", at(18, 10, 0), true},
		{"one minute before close", at(18, 14, 29), true},
		{"exactly at close", at(18, 14, 30), false},
		{"seconds are ignored", at(18, 14, 29).Add(59 * time.Second), true},
		{"evening", at(18, 20, 0), false},
		{"friday midday", at(23, 12, 0), false},
		{"saturday midday", at(24, 12, 0), false},
		{"thursday midday", at(22, 12, 0), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsOpen(s, tt.now))
		})
	}
}

func TestIsOpen_OffDayOverridesHours(t *testing.T) {
	s := DefaultSchedule()
	s.DaysOff[time.Sunday] = true
	for h := 0; h < 24; h++ {
		assert.False(t, IsOpen(s, at(18, h, 0)), "hour %d", h)
	}
}

func TestIsOpen_Location(t *testing.T) {
	cairo := time.FixedZone("EET", 2*60*60)
	s := DefaultSchedule()
	s.Location = cairo
	// 09:00 UTC on a Sunday is 11:00 in Cairo.
	assert.True(t, IsOpen(s, time.Date(2026, time.October, 18, 9, 0, 0, 0, time.UTC)))
	assert.False(t, IsOpen(s, time.Date(2026, time.October, 18, 13, 0, 0, 0, time.UTC)))
}

func TestParseClock(t *testing.T) {
	c, err := ParseClock("09:05")
	require.NoError(t, err)
	assert.Equal(t, Clock{Hour: 9, Minute: 5}, c)
	assert.Equal(t, "09:05", c.String())

	for _, bad := range []string{"", "9", "24:00", "10:60", "ab:cd"} {
		_, err := ParseClock(bad)
		assert.ErrorIs(t, err, ErrInvalidClock, "input %q", bad)
	}
}

func TestParseWeekday(t *testing.T) {
	d, err := ParseWeekday(" Friday ")
	require.NoError(t, err)
	assert.Equal(t, time.Friday, d)

	_, err = ParseWeekday("funday")
	assert.ErrorIs(t, err, ErrUnknownWeekday)
}

func TestApply_PartialUpdate(t *testing.T) {
	s := DefaultSchedule()
	hour := 11
	next, err := s.Apply(Settings{MarketOpenTime: &ClockUpdate{Hour: &hour}})
	require.NoError(t, err)
	assert.Equal(t, Clock{Hour: 11}, next.Open)
	assert.Equal(t, s.Close, next.Close)
	assert.Equal(t, s.DaysOff, next.DaysOff)

	next, err = next.Apply(Settings{DaysOff: map[string]bool{"friday": false, "sunday": true}})
	require.NoError(t, err)
	assert.False(t, next.IsOffDay(time.Friday))
	assert.True(t, next.IsOffDay(time.Sunday))
	assert.True(t, next.IsOffDay(time.Saturday))
	assert.Equal(t, Clock{Hour: 11}, next.Open)
}

func TestApply_InvalidLeavesScheduleUntouched(t *testing.T) {
	s := DefaultSchedule()
	minute := 75
	got, err := s.Apply(Settings{MarketCloseTime: &ClockUpdate{Minute: &minute}})
	assert.ErrorIs(t, err, ErrInvalidClock)
	assert.Equal(t, s, got)

	hour := 9
	got, err = s.Apply(Settings{MarketCloseTime: &ClockUpdate{Hour: &hour}})
	assert.ErrorContains(t, err, "must be after")
	assert.Equal(t, s, got)

	open := 14
	minute = 30
	got, err = s.Apply(Settings{MarketOpenTime: &ClockUpdate{Hour: &open, Minute: &minute}})
	assert.Error(t, err, "an empty session never opens")
	assert.Equal(t, s, got)

	got, err = s.Apply(Settings{DaysOff: map[string]bool{"someday": true}})
	assert.ErrorIs(t, err, ErrUnknownWeekday)
	assert.Equal(t, s, got)
}

func TestView(t *testing.T) {
	v := DefaultSchedule().View()
	assert.Equal(t, Clock{Hour: 14, Minute: 30}, v.MarketCloseTime)
	assert.True(t, v.DaysOff["friday"])
	assert.False(t, v.DaysOff["monday"])
	assert.Len(t, v.DaysOff, 7)
	assert.Equal(t, []string{"friday", "saturday"}, DefaultSchedule().OffDayNames())
}
