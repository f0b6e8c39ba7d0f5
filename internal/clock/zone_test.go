package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ict = FixedZone("ICT", 7*time.Hour)

func TestToLocalAndBack(t *testing.T) {
	instant := time.Date(2025, 6, 17, 1, 43, 0, 0, time.UTC)

	local := ict.ToLocal(instant)

	assert.Equal(t, TimeOfDay{Hour: 8, Minute: 43}, local.TimeOfDay())
	assert.Equal(t, "2025-06-17", local.Date().String())
	assert.True(t, local.Instant().Equal(instant))
	assert.Equal(t, time.UTC, local.Instant().Location())
}

func TestToLocalIsStableForNonUTCInput(t *testing.T) {
	utc := time.Date(2025, 6, 17, 1, 43, 0, 0, time.UTC)
	sameInstantElsewhere := utc.In(time.FixedZone("X", -5*3600))

	a, b := ict.ToLocal(utc), ict.ToLocal(sameInstantElsewhere)
	assert.Equal(t, a.TimeOfDay(), b.TimeOfDay())
	assert.Equal(t, a.Date(), b.Date())
	assert.True(t, a.Instant().Equal(b.Instant()))
}

func TestDateKeyCrossesMidnight(t *testing.T) {
	// 2025-06-17 17:30 UTC 已经是当地 6 月 18 日 00:30
	instant := time.Date(2025, 6, 17, 17, 30, 0, 0, time.UTC)

	assert.Equal(t, "2025-06-18", ict.DateKey(instant).String())
}

func TestAt(t *testing.T) {
	date := NewDate(2025, time.June, 17)

	got := ict.At(date, TimeOfDay{Hour: 17})

	assert.Equal(t, time.Date(2025, 6, 17, 10, 0, 0, 0, time.UTC), got)
	assert.Equal(t, time.Date(2025, 6, 16, 17, 0, 0, 0, time.UTC), ict.StartOfDay(date))
}

func TestLoadZone(t *testing.T) {
	_, err := LoadZone("Not/AZone")
	require.Error(t, err)
}

func TestSinceMidnight(t *testing.T) {
	local := ict.ToLocal(time.Date(2025, 6, 17, 4, 0, 30, 0, time.UTC))

	assert.Equal(t, 11*time.Hour+30*time.Second, local.SinceMidnight())
}

func TestLocalDate(t *testing.T) {
	d, err := ParseDate("2025-02-28")
	require.NoError(t, err)

	assert.Equal(t, "2025-03-01", d.AddDays(1).String())
	assert.Equal(t, 28, d.DaysInMonth())
	assert.Equal(t, "2025-02-01", d.FirstOfMonth().String())
	assert.Equal(t, "2025-02", d.MonthKey())
	assert.True(t, d.Before(d.AddDays(1)))
	assert.False(t, d.IsWeekend()) // 周五

	sat := NewDate(2025, time.June, 21)
	assert.True(t, sat.IsWeekend())

	_, err = ParseDate("2025-13-01")
	assert.Error(t, err)
}

func TestParseMonth(t *testing.T) {
	d, err := ParseMonth("2024-02")
	require.NoError(t, err)
	assert.Equal(t, 29, d.DaysInMonth())

	_, err = ParseMonth("2024/02")
	assert.Error(t, err)
}

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		in      string
		want    TimeOfDay
		wantErr bool
	}{
		{in: "08:00", want: TimeOfDay{Hour: 8}},
		{in: "17:30:00", want: TimeOfDay{Hour: 17, Minute: 30}},
		{in: "25:00", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimeOfDay(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestManualClock(t *testing.T) {
	start := time.Date(2025, 6, 17, 1, 0, 0, 0, time.UTC)
	c := NewManual(start)

	c.Advance(90 * time.Minute)

	assert.Equal(t, start.Add(90*time.Minute), c.Now())
}
