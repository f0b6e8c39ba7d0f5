package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AttendBot/internal/clock"
)

func validConfig() Config {
	return Config{
		AttendanceTimezone:   "Asia/Ho_Chi_Minh",
		CheckInOpen:          "08:00",
		CheckInClose:         "11:00",
		StandardEndOfDay:     "17:00",
		WorkdayDuration:      9 * time.Hour,
		FullDayThreshold:     9 * time.Hour,
		PreCompletionOffset:  10 * time.Minute,
		ReminderTolerance:    2 * time.Minute,
		ReminderPollInterval: time.Minute,
		ReminderConcurrency:  4,
		MidnightSweepAt:      "00:05",
		LockTTL:              5 * time.Second,
	}
}

func TestPolicyFromConfig(t *testing.T) {
	c := validConfig()
	c.AdvanceNoticeOffset = 30 * time.Minute

	p, err := c.Policy()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Ho_Chi_Minh", p.Zone.Name())
	assert.Equal(t, clock.TimeOfDay{Hour: 11}, p.CheckInClose)
	assert.Equal(t, 30*time.Minute, p.AdvanceNoticeOffset)
	assert.Equal(t, 2*time.Minute, p.ReminderTolerance)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "poll equals twice tolerance", mutate: func(c *Config) { c.ReminderPollInterval = 4 * time.Minute }, wantErr: true},
		{name: "poll just under twice tolerance", mutate: func(c *Config) { c.ReminderPollInterval = 4*time.Minute - time.Second }},
		{name: "poll too slow", mutate: func(c *Config) { c.ReminderPollInterval = 5 * time.Minute }, wantErr: true},
		{name: "unknown timezone", mutate: func(c *Config) { c.AttendanceTimezone = "Mars/Olympus" }, wantErr: true},
		{name: "bad window", mutate: func(c *Config) { c.CheckInOpen = "12:00" }, wantErr: true},
		{name: "bad sweep time", mutate: func(c *Config) { c.MidnightSweepAt = "25:00" }, wantErr: true},
		{name: "no workers", mutate: func(c *Config) { c.ReminderConcurrency = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSweepTimeFallback(t *testing.T) {
	c := validConfig()
	assert.Equal(t, clock.TimeOfDay{Minute: 5}, c.SweepTime())
	c.MidnightSweepAt = "02:30"
	assert.Equal(t, clock.TimeOfDay{Hour: 2, Minute: 30}, c.SweepTime())
}
