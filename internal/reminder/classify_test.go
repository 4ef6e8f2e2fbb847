package reminder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"nudger/internal/domain"
)

func TestClassifyBoundaries(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, time.March, 12, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		age  time.Duration
		want domain.Level
		due  bool
	}{
		{name: "just created", age: 0},
		{name: "in the future", age: -time.Hour},
		{name: "23h59m", age: 23*time.Hour + 59*time.Minute},
		{name: "one nanosecond short of a day", age: Day - time.Nanosecond},
		{name: "exactly 24h", age: Day, want: domain.LevelNudge, due: true},
		{name: "30h", age: 30 * time.Hour, want: domain.LevelNudge, due: true},
		{name: "48h", age: 48 * time.Hour, want: domain.LevelNudge, due: true},
		{name: "exactly 72h", age: 72 * time.Hour, want: domain.LevelNudge, due: true},
		{name: "72h1ns", age: 72*time.Hour + time.Nanosecond, want: domain.LevelWarning, due: true},
		{name: "72h1m", age: 72*time.Hour + time.Minute, want: domain.LevelWarning, due: true},
		{name: "5 days", age: 5 * Day, want: domain.LevelWarning, due: true},
		{name: "exactly 168h", age: 168 * time.Hour, want: domain.LevelWarning, due: true},
		{name: "169h", age: 169 * time.Hour, want: domain.LevelNotice, due: true},
		{name: "200h", age: 200 * time.Hour, want: domain.LevelNotice, due: true},
		{name: "a year", age: 365 * Day, want: domain.LevelNotice, due: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, due := Classify(now.Add(-tt.age), now)
			assert.Equal(t, tt.due, due)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyIgnoresCalendarDays(t *testing.T) {
	t.Parallel()
	// Created late Monday, checked early Tuesday: a new calendar day but not 24h.
	created := time.Date(2024, time.March, 11, 23, 30, 0, 0, time.UTC)
	now := time.Date(2024, time.March, 12, 6, 0, 0, 0, time.UTC)
	_, due := Classify(created, now)
	assert.False(t, due)
}
