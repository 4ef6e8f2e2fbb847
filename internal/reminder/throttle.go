package reminder

import (
	"time"

	"nudger/internal/domain"
)

// ThrottlePolicy caps how often a candidate may be reminded.
type ThrottlePolicy struct {
	// DailyWindow blocks a new reminder while any reminder is younger than it.
	DailyWindow time.Duration
	// WeeklyWindow and WeeklyCap block a new reminder once WeeklyCap reminders
	// are younger than WeeklyWindow.
	WeeklyWindow time.Duration
	WeeklyCap    int
}

// DefaultThrottlePolicy allows one reminder per 24h and three per 7 days.
func DefaultThrottlePolicy() ThrottlePolicy {
	return ThrottlePolicy{DailyWindow: Day, WeeklyWindow: Week, WeeklyCap: 3}
}

func (p ThrottlePolicy) withDefaults() ThrottlePolicy {
	def := DefaultThrottlePolicy()
	if p.DailyWindow <= 0 {
		p.DailyWindow = def.DailyWindow
	}
	if p.WeeklyWindow <= 0 {
		p.WeeklyWindow = def.WeeklyWindow
	}
	if p.WeeklyCap <= 0 {
		p.WeeklyCap = def.WeeklyCap
	}
	return p
}

// RemindedToday reports whether any reminder is younger than the daily window.
func (p ThrottlePolicy) RemindedToday(reminders []domain.ReminderEvent, now time.Time) bool {
	p = p.withDefaults()
	for _, r := range reminders {
		if now.Sub(r.CreatedAt) < p.DailyWindow {
			return true
		}
	}
	return false
}

// AtWeeklyCap reports whether the weekly window already holds WeeklyCap reminders.
func (p ThrottlePolicy) AtWeeklyCap(reminders []domain.ReminderEvent, now time.Time) bool {
	p = p.withDefaults()
	n := 0
	for _, r := range reminders {
		if now.Sub(r.CreatedAt) < p.WeeklyWindow {
			n++
		}
	}
	return n >= p.WeeklyCap
}

// Eligible reports whether a candidate with the given history may be reminded at now.
func (p ThrottlePolicy) Eligible(reminders []domain.ReminderEvent, now time.Time) bool {
	return !p.RemindedToday(reminders, now) && !p.AtWeeklyCap(reminders, now)
}

// RemindedToday applies the default policy.
func RemindedToday(c domain.Candidate, now time.Time) bool {
	return DefaultThrottlePolicy().RemindedToday(c.Reminders, now)
}

// AtWeeklyCap applies the default policy.
func AtWeeklyCap(c domain.Candidate, now time.Time) bool {
	return DefaultThrottlePolicy().AtWeeklyCap(c.Reminders, now)
}
