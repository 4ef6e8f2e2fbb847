package reminder

import (
	"time"

	"nudger/internal/domain"
)

const (
	Day  = 24 * time.Hour
	Week = 7 * Day
)

// urgencyBand maps an upper bound on elapsed time (inclusive) to a level.
type urgencyBand struct {
	upTo  time.Duration
	level domain.Level
}

// minDue is the age at which an item starts to need a reminder.
const minDue = Day

// bands is consulted in order; the last band is open-ended.
var bands = []urgencyBand{
	{upTo: 3 * Day, level: domain.LevelNudge},
	{upTo: Week, level: domain.LevelWarning},
	{upTo: -1, level: domain.LevelNotice},
}

// Classify returns the urgency of an item created at createdAt, as seen at
// now. Age is measured in real elapsed time, so "a day old" means 24 full
// hours have passed. Items younger than a day (or dated in the future) are
// not due and report ok=false.
//
//	age < 24h          not due
//	24h <= age <= 72h  nudge
//	72h <  age <= 168h warning
//	age > 168h         notice
func Classify(createdAt, now time.Time) (domain.Level, bool) {
	age := now.Sub(createdAt)
	if age < minDue {
		return "", false
	}
	for _, b := range bands {
		if b.upTo < 0 || age <= b.upTo {
			return b.level, true
		}
	}
	return "", false
}
