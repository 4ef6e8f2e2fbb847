package reminder

import (
	"time"

	"nudger/internal/domain"
)

// entityPriority: due messages always pre-empt due invitations.
var entityPriority = []domain.EntityType{domain.EntityMessages, domain.EntityInvitations}

// levelPriority: the most urgent non-empty bucket is reported.
var levelPriority = []domain.Level{domain.LevelNotice, domain.LevelWarning, domain.LevelNudge}

type item struct {
	id        string
	createdAt time.Time
}

// decide picks the single reminder to append for a candidate, if any.
func decide(now time.Time, msgs []domain.Message, invs []domain.Invitation) (domain.ReminderEvent, bool) {
	items := make(map[domain.EntityType][]item, len(entityPriority))
	for _, m := range msgs {
		if m.Unread() {
			items[domain.EntityMessages] = append(items[domain.EntityMessages], item{id: m.ID, createdAt: m.CreatedAt})
		}
	}
	for _, inv := range invs {
		if inv.Pending() {
			items[domain.EntityInvitations] = append(items[domain.EntityInvitations], item{id: inv.ID, createdAt: inv.CreatedAt})
		}
	}

	for _, et := range entityPriority {
		buckets := bucketize(items[et], now)
		if len(buckets) == 0 {
			continue
		}
		for _, lvl := range levelPriority {
			if ids := buckets[lvl]; len(ids) > 0 {
				return domain.ReminderEvent{
					CreatedAt:     now,
					EntityType:    et,
					UrgencyStatus: lvl,
					EntityIDs:     ids,
				}, true
			}
		}
	}
	return domain.ReminderEvent{}, false
}

// bucketize groups due items by urgency, keeping input order within a bucket.
func bucketize(items []item, now time.Time) map[domain.Level][]string {
	var out map[domain.Level][]string
	for _, it := range items {
		lvl, ok := Classify(it.createdAt, now)
		if !ok {
			continue
		}
		if out == nil {
			out = make(map[domain.Level][]string, len(levelPriority))
		}
		out[lvl] = append(out[lvl], it.id)
	}
	return out
}
