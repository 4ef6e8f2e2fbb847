package app

import (
	"context"

	"nudger/internal/eventbus"
	"nudger/internal/metrics"
	"nudger/internal/reminder"
	"nudger/internal/storage"
	logx "nudger/pkg/logx"
)

// journalObserver writes every appended reminder to the outbox journal.
// A failed write is logged and counted; the reminder stays appended.
type journalObserver struct {
	j   storage.Journal
	m   *metrics.Metrics
	log logx.Logger
}

func (o journalObserver) ReminderAppended(ctx context.Context, d reminder.Decision) {
	err := o.j.AppendReminder(ctx, storage.RecordOf(d.CandidateID, d.CandidateName, d.Event))
	if err == nil {
		return
	}
	if o.m != nil {
		o.m.JournalErrors.Inc()
	}
	o.log.Warn("journal append failed", logx.String("candidate", d.CandidateID), logx.Err(err))
}

func busObserver(bus eventbus.Bus) reminder.Observer {
	return reminder.ObserverFunc(func(_ context.Context, d reminder.Decision) {
		bus.Publish(eventbus.Event{Type: eventbus.ReminderAppended, Time: d.Event.CreatedAt, Data: d})
	})
}
