package storage

import (
	"errors"
	"slices"
	"time"

	"nudger/internal/domain"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures the reminder journal.
//
// Driver values:
//   - "file": JSON Lines file next to Path
//   - "sqlite": SQLite database file (modernc.org/sqlite, no cgo)
//
// If Driver is empty or "none", the journal is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Record is one appended reminder as written to the journal.
// It is an outbox for a delivery process; nudger never reads it back into
// the entity store.
type Record struct {
	CreatedAt     time.Time `json:"created_at"`
	CandidateID   string    `json:"candidate_id"`
	CandidateName string    `json:"candidate_name,omitempty"`
	EntityType    string    `json:"entity_type"`
	Urgency       string    `json:"urgency"`
	EntityIDs     []string  `json:"entity_ids"`
	RecordedAt    time.Time `json:"recorded_at"`
}

// RecordOf converts an appended reminder event into a journal record.
func RecordOf(candidateID, candidateName string, ev domain.ReminderEvent) Record {
	return Record{
		CreatedAt:     ev.CreatedAt,
		CandidateID:   candidateID,
		CandidateName: candidateName,
		EntityType:    string(ev.EntityType),
		Urgency:       string(ev.UrgencyStatus),
		EntityIDs:     slices.Clone(ev.EntityIDs),
	}
}
