package store

import (
	"errors"
	"fmt"

	"nudger/internal/domain"
)

var errTxClosed = errors.New("candidate transaction closed")

// CandidateTx is a view of one candidate while its lock is held.
// It is only valid inside the WithCandidate callback.
type CandidateTx struct {
	s      *Store
	id     string
	closed bool
}

// WithCandidate runs fn while holding the candidate's lock, so reading the
// outstanding items and appending a reminder cannot interleave with a
// concurrent create/read/reply for the same candidate.
func (s *Store) WithCandidate(candidateID string, fn func(tx *CandidateTx) error) error {
	unlock, err := s.lockCandidate(candidateID)
	if err != nil {
		return err
	}
	defer unlock()
	tx := &CandidateTx{s: s, id: candidateID}
	defer func() { tx.closed = true }()
	return fn(tx)
}

func (tx *CandidateTx) ID() string { return tx.id }

func (tx *CandidateTx) Candidate() (domain.Candidate, error) {
	if tx.closed {
		return domain.Candidate{}, errTxClosed
	}
	return tx.s.Candidate(tx.id)
}

func (tx *CandidateTx) OutstandingMessages() ([]domain.Message, error) {
	if tx.closed {
		return nil, errTxClosed
	}
	return tx.s.OutstandingMessagesFor(tx.id)
}

func (tx *CandidateTx) OutstandingInvitations() ([]domain.Invitation, error) {
	if tx.closed {
		return nil, errTxClosed
	}
	return tx.s.OutstandingInvitationsFor(tx.id)
}

// AppendReminder appends ev to the candidate's history. It fails with
// ErrInvalidState unless ev is strictly newer than the latest reminder, or if
// it carries no entity ids.
func (tx *CandidateTx) AppendReminder(ev domain.ReminderEvent) (domain.Candidate, error) {
	if tx.closed {
		return domain.Candidate{}, errTxClosed
	}
	s := tx.s
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.candidates[tx.id]
	if !ok {
		return domain.Candidate{}, fmt.Errorf("candidate %q: %w", tx.id, domain.ErrNotFound)
	}
	if len(ev.EntityIDs) == 0 {
		return domain.Candidate{}, fmt.Errorf("reminder without entity ids: %w", domain.ErrInvalidState)
	}
	if last, ok := c.LastReminder(); ok && !ev.CreatedAt.After(last.CreatedAt) {
		return domain.Candidate{}, fmt.Errorf("reminder at %s is not after last reminder at %s: %w",
			ev.CreatedAt.Format("2006-01-02T15:04:05Z07:00"), last.CreatedAt.Format("2006-01-02T15:04:05Z07:00"), domain.ErrInvalidState)
	}
	next := c.Clone()
	next.Reminders = append(next.Reminders, domain.ReminderEvent{
		CreatedAt:     ev.CreatedAt,
		EntityType:    ev.EntityType,
		UrgencyStatus: ev.UrgencyStatus,
		EntityIDs:     append([]string(nil), ev.EntityIDs...),
	})
	s.candidates[tx.id] = &next
	return next.Clone(), nil
}
