package store

import (
	"fmt"
	"slices"

	"nudger/internal/domain"
)

func (s *Store) Candidate(id string) (domain.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.candidates[id]
	if !ok {
		return domain.Candidate{}, fmt.Errorf("candidate %q: %w", id, domain.ErrNotFound)
	}
	return c.Clone(), nil
}

func (s *Store) School(id string) (domain.School, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sc, ok := s.schools[id]
	if !ok {
		return domain.School{}, fmt.Errorf("school %q: %w", id, domain.ErrNotFound)
	}
	return sc.Clone(), nil
}

func (s *Store) Invitation(id string) (domain.Invitation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv, ok := s.invitations[id]
	if !ok {
		return domain.Invitation{}, fmt.Errorf("invitation %q: %w", id, domain.ErrNotFound)
	}
	return inv.Clone(), nil
}

func (s *Store) Message(id string) (domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.messages[id]
	if !ok {
		return domain.Message{}, fmt.Errorf("message %q: %w", id, domain.ErrNotFound)
	}
	return m.Clone(), nil
}

// AllCandidateIDs returns candidate ids in registration order.
// The order is stable across calls.
func (s *Store) AllCandidateIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.candidateOrder)
}

// OutstandingMessagesFor returns the candidate's unread messages in the
// order they were created.
func (s *Store) OutstandingMessagesFor(candidateID string) ([]domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.outstandingMessagesLocked(candidateID)
}

// OutstandingInvitationsFor returns the candidate's pending invitations in
// the order they were created.
func (s *Store) OutstandingInvitationsFor(candidateID string) ([]domain.Invitation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.outstandingInvitationsLocked(candidateID)
}

func (s *Store) outstandingMessagesLocked(candidateID string) ([]domain.Message, error) {
	c, ok := s.candidates[candidateID]
	if !ok {
		return nil, fmt.Errorf("candidate %q: %w", candidateID, domain.ErrNotFound)
	}
	out := make([]domain.Message, 0, len(c.MessageIDs))
	for _, id := range c.MessageIDs {
		m, ok := s.messages[id]
		if !ok || !m.Unread() {
			continue
		}
		out = append(out, m.Clone())
	}
	return out, nil
}

func (s *Store) outstandingInvitationsLocked(candidateID string) ([]domain.Invitation, error) {
	c, ok := s.candidates[candidateID]
	if !ok {
		return nil, fmt.Errorf("candidate %q: %w", candidateID, domain.ErrNotFound)
	}
	out := make([]domain.Invitation, 0, len(c.InvitationIDs))
	for _, id := range c.InvitationIDs {
		inv, ok := s.invitations[id]
		if !ok || !inv.Pending() {
			continue
		}
		out = append(out, inv.Clone())
	}
	return out, nil
}

// Counts is a size summary of the store.
type Counts struct {
	Candidates  int `json:"candidates"`
	Schools     int `json:"schools"`
	Invitations int `json:"invitations"`
	Messages    int `json:"messages"`
	Reminders   int `json:"reminders"`
}

func (s *Store) Counts() Counts {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := Counts{
		Candidates:  len(s.candidates),
		Schools:     len(s.schools),
		Invitations: len(s.invitations),
		Messages:    len(s.messages),
	}
	for _, c := range s.candidates {
		n.Reminders += len(c.Reminders)
	}
	return n
}
