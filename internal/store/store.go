package store

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"nudger/internal/domain"
)

// Store is the in-memory entity store.
//
// Locking:
//   - mu guards the four collections.
//   - each candidate has its own mutex; every operation that changes what is
//     outstanding for a candidate (new invitation/message, read, reply) or
//     appends a reminder holds it. Lock order is candidate lock, then mu.
type Store struct {
	mu sync.RWMutex

	candidates     map[string]*domain.Candidate
	candidateOrder []string
	schools        map[string]*domain.School
	invitations    map[string]*domain.Invitation
	messages       map[string]*domain.Message

	lmu   sync.Mutex
	locks map[string]*sync.Mutex

	now   func() time.Time
	newID func() string
}

type Option func(*Store)

// WithClock overrides the clock used for defaulted timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides id generation (tests).
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) {
		if gen != nil {
			s.newID = gen
		}
	}
}

func New(opts ...Option) *Store {
	s := &Store{
		candidates:  map[string]*domain.Candidate{},
		schools:     map[string]*domain.School{},
		invitations: map[string]*domain.Invitation{},
		messages:    map[string]*domain.Message{},
		locks:       map[string]*sync.Mutex{},
		now:         time.Now,
		newID:       newUUIDv1,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func newUUIDv1() string {
	id, err := uuid.NewUUID()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// nextIDLocked returns an id not used by taken. Call with s.mu held.
func (s *Store) nextIDLocked(taken func(string) bool) string {
	for range 8 {
		id := strings.TrimSpace(s.newID())
		if id != "" && !taken(id) {
			return id
		}
	}
	for {
		id := uuid.NewString()
		if !taken(id) {
			return id
		}
	}
}

func (s *Store) stamp(t time.Time) time.Time {
	if t.IsZero() {
		return s.now()
	}
	return t
}

func (s *Store) candidateLock(id string) *sync.Mutex {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

// lockCandidate acquires the lock of an existing candidate.
// Candidates are never deleted, so existence checked here stays true.
func (s *Store) lockCandidate(id string) (func(), error) {
	s.mu.RLock()
	_, ok := s.candidates[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("candidate %q: %w", id, domain.ErrNotFound)
	}
	l := s.candidateLock(id)
	l.Lock()
	return l.Unlock, nil
}

func (s *Store) CreateCandidate(name string) domain.Candidate {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextIDLocked(func(id string) bool { _, ok := s.candidates[id]; return ok })
	c := &domain.Candidate{
		ID:            id,
		Name:          name,
		CreatedAt:     s.now(),
		Reminders:     []domain.ReminderEvent{},
		InvitationIDs: []string{},
		MessageIDs:    []string{},
	}
	s.candidates[id] = c
	s.candidateOrder = append(s.candidateOrder, id)
	return c.Clone()
}

func (s *Store) CreateSchool(name string) domain.School {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextIDLocked(func(id string) bool { _, ok := s.schools[id]; return ok })
	sc := &domain.School{
		ID:            id,
		Name:          name,
		CreatedAt:     s.now(),
		InvitationIDs: []string{},
		MessageIDs:    []string{},
	}
	s.schools[id] = sc
	return sc.Clone()
}

// checkRefs validates the candidate and school of a new invitation/message.
func (s *Store) checkRefs(candidateID, schoolID string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.candidates[candidateID]; !ok {
		return fmt.Errorf("candidate %q: %w", candidateID, domain.ErrReference)
	}
	if _, ok := s.schools[schoolID]; !ok {
		return fmt.Errorf("school %q: %w", schoolID, domain.ErrReference)
	}
	return nil
}

func (s *Store) CreateInvitation(in domain.NewInvitation) (domain.Invitation, error) {
	if err := s.checkRefs(in.CandidateID, in.SchoolID); err != nil {
		return domain.Invitation{}, err
	}
	unlock, err := s.lockCandidate(in.CandidateID)
	if err != nil {
		return domain.Invitation{}, err
	}
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.candidates[in.CandidateID]
	sc := s.schools[in.SchoolID]
	id := s.nextIDLocked(func(id string) bool { _, ok := s.invitations[id]; return ok })
	inv := &domain.Invitation{
		ID:          id,
		CandidateID: in.CandidateID,
		SchoolID:    in.SchoolID,
		Text:        in.Text,
		CreatedAt:   s.stamp(in.CreatedAt),
		Status:      domain.StatusPending,
	}
	s.invitations[id] = inv
	c.InvitationIDs = append(c.InvitationIDs, id)
	sc.InvitationIDs = append(sc.InvitationIDs, id)
	return inv.Clone(), nil
}

func (s *Store) CreateMessage(in domain.NewMessage) (domain.Message, error) {
	if err := s.checkRefs(in.CandidateID, in.SchoolID); err != nil {
		return domain.Message{}, err
	}
	unlock, err := s.lockCandidate(in.CandidateID)
	if err != nil {
		return domain.Message{}, err
	}
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.candidates[in.CandidateID]
	sc := s.schools[in.SchoolID]
	id := s.nextIDLocked(func(id string) bool { _, ok := s.messages[id]; return ok })
	msg := &domain.Message{
		ID:          id,
		CandidateID: in.CandidateID,
		SchoolID:    in.SchoolID,
		Text:        in.Text,
		CreatedAt:   s.stamp(in.CreatedAt),
	}
	s.messages[id] = msg
	c.MessageIDs = append(c.MessageIDs, id)
	sc.MessageIDs = append(sc.MessageIDs, id)
	return msg.Clone(), nil
}

// MarkMessageRead records the single read of a message.
// Reading an already-read message fails with ErrInvalidState and leaves the
// original ReadAt untouched. A zero readAt means now.
func (s *Store) MarkMessageRead(messageID string, readAt time.Time) (domain.Message, error) {
	owner, err := s.messageOwner(messageID)
	if err != nil {
		return domain.Message{}, err
	}
	unlock, err := s.lockCandidate(owner)
	if err != nil {
		return domain.Message{}, err
	}
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateMessageLocked(messageID, func(m *domain.Message) error {
		if m.ReadAt != nil {
			return fmt.Errorf("message %q already read: %w", messageID, domain.ErrInvalidState)
		}
		t := s.stamp(readAt)
		m.ReadAt = &t
		return nil
	})
}

// ResolveInvitation records the single reply to a pending invitation and
// stamps DateResolved. A zero resolvedAt means now.
func (s *Store) ResolveInvitation(invitationID string, decision domain.InvitationStatus, resolvedAt time.Time) (domain.Invitation, error) {
	if !decision.IsDecision() {
		return domain.Invitation{}, fmt.Errorf("decision %q: %w", decision, domain.ErrInvalidDecision)
	}
	owner, err := s.invitationOwner(invitationID)
	if err != nil {
		return domain.Invitation{}, err
	}
	unlock, err := s.lockCandidate(owner)
	if err != nil {
		return domain.Invitation{}, err
	}
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateInvitationLocked(invitationID, func(inv *domain.Invitation) error {
		if !inv.Pending() {
			return fmt.Errorf("invitation %q is %s: %w", invitationID, inv.Status, domain.ErrInvalidState)
		}
		t := s.stamp(resolvedAt)
		inv.Status = decision
		inv.DateResolved = &t
		return nil
	})
}

// updateMessageLocked applies fn to a copy and commits it only if fn succeeds.
// Call with s.mu held.
func (s *Store) updateMessageLocked(id string, fn func(*domain.Message) error) (domain.Message, error) {
	cur, ok := s.messages[id]
	if !ok {
		return domain.Message{}, fmt.Errorf("message %q: %w", id, domain.ErrNotFound)
	}
	next := cur.Clone()
	if err := fn(&next); err != nil {
		return domain.Message{}, err
	}
	s.messages[id] = &next
	return next.Clone(), nil
}

// updateInvitationLocked is updateMessageLocked for invitations.
func (s *Store) updateInvitationLocked(id string, fn func(*domain.Invitation) error) (domain.Invitation, error) {
	cur, ok := s.invitations[id]
	if !ok {
		return domain.Invitation{}, fmt.Errorf("invitation %q: %w", id, domain.ErrNotFound)
	}
	next := cur.Clone()
	if err := fn(&next); err != nil {
		return domain.Invitation{}, err
	}
	s.invitations[id] = &next
	return next.Clone(), nil
}

func (s *Store) messageOwner(id string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.messages[id]
	if !ok {
		return "", fmt.Errorf("message %q: %w", id, domain.ErrNotFound)
	}
	return m.CandidateID, nil
}

func (s *Store) invitationOwner(id string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv, ok := s.invitations[id]
	if !ok {
		return "", fmt.Errorf("invitation %q: %w", id, domain.ErrNotFound)
	}
	return inv.CandidateID, nil
}
