package store

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nudger/internal/domain"
)

var t0 = time.Date(2024, time.March, 12, 12, 0, 0, 0, time.UTC)

func newTestStore() *Store {
	n := 0
	return New(
		WithClock(func() time.Time { return t0 }),
		WithIDGenerator(func() string { n++; return fmt.Sprintf("id-%d", n) }),
	)
}

func TestCreateCandidateAndSchool(t *testing.T) {
	t.Parallel()
	s := newTestStore()

	c := s.CreateCandidate("John")
	sc := s.CreateSchool("A")

	assert.NotEmpty(t, c.ID)
	assert.NotEqual(t, c.ID, sc.ID)
	assert.Equal(t, "John", c.Name)
	assert.Empty(t, c.Reminders)
	assert.Empty(t, c.InvitationIDs)
	assert.Empty(t, sc.MessageIDs)
	assert.Equal(t, []string{c.ID}, s.AllCandidateIDs())
}

func TestDefaultIDsAreUnique(t *testing.T) {
	t.Parallel()
	s := New()
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		c := s.CreateCandidate("c")
		require.False(t, seen[c.ID], "duplicate id %s", c.ID)
		seen[c.ID] = true
	}
}

func TestDuplicateGeneratedIDIsReplaced(t *testing.T) {
	t.Parallel()
	s := New(WithIDGenerator(func() string { return "same" }))
	a := s.CreateCandidate("a")
	b := s.CreateCandidate("b")
	assert.Equal(t, "same", a.ID)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestCreateInvitationRegistersBothSides(t *testing.T) {
	t.Parallel()
	s := newTestStore()
	c := s.CreateCandidate("John")
	sc := s.CreateSchool("A")

	inv, err := s.CreateInvitation(domain.NewInvitation{CandidateID: c.ID, SchoolID: sc.ID, Text: "join us"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, inv.Status)
	assert.Nil(t, inv.DateResolved)
	assert.Equal(t, t0, inv.CreatedAt, "zero CreatedAt defaults to store clock")

	gotC, err := s.Candidate(c.ID)
	require.NoError(t, err)
	gotS, err := s.School(sc.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{inv.ID}, gotC.InvitationIDs)
	assert.Equal(t, []string{inv.ID}, gotS.InvitationIDs)
	assert.Empty(t, gotC.MessageIDs)
}

func TestCreateMessageRegistersBothSides(t *testing.T) {
	t.Parallel()
	s := newTestStore()
	c := s.CreateCandidate("John")
	sc := s.CreateSchool("A")
	created := t0.Add(-48 * time.Hour)

	msg, err := s.CreateMessage(domain.NewMessage{CandidateID: c.ID, SchoolID: sc.ID, Text: "hi", CreatedAt: created})
	require.NoError(t, err)
	assert.Equal(t, created, msg.CreatedAt)
	assert.True(t, msg.Unread())

	gotC, _ := s.Candidate(c.ID)
	gotS, _ := s.School(sc.ID)
	assert.Equal(t, []string{msg.ID}, gotC.MessageIDs)
	assert.Equal(t, []string{msg.ID}, gotS.MessageIDs)
}

func TestCreateWithUnknownReferences(t *testing.T) {
	t.Parallel()
	s := newTestStore()
	c := s.CreateCandidate("John")
	sc := s.CreateSchool("A")

	tests := []struct {
		name        string
		candidateID string
		schoolID    string
	}{
		{name: "unknown candidate", candidateID: "nope", schoolID: sc.ID},
		{name: "unknown school", candidateID: c.ID, schoolID: "nope"},
		{name: "both unknown", candidateID: "x", schoolID: "y"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CreateInvitation(domain.NewInvitation{CandidateID: tt.candidateID, SchoolID: tt.schoolID})
			assert.ErrorIs(t, err, domain.ErrReference)
			_, err = s.CreateMessage(domain.NewMessage{CandidateID: tt.candidateID, SchoolID: tt.schoolID})
			assert.ErrorIs(t, err, domain.ErrReference)
		})
	}

	n := s.Counts()
	assert.Zero(t, n.Invitations)
	assert.Zero(t, n.Messages)
	gotS, _ := s.School(sc.ID)
	assert.Empty(t, gotS.InvitationIDs, "rejected creation must not touch the school")
}

func TestMarkMessageRead(t *testing.T) {
	t.Parallel()
	s := newTestStore()
	c := s.CreateCandidate("John")
	sc := s.CreateSchool("A")
	msg, err := s.CreateMessage(domain.NewMessage{CandidateID: c.ID, SchoolID: sc.ID})
	require.NoError(t, err)

	readAt := t0.Add(time.Hour)
	got, err := s.MarkMessageRead(msg.ID, readAt)
	require.NoError(t, err)
	require.NotNil(t, got.ReadAt)
	assert.Equal(t, readAt, *got.ReadAt)

	_, err = s.MarkMessageRead(msg.ID, readAt.Add(time.Hour))
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	again, _ := s.Message(msg.ID)
	assert.Equal(t, readAt, *again.ReadAt, "second read must not overwrite the first")

	_, err = s.MarkMessageRead("missing", time.Time{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMarkMessageReadDefaultsToNow(t *testing.T) {
	t.Parallel()
	s := newTestStore()
	c := s.CreateCandidate("John")
	sc := s.CreateSchool("A")
	msg, _ := s.CreateMessage(domain.NewMessage{CandidateID: c.ID, SchoolID: sc.ID})

	got, err := s.MarkMessageRead(msg.ID, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, t0, *got.ReadAt)
}

func TestResolveInvitation(t *testing.T) {
	t.Parallel()
	s := newTestStore()
	c := s.CreateCandidate("John")
	sc := s.CreateSchool("A")
	inv, _ := s.CreateInvitation(domain.NewInvitation{CandidateID: c.ID, SchoolID: sc.ID})

	_, err := s.ResolveInvitation(inv.ID, domain.StatusPending, time.Time{})
	assert.ErrorIs(t, err, domain.ErrInvalidDecision)

	resolved := t0.Add(4 * time.Hour)
	got, err := s.ResolveInvitation(inv.ID, domain.StatusAccepted, resolved)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAccepted, got.Status)
	require.NotNil(t, got.DateResolved)
	assert.Equal(t, resolved, *got.DateResolved)

	_, err = s.ResolveInvitation(inv.ID, domain.StatusRejected, time.Time{})
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	again, _ := s.Invitation(inv.ID)
	assert.Equal(t, domain.StatusAccepted, again.Status, "resolution never reverts")

	_, err = s.ResolveInvitation("missing", domain.StatusRejected, time.Time{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOutstandingItems(t *testing.T) {
	t.Parallel()
	s := newTestStore()
	john := s.CreateCandidate("John")
	jane := s.CreateCandidate("Jane")
	a := s.CreateSchool("A")

	m1, _ := s.CreateMessage(domain.NewMessage{CandidateID: john.ID, SchoolID: a.ID})
	m2, _ := s.CreateMessage(domain.NewMessage{CandidateID: john.ID, SchoolID: a.ID})
	_, _ = s.CreateMessage(domain.NewMessage{CandidateID: jane.ID, SchoolID: a.ID})
	i1, _ := s.CreateInvitation(domain.NewInvitation{CandidateID: john.ID, SchoolID: a.ID})
	i2, _ := s.CreateInvitation(domain.NewInvitation{CandidateID: john.ID, SchoolID: a.ID})

	_, err := s.MarkMessageRead(m1.ID, time.Time{})
	require.NoError(t, err)
	_, err = s.ResolveInvitation(i2.ID, domain.StatusRejected, time.Time{})
	require.NoError(t, err)

	msgs, err := s.OutstandingMessagesFor(john.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, m2.ID, msgs[0].ID)

	invs, err := s.OutstandingInvitationsFor(john.ID)
	require.NoError(t, err)
	require.Len(t, invs, 1)
	assert.Equal(t, i1.ID, invs[0].ID)

	_, err = s.OutstandingMessagesFor("ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReturnedRecordsAreCopies(t *testing.T) {
	t.Parallel()
	s := newTestStore()
	c := s.CreateCandidate("John")
	sc := s.CreateSchool("A")
	_, _ = s.CreateMessage(domain.NewMessage{CandidateID: c.ID, SchoolID: sc.ID})

	got, _ := s.Candidate(c.ID)
	got.MessageIDs[0] = "tampered"
	got.Name = "Mallory"

	again, _ := s.Candidate(c.ID)
	assert.Equal(t, "John", again.Name)
	assert.NotEqual(t, "tampered", again.MessageIDs[0])
}

func TestWithCandidateAppendReminder(t *testing.T) {
	t.Parallel()
	s := newTestStore()
	c := s.CreateCandidate("John")

	ev := domain.ReminderEvent{
		CreatedAt:     t0,
		EntityType:    domain.EntityMessages,
		UrgencyStatus: domain.LevelNudge,
		EntityIDs:     []string{"m1"},
	}
	err := s.WithCandidate(c.ID, func(tx *CandidateTx) error {
		_, err := tx.AppendReminder(ev)
		return err
	})
	require.NoError(t, err)

	got, _ := s.Candidate(c.ID)
	require.Len(t, got.Reminders, 1)
	assert.Equal(t, ev, got.Reminders[0])

	// Out-of-order, same-instant and empty reminders are rejected without
	// changes.
	for _, at := range []time.Time{t0.Add(-time.Minute), t0} {
		err = s.WithCandidate(c.ID, func(tx *CandidateTx) error {
			again := ev
			again.CreatedAt = at
			_, err := tx.AppendReminder(again)
			return err
		})
		assert.ErrorIs(t, err, domain.ErrInvalidState, "at %s", at)
	}
	err = s.WithCandidate(c.ID, func(tx *CandidateTx) error {
		empty := ev
		empty.EntityIDs = nil
		_, err := tx.AppendReminder(empty)
		return err
	})
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	got, _ = s.Candidate(c.ID)
	assert.Len(t, got.Reminders, 1)

	err = s.WithCandidate(c.ID, func(tx *CandidateTx) error {
		later := ev
		later.CreatedAt = t0.Add(time.Nanosecond)
		_, err := tx.AppendReminder(later)
		return err
	})
	require.NoError(t, err)
	got, _ = s.Candidate(c.ID)
	assert.Len(t, got.Reminders, 2)

	err = s.WithCandidate("ghost", func(tx *CandidateTx) error { return nil })
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCandidateTxUnusableAfterReturn(t *testing.T) {
	t.Parallel()
	s := newTestStore()
	c := s.CreateCandidate("John")

	var leaked *CandidateTx
	require.NoError(t, s.WithCandidate(c.ID, func(tx *CandidateTx) error {
		leaked = tx
		return nil
	}))
	_, err := leaked.Candidate()
	assert.Error(t, err)
}

func TestConcurrentCreatesKeepListsInLockstep(t *testing.T) {
	t.Parallel()
	s := New()
	c := s.CreateCandidate("John")
	schools := []domain.School{s.CreateSchool("A"), s.CreateSchool("B")}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sc := schools[i%2]
			if i%3 == 0 {
				_, _ = s.CreateInvitation(domain.NewInvitation{CandidateID: c.ID, SchoolID: sc.ID})
				return
			}
			_, _ = s.CreateMessage(domain.NewMessage{CandidateID: c.ID, SchoolID: sc.ID})
		}(i)
	}
	wg.Wait()

	got, _ := s.Candidate(c.ID)
	a, _ := s.School(schools[0].ID)
	b, _ := s.School(schools[1].ID)
	assert.Len(t, got.InvitationIDs, len(a.InvitationIDs)+len(b.InvitationIDs))
	assert.Len(t, got.MessageIDs, len(a.MessageIDs)+len(b.MessageIDs))
	assert.Equal(t, 50, len(got.InvitationIDs)+len(got.MessageIDs))
}
