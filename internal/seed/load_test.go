package seed

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nudger/internal/domain"
	"nudger/internal/store"
	logx "nudger/pkg/logx"
)

var noon = time.Date(2024, time.March, 12, 12, 0, 0, 0, time.UTC)

const tuesday = `
schools:
  - {key: a, name: School A}
  - {key: b, name: School B}
candidates:
  - key: john
    name: John
    reminders:
      - {age: 30h, type: invitations, urgency: nudge, items: [inv1]}
  - {key: jane, name: Jane}
invitations:
  - {key: inv1, candidate: john, school: a, text: hello, age: 50h}
  - {candidate: john, school: b, created_at: "2024-03-01T09:00:00Z", status: accepted, resolved_after: 2h}
messages:
  - {key: m1, candidate: jane, school: a, age: 26h}
  - {candidate: jane, school: b, age: 80h, read_after: 1h}
`

func TestApplyFixture(t *testing.T) {
	t.Parallel()
	fx, err := Parse([]byte(tuesday))
	require.NoError(t, err)

	st := store.New()
	res, err := Apply(fx, st, noon)
	require.NoError(t, err)

	s, c, i, m := res.Counts()
	assert.Equal(t, []int{2, 2, 1, 1}, []int{s, c, i, m})

	john, err := st.Candidate(res.Candidates["john"])
	require.NoError(t, err)
	assert.Equal(t, "John", john.Name)
	assert.Len(t, john.InvitationIDs, 2)
	require.Len(t, john.Reminders, 1)
	assert.Equal(t, []string{res.Invitations["inv1"]}, john.Reminders[0].EntityIDs)
	assert.True(t, john.Reminders[0].CreatedAt.Equal(noon.Add(-30*time.Hour)))

	inv, err := st.Invitation(res.Invitations["inv1"])
	require.NoError(t, err)
	assert.True(t, inv.CreatedAt.Equal(noon.Add(-50*time.Hour)))
	assert.True(t, inv.Pending())

	pending, err := st.OutstandingInvitationsFor(john.ID)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	jane := res.Candidates["jane"]
	unread, err := st.OutstandingMessagesFor(jane)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, res.Messages["m1"], unread[0].ID)
}

func TestApplyResolvedAt(t *testing.T) {
	t.Parallel()
	fx := Fixture{
		Schools:     []Entity{{Key: "a"}},
		Candidates:  []Candidate{{Key: "c"}},
		Invitations: []Invitation{{Key: "i", Candidate: "c", School: "a", At: At{CreatedAt: "2024-03-01T09:00:00Z"}, Status: "Rejected", ResolvedAfter: "90m"}},
		Messages:    []Message{{Key: "m", Candidate: "c", School: "a", At: At{Age: "2h"}, ReadAfter: "30m"}},
	}
	st := store.New()
	res, err := Apply(fx, st, noon)
	require.NoError(t, err)

	inv, err := st.Invitation(res.Invitations["i"])
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, inv.Status)
	require.NotNil(t, inv.DateResolved)
	assert.True(t, inv.DateResolved.Equal(time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)))

	msg, err := st.Message(res.Messages["m"])
	require.NoError(t, err)
	require.NotNil(t, msg.ReadAt)
	assert.True(t, msg.ReadAt.Equal(noon.Add(-90*time.Minute)))
}

func TestApplyErrors(t *testing.T) {
	t.Parallel()
	base := func() Fixture {
		return Fixture{
			Schools:    []Entity{{Key: "a"}},
			Candidates: []Candidate{{Key: "c"}},
		}
	}
	cases := []struct {
		name   string
		mutate func(*Fixture)
		is     error
		msg    string
	}{
		{
			name:   "missing key",
			mutate: func(f *Fixture) { f.Schools = append(f.Schools, Entity{Name: "x"}) },
			msg:    "key is required",
		},
		{
			name:   "duplicate candidate",
			mutate: func(f *Fixture) { f.Candidates = append(f.Candidates, Candidate{Key: "c"}) },
			msg:    "duplicate key",
		},
		{
			name:   "unknown school",
			mutate: func(f *Fixture) { f.Invitations = []Invitation{{Candidate: "c", School: "nope"}} },
			is:     domain.ErrReference,
		},
		{
			name:   "unknown candidate",
			mutate: func(f *Fixture) { f.Messages = []Message{{Candidate: "nope", School: "a"}} },
			is:     domain.ErrReference,
		},
		{
			name: "both timestamps",
			mutate: func(f *Fixture) {
				f.Messages = []Message{{Candidate: "c", School: "a", At: At{Age: "1h", CreatedAt: "2024-01-01T00:00:00Z"}}}
			},
			msg: "mutually exclusive",
		},
		{
			name:   "bad age",
			mutate: func(f *Fixture) { f.Messages = []Message{{Candidate: "c", School: "a", At: At{Age: "soon"}}} },
			msg:    "age",
		},
		{
			name:   "negative age",
			mutate: func(f *Fixture) { f.Messages = []Message{{Candidate: "c", School: "a", At: At{Age: "-1h"}}} },
			msg:    "negative",
		},
		{
			name:   "bad status",
			mutate: func(f *Fixture) { f.Invitations = []Invitation{{Candidate: "c", School: "a", Status: "maybe"}} },
			is:     domain.ErrInvalidDecision,
		},
		{
			name:   "resolved_after on pending",
			mutate: func(f *Fixture) { f.Invitations = []Invitation{{Candidate: "c", School: "a", ResolvedAfter: "1h"}} },
			msg:    "resolved_after",
		},
		{
			name: "reminder without items",
			mutate: func(f *Fixture) {
				f.Candidates[0].Reminders = []Reminder{{Type: "messages", Urgency: "nudge"}}
			},
			is: domain.ErrInvalidState,
		},
		{
			name: "reminder bad type",
			mutate: func(f *Fixture) {
				f.Candidates[0].Reminders = []Reminder{{Type: "emails", Urgency: "nudge", Items: []string{"x"}}}
			},
			msg: "unknown type",
		},
		{
			name: "reminder bad urgency",
			mutate: func(f *Fixture) {
				f.Candidates[0].Reminders = []Reminder{{Type: "messages", Urgency: "panic", Items: []string{"x"}}}
			},
			msg: "unknown urgency",
		},
		{
			name: "reminder unknown item",
			mutate: func(f *Fixture) {
				f.Candidates[0].Reminders = []Reminder{{Type: "messages", Urgency: "nudge", Items: []string{"no-such-message"}}}
			},
			msg: `unknown item "no-such-message"`,
		},
		{
			name: "reminders at the same instant",
			mutate: func(f *Fixture) {
				f.Messages = []Message{{Key: "m", Candidate: "c", School: "a", At: At{Age: "100h"}}}
				f.Candidates[0].Reminders = []Reminder{
					{At: At{Age: "30h"}, Type: "messages", Urgency: "nudge", Items: []string{"m"}},
					{At: At{Age: "30h"}, Type: "messages", Urgency: "warning", Items: []string{"m"}},
				}
			},
			is: domain.ErrInvalidState,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			fx := base()
			tc.mutate(&fx)
			_, err := Apply(fx, store.New(), noon)
			require.Error(t, err)
			if tc.is != nil {
				assert.ErrorIs(t, err, tc.is)
			}
			if tc.msg != "" {
				assert.Contains(t, err.Error(), tc.msg)
			}
		})
	}
}

func TestRemindersAppendedInOrder(t *testing.T) {
	t.Parallel()
	fx := Fixture{
		Schools:    []Entity{{Key: "a"}},
		Candidates: []Candidate{{Key: "c", Reminders: []Reminder{
			{At: At{Age: "2h"}, Type: "messages", Urgency: "warning", Items: []string{"m"}},
			{At: At{Age: "50h"}, Type: "messages", Urgency: "nudge", Items: []string{"m"}},
		}}},
		Messages: []Message{{Key: "m", Candidate: "c", School: "a", At: At{Age: "100h"}}},
	}
	st := store.New()
	res, err := Apply(fx, st, noon)
	require.NoError(t, err)

	c, err := st.Candidate(res.Candidates["c"])
	require.NoError(t, err)
	require.Len(t, c.Reminders, 2)
	assert.Equal(t, domain.LevelNudge, c.Reminders[0].UrgencyStatus)
	assert.Equal(t, domain.LevelWarning, c.Reminders[1].UrgencyStatus)
}

func TestRejectedReminderBatchLeavesNoHistory(t *testing.T) {
	t.Parallel()
	fx := Fixture{
		Schools: []Entity{{Key: "a"}},
		Candidates: []Candidate{{Key: "c", Reminders: []Reminder{
			{At: At{Age: "50h"}, Type: "messages", Urgency: "nudge", Items: []string{"m"}},
			{At: At{Age: "2h"}, Type: "messages", Urgency: "warning", Items: []string{"also-missing"}},
		}}},
		Messages: []Message{{Key: "m", Candidate: "c", School: "a", At: At{Age: "100h"}}},
	}
	st := store.New()
	res, err := Apply(fx, st, noon)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown item")

	c, err := st.Candidate(res.Candidates["c"])
	require.NoError(t, err)
	assert.Empty(t, c.Reminders)
}

func TestParseStrict(t *testing.T) {
	t.Parallel()
	_, err := Parse([]byte("schools:\n  - {key: a, nmae: typo}\n"))
	require.Error(t, err)

	fx, err := Parse(nil)
	require.NoError(t, err)
	assert.Empty(t, fx.Candidates)
}

func TestLoadFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(tuesday), 0o600))

	st := store.New()
	res, err := LoadFile(path, st, noon, logx.Nop())
	require.NoError(t, err)
	assert.Len(t, res.Candidates, 2)
	assert.Equal(t, 2, st.Counts().Candidates)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"), st, noon, logx.Nop())
	require.Error(t, err)
}
