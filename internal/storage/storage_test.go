package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nudger/internal/domain"
	logx "nudger/pkg/logx"
)

var noon = time.Date(2024, time.March, 12, 12, 0, 0, 0, time.UTC)

func TestOpenDisabled(t *testing.T) {
	t.Parallel()
	for _, driver := range []string{"", "none", " NONE "} {
		j, err := Open(Config{Driver: driver}, logx.Nop())
		require.NoError(t, err)
		assert.Nil(t, j)
	}
}

func TestOpenErrors(t *testing.T) {
	t.Parallel()
	_, err := Open(Config{Driver: "postgres"}, logx.Nop())
	require.Error(t, err)

	_, err = Open(Config{Driver: "file"}, logx.Nop())
	require.Error(t, err)

	_, err = Open(Config{Driver: "sqlite"}, logx.Nop())
	require.Error(t, err)
}

func TestRecordOf(t *testing.T) {
	t.Parallel()
	ev := domain.ReminderEvent{
		CreatedAt:     noon,
		EntityType:    domain.EntityMessages,
		UrgencyStatus: domain.LevelWarning,
		EntityIDs:     []string{"m1", "m2"},
	}
	r := RecordOf("c1", "John", ev)
	assert.Equal(t, "messages", r.EntityType)
	assert.Equal(t, "warning", r.Urgency)
	assert.Equal(t, []string{"m1", "m2"}, r.EntityIDs)

	ev.EntityIDs[0] = "changed"
	assert.Equal(t, "m1", r.EntityIDs[0])
}

func TestJournalBackends(t *testing.T) {
	t.Parallel()
	for _, driver := range []string{"file", "sqlite"} {
		t.Run(driver, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), "state", "nudger.db")
			j, err := Open(Config{Driver: driver, Path: path, BusyTimeout: time.Second}, logx.Nop())
			require.NoError(t, err)
			require.NotNil(t, j)
			t.Cleanup(func() { _ = j.Close() })

			ctx := context.Background()
			for i := 0; i < 5; i++ {
				r := Record{
					CreatedAt:   noon.Add(time.Duration(i) * time.Hour),
					CandidateID: fmt.Sprintf("c%d", i),
					EntityType:  "invitations",
					Urgency:     "nudge",
					EntityIDs:   []string{fmt.Sprintf("i%d", i)},
					RecordedAt:  noon,
				}
				if i == 0 {
					r.CandidateName = "first"
				}
				require.NoError(t, j.AppendReminder(ctx, r))
			}

			got, err := j.RecentReminders(ctx, 3)
			require.NoError(t, err)
			require.Len(t, got, 3)
			assert.Equal(t, "c2", got[0].CandidateID)
			assert.Equal(t, "c4", got[2].CandidateID)
			assert.True(t, got[2].CreatedAt.Equal(noon.Add(4*time.Hour)))
			assert.Equal(t, []string{"i4"}, got[2].EntityIDs)

			all, err := j.RecentReminders(ctx, 100)
			require.NoError(t, err)
			require.Len(t, all, 5)
			assert.Equal(t, "first", all[0].CandidateName)

			none, err := j.RecentReminders(ctx, 0)
			require.NoError(t, err)
			assert.Empty(t, none)
		})
	}
}

func TestFileJournalSkipsCorruptLines(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "nudger.db")
	j, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	ctx := context.Background()
	require.NoError(t, j.AppendReminder(ctx, Record{CandidateID: "a", EntityType: "messages", Urgency: "nudge"}))

	jp := filepath.Join(filepath.Dir(path), "nudger.reminders.jsonl")
	f, err := os.OpenFile(jp, os.O_APPEND|os.O_WRONLY, 0o600)
	require.NoError(t, err)
	_, err = f.WriteString("{not json\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.NoError(t, j.AppendReminder(ctx, Record{CandidateID: "b", EntityType: "messages", Urgency: "notice"}))

	got, err := j.RecentReminders(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].CandidateID)
	assert.Equal(t, "b", got[1].CandidateID)
	assert.False(t, got[1].RecordedAt.IsZero())
}

func TestClosedJournal(t *testing.T) {
	t.Parallel()
	j, err := Open(Config{Driver: "file", Path: filepath.Join(t.TempDir(), "x.db")}, logx.Nop())
	require.NoError(t, err)
	require.NoError(t, j.Close())
	require.NoError(t, j.Close())

	err = j.AppendReminder(context.Background(), Record{})
	assert.ErrorIs(t, err, ErrDisabled)
}
