package seed

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	yaml "go.yaml.in/yaml/v3"

	"nudger/internal/domain"
	"nudger/internal/store"
	logx "nudger/pkg/logx"
)

// Store is the subset of the entity store used by the loader. Every item
// goes through the regular store operations.
type Store interface {
	CreateSchool(name string) domain.School
	CreateCandidate(name string) domain.Candidate
	CreateInvitation(in domain.NewInvitation) (domain.Invitation, error)
	CreateMessage(in domain.NewMessage) (domain.Message, error)
	MarkMessageRead(messageID string, readAt time.Time) (domain.Message, error)
	ResolveInvitation(invitationID string, decision domain.InvitationStatus, resolvedAt time.Time) (domain.Invitation, error)
	WithCandidate(candidateID string, fn func(tx *store.CandidateTx) error) error
}

// Result maps fixture keys to the ids the store assigned.
type Result struct {
	Schools     map[string]string
	Candidates  map[string]string
	Invitations map[string]string
	Messages    map[string]string
}

func (r Result) Counts() (schools, candidates, invitations, messages int) {
	return len(r.Schools), len(r.Candidates), len(r.Invitations), len(r.Messages)
}

// Parse strictly decodes a fixture; unknown fields are errors.
func Parse(data []byte) (Fixture, error) {
	var fx Fixture
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fx); err != nil && !errors.Is(err, io.EOF) {
		return Fixture{}, fmt.Errorf("seed: decode: %w", err)
	}
	return fx, nil
}

// LoadFile reads and applies the fixture at path.
func LoadFile(path string, st Store, now time.Time, log logx.Logger) (Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("seed: %w", err)
	}
	fx, err := Parse(data)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", path, err)
	}
	res, err := Apply(fx, st, now)
	if err != nil {
		return res, fmt.Errorf("%s: %w", path, err)
	}
	if !log.IsZero() {
		s, c, i, m := res.Counts()
		log.Info("seed loaded",
			logx.String("path", path),
			logx.Int("schools", s),
			logx.Int("candidates", c),
			logx.Int("invitations", i),
			logx.Int("messages", m),
		)
	}
	return res, nil
}

// Apply creates the fixture entities relative to now. On error the store
// keeps whatever was created before the failing item.
func Apply(fx Fixture, st Store, now time.Time) (Result, error) {
	res := Result{
		Schools:     map[string]string{},
		Candidates:  map[string]string{},
		Invitations: map[string]string{},
		Messages:    map[string]string{},
	}

	for i, s := range fx.Schools {
		if err := unique(res.Schools, s.Key); err != nil {
			return res, fmt.Errorf("schools[%d]: %w", i, err)
		}
		res.Schools[s.Key] = st.CreateSchool(s.Name).ID
	}
	for i, c := range fx.Candidates {
		if err := unique(res.Candidates, c.Key); err != nil {
			return res, fmt.Errorf("candidates[%d]: %w", i, err)
		}
		res.Candidates[c.Key] = st.CreateCandidate(c.Name).ID
	}

	for i, in := range fx.Invitations {
		if err := applyInvitation(st, &res, in, now); err != nil {
			return res, fmt.Errorf("invitations[%d]: %w", i, err)
		}
	}
	for i, m := range fx.Messages {
		if err := applyMessage(st, &res, m, now); err != nil {
			return res, fmt.Errorf("messages[%d]: %w", i, err)
		}
	}

	for i, c := range fx.Candidates {
		if err := applyReminders(st, res, res.Candidates[c.Key], c.Reminders, now); err != nil {
			return res, fmt.Errorf("candidates[%d].reminders: %w", i, err)
		}
	}
	return res, nil
}

func unique(m map[string]string, key string) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("key is required")
	}
	if _, dup := m[key]; dup {
		return fmt.Errorf("duplicate key %q", key)
	}
	return nil
}

// ref resolves a fixture key; unknown keys pass through as raw ids so the
// store reports the reference error.
func ref(m map[string]string, key string) string {
	if id, ok := m[key]; ok {
		return id
	}
	return key
}

func applyInvitation(st Store, res *Result, in Invitation, now time.Time) error {
	if in.Key != "" {
		if err := unique(res.Invitations, in.Key); err != nil {
			return err
		}
	}
	created, err := in.At.resolve(now)
	if err != nil {
		return err
	}
	inv, err := st.CreateInvitation(domain.NewInvitation{
		CandidateID: ref(res.Candidates, in.Candidate),
		SchoolID:    ref(res.Schools, in.School),
		Text:        in.Text,
		CreatedAt:   created,
	})
	if err != nil {
		return err
	}
	if in.Key != "" {
		res.Invitations[in.Key] = inv.ID
	}

	status := domain.InvitationStatus(strings.ToLower(strings.TrimSpace(in.Status)))
	switch {
	case status == "" || status == domain.StatusPending:
		if in.ResolvedAfter != "" {
			return errors.New("resolved_after requires status accepted or rejected")
		}
		return nil
	default:
		at, err := after(created, "resolved_after", in.ResolvedAfter)
		if err != nil {
			return err
		}
		_, err = st.ResolveInvitation(inv.ID, status, at)
		return err
	}
}

func applyMessage(st Store, res *Result, in Message, now time.Time) error {
	if in.Key != "" {
		if err := unique(res.Messages, in.Key); err != nil {
			return err
		}
	}
	created, err := in.At.resolve(now)
	if err != nil {
		return err
	}
	msg, err := st.CreateMessage(domain.NewMessage{
		CandidateID: ref(res.Candidates, in.Candidate),
		SchoolID:    ref(res.Schools, in.School),
		Text:        in.Text,
		CreatedAt:   created,
	})
	if err != nil {
		return err
	}
	if in.Key != "" {
		res.Messages[in.Key] = msg.ID
	}
	if in.ReadAfter == "" {
		return nil
	}
	at, err := after(created, "read_after", in.ReadAfter)
	if err != nil {
		return err
	}
	_, err = st.MarkMessageRead(msg.ID, at)
	return err
}

func applyReminders(st Store, res Result, candidateID string, rems []Reminder, now time.Time) error {
	if len(rems) == 0 {
		return nil
	}
	events := make([]domain.ReminderEvent, 0, len(rems))
	for i, r := range rems {
		at, err := r.At.resolve(now)
		if err != nil {
			return fmt.Errorf("[%d]: %w", i, err)
		}
		ev := domain.ReminderEvent{
			CreatedAt:     at,
			EntityType:    domain.EntityType(strings.ToLower(r.Type)),
			UrgencyStatus: domain.Level(strings.ToLower(r.Urgency)),
		}
		lookup := res.Messages
		switch ev.EntityType {
		case domain.EntityMessages:
		case domain.EntityInvitations:
			lookup = res.Invitations
		default:
			return fmt.Errorf("[%d]: unknown type %q", i, r.Type)
		}
		switch ev.UrgencyStatus {
		case domain.LevelNudge, domain.LevelWarning, domain.LevelNotice:
		default:
			return fmt.Errorf("[%d]: unknown urgency %q", i, r.Urgency)
		}
		if len(r.Items) == 0 {
			return fmt.Errorf("[%d]: reminder without items: %w", i, domain.ErrInvalidState)
		}
		for _, k := range r.Items {
			id, ok := lookup[k]
			if !ok {
				return fmt.Errorf("[%d]: unknown item %q", i, k)
			}
			ev.EntityIDs = append(ev.EntityIDs, id)
		}
		events = append(events, ev)
	}
	slices.SortStableFunc(events, func(a, b domain.ReminderEvent) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	for i := 1; i < len(events); i++ {
		if !events[i].CreatedAt.After(events[i-1].CreatedAt) {
			return fmt.Errorf("two reminders at %s: %w", events[i].CreatedAt.Format(time.RFC3339), domain.ErrInvalidState)
		}
	}

	// The batch is fully checked before the first append so a fixture never
	// leaves a partial history behind.
	return st.WithCandidate(candidateID, func(tx *store.CandidateTx) error {
		c, err := tx.Candidate()
		if err != nil {
			return err
		}
		if last, ok := c.LastReminder(); ok && !events[0].CreatedAt.After(last.CreatedAt) {
			return fmt.Errorf("reminder at %s is not after existing history: %w",
				events[0].CreatedAt.Format(time.RFC3339), domain.ErrInvalidState)
		}
		for _, ev := range events {
			if _, err := tx.AppendReminder(ev); err != nil {
				return err
			}
		}
		return nil
	})
}
