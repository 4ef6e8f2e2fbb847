package domain

import (
	"slices"
	"time"
)

// InvitationStatus is the reply state of an invitation.
type InvitationStatus string

const (
	StatusPending  InvitationStatus = "pending"
	StatusAccepted InvitationStatus = "accepted"
	StatusRejected InvitationStatus = "rejected"
)

// IsDecision reports whether s is a valid reply (accepted or rejected).
func (s InvitationStatus) IsDecision() bool {
	return s == StatusAccepted || s == StatusRejected
}

// EntityType names the kind of item a reminder is about.
type EntityType string

const (
	EntityMessages    EntityType = "messages"
	EntityInvitations EntityType = "invitations"
)

// Level is the urgency tier of a reminder.
type Level string

const (
	LevelNudge   Level = "nudge"
	LevelWarning Level = "warning"
	LevelNotice  Level = "notice"
)

// ReminderEvent is appended to a candidate when the reminder engine decides
// the candidate should be reminded. It has no identity of its own.
type ReminderEvent struct {
	CreatedAt     time.Time  `json:"created_at"`
	EntityType    EntityType `json:"entity_type"`
	UrgencyStatus Level      `json:"urgency_status"`
	EntityIDs     []string   `json:"entity_ids"`
}

func (e ReminderEvent) clone() ReminderEvent {
	e.EntityIDs = slices.Clone(e.EntityIDs)
	return e
}

type Candidate struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	CreatedAt     time.Time       `json:"created_at"`
	Reminders     []ReminderEvent `json:"reminders"`
	InvitationIDs []string        `json:"invitation_ids"`
	MessageIDs    []string        `json:"message_ids"`
}

// Clone returns a deep copy so callers never share slices with the store.
func (c Candidate) Clone() Candidate {
	out := c
	out.InvitationIDs = slices.Clone(c.InvitationIDs)
	out.MessageIDs = slices.Clone(c.MessageIDs)
	if c.Reminders != nil {
		out.Reminders = make([]ReminderEvent, len(c.Reminders))
		for i, r := range c.Reminders {
			out.Reminders[i] = r.clone()
		}
	}
	return out
}

// LastReminder returns the most recent reminder, if any.
func (c Candidate) LastReminder() (ReminderEvent, bool) {
	if len(c.Reminders) == 0 {
		return ReminderEvent{}, false
	}
	return c.Reminders[len(c.Reminders)-1], true
}

type School struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	CreatedAt     time.Time `json:"created_at"`
	InvitationIDs []string  `json:"invitation_ids"`
	MessageIDs    []string  `json:"message_ids"`
}

func (s School) Clone() School {
	out := s
	out.InvitationIDs = slices.Clone(s.InvitationIDs)
	out.MessageIDs = slices.Clone(s.MessageIDs)
	return out
}

type Invitation struct {
	ID           string           `json:"id"`
	CandidateID  string           `json:"candidate_id"`
	SchoolID     string           `json:"school_id"`
	Text         string           `json:"text"`
	CreatedAt    time.Time        `json:"created_at"`
	Status       InvitationStatus `json:"status"`
	DateResolved *time.Time       `json:"date_resolved,omitempty"`
}

// Pending reports whether the invitation still awaits a reply.
func (i Invitation) Pending() bool { return i.Status == StatusPending }

func (i Invitation) Clone() Invitation {
	out := i
	if i.DateResolved != nil {
		t := *i.DateResolved
		out.DateResolved = &t
	}
	return out
}

type Message struct {
	ID          string     `json:"id"`
	CandidateID string     `json:"candidate_id"`
	SchoolID    string     `json:"school_id"`
	Text        string     `json:"text"`
	CreatedAt   time.Time  `json:"created_at"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
}

// Unread reports whether the message has not been read yet.
func (m Message) Unread() bool { return m.ReadAt == nil }

func (m Message) Clone() Message {
	out := m
	if m.ReadAt != nil {
		t := *m.ReadAt
		out.ReadAt = &t
	}
	return out
}

// NewInvitation is the input for creating an invitation.
// A zero CreatedAt means "now" according to the store clock.
type NewInvitation struct {
	CandidateID string
	SchoolID    string
	Text        string
	CreatedAt   time.Time
}

// NewMessage is the input for creating a message.
// A zero CreatedAt means "now" according to the store clock.
type NewMessage struct {
	CandidateID string
	SchoolID    string
	Text        string
	CreatedAt   time.Time
}
