package seed

import (
	"errors"
	"fmt"
	"time"
)

// Fixture is the YAML document loaded into the store.
//
// Items reference candidates, schools, invitations and messages by fixture
// key. Timestamps are either absolute (created_at, RFC3339) or an age
// relative to the load instant (Go duration, e.g. "30h").
type Fixture struct {
	Schools     []Entity     `yaml:"schools"`
	Candidates  []Candidate  `yaml:"candidates"`
	Invitations []Invitation `yaml:"invitations"`
	Messages    []Message    `yaml:"messages"`
}

type Entity struct {
	Key  string `yaml:"key"`
	Name string `yaml:"name"`
}

type Candidate struct {
	Key       string     `yaml:"key"`
	Name      string     `yaml:"name"`
	Reminders []Reminder `yaml:"reminders"`
}

// Reminder is a reminder the candidate already received before the load.
type Reminder struct {
	At      `yaml:",inline"`
	Type    string   `yaml:"type"`
	Urgency string   `yaml:"urgency"`
	Items   []string `yaml:"items"`
}

type Invitation struct {
	Key       string `yaml:"key"`
	Candidate string `yaml:"candidate"`
	School    string `yaml:"school"`
	Text      string `yaml:"text"`
	At        `yaml:",inline"`

	// Status is pending (default), accepted or rejected.
	Status        string `yaml:"status"`
	ResolvedAfter string `yaml:"resolved_after"`
}

type Message struct {
	Key       string `yaml:"key"`
	Candidate string `yaml:"candidate"`
	School    string `yaml:"school"`
	Text      string `yaml:"text"`
	At        `yaml:",inline"`

	// ReadAfter marks the message read this long after creation.
	ReadAfter string `yaml:"read_after"`
}

// At is an inline timestamp: exactly one of CreatedAt or Age, or neither
// for "now".
type At struct {
	CreatedAt string `yaml:"created_at"`
	Age       string `yaml:"age"`
}

func (a At) resolve(now time.Time) (time.Time, error) {
	switch {
	case a.CreatedAt != "" && a.Age != "":
		return time.Time{}, errors.New("created_at and age are mutually exclusive")
	case a.CreatedAt != "":
		t, err := time.Parse(time.RFC3339, a.CreatedAt)
		if err != nil {
			return time.Time{}, fmt.Errorf("created_at: %w", err)
		}
		return t, nil
	case a.Age != "":
		d, err := time.ParseDuration(a.Age)
		if err != nil {
			return time.Time{}, fmt.Errorf("age: %w", err)
		}
		if d < 0 {
			return time.Time{}, fmt.Errorf("age: negative duration %q", a.Age)
		}
		return now.Add(-d), nil
	default:
		return now, nil
	}
}

func after(base time.Time, field, v string) (time.Time, error) {
	if v == "" {
		return base, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", field, err)
	}
	if d < 0 {
		return time.Time{}, fmt.Errorf("%s: negative duration %q", field, v)
	}
	return base.Add(d), nil
}
