package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/time/rate"

	"nudger/internal/task/engine"
	logx "nudger/pkg/logx"
)

// Slot is a local time of day at which evaluation fires.
type Slot struct {
	Hour, Minute, Second int
}

func (s Slot) String() string {
	if s.Second != 0 {
		return time.Date(0, 1, 1, s.Hour, s.Minute, s.Second, 0, time.UTC).Format("15:04:05")
	}
	return time.Date(0, 1, 1, s.Hour, s.Minute, 0, 0, time.UTC).Format("15:04")
}

// Config controls when evaluation ticks fire.
//
// Days are cron day-of-week tokens ("1-5", "0,6", "sat"). Every slot in
// Times fires on every listed day, in Timezone (IANA name, empty = Local).
type Config struct {
	Enabled  bool
	Timezone string
	Days     []string
	Times    []Slot
}

var (
	DefaultDays  = []string{"1-5"}
	DefaultTimes = []Slot{{Hour: 6}, {Hour: 12}, {Hour: 18}}
)

func (c Config) withDefaults() Config {
	if len(c.Days) == 0 {
		c.Days = DefaultDays
	}
	if len(c.Times) == 0 {
		c.Times = DefaultTimes
	}
	return c
}

// Job runs one tick; firedAt is the trigger instant in the scheduler timezone.
type Job func(ctx context.Context, firedAt time.Time) error

type scheduleDef struct {
	name    string
	spec    string
	entryID cron.EntryID
}

type Service struct {
	mu sync.Mutex

	log logx.Logger
	cfg Config
	loc *time.Location

	engine *engine.Service

	parser cron.Parser
	c      *cron.Cron
	defs   []scheduleDef

	jobName    string
	jobTimeout time.Duration
	job        Job

	now func() time.Time

	// enqueue failure warnings, one limiter per schedule name
	enqMu       sync.Mutex
	enqLimiters map[string]*rate.Limiter
}

type ScheduleInfo struct {
	Name string    `json:"name"`
	Spec string    `json:"spec"`
	Next time.Time `json:"next"`
	Prev time.Time `json:"prev"`
}

type Snapshot struct {
	Enabled   bool                 `json:"enabled"`
	Running   bool                 `json:"running"`
	Timezone  string               `json:"timezone"`
	Schedules []ScheduleInfo       `json:"schedules"`
	Engine    engine.Snapshot      `json:"engine"`
	History   []engine.HistoryItem `json:"history"`
}
