package engine

import (
	"context"
	"time"
)

// Config controls the task engine. The app maps config.task_engine into it.
type Config struct {
	Enabled   bool
	QueueSize int

	// DefaultTimeout is used when Task.Timeout is 0. 0 disables it.
	DefaultTimeout time.Duration

	// MaxQueueDelay drops tasks that waited longer than this behind earlier
	// ones. 0 disables stale dropping.
	MaxQueueDelay time.Duration

	HistorySize int
}

const (
	defaultQueueSize   = 16
	defaultHistorySize = 50
)

func (c Config) withDefaults() Config {
	if c.QueueSize <= 0 {
		c.QueueSize = defaultQueueSize
	}
	if c.HistorySize <= 0 {
		c.HistorySize = defaultHistorySize
	}
	return c
}

// Task is a unit of work. Tasks run one at a time in enqueue order.
type Task struct {
	ID      string
	Name    string
	Timeout time.Duration
	Run     func(ctx context.Context) error
}

type HistoryItem struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Started    time.Time     `json:"started"`
	QueueDelay time.Duration `json:"queue_delay"`
	Duration   time.Duration `json:"duration"`
	Error      string        `json:"error,omitempty"`
}

// TaskEvent is the payload of tick.* events on the bus.
type TaskEvent struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Started    time.Time     `json:"started"`
	QueueDelay time.Duration `json:"queue_delay"`
	Duration   time.Duration `json:"duration"`
	Error      string        `json:"error,omitempty"`
}

// Snapshot is a diagnostics view.
type Snapshot struct {
	Enabled  bool   `json:"enabled"`
	Running  bool   `json:"running"`
	Current  string `json:"current,omitempty"`
	QueueLen int    `json:"queue_len"`
	QueueCap int    `json:"queue_cap"`

	Executed         uint64 `json:"executed"`
	Failed           uint64 `json:"failed"`
	DroppedQueueFull uint64 `json:"dropped_queue_full"`
	DroppedStale     uint64 `json:"dropped_stale"`

	DefaultTimeout time.Duration `json:"default_timeout"`
	MaxQueueDelay  time.Duration `json:"max_queue_delay"`

	History []HistoryItem `json:"history"`
}
