package config

// Config is the on-disk configuration (JSON or YAML).
//
// Sections marked hot are re-applied on reload; storage and seed are read
// once at startup.
type Config struct {
	Logging LoggingConfig `json:"logging"`

	// Scheduler decides when evaluation ticks fire.
	Scheduler SchedulerConfig `json:"scheduler"`

	// TaskEngine controls the serial tick executor.
	TaskEngine *TaskEngineConfig `json:"task_engine,omitempty"`

	Reminder *ReminderConfig `json:"reminder,omitempty"`
	Storage  *StorageConfig  `json:"storage,omitempty"`
	HTTP     *HTTPConfig     `json:"http,omitempty"`
	Seed     *SeedConfig     `json:"seed,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	JSON    bool        `json:"json,omitempty"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// SchedulerConfig lists the weekly slots at which candidates are evaluated.
//
// Days are cron day-of-week tokens ("1-5", "0", "sat"); Times are local
// "HH:MM" (or "HH:MM:SS") in Timezone. Every time fires on every listed day.
//
// Defaults: days ["1-5"], times ["06:00", "12:00", "18:00"], timezone Local.
type SchedulerConfig struct {
	Enabled  bool     `json:"enabled"`
	Timezone string   `json:"timezone,omitempty"`
	Days     []string `json:"days,omitempty"`
	Times    []string `json:"times,omitempty"`
}

// TaskEngineConfig controls the tick executor.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
//
// Defaults (when fields are omitted/zero):
//   - queue_size: 16
//   - default_timeout: "0s" (disabled)
//   - max_queue_delay: "0s" (disabled)
//   - history_size: 50
type TaskEngineConfig struct {
	QueueSize      int    `json:"queue_size,omitempty"`
	DefaultTimeout string `json:"default_timeout,omitempty"`
	// MaxQueueDelay drops ticks that waited longer than this behind a slow one.
	MaxQueueDelay string `json:"max_queue_delay,omitempty"`
	HistorySize   int    `json:"history_size,omitempty"`
}

// ReminderConfig tunes throttling. Zero values keep the defaults of one
// reminder per 24h and three per 168h.
type ReminderConfig struct {
	DailyWindow  string `json:"daily_window,omitempty"`
	WeeklyWindow string `json:"weekly_window,omitempty"`
	WeeklyCap    int    `json:"weekly_cap,omitempty"`
	// Concurrency bounds parallel candidate evaluation inside one tick.
	Concurrency int `json:"concurrency,omitempty"`
}

// StorageConfig controls the reminder journal.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./nudger.db" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// HTTPConfig controls the status server (/healthz, /metrics, /schedules).
//
// Prefer binding to localhost; pprof handlers expose process internals.
type HTTPConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"` // default: "127.0.0.1:9090"
	Pprof   bool   `json:"pprof,omitempty"`

	ReadTimeout  string `json:"read_timeout,omitempty"`
	WriteTimeout string `json:"write_timeout,omitempty"`
	IdleTimeout  string `json:"idle_timeout,omitempty"`
}

// SeedConfig points at a YAML fixture loaded into the store at startup.
type SeedConfig struct {
	Path string `json:"path"`
}

var (
	DefaultDays  = []string{"1-5"}
	DefaultTimes = []string{"06:00", "12:00", "18:00"}
)

const DefaultHTTPAddr = "127.0.0.1:9090"
