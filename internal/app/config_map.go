package app

import (
	"fmt"
	"strings"
	"time"

	"nudger/internal/config"
	"nudger/internal/observability/httpserver"
	"nudger/internal/reminder"
	"nudger/internal/storage"
	"nudger/internal/task/engine"
	"nudger/internal/task/scheduler"
	logx "nudger/pkg/logx"
)

func mapLoggingConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		JSON:    cfg.Logging.JSON,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func mapStorageConfig(cfg *config.Config) (storage.Config, bool, error) {
	if cfg == nil || cfg.Storage == nil {
		return storage.Config{}, false, nil
	}
	sc := cfg.Storage
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	if driver == "" || driver == "none" {
		return storage.Config{}, false, nil
	}
	path := strings.TrimSpace(sc.Path)
	if path == "" {
		return storage.Config{}, false, fmt.Errorf("storage.path is required when storage.driver=%s", driver)
	}

	switch driver {
	case "file":
		return storage.Config{Driver: driver, Path: path}, true, nil
	case "sqlite", "sqlite3":
		busy, err := config.ParseDurationOrDefault("storage.busy_timeout", sc.BusyTimeout, time.Second)
		if err != nil {
			return storage.Config{}, false, err
		}
		return storage.Config{Driver: "sqlite", Path: path, BusyTimeout: busy}, true, nil
	default:
		return storage.Config{}, false, fmt.Errorf("unknown storage.driver: %s", sc.Driver)
	}
}

// The scheduler always needs the executor, so the engine is never disabled.
func mapTaskEngineConfig(cfg *config.Config) (engine.Config, error) {
	out := engine.Config{Enabled: true}
	if cfg == nil || cfg.TaskEngine == nil {
		return out, nil
	}
	te := cfg.TaskEngine
	if te.QueueSize < 0 {
		return engine.Config{}, fmt.Errorf("task_engine.queue_size must be >= 0")
	}
	if te.HistorySize < 0 {
		return engine.Config{}, fmt.Errorf("task_engine.history_size must be >= 0")
	}
	out.QueueSize = te.QueueSize
	out.HistorySize = te.HistorySize

	var err error
	if out.DefaultTimeout, err = config.ParseDurationField("task_engine.default_timeout", te.DefaultTimeout); err != nil {
		return engine.Config{}, err
	}
	if out.MaxQueueDelay, err = config.ParseDurationField("task_engine.max_queue_delay", te.MaxQueueDelay); err != nil {
		return engine.Config{}, err
	}
	return out, nil
}

func mapSchedulerConfig(cfg *config.Config) (scheduler.Config, error) {
	sc := cfg.Scheduler
	out := scheduler.Config{
		Enabled:  sc.Enabled,
		Timezone: strings.TrimSpace(sc.Timezone),
		Days:     sc.Days,
	}
	for i, raw := range sc.Times {
		c, err := config.ParseClock(raw)
		if err != nil {
			return scheduler.Config{}, fmt.Errorf("scheduler.times[%d]: %w", i, err)
		}
		out.Times = append(out.Times, scheduler.Slot{Hour: c.Hour, Minute: c.Minute, Second: c.Second})
	}
	return out, nil
}

func mapReminderConfig(cfg *config.Config) (reminder.Config, error) {
	out := reminder.Config{Throttle: reminder.DefaultThrottlePolicy()}
	if cfg == nil || cfg.Reminder == nil {
		return out, nil
	}
	rc := cfg.Reminder
	var err error
	if out.Throttle.DailyWindow, err = config.ParseDurationOrDefault("reminder.daily_window", rc.DailyWindow, reminder.Day); err != nil {
		return reminder.Config{}, err
	}
	if out.Throttle.WeeklyWindow, err = config.ParseDurationOrDefault("reminder.weekly_window", rc.WeeklyWindow, reminder.Week); err != nil {
		return reminder.Config{}, err
	}
	if rc.WeeklyCap < 0 {
		return reminder.Config{}, fmt.Errorf("reminder.weekly_cap must be >= 0")
	}
	if rc.WeeklyCap > 0 {
		out.Throttle.WeeklyCap = rc.WeeklyCap
	}
	out.Concurrency = rc.Concurrency
	return out, nil
}

func mapHTTPConfig(cfg *config.Config) (httpserver.Config, error) {
	if cfg == nil || cfg.HTTP == nil {
		return httpserver.Config{}, nil
	}
	h := cfg.HTTP
	out := httpserver.Config{
		Enabled: h.Enabled,
		Addr:    strings.TrimSpace(h.Addr),
		Pprof:   h.Pprof,
	}
	if out.Addr == "" {
		out.Addr = config.DefaultHTTPAddr
	}
	var err error
	if out.ReadTimeout, err = config.ParseDurationOrDefault("http.read_timeout", h.ReadTimeout, 5*time.Second); err != nil {
		return httpserver.Config{}, err
	}
	if out.WriteTimeout, err = config.ParseDurationOrDefault("http.write_timeout", h.WriteTimeout, 30*time.Second); err != nil {
		return httpserver.Config{}, err
	}
	if out.IdleTimeout, err = config.ParseDurationOrDefault("http.idle_timeout", h.IdleTimeout, 60*time.Second); err != nil {
		return httpserver.Config{}, err
	}
	return out, nil
}

// runtimeConfig is every mapped section; building it is also the reload
// validator.
type runtimeConfig struct {
	logging  logx.Config
	storage  storage.Config
	journal  bool
	engine   engine.Config
	sched    scheduler.Config
	reminder reminder.Config
	http     httpserver.Config
}

func mapAll(cfg *config.Config) (runtimeConfig, error) {
	var (
		rc  runtimeConfig
		err error
	)
	rc.logging = mapLoggingConfig(cfg)
	if rc.storage, rc.journal, err = mapStorageConfig(cfg); err != nil {
		return rc, err
	}
	if rc.engine, err = mapTaskEngineConfig(cfg); err != nil {
		return rc, err
	}
	if rc.sched, err = mapSchedulerConfig(cfg); err != nil {
		return rc, err
	}
	if rc.reminder, err = mapReminderConfig(cfg); err != nil {
		return rc, err
	}
	if rc.http, err = mapHTTPConfig(cfg); err != nil {
		return rc, err
	}
	return rc, nil
}
