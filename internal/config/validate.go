package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	logx "nudger/pkg/logx"
)

// Validate reports every problem in cfg at once.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	var errs []error
	add := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	if lvl := strings.TrimSpace(cfg.Logging.Level); lvl != "" {
		if _, ok := logx.ParseLevel(lvl); !ok {
			add(fmt.Errorf("logging.level: unknown level %q", lvl))
		}
	}

	add(validateScheduler(cfg.Scheduler))

	if te := cfg.TaskEngine; te != nil {
		if te.QueueSize < 0 {
			add(errors.New("task_engine.queue_size: must be >= 0"))
		}
		if te.HistorySize < 0 {
			add(errors.New("task_engine.history_size: must be >= 0"))
		}
		_, err := ParseDurationField("task_engine.default_timeout", te.DefaultTimeout)
		add(err)
		_, err = ParseDurationField("task_engine.max_queue_delay", te.MaxQueueDelay)
		add(err)
	}

	if r := cfg.Reminder; r != nil {
		_, err := ParseDurationField("reminder.daily_window", r.DailyWindow)
		add(err)
		_, err = ParseDurationField("reminder.weekly_window", r.WeeklyWindow)
		add(err)
		if r.WeeklyCap < 0 {
			add(errors.New("reminder.weekly_cap: must be >= 0"))
		}
		if r.Concurrency < 0 {
			add(errors.New("reminder.concurrency: must be >= 0"))
		}
	}

	if s := cfg.Storage; s != nil {
		switch strings.ToLower(strings.TrimSpace(s.Driver)) {
		case "", "none", "file", "sqlite":
		default:
			add(fmt.Errorf("storage.driver: unknown driver %q", s.Driver))
		}
		_, err := ParseDurationField("storage.busy_timeout", s.BusyTimeout)
		add(err)
	}

	if h := cfg.HTTP; h != nil {
		_, err := ParseDurationField("http.read_timeout", h.ReadTimeout)
		add(err)
		_, err = ParseDurationField("http.write_timeout", h.WriteTimeout)
		add(err)
		_, err = ParseDurationField("http.idle_timeout", h.IdleTimeout)
		add(err)
	}

	return errors.Join(errs...)
}

func validateScheduler(sc SchedulerConfig) error {
	var errs []error
	if tz := strings.TrimSpace(sc.Timezone); tz != "" && !strings.EqualFold(tz, "local") {
		if _, err := time.LoadLocation(tz); err != nil {
			errs = append(errs, fmt.Errorf("scheduler.timezone: %w", err))
		}
	}
	for i, d := range sc.Days {
		d = strings.TrimSpace(d)
		if d == "" {
			errs = append(errs, fmt.Errorf("scheduler.days[%d]: empty", i))
			continue
		}
		if _, err := cron.ParseStandard("0 0 * * " + d); err != nil {
			errs = append(errs, fmt.Errorf("scheduler.days[%d]: %q: %w", i, d, err))
		}
	}
	for i, t := range sc.Times {
		if _, err := ParseClock(t); err != nil {
			errs = append(errs, fmt.Errorf("scheduler.times[%d]: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// Clock is a local time of day.
type Clock struct {
	Hour, Minute, Second int
}

func (c Clock) String() string {
	if c.Second != 0 {
		return fmt.Sprintf("%02d:%02d:%02d", c.Hour, c.Minute, c.Second)
	}
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// ParseClock parses "HH:MM" or "HH:MM:SS".
func ParseClock(s string) (Clock, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return Clock{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}, nil
		}
	}
	return Clock{}, fmt.Errorf("invalid time of day %q (want HH:MM)", s)
}
