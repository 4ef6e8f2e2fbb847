package config

import (
	"reflect"
	"sort"
	"strings"

	logx "nudger/pkg/logx"
)

// SummarizeConfigChange returns a sorted list of changed sections and safe
// structured attrs describing the new values.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 6)
	attrs := make([]logx.Field, 0, 16)

	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.json", newCfg.Logging.JSON),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	oSch, nSch := oldCfg.Scheduler, newCfg.Scheduler
	if oSch.Enabled != nSch.Enabled ||
		strings.TrimSpace(oSch.Timezone) != strings.TrimSpace(nSch.Timezone) ||
		!reflect.DeepEqual(oSch.Days, nSch.Days) ||
		!reflect.DeepEqual(oSch.Times, nSch.Times) {
		changed = append(changed, "scheduler")
		attrs = append(attrs,
			logx.Bool("scheduler.enabled", nSch.Enabled),
			logx.String("scheduler.timezone", strings.TrimSpace(nSch.Timezone)),
			logx.Strings("scheduler.days", nSch.Days),
			logx.Strings("scheduler.times", nSch.Times),
		)
	}

	if !reflect.DeepEqual(derefOr(oldCfg.TaskEngine), derefOr(newCfg.TaskEngine)) {
		te := derefOr(newCfg.TaskEngine)
		changed = append(changed, "task_engine")
		attrs = append(attrs,
			logx.Int("task_engine.queue_size", te.QueueSize),
			logx.String("task_engine.default_timeout", strings.TrimSpace(te.DefaultTimeout)),
			logx.String("task_engine.max_queue_delay", strings.TrimSpace(te.MaxQueueDelay)),
			logx.Int("task_engine.history_size", te.HistorySize),
		)
	}

	if !reflect.DeepEqual(derefOr(oldCfg.Reminder), derefOr(newCfg.Reminder)) {
		r := derefOr(newCfg.Reminder)
		changed = append(changed, "reminder")
		attrs = append(attrs,
			logx.String("reminder.daily_window", r.DailyWindow),
			logx.String("reminder.weekly_window", r.WeeklyWindow),
			logx.Int("reminder.weekly_cap", r.WeeklyCap),
			logx.Int("reminder.concurrency", r.Concurrency),
		)
	}

	// Storage is restart-only; a change is still worth a line in the log.
	oS, nS := derefOr(oldCfg.Storage), derefOr(newCfg.Storage)
	if strings.TrimSpace(oS.Driver) != strings.TrimSpace(nS.Driver) ||
		strings.TrimSpace(oS.Path) != strings.TrimSpace(nS.Path) ||
		strings.TrimSpace(oS.BusyTimeout) != strings.TrimSpace(nS.BusyTimeout) {
		changed = append(changed, "storage")
		attrs = append(attrs,
			logx.String("storage.driver", strings.TrimSpace(nS.Driver)),
			logx.Bool("storage.path_set", strings.TrimSpace(nS.Path) != ""),
		)
	}

	if !reflect.DeepEqual(derefOr(oldCfg.HTTP), derefOr(newCfg.HTTP)) {
		h := derefOr(newCfg.HTTP)
		changed = append(changed, "http")
		attrs = append(attrs,
			logx.Bool("http.enabled", h.Enabled),
			logx.String("http.addr", strings.TrimSpace(h.Addr)),
			logx.Bool("http.pprof", h.Pprof),
		)
	}

	if derefOr(oldCfg.Seed) != derefOr(newCfg.Seed) {
		changed = append(changed, "seed")
	}

	sort.Strings(changed)
	return changed, attrs
}

func derefOr[T any](p *T) T {
	if p == nil {
		var zero T
		return zero
	}
	return *p
}
