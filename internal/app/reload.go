package app

import (
	"context"
	"slices"
	"strings"

	"nudger/internal/config"
	"nudger/internal/eventbus"
	logx "nudger/pkg/logx"
)

// restartOnly sections are read once at startup.
var restartOnly = []string{"seed", "storage"}

func (a *App) reloadLoop(ctx context.Context, sub chan *config.Config) {
	defer a.cfgm.Unsubscribe(sub)
	lastApplied := a.cfgm.Get()
	for {
		select {
		case <-ctx.Done():
			return
		case newCfg, ok := <-sub:
			if !ok {
				return
			}
			// Coalesce bursts: keep only the latest config.
		drain:
			for {
				select {
				case newer := <-sub:
					if newer != nil {
						newCfg = newer
					}
				default:
					break drain
				}
			}
			if newCfg == nil {
				continue
			}
			a.applyConfig(ctx, lastApplied, newCfg)
			lastApplied = newCfg
		}
	}
}

// applyConfig pushes a validated config into the running components.
func (a *App) applyConfig(ctx context.Context, prev, next *config.Config) {
	sections, attrs := config.SummarizeConfigChange(prev, next)
	if len(sections) == 0 {
		a.log.Info("config reloaded (no changes)")
		return
	}
	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	a.log.Debug("config change summary", fields...)

	for _, s := range restartOnly {
		if slices.Contains(sections, s) {
			a.log.Warn("config section changed; restart required for changes to take effect", logx.String("section", s))
		}
	}

	rc, err := mapAll(next)
	if err != nil {
		// The validator already ran; this only guards against a config
		// committed without it.
		a.log.Warn("invalid config; keeping previous", logx.Err(err))
		return
	}

	logCfg := rc.logging
	logCfg.Writer = a.logWriter
	a.logs.Apply(logCfg)

	a.reminders.Apply(rc.reminder)

	// ctx parents any restarted component, so it must outlive this call.
	a.engine.Apply(ctx, rc.engine)
	a.sched.Apply(ctx, rc.sched)
	a.http.Reconfigure(ctx, rc.http)

	a.bus.Publish(eventbus.Event{Type: eventbus.ConfigReloaded, Data: sections})
	a.log.Info("config reloaded", fields...)
}
