package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"nudger/internal/config"
	"nudger/internal/eventbus"
	"nudger/internal/metrics"
	"nudger/internal/observability/httpserver"
	"nudger/internal/reminder"
	rtsup "nudger/internal/runtime/supervisor"
	"nudger/internal/seed"
	"nudger/internal/storage"
	"nudger/internal/store"
	"nudger/internal/task/engine"
	"nudger/internal/task/scheduler"
	logx "nudger/pkg/logx"
)

const tickJobName = "evaluate"

// Options configure New.
type Options struct {
	// ConfigPath enables file config and hot reload. Empty means defaults.
	ConfigPath string
	// SeedPath overrides seed.path from the config.
	SeedPath string
	// Now replaces the wall clock for the store, seed and engine.
	Now func() time.Time
	// NoJournal skips opening storage, for one-shot runs.
	NoJournal bool
	// LogWriter replaces stdout for console logs.
	LogWriter io.Writer
}

type App struct {
	cfgm *config.ConfigManager
	cfg  *config.Config
	now  func() time.Time

	sup  *rtsup.Supervisor
	log  logx.Logger
	logs *logx.Service
	bus  eventbus.Bus

	store     *store.Store
	journal   storage.Journal
	metrics   *metrics.Metrics
	reminders *reminder.Engine

	engine *engine.Service
	sched  *scheduler.Service
	http   *httpserver.Service

	logWriter io.Writer
	seeded    seed.Result
}

func New(opts Options) (*App, error) {
	var (
		cfgm *config.ConfigManager
		cfg  *config.Config
		err  error
	)
	if strings.TrimSpace(opts.ConfigPath) != "" {
		cfgm = config.NewConfigManager(opts.ConfigPath)
		if cfg, err = cfgm.Load(); err != nil {
			return nil, err
		}
	} else {
		cfg = &config.Config{}
		if err := config.Validate(cfg); err != nil {
			return nil, err
		}
	}

	rc, err := mapAll(cfg)
	if err != nil {
		return nil, err
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	logCfg := rc.logging
	logCfg.Writer = opts.LogWriter
	logSvc, root := logx.New(logCfg)
	log := root.With(logx.String("comp", "app"))

	a := &App{
		cfgm:      cfgm,
		cfg:       cfg,
		now:       now,
		log:       log,
		logs:      logSvc,
		bus:       eventbus.New(),
		metrics:   metrics.New(),
		logWriter: opts.LogWriter,
	}
	a.store = store.New(store.WithClock(now))

	seedPath := strings.TrimSpace(opts.SeedPath)
	if seedPath == "" && cfg.Seed != nil {
		seedPath = strings.TrimSpace(cfg.Seed.Path)
	}
	if seedPath != "" {
		res, err := seed.LoadFile(seedPath, a.store, now(), root.With(logx.String("comp", "seed")))
		if err != nil {
			_ = logSvc.Close()
			return nil, err
		}
		a.seeded = res
	}

	observers := []reminder.Observer{a.metrics, busObserver(a.bus)}
	if rc.journal && !opts.NoJournal {
		j, err := storage.Open(rc.storage, root)
		if err != nil {
			_ = logSvc.Close()
			return nil, err
		}
		a.journal = j
		observers = append(observers, journalObserver{j: j, m: a.metrics, log: root.With(logx.String("comp", "journal"))})
		log.Info("journal enabled", logx.String("driver", rc.storage.Driver))
	}

	a.reminders = reminder.NewEngine(rc.reminder, a.store, root.With(logx.String("comp", "reminder")),
		reminder.WithObservers(observers...),
		reminder.WithClock(now),
	)

	a.engine = engine.New(rc.engine, root, a.bus)
	a.sched = scheduler.New(rc.sched, a.engine, root)
	a.sched.SetJob(tickJobName, 0, a.tick)

	a.http = httpserver.New(rc.http, httpserver.Sources{
		Metrics:   a.metrics.Handler(),
		Schedules: func() any { return a.sched.Snapshot() },
		Reminders: a.recentReminders,
		Health:    a.health,
	}, root)

	return a, nil
}

func (a *App) Config() *config.Config {
	if a.cfgm != nil {
		return a.cfgm.Get()
	}
	return a.cfg
}

func (a *App) Store() *store.Store { return a.store }

func (a *App) Seeded() seed.Result { return a.seeded }

func (a *App) Metrics() *metrics.Metrics { return a.metrics }

func (a *App) Scheduler() *scheduler.Service { return a.sched }

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

// Tick runs one evaluation pass outside the scheduler. A zero now means the
// app clock.
func (a *App) Tick(ctx context.Context, now time.Time) reminder.Report {
	rep := a.reminders.EvaluateAll(ctx, now)
	a.metrics.ObserveReport(rep)
	return rep
}

// NextRuns previews the next n scheduled ticks after from.
func (a *App) NextRuns(from time.Time, n int) ([]time.Time, error) {
	return a.sched.NextRuns(from, n)
}

// tick is the scheduler job. Candidates that failed make the tick fail so
// it shows up in history; the rest of the pass has already been applied.
func (a *App) tick(ctx context.Context, firedAt time.Time) error {
	rep := a.Tick(ctx, firedAt)
	if err := ctx.Err(); err != nil {
		return err
	}
	if rep.Failed > 0 {
		return fmt.Errorf("%d of %d candidates failed", rep.Failed, rep.Evaluated)
	}
	return nil
}

func (a *App) recentReminders(ctx context.Context, limit int) (any, error) {
	if a.journal == nil {
		return nil, storage.ErrDisabled
	}
	return a.journal.RecentReminders(ctx, limit)
}

func (a *App) health() error {
	if a.sup == nil {
		return errors.New("not started")
	}
	if err := a.sup.Err(); err != nil {
		return err
	}
	if a.sched.Enabled() && !a.sched.Snapshot().Running {
		return errors.New("scheduler not running")
	}
	return nil
}

func (a *App) Start(ctx context.Context) error {
	a.sup = rtsup.New(ctx, rtsup.WithLogger(a.log), rtsup.WithCancelOnError(true))
	run := a.sup.Context()

	a.engine.Start(run)
	a.sched.Start(run)
	if a.http.Enabled() {
		a.http.Start(run)
	}

	a.sup.Go("metrics.consume", func(c context.Context) error {
		return a.metrics.Consume(c, a.bus)
	})

	events, unsub := a.bus.Subscribe(128)
	a.sup.Go("eventbus.log", func(c context.Context) error {
		defer unsub()
		for {
			select {
			case <-c.Done():
				return nil
			case e, ok := <-events:
				if !ok {
					return nil
				}
				a.log.Debug("event", logx.String("type", e.Type), logx.Time("time", e.Time))
			}
		}
	})

	if a.cfgm != nil {
		a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
		a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
			_, err := mapAll(cfg)
			return err
		})
		sub := a.cfgm.Subscribe(8)
		a.sup.Go("config.reload", func(c context.Context) error {
			a.reloadLoop(c, sub)
			return nil
		})
		a.sup.Go("config.watch", func(c context.Context) error {
			return a.cfgm.Watch(c)
		})
	}

	s := a.store.Counts()
	a.log.Info("app started",
		logx.Int("candidates", s.Candidates),
		logx.Bool("scheduler", a.sched.Enabled()),
		logx.Bool("http", a.http.Enabled()),
		logx.Bool("journal", a.journal != nil),
	)
	sdNotify(a.log, daemon.SdNotifyReady, sdStatus(fmt.Sprintf("watching %d candidates", s.Candidates)))
	return nil
}

// Close releases resources of an app that was never started.
func (a *App) Close() error {
	var err error
	if a.journal != nil {
		err = a.journal.Close()
	}
	if a.logs != nil {
		err = errors.Join(err, a.logs.Close())
	}
	return err
}

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return a.Close()
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))
	sdNotify(a.log, daemon.SdNotifyStopping)

	a.sup.Cancel()

	// Each step gets an upper bound so one component cannot stall the rest.
	step := func(name string, limit time.Duration, fn func(context.Context) error) {
		start := time.Now()
		if dl, ok := ctx.Deadline(); ok {
			limit = min(limit, time.Until(dl))
		}
		stepCtx, cancel := context.WithTimeout(ctx, max(limit, 0))
		defer cancel()

		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(stepCtx)
		}()

		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			}
			a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
		case <-stepCtx.Done():
			a.log.Warn("stop step deadline reached (continuing)",
				logx.String("name", name),
				logx.Duration("elapsed", time.Since(start)),
			)
		}
	}

	step("scheduler", 2*time.Second, func(c context.Context) error { a.sched.Stop(c); return nil })
	step("taskengine", 2*time.Second, func(c context.Context) error { a.engine.Stop(c); return nil })
	step("http", time.Second, func(c context.Context) error { a.http.Stop(c); return nil })
	step("storage", time.Second, func(context.Context) error {
		if a.journal != nil {
			return a.journal.Close()
		}
		return nil
	})
	step("supervisor", 2*time.Second, func(c context.Context) error { return a.sup.Wait(c) })

	a.log.Info("stopped")
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return nil
}
