package scheduler

import (
	"context"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/time/rate"

	"nudger/internal/task/engine"
	logx "nudger/pkg/logx"
)

func New(cfg Config, eng *engine.Service, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg:         cfg,
		log:         log.With(logx.String("comp", "scheduler")),
		engine:      eng,
		parser:      StandardParser(),
		now:         time.Now,
		enqLimiters: map[string]*rate.Limiter{},
	}
}

// SetJob installs the work each firing enqueues. Call before Start.
func (s *Service) SetJob(name string, timeout time.Duration, job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobName = strings.TrimSpace(name)
	if s.jobName == "" {
		s.jobName = "evaluate"
	}
	s.jobTimeout = timeout
	s.job = job
}

// Enabled reports the current config flag.
func (s *Service) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Enabled
}

// Apply swaps the config. A running scheduler re-registers its schedules;
// disabling it stops cron and enabling it starts cron.
func (s *Service) Apply(ctx context.Context, cfg Config) {
	s.mu.Lock()
	running := s.c != nil
	s.cfg = cfg
	s.mu.Unlock()

	if running {
		s.Stop(ctx)
	}
	if cfg.Enabled {
		s.Start(ctx)
	}
}

// Start registers the configured schedules and starts triggering.
// It is a no-op when disabled or already running.
func (s *Service) Start(ctx context.Context) {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil || !s.cfg.Enabled {
		return
	}
	s.startLocked()
	s.log.Info("service started", logx.String("tz", s.loc.String()), logx.Int("schedules", len(s.defs)))
}

func (s *Service) startLocked() {
	s.loc = s.loadLocationLocked()
	s.c = cron.New(cron.WithParser(s.parser), cron.WithLocation(s.loc))
	s.registerLocked()
	s.c.Start()
}

// Stop stops triggering. Ticks already enqueued still run on the engine.
func (s *Service) Stop(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()

	s.mu.Lock()
	c := s.c
	s.c = nil
	for i := range s.defs {
		s.defs[i].entryID = 0
	}
	s.mu.Unlock()
	if c == nil {
		return
	}

	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
	}
	s.log.Info("service stopped", logx.Duration("took", time.Since(start)))
}

// registerLocked rebuilds defs from the config and adds them to cron.
func (s *Service) registerLocked() {
	s.defs = s.defs[:0]
	specs, err := Specs(s.cfg)
	if err != nil {
		s.log.Error("invalid schedule config; nothing registered", logx.Err(err))
		return
	}
	for _, spec := range specs {
		d := scheduleDef{name: s.jobName + "@" + spec, spec: spec}
		eid, err := s.c.AddJob(spec, s.firing(d.name))
		if err != nil {
			s.log.Error("schedule register failed", logx.String("spec", spec), logx.Err(err))
			continue
		}
		d.entryID = eid
		s.defs = append(s.defs, d)
		if sc, err := s.parser.Parse(spec); err == nil {
			s.log.Debug("schedule registered", logx.String("spec", spec), logx.Time("next", sc.Next(s.now().In(s.loc))))
		}
	}
}

func (s *Service) firing(name string) cron.Job {
	return cron.FuncJob(func() {
		if err := s.enqueue(name, s.now()); err != nil {
			s.reportEnqueueError(name, err)
		}
	})
}

// enqueue hands one tick for firedAt to the engine.
func (s *Service) enqueue(name string, firedAt time.Time) error {
	s.mu.Lock()
	job := s.job
	timeout := s.jobTimeout
	taskName := s.jobName
	loc := s.loc
	s.mu.Unlock()

	if job == nil || s.engine == nil {
		return errNoJob
	}
	if loc != nil {
		firedAt = firedAt.In(loc)
	}
	return s.engine.Enqueue(engine.Task{
		Name:    taskName,
		Timeout: timeout,
		Run:     func(ctx context.Context) error { return job(ctx, firedAt) },
	})
}

func (s *Service) loadLocationLocked() *time.Location {
	return LoadLocation(s.cfg.Timezone, s.log)
}

// LoadLocation resolves an IANA name, falling back to Local when it is empty
// or unknown.
func LoadLocation(tz string, log logx.Logger) *time.Location {
	tz = strings.TrimSpace(tz)
	if tz == "" || strings.EqualFold(tz, "local") {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Warn("invalid timezone; falling back to Local", logx.String("tz", tz), logx.Err(err))
		return time.Local
	}
	return loc
}
