package reminder

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"nudger/internal/domain"
	"nudger/internal/store"
	logx "nudger/pkg/logx"
)

// Source is the part of the entity store the engine needs.
type Source interface {
	AllCandidateIDs() []string
	WithCandidate(candidateID string, fn func(tx *store.CandidateTx) error) error
}

// Observer is notified after a reminder has been appended to a candidate.
// With Concurrency > 1 observers may be called from several goroutines.
type Observer interface {
	ReminderAppended(ctx context.Context, d Decision)
}

// ObserverFunc adapts a plain function to Observer.
type ObserverFunc func(ctx context.Context, d Decision)

func (f ObserverFunc) ReminderAppended(ctx context.Context, d Decision) { f(ctx, d) }

// Outcome is what one pass did for one candidate.
type Outcome string

const (
	OutcomeAppended  Outcome = "appended"
	OutcomeThrottled Outcome = "throttled"
	OutcomeIdle      Outcome = "idle"
	OutcomeFailed    Outcome = "failed"
	// OutcomeSkipped marks candidates not reached before the pass context
	// was canceled.
	OutcomeSkipped Outcome = "skipped"
)

// Decision is one appended reminder.
type Decision struct {
	CandidateID   string               `json:"candidate_id"`
	CandidateName string               `json:"candidate_name"`
	Event         domain.ReminderEvent `json:"event"`
}

// Report summarizes one EvaluateAll pass.
type Report struct {
	Now       time.Time     `json:"now"`
	Evaluated int           `json:"evaluated"`
	Appended  int           `json:"appended"`
	Throttled int           `json:"throttled"`
	Idle      int           `json:"idle"`
	Failed    int           `json:"failed"`
	Skipped   int           `json:"skipped"`
	Decisions []Decision    `json:"decisions"`
	Took      time.Duration `json:"took"`
}

// Config is the hot-swappable part of the engine.
type Config struct {
	Throttle ThrottlePolicy
	// Concurrency bounds how many candidates are evaluated at once.
	// Values <= 1 evaluate sequentially in store order.
	Concurrency int
}

// Engine evaluates candidates against a Source and appends reminders.
// It is safe for concurrent use; per-candidate work is serialized by the
// Source.
type Engine struct {
	mu  sync.RWMutex
	cfg Config

	src       Source
	log       logx.Logger
	observers []Observer
	now       func() time.Time
}

// Option configures NewEngine.
type Option func(*Engine)

// WithObservers adds observers, called in order after each append.
func WithObservers(obs ...Observer) Option {
	return func(e *Engine) { e.observers = append(e.observers, obs...) }
}

// WithClock replaces time.Now as the engine clock. Nil is ignored.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

func NewEngine(cfg Config, src Source, log logx.Logger, opts ...Option) *Engine {
	if log.IsZero() {
		log = logx.Nop()
	}
	e := &Engine{cfg: cfg, src: src, log: log, now: time.Now}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Apply swaps the engine config; it takes effect on the next EvaluateAll.
func (e *Engine) Apply(cfg Config) {
	e.mu.Lock()
	e.cfg = cfg
	e.mu.Unlock()
}

func (e *Engine) config() Config {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg
}

type result struct {
	outcome  Outcome
	decision Decision
}

// EvaluateAll runs one evaluation pass over every candidate and appends at
// most one reminder per candidate. A zero now means the engine clock.
//
// A failure while evaluating one candidate is logged and counted; it never
// stops the pass. Cancelling ctx does: candidates not yet started are
// skipped, while a reminder already appended is still handed to the
// observers with cancellation detached, so an append is never left
// without its observer calls.
func (e *Engine) EvaluateAll(ctx context.Context, now time.Time) Report {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	if now.IsZero() {
		now = e.now()
	}
	cfg := e.config()
	policy := cfg.Throttle.withDefaults()

	ids := e.src.AllCandidateIDs()
	results := make([]result, len(ids))

	notifyCtx := context.WithoutCancel(ctx)
	eval := func(i int) {
		if ctx.Err() != nil {
			results[i] = result{outcome: OutcomeSkipped}
			return
		}
		res := e.evaluateCandidate(ids[i], now, policy)
		results[i] = res
		if res.outcome == OutcomeAppended {
			e.notify(notifyCtx, res.decision)
		}
	}

	if cfg.Concurrency <= 1 || len(ids) < 2 {
		for i := range ids {
			eval(i)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(cfg.Concurrency)
		for i := range ids {
			g.Go(func() error {
				eval(i)
				return nil
			})
		}
		_ = g.Wait()
	}

	rep := Report{Now: now, Decisions: []Decision{}}
	for _, r := range results {
		if r.outcome == OutcomeSkipped {
			rep.Skipped++
			continue
		}
		rep.Evaluated++
		switch r.outcome {
		case OutcomeAppended:
			rep.Appended++
			rep.Decisions = append(rep.Decisions, r.decision)
		case OutcomeThrottled:
			rep.Throttled++
		case OutcomeIdle:
			rep.Idle++
		default:
			rep.Failed++
		}
	}
	rep.Took = time.Since(start)

	e.log.Info("evaluation finished",
		logx.Time("now", now),
		logx.Int("candidates", rep.Evaluated),
		logx.Int("appended", rep.Appended),
		logx.Int("throttled", rep.Throttled),
		logx.Int("idle", rep.Idle),
		logx.Int("failed", rep.Failed),
		logx.Int("skipped", rep.Skipped),
		logx.Duration("took", rep.Took),
	)
	return rep
}

func (e *Engine) evaluateCandidate(id string, now time.Time, policy ThrottlePolicy) (res result) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("candidate evaluation panicked",
				logx.String("candidate", id), logx.Any("panic", r), logx.Stack(string(debug.Stack())))
			res = result{outcome: OutcomeFailed}
		}
	}()

	err := e.src.WithCandidate(id, func(tx *store.CandidateTx) error {
		c, err := tx.Candidate()
		if err != nil {
			return err
		}
		if !policy.Eligible(c.Reminders, now) {
			res.outcome = OutcomeThrottled
			return nil
		}
		msgs, err := tx.OutstandingMessages()
		if err != nil {
			return err
		}
		invs, err := tx.OutstandingInvitations()
		if err != nil {
			return err
		}
		ev, ok := decide(now, msgs, invs)
		if !ok {
			res.outcome = OutcomeIdle
			return nil
		}
		if _, err := tx.AppendReminder(ev); err != nil {
			return fmt.Errorf("append reminder: %w", err)
		}
		res.outcome = OutcomeAppended
		res.decision = Decision{CandidateID: c.ID, CandidateName: c.Name, Event: ev}
		return nil
	})
	if err != nil {
		e.log.Warn("candidate evaluation failed", logx.String("candidate", id), logx.Err(err))
		return result{outcome: OutcomeFailed}
	}

	if res.outcome == OutcomeAppended {
		e.log.Debug("reminder appended",
			logx.String("candidate", id),
			logx.String("entity_type", string(res.decision.Event.EntityType)),
			logx.String("urgency", string(res.decision.Event.UrgencyStatus)),
			logx.Int("items", len(res.decision.Event.EntityIDs)),
		)
	}
	return res
}

func (e *Engine) notify(ctx context.Context, d Decision) {
	for _, o := range e.observers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					e.log.Error("reminder observer panicked", logx.String("candidate", d.CandidateID), logx.Any("panic", r))
				}
			}()
			o.ReminderAppended(ctx, d)
		}()
	}
}
