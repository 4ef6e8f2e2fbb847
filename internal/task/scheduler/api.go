package scheduler

import (
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	logx "nudger/pkg/logx"
)

var errNoJob = errors.New("scheduler has no job")

// TriggerNow enqueues an immediate tick, outside the configured slots.
func (s *Service) TriggerNow(reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "manual"
	}
	name := "trigger:" + reason
	err := s.enqueue(name, s.now())
	if err == nil {
		s.log.Info("tick triggered", logx.String("reason", reason))
	}
	return err
}

// NextRuns returns the next n firing instants after from, merged across all
// slots, in the scheduler timezone. It works whether or not the scheduler is
// running.
func (s *Service) NextRuns(from time.Time, n int) ([]time.Time, error) {
	s.mu.Lock()
	cfg := s.cfg
	parser := s.parser
	loc := s.loc
	if loc == nil {
		loc = s.loadLocationLocked()
	}
	s.mu.Unlock()
	return NextRuns(parser, cfg, loc, from, n)
}

// NextRuns previews cfg without a Service.
func NextRuns(parser cron.Parser, cfg Config, loc *time.Location, from time.Time, n int) ([]time.Time, error) {
	if n <= 0 {
		return nil, nil
	}
	specs, err := Specs(cfg)
	if err != nil {
		return nil, err
	}
	scheds := make([]cron.Schedule, 0, len(specs))
	for _, spec := range specs {
		sc, err := parser.Parse(spec)
		if err != nil {
			return nil, err
		}
		scheds = append(scheds, sc)
	}

	if loc == nil {
		loc = time.Local
	}
	t := from.In(loc)
	out := make([]time.Time, 0, n)
	for len(out) < n {
		var next time.Time
		for _, sc := range scheds {
			cand := sc.Next(t)
			if cand.IsZero() {
				continue
			}
			if next.IsZero() || cand.Before(next) {
				next = cand
			}
		}
		if next.IsZero() {
			break
		}
		out = append(out, next)
		t = next
	}
	return slices.Clip(out), nil
}

// StandardParser accepts both 5-field and 6-field (with seconds) specs.
func StandardParser() cron.Parser {
	return cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
}
