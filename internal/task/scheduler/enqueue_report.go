package scheduler

import (
	"time"

	"golang.org/x/time/rate"

	logx "nudger/pkg/logx"
)

// One warning per schedule per window; queue-full bursts would otherwise
// repeat the same line on every firing.
const enqueueWarnEvery = 5 * time.Second

func (s *Service) reportEnqueueError(name string, err error) {
	if err == nil {
		return
	}
	s.enqMu.Lock()
	lim := s.enqLimiters[name]
	if lim == nil {
		lim = rate.NewLimiter(rate.Every(enqueueWarnEvery), 1)
		s.enqLimiters[name] = lim
	}
	s.enqMu.Unlock()

	if lim.Allow() {
		s.log.Warn("schedule failed to enqueue tick", logx.String("schedule", name), logx.Err(err))
	}
}
