package scheduler

import "time"

func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	cfg := s.cfg
	defs := append([]scheduleDef(nil), s.defs...)
	c := s.c
	loc := s.loc
	eng := s.engine
	s.mu.Unlock()

	if loc == nil {
		loc = time.Local
	}
	snap := Snapshot{
		Enabled:   cfg.Enabled,
		Running:   c != nil,
		Timezone:  loc.String(),
		Schedules: make([]ScheduleInfo, 0, len(defs)),
	}
	for _, d := range defs {
		it := ScheduleInfo{Name: d.name, Spec: d.spec}
		if c != nil && d.entryID != 0 {
			e := c.Entry(d.entryID)
			it.Next = e.Next
			it.Prev = e.Prev
		}
		snap.Schedules = append(snap.Schedules, it)
	}
	if eng != nil {
		snap.Engine = eng.Snapshot()
		snap.History = snap.Engine.History
	}
	return snap
}
