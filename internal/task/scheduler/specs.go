package scheduler

import (
	"fmt"
	"slices"
	"strings"
)

// Specs turns cfg into cron specs, one per distinct slot, with all day
// tokens joined into a single day-of-week field. Overlapping day tokens
// ("1-5" and "3") therefore fire once per instant.
//
// Slots with seconds use the 6-field form.
func Specs(cfg Config) ([]string, error) {
	cfg = cfg.withDefaults()

	days := make([]string, 0, len(cfg.Days))
	for _, d := range cfg.Days {
		d = strings.TrimSpace(d)
		if d == "" {
			return nil, fmt.Errorf("empty day token")
		}
		if !slices.Contains(days, d) {
			days = append(days, d)
		}
	}
	dow := strings.Join(days, ",")

	slots := slices.Clone(cfg.Times)
	slices.SortFunc(slots, func(a, b Slot) int {
		return (a.Hour*3600 + a.Minute*60 + a.Second) - (b.Hour*3600 + b.Minute*60 + b.Second)
	})
	slots = slices.Compact(slots)

	out := make([]string, 0, len(slots))
	for _, s := range slots {
		if s.Hour < 0 || s.Hour > 23 || s.Minute < 0 || s.Minute > 59 || s.Second < 0 || s.Second > 59 {
			return nil, fmt.Errorf("invalid slot %02d:%02d:%02d", s.Hour, s.Minute, s.Second)
		}
		if s.Second != 0 {
			out = append(out, fmt.Sprintf("%d %d %d * * %s", s.Second, s.Minute, s.Hour, dow))
			continue
		}
		out = append(out, fmt.Sprintf("%d %d * * %s", s.Minute, s.Hour, dow))
	}
	return out, nil
}
