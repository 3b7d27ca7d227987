package core

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/valter-silva-au/schedy/pkg/models"
)

// NextOccurrence returns the first time the rule fires strictly after
// after, in after's location.
func NextOccurrence(r models.Recurrence, after time.Time) (time.Time, error) {
	sched, err := cron.ParseStandard(r.CronSpec())
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing recurrence %s: %w", r, err)
	}
	next := sched.Next(after)
	if next.IsZero() {
		return time.Time{}, fmt.Errorf("recurrence %s never fires", r)
	}
	return next, nil
}

// NextDue returns when a schedule is next due at or after ref. One-shot
// schedules return their instant; ok is false for an empty schedule.
func NextDue(s *models.Schedule, ref time.Time) (time.Time, bool, error) {
	switch {
	case s == nil:
		return time.Time{}, false, nil
	case s.Recurrence != nil:
		next, err := NextOccurrence(*s.Recurrence, ref.Add(-time.Second))
		if err != nil {
			return time.Time{}, false, err
		}
		return next, true, nil
	case s.At != nil:
		return *s.At, true, nil
	default:
		return time.Time{}, false, nil
	}
}
