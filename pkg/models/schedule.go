package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Frequency is the repeat unit of a recurrence rule.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
)

// TimeWindow is a closed-open instant range [Start, End).
type TimeWindow struct {
	Start time.Time `yaml:"start" json:"start"`
	End   time.Time `yaml:"end" json:"end"`
}

// Duration returns the width of the window.
func (w TimeWindow) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// Recurrence is a repeating schedule. Weekdays, DayOfMonth and Month narrow
// the frequency; Hour and Minute give the time of day unless AllDay is set.
type Recurrence struct {
	Frequency  Frequency      `yaml:"frequency" json:"frequency"`
	Weekdays   []time.Weekday `yaml:"weekdays,omitempty" json:"weekdays,omitempty"`
	DayOfMonth int            `yaml:"day_of_month,omitempty" json:"day_of_month,omitempty"`
	Month      time.Month     `yaml:"month,omitempty" json:"month,omitempty"`
	Hour       int            `yaml:"hour" json:"hour"`
	Minute     int            `yaml:"minute" json:"minute"`
	AllDay     bool           `yaml:"all_day,omitempty" json:"all_day,omitempty"`
}

// CronSpec renders the rule as a standard five-field cron expression.
func (r Recurrence) CronSpec() string {
	minute, hour := strconv.Itoa(r.Minute), strconv.Itoa(r.Hour)
	if r.AllDay {
		minute, hour = "0", "0"
	}
	dom, month, dow := "*", "*", "*"
	switch r.Frequency {
	case FrequencyWeekly:
		if len(r.Weekdays) > 0 {
			days := make([]string, len(r.Weekdays))
			for i, d := range r.Weekdays {
				days[i] = strconv.Itoa(int(d))
			}
			dow = strings.Join(days, ",")
		}
	case FrequencyMonthly:
		if r.DayOfMonth > 0 {
			dom = strconv.Itoa(r.DayOfMonth)
		}
	case FrequencyYearly:
		if r.DayOfMonth > 0 {
			dom = strconv.Itoa(r.DayOfMonth)
		}
		if r.Month > 0 {
			month = strconv.Itoa(int(r.Month))
		}
	}
	return fmt.Sprintf("%s %s %s %s %s", minute, hour, dom, month, dow)
}

var rruleDays = [...]string{"SU", "MO", "TU", "WE", "TH", "FR", "SA"}

// String renders the rule in RRULE notation, e.g.
// FREQ=WEEKLY;BYDAY=MO,WE;BYHOUR=7;BYMINUTE=0.
func (r Recurrence) String() string {
	parts := []string{"FREQ=" + strings.ToUpper(string(r.Frequency))}
	if len(r.Weekdays) > 0 {
		days := make([]string, len(r.Weekdays))
		for i, d := range r.Weekdays {
			days[i] = rruleDays[d]
		}
		parts = append(parts, "BYDAY="+strings.Join(days, ","))
	}
	if r.Month > 0 {
		parts = append(parts, "BYMONTH="+strconv.Itoa(int(r.Month)))
	}
	if r.DayOfMonth > 0 {
		parts = append(parts, "BYMONTHDAY="+strconv.Itoa(r.DayOfMonth))
	}
	if !r.AllDay {
		parts = append(parts, "BYHOUR="+strconv.Itoa(r.Hour), "BYMINUTE="+strconv.Itoa(r.Minute))
	}
	return strings.Join(parts, ";")
}

// Schedule is either a one-shot instant (with an optional window) or a
// recurrence rule. The two forms are never mixed. Duration is the assumed
// length of an instant that was given without a window.
type Schedule struct {
	At         *time.Time    `yaml:"at,omitempty" json:"at,omitempty"`
	Window     *TimeWindow   `yaml:"window,omitempty" json:"window,omitempty"`
	Duration   time.Duration `yaml:"duration,omitempty" json:"duration,omitempty"`
	Recurrence *Recurrence   `yaml:"recurrence,omitempty" json:"recurrence,omitempty"`
}

// End returns when a one-shot schedule is over: the window end, or At plus
// Duration. It reports false for recurrences and for instants without a
// duration.
func (s *Schedule) End() (time.Time, bool) {
	switch {
	case s == nil || s.Recurrence != nil:
		return time.Time{}, false
	case s.Window != nil:
		return s.Window.End, true
	case s.At != nil && s.Duration > 0:
		return s.At.Add(s.Duration), true
	default:
		return time.Time{}, false
	}
}

// IsRecurring reports whether the schedule repeats.
func (s *Schedule) IsRecurring() bool {
	return s != nil && s.Recurrence != nil
}

// String returns a short human-readable rendering of the schedule.
func (s *Schedule) String() string {
	switch {
	case s == nil:
		return "-"
	case s.Recurrence != nil:
		return s.Recurrence.String()
	case s.Window != nil && s.At != nil && !s.At.Equal(s.Window.Start):
		return fmt.Sprintf("%s (%s–%s)", s.At.Format("2006-01-02 15:04"),
			s.Window.Start.Format("15:04"), s.Window.End.Format("15:04"))
	case s.Window != nil:
		return fmt.Sprintf("%s – %s", s.Window.Start.Format("2006-01-02 15:04"),
			s.Window.End.Format("2006-01-02 15:04"))
	case s.At != nil:
		return s.At.Format("2006-01-02 15:04")
	default:
		return "-"
	}
}
