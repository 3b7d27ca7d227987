package core

import (
	"math"
	"regexp"
	"slices"
	"sort"
	"strconv"
	"time"

	"github.com/valter-silva-au/schedy/pkg/models"
)

// TemporalKind classifies a resolved temporal expression.
type TemporalKind string

const (
	TemporalInstant    TemporalKind = "instant"
	TemporalRange      TemporalKind = "range"
	TemporalRecurrence TemporalKind = "recurrence"
	// TemporalNone marks a recognised but unanchored phrase such as
	// "someday". It consumes its tokens but carries no time.
	TemporalNone TemporalKind = "none"
)

// TemporalExpression is a resolved time phrase covering tokens
// [Start, End) of the analysis.
type TemporalExpression struct {
	Start      int
	End        int
	Kind       TemporalKind
	At         time.Time
	Window     *models.TimeWindow
	Recurrence *models.Recurrence
	Confidence float64
}

// Anchored reports whether the expression resolves to an actual time.
func (e *TemporalExpression) Anchored() bool {
	return e != nil && e.Kind != TemporalNone
}

// Covers reports whether token index i lies inside the expression's span.
func (e *TemporalExpression) Covers(i int) bool {
	return e != nil && i >= e.Start && i < e.End
}

// Schedule converts the expression into a task schedule. Unanchored
// expressions yield nil.
func (e *TemporalExpression) Schedule() *models.Schedule {
	if !e.Anchored() {
		return nil
	}
	if e.Kind == TemporalRecurrence {
		r := *e.Recurrence
		r.Weekdays = append([]time.Weekday(nil), e.Recurrence.Weekdays...)
		return &models.Schedule{Recurrence: &r}
	}
	at := e.At
	s := &models.Schedule{At: &at}
	if e.Window != nil {
		w := *e.Window
		s.Window = &w
	}
	return s
}

func (e *TemporalExpression) width() time.Duration {
	switch {
	case e.Kind == TemporalNone:
		return time.Duration(math.MaxInt64)
	case e.Window != nil:
		return e.Window.Duration()
	case e.Kind == TemporalRecurrence && e.Recurrence.AllDay:
		return 24 * time.Hour
	default:
		return 0
	}
}

// TemporalResolver finds and resolves the time phrase of an utterance.
type TemporalResolver interface {
	Resolve(a Analysis, ref time.Time) *TemporalExpression
}

type grammarResolver struct {
	rollPastTimes bool
}

// NewTemporalResolver creates a TemporalResolver. With rollPastTimes set, a
// time of day that has already passed on the reference day, and was given
// without an explicit date, moves to the following day.
func NewTemporalResolver(rollPastTimes bool) TemporalResolver {
	return &grammarResolver{rollPastTimes: rollPastTimes}
}

// Resolve scans all temporal patterns, composes adjacent ones, selects
// disjoint spans longest first and returns the first selected span in
// token order. It returns nil when the utterance has no time phrase.
func (r *grammarResolver) Resolve(a Analysis, ref time.Time) *TemporalExpression {
	if a.lex == nil || len(a.Tokens) == 0 {
		return nil
	}
	s := &scanner{lex: a.lex, toks: a.Tokens, ref: ref, roll: r.rollPastTimes}

	var exprs []*TemporalExpression
	for _, c := range s.candidates() {
		if e, ok := s.resolve(c); ok {
			exprs = append(exprs, e)
		}
	}
	return selectSpan(exprs)
}

// selectSpan keeps disjoint spans, taking longer spans first, then the
// narrower resolved range, then the earlier start. It returns the kept
// span that comes first in token order.
func selectSpan(exprs []*TemporalExpression) *TemporalExpression {
	if len(exprs) == 0 {
		return nil
	}
	sorted := slices.Clone(exprs)
	sort.SliceStable(sorted, func(i, j int) bool {
		li, lj := sorted[i].End-sorted[i].Start, sorted[j].End-sorted[j].Start
		if li != lj {
			return li > lj
		}
		if wi, wj := sorted[i].width(), sorted[j].width(); wi != wj {
			return wi < wj
		}
		return sorted[i].Start < sorted[j].Start
	})

	taken := make(map[int]bool)
	var first *TemporalExpression
	for _, e := range sorted {
		free := true
		for k := e.Start; k < e.End; k++ {
			if taken[k] {
				free = false
				break
			}
		}
		if !free {
			continue
		}
		for k := e.Start; k < e.End; k++ {
			taken[k] = true
		}
		if first == nil || e.Start < first.Start {
			first = e
		}
	}
	return first
}

var (
	clockToken = regexp.MustCompile(`^(\d{1,2})[:.](\d{2})$`)
	ampmToken  = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?([a-z]{2})$`)
	rangeToken = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?-(\d{1,2})(?::(\d{2}))?$`)
	dayToken   = regexp.MustCompile(`^(\d{1,2})(?:st|nd|rd|th)?$`)
)

type recPart struct {
	freq     models.Frequency
	weekdays []time.Weekday
}

// tparts is the partial meaning of a temporal span before resolution.
type tparts struct {
	date       *time.Time
	hasClock   bool
	clock      int
	clockConf  float64
	window     *clockRange
	windowConf float64
	isRange    bool
	offset     time.Duration
	hasOffset  bool
	rec        *recPart
	vague      bool
	// needsAnchor marks a part of day that only counts after a date,
	// as in "tomorrow morning".
	needsAnchor bool
}

type span struct {
	start, end int
	p          tparts
}

// maxParts bounds how many adjacent atoms may compose into one span.
const maxParts = 4

type scanner struct {
	lex  *Lexicon
	toks []Token
	ref  time.Time
	roll bool
}

func (s *scanner) text(k int) string {
	if k < 0 || k >= len(s.toks) {
		return ""
	}
	return s.toks[k].Text
}

func (s *scanner) refDay() time.Time {
	return time.Date(s.ref.Year(), s.ref.Month(), s.ref.Day(), 0, 0, 0, 0, s.ref.Location())
}

type pattern func(s *scanner, j int, prefixed bool) (int, tparts, bool)

var temporalPatterns = []pattern{
	(*scanner).matchRange,
	(*scanner).matchClock,
	(*scanner).matchPartOfDay,
	(*scanner).matchRelativeDay,
	(*scanner).matchWeekday,
	(*scanner).matchDate,
	(*scanner).matchOffset,
	(*scanner).matchRecurrence,
	(*scanner).matchVague,
}

// atoms returns every single-pattern match. Up to two leading prepositions
// ("в", "at the") are absorbed into the span.
func (s *scanner) atoms() []span {
	var out []span
	for i := range s.toks {
		j := i
		for j < len(s.toks) && j-i < 2 && s.lex.prepositions.has(s.toks[j].Text) {
			j++
		}
		for _, match := range temporalPatterns {
			if end, p, ok := match(s, i, false); ok {
				out = append(out, span{start: i, end: end, p: p})
			}
			if j > i {
				if end, p, ok := match(s, j, true); ok {
					out = append(out, span{start: i, end: end, p: p})
				}
			}
		}
	}
	return out
}

// candidates returns the atoms plus every chain of adjacent atoms that
// compose into one meaning, e.g. "завтра" + "в 7 утра".
func (s *scanner) candidates() []span {
	atoms := s.atoms()
	byStart := make(map[int][]span)
	for _, a := range atoms {
		byStart[a.start] = append(byStart[a.start], a)
	}

	var out []span
	var extend func(cur span, depth int)
	extend = func(cur span, depth int) {
		if !cur.p.needsAnchor {
			out = append(out, cur)
		}
		if depth == maxParts {
			return
		}
		for _, next := range byStart[cur.end] {
			if m, ok := s.merge(cur.p, next.p); ok {
				extend(span{start: cur.start, end: next.end, p: m}, depth+1)
			}
		}
	}
	for _, a := range atoms {
		extend(a, 1)
	}
	return out
}

// merge composes two adjacent partial meanings. A clock time may narrow a
// part of day; any other overlap in meaning is rejected.
func (s *scanner) merge(a, b tparts) (tparts, bool) {
	if a.vague || b.vague || a.hasOffset || b.hasOffset || a.needsAnchor {
		return tparts{}, false
	}
	if b.needsAnchor && a.date == nil {
		return tparts{}, false
	}
	if (a.date != nil || a.rec != nil) && (b.date != nil || b.rec != nil) {
		return tparts{}, false
	}
	m := a
	if b.date != nil {
		m.date = b.date
	}
	if b.rec != nil {
		m.rec = b.rec
	}

	aTime := a.hasClock || a.window != nil
	bTime := b.hasClock || b.window != nil
	switch {
	case aTime && bTime:
		clockP, winP := a, b
		if b.hasClock {
			clockP, winP = b, a
		}
		if !clockP.hasClock || winP.hasClock || winP.window == nil || winP.isRange {
			return tparts{}, false
		}
		m.hasClock = true
		m.clock = narrowClock(clockP.clock, *winP.window)
		m.clockConf = s.lex.confidence.Explicit
		m.window, m.windowConf, m.isRange = nil, 0, false
	case bTime:
		m.hasClock, m.clock, m.clockConf = b.hasClock, b.clock, b.clockConf
		m.window, m.windowConf, m.isRange = b.window, b.windowConf, b.isRange
	}
	return m, true
}

// narrowClock moves a 12-hour clock reading into the part of day it was
// said with, so "вечером в 7" means 19:00.
func narrowClock(clock int, w clockRange) int {
	if !w.contains(clock) && clock < 12*60 && w.contains(clock+12*60) {
		return clock + 12*60
	}
	return clock
}

func (r clockRange) contains(m int) bool {
	if r.end <= r.start {
		return m >= r.start || m < r.end
	}
	return m >= r.start && m < r.end
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// number parses a digit string or a number word.
func (s *scanner) number(k int) (int, bool) {
	w := s.text(k)
	if n, err := strconv.Atoi(w); err == nil {
		return n, true
	}
	n, ok := s.lex.numbers[w]
	return n, ok
}

type timeKind int

const (
	timeBare timeKind = iota
	timeHourWord
	timeExplicit
)

type parsedTime struct {
	minutes  int
	end      int
	kind     timeKind
	meridiem string
}

// parseTime reads one time of day starting at token j: "7:30", "7pm",
// "7 утра", "7 часов 30 минут вечера" or a bare "7".
func (s *scanner) parseTime(j int) (parsedTime, bool) {
	w := s.text(j)
	if w == "" {
		return parsedTime{}, false
	}
	var h, m int
	pt := parsedTime{end: j + 1}

	switch {
	case clockToken.MatchString(w):
		g := clockToken.FindStringSubmatch(w)
		h, _ = strconv.Atoi(g[1])
		m, _ = strconv.Atoi(g[2])
		pt.kind = timeExplicit
	case ampmToken.MatchString(w):
		g := ampmToken.FindStringSubmatch(w)
		mer, ok := s.lex.meridiem[g[3]]
		if !ok {
			return parsedTime{}, false
		}
		h, _ = strconv.Atoi(g[1])
		if g[2] != "" {
			m, _ = strconv.Atoi(g[2])
		}
		pt.kind = timeExplicit
		pt.meridiem = mer
	default:
		n, ok := s.number(j)
		if !ok {
			return parsedTime{}, false
		}
		h = n
		if s.lex.hourWords.has(s.text(pt.end)) {
			pt.end++
			pt.kind = timeHourWord
			if mm, ok := s.number(pt.end); ok && s.lex.minuteWords.has(s.text(pt.end+1)) {
				m = mm
				pt.end += 2
			}
		}
	}

	if pt.meridiem == "" {
		if mer, ok := s.lex.meridiem[s.text(pt.end)]; ok {
			pt.meridiem = mer
			pt.end++
			pt.kind = timeExplicit
		}
	}
	if pt.meridiem != "" {
		var ok bool
		if h, ok = applyMeridiem(h, pt.meridiem); !ok {
			return parsedTime{}, false
		}
	}
	if h < 0 || h > 24 || m < 0 || m > 59 || (h == 24 && m != 0) {
		return parsedTime{}, false
	}
	pt.minutes = (h%24)*60 + m
	return pt, true
}

// applyMeridiem converts a 12-hour reading: "12 утра" is midnight, "3 дня"
// is 15:00, "10 ночи" is 22:00 and "2 ночи" stays 02:00.
func applyMeridiem(h int, kind string) (int, bool) {
	if h < 0 || h > 12 {
		return h, false
	}
	switch kind {
	case "am":
		if h == 12 {
			return 0, true
		}
	case "pm":
		if h < 12 {
			return h + 12, true
		}
	case "night":
		if h == 12 {
			return 0, true
		}
		if h >= 6 {
			return h + 12, true
		}
	}
	return h, true
}

func (s *scanner) timeConfidence(k timeKind) float64 {
	if k == timeExplicit {
		return s.lex.confidence.Explicit
	}
	return s.lex.confidence.BareHour
}

func (s *scanner) matchClock(j int, prefixed bool) (int, tparts, bool) {
	if m, ok := s.lex.fixedTimes[s.text(j)]; ok {
		return j + 1, tparts{hasClock: true, clock: m, clockConf: s.lex.confidence.Explicit}, true
	}
	pt, ok := s.parseTime(j)
	if !ok || (pt.kind == timeBare && (!prefixed || s.countsThing(pt.end))) {
		return 0, tparts{}, false
	}
	return pt.end, tparts{hasClock: true, clock: pt.minutes, clockConf: s.timeConfidence(pt.kind)}, true
}

// countsThing reports whether token k is a noun outside the temporal
// vocabulary, as in "в 2 магазинах", where the number is a count and not
// an hour.
func (s *scanner) countsThing(k int) bool {
	if k >= len(s.toks) {
		return false
	}
	t := s.toks[k]
	return t.POS == "NOUN" && !t.Temporal
}

// matchRange reads "с 10 до 12", "from 9am to 11am" or "10-12 утра".
func (s *scanner) matchRange(j int, prefixed bool) (int, tparts, bool) {
	var start, end parsedTime
	w := s.text(j)

	switch {
	case s.lex.rangeFrom.has(w):
		var ok bool
		if start, ok = s.parseTime(j + 1); !ok {
			return 0, tparts{}, false
		}
		if !s.lex.rangeTo.has(s.text(start.end)) {
			return 0, tparts{}, false
		}
		if end, ok = s.parseTime(start.end + 1); !ok {
			return 0, tparts{}, false
		}
		if start.meridiem == "" && end.meridiem != "" {
			if h, ok := applyMeridiem(start.minutes/60, end.meridiem); ok {
				start.minutes = h*60 + start.minutes%60
				start.kind = timeExplicit
			}
		}
	case rangeToken.MatchString(w):
		g := rangeToken.FindStringSubmatch(w)
		sh, sm := atoi(g[1]), atoi(g[2])
		eh, em := atoi(g[3]), atoi(g[4])
		kind, last := timeBare, j+1
		if mer, ok := s.lex.meridiem[s.text(j+1)]; ok {
			var ok1, ok2 bool
			sh, ok1 = applyMeridiem(sh, mer)
			eh, ok2 = applyMeridiem(eh, mer)
			if !ok1 || !ok2 {
				return 0, tparts{}, false
			}
			kind, last = timeExplicit, j+2
		} else if !prefixed {
			return 0, tparts{}, false
		}
		if sh > 23 || eh > 23 || sm > 59 || em > 59 {
			return 0, tparts{}, false
		}
		start = parsedTime{minutes: sh*60 + sm, kind: kind}
		end = parsedTime{minutes: eh*60 + em, kind: kind, end: last}
	default:
		return 0, tparts{}, false
	}

	if start.minutes == end.minutes {
		return 0, tparts{}, false
	}
	conf := math.Min(s.timeConfidence(start.kind), s.timeConfidence(end.kind))
	return end.end, tparts{
		window:     &clockRange{start: start.minutes, end: end.minutes % (24 * 60)},
		windowConf: conf,
		isRange:    true,
	}, true
}

func (s *scanner) matchPartOfDay(j int, prefixed bool) (int, tparts, bool) {
	w := s.text(j)
	r, ok := s.lex.partsOfDay[w]
	if !ok {
		return 0, tparts{}, false
	}
	return j + 1, tparts{
		window:      &r,
		windowConf:  s.lex.confidence.PartOfDay,
		needsAnchor: !prefixed && !s.lex.standalonePOD.has(w),
	}, true
}

func (s *scanner) matchRelativeDay(j int, _ bool) (int, tparts, bool) {
	n, ok := s.lex.relativeDays[s.text(j)]
	if !ok {
		return 0, tparts{}, false
	}
	d := s.refDay().AddDate(0, 0, n)
	return j + 1, tparts{date: &d}, true
}

// matchWeekday resolves a weekday name to its next occurrence strictly
// after the reference day.
func (s *scanner) matchWeekday(j int, _ bool) (int, tparts, bool) {
	wd, ok := s.lex.weekdays[s.text(j)]
	if !ok {
		return 0, tparts{}, false
	}
	diff := (int(wd) - int(s.ref.Weekday()) + 7) % 7
	if diff == 0 {
		diff = 7
	}
	d := s.refDay().AddDate(0, 0, diff)
	return j + 1, tparts{date: &d}, true
}

func (s *scanner) dayOfMonth(k int) (int, bool) {
	g := dayToken.FindStringSubmatch(s.text(k))
	if g == nil {
		return 0, false
	}
	d, _ := strconv.Atoi(g[1])
	return d, d >= 1 && d <= 31
}

// matchDate reads "12 июня" or "june 12". A date already passed this year
// refers to next year.
func (s *scanner) matchDate(j int, _ bool) (int, tparts, bool) {
	var day int
	var month time.Month
	if d, ok := s.dayOfMonth(j); ok {
		m, ok := s.lex.months[s.text(j+1)]
		if !ok {
			return 0, tparts{}, false
		}
		day, month = d, m
	} else if m, ok := s.lex.months[s.text(j)]; ok {
		d, ok := s.dayOfMonth(j + 1)
		if !ok {
			return 0, tparts{}, false
		}
		day, month = d, m
	} else {
		return 0, tparts{}, false
	}

	year := s.ref.Year()
	date, ok := calendarDate(year, month, day, s.ref.Location())
	if ok && date.Before(s.refDay()) {
		date, ok = calendarDate(year+1, month, day, s.ref.Location())
	}
	if !ok {
		return 0, tparts{}, false
	}
	return j + 2, tparts{date: &date}, true
}

func calendarDate(year int, month time.Month, day int, loc *time.Location) (time.Time, bool) {
	d := time.Date(year, month, day, 0, 0, 0, 0, loc)
	return d, d.Day() == day && d.Month() == month
}

// matchOffset reads "через 2 часа", "через полчаса" or "in an hour".
func (s *scanner) matchOffset(j int, _ bool) (int, tparts, bool) {
	if !s.lex.offsetMarkers.has(s.text(j)) {
		return 0, tparts{}, false
	}
	k, count := j+1, 1
	if n, ok := s.number(k); ok {
		count = n
		k++
	} else if s.lex.unitArticles.has(s.text(k)) {
		k++
	}
	unit, ok := s.lex.units[s.text(k)]
	if !ok || count <= 0 {
		return 0, tparts{}, false
	}
	return k + 1, tparts{offset: time.Duration(count*unit) * time.Minute, hasOffset: true}, true
}

// matchRecurrence reads "каждый день", "каждое утро", "каждую пятницу",
// "ежедневно", "по будням" and their English counterparts.
func (s *scanner) matchRecurrence(j int, _ bool) (int, tparts, bool) {
	w, next := s.text(j), s.text(j+1)
	if f, ok := s.lex.frequencies[w]; ok {
		return j + 1, tparts{rec: &recPart{freq: f}}, true
	}
	if s.lex.every.has(w) {
		if f, ok := s.lex.everyUnits[next]; ok {
			return j + 2, tparts{rec: &recPart{freq: f}}, true
		}
		if wd, ok := s.lex.weekdays[next]; ok {
			return j + 2, tparts{rec: &recPart{freq: models.FrequencyWeekly, weekdays: []time.Weekday{wd}}}, true
		}
		if r, ok := s.lex.partsOfDay[next]; ok {
			return j + 2, tparts{
				rec:        &recPart{freq: models.FrequencyDaily},
				window:     &r,
				windowConf: s.lex.confidence.PartOfDay,
			}, true
		}
	}
	if s.lex.every.has(w) || s.lex.daySetMarkers.has(w) {
		if days, ok := s.lex.daySets[next]; ok {
			return j + 2, tparts{rec: &recPart{
				freq:     models.FrequencyWeekly,
				weekdays: append([]time.Weekday(nil), days...),
			}}, true
		}
	}
	return 0, tparts{}, false
}

func (s *scanner) matchVague(j int, _ bool) (int, tparts, bool) {
	if !s.lex.vague.has(s.text(j)) {
		return 0, tparts{}, false
	}
	return j + 1, tparts{vague: true}, true
}

func (s *scanner) at(day time.Time, minutes int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), minutes/60, minutes%60, 0, 0, s.ref.Location())
}

// resolve turns a span's partial meaning into a concrete expression.
func (s *scanner) resolve(c span) (*TemporalExpression, bool) {
	p := c.p
	e := &TemporalExpression{Start: c.start, End: c.end}
	explicit := s.lex.confidence.Explicit

	switch {
	case p.vague:
		e.Kind = TemporalNone
		return e, true

	case p.rec != nil:
		r := &models.Recurrence{Frequency: p.rec.freq, Weekdays: p.rec.weekdays}
		switch r.Frequency {
		case models.FrequencyWeekly:
			if len(r.Weekdays) == 0 {
				r.Weekdays = []time.Weekday{s.ref.Weekday()}
			}
		case models.FrequencyMonthly:
			r.DayOfMonth = s.ref.Day()
		case models.FrequencyYearly:
			r.Month, r.DayOfMonth = s.ref.Month(), s.ref.Day()
		}
		e.Confidence = explicit
		switch {
		case p.hasClock:
			r.Hour, r.Minute = p.clock/60, p.clock%60
			e.Confidence = math.Min(explicit, p.clockConf)
		case p.window != nil:
			mid := p.window.midpoint()
			r.Hour, r.Minute = mid/60, mid%60
			e.Confidence = math.Min(explicit, p.windowConf)
		default:
			r.AllDay = true
		}
		e.Kind = TemporalRecurrence
		e.Recurrence = r
		return e, true

	case p.hasOffset:
		e.Kind = TemporalInstant
		e.At = s.ref.Add(p.offset)
		e.Confidence = explicit
		return e, true
	}

	day := s.refDay()
	if p.date != nil {
		day = *p.date
	}
	rollable := p.date == nil && s.roll

	switch {
	case p.hasClock:
		e.Kind = TemporalInstant
		e.At = s.at(day, p.clock)
		if rollable && e.At.Before(s.ref) {
			e.At = s.at(day.AddDate(0, 0, 1), p.clock)
		}
		e.Confidence = math.Min(explicit, p.clockConf)

	case p.window != nil:
		start := s.at(day, p.window.start)
		end := s.at(day, p.window.end)
		if !end.After(start) {
			end = s.at(day.AddDate(0, 0, 1), p.window.end)
		}
		at := start
		if !p.isRange {
			at = start.Add(end.Sub(start) / 2)
		}
		if rollable && at.Before(s.ref) {
			start, end, at = start.AddDate(0, 0, 1), end.AddDate(0, 0, 1), at.AddDate(0, 0, 1)
		}
		e.Kind = TemporalRange
		e.At = at
		e.Window = &models.TimeWindow{Start: start, End: end}
		e.Confidence = math.Min(explicit, p.windowConf)

	case p.date != nil:
		e.Kind = TemporalRange
		e.At = day
		e.Window = &models.TimeWindow{Start: day, End: day.AddDate(0, 0, 1)}
		e.Confidence = explicit

	default:
		return nil, false
	}
	return e, true
}

func (r clockRange) midpoint() int {
	end := r.end
	if end <= r.start {
		end += 24 * 60
	}
	return ((r.start + end) / 2) % (24 * 60)
}
