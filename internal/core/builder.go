package core

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/valter-silva-au/schedy/pkg/models"
)

// Urgency is the priority inferred from urgency markers and the token
// spans of those markers.
type Urgency struct {
	Priority models.Priority
	Spans    [][2]int
}

// Covers reports whether token i is part of an urgency marker.
func (u Urgency) Covers(i int) bool {
	for _, s := range u.Spans {
		if i >= s[0] && i < s[1] {
			return true
		}
	}
	return false
}

// DetectUrgency scans for urgency markers, longest first at each position.
// The first marker in token order sets the priority; without one the
// priority is medium.
func DetectUrgency(a Analysis) Urgency {
	u := Urgency{Priority: models.PriorityMedium}
	if a.lex == nil {
		return u
	}
	first := true
	for i := 0; i < len(a.Tokens); {
		matched := false
		for _, rule := range a.lex.urgency {
			if matchWords(a.Tokens, i, rule.tokens) {
				u.Spans = append(u.Spans, [2]int{i, i + len(rule.tokens)})
				if first {
					u.Priority = rule.priority
					first = false
				}
				i += len(rule.tokens)
				matched = true
				break
			}
		}
		if !matched {
			i++
		}
	}
	return u
}

func matchWords(toks []Token, i int, words []string) bool {
	if i+len(words) > len(toks) {
		return false
	}
	for k, w := range words {
		if toks[i+k].Text != w {
			return false
		}
	}
	return true
}

// Signals bundles the per-utterance outputs of the upstream components.
// Entities is filled last, from the tokens the others leave free.
type Signals struct {
	Analysis Analysis
	Intent   IntentResult
	Temporal *TemporalExpression
	Urgency  Urgency
	Entities Entities
}

// NewSignals runs entity extraction over the other signals.
func NewSignals(a Analysis, intent IntentResult, temporal *TemporalExpression, urgency Urgency) Signals {
	s := Signals{Analysis: a, Intent: intent, Temporal: temporal, Urgency: urgency}
	s.Entities = ExtractEntities(s)
	return s
}

func (s Signals) claimed(i int) bool {
	return s.Intent.Covers(i) || s.Temporal.Covers(i) || s.Urgency.Covers(i)
}

func (s Signals) consumed(i int) bool {
	return s.claimed(i) || s.Entities.coversLocation(i)
}

// Residual returns the tokens left after removing the action cue, the time
// phrase, urgency markers, the place and filler words. It is what the
// reference matcher compares against task names.
func (s Signals) Residual() []Token {
	var out []Token
	for i, t := range s.Analysis.Tokens {
		if s.consumed(i) {
			continue
		}
		if s.Analysis.lex != nil && s.Analysis.lex.fillers.has(t.Text) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Title returns the residual text with fillers trimmed from both edges
// only. Words keep their capitals when written so mid-sentence; the rest
// are lower-cased and the first letter is capitalised. A title that is
// nothing but a person phrase becomes the lexicon's person title.
func (s Signals) Title() string {
	var toks []Token
	for i, t := range s.Analysis.Tokens {
		if !s.consumed(i) {
			toks = append(toks, t)
		}
	}
	isFiller := func(t Token) bool {
		return s.Analysis.lex != nil && s.Analysis.lex.fillers.has(t.Text)
	}
	for len(toks) > 0 && isFiller(toks[0]) {
		toks = toks[1:]
	}
	for len(toks) > 0 && isFiller(toks[len(toks)-1]) {
		toks = toks[:len(toks)-1]
	}
	if len(toks) > 0 && s.onlyPeople(toks) {
		return fmt.Sprintf(s.Analysis.lex.personTitle, strings.Join(s.Entities.People, ", "))
	}
	words := make([]string, len(toks))
	for i, t := range toks {
		words[i] = t.Lower
		if capitalised(t) {
			words[i] = t.Surface
		}
	}
	return capitalize(strings.Join(words, " "))
}

func (s Signals) onlyPeople(toks []Token) bool {
	if s.Analysis.lex == nil || s.Analysis.lex.personTitle == "" {
		return false
	}
	for _, t := range toks {
		if !s.Entities.coversPerson(t.Index) {
			return false
		}
	}
	return true
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// Draft is the builder's output before the policy gate.
type Draft struct {
	Task       *models.Task
	Mutation   *models.Mutation
	Query      *models.Query
	Confidence float64
}

// TaskBuilder assembles a task, mutation or query from the signals.
type TaskBuilder interface {
	Build(s Signals, candidates []models.TaskCandidate) (Draft, error)
}

type taskBuilder struct {
	untitledConfidence float64
	eventDuration      time.Duration
}

// NewTaskBuilder creates a TaskBuilder.
func NewTaskBuilder(cfg models.PipelineConfig) TaskBuilder {
	return &taskBuilder{untitledConfidence: cfg.UntitledConfidence, eventDuration: cfg.EventDuration}
}

// schedule converts the time phrase. An instant without a window of its
// own lasts the configured event duration.
func (b *taskBuilder) schedule(e *TemporalExpression) *models.Schedule {
	sched := e.Schedule()
	if sched != nil && sched.At != nil && sched.Window == nil {
		sched.Duration = b.eventDuration
	}
	return sched
}

var mutationKinds = map[models.Intent]models.MutationKind{
	models.IntentComplete:   models.MutationComplete,
	models.IntentDelete:     models.MutationDelete,
	models.IntentReschedule: models.MutationReschedule,
}

// Build combines the signals. Overall confidence is the minimum of the
// contributing confidences.
func (b *taskBuilder) Build(s Signals, candidates []models.TaskCandidate) (Draft, error) {
	conf := s.Intent.Confidence
	if s.Temporal.Anchored() {
		conf = math.Min(conf, s.Temporal.Confidence)
	}

	switch s.Intent.Intent {
	case models.IntentCreate:
		title := s.Title()
		if title == "" {
			title = s.Analysis.lex.DefaultTitle()
			conf = math.Min(conf, b.untitledConfidence)
		}
		conf = round4(conf)
		return Draft{
			Task: &models.Task{
				Title:           title,
				Schedule:        b.schedule(s.Temporal),
				People:          slices.Clone(s.Entities.People),
				Location:        s.Entities.Location,
				Priority:        s.Urgency.Priority,
				Status:          models.StatusPending,
				SourceUtterance: s.Analysis.Source,
				Confidence:      conf,
			},
			Confidence: conf,
		}, nil

	case models.IntentQuery:
		q := &models.Query{Subject: strings.ToLower(s.Title()), Matches: candidates}
		if sched := s.Temporal.Schedule(); sched != nil {
			q.Window, q.Recurrence = sched.Window, sched.Recurrence
			if q.Window == nil && sched.At != nil {
				q.Window = &models.TimeWindow{Start: *sched.At, End: *sched.At}
			}
		}
		return Draft{Query: q, Confidence: round4(conf)}, nil

	case models.IntentComplete, models.IntentDelete, models.IntentReschedule:
		m := &models.Mutation{
			Kind:            mutationKinds[s.Intent.Intent],
			SourceUtterance: s.Analysis.Source,
		}
		if s.Intent.Intent == models.IntentReschedule {
			if !s.Temporal.Anchored() {
				return Draft{Mutation: m}, fmt.Errorf("building reschedule: %w", ErrNoTemporalAnchor)
			}
			m.NewSchedule = b.schedule(s.Temporal)
		} else {
			// Only a reschedule takes its confidence from the time phrase.
			conf = s.Intent.Confidence
		}
		if len(candidates) == 0 {
			return Draft{Mutation: m}, fmt.Errorf("building %s: %w", m.Kind, ErrNoCandidate)
		}
		top := candidates[0]
		m.TargetID, m.TargetTitle = top.TaskID, top.Title
		conf = round4(math.Min(conf, top.Score))
		m.Confidence = conf
		return Draft{Mutation: m, Confidence: conf}, nil

	default:
		return Draft{}, ErrUnknownIntent
	}
}
