package mcp

import (
	"time"

	"github.com/valter-silva-au/schedy/internal/observability"
	"github.com/valter-silva-au/schedy/pkg/models"
)

// Tool outputs carry instants as RFC 3339 strings and schedules as both a
// human rendering and an RRULE so that clients need no knowledge of the
// Go types.

type scheduleOutput struct {
	Text        string `json:"text"`
	At          string `json:"at,omitempty"`
	WindowStart string `json:"window_start,omitempty"`
	WindowEnd   string `json:"window_end,omitempty"`
	End         string `json:"end,omitempty"`
	RRule       string `json:"rrule,omitempty"`
}

type historyOutput struct {
	Kind            string `json:"kind"`
	SourceUtterance string `json:"source_utterance"`
	At              string `json:"at"`
}

type taskOutput struct {
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	People          []string        `json:"people,omitempty"`
	Location        string          `json:"location,omitempty"`
	Priority        string          `json:"priority"`
	Status          string          `json:"status"`
	Schedule        *scheduleOutput `json:"schedule,omitempty"`
	SourceUtterance string          `json:"source_utterance"`
	Confidence      float64         `json:"confidence"`
	Aliases         []string        `json:"aliases,omitempty"`
	History         []historyOutput `json:"history,omitempty"`
	Created         string          `json:"created,omitempty"`
	Updated         string          `json:"updated,omitempty"`
}

type mutationOutput struct {
	Kind        string          `json:"kind"`
	TargetID    string          `json:"target_id"`
	TargetTitle string          `json:"target_title,omitempty"`
	NewSchedule *scheduleOutput `json:"new_schedule,omitempty"`
	Confidence  float64         `json:"confidence"`
}

type queryOutput struct {
	Subject     string                 `json:"subject,omitempty"`
	WindowStart string                 `json:"window_start,omitempty"`
	WindowEnd   string                 `json:"window_end,omitempty"`
	RRule       string                 `json:"rrule,omitempty"`
	Matches     []models.TaskCandidate `json:"matches,omitempty"`
}

type resultOutput struct {
	Outcome          string                 `json:"outcome"`
	Reason           string                 `json:"reason,omitempty"`
	Intent           string                 `json:"intent"`
	IntentConfidence float64                `json:"intent_confidence"`
	Confidence       float64                `json:"confidence"`
	CreatePlausible  bool                   `json:"create_plausible,omitempty"`
	Locale           string                 `json:"locale"`
	SourceText       string                 `json:"source_text"`
	Task             *taskOutput            `json:"task,omitempty"`
	Mutation         *mutationOutput        `json:"mutation,omitempty"`
	Query            *queryOutput           `json:"query,omitempty"`
	Candidates       []models.TaskCandidate `json:"candidates,omitempty"`
	Warnings         []string               `json:"warnings,omitempty"`
}

type metricsOutput struct {
	Utterances        int            `json:"utterances"`
	ByOutcome         map[string]int `json:"by_outcome"`
	ByIntent          map[string]int `json:"by_intent"`
	ByReason          map[string]int `json:"by_reason"`
	AverageConfidence float64        `json:"average_confidence"`
	TasksCreated      int            `json:"tasks_created"`
	TasksCompleted    int            `json:"tasks_completed"`
	TasksRescheduled  int            `json:"tasks_rescheduled"`
	TasksDeleted      int            `json:"tasks_deleted"`
	EventCount        int            `json:"event_count"`
	OldestEvent       string         `json:"oldest_event,omitempty"`
	NewestEvent       string         `json:"newest_event,omitempty"`
}

type alertOutput struct {
	ID          string `json:"id"`
	Condition   string `json:"condition"`
	Severity    string `json:"severity"`
	Message     string `json:"message"`
	TriggeredAt string `json:"triggered_at"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func toScheduleOutput(s *models.Schedule) *scheduleOutput {
	if s == nil {
		return nil
	}
	out := &scheduleOutput{Text: s.String()}
	if s.At != nil {
		out.At = formatTime(*s.At)
	}
	if s.Window != nil {
		out.WindowStart, out.WindowEnd = formatTime(s.Window.Start), formatTime(s.Window.End)
	}
	if end, ok := s.End(); ok {
		out.End = formatTime(end)
	}
	if s.Recurrence != nil {
		out.RRule = s.Recurrence.String()
	}
	return out
}

func toTaskOutput(t *models.Task) *taskOutput {
	if t == nil {
		return nil
	}
	out := &taskOutput{
		ID:              t.ID,
		Title:           t.Title,
		People:          t.People,
		Location:        t.Location,
		Priority:        string(t.Priority),
		Status:          string(t.Status),
		Schedule:        toScheduleOutput(t.Schedule),
		SourceUtterance: t.SourceUtterance,
		Confidence:      t.Confidence,
		Aliases:         t.Aliases,
		Created:         formatTime(t.Created),
		Updated:         formatTime(t.Updated),
	}
	for _, h := range t.History {
		out.History = append(out.History, historyOutput{
			Kind:            string(h.Kind),
			SourceUtterance: h.SourceUtterance,
			At:              formatTime(h.At),
		})
	}
	return out
}

func toResultOutput(r models.Result) resultOutput {
	out := resultOutput{
		Outcome:          string(r.Outcome),
		Reason:           string(r.Reason),
		Intent:           string(r.Intent.Intent),
		IntentConfidence: r.Intent.Confidence,
		Confidence:       r.Confidence,
		CreatePlausible:  r.CreatePlausible,
		Locale:           r.Locale,
		SourceText:       r.SourceText,
		Task:             toTaskOutput(r.Task),
		Candidates:       r.Candidates,
	}
	if m := r.Mutation; m != nil {
		out.Mutation = &mutationOutput{
			Kind:        string(m.Kind),
			TargetID:    m.TargetID,
			TargetTitle: m.TargetTitle,
			NewSchedule: toScheduleOutput(m.NewSchedule),
			Confidence:  m.Confidence,
		}
	}
	if q := r.Query; q != nil {
		out.Query = &queryOutput{Subject: q.Subject, Matches: q.Matches}
		if q.Window != nil {
			out.Query.WindowStart, out.Query.WindowEnd = formatTime(q.Window.Start), formatTime(q.Window.End)
		}
		if q.Recurrence != nil {
			out.Query.RRule = q.Recurrence.String()
		}
	}
	for _, w := range r.Warnings {
		out.Warnings = append(out.Warnings, string(w))
	}
	return out
}

func toMetricsOutput(m *observability.Metrics) metricsOutput {
	out := metricsOutput{
		Utterances:        m.Utterances,
		ByOutcome:         m.ByOutcome,
		ByIntent:          m.ByIntent,
		ByReason:          m.ByReason,
		AverageConfidence: m.AverageConfidence,
		TasksCreated:      m.TasksCreated,
		TasksCompleted:    m.TasksCompleted,
		TasksRescheduled:  m.TasksRescheduled,
		TasksDeleted:      m.TasksDeleted,
		EventCount:        m.EventCount,
	}
	if m.OldestEvent != nil {
		out.OldestEvent = formatTime(*m.OldestEvent)
	}
	if m.NewestEvent != nil {
		out.NewestEvent = formatTime(*m.NewestEvent)
	}
	return out
}

func emptyMetricsOutput() metricsOutput {
	return metricsOutput{
		ByOutcome: make(map[string]int),
		ByIntent:  make(map[string]int),
		ByReason:  make(map[string]int),
	}
}

func toAlertOutputs(alerts []observability.Alert) []alertOutput {
	out := make([]alertOutput, len(alerts))
	for i, a := range alerts {
		out[i] = alertOutput{
			ID:          a.ID,
			Condition:   a.Condition,
			Severity:    string(a.Severity),
			Message:     a.Message,
			TriggeredAt: formatTime(a.TriggeredAt),
		}
	}
	return out
}
