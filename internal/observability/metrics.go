package observability

import (
	"fmt"
	"time"
)

// Event types the metrics understand.
const (
	typeUtterance       = "utterance.processed"
	typeTaskCreated     = "task.created"
	typeTaskCompleted   = "task.completed"
	typeTaskRescheduled = "task.rescheduled"
	typeTaskDeleted     = "task.deleted"
)

// Metrics summarises pipeline behaviour over a period of the event log.
type Metrics struct {
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
	OldestEvent       *time.Time     `json:"oldest_event,omitempty"`
	NewestEvent       *time.Time     `json:"newest_event,omitempty"`
}

// Rate returns the share of utterances that ended in outcome.
func (m *Metrics) Rate(outcome string) float64 {
	if m.Utterances == 0 {
		return 0
	}
	return float64(m.ByOutcome[outcome]) / float64(m.Utterances)
}

// MetricsCalculator derives metrics from the event log.
type MetricsCalculator interface {
	Calculate(since time.Time) (*Metrics, error)
}

type metricsCalculator struct {
	eventLog EventLog
}

// NewMetricsCalculator creates a MetricsCalculator reading from eventLog.
func NewMetricsCalculator(eventLog EventLog) MetricsCalculator {
	return &metricsCalculator{eventLog: eventLog}
}

// Calculate aggregates every event at or after since.
func (mc *metricsCalculator) Calculate(since time.Time) (*Metrics, error) {
	events, err := mc.eventLog.Read(EventFilter{Since: &since})
	if err != nil {
		return nil, fmt.Errorf("reading events for metrics: %w", err)
	}

	m := &Metrics{
		ByOutcome: make(map[string]int),
		ByIntent:  make(map[string]int),
		ByReason:  make(map[string]int),
	}
	m.EventCount = len(events)

	confSum := 0.0
	for i, event := range events {
		t := event.Time
		if i == 0 {
			m.OldestEvent = &t
		}
		m.NewestEvent = &t

		switch event.Type {
		case typeUtterance:
			m.Utterances++
			if v, ok := event.Data["outcome"].(string); ok {
				m.ByOutcome[v]++
			}
			if v, ok := event.Data["intent"].(string); ok {
				m.ByIntent[v]++
			}
			if v, ok := event.Data["reason"].(string); ok && v != "" {
				m.ByReason[v]++
			}
			// JSON numbers decode as float64.
			if v, ok := event.Data["confidence"].(float64); ok {
				confSum += v
			}
		case typeTaskCreated:
			m.TasksCreated++
		case typeTaskCompleted:
			m.TasksCompleted++
		case typeTaskRescheduled:
			m.TasksRescheduled++
		case typeTaskDeleted:
			m.TasksDeleted++
		}
	}
	if m.Utterances > 0 {
		m.AverageConfidence = confSum / float64(m.Utterances)
	}
	return m, nil
}
