package observability

import (
	"fmt"
	"time"
)

// AlertSeverity represents the urgency of an alert.
type AlertSeverity string

const (
	SeverityHigh   AlertSeverity = "high"
	SeverityMedium AlertSeverity = "medium"
	SeverityLow    AlertSeverity = "low"
)

// Alert is a triggered alert condition.
type Alert struct {
	ID          string        `json:"id"`
	Condition   string        `json:"condition"`
	Severity    AlertSeverity `json:"severity"`
	Message     string        `json:"message"`
	TriggeredAt time.Time     `json:"triggered_at"`
}

// AlertThresholds configures when alerts fire. Rates are fractions of
// the utterances in the evaluation window.
type AlertThresholds struct {
	RejectRate    float64 `yaml:"reject_rate" json:"reject_rate"`
	ClarifyRate   float64 `yaml:"clarify_rate" json:"clarify_rate"`
	MinConfidence float64 `yaml:"min_confidence" json:"min_confidence"`
	MinSamples    int     `yaml:"min_samples" json:"min_samples"`
}

// DefaultAlertThresholds returns the default thresholds.
func DefaultAlertThresholds() AlertThresholds {
	return AlertThresholds{
		RejectRate:    0.5,
		ClarifyRate:   0.5,
		MinConfidence: 0.5,
		MinSamples:    10,
	}
}

// AlertEngine evaluates alert conditions against the event log.
type AlertEngine interface {
	Evaluate(since, now time.Time) ([]Alert, error)
}

type alertEngine struct {
	metrics    MetricsCalculator
	thresholds AlertThresholds
}

// NewAlertEngine creates an AlertEngine over eventLog.
func NewAlertEngine(eventLog EventLog, thresholds AlertThresholds) AlertEngine {
	return &alertEngine{metrics: NewMetricsCalculator(eventLog), thresholds: thresholds}
}

// Evaluate checks the utterances recorded since the given time. Nothing
// fires until at least MinSamples utterances have been seen.
func (ae *alertEngine) Evaluate(since, now time.Time) ([]Alert, error) {
	m, err := ae.metrics.Calculate(since)
	if err != nil {
		return nil, fmt.Errorf("evaluating alerts: %w", err)
	}
	if m.Utterances == 0 || m.Utterances < ae.thresholds.MinSamples {
		return nil, nil
	}

	var alerts []Alert
	if rate := m.Rate("reject"); rate > ae.thresholds.RejectRate {
		alerts = append(alerts, Alert{
			ID:          "reject-rate",
			Condition:   "reject_rate_high",
			Severity:    SeverityHigh,
			Message:     fmt.Sprintf("%.0f%% of %d utterances were rejected (threshold %.0f%%)", rate*100, m.Utterances, ae.thresholds.RejectRate*100),
			TriggeredAt: now,
		})
	}
	if rate := m.Rate("clarify"); rate > ae.thresholds.ClarifyRate {
		alerts = append(alerts, Alert{
			ID:          "clarify-rate",
			Condition:   "clarify_rate_high",
			Severity:    SeverityMedium,
			Message:     fmt.Sprintf("%.0f%% of %d utterances needed clarification (threshold %.0f%%)", rate*100, m.Utterances, ae.thresholds.ClarifyRate*100),
			TriggeredAt: now,
		})
	}
	if m.AverageConfidence < ae.thresholds.MinConfidence {
		alerts = append(alerts, Alert{
			ID:          "low-confidence",
			Condition:   "average_confidence_low",
			Severity:    SeverityLow,
			Message:     fmt.Sprintf("average confidence %.2f is below %.2f", m.AverageConfidence, ae.thresholds.MinConfidence),
			TriggeredAt: now,
		})
	}
	return alerts, nil
}
