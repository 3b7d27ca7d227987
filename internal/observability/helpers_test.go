package observability

import (
	"path/filepath"
	"testing"
	"time"
)

var base = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func newTestLog(t *testing.T) EventLog {
	t.Helper()
	log, err := NewJSONLEventLog(filepath.Join(t.TempDir(), "logs", "events.jsonl"))
	if err != nil {
		t.Fatalf("creating event log: %v", err)
	}
	t.Cleanup(func() { _ = log.Close() })
	return log
}

func utterance(at time.Time, outcome, intent, reason string, conf float64) Event {
	return Event{
		Time:    at,
		Type:    "utterance.processed",
		Message: "utterance.processed",
		Data: map[string]any{
			"outcome":    outcome,
			"intent":     intent,
			"reason":     reason,
			"confidence": conf,
		},
	}
}

func writeAll(t testing.TB, log EventLog, events ...Event) {
	t.Helper()
	for _, e := range events {
		if err := log.Write(e); err != nil {
			t.Fatalf("writing event: %v", err)
		}
	}
}
