package cli

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/valter-silva-au/schedy/internal/observability"
)

func TestDashboard_Focus(t *testing.T) {
	tests := []struct {
		name  string
		start int
		key   tea.KeyMsg
		want  int
	}{
		{"tab", panelSchedule, tea.KeyMsg{Type: tea.KeyTab}, panelUnderstanding},
		{"tab wraps", panelAlerts, tea.KeyMsg{Type: tea.KeyTab}, panelSchedule},
		{"shift+tab wraps", panelSchedule, tea.KeyMsg{Type: tea.KeyShiftTab}, panelAlerts},
		{"right", panelUnderstanding, tea.KeyMsg{Type: tea.KeyRight}, panelAlerts},
		{"h", panelUnderstanding, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'h'}}, panelSchedule},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newDashboard("7d")
			d.focus = tt.start
			next, _ := d.Update(tt.key)
			if got := next.(dashboard).focus; got != tt.want {
				t.Errorf("focus = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDashboard_QuitAndRefresh(t *testing.T) {
	d := newDashboard("7d")
	if d.Init() == nil {
		t.Fatal("Init should load a snapshot")
	}
	if _, cmd := d.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}}); cmd == nil {
		t.Error("q should quit")
	}

	d.loading = false
	next, cmd := d.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	if cmd == nil || !next.(dashboard).loading {
		t.Error("r should start a refresh")
	}
}

func TestDashboard_View(t *testing.T) {
	setupCLI(t)
	d := newDashboard("7d")
	if got := d.View(); got != "Loading..." {
		t.Errorf("expected Loading... before the window size, got %q", got)
	}

	var m tea.Model = d
	m, _ = m.Update(tea.WindowSizeMsg{Width: 150, Height: 40})
	if !strings.Contains(m.View(), "Loading data...") {
		t.Errorf("expected the loading body:\n%s", m.View())
	}

	m, _ = m.Update(snapshotMsg{snap: &snapshot{
		pending: 2,
		done:    1,
		metrics: &observability.Metrics{
			Utterances:        4,
			ByOutcome:         map[string]int{"accept": 2, "clarify": 1, "reject": 1},
			ByReason:          map[string]int{"no_candidate": 1, "ambiguous_reference": 1},
			AverageConfidence: 0.8,
		},
		alerts: []observability.Alert{{Severity: observability.SeverityHigh, Message: "too many rejects", TriggeredAt: clock}},
	}})
	view := m.View()
	for _, want := range []string{"last 7d", "pending 2", "nothing scheduled", "4 utterances, confidence 0.80",
		" 50%", "most common reason: ambiguous_reference", "[HIGH] too many rejects", "2026-03-10 09:00 UTC"} {
		if !strings.Contains(view, want) {
			t.Errorf("expected %q in view:\n%s", want, view)
		}
	}

	m, _ = m.Update(snapshotMsg{err: errTest})
	if !strings.Contains(m.View(), "Error: test failure") {
		t.Errorf("expected the error in view:\n%s", m.View())
	}
}

func TestBar(t *testing.T) {
	tests := []struct {
		rate float64
		full int
	}{
		{0, 0},
		{0.5, 10},
		{0.26, 5},
		{1, 20},
		{1.5, 20},
	}
	for _, tt := range tests {
		got := bar(tt.rate)
		if n := strings.Count(got, "█"); n != tt.full || strings.Count(got, "░") != barWidth-tt.full {
			t.Errorf("bar(%v) = %q, want %d full cells", tt.rate, got, tt.full)
		}
	}
}

func TestLoadSnapshot(t *testing.T) {
	setupCLI(t, scheduledTasks()...)
	mustRun(t, "say", "хлеб")
	AlertEngine = &alertsStub{alerts: []observability.Alert{
		{Severity: observability.SeverityLow, Message: "low"},
		{Severity: observability.SeverityHigh, Message: "high"},
		{Severity: observability.SeverityMedium, Message: "medium"},
	}}

	snap, err := loadSnapshot("7d")
	if err != nil {
		t.Fatalf("loadSnapshot failed: %v", err)
	}
	if snap.pending != 2 || snap.done != 1 {
		t.Errorf("unexpected counts pending=%d done=%d", snap.pending, snap.done)
	}
	if len(snap.upcoming) != 2 || snap.upcoming[0].task.ID != "TASK-00001" {
		t.Errorf("expected the daily workout first, got %+v", snap.upcoming)
	}
	if snap.metrics == nil || snap.metrics.Utterances != 1 {
		t.Errorf("unexpected metrics %+v", snap.metrics)
	}
	var order []string
	for _, a := range snap.alerts {
		order = append(order, a.Message)
	}
	if strings.Join(order, ",") != "high,medium,low" {
		t.Errorf("expected alerts by severity, got %v", order)
	}
}

func TestLoadSnapshot_Errors(t *testing.T) {
	setupCLI(t)

	if _, err := loadSnapshot("1w"); err == nil {
		t.Error("expected an error for a bad window")
	}

	AlertEngine = &alertsStub{err: errTest}
	if _, err := loadSnapshot("7d"); err == nil || !strings.Contains(err.Error(), "loading alerts") {
		t.Errorf("expected an alerts error, got %v", err)
	}
}

func TestDashboardCmd_Validates(t *testing.T) {
	setupCLI(t)

	if _, err := runCLI(t, "", "dashboard", "--since", "soon"); err == nil {
		t.Error("expected an error for a bad --since")
	}

	Tasks = nil
	if _, err := runCLI(t, "", "dashboard"); err == nil {
		t.Error("expected an error without a task service")
	}
}
