package internal

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/valter-silva-au/schedy/internal/cli"
	"github.com/valter-silva-au/schedy/internal/core"
	"github.com/valter-silva-au/schedy/internal/observability"
	"github.com/valter-silva-au/schedy/pkg/models"
)

func TestResolveBasePath_SchedyHome(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SCHEDY_HOME", dir)

	if got := ResolveBasePath(); got != dir {
		t.Errorf("ResolveBasePath() = %q, want %q", got, dir)
	}
}

func TestResolveBasePath_FindsConfigInParent(t *testing.T) {
	t.Setenv("SCHEDY_HOME", "")
	dir := t.TempDir()
	nested := filepath.Join(dir, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, core.ConfigFileName), []byte("locale:\n  default: en\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Chdir(nested)

	if got := ResolveBasePath(); got != dir {
		t.Errorf("ResolveBasePath() = %q, want %q", got, dir)
	}
}

func restoreCLI(t *testing.T) {
	t.Helper()
	base, cfg, loc := cli.BasePath, cli.Config, cli.Location
	pipeline, tasks := cli.Pipeline, cli.Tasks
	log, alerts, metrics, notifier := cli.EventLog, cli.AlertEngine, cli.MetricsCalc, cli.Notifier
	logger, level := cli.Logger, cli.LogLevel
	t.Cleanup(func() {
		cli.BasePath, cli.Config, cli.Location = base, cfg, loc
		cli.Pipeline, cli.Tasks = pipeline, tasks
		cli.EventLog, cli.AlertEngine, cli.MetricsCalc, cli.Notifier = log, alerts, metrics, notifier
		cli.Logger, cli.LogLevel = logger, level
	})
}

func newTestApp(t *testing.T, config string) (*App, string) {
	t.Helper()
	restoreCLI(t)
	dir := t.TempDir()
	if config != "" {
		if err := os.WriteFile(filepath.Join(dir, core.ConfigFileName), []byte(config), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	app, err := NewApp(dir)
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	t.Cleanup(func() { _ = app.Close() })
	return app, dir
}

func TestNewApp_WiresCLI(t *testing.T) {
	app, dir := newTestApp(t, "")

	if app.Location.String() != "Europe/Moscow" {
		t.Errorf("expected the default time zone, got %s", app.Location)
	}
	if cli.BasePath != dir || cli.Config != app.Config || cli.Tasks != app.Tasks {
		t.Error("CLI variables not wired")
	}
	if app.EventLog == nil || cli.MetricsCalc == nil || cli.AlertEngine == nil {
		t.Error("expected observability to be enabled by default")
	}
	if app.Notifier != nil || cli.Notifier != nil {
		t.Error("expected no notifier without a webhook")
	}
}

func TestNewApp_SlackWebhook(t *testing.T) {
	app, _ := newTestApp(t, "alerts:\n  slack_webhook_url: https://hooks.slack.com/services/T0/B0/x\n")

	if app.Notifier == nil || cli.Notifier != app.Notifier {
		t.Error("expected the notifier to be wired")
	}
}

func TestNewApp_EndToEnd(t *testing.T) {
	app, dir := newTestApp(t, "task_id:\n  prefix: TODO\n  pad_width: 3\n")
	ref := time.Date(2026, 3, 10, 12, 0, 0, 0, app.Location)

	res, err := app.Tasks.Interpret(context.Background(), "Напомни купить хлеб завтра в 9", "", ref)
	if err != nil {
		t.Fatalf("Interpret failed: %v", err)
	}
	task, err := app.Tasks.Apply(res, ref)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if task.ID != "TODO-001" {
		t.Errorf("expected the configured ID format, got %s", task.ID)
	}

	if _, err := os.Stat(filepath.Join(dir, "tasks.yaml")); err != nil {
		t.Errorf("expected the store to be written: %v", err)
	}

	events, err := app.EventLog.Read(observability.EventFilter{})
	if err != nil {
		t.Fatalf("reading events: %v", err)
	}
	if len(events) != 2 || events[0].Type != "utterance.processed" || events[1].Type != "task.created" {
		t.Errorf("unexpected events %+v", events)
	}
}

func TestNewApp_RejectsLogAsWarning(t *testing.T) {
	app, _ := newTestApp(t, "")

	if _, err := app.Tasks.Interpret(context.Background(), "хлеб", "", time.Now()); err != nil {
		t.Fatalf("Interpret failed: %v", err)
	}
	events, err := app.EventLog.Read(observability.EventFilter{Level: observability.LevelWarn})
	if err != nil {
		t.Fatalf("reading events: %v", err)
	}
	if len(events) != 1 || events[0].Data["outcome"] != string(models.OutcomeReject) {
		t.Errorf("expected one warning for the reject, got %+v", events)
	}
}

func TestNewApp_EventsDisabled(t *testing.T) {
	app, dir := newTestApp(t, "events:\n  enabled: false\n")

	if app.EventLog != nil || cli.MetricsCalc != nil || cli.AlertEngine != nil {
		t.Error("expected no observability when events are disabled")
	}
	if _, err := app.Tasks.Interpret(context.Background(), "Напомни купить хлеб", "", time.Now()); err != nil {
		t.Fatalf("Interpret failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, ".schedy_events.jsonl")); !os.IsNotExist(err) {
		t.Errorf("expected no event file, got %v", err)
	}
}

func TestNewApp_InvalidConfig(t *testing.T) {
	restoreCLI(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, core.ConfigFileName), []byte("pipeline:\n  top_k: 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := NewApp(dir)
	if err == nil || !strings.Contains(err.Error(), "loading configuration") {
		t.Errorf("expected a configuration error, got %v", err)
	}
}
