package core

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/valter-silva-au/schedy/pkg/models"
)

// --- Helper ---

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// --- LoadConfig tests ---

func TestLoadConfig_Defaults_WhenNoFile(t *testing.T) {
	cfg, err := NewConfigurationManager(t.TempDir()).LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfig_ReadsFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ConfigFileName, `
pipeline:
  accept_threshold: 0.7
  top_k: 3
  roll_past_times: false
  event_duration: 30m
locale:
  default: en
  timezone: Europe/London
store:
  file: data/tasks.yaml
task_id:
  prefix: TODO
  pad_width: 3
log:
  level: debug
events:
  enabled: false
`)

	cfg, err := NewConfigurationManager(dir).LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Pipeline.AcceptThreshold != 0.7 || cfg.Pipeline.TopK != 3 || cfg.Pipeline.RollPastTimes || cfg.Pipeline.EventDuration != 30*time.Minute {
		t.Errorf("pipeline values not read: %+v", cfg.Pipeline)
	}
	// Keys absent from the file keep their defaults.
	if cfg.Pipeline.ClarifyFloor != 0.25 || cfg.Pipeline.SeparationMargin != 0.15 {
		t.Errorf("pipeline defaults lost: %+v", cfg.Pipeline)
	}
	if cfg.Locale.Default != "en" || cfg.Locale.Timezone != "Europe/London" {
		t.Errorf("locale = %+v", cfg.Locale)
	}
	if cfg.Store.File != "data/tasks.yaml" {
		t.Errorf("store.file = %q", cfg.Store.File)
	}
	if cfg.TaskID.Prefix != "TODO" || cfg.TaskID.PadWidth != 3 {
		t.Errorf("task_id = %+v", cfg.TaskID)
	}
	if cfg.Log.Level != "debug" || cfg.Events.Enabled {
		t.Errorf("log/events = %+v / %+v", cfg.Log, cfg.Events)
	}
	if cfg.Alerts.MinSamples != 10 {
		t.Errorf("alerts default lost: %+v", cfg.Alerts)
	}
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ConfigFileName, "pipeline:\n  top_k: 3\n")
	t.Setenv("SCHEDY_PIPELINE_TOP_K", "7")
	t.Setenv("SCHEDY_LOCALE_DEFAULT", "en")
	t.Setenv("SCHEDY_PIPELINE_EVENT_DURATION", "90m")

	cfg, err := NewConfigurationManager(dir).LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Pipeline.TopK != 7 {
		t.Errorf("top_k = %d, want 7", cfg.Pipeline.TopK)
	}
	if cfg.Locale.Default != "en" {
		t.Errorf("locale.default = %q, want en", cfg.Locale.Default)
	}
	if cfg.Pipeline.EventDuration != 90*time.Minute {
		t.Errorf("event_duration = %v, want 1h30m", cfg.Pipeline.EventDuration)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"threshold out of range", "pipeline:\n  accept_threshold: 1.5\n", "AcceptThreshold"},
		{"floor above accept", "pipeline:\n  clarify_floor: 0.9\n", "ClarifyFloor"},
		{"unknown time zone", "locale:\n  timezone: Mars/Olympus\n", "not a known time zone"},
		{"lowercase prefix", "task_id:\n  prefix: task\n", "Prefix"},
		{"event longer than a day", "pipeline:\n  event_duration: 48h\n", "EventDuration"},
		{"unknown log level", "log:\n  level: loud\n", "Level"},
		{"webhook is not a URL", "alerts:\n  slack_webhook_url: hooks slack com\n", "SlackWebhookURL"},
		{"bad yaml", "pipeline: [", "reading .schedyconfig"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, ConfigFileName, tt.content)

			_, err := NewConfigurationManager(dir).LoadConfig()
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateConfig_CollectsAllErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Pipeline.TopK = 0
	cfg.Alerts.MinSamples = 0
	cfg.Store.File = ""

	err := NewConfigurationManager(t.TempDir()).ValidateConfig(cfg)
	if err == nil {
		t.Fatal("expected an error")
	}
	for _, field := range []string{"TopK", "MinSamples", "Store.File"} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("expected %s in %v", field, err)
		}
	}

	if err := NewConfigurationManager("").ValidateConfig(nil); err == nil {
		t.Error("expected an error for a nil config")
	}
}

func TestValidateConfig_EventsFileRequiredWhenEnabled(t *testing.T) {
	cm := NewConfigurationManager(t.TempDir())
	cfg := DefaultConfig()
	cfg.Events.File = ""

	if err := cm.ValidateConfig(cfg); err == nil {
		t.Error("expected an error when events are enabled without a file")
	}
	cfg.Events.Enabled = false
	if err := cm.ValidateConfig(cfg); err != nil {
		t.Errorf("disabled events need no file: %v", err)
	}
}

func TestLocation(t *testing.T) {
	if Location(nil) != time.UTC {
		t.Error("nil config should fall back to UTC")
	}
	cfg := &models.Config{Locale: models.LocaleConfig{Timezone: "Nowhere/Special"}}
	if Location(cfg) != time.UTC {
		t.Error("an unknown zone should fall back to UTC")
	}
	cfg.Locale.Timezone = "Asia/Tokyo"
	if got := Location(cfg).String(); got != "Asia/Tokyo" {
		t.Errorf("Location = %q", got)
	}
}
