package cli

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/valter-silva-au/schedy/internal/core"
	"github.com/valter-silva-au/schedy/internal/observability"
	"github.com/valter-silva-au/schedy/internal/storage"
	"github.com/valter-silva-au/schedy/pkg/models"
)

var moscow = time.FixedZone("MSK", 3*60*60)

// clock is Tuesday 2026-03-10 12:00 in Moscow.
var clock = time.Date(2026, 3, 10, 12, 0, 0, 0, moscow)

type testEvents struct{ log observability.EventLog }

func (e testEvents) LogEvent(eventType string, data map[string]any) error {
	return e.log.Write(observability.Event{Time: now(), Type: eventType, Message: eventType, Data: data})
}

// testEnv wires the real pipeline, a YAML store and an event log in a temp
// directory into the package-level variables, restoring them afterwards.
type testEnv struct {
	dir   string
	store storage.TaskStore
}

func setupCLI(t *testing.T, seed ...models.Task) *testEnv {
	t.Helper()
	origBase, origCfg, origLoc := BasePath, Config, Location
	origPipeline, origTasks, origNow := Pipeline, Tasks, now
	origLog, origAlerts, origMetrics, origNotifier := EventLog, AlertEngine, MetricsCalc, Notifier
	t.Cleanup(func() {
		BasePath, Config, Location = origBase, origCfg, origLoc
		Pipeline, Tasks, now = origPipeline, origTasks, origNow
		EventLog, AlertEngine, MetricsCalc, Notifier = origLog, origAlerts, origMetrics, origNotifier
	})

	dir := t.TempDir()
	lex, err := core.LoadLexiconSet("")
	if err != nil {
		t.Fatalf("loading lexicons: %v", err)
	}
	p, err := core.NewPipeline(lex, core.DefaultPipelineConfig())
	if err != nil {
		t.Fatalf("building pipeline: %v", err)
	}

	store := storage.NewTaskStore(filepath.Join(dir, "tasks.yaml"))
	for _, task := range seed {
		if err := store.AddTask(task); err != nil {
			t.Fatalf("seeding store: %v", err)
		}
	}
	if err := store.Save(); err != nil {
		t.Fatalf("saving store: %v", err)
	}

	log, err := observability.NewJSONLEventLog(filepath.Join(dir, "events.jsonl"))
	if err != nil {
		t.Fatalf("opening event log: %v", err)
	}
	t.Cleanup(func() { _ = log.Close() })

	BasePath = dir
	Config = core.DefaultConfig()
	Location = moscow
	now = func() time.Time { return clock }
	Pipeline = p
	Tasks = core.NewTaskService(p, store, core.NewTaskIDGenerator(dir, "TASK", 5), testEvents{log}, nil)
	EventLog = log
	MetricsCalc = observability.NewMetricsCalculator(log)
	AlertEngine = observability.NewAlertEngine(log, observability.DefaultAlertThresholds())
	Notifier = nil
	return &testEnv{dir: dir, store: store}
}

func resetFlags() {
	verbose = false
	sayNow, sayLocale, sayApply, sayJSON, sayPick = "", "", false, false, ""
	batchWorkers, batchLocale, batchNow = 4, "", ""
	tasksStatusFilter, tasksJSON = "", false
	metricsJSON, metricsSince = false, "7d"
	alertsSince, alertsNotify = "7d", false
	dashboardSince = "7d"
}

// runCLI executes the root command with args and returns its output.
func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := runCLI(t, "", args...)
	if err != nil {
		t.Fatalf("schedy %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

func workouts() []models.Task {
	return []models.Task{
		{ID: "TASK-00001", Title: "Утренняя зарядка", Status: models.StatusPending, Priority: models.PriorityMedium},
		{ID: "TASK-00002", Title: "Вечерняя зарядка", Status: models.StatusPending, Priority: models.PriorityMedium},
	}
}
