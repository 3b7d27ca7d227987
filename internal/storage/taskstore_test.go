package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/valter-silva-au/schedy/pkg/models"
)

func newTestTaskStore(t *testing.T) (TaskStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "tasks.yaml")
	return NewTaskStore(path), path
}

func sampleTask(id, title string) models.Task {
	at := time.Date(2026, 3, 11, 7, 0, 0, 0, time.UTC)
	return models.Task{
		ID:              id,
		Title:           title,
		Schedule:        &models.Schedule{At: &at},
		Priority:        models.PriorityMedium,
		Status:          models.StatusPending,
		SourceUtterance: "Напомни " + strings.ToLower(title),
		Confidence:      0.9,
	}
}

func TestTaskStore_AddGetUpdateRemove(t *testing.T) {
	store, _ := newTestTaskStore(t)
	task := sampleTask("TASK-00001", "Утренняя зарядка")

	if err := store.AddTask(task); err != nil {
		t.Fatalf("AddTask failed: %v", err)
	}
	if err := store.AddTask(task); err == nil {
		t.Error("expected an error adding a duplicate")
	}
	if err := store.AddTask(models.Task{Title: "no id"}); err == nil {
		t.Error("expected an error adding a task without an ID")
	}

	got, err := store.GetTask("TASK-00001")
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	got.Title = "changed"
	again, _ := store.GetTask("TASK-00001")
	if again.Title != "Утренняя зарядка" {
		t.Error("GetTask must return a copy")
	}

	task.Status = models.StatusDone
	if err := store.UpdateTask(task); err != nil {
		t.Fatalf("UpdateTask failed: %v", err)
	}
	if got, _ := store.GetTask("TASK-00001"); got.Status != models.StatusDone {
		t.Errorf("expected done, got %s", got.Status)
	}
	if err := store.UpdateTask(sampleTask("TASK-00404", "x")); err == nil {
		t.Error("expected an error updating a missing task")
	}

	if err := store.RemoveTask("TASK-00001"); err != nil {
		t.Fatalf("RemoveTask failed: %v", err)
	}
	if _, err := store.GetTask("TASK-00001"); err == nil {
		t.Error("expected the task to be gone")
	}
	if err := store.RemoveTask("TASK-00001"); err == nil {
		t.Error("expected an error removing a missing task")
	}
}

func TestTaskStore_SaveAndLoad(t *testing.T) {
	store, path := newTestTaskStore(t)
	task := sampleTask("TASK-00002", "Купить хлеб")
	task.Aliases = []string{"bread"}
	task.History = []models.HistoryItem{{Kind: models.MutationReschedule, SourceUtterance: "Перенеси хлеб", At: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}}
	task.Schedule = &models.Schedule{Recurrence: &models.Recurrence{
		Frequency: models.FrequencyWeekly,
		Weekdays:  []time.Weekday{time.Monday, time.Friday},
		Hour:      8,
	}}

	if err := store.AddTask(task); err != nil {
		t.Fatalf("AddTask failed: %v", err)
	}
	if err := store.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file left behind")
	}

	reloaded := NewTaskStore(path)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	got, err := reloaded.GetTask("TASK-00002")
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if got.Title != task.Title || got.SourceUtterance != task.SourceUtterance || got.Confidence != task.Confidence {
		t.Errorf("task fields changed: %+v", got)
	}
	if diff := cmp.Diff(task.Schedule.Recurrence, got.Schedule.Recurrence); diff != "" {
		t.Errorf("recurrence mismatch (-want +got):\n%s", diff)
	}
	if len(got.History) != 1 || !got.History[0].At.Equal(task.History[0].At) {
		t.Errorf("history changed: %+v", got.History)
	}
	if diff := cmp.Diff([]string{"bread"}, got.Aliases); diff != "" {
		t.Errorf("aliases mismatch (-want +got):\n%s", diff)
	}
}

func TestTaskStore_LoadMissingFileIsEmpty(t *testing.T) {
	store, _ := newTestTaskStore(t)
	if err := store.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	all, _ := store.GetAllTasks()
	if len(all) != 0 {
		t.Errorf("expected no tasks, got %d", len(all))
	}
}

func TestTaskStore_LoadTakesIDsFromKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.yaml")
	content := `version: "1.0"
tasks:
  TASK-00007:
    title: Позвонить маме
    priority: high
    status: pending
  TASK-00008:
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing file: %v", err)
	}
	store := NewTaskStore(path)
	if err := store.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	all, _ := store.GetAllTasks()
	if len(all) != 1 || all[0].ID != "TASK-00007" || all[0].Priority != models.PriorityHigh {
		t.Errorf("unexpected tasks %+v", all)
	}
}

func TestTaskStore_LoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.yaml")
	if err := os.WriteFile(path, []byte("tasks: [oops"), 0o600); err != nil {
		t.Fatalf("writing file: %v", err)
	}
	if err := NewTaskStore(path).Load(); err == nil {
		t.Error("expected a parse error")
	}
}

func TestTaskStore_FilterTasks(t *testing.T) {
	store, _ := newTestTaskStore(t)
	workout := sampleTask("TASK-00001", "Morning Workout")
	workout.Aliases = []string{"утренняя зарядка"}
	workout.Schedule = &models.Schedule{Recurrence: &models.Recurrence{Frequency: models.FrequencyDaily, Hour: 8}}
	bread := sampleTask("TASK-00002", "Купить хлеб")
	bread.Status = models.StatusDone
	call := sampleTask("TASK-00003", "Позвонить маме")
	call.Priority = models.PriorityHigh
	for _, task := range []models.Task{call, bread, workout} {
		if err := store.AddTask(task); err != nil {
			t.Fatalf("AddTask failed: %v", err)
		}
	}
	yes, no := true, false

	tests := []struct {
		name   string
		filter TaskFilter
		want   []string
	}{
		{"all ordered by ID", TaskFilter{}, []string{"TASK-00001", "TASK-00002", "TASK-00003"}},
		{"status", TaskFilter{Status: []models.TaskStatus{models.StatusDone}}, []string{"TASK-00002"}},
		{"priority", TaskFilter{Priority: []models.Priority{models.PriorityHigh}}, []string{"TASK-00003"}},
		{"recurring", TaskFilter{Recurring: &yes}, []string{"TASK-00001"}},
		{"one-shot", TaskFilter{Recurring: &no}, []string{"TASK-00002", "TASK-00003"}},
		{"text in alias", TaskFilter{Text: "ЗАРЯДКА"}, []string{"TASK-00001"}},
		{"text and status", TaskFilter{Text: "хлеб", Status: []models.TaskStatus{models.StatusPending}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.FilterTasks(tt.filter)
			if err != nil {
				t.Fatalf("FilterTasks failed: %v", err)
			}
			var ids []string
			for _, task := range got {
				ids = append(ids, task.ID)
			}
			if diff := cmp.Diff(tt.want, ids); diff != "" {
				t.Errorf("ids mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTaskStore_KnownTasksSkipsDone(t *testing.T) {
	store, _ := newTestTaskStore(t)
	workout := sampleTask("TASK-00001", "Morning Workout")
	workout.Aliases = []string{"утренняя зарядка"}
	done := sampleTask("TASK-00002", "Купить хлеб")
	done.Status = models.StatusDone
	_ = store.AddTask(done)
	_ = store.AddTask(workout)

	want := []models.KnownTask{{ID: "TASK-00001", Title: "Morning Workout", Aliases: []string{"утренняя зарядка"}}}
	if diff := cmp.Diff(want, store.KnownTasks()); diff != "" {
		t.Errorf("known tasks mismatch (-want +got):\n%s", diff)
	}
}
