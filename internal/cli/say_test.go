package cli

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/valter-silva-au/schedy/pkg/models"
)

func TestSayCmd_CreateAndApply(t *testing.T) {
	env := setupCLI(t)

	out := mustRun(t, "say", "Напомни", "купить", "хлеб", "завтра", "в", "9", "--apply")

	for _, want := range []string{"ACCEPT", "Купить хлеб", "2026-03-11 09:00", "Saved TASK-00001"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
	if err := env.store.Load(); err != nil {
		t.Fatalf("reloading store: %v", err)
	}
	task, err := env.store.GetTask("TASK-00001")
	if err != nil {
		t.Fatalf("task not saved: %v", err)
	}
	if task.SourceUtterance != "Напомни купить хлеб завтра в 9" {
		t.Errorf("unexpected source utterance %q", task.SourceUtterance)
	}
}

func TestSayCmd_PeopleAndPlace(t *testing.T) {
	env := setupCLI(t)

	out := mustRun(t, "say", "Напомни встреча с Иваном в офисе завтра в 3 дня", "--apply")
	for _, want := range []string{"Встреча с Иваном", "with:", "Иваном", "where:", "офисе", "Saved TASK-00001"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}

	if err := env.store.Load(); err != nil {
		t.Fatalf("reloading store: %v", err)
	}
	task, err := env.store.GetTask("TASK-00001")
	if err != nil {
		t.Fatalf("task not saved: %v", err)
	}
	if task.Location != "офисе" || len(task.People) != 1 || task.Schedule.Duration != time.Hour {
		t.Errorf("entities or duration lost on save: %+v", task)
	}

	out = mustRun(t, "tasks", "show", "TASK-00001")
	for _, want := range []string{"ends:", "2026-03-11 16:00", "where:", "офисе"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestSayCmd_WithoutApplySavesNothing(t *testing.T) {
	env := setupCLI(t)

	mustRun(t, "say", "Напомни купить хлеб завтра")

	_ = env.store.Load()
	if all, _ := env.store.GetAllTasks(); len(all) != 0 {
		t.Errorf("expected nothing saved, got %+v", all)
	}
}

func TestSayCmd_JSON(t *testing.T) {
	setupCLI(t, workouts()...)

	out := mustRun(t, "say", "--json", "Удали утреннюю зарядку")

	var got struct {
		Result  models.Result `json:"result"`
		Applied *models.Task  `json:"applied"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decoding output: %v\n%s", err, out)
	}
	if got.Result.Outcome != models.OutcomeAccept || got.Result.Mutation == nil {
		t.Fatalf("unexpected result %+v", got.Result)
	}
	if got.Result.Mutation.TargetID != "TASK-00001" || got.Applied != nil {
		t.Errorf("expected an unapplied delete of TASK-00001, got %+v", got)
	}
}

func TestSayCmd_ClarifyThenPick(t *testing.T) {
	env := setupCLI(t, workouts()...)

	out := mustRun(t, "say", "Удали зарядку")
	for _, want := range []string{"CLARIFY (ambiguous_reference)", "TASK-00001", "TASK-00002"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}

	out = mustRun(t, "say", "Удали зарядку", "--pick", "TASK-00002")
	if !strings.Contains(out, "Saved TASK-00002") {
		t.Errorf("expected the pick to be applied:\n%s", out)
	}
	_ = env.store.Load()
	if _, err := env.store.GetTask("TASK-00002"); err == nil {
		t.Error("expected TASK-00002 to be deleted")
	}
	if _, err := env.store.GetTask("TASK-00001"); err != nil {
		t.Error("TASK-00001 must remain")
	}

	if _, err := runCLI(t, "", "say", "Удали зарядку", "--pick", "TASK-00404"); err == nil {
		t.Error("expected an error picking a task that is not a candidate")
	}
}

func TestSayCmd_Reject(t *testing.T) {
	setupCLI(t)

	out := mustRun(t, "say", "хлеб")
	if !strings.Contains(out, "REJECT (unknown_intent)") {
		t.Errorf("expected a reject:\n%s", out)
	}
}

func TestSayCmd_ExplicitReference(t *testing.T) {
	setupCLI(t)

	out := mustRun(t, "say", "--now", "2026-03-10T20:00:00+03:00", "remind me to call mom at 9pm")
	if !strings.Contains(out, "2026-03-10 21:00") {
		t.Errorf("expected 21:00 on the reference day:\n%s", out)
	}

	if _, err := runCLI(t, "", "say", "--now", "yesterday", "Напомни"); err == nil {
		t.Error("expected an error for a bad --now")
	}
}

func TestSayCmd_NotInitialized(t *testing.T) {
	setupCLI(t)
	Tasks = nil

	if _, err := runCLI(t, "", "say", "Напомни"); err == nil {
		t.Error("expected an error without a task service")
	}
}
