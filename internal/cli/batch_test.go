package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/valter-silva-au/schedy/pkg/models"
)

func decodeLines(t *testing.T, out string) []models.Result {
	t.Helper()
	var results []models.Result
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		var r models.Result
		if err := json.Unmarshal([]byte(line), &r); err != nil {
			t.Fatalf("decoding %q: %v", line, err)
		}
		results = append(results, r)
	}
	return results
}

func TestBatchCmd_Stdin(t *testing.T) {
	env := setupCLI(t, workouts()...)
	input := "Напомни купить хлеб завтра\n\n  хлеб  \nУдали утреннюю зарядку\n"

	out, err := runCLI(t, input, "batch", "--workers", "2")
	if err != nil {
		t.Fatalf("batch failed: %v", err)
	}

	results := decodeLines(t, out)
	if len(results) != 3 {
		t.Fatalf("expected 3 results for 3 non-blank lines, got %d", len(results))
	}
	want := []models.Outcome{models.OutcomeAccept, models.OutcomeReject, models.OutcomeAccept}
	for i, r := range results {
		if r.Outcome != want[i] {
			t.Errorf("line %d (%q): got %s, want %s", i, r.SourceText, r.Outcome, want[i])
		}
	}
	if results[1].SourceText != "хлеб" {
		t.Errorf("expected trimmed text, got %q", results[1].SourceText)
	}

	// Batch never writes to the store.
	_ = env.store.Load()
	if all, _ := env.store.GetAllTasks(); len(all) != 2 {
		t.Errorf("expected the store unchanged, got %d tasks", len(all))
	}
}

func TestBatchCmd_File(t *testing.T) {
	setupCLI(t)
	path := filepath.Join(t.TempDir(), "utterances.txt")
	if err := os.WriteFile(path, []byte("remind me to call mom tomorrow at 3pm\n"), 0o600); err != nil {
		t.Fatalf("writing file: %v", err)
	}

	out := mustRun(t, "batch", path, "--locale", "en")
	results := decodeLines(t, out)
	if len(results) != 1 || results[0].Task == nil || results[0].Task.Title != "Call mom" {
		t.Errorf("unexpected results %+v", results)
	}

	if _, err := runCLI(t, "", "batch", filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestReadUtterances(t *testing.T) {
	lines, err := readUtterances(strings.NewReader("a\r\n\n b \n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lines) != 2 || lines[0] != "a" || lines[1] != "b" {
		t.Errorf("unexpected lines %q", lines)
	}
}
