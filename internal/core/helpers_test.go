package core

import (
	"context"
	"testing"
	"time"

	"github.com/valter-silva-au/schedy/pkg/models"
)

// moscow is fixed at UTC+3 so tests do not depend on the tz database.
var moscow = time.FixedZone("MSK", 3*60*60)

// refAt returns 2026-03-10 (a Tuesday) at hh:mm in moscow.
func refAt(hh, mm int) time.Time {
	return time.Date(2026, time.March, 10, hh, mm, 0, 0, moscow)
}

func testLexicons(t testing.TB) *LexiconSet {
	t.Helper()
	set, err := LoadLexiconSet("")
	if err != nil {
		t.Fatalf("LoadLexiconSet failed: %v", err)
	}
	return set
}

func testPipeline(t testing.TB, mutate ...func(*models.PipelineConfig)) *Pipeline {
	t.Helper()
	cfg := DefaultPipelineConfig()
	for _, m := range mutate {
		m(&cfg)
	}
	p, err := NewPipeline(testLexicons(t), cfg)
	if err != nil {
		t.Fatalf("NewPipeline failed: %v", err)
	}
	return p
}

func process(t testing.TB, p *Pipeline, text string, ref time.Time, known ...models.KnownTask) models.Result {
	t.Helper()
	res, err := p.Process(context.Background(), Request{Text: text, Reference: ref, KnownTasks: known})
	if err != nil {
		t.Fatalf("Process(%q) failed: %v", text, err)
	}
	return res
}

func analyze(t testing.TB, text, locale string) Analysis {
	t.Helper()
	return NewNormalizer(testLexicons(t), 1000).Normalize(text, locale)
}

func resolveAt(t testing.TB, text string, ref time.Time, roll bool) *TemporalExpression {
	t.Helper()
	return NewTemporalResolver(roll).Resolve(analyze(t, text, ""), ref)
}

func clockOf(tm time.Time) string {
	return tm.Format("2006-01-02 15:04")
}
