package core

import (
	"fmt"
	"testing"

	"pgregory.net/rapid"

	"github.com/valter-silva-au/schedy/pkg/models"
)

func label(i models.Intent, conf float64) IntentResult {
	return IntentResult{IntentLabel: models.IntentLabel{Intent: i, Confidence: conf}}
}

func cands(scores ...float64) []models.TaskCandidate {
	out := make([]models.TaskCandidate, len(scores))
	for i, s := range scores {
		out[i] = models.TaskCandidate{TaskID: fmt.Sprintf("TASK-%05d", i+1), Score: s}
	}
	return out
}

func TestDecide_RuleOrder(t *testing.T) {
	p := NewDisambiguationPolicy(DefaultPipelineConfig())

	tests := []struct {
		name       string
		intent     IntentResult
		conf       float64
		candidates []models.TaskCandidate
		err        error
		outcome    models.Outcome
		reason     models.Reason
	}{
		{"unknown intent", label(models.IntentUnknown, 0), 0, nil, nil, models.OutcomeReject, models.ReasonUnknownIntent},
		{"unknown beats missing anchor", label(models.IntentUnknown, 0), 0, nil, ErrNoTemporalAnchor, models.OutcomeReject, models.ReasonUnknownIntent},
		{"missing anchor beats missing candidate", label(models.IntentReschedule, 1), 0, nil, fmt.Errorf("wrapped: %w", ErrNoTemporalAnchor), models.OutcomeReject, models.ReasonNoTemporalAnchor},
		{"mutation without candidates", label(models.IntentDelete, 1), 1, nil, nil, models.OutcomeReject, models.ReasonNoCandidate},
		{"no candidate error", label(models.IntentComplete, 1), 0, nil, ErrNoCandidate, models.OutcomeReject, models.ReasonNoCandidate},
		{"other build error", label(models.IntentCreate, 1), 1, nil, ErrParseFailure, models.OutcomeReject, models.ReasonParseFailure},
		{"below floor", label(models.IntentCreate, 0.2), 0.2, nil, nil, models.OutcomeReject, models.ReasonLowConfidence},
		{"floor beats ambiguity", label(models.IntentDelete, 1), 0.2, cands(0.2, 0.2), nil, models.OutcomeReject, models.ReasonLowConfidence},
		{"ambiguous", label(models.IntentDelete, 1), 0.85, cands(0.85, 0.85), nil, models.OutcomeClarify, models.ReasonAmbiguousReference},
		{"just under margin", label(models.IntentDelete, 1), 0.9, cands(0.9, 0.76), nil, models.OutcomeClarify, models.ReasonAmbiguousReference},
		{"exactly the margin", label(models.IntentDelete, 1), 0.9, cands(0.9, 0.75), nil, models.OutcomeAccept, models.ReasonNone},
		{"single candidate", label(models.IntentDelete, 1), 0.85, cands(0.85), nil, models.OutcomeAccept, models.ReasonNone},
		{"at accept threshold", label(models.IntentCreate, 1), 0.65, nil, nil, models.OutcomeAccept, models.ReasonNone},
		{"between floor and accept", label(models.IntentCreate, 1), 0.5, nil, nil, models.OutcomeClarify, models.ReasonLowConfidence},
		{"at the floor", label(models.IntentCreate, 1), 0.25, nil, nil, models.OutcomeClarify, models.ReasonLowConfidence},
		{"query needs no candidates", label(models.IntentQuery, 0.7), 0.7, nil, nil, models.OutcomeAccept, models.ReasonNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := p.Decide(tt.intent, Draft{Confidence: tt.conf}, tt.candidates, tt.err)
			if d.Outcome != tt.outcome || d.Reason != tt.reason {
				t.Errorf("got %s/%s, want %s/%s", d.Outcome, d.Reason, tt.outcome, tt.reason)
			}
		})
	}
}

func TestDecide_CreatePlausible(t *testing.T) {
	p := NewDisambiguationPolicy(DefaultPipelineConfig())

	d := p.Decide(label(models.IntentComplete, 0.5), Draft{Confidence: 0.5}, cands(0.9), nil)
	if d.Outcome != models.OutcomeClarify || !d.CreatePlausible {
		t.Errorf("a weak mutation cue should suggest a create, got %+v", d)
	}

	d = p.Decide(label(models.IntentComplete, 1), Draft{Confidence: 0.5}, cands(0.5), nil)
	if d.CreatePlausible {
		t.Errorf("a strong mutation cue with a weak match is not a create, got %+v", d)
	}

	d = p.Decide(label(models.IntentCreate, 0.5), Draft{Confidence: 0.5}, nil, nil)
	if d.CreatePlausible {
		t.Errorf("a create is never flagged, got %+v", d)
	}
}

// Feature: schedy, Property 9: Policy totality
// Every input reaches exactly one terminal state, reject always carries a
// reason and accept never does.
func TestProperty_PolicyTotal(t *testing.T) {
	p := NewDisambiguationPolicy(DefaultPipelineConfig())
	intents := []models.Intent{
		models.IntentCreate, models.IntentComplete, models.IntentDelete,
		models.IntentReschedule, models.IntentQuery, models.IntentUnknown,
	}
	errs := []error{nil, ErrNoTemporalAnchor, ErrNoCandidate, ErrUnknownIntent, ErrParseFailure}

	rapid.Check(t, func(rt *rapid.T) {
		intent := label(rapid.SampledFrom(intents).Draw(rt, "intent"), rapid.Float64Range(0, 1).Draw(rt, "intentConf"))
		conf := rapid.Float64Range(0, 1).Draw(rt, "conf")
		scores := rapid.SliceOfN(rapid.Float64Range(0.3, 1), 0, 5).Draw(rt, "scores")
		err := rapid.SampledFrom(errs).Draw(rt, "err")

		d := p.Decide(intent, Draft{Confidence: conf}, cands(scores...), err)
		switch d.Outcome {
		case models.OutcomeAccept:
			if d.Reason != models.ReasonNone || conf < 0.65 {
				rt.Fatalf("bad accept %+v at %v", d, conf)
			}
		case models.OutcomeClarify:
			if d.Reason == models.ReasonNone || conf < 0.25 {
				rt.Fatalf("bad clarify %+v at %v", d, conf)
			}
		case models.OutcomeReject:
			if d.Reason == models.ReasonNone {
				rt.Fatalf("reject without a reason")
			}
		default:
			rt.Fatalf("unknown outcome %q", d.Outcome)
		}
		if intent.Intent == models.IntentUnknown && d.Outcome != models.OutcomeReject {
			rt.Fatalf("unknown intent reached %s", d.Outcome)
		}
		if err != nil && d.Outcome != models.OutcomeReject {
			rt.Fatalf("build error %v reached %s", err, d.Outcome)
		}
	})
}

func TestReasonFor(t *testing.T) {
	tests := []struct {
		err  error
		want models.Reason
	}{
		{nil, models.ReasonNone},
		{ErrParseFailure, models.ReasonParseFailure},
		{fmt.Errorf("building: %w", ErrNoTemporalAnchor), models.ReasonNoTemporalAnchor},
		{ErrNoCandidate, models.ReasonNoCandidate},
		{ErrAmbiguousReference, models.ReasonAmbiguousReference},
		{ErrUnknownIntent, models.ReasonUnknownIntent},
		{fmt.Errorf("something else"), models.ReasonLowConfidence},
	}
	for _, tt := range tests {
		if got := ReasonFor(tt.err); got != tt.want {
			t.Errorf("ReasonFor(%v) = %q, want %q", tt.err, got, tt.want)
		}
		if tt.err != nil && tt.want != models.ReasonLowConfidence {
			if back := ErrorFor(tt.want); ReasonFor(back) != tt.want {
				t.Errorf("ErrorFor(%q) does not map back", tt.want)
			}
		}
	}
	if ErrorFor(models.ReasonLowConfidence) != nil || ErrorFor(models.ReasonNone) != nil {
		t.Error("non-failure reasons have no error")
	}
}
