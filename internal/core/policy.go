package core

import (
	"errors"

	"github.com/valter-silva-au/schedy/pkg/models"
)

// Decision is the terminal state reached by the disambiguation policy.
type Decision struct {
	Outcome models.Outcome
	Reason  models.Reason
	// CreatePlausible is set on a clarify when the utterance might have
	// been meant as a new task rather than a change to an existing one.
	CreatePlausible bool
}

// DisambiguationPolicy is the single gate that turns a draft into an
// accept, clarify or reject decision.
type DisambiguationPolicy interface {
	Decide(intent IntentResult, draft Draft, candidates []models.TaskCandidate, buildErr error) Decision
}

type thresholdPolicy struct {
	accept float64
	floor  float64
	margin float64
}

// NewDisambiguationPolicy creates the policy with the configured accept
// threshold, clarify floor and separation margin.
func NewDisambiguationPolicy(cfg models.PipelineConfig) DisambiguationPolicy {
	return &thresholdPolicy{
		accept: cfg.AcceptThreshold,
		floor:  cfg.ClarifyFloor,
		margin: cfg.SeparationMargin,
	}
}

// Decide evaluates the rules in order; the first that applies is final.
func (p *thresholdPolicy) Decide(intent IntentResult, draft Draft, candidates []models.TaskCandidate, buildErr error) Decision {
	switch {
	case intent.Intent == models.IntentUnknown || errors.Is(buildErr, ErrUnknownIntent):
		return Decision{Outcome: models.OutcomeReject, Reason: models.ReasonUnknownIntent}
	case errors.Is(buildErr, ErrNoTemporalAnchor):
		return Decision{Outcome: models.OutcomeReject, Reason: models.ReasonNoTemporalAnchor}
	case intent.Intent.IsMutation() && (len(candidates) == 0 || errors.Is(buildErr, ErrNoCandidate)):
		return Decision{Outcome: models.OutcomeReject, Reason: models.ReasonNoCandidate}
	case buildErr != nil:
		return Decision{Outcome: models.OutcomeReject, Reason: ReasonFor(buildErr)}
	case draft.Confidence < p.floor:
		return Decision{Outcome: models.OutcomeReject, Reason: models.ReasonLowConfidence}
	case intent.Intent.IsMutation() && !p.separated(candidates):
		return Decision{Outcome: models.OutcomeClarify, Reason: models.ReasonAmbiguousReference}
	case draft.Confidence >= p.accept:
		return Decision{Outcome: models.OutcomeAccept}
	default:
		return Decision{
			Outcome:         models.OutcomeClarify,
			Reason:          models.ReasonLowConfidence,
			CreatePlausible: intent.Intent != models.IntentCreate && intent.Confidence < p.accept,
		}
	}
}

// separated reports whether the top candidate clears the runner-up by at
// least the separation margin.
func (p *thresholdPolicy) separated(candidates []models.TaskCandidate) bool {
	if len(candidates) < 2 {
		return true
	}
	return round4(candidates[0].Score-candidates[1].Score) >= p.margin
}
