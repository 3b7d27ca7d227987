package core

import (
	"errors"

	"github.com/valter-silva-au/schedy/pkg/models"
)

// Failure taxonomy of the understanding pipeline. None of these abort a
// Process call; each maps onto a reason code of the result.
var (
	ErrParseFailure       = errors.New("utterance could not be tokenized with a lexicon")
	ErrNoTemporalAnchor   = errors.New("no time expression for a reschedule")
	ErrNoCandidate        = errors.New("no known task matches the reference")
	ErrAmbiguousReference = errors.New("reference matches several tasks")
	ErrUnknownIntent      = errors.New("no action recognised")
)

// ReasonFor maps a taxonomy error to its result reason code.
func ReasonFor(err error) models.Reason {
	switch {
	case err == nil:
		return models.ReasonNone
	case errors.Is(err, ErrParseFailure):
		return models.ReasonParseFailure
	case errors.Is(err, ErrNoTemporalAnchor):
		return models.ReasonNoTemporalAnchor
	case errors.Is(err, ErrNoCandidate):
		return models.ReasonNoCandidate
	case errors.Is(err, ErrAmbiguousReference):
		return models.ReasonAmbiguousReference
	case errors.Is(err, ErrUnknownIntent):
		return models.ReasonUnknownIntent
	default:
		return models.ReasonLowConfidence
	}
}

// ErrorFor is the inverse of ReasonFor. It returns nil for reasons that do
// not describe a failure.
func ErrorFor(r models.Reason) error {
	switch r {
	case models.ReasonParseFailure:
		return ErrParseFailure
	case models.ReasonNoTemporalAnchor:
		return ErrNoTemporalAnchor
	case models.ReasonNoCandidate:
		return ErrNoCandidate
	case models.ReasonAmbiguousReference:
		return ErrAmbiguousReference
	case models.ReasonUnknownIntent:
		return ErrUnknownIntent
	default:
		return nil
	}
}
