package core

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/valter-silva-au/schedy/pkg/models"
)

// Request is one utterance to understand together with its context.
type Request struct {
	Text       string
	Reference  time.Time
	Locale     string
	KnownTasks []models.KnownTask
}

// Processor understands a single utterance.
type Processor interface {
	Process(ctx context.Context, req Request) (models.Result, error)
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger used for per-utterance debug output.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// Pipeline chains the normalizer, the temporal resolver, the intent
// classifier, the reference matcher, the task builder and the
// disambiguation policy. It holds no mutable state and is safe for
// concurrent use.
type Pipeline struct {
	cfg        models.PipelineConfig
	normalizer Normalizer
	temporal   TemporalResolver
	intents    IntentClassifier
	matcher    ReferenceMatcher
	builder    TaskBuilder
	policy     DisambiguationPolicy
	logger     *zap.Logger
}

// DefaultPipelineConfig returns the default thresholds.
func DefaultPipelineConfig() models.PipelineConfig {
	return models.PipelineConfig{
		AcceptThreshold:     0.65,
		ClarifyFloor:        0.25,
		SeparationMargin:    0.15,
		TopK:                5,
		MinCandidateScore:   0.3,
		ConflictPenalty:     0.3,
		FuzzyFloor:          0.7,
		StemMatchConfidence: 0.8,
		QuestionConfidence:  0.7,
		UntitledConfidence:  0.5,
		ResidualWeight:      0.7,
		SoftTokenFloor:      0.75,
		RollPastTimes:       true,
		MaxTextRunes:        1000,
		EventDuration:       time.Hour,
	}
}

// NewPipeline validates cfg and assembles the components.
func NewPipeline(lexicons *LexiconSet, cfg models.PipelineConfig, opts ...Option) (*Pipeline, error) {
	if lexicons == nil {
		return nil, fmt.Errorf("creating pipeline: lexicon set is nil")
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("creating pipeline: invalid config: %w", err)
	}

	normalizer := NewNormalizer(lexicons, cfg.MaxTextRunes)
	p := &Pipeline{
		cfg:        cfg,
		normalizer: normalizer,
		temporal:   NewTemporalResolver(cfg.RollPastTimes),
		intents:    NewIntentClassifier(cfg),
		matcher:    NewReferenceMatcher(normalizer, cfg),
		builder:    NewTaskBuilder(cfg),
		policy:     NewDisambiguationPolicy(cfg),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Config returns the thresholds the pipeline was built with.
func (p *Pipeline) Config() models.PipelineConfig { return p.cfg }

// ProcessText understands text against no known tasks.
func (p *Pipeline) ProcessText(ctx context.Context, text string, ref time.Time) (models.Result, error) {
	return p.Process(ctx, Request{Text: text, Reference: ref})
}

// Process understands one utterance. The only error it returns is the
// context's; every understanding failure is expressed in the result.
func (p *Pipeline) Process(ctx context.Context, req Request) (models.Result, error) {
	if err := ctx.Err(); err != nil {
		return models.Result{}, err
	}

	a := p.normalizer.Normalize(req.Text, req.Locale)
	signals := NewSignals(a, p.intents.Classify(a), p.temporal.Resolve(a, req.Reference), DetectUrgency(a))

	var candidates []models.TaskCandidate
	if needsReference(signals.Intent.Intent) {
		candidates = p.matcher.Match(signals.Residual(), req.KnownTasks)
	}

	draft, buildErr := p.builder.Build(signals, candidates)
	decision := p.policy.Decide(signals.Intent, draft, candidates, buildErr)

	res := models.Result{
		Outcome:         decision.Outcome,
		Reason:          decision.Reason,
		Intent:          signals.Intent.IntentLabel,
		Task:            draft.Task,
		Mutation:        draft.Mutation,
		Query:           draft.Query,
		Candidates:      candidates,
		Confidence:      draft.Confidence,
		CreatePlausible: decision.CreatePlausible,
		SourceText:      req.Text,
		Locale:          a.Locale,
		Warnings:        a.Warnings,
	}
	if res.Outcome == models.OutcomeClarify && res.Reason == models.ReasonAmbiguousReference && res.Mutation != nil {
		res.Mutation.TargetID, res.Mutation.TargetTitle = "", ""
	}

	p.logger.Debug("utterance processed",
		zap.String("locale", res.Locale),
		zap.String("intent", string(res.Intent.Intent)),
		zap.String("outcome", string(res.Outcome)),
		zap.String("reason", string(res.Reason)),
		zap.Float64("confidence", res.Confidence),
		zap.Int("candidates", len(candidates)),
		zap.Bool("fallback", a.Fallback),
	)
	return res, nil
}

// needsReference reports whether the intent is resolved against known
// tasks. Queries are matched too, so "what about the workout?" lists it.
func needsReference(i models.Intent) bool {
	return i.IsMutation() || i == models.IntentQuery
}
