package models

import "time"

// PipelineConfig holds the tunable constants of the understanding pipeline.
type PipelineConfig struct {
	AcceptThreshold     float64 `yaml:"accept_threshold" mapstructure:"accept_threshold" validate:"gt=0,lte=1"`
	ClarifyFloor        float64 `yaml:"clarify_floor" mapstructure:"clarify_floor" validate:"gte=0,ltfield=AcceptThreshold"`
	SeparationMargin    float64 `yaml:"separation_margin" mapstructure:"separation_margin" validate:"gte=0,lte=1"`
	TopK                int     `yaml:"top_k" mapstructure:"top_k" validate:"gte=1,lte=50"`
	MinCandidateScore   float64 `yaml:"min_candidate_score" mapstructure:"min_candidate_score" validate:"gte=0,lte=1"`
	ConflictPenalty     float64 `yaml:"conflict_penalty" mapstructure:"conflict_penalty" validate:"gte=0,lte=1"`
	FuzzyFloor          float64 `yaml:"fuzzy_floor" mapstructure:"fuzzy_floor" validate:"gt=0,lte=1"`
	StemMatchConfidence float64 `yaml:"stem_match_confidence" mapstructure:"stem_match_confidence" validate:"gt=0,lte=1"`
	QuestionConfidence  float64 `yaml:"question_confidence" mapstructure:"question_confidence" validate:"gte=0,lte=1"`
	UntitledConfidence  float64 `yaml:"untitled_confidence" mapstructure:"untitled_confidence" validate:"gte=0,lte=1"`
	ResidualWeight      float64 `yaml:"residual_weight" mapstructure:"residual_weight" validate:"gte=0,lte=1"`
	SoftTokenFloor      float64 `yaml:"soft_token_floor" mapstructure:"soft_token_floor" validate:"gt=0,lte=1"`
	RollPastTimes       bool    `yaml:"roll_past_times" mapstructure:"roll_past_times"`
	MaxTextRunes        int     `yaml:"max_text_runes" mapstructure:"max_text_runes" validate:"gte=1"`

	// EventDuration is given to instants that carry no window of their
	// own. Zero leaves them open-ended.
	EventDuration time.Duration `yaml:"event_duration" mapstructure:"event_duration" validate:"gte=0,lte=24h"`
}

// LocaleConfig selects the default lexicon and the time zone used to
// interpret the reference instant.
type LocaleConfig struct {
	Default  string `yaml:"default" mapstructure:"default" validate:"required"`
	Timezone string `yaml:"timezone" mapstructure:"timezone" validate:"required"`
}

// LexiconConfig points at an optional directory of lexicon overrides.
type LexiconConfig struct {
	Dir string `yaml:"dir,omitempty" mapstructure:"dir"`
}

// StoreConfig configures the caller-side YAML task store.
type StoreConfig struct {
	File string `yaml:"file" mapstructure:"file" validate:"required"`
}

// TaskIDConfig configures task ID generation.
type TaskIDConfig struct {
	Prefix   string `yaml:"prefix" mapstructure:"prefix" validate:"required,alphanum,uppercase,max=10"`
	PadWidth int    `yaml:"pad_width" mapstructure:"pad_width" validate:"gte=0,lte=10"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level" validate:"oneof=debug info warn error"`
}

// EventsConfig configures the JSONL event log.
type EventsConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	File    string `yaml:"file" mapstructure:"file" validate:"required_if=Enabled true"`
}

// AlertConfig holds thresholds for the alert engine.
type AlertConfig struct {
	RejectRate    float64 `yaml:"reject_rate" mapstructure:"reject_rate" validate:"gte=0,lte=1"`
	ClarifyRate   float64 `yaml:"clarify_rate" mapstructure:"clarify_rate" validate:"gte=0,lte=1"`
	MinConfidence float64 `yaml:"min_confidence" mapstructure:"min_confidence" validate:"gte=0,lte=1"`
	MinSamples    int     `yaml:"min_samples" mapstructure:"min_samples" validate:"gte=1"`

	// SlackWebhookURL enables `schedy alerts --notify` when set.
	SlackWebhookURL string `yaml:"slack_webhook_url,omitempty" mapstructure:"slack_webhook_url" validate:"omitempty,url"`
}

// Config is the full configuration read from .schedyconfig.
type Config struct {
	Pipeline PipelineConfig `yaml:"pipeline" mapstructure:"pipeline"`
	Locale   LocaleConfig   `yaml:"locale" mapstructure:"locale"`
	Lexicon  LexiconConfig  `yaml:"lexicon" mapstructure:"lexicon"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	TaskID   TaskIDConfig   `yaml:"task_id" mapstructure:"task_id"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
	Events   EventsConfig   `yaml:"events" mapstructure:"events"`
	Alerts   AlertConfig    `yaml:"alerts" mapstructure:"alerts"`
}
