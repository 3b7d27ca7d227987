package models

// Intent is the action class of an utterance.
type Intent string

const (
	IntentCreate     Intent = "create"
	IntentComplete   Intent = "complete"
	IntentDelete     Intent = "delete"
	IntentReschedule Intent = "reschedule"
	IntentQuery      Intent = "query"
	IntentUnknown    Intent = "unknown"
)

// IsMutation reports whether the intent changes an existing task.
func (i Intent) IsMutation() bool {
	return i == IntentComplete || i == IntentDelete || i == IntentReschedule
}

// IntentLabel is an intent together with the classifier's confidence.
type IntentLabel struct {
	Intent     Intent  `yaml:"intent" json:"intent"`
	Confidence float64 `yaml:"confidence" json:"confidence"`
}

// MutationKind names the change a mutation applies.
type MutationKind string

const (
	MutationComplete   MutationKind = "complete"
	MutationDelete     MutationKind = "delete"
	MutationReschedule MutationKind = "reschedule"
)

// Mutation is a change to an existing task. TargetID is empty when the
// reference could not be resolved to a single task.
type Mutation struct {
	Kind            MutationKind `yaml:"kind" json:"kind"`
	TargetID        string       `yaml:"target_id" json:"target_id"`
	TargetTitle     string       `yaml:"target_title,omitempty" json:"target_title,omitempty"`
	NewSchedule     *Schedule    `yaml:"new_schedule,omitempty" json:"new_schedule,omitempty"`
	SourceUtterance string       `yaml:"source_utterance" json:"source_utterance"`
	Confidence      float64      `yaml:"confidence" json:"confidence"`
}

// Query is a read-only question about the task list.
type Query struct {
	Subject    string          `yaml:"subject,omitempty" json:"subject,omitempty"`
	Window     *TimeWindow     `yaml:"window,omitempty" json:"window,omitempty"`
	Recurrence *Recurrence     `yaml:"recurrence,omitempty" json:"recurrence,omitempty"`
	Matches    []TaskCandidate `yaml:"matches,omitempty" json:"matches,omitempty"`
}

// Outcome is the terminal state of the disambiguation policy.
type Outcome string

const (
	OutcomeAccept  Outcome = "accept"
	OutcomeClarify Outcome = "clarify"
	OutcomeReject  Outcome = "reject"
)

// Reason is a machine-readable code explaining a clarify or reject outcome.
type Reason string

const (
	ReasonNone               Reason = ""
	ReasonParseFailure       Reason = "parse_failure"
	ReasonNoTemporalAnchor   Reason = "no_temporal_anchor"
	ReasonNoCandidate        Reason = "no_candidate"
	ReasonAmbiguousReference Reason = "ambiguous_reference"
	ReasonUnknownIntent      Reason = "unknown_intent"
	ReasonLowConfidence      Reason = "low_confidence"
	ReasonTextTruncated      Reason = "text_truncated"
)

// Result is the outcome of understanding one utterance. Exactly one of
// Task, Mutation and Query is set when the intent is known.
type Result struct {
	Outcome         Outcome         `yaml:"outcome" json:"outcome"`
	Reason          Reason          `yaml:"reason,omitempty" json:"reason,omitempty"`
	Intent          IntentLabel     `yaml:"intent" json:"intent"`
	Task            *Task           `yaml:"task,omitempty" json:"task,omitempty"`
	Mutation        *Mutation       `yaml:"mutation,omitempty" json:"mutation,omitempty"`
	Query           *Query          `yaml:"query,omitempty" json:"query,omitempty"`
	Candidates      []TaskCandidate `yaml:"candidates,omitempty" json:"candidates,omitempty"`
	Confidence      float64         `yaml:"confidence" json:"confidence"`
	CreatePlausible bool            `yaml:"create_plausible,omitempty" json:"create_plausible,omitempty"`
	SourceText      string          `yaml:"source_text" json:"source_text"`
	Locale          string          `yaml:"locale" json:"locale"`
	Warnings        []Reason        `yaml:"warnings,omitempty" json:"warnings,omitempty"`
}
