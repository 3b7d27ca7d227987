package models

import "time"

// TaskStatus represents the current lifecycle state of a task.
type TaskStatus string

const (
	StatusPending TaskStatus = "pending"
	StatusDone    TaskStatus = "done"
)

// Priority represents the urgency level of a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Task is a structured, schedulable task produced from an utterance. ID is
// empty on a freshly built task; the caller assigns one when storing it.
type Task struct {
	ID              string        `yaml:"id" json:"id"`
	Title           string        `yaml:"title" json:"title"`
	Schedule        *Schedule     `yaml:"schedule,omitempty" json:"schedule,omitempty"`
	People          []string      `yaml:"people,omitempty" json:"people,omitempty"`
	Location        string        `yaml:"location,omitempty" json:"location,omitempty"`
	Priority        Priority      `yaml:"priority" json:"priority"`
	Status          TaskStatus    `yaml:"status" json:"status"`
	SourceUtterance string        `yaml:"source_utterance" json:"source_utterance"`
	Confidence      float64       `yaml:"confidence" json:"confidence"`
	Aliases         []string      `yaml:"aliases,omitempty" json:"aliases,omitempty"`
	History         []HistoryItem `yaml:"history,omitempty" json:"history,omitempty"`
	Created         time.Time     `yaml:"created,omitempty" json:"created,omitempty"`
	Updated         time.Time     `yaml:"updated,omitempty" json:"updated,omitempty"`
}

// HistoryItem records one mutation applied to a stored task together with
// the utterance that caused it.
type HistoryItem struct {
	Kind            MutationKind `yaml:"kind" json:"kind"`
	SourceUtterance string       `yaml:"source_utterance" json:"source_utterance"`
	At              time.Time    `yaml:"at" json:"at"`
}

// KnownTask is the minimal view of an existing task that the pipeline
// matches references against.
type KnownTask struct {
	ID      string   `yaml:"id" json:"id"`
	Title   string   `yaml:"title" json:"title"`
	Aliases []string `yaml:"aliases,omitempty" json:"aliases,omitempty"`
}

// Known returns the matching view of a stored task.
func (t Task) Known() KnownTask {
	return KnownTask{ID: t.ID, Title: t.Title, Aliases: t.Aliases}
}

// TaskCandidate is a scored reference into the known-task set.
type TaskCandidate struct {
	TaskID string  `yaml:"task_id" json:"task_id"`
	Title  string  `yaml:"title" json:"title"`
	Score  float64 `yaml:"score" json:"score"`
}
