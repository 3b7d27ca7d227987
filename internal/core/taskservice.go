package core

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/valter-silva-au/schedy/pkg/models"
)

// TaskStore is the subset of storage.TaskStore that TaskService needs.
// Defining it here keeps core independent of the storage package.
type TaskStore interface {
	AddTask(task models.Task) error
	UpdateTask(task models.Task) error
	RemoveTask(taskID string) error
	GetTask(taskID string) (*models.Task, error)
	GetAllTasks() ([]models.Task, error)
	KnownTasks() []models.KnownTask
	Load() error
	Save() error
}

// ErrNotAccepted is returned when applying a result the policy did not
// accept.
var ErrNotAccepted = errors.New("result was not accepted")

// Event types written to the event log.
const (
	EventUtteranceProcessed = "utterance.processed"
	EventTaskCreated        = "task.created"
	EventTaskCompleted      = "task.completed"
	EventTaskRescheduled    = "task.rescheduled"
	EventTaskDeleted        = "task.deleted"
)

var mutationEvents = map[models.MutationKind]string{
	models.MutationComplete:   EventTaskCompleted,
	models.MutationReschedule: EventTaskRescheduled,
	models.MutationDelete:     EventTaskDeleted,
}

// TaskService is the caller side of the pipeline: it feeds stored tasks in
// as the reference set and applies accepted results back to the store.
type TaskService interface {
	Interpret(ctx context.Context, text, locale string, ref time.Time) (models.Result, error)
	Apply(res models.Result, now time.Time) (*models.Task, error)
	ApplyChoice(res models.Result, taskID string, now time.Time) (*models.Task, error)
	AddAlias(taskID, alias string) error
	GetAllTasks() ([]models.Task, error)
	GetTasksByStatus(status models.TaskStatus) ([]models.Task, error)
	GetTask(taskID string) (*models.Task, error)
}

type taskService struct {
	processor Processor
	store     TaskStore
	ids       TaskIDGenerator
	events    EventLogger
	logger    *zap.Logger
}

// NewTaskService wires a TaskService. events and logger may be nil.
func NewTaskService(processor Processor, store TaskStore, ids TaskIDGenerator, events EventLogger, logger *zap.Logger) TaskService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &taskService{processor: processor, store: store, ids: ids, events: events, logger: logger}
}

// Interpret runs the pipeline over text with the stored pending tasks as
// known tasks and records the outcome in the event log.
func (s *taskService) Interpret(ctx context.Context, text, locale string, ref time.Time) (models.Result, error) {
	if err := s.store.Load(); err != nil {
		return models.Result{}, fmt.Errorf("interpreting utterance: %w", err)
	}
	res, err := s.processor.Process(ctx, Request{
		Text:       text,
		Reference:  ref,
		Locale:     locale,
		KnownTasks: s.store.KnownTasks(),
	})
	if err != nil {
		return models.Result{}, fmt.Errorf("interpreting utterance: %w", err)
	}

	s.logEvent(EventUtteranceProcessed, map[string]any{
		"text":       text,
		"locale":     res.Locale,
		"intent":     string(res.Intent.Intent),
		"outcome":    string(res.Outcome),
		"reason":     string(res.Reason),
		"confidence": res.Confidence,
		"candidates": len(res.Candidates),
	})
	s.logger.Info("interpreted utterance",
		zap.String("outcome", string(res.Outcome)),
		zap.String("intent", string(res.Intent.Intent)),
		zap.String("reason", string(res.Reason)),
	)
	return res, nil
}

// Apply persists an accepted result. Queries change nothing and return a
// nil task.
func (s *taskService) Apply(res models.Result, now time.Time) (*models.Task, error) {
	if res.Outcome != models.OutcomeAccept {
		return nil, fmt.Errorf("applying %s result: %w", res.Outcome, ErrNotAccepted)
	}
	switch {
	case res.Task != nil:
		return s.create(*res.Task, now)
	case res.Mutation != nil:
		return s.mutate(*res.Mutation, now)
	default:
		return nil, nil
	}
}

// ApplyChoice resolves a clarify result after the user picked one of its
// candidates.
func (s *taskService) ApplyChoice(res models.Result, taskID string, now time.Time) (*models.Task, error) {
	if res.Outcome != models.OutcomeClarify || res.Mutation == nil {
		return nil, fmt.Errorf("applying choice: result is not a clarify on a task change")
	}
	idx := slices.IndexFunc(res.Candidates, func(c models.TaskCandidate) bool { return c.TaskID == taskID })
	if idx < 0 {
		return nil, fmt.Errorf("applying choice: %s is not among the candidates", taskID)
	}
	m := *res.Mutation
	m.TargetID, m.TargetTitle = taskID, res.Candidates[idx].Title
	return s.mutate(m, now)
}

func (s *taskService) create(task models.Task, now time.Time) (*models.Task, error) {
	if err := s.store.Load(); err != nil {
		return nil, fmt.Errorf("creating task: loading store: %w", err)
	}
	id, err := s.ids.GenerateTaskID()
	if err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}
	task.ID = id
	task.Created, task.Updated = now, now

	if err := s.store.AddTask(task); err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}
	if err := s.store.Save(); err != nil {
		return nil, fmt.Errorf("creating task: saving store: %w", err)
	}

	s.logEvent(EventTaskCreated, map[string]any{
		"task_id":  task.ID,
		"title":    task.Title,
		"priority": string(task.Priority),
		"schedule": task.Schedule.String(),
	})
	return &task, nil
}

func (s *taskService) mutate(m models.Mutation, now time.Time) (*models.Task, error) {
	if err := s.store.Load(); err != nil {
		return nil, fmt.Errorf("applying %s: loading store: %w", m.Kind, err)
	}
	task, err := s.store.GetTask(m.TargetID)
	if err != nil {
		return nil, fmt.Errorf("applying %s: %w", m.Kind, err)
	}

	task.History = append(task.History, models.HistoryItem{Kind: m.Kind, SourceUtterance: m.SourceUtterance, At: now})
	task.Updated = now
	switch m.Kind {
	case models.MutationComplete:
		task.Status = models.StatusDone
		err = s.store.UpdateTask(*task)
	case models.MutationReschedule:
		task.Schedule = m.NewSchedule
		err = s.store.UpdateTask(*task)
	case models.MutationDelete:
		err = s.store.RemoveTask(task.ID)
	default:
		err = fmt.Errorf("unknown mutation kind %q", m.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("applying %s to %s: %w", m.Kind, task.ID, err)
	}
	if err := s.store.Save(); err != nil {
		return nil, fmt.Errorf("applying %s: saving store: %w", m.Kind, err)
	}

	s.logEvent(mutationEvents[m.Kind], map[string]any{
		"task_id":  task.ID,
		"title":    task.Title,
		"schedule": task.Schedule.String(),
	})
	return task, nil
}

// AddAlias records another name the user calls a task by, so that later
// references in any language match it.
func (s *taskService) AddAlias(taskID, alias string) error {
	alias = strings.TrimSpace(alias)
	if alias == "" {
		return fmt.Errorf("adding alias: alias must not be empty")
	}
	if err := s.store.Load(); err != nil {
		return fmt.Errorf("adding alias: %w", err)
	}
	task, err := s.store.GetTask(taskID)
	if err != nil {
		return fmt.Errorf("adding alias: %w", err)
	}
	if slices.ContainsFunc(task.Aliases, func(a string) bool { return strings.EqualFold(a, alias) }) {
		return nil
	}
	task.Aliases = append(task.Aliases, alias)
	if err := s.store.UpdateTask(*task); err != nil {
		return fmt.Errorf("adding alias: %w", err)
	}
	return s.store.Save()
}

func (s *taskService) GetAllTasks() ([]models.Task, error) {
	if err := s.store.Load(); err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	return s.store.GetAllTasks()
}

func (s *taskService) GetTasksByStatus(status models.TaskStatus) ([]models.Task, error) {
	all, err := s.GetAllTasks()
	if err != nil {
		return nil, err
	}
	var out []models.Task
	for _, t := range all {
		if t.Status == status {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *taskService) GetTask(taskID string) (*models.Task, error) {
	if err := s.store.Load(); err != nil {
		return nil, fmt.Errorf("getting task: %w", err)
	}
	return s.store.GetTask(taskID)
}

func (s *taskService) logEvent(eventType string, data map[string]any) {
	if s.events == nil {
		return
	}
	if err := s.events.LogEvent(eventType, data); err != nil {
		s.logger.Warn("writing event", zap.String("type", eventType), zap.Error(err))
	}
}
