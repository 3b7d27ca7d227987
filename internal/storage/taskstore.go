package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/valter-silva-au/schedy/pkg/models"
)

// TaskFilter selects tasks. All set fields must match.
type TaskFilter struct {
	Status    []models.TaskStatus
	Priority  []models.Priority
	Recurring *bool
	// Text matches case-insensitively against the title and aliases.
	Text string
}

// TaskFile is the top-level structure of the task store file.
type TaskFile struct {
	Version string                  `yaml:"version"`
	Tasks   map[string]*models.Task `yaml:"tasks"`
}

// TaskStore is the caller-side registry of tasks.
type TaskStore interface {
	AddTask(task models.Task) error
	UpdateTask(task models.Task) error
	RemoveTask(taskID string) error
	GetTask(taskID string) (*models.Task, error)
	GetAllTasks() ([]models.Task, error)
	FilterTasks(filter TaskFilter) ([]models.Task, error)
	KnownTasks() []models.KnownTask
	Load() error
	Save() error
}

const storeVersion = "1.0"

type fileTaskStore struct {
	path string
	data TaskFile
}

// NewTaskStore creates a TaskStore backed by the YAML file at path.
func NewTaskStore(path string) TaskStore {
	return &fileTaskStore{path: path, data: emptyTaskFile()}
}

func emptyTaskFile() TaskFile {
	return TaskFile{Version: storeVersion, Tasks: make(map[string]*models.Task)}
}

func (s *fileTaskStore) AddTask(task models.Task) error {
	if task.ID == "" {
		return fmt.Errorf("adding task: ID must not be empty")
	}
	if _, exists := s.data.Tasks[task.ID]; exists {
		return fmt.Errorf("adding task: task %s already exists", task.ID)
	}
	s.data.Tasks[task.ID] = &task
	return nil
}

// UpdateTask replaces the stored task with the same ID.
func (s *fileTaskStore) UpdateTask(task models.Task) error {
	if _, exists := s.data.Tasks[task.ID]; !exists {
		return fmt.Errorf("updating task: task %s not found", task.ID)
	}
	s.data.Tasks[task.ID] = &task
	return nil
}

func (s *fileTaskStore) RemoveTask(taskID string) error {
	if _, exists := s.data.Tasks[taskID]; !exists {
		return fmt.Errorf("removing task: task %s not found", taskID)
	}
	delete(s.data.Tasks, taskID)
	return nil
}

func (s *fileTaskStore) GetTask(taskID string) (*models.Task, error) {
	task, exists := s.data.Tasks[taskID]
	if !exists {
		return nil, fmt.Errorf("task %s not found", taskID)
	}
	cp := *task
	return &cp, nil
}

// GetAllTasks returns every task ordered by ID.
func (s *fileTaskStore) GetAllTasks() ([]models.Task, error) {
	tasks := make([]models.Task, 0, len(s.data.Tasks))
	for _, t := range s.data.Tasks {
		tasks = append(tasks, *t)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	return tasks, nil
}

func (s *fileTaskStore) FilterTasks(filter TaskFilter) ([]models.Task, error) {
	all, err := s.GetAllTasks()
	if err != nil {
		return nil, err
	}
	var out []models.Task
	for _, t := range all {
		if matchesFilter(t, filter) {
			out = append(out, t)
		}
	}
	return out, nil
}

func matchesFilter(t models.Task, f TaskFilter) bool {
	if len(f.Status) > 0 && !contains(f.Status, t.Status) {
		return false
	}
	if len(f.Priority) > 0 && !contains(f.Priority, t.Priority) {
		return false
	}
	if f.Recurring != nil && t.Schedule.IsRecurring() != *f.Recurring {
		return false
	}
	if f.Text != "" && !mentions(t, strings.ToLower(f.Text)) {
		return false
	}
	return true
}

func contains[T comparable](haystack []T, needle T) bool {
	for _, v := range haystack {
		if v == needle {
			return true
		}
	}
	return false
}

func mentions(t models.Task, needle string) bool {
	if strings.Contains(strings.ToLower(t.Title), needle) {
		return true
	}
	for _, a := range t.Aliases {
		if strings.Contains(strings.ToLower(a), needle) {
			return true
		}
	}
	return false
}

// KnownTasks returns the pending tasks as the reference set for the
// understanding pipeline, ordered by ID.
func (s *fileTaskStore) KnownTasks() []models.KnownTask {
	all, _ := s.GetAllTasks()
	known := make([]models.KnownTask, 0, len(all))
	for _, t := range all {
		if t.Status == models.StatusDone {
			continue
		}
		known = append(known, t.Known())
	}
	return known
}

func (s *fileTaskStore) Load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.data = emptyTaskFile()
			return nil
		}
		return fmt.Errorf("loading tasks: %w", err)
	}
	var tf TaskFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return fmt.Errorf("loading tasks: parsing YAML: %w", err)
	}
	if tf.Tasks == nil {
		tf.Tasks = make(map[string]*models.Task)
	}
	for id, t := range tf.Tasks {
		if t == nil {
			delete(tf.Tasks, id)
			continue
		}
		t.ID = id
	}
	s.data = tf
	return nil
}

// Save replaces the task file atomically via a temporary file and rename.
func (s *fileTaskStore) Save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return fmt.Errorf("saving tasks: creating directory: %w", err)
	}
	data, err := yaml.Marshal(&s.data)
	if err != nil {
		return fmt.Errorf("saving tasks: marshaling YAML: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("saving tasks: writing file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("saving tasks: replacing file: %w", err)
	}
	return nil
}
