package core

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// TaskIDGenerator hands out unique, sequential task IDs.
type TaskIDGenerator interface {
	GenerateTaskID() (string, error)
}

// counterFileName holds the last issued task number.
const counterFileName = ".schedy_task_counter"

type fileTaskIDGenerator struct {
	basePath string
	prefix   string
	padWidth int
}

// NewTaskIDGenerator creates a generator that persists its counter in
// basePath. padWidth zero-pads the number; 0 disables padding (TASK-1).
func NewTaskIDGenerator(basePath, prefix string, padWidth int) TaskIDGenerator {
	return &fileTaskIDGenerator{basePath: basePath, prefix: prefix, padWidth: padWidth}
}

// GenerateTaskID increments the counter under an exclusive lock so that
// concurrent CLI and MCP processes never issue the same ID.
func (g *fileTaskIDGenerator) GenerateTaskID() (string, error) {
	if err := os.MkdirAll(g.basePath, 0o750); err != nil {
		return "", fmt.Errorf("creating base path for task counter: %w", err)
	}
	counterPath := filepath.Join(g.basePath, counterFileName)

	unlock, err := lockFile(counterPath + ".lock")
	if err != nil {
		return "", fmt.Errorf("locking task counter: %w", err)
	}
	defer func() { _ = unlock() }()

	counter := 0
	data, err := os.ReadFile(counterPath)
	switch {
	case err == nil:
		trimmed := strings.TrimSpace(string(data))
		if counter, err = strconv.Atoi(trimmed); err != nil {
			return "", fmt.Errorf("parsing task counter %q: %w", trimmed, err)
		}
	case !os.IsNotExist(err):
		return "", fmt.Errorf("reading task counter file: %w", err)
	}
	counter++

	if err := os.WriteFile(counterPath, []byte(strconv.Itoa(counter)), 0o600); err != nil {
		return "", fmt.Errorf("writing task counter file: %w", err)
	}
	return FormatTaskID(g.prefix, g.padWidth, counter), nil
}

// FormatTaskID renders a task number, e.g. TASK-00042.
func FormatTaskID(prefix string, padWidth, n int) string {
	if padWidth > 0 {
		return fmt.Sprintf("%s-%0*d", prefix, padWidth, n)
	}
	return fmt.Sprintf("%s-%d", prefix, n)
}
