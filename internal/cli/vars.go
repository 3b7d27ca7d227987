package cli

import (
	"time"

	"go.uber.org/zap"

	"github.com/valter-silva-au/schedy/internal/core"
	"github.com/valter-silva-au/schedy/internal/observability"
	"github.com/valter-silva-au/schedy/pkg/models"
)

// Service instances, set during app initialization in app.go.
var (
	BasePath string
	Config   *models.Config
	Location = time.UTC

	Pipeline core.Processor
	Tasks    core.TaskService

	EventLog    observability.EventLog
	AlertEngine observability.AlertEngine
	MetricsCalc observability.MetricsCalculator
	Notifier    observability.Notifier

	Logger   = zap.NewNop()
	LogLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
)

// now is the wall clock; tests replace it.
var now = time.Now
