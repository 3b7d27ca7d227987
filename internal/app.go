// Package internal provides the App struct that wires all components of
// schedy together and initializes the CLI layer.
package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/valter-silva-au/schedy/internal/cli"
	"github.com/valter-silva-au/schedy/internal/core"
	"github.com/valter-silva-au/schedy/internal/observability"
	"github.com/valter-silva-au/schedy/internal/storage"
	"github.com/valter-silva-au/schedy/pkg/models"
)

// App holds all service dependencies.
type App struct {
	BasePath string
	Config   *models.Config
	Location *time.Location

	Logger   *zap.Logger
	LogLevel zap.AtomicLevel

	ConfigMgr core.ConfigurationManager
	Lexicons  *core.LexiconSet
	Pipeline  *core.Pipeline

	Store storage.TaskStore
	IDGen core.TaskIDGenerator
	Tasks core.TaskService

	EventLog    observability.EventLog
	AlertEngine observability.AlertEngine
	MetricsCalc observability.MetricsCalculator
	Notifier    observability.Notifier
}

// NewApp loads configuration from basePath and wires every component. A
// broken config file or lexicon override is fatal; a missing config file
// is not.
func NewApp(basePath string) (*App, error) {
	app := &App{BasePath: basePath}

	// --- Configuration ---
	app.ConfigMgr = core.NewConfigurationManager(basePath)
	cfg, err := app.ConfigMgr.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	app.Config = cfg
	app.Location = core.Location(cfg)

	// --- Logging ---
	app.Logger, app.LogLevel, err = newLogger(cfg.Log.Level)
	if err != nil {
		return nil, err
	}

	// --- Pipeline ---
	lexDir := cfg.Lexicon.Dir
	if lexDir != "" && !filepath.IsAbs(lexDir) {
		lexDir = filepath.Join(basePath, lexDir)
	}
	app.Lexicons, err = core.LoadLexiconSet(lexDir)
	if err != nil {
		return nil, fmt.Errorf("loading lexicons: %w", err)
	}
	app.Pipeline, err = core.NewPipeline(app.Lexicons, cfg.Pipeline, core.WithLogger(app.Logger.Named("pipeline")))
	if err != nil {
		return nil, err
	}

	// --- Observability ---
	if cfg.Events.Enabled {
		app.EventLog, err = observability.NewJSONLEventLog(resolve(basePath, cfg.Events.File))
		if err != nil {
			// Non-fatal: run without an event log.
			app.Logger.Warn("event log disabled", zap.Error(err))
			app.EventLog = nil
		}
	}
	var events core.EventLogger
	if app.EventLog != nil {
		events = &eventLogAdapter{log: app.EventLog}
		app.AlertEngine = observability.NewAlertEngine(app.EventLog, observability.AlertThresholds{
			RejectRate:    cfg.Alerts.RejectRate,
			ClarifyRate:   cfg.Alerts.ClarifyRate,
			MinConfidence: cfg.Alerts.MinConfidence,
			MinSamples:    cfg.Alerts.MinSamples,
		})
		app.MetricsCalc = observability.NewMetricsCalculator(app.EventLog)
	}
	if cfg.Alerts.SlackWebhookURL != "" {
		app.Notifier = observability.NewSlackNotifier(cfg.Alerts.SlackWebhookURL, nil)
	}

	// --- Task service ---
	app.Store = storage.NewTaskStore(resolve(basePath, cfg.Store.File))
	app.IDGen = core.NewTaskIDGenerator(basePath, cfg.TaskID.Prefix, cfg.TaskID.PadWidth)
	app.Tasks = core.NewTaskService(app.Pipeline, app.Store, app.IDGen, events, app.Logger.Named("tasks"))

	// --- Wire CLI package-level variables ---
	cli.BasePath = basePath
	cli.Config = cfg
	cli.Location = app.Location
	cli.Pipeline = app.Pipeline
	cli.Tasks = app.Tasks
	cli.EventLog = app.EventLog
	cli.AlertEngine = app.AlertEngine
	cli.MetricsCalc = app.MetricsCalc
	cli.Notifier = app.Notifier
	cli.Logger = app.Logger
	cli.LogLevel = app.LogLevel

	return app, nil
}

// newLogger builds a production zap logger writing to stderr whose level
// can be raised later by --verbose.
func newLogger(level string) (*zap.Logger, zap.AtomicLevel, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, zap.AtomicLevel{}, fmt.Errorf("parsing log level: %w", err)
	}
	atom := zap.NewAtomicLevelAt(lvl)
	zcfg := zap.NewProductionConfig()
	zcfg.Level = atom
	zcfg.Encoding = "console"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, err := zcfg.Build()
	if err != nil {
		return nil, zap.AtomicLevel{}, fmt.Errorf("building logger: %w", err)
	}
	return logger, atom, nil
}

func resolve(basePath, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(basePath, p)
}

// Close releases resources held by the App.
func (a *App) Close() error {
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
	if a.EventLog != nil {
		return a.EventLog.Close()
	}
	return nil
}

// ResolveBasePath determines the schedy home directory: SCHEDY_HOME when
// set, otherwise the nearest ancestor of the working directory holding a
// .schedyconfig, otherwise the working directory.
func ResolveBasePath() string {
	if home := os.Getenv("SCHEDY_HOME"); home != "" {
		return home
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "."
	}
	for dir := cwd; ; {
		if _, err := os.Stat(filepath.Join(dir, core.ConfigFileName)); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return cwd
}

// eventLogAdapter adapts observability.EventLog to core.EventLogger.
type eventLogAdapter struct {
	log observability.EventLog
}

func (a *eventLogAdapter) LogEvent(eventType string, data map[string]any) error {
	level := observability.LevelInfo
	if outcome, _ := data["outcome"].(string); outcome == string(models.OutcomeReject) {
		level = observability.LevelWarn
	}
	return a.log.Write(observability.Event{
		Time:    time.Now().UTC(),
		Level:   level,
		Type:    eventType,
		Message: eventType,
		Data:    data,
	})
}
