// Package core contains the voice-command understanding pipeline for
// schedy: normalization, temporal resolution, intent classification,
// task reference matching, task building and the disambiguation policy,
// plus configuration, batch processing and the caller-side task service.
package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/valter-silva-au/schedy/pkg/models"
)

// ConfigFileName is the name of the configuration file in the base path.
const ConfigFileName = ".schedyconfig"

// ConfigurationManager loads and validates the schedy configuration.
type ConfigurationManager interface {
	LoadConfig() (*models.Config, error)
	ValidateConfig(cfg *models.Config) error
}

type viperConfigManager struct {
	basePath string
	validate *validator.Validate
}

// NewConfigurationManager creates a ConfigurationManager that reads
// .schedyconfig from basePath. Environment variables prefixed with
// SCHEDY_ override file values (pipeline.top_k becomes SCHEDY_PIPELINE_TOP_K).
func NewConfigurationManager(basePath string) ConfigurationManager {
	return &viperConfigManager{basePath: basePath, validate: validator.New()}
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *models.Config {
	return &models.Config{
		Pipeline: DefaultPipelineConfig(),
		Locale:   models.LocaleConfig{Default: "ru", Timezone: "Europe/Moscow"},
		Store:    models.StoreConfig{File: "tasks.yaml"},
		TaskID:   models.TaskIDConfig{Prefix: "TASK", PadWidth: 5},
		Log:      models.LogConfig{Level: "info"},
		Events:   models.EventsConfig{Enabled: true, File: ".schedy_events.jsonl"},
		Alerts: models.AlertConfig{
			RejectRate:    0.5,
			ClarifyRate:   0.5,
			MinConfidence: 0.5,
			MinSamples:    10,
		},
	}
}

func setDefaults(v *viper.Viper, cfg *models.Config) {
	p := cfg.Pipeline
	v.SetDefault("pipeline.accept_threshold", p.AcceptThreshold)
	v.SetDefault("pipeline.clarify_floor", p.ClarifyFloor)
	v.SetDefault("pipeline.separation_margin", p.SeparationMargin)
	v.SetDefault("pipeline.top_k", p.TopK)
	v.SetDefault("pipeline.min_candidate_score", p.MinCandidateScore)
	v.SetDefault("pipeline.conflict_penalty", p.ConflictPenalty)
	v.SetDefault("pipeline.fuzzy_floor", p.FuzzyFloor)
	v.SetDefault("pipeline.stem_match_confidence", p.StemMatchConfidence)
	v.SetDefault("pipeline.question_confidence", p.QuestionConfidence)
	v.SetDefault("pipeline.untitled_confidence", p.UntitledConfidence)
	v.SetDefault("pipeline.residual_weight", p.ResidualWeight)
	v.SetDefault("pipeline.soft_token_floor", p.SoftTokenFloor)
	v.SetDefault("pipeline.roll_past_times", p.RollPastTimes)
	v.SetDefault("pipeline.max_text_runes", p.MaxTextRunes)
	v.SetDefault("pipeline.event_duration", p.EventDuration)

	v.SetDefault("locale.default", cfg.Locale.Default)
	v.SetDefault("locale.timezone", cfg.Locale.Timezone)
	v.SetDefault("lexicon.dir", cfg.Lexicon.Dir)
	v.SetDefault("store.file", cfg.Store.File)
	v.SetDefault("task_id.prefix", cfg.TaskID.Prefix)
	v.SetDefault("task_id.pad_width", cfg.TaskID.PadWidth)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("events.enabled", cfg.Events.Enabled)
	v.SetDefault("events.file", cfg.Events.File)
	v.SetDefault("alerts.reject_rate", cfg.Alerts.RejectRate)
	v.SetDefault("alerts.clarify_rate", cfg.Alerts.ClarifyRate)
	v.SetDefault("alerts.min_confidence", cfg.Alerts.MinConfidence)
	v.SetDefault("alerts.min_samples", cfg.Alerts.MinSamples)
	v.SetDefault("alerts.slack_webhook_url", cfg.Alerts.SlackWebhookURL)
}

// LoadConfig reads .schedyconfig from the base path. A missing file yields
// the defaults, still subject to environment overrides. The result is
// validated before it is returned.
func (cm *viperConfigManager) LoadConfig() (*models.Config, error) {
	v := viper.New()
	v.SetConfigName(ConfigFileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(cm.basePath)
	v.SetEnvPrefix("SCHEDY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, DefaultConfig())

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading %s: %w", ConfigFileName, err)
		}
	}

	cfg := &models.Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", ConfigFileName, err)
	}
	if err := cm.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ValidateConfig checks field ranges and that the time zone is known.
func (cm *viperConfigManager) ValidateConfig(cfg *models.Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}
	var errs []string
	if err := cm.validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validating config: %w", err)
		}
		for _, fe := range verrs {
			errs = append(errs, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
		}
	}
	if cfg.Locale.Timezone != "" {
		if _, err := time.LoadLocation(cfg.Locale.Timezone); err != nil {
			errs = append(errs, fmt.Sprintf("locale.timezone %q is not a known time zone", cfg.Locale.Timezone))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// Location returns the configured time zone, falling back to UTC.
func Location(cfg *models.Config) *time.Location {
	if cfg == nil || cfg.Locale.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(cfg.Locale.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
