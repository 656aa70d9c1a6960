// Package config provides configuration loading for the planner CLI and
// service: a plain struct with mapstructure/yaml tags, defaults applied
// after unmarshalling, then struct-tag validation.
package config

import "github.com/spf13/viper"

// PlannerConfig is the top-level configuration for the odrlplan CLI and
// the PlanService it builds.
type PlannerConfig struct {
	// Scope is the odrl.Scope every registration and RuleValidator call
	// is evaluated against. Required.
	Scope string `yaml:"scope" mapstructure:"scope" validate:"required"`

	// Registrations points at a YAML file describing the static,
	// dynamic, and rule-function registrations to load into the
	// planner's Builder before Build().
	Registrations string `yaml:"registrations" mapstructure:"registrations" validate:"required"`

	// RuleValidator configures the CEL expressions backing the
	// planner's RuleValidator collaborator.
	RuleValidator RuleValidatorConfig `yaml:"rule_validator" mapstructure:"rule_validator"`

	// Audit configures where PlanRun audit entries are written.
	Audit AuditConfig `yaml:"audit" mapstructure:"audit"`

	// History configures the SQLite-backed plan-run history store.
	History HistoryConfig `yaml:"history" mapstructure:"history"`

	// Cache configures the in-memory plan cache.
	Cache CacheConfig `yaml:"cache" mapstructure:"cache"`

	// LogLevel controls slog verbosity: debug, info, warn, or error.
	LogLevel string `yaml:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error"`
}

// RuleValidatorConfig holds the two CEL predicates a celfn.RuleValidator
// compiles: one deciding scope membership, one deciding action binding.
type RuleValidatorConfig struct {
	InScopeExpr string `yaml:"in_scope_expr" mapstructure:"in_scope_expr" validate:"required"`
	BoundedExpr string `yaml:"bounded_expr" mapstructure:"bounded_expr" validate:"required"`
}

// AuditConfig configures the planaudit file sink.
type AuditConfig struct {
	// Enabled turns on audit-entry writing. Default: false.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// Path is the JSONL file plan-run entries are appended to.
	Path string `yaml:"path" mapstructure:"path" validate:"required_if=Enabled true"`
}

// HistoryConfig configures the SQLite plan-run history store.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path" validate:"required_if=Enabled true"`
}

// CacheConfig configures the xxhash-keyed plan cache.
type CacheConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	MaxSize int  `yaml:"max_size" mapstructure:"max_size" validate:"omitempty,min=1"`
}

// SetDefaults fills in optional fields left unset after unmarshalling.
func (c *PlannerConfig) SetDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Cache.MaxSize == 0 {
		c.Cache.MaxSize = 1000
	}
}

// bindNestedEnvKeys binds every PlannerConfig key for env var overrides.
func bindNestedEnvKeys() {
	_ = viper.BindEnv("scope")
	_ = viper.BindEnv("registrations")
	_ = viper.BindEnv("rule_validator.in_scope_expr")
	_ = viper.BindEnv("rule_validator.bounded_expr")
	_ = viper.BindEnv("audit.enabled")
	_ = viper.BindEnv("audit.path")
	_ = viper.BindEnv("history.enabled")
	_ = viper.BindEnv("history.path")
	_ = viper.BindEnv("cache.enabled")
	_ = viper.BindEnv("cache.max_size")
	_ = viper.BindEnv("log_level")
}
