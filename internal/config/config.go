// Package config provides configuration loading for gatekeeper.
//
// Configuration is layered: hardcoded defaults, then an optional YAML file,
// then environment variables. See LoadWithFile for precedence details.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the complete gatekeeper configuration.
type Config struct {
	Server       ServerConfig       `koanf:"server"`
	Validator    ValidatorConfig    `koanf:"validator"`
	Hooks        HooksConfig        `koanf:"hooks"`
	Scoring      ScoringConfig      `koanf:"scoring"`
	Workflow     WorkflowConfig     `koanf:"workflow"`
	Orchestrator OrchestratorConfig `koanf:"orchestrator"`
	Events       EventsConfig       `koanf:"events"`
	Log          LogConfig          `koanf:"log"`
	Telemetry    TelemetryConfig    `koanf:"telemetry"`
}

// ServerConfig holds HTTP readout server configuration.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// ValidatorConfig configures the pattern validator and its rule catalog.
type ValidatorConfig struct {
	Strict        bool     `koanf:"strict"`
	Gitleaks      bool     `koanf:"gitleaks"`
	DisabledRules []string `koanf:"disabled_rules"`
	RulePacks     []string `koanf:"rule_packs"`
	AllowlistFile string   `koanf:"allowlist_file"`
	PreBudget     Duration `koanf:"pre_budget"`
	PostBudget    Duration `koanf:"post_budget"`

	// Deductions maps quality issue types to the points they cost.
	Deductions    map[string]float64 `koanf:"deductions"`
	PassThreshold float64            `koanf:"pass_threshold"`
}

// HooksConfig configures the hook pipeline.
type HooksConfig struct {
	Strict     bool     `koanf:"strict"`
	PreBudget  Duration `koanf:"pre_budget"`
	PostBudget Duration `koanf:"post_budget"`
}

// ScoringConfig configures the truth scoring aggregator.
type ScoringConfig struct {
	SecurityWeight    float64 `koanf:"security_weight"`
	QualityWeight     float64 `koanf:"quality_weight"`
	PerformanceWeight float64 `koanf:"performance_weight"`

	CriticalPenalty float64 `koanf:"critical_penalty"`
	HighPenalty     float64 `koanf:"high_penalty"`
	MediumPenalty   float64 `koanf:"medium_penalty"`
	SlowPerformance float64 `koanf:"slow_performance"`

	ExcellentThreshold float64 `koanf:"excellent_threshold"`
	WarningThreshold   float64 `koanf:"warning_threshold"`
	CriticalThreshold  float64 `koanf:"critical_threshold"`
	HistorySize        int     `koanf:"history_size"`
}

// WorkflowConfig configures the phase state machine.
type WorkflowConfig struct {
	ArchiveSize int `koanf:"archive_size"`
}

// OrchestratorConfig configures the retry/feedback orchestrator and its
// external executor.
type OrchestratorConfig struct {
	MaxRetries      int      `koanf:"max_retries"`
	Command         string   `koanf:"command"`
	Args            []string `koanf:"args"`
	Timeout         Duration `koanf:"timeout"`
	Strategy        string   `koanf:"strategy"`
	Priority        string   `koanf:"priority"`
	MaxAgents       int      `koanf:"max_agents"`
	AttemptInterval Duration `koanf:"attempt_interval"`
}

// EventsConfig configures optional event forwarding.
type EventsConfig struct {
	NATSURL       string `koanf:"nats_url"`
	NATSToken     Secret `koanf:"nats_token"`
	SubjectPrefix string `koanf:"subject_prefix"`
}

// LogConfig holds the subset of logging settings exposed through config.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// TelemetryConfig holds OpenTelemetry export settings.
type TelemetryConfig struct {
	Enabled     bool   `koanf:"enabled"`
	Endpoint    string `koanf:"endpoint"`
	Protocol    string `koanf:"protocol"`
	Insecure    bool   `koanf:"insecure"`
	ServiceName string `koanf:"service_name"`
}

// Default returns the configuration used when nothing else is provided.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Validate validates the configuration.
//
// Returns an error if:
//   - Server port is not between 1 and 65535
//   - Scoring weights are negative or do not sum to 1
//   - Status thresholds are not ordered critical <= warning <= excellent
//   - Orchestrator max retries is negative
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout.Duration() <= 0 {
		return errors.New("shutdown timeout must be positive")
	}

	s := c.Scoring
	if s.SecurityWeight < 0 || s.QualityWeight < 0 || s.PerformanceWeight < 0 {
		return errors.New("scoring weights must not be negative")
	}
	if sum := s.SecurityWeight + s.QualityWeight + s.PerformanceWeight; sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("scoring weights must sum to 1, got %.3f", sum)
	}
	if !(s.CriticalThreshold <= s.WarningThreshold && s.WarningThreshold <= s.ExcellentThreshold) {
		return fmt.Errorf("scoring thresholds out of order: critical=%.2f warning=%.2f excellent=%.2f",
			s.CriticalThreshold, s.WarningThreshold, s.ExcellentThreshold)
	}
	if s.HistorySize < 1 {
		return errors.New("scoring history_size must be positive")
	}

	if c.Validator.PassThreshold < 0 || c.Validator.PassThreshold > 100 {
		return fmt.Errorf("validator pass_threshold must be 0-100, got %.1f", c.Validator.PassThreshold)
	}
	if c.Orchestrator.MaxRetries < 0 {
		return fmt.Errorf("orchestrator max_retries must be >= 0, got %d", c.Orchestrator.MaxRetries)
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		return fmt.Errorf("log format must be 'json' or 'console', got %q", c.Log.Format)
	}
	return nil
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 9191
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(10 * time.Second)
	}

	if cfg.Validator.PreBudget == 0 {
		cfg.Validator.PreBudget = Duration(50 * time.Millisecond)
	}
	if cfg.Validator.PostBudget == 0 {
		cfg.Validator.PostBudget = Duration(100 * time.Millisecond)
	}
	if cfg.Validator.PassThreshold == 0 {
		cfg.Validator.PassThreshold = 70
	}
	if cfg.Validator.Deductions == nil {
		cfg.Validator.Deductions = map[string]float64{}
	}
	for k, v := range map[string]float64{
		"missing_error_handling": 15,
		"hardcoded_value":        5,
		"potential_memory_leak":  20,
	} {
		if _, ok := cfg.Validator.Deductions[k]; !ok {
			cfg.Validator.Deductions[k] = v
		}
	}

	if cfg.Hooks.PreBudget == 0 {
		cfg.Hooks.PreBudget = Duration(100 * time.Millisecond)
	}
	if cfg.Hooks.PostBudget == 0 {
		cfg.Hooks.PostBudget = Duration(200 * time.Millisecond)
	}

	s := &cfg.Scoring
	if s.SecurityWeight == 0 && s.QualityWeight == 0 && s.PerformanceWeight == 0 {
		s.SecurityWeight, s.QualityWeight, s.PerformanceWeight = 0.5, 0.3, 0.2
	}
	if s.CriticalPenalty == 0 {
		s.CriticalPenalty = 0.3
	}
	if s.HighPenalty == 0 {
		s.HighPenalty = 0.15
	}
	if s.MediumPenalty == 0 {
		s.MediumPenalty = 0.05
	}
	if s.SlowPerformance == 0 {
		s.SlowPerformance = 0.8
	}
	if s.ExcellentThreshold == 0 {
		s.ExcellentThreshold = 0.95
	}
	if s.WarningThreshold == 0 {
		s.WarningThreshold = 0.85
	}
	if s.CriticalThreshold == 0 {
		s.CriticalThreshold = 0.75
	}
	if s.HistorySize == 0 {
		s.HistorySize = 1000
	}

	if cfg.Workflow.ArchiveSize == 0 {
		cfg.Workflow.ArchiveSize = 50
	}

	o := &cfg.Orchestrator
	if o.MaxRetries == 0 {
		o.MaxRetries = 3
	}
	if o.Command == "" {
		o.Command = "claude-flow"
	}
	if o.Timeout == 0 {
		o.Timeout = Duration(10 * time.Minute)
	}
	if o.Strategy == "" {
		o.Strategy = "development"
	}
	if o.Priority == "" {
		o.Priority = "medium"
	}
	if o.MaxAgents == 0 {
		o.MaxAgents = 4
	}

	if cfg.Events.SubjectPrefix == "" {
		cfg.Events.SubjectPrefix = "gatekeeper.events"
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}

	if cfg.Telemetry.Endpoint == "" {
		cfg.Telemetry.Endpoint = "localhost:4317"
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "gatekeeper"
	}
}
