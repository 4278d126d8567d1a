package store

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the read-only run configuration. Loaded once at startup; the
// orchestrator never writes it back.
type Config struct {
	AgentType string `yaml:"agent_type"`
	DataDir   string `yaml:"data_dir"`

	DateRange struct {
		InitDate string `yaml:"init_date"`
		EndDate  string `yaml:"end_date"`
	} `yaml:"date_range"`
	Granularity string `yaml:"granularity"` // "day" or "hour"
	// TimeIndexFile is the reference sequence of valid trading hours,
	// required for hour granularity.
	TimeIndexFile string `yaml:"time_index_file"`
	// HistoryFile is the externally maintained price history JSONL used for
	// the session opening message. Defaults under data_dir when empty.
	HistoryFile string `yaml:"history_file"`

	Models []ModelConfig `yaml:"models"`

	Agent struct {
		MaxSteps         int      `yaml:"max_steps"`
		MaxRetries       int      `yaml:"max_retries"`
		BaseDelaySeconds float64  `yaml:"base_delay_seconds"`
		InitialCash      float64  `yaml:"initial_cash"`
		DefaultSymbols   []string `yaml:"default_symbols"`
	} `yaml:"agent"`

	LLM struct {
		Provider    string  `yaml:"provider"`
		Model       string  `yaml:"model"`
		MaxTokens   int     `yaml:"max_tokens"`
		Temperature float32 `yaml:"temperature"`
		System      string  `yaml:"system"`
	} `yaml:"llm"`

	Tools struct {
		Endpoints      map[string]string `yaml:"endpoints"`
		TimeoutSeconds int               `yaml:"timeout_seconds"`
	} `yaml:"tools"`
}

// ModelConfig is one trading identity. Signature scopes a ledger, a log
// directory and a runtime-env file; immutable after registration.
type ModelConfig struct {
	Signature string `yaml:"signature"`
	Basemodel string `yaml:"basemodel"`
	Enabled   bool   `yaml:"enabled"`
}

// Enabled returns the models that will actually run.
func (c *Config) EnabledModels() []ModelConfig {
	out := make([]ModelConfig, 0, len(c.Models))
	for _, m := range c.Models {
		if m.Enabled {
			out = append(out, m)
		}
	}
	return out
}

func (c *Config) Validate() error {
	if c.AgentType == "" {
		return errors.New("agent_type cannot be empty")
	}
	if c.Granularity != "day" && c.Granularity != "hour" {
		return fmt.Errorf("granularity must be 'day' or 'hour', got '%s'", c.Granularity)
	}
	if c.Granularity == "hour" && c.TimeIndexFile == "" {
		return errors.New("time_index_file is required for hour granularity")
	}
	if _, err := time.Parse("2006-01-02", c.DateRange.InitDate); err != nil {
		return fmt.Errorf("invalid date_range.init_date '%s': %w", c.DateRange.InitDate, err)
	}
	if _, err := time.Parse("2006-01-02", c.DateRange.EndDate); err != nil {
		return fmt.Errorf("invalid date_range.end_date '%s': %w", c.DateRange.EndDate, err)
	}
	if len(c.Models) == 0 {
		return errors.New("models cannot be empty")
	}
	for i, m := range c.Models {
		if m.Signature == "" {
			return fmt.Errorf("models[%d].signature cannot be empty", i)
		}
	}
	if c.Agent.MaxSteps <= 0 {
		return fmt.Errorf("agent.max_steps must be positive, got %d", c.Agent.MaxSteps)
	}
	if c.Agent.MaxRetries < 0 {
		return fmt.Errorf("agent.max_retries cannot be negative, got %d", c.Agent.MaxRetries)
	}
	if c.Agent.InitialCash < 0 {
		return fmt.Errorf("agent.initial_cash cannot be negative, got %.2f", c.Agent.InitialCash)
	}
	if len(c.Agent.DefaultSymbols) == 0 {
		return errors.New("agent.default_symbols cannot be empty")
	}
	return nil
}

// LoadConfig reads and validates the yaml config at path. INIT_DATE and
// END_DATE environment variables take precedence over the file values.
func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if c.Granularity == "" {
		c.Granularity = "day"
	}
	if c.Agent.MaxSteps == 0 {
		c.Agent.MaxSteps = 10
	}
	if c.Agent.BaseDelaySeconds == 0 {
		c.Agent.BaseDelaySeconds = 1.0
	}
	if len(c.Agent.DefaultSymbols) == 0 {
		c.Agent.DefaultSymbols = []string{"BTC"}
	}
	if c.Tools.TimeoutSeconds == 0 {
		c.Tools.TimeoutSeconds = 30
	}

	// Environment overrides for the run window.
	if v := os.Getenv("INIT_DATE"); v != "" {
		c.DateRange.InitDate = v
	}
	if v := os.Getenv("END_DATE"); v != "" {
		c.DateRange.EndDate = v
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &c, nil
}
