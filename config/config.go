// Package config provides application configuration.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/activityagent/activity"
	"github.com/hupe1980/activityagent/logging"
)

// Supported model providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// ErrMissingCredential is returned by CheckCredential when the selected
// provider has no API key.
var ErrMissingCredential = errors.New("missing model credential")

// Config holds all application configuration.
type Config struct {
	Port            string        `yaml:"port"`
	MaxInputLength  int           `yaml:"max_input_length"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	Model           ModelConfig   `yaml:"model"`
	Agent           AgentConfig   `yaml:"agent"`
	Log             LogConfig     `yaml:"log"`
}

// ModelConfig selects and tunes the model provider.
type ModelConfig struct {
	Provider        string  `yaml:"provider"`
	Name            string  `yaml:"name"` // empty selects the provider default
	Temperature     float64 `yaml:"temperature"`
	MaxTokens       int64   `yaml:"max_tokens"`
	OpenAIAPIKey    string  `yaml:"openai_api_key"`
	AnthropicAPIKey string  `yaml:"anthropic_api_key"`
	BaseURL         string  `yaml:"base_url"`
}

// AgentConfig tunes the agent executor.
type AgentConfig struct {
	Verbose          bool   `yaml:"verbose"`
	MemoryEnabled    bool   `yaml:"memory_enabled"`
	ToolMode         string `yaml:"tool_mode"`
	MaxIterations    int    `yaml:"max_iterations"`
	HandleToolErrors bool   `yaml:"handle_tool_errors"`
	ReturnSteps      bool   `yaml:"return_steps"`
}

// LogConfig controls log output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Port:            "3000",
		MaxInputLength:  2000,
		ShutdownTimeout: 10 * time.Second,
		Model: ModelConfig{
			Provider:    ProviderOpenAI,
			Temperature: 0,
			MaxTokens:   1024,
		},
		Agent: AgentConfig{
			Verbose:       true,
			ToolMode:      string(activity.ModeRender),
			MaxIterations: 15,
		},
		Log: LogConfig{
			Level:  "info",
			Format: logging.FormatJSON,
		},
	}
}

// Load reads configuration from the optional YAML file at path and then from
// environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	var env envReader

	c.Port = env.String("PORT", c.Port)
	c.MaxInputLength = env.Int("MAX_INPUT_LENGTH", c.MaxInputLength)
	c.RequestTimeout = env.Duration("REQUEST_TIMEOUT", c.RequestTimeout)
	c.ShutdownTimeout = env.Duration("SHUTDOWN_TIMEOUT", c.ShutdownTimeout)

	c.Model.Provider = env.String("MODEL_PROVIDER", c.Model.Provider)
	c.Model.Name = env.String("MODEL_NAME", c.Model.Name)
	c.Model.Temperature = env.Float("MODEL_TEMPERATURE", c.Model.Temperature)
	c.Model.MaxTokens = int64(env.Int("MODEL_MAX_TOKENS", int(c.Model.MaxTokens)))
	c.Model.OpenAIAPIKey = env.String("OPENAI_API_KEY", c.Model.OpenAIAPIKey)
	c.Model.AnthropicAPIKey = env.String("ANTHROPIC_API_KEY", c.Model.AnthropicAPIKey)
	c.Model.BaseURL = env.String("MODEL_BASE_URL", c.Model.BaseURL)

	c.Agent.Verbose = env.Bool("AGENT_VERBOSE", c.Agent.Verbose)
	c.Agent.MemoryEnabled = env.Bool("AGENT_MEMORY_ENABLED", c.Agent.MemoryEnabled)
	c.Agent.ToolMode = env.String("AGENT_TOOL_MODE", c.Agent.ToolMode)
	c.Agent.MaxIterations = env.Int("AGENT_MAX_ITERATIONS", c.Agent.MaxIterations)
	c.Agent.HandleToolErrors = env.Bool("AGENT_HANDLE_TOOL_ERRORS", c.Agent.HandleToolErrors)
	c.Agent.ReturnSteps = env.Bool("AGENT_RETURN_STEPS", c.Agent.ReturnSteps)

	c.Log.Level = env.String("LOG_LEVEL", c.Log.Level)
	c.Log.Format = env.String("LOG_FORMAT", c.Log.Format)

	return env.Err()
}

// Validate checks that all configuration fields hold usable values. A missing
// credential is not a validation error; see CheckCredential.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	switch c.Model.Provider {
	case ProviderOpenAI, ProviderAnthropic:
	default:
		return fmt.Errorf("MODEL_PROVIDER must be %q or %q, got %q", ProviderOpenAI, ProviderAnthropic, c.Model.Provider)
	}
	if c.Model.Temperature < 0 || c.Model.Temperature > 2 {
		return fmt.Errorf("MODEL_TEMPERATURE must be within [0, 2], got %v", c.Model.Temperature)
	}
	if c.Model.MaxTokens <= 0 {
		return fmt.Errorf("MODEL_MAX_TOKENS must be > 0")
	}
	if c.Agent.MaxIterations <= 0 {
		return fmt.Errorf("AGENT_MAX_ITERATIONS must be > 0")
	}
	if _, err := activity.ParseMode(c.Agent.ToolMode); err != nil {
		return fmt.Errorf("AGENT_TOOL_MODE: %w", err)
	}
	if c.MaxInputLength < 0 {
		return fmt.Errorf("MAX_INPUT_LENGTH must be >= 0")
	}
	if c.RequestTimeout < 0 || c.ShutdownTimeout < 0 {
		return fmt.Errorf("timeouts must be >= 0")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	switch strings.ToLower(c.Log.Format) {
	case logging.FormatJSON, logging.FormatText, logging.FormatConsole:
	default:
		return fmt.Errorf("LOG_FORMAT must be json, text or console, got %q", c.Log.Format)
	}
	return nil
}

// APIKey returns the credential of the selected provider.
func (c *Config) APIKey() string {
	if c.Model.Provider == ProviderAnthropic {
		return c.Model.AnthropicAPIKey
	}
	return c.Model.OpenAIAPIKey
}

// CheckCredential reports ErrMissingCredential when the selected provider
// has no API key.
func (c *Config) CheckCredential() error {
	if c.APIKey() == "" {
		key := "OPENAI_API_KEY"
		if c.Model.Provider == ProviderAnthropic {
			key = "ANTHROPIC_API_KEY"
		}
		return fmt.Errorf("%w: %s is not set", ErrMissingCredential, key)
	}
	return nil
}
