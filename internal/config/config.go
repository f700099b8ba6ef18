// Package config loads the engine configuration: defaults, an optional
// YAML file, then environment overrides, in that order.
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath points at an explicit configuration file.
const EnvConfigPath = "NETPROBE_CONFIG"

// Config is the full engine configuration.
type Config struct {
	LLM      LLMConfig      `yaml:"llm"`
	Server   ServerConfig   `yaml:"server"`
	Sessions SessionsConfig `yaml:"sessions"`
	// Timeouts overrides entries of the central per-tool timeout table,
	// keyed by timeout name, in seconds.
	Timeouts map[string]int `yaml:"timeouts"`
	Batch    BatchConfig    `yaml:"batch"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// LLMConfig configures the chat model endpoint.
type LLMConfig struct {
	Host        string  `yaml:"host"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	// TurnTimeout bounds one conversational turn end to end.
	TurnTimeout time.Duration `yaml:"turn_timeout"`
}

// ServerConfig configures the external protocol server.
type ServerConfig struct {
	AuthEnabled bool   `yaml:"auth_enabled"`
	APIKey      string `yaml:"api_key"`
}

// SessionsConfig configures the conversation session manager.
type SessionsConfig struct {
	Capacity    int           `yaml:"capacity"`
	IdleTimeout time.Duration `yaml:"idle_timeout"`
	SweepEvery  time.Duration `yaml:"sweep_every"`
}

// BatchConfig configures the concurrent batch runner defaults.
type BatchConfig struct {
	Workers int `yaml:"workers"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Host:        "http://localhost:11434",
			Model:       "llama3.2",
			Temperature: 0.2,
			TurnTimeout: 120 * time.Second,
		},
		Sessions: SessionsConfig{
			Capacity:    10,
			IdleTimeout: time.Hour,
			SweepEvery:  5 * time.Minute,
		},
		Batch: BatchConfig{
			Workers: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Timeouts: map[string]int{},
	}
}

// Load builds the effective configuration. path may be empty: the
// NETPROBE_CONFIG environment variable is consulted, then the default
// location under the user config directory; a missing file is not an
// error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path == "" {
		if dir, err := os.UserConfigDir(); err == nil {
			candidate := filepath.Join(dir, "netprobe", "config.yaml")
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
			}
		}
	}

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	expanded := os.ExpandEnv(string(data))

	decoder := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("parse config %s: expected a single document", path)
	}
	return nil
}

// applyEnv layers environment overrides on top of file values. These are
// the only environment variables the engine reads outside probe code.
func (c *Config) applyEnv() {
	if v := os.Getenv("OLLAMA_HOST"); v != "" {
		c.LLM.Host = v
	}
	if v := os.Getenv("NETPROBE_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("NETPROBE_AUTH_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			c.Server.AuthEnabled = enabled
		}
	}
	if v := os.Getenv("NETPROBE_API_KEY"); v != "" {
		c.Server.APIKey = v
	}
}

func (c *Config) validate() error {
	if c.Sessions.Capacity < 1 {
		return fmt.Errorf("sessions.capacity must be at least 1, got %d", c.Sessions.Capacity)
	}
	if c.Batch.Workers < 1 {
		return fmt.Errorf("batch.workers must be at least 1, got %d", c.Batch.Workers)
	}
	if c.Server.AuthEnabled && c.Server.APIKey == "" {
		return fmt.Errorf("server.auth_enabled requires server.api_key (or NETPROBE_API_KEY)")
	}
	for name, secs := range c.Timeouts {
		if secs < 1 {
			return fmt.Errorf("timeouts.%s must be at least 1 second, got %d", name, secs)
		}
	}
	return nil
}
