// Package config holds the simulator configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds the settings of a simulation run.
type Config struct {
	// MemorySize is the size of simulated memory in bytes.
	// Default: 16 MiB.
	MemorySize uint32 `json:"memory_size"`

	// QuantumSize is the number of rounds each RunQuantum call retires.
	// Default: 1000.
	QuantumSize int `json:"quantum_size"`

	// MaxQuanta bounds a non-interactive run. Default: 80000.
	MaxQuanta int `json:"max_quanta"`

	// CosimRetryLimit is the number of instructions that may retire while
	// waiting for the next expected event. Default: 500.
	CosimRetryLimit int `json:"cosim_retry_limit"`

	// StopOnMismatch ends a cosimulation run at the first mismatch.
	StopOnMismatch bool `json:"stop_on_mismatch"`

	// Trace prints every side effect as it happens.
	Trace bool `json:"trace"`

	// LogLevel is a logrus level name. Default: "info".
	LogLevel string `json:"log_level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		MemorySize:      0x1000000,
		QuantumSize:     1000,
		MaxQuanta:       80000,
		CosimRetryLimit: 500,
		StopOnMismatch:  true,
		Trace:           false,
		LogLevel:        "info",
	}
}

// LoadConfig loads a Config from a JSON file. Fields missing from the file
// keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a Config to a JSON file.
func (c *Config) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks that every value is usable.
func (c *Config) Validate() error {
	if c.MemorySize == 0 || c.MemorySize%64 != 0 {
		return fmt.Errorf("%w: memory_size must be a non-zero multiple of 64", ErrInvalidConfig)
	}
	if c.QuantumSize <= 0 {
		return fmt.Errorf("%w: quantum_size must be > 0", ErrInvalidConfig)
	}
	if c.MaxQuanta <= 0 {
		return fmt.Errorf("%w: max_quanta must be > 0", ErrInvalidConfig)
	}
	if c.CosimRetryLimit <= 0 {
		return fmt.Errorf("%w: cosim_retry_limit must be > 0", ErrInvalidConfig)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Clone returns a copy of the Config.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// NewLogger creates a logger at the configured level. An unknown level
// falls back to info.
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	return logger
}
