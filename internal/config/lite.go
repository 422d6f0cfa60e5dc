// Package config provides configuration management for the reasoning
// server. This file contains the lightweight configuration used by the
// stdio MCP server and the command-line tool, which read only environment
// variables and need no config file or database.
package config

import (
	"os"
	"path/filepath"

	"github.com/thirdop-reasoning-server/internal/domain"
)

// LiteConfig is a simplified configuration for standalone operation.
type LiteConfig struct {
	// Data storage
	DataDir string // Base directory for data files

	// Generation backends. Zero-valued fields are filled with client
	// defaults at construction time.
	Ollama    domain.OllamaConfig // Nephrology backend
	AnyReport domain.OllamaConfig // Any-report backend

	// RiskModelURL is the optional risk predictor endpoint. Empty disables
	// the assess_risk tool's backing client.
	RiskModelURL string

	// Logging
	LogLevel  string // Log level: debug, info, warn, error
	LogFormat string // Log format: json, text
}

// DefaultLiteConfig returns a configuration with sensible defaults.
func DefaultLiteConfig() *LiteConfig {
	homeDir, _ := os.UserHomeDir()

	return &LiteConfig{
		DataDir:   filepath.Join(homeDir, ".thirdop-reasoning"),
		LogLevel:  "info",
		LogFormat: "json",
	}
}

// LoadLiteConfig loads configuration from environment variables.
// Falls back to defaults if not set.
func LoadLiteConfig() *LiteConfig {
	cfg := DefaultLiteConfig()

	// Data directory
	if v := os.Getenv("THIRDOP_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}

	// Nephrology backend, from the original OLLAMA_MEDGEMMA_* variables
	cfg.Ollama.URL = os.Getenv("OLLAMA_MEDGEMMA_URL")
	cfg.Ollama.Model = os.Getenv("OLLAMA_MEDGEMMA_MODEL")
	if d, ok := legacyTimeout(os.Getenv("OLLAMA_MEDGEMMA_TIMEOUT")); ok {
		cfg.Ollama.Timeout = d
	}

	// Any-report backend starts from the nephrology values; unset
	// OLLAMA_GENERIC_* variables leave both backends identical.
	cfg.AnyReport = cfg.Ollama
	if v := os.Getenv("OLLAMA_GENERIC_URL"); v != "" {
		cfg.AnyReport.URL = v
	}
	if v := os.Getenv("OLLAMA_GENERIC_MODEL"); v != "" {
		cfg.AnyReport.Model = v
	}
	if d, ok := legacyTimeout(os.Getenv("OLLAMA_GENERIC_TIMEOUT")); ok {
		cfg.AnyReport.Timeout = d
	}

	// Risk model
	if v := os.Getenv("THIRDOP_RISK_MODEL_URL"); v != "" {
		cfg.RiskModelURL = v
	}

	// Logging
	if v := os.Getenv("THIRDOP_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("THIRDOP_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}

	return cfg
}

// FeedbackDBPath returns the path to the feedback SQLite database.
func (c *LiteConfig) FeedbackDBPath() string {
	return filepath.Join(c.DataDir, "feedback.db")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *LiteConfig) EnsureDataDir() error {
	return os.MkdirAll(c.DataDir, 0755)
}
