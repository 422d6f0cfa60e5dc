package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/thirdop-reasoning-server/internal/domain"
)

// Manager loads and validates the full server configuration using Viper.
type Manager struct {
	config *domain.Config
}

// NewManager creates a new configuration manager
func NewManager() (*Manager, error) {
	m := &Manager{}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from various sources
func (m *Manager) loadConfig() error {
	// Set configuration file name and paths
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/thirdop-reasoning/")

	// Set environment variable prefix and enable automatic env binding
	viper.SetEnvPrefix("THIRDOP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Set default values
	m.setDefaults()

	// Read configuration file (optional - will use defaults and env vars if not found)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using defaults and environment variables
	}

	// Unmarshal configuration into struct
	config := &domain.Config{}
	if err := viper.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	// The platform's original deployment configured the generation
	// backends through OLLAMA_* variables; those still win over file and
	// THIRDOP_* settings so existing installs keep working.
	ApplyLegacyEnv(config)
	ResolveAnyReportFallback(config)

	if config.Feedback.SQLitePath == "" {
		homeDir, _ := os.UserHomeDir()
		config.Feedback.SQLitePath = filepath.Join(homeDir, ".thirdop-reasoning", "feedback.db")
	}

	m.config = config
	return nil
}

// setDefaults sets default configuration values
func (m *Manager) setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")

	// Nephrology generation backend defaults
	viper.SetDefault("ollama.url", "http://localhost:11434/api/generate")
	viper.SetDefault("ollama.model", "gemma:7b")
	viper.SetDefault("ollama.timeout", "120s")
	viper.SetDefault("ollama.rate_limit", 10)

	// Any-report backend: unset fields fall back to the nephrology backend
	viper.SetDefault("any_report.url", "")
	viper.SetDefault("any_report.model", "")
	viper.SetDefault("any_report.timeout", "0s")
	viper.SetDefault("any_report.rate_limit", 0)

	// Risk model defaults
	viper.SetDefault("risk_model.enabled", false)
	viper.SetDefault("risk_model.url", "http://localhost:5000/predict")
	viper.SetDefault("risk_model.timeout", "30s")
	viper.SetDefault("risk_model.rate_limit", 10)

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.database", "thirdop_reasoning")
	viper.SetDefault("database.username", "postgres")
	viper.SetDefault("database.password", "")
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.max_conns", 10)
	viper.SetDefault("database.min_conns", 2)
	viper.SetDefault("database.conn_max_lifetime", "1h")
	viper.SetDefault("database.conn_max_idle_time", "30m")
	viper.SetDefault("database.migrations_path", "migrations")

	// History defaults
	viper.SetDefault("history.enabled", false)

	// Cache defaults
	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.redis_url", "")
	viper.SetDefault("cache.default_ttl", "15m")
	viper.SetDefault("cache.max_memory_size", 1000)

	// Feedback defaults
	viper.SetDefault("feedback.backend", "sqlite")
	viper.SetDefault("feedback.sqlite_path", "")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output", "stdout")
}

// ApplyLegacyEnv overlays the original OLLAMA_MEDGEMMA_* and
// OLLAMA_GENERIC_* variables onto the loaded configuration. Timeouts in
// these variables are whole seconds, not duration strings.
func ApplyLegacyEnv(config *domain.Config) {
	if v := os.Getenv("OLLAMA_MEDGEMMA_URL"); v != "" {
		config.Ollama.URL = v
	}
	if v := os.Getenv("OLLAMA_MEDGEMMA_MODEL"); v != "" {
		config.Ollama.Model = v
	}
	if d, ok := legacyTimeout(os.Getenv("OLLAMA_MEDGEMMA_TIMEOUT")); ok {
		config.Ollama.Timeout = d
	}

	if v := os.Getenv("OLLAMA_GENERIC_URL"); v != "" {
		config.AnyReport.URL = v
	}
	if v := os.Getenv("OLLAMA_GENERIC_MODEL"); v != "" {
		config.AnyReport.Model = v
	}
	if d, ok := legacyTimeout(os.Getenv("OLLAMA_GENERIC_TIMEOUT")); ok {
		config.AnyReport.Timeout = d
	}
}

func legacyTimeout(v string) (time.Duration, bool) {
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, false
	}
	return time.Duration(n) * time.Second, true
}

// ResolveAnyReportFallback fills unset any-report backend fields from the
// nephrology backend, so a single-backend deployment needs no any-report
// configuration at all.
func ResolveAnyReportFallback(config *domain.Config) {
	if config.AnyReport.URL == "" {
		config.AnyReport.URL = config.Ollama.URL
	}
	if config.AnyReport.Model == "" {
		config.AnyReport.Model = config.Ollama.Model
	}
	if config.AnyReport.Timeout == 0 {
		config.AnyReport.Timeout = config.Ollama.Timeout
	}
	if config.AnyReport.RateLimit == 0 {
		config.AnyReport.RateLimit = config.Ollama.RateLimit
	}
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetServerConfig returns server configuration
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// GetDatabaseConfig returns database configuration
func (m *Manager) GetDatabaseConfig() *domain.DatabaseConfig {
	return &m.config.Database
}

// GetOllamaConfig returns the nephrology generation backend configuration
func (m *Manager) GetOllamaConfig() *domain.OllamaConfig {
	return &m.config.Ollama
}

// GetAnyReportConfig returns the any-report generation backend configuration
func (m *Manager) GetAnyReportConfig() *domain.OllamaConfig {
	return &m.config.AnyReport
}

// Reload reloads the configuration
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	config := m.config

	// Validate server configuration
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	// Validate generation backends
	if config.Ollama.URL == "" {
		return fmt.Errorf("ollama URL is required")
	}
	if config.Ollama.Model == "" {
		return fmt.Errorf("ollama model is required")
	}
	if config.Ollama.Timeout <= 0 {
		return fmt.Errorf("invalid ollama timeout: %s", config.Ollama.Timeout)
	}
	if config.AnyReport.URL == "" {
		return fmt.Errorf("any-report URL is required")
	}

	// Validate risk model configuration
	if config.RiskModel.Enabled && config.RiskModel.URL == "" {
		return fmt.Errorf("risk model URL is required when the risk model is enabled")
	}

	// Validate database configuration when anything persists to it
	if config.History.Enabled || config.Feedback.Backend == "postgres" {
		if config.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if config.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
		if config.Database.Username == "" {
			return fmt.Errorf("database username is required")
		}
	}

	// Validate feedback backend
	switch config.Feedback.Backend {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("invalid feedback backend: %s", config.Feedback.Backend)
	}

	// Validate cache configuration
	if config.Cache.Enabled && config.Cache.DefaultTTL <= 0 {
		return fmt.Errorf("invalid cache TTL: %s", config.Cache.DefaultTTL)
	}

	// Validate logging configuration
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	return nil
}

// GetDatabaseConnectionString returns a formatted database connection string
func (m *Manager) GetDatabaseConnectionString() string {
	db := m.config.Database
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		db.Host, db.Port, db.Username, db.Password, db.Database, db.SSLMode)
}

// IsProduction returns true if running in production mode
func (m *Manager) IsProduction() bool {
	return strings.ToLower(viper.GetString("environment")) == "production"
}

// IsDevelopment returns true if running in development mode
func (m *Manager) IsDevelopment() bool {
	env := strings.ToLower(viper.GetString("environment"))
	return env == "development" || env == "dev" || env == ""
}
