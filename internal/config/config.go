// Package config provides configuration management for the parser tools.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"latex-parser/internal/logger"
	"latex-parser/internal/types"
)

const (
	// DefaultConfigFileName is the default configuration file name
	DefaultConfigFileName = "latex-parser-config.json"
	// EnvStrictness overrides the unknown-name policy
	EnvStrictness = "LATEX_PARSER_STRICTNESS"
	// EnvLogLevel overrides the log level
	EnvLogLevel = "LATEX_PARSER_LOG_LEVEL"
	// EnvCheckInvariants turns sibling list checks on or off
	EnvCheckInvariants = "LATEX_PARSER_CHECK_INVARIANTS"
	// DefaultStrictness is the policy for unknown macros and environments
	DefaultStrictness = "warn"
	// DefaultEncoding detects the source encoding from its bytes
	DefaultEncoding = "auto"
	// DefaultLogLevel is the minimum level written to the log
	DefaultLogLevel = "warn"
	// DefaultHistorySize is the number of REPL lines kept between sessions
	DefaultHistorySize = 500
)

var validStrictness = map[string]bool{"strict": true, "warn": true, "silent": true}

// ConfigManager manages application configuration
type ConfigManager struct {
	configPath string
	config     *types.Config
}

// NewConfigManager creates a new ConfigManager with the specified config path.
// If configPath is empty, it uses the default path in user's home directory.
func NewConfigManager(configPath string) (*ConfigManager, error) {
	if configPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			logger.Error("failed to get user home directory", err)
			return nil, types.NewAppError(types.ErrConfig, "failed to get user home directory", err)
		}
		configPath = filepath.Join(homeDir, ".config", "latex-parser", DefaultConfigFileName)
	}

	logger.Debug("ConfigManager initialized", logger.String("configPath", configPath))
	return &ConfigManager{
		configPath: configPath,
		config:     defaultConfig(),
	}, nil
}

// defaultConfig returns a Config with default values
func defaultConfig() *types.Config {
	return &types.Config{
		Strictness:  DefaultStrictness,
		Encoding:    DefaultEncoding,
		LogLevel:    DefaultLogLevel,
		HistorySize: DefaultHistorySize,
	}
}

// Load loads configuration from the config file.
// If the file doesn't exist, it uses default values.
// Environment variables take precedence over the file.
func (m *ConfigManager) Load() error {
	logger.Debug("loading configuration", logger.String("path", m.configPath))

	data, err := os.ReadFile(m.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Debug("config file not found, using defaults", logger.String("path", m.configPath))
			m.config = defaultConfig()
		} else {
			logger.Error("failed to read config file", err, logger.String("path", m.configPath))
			return types.NewAppError(types.ErrConfig, "failed to read config file", err)
		}
	} else {
		config := &types.Config{}
		if err := json.Unmarshal(data, config); err != nil {
			logger.Warn("invalid config file format, using defaults", logger.String("path", m.configPath), logger.Err(err))
			m.config = defaultConfig()
		} else {
			logger.Info("configuration loaded successfully",
				logger.String("path", m.configPath),
				logger.String("strictness", config.Strictness),
				logger.Int("packages", len(config.Packages)))
			m.config = config
		}
	}

	m.applyEnv()
	m.applyDefaults()
	return m.Validate()
}

func (m *ConfigManager) applyEnv() {
	if v := os.Getenv(EnvStrictness); v != "" {
		m.config.Strictness = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		m.config.LogLevel = v
	}
	if v := os.Getenv(EnvCheckInvariants); v != "" {
		on, err := strconv.ParseBool(v)
		if err != nil {
			logger.Warn("ignoring invalid boolean", logger.String("env", EnvCheckInvariants), logger.String("value", v))
			return
		}
		m.config.CheckInvariants = on
	}
}

func (m *ConfigManager) applyDefaults() {
	m.config.Strictness = strings.ToLower(strings.TrimSpace(m.config.Strictness))
	if m.config.Strictness == "" {
		m.config.Strictness = DefaultStrictness
	}
	if m.config.Encoding == "" {
		m.config.Encoding = DefaultEncoding
	}
	if m.config.LogLevel == "" {
		m.config.LogLevel = DefaultLogLevel
	}
	if m.config.HistorySize <= 0 {
		m.config.HistorySize = DefaultHistorySize
	}
}

// Validate reports settings that cannot be applied.
func (m *ConfigManager) Validate() error {
	c := m.GetConfig()
	if !validStrictness[c.Strictness] {
		return types.NewAppErrorWithDetails(types.ErrConfig, "invalid strictness", c.Strictness, nil)
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return types.NewAppError(types.ErrConfig, "invalid log level", err)
	}
	return nil
}

// Save saves the current configuration to the config file.
func (m *ConfigManager) Save() error {
	logger.Debug("saving configuration", logger.String("path", m.configPath))

	dir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		logger.Error("failed to create config directory", err, logger.String("dir", dir))
		return types.NewAppError(types.ErrConfig, "failed to create config directory", err)
	}

	data, err := json.MarshalIndent(m.config, "", "  ")
	if err != nil {
		logger.Error("failed to marshal config", err)
		return types.NewAppError(types.ErrConfig, "failed to marshal config", err)
	}

	if err := os.WriteFile(m.configPath, data, 0644); err != nil {
		logger.Error("failed to write config file", err, logger.String("path", m.configPath))
		return types.NewAppError(types.ErrConfig, "failed to write config file", err)
	}

	logger.Info("configuration saved successfully", logger.String("path", m.configPath))
	return nil
}

// GetConfig returns the current configuration.
func (m *ConfigManager) GetConfig() *types.Config {
	if m.config == nil {
		return defaultConfig()
	}
	return m.config
}

// SetConfig sets the entire configuration.
func (m *ConfigManager) SetConfig(config *types.Config) {
	m.config = config
}

// GetConfigPath returns the path to the config file.
func (m *ConfigManager) GetConfigPath() string {
	return m.configPath
}

// GetStrictness returns the unknown-name policy name.
func (m *ConfigManager) GetStrictness() string {
	if m.config != nil && m.config.Strictness != "" {
		return m.config.Strictness
	}
	return DefaultStrictness
}

// GetPackages returns the packages loaded before every parse.
func (m *ConfigManager) GetPackages() []string {
	if m.config == nil {
		return nil
	}
	return m.config.Packages
}

// GetEncoding returns the source encoding name.
func (m *ConfigManager) GetEncoding() string {
	if m.config != nil && m.config.Encoding != "" {
		return m.config.Encoding
	}
	return DefaultEncoding
}

// GetLogLevel returns the parsed log level, falling back to the default.
func (m *ConfigManager) GetLogLevel() logger.Level {
	name := DefaultLogLevel
	if m.config != nil && m.config.LogLevel != "" {
		name = m.config.LogLevel
	}
	level, err := logger.ParseLevel(name)
	if err != nil {
		level, _ = logger.ParseLevel(DefaultLogLevel)
	}
	return level
}

// LoggerConfig builds the logger configuration for this config.
func (m *ConfigManager) LoggerConfig() *logger.Config {
	lc := logger.DefaultConfig()
	lc.Level = m.GetLogLevel()
	if m.config != nil {
		lc.LogFilePath = m.config.LogFile
	}
	return lc
}

// GetHistoryFile returns the REPL history path; empty disables history.
func (m *ConfigManager) GetHistoryFile() string {
	if m.config != nil && m.config.HistoryFile != "" {
		return m.config.HistoryFile
	}
	return filepath.Join(filepath.Dir(m.configPath), "history")
}

// GetHistorySize returns how many REPL lines are kept.
func (m *ConfigManager) GetHistorySize() int {
	if m.config != nil && m.config.HistorySize > 0 {
		return m.config.HistorySize
	}
	return DefaultHistorySize
}

// UpdateConfig updates the configuration with new values and saves it.
// Empty values leave the current setting unchanged.
func (m *ConfigManager) UpdateConfig(strictness, encoding, logLevel string, packages []string, checkInvariants bool) error {
	logger.Info("updating configuration")
	if m.config == nil {
		m.config = defaultConfig()
	}
	if strictness != "" {
		m.config.Strictness = strictness
	}
	if encoding != "" {
		m.config.Encoding = encoding
	}
	if logLevel != "" {
		m.config.LogLevel = logLevel
	}
	if packages != nil {
		m.config.Packages = packages
	}
	m.config.CheckInvariants = checkInvariants

	if err := m.Validate(); err != nil {
		return err
	}
	return m.Save()
}
