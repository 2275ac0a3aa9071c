package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigPaths defines the config file search paths in priority order
var ConfigPaths = []string{
	"./.feedcluster.yaml",               // Project-specific config (highest priority)
	"~/.config/feedcluster/config.yaml", // User config
	"/etc/feedcluster/config.yaml",      // System config (lowest priority)
}

// Loader handles configuration loading with priority merging
type Loader struct {
	configPaths []string
}

// NewLoader creates a new config loader
func NewLoader() *Loader {
	return &Loader{
		configPaths: ConfigPaths,
	}
}

// LoadConfig loads configuration from multiple sources with priority order:
// 1. Command line flags (handled by caller)
// 2. Environment variables
// 3. ./.feedcluster.yaml
// 4. ~/.config/feedcluster/config.yaml
// 5. /etc/feedcluster/config.yaml
// 6. Built-in defaults
func (l *Loader) LoadConfig(customPath string) (*Config, error) {
	// Start with defaults
	config := DefaultConfig()

	// If custom path is provided, use only that path
	if customPath != "" {
		// Validate the custom path for security
		if err := validateConfigPath(customPath); err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		if err := l.loadFromFile(config, customPath); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", customPath, err)
		}
	} else {
		// Lowest priority first so later files win
		paths := slices.Clone(l.configPaths)
		slices.Reverse(paths)

		for _, path := range paths {
			expandedPath := ExpandPath(path)
			if !fileExists(expandedPath) {
				continue
			}
			if err := l.loadFromFile(config, expandedPath); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: Failed to load config from %s: %v\n", expandedPath, err)
			}
		}
	}

	// Apply environment variable overrides
	if err := l.applyEnvOverrides(config); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	// Validate the final configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// loadFromFile loads configuration from a YAML file and merges it with existing config
func (l *Loader) loadFromFile(config *Config, path string) error {
	// #nosec G304 - path is validated by validateConfigPath() before reaching here
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	// Create a temporary config to unmarshal into
	var fileConfig Config
	if err := yaml.Unmarshal(data, &fileConfig); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Merge the file config into the existing config
	mergeConfigs(config, &fileConfig)

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config
func (l *Loader) applyEnvOverrides(config *Config) error {
	envMappings := map[string]func(string) error{
		// Input Config
		"FEEDCLUSTER_INPUT_IDENTITY_FIELD":  func(v string) error { config.Input.IdentityField = v; return nil },
		"FEEDCLUSTER_INPUT_EMBEDDING_FIELD": func(v string) error { config.Input.EmbeddingField = v; return nil },

		// Engine Config
		"FEEDCLUSTER_ENGINE_BACKEND":  func(v string) error { config.Engine.Backend = v; return nil },
		"FEEDCLUSTER_ENGINE_ENDPOINT": func(v string) error { config.Engine.Endpoint = v; return nil },
		"FEEDCLUSTER_ENGINE_TIMEOUT":  func(v string) error { return parseDuration(v, &config.Engine.Timeout) },

		// Sweep Config
		"FEEDCLUSTER_SWEEP_WORKERS":   func(v string) error { return parseInt(v, &config.Sweep.Workers) },
		"FEEDCLUSTER_SWEEP_GRID_FILE": func(v string) error { config.Sweep.GridFile = v; return nil },
		"FEEDCLUSTER_SWEEP_TIMEOUT":   func(v string) error { return parseDuration(v, &config.Sweep.Timeout) },

		// Output Config
		"FEEDCLUSTER_OUTPUT_DEFAULT_FORMAT": func(v string) error { config.Output.DefaultFormat = v; return nil },
		"FEEDCLUSTER_OUTPUT_COLOR_MODE":     func(v string) error { config.Output.ColorMode = v; return nil },
		"FEEDCLUSTER_OUTPUT_THEME":          func(v string) error { config.Output.Theme = v; return nil },
		"FEEDCLUSTER_OUTPUT_VERBOSE":        func(v string) error { return parseBool(v, &config.Output.Verbose) },

		// Storage Config
		"FEEDCLUSTER_STORAGE_HISTORY_DB":     func(v string) error { config.Storage.HistoryDB = v; return nil },
		"FEEDCLUSTER_STORAGE_RECORD_HISTORY": func(v string) error { return parseBool(v, &config.Storage.RecordHistory) },

		// AI Config
		"FEEDCLUSTER_AI_PROVIDER":    func(v string) error { config.AI.Provider = v; return nil },
		"FEEDCLUSTER_AI_MODEL":       func(v string) error { config.AI.Model = v; return nil },
		"FEEDCLUSTER_AI_ENDPOINT":    func(v string) error { config.AI.Endpoint = v; return nil },
		"FEEDCLUSTER_AI_API_KEY":     func(v string) error { config.AI.APIKey = v; return nil },
		"FEEDCLUSTER_AI_TIMEOUT":     func(v string) error { return parseDuration(v, &config.AI.Timeout) },
		"FEEDCLUSTER_AI_SAMPLES":     func(v string) error { return parseInt(v, &config.AI.Samples) },
		"FEEDCLUSTER_AI_CONCURRENCY": func(v string) error { return parseInt(v, &config.AI.Concurrency) },
	}

	for envVar, setter := range envMappings {
		if value := os.Getenv(envVar); value != "" {
			if err := setter(value); err != nil {
				return fmt.Errorf("invalid value for %s: %w", envVar, err)
			}
		}
	}

	// OPENAI_API_KEY is honoured when nothing more specific is set
	if config.AI.APIKey == "" && config.AI.Provider == "openai" {
		config.AI.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	return nil
}

// GetConfigPaths returns the list of configuration file paths that will be searched
func GetConfigPaths() []string {
	paths := make([]string, 0, len(ConfigPaths))
	for _, path := range ConfigPaths {
		paths = append(paths, ExpandPath(path))
	}
	return paths
}

// FindConfigFile finds the first existing config file in the search paths
func FindConfigFile() (string, bool) {
	for _, path := range ConfigPaths {
		expandedPath := ExpandPath(path)
		if fileExists(expandedPath) {
			return expandedPath, true
		}
	}
	return "", false
}

// Helper functions

// validateConfigPath validates that a config path is safe to read
func validateConfigPath(path string) error {
	// Clean the path to resolve any ".." components
	cleanPath := filepath.Clean(path)

	// Check for path traversal attempts
	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("path traversal not allowed")
	}

	// Ensure it's a YAML file
	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("config file must have .yaml or .yml extension")
	}

	// Convert to absolute path for additional validation
	absPath, err := filepath.Abs(cleanPath)
	if err != nil {
		return fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	// Basic sanity check - ensure it's not in sensitive system directories
	if strings.HasPrefix(absPath, "/etc/passwd") ||
		strings.HasPrefix(absPath, "/etc/shadow") ||
		strings.HasPrefix(absPath, "/proc/") ||
		strings.HasPrefix(absPath, "/sys/") {
		return fmt.Errorf("access to system files not allowed")
	}

	return nil
}

// ExpandPath expands a leading ~/ to the home directory
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

// fileExists checks if a file exists
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// mergeConfigs merges source config into destination config
// Only non-zero values from source overwrite destination
func mergeConfigs(dst, src *Config) {
	if src.Version != "" {
		dst.Version = src.Version
	}

	mergeInputConfig(&dst.Input, &src.Input)
	mergeEngineConfig(&dst.Engine, &src.Engine)
	mergeSweepConfig(&dst.Sweep, &src.Sweep)
	mergeOutputConfig(&dst.Output, &src.Output)
	mergeStorageConfig(&dst.Storage, &src.Storage)
	mergeAIConfig(&dst.AI, &src.AI)
}

func mergeInputConfig(dst, src *InputConfig) {
	if src.IdentityField != "" {
		dst.IdentityField = src.IdentityField
	}
	if src.EmbeddingField != "" {
		dst.EmbeddingField = src.EmbeddingField
	}
}

func mergeEngineConfig(dst, src *EngineConfig) {
	if src.Backend != "" {
		dst.Backend = src.Backend
	}
	if src.Endpoint != "" {
		dst.Endpoint = src.Endpoint
	}
	if src.Timeout != 0 {
		dst.Timeout = src.Timeout
	}
}

func mergeSweepConfig(dst, src *SweepConfig) {
	if src.Workers != 0 {
		dst.Workers = src.Workers
	}
	if src.GridFile != "" {
		dst.GridFile = src.GridFile
	}
	if src.Timeout != 0 {
		dst.Timeout = src.Timeout
	}
}

// mergeOutputConfig merges output configuration
func mergeOutputConfig(dst, src *OutputConfig) {
	if src.DefaultFormat != "" {
		dst.DefaultFormat = src.DefaultFormat
	}
	if src.ColorMode != "" {
		dst.ColorMode = src.ColorMode
	}
	if src.Theme != "" {
		dst.Theme = src.Theme
	}
	// YAML cannot tell false from unset; env overrides cover the other direction
	mergeIfSet(&dst.Verbose, src.Verbose)
}

// mergeStorageConfig merges storage configuration
func mergeStorageConfig(dst, src *StorageConfig) {
	if src.HistoryDB != "" {
		dst.HistoryDB = src.HistoryDB
	}
	mergeIfSet(&dst.RecordHistory, src.RecordHistory)
}

// mergeAIConfig merges AI configuration
func mergeAIConfig(dst, src *AIConfig) {
	if src.Provider != "" {
		dst.Provider = src.Provider
	}
	if src.Model != "" {
		dst.Model = src.Model
	}
	if src.Endpoint != "" {
		dst.Endpoint = src.Endpoint
	}
	if src.APIKey != "" {
		dst.APIKey = src.APIKey
	}
	if src.Timeout != 0 {
		dst.Timeout = src.Timeout
	}
	if src.Samples != 0 {
		dst.Samples = src.Samples
	}
	if src.Concurrency != 0 {
		dst.Concurrency = src.Concurrency
	}
}

// mergeIfSet only lets a true value through
func mergeIfSet(dst *bool, src bool) {
	if src {
		*dst = true
	}
}

// Type conversion helpers

func parseInt(s string, dst *int) error {
	val, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*dst = val
	return nil
}

func parseBool(s string, dst *bool) error {
	val, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	*dst = val
	return nil
}

func parseDuration(s string, dst *time.Duration) error {
	val, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*dst = val
	return nil
}
