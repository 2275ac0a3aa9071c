package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNewLoader(t *testing.T) {
	loader := NewLoader()
	if loader == nil {
		t.Fatal("NewLoader returned nil")
	}
	if len(loader.configPaths) != 3 {
		t.Errorf("Expected 3 config paths, got %d", len(loader.configPaths))
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	loader := NewLoader()

	// Test loading with no config files (should use defaults)
	cfg, err := loader.LoadConfig("")
	if err != nil {
		t.Fatalf("Failed to load default config: %v", err)
	}

	// Verify it's using defaults
	if cfg.AI.Provider != "ollama" {
		t.Errorf("Expected default AI provider ollama, got %s", cfg.AI.Provider)
	}
	if cfg.Output.DefaultFormat != "text" {
		t.Errorf("Expected default output format text, got %s", cfg.Output.DefaultFormat)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "test-config.yaml")

	configContent := `version: "1.0"
input:
  identity_field: "AccountId"
engine:
  backend: remote
  endpoint: "http://localhost:9000"
sweep:
  workers: 3
  timeout: 2m
output:
  default_format: "json"
  verbose: true
ai:
  provider: "openai"
  model: "gpt-4o"
  timeout: 45s
`

	err := os.WriteFile(configPath, []byte(configContent), 0o600)
	if err != nil {
		t.Fatalf("Failed to write test config file: %v", err)
	}

	loader := NewLoader()
	cfg, err := loader.LoadConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config from file: %v", err)
	}

	if cfg.Input.IdentityField != "AccountId" {
		t.Errorf("Expected identity field AccountId, got %s", cfg.Input.IdentityField)
	}
	if cfg.Input.EmbeddingField != "Embedding" {
		t.Errorf("Expected default embedding field, got %s", cfg.Input.EmbeddingField)
	}
	if cfg.Engine.Backend != "remote" || cfg.Engine.Endpoint != "http://localhost:9000" {
		t.Errorf("Expected remote backend on :9000, got %+v", cfg.Engine)
	}
	if cfg.Sweep.Workers != 3 || cfg.Sweep.Timeout != 2*time.Minute {
		t.Errorf("Expected 3 workers and 2m timeout, got %+v", cfg.Sweep)
	}
	if cfg.Output.DefaultFormat != "json" || !cfg.Output.Verbose {
		t.Errorf("Expected verbose json output, got %+v", cfg.Output)
	}
	if cfg.AI.Provider != "openai" || cfg.AI.Model != "gpt-4o" || cfg.AI.Timeout != 45*time.Second {
		t.Errorf("Unexpected AI config %+v", cfg.AI)
	}
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "invalid-config.yaml")

	invalidConfigContent := `version: "1.0"
engine:
  backend: "native"
  # Invalid YAML - missing closing quote
output:
  default_format: "json
  verbose: true
`

	err := os.WriteFile(configPath, []byte(invalidConfigContent), 0o600)
	if err != nil {
		t.Fatalf("Failed to write test config file: %v", err)
	}

	loader := NewLoader()
	_, err = loader.LoadConfig(configPath)
	if err == nil {
		t.Error("Expected error loading invalid YAML config, but got none")
	}
}

func TestLoadConfigInvalidValues(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(configPath, []byte("engine:\n  backend: gpu\n"), 0o600); err != nil {
		t.Fatalf("Failed to write test config file: %v", err)
	}

	_, err := NewLoader().LoadConfig(configPath)
	if err == nil || !strings.Contains(err.Error(), "invalid engine backend") {
		t.Errorf("Expected backend validation error, got %v", err)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("FEEDCLUSTER_INPUT_IDENTITY_FIELD", "TenantId")
	t.Setenv("FEEDCLUSTER_ENGINE_BACKEND", "remote")
	t.Setenv("FEEDCLUSTER_SWEEP_WORKERS", "8")
	t.Setenv("FEEDCLUSTER_OUTPUT_VERBOSE", "true")
	t.Setenv("FEEDCLUSTER_STORAGE_HISTORY_DB", "/tmp/h.db")
	t.Setenv("FEEDCLUSTER_AI_PROVIDER", "openai")
	t.Setenv("FEEDCLUSTER_AI_TIMEOUT", "90s")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	loader := NewLoader()
	cfg := DefaultConfig()

	err := loader.applyEnvOverrides(cfg)
	if err != nil {
		t.Fatalf("Failed to apply env overrides: %v", err)
	}

	if cfg.Input.IdentityField != "TenantId" {
		t.Errorf("Expected identity field TenantId, got %s", cfg.Input.IdentityField)
	}
	if cfg.Engine.Backend != "remote" {
		t.Errorf("Expected remote backend, got %s", cfg.Engine.Backend)
	}
	if cfg.Sweep.Workers != 8 {
		t.Errorf("Expected 8 workers, got %d", cfg.Sweep.Workers)
	}
	if !cfg.Output.Verbose {
		t.Errorf("Expected verbose to be true")
	}
	if cfg.Storage.HistoryDB != "/tmp/h.db" {
		t.Errorf("Expected history db /tmp/h.db, got %s", cfg.Storage.HistoryDB)
	}
	if cfg.AI.Provider != "openai" || cfg.AI.Timeout != 90*time.Second {
		t.Errorf("Unexpected AI config %+v", cfg.AI)
	}
	if cfg.AI.APIKey != "sk-test" {
		t.Errorf("Expected OPENAI_API_KEY fallback, got %q", cfg.AI.APIKey)
	}
}

func TestApplyEnvOverridesInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		envVar string
		value  string
	}{
		{"invalid int", "FEEDCLUSTER_SWEEP_WORKERS", "not-a-number"},
		{"invalid bool", "FEEDCLUSTER_OUTPUT_VERBOSE", "not-a-bool"},
		{"invalid duration", "FEEDCLUSTER_AI_TIMEOUT", "not-a-duration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.envVar, tt.value)

			loader := NewLoader()
			cfg := DefaultConfig()

			err := loader.applyEnvOverrides(cfg)
			if err == nil {
				t.Error("Expected error for invalid env var value, but got none")
			}
		})
	}
}

func TestParseHelpers(t *testing.T) {
	var (
		d time.Duration
		n int
		b bool
	)

	tests := []struct {
		name    string
		parse   func() error
		wantErr bool
	}{
		{"duration", func() error { return parseDuration("30s", &d) }, false},
		{"bad duration", func() error { return parseDuration("invalid", &d) }, true},
		{"int", func() error { return parseInt("42", &n) }, false},
		{"bad int", func() error { return parseInt("not-a-number", &n) }, true},
		{"bool", func() error { return parseBool("true", &b) }, false},
		{"bad bool", func() error { return parseBool("not-a-bool", &b) }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.parse()
			if (err != nil) != tt.wantErr {
				t.Errorf("Expected error=%v, got %v", tt.wantErr, err)
			}
		})
	}

	if d != 30*time.Second || n != 42 || !b {
		t.Errorf("Expected 30s/42/true, got %v/%d/%v", d, n, b)
	}
}

func TestFindConfigFile(t *testing.T) {
	// Test when no config file exists
	_, found := FindConfigFile()
	if found {
		t.Error("Expected no config file to be found, but one was found")
	}

	// Create a temporary config file in current directory
	tempConfigPath := "./.feedcluster.yaml"
	err := os.WriteFile(tempConfigPath, []byte("version: 1.0"), 0o600)
	if err != nil {
		t.Fatalf("Failed to create temp config file: %v", err)
	}
	defer func() { _ = os.Remove(tempConfigPath) }()

	configPath, found := FindConfigFile()
	if !found {
		t.Error("Expected config file to be found, but none was found")
	}
	if configPath != tempConfigPath {
		t.Errorf("Expected config path %s, got %s", tempConfigPath, configPath)
	}
}

func TestFileExists(t *testing.T) {
	// Test with non-existent file
	if fileExists("/path/that/does/not/exist") {
		t.Error("Expected file to not exist, but fileExists returned true")
	}

	// Create a temporary file
	tempFile := filepath.Join(t.TempDir(), "test-file")
	err := os.WriteFile(tempFile, []byte("test"), 0o600)
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}

	if !fileExists(tempFile) {
		t.Error("Expected file to exist, but fileExists returned false")
	}
}

func TestValidateConfigPath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid yaml file",
			path:    "config.yaml",
			wantErr: false,
		},
		{
			name:    "valid yml file",
			path:    "config.yml",
			wantErr: false,
		},
		{
			name:    "path traversal attempt",
			path:    "../../../etc/passwd",
			wantErr: true,
			errMsg:  "path traversal not allowed",
		},
		{
			name:    "non-yaml file",
			path:    "config.txt",
			wantErr: true,
			errMsg:  "config file must have .yaml or .yml extension",
		},
		{
			name:    "system file access",
			path:    "/etc/passwd.yaml",
			wantErr: true,
			errMsg:  "access to system files not allowed",
		},
		{
			name:    "proc filesystem access",
			path:    "/proc/version.yaml",
			wantErr: true,
			errMsg:  "access to system files not allowed",
		},
		{
			name:    "relative path with valid extension",
			path:    "./configs/app.yaml",
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateConfigPath(tt.path)
			if tt.wantErr {
				if err == nil {
					t.Error("Expected error but got none")
				} else if tt.errMsg != "" && !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("Expected error message to contain '%s', got '%s'", tt.errMsg, err.Error())
				}
			} else {
				if err != nil {
					t.Errorf("Unexpected error: %v", err)
				}
			}
		})
	}
}
