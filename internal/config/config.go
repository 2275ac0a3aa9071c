package config

import (
	"fmt"
	"time"
)

// Config holds the complete application configuration
type Config struct {
	Version string        `yaml:"version" json:"version"`
	Input   InputConfig   `yaml:"input" json:"input"`
	Engine  EngineConfig  `yaml:"engine" json:"engine"`
	Sweep   SweepConfig   `yaml:"sweep" json:"sweep"`
	Output  OutputConfig  `yaml:"output" json:"output"`
	Storage StorageConfig `yaml:"storage" json:"storage"`
	AI      AIConfig      `yaml:"ai" json:"ai"`
}

// InputConfig names the record fields read by every command
type InputConfig struct {
	IdentityField  string `yaml:"identity_field" json:"identity_field"`   // customer identity, counted per cluster
	EmbeddingField string `yaml:"embedding_field" json:"embedding_field"` // numeric vector, removed on export
}

// EngineConfig selects where the clustering math runs
type EngineConfig struct {
	Backend  string        `yaml:"backend" json:"backend"`   // native|remote
	Endpoint string        `yaml:"endpoint" json:"endpoint"` // sidecar URL for the remote backend
	Timeout  time.Duration `yaml:"timeout" json:"timeout"`   // per-request timeout of the remote backend
}

// SweepConfig configures the parameter sweep
type SweepConfig struct {
	Workers  int           `yaml:"workers" json:"workers"`     // concurrent grid entries, 1 is sequential
	GridFile string        `yaml:"grid_file" json:"grid_file"` // YAML grid, empty uses the built-in grid
	Timeout  time.Duration `yaml:"timeout" json:"timeout"`     // 0 disables the deadline
}

// OutputConfig configures output formatting and display
type OutputConfig struct {
	DefaultFormat string `yaml:"default_format" json:"default_format"` // text|json|markdown|csv
	ColorMode     string `yaml:"color_mode" json:"color_mode"`         // auto|always|never
	Theme         string `yaml:"theme" json:"theme"`                   // viewer theme name
	Verbose       bool   `yaml:"verbose" json:"verbose"`               // default verbosity
}

// StorageConfig configures sweep history persistence
type StorageConfig struct {
	HistoryDB     string `yaml:"history_db" json:"history_db"`         // sqlite file
	RecordHistory bool   `yaml:"record_history" json:"record_history"` // save every sweep
}

// AIConfig configures the provider used to label cluster themes
type AIConfig struct {
	Provider    string        `yaml:"provider" json:"provider"`       // ollama|openai
	Model       string        `yaml:"model" json:"model"`             // model name/identifier
	Endpoint    string        `yaml:"endpoint" json:"endpoint"`       // API endpoint URL
	APIKey      string        `yaml:"api_key" json:"api_key"`         // API key (support env var reference)
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`         // request timeout
	Samples     int           `yaml:"samples" json:"samples"`         // feedback items quoted per cluster
	Concurrency int           `yaml:"concurrency" json:"concurrency"` // clusters labeled at once
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Version: "1.0",
		Input: InputConfig{
			IdentityField:  "CustomerName",
			EmbeddingField: "Embedding",
		},
		Engine: EngineConfig{
			Backend:  "native",
			Endpoint: "http://localhost:8008",
			Timeout:  5 * time.Minute,
		},
		Sweep: SweepConfig{
			Workers:  1,
			GridFile: "",
			Timeout:  0,
		},
		Output: OutputConfig{
			DefaultFormat: "text",
			ColorMode:     "auto",
			Theme:         "default",
			Verbose:       false,
		},
		Storage: StorageConfig{
			HistoryDB:     "~/.feedcluster/history.db",
			RecordHistory: false,
		},
		AI: AIConfig{
			Provider:    "ollama",
			Model:       "llama3",
			Endpoint:    "http://localhost:11434",
			APIKey:      "",
			Timeout:     60 * time.Second,
			Samples:     20,
			Concurrency: 1,
		},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.validateInputConfig(); err != nil {
		return err
	}
	if err := c.validateEngineConfig(); err != nil {
		return err
	}
	if err := c.validateSweepConfig(); err != nil {
		return err
	}
	if err := c.validateOutputConfig(); err != nil {
		return err
	}
	if err := c.validateAIConfig(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateInputConfig() error {
	if c.Input.IdentityField == "" {
		return fmt.Errorf("identity_field must not be empty")
	}
	if c.Input.EmbeddingField == "" {
		return fmt.Errorf("embedding_field must not be empty")
	}
	if c.Input.IdentityField == c.Input.EmbeddingField {
		return fmt.Errorf("identity_field and embedding_field must differ")
	}
	return nil
}

// validateEngineConfig validates backend selection
func (c *Config) validateEngineConfig() error {
	switch c.Engine.Backend {
	case "", "native":
	case "remote":
		if c.Engine.Endpoint == "" {
			return fmt.Errorf("engine endpoint is required for the remote backend")
		}
	default:
		return fmt.Errorf("invalid engine backend: %s (must be one of: native, remote)", c.Engine.Backend)
	}
	if c.Engine.Timeout < 0 {
		return fmt.Errorf("engine timeout must be non-negative")
	}
	return nil
}

func (c *Config) validateSweepConfig() error {
	if c.Sweep.Workers < 1 {
		return fmt.Errorf("workers must be greater than 0")
	}
	if c.Sweep.Timeout < 0 {
		return fmt.Errorf("sweep timeout must be non-negative")
	}
	return nil
}

// validateOutputConfig validates output-related configuration
func (c *Config) validateOutputConfig() error {
	if c.Output.DefaultFormat != "" {
		validFormats := map[string]bool{
			"json":     true,
			"text":     true,
			"markdown": true,
			"csv":      true,
		}
		if !validFormats[c.Output.DefaultFormat] {
			return fmt.Errorf("invalid output format: %s (must be one of: json, text, markdown, csv)", c.Output.DefaultFormat)
		}
	}
	if c.Output.ColorMode != "" {
		validColorModes := map[string]bool{
			"auto":   true,
			"always": true,
			"never":  true,
		}
		if !validColorModes[c.Output.ColorMode] {
			return fmt.Errorf("invalid color mode: %s (must be one of: auto, always, never)", c.Output.ColorMode)
		}
	}
	return nil
}

// validateAIConfig validates AI-related configuration
func (c *Config) validateAIConfig() error {
	if c.AI.Provider != "" {
		validProviders := map[string]bool{
			"ollama": true,
			"openai": true,
		}
		if !validProviders[c.AI.Provider] {
			return fmt.Errorf("invalid AI provider: %s (must be one of: ollama, openai)", c.AI.Provider)
		}
	}
	if c.AI.Timeout < 0 {
		return fmt.Errorf("ai timeout must be non-negative")
	}
	if c.AI.Samples < 0 {
		return fmt.Errorf("samples must be non-negative")
	}
	if c.AI.Concurrency < 0 {
		return fmt.Errorf("concurrency must be non-negative")
	}
	return nil
}
