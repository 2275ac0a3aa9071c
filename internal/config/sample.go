package config

// SampleConfig returns a fully commented configuration file
func SampleConfig() string {
	return `# feedcluster configuration
# Search order (highest first): ./.feedcluster.yaml,
# ~/.config/feedcluster/config.yaml, /etc/feedcluster/config.yaml.
# FEEDCLUSTER_<SECTION>_<KEY> environment variables override file values.
version: "1.0"

input:
  # Field holding the customer identity of each record
  identity_field: CustomerName
  # Field holding the numeric embedding vector; removed from exported records
  embedding_field: Embedding

engine:
  # native runs the algorithms in-process, remote calls a clustering sidecar
  backend: native
  # Sidecar base URL (remote backend only)
  endpoint: http://localhost:8008
  timeout: 5m

sweep:
  # Grid entries evaluated concurrently; 1 keeps the sweep sequential
  workers: 1
  # YAML grid file; empty uses the built-in grid
  grid_file: ""
  # Deadline for a whole sweep; 0 disables it
  timeout: 0s

output:
  # text, json, markdown or csv
  default_format: text
  # auto, always or never
  color_mode: auto
  # Viewer theme: default, high-contrast, minimal
  theme: default
  verbose: false

storage:
  # SQLite database holding sweep history
  history_db: ~/.feedcluster/history.db
  # Save every sweep without passing --db
  record_history: false

ai:
  # ollama or openai; used by --label-themes
  provider: ollama
  model: llama3
  endpoint: http://localhost:11434
  # Prefer FEEDCLUSTER_AI_API_KEY or OPENAI_API_KEY over storing keys here
  api_key: ""
  timeout: 60s
  # Feedback items quoted per cluster
  samples: 20
  # Clusters labeled at once
  concurrency: 1
`
}

// MinimalSampleConfig returns a configuration with only the common settings
func MinimalSampleConfig() string {
	return `version: "1.0"

input:
  identity_field: CustomerName
  embedding_field: Embedding

output:
  default_format: text

ai:
  provider: ollama
  model: llama3
`
}
