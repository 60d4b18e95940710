// Package config provides hierarchical configuration management.
// Priority: defaults < system < user < project < env < flags
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all validator configuration.
type Config struct {
	Version int `yaml:"version"`

	Validation ValidationConfig `yaml:"validation"`
	Parser     ParserConfig     `yaml:"parser"`
	Metadata   MetadataConfig   `yaml:"metadata"`
	Report     ReportConfig     `yaml:"report"`
	Watch      WatchConfig      `yaml:"watch"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
}

// ValidationConfig controls the rule engine.
type ValidationConfig struct {
	BatchSize int `yaml:"batch_size"`
	Workers   int `yaml:"workers"` // 0 = sequential

	// Rules overrides the default enabled rule set when non-empty.
	Rules []string `yaml:"rules"`

	// IdentifierColumn is the business key stamped onto row findings.
	IdentifierColumn string `yaml:"identifier_column"`
}

// ParserConfig extends the column grammar tables.
type ParserConfig struct {
	CompoundEntities []string `yaml:"compound_entities"`
	CountryCodes     []string `yaml:"country_codes"`
}

// MetadataConfig selects the snapshot store.
type MetadataConfig struct {
	Dir string           `yaml:"dir"`
	S3  MetadataS3Config `yaml:"s3"`
}

// MetadataS3Config for snapshot storage on S3.
type MetadataS3Config struct {
	Enabled      bool          `yaml:"enabled"`
	Bucket       string        `yaml:"bucket"`
	Prefix       string        `yaml:"prefix"`
	Region       string        `yaml:"region"`
	Endpoint     string        `yaml:"endpoint"`
	UsePathStyle bool          `yaml:"use_path_style"`
	Timeout      time.Duration `yaml:"timeout"`
}

// ReportConfig controls report output.
type ReportConfig struct {
	OutputDir    string   `yaml:"output_dir"`
	Formats      []string `yaml:"formats"`
	BaseFilename string   `yaml:"base_filename"`
}

// WatchConfig for the drop-directory watcher.
type WatchConfig struct {
	Dir      string        `yaml:"dir"`
	Debounce time.Duration `yaml:"debounce"`
	Patterns []string      `yaml:"patterns"`
}

// TelemetryConfig for optional tracing.
type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
}

// Default returns the default configuration.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	baseDir := filepath.Join(homeDir, ".vstructure")

	return &Config{
		Version: 1,
		Validation: ValidationConfig{
			BatchSize:        10000,
			Workers:          0,
			IdentifierColumn: "personInfo_person-id-external",
		},
		Metadata: MetadataConfig{
			Dir: filepath.Join(baseDir, "metadata"),
			S3: MetadataS3Config{
				Prefix:  "metadata/",
				Timeout: 30 * time.Second,
			},
		},
		Report: ReportConfig{
			OutputDir:    filepath.Join(baseDir, "reports"),
			Formats:      []string{"json", "csv"},
			BaseFilename: "validation_report",
		},
		Watch: WatchConfig{
			Debounce: 2 * time.Second,
			Patterns: []string{"*.csv"},
		},
		Telemetry: TelemetryConfig{
			Enabled: false,
		},
	}
}

// Manager handles configuration loading and merging.
type Manager struct {
	mu     sync.RWMutex
	config *Config
	paths  []string // Paths that were loaded
}

// NewManager creates a new configuration manager.
func NewManager() *Manager {
	return &Manager{
		config: Default(),
	}
}

// Load loads configuration from all sources in priority order.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Start with defaults
	m.config = Default()

	// Load from paths in order (later overrides earlier)
	paths := m.getConfigPaths()
	for _, path := range paths {
		if err := m.loadFile(path); err != nil {
			// Ignore missing files, but surface errors for existing files
			if !os.IsNotExist(err) {
				return err
			}
		} else {
			m.paths = append(m.paths, path)
		}
	}

	// Override with environment variables
	m.loadEnv()

	return nil
}

// getConfigPaths returns config file paths in priority order.
func (m *Manager) getConfigPaths() []string {
	var paths []string

	// System config
	if runtime.GOOS != "windows" {
		paths = append(paths, "/etc/vstructure/config.yaml")
	}

	// User config
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".vstructure", "config.yaml"))
	}

	// Project config (current directory)
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".vstructure.yaml"))
	}

	return paths
}

// loadFile loads a single config file and merges it.
func (m *Manager) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var partial Config
	if err := yaml.Unmarshal(data, &partial); err != nil {
		return err
	}

	// Merge non-zero values
	m.merge(&partial)
	return nil
}

// merge merges non-zero values from src into config.
func (m *Manager) merge(src *Config) {
	// Validation
	if src.Validation.BatchSize != 0 {
		m.config.Validation.BatchSize = src.Validation.BatchSize
	}
	if src.Validation.Workers != 0 {
		m.config.Validation.Workers = src.Validation.Workers
	}
	if len(src.Validation.Rules) > 0 {
		m.config.Validation.Rules = src.Validation.Rules
	}
	if src.Validation.IdentifierColumn != "" {
		m.config.Validation.IdentifierColumn = src.Validation.IdentifierColumn
	}

	// Parser
	if len(src.Parser.CompoundEntities) > 0 {
		m.config.Parser.CompoundEntities = src.Parser.CompoundEntities
	}
	if len(src.Parser.CountryCodes) > 0 {
		m.config.Parser.CountryCodes = src.Parser.CountryCodes
	}

	// Metadata
	if src.Metadata.Dir != "" {
		m.config.Metadata.Dir = src.Metadata.Dir
	}
	if src.Metadata.S3.Enabled {
		m.config.Metadata.S3.Enabled = true
	}
	if src.Metadata.S3.Bucket != "" {
		m.config.Metadata.S3.Bucket = src.Metadata.S3.Bucket
	}
	if src.Metadata.S3.Prefix != "" {
		m.config.Metadata.S3.Prefix = src.Metadata.S3.Prefix
	}
	if src.Metadata.S3.Region != "" {
		m.config.Metadata.S3.Region = src.Metadata.S3.Region
	}
	if src.Metadata.S3.Endpoint != "" {
		m.config.Metadata.S3.Endpoint = src.Metadata.S3.Endpoint
	}
	if src.Metadata.S3.UsePathStyle {
		m.config.Metadata.S3.UsePathStyle = true
	}
	if src.Metadata.S3.Timeout != 0 {
		m.config.Metadata.S3.Timeout = src.Metadata.S3.Timeout
	}

	// Report
	if src.Report.OutputDir != "" {
		m.config.Report.OutputDir = src.Report.OutputDir
	}
	if len(src.Report.Formats) > 0 {
		m.config.Report.Formats = src.Report.Formats
	}
	if src.Report.BaseFilename != "" {
		m.config.Report.BaseFilename = src.Report.BaseFilename
	}

	// Watch
	if src.Watch.Dir != "" {
		m.config.Watch.Dir = src.Watch.Dir
	}
	if src.Watch.Debounce != 0 {
		m.config.Watch.Debounce = src.Watch.Debounce
	}
	if len(src.Watch.Patterns) > 0 {
		m.config.Watch.Patterns = src.Watch.Patterns
	}

	// Telemetry
	if src.Telemetry.Enabled {
		m.config.Telemetry.Enabled = true
	}
	if src.Telemetry.Endpoint != "" {
		m.config.Telemetry.Endpoint = src.Telemetry.Endpoint
	}
}

// loadEnv loads configuration from environment variables.
func (m *Manager) loadEnv() {
	// VSTRUCTURE_BATCH_SIZE
	if v := os.Getenv("VSTRUCTURE_BATCH_SIZE"); v != "" {
		var size int
		if _, err := fmt.Sscanf(v, "%d", &size); err == nil {
			m.config.Validation.BatchSize = size
		}
	}

	// VSTRUCTURE_WORKERS
	if v := os.Getenv("VSTRUCTURE_WORKERS"); v != "" {
		var workers int
		if _, err := fmt.Sscanf(v, "%d", &workers); err == nil {
			m.config.Validation.Workers = workers
		}
	}

	// VSTRUCTURE_METADATA_DIR
	if v := os.Getenv("VSTRUCTURE_METADATA_DIR"); v != "" {
		m.config.Metadata.Dir = v
	}

	// VSTRUCTURE_OUTPUT_DIR
	if v := os.Getenv("VSTRUCTURE_OUTPUT_DIR"); v != "" {
		m.config.Report.OutputDir = v
	}

	// VSTRUCTURE_OTLP_ENDPOINT
	if v := os.Getenv("VSTRUCTURE_OTLP_ENDPOINT"); v != "" {
		m.config.Telemetry.Endpoint = v
		m.config.Telemetry.Enabled = true
	}
}

// Get returns the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// GetPaths returns the paths that were loaded.
func (m *Manager) GetPaths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.paths
}

// Save writes the current config to the user config file.
func (m *Manager) Save() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}

	configDir := filepath.Join(home, ".vstructure")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(m.config)
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(configDir, "config.yaml"), data, 0644)
}

// Global instance
var (
	globalManager *Manager
	globalOnce    sync.Once
)

// Global returns the global configuration manager.
func Global() *Manager {
	globalOnce.Do(func() {
		globalManager = NewManager()
		globalManager.Load()
	})
	return globalManager
}
