package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the top-level analyzer.yaml configuration.
type Config struct {
	Job           JobConfig     `yaml:"job"`
	InputPath     string        `yaml:"input_path"`
	OutputPath    string        `yaml:"output_path"`
	BatchSize     int           `yaml:"batch_size"`
	InsertWorkers int           `yaml:"insert_workers"`
	Storage       StorageConfig `yaml:"storage"`
	Logs          LogsConfig    `yaml:"logs"`
	StatusAddr    string        `yaml:"status_addr,omitempty"`
	LogLevel      string        `yaml:"log_level"`
}

// JobConfig identifies the job and controls scheduling, locking and retry.
type JobConfig struct {
	Name               string `yaml:"name"`
	Schedule           string `yaml:"schedule"` // standard 5-field cron expression
	LockTimeoutSeconds int    `yaml:"lock_timeout_seconds"`
	LockTTLMinutes     int    `yaml:"lock_ttl_minutes"`
	MaxAttempts        int    `yaml:"max_attempts"` // 0 retries forever
	BackoffSeconds     int    `yaml:"backoff_seconds"`
}

// StorageConfig selects and parameterizes the bulk store driver.
type StorageConfig struct {
	Driver  string `yaml:"driver"` // postgres, bigquery or memory
	DSN     string `yaml:"dsn,omitempty"`
	Project string `yaml:"project,omitempty"`
	Dataset string `yaml:"dataset,omitempty"`
	Table   string `yaml:"table,omitempty"`
}

// LogsConfig locates the durable validation and duplicate logs.
type LogsConfig struct {
	ErrorLogPath    string `yaml:"error_log_path"`
	DuplicateLogDir string `yaml:"duplicate_log_dir"`
}

// Load reads an analyzer.yaml file from disk, fills in defaults and
// validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a Config with sensible defaults for a local run.
func Default() *Config {
	return &Config{
		Job: JobConfig{
			Name:               "transactions-ingest",
			Schedule:           "0 * * * *",
			LockTimeoutSeconds: 30,
			LockTTLMinutes:     30,
			MaxAttempts:        10,
			BackoffSeconds:     2,
		},
		InputPath:     "data/transactions.csv",
		OutputPath:    "out/report.json",
		BatchSize:     10000,
		InsertWorkers: 4,
		Storage: StorageConfig{
			Driver: "memory",
		},
		Logs: LogsConfig{
			ErrorLogPath:    "logs/validation-errors.log",
			DuplicateLogDir: "logs/duplicates",
		},
		LogLevel: "info",
	}
}

// applyDefaults backfills zero values a partial YAML file left unset.
func (c *Config) applyDefaults() {
	d := Default()
	if c.Job.Name == "" {
		c.Job.Name = d.Job.Name
	}
	if c.Job.Schedule == "" {
		c.Job.Schedule = d.Job.Schedule
	}
	if c.Job.LockTimeoutSeconds == 0 {
		c.Job.LockTimeoutSeconds = d.Job.LockTimeoutSeconds
	}
	if c.Job.LockTTLMinutes == 0 {
		c.Job.LockTTLMinutes = d.Job.LockTTLMinutes
	}
	if c.Job.BackoffSeconds == 0 {
		c.Job.BackoffSeconds = d.Job.BackoffSeconds
	}
	if c.BatchSize == 0 {
		c.BatchSize = d.BatchSize
	}
	if c.InsertWorkers == 0 {
		c.InsertWorkers = d.InsertWorkers
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = d.Storage.Driver
	}
	if c.Logs.ErrorLogPath == "" {
		c.Logs.ErrorLogPath = d.Logs.ErrorLogPath
	}
	if c.Logs.DuplicateLogDir == "" {
		c.Logs.DuplicateLogDir = d.Logs.DuplicateLogDir
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.InputPath == "" {
		return fmt.Errorf("config: input_path is required")
	}
	if c.OutputPath == "" {
		return fmt.Errorf("config: output_path is required")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("config: batch_size must be positive, got %d", c.BatchSize)
	}
	if c.InsertWorkers <= 0 {
		return fmt.Errorf("config: insert_workers must be positive, got %d", c.InsertWorkers)
	}
	if c.Job.MaxAttempts < 0 {
		return fmt.Errorf("config: max_attempts must not be negative, got %d", c.Job.MaxAttempts)
	}
	switch c.Storage.Driver {
	case "postgres":
		if c.Storage.DSN == "" {
			return fmt.Errorf("config: storage.dsn is required for the postgres driver")
		}
	case "bigquery":
		if c.Storage.Project == "" || c.Storage.Dataset == "" || c.Storage.Table == "" {
			return fmt.Errorf("config: storage.project, storage.dataset and storage.table are required for the bigquery driver")
		}
	case "memory":
	default:
		return fmt.Errorf("config: unknown storage driver %q", c.Storage.Driver)
	}
	return nil
}
