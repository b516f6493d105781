package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "analyzer.yaml")
	doc := `
job:
  name: nightly-ingest
  schedule: "30 2 * * *"
  max_attempts: 5
input_path: /srv/in/transactions.csv
output_path: gs://reports/latest.json
batch_size: 500
storage:
  driver: postgres
  dsn: postgres://analyzer@localhost:5432/finance
log_level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "nightly-ingest", cfg.Job.Name)
	assert.Equal(t, "30 2 * * *", cfg.Job.Schedule)
	assert.Equal(t, 5, cfg.Job.MaxAttempts)
	assert.Equal(t, "/srv/in/transactions.csv", cfg.InputPath)
	assert.Equal(t, "gs://reports/latest.json", cfg.OutputPath)
	assert.Equal(t, 500, cfg.BatchSize)
	assert.Equal(t, "postgres", cfg.Storage.Driver)
	assert.Equal(t, "debug", cfg.LogLevel)

	// Unset options pick up defaults.
	assert.Equal(t, 30, cfg.Job.LockTimeoutSeconds)
	assert.Equal(t, 30, cfg.Job.LockTTLMinutes)
	assert.Equal(t, 4, cfg.InsertWorkers)
	assert.Equal(t, "logs/validation-errors.log", cfg.Logs.ErrorLogPath)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "analyzer.yaml")
	require.NoError(t, os.WriteFile(path, []byte("batch_size: [not a number"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing input path",
			mutate:  func(c *Config) { c.InputPath = "" },
			wantErr: "input_path",
		},
		{
			name:    "missing output path",
			mutate:  func(c *Config) { c.OutputPath = "" },
			wantErr: "output_path",
		},
		{
			name:    "non-positive batch size",
			mutate:  func(c *Config) { c.BatchSize = 0 },
			wantErr: "batch_size",
		},
		{
			name:    "negative max attempts",
			mutate:  func(c *Config) { c.Job.MaxAttempts = -1 },
			wantErr: "max_attempts",
		},
		{
			name:    "postgres without dsn",
			mutate:  func(c *Config) { c.Storage = StorageConfig{Driver: "postgres"} },
			wantErr: "storage.dsn",
		},
		{
			name:    "bigquery without table",
			mutate:  func(c *Config) { c.Storage = StorageConfig{Driver: "bigquery", Project: "p", Dataset: "d"} },
			wantErr: "storage.project",
		},
		{
			name:    "unknown driver",
			mutate:  func(c *Config) { c.Storage.Driver = "etcd" },
			wantErr: "unknown storage driver",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
