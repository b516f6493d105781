package commands_test

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/commands"
	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/csvloader"
)

func execute(t *testing.T, args ...string) error {
	t.Helper()
	root := commands.NewRootCommand()
	root.SetArgs(args)
	return root.Execute()
}

func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	cfg := fmt.Sprintf(`job:
  name: test-ingest
input_path: %s
output_path: %s
batch_size: 100
storage:
  driver: memory
logs:
  error_log_path: %s
  duplicate_log_dir: %s
log_level: error
`,
		filepath.Join(dir, "transactions.csv"),
		filepath.Join(dir, "report.json"),
		filepath.Join(dir, "errors.log"),
		filepath.Join(dir, "dups"),
	)
	path := filepath.Join(dir, "analyzer.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return path
}

func TestRunCommandExecutesIngestion(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir)

	input := csvloader.Header + "\n" +
		"0a50fd52-b2a4-4f28-8e0e-23a2a5a11111,11111111-1111-4111-8111-111111111111,2026-05-01T10:00:00Z,120.50,Groceries,Weekly shop,FreshMart\n" +
		"1b61fe63-c3b5-4f39-9f1f-34b3b6b22222,11111111-1111-4111-8111-111111111111,2026-05-02T10:00:00Z,-30.25,Transport,Bus pass,CityTransit\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "transactions.csv"), []byte(input), 0o644))

	require.NoError(t, execute(t, "run", "--config", cfgPath))

	data, err := os.ReadFile(filepath.Join(dir, "report.json"))
	require.NoError(t, err)

	var report struct {
		UsersSummary []json.RawMessage `json:"UsersSummary"`
	}
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Len(t, report.UsersSummary, 1)
}

func TestRunCommandHonorsPathOverrides(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir)

	altInput := filepath.Join(dir, "other.csv")
	altOutput := filepath.Join(dir, "other-report.json")
	input := csvloader.Header + "\n" +
		"0a50fd52-b2a4-4f28-8e0e-23a2a5a11111,11111111-1111-4111-8111-111111111111,2026-05-01T10:00:00Z,10.00,Groceries,Snacks,FreshMart\n"
	require.NoError(t, os.WriteFile(altInput, []byte(input), 0o644))

	require.NoError(t, execute(t, "run", "--config", cfgPath, "--input", altInput, "--output", altOutput))

	_, err := os.Stat(altOutput)
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "report.json"))
	assert.True(t, os.IsNotExist(err), "the configured output should stay untouched")
}

func TestRunCommandRejectsMissingConfig(t *testing.T) {
	err := execute(t, "run", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestMigrateCommandRejectsMemoryDriver(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir)

	err := execute(t, "migrate", "--config", cfgPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migrate applies to the postgres and bigquery drivers")
}
