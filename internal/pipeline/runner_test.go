package pipeline_test

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/analysis"
	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/config"
	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/csvloader"
	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/jobs"
	jobsmem "github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/jobs/inmemory"
	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/pipeline"
	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/retry"
	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/store/inmemory"
)

var (
	idA   = "3f1b8a52-0c0e-4f29-9f41-6a1df6f0a111"
	idB   = "9e107d9d-372b-4c81-b2f1-541f6b8a2222"
	userU = "11111111-0000-0000-0000-000000000000"
	userV = "22222222-0000-0000-0000-000000000000"
)

type fixture struct {
	cfg     *config.Config
	store   *inmemory.Store
	runs    *jobsmem.Store
	runner  *pipeline.Runner
	input   string
	output  string
	baseDir string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.InputPath = filepath.Join(dir, "transactions.csv")
	cfg.OutputPath = filepath.Join(dir, "report.json")
	cfg.BatchSize = 2
	cfg.Job.LockTimeoutSeconds = 0
	cfg.Job.MaxAttempts = 5
	cfg.Job.BackoffSeconds = 0
	cfg.Logs.ErrorLogPath = filepath.Join(dir, "logs", "validation-errors.log")
	cfg.Logs.DuplicateLogDir = filepath.Join(dir, "logs", "duplicates")

	st := inmemory.NewStore()
	runs := jobsmem.NewStore()
	runner := pipeline.NewRunner(cfg, st, jobs.NewLocks(), runs, nil)

	return &fixture{
		cfg:     cfg,
		store:   st,
		runs:    runs,
		runner:  runner,
		input:   cfg.InputPath,
		output:  cfg.OutputPath,
		baseDir: dir,
	}
}

func (f *fixture) writeInput(t *testing.T, rows ...string) {
	t.Helper()
	content := csvloader.Header + "\n" + strings.Join(rows, "\n") + "\n"
	require.NoError(t, os.WriteFile(f.input, []byte(content), 0o644))
}

func row(id, user, date, amount, category, description, merchant string) string {
	return strings.Join([]string{id, user, date, amount, category, description, merchant}, ",")
}

func TestRunJobCompletesAndWritesReport(t *testing.T) {
	f := newFixture(t)
	f.writeInput(t,
		row(idA, userU, "2024-03-15T10:30:00Z", "100", "Groceries", "weekly shop", "Tesco"),
		row(idB, userV, "2024-03-16T09:00:00Z", "-30", "Transport", "bus pass", "TfL"),
	)

	run, err := f.runner.RunJob(context.Background(), f.input, f.output)
	require.NoError(t, err)

	assert.Equal(t, jobs.RunStatusCompleted, run.Status)
	assert.Equal(t, 1, run.Attempts)
	assert.Equal(t, 2, run.RecordsLoaded)
	assert.Equal(t, 0, run.DuplicatesDropped)
	assert.Equal(t, 2, run.RecordsInserted)
	assert.Equal(t, int64(2), run.RecordsPurged)
	require.NotNil(t, run.CompletedAt)

	data, err := os.ReadFile(f.output)
	require.NoError(t, err)
	var result analysis.Result
	require.NoError(t, json.Unmarshal(data, &result))
	require.Len(t, result.UsersSummary, 2)
	assert.Equal(t, uuid.MustParse(userU), result.HighestSpender.UserID)

	// The purge step empties the store for the next run.
	ids, err := f.store.GetAllIDs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)

	// Run history reflects the completed run.
	got, err := f.runs.GetRun(context.Background(), run.RunID)
	require.NoError(t, err)
	assert.Equal(t, jobs.RunStatusCompleted, got.Status)
}

func TestRunJobRepairsEmptyDescriptionAndRestarts(t *testing.T) {
	f := newFixture(t)
	f.writeInput(t,
		row(idA, userU, "2024-03-15T10:30:00Z", "100", "Groceries", "", "Tesco"),
		row(idB, userV, "2024-03-16T09:00:00Z", "-30", "Transport", "bus pass", "TfL"),
	)

	run, err := f.runner.RunJob(context.Background(), f.input, f.output)
	require.NoError(t, err)
	assert.Equal(t, jobs.RunStatusCompleted, run.Status)
	assert.Equal(t, 2, run.Attempts)
	assert.Equal(t, 2, run.RecordsInserted)

	// The repair rewrote the description in the durable input file.
	data, err := os.ReadFile(f.input)
	require.NoError(t, err)
	assert.Contains(t, string(data), retry.ReplacementDescription)

	// The failure was recorded in the durable error log.
	errLog, err := os.ReadFile(f.cfg.Logs.ErrorLogPath)
	require.NoError(t, err)
	assert.Contains(t, string(errLog), idA)
	assert.Contains(t, string(errLog), "description must not be empty")
}

func TestRunJobDropsDuplicatesAndInsertsFirstSeen(t *testing.T) {
	f := newFixture(t)
	f.writeInput(t,
		row(idA, userU, "2024-03-15T10:30:00Z", "100", "Groceries", "valid", "Tesco"),
		row(idA, userU, "2024-03-15T11:00:00Z", "50", "Groceries", "dup", "Tesco"),
	)

	run, err := f.runner.RunJob(context.Background(), f.input, f.output)
	require.NoError(t, err)
	assert.Equal(t, 2, run.RecordsLoaded)
	assert.Equal(t, 1, run.DuplicatesDropped)
	assert.Equal(t, 1, run.RecordsInserted)

	entries, err := os.ReadDir(f.cfg.Logs.DuplicateLogDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	logData, err := os.ReadFile(filepath.Join(f.cfg.Logs.DuplicateLogDir, entries[0].Name()))
	require.NoError(t, err)
	assert.Contains(t, string(logData), "dup")
	assert.NotContains(t, string(logData), "valid")
}

func TestRunJobRejectsOverlappingTrigger(t *testing.T) {
	f := newFixture(t)
	f.writeInput(t,
		row(idA, userU, "2024-03-15T10:30:00Z", "100", "Groceries", "weekly shop", "Tesco"),
	)

	locks := jobs.NewLocks()
	runner := pipeline.NewRunner(f.cfg, f.store, locks, f.runs, nil)

	// Simulate a run in flight by holding the job lease.
	release, err := locks.Acquire(context.Background(), f.cfg.Job.Name, 0, time.Minute)
	require.NoError(t, err)
	defer release()

	_, err = runner.RunJob(context.Background(), f.input, f.output)
	assert.ErrorIs(t, err, jobs.ErrJobBusy)
}

func TestRunJobFailsOnUnreadableInput(t *testing.T) {
	f := newFixture(t)

	run, err := f.runner.RunJob(context.Background(), filepath.Join(f.baseDir, "missing.csv"), f.output)
	require.Error(t, err)
	require.NotNil(t, run)
	assert.Equal(t, jobs.RunStatusFailed, run.Status)
	assert.NotEmpty(t, run.Error)

	// A terminated run never produces a report.
	_, statErr := os.Stat(f.output)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunJobGivesUpOnUnrepairableBatch(t *testing.T) {
	f := newFixture(t)
	// Merchant failures have no repair path.
	f.writeInput(t,
		row(idA, userU, "2024-03-15T10:30:00Z", "100", "Groceries", "weekly shop", ""),
	)

	run, err := f.runner.RunJob(context.Background(), f.input, f.output)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no repairable description failures")
	assert.Equal(t, jobs.RunStatusFailed, run.Status)
	assert.Equal(t, 1, run.Attempts)
}

func TestRunJobNotifiesObservers(t *testing.T) {
	f := newFixture(t)
	f.writeInput(t,
		row(idA, userU, "2024-03-15T10:30:00Z", "100", "Groceries", "weekly shop", "Tesco"),
	)

	events := jobsmem.NewEvents()
	defer events.Close()
	ch, cancel := events.Subscribe(16)
	defer cancel()

	runner := pipeline.NewRunner(f.cfg, f.store, jobs.NewLocks(), f.runs, events)
	run, err := runner.RunJob(context.Background(), f.input, f.output)
	require.NoError(t, err)

	var statuses []jobs.RunStatus
	for len(ch) > 0 {
		update := <-ch
		assert.Equal(t, run.RunID, update.RunID)
		statuses = append(statuses, update.Status)
	}
	require.NotEmpty(t, statuses)
	assert.Equal(t, jobs.RunStatusPending, statuses[0])
	assert.Equal(t, jobs.RunStatusCompleted, statuses[len(statuses)-1])
}

func TestRunJobBatchesLargeInput(t *testing.T) {
	f := newFixture(t)

	var rows []string
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("%08d-0000-0000-0000-000000000000", i+1)
		rows = append(rows, row(id, userU, "2024-03-15T10:30:00Z", "10", "Groceries", "weekly shop", "Tesco"))
	}
	f.writeInput(t, rows...)

	run, err := f.runner.RunJob(context.Background(), f.input, f.output)
	require.NoError(t, err)
	assert.Equal(t, 5, run.RecordsInserted)

	// Batch size 2 splits five records into chunks of 2, 2 and 1.
	var sizes []int
	for _, batch := range f.store.Batches() {
		sizes = append(sizes, len(batch))
	}
	assert.Equal(t, []int{2, 2, 1}, sizes)
}

func TestStartRunReturnsPendingAndCompletes(t *testing.T) {
	f := newFixture(t)
	f.writeInput(t,
		row(idA, userU, "2024-03-15T10:30:00Z", "100", "Groceries", "weekly shop", "Tesco"),
	)

	pending, err := f.runner.StartRun(context.Background(), f.input, f.output)
	require.NoError(t, err)
	assert.Equal(t, jobs.RunStatusPending, pending.Status)

	// The run finishes in the background.
	require.Eventually(t, func() bool {
		got, err := f.runs.GetRun(context.Background(), pending.RunID)
		return err == nil && got.Status == jobs.RunStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	data, err := os.ReadFile(f.output)
	require.NoError(t, err)
	assert.Contains(t, string(data), "UsersSummary")
}

func TestStartRunRejectsOverlapImmediately(t *testing.T) {
	f := newFixture(t)

	locks := jobs.NewLocks()
	runner := pipeline.NewRunner(f.cfg, f.store, locks, f.runs, nil)

	// Hold the lease; StartRun must fail fast rather than wait.
	release, err := locks.Acquire(context.Background(), f.cfg.Job.Name, 0, time.Minute)
	require.NoError(t, err)
	defer release()

	_, err = runner.StartRun(context.Background(), f.input, f.output)
	assert.ErrorIs(t, err, jobs.ErrJobBusy)
}
