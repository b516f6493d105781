package inmemory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/jobs"
)

func testRun(id string, created time.Time, status jobs.RunStatus) *jobs.Run {
	return &jobs.Run{
		RunID:     id,
		JobName:   "transactions-ingest",
		Status:    status,
		CreatedAt: created,
	}
}

func TestStoreSaveAndGetRun(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	run := testRun("run-1", time.Now(), jobs.RunStatusPending)
	require.NoError(t, s.SaveRun(ctx, run))

	got, err := s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, jobs.RunStatusPending, got.Status)

	// The stored copy must not alias the caller's struct.
	run.Status = jobs.RunStatusFailed
	got, err = s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, jobs.RunStatusPending, got.Status)
}

func TestStoreSaveRunRequiresID(t *testing.T) {
	s := NewStore()
	err := s.SaveRun(context.Background(), &jobs.Run{})
	require.Error(t, err)
}

func TestStoreGetRunNotFound(t *testing.T) {
	s := NewStore()
	_, err := s.GetRun(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")
}

func TestStoreListRunsNewestFirst(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	base := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		run := testRun(fmt.Sprintf("run-%d", i), base.Add(time.Duration(i)*time.Minute), jobs.RunStatusCompleted)
		require.NoError(t, s.SaveRun(ctx, run))
	}

	runs, err := s.ListRuns(ctx, jobs.RunFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "run-2", runs[0].RunID)
	assert.Equal(t, "run-1", runs[1].RunID)
	assert.Equal(t, "run-0", runs[2].RunID)
}

func TestStoreListRunsFiltering(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	base := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

	require.NoError(t, s.SaveRun(ctx, testRun("run-0", base, jobs.RunStatusCompleted)))
	require.NoError(t, s.SaveRun(ctx, testRun("run-1", base.Add(time.Minute), jobs.RunStatusFailed)))
	other := testRun("run-2", base.Add(2*time.Minute), jobs.RunStatusCompleted)
	other.JobName = "other-job"
	require.NoError(t, s.SaveRun(ctx, other))

	runs, err := s.ListRuns(ctx, jobs.RunFilter{Status: jobs.RunStatusFailed})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].RunID)

	runs, err = s.ListRuns(ctx, jobs.RunFilter{JobName: "transactions-ingest"})
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestStoreListRunsLimitAndOffset(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	base := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, s.SaveRun(ctx, testRun(fmt.Sprintf("run-%d", i), base.Add(time.Duration(i)*time.Minute), jobs.RunStatusCompleted)))
	}

	runs, err := s.ListRuns(ctx, jobs.RunFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-4", runs[0].RunID)

	runs, err = s.ListRuns(ctx, jobs.RunFilter{Offset: 4})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-0", runs[0].RunID)

	runs, err = s.ListRuns(ctx, jobs.RunFilter{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, runs)
}
