package jobs

import (
	"context"
	"time"
)

// RunStatus represents the current status of a job run.
type RunStatus string

const (
	// RunStatusPending indicates the run is registered but not started.
	RunStatusPending RunStatus = "pending"
	// RunStatusRunning indicates the run is executing the pipeline.
	RunStatusRunning RunStatus = "running"
	// RunStatusCompleted indicates the run finished and wrote its report.
	RunStatusCompleted RunStatus = "completed"
	// RunStatusFailed indicates the run terminated with an error.
	RunStatusFailed RunStatus = "failed"
)

// Run records one execution of the ingestion job.
type Run struct {
	// RunID is the unique identifier for this run.
	RunID string `json:"run_id"`

	// JobName is the job identity the run belongs to. Runs sharing a name
	// never execute concurrently.
	JobName string `json:"job_name"`

	// InputPath is the source the run ingested.
	InputPath string `json:"input_path"`

	// OutputPath is where the run wrote its report.
	OutputPath string `json:"output_path"`

	// Status is the current status of the run.
	Status RunStatus `json:"status"`

	// CreatedAt is when the run was registered.
	CreatedAt time.Time `json:"created_at"`

	// StartedAt is when the pipeline began executing.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// CompletedAt is when the run finished (success or failure).
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error contains error details if the run failed.
	Error string `json:"error,omitempty"`

	// Attempts counts pipeline executions including repair-driven restarts.
	Attempts int `json:"attempts"`

	// RecordsLoaded is how many records the input file held.
	RecordsLoaded int `json:"records_loaded"`

	// DuplicatesDropped is how many records the deduplicator discarded.
	DuplicatesDropped int `json:"duplicates_dropped"`

	// RecordsInserted is how many records the store accepted.
	RecordsInserted int `json:"records_inserted"`

	// RecordsPurged is how many records the purge step removed.
	RecordsPurged int64 `json:"records_purged"`
}

// RunStore defines the interface for storing and retrieving run history.
type RunStore interface {
	// SaveRun saves or updates a run's state.
	SaveRun(ctx context.Context, run *Run) error

	// GetRun retrieves a run by ID.
	GetRun(ctx context.Context, runID string) (*Run, error)

	// ListRuns retrieves runs with optional filtering, newest first.
	ListRuns(ctx context.Context, filter RunFilter) ([]*Run, error)
}

// RunFilter defines filtering criteria for listing runs.
type RunFilter struct {
	// JobName filters runs by job identity.
	JobName string

	// Status filters runs by status.
	Status RunStatus

	// Limit limits the number of results.
	Limit int

	// Offset for pagination.
	Offset int
}

// Notifier publishes run state changes to interested observers, such as the
// status dashboard. Implementations must be safe for concurrent use.
type Notifier interface {
	// RunUpdated announces that the run changed state. It must not block.
	RunUpdated(run *Run)
}

// Trigger starts ingestion runs on demand.
type Trigger interface {
	// StartRun launches a run in the background and returns its pending
	// record. It reports ErrJobBusy when another run holds the job lease.
	StartRun(ctx context.Context, inputPath, outputPath string) (*Run, error)
}
