// Package pipeline sequences one ingestion run: Load, Validate, Deduplicate,
// Insert, Analyze, Report, Purge. The runner wraps the sequence in the retry
// orchestrator and guards the job identity with an advisory lease.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/config"
	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/csvloader"
	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/dedup"
	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/jobs"
	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/logger"
	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/retry"
	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/source"
	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/store"
	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/validation"
)

// Runner executes complete ingestion runs: advisory lease, retry
// orchestration, run history, and the step pipeline itself.
// Runner implements the jobs.Trigger interface.
type Runner struct {
	jobName     string
	lockWait    time.Duration
	lockTTL     time.Duration
	maxAttempts int
	backoff     time.Duration

	pipeline *Pipeline
	locks    *jobs.Locks
	runs     jobs.RunStore
	notifier jobs.Notifier
	now      func() time.Time
}

// NewRunner wires a runner from configuration and a store implementation.
// runs and notifier may be nil when no dashboard observes the job.
func NewRunner(cfg *config.Config, st store.Store, locks *jobs.Locks, runs jobs.RunStore, notifier jobs.Notifier) *Runner {
	validator := validation.New(validation.NewErrorLog(cfg.Logs.ErrorLogPath))
	duplicateLog := dedup.NewDuplicateLog(cfg.Logs.DuplicateLogDir)

	return &Runner{
		jobName:     cfg.Job.Name,
		lockWait:    time.Duration(cfg.Job.LockTimeoutSeconds) * time.Second,
		lockTTL:     time.Duration(cfg.Job.LockTTLMinutes) * time.Minute,
		maxAttempts: cfg.Job.MaxAttempts,
		backoff:     time.Duration(cfg.Job.BackoffSeconds) * time.Second,
		pipeline:    NewIngestionPipeline(validator, duplicateLog, st, cfg.BatchSize),
		locks:       locks,
		runs:        runs,
		notifier:    notifier,
		now:         time.Now,
	}
}

// RunJob executes one complete ingestion run for the given input and output
// paths. A trigger that arrives while another run holds the job lease is
// rejected with jobs.ErrJobBusy once the bounded wait expires.
func (r *Runner) RunJob(ctx context.Context, inputPath, outputPath string) (*jobs.Run, error) {
	log := logger.FromContext(ctx)

	release, err := r.locks.Acquire(ctx, r.jobName, r.lockWait, r.lockTTL)
	if err != nil {
		if errors.Is(err, jobs.ErrJobBusy) {
			log.Warn().Str("job", r.jobName).Msg("trigger rejected, another run holds the job lease")
		}
		return nil, err
	}
	defer release()

	input, output, err := resolvePaths(inputPath, outputPath)
	if err != nil {
		return nil, err
	}

	run := r.newRun(ctx, inputPath, outputPath)
	return r.execute(ctx, run, input, output)
}

// StartRun registers a pending run and executes it in the background. Unlike
// RunJob it never waits for the lease: a trigger that arrives while a run is
// in flight gets jobs.ErrJobBusy immediately. Observers follow the returned
// run through the run store and notifier.
func (r *Runner) StartRun(ctx context.Context, inputPath, outputPath string) (*jobs.Run, error) {
	log := logger.FromContext(ctx)

	release, err := r.locks.Acquire(ctx, r.jobName, 0, r.lockTTL)
	if err != nil {
		if errors.Is(err, jobs.ErrJobBusy) {
			log.Warn().Str("job", r.jobName).Msg("trigger rejected, another run holds the job lease")
		}
		return nil, err
	}

	input, output, err := resolvePaths(inputPath, outputPath)
	if err != nil {
		release()
		return nil, err
	}

	run := r.newRun(ctx, inputPath, outputPath)

	// The run outlives the request; hand back a snapshot and keep the live
	// record in the background goroutine.
	pending := *run
	bg := logger.WithContext(context.Background(), log)
	go func() {
		defer release()
		r.execute(bg, run, input, output)
	}()
	return &pending, nil
}

func resolvePaths(inputPath, outputPath string) (source.Source, source.Source, error) {
	input, err := source.Resolve(inputPath)
	if err != nil {
		return nil, nil, err
	}
	output, err := source.Resolve(outputPath)
	if err != nil {
		return nil, nil, err
	}
	return input, output, nil
}

// newRun registers a fresh pending run in the history store.
func (r *Runner) newRun(ctx context.Context, inputPath, outputPath string) *jobs.Run {
	run := &jobs.Run{
		RunID:      uuid.NewString(),
		JobName:    r.jobName,
		InputPath:  inputPath,
		OutputPath: outputPath,
		Status:     jobs.RunStatusPending,
		CreatedAt:  r.now(),
	}
	r.saveRun(ctx, run)
	return run
}

// execute drives the retry orchestrator over the step pipeline and settles
// the run record. The caller holds the job lease.
func (r *Runner) execute(ctx context.Context, run *jobs.Run, input, output source.Source) (*jobs.Run, error) {
	log := logger.FromContext(ctx)

	started := r.now()
	run.StartedAt = &started
	run.Status = jobs.RunStatusRunning
	r.saveRun(ctx, run)
	log.Info().Str("run_id", run.RunID).Str("input", run.InputPath).Msg("run started")

	repair := func(ctx context.Context, id uuid.UUID, newDescription string) error {
		return csvloader.RepairDescription(ctx, input, id, newDescription)
	}
	orchestrator := retry.New(repair, r.maxAttempts, r.backoff)

	err := orchestrator.Run(ctx, func(ctx context.Context) error {
		run.Attempts++
		state := &PipelineState{Input: input, Output: output}
		stepErr := r.pipeline.Execute(ctx, state)

		run.RecordsLoaded = len(state.Records)
		run.DuplicatesDropped = len(state.Duplicates)
		run.RecordsInserted = state.Inserted
		run.RecordsPurged = state.Purged
		r.saveRun(ctx, run)
		return stepErr
	})

	completed := r.now()
	run.CompletedAt = &completed
	if err != nil {
		run.Status = jobs.RunStatusFailed
		run.Error = err.Error()
		r.saveRun(ctx, run)
		log.Error().Err(err).Str("run_id", run.RunID).Int("attempts", run.Attempts).Msg("run failed")
		return run, err
	}

	run.Status = jobs.RunStatusCompleted
	r.saveRun(ctx, run)
	log.Info().
		Str("run_id", run.RunID).
		Int("attempts", run.Attempts).
		Int("loaded", run.RecordsLoaded).
		Int("duplicates", run.DuplicatesDropped).
		Int("inserted", run.RecordsInserted).
		Int64("purged", run.RecordsPurged).
		Msg("run completed")
	return run, nil
}

var _ jobs.Trigger = (*Runner)(nil)

// saveRun persists the run state and announces it. History failures are
// logged but never fail the run itself.
func (r *Runner) saveRun(ctx context.Context, run *jobs.Run) {
	if r.runs != nil {
		if err := r.runs.SaveRun(ctx, run); err != nil {
			logger.FromContext(ctx).Error().Err(err).Str("run_id", run.RunID).Msg("saving run state failed")
		}
	}
	if r.notifier != nil {
		r.notifier.RunUpdated(run)
	}
}
