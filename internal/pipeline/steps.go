package pipeline

import (
	"context"
	"fmt"

	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/analysis"
	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/csvloader"
	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/dedup"
	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/domain"
	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/logger"
	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/report"
	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/source"
	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/store"
	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/validation"
)

// PipelineStep represents a single step in the ingestion pipeline.
type PipelineStep interface {
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	Input  source.Source
	Output source.Source

	Records          []domain.Transaction
	Unique           []domain.Transaction
	Duplicates       []domain.Transaction
	DuplicateLogPath string
	Inserted         int
	Analysis         *analysis.Result
	Purged           int64
}

// Step 1: LoadStep parses the input file into records.
type LoadStep struct{}

func (s *LoadStep) Execute(ctx context.Context, state *PipelineState) error {
	records, err := csvloader.LoadAll(ctx, state.Input)
	if err != nil {
		return err
	}
	state.Records = records
	logger.FromContext(ctx).Info().Int("records", len(records)).Str("source", state.Input.String()).Msg("input loaded")
	return nil
}

// Step 2: ValidateStep checks every record against the field rules. The full
// batch is validated before deduplication so duplicate copies of a broken
// record surface too.
type ValidateStep struct {
	validator *validation.Validator
}

func (s *ValidateStep) Execute(ctx context.Context, state *PipelineState) error {
	return s.validator.ValidateBatch(ctx, state.Records)
}

// Step 3: DeduplicateStep partitions the batch by identifier and logs every
// dropped duplicate to a per-run file.
type DeduplicateStep struct {
	duplicateLog *dedup.DuplicateLog
}

func (s *DeduplicateStep) Execute(ctx context.Context, state *PipelineState) error {
	state.Unique, state.Duplicates = dedup.Partition(state.Records)
	if len(state.Duplicates) == 0 {
		return nil
	}

	path, err := s.duplicateLog.Write(state.Duplicates)
	if err != nil {
		return err
	}
	state.DuplicateLogPath = path
	logger.FromContext(ctx).Info().
		Int("duplicates", len(state.Duplicates)).
		Str("log", path).
		Msg("duplicates dropped from batch")
	return nil
}

// Step 4: InsertStep bulk-inserts the unique records in bounded sub-batches.
// Batches committed before a failure stay committed.
type InsertStep struct {
	store     store.Store
	batchSize int
}

func (s *InsertStep) Execute(ctx context.Context, state *PipelineState) error {
	inserted, err := s.store.BulkInsert(ctx, state.Unique, s.batchSize)
	state.Inserted = inserted
	if err != nil {
		return err
	}
	logger.FromContext(ctx).Info().Int("inserted", inserted).Msg("records stored")
	return nil
}

// Step 5: AnalyzeStep computes the aggregates over a snapshot of everything
// currently stored.
type AnalyzeStep struct {
	store store.Store
}

func (s *AnalyzeStep) Execute(ctx context.Context, state *PipelineState) error {
	snapshot, err := s.store.GetAll(ctx)
	if err != nil {
		return err
	}

	result, err := analysis.Analyze(ctx, snapshot)
	if err != nil {
		return err
	}
	state.Analysis = result
	return nil
}

// Step 6: ReportStep writes the analysis result to the output destination.
type ReportStep struct{}

func (s *ReportStep) Execute(ctx context.Context, state *PipelineState) error {
	if err := report.Write(ctx, state.Output, state.Analysis); err != nil {
		return err
	}
	logger.FromContext(ctx).Info().Str("destination", state.Output.String()).Msg("report written")
	return nil
}

// Step 7: PurgeStep removes the processed records from the store. An empty
// store is fine; there is nothing to purge on the very first run.
type PurgeStep struct {
	store store.Store
}

func (s *PurgeStep) Execute(ctx context.Context, state *PipelineState) error {
	ids, err := s.store.GetAllIDs(ctx)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	purged, err := s.store.DeleteByIDs(ctx, ids)
	state.Purged = purged
	if err != nil {
		return err
	}
	logger.FromContext(ctx).Info().Int64("purged", purged).Msg("store purged")
	return nil
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps in the pipeline sequentially.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}

// NewIngestionPipeline creates the standard 7-step pipeline for ingesting a
// transaction file.
func NewIngestionPipeline(validator *validation.Validator, duplicateLog *dedup.DuplicateLog, st store.Store, batchSize int) *Pipeline {
	return NewPipeline(
		&LoadStep{},
		&ValidateStep{validator: validator},
		&DeduplicateStep{duplicateLog: duplicateLog},
		&InsertStep{store: st, batchSize: batchSize},
		&AnalyzeStep{store: st},
		&ReportStep{},
		&PurgeStep{store: st},
	)
}
