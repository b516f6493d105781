// Package retry implements the self-healing loop around the ingestion
// pipeline. Validation failures caused by malformed description fields are
// repaired in the input source and the wrapped run restarts; every other
// error propagates to the caller untouched.
package retry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/logger"
	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/validation"
)

// ReplacementDescription is the fixed text written over a description that
// failed validation.
const ReplacementDescription = "Automatically repaired description"

// RepairFunc rewrites the description of one record in the input source.
type RepairFunc func(ctx context.Context, id uuid.UUID, newDescription string) error

// Orchestrator reruns a pipeline closure until it succeeds, repairing
// description failures between attempts. Restarts back off with doubling
// waits and stop after MaxAttempts; zero means retry indefinitely.
type Orchestrator struct {
	repair      RepairFunc
	maxAttempts int
	backoff     time.Duration

	// sleep is swapped out by tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates an orchestrator around the given repair function.
func New(repair RepairFunc, maxAttempts int, backoff time.Duration) *Orchestrator {
	return &Orchestrator{
		repair:      repair,
		maxAttempts: maxAttempts,
		backoff:     backoff,
		sleep:       sleepContext,
	}
}

// Run executes fn, restarting it after each repairable validation failure.
// A validation failure with no repairable description errors is terminal, as
// is running out of attempts. Non-validation errors are not retried.
func (o *Orchestrator) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	log := logger.FromContext(ctx)
	backoff := o.backoff

	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}

		var batchErr *validation.BatchError
		if !errors.As(err, &batchErr) {
			return err
		}

		ids := repairableIDs(ctx, batchErr)
		if len(ids) == 0 {
			return fmt.Errorf("retry: no repairable description failures in batch: %w", err)
		}

		for _, id := range ids {
			if rerr := o.repair(ctx, id, ReplacementDescription); rerr != nil {
				log.Error().Err(rerr).Str("transaction_id", id.String()).Msg("description repair failed")
				continue
			}
			log.Info().Str("transaction_id", id.String()).Msg("repaired description in input source")
		}

		if o.maxAttempts > 0 && attempt >= o.maxAttempts {
			return fmt.Errorf("retry: giving up after %d attempts: %w", attempt, err)
		}

		log.Warn().
			Int("attempt", attempt).
			Dur("backoff", backoff).
			Int("repaired", len(ids)).
			Msg("validation failed, restarting pipeline after repair")

		if serr := o.sleep(ctx, backoff); serr != nil {
			return serr
		}
		backoff *= 2
	}
}

// repairableIDs collects the distinct transaction identifiers named by
// description failures in the batch. Field errors with a malformed or missing
// token are logged and skipped; the rest of the batch is still evaluated.
func repairableIDs(ctx context.Context, batchErr *validation.BatchError) []uuid.UUID {
	log := logger.FromContext(ctx)

	var ids []uuid.UUID
	seen := make(map[uuid.UUID]bool)
	for _, fieldErr := range batchErr.FieldErrors() {
		if fieldErr.Field != "Description" {
			continue
		}
		if !strings.Contains(fieldErr.Message, "empty") && !strings.Contains(fieldErr.Message, "too long") {
			continue
		}

		id, ok := validation.ExtractID(fieldErr.Message)
		if !ok {
			log.Warn().Str("message", fieldErr.Message).Msg("description failure carries no usable transaction id, skipping")
			continue
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
