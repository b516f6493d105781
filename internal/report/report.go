// Package report serializes analysis results to the configured destination.
package report

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/analysis"
	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/source"
)

// Write renders the analysis result as indented JSON and replaces the
// destination's contents.
func Write(ctx context.Context, dst source.Source, result *analysis.Result) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("report: encoding result: %w", err)
	}
	data = append(data, '\n')

	if err := dst.WriteAll(ctx, data); err != nil {
		return fmt.Errorf("report: writing %s: %w", dst, err)
	}
	return nil
}
