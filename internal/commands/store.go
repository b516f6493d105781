package commands

import (
	"context"
	"fmt"

	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/config"
	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/store"
	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/store/bigquery"
	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/store/inmemory"
	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/store/postgres"
)

// openStore builds the configured store driver. The returned cleanup closes
// any underlying connections.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, func(), error) {
	switch cfg.Storage.Driver {
	case "postgres":
		st, err := postgres.New(ctx, cfg.Storage.DSN, cfg.InsertWorkers)
		if err != nil {
			return nil, nil, fmt.Errorf("opening postgres store: %w", err)
		}
		return st, st.Close, nil
	case "bigquery":
		st, err := bigquery.New(ctx, cfg.Storage.Project, cfg.Storage.Dataset, cfg.Storage.Table, cfg.InsertWorkers)
		if err != nil {
			return nil, nil, fmt.Errorf("opening bigquery store: %w", err)
		}
		return st, func() { _ = st.Close() }, nil
	case "memory":
		return inmemory.NewStore(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
