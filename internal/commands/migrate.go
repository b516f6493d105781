package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/config"
	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/logger"
	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/store/bigquery"
	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/store/postgres"
)

func newMigrateCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the storage schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(configPath)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "analyzer.yaml", "path to the configuration file")

	return cmd
}

func runMigrate(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log := logger.NewAtLevel(cfg.LogLevel)
	ctx, cancel := context.WithTimeout(logger.WithContext(context.Background(), log), time.Minute)
	defer cancel()

	switch cfg.Storage.Driver {
	case "postgres":
		st, err := postgres.New(ctx, cfg.Storage.DSN, cfg.InsertWorkers)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return err
		}
	case "bigquery":
		st, err := bigquery.New(ctx, cfg.Storage.Project, cfg.Storage.Dataset, cfg.Storage.Table, cfg.InsertWorkers)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return err
		}
	default:
		return fmt.Errorf("migrate applies to the postgres and bigquery drivers, configured driver is %q", cfg.Storage.Driver)
	}

	fmt.Println("Schema is up to date.")
	return nil
}
