package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/config"
	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/jobs"
	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/logger"
	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/pipeline"
)

func newRunCommand() *cobra.Command {
	var configPath string
	var inputPath string
	var outputPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute one ingestion run now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(configPath, inputPath, outputPath)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "analyzer.yaml", "path to the configuration file")
	cmd.Flags().StringVar(&inputPath, "input", "", "input CSV path or gs:// URI (defaults to the configured input)")
	cmd.Flags().StringVar(&outputPath, "output", "", "report path or gs:// URI (defaults to the configured output)")

	return cmd
}

func runRun(configPath, inputPath, outputPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if inputPath == "" {
		inputPath = cfg.InputPath
	}
	if outputPath == "" {
		outputPath = cfg.OutputPath
	}

	log := logger.NewAtLevel(cfg.LogLevel)
	ctx := logger.WithContext(context.Background(), log)

	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	runner := pipeline.NewRunner(cfg, st, jobs.NewLocks(), nil, nil)

	run, err := runner.RunJob(ctx, inputPath, outputPath)
	if err != nil {
		return err
	}

	fmt.Printf("Report written to %s (%d inserted, %d duplicates dropped, %d purged)\n",
		run.OutputPath, run.RecordsInserted, run.DuplicatesDropped, run.RecordsPurged)
	return nil
}
