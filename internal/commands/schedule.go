package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/api"
	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/config"
	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/jobs"
	jobsmem "github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/jobs/inmemory"
	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/logger"
	"github.com/dinart-stenio-d2/FinancialTransactionAnalyzer/internal/pipeline"
)

func newScheduleCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the ingestion job on its configured schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchedule(configPath)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "analyzer.yaml", "path to the configuration file")

	return cmd
}

func runSchedule(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log := logger.NewAtLevel(cfg.LogLevel)
	ctx := logger.WithContext(context.Background(), log)

	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	runs := jobsmem.NewStore()
	events := jobsmem.NewEvents()
	defer events.Close()

	runner := pipeline.NewRunner(cfg, st, jobs.NewLocks(), runs, events)

	c := cron.New()
	_, err = c.AddFunc(cfg.Job.Schedule, func() {
		// An overlapping tick is rejected by the job lease; the runner
		// already logs that, so only real failures surface here.
		if _, err := runner.RunJob(ctx, cfg.InputPath, cfg.OutputPath); err != nil && !errors.Is(err, jobs.ErrJobBusy) {
			log.Error().Err(err).Msg("Scheduled run failed")
		}
	})
	if err != nil {
		return fmt.Errorf("parsing schedule %q: %w", cfg.Job.Schedule, err)
	}

	c.Start()
	log.Info().
		Str("job", cfg.Job.Name).
		Str("schedule", cfg.Job.Schedule).
		Str("input", cfg.InputPath).
		Msg("Scheduler started")

	var server *api.Server
	if cfg.StatusAddr != "" {
		router := api.NewRouter(runs, runner, events, cfg.InputPath, cfg.OutputPath, log)
		server = api.NewServer(cfg.StatusAddr, router, log)
		go func() {
			if err := server.Start(); err != nil {
				log.Fatal().Err(err).Msg("Status server failed")
			}
		}()
	}

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if server != nil {
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Status server forced to shutdown")
		}
	}

	// Let an in-flight run finish, bounded by the shutdown window.
	select {
	case <-c.Stop().Done():
	case <-shutdownCtx.Done():
		log.Warn().Msg("Gave up waiting for the in-flight run")
	}

	log.Info().Msg("Scheduler exited")
	return nil
}
