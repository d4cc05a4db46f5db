package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	temporalclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/devflow/backhaul/internal/activity"
	"github.com/devflow/backhaul/internal/config"
	"github.com/devflow/backhaul/internal/core"
	"github.com/devflow/backhaul/internal/db"
	"github.com/devflow/backhaul/internal/logging"
	"github.com/devflow/backhaul/internal/metrics"
	"github.com/devflow/backhaul/internal/workflow"
)

const taskQueue = "backhaul-tasks"

// tickCron drives ScheduleTickWorkflow once a minute. The tick itself
// decides which schedules are due.
const tickCron = "* * * * *"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate("worker"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	secretsKey, err := cfg.SecretsKeyBytes()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid secrets key")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	tc, err := temporalclient.Dial(temporalclient.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to temporal")
	}
	defer tc.Close()

	services := core.NewServices(pool, tc, secretsKey)
	metrics.RegisterPgxPoolMetrics(pool)

	w := worker.New(tc, taskQueue, worker.Options{})

	w.RegisterActivity(activity.NewBackupDB(pool, services, cfg.AgentTaskQueue))
	w.RegisterActivity(activity.NewUploader(services.StorageConfig, nil))

	w.RegisterWorkflow(workflow.FileBackupWorkflow)
	w.RegisterWorkflow(workflow.DatabaseBackupWorkflow)
	w.RegisterWorkflow(workflow.ServerBackupWorkflow)
	w.RegisterWorkflow(workflow.ScheduleTickWorkflow)
	w.RegisterWorkflow(workflow.ScheduleRunWorkflow)

	if cfg.MetricsAddr != "" {
		metricsSrv := metrics.NewServer(cfg.MetricsAddr)
		go func() {
			logger.Info().Str("addr", cfg.MetricsAddr).Msg("starting metrics server")
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error().Err(err).Msg("metrics server failed")
			}
		}()
	}

	go func() {
		logger.Info().Str("taskQueue", taskQueue).Msg("starting temporal worker")
		if err := w.Run(worker.InterruptCh()); err != nil {
			logger.Fatal().Err(err).Msg("worker failed")
		}
	}()

	registerTickSchedule(ctx, tc, logger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down worker")
	cancel()
}

// registerTickSchedule creates the cron schedule that drives due backup
// schedules. An already-existing schedule is left alone so that re-deploys
// do not fail.
func registerTickSchedule(ctx context.Context, tc temporalclient.Client, logger zerolog.Logger) {
	const scheduleID = "backup-schedule-tick"

	_, err := tc.ScheduleClient().Create(ctx, temporalclient.ScheduleOptions{
		ID: scheduleID,
		Spec: temporalclient.ScheduleSpec{
			CronExpressions: []string{tickCron},
		},
		Action: &temporalclient.ScheduleWorkflowAction{
			ID:        scheduleID,
			Workflow:  workflow.ScheduleTickWorkflow,
			TaskQueue: taskQueue,
		},
	})
	if err != nil {
		if strings.Contains(err.Error(), "already exists") || strings.Contains(err.Error(), "AlreadyExists") {
			logger.Info().Str("id", scheduleID).Msg("tick schedule already exists, skipping")
			return
		}
		logger.Fatal().Err(err).Str("id", scheduleID).Msg("failed to create tick schedule")
	}
	logger.Info().Str("id", scheduleID).Str("cron", tickCron).Msg("created tick schedule")
}
