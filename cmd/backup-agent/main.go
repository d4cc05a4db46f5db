package main

import (
	"fmt"
	"os"

	temporalclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/devflow/backhaul/internal/activity"
	"github.com/devflow/backhaul/internal/config"
	"github.com/devflow/backhaul/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate("backup-agent"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	tc, err := temporalclient.Dial(temporalclient.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to temporal")
	}
	defer tc.Close()

	w := worker.New(tc, cfg.AgentTaskQueue, worker.Options{})
	w.RegisterActivity(activity.NewAgent(logger, cfg.AgentDataDir, cfg.AgentWorkDir))

	logger.Info().Str("taskQueue", cfg.AgentTaskQueue).Msg("starting backup agent")
	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.Fatal().Err(err).Msg("agent failed")
	}
}
