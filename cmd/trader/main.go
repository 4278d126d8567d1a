package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"ai-trader/internal/agent"
	"ai-trader/internal/logger"
	"ai-trader/internal/trace"
)

var (
	flagConfig   string
	flagInitDate string
	flagEndDate  string
)

func main() {
	root := &cobra.Command{
		Use:           "trader",
		Short:         "Drives trading identities through calendar-ordered LLM sessions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	run := &cobra.Command{
		Use:   "run",
		Short: "Run every enabled signature over the configured date range",
		RunE:  runE,
	}
	run.Flags().StringVarP(&flagConfig, "config", "c", "config.yaml", "path to the yaml config")
	run.Flags().StringVar(&flagInitDate, "init-date", "", "override the run start date (YYYY-MM-DD)")
	run.Flags().StringVar(&flagEndDate, "end-date", "", "override the run end date (YYYY-MM-DD)")
	root.AddCommand(run)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func runE(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	// Flags win over everything; they travel through the same env override
	// path the config loader already honors.
	if flagInitDate != "" {
		os.Setenv("INIT_DATE", flagInitDate)
	}
	if flagEndDate != "" {
		os.Setenv("END_DATE", flagEndDate)
	}

	if err := initializeSystem(); err != nil {
		return err
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigc
		logger.Warn(ctx, "Shutdown requested, finishing in-flight sessions")
		cancel()
	}()

	cfg, err := loadConfig(ctx, flagConfig)
	if err != nil {
		return err
	}
	compressOldLogs(ctx, cfg)

	deps, err := buildDeps(ctx, cfg)
	if err != nil {
		return err
	}

	err = agent.RunAll(ctx, agent.Builtin(), deps)

	shutdownCtx := context.Background()
	if terr := trace.Shutdown(shutdownCtx); terr != nil {
		logger.Warn(ctx, "Tracer shutdown failed", "error", terr)
	}
	return err
}
