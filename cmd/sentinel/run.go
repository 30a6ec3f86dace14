package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"SMCSentinel/internal/metrics"
	"SMCSentinel/internal/scheduler"
	"SMCSentinel/internal/tracker"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the scheduled analysis and Telegram command loop",
		RunE:  runDaemon,
	}
	cmd.Flags().Bool("run-on-start", os.Getenv("RUN_ON_START") == "true", "Run one analysis immediately")
	return cmd
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log.Info().Str("version", version).Msg(appName + " starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	n, tn, err := newNotifier(cfg)
	if err != nil {
		return fmt.Errorf("init telegram: %w", err)
	}
	rec := newRecorder(cfg)
	defer rec.Close()

	m := metrics.NewMetricsRegistry()
	if cfg.Metrics.ListenAddr != "" {
		srv := m.Serve(cfg.Metrics.ListenAddr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	tr, err := tracker.New(cfg.Database.StateFile)
	if err != nil {
		return err
	}

	sched := scheduler.NewScheduler(ctx, newCollector(cfg), n, rec, m, scheduler.Settings{
		Symbols:            cfg.Symbols,
		Analysis:           cfg.Analysis,
		Workers:            cfg.Workers,
		NotifyOnChangeOnly: cfg.Schedule.NotifyOnChangeOnly,
	})
	sched.Tracker = tr
	if err := sched.RegisterAll(cfg.Schedule.AnalysisCron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info().Msg("telegram polling started")
	}

	if runNow, _ := cmd.Flags().GetBool("run-on-start"); runNow {
		log.Info().Msg("run-on-start enabled, executing analysis now")
		go sched.RunNow()
	}

	log.Info().Str("cron", cfg.Schedule.AnalysisCron).Msg(appName + " is running, press Ctrl+C to stop")
	<-ctx.Done()
	log.Info().Msg("shutdown signal received, stopping")
	return nil
}
