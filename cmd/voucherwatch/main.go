// Package main wires together the voucher monitor service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/voucherwatch/voucherwatch/internal/api"
	"github.com/voucherwatch/voucherwatch/internal/clock/system"
	"github.com/voucherwatch/voucherwatch/internal/config"
	"github.com/voucherwatch/voucherwatch/internal/fetcher/headless"
	"github.com/voucherwatch/voucherwatch/internal/logging"
	"github.com/voucherwatch/voucherwatch/internal/monitor"
	"github.com/voucherwatch/voucherwatch/internal/notify/ntfy"
	"github.com/voucherwatch/voucherwatch/internal/schedule"
	"github.com/voucherwatch/voucherwatch/internal/supervisor"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	monitor.InitMetrics()

	clock := system.New()
	tracker := monitor.NewTracker()
	notifier := ntfy.New(ntfy.Config{
		BaseURL:        cfg.NtfyBaseURL,
		SendsPerMinute: 12,
	}, logger.Named("ntfy"))

	sessions, err := headless.NewFactory(headless.Config{
		ProfileDir:        cfg.Headless.ProfileDir,
		UserAgent:         cfg.Headless.UserAgent,
		NavigationTimeout: time.Duration(cfg.Headless.NavTimeoutSeconds) * time.Second,
	}, logger.Named("headless"))
	if err != nil {
		logger.Fatal("headless factory init failed", zap.Error(err))
	}

	classifier := monitor.NewClassifier(cfg.Monitor.ShortPageThreshold)
	checker := monitor.NewChecker(monitor.CheckConfig{
		PacksURL:    cfg.Monitor.PacksURL,
		TargetText:  cfg.Monitor.TargetText,
		ElementWait: time.Duration(cfg.Monitor.ElementWaitSeconds) * time.Second,
		SettleDelay: time.Duration(cfg.Monitor.SettleDelaySeconds) * time.Second,
	}, classifier, clock, logger.Named("check"))

	intervalMin, intervalMax := cfg.CheckInterval()
	loop := monitor.NewLoop(monitor.LoopConfig{
		Topic:               cfg.NtfyTopic,
		IntervalMin:         intervalMin,
		IntervalMax:         intervalMax,
		LoginPoll:           time.Duration(cfg.Monitor.LoginPollSeconds) * time.Second,
		ReminderCount:       cfg.Monitor.ReminderCount,
		ReminderSpacing:     time.Duration(cfg.Monitor.ReminderSpacingSeconds) * time.Second,
		SessionRetryBackoff: time.Duration(cfg.Monitor.SessionRetryBackoffSeconds) * time.Second,
		LoginHint:           cfg.Monitor.LoginHint,
	}, sessions, checker, notifier, clock, tracker, logger.Named("monitor"))

	sched := schedule.New(
		cfg.ScheduleDay,
		cfg.ScheduleHour,
		cfg.NtfyTopic,
		notifier,
		clock,
		logger.Named("schedule"),
	)

	apiServer := api.NewServer(tracker, logger.Named("api"))
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	sup := supervisor.New(sched, loop, tracker, logger.Named("supervisor"))
	runErr := sup.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}

	if runErr != nil {
		logger.Fatal("unrecoverable failure", zap.Error(runErr))
	}
	logger.Info("shutdown complete")
}
