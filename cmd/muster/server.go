package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/goodtune/muster/internal/clock"
	"github.com/goodtune/muster/internal/config"
	"github.com/goodtune/muster/internal/gateway"
	"github.com/goodtune/muster/internal/metrics"
	"github.com/goodtune/muster/internal/scheduler"
	"github.com/goodtune/muster/internal/session"
	"github.com/goodtune/muster/internal/sink"
	"github.com/goodtune/muster/internal/systemd"
	"github.com/goodtune/muster/internal/tracking"
	"github.com/goodtune/muster/internal/window"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the attendance tracking daemon",
	Long:  `Start the Muster daemon: gateway event consumer, window-close scheduler, and metrics endpoint.`,
	RunE:  runServer,
}

func init() {
	rootCmd.AddCommand(serverCmd)
}

func runServer(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Setup logger
	logger := setupLogger(cfg.Logging)
	log.Logger = logger

	logger.Info().
		Str("version", version).
		Str("config", configPath).
		Str("room", cfg.Platform.Room).
		Msg("Starting Muster")

	// Check for systemd socket activation
	sdListeners, err := systemd.GetListeners()
	if err != nil {
		return fmt.Errorf("failed to get systemd listeners: %w", err)
	}
	if sdListeners.Activated {
		logger.Info().Msg("Running with systemd socket activation")
	}

	// Reference clock, pinned to the configured timezone
	clk, err := clock.NewReal(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("failed to load timezone: %w", err)
	}

	logger.Info().Str("timezone", cfg.Timezone).Msg("Reference clock initialized")

	// Tracking window policy
	weekdays, err := window.ParseWeekdays(cfg.Window.Weekdays)
	if err != nil {
		return fmt.Errorf("failed to parse window weekdays: %w", err)
	}
	policy, err := window.NewPolicy(window.Config{
		Weekdays: weekdays,
		Start:    cfg.Window.Start,
		End:      cfg.Window.End,
	})
	if err != nil {
		return fmt.Errorf("failed to build window policy: %w", err)
	}

	logger.Info().
		Strs("weekdays", cfg.Window.Weekdays).
		Str("start", cfg.Window.Start).
		Str("end", cfg.Window.End).
		Msg("Tracking window policy initialized")

	// Session store and tracking service
	store := session.NewStore(logger)
	directory := gateway.NewHTTPDirectory(cfg.Platform.APIURL, cfg.Platform.Token, logger)
	reportSink := sink.New(sink.Config{
		APIURL:    cfg.Platform.APIURL,
		Token:     cfg.Platform.Token,
		ChannelID: cfg.Platform.LogChannelID,
	}, logger)

	service := tracking.NewService(store, policy, clk, directory, reportSink, cfg.Platform.Room, logger)

	logger.Info().Msg("Tracking service initialized")

	// Gateway client
	client, err := gateway.NewClient(gateway.Config{
		URL:   cfg.Platform.GatewayURL,
		Token: cfg.Platform.Token,
		Room:  cfg.Platform.Room,
	}, service, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize gateway client: %w", err)
	}

	// Metrics server
	metricsAddr := fmt.Sprintf("%s:%d", cfg.Server.BindAddress, cfg.Server.MetricsPort)
	metricsServer := metrics.NewServer(metricsAddr, logger)
	if sdListeners.Activated && sdListeners.Metrics != nil {
		metricsServer.SetListener(sdListeners.Metrics)
	}
	if err := metricsServer.Start(); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	logger.Info().Str("addr", metricsAddr).Msg("Metrics server started")

	// Window-close finalize scheduler
	var sched *scheduler.Scheduler
	if cfg.Window.ScheduledEnd {
		sched = scheduler.New(service, policy, clk, logger)
		sched.Start()
	}

	// Run the gateway client until shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gatewayDone := make(chan error, 1)
	go func() {
		gatewayDone <- client.Run(ctx)
	}()

	if err := systemd.NotifyReady(); err != nil {
		logger.Warn().Err(err).Msg("sd_notify ready failed")
	}

	logger.Info().Msg("Muster startup complete")

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info().Msg("Shutdown signal received, gracefully stopping...")
	case err := <-gatewayDone:
		logger.Error().Err(err).Msg("Gateway client exited")
	}

	if err := systemd.NotifyStopping(); err != nil {
		logger.Warn().Err(err).Msg("sd_notify stopping failed")
	}

	cancel()

	if sched != nil {
		sched.Stop()
	}

	if err := metricsServer.Stop(); err != nil {
		logger.Error().Err(err).Msg("Error stopping metrics server")
	}

	logger.Info().Msg("Muster stopped")
	return nil
}

// setupLogger configures the logger based on configuration
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	// Set log level
	level := zerolog.InfoLevel
	switch cfg.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	// Set output format
	if cfg.Format == "text" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Default to JSON
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}
