package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/roverfleet/roverfleet/pkg/coordinator"
	"github.com/roverfleet/roverfleet/pkg/observability"
)

var (
	// Build information (set via ldflags)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	rootCmd = &cobra.Command{
		Use:   "coordinator",
		Short: "Roverfleet Coordinator - Fleet control plane",
		Long: `The Roverfleet Coordinator tracks every registered rover, brokers operator
commands into their polling cycles, and distributes the rover program that
agents install through self-updates.`,
		RunE: run,
	}
)

func init() {
	rootCmd.PersistentFlags().String("config", "", "Config file path")
	rootCmd.PersistentFlags().String("data-dir", "/var/lib/roverfleet", "Data directory for program and fleet state")
	rootCmd.PersistentFlags().String("listen-addr", "0.0.0.0:8080", "API server bind address")
	rootCmd.PersistentFlags().String("metrics-addr", "0.0.0.0:9090", "Metrics server bind address")
	rootCmd.PersistentFlags().Duration("command-timeout", coordinator.DefaultCommandTimeout, "Operator command window per report exchange")
	rootCmd.PersistentFlags().Int("idle-wait", coordinator.DefaultIdleWaitSeconds, "Seconds an idle rover pauses between polls")
	rootCmd.PersistentFlags().Duration("snapshot-interval", 30*time.Second, "Fleet state flush interval")
	rootCmd.PersistentFlags().Int("event-history", 1000, "Fleet event retention count")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-file", "", "Optional rotating log file path")
	rootCmd.PersistentFlags().Bool("tracing-enabled", false, "Enable OpenTelemetry tracing")
	rootCmd.PersistentFlags().String("tracing-endpoint", "localhost:4317", "OTLP gRPC collector endpoint")
	rootCmd.PersistentFlags().Float64("tracing-sample-rate", 0.1, "Trace sampling rate")

	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag("data_dir", rootCmd.PersistentFlags().Lookup("data-dir"))
	viper.BindPFlag("listen_addr", rootCmd.PersistentFlags().Lookup("listen-addr"))
	viper.BindPFlag("metrics_addr", rootCmd.PersistentFlags().Lookup("metrics-addr"))
	viper.BindPFlag("command_timeout", rootCmd.PersistentFlags().Lookup("command-timeout"))
	viper.BindPFlag("idle_wait", rootCmd.PersistentFlags().Lookup("idle-wait"))
	viper.BindPFlag("snapshot_interval", rootCmd.PersistentFlags().Lookup("snapshot-interval"))
	viper.BindPFlag("event_history", rootCmd.PersistentFlags().Lookup("event-history"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_file", rootCmd.PersistentFlags().Lookup("log-file"))
	viper.BindPFlag("tracing.enabled", rootCmd.PersistentFlags().Lookup("tracing-enabled"))
	viper.BindPFlag("tracing.endpoint", rootCmd.PersistentFlags().Lookup("tracing-endpoint"))
	viper.BindPFlag("tracing.sample_rate", rootCmd.PersistentFlags().Lookup("tracing-sample-rate"))

	viper.SetEnvPrefix("ROVERFLEET")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Roverfleet Coordinator\n")
			fmt.Printf("  Version:    %s\n", Version)
			fmt.Printf("  Build Time: %s\n", BuildTime)
			fmt.Printf("  Git Commit: %s\n", GitCommit)
		},
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("Starting Roverfleet Coordinator",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	tracer, err := observability.NewTracerProvider(observability.TracerConfig{
		Enabled:        viper.GetBool("tracing.enabled"),
		Endpoint:       viper.GetString("tracing.endpoint"),
		ServiceName:    "roverfleet-coordinator",
		ServiceVersion: Version,
		SampleRate:     viper.GetFloat64("tracing.sample_rate"),
		Insecure:       true,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	config := &coordinator.Config{
		ListenAddr:       viper.GetString("listen_addr"),
		DataDir:          viper.GetString("data_dir"),
		CommandTimeout:   viper.GetDuration("command_timeout"),
		IdleWaitSeconds:  viper.GetInt("idle_wait"),
		SnapshotInterval: viper.GetDuration("snapshot_interval"),
		EventHistory:     viper.GetInt("event_history"),
		Logger:           logger,
	}

	coord, err := coordinator.New(config)
	if err != nil {
		return fmt.Errorf("failed to create coordinator: %w", err)
	}

	metricsServer := observability.NewMetricsServer(viper.GetString("metrics_addr"), logger)
	metricsServer.SetReadyCheck(coord.Ready)
	if err := metricsServer.Start(); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	if err := coord.Start(); err != nil {
		return fmt.Errorf("failed to start coordinator: %w", err)
	}

	sig := <-sigChan
	logger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := coord.Stop(shutdownCtx); err != nil {
		logger.Error("Error stopping coordinator", zap.Error(err))
	}
	if err := metricsServer.Stop(shutdownCtx); err != nil {
		logger.Error("Error stopping metrics server", zap.Error(err))
	}
	if err := tracer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error shutting down tracer", zap.Error(err))
	}

	logger.Info("Shutdown complete")
	return nil
}

func newLogger() (*zap.Logger, error) {
	level := viper.GetString("log_level")
	if path := viper.GetString("log_file"); path != "" {
		return observability.NewFileLogger(level, path, 50, 3)
	}
	return observability.NewLogger(level)
}
