package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	goruntime "runtime"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/roverfleet/roverfleet/pkg/agent"
	"github.com/roverfleet/roverfleet/pkg/drivers/sim"
	"github.com/roverfleet/roverfleet/pkg/observability"
)

var (
	// Build information (set via ldflags)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	rootCmd = &cobra.Command{
		Use:   "agent",
		Short: "Roverfleet Agent - Control loop for one rover",
		Long: `The Roverfleet Agent runs on each rover, registering with the coordinator,
polling for commands, executing them against the local drivers, and keeping
its own program current through coordinator-driven self-updates.`,
		RunE: run,
	}
)

func init() {
	rootCmd.PersistentFlags().String("config", "", "Config file path")
	rootCmd.PersistentFlags().String("data-dir", "/var/lib/roverfleet-agent", "Data directory for identity and program storage")
	rootCmd.PersistentFlags().String("coordinator-addr", "http://localhost:8080", "Coordinator base URL")
	rootCmd.PersistentFlags().String("metrics-addr", "0.0.0.0:9091", "Metrics server bind address")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-file", "", "Optional rotating log file path")
	rootCmd.PersistentFlags().Duration("request-timeout", 10*time.Second, "Coordinator request timeout")
	rootCmd.PersistentFlags().Duration("register-retry-interval", 5*time.Second, "Delay between registration attempts")
	rootCmd.PersistentFlags().Duration("backoff-unit", time.Second, "Report retry backoff unit")
	rootCmd.PersistentFlags().Duration("backoff-cap", 0, "Report retry backoff ceiling (0 for unbounded)")
	rootCmd.PersistentFlags().Int("sim-resource-level", 100, "Simulated rig starting resource level")
	rootCmd.PersistentFlags().Int("sim-resource-capacity", 100, "Simulated rig resource capacity")

	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag("data_dir", rootCmd.PersistentFlags().Lookup("data-dir"))
	viper.BindPFlag("coordinator_addr", rootCmd.PersistentFlags().Lookup("coordinator-addr"))
	viper.BindPFlag("metrics_addr", rootCmd.PersistentFlags().Lookup("metrics-addr"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_file", rootCmd.PersistentFlags().Lookup("log-file"))
	viper.BindPFlag("request_timeout", rootCmd.PersistentFlags().Lookup("request-timeout"))
	viper.BindPFlag("register_retry_interval", rootCmd.PersistentFlags().Lookup("register-retry-interval"))
	viper.BindPFlag("backoff_unit", rootCmd.PersistentFlags().Lookup("backoff-unit"))
	viper.BindPFlag("backoff_cap", rootCmd.PersistentFlags().Lookup("backoff-cap"))
	viper.BindPFlag("sim.resource_level", rootCmd.PersistentFlags().Lookup("sim-resource-level"))
	viper.BindPFlag("sim.resource_capacity", rootCmd.PersistentFlags().Lookup("sim-resource-capacity"))

	viper.SetEnvPrefix("ROVERFLEET")
	viper.AutomaticEnv()

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Roverfleet Agent\n")
			fmt.Printf("  Version:    %s\n", Version)
			fmt.Printf("  Build Time: %s\n", BuildTime)
			fmt.Printf("  Git Commit: %s\n", GitCommit)
			fmt.Printf("  Go Version: %s\n", goruntime.Version())
			fmt.Printf("  OS/Arch:    %s/%s\n", goruntime.GOOS, goruntime.GOARCH)
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "inspect",
		Short: "Inspect the host the agent is running on",
		RunE:  inspect,
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

	logger.Info("Starting Roverfleet Agent",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
		zap.Bool("update_guard", os.Getenv(agent.UpdateGuardEnv) != ""),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	rig := sim.New(viper.GetInt("sim.resource_level"), viper.GetInt("sim.resource_capacity"))

	config := &agent.Config{
		DataDir:               viper.GetString("data_dir"),
		CoordinatorAddr:       viper.GetString("coordinator_addr"),
		RequestTimeout:        viper.GetDuration("request_timeout"),
		RegisterRetryInterval: viper.GetDuration("register_retry_interval"),
		BackoffUnit:           viper.GetDuration("backoff_unit"),
		BackoffCap:            viper.GetDuration("backoff_cap"),
		Rig:                   rig,
		Logger:                logger,
	}
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	agentInstance, err := agent.New(config)
	if err != nil {
		return fmt.Errorf("failed to create agent: %w", err)
	}
	rig.RegisterActions(agentInstance.Registry())

	metricsServer := observability.NewMetricsServer(viper.GetString("metrics_addr"), logger)
	// Not ready until the rover holds an identity.
	metricsServer.SetReadyCheck(func() error {
		if agentInstance.Identity() == nil {
			return fmt.Errorf("not registered with coordinator")
		}
		return nil
	})
	if err := metricsServer.Start(); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	runErr := agentInstance.Run(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := metricsServer.Stop(shutdownCtx); err != nil {
		logger.Error("Error stopping metrics server", zap.Error(err))
	}

	if runErr != nil && runErr != context.Canceled {
		return fmt.Errorf("agent terminated: %w", runErr)
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

func inspect(cmd *cobra.Command, args []string) error {
	fmt.Println("Rover Host Inspection Report")
	fmt.Println("============================")
	fmt.Printf("Operating System: %s\n", goruntime.GOOS)
	fmt.Printf("Architecture: %s\n", goruntime.GOARCH)
	fmt.Printf("Go Version: %s\n", goruntime.Version())

	if info, err := host.Info(); err == nil {
		fmt.Printf("Hostname: %s\n", info.Hostname)
		fmt.Printf("Platform: %s %s\n", info.Platform, info.PlatformVersion)
		fmt.Printf("Uptime: %s\n", (time.Duration(info.Uptime) * time.Second).String())
	}

	fmt.Println("\nDetected Resources:")
	if counts, err := cpu.Counts(true); err == nil {
		fmt.Printf("  CPU Cores: %d\n", counts)
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		fmt.Printf("  Memory: %d MB total, %d MB available\n",
			vm.Total/1024/1024, vm.Available/1024/1024)
	}

	fmt.Println("\nAgent Environment:")
	fmt.Printf("  Data Dir: %s\n", viper.GetString("data_dir"))
	fmt.Printf("  Coordinator: %s\n", viper.GetString("coordinator_addr"))
	fmt.Printf("  Update Guard: %v\n", os.Getenv(agent.UpdateGuardEnv) != "")
	return nil
}
