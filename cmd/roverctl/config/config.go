package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config holds CLI configuration
type Config struct {
	Coordinator string `mapstructure:"coordinator"`
}

// LoadConfig loads configuration from file and flags
func LoadConfig(cmd *cobra.Command) (*Config, error) {
	cfg := &Config{}

	configFile, _ := cmd.Flags().GetString("config")
	if configFile == "" {
		// Default to $HOME/.roverfleet/config.yaml
		home, err := os.UserHomeDir()
		if err == nil {
			configFile = filepath.Join(home, ".roverfleet", "config.yaml")
		}
	}

	viper.SetConfigFile(configFile)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()
	viper.SetEnvPrefix("ROVERFLEET")

	if configFile != "" {
		if err := viper.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				if !os.IsNotExist(err) {
					return nil, fmt.Errorf("failed to read config file: %w", err)
				}
			}
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Override with flags
	if coordinator, _ := cmd.Flags().GetString("coordinator"); coordinator != "" {
		cfg.Coordinator = coordinator
	}

	if cfg.Coordinator == "" {
		cfg.Coordinator = "http://localhost:8080"
	}

	return cfg, nil
}
