// Package config loads dupfinder settings from defaults, an optional
// dupfinder.yaml, DUPFINDER_* environment variables and command-line flags,
// in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dupfinder/signalhandler"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. DUPFINDER_DB
const EnvPrefix = "DUPFINDER"

type Config struct {
	DB           string `mapstructure:"db"`
	DBName       string `mapstructure:"db_name"`
	DBCollection string `mapstructure:"db_collection"`
	Driver       string `mapstructure:"driver"`

	Parallel int    `mapstructure:"parallel"`
	Hasher   string `mapstructure:"hasher"`

	Trash string `mapstructure:"trash"`
	Keep  string `mapstructure:"keep"`
	Addr  string `mapstructure:"addr"`

	Debug       bool   `mapstructure:"debug"`
	LogFile     string `mapstructure:"log_file"`
	MetricsFile string `mapstructure:"metrics_file"`
}

// flagKeys maps command-line flag names to config keys
var flagKeys = map[string]string{
	"db":            "db",
	"db-name":       "db_name",
	"db-collection": "db_collection",
	"driver":        "driver",
	"parallel":      "parallel",
	"hasher":        "hasher",
	"trash":         "trash",
	"keep":          "keep",
	"addr":          "addr",
	"debug":         "debug",
	"log-file":      "log_file",
	"metrics-file":  "metrics_file",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db", "./db")
	v.SetDefault("db_name", "image_database")
	v.SetDefault("db_collection", "images")
	v.SetDefault("driver", "sqlite3")
	v.SetDefault("parallel", signalhandler.GetOptimalProcs())
	v.SetDefault("hasher", "phash")
	v.SetDefault("trash", "./Trash")
	v.SetDefault("keep", "first")
	v.SetDefault("addr", "127.0.0.1:5000")
	v.SetDefault("debug", false)
	v.SetDefault("log_file", "")
	v.SetDefault("metrics_file", "")
}

// GetConfigDir returns the per-user config directory
func GetConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "dupfinder"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "dupfinder"), nil
}

// Load resolves the configuration. configFile, when set, must exist; otherwise
// dupfinder.yaml is looked up in the working directory and the user config dir.
// Only flags the user changed override file and environment values.
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("dupfinder")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := GetConfigDir(); err == nil {
			v.AddConfigPath(dir)
		}
	}

	// Read config file (optional unless named explicitly)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.Parallel < 1 {
		return nil, fmt.Errorf("parallel must be at least 1, got %d", cfg.Parallel)
	}
	return &cfg, nil
}
