package config

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config holds the runtime configuration of the linelog binary.
// The debug log destination is deliberately absent: it is linelog.DefaultPath.
type Config struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"` // json, text

	// Ingestion server
	Listen          string `mapstructure:"listen"`
	MaxRequestBytes int64  `mapstructure:"max_request_bytes"`

	// Copy operational log entries into the debug log
	MirrorOperational bool   `mapstructure:"mirror_operational"`
	MirrorLevel       string `mapstructure:"mirror_level"`

	Metrics MetricsConfig `mapstructure:"metrics"`
}

// MetricsConfig defines metrics configuration
type MetricsConfig struct {
	Enable bool   `mapstructure:"enable"`
	Path   string `mapstructure:"path"`
}

// Load loads configuration from defaults, an optional config file,
// LINELOG_* environment variables and command line flags
func Load(cmd *cobra.Command) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if err := bindFlags(cmd, v); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}

	if configFile, _ := cmd.Flags().GetString("config"); configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("LINELOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")

	v.SetDefault("listen", ":9400")
	v.SetDefault("max_request_bytes", 1<<20)

	v.SetDefault("mirror_operational", false)
	v.SetDefault("mirror_level", "warn")

	v.SetDefault("metrics.enable", true)
	v.SetDefault("metrics.path", "/metrics")
}

// bindFlags binds the flags the command actually defines; subcommands only
// declare the ones relevant to them
func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	flags := map[string]string{
		"log-level":          "log_level",
		"log-format":         "log_format",
		"listen":             "listen",
		"mirror-operational": "mirror_operational",
	}

	for flag, key := range flags {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return err
		}
	}

	return nil
}

func validate(cfg *Config) error {
	switch cfg.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, cfg.LogFormat)
	}

	if cfg.Listen == "" {
		return ErrListenRequired
	}

	if cfg.MaxRequestBytes <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidRequestLimit, cfg.MaxRequestBytes)
	}

	if cfg.Metrics.Enable && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return fmt.Errorf("%w: %q", ErrInvalidMetricsPath, cfg.Metrics.Path)
	}

	return nil
}
