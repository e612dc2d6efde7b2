package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config holds all Token Timeline configuration.
type Config struct {
	Timeline  TimelineConfig  `mapstructure:"timeline"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Server    ServerConfig    `mapstructure:"server"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// TimelineConfig defines the aggregation engine settings.
type TimelineConfig struct {
	Enabled             bool          `mapstructure:"enabled"`
	BufferCapacity      int           `mapstructure:"buffer_capacity"`
	BucketResolution    time.Duration `mapstructure:"bucket_resolution"`
	MaxRetention        time.Duration `mapstructure:"max_retention"`
	SweepInterval       time.Duration `mapstructure:"sweep_interval"`
	MaxDownsamplePoints int           `mapstructure:"max_downsample_points"`
	BucketPadding       time.Duration `mapstructure:"bucket_padding"`
	PredictionEnabled   bool          `mapstructure:"prediction_enabled"`
}

// StorageConfig defines record log settings.
type StorageConfig struct {
	Path string `mapstructure:"path"`
}

// ServerConfig defines HTTP API settings.
type ServerConfig struct {
	Listen       string `mapstructure:"listen"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
}

// ProvidersConfig defines provider catalog settings.
type ProvidersConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func newViper(cfgFile string) (*viper.Viper, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("find home directory: %w", err)
		}

		v.AddConfigPath(filepath.Join(home, ".ttm"))
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// Defaults
	home, _ := os.UserHomeDir()
	v.SetDefault("timeline.enabled", true)
	v.SetDefault("timeline.buffer_capacity", 2016)
	v.SetDefault("timeline.bucket_resolution", "5m")
	v.SetDefault("timeline.max_retention", "168h")
	v.SetDefault("timeline.sweep_interval", "10m")
	v.SetDefault("timeline.max_downsample_points", 200)
	v.SetDefault("timeline.bucket_padding", "1s")
	v.SetDefault("timeline.prediction_enabled", true)
	v.SetDefault("storage.path", filepath.Join(home, ".ttm", "records.db"))
	v.SetDefault("server.listen", ":8090")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("providers.path", "providers/providers.yaml")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Environment variables
	v.SetEnvPrefix("TTM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	return v, nil
}

// Load reads configuration from file and environment variables.
func Load(cfgFile string) (*Config, error) {
	v, err := newViper(cfgFile)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Watch reloads the file on change and invokes onChange with the new
// configuration. It returns immediately; watching happens on viper's
// fsnotify goroutine. Unparseable edits are reported through onError and
// the previous configuration stays in effect.
func Watch(cfgFile string, onChange func(*Config), onError func(error)) error {
	v, err := newViper(cfgFile)
	if err != nil {
		return err
	}
	if v.ConfigFileUsed() == "" {
		// Nothing on disk to watch; defaults and env stay in effect.
		return nil
	}

	v.OnConfigChange(func(_ fsnotify.Event) {
		var cfg Config
		if err := v.Unmarshal(&cfg); err != nil {
			if onError != nil {
				onError(fmt.Errorf("reload config: %w", err))
			}
			return
		}
		onChange(&cfg)
	})
	v.WatchConfig()
	return nil
}
