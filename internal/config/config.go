package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	defaultSerialPort         = "auto"
	defaultBaudRate           = 115200
	defaultReadTimeout        = 1 * time.Second
	defaultOutputDirectory    = "OUTPUT"
	defaultFilePrefix         = "Trisonica"
	defaultWindowSize         = 100
	defaultBufferSize         = 1000
	defaultSeriesSize         = 50
	defaultCheckpointInterval = 10 * time.Minute
	defaultStatusInterval     = 1 * time.Minute
	defaultLogLevel           = "info"
	defaultLogFormat          = "console"
	defaultLogFileEnabled     = false
	defaultLogDirectory       = "log"
	defaultLogFilename        = "windtrace.log"
	defaultLogMaxSizeMB       = 10
	defaultLogMaxBackups      = 3
	defaultLogMaxAgeDays      = 7
	defaultLogCompress        = false

	// Environment variable prefix
	envPrefix = "WINDTRACE"
)

type Config struct {
	Serial    SerialConfig    `mapstructure:"serial"`
	Output    OutputConfig    `mapstructure:"output"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Forwarder ForwarderConfig `mapstructure:"forwarder"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Log       LogConfig       `mapstructure:"log"`
}

type SerialConfig struct {
	Port        string        `mapstructure:"port"` // device path or "auto"
	BaudRate    int           `mapstructure:"baudRate"`
	ReadTimeout time.Duration `mapstructure:"readTimeout"`
}

type OutputConfig struct {
	Directory  string `mapstructure:"directory"`
	FilePrefix string `mapstructure:"filePrefix"`
}

type PipelineConfig struct {
	WindowSize         int           `mapstructure:"windowSize"` // statistics window capacity K
	BufferSize         int           `mapstructure:"bufferSize"` // live record ring capacity
	SeriesSize         int           `mapstructure:"seriesSize"` // per-category display series capacity
	CheckpointInterval time.Duration `mapstructure:"checkpointInterval"`
	StatusInterval     time.Duration `mapstructure:"statusInterval"`
}

type ForwarderConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"` // empty disables the /metrics listener
}

type LogConfig struct {
	Level              string `mapstructure:"level"`
	Format             string `mapstructure:"format"`
	FileLoggingEnabled bool   `mapstructure:"fileLoggingEnabled"`
	Directory          string `mapstructure:"directory"`
	Filename           string `mapstructure:"filename"`
	MaxSize            int    `mapstructure:"maxSize"`    // Max size in MB
	MaxBackups         int    `mapstructure:"maxBackups"` // Max backup files
	MaxAge             int    `mapstructure:"maxAge"`     // Max days to retain
	Compress           bool   `mapstructure:"compress"`   // Compress rotated files?
}

// Load initializes viper, reads the optional config file, applies
// defaults and environment overrides, unmarshals, and validates. An empty
// configPath runs on defaults plus environment alone; the logger has no
// mandatory config file, unlike a service deployment.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	configureViper(v, configPath)
	setDefaults(v)

	if configPath != "" {
		if err := readConfigFile(v); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnmarshallingConfig, err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// configureViper sets up the viper instance for file and environment variables.
func configureViper(v *viper.Viper, configPath string) {
	if configPath != "" {
		v.SetConfigFile(configPath)
	}

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

// setDefaults applies default configuration values using Viper.
func setDefaults(v *viper.Viper) {
	v.SetDefault("serial.port", defaultSerialPort)
	v.SetDefault("serial.baudRate", defaultBaudRate)
	v.SetDefault("serial.readTimeout", defaultReadTimeout)
	v.SetDefault("output.directory", defaultOutputDirectory)
	v.SetDefault("output.filePrefix", defaultFilePrefix)
	v.SetDefault("pipeline.windowSize", defaultWindowSize)
	v.SetDefault("pipeline.bufferSize", defaultBufferSize)
	v.SetDefault("pipeline.seriesSize", defaultSeriesSize)
	v.SetDefault("pipeline.checkpointInterval", defaultCheckpointInterval)
	v.SetDefault("pipeline.statusInterval", defaultStatusInterval)
	v.SetDefault("forwarder.enabled", false)
	v.SetDefault("metrics.addr", "")
	v.SetDefault("log.level", defaultLogLevel)
	v.SetDefault("log.format", defaultLogFormat)
	v.SetDefault("log.fileLoggingEnabled", defaultLogFileEnabled)
	v.SetDefault("log.directory", defaultLogDirectory)
	v.SetDefault("log.filename", defaultLogFilename)
	v.SetDefault("log.maxSize", defaultLogMaxSizeMB)
	v.SetDefault("log.maxBackups", defaultLogMaxBackups)
	v.SetDefault("log.maxAge", defaultLogMaxAgeDays)
	v.SetDefault("log.compress", defaultLogCompress)
}

// readConfigFile attempts to read the configuration file specified in viper.
func readConfigFile(v *viper.Viper) error {
	err := v.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return ErrConfigFileMissing
		}
		return fmt.Errorf("%w: %w", ErrReadingConfigFile, err)
	}
	return nil
}

func validateConfig(cfg *Config) error {
	if cfg.Serial.BaudRate <= 0 {
		return ErrInvalidBaudRate
	}
	if cfg.Serial.ReadTimeout <= 0 {
		return ErrInvalidReadTimeout
	}
	if cfg.Output.Directory == "" {
		return ErrEmptyOutputDirectory
	}
	if cfg.Pipeline.WindowSize <= 0 {
		return ErrInvalidWindowSize
	}
	if cfg.Pipeline.BufferSize <= 0 {
		return ErrInvalidBufferSize
	}
	if cfg.Pipeline.SeriesSize <= 0 {
		return ErrInvalidSeriesSize
	}
	if cfg.Pipeline.CheckpointInterval <= 0 {
		return ErrInvalidCheckpointInterval
	}
	if cfg.Forwarder.Enabled {
		if len(cfg.Forwarder.Brokers) == 0 {
			return ErrEmptyForwarderBrokers
		}
		if cfg.Forwarder.Topic == "" {
			return ErrEmptyForwarderTopic
		}
	}
	return nil
}
