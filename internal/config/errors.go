package config

import "errors"

var (
	ErrReadingConfigFile         = errors.New("failed to read config file")
	ErrUnmarshallingConfig       = errors.New("failed to unmarshal config")
	ErrConfigFileMissing         = errors.New("config file not found")
	ErrInvalidBaudRate           = errors.New("serial baudRate must be positive")
	ErrInvalidReadTimeout        = errors.New("serial readTimeout must be positive")
	ErrEmptyOutputDirectory      = errors.New("output directory cannot be empty")
	ErrInvalidWindowSize         = errors.New("pipeline windowSize must be positive")
	ErrInvalidBufferSize         = errors.New("pipeline bufferSize must be positive")
	ErrInvalidSeriesSize         = errors.New("pipeline seriesSize must be positive")
	ErrInvalidCheckpointInterval = errors.New("pipeline checkpointInterval must be positive")
	ErrEmptyForwarderBrokers     = errors.New("forwarder brokers list cannot be empty")
	ErrEmptyForwarderTopic       = errors.New("forwarder topic cannot be empty")
)
