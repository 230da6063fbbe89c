package pipeline

import "errors"

var (
	ErrInvalidForwarderConfig = errors.New("invalid forwarder configuration provided")
	ErrSourceRead             = errors.New("failed to read from telemetry source")
	ErrDataLogWrite           = errors.New("failed to write data log row")
	ErrIngestorRunFailed      = errors.New("ingestor component failed")
	ErrCheckpointerRunFailed  = errors.New("checkpointer component failed")
	ErrForwarderRunFailed     = errors.New("forwarder component failed")
)
