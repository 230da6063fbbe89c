package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/windtrace/windtrace/internal/config"
	"github.com/windtrace/windtrace/internal/telemetry"
)

// forwardedRecord is the wire form of a record published for downstream
// consumers.
type forwardedRecord struct {
	Timestamp time.Time         `json:"timestamp"`
	Fields    map[string]string `json:"fields"`
}

// Forwarder publishes ingested records to a Kafka topic. It is strictly
// best-effort: publish failures are logged and the session continues, and
// its input channel is fed drop-on-full so it can never slow ingestion.
type Forwarder struct {
	writer *kafka.Writer
	input  <-chan telemetry.Record
	logger *zap.Logger
}

// NewForwarder creates a Forwarder from the forwarder configuration.
func NewForwarder(cfg config.ForwarderConfig, input <-chan telemetry.Record, logger *zap.Logger) (*Forwarder, error) {
	if len(cfg.Brokers) == 0 || cfg.Topic == "" {
		logger.Error("Forwarder configuration validation failed",
			zap.Strings("brokers", cfg.Brokers),
			zap.String("topic", cfg.Topic),
		)
		return nil, ErrInvalidForwarderConfig
	}

	w := &kafka.Writer{
		Addr:     kafka.TCP(cfg.Brokers...),
		Topic:    cfg.Topic,
		Balancer: &kafka.LeastBytes{},
	}

	logger.Info("Record forwarder created",
		zap.Strings("brokers", cfg.Brokers),
		zap.String("topic", cfg.Topic),
	)

	return &Forwarder{
		writer: w,
		input:  input,
		logger: logger,
	}, nil
}

// Run publishes records from the input channel until the channel closes
// or the context is cancelled.
func (f *Forwarder) Run(ctx context.Context) error {
	sugar := f.logger.Sugar()
	sugar.Info("Starting forwarder loop...")

	defer func() {
		if err := f.writer.Close(); err != nil {
			sugar.Errorw("Failed to close Kafka writer cleanly", zap.Error(err))
		}
		sugar.Info("Forwarder loop stopped.")
	}()

	for {
		select {
		case rec, ok := <-f.input:
			if !ok {
				sugar.Info("Forwarder input channel closed.")
				return nil
			}
			f.publish(ctx, rec)

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (f *Forwarder) publish(ctx context.Context, rec telemetry.Record) {
	fields := make(map[string]string, rec.Fields.Len())
	for _, fld := range rec.Fields {
		fields[fld.Name] = fld.Value
	}

	payload, err := json.Marshal(forwardedRecord{
		Timestamp: rec.Timestamp,
		Fields:    fields,
	})
	if err != nil {
		f.logger.Warn("Failed to marshal record for forwarding", zap.Error(err))
		return
	}

	if err := f.writer.WriteMessages(ctx, kafka.Message{Value: payload}); err != nil {
		if ctx.Err() != nil {
			return
		}
		f.logger.Warn("Failed to forward record", zap.Error(err))
	}
}
