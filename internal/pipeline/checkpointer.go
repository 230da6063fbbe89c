package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/windtrace/windtrace/internal/csvlog"
	"github.com/windtrace/windtrace/internal/stats"
)

// Checkpointer periodically flushes statistics snapshots to the
// statistics log and mirrors them into the Prometheus gauges. It only
// reads engine snapshots and never blocks the ingestion path.
type Checkpointer struct {
	engine   *stats.Engine
	sink     *csvlog.StatsWriter
	interval time.Duration
	logger   *zap.Logger
}

// NewCheckpointer creates a Checkpointer flushing every interval.
func NewCheckpointer(engine *stats.Engine, sink *csvlog.StatsWriter, interval time.Duration, logger *zap.Logger) *Checkpointer {
	logger.Debug("Checkpointer initialized", zap.Duration("interval", interval))
	return &Checkpointer{
		engine:   engine,
		sink:     sink,
		interval: interval,
		logger:   logger,
	}
}

// Run flushes on the configured cadence until the context is cancelled,
// then performs one final unconditional flush while the pipeline drains.
func (c *Checkpointer) Run(ctx context.Context) error {
	sugar := c.logger.Sugar()
	sugar.Info("Starting checkpointer loop...")
	defer sugar.Info("Checkpointer loop stopped.")

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.Flush(time.Now()); err != nil {
				return fmt.Errorf("%w: %w", ErrCheckpointerRunFailed, err)
			}

		case <-ctx.Done():
			if err := c.Flush(time.Now()); err != nil {
				// The final flush is best-effort; the session is already
				// shutting down.
				sugar.Errorw("Final checkpoint flush failed", zap.Error(err))
			}
			return ctx.Err()
		}
	}
}

// Flush writes one checkpoint row per tracked parameter. With zero
// tracked parameters it is a no-op.
func (c *Checkpointer) Flush(ts time.Time) error {
	snap := c.engine.Snapshot()
	publishSnapshot(snap)
	if len(snap) == 0 {
		return nil
	}
	if err := c.sink.WriteSnapshot(ts, snap); err != nil {
		return err
	}
	checkpointsWritten.Inc()
	c.logger.Debug("Checkpoint written",
		zap.Int("parameters", len(snap)),
		zap.Time("at", ts),
	)
	return nil
}
