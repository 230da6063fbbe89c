package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/windtrace/windtrace/internal/buffer"
	"github.com/windtrace/windtrace/internal/csvlog"
	"github.com/windtrace/windtrace/internal/stats"
	"github.com/windtrace/windtrace/internal/telemetry"
	"github.com/windtrace/windtrace/internal/transport"
)

// State tracks the ingestion loop through its lifecycle.
type State int32

const (
	StateIdle State = iota
	StateConnected
	StateStreaming
	StateDraining
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnected:
		return "connected"
	case StateStreaming:
		return "streaming"
	case StateDraining:
		return "draining"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Ingestor drives one line per cycle from the transport through the
// parser, schema, data log, statistics engine and sample buffer, in that
// order. It is the only writer of pipeline state; every other component
// reads snapshots.
type Ingestor struct {
	source         transport.LineSource
	schema         *csvlog.Schema
	writer         *csvlog.Writer
	engine         *stats.Engine
	samples        *buffer.SampleBuffer
	forward        chan<- telemetry.Record // nil when forwarding is disabled
	statusInterval time.Duration
	logger         *zap.Logger

	state  atomic.Int32
	points atomic.Int64
}

// NewIngestor wires an Ingestor over an already-acquired transport.
func NewIngestor(
	source transport.LineSource,
	schema *csvlog.Schema,
	writer *csvlog.Writer,
	engine *stats.Engine,
	samples *buffer.SampleBuffer,
	forward chan<- telemetry.Record,
	statusInterval time.Duration,
	logger *zap.Logger,
) *Ingestor {
	return &Ingestor{
		source:         source,
		schema:         schema,
		writer:         writer,
		engine:         engine,
		samples:        samples,
		forward:        forward,
		statusInterval: statusInterval,
		logger:         logger,
	}
}

// State returns the current lifecycle state.
func (in *Ingestor) State() State { return State(in.state.Load()) }

// Points returns the number of records ingested so far.
func (in *Ingestor) Points() int64 { return in.points.Load() }

func (in *Ingestor) setState(s State) {
	in.state.Store(int32(s))
	in.logger.Debug("Ingestor state changed", zap.Stringer("state", s))
}

// Run executes the ingestion loop until the context is cancelled, the
// source is exhausted, or an I/O failure occurs. It always passes through
// Draining on the way out so the caller can perform a final flush; the
// caller owns the Draining→Closed transition after releasing resources.
func (in *Ingestor) Run(ctx context.Context) error {
	sugar := in.logger.Sugar()

	// The transport was acquired before Run was called.
	in.setState(StateConnected)
	in.setState(StateStreaming)
	sugar.Info("Starting ingestion loop...")

	started := time.Now()
	lastStatus := started
	var runErr error

	for {
		// Cancellation is observed at the top of each cycle, so at most
		// one in-flight cycle completes after shutdown is requested.
		if ctx.Err() != nil {
			runErr = ctx.Err()
			break
		}

		line, err := in.source.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				sugar.Info("Telemetry source exhausted.")
				break
			}
			runErr = fmt.Errorf("%w: %w", ErrSourceRead, err)
			break
		}
		if line == "" {
			// Read timeout with no data is an idle cycle, not a fault.
			continue
		}
		linesRead.Inc()

		if err := in.ingest(line); err != nil {
			runErr = err
			break
		}

		if in.statusInterval > 0 && time.Since(lastStatus) >= in.statusInterval {
			in.logStatus(started)
			lastStatus = time.Now()
		}
	}

	in.setState(StateDraining)
	sugar.Infow("Ingestion loop stopped, draining",
		"points", in.points.Load(),
		"uptime", time.Since(started).Round(time.Second).String(),
	)
	return runErr
}

// ingest drives one parsed line through schema, data log, statistics and
// the sample buffer. Parse failures are absorbed: a line that yields no
// fields is still written as a timestamp-only row and counted, it just
// contributes nothing to statistics or series. Only data log I/O
// failures propagate.
func (in *Ingestor) ingest(line string) error {
	fields := telemetry.ParseLine(line)
	if fields.Len() == 0 {
		unparsedLines.Inc()
	}

	rec := telemetry.Record{
		Timestamp: time.Now(),
		Raw:       line,
		Fields:    fields,
	}

	if in.schema.Observe(rec.Fields) {
		schemaColumns.Set(float64(in.schema.Width()))
		in.logger.Info("Schema grew",
			zap.Strings("columns", in.schema.Header()),
			zap.Int64("at_point", in.points.Load()),
		)
	}

	if err := in.writer.Write(rec); err != nil {
		return fmt.Errorf("%w: %w", ErrDataLogWrite, err)
	}

	for _, f := range rec.Fields {
		// Non-numeric values are already persisted verbatim above; the
		// engine silently skips them.
		in.engine.Update(f.Name, f.Value)
	}

	in.samples.Push(rec)

	if in.forward != nil {
		select {
		case in.forward <- rec:
		default:
			// Never let a slow forwarder back-pressure ingestion.
			forwardDrops.Inc()
		}
	}

	in.points.Add(1)
	recordsIngested.Inc()
	return nil
}

func (in *Ingestor) logStatus(started time.Time) {
	points := in.points.Load()
	uptime := time.Since(started)
	rate := 0.0
	if uptime > 0 {
		rate = float64(points) / uptime.Seconds()
	}
	in.logger.Sugar().Infow("Status",
		"points", points,
		"rate_hz", fmt.Sprintf("%.1f", rate),
		"schema_columns", in.schema.Width(),
	)
}
