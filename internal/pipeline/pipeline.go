package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/windtrace/windtrace/internal/buffer"
	"github.com/windtrace/windtrace/internal/config"
	"github.com/windtrace/windtrace/internal/csvlog"
	"github.com/windtrace/windtrace/internal/stats"
	"github.com/windtrace/windtrace/internal/telemetry"
	"github.com/windtrace/windtrace/internal/transport"
)

const forwardQueueSize = 100

// Pipeline owns one logging session: the transport, the data and
// statistics logs, the statistics engine, the sample buffer, and the
// components that drive them.
type Pipeline struct {
	cfg          *config.Config
	source       transport.LineSource
	schema       *csvlog.Schema
	writer       *csvlog.Writer
	statsWriter  *csvlog.StatsWriter
	engine       *stats.Engine
	samples      *buffer.SampleBuffer
	ingestor     *Ingestor
	checkpointer *Checkpointer
	forwarder    *Forwarder // nil unless enabled
	forwardCh    chan telemetry.Record
	dataLogPath  string
	statsLogPath string
	logger       *zap.Logger
}

// New creates the session output files and wires up the pipeline
// components over the given transport.
func New(cfg *config.Config, source transport.LineSource, logger *zap.Logger) (*Pipeline, error) {
	initLogger := logger.Named("pipeline.init")

	if err := os.MkdirAll(cfg.Output.Directory, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	start := time.Now()
	dataLogPath := filepath.Join(cfg.Output.Directory, csvlog.DataLogName(cfg.Output.FilePrefix, start))
	statsLogPath := filepath.Join(cfg.Output.Directory, csvlog.StatsLogName(cfg.Output.FilePrefix, start))

	schema := csvlog.NewSchema()
	writer, err := csvlog.NewWriter(dataLogPath, schema)
	if err != nil {
		return nil, err
	}
	statsWriter, err := csvlog.NewStatsWriter(statsLogPath)
	if err != nil {
		writer.Close()
		return nil, err
	}
	initLogger.Info("Log files created",
		zap.String("data_log", dataLogPath),
		zap.String("stats_log", statsLogPath),
	)

	engine := stats.NewEngine(cfg.Pipeline.WindowSize)
	samples := buffer.New(cfg.Pipeline.BufferSize, cfg.Pipeline.SeriesSize)

	var (
		forwardCh chan telemetry.Record
		forwarder *Forwarder
	)
	if cfg.Forwarder.Enabled {
		forwardCh = make(chan telemetry.Record, forwardQueueSize)
		forwarder, err = NewForwarder(cfg.Forwarder, forwardCh, logger.Named("forwarder"))
		if err != nil {
			writer.Close()
			statsWriter.Close()
			return nil, err
		}
	}

	ingestor := NewIngestor(
		source, schema, writer, engine, samples,
		forwardCh, cfg.Pipeline.StatusInterval,
		logger.Named("ingestor"),
	)
	checkpointer := NewCheckpointer(
		engine, statsWriter, cfg.Pipeline.CheckpointInterval,
		logger.Named("checkpointer"),
	)

	initLogger.Info("Pipeline instance created",
		zap.Int("window_size", cfg.Pipeline.WindowSize),
		zap.Int("buffer_size", cfg.Pipeline.BufferSize),
		zap.Duration("checkpoint_interval", cfg.Pipeline.CheckpointInterval),
		zap.Bool("forwarder_enabled", cfg.Forwarder.Enabled),
	)

	return &Pipeline{
		cfg:          cfg,
		source:       source,
		schema:       schema,
		writer:       writer,
		statsWriter:  statsWriter,
		engine:       engine,
		samples:      samples,
		ingestor:     ingestor,
		checkpointer: checkpointer,
		forwarder:    forwarder,
		forwardCh:    forwardCh,
		dataLogPath:  dataLogPath,
		statsLogPath: statsLogPath,
		logger:       logger.Named("pipeline"),
	}, nil
}

// Run starts the pipeline components and blocks until the context is
// cancelled, the source is exhausted, or a component fails. Output files
// and the transport are released before Run returns.
func (p *Pipeline) Run(ctx context.Context) error {
	sugar := p.logger.Sugar()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errCh := make(chan error, 3)
	ingestorDone := make(chan struct{})

	sugar.Info("Pipeline Run: Starting components...")

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(ingestorDone)
		if p.forwardCh != nil {
			defer close(p.forwardCh)
		}
		if err := p.ingestor.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			p.logger.Error("Ingestor component exited with error", zap.Error(err))
			errCh <- fmt.Errorf("%w: %w", ErrIngestorRunFailed, err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := p.checkpointer.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			p.logger.Error("Checkpointer component exited with error", zap.Error(err))
			errCh <- err
		}
	}()

	if p.forwarder != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := p.forwarder.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
				p.logger.Error("Forwarder component exited with error", zap.Error(err))
				errCh <- fmt.Errorf("%w: %w", ErrForwarderRunFailed, err)
			}
		}()
	}

	// Wait for cancellation, a component failure, or the ingestor
	// finishing on its own (source exhausted).
	var firstErr error
	select {
	case <-ctx.Done():
		sugar.Info("Pipeline Run: Context cancelled, draining...")
		firstErr = ctx.Err()
	case err := <-errCh:
		sugar.Errorw("Pipeline Run: Component failed, draining...", zap.Error(err))
		firstErr = err
	case <-ingestorDone:
		sugar.Info("Pipeline Run: Ingestion finished, draining...")
	}

	// Cancelling the run context moves the checkpointer into its final
	// unconditional flush.
	cancel()
	wg.Wait()

	// Prefer a component error over the cancellation it triggered.
	if firstErr == nil || errors.Is(firstErr, context.Canceled) {
		select {
		case err := <-errCh:
			firstErr = err
		default:
		}
	}

	p.close()

	if firstErr != nil && !errors.Is(firstErr, context.Canceled) {
		return firstErr
	}
	return nil
}

// close releases the session's files and transport and completes the
// Draining→Closed transition.
func (p *Pipeline) close() {
	sugar := p.logger.Sugar()

	if err := p.writer.Close(); err != nil {
		sugar.Errorw("Failed to close data log", zap.Error(err))
	} else {
		sugar.Infow("Data log saved", "path", p.dataLogPath)
	}
	if err := p.statsWriter.Close(); err != nil {
		sugar.Errorw("Failed to close statistics log", zap.Error(err))
	} else {
		sugar.Infow("Statistics log saved", "path", p.statsLogPath)
	}
	if err := p.source.Close(); err != nil {
		sugar.Errorw("Failed to close telemetry source", zap.Error(err))
	}

	p.ingestor.setState(StateClosed)
	sugar.Infow("Session complete", "points", p.ingestor.Points())
}

// State returns the ingestion loop's lifecycle state.
func (p *Pipeline) State() State { return p.ingestor.State() }

// Points returns the number of records ingested so far.
func (p *Pipeline) Points() int64 { return p.ingestor.Points() }

// Snapshot returns the current per-parameter statistics for display
// collaborators.
func (p *Pipeline) Snapshot() map[string]stats.Parameter { return p.engine.Snapshot() }

// Recent returns up to n recent records, oldest first.
func (p *Pipeline) Recent(n int) []telemetry.Record { return p.samples.Recent(n) }

// Series returns a copy of the named display series.
func (p *Pipeline) Series(cat buffer.Category) []float64 { return p.samples.Series(cat) }

// DataLogPath returns the session data log location.
func (p *Pipeline) DataLogPath() string { return p.dataLogPath }

// StatsLogPath returns the session statistics log location.
func (p *Pipeline) StatsLogPath() string { return p.statsLogPath }
