package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/windtrace/windtrace/internal/config"
	"github.com/windtrace/windtrace/internal/logging"
	"github.com/windtrace/windtrace/internal/pipeline"
	"github.com/windtrace/windtrace/internal/transport"
)

var (
	configFile = flag.String("config", "", "Path to the configuration file (optional)")
	portFlag   = flag.String("port", "", "Serial port override (default: auto-detect)")
	replayFile = flag.String("replay", "", "Replay lines from a file instead of a serial port ('-' for stdin)")
	logger     *zap.Logger
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *portFlag != "" {
		cfg.Serial.Port = *portFlag
	}

	var logErr error
	logger, logErr = logging.NewLogger(cfg.Log)
	if logErr != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to initialize logger: %v\n", logErr)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync() // Flush buffered logs on exit
	}()

	sugar := logger.Sugar()
	sugar.Infow("Logger initialized", "level", cfg.Log.Level, "format", cfg.Log.Format)

	source, err := openSource(cfg)
	if err != nil {
		sugar.Fatalw("Failed to open telemetry source", "error", err)
	}

	sugar.Info("Initializing pipeline...")
	pipe, err := pipeline.New(cfg, source, logger)
	if err != nil {
		source.Close()
		sugar.Fatalw("Failed to initialize pipeline", "error", err)
	}

	if cfg.Metrics.Addr != "" {
		go serveMetrics(cfg.Metrics.Addr)
	}

	// Handle Graceful Shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-signals
		sugar.Infow("Received signal, initiating shutdown...", "signal", sig.String())
		cancel()
	}()

	sugar.Info("Starting data collection... Press Ctrl+C to stop")
	started := time.Now()
	runErr := pipe.Run(ctx)

	finalLogLevel := zapcore.InfoLevel
	shutdownReason := "gracefully"
	finalErrorField := zap.Skip()

	switch {
	case runErr == nil:
		sugar.Info("Pipeline execution completed without error.")
	case errors.Is(runErr, context.Canceled):
		sugar.Info("Pipeline execution cancelled (expected on shutdown).")
	default:
		shutdownReason = "due to error"
		finalLogLevel = zapcore.ErrorLevel
		finalErrorField = zap.Error(runErr)
		sugar.Errorw("Pipeline execution stopped unexpectedly", zap.Error(runErr))
	}

	logSessionSummary(pipe, started)
	logger.Log(finalLogLevel, fmt.Sprintf("Session shutdown %s.", shutdownReason),
		zap.String("reason", shutdownReason),
		finalErrorField,
	)
}

// openSource acquires the telemetry transport: a replay file, stdin, or
// the configured serial port.
func openSource(cfg *config.Config) (transport.LineSource, error) {
	if *replayFile == "-" {
		return transport.NewReaderSource(os.Stdin), nil
	}
	if *replayFile != "" {
		f, err := os.Open(*replayFile)
		if err != nil {
			return nil, fmt.Errorf("open replay file: %w", err)
		}
		return transport.NewReaderSource(f), nil
	}
	return transport.OpenSerial(transport.SerialConfig{
		Port:        cfg.Serial.Port,
		BaudRate:    cfg.Serial.BaudRate,
		ReadTimeout: cfg.Serial.ReadTimeout,
	}, logger.Named("serial"))
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	logger.Sugar().Infow("Serving metrics", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Sugar().Errorw("Metrics listener failed", zap.Error(err))
	}
}

func logSessionSummary(pipe *pipeline.Pipeline, started time.Time) {
	uptime := time.Since(started)
	rate := 0.0
	if uptime > 0 {
		rate = float64(pipe.Points()) / uptime.Seconds()
	}
	logger.Sugar().Infow("Final statistics",
		"points", pipe.Points(),
		"uptime", uptime.Round(time.Second).String(),
		"avg_rate_hz", fmt.Sprintf("%.2f", rate),
		"data_log", pipe.DataLogPath(),
		"stats_log", pipe.StatsLogPath(),
	)
}
