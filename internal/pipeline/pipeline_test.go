package pipeline

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/windtrace/windtrace/internal/buffer"
	"github.com/windtrace/windtrace/internal/config"
	"github.com/windtrace/windtrace/internal/transport"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Output: config.OutputConfig{
			Directory:  t.TempDir(),
			FilePrefix: "Test",
		},
		Pipeline: config.PipelineConfig{
			WindowSize:         100,
			BufferSize:         100,
			SeriesSize:         50,
			CheckpointInterval: time.Hour, // only the final drain flush fires
		},
	}
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

func TestPipelineEndToEnd(t *testing.T) {
	input := strings.Join([]string{
		"S 5.0, T 20.0",
		"S 6.0, T 21.0, H 50.0",
		"garbage",
		"S 7.0, T 22.0, H 51.0",
	}, "\n") + "\n"

	source := transport.NewReaderSource(strings.NewReader(input))
	p, err := New(testConfig(t), source, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, p.Run(context.Background()))
	assert.Equal(t, StateClosed, p.State())

	// The garbage line yields no fields but is still logged and counted;
	// ingestion continued past it.
	assert.Equal(t, int64(4), p.Points())

	lines := readLines(t, p.DataLogPath())
	require.Len(t, lines, 5)

	// Header is the schema snapshot at first write; H arrived later and
	// is never added to it.
	assert.Equal(t, "timestamp,S,T", lines[0])
	assert.Equal(t, 3, len(strings.Split(lines[1], ",")))
	assert.Equal(t, 4, len(strings.Split(lines[2], ",")))
	assert.True(t, strings.HasSuffix(lines[2], ",6.0,21.0,50.0"))
	// The garbage line renders as a timestamp-only row over the current
	// schema (timestamp, S, T, H all empty).
	assert.True(t, strings.HasSuffix(lines[3], ",,,"))
	assert.Equal(t, 4, len(strings.Split(lines[3], ",")))
	assert.True(t, strings.HasSuffix(lines[4], ",7.0,22.0,51.0"))

	snap := p.Snapshot()
	require.Contains(t, snap, "S")
	s := snap["S"]
	assert.Equal(t, 5.0, s.Min)
	assert.Equal(t, 7.0, s.Max)
	assert.InDelta(t, 6.0, s.Mean, 1e-9)
	assert.Equal(t, int64(3), s.Count)

	// The drain flush wrote one checkpoint row per parameter (H, S, T).
	statsLines := readLines(t, p.StatsLogPath())
	require.Len(t, statsLines, 4)
	assert.Equal(t, "timestamp,parameter,min,max,mean,std_dev,count", statsLines[0])
	assert.Contains(t, statsLines[1], ",H,")
	assert.Contains(t, statsLines[2], ",S,5.000000,7.000000,6.000000,")
	assert.Contains(t, statsLines[3], ",T,")

	// Display series were populated from the categorized channels.
	assert.Equal(t, []float64{5.0, 6.0, 7.0}, p.Series(buffer.CategoryWindSpeed))
	assert.Equal(t, []float64{20.0, 21.0, 22.0}, p.Series(buffer.CategoryTemperature))

	recent := p.Recent(10)
	require.Len(t, recent, 4)
	assert.Equal(t, "S 5.0, T 20.0", recent[0].Raw)
	assert.Equal(t, "garbage", recent[2].Raw)
}

func TestPipelineLogsUnparsedLinesAsTimestampOnlyRows(t *testing.T) {
	input := "S 5.0, T 20.0\ngarbage\nS 6.0, T 21.0\n"

	source := transport.NewReaderSource(strings.NewReader(input))
	p, err := New(testConfig(t), source, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, p.Run(context.Background()))

	// All three non-empty lines are counted and logged; the unparseable
	// one contributes an empty row and no statistics.
	assert.Equal(t, int64(3), p.Points())

	lines := readLines(t, p.DataLogPath())
	require.Len(t, lines, 4)
	assert.Equal(t, "timestamp,S,T", lines[0])
	assert.True(t, strings.HasSuffix(lines[2], ",,"))
	assert.Equal(t, 3, len(strings.Split(lines[2], ",")))
	assert.True(t, strings.HasSuffix(lines[3], ",6.0,21.0"))

	snap := p.Snapshot()
	require.Contains(t, snap, "S")
	assert.Equal(t, int64(2), snap["S"].Count)
}

func TestPipelineCancellation(t *testing.T) {
	// An idle source never delivers a line; cancellation must still drain
	// and close cleanly.
	source := &idleSource{}
	p, err := New(testConfig(t), source, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline did not shut down after cancellation")
	}

	assert.Equal(t, StateClosed, p.State())
	assert.Equal(t, int64(0), p.Points())

	// Zero tracked parameters: the final flush is a no-op and the stats
	// log holds only its header.
	statsLines := readLines(t, p.StatsLogPath())
	assert.Len(t, statsLines, 1)
}

func TestPipelineSourceFailureDrains(t *testing.T) {
	source := &failingSource{
		lines: []string{"S 5.0, T 20.0"},
		err:   errors.New("device unplugged"),
	}
	p, err := New(testConfig(t), source, zap.NewNop())
	require.NoError(t, err)

	runErr := p.Run(context.Background())
	require.Error(t, runErr)
	assert.ErrorIs(t, runErr, ErrIngestorRunFailed)
	assert.ErrorIs(t, runErr, ErrSourceRead)

	assert.Equal(t, StateClosed, p.State())
	assert.True(t, source.closed)

	// Best-effort flush before termination: the one ingested record's
	// statistics made it to the stats log.
	statsLines := readLines(t, p.StatsLogPath())
	require.Len(t, statsLines, 3)
	assert.Contains(t, statsLines[1], ",S,")
	assert.Contains(t, statsLines[2], ",T,")
}

func TestNewForwarderRejectsInvalidConfig(t *testing.T) {
	_, err := NewForwarder(config.ForwarderConfig{}, nil, zap.NewNop())
	assert.ErrorIs(t, err, ErrInvalidForwarderConfig)

	_, err = NewForwarder(config.ForwarderConfig{Brokers: []string{"localhost:9092"}}, nil, zap.NewNop())
	assert.ErrorIs(t, err, ErrInvalidForwarderConfig)
}

// idleSource models a transport whose every read times out with no data.
type idleSource struct{ closed bool }

func (s *idleSource) ReadLine() (string, error) {
	time.Sleep(5 * time.Millisecond)
	return "", nil
}

func (s *idleSource) Close() error {
	s.closed = true
	return nil
}

// failingSource yields its lines, then a transport error.
type failingSource struct {
	lines  []string
	err    error
	closed bool
}

func (f *failingSource) ReadLine() (string, error) {
	if len(f.lines) == 0 {
		return "", f.err
	}
	line := f.lines[0]
	f.lines = f.lines[1:]
	return line, nil
}

func (f *failingSource) Close() error {
	f.closed = true
	return nil
}
