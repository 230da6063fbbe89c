package csvlog

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/windtrace/windtrace/internal/stats"
)

const statsHeader = "timestamp,parameter,min,max,mean,std_dev,count"

// StatsWriter appends per-parameter checkpoint rows to the statistics log.
// Unlike the data log, its header is fixed and written at creation.
type StatsWriter struct {
	mu   sync.Mutex
	file *os.File
	buf  *bufio.Writer
}

// NewStatsWriter creates the statistics log at path and writes its header.
func NewStatsWriter(path string) (*StatsWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create statistics log: %w", err)
	}
	buf := bufio.NewWriter(f)
	if _, err := buf.WriteString(statsHeader + "\n"); err != nil {
		f.Close()
		return nil, fmt.Errorf("write statistics header: %w", err)
	}
	if err := buf.Flush(); err != nil {
		f.Close()
		return nil, err
	}
	return &StatsWriter{file: f, buf: buf}, nil
}

// WriteSnapshot appends one row per parameter, in sorted name order so
// consecutive checkpoints are diffable. A snapshot with no parameters is
// a no-op. Floats are fixed at six decimal places.
func (sw *StatsWriter) WriteSnapshot(ts time.Time, snap map[string]stats.Parameter) error {
	if len(snap) == 0 {
		return nil
	}

	names := make([]string, 0, len(snap))
	for name := range snap {
		names = append(names, name)
	}
	sort.Strings(names)

	sw.mu.Lock()
	defer sw.mu.Unlock()

	stamp := ts.Format(timestampLayout)
	for _, name := range names {
		p := snap[name]
		_, err := fmt.Fprintf(sw.buf, "%s,%s,%.6f,%.6f,%.6f,%.6f,%d\n",
			stamp, name, p.Min, p.Max, p.Mean, p.StdDev, p.Count)
		if err != nil {
			return fmt.Errorf("write statistics row: %w", err)
		}
	}
	return sw.buf.Flush()
}

// Close flushes buffered rows and closes the underlying file.
func (sw *StatsWriter) Close() error {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if err := sw.buf.Flush(); err != nil {
		sw.file.Close()
		return err
	}
	return sw.file.Close()
}
