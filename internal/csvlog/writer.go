package csvlog

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/windtrace/windtrace/internal/telemetry"
)

// timestampLayout is a sortable ISO-8601 form with microsecond precision,
// matching the format downstream tooling already parses.
const timestampLayout = "2006-01-02T15:04:05.000000"

// fileStampLayout names the per-session output files.
const fileStampLayout = "2006-01-02_150405"

// DataLogName returns the session data log filename for the given prefix
// and session start time.
func DataLogName(prefix string, start time.Time) string {
	return fmt.Sprintf("%sData_%s.csv", prefix, start.Format(fileStampLayout))
}

// StatsLogName returns the session statistics log filename.
func StatsLogName(prefix string, start time.Time) string {
	return fmt.Sprintf("%sStats_%s.csv", prefix, start.Format(fileStampLayout))
}

// Writer appends telemetry records to a comma-separated data log.
//
// The header row is written exactly once, from the schema snapshot taken
// at the first Write, and is never rewritten even when the schema grows
// later. Rows always render every column of the current schema, so rows
// written after a schema expansion carry more fields than the header
// declares. That width mismatch is part of the on-disk contract; readers
// of this format are expected to tolerate it.
type Writer struct {
	mu            sync.Mutex
	schema        *Schema
	file          *os.File
	buf           *bufio.Writer
	headerWritten bool
}

// NewWriter creates the data log at path, truncating any existing file.
func NewWriter(path string, schema *Schema) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create data log: %w", err)
	}
	return &Writer{
		schema: schema,
		file:   f,
		buf:    bufio.NewWriter(f),
	}, nil
}

// Write emits exactly one row for rec, preceded by the header row on the
// first call. Values absent from rec render as empty fields. Each row is
// flushed so a crash loses at most the record in flight.
func (w *Writer) Write(rec telemetry.Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	columns := w.schema.Header()

	if !w.headerWritten {
		if _, err := w.buf.WriteString(strings.Join(columns, ",") + "\n"); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		w.headerWritten = true
	}

	row := make([]string, len(columns))
	for i, col := range columns {
		if col == TimestampColumn {
			row[i] = rec.Timestamp.Format(timestampLayout)
			continue
		}
		value, _ := rec.Fields.Get(col)
		row[i] = value
	}

	if _, err := w.buf.WriteString(strings.Join(row, ",") + "\n"); err != nil {
		return fmt.Errorf("write row: %w", err)
	}
	return w.buf.Flush()
}

// HeaderWritten reports whether the header row has been emitted.
func (w *Writer) HeaderWritten() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.headerWritten
}

// Close flushes buffered rows and closes the underlying file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.buf.Flush(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}
