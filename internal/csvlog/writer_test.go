package csvlog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windtrace/windtrace/internal/stats"
	"github.com/windtrace/windtrace/internal/telemetry"
)

func record(ts time.Time, pairs ...string) telemetry.Record {
	var fields telemetry.Fields
	for i := 0; i+1 < len(pairs); i += 2 {
		fields = append(fields, telemetry.Field{Name: pairs[i], Value: pairs[i+1]})
	}
	return telemetry.Record{Timestamp: ts, Fields: fields}
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

func TestWriterSingleHeaderAcrossSchemaGrowth(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.csv")

	schema := NewSchema()
	w, err := NewWriter(path, schema)
	require.NoError(t, err)
	defer w.Close()

	ts := time.Date(2025, 3, 14, 9, 26, 53, 589793000, time.UTC)

	assert.False(t, w.HeaderWritten())

	rec1 := record(ts, "S", "5.0", "T", "20.0")
	schema.Observe(rec1.Fields)
	require.NoError(t, w.Write(rec1))
	assert.True(t, w.HeaderWritten())

	rec2 := record(ts.Add(time.Second), "S", "6.0", "T", "21.0", "H", "50.0")
	schema.Observe(rec2.Fields)
	require.NoError(t, w.Write(rec2))

	rec3 := record(ts.Add(2*time.Second), "S", "7.0", "T", "22.0", "H", "51.0")
	schema.Observe(rec3.Fields)
	require.NoError(t, w.Write(rec3))

	lines := readLines(t, path)
	require.Len(t, lines, 4)

	// Header reflects the schema snapshot at first write and is never
	// rewritten, even though the schema has grown since.
	assert.Equal(t, "timestamp,S,T", lines[0])
	assert.Equal(t, "2025-03-14T09:26:53.589793,5.0,20.0", lines[1])

	// Later rows render the full current schema and are wider than the
	// header declares.
	assert.Equal(t, 4, len(strings.Split(lines[2], ",")))
	assert.True(t, strings.HasSuffix(lines[2], ",6.0,21.0,50.0"))
	assert.Equal(t, 4, len(strings.Split(lines[3], ",")))

	headerCount := 0
	for _, line := range lines {
		if strings.HasPrefix(line, "timestamp,") {
			headerCount++
		}
	}
	assert.Equal(t, 1, headerCount)
}

func TestWriterRendersMissingValuesEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.csv")

	schema := NewSchema()
	w, err := NewWriter(path, schema)
	require.NoError(t, err)
	defer w.Close()

	ts := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

	rec1 := record(ts, "S", "5.0", "T", "20.0")
	schema.Observe(rec1.Fields)
	require.NoError(t, w.Write(rec1))

	// Second record drops T entirely; its column must render empty.
	rec2 := record(ts.Add(time.Second), "S", "6.0")
	schema.Observe(rec2.Fields)
	require.NoError(t, w.Write(rec2))

	lines := readLines(t, path)
	require.Len(t, lines, 3)
	assert.Equal(t, "2025-03-14T09:00:01.000000,6.0,", lines[2])
}

func TestWriterKeepsRawValuesVerbatim(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.csv")

	schema := NewSchema()
	w, err := NewWriter(path, schema)
	require.NoError(t, err)
	defer w.Close()

	ts := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

	// Non-numeric values are excluded from statistics but still logged
	// exactly as received.
	rec := record(ts, "S", "05.23", "FW", "v1.2.3")
	schema.Observe(rec.Fields)
	require.NoError(t, w.Write(rec))

	lines := readLines(t, path)
	assert.Equal(t, "2025-03-14T09:00:00.000000,05.23,v1.2.3", lines[1])
}

func TestStatsWriterFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stats.csv")

	sw, err := NewStatsWriter(path)
	require.NoError(t, err)
	defer sw.Close()

	ts := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	snap := map[string]stats.Parameter{
		"T": {Min: 20, Max: 22, Mean: 21, StdDev: 0.816497, Count: 3},
		"S": {Min: 5, Max: 7, Mean: 6, StdDev: 0.816497, Count: 3},
	}
	require.NoError(t, sw.WriteSnapshot(ts, snap))

	lines := readLines(t, path)
	require.Len(t, lines, 3)
	assert.Equal(t, "timestamp,parameter,min,max,mean,std_dev,count", lines[0])

	// Rows come out in sorted parameter order with six decimal places.
	assert.Equal(t, "2025-03-14T09:26:53.000000,S,5.000000,7.000000,6.000000,0.816497,3", lines[1])
	assert.Equal(t, "2025-03-14T09:26:53.000000,T,20.000000,22.000000,21.000000,0.816497,3", lines[2])
}

func TestStatsWriterEmptySnapshotIsNoOp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stats.csv")

	sw, err := NewStatsWriter(path)
	require.NoError(t, err)
	defer sw.Close()

	require.NoError(t, sw.WriteSnapshot(time.Now(), nil))

	lines := readLines(t, path)
	assert.Len(t, lines, 1)
}

func TestLogNames(t *testing.T) {
	start := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

	assert.Equal(t, "TrisonicaData_2025-03-14_092653.csv", DataLogName("Trisonica", start))
	assert.Equal(t, "TrisonicaStats_2025-03-14_092653.csv", StatsLogName("Trisonica", start))
}
