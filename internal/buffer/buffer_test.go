package buffer

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windtrace/windtrace/internal/telemetry"
)

func rec(raw string, pairs ...string) telemetry.Record {
	var fields telemetry.Fields
	for i := 0; i+1 < len(pairs); i += 2 {
		fields = append(fields, telemetry.Field{Name: pairs[i], Value: pairs[i+1]})
	}
	return telemetry.Record{Timestamp: time.Now(), Raw: raw, Fields: fields}
}

func TestSampleBufferEvictsOldestFirst(t *testing.T) {
	b := New(3, 10)

	for i := 1; i <= 4; i++ {
		b.Push(rec(fmt.Sprintf("line-%d", i)))
	}

	assert.Equal(t, 3, b.Len())

	recent := b.Recent(10)
	require.Len(t, recent, 3)
	assert.Equal(t, "line-2", recent[0].Raw)
	assert.Equal(t, "line-4", recent[2].Raw)

	latest, ok := b.Latest()
	require.True(t, ok)
	assert.Equal(t, "line-4", latest.Raw)
}

func TestSampleBufferRecentSubset(t *testing.T) {
	b := New(10, 10)
	for i := 1; i <= 5; i++ {
		b.Push(rec(fmt.Sprintf("line-%d", i)))
	}

	recent := b.Recent(2)
	require.Len(t, recent, 2)
	assert.Equal(t, "line-4", recent[0].Raw)
	assert.Equal(t, "line-5", recent[1].Raw)

	assert.Nil(t, b.Recent(0))
}

func TestSampleBufferEmpty(t *testing.T) {
	b := New(3, 3)

	_, ok := b.Latest()
	assert.False(t, ok)
	assert.Nil(t, b.Recent(5))
	assert.Empty(t, b.Series(CategoryWindSpeed))
}

func TestSampleBufferCategoryRouting(t *testing.T) {
	b := New(10, 10)

	b.Push(rec("", "S", "5.0", "S2", "4.8", "T", "21.4", "D", "182", "H", "45.2"))

	// S and S2 both land in the wind speed series; H has no category.
	assert.Equal(t, []float64{5.0, 4.8}, b.Series(CategoryWindSpeed))
	assert.Equal(t, []float64{21.4}, b.Series(CategoryTemperature))
	assert.Equal(t, []float64{182}, b.Series(CategoryWindDirection))
}

func TestSampleBufferSkipsNonNumericSeriesValues(t *testing.T) {
	b := New(10, 10)

	b.Push(rec("", "S", "bad", "T", "21.4"))

	assert.Empty(t, b.Series(CategoryWindSpeed))
	assert.Equal(t, []float64{21.4}, b.Series(CategoryTemperature))
	// The record itself is still buffered.
	assert.Equal(t, 1, b.Len())
}

func TestSampleBufferSeriesBounded(t *testing.T) {
	b := New(100, 3)

	for i := 1; i <= 5; i++ {
		b.Push(rec("", "T", fmt.Sprintf("%d", i)))
	}

	assert.Equal(t, []float64{3, 4, 5}, b.Series(CategoryTemperature))
}
