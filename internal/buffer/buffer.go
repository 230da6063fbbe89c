package buffer

import (
	"strconv"
	"strings"
	"sync"

	"github.com/windtrace/windtrace/internal/telemetry"
)

// Default capacities for the record ring and the per-category series.
const (
	DefaultRecordCapacity = 1000
	DefaultSeriesCapacity = 50
)

// Category identifies one of the fixed display series.
type Category string

const (
	CategoryWindSpeed     Category = "wind_speed"
	CategoryTemperature   Category = "temperature"
	CategoryWindDirection Category = "wind_direction"
)

// Categories lists all display series in render order.
var Categories = []Category{CategoryWindSpeed, CategoryTemperature, CategoryWindDirection}

// categoryFor maps a parameter name to its display series. Wind speed
// covers the S-prefixed channels (S, S2, S3); temperature and direction
// are exact tags. The table is fixed, not user-configurable.
func categoryFor(name string) (Category, bool) {
	switch {
	case strings.HasPrefix(name, "S"):
		return CategoryWindSpeed, true
	case name == "T":
		return CategoryTemperature, true
	case name == "D":
		return CategoryWindDirection, true
	}
	return "", false
}

// SampleBuffer keeps the most recent records plus bounded numeric series
// for the wind speed, temperature and direction channels, for live
// display. All accessors return copies; readers never block ingestion
// beyond the duration of a copy.
type SampleBuffer struct {
	mu      sync.RWMutex
	records *recordRing
	series  map[Category]*floatRing
}

// New creates a SampleBuffer holding up to recordCap records and seriesCap
// values per category. Non-positive capacities fall back to the defaults.
func New(recordCap, seriesCap int) *SampleBuffer {
	if recordCap <= 0 {
		recordCap = DefaultRecordCapacity
	}
	if seriesCap <= 0 {
		seriesCap = DefaultSeriesCapacity
	}
	series := make(map[Category]*floatRing, len(Categories))
	for _, c := range Categories {
		series[c] = newFloatRing(seriesCap)
	}
	return &SampleBuffer{
		records: newRecordRing(recordCap),
		series:  series,
	}
}

// Push appends rec to the record ring, evicting the oldest record beyond
// capacity, and routes numeric values of categorized parameters to their
// series. Non-numeric values are skipped for the series but the record
// itself is always kept.
func (b *SampleBuffer) Push(rec telemetry.Record) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.records.push(rec)
	for _, f := range rec.Fields {
		cat, ok := categoryFor(f.Name)
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(f.Value), 64)
		if err != nil {
			continue
		}
		b.series[cat].push(v)
	}
}

// Latest returns the most recently pushed record, if any.
func (b *SampleBuffer) Latest() (telemetry.Record, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.records.latest()
}

// Recent returns up to n of the most recent records, oldest first.
func (b *SampleBuffer) Recent(n int) []telemetry.Record {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.records.recent(n)
}

// Series returns a copy of the named category series, oldest first.
func (b *SampleBuffer) Series(cat Category) []float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()

	r, ok := b.series[cat]
	if !ok {
		return nil
	}
	return r.values()
}

// Len returns the number of buffered records.
func (b *SampleBuffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.records.len()
}
