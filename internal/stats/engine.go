package stats

import (
	"sort"
	"strconv"
	"strings"
	"sync"
)

// DefaultWindowSize is the number of recent observations kept per
// parameter for the rolling mean and standard deviation.
const DefaultWindowSize = 100

// Parameter is an immutable snapshot of one parameter's aggregates.
// Mean and StdDev are computed over the bounded window of recent values;
// Min, Max and Count cover the whole session.
type Parameter struct {
	Min    float64
	Max    float64
	Mean   float64
	StdDev float64
	Count  int64
}

type paramState struct {
	min    float64
	max    float64
	mean   float64
	stdDev float64
	count  int64
	window *window
}

// Engine maintains per-parameter running statistics over a bounded window
// of recent values. It is safe for one writer (the ingestion loop) and any
// number of snapshot readers.
type Engine struct {
	mu         sync.RWMutex
	windowSize int
	params     map[string]*paramState
}

// NewEngine creates an Engine whose per-parameter windows hold windowSize
// values. Non-positive sizes fall back to DefaultWindowSize.
func NewEngine(windowSize int) *Engine {
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}
	return &Engine{
		windowSize: windowSize,
		params:     make(map[string]*paramState),
	}
}

// Update folds one raw field value into the statistics for name. Values
// that do not parse as floats are ignored; the return value reports
// whether the observation was applied. Parameter state is created lazily
// on the first numeric observation and kept for the whole session.
func (e *Engine) Update(name, raw string) bool {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	st, ok := e.params[name]
	if !ok {
		st = &paramState{
			min:    v,
			max:    v,
			mean:   v,
			count:  1,
			window: newWindow(e.windowSize),
		}
		st.window.push(v)
		e.params[name] = st
		return true
	}

	if v < st.min {
		st.min = v
	}
	if v > st.max {
		st.max = v
	}
	st.count++
	st.window.push(v)
	st.mean = st.window.mean()
	st.stdDev = st.window.stdDev(st.mean)
	return true
}

// Snapshot returns a copy of the current per-parameter aggregates.
// The returned map is owned by the caller.
func (e *Engine) Snapshot() map[string]Parameter {
	e.mu.RLock()
	defer e.mu.RUnlock()

	snap := make(map[string]Parameter, len(e.params))
	for name, st := range e.params {
		snap[name] = Parameter{
			Min:    st.min,
			Max:    st.max,
			Mean:   st.mean,
			StdDev: st.stdDev,
			Count:  st.count,
		}
	}
	return snap
}

// Names returns the tracked parameter names in sorted order.
func (e *Engine) Names() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	names := make([]string, 0, len(e.params))
	for name := range e.params {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WindowLen returns the number of values currently held in the window for
// name, or zero if the parameter is unknown.
func (e *Engine) WindowLen(name string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	st, ok := e.params[name]
	if !ok {
		return 0
	}
	return st.window.len()
}
