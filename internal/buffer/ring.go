package buffer

import "github.com/windtrace/windtrace/internal/telemetry"

// recordRing is a fixed-capacity FIFO of records.
type recordRing struct {
	buf   []telemetry.Record
	start int
	size  int
}

func newRecordRing(capacity int) *recordRing {
	return &recordRing{buf: make([]telemetry.Record, capacity)}
}

func (r *recordRing) push(rec telemetry.Record) {
	if r.size == len(r.buf) {
		r.buf[r.start] = rec
		r.start = (r.start + 1) % len(r.buf)
		return
	}
	r.buf[(r.start+r.size)%len(r.buf)] = rec
	r.size++
}

func (r *recordRing) len() int { return r.size }

func (r *recordRing) latest() (telemetry.Record, bool) {
	if r.size == 0 {
		return telemetry.Record{}, false
	}
	return r.buf[(r.start+r.size-1)%len(r.buf)], true
}

func (r *recordRing) recent(n int) []telemetry.Record {
	if n > r.size {
		n = r.size
	}
	if n <= 0 {
		return nil
	}
	out := make([]telemetry.Record, n)
	first := r.size - n
	for i := 0; i < n; i++ {
		out[i] = r.buf[(r.start+first+i)%len(r.buf)]
	}
	return out
}

// floatRing is a fixed-capacity FIFO of numeric samples.
type floatRing struct {
	buf   []float64
	start int
	size  int
}

func newFloatRing(capacity int) *floatRing {
	return &floatRing{buf: make([]float64, capacity)}
}

func (r *floatRing) push(v float64) {
	if r.size == len(r.buf) {
		r.buf[r.start] = v
		r.start = (r.start + 1) % len(r.buf)
		return
	}
	r.buf[(r.start+r.size)%len(r.buf)] = v
	r.size++
}

func (r *floatRing) values() []float64 {
	out := make([]float64, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	return out
}
