package stats

import "math"

// window is a fixed-capacity ring of the most recent numeric observations.
// Once full, pushing evicts the oldest value.
type window struct {
	buf   []float64
	start int
	size  int
}

func newWindow(capacity int) *window {
	return &window{buf: make([]float64, capacity)}
}

func (w *window) push(v float64) {
	if w.size == len(w.buf) {
		w.buf[w.start] = v
		w.start = (w.start + 1) % len(w.buf)
		return
	}
	w.buf[(w.start+w.size)%len(w.buf)] = v
	w.size++
}

func (w *window) len() int { return w.size }

func (w *window) mean() float64 {
	if w.size == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < w.size; i++ {
		sum += w.buf[(w.start+i)%len(w.buf)]
	}
	return sum / float64(w.size)
}

// stdDev returns the population (divide-by-N) standard deviation of the
// window contents around the given mean.
func (w *window) stdDev(mean float64) float64 {
	if w.size < 2 {
		return 0
	}
	var sumSq float64
	for i := 0; i < w.size; i++ {
		d := w.buf[(w.start+i)%len(w.buf)] - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(w.size))
}
