package forecast

// Window is a fixed-capacity buffer of observations, oldest first.
// Pushing past capacity evicts the oldest entry.
type Window struct {
	values []float64
	size   int
}

// NewWindow creates a window of the given capacity seeded with the tail of
// seed. Only the last size values of seed are kept.
func NewWindow(size int, seed []float64) *Window {
	if size < 1 {
		size = 1
	}
	if len(seed) > size {
		seed = seed[len(seed)-size:]
	}
	values := make([]float64, len(seed), size+1)
	copy(values, seed)
	return &Window{values: values, size: size}
}

// Push appends v and evicts the oldest entry when over capacity.
func (w *Window) Push(v float64) {
	w.values = append(w.values, v)
	if len(w.values) > w.size {
		w.values = append(w.values[:0], w.values[1:]...)
	}
}

// Recent returns the k-th most recent value (k=1 is the newest).
func (w *Window) Recent(k int) float64 {
	return w.values[len(w.values)-k]
}

// Last returns the newest value, or 0 for an empty window.
func (w *Window) Last() float64 {
	if len(w.values) == 0 {
		return 0
	}
	return w.values[len(w.values)-1]
}

func (w *Window) Len() int { return len(w.values) }

func (w *Window) Cap() int { return w.size }

// Values returns a copy of the window contents, oldest first.
func (w *Window) Values() []float64 {
	out := make([]float64, len(w.values))
	copy(out, w.values)
	return out
}

// cumulative returns the running sums of values.
func cumulative(values []float64) []float64 {
	out := make([]float64, len(values))
	var sum float64
	for i, v := range values {
		sum += v
		out[i] = sum
	}
	return out
}
