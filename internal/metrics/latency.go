package metrics

import "time"

// DefaultLatencyWindowSize is the number of apply latencies averaged
const DefaultLatencyWindowSize = 30

// LatencyWindow is a fixed-capacity ring of latency samples with a running sum.
// Insert and eviction are O(1). Not safe for concurrent use.
type LatencyWindow struct {
	samples []time.Duration
	next    int // slot that receives the next sample
	count   int
	sum     time.Duration
}

// NewLatencyWindow creates a window holding at most capacity samples
func NewLatencyWindow(capacity int) *LatencyWindow {
	if capacity < 1 {
		capacity = DefaultLatencyWindowSize
	}
	return &LatencyWindow{samples: make([]time.Duration, capacity)}
}

// Record adds a sample, evicting the oldest when full, and returns the new average
func (w *LatencyWindow) Record(d time.Duration) time.Duration {
	if w.count == len(w.samples) {
		w.sum -= w.samples[w.next]
	} else {
		w.count++
	}

	w.samples[w.next] = d
	w.sum += d
	w.next = (w.next + 1) % len(w.samples)

	return w.Average()
}

// Average returns the mean of the retained samples, or 0 when empty
func (w *LatencyWindow) Average() time.Duration {
	if w.count == 0 {
		return 0
	}
	return w.sum / time.Duration(w.count)
}

// Len returns the number of retained samples
func (w *LatencyWindow) Len() int {
	return w.count
}

// Cap returns the window capacity
func (w *LatencyWindow) Cap() int {
	return len(w.samples)
}

// Samples returns the retained samples, oldest first
func (w *LatencyWindow) Samples() []time.Duration {
	out := make([]time.Duration, 0, w.count)
	start := (w.next - w.count + len(w.samples)) % len(w.samples)
	for i := 0; i < w.count; i++ {
		out = append(out, w.samples[(start+i)%len(w.samples)])
	}
	return out
}
