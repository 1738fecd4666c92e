package metrics

import (
	"math"
	"slices"
	"time"
)

// Histogram keeps raw duration samples so exact percentiles can be reported
// at the end of a job. Prometheus histograms only expose buckets.
type Histogram struct {
	samples []float64 // milliseconds
	maxSize int
}

// NewHistogram creates a histogram keeping at most maxSize samples; older
// samples are dropped first.
func NewHistogram(maxSize int) *Histogram {
	if maxSize <= 0 {
		maxSize = 10000
	}
	return &Histogram{maxSize: maxSize}
}

// Record adds a sample.
func (h *Histogram) Record(d time.Duration) {
	h.samples = append(h.samples, float64(d.Microseconds())/1000.0)
	if len(h.samples) > h.maxSize {
		// Drop the oldest fifth at once to avoid trimming on every call.
		h.samples = slices.Delete(h.samples, 0, max(1, h.maxSize/5))
	}
}

// Count returns the number of samples kept.
func (h *Histogram) Count() int {
	return len(h.samples)
}

// Mean returns the average in milliseconds.
func (h *Histogram) Mean() float64 {
	if len(h.samples) == 0 {
		return 0
	}
	var sum float64
	for _, v := range h.samples {
		sum += v
	}
	return sum / float64(len(h.samples))
}

// Percentile returns the p-th percentile (0-100) in milliseconds, linearly
// interpolated between neighbouring samples.
func (h *Histogram) Percentile(p float64) float64 {
	if len(h.samples) == 0 {
		return 0
	}
	sorted := slices.Clone(h.samples)
	slices.Sort(sorted)

	index := (p / 100.0) * float64(len(sorted)-1)
	lower := int(math.Floor(index))
	upper := int(math.Ceil(index))
	if lower == upper {
		return sorted[lower]
	}
	fraction := index - float64(lower)
	return sorted[lower]*(1-fraction) + sorted[upper]*fraction
}

// Max returns the largest sample in milliseconds.
func (h *Histogram) Max() float64 {
	if len(h.samples) == 0 {
		return 0
	}
	return slices.Max(h.samples)
}

// Reset clears all samples.
func (h *Histogram) Reset() {
	h.samples = h.samples[:0]
}
