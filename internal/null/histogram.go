package null

// ALE values live in [0, 1), so the pooled null is kept as a
// fixed-width histogram rather than a raw sample: 1e-5 bins resolve
// p-values well below any usable threshold while keeping a worker's
// accumulator under a megabyte.
const (
	binWidth = 1e-5
	numBins  = 100000
)

// Histogram is a pooled sample of null ALE values. Adds and merges are
// associative and commutative, so per-worker histograms can be reduced
// in any order without changing the result.
type Histogram struct {
	counts []uint64
	total  uint64
	suffix []uint64 // lazily built right-tail cumulative counts
}

// NewHistogram returns an empty histogram.
func NewHistogram() *Histogram {
	return &Histogram{counts: make([]uint64, numBins)}
}

func bin(v float64) int {
	if v <= 0 {
		return 0
	}
	b := int(v / binWidth)
	if b >= numBins {
		b = numBins - 1
	}
	return b
}

// Add records one null ALE value.
func (h *Histogram) Add(v float64) {
	h.counts[bin(v)]++
	h.total++
	h.suffix = nil
}

// Merge folds another histogram into h.
func (h *Histogram) Merge(o *Histogram) {
	for i, c := range o.counts {
		h.counts[i] += c
	}
	h.total += o.total
	h.suffix = nil
}

// Equal reports bin-for-bin equality, the reproducibility contract for
// merged worker histograms.
func (h *Histogram) Equal(o *Histogram) bool {
	if h.total != o.total {
		return false
	}
	for i, c := range h.counts {
		if c != o.counts[i] {
			return false
		}
	}
	return true
}

// Total returns the number of recorded values.
func (h *Histogram) Total() uint64 {
	return h.total
}

// Degenerate reports a zero-variance null: all mass in a single bin
// (or no mass at all). Callers treat every p-value as 1 in that case.
func (h *Histogram) Degenerate() bool {
	occupied := 0
	for _, c := range h.counts {
		if c > 0 {
			occupied++
			if occupied > 1 {
				return false
			}
		}
	}
	return true
}

func (h *Histogram) buildSuffix() {
	h.suffix = make([]uint64, numBins+1)
	for i := numBins - 1; i >= 0; i-- {
		h.suffix[i] = h.suffix[i+1] + h.counts[i]
	}
}

// RightTailP returns the fraction of null mass at or above v, counting
// ties as exceeding. Not safe for concurrent first use; the engine
// queries it single-threaded after the merge.
func (h *Histogram) RightTailP(v float64) float64 {
	if h.total == 0 {
		return 1.0
	}
	if h.suffix == nil {
		h.buildSuffix()
	}
	return float64(h.suffix[bin(v)]) / float64(h.total)
}

// Quantile returns the smallest bin upper edge whose cumulative mass
// reaches q (in [0,1]). Used to turn the cluster-forming p into an ALE
// threshold.
func (h *Histogram) Quantile(q float64) float64 {
	if h.total == 0 {
		return 0
	}
	target := uint64(q * float64(h.total))
	var cum uint64
	for i, c := range h.counts {
		cum += c
		if cum >= target {
			return float64(i+1) * binWidth
		}
	}
	return float64(numBins) * binWidth
}
