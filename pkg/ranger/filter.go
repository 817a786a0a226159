package ranger

import "math"

// Filter is a sliding window agreement filter. A reading is stable when all
// samples in the window lie within the tolerance of each other.
type Filter struct {
	samples   [MaxFilterSamples]int
	count     int
	tolerance int
	cursor    int
}

// NewFilter returns a reset filter over count samples.
func NewFilter(count uint8, toleranceCm uint16) *Filter {
	f := &Filter{}
	f.Configure(count, toleranceCm)
	f.Reset()
	return f
}

// Configure changes the window size and tolerance. The window contents are
// kept; call Reset to start over.
func (f *Filter) Configure(count uint8, toleranceCm uint16) {
	f.count = int(count)
	if f.count > MaxFilterSamples {
		f.count = MaxFilterSamples
	}
	f.tolerance = int(toleranceCm)
}

// Reset fills the window with a value no real reading can agree with.
func (f *Filter) Reset() {
	sentinel := MaxRangeCm + f.tolerance
	if sentinel > math.MaxInt16 {
		sentinel = math.MaxInt16
	}
	for i := range f.samples {
		f.samples[i] = sentinel
	}
	f.cursor = MaxFilterSamples
}

// Add stores cm in the window and reports whether the window is stable.
// A filter with no samples accepts every reading.
func (f *Filter) Add(cm int16) bool {
	if f.count == 0 {
		return true
	}

	f.cursor++
	if f.cursor >= f.count {
		f.cursor = 0
	}
	f.samples[f.cursor] = int(cm)

	lo, hi := f.samples[0], f.samples[0]
	for _, s := range f.samples[1:f.count] {
		lo = min(lo, s)
		hi = max(hi, s)
	}
	return hi-lo < f.tolerance
}

// Window returns a copy of the active samples.
func (f *Filter) Window() []int16 {
	w := make([]int16, f.count)
	for i := range w {
		w[i] = int16(f.samples[i])
	}
	return w
}
