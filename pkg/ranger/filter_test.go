package ranger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilter_Acceptance(t *testing.T) {
	tests := []struct {
		name      string
		count     uint8
		tolerance uint16
		samples   []int16
		want      []bool
	}{
		{
			name:      "agreeing window",
			count:     3,
			tolerance: 5,
			samples:   []int16{100, 101, 100},
			want:      []bool{false, false, true},
		},
		{
			name:      "glitch in window",
			count:     3,
			tolerance: 5,
			samples:   []int16{100, 120, 101},
			want:      []bool{false, false, false},
		},
		{
			name:      "glitch ages out",
			count:     3,
			tolerance: 5,
			samples:   []int16{100, 120, 101, 100, 102},
			want:      []bool{false, false, false, false, true},
		},
		{
			name:      "spread equal to tolerance is rejected",
			count:     2,
			tolerance: 5,
			samples:   []int16{100, 105, 104},
			want:      []bool{false, false, true},
		},
		{
			name:      "single sample window",
			count:     1,
			tolerance: 1,
			samples:   []int16{10, 300, 7},
			want:      []bool{true, true, true},
		},
		{
			name:      "disabled",
			count:     0,
			tolerance: 0,
			samples:   []int16{10, 300, 7},
			want:      []bool{true, true, true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFilter(tt.count, tt.tolerance)
			got := make([]bool, 0, len(tt.samples))
			for _, s := range tt.samples {
				got = append(got, f.Add(s))
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFilter_ResetUsesSentinel(t *testing.T) {
	f := NewFilter(3, 5)
	assert.Equal(t, []int16{405, 405, 405}, f.Window())

	assert.False(t, f.Add(400))
	assert.False(t, f.Add(400), "sentinel still in the window")
	assert.Equal(t, []int16{400, 400, 405}, f.Window(), "writes start at the first slot")
	assert.True(t, f.Add(403))

	f.Reset()
	assert.Equal(t, []int16{405, 405, 405}, f.Window())
}

func TestFilter_SentinelSaturates(t *testing.T) {
	f := NewFilter(2, 65535)
	assert.Equal(t, []int16{32767, 32767}, f.Window())
}

func TestFilter_CountIsCapped(t *testing.T) {
	f := NewFilter(MaxFilterSamples+10, 5)
	assert.Len(t, f.Window(), MaxFilterSamples)
}

func TestFilter_ShrinkWhileRunning(t *testing.T) {
	f := NewFilter(5, 5)
	for range 4 {
		f.Add(50)
	}

	f.Configure(2, 5)
	assert.True(t, f.Add(51), "cursor wraps into the smaller window")
	assert.Len(t, f.Window(), 2)
}
