package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatHashStability(t *testing.T) {
	// frozen format: changing it invalidates every stored fingerprint
	assert.Equal(t, "440.00|880.00|1.5", FormatHash(440.0, 880.0, 1.5))
	assert.Equal(t, "1000.19|1000.19|0", FormatHash(1000.1899, 1000.1899, 0))
	assert.Equal(t, "0.00|5.38|200", FormatHash(0, 5.383, 200))
}

func TestParseHashSymmetry(t *testing.T) {
	cases := []struct {
		f1, f2, dt float64
	}{
		{440.0, 880.0, 1.5},
		{1000.25, 2000.75, 0},
		{5.38, 11025.0, 199.9},
		{0, 0, 0.09287981859410431},
	}

	for _, tc := range cases {
		f1, f2, dt, err := ParseHash(FormatHash(tc.f1, tc.f2, tc.dt))
		require.NoError(t, err)
		// frequencies survive at two-decimal precision, the delta exactly
		assert.InDelta(t, tc.f1, f1, 0.005)
		assert.InDelta(t, tc.f2, f2, 0.005)
		assert.Equal(t, tc.dt, dt)
	}
}

func TestParseHashRejectsGarbage(t *testing.T) {
	for _, bad := range []string{"", "440.00", "440.00|880.00", "a|b|c", "440.00|880.00|1.5|x"} {
		_, _, _, err := ParseHash(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestHashPairsEmissionOrder(t *testing.T) {
	cfg := DefaultIngestConfig()
	freqs := []float64{100, 200, 300}
	times := []float64{0, 1, 2}
	peaks := []Peak{
		{FreqIdx: 0, TimeIdx: 0},
		{FreqIdx: 1, TimeIdx: 1},
		{FreqIdx: 2, TimeIdx: 2},
	}

	fp := HashPairs(peaks, freqs, times, cfg)
	pairs := fp.Pairs()
	require.Len(t, pairs, 3)

	// nested (i, j) order: (0,1), (0,2), (1,2)
	assert.Equal(t, "100.00|200.00|1", pairs[0].Hash)
	assert.Equal(t, "100.00|300.00|2", pairs[1].Hash)
	assert.Equal(t, "200.00|300.00|1", pairs[2].Hash)

	// offset is the anchor peak's time
	assert.Equal(t, 0.0, pairs[0].Offset)
	assert.Equal(t, 0.0, pairs[1].Offset)
	assert.Equal(t, 1.0, pairs[2].Offset)
}

func TestHashPairsDeltaWindow(t *testing.T) {
	cfg := DefaultIngestConfig()
	freqs := []float64{100, 200}
	times := []float64{0, 150, 250}

	// row-major emission can put a later row's earlier frame after an
	// earlier row's later frame: negative deltas must be dropped
	peaks := []Peak{
		{FreqIdx: 0, TimeIdx: 1}, // t=150
		{FreqIdx: 1, TimeIdx: 0}, // t=0, delta -150
		{FreqIdx: 1, TimeIdx: 2}, // t=250, delta 100 from anchor 0; 250 from anchor 1
	}

	fp := HashPairs(peaks, freqs, times, cfg)
	pairs := fp.Pairs()
	require.Len(t, pairs, 1)
	assert.Equal(t, "100.00|200.00|100", pairs[0].Hash)

	for _, pair := range pairs {
		_, _, dt, err := ParseHash(pair.Hash)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, dt, 0.0)
		assert.LessOrEqual(t, dt, MaxPairDeltaSec)
	}
}

func TestHashPairsFanLimit(t *testing.T) {
	cfg := DefaultIngestConfig()
	cfg.FanValue = 2 // each anchor pairs with exactly one successor

	freqs := []float64{100, 200, 300, 400}
	times := []float64{0, 1, 2, 3}
	peaks := []Peak{
		{FreqIdx: 0, TimeIdx: 0},
		{FreqIdx: 1, TimeIdx: 1},
		{FreqIdx: 2, TimeIdx: 2},
		{FreqIdx: 3, TimeIdx: 3},
	}

	fp := HashPairs(peaks, freqs, times, cfg)
	require.Equal(t, 3, fp.Len())
}

func TestHashPairsZeroDelta(t *testing.T) {
	cfg := DefaultIngestConfig()
	freqs := []float64{100, 200}
	times := []float64{0.5}

	// two peaks in the same frame: delta 0 is inside the window
	peaks := []Peak{
		{FreqIdx: 0, TimeIdx: 0},
		{FreqIdx: 1, TimeIdx: 0},
	}

	fp := HashPairs(peaks, freqs, times, cfg)
	require.Equal(t, 1, fp.Len())
	assert.Equal(t, "100.00|200.00|0", fp.Pairs()[0].Hash)
}
