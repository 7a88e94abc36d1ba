package fingerprint

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sine(freq float64, sampleRate int, seconds float64) []float64 {
	n := int(float64(sampleRate) * seconds)
	pcm := make([]float64, n)
	for i := range pcm {
		pcm[i] = math.Sin(2 * math.Pi * freq * float64(i) / float64(sampleRate))
	}
	return pcm
}

func TestSpectrogramAxes(t *testing.T) {
	cfg := DefaultIngestConfig()
	pcm := make([]float64, 44100)

	Sdb, freqs, times, err := Spectrogram(pcm, 22050, cfg)
	require.NoError(t, err)

	hop := cfg.WindowSize / 2
	wantFrames := 1 + (len(pcm)-cfg.WindowSize)/hop
	wantBins := cfg.WindowSize/2 + 1

	require.Len(t, freqs, wantBins)
	require.Len(t, times, wantFrames)
	require.Len(t, Sdb, wantBins)
	for _, row := range Sdb {
		require.Len(t, row, wantFrames)
	}

	for f := 1; f < len(freqs); f++ {
		assert.Greater(t, freqs[f], freqs[f-1])
	}
	assert.Equal(t, 0.0, freqs[0])
	assert.InDelta(t, 22050.0/2, freqs[len(freqs)-1], 1e-9)

	step := float64(hop) / 22050
	for tIdx := 1; tIdx < len(times); tIdx++ {
		assert.InDelta(t, step, times[tIdx]-times[tIdx-1], 1e-9)
	}
	assert.InDelta(t, float64(cfg.WindowSize)/2/22050, times[0], 1e-9)
}

func TestSpectrogramSilenceAtFloor(t *testing.T) {
	pcm := make([]float64, 44100)

	Sdb, _, _, err := Spectrogram(pcm, 22050, DefaultIngestConfig())
	require.NoError(t, err)

	for f := range Sdb {
		for tIdx := range Sdb[f] {
			assert.Equal(t, DBFloor, Sdb[f][tIdx])
		}
	}
}

func TestSpectrogramShortInput(t *testing.T) {
	cfg := DefaultIngestConfig()
	pcm := make([]float64, cfg.WindowSize-1)

	Sdb, freqs, times, err := Spectrogram(pcm, 22050, cfg)
	require.NoError(t, err)

	assert.Len(t, freqs, cfg.WindowSize/2+1)
	assert.Empty(t, times)
	for _, row := range Sdb {
		assert.Empty(t, row)
	}
}

func TestSpectrogramSinusoidEnergyBin(t *testing.T) {
	cfg := DefaultIngestConfig()
	pcm := sine(1000, 22050, 2)

	Sdb, freqs, times, err := Spectrogram(pcm, 22050, cfg)
	require.NoError(t, err)
	require.NotEmpty(t, times)

	wantBin := int(math.Round(1000 / (22050.0 / float64(cfg.WindowSize))))

	for tIdx := range times {
		maxBin := 0
		for f := range Sdb {
			if Sdb[f][tIdx] > Sdb[maxBin][tIdx] {
				maxBin = f
			}
		}
		assert.InDelta(t, wantBin, maxBin, 1,
			"frame %d: energy concentrated at %0.f Hz", tIdx, freqs[maxBin])
	}
}

func TestSpectrogramInvalidConfig(t *testing.T) {
	pcm := make([]float64, 8192)

	cfg := DefaultIngestConfig()
	cfg.OverlapRatio = 1.0
	_, _, _, err := Spectrogram(pcm, 22050, cfg)
	assert.Error(t, err)

	cfg = DefaultIngestConfig()
	_, _, _, err = Spectrogram(pcm, 0, cfg)
	assert.Error(t, err)

	cfg = DefaultIngestConfig()
	cfg.WindowSize = 0
	_, _, _, err = Spectrogram(pcm, 22050, cfg)
	assert.Error(t, err)
}
