package wav

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")

	samples := make([]float64, CatalogSampleRate) // one second
	for i := range samples {
		samples[i] = 0.5 * math.Sin(2*math.Pi*440*float64(i)/float64(CatalogSampleRate))
	}
	require.NoError(t, WriteWavFile(path, samples, CatalogSampleRate))

	info, err := ReadWavInfo(path)
	require.NoError(t, err)

	assert.Equal(t, 1, info.Channels)
	assert.Equal(t, CatalogSampleRate, info.SampleRate)
	assert.InDelta(t, 1.0, info.Duration, 1e-6)
	require.Len(t, info.Samples, len(samples))

	for i := range samples {
		assert.InDelta(t, samples[i], info.Samples[i], 1.0/32768*2)
	}
}

func TestReadWavInfoRejectsGarbage(t *testing.T) {
	dir := t.TempDir()

	short := filepath.Join(dir, "short.wav")
	require.NoError(t, os.WriteFile(short, []byte("RIFF"), 0644))
	_, err := ReadWavInfo(short)
	assert.Error(t, err)

	notWav := filepath.Join(dir, "not.wav")
	require.NoError(t, os.WriteFile(notWav, make([]byte, 64), 0644))
	_, err = ReadWavInfo(notWav)
	assert.Error(t, err)

	_, err = ReadWavInfo(filepath.Join(dir, "missing.wav"))
	assert.Error(t, err)
}

func TestReadWavInfoAveragesStereo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stereo.wav")

	// hand-build a 2-channel file: left 0.5, right -0.5 everywhere
	const frames = 100
	pcm := make([]byte, frames*4)
	for i := 0; i < frames; i++ {
		binary.LittleEndian.PutUint16(pcm[i*4:], uint16(int16(math.Trunc(0.5*32767))))
		binary.LittleEndian.PutUint16(pcm[i*4+2:], uint16(int16(math.Trunc(-0.5*32767))))
	}

	header := wavHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     uint32(36 + len(pcm)),
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1,
		NumChannels:   2,
		SampleRate:    CatalogSampleRate,
		BytesPerSec:   CatalogSampleRate * 4,
		BlockAlign:    4,
		BitsPerSample: 16,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: uint32(len(pcm)),
	}

	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, binary.Write(f, binary.LittleEndian, header))
	_, err = f.Write(pcm)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	info, err := ReadWavInfo(path)
	require.NoError(t, err)
	assert.Equal(t, 2, info.Channels)
	require.Len(t, info.Samples, frames)
	for _, s := range info.Samples {
		assert.InDelta(t, 0, s, 1.0/32768*2)
	}
}
