package fingerprint

import (
	"math"

	"github.com/mjibson/go-dsp/window"
	"gonum.org/v1/gonum/dsp/fourier"
)

// Spectrogram computes a log-power STFT spectrogram of mono PCM.
//
// The result is frequency-major: Sdb[f][t] holds 10*log10 of the squared
// FFT magnitude at bin f, frame t, with zero power mapped to DBFloor.
// freqs[f] is the bin frequency in Hz and times[t] the frame center in
// seconds. Frames that would run past the end of the input are dropped,
// so PCM shorter than one window yields zero columns.
func Spectrogram(pcm []float64, sampleRate int, cfg Config) (Sdb [][]float64, freqs, times []float64, err error) {
	cfg.SampleRate = sampleRate
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, err
	}

	hop := cfg.hop()
	numBins := cfg.WindowSize/2 + 1
	numFrames := 0
	if len(pcm) >= cfg.WindowSize {
		numFrames = 1 + (len(pcm)-cfg.WindowSize)/hop
	}

	hann := window.Hann(cfg.WindowSize)
	fft := fourier.NewFFT(cfg.WindowSize)

	Sdb = make([][]float64, numBins)
	for f := range Sdb {
		Sdb[f] = make([]float64, numFrames)
	}

	frame := make([]float64, cfg.WindowSize)
	coeffs := make([]complex128, numBins)
	for t := 0; t < numFrames; t++ {
		start := t * hop
		copy(frame, pcm[start:start+cfg.WindowSize])
		for i := range frame {
			frame[i] *= hann[i]
		}
		coeffs = fft.Coefficients(coeffs, frame)

		for f := 0; f < numBins; f++ {
			re, im := real(coeffs[f]), imag(coeffs[f])
			power := re*re + im*im
			if power > 0 {
				Sdb[f][t] = 10 * math.Log10(power)
			} else {
				Sdb[f][t] = DBFloor
			}
		}
	}

	freqs = make([]float64, numBins)
	for f := range freqs {
		freqs[f] = float64(f) * float64(sampleRate) / float64(cfg.WindowSize)
	}

	times = make([]float64, numFrames)
	for t := range times {
		times[t] = (float64(t*hop) + float64(cfg.WindowSize)/2) / float64(sampleRate)
	}

	return Sdb, freqs, times, nil
}
