// Package fingerprint reduces mono PCM to a constellation fingerprint:
// a log-power spectrogram, its prominent time-frequency peaks, and the
// textual hash pairs formed from neighboring peaks. The pipeline is pure
// and deterministic; independent songs may be fingerprinted concurrently.
package fingerprint

import "music-recognition/models"

// FromPCM runs the full pipeline: spectrogram, peak extraction, hash
// generation. Degenerate input (silence, or PCM shorter than one window)
// yields an empty fingerprint, not an error.
func FromPCM(pcm []float64, sampleRate int, cfg Config) (*models.Fingerprint, error) {
	Sdb, freqs, times, err := Spectrogram(pcm, sampleRate, cfg)
	if err != nil {
		return nil, err
	}

	peaks := ExtractPeaks(Sdb, cfg)

	return HashPairs(peaks, freqs, times, cfg), nil
}
