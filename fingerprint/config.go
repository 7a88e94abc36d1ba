package fingerprint

import "fmt"

const (
	// DBFloor replaces non-finite log-power values. Frozen: changing it
	// shifts the background percentile and invalidates stored fingerprints.
	DBFloor = -160.0

	// MaxPairDeltaSec is the largest anchor-to-target time gap that still
	// produces a hash pair.
	MaxPairDeltaSec = 200.0
)

// Config controls all tunable parameters in the spectrogram, peak
// extraction, and hash generation pipeline. Ingest and query use different
// defaults on purpose: queries accept more candidate pairs to survive noise
// while ingest keeps the index small.
type Config struct {
	SampleRate       int     // catalog sampling rate in Hz; must match between ingest and query
	WindowSize       int     // FFT length (frequency resolution)
	OverlapRatio     float64 // fraction of each window shared with the next
	NeighborhoodSize int     // radius of the peak-picking footprint; larger means fewer, more isolated peaks
	AmpThresholdDB   float64 // noise-floor cut for peaks
	FanValue         int     // number of temporal neighbors each anchor is paired with
}

// DefaultIngestConfig returns the parameters used when indexing songs
// into the catalog.
func DefaultIngestConfig() Config {
	return Config{
		SampleRate:       22050,
		WindowSize:       4096,
		OverlapRatio:     0.5,
		NeighborhoodSize: 20,
		AmpThresholdDB:   -50,
		FanValue:         30,
	}
}

// DefaultQueryConfig returns the parameters used when identifying a
// recording against the catalog.
func DefaultQueryConfig() Config {
	return Config{
		SampleRate:       22050,
		WindowSize:       4096,
		OverlapRatio:     0.5,
		NeighborhoodSize: 100,
		AmpThresholdDB:   -50,
		FanValue:         150,
	}
}

func (c Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", c.SampleRate)
	}
	if c.WindowSize <= 0 {
		return fmt.Errorf("window size must be positive, got %d", c.WindowSize)
	}
	if c.OverlapRatio < 0 || c.OverlapRatio >= 1 {
		return fmt.Errorf("overlap ratio must be in [0, 1), got %g", c.OverlapRatio)
	}
	if c.hop() <= 0 {
		return fmt.Errorf("window size %d with overlap %g leaves no hop", c.WindowSize, c.OverlapRatio)
	}
	if c.NeighborhoodSize <= 0 {
		return fmt.Errorf("neighborhood size must be positive, got %d", c.NeighborhoodSize)
	}
	if c.FanValue <= 0 {
		return fmt.Errorf("fan value must be positive, got %d", c.FanValue)
	}
	return nil
}

// hop is the frame advance in samples.
func (c Config) hop() int {
	return int(float64(c.WindowSize) * (1 - c.OverlapRatio))
}
