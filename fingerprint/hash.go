package fingerprint

import (
	"fmt"
	"strconv"
	"strings"

	"music-recognition/models"
)

// FormatHash renders the frozen textual hash of a peak pair: both
// frequencies at two decimals, the time gap in its shortest decimal form,
// separated by pipes. Changing this format invalidates every stored
// fingerprint.
func FormatHash(freqAnchor, freqTarget, deltaSec float64) string {
	return fmt.Sprintf("%.2f|%.2f|%s",
		freqAnchor, freqTarget, strconv.FormatFloat(deltaSec, 'g', -1, 64))
}

// ParseHash recovers the (anchor, target, delta) triple from a hash
// string produced by FormatHash.
func ParseHash(hash string) (freqAnchor, freqTarget, deltaSec float64, err error) {
	parts := strings.Split(hash, "|")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("hash %q: want 3 pipe-separated fields, got %d", hash, len(parts))
	}
	if freqAnchor, err = strconv.ParseFloat(parts[0], 64); err != nil {
		return 0, 0, 0, fmt.Errorf("hash %q: anchor frequency: %v", hash, err)
	}
	if freqTarget, err = strconv.ParseFloat(parts[1], 64); err != nil {
		return 0, 0, 0, fmt.Errorf("hash %q: target frequency: %v", hash, err)
	}
	if deltaSec, err = strconv.ParseFloat(parts[2], 64); err != nil {
		return 0, 0, 0, fmt.Errorf("hash %q: time delta: %v", hash, err)
	}
	return freqAnchor, freqTarget, deltaSec, nil
}

// HashPairs pairs each peak with its cfg.FanValue-1 successors in emission
// order and emits one hash pair per pairing whose time gap lies in
// [0, MaxPairDeltaSec]. The pair's offset is the anchor peak's time.
func HashPairs(peaks []Peak, freqs, times []float64, cfg Config) *models.Fingerprint {
	fp := models.NewFingerprint()

	for i := range peaks {
		for j := 1; j < cfg.FanValue && i+j < len(peaks); j++ {
			anchor, target := peaks[i], peaks[i+j]

			t1 := times[anchor.TimeIdx]
			t2 := times[target.TimeIdx]
			delta := t2 - t1
			if delta < 0 || delta > MaxPairDeltaSec {
				continue
			}

			fp.Append(models.HashPair{
				Hash:   FormatHash(freqs[anchor.FreqIdx], freqs[target.FreqIdx], delta),
				Offset: t1,
			})
		}
	}

	return fp
}
