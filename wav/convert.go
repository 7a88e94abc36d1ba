package wav

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"music-recognition/utils"
)

// CatalogSampleRate is the rate every file is decoded to before
// fingerprinting. All fingerprints in one catalog must share it.
const CatalogSampleRate = 22050

// ConvertToWAV converts an input audio file to 16-bit PCM mono WAV at the
// catalog sample rate.
func ConvertToWAV(inputFilePath string) (wavFilePath string, err error) {
	if _, err = os.Stat(inputFilePath); err != nil {
		return "", fmt.Errorf("input file does not exist: %v", err)
	}

	fileExt := filepath.Ext(inputFilePath)
	outputFile := strings.TrimSuffix(inputFilePath, fileExt) + ".wav"

	// Output file may already exist. If it does FFmpeg will fail as
	// it cannot edit existing files in-place. Use a temporary file.
	tmpFile := filepath.Join(filepath.Dir(outputFile), "tmp_"+filepath.Base(outputFile))
	defer os.Remove(tmpFile)

	cmd := exec.Command(
		"ffmpeg",
		"-y",
		"-i", inputFilePath,
		"-c", "pcm_s16le",
		"-ar", fmt.Sprint(CatalogSampleRate),
		"-ac", "1",
		tmpFile,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("failed to convert to WAV: %v, output %v", err, string(output))
	}

	if err := utils.MoveFile(tmpFile, outputFile); err != nil {
		return "", fmt.Errorf("failed to rename temporary file to output file: %v", err)
	}

	return outputFile, nil
}

// GetAudioDuration returns the duration in seconds of any audio file
// by calling ffprobe.
func GetAudioDuration(inputPath string) (float64, error) {
	cmd := exec.Command(
		"ffprobe",
		"-v", "quiet",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		inputPath,
	)

	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration query failed: %v", err)
	}

	return strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
}

// Metadata is the subset of ffprobe's format tags the importer cares about.
type Metadata struct {
	Title  string
	Artist string
	Album  string
}

// GetMetadata reads the embedded tags of an audio file via ffprobe.
func GetMetadata(inputPath string) (Metadata, error) {
	cmd := exec.Command(
		"ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		inputPath,
	)

	out, err := cmd.Output()
	if err != nil {
		return Metadata{}, fmt.Errorf("ffprobe metadata query failed: %v", err)
	}

	tags := gjson.GetBytes(out, "format.tags")
	return Metadata{
		Title:  tags.Get("title").String(),
		Artist: tags.Get("artist").String(),
		Album:  tags.Get("album").String(),
	}, nil
}
