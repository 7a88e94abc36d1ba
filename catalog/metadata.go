// Package catalog manages the song_details.json sidecar that describes
// the audio files of an import folder, and validates metadata before it
// reaches the index. The core pipeline never validates; the importer does.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/buger/jsonparser"

	"music-recognition/models"
)

// SidecarName is the metadata file expected next to the audio files.
const SidecarName = "song_details.json"

// Field length limits, matching the catalog schema.
const (
	MaxTitleLen   = 50
	MaxArtistsLen = 50
	MaxAlbumLen   = 50
	MaxLyricsLen  = 10000
	MaxCoverLen   = 500
	MaxURLLen     = 500
)

// Placeholder values written for files with no metadata yet. A field
// still holding its placeholder counts as incomplete.
const (
	DefaultArtists = "Unknown"
	DefaultAlbum   = "Unknown"
	DefaultLyrics  = "Lyrics not available"
	DefaultCover   = "URL for cover image"
	DefaultURL     = "URL for song video"
)

var urlPattern = regexp.MustCompile(
	`^(https?:\/\/)?` + // scheme
		`(([a-zA-Z0-9-]+\.)+[a-zA-Z]{2,})` + // domain
		`(:[0-9]{1,5})?` + // optional port
		`(\/[^\s]*)?$`) // path

// Metadata is the importer-facing description of one song.
type Metadata struct {
	Title   string `json:"title"`
	Artists string `json:"artists"`
	Album   string `json:"album"`
	Lyrics  string `json:"lyrics"`
	Cover   string `json:"cover"`
	URL     string `json:"url"`
}

// Song converts the metadata into the catalog value stored by the index.
func (m Metadata) Song() models.Song {
	return models.Song{
		Title:   m.Title,
		Artists: m.Artists,
		Album:   m.Album,
		Lyrics:  m.Lyrics,
		Cover:   m.Cover,
		URL:     m.URL,
	}
}

// Load reads a sidecar file into a basename -> metadata map. A missing
// file yields an empty map.
func Load(path string) (map[string]Metadata, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return map[string]Metadata{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %v", path, err)
	}

	entries := map[string]Metadata{}
	err = jsonparser.ObjectEach(data, func(key, value []byte, _ jsonparser.ValueType, _ int) error {
		var meta Metadata
		if err := json.Unmarshal(value, &meta); err != nil {
			return fmt.Errorf("entry %q: %v", string(key), err)
		}
		entries[string(key)] = meta
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error parsing %s: %v", path, err)
	}
	return entries, nil
}

// Save writes the sidecar file, indented, with stable key order.
func Save(path string, entries map[string]Metadata) error {
	data, err := json.MarshalIndent(entries, "", "    ")
	if err != nil {
		return fmt.Errorf("error encoding metadata: %v", err)
	}
	return os.WriteFile(path, data, 0644)
}

// InitDefaults fills missing sidecar entries for the given audio files
// with placeholder metadata titled after the file.
func InitDefaults(entries map[string]Metadata, audioFiles []string) {
	for _, file := range audioFiles {
		name := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
		if _, ok := entries[name]; ok {
			continue
		}
		entries[name] = Metadata{
			Title:   name,
			Artists: DefaultArtists,
			Album:   DefaultAlbum,
			Lyrics:  DefaultLyrics,
			Cover:   DefaultCover,
			URL:     DefaultURL,
		}
	}
}

// AudioFiles lists the importable audio files of a folder, sorted.
func AudioFiles(dir string) ([]string, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("error reading folder %s: %v", dir, err)
	}

	var files []string
	for _, entry := range dirEntries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".mp3", ".wav", ".flac", ".m4a", ".ogg":
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// Validate enforces the field length limits and a non-empty title. It
// does not check URL shape or placeholder values; see IsComplete.
func Validate(meta Metadata) error {
	limits := []struct {
		field string
		value string
		max   int
	}{
		{"title", meta.Title, MaxTitleLen},
		{"artists", meta.Artists, MaxArtistsLen},
		{"album", meta.Album, MaxAlbumLen},
		{"lyrics", meta.Lyrics, MaxLyricsLen},
		{"cover", meta.Cover, MaxCoverLen},
		{"url", meta.URL, MaxURLLen},
	}
	for _, l := range limits {
		if len([]rune(l.value)) > l.max {
			return fmt.Errorf("%s exceeds the maximum length of %d characters", l.field, l.max)
		}
	}
	if meta.Title == "" {
		return fmt.Errorf("title must not be empty")
	}
	return nil
}

// IsComplete reports whether every field has been filled in: no
// placeholder values and valid cover/url URLs.
func IsComplete(meta Metadata) bool {
	if meta.Artists == DefaultArtists || meta.Album == DefaultAlbum ||
		meta.Lyrics == DefaultLyrics || meta.Cover == DefaultCover || meta.URL == DefaultURL {
		return false
	}
	return urlPattern.MatchString(meta.Cover) && urlPattern.MatchString(meta.URL)
}
