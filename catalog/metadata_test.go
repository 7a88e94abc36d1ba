package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completeMetadata() Metadata {
	return Metadata{
		Title:   "Bohemian Rhapsody",
		Artists: "Queen",
		Album:   "A Night at the Opera",
		Lyrics:  "Is this the real life?",
		Cover:   "https://example.com/cover.jpg",
		URL:     "https://example.com/video",
	}
}

func TestValidateLengthLimits(t *testing.T) {
	meta := completeMetadata()
	assert.NoError(t, Validate(meta))

	meta.Title = strings.Repeat("a", MaxTitleLen+1)
	assert.ErrorContains(t, Validate(meta), "title")

	meta = completeMetadata()
	meta.Lyrics = strings.Repeat("la ", MaxLyricsLen) // way past the cap
	assert.ErrorContains(t, Validate(meta), "lyrics")

	meta = completeMetadata()
	meta.Cover = "https://example.com/" + strings.Repeat("x", MaxCoverLen)
	assert.ErrorContains(t, Validate(meta), "cover")

	meta = completeMetadata()
	meta.Title = ""
	assert.Error(t, Validate(meta))
}

func TestIsComplete(t *testing.T) {
	assert.True(t, IsComplete(completeMetadata()))

	meta := completeMetadata()
	meta.Artists = DefaultArtists
	assert.False(t, IsComplete(meta))

	meta = completeMetadata()
	meta.Lyrics = DefaultLyrics
	assert.False(t, IsComplete(meta))

	meta = completeMetadata()
	meta.Cover = "not a url"
	assert.False(t, IsComplete(meta))

	meta = completeMetadata()
	meta.URL = "http://localhost.example.com:8080/watch?v=1"
	assert.True(t, IsComplete(meta))
}

func TestLoadMissingSidecar(t *testing.T) {
	entries, err := Load(filepath.Join(t.TempDir(), SidecarName))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), SidecarName)

	want := map[string]Metadata{
		"song-one": completeMetadata(),
		"song-two": {Title: "song-two", Artists: DefaultArtists},
	}
	require.NoError(t, Save(path, want))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestInitDefaults(t *testing.T) {
	entries := map[string]Metadata{
		"existing": completeMetadata(),
	}

	InitDefaults(entries, []string{"/music/existing.mp3", "/music/fresh.wav"})

	require.Len(t, entries, 2)
	assert.Equal(t, "Bohemian Rhapsody", entries["existing"].Title)

	fresh := entries["fresh"]
	assert.Equal(t, "fresh", fresh.Title)
	assert.Equal(t, DefaultArtists, fresh.Artists)
	assert.Equal(t, DefaultCover, fresh.Cover)
	assert.False(t, IsComplete(fresh))
}

func TestAudioFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.mp3", "a.wav", "notes.txt", "c.FLAC", SidecarName} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.mp3"), 0755))

	files, err := AudioFiles(dir)
	require.NoError(t, err)

	names := make([]string, len(files))
	for i, f := range files {
		names[i] = filepath.Base(f)
	}
	assert.Equal(t, []string{"a.wav", "b.mp3", "c.FLAC"}, names)
}
