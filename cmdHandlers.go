package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"music-recognition/catalog"
	"music-recognition/db"
	"music-recognition/fingerprint"
	"music-recognition/matcher"
	"music-recognition/models"
	"music-recognition/utils"
	"music-recognition/wav"
)

const (
	SONGS_DIR = "songs"
)

// ErrInvalidVerbose guards the save command's verbosity knob.
var ErrInvalidVerbose = errors.New("verbose must be 0, 1 or 2")

func find(filePath string) {
	log.Printf("[find] fingerprinting %s...", filePath)

	fp, err := fingerprintFile(filePath, fingerprint.DefaultQueryConfig())
	if err != nil {
		fmt.Println("error generating fingerprint:", err)
		return
	}

	dbClient, err := db.NewClient()
	if err != nil {
		utils.LogError(context.Background(), "error creating DB client", err)
		fmt.Println("error creating DB client:", err)
		return
	}
	defer dbClient.Close()

	searchStart := time.Now()
	matches, err := matcher.Identify(dbClient, fp)
	searchDuration := time.Since(searchStart)

	if errors.Is(err, matcher.ErrEmptyFingerprint) {
		color.Red("No fingerprint detected...")
		return
	}
	if err != nil {
		utils.LogError(context.Background(), "error finding matches", err)
		fmt.Println("error finding matches:", err)
		return
	}

	if len(matches) == 0 {
		color.Red("\nNo song detected...")
		fmt.Printf("\nsearch took: %s\n", searchDuration)
		return
	}

	best := matches[0]
	color.Green("Song identified: %s by %s (%d collisions)",
		songTitle(best), songArtists(best), best.Score)

	if len(matches) > 1 {
		runnerUp := matches[1]
		fmt.Printf("runner-up: %s by %s (%d collisions)\n",
			songTitle(runnerUp), songArtists(runnerUp), runnerUp.Score)
	}

	fmt.Printf("\nsearch took: %s\n", searchDuration)
}

func songTitle(m matcher.Match) string {
	if m.Song == nil {
		return fmt.Sprintf("song #%d", m.SongID)
	}
	return m.Song.Title
}

func songArtists(m matcher.Match) string {
	if m.Song == nil {
		return "unknown"
	}
	return m.Song.Artists
}

// fingerprintFile decodes any audio file to catalog-rate mono PCM and
// runs the fingerprint pipeline on it.
func fingerprintFile(filePath string, cfg fingerprint.Config) (*models.Fingerprint, error) {
	wavPath, err := wav.ConvertToWAV(filePath)
	if err != nil {
		return nil, fmt.Errorf("converting to WAV: %v", err)
	}

	info, err := wav.ReadWavInfo(wavPath)
	if err != nil {
		return nil, fmt.Errorf("reading WAV: %v", err)
	}

	result, err := fingerprint.FromPCM(info.Samples, info.SampleRate, cfg)
	if err != nil {
		return nil, fmt.Errorf("fingerprinting: %v", err)
	}
	return result, nil
}

func save(path string, force bool, verbose int) error {
	if verbose != 0 && verbose != 1 && verbose != 2 {
		return ErrInvalidVerbose
	}

	fileInfo, err := os.Stat(path)
	if err != nil {
		return err
	}

	if !fileInfo.IsDir() {
		meta := metadataForFile(path)
		return saveSong(path, meta, verbose)
	}

	return saveFolder(path, force, verbose)
}

// metadataForFile builds metadata for a single file from its embedded
// tags, falling back to the file name.
func metadataForFile(filePath string) catalog.Metadata {
	meta := catalog.Metadata{
		Artists: catalog.DefaultArtists,
		Album:   catalog.DefaultAlbum,
		Lyrics:  catalog.DefaultLyrics,
		Cover:   catalog.DefaultCover,
		URL:     catalog.DefaultURL,
	}

	if tags, err := wav.GetMetadata(filePath); err == nil {
		meta.Title = tags.Title
		if tags.Artist != "" {
			meta.Artists = tags.Artist
		}
		if tags.Album != "" {
			meta.Album = tags.Album
		}
	}
	if meta.Title == "" {
		meta.Title = strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
	}
	return meta
}

// saveFolder indexes every audio file in a folder, driven by the
// song_details.json sidecar.
func saveFolder(dir string, force bool, verbose int) error {
	files, err := catalog.AudioFiles(dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Println("no audio files found in", dir)
		return nil
	}

	sidecarPath := filepath.Join(dir, catalog.SidecarName)
	entries, err := catalog.Load(sidecarPath)
	if err != nil {
		return err
	}
	catalog.InitDefaults(entries, files)
	if err := catalog.Save(sidecarPath, entries); err != nil {
		return err
	}

	var toProcess []string
	for _, file := range files {
		name := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
		meta := entries[name]

		if err := catalog.Validate(meta); err != nil {
			fmt.Printf("skipping %s: %v\n", name, err)
			continue
		}
		if !force && !catalog.IsComplete(meta) {
			fmt.Printf("skipping %s: metadata incomplete (use -f to index anyway)\n", name)
			continue
		}
		toProcess = append(toProcess, file)
	}

	processFilesConcurrently(toProcess, entries, verbose)
	return nil
}

func processFilesConcurrently(filePaths []string, entries map[string]catalog.Metadata, verbose int) {
	numFiles := len(filePaths)
	if numFiles == 0 {
		return
	}

	maxWorkers := runtime.NumCPU() / 2
	if numFiles < maxWorkers {
		maxWorkers = numFiles
	}
	if maxWorkers < 1 {
		maxWorkers = 1
	}

	jobs := make(chan string, numFiles)
	results := make(chan error, numFiles)

	for w := 0; w < maxWorkers; w++ {
		go func() {
			for fp := range jobs {
				name := strings.TrimSuffix(filepath.Base(fp), filepath.Ext(fp))
				results <- saveSong(fp, entries[name], verbose)
			}
		}()
	}

	for _, fp := range filePaths {
		jobs <- fp
	}
	close(jobs)

	bar := progressbar.Default(int64(numFiles), "indexing")
	successCount, errorCount := 0, 0
	for i := 0; i < numFiles; i++ {
		if err := <-results; err != nil {
			fmt.Printf("\nerror: %v\n", err)
			errorCount++
		} else {
			successCount++
		}
		bar.Add(1)
	}

	fmt.Printf("\nprocessed %d files: %d successful, %d failed\n", numFiles, successCount, errorCount)
}

// saveSong runs the full ingest path for one file: decode, fingerprint
// with the ingest config, register the song and persist its pairs.
func saveSong(filePath string, meta catalog.Metadata, verbose int) error {
	fp, err := fingerprintFile(filePath, fingerprint.DefaultIngestConfig())
	if err != nil {
		return fmt.Errorf("failed to process '%s': %v", filePath, err)
	}

	if verbose >= 1 {
		color.Green("Generated fingerprint for song: %s (%d points).",
			filepath.Base(filePath), fp.Len())
	}
	if verbose == 2 {
		for _, pair := range fp.Pairs() {
			color.Yellow("Time: %v - Hash: %s", pair.Offset, pair.Hash)
		}
	}

	dbClient, err := db.NewClient()
	if err != nil {
		utils.LogError(context.Background(), "failed to create DB client", err)
		return fmt.Errorf("failed to create DB client: %w", err)
	}
	defer dbClient.Close()

	songID, err := dbClient.InsertSong(meta.Song())
	if err != nil {
		utils.LogError(context.Background(), "failed to register song", err)
		return fmt.Errorf("failed to register song: %w", err)
	}
	fp.BindSong(songID)

	if err := dbClient.InsertFingerprint(fp); err != nil {
		dbClient.DeleteSong(songID)
		utils.LogError(context.Background(), "failed to store fingerprint", err)
		return fmt.Errorf("failed to store fingerprint: %w", err)
	}

	if verbose >= 1 {
		color.Green("Stored fingerprint in the database.")
	}
	return nil
}

func serve(protocol, port string) {
	protocol = strings.ToLower(protocol)

	mux := http.NewServeMux()

	mux.HandleFunc("/api/import", handleImport)
	mux.HandleFunc("/api/identify", handleIdentify)
	mux.HandleFunc("/api/stats", handleStats)
	mux.HandleFunc("/api/songs", handleSongs)

	mux.Handle("/", http.FileServer(http.Dir("static")))

	handler := requestLogger(corsMiddleware(mux))

	log.Printf("starting server on port %s (%s)\n", port, protocol)
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: 200}
		next.ServeHTTP(rec, r)

		// skip noisy static file / stats polling logs
		if strings.HasPrefix(r.URL.Path, "/api/") && r.URL.Path != "/api/stats" {
			log.Printf("[http] %s %s -> %d (%s)", r.Method, r.URL.Path, rec.status, time.Since(start))
		}
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func erase(songsDir string, dbOnly bool, all bool) {
	dbClient, err := db.NewClient()
	if err != nil {
		utils.LogError(context.Background(), "error creating DB client", err)
		fmt.Printf("error creating DB client: %v\n", err)
		return
	}
	defer dbClient.Close()

	if err := dbClient.DeleteAll(); err != nil {
		utils.LogError(context.Background(), "error clearing database", err)
		fmt.Printf("error clearing database: %v\n", err)
		return
	}

	fmt.Println("database cleared")

	if !all {
		fmt.Println("erase complete")
		return
	}

	err = filepath.Walk(songsDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		if ext == ".wav" || ext == ".m4a" || ext == ".mp3" || ext == ".flac" || ext == ".ogg" {
			return os.Remove(path)
		}
		return nil
	})
	if err != nil {
		fmt.Printf("error cleaning files in %s: %v\n", songsDir, err)
	}
	fmt.Println("audio files cleared")
	fmt.Println("erase complete")
}
