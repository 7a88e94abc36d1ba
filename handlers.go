package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"music-recognition/catalog"
	"music-recognition/db"
	"music-recognition/fingerprint"
	"music-recognition/matcher"
	"music-recognition/utils"
)

const maxUploadSize = 500 << 20 // 500 MB

type importResponse struct {
	SongID       uint32 `json:"songId"`
	Title        string `json:"title"`
	Artists      string `json:"artists"`
	Fingerprints int    `json:"fingerprints"`
}

type matchResult struct {
	SongID  uint32 `json:"songId"`
	Title   string `json:"title"`
	Artists string `json:"artists"`
	Album   string `json:"album"`
	Cover   string `json:"cover"`
	URL     string `json:"url"`
	Score   int    `json:"score"`
}

type statsResponse struct {
	TotalSongs        int    `json:"totalSongs"`
	TotalFingerprints int    `json:"totalFingerprints"`
	StorageEstimate   string `json:"storageEstimate"`
}

type songResponse struct {
	ID      uint32 `json:"id"`
	Title   string `json:"title"`
	Artists string `json:"artists"`
	Album   string `json:"album"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError logs the underlying error with its stack trace when one is
// available, then renders the client-facing message.
func writeError(w http.ResponseWriter, status int, msg string, err error) {
	if err != nil {
		utils.LogError(context.Background(), fmt.Sprintf("[error] %d: %s", status, msg), err)
	} else {
		log.Printf("[error] %d: %s", status, msg)
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func formatBytes(b int64) string {
	switch {
	case b >= 1<<30:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(1<<30))
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/float64(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

func saveUploadedFile(r *http.Request) (string, string, int64, error) {
	file, header, err := r.FormFile("file")
	if err != nil {
		return "", "", 0, fmt.Errorf("no file provided: %v", err)
	}
	defer file.Close()

	if err := utils.CreateFolder("tmp"); err != nil {
		return "", "", 0, fmt.Errorf("failed to create tmp dir: %v", err)
	}

	tmpPath := filepath.Join("tmp", header.Filename)
	dst, err := os.Create(tmpPath)
	if err != nil {
		return "", "", 0, fmt.Errorf("failed to create temp file: %v", err)
	}
	defer dst.Close()

	written, err := io.Copy(dst, file)
	if err != nil {
		return "", "", 0, fmt.Errorf("failed to write file: %v", err)
	}

	return tmpPath, header.Filename, written, nil
}

func handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}

	reqStart := time.Now()
	log.Printf("[import] received request from %s", r.RemoteAddr)

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "file too large or invalid form", err)
		return
	}

	tmpPath, filename, fileSize, err := saveUploadedFile(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), err)
		return
	}
	defer os.Remove(tmpPath)

	log.Printf("[import] file saved: %s (%s)", filename, formatBytes(fileSize))

	meta := metadataForFile(tmpPath)
	for field, dst := range map[string]*string{
		"title":   &meta.Title,
		"artists": &meta.Artists,
		"album":   &meta.Album,
		"lyrics":  &meta.Lyrics,
		"cover":   &meta.Cover,
		"url":     &meta.URL,
	} {
		if v := r.FormValue(field); v != "" {
			*dst = v
		}
	}

	if err := catalog.Validate(meta); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), err)
		return
	}

	fp, err := fingerprintFile(tmpPath, fingerprint.DefaultIngestConfig())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "fingerprint error", err)
		return
	}

	dbClient, err := db.NewClient()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db error", err)
		return
	}
	defer dbClient.Close()

	songID, err := dbClient.InsertSong(meta.Song())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to register song", err)
		return
	}
	fp.BindSong(songID)

	if err := dbClient.InsertFingerprint(fp); err != nil {
		dbClient.DeleteSong(songID)
		writeError(w, http.StatusInternalServerError, "failed to store fingerprint", err)
		return
	}

	log.Printf("[import] indexed '%s' (songID=%d, %d pairs) in %s",
		meta.Title, songID, fp.Len(), time.Since(reqStart))

	writeJSON(w, http.StatusCreated, importResponse{
		SongID:       songID,
		Title:        meta.Title,
		Artists:      meta.Artists,
		Fingerprints: fp.Len(),
	})
}

func handleIdentify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}

	reqStart := time.Now()
	log.Printf("[identify] received request from %s", r.RemoteAddr)

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "file too large or invalid form", err)
		return
	}

	tmpPath, filename, fileSize, err := saveUploadedFile(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), err)
		return
	}
	defer os.Remove(tmpPath)

	log.Printf("[identify] file saved: %s (%s)", filename, formatBytes(fileSize))

	fp, err := fingerprintFile(tmpPath, fingerprint.DefaultQueryConfig())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "fingerprint error", err)
		return
	}

	dbClient, err := db.NewClient()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db error", err)
		return
	}
	defer dbClient.Close()

	searchStart := time.Now()
	matches, err := matcher.Identify(dbClient, fp)
	searchDuration := time.Since(searchStart)

	if errors.Is(err, matcher.ErrEmptyFingerprint) {
		writeError(w, http.StatusUnprocessableEntity, "no fingerprint detected in upload", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "match error", err)
		return
	}

	results := make([]matchResult, 0, len(matches))
	for _, m := range matches {
		res := matchResult{SongID: m.SongID, Score: m.Score}
		if m.Song != nil {
			res.Title = m.Song.Title
			res.Artists = m.Song.Artists
			res.Album = m.Song.Album
			res.Cover = m.Song.Cover
			res.URL = m.Song.URL
		}
		results = append(results, res)
	}

	log.Printf("[identify] completed in %s, returning %d results", time.Since(reqStart), len(results))
	writeJSON(w, http.StatusOK, map[string]any{
		"matches":          results,
		"searchTimeMs":     searchDuration.Milliseconds(),
		"queryFingerprint": fp.Len(),
	})
}

func handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}

	dbClient, err := db.NewClient()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db error", err)
		return
	}
	defer dbClient.Close()

	totalSongs, _ := dbClient.TotalSongs()
	totalFP, _ := dbClient.TotalFingerprints()

	writeJSON(w, http.StatusOK, statsResponse{
		TotalSongs:        totalSongs,
		TotalFingerprints: totalFP,
		StorageEstimate:   formatBytes(int64(totalFP) * 40),
	})
}

func handleSongs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}

	dbClient, err := db.NewClient()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db error", err)
		return
	}
	defer dbClient.Close()

	songs, err := dbClient.ListSongs()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list songs", err)
		return
	}

	out := make([]songResponse, 0, len(songs))
	for _, s := range songs {
		out = append(out, songResponse{ID: s.ID, Title: s.Title, Artists: s.Artists, Album: s.Album})
	}

	writeJSON(w, http.StatusOK, out)
}
