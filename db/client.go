// Package db implements the hash index: an associative store from
// fingerprint hash to the (song, offset) pairs that produced it, plus the
// song metadata catalog. Backends are selected with the DB_TYPE env var.
package db

import (
	"fmt"
	"strings"

	"music-recognition/models"
	"music-recognition/utils"
)

// Client is the persistence contract the matcher runs against. Hashes are
// opaque strings; identical (song, hash, offset) triples may repeat.
// Calls may block on I/O but must not be re-entered concurrently on the
// same connection.
type Client interface {
	Close() error

	// InsertSong atomically assigns a fresh song id and stores the metadata.
	InsertSong(song models.Song) (uint32, error)

	// InsertFingerprint persists every pair of a fingerprint with a bound
	// song id. It fails when no song id is bound.
	InsertFingerprint(fp *models.Fingerprint) error

	// LookupHashes returns one record per stored pair whose hash appears in
	// the query set. Order is unspecified.
	LookupHashes(hashes []string) ([]models.Record, error)

	// GetSong returns the metadata for a song id, or nil when absent.
	GetSong(songID uint32) (*models.Song, error)

	ListSongs() ([]models.Song, error)
	DeleteSong(songID uint32) error
	DeleteAll() error

	TotalSongs() (int, error)
	TotalFingerprints() (int, error)
}

// NewClient builds a client for the configured backend. The default is a
// local SQLite file; set DB_TYPE to "postgres" or "mongo" to use a shared
// index.
func NewClient() (Client, error) {
	dbType := strings.ToLower(utils.GetEnv("DB_TYPE", "sqlite"))

	switch dbType {
	case "sqlite":
		return NewSQLiteClient(utils.GetEnv("DB_PATH", "db.sqlite3"))
	case "postgres":
		dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
			utils.GetEnv("DB_USER", "postgres"),
			utils.GetEnv("DB_PASS", ""),
			utils.GetEnv("DB_HOST", "localhost"),
			utils.GetEnv("DB_PORT", "5432"),
			utils.GetEnv("DB_NAME", "postgres"),
			utils.GetEnv("DB_SSLMODE", "disable"),
		)
		return NewPostgresClient(dsn)
	case "mongo":
		return NewMongoClient(utils.GetEnv("DB_URI", "mongodb://localhost:27017"))
	default:
		return nil, fmt.Errorf("unsupported DB_TYPE %q (want sqlite, postgres or mongo)", dbType)
	}
}
