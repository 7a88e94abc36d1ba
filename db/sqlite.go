package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"music-recognition/models"
)

// SQLite keeps the IN list under the driver's variable limit.
const sqliteLookupBatchSize = 900

type SQLiteClient struct {
	db *sql.DB
}

func NewSQLiteClient(path string) (*SQLiteClient, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("error opening sqlite db: %w", err)
	}

	client := &SQLiteClient{db: db}
	if err := client.setup(); err != nil {
		db.Close()
		return nil, err
	}
	return client, nil
}

func (c *SQLiteClient) setup() error {
	_, err := c.db.Exec(`
		CREATE TABLE IF NOT EXISTS songs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			artists TEXT,
			album TEXT,
			lyrics TEXT,
			cover TEXT,
			url TEXT
		);
		CREATE TABLE IF NOT EXISTS fingerprints (
			song_id INTEGER NOT NULL REFERENCES songs(id),
			hash TEXT NOT NULL,
			"offset" REAL NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_fingerprints_hash ON fingerprints(hash);
	`)
	if err != nil {
		return fmt.Errorf("error creating tables: %w", err)
	}
	return nil
}

func (c *SQLiteClient) Close() error {
	return c.db.Close()
}

func (c *SQLiteClient) InsertSong(song models.Song) (uint32, error) {
	res, err := c.db.Exec(
		`INSERT INTO songs (title, artists, album, lyrics, cover, url) VALUES (?, ?, ?, ?, ?, ?)`,
		song.Title, song.Artists, song.Album, song.Lyrics, song.Cover, song.URL,
	)
	if err != nil {
		return 0, fmt.Errorf("error inserting song: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("error reading inserted song id: %w", err)
	}
	return uint32(id), nil
}

func (c *SQLiteClient) InsertFingerprint(fp *models.Fingerprint) error {
	songID, bound := fp.SongID()
	if !bound {
		return errors.New("fingerprint has no bound song id")
	}

	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO fingerprints (song_id, hash, "offset") VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("error preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, pair := range fp.Pairs() {
		if _, err := stmt.Exec(songID, pair.Hash, pair.Offset); err != nil {
			return fmt.Errorf("error inserting fingerprint pair: %w", err)
		}
	}

	return tx.Commit()
}

func (c *SQLiteClient) LookupHashes(hashes []string) ([]models.Record, error) {
	var records []models.Record

	for start := 0; start < len(hashes); start += sqliteLookupBatchSize {
		end := start + sqliteLookupBatchSize
		if end > len(hashes) {
			end = len(hashes)
		}
		batch := hashes[start:end]

		placeholders := strings.Repeat("?,", len(batch)-1) + "?"
		args := make([]any, len(batch))
		for i, h := range batch {
			args[i] = h
		}

		rows, err := c.db.Query(
			`SELECT song_id, "offset" FROM fingerprints WHERE hash IN (`+placeholders+`)`, args...)
		if err != nil {
			return nil, fmt.Errorf("error querying fingerprints: %w", err)
		}

		for rows.Next() {
			var rec models.Record
			if err := rows.Scan(&rec.SongID, &rec.Offset); err != nil {
				rows.Close()
				return nil, fmt.Errorf("error scanning fingerprint row: %w", err)
			}
			records = append(records, rec)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("error iterating fingerprint rows: %w", err)
		}
		rows.Close()
	}

	return records, nil
}

func (c *SQLiteClient) GetSong(songID uint32) (*models.Song, error) {
	var song models.Song
	err := c.db.QueryRow(
		`SELECT id, title, artists, album, lyrics, cover, url FROM songs WHERE id = ?`, songID,
	).Scan(&song.ID, &song.Title, &song.Artists, &song.Album, &song.Lyrics, &song.Cover, &song.URL)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error getting song %d: %w", songID, err)
	}
	return &song, nil
}

func (c *SQLiteClient) ListSongs() ([]models.Song, error) {
	rows, err := c.db.Query(`SELECT id, title, artists, album, lyrics, cover, url FROM songs ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("error listing songs: %w", err)
	}
	defer rows.Close()

	var songs []models.Song
	for rows.Next() {
		var song models.Song
		if err := rows.Scan(&song.ID, &song.Title, &song.Artists, &song.Album,
			&song.Lyrics, &song.Cover, &song.URL); err != nil {
			return nil, fmt.Errorf("error scanning song row: %w", err)
		}
		songs = append(songs, song)
	}
	return songs, rows.Err()
}

func (c *SQLiteClient) DeleteSong(songID uint32) error {
	if _, err := c.db.Exec(`DELETE FROM fingerprints WHERE song_id = ?`, songID); err != nil {
		return fmt.Errorf("error deleting fingerprints for song %d: %w", songID, err)
	}
	if _, err := c.db.Exec(`DELETE FROM songs WHERE id = ?`, songID); err != nil {
		return fmt.Errorf("error deleting song %d: %w", songID, err)
	}
	return nil
}

func (c *SQLiteClient) DeleteAll() error {
	if _, err := c.db.Exec(`DELETE FROM fingerprints`); err != nil {
		return fmt.Errorf("error clearing fingerprints: %w", err)
	}
	if _, err := c.db.Exec(`DELETE FROM songs`); err != nil {
		return fmt.Errorf("error clearing songs: %w", err)
	}
	return nil
}

func (c *SQLiteClient) TotalSongs() (int, error) {
	var n int
	err := c.db.QueryRow(`SELECT COUNT(*) FROM songs`).Scan(&n)
	return n, err
}

func (c *SQLiteClient) TotalFingerprints() (int, error) {
	var n int
	err := c.db.QueryRow(`SELECT COUNT(*) FROM fingerprints`).Scan(&n)
	return n, err
}
