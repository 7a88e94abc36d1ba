package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"

	"music-recognition/models"
)

const (
	pgInsertBatchSize = 5000
	pgLookupBatchSize = 1000
)

type PostgresClient struct {
	db *sql.DB
}

func NewPostgresClient(dsn string) (*PostgresClient, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening postgres connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to postgres: %w", err)
	}

	client := &PostgresClient{db: db}
	if err := client.setup(); err != nil {
		db.Close()
		return nil, err
	}
	return client, nil
}

func (c *PostgresClient) setup() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS songs (
			id SERIAL PRIMARY KEY,
			title VARCHAR(50) NOT NULL,
			artists VARCHAR(50),
			album VARCHAR(50),
			lyrics VARCHAR(10000),
			cover VARCHAR(500),
			url VARCHAR(500)
		)`,
		`CREATE TABLE IF NOT EXISTS fingerprints (
			id SERIAL PRIMARY KEY,
			song_id INTEGER REFERENCES songs(id),
			hash VARCHAR(150) NOT NULL,
			"offset" DOUBLE PRECISION NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_fingerprints_hash ON fingerprints(hash)`,
	}

	for _, stmt := range statements {
		if _, err := c.db.Exec(stmt); err != nil {
			return fmt.Errorf("error creating tables: %w", err)
		}
	}
	return nil
}

func (c *PostgresClient) Close() error {
	return c.db.Close()
}

func (c *PostgresClient) InsertSong(song models.Song) (uint32, error) {
	var id uint32
	err := c.db.QueryRow(
		`INSERT INTO songs (title, artists, album, lyrics, cover, url)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		song.Title, song.Artists, song.Album, song.Lyrics, song.Cover, song.URL,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("error inserting song: %w", err)
	}
	return id, nil
}

func (c *PostgresClient) InsertFingerprint(fp *models.Fingerprint) error {
	songID, bound := fp.SongID()
	if !bound {
		return errors.New("fingerprint has no bound song id")
	}

	pairs := fp.Pairs()

	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	// multi-row VALUES inserts, batched to stay under the placeholder limit
	for start := 0; start < len(pairs); start += pgInsertBatchSize {
		end := start + pgInsertBatchSize
		if end > len(pairs) {
			end = len(pairs)
		}
		batch := pairs[start:end]

		var sb strings.Builder
		sb.WriteString(`INSERT INTO fingerprints (song_id, hash, "offset") VALUES `)
		args := make([]any, 0, len(batch)*3)
		for i, pair := range batch {
			if i > 0 {
				sb.WriteString(",")
			}
			fmt.Fprintf(&sb, "($%d, $%d, $%d)", i*3+1, i*3+2, i*3+3)
			args = append(args, songID, pair.Hash, pair.Offset)
		}

		if _, err := tx.Exec(sb.String(), args...); err != nil {
			return fmt.Errorf("error inserting fingerprint batch: %w", err)
		}
	}

	return tx.Commit()
}

func (c *PostgresClient) LookupHashes(hashes []string) ([]models.Record, error) {
	var records []models.Record

	for start := 0; start < len(hashes); start += pgLookupBatchSize {
		end := start + pgLookupBatchSize
		if end > len(hashes) {
			end = len(hashes)
		}
		batch := hashes[start:end]

		placeholders := make([]string, len(batch))
		args := make([]any, len(batch))
		for i, h := range batch {
			placeholders[i] = fmt.Sprintf("$%d", i+1)
			args[i] = h
		}

		rows, err := c.db.Query(
			`SELECT song_id, "offset" FROM fingerprints WHERE hash IN (`+
				strings.Join(placeholders, ",")+`)`, args...)
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

func (c *PostgresClient) GetSong(songID uint32) (*models.Song, error) {
	var song models.Song
	err := c.db.QueryRow(
		`SELECT id, title, artists, album, lyrics, cover, url FROM songs WHERE id = $1`, songID,
	).Scan(&song.ID, &song.Title, &song.Artists, &song.Album, &song.Lyrics, &song.Cover, &song.URL)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error getting song %d: %w", songID, err)
	}
	return &song, nil
}

func (c *PostgresClient) ListSongs() ([]models.Song, error) {
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

func (c *PostgresClient) DeleteSong(songID uint32) error {
	if _, err := c.db.Exec(`DELETE FROM fingerprints WHERE song_id = $1`, songID); err != nil {
		return fmt.Errorf("error deleting fingerprints for song %d: %w", songID, err)
	}
	if _, err := c.db.Exec(`DELETE FROM songs WHERE id = $1`, songID); err != nil {
		return fmt.Errorf("error deleting song %d: %w", songID, err)
	}
	return nil
}

func (c *PostgresClient) DeleteAll() error {
	if _, err := c.db.Exec(`DELETE FROM fingerprints`); err != nil {
		return fmt.Errorf("error clearing fingerprints: %w", err)
	}
	if _, err := c.db.Exec(`DELETE FROM songs`); err != nil {
		return fmt.Errorf("error clearing songs: %w", err)
	}
	return nil
}

func (c *PostgresClient) TotalSongs() (int, error) {
	var n int
	err := c.db.QueryRow(`SELECT COUNT(*) FROM songs`).Scan(&n)
	return n, err
}

func (c *PostgresClient) TotalFingerprints() (int, error) {
	var n int
	err := c.db.QueryRow(`SELECT COUNT(*) FROM fingerprints`).Scan(&n)
	return n, err
}
