// Package matcher ranks catalog songs against a query fingerprint by
// counting hash collisions in the index.
package matcher

import (
	"errors"
	"fmt"
	"sort"

	"music-recognition/db"
	"music-recognition/models"
)

// ErrEmptyFingerprint is returned when Identify is called with a
// fingerprint holding no hashes.
var ErrEmptyFingerprint = errors.New("fingerprint contains no hashes")

// Match is one ranked candidate. Score is the number of stored pairs
// whose hash appears in the query set. Song is the loaded metadata, nil
// when the catalog row has gone missing.
type Match struct {
	SongID uint32
	Score  int
	Song   *models.Song
}

// Identify looks up the distinct hashes of a query fingerprint and
// returns the best match and, when present, the runner-up. An empty
// result slice is the normal "no match" outcome. Equal scores are broken
// by the smaller song id.
func Identify(client db.Client, fp *models.Fingerprint) ([]Match, error) {
	hashes := distinctHashes(fp)
	if len(hashes) == 0 {
		return nil, ErrEmptyFingerprint
	}

	records, err := client.LookupHashes(hashes)
	if err != nil {
		return nil, fmt.Errorf("hash index lookup: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	counts := make(map[uint32]int)
	for _, rec := range records {
		counts[rec.SongID]++
	}

	ranked := make([]Match, 0, len(counts))
	for songID, score := range counts {
		ranked = append(ranked, Match{SongID: songID, Score: score})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].SongID < ranked[j].SongID
	})

	if len(ranked) > 2 {
		ranked = ranked[:2]
	}

	for i := range ranked {
		song, err := client.GetSong(ranked[i].SongID)
		if err != nil {
			return nil, fmt.Errorf("loading song %d: %w", ranked[i].SongID, err)
		}
		ranked[i].Song = song
	}

	return ranked, nil
}

func distinctHashes(fp *models.Fingerprint) []string {
	if fp == nil {
		return nil
	}
	seen := make(map[string]struct{}, fp.Len())
	hashes := make([]string, 0, fp.Len())
	for _, pair := range fp.Pairs() {
		if _, ok := seen[pair.Hash]; ok {
			continue
		}
		seen[pair.Hash] = struct{}{}
		hashes = append(hashes, pair.Hash)
	}
	return hashes
}
