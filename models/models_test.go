package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprintAppendKeepsOrder(t *testing.T) {
	fp := NewFingerprint()
	assert.True(t, fp.IsEmpty())
	assert.Equal(t, 0, fp.Len())

	pairs := []HashPair{
		{Hash: "100.00|200.00|1", Offset: 0},
		{Hash: "200.00|300.00|1", Offset: 1},
		{Hash: "100.00|200.00|1", Offset: 2}, // duplicates are kept
	}
	for _, pair := range pairs {
		fp.Append(pair)
	}

	assert.False(t, fp.IsEmpty())
	require.Equal(t, 3, fp.Len())
	assert.Equal(t, pairs, fp.Pairs())
}

func TestFingerprintSongBinding(t *testing.T) {
	fp := NewFingerprint()

	_, bound := fp.SongID()
	assert.False(t, bound)

	fp.BindSong(42)
	id, bound := fp.SongID()
	assert.True(t, bound)
	assert.Equal(t, uint32(42), id)
}
